package httpapi

import (
	"context"
	"time"

	"github.com/Freeeeeet/mentor_scheduler/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// Config параметры HTTP API
type Config struct {
	JWTSecret    string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server HTTP API движка бронирования
type Server struct {
	app          *fiber.App
	users        *service.UserService
	availability *service.AvailabilityService
	slots        *service.SlotService
	booking      *service.BookingService
	validate     *validator.Validate
	logger       *zap.Logger
}

func NewServer(
	cfg Config,
	users *service.UserService,
	availability *service.AvailabilityService,
	slots *service.SlotService,
	booking *service.BookingService,
	log *zap.Logger,
) *Server {
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 15 * time.Second
	}

	s := &Server{
		users:        users,
		availability: availability,
		slots:        slots,
		booking:      booking,
		validate:     newValidator(),
		logger:       log,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "Mentor Scheduler",
		CaseSensitive:         true,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		IdleTimeout:           60 * time.Second,
		ErrorHandler:          s.handleError,
	})

	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{
		Output:     zap.NewStdLog(log.Named("http")).Writer(),
		TimeFormat: time.RFC3339,
		Format:     "${status} - ${latency} ${method} ${path}\n",
	}))

	s.routes(cfg)
	return s
}

func (s *Server) routes(cfg Config) {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := s.app.Group("/api/v1")

	mentors := api.Group("/mentors")
	mentors.Get("", s.listMentors)
	mentors.Get("/:mentorId/availability", s.getAvailability)
	mentors.Get("/:mentorId/slots", s.listSlots)

	me := api.Group("/me", protected(cfg.JWTSecret))
	me.Put("/availability", s.setAvailability)
	me.Get("/appointments", s.listMyAppointments)
	me.Get("/requests", s.listPendingRequests)

	appointments := api.Group("/appointments", protected(cfg.JWTSecret))
	appointments.Post("", s.requestBooking)
	appointments.Get("/:id", s.getAppointment)
	appointments.Post("/:id/respond", s.respond)
	appointments.Post("/:id/cancel", s.cancel)
}

// App возвращает приложение Fiber (для тестов через app.Test)
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen блокируется, пока сервер не остановлен
func (s *Server) Listen(addr string) error {
	s.logger.Info("HTTP API listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
