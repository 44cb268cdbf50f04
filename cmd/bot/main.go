package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/Freeeeeet/mentor_scheduler/internal/app"
	"github.com/Freeeeeet/mentor_scheduler/internal/calendar"
	"github.com/Freeeeeet/mentor_scheduler/internal/config"
	"github.com/Freeeeeet/mentor_scheduler/internal/controller"
	"github.com/Freeeeeet/mentor_scheduler/internal/httpapi"
	"github.com/Freeeeeet/mentor_scheduler/internal/notify"
	"github.com/Freeeeeet/mentor_scheduler/internal/repository"
	"github.com/Freeeeeet/mentor_scheduler/internal/repository/sqlite"
	"github.com/Freeeeeet/mentor_scheduler/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	serviceName     = "mentor-scheduler"
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment, cfg.LogLevel)
	defer logger.Sync()

	logger.Info("Starting mentor scheduler",
		zap.String("environment", cfg.Environment),
		zap.String("db_driver", cfg.DBDriver),
		zap.String("calendar", cfg.CalendarProvider),
		zap.Bool("telegram", cfg.TelegramToken != ""),
		zap.Bool("http", cfg.HTTPEnabled()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Mentor scheduler stopped with error", zap.Error(err))
	}

	logger.Info("Mentor scheduler stopped")
}

// stores хранилища выбранного драйвера
type stores struct {
	users        service.UserStore
	availability service.AvailabilityStore
	appointments service.AppointmentStore
	close        func()
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("✅ SQLite storage opened", zap.String("path", cfg.SQLitePath))
		return &stores{
			users:        store.Users(),
			availability: store.Availability(),
			appointments: store.Appointments(),
			close:        func() { _ = store.Close() },
		}, nil

	default:
		pool, err := pgxpool.New(ctx, cfg.DBDSN)
		if err != nil {
			return nil, fmt.Errorf("create connection pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}

		migrator, err := app.NewMigrator(pool, logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
		defer migrator.Close()

		if err := migrator.Run(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		version, err := migrator.Version(ctx)
		if err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("✅ Connected to PostgreSQL", zap.Int64("schema_version", version))

		return &stores{
			users:        repository.NewUserRepository(pool),
			availability: repository.NewAvailabilityRepository(pool, logger),
			appointments: repository.NewAppointmentRepository(pool),
			close:        pool.Close,
		}, nil
	}
}

func newCalendar(cfg *config.Config, logger *zap.Logger) calendar.Bridge {
	policy := calendar.RetryPolicy{
		Attempts: cfg.CalendarRetries,
		Timeout:  cfg.CalendarTimeout,
	}

	switch cfg.CalendarProvider {
	case config.CalendarHTTP:
		client := &http.Client{Timeout: cfg.CalendarTimeout}
		return calendar.NewRetrying(calendar.NewHTTPBridge(cfg.CalendarBaseURL, cfg.CalendarToken, client), policy, logger)
	case config.CalendarNone:
		return calendar.Noop{}
	default:
		return calendar.NewJitsiBridge(cfg.JitsiBaseURL)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	shutdownTracing, err := app.SetupTracing(ctx, cfg.OTelEndpoint, serviceName)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	loc := cfg.Location()

	// Бот нужен нотификатору раньше, чем создан контроллер,
	// поэтому обработчик по умолчанию ссылается на ctrl через замыкание
	var (
		telegram *bot.Bot
		ctrl     *controller.BotController
	)
	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if cfg.TelegramToken != "" {
		telegram, err = bot.New(cfg.TelegramToken, bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if ctrl != nil {
				ctrl.DefaultHandler(ctx, b, update)
			}
		}))
		if err != nil {
			return fmt.Errorf("create telegram bot: %w", err)
		}
		notifier = notify.Multi{
			notify.NewLogNotifier(logger),
			notify.NewTelegramNotifier(telegram, st.users, loc, logger),
		}
	}

	settings := service.DefaultSettings()
	settings.MinCancelNotice = cfg.Booking.MinCancelNotice
	settings.MinMessageLength = cfg.Booking.MinMessageLength
	settings.MaxDurationMinutes = cfg.Booking.MaxDurationMinutes
	settings.DefaultDurationMinutes = cfg.Booking.DefaultDurationMinutes
	settings.HorizonDays = cfg.Booking.HorizonDays
	settings.SlotLimit = cfg.Booking.SlotLimit

	userService := service.NewUserService(st.users, logger)
	availabilityService := service.NewAvailabilityService(st.users, st.availability, logger)
	slotService := service.NewSlotService(availabilityService, st.appointments, settings, logger)
	bookingService := service.NewBookingService(
		st.users,
		st.availability,
		st.appointments,
		newCalendar(cfg, logger),
		notifier,
		settings,
		logger,
	)
	defer bookingService.Wait()

	scheduler, err := app.NewScheduler(cfg.SweepSchedule, bookingService, logger)
	if err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	g, gctx := errgroup.WithContext(ctx)

	if telegram != nil {
		ctrl = controller.NewBotController(telegram, userService, availabilityService, slotService, bookingService, loc, logger)
		if err := ctrl.RegisterHandlers(ctx); err != nil {
			// Меню команд не критично для работы
			logger.Warn("Failed to register bot commands", zap.Error(err))
		}
		g.Go(func() error {
			return ctrl.Start(gctx)
		})
	}

	if cfg.HTTPEnabled() {
		server := httpapi.NewServer(
			httpapi.Config{JWTSecret: cfg.JWTSecret},
			userService,
			availabilityService,
			slotService,
			bookingService,
			logger,
		)
		g.Go(func() error {
			logger.Info("HTTP API listening", zap.String("addr", cfg.HTTPAddr))
			if err := server.Listen(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	if telegram == nil && !cfg.HTTPEnabled() {
		logger.Warn("Neither TELEGRAM_TOKEN nor JWT_SECRET is set, only the completion sweep will run")
		g.Go(func() error {
			<-gctx.Done()
			return nil
		})
	}

	logger.Info("✅ Mentor scheduler is running")

	return g.Wait()
}
