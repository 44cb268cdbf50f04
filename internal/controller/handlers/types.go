package handlers

import (
	"context"
	"time"

	"github.com/Freeeeeet/mentor_scheduler/internal/controller/state"
	"github.com/Freeeeeet/mentor_scheduler/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// commandFunc обработчик команды с уже разобранными аргументами
type commandFunc func(ctx context.Context, b *bot.Bot, update *models.Update, args []string)

// Handlers содержит все зависимости для обработки команд
type Handlers struct {
	userService         *service.UserService
	availabilityService *service.AvailabilityService
	slotService         *service.SlotService
	bookingService      *service.BookingService
	stateManager        *state.Manager
	loc                 *time.Location
	logger              *zap.Logger

	commands map[string]commandFunc
}

// NewHandlers создаёт новый обработчик команд; loc определяет часовой пояс сообщений
func NewHandlers(
	userService *service.UserService,
	availabilityService *service.AvailabilityService,
	slotService *service.SlotService,
	bookingService *service.BookingService,
	stateManager *state.Manager,
	loc *time.Location,
	logger *zap.Logger,
) *Handlers {
	if loc == nil {
		loc = time.UTC
	}
	h := &Handlers{
		userService:         userService,
		availabilityService: availabilityService,
		slotService:         slotService,
		bookingService:      bookingService,
		stateManager:        stateManager,
		loc:                 loc,
		logger:              logger,
	}

	h.commands = map[string]commandFunc{
		"/start":           h.handleStart,
		"/help":            h.handleHelp,
		"/cancel":          h.handleCancel,
		"/becomementor":    h.handleBecomeMentor,
		"/mentors":         h.handleMentors,
		"/availability":    h.handleAvailability,
		"/setavailability": h.handleSetAvailability,
		"/slots":           h.handleSlots,
		"/book":            h.handleBook,
		"/requests":        h.handleRequests,
		"/confirm":         h.handleConfirm,
		"/reject":          h.handleReject,
		"/cancelbooking":   h.handleCancelBooking,
		"/mybookings":      h.handleMyBookings,
	}

	return h
}
