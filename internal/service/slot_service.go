package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/mentor_scheduler/internal/apperr"
	"github.com/Freeeeeet/mentor_scheduler/internal/model"
	"github.com/Freeeeeet/mentor_scheduler/internal/scheduling"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// SlotService строит свободные слоты менторов на горизонт бронирования
type SlotService struct {
	availability    *AvailabilityService
	appointmentRepo AppointmentStore
	settings        Settings
	logger          *zap.Logger
}

func NewSlotService(availability *AvailabilityService, appointmentRepo AppointmentStore, settings Settings, logger *zap.Logger) *SlotService {
	return &SlotService{
		availability:    availability,
		appointmentRepo: appointmentRepo,
		settings:        settings,
		logger:          logger,
	}
}

// ListSlots возвращает ближайшие свободные слоты длительностью durationMinutes.
// 0 означает длительность по умолчанию.
func (s *SlotService) ListSlots(ctx context.Context, mentorID int64, durationMinutes int) ([]model.Slot, error) {
	ctx, span := tracer.Start(ctx, "SlotService.ListSlots")
	defer span.End()

	if durationMinutes == 0 {
		durationMinutes = s.settings.DefaultDurationMinutes
	}
	if err := validateDuration(durationMinutes, s.settings.MaxDurationMinutes); err != nil {
		return nil, recordError(span, err)
	}
	span.SetAttributes(attribute.Int64("mentor_id", mentorID), attribute.Int("duration_minutes", durationMinutes))

	windows, err := s.availability.GetWindows(ctx, mentorID)
	if err != nil {
		return nil, recordError(span, err)
	}
	if len(windows) == 0 {
		return []model.Slot{}, nil
	}

	now := s.settings.now()
	appointments, err := s.appointmentRepo.ListActiveByMentor(ctx, mentorID, now, s.settings.horizonEnd(now).AddDate(0, 0, 1))
	if err != nil {
		return nil, recordError(span, fmt.Errorf("list active appointments: %w", err))
	}

	slots, err := scheduling.ProjectSlots(scheduling.ProjectionInput{
		MentorID:           mentorID,
		Windows:            windows,
		Appointments:       appointments,
		HorizonDays:        s.settings.HorizonDays,
		GranularityMinutes: durationMinutes,
		Limit:              s.settings.SlotLimit,
		Now:                now,
	})
	if err != nil {
		return nil, recordError(span, fmt.Errorf("project slots: %w", err))
	}

	s.logger.Debug("Slots projected",
		zap.Int64("mentor_id", mentorID),
		zap.Int("duration_minutes", durationMinutes),
		zap.Int("slots", len(slots)),
	)

	if slots == nil {
		slots = []model.Slot{}
	}
	return slots, nil
}

func validateDuration(durationMinutes, maxMinutes int) error {
	if durationMinutes <= 0 {
		return apperr.Validation("invalid duration", fmt.Sprintf("duration_minutes must be positive, got %d", durationMinutes))
	}
	if maxMinutes > 0 && durationMinutes > maxMinutes {
		return apperr.Validation("invalid duration", fmt.Sprintf("duration_minutes must not exceed %d, got %d", maxMinutes, durationMinutes))
	}
	return nil
}
