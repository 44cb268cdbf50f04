package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Freeeeeet/mentor_scheduler/internal/apperr"
	"github.com/Freeeeeet/mentor_scheduler/internal/calendar"
	"github.com/Freeeeeet/mentor_scheduler/internal/lifecycle"
	"github.com/Freeeeeet/mentor_scheduler/internal/model"
	"github.com/Freeeeeet/mentor_scheduler/internal/notify"
	"github.com/Freeeeeet/mentor_scheduler/internal/scheduling"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Decision ответ ментора на заявку
type Decision string

const (
	DecisionConfirm Decision = "confirm"
	DecisionReject  Decision = "reject"
)

// BookingRequest заявка ученика на занятие
type BookingRequest struct {
	MenteeID        int64
	MentorID        int64
	ScheduledAt     time.Time
	DurationMinutes int
	Message         string
	// RequestKey ключ идемпотентности: повтор с тем же ключом вернёт исходную запись
	RequestKey string
}

type BookingService struct {
	userRepo         UserStore
	availabilityRepo AvailabilityStore
	appointmentRepo  AppointmentStore
	calendar         calendar.Bridge
	notifier         notify.Notifier
	settings         Settings
	logger           *zap.Logger

	notifications sync.WaitGroup
}

func NewBookingService(
	userRepo UserStore,
	availabilityRepo AvailabilityStore,
	appointmentRepo AppointmentStore,
	calendarBridge calendar.Bridge,
	notifier notify.Notifier,
	settings Settings,
	logger *zap.Logger,
) *BookingService {
	if calendarBridge == nil {
		calendarBridge = calendar.Noop{}
	}
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}
	return &BookingService{
		userRepo:         userRepo,
		availabilityRepo: availabilityRepo,
		appointmentRepo:  appointmentRepo,
		calendar:         calendarBridge,
		notifier:         notifier,
		settings:         settings,
		logger:           logger,
	}
}

func (s *BookingService) policy() lifecycle.Policy {
	return lifecycle.Policy{MinCancelNotice: s.settings.MinCancelNotice}
}

// RequestBooking создаёт заявку в статусе pending.
// Пересечение с активной записью ментора отсекает хранилище в момент вставки.
func (s *BookingService) RequestBooking(ctx context.Context, req BookingRequest) (*model.Appointment, error) {
	ctx, span := tracer.Start(ctx, "BookingService.RequestBooking")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("mentor_id", req.MentorID),
		attribute.Int64("mentee_id", req.MenteeID),
		attribute.String("scheduled_at", req.ScheduledAt.UTC().Format(time.RFC3339)),
	)

	now := s.settings.now()
	req.Message = strings.TrimSpace(req.Message)
	req.RequestKey = strings.TrimSpace(req.RequestKey)
	if req.DurationMinutes == 0 {
		req.DurationMinutes = s.settings.DefaultDurationMinutes
	}

	if req.RequestKey != "" {
		existing, err := s.replay(ctx, req, now)
		if err != nil || existing != nil {
			return existing, recordError(span, err)
		}
	}

	if err := s.validateRequest(req, now); err != nil {
		return nil, recordError(span, err)
	}

	mentee, err := s.userRepo.GetByID(ctx, req.MenteeID)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("get mentee: %w", err))
	}
	if mentee == nil {
		return nil, recordError(span, apperr.NotFound("user %d not found", req.MenteeID))
	}
	if _, err := requireMentor(ctx, s.userRepo, req.MentorID); err != nil {
		return nil, recordError(span, err)
	}

	// окна читаются из хранилища напрямую: кэш мог устареть
	windows, err := s.availabilityRepo.ListWindows(ctx, req.MentorID)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("list windows: %w", err))
	}
	fits, err := scheduling.SlotFits(windows, req.ScheduledAt, req.DurationMinutes)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("check slot: %w", err))
	}
	if !fits {
		return nil, recordError(span, apperr.SlotUnavailable(
			"%s is not an available %d-minute slot of mentor %d",
			req.ScheduledAt.UTC().Format(time.RFC3339), req.DurationMinutes, req.MentorID))
	}

	scheduledAt := req.ScheduledAt.UTC()
	appointment := &model.Appointment{
		ID:              uuid.New(),
		MentorID:        req.MentorID,
		MenteeID:        req.MenteeID,
		ScheduledAt:     scheduledAt,
		DurationMinutes: req.DurationMinutes,
		EndsAt:          scheduledAt.Add(time.Duration(req.DurationMinutes) * time.Minute),
		Status:          model.AppointmentStatusPending,
		Message:         req.Message,
		RequestKey:      req.RequestKey,
		CreatedAt:       now,
	}

	err = s.appointmentRepo.Create(ctx, appointment)
	if errors.Is(err, apperr.ErrDuplicateRequest) {
		// параллельный повтор того же запроса успел первым
		existing, replayErr := s.replay(ctx, req, now)
		if replayErr == nil && existing == nil {
			replayErr = fmt.Errorf("appointment with request key %q disappeared", req.RequestKey)
		}
		return existing, recordError(span, replayErr)
	}
	if err != nil {
		if apperr.Is(err, apperr.KindSlotUnavailable) {
			s.logger.Info("Slot taken concurrently",
				zap.Int64("mentor_id", req.MentorID),
				zap.Int64("mentee_id", req.MenteeID),
				zap.Time("scheduled_at", scheduledAt),
			)
			return nil, recordError(span, err)
		}
		return nil, recordError(span, fmt.Errorf("create appointment: %w", err))
	}

	s.logger.Info("Appointment requested",
		zap.String("appointment_id", appointment.ID.String()),
		zap.Int64("mentor_id", appointment.MentorID),
		zap.Int64("mentee_id", appointment.MenteeID),
		zap.Time("scheduled_at", appointment.ScheduledAt),
		zap.Int("duration_minutes", appointment.DurationMinutes),
	)

	s.notify(ctx, model.NotificationCreated, appointment, &model.Actor{UserID: req.MenteeID, Role: model.RoleMentee})

	return appointment, nil
}

func (s *BookingService) validateRequest(req BookingRequest, now time.Time) error {
	var problems []string

	if req.MenteeID == req.MentorID {
		problems = append(problems, "mentee and mentor must be different users")
	}
	if n := utf8.RuneCountInString(req.Message); n < s.settings.MinMessageLength {
		problems = append(problems, fmt.Sprintf("message must be at least %d characters, got %d", s.settings.MinMessageLength, n))
	}
	if err := validateDuration(req.DurationMinutes, s.settings.MaxDurationMinutes); err != nil {
		problems = append(problems, apperr.DetailsOf(err)...)
	}
	switch {
	case req.ScheduledAt.IsZero():
		problems = append(problems, "scheduled_at is required")
	case !req.ScheduledAt.After(now):
		problems = append(problems, "scheduled_at must be in the future")
	case !req.ScheduledAt.Before(s.settings.horizonEnd(now)):
		problems = append(problems, fmt.Sprintf("scheduled_at is beyond the %d-day booking horizon", s.settings.HorizonDays))
	}

	if len(problems) > 0 {
		return apperr.Validation("invalid booking request", problems...)
	}
	return nil
}

// replay возвращает запись, ранее созданную с тем же ключом идемпотентности
func (s *BookingService) replay(ctx context.Context, req BookingRequest, now time.Time) (*model.Appointment, error) {
	existing, err := s.appointmentRepo.GetByRequestKey(ctx, req.MenteeID, req.RequestKey)
	if err != nil {
		return nil, fmt.Errorf("get appointment by request key: %w", err)
	}
	if existing == nil {
		return nil, nil
	}
	if existing.MentorID != req.MentorID || !existing.ScheduledAt.Equal(req.ScheduledAt) || existing.DurationMinutes != req.DurationMinutes {
		return nil, apperr.Validation("idempotency key reuse", fmt.Sprintf("request key %q was already used for a different booking", req.RequestKey))
	}

	s.logger.Debug("Booking request replayed",
		zap.String("appointment_id", existing.ID.String()),
		zap.String("request_key", req.RequestKey),
	)
	return lifecycle.Materialize(existing, now), nil
}

// Respond подтверждает или отклоняет заявку от имени ментора
func (s *BookingService) Respond(ctx context.Context, appointmentID uuid.UUID, userID int64, decision Decision, notes string) (*model.Appointment, error) {
	ctx, span := tracer.Start(ctx, "BookingService.Respond")
	defer span.End()
	span.SetAttributes(attribute.String("appointment_id", appointmentID.String()), attribute.String("decision", string(decision)))

	var event lifecycle.Event
	switch decision {
	case DecisionConfirm:
		event = lifecycle.EventConfirm
	case DecisionReject:
		event = lifecycle.EventReject
	default:
		return nil, recordError(span, apperr.Validation("invalid decision", fmt.Sprintf("decision must be %q or %q", DecisionConfirm, DecisionReject)))
	}

	updated, change, actor, err := s.transition(ctx, appointmentID, userID, event, func(c *model.StatusChange) {
		c.ResponseNotes = strings.TrimSpace(notes)
	})
	if err != nil {
		return nil, recordError(span, err)
	}

	if lifecycle.CreatesCalendarEvent(change) {
		s.createCalendarEvent(ctx, updated)
	}

	s.finishTransition(ctx, updated, change, actor)
	return updated, nil
}

// Cancel отменяет запись от имени любой из сторон
func (s *BookingService) Cancel(ctx context.Context, appointmentID uuid.UUID, userID int64, reason string) (*model.Appointment, error) {
	ctx, span := tracer.Start(ctx, "BookingService.Cancel")
	defer span.End()
	span.SetAttributes(attribute.String("appointment_id", appointmentID.String()))

	updated, change, actor, err := s.transition(ctx, appointmentID, userID, lifecycle.EventCancel, func(c *model.StatusChange) {
		c.CancelReason = strings.TrimSpace(reason)
	})
	if err != nil {
		return nil, recordError(span, err)
	}

	if lifecycle.CancelsCalendarEvent(change) && updated.CalendarEventRef != "" {
		s.cancelCalendarEvent(ctx, updated)
	}

	s.finishTransition(ctx, updated, change, actor)
	return updated, nil
}

// transition загружает запись, проверяет охранные условия и сохраняет переход через compare-and-set
func (s *BookingService) transition(
	ctx context.Context,
	appointmentID uuid.UUID,
	userID int64,
	event lifecycle.Event,
	decorate func(*model.StatusChange),
) (*model.Appointment, model.StatusChange, model.Actor, error) {
	now := s.settings.now()

	appointment, err := s.load(ctx, appointmentID)
	if err != nil {
		return nil, model.StatusChange{}, model.Actor{}, err
	}

	actor, err := lifecycle.ResolveActor(appointment, userID)
	if err != nil {
		return nil, model.StatusChange{}, model.Actor{}, err
	}

	change, err := lifecycle.Apply(appointment, event, actor, now, s.policy())
	if err != nil {
		return nil, model.StatusChange{}, model.Actor{}, err
	}
	decorate(&change)

	updated := change.Apply(*appointment)
	ok, err := s.appointmentRepo.UpdateStatus(ctx, &updated, change.From)
	if err != nil {
		return nil, model.StatusChange{}, model.Actor{}, fmt.Errorf("update status: %w", err)
	}
	if !ok {
		current, err := s.load(ctx, appointmentID)
		if err != nil {
			return nil, model.StatusChange{}, model.Actor{}, err
		}
		return nil, model.StatusChange{}, model.Actor{}, apperr.StateTransition(
			"cannot %s appointment %s: status changed concurrently to %s", event, appointmentID, current.Status)
	}

	return &updated, change, actor, nil
}

func (s *BookingService) finishTransition(ctx context.Context, updated *model.Appointment, change model.StatusChange, actor model.Actor) {
	s.logger.Info("Appointment status changed",
		zap.String("appointment_id", updated.ID.String()),
		zap.String("from", string(change.From)),
		zap.String("to", string(change.To)),
		zap.Int64("actor_id", actor.UserID),
		zap.String("actor_role", string(actor.Role)),
	)

	if kind, ok := lifecycle.NotificationFor(change.To); ok {
		s.notify(ctx, kind, updated, &actor)
	}
}

func (s *BookingService) load(ctx context.Context, appointmentID uuid.UUID) (*model.Appointment, error) {
	appointment, err := s.appointmentRepo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	if appointment == nil {
		return nil, apperr.NotFound("appointment %s not found", appointmentID)
	}
	return appointment, nil
}

// createCalendarEvent создаёт событие после коммита; сбой не откатывает подтверждение
func (s *BookingService) createCalendarEvent(ctx context.Context, appointment *model.Appointment) {
	ctx = context.WithoutCancel(ctx)

	event, err := s.calendar.CreateEvent(ctx, appointment)
	if err != nil {
		s.logger.Error("Failed to create calendar event",
			zap.String("appointment_id", appointment.ID.String()),
			zap.Error(apperr.External("calendar", err)),
		)
		return
	}
	if event.ID == "" && event.MeetingLink == "" {
		return
	}

	stored, err := s.appointmentRepo.SetCalendarEvent(ctx, appointment.ID, event.ID, event.MeetingLink, s.settings.now())
	if err != nil {
		s.logger.Error("Failed to store calendar event reference",
			zap.String("appointment_id", appointment.ID.String()),
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		return
	}
	if !stored {
		// Запись отменили, пока создавалось событие: отмена его не видела
		s.logger.Warn("Appointment left confirmed while calendar event was created, removing event",
			zap.String("appointment_id", appointment.ID.String()),
			zap.String("event_id", event.ID),
		)
		if event.ID != "" {
			if err := s.calendar.CancelEvent(ctx, event.ID); err != nil {
				s.logger.Error("Failed to cancel orphaned calendar event",
					zap.String("appointment_id", appointment.ID.String()),
					zap.String("event_id", event.ID),
					zap.Error(apperr.External("calendar", err)),
				)
			}
		}
		return
	}

	appointment.CalendarEventRef = event.ID
	appointment.MeetingLink = event.MeetingLink
}

// cancelCalendarEvent удаляет событие после коммита отмены
func (s *BookingService) cancelCalendarEvent(ctx context.Context, appointment *model.Appointment) {
	if err := s.calendar.CancelEvent(context.WithoutCancel(ctx), appointment.CalendarEventRef); err != nil {
		s.logger.Error("Failed to cancel calendar event",
			zap.String("appointment_id", appointment.ID.String()),
			zap.String("event_id", appointment.CalendarEventRef),
			zap.Error(apperr.External("calendar", err)),
		)
	}
}

// notify рассылает уведомление в фоне; результат на операцию не влияет
func (s *BookingService) notify(ctx context.Context, kind model.NotificationKind, appointment *model.Appointment, actor *model.Actor) {
	notification := model.Notification{Kind: kind, Appointment: *appointment, Actor: actor}
	notifyCtx := context.WithoutCancel(ctx)

	s.notifications.Add(1)
	go func() {
		defer s.notifications.Done()

		ctx := notifyCtx
		if s.settings.NotifyTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.settings.NotifyTimeout)
			defer cancel()
		}

		if err := s.notifier.Notify(ctx, notification); err != nil {
			s.logger.Warn("Failed to deliver notification",
				zap.String("kind", string(kind)),
				zap.String("appointment_id", appointment.ID.String()),
				zap.Error(err),
			)
		}
	}()
}

// Wait дожидается отправки уведомлений (для остановки приложения)
func (s *BookingService) Wait() {
	s.notifications.Wait()
}

// GetAppointment возвращает запись участнику с учётом ленивого завершения
func (s *BookingService) GetAppointment(ctx context.Context, appointmentID uuid.UUID, userID int64) (*model.Appointment, error) {
	appointment, err := s.load(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if _, err := lifecycle.ResolveActor(appointment, userID); err != nil {
		return nil, err
	}
	return lifecycle.Materialize(appointment, s.settings.now()), nil
}

// ListForUser возвращает все записи пользователя, где он ментор или ученик
func (s *BookingService) ListForUser(ctx context.Context, userID int64) ([]*model.Appointment, error) {
	appointments, err := s.appointmentRepo.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return materializeAll(appointments, s.settings.now()), nil
}

// ListPendingForMentor возвращает заявки, ожидающие ответа ментора
func (s *BookingService) ListPendingForMentor(ctx context.Context, mentorID int64) ([]*model.Appointment, error) {
	appointments, err := s.appointmentRepo.ListPendingByMentor(ctx, mentorID)
	if err != nil {
		return nil, fmt.Errorf("list pending appointments: %w", err)
	}
	return materializeAll(appointments, s.settings.now()), nil
}

// CompleteElapsed сохраняет completed для прошедших подтверждённых записей
func (s *BookingService) CompleteElapsed(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "BookingService.CompleteElapsed")
	defer span.End()

	completed, err := s.appointmentRepo.CompleteElapsed(ctx, s.settings.now())
	if err != nil {
		return 0, recordError(span, err)
	}
	span.SetAttributes(attribute.Int64("completed", completed))

	if completed > 0 {
		s.logger.Info("Elapsed appointments completed", zap.Int64("count", completed))
	}
	return completed, nil
}

func materializeAll(appointments []*model.Appointment, now time.Time) []*model.Appointment {
	out := make([]*model.Appointment, 0, len(appointments))
	for _, a := range appointments {
		out = append(out, lifecycle.Materialize(a, now))
	}
	return out
}
