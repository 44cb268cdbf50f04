package lifecycle

import (
	"time"

	"github.com/Freeeeeet/mentor_scheduler/internal/apperr"
	"github.com/Freeeeeet/mentor_scheduler/internal/model"
)

// Event действие над записью
type Event string

const (
	EventConfirm Event = "confirm"
	EventReject  Event = "reject"
	EventCancel  Event = "cancel"
)

// Policy настраиваемые ограничения переходов
type Policy struct {
	// MinCancelNotice минимальный запас времени до начала занятия для отмены
	MinCancelNotice time.Duration
}

var transitions = map[model.AppointmentStatus]map[Event]model.AppointmentStatus{
	model.AppointmentStatusPending: {
		EventConfirm: model.AppointmentStatusConfirmed,
		EventReject:  model.AppointmentStatusRejected,
		EventCancel:  model.AppointmentStatusCancelled,
	},
	model.AppointmentStatusConfirmed: {
		EventCancel: model.AppointmentStatusCancelled,
	},
}

// EffectiveStatus вычисляет статус с учётом ленивого завершения:
// подтверждённая запись, время которой прошло, считается completed
func EffectiveStatus(status model.AppointmentStatus, scheduledAt time.Time, durationMinutes int, now time.Time) model.AppointmentStatus {
	if status != model.AppointmentStatusConfirmed {
		return status
	}
	end := scheduledAt.Add(time.Duration(durationMinutes) * time.Minute)
	if now.After(end) {
		return model.AppointmentStatusCompleted
	}
	return status
}

// Materialize возвращает копию записи с эффективным статусом
func Materialize(a *model.Appointment, now time.Time) *model.Appointment {
	if a == nil {
		return nil
	}
	cp := *a
	cp.Status = EffectiveStatus(a.Status, a.ScheduledAt, a.DurationMinutes, now)
	return &cp
}

// ResolveActor определяет роль пользователя в записи один раз на границе сервиса
func ResolveActor(a *model.Appointment, userID int64) (model.Actor, error) {
	switch userID {
	case a.MentorID:
		return model.Actor{UserID: userID, Role: model.RoleMentor}, nil
	case a.MenteeID:
		return model.Actor{UserID: userID, Role: model.RoleMentee}, nil
	default:
		return model.Actor{}, apperr.Permission("user %d is not a participant of appointment %s", userID, a.ID)
	}
}

// Apply проверяет охранные условия и возвращает изменение статуса для сохранения
func Apply(a *model.Appointment, event Event, actor model.Actor, now time.Time, policy Policy) (model.StatusChange, error) {
	current := EffectiveStatus(a.Status, a.ScheduledAt, a.DurationMinutes, now)

	switch event {
	case EventConfirm, EventReject:
		if !actor.IsMentor() {
			return model.StatusChange{}, apperr.Permission("only the mentor can %s appointment %s", event, a.ID)
		}
	case EventCancel:
		if actor.Role != model.RoleMentor && actor.Role != model.RoleMentee {
			return model.StatusChange{}, apperr.Permission("only participants can cancel appointment %s", a.ID)
		}
	default:
		return model.StatusChange{}, apperr.Validation("unknown event " + string(event))
	}

	next, ok := transitions[current][event]
	if !ok {
		return model.StatusChange{}, apperr.StateTransition("cannot %s appointment %s in status %s", event, a.ID, current)
	}

	change := model.StatusChange{
		From: a.Status,
		To:   next,
		At:   now,
	}

	if event == EventCancel {
		if !a.ScheduledAt.After(now.Add(policy.MinCancelNotice)) {
			return model.StatusChange{}, apperr.StateTransition(
				"appointment %s starts at %s, cancellation requires at least %s notice",
				a.ID, a.ScheduledAt.UTC().Format(time.RFC3339), policy.MinCancelNotice)
		}
		role := actor.Role
		change.CancelledBy = &role
	}

	return change, nil
}

// CreatesCalendarEvent сообщает, что переход требует создать событие в календаре
func CreatesCalendarEvent(change model.StatusChange) bool {
	return change.To == model.AppointmentStatusConfirmed
}

// CancelsCalendarEvent сообщает, что переход требует удалить событие из календаря
func CancelsCalendarEvent(change model.StatusChange) bool {
	return change.From == model.AppointmentStatusConfirmed && change.To == model.AppointmentStatusCancelled
}

// NotificationFor сопоставляет переход и вид уведомления
func NotificationFor(status model.AppointmentStatus) (model.NotificationKind, bool) {
	switch status {
	case model.AppointmentStatusPending:
		return model.NotificationCreated, true
	case model.AppointmentStatusConfirmed:
		return model.NotificationConfirmed, true
	case model.AppointmentStatusRejected:
		return model.NotificationRejected, true
	case model.AppointmentStatusCancelled:
		return model.NotificationCancelled, true
	default:
		return "", false
	}
}
