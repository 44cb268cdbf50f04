package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"   // Ожидает ответа ментора
	AppointmentStatusConfirmed AppointmentStatus = "confirmed" // Подтверждена
	AppointmentStatusRejected  AppointmentStatus = "rejected"  // Отклонена ментором
	AppointmentStatusCancelled AppointmentStatus = "cancelled" // Отменена одной из сторон
	AppointmentStatusCompleted AppointmentStatus = "completed" // Прошла
)

// IsActive сообщает, занимает ли запись время ментора
func (s AppointmentStatus) IsActive() bool {
	return s == AppointmentStatusPending || s == AppointmentStatusConfirmed
}

// IsTerminal сообщает, что статус больше не меняется
func (s AppointmentStatus) IsTerminal() bool {
	return s == AppointmentStatusRejected || s == AppointmentStatusCancelled || s == AppointmentStatusCompleted
}

func (s AppointmentStatus) Valid() bool {
	return s.IsActive() || s.IsTerminal()
}

type Appointment struct {
	ID               uuid.UUID         `json:"id"`
	MentorID         int64             `json:"mentor_id"`
	MenteeID         int64             `json:"mentee_id"`
	ScheduledAt      time.Time         `json:"scheduled_at"`
	DurationMinutes  int               `json:"duration_minutes"`
	EndsAt           time.Time         `json:"ends_at"`
	Status           AppointmentStatus `json:"status"`
	Message          string            `json:"message"`
	ResponseNotes    string            `json:"response_notes,omitempty"`
	CalendarEventRef string            `json:"calendar_event_ref,omitempty"`
	MeetingLink      string            `json:"meeting_link,omitempty"`
	RequestKey       string            `json:"-"` // ключ идемпотентности запроса
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	RespondedAt      *time.Time        `json:"responded_at,omitempty"`
	CancelledBy      *Role             `json:"cancelled_by,omitempty"`
	CancelReason     string            `json:"cancel_reason,omitempty"`
	CancelledAt      *time.Time        `json:"cancelled_at,omitempty"`
}

// Duration возвращает длительность занятия
func (a *Appointment) Duration() time.Duration {
	return time.Duration(a.DurationMinutes) * time.Minute
}

// StatusChange описывает переход, который нужно сохранить атомарно (compare-and-set по From)
type StatusChange struct {
	From          AppointmentStatus
	To            AppointmentStatus
	At            time.Time
	ResponseNotes string
	CancelledBy   *Role
	CancelReason  string
}

// Apply применяет изменение к копии записи
func (c StatusChange) Apply(a Appointment) Appointment {
	a.Status = c.To
	a.UpdatedAt = c.At
	switch c.To {
	case AppointmentStatusConfirmed, AppointmentStatusRejected:
		at := c.At
		a.RespondedAt = &at
		a.ResponseNotes = c.ResponseNotes
	case AppointmentStatusCancelled:
		at := c.At
		a.CancelledAt = &at
		a.CancelledBy = c.CancelledBy
		a.CancelReason = c.CancelReason
	}
	return a
}
