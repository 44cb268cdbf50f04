package calendar

import (
	"context"

	"github.com/Freeeeeet/mentor_scheduler/internal/model"
)

// Event событие, созданное во внешнем календаре
type Event struct {
	ID          string `json:"id"`
	MeetingLink string `json:"meeting_link"`
}

// Bridge внешний календарь: создание события при подтверждении и удаление при отмене
type Bridge interface {
	CreateEvent(ctx context.Context, appointment *model.Appointment) (Event, error)
	CancelEvent(ctx context.Context, eventID string) error
}

// Noop календарь отключён
type Noop struct{}

func (Noop) CreateEvent(context.Context, *model.Appointment) (Event, error) { return Event{}, nil }
func (Noop) CancelEvent(context.Context, string) error                      { return nil }
