package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/mentor_scheduler/internal/model"
	"github.com/google/uuid"
)

// Хранилища, которые реализуют репозитории Postgres и SQLite.
// "Не найдено" возвращается как nil, nil.

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	ListMentors(ctx context.Context) ([]*model.User, error)
}

type AvailabilityStore interface {
	ReplaceWindows(ctx context.Context, mentorID int64, windows []model.AvailabilityWindow) ([]model.AvailabilityWindow, error)
	ListWindows(ctx context.Context, mentorID int64) ([]model.AvailabilityWindow, error)
}

type AppointmentStore interface {
	Create(ctx context.Context, a *model.Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	GetByRequestKey(ctx context.Context, menteeID int64, key string) (*model.Appointment, error)
	ListActiveByMentor(ctx context.Context, mentorID int64, from, to time.Time) ([]*model.Appointment, error)
	ListByParticipant(ctx context.Context, userID int64) ([]*model.Appointment, error)
	ListPendingByMentor(ctx context.Context, mentorID int64) ([]*model.Appointment, error)
	UpdateStatus(ctx context.Context, a *model.Appointment, from model.AppointmentStatus) (bool, error)
	SetCalendarEvent(ctx context.Context, id uuid.UUID, eventRef, meetingLink string, at time.Time) (bool, error)
	CompleteElapsed(ctx context.Context, now time.Time) (int64, error)
}
