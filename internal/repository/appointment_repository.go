package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/mentor_scheduler/internal/apperr"
	"github.com/Freeeeeet/mentor_scheduler/internal/model"
	"github.com/Freeeeeet/mentor_scheduler/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const appointmentColumns = `
	id, mentor_id, mentee_id, scheduled_at, duration_minutes, ends_at, status, message,
	response_notes, calendar_event_ref, meeting_link, request_key, created_at, updated_at,
	responded_at, cancelled_by, cancel_reason, cancelled_at`

type AppointmentRepository struct {
	*base.Repository
}

func NewAppointmentRepository(pool *pgxpool.Pool) *AppointmentRepository {
	return &AppointmentRepository{Repository: base.NewRepository(pool)}
}

func scanAppointment(row pgx.Row) (*model.Appointment, error) {
	var (
		a           model.Appointment
		cancelledBy *string
	)
	err := row.Scan(
		&a.ID,
		&a.MentorID,
		&a.MenteeID,
		&a.ScheduledAt,
		&a.DurationMinutes,
		&a.EndsAt,
		&a.Status,
		&a.Message,
		&a.ResponseNotes,
		&a.CalendarEventRef,
		&a.MeetingLink,
		&a.RequestKey,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.RespondedAt,
		&cancelledBy,
		&a.CancelReason,
		&a.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	if cancelledBy != nil {
		role := model.Role(*cancelledBy)
		a.CancelledBy = &role
	}
	return &a, nil
}

func collectAppointments(rows pgx.Rows, op string) ([]*model.Appointment, error) {
	defer rows.Close()

	var appointments []*model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appointments = append(appointments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return appointments, nil
}

// Create сохраняет новую запись. Пересечение с активной записью ментора
// отсекает ограничение appointments_no_overlap, поэтому проверка и вставка атомарны.
func (r *AppointmentRepository) Create(ctx context.Context, a *model.Appointment) error {
	query := `
		INSERT INTO appointments (id, mentor_id, mentee_id, scheduled_at, duration_minutes, ends_at, status, message, request_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`

	_, err := r.Pool().Exec(
		ctx, query,
		a.ID,
		a.MentorID,
		a.MenteeID,
		a.ScheduledAt,
		a.DurationMinutes,
		a.EndsAt,
		a.Status,
		a.Message,
		a.RequestKey,
		a.CreatedAt,
	)
	if err != nil {
		return createError(err, a)
	}

	a.UpdatedAt = a.CreatedAt
	return nil
}

// createError переводит ошибки ограничений при вставке записи в ошибки домена
func createError(err error, a *model.Appointment) error {
	switch {
	case base.IsConstraint(err, base.CodeExclusionViolation, "appointments_no_overlap"),
		base.IsSerializationFailure(err):
		return apperr.SlotUnavailable("slot %s is no longer available for mentor %d",
			a.ScheduledAt.UTC().Format(time.RFC3339), a.MentorID)
	case base.IsConstraint(err, base.CodeUniqueViolation, "appointments_request_key_idx"):
		return apperr.ErrDuplicateRequest
	}
	return fmt.Errorf("create appointment: %w", err)
}

// GetByID получает запись по ID
func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	a, err := scanAppointment(r.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get appointment by id: %w", err)
	}

	return a, nil
}

// GetByRequestKey находит запись, созданную ранее тем же запросом ученика
func (r *AppointmentRepository) GetByRequestKey(ctx context.Context, menteeID int64, key string) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE mentee_id = $1 AND request_key = $2`

	a, err := scanAppointment(r.Pool().QueryRow(ctx, query, menteeID, key))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get appointment by request key: %w", err)
	}

	return a, nil
}

// ListActiveByMentor получает pending и confirmed записи ментора, пересекающие [from, to)
func (r *AppointmentRepository) ListActiveByMentor(ctx context.Context, mentorID int64, from, to time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE mentor_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND scheduled_at < $3
		  AND ends_at > $2
		ORDER BY scheduled_at
	`

	rows, err := r.Pool().Query(ctx, query, mentorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list active appointments: %w", err)
	}

	return collectAppointments(rows, "iterate active appointments")
}

// ListByParticipant получает все записи, где пользователь ментор или ученик
func (r *AppointmentRepository) ListByParticipant(ctx context.Context, userID int64) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE mentor_id = $1 OR mentee_id = $1
		ORDER BY scheduled_at DESC
	`

	rows, err := r.Pool().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list appointments by participant: %w", err)
	}

	return collectAppointments(rows, "iterate participant appointments")
}

// ListPendingByMentor получает заявки, ожидающие ответа ментора
func (r *AppointmentRepository) ListPendingByMentor(ctx context.Context, mentorID int64) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE mentor_id = $1 AND status = 'pending'
		ORDER BY scheduled_at
	`

	rows, err := r.Pool().Query(ctx, query, mentorID)
	if err != nil {
		return nil, fmt.Errorf("list pending appointments: %w", err)
	}

	return collectAppointments(rows, "iterate pending appointments")
}

// UpdateStatus сохраняет переход, только если текущий статус в базе равен from.
// false означает, что запись изменилась параллельно или не существует.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, a *model.Appointment, from model.AppointmentStatus) (bool, error) {
	var cancelledBy *string
	if a.CancelledBy != nil {
		role := string(*a.CancelledBy)
		cancelledBy = &role
	}

	query := `
		UPDATE appointments
		SET status = $3,
		    updated_at = $4,
		    responded_at = $5,
		    response_notes = $6,
		    cancelled_by = $7,
		    cancel_reason = $8,
		    cancelled_at = $9
		WHERE id = $1 AND status = $2
	`

	affected, err := r.ExecAffected(
		ctx, query,
		a.ID,
		from,
		a.Status,
		a.UpdatedAt,
		a.RespondedAt,
		a.ResponseNotes,
		cancelledBy,
		a.CancelReason,
		a.CancelledAt,
	)
	if err != nil {
		return false, fmt.Errorf("update appointment status: %w", err)
	}

	return affected == 1, nil
}

// SetCalendarEvent сохраняет ссылку на событие календаря и ссылку на встречу.
// Пишет только в подтверждённую запись; false означает, что её уже отменили или завершили.
func (r *AppointmentRepository) SetCalendarEvent(ctx context.Context, id uuid.UUID, eventRef, meetingLink string, at time.Time) (bool, error) {
	query := `
		UPDATE appointments
		SET calendar_event_ref = $2, meeting_link = $3, updated_at = $4
		WHERE id = $1 AND status = $5
	`

	affected, err := r.ExecAffected(ctx, query, id, eventRef, meetingLink, at, model.AppointmentStatusConfirmed)
	if err != nil {
		return false, fmt.Errorf("set calendar event: %w", err)
	}

	return affected == 1, nil
}

// CompleteElapsed переводит прошедшие подтверждённые записи в completed
func (r *AppointmentRepository) CompleteElapsed(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE appointments
		SET status = 'completed', updated_at = $1
		WHERE status = 'confirmed' AND ends_at < $1
	`

	affected, err := r.ExecAffected(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("complete elapsed appointments: %w", err)
	}

	return affected, nil
}
