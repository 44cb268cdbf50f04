package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/mentor_scheduler/internal/apperr"
	"github.com/Freeeeeet/mentor_scheduler/internal/model"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

const appointmentColumns = `
	id, mentor_id, mentee_id, scheduled_at, duration_minutes, ends_at, status, message,
	response_notes, calendar_event_ref, meeting_link, request_key, created_at, updated_at,
	responded_at, cancelled_by, cancel_reason, cancelled_at`

type AppointmentRepository struct {
	db *sql.DB
}

func scanAppointment(row rowScanner) (*model.Appointment, error) {
	var (
		a           model.Appointment
		scheduledAt int64
		endsAt      int64
		createdAt   int64
		updatedAt   int64
		respondedAt sql.NullInt64
		cancelledAt sql.NullInt64
		cancelledBy sql.NullString
	)
	if err := row.Scan(
		&a.ID,
		&a.MentorID,
		&a.MenteeID,
		&scheduledAt,
		&a.DurationMinutes,
		&endsAt,
		&a.Status,
		&a.Message,
		&a.ResponseNotes,
		&a.CalendarEventRef,
		&a.MeetingLink,
		&a.RequestKey,
		&createdAt,
		&updatedAt,
		&respondedAt,
		&cancelledBy,
		&a.CancelReason,
		&cancelledAt,
	); err != nil {
		return nil, err
	}

	a.ScheduledAt = fromMillis(scheduledAt)
	a.EndsAt = fromMillis(endsAt)
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	a.RespondedAt = fromNullMillis(respondedAt)
	a.CancelledAt = fromNullMillis(cancelledAt)
	if cancelledBy.Valid {
		role := model.Role(cancelledBy.String)
		a.CancelledBy = &role
	}
	return &a, nil
}

func (r *AppointmentRepository) query(ctx context.Context, op, query string, args ...any) ([]*model.Appointment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
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

func (r *AppointmentRepository) get(ctx context.Context, where string, args ...any) (*model.Appointment, error) {
	a, err := scanAppointment(r.db.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE `+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// Create сохраняет новую запись. Пересечение с активной записью ментора
// отсекает триггер appointments_no_overlap_insert внутри той же вставки.
func (r *AppointmentRepository) Create(ctx context.Context, a *model.Appointment) error {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(20*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := r.insert(ctx, a)
		if isBusy(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		switch {
		case constraintFailed(err, "appointment_overlap"):
			return apperr.SlotUnavailable("slot %s is no longer available for mentor %d",
				a.ScheduledAt.UTC().Format(time.RFC3339), a.MentorID)
		case constraintFailed(err, "request_key"):
			return apperr.ErrDuplicateRequest
		}
		return fmt.Errorf("create appointment: %w", err)
	}

	a.UpdatedAt = a.CreatedAt
	return nil
}

func (r *AppointmentRepository) insert(ctx context.Context, a *model.Appointment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO appointments (id, mentor_id, mentee_id, scheduled_at, duration_minutes, ends_at, status, message, request_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.ID.String(),
		a.MentorID,
		a.MenteeID,
		toMillis(a.ScheduledAt),
		a.DurationMinutes,
		toMillis(a.EndsAt),
		string(a.Status),
		a.Message,
		a.RequestKey,
		toMillis(a.CreatedAt),
		toMillis(a.CreatedAt),
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID получает запись по ID
func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	a, err := r.get(ctx, "id = ?", id.String())
	if err != nil {
		return nil, fmt.Errorf("get appointment by id: %w", err)
	}
	return a, nil
}

// GetByRequestKey находит запись, созданную ранее тем же запросом ученика
func (r *AppointmentRepository) GetByRequestKey(ctx context.Context, menteeID int64, key string) (*model.Appointment, error) {
	a, err := r.get(ctx, "mentee_id = ? AND request_key = ?", menteeID, key)
	if err != nil {
		return nil, fmt.Errorf("get appointment by request key: %w", err)
	}
	return a, nil
}

// ListActiveByMentor получает pending и confirmed записи ментора, пересекающие [from, to)
func (r *AppointmentRepository) ListActiveByMentor(ctx context.Context, mentorID int64, from, to time.Time) ([]*model.Appointment, error) {
	return r.query(ctx, "list active appointments", `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE mentor_id = ?
		  AND status IN ('pending', 'confirmed')
		  AND scheduled_at < ?
		  AND ends_at > ?
		ORDER BY scheduled_at
	`, mentorID, toMillis(to), toMillis(from))
}

// ListByParticipant получает все записи, где пользователь ментор или ученик
func (r *AppointmentRepository) ListByParticipant(ctx context.Context, userID int64) ([]*model.Appointment, error) {
	return r.query(ctx, "list appointments by participant", `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE mentor_id = ? OR mentee_id = ?
		ORDER BY scheduled_at DESC
	`, userID, userID)
}

// ListPendingByMentor получает заявки, ожидающие ответа ментора
func (r *AppointmentRepository) ListPendingByMentor(ctx context.Context, mentorID int64) ([]*model.Appointment, error) {
	return r.query(ctx, "list pending appointments", `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE mentor_id = ? AND status = 'pending'
		ORDER BY scheduled_at
	`, mentorID)
}

// UpdateStatus сохраняет переход, только если текущий статус в базе равен from
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, a *model.Appointment, from model.AppointmentStatus) (bool, error) {
	var cancelledBy sql.NullString
	if a.CancelledBy != nil {
		cancelledBy = sql.NullString{String: string(*a.CancelledBy), Valid: true}
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE appointments
		SET status = ?, updated_at = ?, responded_at = ?, response_notes = ?,
		    cancelled_by = ?, cancel_reason = ?, cancelled_at = ?
		WHERE id = ? AND status = ?
	`,
		string(a.Status),
		toMillis(a.UpdatedAt),
		nullMillis(a.RespondedAt),
		a.ResponseNotes,
		cancelledBy,
		a.CancelReason,
		nullMillis(a.CancelledAt),
		a.ID.String(),
		string(from),
	)
	if err != nil {
		return false, fmt.Errorf("update appointment status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update appointment status: %w", err)
	}

	return affected == 1, nil
}

// SetCalendarEvent сохраняет ссылку на событие календаря и ссылку на встречу.
// Пишет только в подтверждённую запись; false означает, что её уже отменили или завершили.
func (r *AppointmentRepository) SetCalendarEvent(ctx context.Context, id uuid.UUID, eventRef, meetingLink string, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE appointments
		SET calendar_event_ref = ?, meeting_link = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, eventRef, meetingLink, toMillis(at), id.String(), string(model.AppointmentStatusConfirmed))
	if err != nil {
		return false, fmt.Errorf("set calendar event: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set calendar event: %w", err)
	}

	return affected == 1, nil
}

// CompleteElapsed переводит прошедшие подтверждённые записи в completed
func (r *AppointmentRepository) CompleteElapsed(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE appointments
		SET status = 'completed', updated_at = ?
		WHERE status = 'confirmed' AND ends_at < ?
	`, toMillis(now), toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("complete elapsed appointments: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("complete elapsed appointments: %w", err)
	}

	return affected, nil
}
