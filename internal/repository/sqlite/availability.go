package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Freeeeeet/mentor_scheduler/internal/apperr"
	"github.com/Freeeeeet/mentor_scheduler/internal/model"
)

type AvailabilityRepository struct {
	db *sql.DB
}

// ReplaceWindows атомарно заменяет весь набор окон ментора.
// Транзакция открывается как BEGIN IMMEDIATE, поэтому замены сериализуются.
func (r *AvailabilityRepository) ReplaceWindows(ctx context.Context, mentorID int64, windows []model.AvailabilityWindow) ([]model.AvailabilityWindow, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE id = ?`, mentorID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check mentor: %w", err)
	}
	if exists == 0 {
		return nil, apperr.NotFound("mentor %d not found", mentorID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM availability_windows WHERE mentor_id = ?`, mentorID); err != nil {
		return nil, fmt.Errorf("delete availability windows: %w", err)
	}

	createdAt := time.Now().UTC()
	saved := make([]model.AvailabilityWindow, 0, len(windows))
	for _, w := range windows {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO availability_windows (mentor_id, day_of_week, start_minute, end_minute, timezone, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, mentorID, int(w.DayOfWeek), int(w.StartTime), int(w.EndTime), w.Timezone, toMillis(createdAt))
		if err != nil {
			if constraintFailed(err, "availability_overlap") {
				return nil, apperr.Validation("invalid availability windows", fmt.Sprintf("%s overlaps another window", w))
			}
			return nil, fmt.Errorf("insert availability window: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("insert availability window: %w", err)
		}
		w.ID = id
		w.MentorID = mentorID
		w.CreatedAt = fromMillis(toMillis(createdAt))
		saved = append(saved, w)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return saved, nil
}

// ListWindows получает окна ментора, отсортированные по дню недели и времени начала
func (r *AvailabilityRepository) ListWindows(ctx context.Context, mentorID int64) ([]model.AvailabilityWindow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, mentor_id, day_of_week, start_minute, end_minute, timezone, created_at
		FROM availability_windows
		WHERE mentor_id = ?
		ORDER BY day_of_week, start_minute
	`, mentorID)
	if err != nil {
		return nil, fmt.Errorf("list availability windows: %w", err)
	}
	defer rows.Close()

	var windows []model.AvailabilityWindow
	for rows.Next() {
		var (
			w               model.AvailabilityWindow
			day, start, end int
			createdAt       int64
		)
		if err := rows.Scan(&w.ID, &w.MentorID, &day, &start, &end, &w.Timezone, &createdAt); err != nil {
			return nil, fmt.Errorf("scan availability window: %w", err)
		}
		w.DayOfWeek = time.Weekday(day)
		w.StartTime = model.ClockTime(start)
		w.EndTime = model.ClockTime(end)
		w.CreatedAt = fromMillis(createdAt)
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate availability windows: %w", err)
	}

	return windows, nil
}
