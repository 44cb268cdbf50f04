package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/mentor_scheduler/internal/apperr"
	"github.com/Freeeeeet/mentor_scheduler/internal/model"
	"github.com/Freeeeeet/mentor_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// AvailabilityRepository управляет еженедельными окнами доступности менторов
type AvailabilityRepository struct {
	*base.Repository
	logger *zap.Logger
}

// NewAvailabilityRepository создаёт новый репозиторий
func NewAvailabilityRepository(pool *pgxpool.Pool, logger *zap.Logger) *AvailabilityRepository {
	return &AvailabilityRepository{
		Repository: base.NewRepository(pool),
		logger:     logger,
	}
}

// ReplaceWindows атомарно заменяет весь набор окон ментора.
// Строка ментора блокируется, поэтому параллельные замены выполняются по очереди.
func (r *AvailabilityRepository) ReplaceWindows(ctx context.Context, mentorID int64, windows []model.AvailabilityWindow) ([]model.AvailabilityWindow, error) {
	saved := make([]model.AvailabilityWindow, 0, len(windows))

	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		var lockedID int64
		err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, mentorID).Scan(&lockedID)
		if err != nil {
			if base.IsNotFound(err) {
				return apperr.NotFound("mentor %d not found", mentorID)
			}
			return fmt.Errorf("lock mentor: %w", err)
		}

		tag, err := tx.Exec(ctx, `DELETE FROM availability_windows WHERE mentor_id = $1`, mentorID)
		if err != nil {
			return fmt.Errorf("delete availability windows: %w", err)
		}

		query := `
			INSERT INTO availability_windows (mentor_id, day_of_week, start_minute, end_minute, timezone)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at
		`
		for _, w := range windows {
			w.MentorID = mentorID
			err := tx.QueryRow(ctx, query,
				mentorID,
				int(w.DayOfWeek),
				int(w.StartTime),
				int(w.EndTime),
				w.Timezone,
			).Scan(&w.ID, &w.CreatedAt)
			if err != nil {
				if base.IsConstraint(err, base.CodeExclusionViolation, "availability_windows_no_overlap") {
					return apperr.Validation("invalid availability windows", fmt.Sprintf("%s overlaps another window", w))
				}
				return fmt.Errorf("insert availability window: %w", err)
			}
			saved = append(saved, w)
		}

		r.logger.Debug("Availability windows replaced",
			zap.Int64("mentor_id", mentorID),
			zap.Int64("deleted", tag.RowsAffected()),
			zap.Int("inserted", len(saved)),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return saved, nil
}

// ListWindows получает окна ментора, отсортированные по дню недели и времени начала
func (r *AvailabilityRepository) ListWindows(ctx context.Context, mentorID int64) ([]model.AvailabilityWindow, error) {
	query := `
		SELECT id, mentor_id, day_of_week, start_minute, end_minute, timezone, created_at
		FROM availability_windows
		WHERE mentor_id = $1
		ORDER BY day_of_week, start_minute
	`

	rows, err := r.Pool().Query(ctx, query, mentorID)
	if err != nil {
		return nil, fmt.Errorf("list availability windows: %w", err)
	}
	defer rows.Close()

	var windows []model.AvailabilityWindow
	for rows.Next() {
		var (
			w               model.AvailabilityWindow
			day, start, end int
			createdAt       time.Time
		)
		if err := rows.Scan(&w.ID, &w.MentorID, &day, &start, &end, &w.Timezone, &createdAt); err != nil {
			return nil, fmt.Errorf("scan availability window: %w", err)
		}
		w.DayOfWeek = time.Weekday(day)
		w.StartTime = model.ClockTime(start)
		w.EndTime = model.ClockTime(end)
		w.CreatedAt = createdAt
		windows = append(windows, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate availability windows: %w", err)
	}

	return windows, nil
}
