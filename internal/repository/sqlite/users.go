package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/mentor_scheduler/internal/model"
)

const userColumns = `id, COALESCE(telegram_id, 0), username, first_name, last_name, language_code, is_mentor, created_at`

type UserRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		user      model.User
		createdAt int64
	)
	if err := row.Scan(
		&user.ID,
		&user.TelegramID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.LanguageCode,
		&user.IsMentor,
		&createdAt,
	); err != nil {
		return nil, err
	}
	user.CreatedAt = fromMillis(createdAt)
	return &user, nil
}

// Create создаёт нового пользователя; telegram_id = 0 сохраняется как NULL
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	createdAt := time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO users (telegram_id, username, first_name, last_name, language_code, is_mentor, created_at)
		VALUES (NULLIF(?, 0), ?, ?, ?, ?, ?, ?)
	`,
		user.TelegramID,
		user.Username,
		user.FirstName,
		user.LastName,
		user.LanguageCode,
		user.IsMentor,
		toMillis(createdAt),
	)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	user.ID = id
	user.CreatedAt = fromMillis(toMillis(createdAt))
	return nil
}

func (r *UserRepository) get(ctx context.Context, where string, arg any) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

// GetByID получает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := r.get(ctx, "id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

// GetByTelegramID получает пользователя по Telegram ID
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := r.get(ctx, "telegram_id = ?", telegramID)
	if err != nil {
		return nil, fmt.Errorf("get user by telegram id: %w", err)
	}
	return user, nil
}

// Update обновляет данные пользователя
func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET username = ?, first_name = ?, last_name = ?, language_code = ?, is_mentor = ?
		WHERE id = ?
	`,
		user.Username,
		user.FirstName,
		user.LastName,
		user.LanguageCode,
		user.IsMentor,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}

// ListMentors получает всех менторов
func (r *UserRepository) ListMentors(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE is_mentor = 1 ORDER BY first_name, last_name, id`)
	if err != nil {
		return nil, fmt.Errorf("list mentors: %w", err)
	}
	defer rows.Close()

	var mentors []*model.User
	for rows.Next() {
		mentor, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mentor: %w", err)
		}
		mentors = append(mentors, mentor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mentors: %w", err)
	}

	return mentors, nil
}
