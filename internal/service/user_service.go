package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/mentor_scheduler/internal/apperr"
	"github.com/Freeeeeet/mentor_scheduler/internal/model"
	"go.uber.org/zap"
)

type UserService struct {
	userRepo UserStore
	logger   *zap.Logger
}

func NewUserService(userRepo UserStore, logger *zap.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// RegisterUser регистрирует пользователя по Telegram ID или обновляет профиль.
// Новый пользователь всегда ученик, ментором он становится через BecomeMentor.
func (s *UserService) RegisterUser(ctx context.Context, telegramID int64, username, firstName, lastName, languageCode string) (*model.User, error) {
	if telegramID <= 0 {
		return nil, apperr.Validation("invalid telegram id", fmt.Sprintf("telegram_id must be positive, got %d", telegramID))
	}

	profile := model.User{
		TelegramID:   telegramID,
		Username:     username,
		FirstName:    firstName,
		LastName:     lastName,
		LanguageCode: languageCode,
	}

	user, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}

	if user == nil {
		user = &profile
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}

		s.logger.Info("New user registered",
			zap.Int64("user_id", user.ID),
			zap.Int64("telegram_id", telegramID),
			zap.String("username", username),
		)
		return user, nil
	}

	if !user.ProfileDiffers(profile) {
		return user, nil
	}

	user.Username = profile.Username
	user.FirstName = profile.FirstName
	user.LastName = profile.LastName
	user.LanguageCode = profile.LanguageCode
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user profile: %w", err)
	}

	s.logger.Debug("User profile refreshed", zap.Int64("user_id", user.ID))
	return user, nil
}

// GetByTelegramID получает пользователя по Telegram ID
func (s *UserService) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	return s.userRepo.GetByTelegramID(ctx, telegramID)
}

// GetByID получает пользователя по ID
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// BecomeMentor делает пользователя ментором
func (s *UserService) BecomeMentor(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if user == nil {
		return nil, apperr.NotFound("user %d not found", userID)
	}

	if user.IsMentor {
		return user, nil
	}

	user.IsMentor = true
	err = s.userRepo.Update(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.Info("User became mentor",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.Username),
	)

	return user, nil
}

// ListMentors получает всех менторов
func (s *UserService) ListMentors(ctx context.Context) ([]*model.User, error) {
	mentors, err := s.userRepo.ListMentors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mentors: %w", err)
	}
	return mentors, nil
}

// requireMentor возвращает ментора или NotFound, если пользователь не существует или не ментор
func requireMentor(ctx context.Context, users UserStore, mentorID int64) (*model.User, error) {
	mentor, err := users.GetByID(ctx, mentorID)
	if err != nil {
		return nil, fmt.Errorf("get mentor: %w", err)
	}
	if mentor == nil || !mentor.IsMentor {
		return nil, apperr.NotFound("mentor %d not found", mentorID)
	}
	return mentor, nil
}
