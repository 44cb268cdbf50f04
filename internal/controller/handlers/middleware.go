package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/Freeeeeet/mentor_scheduler/internal/apperr"
	"github.com/Freeeeeet/mentor_scheduler/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// requireUser проверяет что пользователь существует
// Возвращает user и true если OK, nil и false если нет
func (h *Handlers) requireUser(ctx context.Context, b *bot.Bot, update *models.Update) (*model.User, bool) {
	if update.Message == nil || update.Message.From == nil {
		return nil, false
	}

	telegramID := update.Message.From.ID
	user, err := h.userService.GetByTelegramID(ctx, telegramID)

	if err != nil {
		h.logger.Error("Failed to get user", zap.Int64("telegram_id", telegramID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Произошла ошибка. Попробуйте позже.")
		return nil, false
	}

	if user == nil {
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Пользователь не найден. Используйте /start для регистрации.")
		return nil, false
	}

	return user, true
}

// requireMentor проверяет что пользователь является ментором
func (h *Handlers) requireMentor(ctx context.Context, b *bot.Bot, update *models.Update) (*model.User, bool) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return nil, false
	}

	if !user.IsMentor {
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Эта команда доступна только менторам.\n\nСтать ментором: /becomementor")
		return nil, false
	}

	return user, true
}

// replyError сообщает пользователю об ошибке сервиса; внутренние ошибки логируются
func (h *Handlers) replyError(ctx context.Context, b *bot.Bot, chatID int64, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		h.logger.Error("Command failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	h.sendError(ctx, b, chatID, errorText(err))
}

// errorText переводит ошибку движка в текст для пользователя
func errorText(err error) string {
	var (
		appErr  *apperr.Error
		message string
	)
	if errors.As(err, &appErr) {
		message = appErr.Message
	}

	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		details := apperr.DetailsOf(err)
		if len(details) == 0 {
			return "❌ Некорректные данные: " + message
		}
		return "❌ Некорректные данные:\n• " + strings.Join(details, "\n• ")
	case apperr.KindSlotUnavailable:
		return "❌ Это время уже занято или недоступно. Обновите список свободных слотов: /slots"
	case apperr.KindPermission:
		return "❌ Недостаточно прав для этого действия."
	case apperr.KindNotFound:
		return "❌ Не найдено: " + message
	case apperr.KindStateTransition:
		return "❌ Действие сейчас недоступно: " + message
	default:
		return "❌ Произошла ошибка. Попробуйте позже."
	}
}

// sendError отправляет сообщение об ошибке и логирует если не удалось
func (h *Handlers) sendError(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("Failed to send error message",
			zap.Int64("chat_id", chatID),
			zap.String("text", text),
			zap.Error(err),
		)
	}
}

// sendMessage отправляет сообщение и логирует если не удалось
func (h *Handlers) sendMessage(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}

// sendWithKeyboard отправляет сообщение с inline кнопками
func (h *Handlers) sendWithKeyboard(ctx context.Context, b *bot.Bot, chatID int64, text string, keyboard *models.InlineKeyboardMarkup) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: keyboard,
	})
	if err != nil {
		h.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}
