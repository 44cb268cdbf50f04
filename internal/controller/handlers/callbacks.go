package handlers

import (
	"context"

	"github.com/Freeeeeet/mentor_scheduler/internal/apperr"
	"github.com/Freeeeeet/mentor_scheduler/internal/controller/callbacks"
	"github.com/Freeeeeet/mentor_scheduler/internal/formatting"
	"github.com/Freeeeeet/mentor_scheduler/internal/model"
	"github.com/Freeeeeet/mentor_scheduler/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleCallbackQuery обрабатывает нажатия на inline кнопки записей
func (h *Handlers) HandleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	callback := update.CallbackQuery
	if callback == nil {
		return
	}

	h.logger.Info("Routing callback",
		zap.String("data", callback.Data),
		zap.Int64("telegram_id", callback.From.ID))

	action, appointmentID, err := callbacks.ParseData(callback.Data)
	if err != nil {
		h.logger.Warn("Unknown callback", zap.String("data", callback.Data), zap.Error(err))
		answerCallback(ctx, b, callback.ID, "❌ Неверный формат", true)
		return
	}

	user, err := h.userService.GetByTelegramID(ctx, callback.From.ID)
	if err != nil || user == nil {
		if err != nil {
			h.logger.Error("Failed to get user", zap.Int64("telegram_id", callback.From.ID), zap.Error(err))
		}
		answerCallback(ctx, b, callback.ID, "❌ Пользователь не найден. Используйте /start", true)
		return
	}

	var (
		appointment *model.Appointment
		header      string
	)
	switch action {
	case callbacks.ActionConfirm:
		appointment, err = h.bookingService.Respond(ctx, appointmentID, user.ID, service.DecisionConfirm, "")
		header = "✅ Занятие подтверждено"
	case callbacks.ActionReject:
		appointment, err = h.bookingService.Respond(ctx, appointmentID, user.ID, service.DecisionReject, "")
		header = "🚫 Заявка отклонена"
	case callbacks.ActionCancel:
		appointment, err = h.bookingService.Cancel(ctx, appointmentID, user.ID, "")
		header = "✅ Запись отменена"
	}
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			h.logger.Error("Callback action failed",
				zap.String("action", string(action)),
				zap.String("appointment_id", appointmentID.String()),
				zap.Error(err))
		}
		answerCallback(ctx, b, callback.ID, errorText(err), true)
		return
	}

	answerCallback(ctx, b, callback.ID, header, false)

	// Заменяем сообщение с кнопками итогом, чтобы кнопку нельзя было нажать повторно
	if msg := callback.Message.Message; msg != nil {
		_, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    msg.Chat.ID,
			MessageID: msg.ID,
			Text:      header + "\n\n" + formatting.FormatAppointment(appointment, h.loc),
		})
		if err != nil {
			h.logger.Warn("Failed to edit callback message", zap.Error(err))
		}
	}
}

func answerCallback(ctx context.Context, b *bot.Bot, callbackID, text string, alert bool) {
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
}
