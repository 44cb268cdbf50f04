package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/mentor_scheduler/internal/apperr"
	"github.com/Freeeeeet/mentor_scheduler/internal/controller/callbacks"
	"github.com/Freeeeeet/mentor_scheduler/internal/controller/state"
	"github.com/Freeeeeet/mentor_scheduler/internal/formatting"
	"github.com/Freeeeeet/mentor_scheduler/internal/model"
	"github.com/Freeeeeet/mentor_scheduler/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// handleAvailability показывает окна ментора: свои без аргументов или чужие по ID
func (h *Handlers) handleAvailability(ctx context.Context, b *bot.Bot, update *models.Update, args []string) {
	chatID := update.Message.Chat.ID

	var mentorID int64
	if len(args) == 0 {
		user, ok := h.requireMentor(ctx, b, update)
		if !ok {
			return
		}
		mentorID = user.ID
	} else {
		id, err := parseID(args[0])
		if err != nil {
			h.sendError(ctx, b, chatID, "❌ "+err.Error()+"\n\nИспользование: /availability <ID ментора>")
			return
		}
		mentorID = id
	}

	windows, err := h.availabilityService.GetWindows(ctx, mentorID)
	if err != nil {
		h.replyError(ctx, b, chatID, err)
		return
	}

	h.sendMessage(ctx, b, chatID, fmt.Sprintf("🗓 Окна доступности ментора %d:\n\n%s", mentorID, formatting.FormatWindows(windows)))
}

// handleSetAvailability начинает диалог замены окон доступности
func (h *Handlers) handleSetAvailability(ctx context.Context, b *bot.Bot, update *models.Update, _ []string) {
	user, ok := h.requireMentor(ctx, b, update)
	if !ok {
		return
	}

	h.stateManager.Start(update.Message.From.ID, state.Dialog{State: state.StateSetAvailability})

	h.logger.Info("Availability dialog started",
		zap.Int64("telegram_id", update.Message.From.ID),
		zap.Int64("mentor_id", user.ID))

	h.sendMessage(ctx, b, update.Message.Chat.ID, fmt.Sprintf(
		"🗓 Пришлите окна доступности одним сообщением, по дню недели на строку:\n\n"+
			"пн 09:00-12:00, 14:00-18:00\n"+
			"ср 19:00-21:00\n\n"+
			"Время указывается в поясе %s. Новый набор полностью заменит текущий.\n"+
			"Чтобы удалить все окна, отправьте «-».\n\n"+
			"Для отмены используйте /cancel",
		h.loc,
	))
}

func (h *Handlers) handleAvailabilityInput(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	telegramID := update.Message.From.ID

	user, ok := h.requireMentor(ctx, b, update)
	if !ok {
		h.stateManager.Clear(telegramID)
		return
	}

	windows, err := parseWindows(update.Message.Text, h.loc.String())
	if err != nil {
		h.sendError(ctx, b, chatID, "❌ Не удалось разобрать окна:\n"+err.Error()+"\n\nПопробуйте ещё раз или /cancel")
		return
	}

	saved, err := h.availabilityService.SetWindows(ctx, user.ID, windows)
	if err != nil {
		if apperr.Is(err, apperr.KindValidation) {
			h.sendError(ctx, b, chatID, errorText(err)+"\n\nПопробуйте ещё раз или /cancel")
			return
		}
		h.stateManager.Clear(telegramID)
		h.replyError(ctx, b, chatID, err)
		return
	}

	h.stateManager.Clear(telegramID)
	h.sendMessage(ctx, b, chatID, "✅ Окна доступности сохранены\n\n"+formatting.FormatWindows(saved))
}

// handleRequests показывает ментору заявки, ожидающие ответа
func (h *Handlers) handleRequests(ctx context.Context, b *bot.Bot, update *models.Update, _ []string) {
	user, ok := h.requireMentor(ctx, b, update)
	if !ok {
		return
	}

	pending, err := h.bookingService.ListPendingForMentor(ctx, user.ID)
	if err != nil {
		h.replyError(ctx, b, update.Message.Chat.ID, err)
		return
	}

	if len(pending) == 0 {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "📭 Новых заявок нет.")
		return
	}

	chatID := update.Message.Chat.ID
	h.sendMessage(ctx, b, chatID, fmt.Sprintf("📩 Заявки, ожидающие ответа: %d", len(pending)))

	// По сообщению на заявку, чтобы у каждой были свои кнопки
	for _, a := range pending {
		var sb strings.Builder
		sb.WriteString(formatting.FormatAppointment(a, h.loc))
		fmt.Fprintf(&sb, "\nСообщение: %s\n\n/confirm %s\n/reject %s", a.Message, a.ID, a.ID)
		h.sendWithKeyboard(ctx, b, chatID, sb.String(), callbacks.RequestKeyboard(a.ID))
	}
}

func (h *Handlers) handleConfirm(ctx context.Context, b *bot.Bot, update *models.Update, args []string) {
	h.respond(ctx, b, update, args, service.DecisionConfirm)
}

func (h *Handlers) handleReject(ctx context.Context, b *bot.Bot, update *models.Update, args []string) {
	h.respond(ctx, b, update, args, service.DecisionReject)
}

func (h *Handlers) respond(ctx context.Context, b *bot.Bot, update *models.Update, args []string, decision service.Decision) {
	chatID := update.Message.Chat.ID

	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	if len(args) == 0 {
		h.sendError(ctx, b, chatID, fmt.Sprintf("❌ Укажите ID записи: /%s <ID записи> [комментарий]", decision))
		return
	}
	appointmentID, err := parseAppointmentID(args[0])
	if err != nil {
		h.sendError(ctx, b, chatID, "❌ "+err.Error())
		return
	}

	appointment, err := h.bookingService.Respond(ctx, appointmentID, user.ID, decision, restText(args, 1))
	if err != nil {
		h.replyError(ctx, b, chatID, err)
		return
	}

	header := "✅ Занятие подтверждено"
	if decision == service.DecisionReject {
		header = "🚫 Заявка отклонена"
	}
	h.sendMessage(ctx, b, chatID, header+"\n\n"+formatting.FormatAppointment(appointment, h.loc))
}

// roleLabel подпись роли пользователя в записи для списков
func roleLabel(a *model.Appointment, userID int64) string {
	if a.MentorID == userID {
		return "вы ментор"
	}
	return "вы ученик"
}
