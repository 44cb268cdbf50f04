package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/mentor_scheduler/internal/controller/state"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const helpText = "📚 Справка по командам:\n\n" +
	"Для учеников:\n" +
	"/mentors - Список менторов\n" +
	"/availability <ID ментора> - Окна доступности ментора\n" +
	"/slots <ID ментора> [минуты] - Свободные слоты\n" +
	"/book <ID ментора> <№ слота> [минуты] - Записаться\n" +
	"/mybookings - Мои записи\n" +
	"/cancelbooking <ID записи> [причина] - Отменить запись\n\n" +
	"Для менторов:\n" +
	"/becomementor - Стать ментором\n" +
	"/availability - Мои окна доступности\n" +
	"/setavailability - Задать окна доступности\n" +
	"/requests - Заявки, ожидающие ответа\n" +
	"/confirm <ID записи> [комментарий] - Подтвердить заявку\n" +
	"/reject <ID записи> [комментарий] - Отклонить заявку\n\n" +
	"/cancel - Прервать текущий диалог"

// HandleCommand разбирает команду и передаёт её обработчику из таблицы
func (h *Handlers) HandleCommand(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	cmd, args := splitCommand(update.Message.Text)
	handler, ok := h.commands[cmd]
	if !ok {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "🤔 Неизвестная команда. Список команд: /help")
		return
	}

	h.logger.Debug("Command received",
		zap.Int64("telegram_id", update.Message.From.ID),
		zap.String("command", cmd),
		zap.Int("args", len(args)))

	// новая команда прерывает незавершённый диалог
	if cmd != "/cancel" {
		h.stateManager.Clear(update.Message.From.ID)
	}

	handler(ctx, b, update, args)
}

// HandleTextMessage обрабатывает текстовые сообщения в зависимости от состояния пользователя
func (h *Handlers) HandleTextMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Text == "" {
		return
	}

	// Команды обрабатывает HandleCommand
	if strings.HasPrefix(update.Message.Text, "/") {
		return
	}

	telegramID := update.Message.From.ID
	dialog, ok := h.stateManager.Get(telegramID)
	if !ok {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "Используйте /help для просмотра доступных команд.")
		return
	}

	switch dialog.State {
	case state.StateSetAvailability:
		h.handleAvailabilityInput(ctx, b, update)
	case state.StateBookingMessage:
		h.handleBookingMessage(ctx, b, update, dialog)
	default:
		h.logger.Warn("Unknown state", zap.String("state", string(dialog.State)))
		h.stateManager.Clear(telegramID)
	}
}

// handleStart регистрирует пользователя
func (h *Handlers) handleStart(ctx context.Context, b *bot.Bot, update *models.Update, _ []string) {
	user := update.Message.From

	registeredUser, err := h.userService.RegisterUser(
		ctx,
		user.ID,
		user.Username,
		user.FirstName,
		user.LastName,
		user.LanguageCode,
	)
	if err != nil {
		h.logger.Error("Failed to register user", zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Произошла ошибка при регистрации. Попробуйте позже.")
		return
	}

	welcomeText := fmt.Sprintf(
		"👋 Привет, %s!\n\n"+
			"Это бот для записи на занятия к менторам. Ваш ID: %d\n\n%s",
		registeredUser.DisplayName(), registeredUser.ID, helpText,
	)
	h.sendMessage(ctx, b, update.Message.Chat.ID, welcomeText)
}

func (h *Handlers) handleHelp(ctx context.Context, b *bot.Bot, update *models.Update, _ []string) {
	h.sendMessage(ctx, b, update.Message.Chat.ID, helpText)
}

// handleCancel отмена текущего диалога
func (h *Handlers) handleCancel(ctx context.Context, b *bot.Bot, update *models.Update, _ []string) {
	telegramID := update.Message.From.ID

	if h.stateManager.GetState(telegramID) == state.StateNone {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "❌ Нет активных операций для отмены.")
		return
	}

	h.stateManager.Clear(telegramID)
	h.sendMessage(ctx, b, update.Message.Chat.ID, "✅ Операция отменена.\n\nИспользуйте /help для просмотра доступных команд.")
}

func (h *Handlers) handleBecomeMentor(ctx context.Context, b *bot.Bot, update *models.Update, _ []string) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	if user.IsMentor {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "✅ Вы уже ментор.\n\nЗадать окна доступности: /setavailability")
		return
	}

	if _, err := h.userService.BecomeMentor(ctx, user.ID); err != nil {
		h.replyError(ctx, b, update.Message.Chat.ID, err)
		return
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, fmt.Sprintf(
		"🎓 Теперь вы ментор! Ваш ID: %d\n\n"+
			"Задайте окна доступности, чтобы ученики могли записываться: /setavailability",
		user.ID,
	))
}

func (h *Handlers) handleMentors(ctx context.Context, b *bot.Bot, update *models.Update, _ []string) {
	mentors, err := h.userService.ListMentors(ctx)
	if err != nil {
		h.replyError(ctx, b, update.Message.Chat.ID, err)
		return
	}

	if len(mentors) == 0 {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "Пока нет ни одного ментора.")
		return
	}

	var sb strings.Builder
	sb.WriteString("👩‍🏫 Менторы:\n\n")
	for _, m := range mentors {
		fmt.Fprintf(&sb, "• %s (ID: %d)\n", m.DisplayName(), m.ID)
	}
	sb.WriteString("\nСвободные слоты: /slots <ID ментора>")

	h.sendMessage(ctx, b, update.Message.Chat.ID, sb.String())
}
