package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/mentor_scheduler/internal/controller/callbacks"
	"github.com/Freeeeeet/mentor_scheduler/internal/formatting"
	"github.com/Freeeeeet/mentor_scheduler/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// MessageSender часть *bot.Bot, нужная для отправки уведомлений
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// UserLookup поиск получателя по внутреннему ID
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// TelegramNotifier отправляет уведомления участникам в Telegram
type TelegramNotifier struct {
	sender MessageSender
	users  UserLookup
	loc    *time.Location
	logger *zap.Logger
}

// NewTelegramNotifier создаёт нотификатор; loc определяет, в каком поясе показывать время
func NewTelegramNotifier(sender MessageSender, users UserLookup, loc *time.Location, logger *zap.Logger) *TelegramNotifier {
	if loc == nil {
		loc = time.UTC
	}
	return &TelegramNotifier{
		sender: sender,
		users:  users,
		loc:    loc,
		logger: logger,
	}
}

func (n *TelegramNotifier) Notify(ctx context.Context, notification model.Notification) error {
	text := MessageText(notification, n.loc)
	if text == "" {
		return nil
	}

	var firstErr error
	sent := 0
	for _, userID := range Recipients(notification) {
		user, err := n.users.GetByID(ctx, userID)
		if err != nil || user == nil || user.TelegramID == 0 {
			n.logger.Warn("Failed to get recipient for notification",
				zap.Int64("user_id", userID),
				zap.Error(err))
			continue
		}

		params := &bot.SendMessageParams{
			ChatID: user.TelegramID,
			Text:   text,
		}
		if notification.Kind == model.NotificationCreated {
			params.ReplyMarkup = callbacks.RequestKeyboard(notification.Appointment.ID)
		}

		_, err = n.sender.SendMessage(ctx, params)
		if err != nil {
			n.logger.Error("Failed to send notification",
				zap.Int64("user_id", user.ID),
				zap.Int64("telegram_id", user.TelegramID),
				zap.Error(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("send notification: %w", err)
			}
			continue
		}
		sent++
	}

	n.logger.Debug("Notifications sent",
		zap.String("kind", string(notification.Kind)),
		zap.String("appointment_id", notification.Appointment.ID.String()),
		zap.Int("success_count", sent))

	return firstErr
}

// MessageText текст уведомления для участника
func MessageText(n model.Notification, loc *time.Location) string {
	a := n.Appointment
	when := formatting.FormatDateTimeWithWeekday(a.ScheduledAt, loc)
	duration := formatting.FormatDuration(a.DurationMinutes)

	switch n.Kind {
	case model.NotificationCreated:
		return fmt.Sprintf(
			"📩 Новая заявка на занятие\n\n"+
				"Когда: %s (%s)\n"+
				"Сообщение: %s\n\n"+
				"Подтвердить: /confirm %s\n"+
				"Отклонить: /reject %s",
			when, duration, a.Message, a.ID, a.ID,
		)
	case model.NotificationConfirmed:
		text := fmt.Sprintf("✅ Ментор подтвердил занятие\n\nКогда: %s (%s)", when, duration)
		if a.MeetingLink != "" {
			text += "\nСсылка на встречу: " + a.MeetingLink
		}
		if a.ResponseNotes != "" {
			text += "\nКомментарий: " + a.ResponseNotes
		}
		return text
	case model.NotificationRejected:
		text := fmt.Sprintf("🚫 Ментор отклонил заявку на %s", when)
		if a.ResponseNotes != "" {
			text += "\nКомментарий: " + a.ResponseNotes
		}
		return text
	case model.NotificationCancelled:
		who := "Занятие отменено"
		if n.Actor != nil && n.Actor.Role == model.RoleMentor {
			who = "Ментор отменил занятие"
		} else if n.Actor != nil {
			who = "Ученик отменил занятие"
		}
		text := fmt.Sprintf("❌ %s на %s", who, when)
		if a.CancelReason != "" {
			text += "\nПричина: " + a.CancelReason
		}
		return text
	default:
		return ""
	}
}
