package notify

import (
	"context"

	"github.com/Freeeeeet/mentor_scheduler/internal/model"
	"go.uber.org/zap"
)

// Notifier доставляет участникам уведомления о смене статуса записи
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

// Recipients возвращает ID пользователей, которым адресовано уведомление.
// Создание уходит ментору, ответ ментора уходит ученику,
// отмена уходит второй стороне (или обеим, если инициатор неизвестен).
func Recipients(n model.Notification) []int64 {
	a := n.Appointment
	switch n.Kind {
	case model.NotificationCreated:
		return []int64{a.MentorID}
	case model.NotificationConfirmed, model.NotificationRejected:
		return []int64{a.MenteeID}
	case model.NotificationCancelled:
		if n.Actor == nil {
			return []int64{a.MentorID, a.MenteeID}
		}
		if n.Actor.Role == model.RoleMentor {
			return []int64{a.MenteeID}
		}
		return []int64{a.MentorID}
	default:
		return nil
	}
}

// LogNotifier пишет уведомления в лог; используется, когда бот не настроен
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, notification model.Notification) error {
	n.logger.Info("Appointment notification",
		zap.String("kind", string(notification.Kind)),
		zap.String("appointment_id", notification.Appointment.ID.String()),
		zap.Int64s("recipients", Recipients(notification)),
	)
	return nil
}

// Multi рассылает уведомление через несколько каналов
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n model.Notification) error {
	var firstErr error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
