package callbacks

import (
	"fmt"
	"strings"

	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
)

// Форматы callback data для inline кнопок
const (
	ConfirmAppointment = "confirm:"       // confirm:<appointment_id>
	RejectAppointment  = "reject:"        // reject:<appointment_id>
	CancelAppointment  = "cancelbooking:" // cancelbooking:<appointment_id>
)

// Action действие, закодированное в callback data
type Action string

const (
	ActionConfirm Action = "confirm"
	ActionReject  Action = "reject"
	ActionCancel  Action = "cancelbooking"
)

// ParseData разбирает callback data вида "<action>:<appointment_id>"
func ParseData(data string) (Action, uuid.UUID, error) {
	action, rawID, ok := strings.Cut(data, ":")
	if !ok {
		return "", uuid.Nil, fmt.Errorf("invalid callback data format: %q", data)
	}

	switch Action(action) {
	case ActionConfirm, ActionReject, ActionCancel:
	default:
		return "", uuid.Nil, fmt.Errorf("unknown callback action: %q", action)
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("invalid appointment id in callback: %w", err)
	}

	return Action(action), id, nil
}

// RequestKeyboard кнопки ментора для заявки в статусе pending
func RequestKeyboard(appointmentID uuid.UUID) *models.InlineKeyboardMarkup {
	id := appointmentID.String()
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "✅ Подтвердить", CallbackData: ConfirmAppointment + id},
				{Text: "❌ Отклонить", CallbackData: RejectAppointment + id},
			},
		},
	}
}

// CancelKeyboard кнопка отмены активной записи
func CancelKeyboard(appointmentID uuid.UUID) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "🚫 Отменить запись", CallbackData: CancelAppointment + appointmentID.String()},
			},
		},
	}
}
