package formatting

import "github.com/Freeeeeet/mentor_scheduler/internal/model"

// StatusDisplay отображение статуса записи
type StatusDisplay struct {
	Emoji string
	Text  string
}

// AppointmentStatusDisplay возвращает emoji и текст для статуса записи
func AppointmentStatusDisplay(status model.AppointmentStatus) StatusDisplay {
	displays := map[model.AppointmentStatus]StatusDisplay{
		model.AppointmentStatusPending:   {"⏳", "Ожидает ответа"},
		model.AppointmentStatusConfirmed: {"✅", "Подтверждена"},
		model.AppointmentStatusCompleted: {"✔️", "Завершена"},
		model.AppointmentStatusCancelled: {"❌", "Отменена"},
		model.AppointmentStatusRejected:  {"🚫", "Отклонена"},
	}

	if display, ok := displays[status]; ok {
		return display
	}

	return StatusDisplay{"❓", "Неизвестно"}
}
