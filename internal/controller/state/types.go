package state

import "time"

// UserState представляет текущее состояние пользователя в диалоге
type UserState string

const (
	StateNone UserState = "" // Нет активного состояния

	// Ментор присылает новый набор окон доступности
	StateSetAvailability UserState = "set_availability"

	// Ученик выбрал слот и пишет сообщение ментору
	StateBookingMessage UserState = "booking_message"
)

// Dialog данные незавершённого диалога
type Dialog struct {
	State UserState

	// для StateBookingMessage
	MentorID        int64
	SlotStart       time.Time
	DurationMinutes int

	StartedAt time.Time
}
