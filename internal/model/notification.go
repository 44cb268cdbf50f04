package model

type NotificationKind string

const (
	NotificationCreated   NotificationKind = "created"
	NotificationConfirmed NotificationKind = "confirmed"
	NotificationRejected  NotificationKind = "rejected"
	NotificationCancelled NotificationKind = "cancelled"
)

// Notification событие о смене статуса записи для рассылки участникам
type Notification struct {
	Kind        NotificationKind
	Appointment Appointment
	Actor       *Actor
}
