package model

import "time"

type User struct {
	ID           int64     `json:"id"`
	TelegramID   int64     `json:"telegram_id"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	LanguageCode string    `json:"language_code"`
	IsMentor     bool      `json:"is_mentor"`
	CreatedAt    time.Time `json:"created_at"`
}

// DisplayName возвращает имя для сообщений
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return "пользователь"
}

// ProfileDiffers сообщает, изменились ли данные профиля Telegram
func (u *User) ProfileDiffers(p User) bool {
	return u.Username != p.Username ||
		u.FirstName != p.FirstName ||
		u.LastName != p.LastName ||
		u.LanguageCode != p.LanguageCode
}
