package model

// Role роль участника относительно конкретной записи
type Role string

const (
	RoleMentor Role = "mentor"
	RoleMentee Role = "mentee"
)

// Actor пользователь с уже определённой ролью в записи
type Actor struct {
	UserID int64
	Role   Role
}

func (a Actor) IsMentor() bool { return a.Role == RoleMentor }
