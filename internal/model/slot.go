package model

import "time"

// Slot конкретный интервал для записи, вычисляется из окон и никогда не хранится
type Slot struct {
	MentorID int64     `json:"mentor_id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}
