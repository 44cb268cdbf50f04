package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClockTime время суток в минутах от полуночи (0..1440, 24:00 допустимо как конец окна)
type ClockTime int

const MinutesPerDay ClockTime = 24 * 60

// ParseClockTime разбирает строку формата HH:MM
func ParseClockTime(s string) (ClockTime, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || len(mm) != 2 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if hour < 0 || hour > 24 || minute < 0 || minute > 59 || (hour == 24 && minute != 0) {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return ClockTime(hour*60 + minute), nil
}

func (c ClockTime) Hour() int   { return int(c) / 60 }
func (c ClockTime) Minute() int { return int(c) % 60 }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ClockTime) UnmarshalText(text []byte) error {
	parsed, err := ParseClockTime(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// AvailabilityWindow еженедельное окно доступности ментора
type AvailabilityWindow struct {
	ID        int64        `json:"id,omitempty"`
	MentorID  int64        `json:"mentor_id"`
	DayOfWeek time.Weekday `json:"day_of_week"` // 0 = Sunday, 6 = Saturday
	StartTime ClockTime    `json:"start_time"`
	EndTime   ClockTime    `json:"end_time"`
	Timezone  string       `json:"timezone"` // IANA, например Europe/Moscow
	CreatedAt time.Time    `json:"created_at,omitempty"`
}

func (w AvailabilityWindow) String() string {
	return fmt.Sprintf("%s %s-%s", w.DayOfWeek, w.StartTime, w.EndTime)
}
