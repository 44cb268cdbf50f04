package service

import (
	"time"

	"github.com/Freeeeeet/mentor_scheduler/internal/scheduling"
)

// Settings ограничения движка бронирования
type Settings struct {
	MinCancelNotice        time.Duration
	MinMessageLength       int
	MaxDurationMinutes     int
	DefaultDurationMinutes int
	HorizonDays            int
	SlotLimit              int
	NotifyTimeout          time.Duration

	// Now источник текущего времени; nil означает time.Now
	Now func() time.Time
}

// DefaultSettings значения по умолчанию
func DefaultSettings() Settings {
	return Settings{
		MinCancelNotice:        24 * time.Hour,
		MinMessageLength:       10,
		MaxDurationMinutes:     240,
		DefaultDurationMinutes: scheduling.DefaultGranularityMinutes,
		HorizonDays:            scheduling.DefaultHorizonDays,
		SlotLimit:              scheduling.DefaultSlotLimit,
		NotifyTimeout:          10 * time.Second,
	}
}

func (s Settings) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// horizonEnd граница, дальше которой слоты не показываются и не бронируются
func (s Settings) horizonEnd(now time.Time) time.Time {
	return now.AddDate(0, 0, s.HorizonDays+1)
}
