package scheduling

import (
	"fmt"
	"sort"
	"time"

	"github.com/Freeeeeet/mentor_scheduler/internal/apperr"
	"github.com/Freeeeeet/mentor_scheduler/internal/model"
)

// ValidateWindows проверяет набор окон ментора целиком и возвращает все найденные проблемы.
// Окна одного дня недели попарно проверяются через OverlapsClock.
func ValidateWindows(windows []model.AvailabilityWindow) error {
	var problems []string
	timezone := ""

	for i, w := range windows {
		if w.DayOfWeek < time.Sunday || w.DayOfWeek > time.Saturday {
			problems = append(problems, fmt.Sprintf("window %d: day_of_week %d out of range 0..6", i, int(w.DayOfWeek)))
		}
		if w.StartTime < 0 || w.EndTime > model.MinutesPerDay {
			problems = append(problems, fmt.Sprintf("window %d: time out of day bounds", i))
		}
		if w.StartTime >= w.EndTime {
			problems = append(problems, fmt.Sprintf("window %d: start %s must be before end %s", i, w.StartTime, w.EndTime))
		}
		if w.Timezone == "" {
			problems = append(problems, fmt.Sprintf("window %d: timezone is required", i))
		} else if _, err := time.LoadLocation(w.Timezone); err != nil {
			problems = append(problems, fmt.Sprintf("window %d: unknown timezone %q", i, w.Timezone))
		} else if timezone == "" {
			timezone = w.Timezone
		} else if w.Timezone != timezone {
			problems = append(problems, fmt.Sprintf("window %d: timezone %q differs from %q, all windows must share one timezone", i, w.Timezone, timezone))
		}
	}

	for i := 0; i < len(windows); i++ {
		for j := i + 1; j < len(windows); j++ {
			a, b := windows[i], windows[j]
			if a.DayOfWeek != b.DayOfWeek || a.StartTime >= a.EndTime || b.StartTime >= b.EndTime {
				continue
			}
			if OverlapsClock(a.StartTime, a.EndTime, b.StartTime, b.EndTime) {
				problems = append(problems, fmt.Sprintf("%s overlaps %s", a, b))
			}
		}
	}

	if len(problems) > 0 {
		return apperr.Validation("invalid availability windows", problems...)
	}
	return nil
}

// SortWindows упорядочивает окна по (day_of_week, start_time)
func SortWindows(windows []model.AvailabilityWindow) {
	sort.SliceStable(windows, func(i, j int) bool {
		if windows[i].DayOfWeek != windows[j].DayOfWeek {
			return windows[i].DayOfWeek < windows[j].DayOfWeek
		}
		return windows[i].StartTime < windows[j].StartTime
	})
}

// WindowsLocation возвращает часовой пояс ментора по его окнам
func WindowsLocation(windows []model.AvailabilityWindow) (*time.Location, error) {
	if len(windows) == 0 {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(windows[0].Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", windows[0].Timezone, err)
	}
	return loc, nil
}
