package scheduling

import (
	"sort"
	"time"

	"github.com/Freeeeeet/mentor_scheduler/internal/model"
)

const (
	DefaultGranularityMinutes = 60
	DefaultSlotLimit          = 20
	DefaultHorizonDays        = 28
)

// ProjectionInput входные данные для построения слотов одного ментора
type ProjectionInput struct {
	MentorID           int64
	Windows            []model.AvailabilityWindow
	Appointments       []*model.Appointment
	HorizonDays        int
	GranularityMinutes int
	Limit              int
	Now                time.Time
}

// ProjectSlots разворачивает еженедельные окна в конкретные будущие слоты.
// Нарезка окон выполняется по настенному времени в часовом поясе ментора,
// в абсолютное время слот переводится только на выходе.
func ProjectSlots(in ProjectionInput) ([]model.Slot, error) {
	if len(in.Windows) == 0 {
		return nil, nil
	}

	granularity := in.GranularityMinutes
	if granularity <= 0 {
		granularity = DefaultGranularityMinutes
	}
	limit := in.Limit
	if limit <= 0 {
		limit = DefaultSlotLimit
	}
	horizon := in.HorizonDays
	if horizon < 0 {
		horizon = 0
	}

	loc, err := WindowsLocation(in.Windows)
	if err != nil {
		return nil, err
	}

	byDay := make(map[time.Weekday][]model.AvailabilityWindow, 7)
	for _, w := range in.Windows {
		byDay[w.DayOfWeek] = append(byDay[w.DayOfWeek], w)
	}
	for day := range byDay {
		SortWindows(byDay[day])
	}

	busy := activeIntervals(in.Appointments)
	step := model.ClockTime(granularity)

	year, month, dayOfMonth := in.Now.In(loc).Date()

	var slots []model.Slot
	for offset := 0; offset <= horizon && len(slots) < limit; offset++ {
		// полдень, чтобы день недели не зависел от перехода на летнее время
		day := time.Date(year, month, dayOfMonth+offset, 12, 0, 0, 0, loc)

		for _, w := range byDay[day.Weekday()] {
			for start := w.StartTime; start+step <= w.EndTime; start += step {
				slotStart, slotEnd, ok := wallInterval(day, start, granularity, loc)
				if !ok {
					continue
				}
				if !slotStart.After(in.Now) {
					continue
				}
				if overlapsAny(slotStart, slotEnd, busy) {
					continue
				}
				slots = append(slots, model.Slot{
					MentorID: in.MentorID,
					Start:    slotStart.UTC(),
					End:      slotEnd.UTC(),
				})
			}
		}
	}

	sort.Slice(slots, func(i, j int) bool {
		return slots[i].Start.Before(slots[j].Start)
	})
	if len(slots) > limit {
		slots = slots[:limit]
	}

	return slots, nil
}

// SlotFits проверяет, что start начинает слот длительностью durationMinutes,
// который получился бы при нарезке окон ментора с шагом durationMinutes
func SlotFits(windows []model.AvailabilityWindow, start time.Time, durationMinutes int) (bool, error) {
	if len(windows) == 0 || durationMinutes <= 0 {
		return false, nil
	}

	loc, err := WindowsLocation(windows)
	if err != nil {
		return false, err
	}

	local := start.In(loc)
	if local.Second() != 0 || local.Nanosecond() != 0 {
		return false, nil
	}

	wall := model.ClockTime(local.Hour()*60 + local.Minute())
	length := model.ClockTime(durationMinutes)

	for _, w := range windows {
		if w.DayOfWeek != local.Weekday() {
			continue
		}
		if wall < w.StartTime || wall+length > w.EndTime {
			continue
		}
		if (wall-w.StartTime)%length != 0 {
			continue
		}
		slotStart, _, ok := wallInterval(local, wall, durationMinutes, loc)
		if ok && slotStart.Equal(start) {
			return true, nil
		}
	}

	return false, nil
}

// wallInterval строит интервал по настенному времени дня day.
// Возвращает false, если начало попадает в несуществующее время (переход на летнее)
// или абсолютная длина интервала отличается от номинальной.
func wallInterval(day time.Time, start model.ClockTime, minutes int, loc *time.Location) (time.Time, time.Time, bool) {
	year, month, dayOfMonth := day.Date()
	end := start + model.ClockTime(minutes)

	slotStart := time.Date(year, month, dayOfMonth, start.Hour(), start.Minute(), 0, 0, loc)
	slotEnd := time.Date(year, month, dayOfMonth, end.Hour(), end.Minute(), 0, 0, loc)

	if slotStart.Day() != dayOfMonth || slotStart.Hour() != start.Hour() || slotStart.Minute() != start.Minute() {
		return time.Time{}, time.Time{}, false
	}
	if slotEnd.Sub(slotStart) != time.Duration(minutes)*time.Minute {
		return time.Time{}, time.Time{}, false
	}

	return slotStart, slotEnd, true
}

type interval struct {
	start, end time.Time
}

func activeIntervals(appointments []*model.Appointment) []interval {
	busy := make([]interval, 0, len(appointments))
	for _, a := range appointments {
		if a == nil || !a.Status.IsActive() {
			continue
		}
		busy = append(busy, interval{start: a.ScheduledAt, end: a.ScheduledAt.Add(a.Duration())})
	}
	return busy
}

func overlapsAny(start, end time.Time, busy []interval) bool {
	for _, b := range busy {
		if Overlaps(start, end, b.start, b.end) {
			return true
		}
	}
	return false
}
