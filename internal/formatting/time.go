package formatting

import (
	"fmt"
	"strings"
	"time"
)

// FormatDateTime форматирует дату и время в указанном часовом поясе
func FormatDateTime(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("02.01.2006 15:04")
}

// FormatDateTimeWithWeekday форматирует дату и время с кратким днём недели
func FormatDateTimeWithWeekday(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return fmt.Sprintf("%s, %s", WeekdayShort(t.Weekday()), t.Format("02.01.2006 15:04"))
}

// FormatTimeRange форматирует диапазон времени
func FormatTimeRange(start, end time.Time, loc *time.Location) string {
	if loc != nil {
		start, end = start.In(loc), end.In(loc)
	}
	return fmt.Sprintf("%s-%s", start.Format("15:04"), end.Format("15:04"))
}

// FormatDuration форматирует длительность в минутах
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d мин", minutes)
	}
	hours := minutes / 60
	mins := minutes % 60
	if mins == 0 {
		return fmt.Sprintf("%d ч", hours)
	}
	return fmt.Sprintf("%d ч %d мин", hours, mins)
}

var weekdayNames = [...]string{"Воскресенье", "Понедельник", "Вторник", "Среда", "Четверг", "Пятница", "Суббота"}

var weekdayShortNames = [...]string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}

// WeekdayName возвращает название дня недели на русском
func WeekdayName(day time.Weekday) string {
	if day >= 0 && int(day) < len(weekdayNames) {
		return weekdayNames[day]
	}
	return "Неизвестно"
}

// WeekdayShort возвращает краткое название дня недели
func WeekdayShort(day time.Weekday) string {
	if day >= 0 && int(day) < len(weekdayShortNames) {
		return weekdayShortNames[day]
	}
	return "?"
}

// ParseWeekday разбирает день недели: 0-6, краткое русское или английское название
func ParseWeekday(s string) (time.Weekday, bool) {
	for i, name := range weekdayShortNames {
		if equalFold(s, name) || equalFold(s, weekdayNames[i]) {
			return time.Weekday(i), true
		}
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		english := d.String()
		if equalFold(s, english) || equalFold(s, english[:3]) {
			return d, true
		}
	}
	if len(s) == 1 && s[0] >= '0' && s[0] <= '6' {
		return time.Weekday(s[0] - '0'), true
	}
	return 0, false
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), b)
}
