package formatting

import (
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/mentor_scheduler/internal/model"
)

// FormatWindow форматирует окно доступности: "Понедельник 09:00-11:00"
func FormatWindow(w model.AvailabilityWindow) string {
	return fmt.Sprintf("%s %s-%s", WeekdayName(w.DayOfWeek), w.StartTime, w.EndTime)
}

// FormatWindows форматирует набор окон с часовым поясом
func FormatWindows(windows []model.AvailabilityWindow) string {
	if len(windows) == 0 {
		return "Окна доступности не заданы"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🕒 Часовой пояс: %s\n", windows[0].Timezone)
	for _, w := range windows {
		b.WriteString("• ")
		b.WriteString(FormatWindow(w))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatAppointment форматирует запись для списков
func FormatAppointment(a *model.Appointment, loc *time.Location) string {
	status := AppointmentStatusDisplay(a.Status)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s, %s\n", status.Emoji, FormatDateTimeWithWeekday(a.ScheduledAt, loc), FormatDuration(a.DurationMinutes))
	fmt.Fprintf(&b, "ID: %s\n", a.ID)
	fmt.Fprintf(&b, "Статус: %s", status.Text)
	if a.MeetingLink != "" {
		fmt.Fprintf(&b, "\nСсылка: %s", a.MeetingLink)
	}
	if a.ResponseNotes != "" {
		fmt.Fprintf(&b, "\nКомментарий ментора: %s", a.ResponseNotes)
	}
	if a.CancelReason != "" {
		fmt.Fprintf(&b, "\nПричина отмены: %s", a.CancelReason)
	}
	return b.String()
}
