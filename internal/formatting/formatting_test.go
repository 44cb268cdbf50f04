package formatting

import (
	"testing"
	"time"

	"github.com/Freeeeeet/mentor_scheduler/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPluralize(t *testing.T) {
	t.Parallel()

	tests := map[int]string{
		1:   "слот",
		2:   "слота",
		5:   "слотов",
		11:  "слотов",
		21:  "слот",
		22:  "слота",
		112: "слотов",
	}
	for count, want := range tests {
		assert.Equal(t, want, PluralizeSlots(count), "count %d", count)
	}
	assert.Equal(t, "записи", PluralizeAppointments(3))
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "45 мин", FormatDuration(45))
	assert.Equal(t, "1 ч", FormatDuration(60))
	assert.Equal(t, "1 ч 30 мин", FormatDuration(90))
}

func TestParseWeekday(t *testing.T) {
	t.Parallel()

	for input, want := range map[string]time.Weekday{
		"пн":      time.Monday,
		"Среда":   time.Wednesday,
		"fri":     time.Friday,
		"Sunday":  time.Sunday,
		"6":       time.Saturday,
		" вт ":    time.Tuesday,
		"tuesday": time.Tuesday,
	} {
		got, ok := ParseWeekday(input)
		assert.True(t, ok, input)
		assert.Equal(t, want, got, input)
	}

	_, ok := ParseWeekday("someday")
	assert.False(t, ok)
}

func TestFormatDateTimeUsesLocation(t *testing.T) {
	t.Parallel()

	moscow, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		t.Skip("tzdata not available")
	}
	instant := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, "19.10.2026 12:00", FormatDateTime(instant, moscow))
	assert.Equal(t, "Пн, 19.10.2026 09:00", FormatDateTimeWithWeekday(instant, time.UTC))
	assert.Equal(t, "12:00-13:00", FormatTimeRange(instant, instant.Add(time.Hour), moscow))
}

func TestFormatWindowsAndAppointment(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Окна доступности не заданы", FormatWindows(nil))

	windows := []model.AvailabilityWindow{{DayOfWeek: time.Monday, StartTime: 9 * 60, EndTime: 11 * 60, Timezone: "UTC"}}
	assert.Equal(t, "🕒 Часовой пояс: UTC\n• Понедельник 09:00-11:00", FormatWindows(windows))

	a := &model.Appointment{
		ID:              uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		ScheduledAt:     time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
		Status:          model.AppointmentStatusConfirmed,
		MeetingLink:     "https://meet.jit.si/x",
	}
	assert.Equal(t,
		"✅ Пн, 19.10.2026 09:00, 1 ч\nID: 00000000-0000-0000-0000-000000000001\nСтатус: Подтверждена\nСсылка: https://meet.jit.si/x",
		FormatAppointment(a, time.UTC),
	)
}
