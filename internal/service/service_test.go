package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/mentor_scheduler/internal/calendar"
	"github.com/Freeeeeet/mentor_scheduler/internal/model"
	"github.com/Freeeeeet/mentor_scheduler/internal/repository/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// среда, 14 октября 2026, 10:00 UTC
var wednesday = time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)

// понедельник, 19 октября 2026, 09:00 UTC
var mondayNine = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fakeCalendar struct {
	mu        sync.Mutex
	created   []string
	cancelled []string
	createErr error

	// если hold задан, CreateEvent сообщает в entered и ждёт закрытия hold
	hold    chan struct{}
	entered chan struct{}
}

func (f *fakeCalendar) CreateEvent(_ context.Context, a *model.Appointment) (calendar.Event, error) {
	if f.hold != nil {
		f.entered <- struct{}{}
		<-f.hold
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return calendar.Event{}, f.createErr
	}
	id := "evt-" + a.ID.String()
	f.created = append(f.created, id)
	return calendar.Event{ID: id, MeetingLink: "https://meet.example.org/" + id}, nil
}

func (f *fakeCalendar) CancelEvent(_ context.Context, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, eventID)
	return nil
}

func (f *fakeCalendar) calls() (created, cancelled []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.created...), append([]string(nil), f.cancelled...)
}

type recordingNotifier struct {
	mu    sync.Mutex
	kinds []model.NotificationKind
}

func (r *recordingNotifier) Notify(_ context.Context, n model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, n.Kind)
	return errors.New("delivery is best effort")
}

func (r *recordingNotifier) received() []model.NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.NotificationKind(nil), r.kinds...)
}

type fixture struct {
	clock        *fakeClock
	calendar     *fakeCalendar
	notifier     *recordingNotifier
	users        *UserService
	availability *AvailabilityService
	slots        *SlotService
	booking      *BookingService

	mentor *model.User
	mentee *model.User
	other  *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{
		clock:    &fakeClock{now: wednesday},
		calendar: &fakeCalendar{},
		notifier: &recordingNotifier{},
	}

	settings := DefaultSettings()
	settings.Now = f.clock.Now
	settings.NotifyTimeout = time.Second

	logger := zap.NewNop()
	f.users = NewUserService(store.Users(), logger)
	f.availability = NewAvailabilityService(store.Users(), store.Availability(), logger)
	f.slots = NewSlotService(f.availability, store.Appointments(), settings, logger)
	f.booking = NewBookingService(store.Users(), store.Availability(), store.Appointments(), f.calendar, f.notifier, settings, logger)
	t.Cleanup(f.booking.Wait)

	f.mentor, err = f.users.RegisterUser(ctx, 1001, "mentor", "Anna", "", "ru")
	require.NoError(t, err)
	f.mentor, err = f.users.BecomeMentor(ctx, f.mentor.ID)
	require.NoError(t, err)
	f.mentee, err = f.users.RegisterUser(ctx, 1002, "mentee", "Boris", "", "ru")
	require.NoError(t, err)
	f.other, err = f.users.RegisterUser(ctx, 1003, "other", "Vera", "", "ru")
	require.NoError(t, err)

	return f
}

// withMondayMorning задаёт ментору окно понедельник 09:00-11:00 UTC
func (f *fixture) withMondayMorning(t *testing.T) {
	t.Helper()
	_, err := f.availability.SetWindows(context.Background(), f.mentor.ID, []model.AvailabilityWindow{
		{DayOfWeek: time.Monday, StartTime: 9 * 60, EndTime: 11 * 60, Timezone: "UTC"},
	})
	require.NoError(t, err)
}

func (f *fixture) request(menteeID int64, start time.Time) BookingRequest {
	return BookingRequest{
		MenteeID:        menteeID,
		MentorID:        f.mentor.ID,
		ScheduledAt:     start,
		DurationMinutes: 60,
		Message:         "Хочу обсудить переход в backend",
	}
}
