package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/mentor_scheduler/internal/apperr"
	"github.com/Freeeeeet/mentor_scheduler/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestBookingTakesSlot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.withMondayMorning(t)

	appointment, err := f.booking.RequestBooking(ctx, f.request(f.mentee.ID, mondayNine))
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, appointment.Status)
	assert.Equal(t, mondayNine.Add(time.Hour), appointment.EndsAt)
	assert.Equal(t, wednesday, appointment.CreatedAt)

	_, err = f.booking.RequestBooking(ctx, f.request(f.other.ID, mondayNine))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindSlotUnavailable))

	slots, err := f.slots.ListSlots(ctx, f.mentor.ID, 60)
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	assert.Equal(t, mondayNine.Add(time.Hour), slots[0].Start)

	f.booking.Wait()
	assert.Equal(t, []model.NotificationKind{model.NotificationCreated}, f.notifier.received())
}

func TestRequestBookingValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.withMondayMorning(t)

	tests := []struct {
		name   string
		mutate func(*BookingRequest)
		kind   apperr.Kind
	}{
		{
			name:   "starts now",
			mutate: func(r *BookingRequest) { r.ScheduledAt = wednesday },
			kind:   apperr.KindValidation,
		},
		{
			name:   "in the past",
			mutate: func(r *BookingRequest) { r.ScheduledAt = wednesday.Add(-48 * time.Hour) },
			kind:   apperr.KindValidation,
		},
		{
			name:   "beyond horizon",
			mutate: func(r *BookingRequest) { r.ScheduledAt = mondayNine.AddDate(0, 0, 28) },
			kind:   apperr.KindValidation,
		},
		{
			name:   "short message",
			mutate: func(r *BookingRequest) { r.Message = "  привет  " },
			kind:   apperr.KindValidation,
		},
		{
			name:   "self booking",
			mutate: func(r *BookingRequest) { r.MenteeID = r.MentorID },
			kind:   apperr.KindValidation,
		},
		{
			name:   "negative duration",
			mutate: func(r *BookingRequest) { r.DurationMinutes = -30 },
			kind:   apperr.KindValidation,
		},
		{
			name:   "off grid start",
			mutate: func(r *BookingRequest) { r.ScheduledAt = mondayNine.Add(90 * time.Minute) },
			kind:   apperr.KindSlotUnavailable,
		},
		{
			name:   "outside windows",
			mutate: func(r *BookingRequest) { r.ScheduledAt = mondayNine.Add(24 * time.Hour) },
			kind:   apperr.KindSlotUnavailable,
		},
		{
			name:   "not a mentor",
			mutate: func(r *BookingRequest) { r.MentorID = f.other.ID },
			kind:   apperr.KindNotFound,
		},
		{
			name:   "unknown mentee",
			mutate: func(r *BookingRequest) { r.MenteeID = 987654 },
			kind:   apperr.KindNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request(f.mentee.ID, mondayNine)
			tt.mutate(&req)

			_, err := f.booking.RequestBooking(ctx, req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err), err.Error())
		})
	}

	list, err := f.booking.ListForUser(ctx, f.mentor.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRequestBookingDefaultsDuration(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.withMondayMorning(t)

	req := f.request(f.mentee.ID, mondayNine)
	req.DurationMinutes = 0

	appointment, err := f.booking.RequestBooking(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings().DefaultDurationMinutes, appointment.DurationMinutes)
}

func TestRequestBookingIdempotencyKey(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.withMondayMorning(t)

	req := f.request(f.mentee.ID, mondayNine)
	req.RequestKey = "tg-update-42"

	first, err := f.booking.RequestBooking(ctx, req)
	require.NoError(t, err)

	second, err := f.booking.RequestBooking(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	other := req
	other.ScheduledAt = mondayNine.Add(time.Hour)
	_, err = f.booking.RequestBooking(ctx, other)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	list, err := f.booking.ListForUser(ctx, f.mentee.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestConfirmCreatesCalendarEventAndCancelFreesSlot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.withMondayMorning(t)

	appointment, err := f.booking.RequestBooking(ctx, f.request(f.mentee.ID, mondayNine))
	require.NoError(t, err)

	confirmed, err := f.booking.Respond(ctx, appointment.ID, f.mentor.ID, DecisionConfirm, " до встречи ")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, confirmed.Status)
	assert.Equal(t, "до встречи", confirmed.ResponseNotes)
	assert.NotEmpty(t, confirmed.MeetingLink)
	require.NotNil(t, confirmed.RespondedAt)

	stored, err := f.booking.GetAppointment(ctx, appointment.ID, f.mentee.ID)
	require.NoError(t, err)
	assert.Equal(t, confirmed.CalendarEventRef, stored.CalendarEventRef)
	assert.Equal(t, confirmed.MeetingLink, stored.MeetingLink)

	cancelled, err := f.booking.Cancel(ctx, appointment.ID, f.mentee.ID, "заболел")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledBy)
	assert.Equal(t, model.RoleMentee, *cancelled.CancelledBy)
	assert.Equal(t, "заболел", cancelled.CancelReason)

	created, removed := f.calendar.calls()
	assert.Len(t, created, 1)
	assert.Equal(t, created, removed)

	_, err = f.booking.Cancel(ctx, appointment.ID, f.mentor.ID, "повторно")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindStateTransition))
	_, removed = f.calendar.calls()
	assert.Len(t, removed, 1, "second cancel must not touch the calendar")

	slots, err := f.slots.ListSlots(ctx, f.mentor.ID, 60)
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	assert.Equal(t, mondayNine, slots[0].Start)

	f.booking.Wait()
	// рассылка асинхронная, порядок доставки не гарантирован
	assert.ElementsMatch(t, []model.NotificationKind{
		model.NotificationCreated,
		model.NotificationConfirmed,
		model.NotificationCancelled,
	}, f.notifier.received())
}

func TestCancelDuringCalendarCreateRemovesEvent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.withMondayMorning(t)
	f.calendar.hold = make(chan struct{})
	f.calendar.entered = make(chan struct{})

	appointment, err := f.booking.RequestBooking(ctx, f.request(f.mentee.ID, mondayNine))
	require.NoError(t, err)

	type result struct {
		appointment *model.Appointment
		err         error
	}
	done := make(chan result, 1)
	go func() {
		confirmed, err := f.booking.Respond(ctx, appointment.ID, f.mentor.ID, DecisionConfirm, "")
		done <- result{appointment: confirmed, err: err}
	}()

	// подтверждение уже сохранено, событие календаря ещё создаётся
	<-f.calendar.entered

	cancelled, err := f.booking.Cancel(ctx, appointment.ID, f.mentee.ID, "передумал")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)
	assert.Empty(t, cancelled.CalendarEventRef)

	close(f.calendar.hold)
	res := <-done
	require.NoError(t, res.err)
	assert.Empty(t, res.appointment.CalendarEventRef)
	assert.Empty(t, res.appointment.MeetingLink)

	stored, err := f.booking.GetAppointment(ctx, appointment.ID, f.mentee.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, stored.Status)
	assert.Empty(t, stored.CalendarEventRef)
	assert.Empty(t, stored.MeetingLink)

	created, removed := f.calendar.calls()
	require.Len(t, created, 1)
	assert.Equal(t, created, removed, "event created after cancel must be removed")

	f.booking.Wait()
}

func TestRejectFreesSlotWithoutCalendar(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.withMondayMorning(t)

	appointment, err := f.booking.RequestBooking(ctx, f.request(f.mentee.ID, mondayNine))
	require.NoError(t, err)

	rejected, err := f.booking.Respond(ctx, appointment.ID, f.mentor.ID, DecisionReject, "")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusRejected, rejected.Status)

	created, _ := f.calendar.calls()
	assert.Empty(t, created)

	_, err = f.booking.RequestBooking(ctx, f.request(f.other.ID, mondayNine))
	require.NoError(t, err)
}

func TestRespondTwiceFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.withMondayMorning(t)

	appointment, err := f.booking.RequestBooking(ctx, f.request(f.mentee.ID, mondayNine))
	require.NoError(t, err)

	_, err = f.booking.Respond(ctx, appointment.ID, f.mentor.ID, DecisionConfirm, "")
	require.NoError(t, err)

	_, err = f.booking.Respond(ctx, appointment.ID, f.mentor.ID, DecisionReject, "")
	assert.True(t, apperr.Is(err, apperr.KindStateTransition))

	_, err = f.booking.Respond(ctx, appointment.ID, f.mentor.ID, DecisionConfirm, "")
	assert.True(t, apperr.Is(err, apperr.KindStateTransition))

	created, _ := f.calendar.calls()
	assert.Len(t, created, 1)
}

func TestRespondPermissions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.withMondayMorning(t)

	appointment, err := f.booking.RequestBooking(ctx, f.request(f.mentee.ID, mondayNine))
	require.NoError(t, err)

	_, err = f.booking.Respond(ctx, appointment.ID, f.mentee.ID, DecisionConfirm, "")
	assert.True(t, apperr.Is(err, apperr.KindPermission))

	_, err = f.booking.Respond(ctx, appointment.ID, f.other.ID, DecisionConfirm, "")
	assert.True(t, apperr.Is(err, apperr.KindPermission))

	_, err = f.booking.Cancel(ctx, appointment.ID, f.other.ID, "")
	assert.True(t, apperr.Is(err, apperr.KindPermission))

	_, err = f.booking.GetAppointment(ctx, appointment.ID, f.other.ID)
	assert.True(t, apperr.Is(err, apperr.KindPermission))

	_, err = f.booking.Respond(ctx, appointment.ID, f.mentor.ID, Decision("maybe"), "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.booking.Respond(ctx, uuid.New(), f.mentor.ID, DecisionConfirm, "")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCancelRequiresNotice(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.withMondayMorning(t)

	appointment, err := f.booking.RequestBooking(ctx, f.request(f.mentee.ID, mondayNine))
	require.NoError(t, err)
	_, err = f.booking.Respond(ctx, appointment.ID, f.mentor.ID, DecisionConfirm, "")
	require.NoError(t, err)

	// воскресенье 12:00: до начала 21 час
	f.clock.Set(time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC))
	_, err = f.booking.Cancel(ctx, appointment.ID, f.mentor.ID, "")
	assert.True(t, apperr.Is(err, apperr.KindStateTransition))

	// ровно 24 часа тоже мало
	f.clock.Set(mondayNine.Add(-24 * time.Hour))
	_, err = f.booking.Cancel(ctx, appointment.ID, f.mentor.ID, "")
	assert.True(t, apperr.Is(err, apperr.KindStateTransition))

	f.clock.Set(mondayNine.Add(-24*time.Hour - time.Minute))
	cancelled, err := f.booking.Cancel(ctx, appointment.ID, f.mentor.ID, "")
	require.NoError(t, err)
	require.NotNil(t, cancelled.CancelledBy)
	assert.Equal(t, model.RoleMentor, *cancelled.CancelledBy)
}

func TestCalendarFailureStillConfirms(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.withMondayMorning(t)
	f.calendar.createErr = errors.New("calendar is down")

	appointment, err := f.booking.RequestBooking(ctx, f.request(f.mentee.ID, mondayNine))
	require.NoError(t, err)

	confirmed, err := f.booking.Respond(ctx, appointment.ID, f.mentor.ID, DecisionConfirm, "")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, confirmed.Status)
	assert.Empty(t, confirmed.CalendarEventRef)

	// без события календаря отмена его не трогает
	cancelled, err := f.booking.Cancel(ctx, appointment.ID, f.mentee.ID, "")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)

	_, removed := f.calendar.calls()
	assert.Empty(t, removed)
}

func TestElapsedConfirmedAppointmentIsCompleted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.withMondayMorning(t)

	appointment, err := f.booking.RequestBooking(ctx, f.request(f.mentee.ID, mondayNine))
	require.NoError(t, err)
	_, err = f.booking.Respond(ctx, appointment.ID, f.mentor.ID, DecisionConfirm, "")
	require.NoError(t, err)

	f.clock.Set(mondayNine.Add(61 * time.Minute))

	got, err := f.booking.GetAppointment(ctx, appointment.ID, f.mentor.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, got.Status)

	_, err = f.booking.Cancel(ctx, appointment.ID, f.mentee.ID, "")
	assert.True(t, apperr.Is(err, apperr.KindStateTransition))

	completed, err := f.booking.CompleteElapsed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), completed)

	completed, err = f.booking.CompleteElapsed(ctx)
	require.NoError(t, err)
	assert.Zero(t, completed)

	list, err := f.booking.ListForUser(ctx, f.mentee.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.AppointmentStatusCompleted, list[0].Status)
}

func TestListPendingForMentor(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.withMondayMorning(t)

	first, err := f.booking.RequestBooking(ctx, f.request(f.mentee.ID, mondayNine.Add(time.Hour)))
	require.NoError(t, err)
	second, err := f.booking.RequestBooking(ctx, f.request(f.other.ID, mondayNine))
	require.NoError(t, err)

	pending, err := f.booking.ListPendingForMentor(ctx, f.mentor.ID)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, second.ID, pending[0].ID)
	assert.Equal(t, first.ID, pending[1].ID)

	_, err = f.booking.Respond(ctx, first.ID, f.mentor.ID, DecisionReject, "")
	require.NoError(t, err)

	pending, err = f.booking.ListPendingForMentor(ctx, f.mentor.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)
}

func TestConcurrentRequestsSingleWinner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.withMondayMorning(t)

	mentees := make([]int64, 6)
	for i := range mentees {
		u, err := f.users.RegisterUser(ctx, int64(2000+i), "", "Mentee", "", "ru")
		require.NoError(t, err)
		mentees[i] = u.ID
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		refused int
	)
	for _, id := range mentees {
		wg.Add(1)
		go func(menteeID int64) {
			defer wg.Done()
			_, err := f.booking.RequestBooking(ctx, f.request(menteeID, mondayNine))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case apperr.Is(err, apperr.KindSlotUnavailable):
				refused++
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, len(mentees)-1, refused)
}
