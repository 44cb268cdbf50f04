package service

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/mentor_scheduler/internal/apperr"
	"github.com/Freeeeeet/mentor_scheduler/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetWindowsRoundTripIsOrdered(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.availability.SetWindows(ctx, f.mentor.ID, []model.AvailabilityWindow{
		{DayOfWeek: time.Friday, StartTime: 14 * 60, EndTime: 15 * 60, Timezone: "UTC"},
		{DayOfWeek: time.Monday, StartTime: 13 * 60, EndTime: 14 * 60, Timezone: "UTC"},
		{DayOfWeek: time.Monday, StartTime: 9 * 60, EndTime: 10 * 60, Timezone: "UTC"},
	})
	require.NoError(t, err)

	got, err := f.availability.GetWindows(ctx, f.mentor.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, time.Monday, got[0].DayOfWeek)
	assert.Equal(t, model.ClockTime(9*60), got[0].StartTime)
	assert.Equal(t, model.ClockTime(13*60), got[1].StartTime)
	assert.Equal(t, time.Friday, got[2].DayOfWeek)
	for _, w := range got {
		assert.Equal(t, f.mentor.ID, w.MentorID)
		assert.Equal(t, "UTC", w.Timezone)
	}
}

func TestSetWindowsRejectsOverlapsAndKeepsPrevious(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.withMondayMorning(t)

	_, err := f.availability.SetWindows(ctx, f.mentor.ID, []model.AvailabilityWindow{
		{DayOfWeek: time.Tuesday, StartTime: 9 * 60, EndTime: 11 * 60, Timezone: "UTC"},
		{DayOfWeek: time.Tuesday, StartTime: 10 * 60, EndTime: 12 * 60, Timezone: "UTC"},
		{DayOfWeek: time.Tuesday, StartTime: 10*60 + 30, EndTime: 10*60 + 45, Timezone: "UTC"},
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Len(t, apperr.DetailsOf(err), 3)

	got, err := f.availability.GetWindows(ctx, f.mentor.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, time.Monday, got[0].DayOfWeek)
}

func TestSetWindowsRequiresMentor(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.availability.SetWindows(ctx, f.mentee.ID, nil)
	assert.True(t, apperr.Is(err, apperr.KindPermission))

	_, err = f.availability.SetWindows(ctx, 424242, nil)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.availability.GetWindows(ctx, f.mentee.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestGetWindowsCacheIsInvalidatedOnSet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.withMondayMorning(t)

	first, err := f.availability.GetWindows(ctx, f.mentor.ID)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// изменение возвращённой копии не портит кэш
	first[0].StartTime = 0

	cached, err := f.availability.GetWindows(ctx, f.mentor.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ClockTime(9*60), cached[0].StartTime)

	_, err = f.availability.SetWindows(ctx, f.mentor.ID, []model.AvailabilityWindow{
		{DayOfWeek: time.Thursday, StartTime: 18 * 60, EndTime: 20 * 60, Timezone: "UTC"},
	})
	require.NoError(t, err)

	fresh, err := f.availability.GetWindows(ctx, f.mentor.ID)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, time.Thursday, fresh[0].DayOfWeek)
}

func TestWindowCacheDropsStaleFill(t *testing.T) {
	t.Parallel()

	cache := newWindowCache()
	_, generation, ok := cache.get(7)
	require.False(t, ok)

	cache.invalidate(7)
	cache.put(7, generation, []model.AvailabilityWindow{{MentorID: 7}})

	_, _, ok = cache.get(7)
	assert.False(t, ok, "value read before invalidation must not be cached")
}

func TestListSlotsNextMonday(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.withMondayMorning(t)

	slots, err := f.slots.ListSlots(ctx, f.mentor.ID, 60)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(slots), 2)
	assert.Equal(t, mondayNine, slots[0].Start)
	assert.Equal(t, mondayNine.Add(time.Hour), slots[1].Start)
	assert.Equal(t, mondayNine.Add(2*time.Hour), slots[1].End)

	_, err = f.slots.ListSlots(ctx, f.mentor.ID, -5)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.slots.ListSlots(ctx, f.mentor.ID, 600)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestListSlotsWithoutWindows(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	slots, err := f.slots.ListSlots(context.Background(), f.mentor.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, slots)
	assert.NotNil(t, slots)
}

func TestListSlotsExcludesSlotStartingNow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.withMondayMorning(t)
	f.clock.Set(mondayNine)

	slots, err := f.slots.ListSlots(ctx, f.mentor.ID, 60)
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	assert.Equal(t, mondayNine.Add(time.Hour), slots[0].Start)
}
