package service

import (
	"context"
	"testing"

	"github.com/Freeeeeet/mentor_scheduler/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterUserUpdatesExisting(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	again, err := f.users.RegisterUser(ctx, 1002, "mentee_new", "Борис", "Петров", "en")
	require.NoError(t, err)
	assert.Equal(t, f.mentee.ID, again.ID)

	got, err := f.users.GetByTelegramID(ctx, 1002)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "mentee_new", got.Username)
	assert.Equal(t, "Петров", got.LastName)
	assert.False(t, got.IsMentor)

	missing, err := f.users.GetByTelegramID(ctx, 555)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRegisterUserRejectsMissingTelegramID(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.users.RegisterUser(context.Background(), 0, "ghost", "", "", "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestBecomeMentor(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	assert.True(t, f.mentor.IsMentor)

	again, err := f.users.BecomeMentor(ctx, f.mentor.ID)
	require.NoError(t, err)
	assert.True(t, again.IsMentor)

	_, err = f.users.BecomeMentor(ctx, 777777)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	mentors, err := f.users.ListMentors(ctx)
	require.NoError(t, err)
	require.Len(t, mentors, 1)
	assert.Equal(t, f.mentor.ID, mentors[0].ID)
}
