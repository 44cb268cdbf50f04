package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Freeeeeet/mentor_scheduler/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testAppointment() *model.Appointment {
	return &model.Appointment{
		ID:              uuid.MustParse("6f1c1c1e-8d7f-4a53-9a0e-1f2b3c4d5e6f"),
		MentorID:        1,
		MenteeID:        2,
		ScheduledAt:     time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
		Status:          model.AppointmentStatusConfirmed,
		Message:         "career chat please",
	}
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Base: time.Millisecond, Timeout: time.Second}
}

func TestJitsiBridgeIsDeterministic(t *testing.T) {
	t.Parallel()

	bridge := NewJitsiBridge("https://meet.example.org/")
	first, err := bridge.CreateEvent(context.Background(), testAppointment())
	require.NoError(t, err)
	second, err := bridge.CreateEvent(context.Background(), testAppointment())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(first.MeetingLink, "https://meet.example.org/mentorship-"))
	assert.NoError(t, bridge.CancelEvent(context.Background(), first.ID))

	assert.Equal(t, DefaultJitsiBaseURL, NewJitsiBridge("").baseURL)
}

func TestHTTPBridgeCreateAndCancel(t *testing.T) {
	t.Parallel()

	var deleted atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		switch r.Method {
		case http.MethodPost:
			var body createEventRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "6f1c1c1e-8d7f-4a53-9a0e-1f2b3c4d5e6f", body.AppointmentID)
			assert.Equal(t, time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC), body.End)
			assert.Equal(t, body.AppointmentID, r.Header.Get("Idempotency-Key"))
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"evt-42","meeting_link":"https://video.example.org/evt-42"}`))
		case http.MethodDelete:
			deleted.Store(r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer server.Close()

	bridge := NewHTTPBridge(server.URL+"/", "secret", server.Client())

	event, err := bridge.CreateEvent(context.Background(), testAppointment())
	require.NoError(t, err)
	assert.Equal(t, "evt-42", event.ID)
	assert.Equal(t, "https://video.example.org/evt-42", event.MeetingLink)

	require.NoError(t, bridge.CancelEvent(context.Background(), "evt-42"))
	assert.Equal(t, "/events/evt-42", deleted.Load())
}

func TestHTTPBridgeCancelMissingEventIsSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	assert.NoError(t, NewHTTPBridge(server.URL, "", server.Client()).CancelEvent(context.Background(), "gone"))
}

func TestRetryingRecoversFromServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"id":"evt-1"}`))
	}))
	defer server.Close()

	bridge := NewRetrying(NewHTTPBridge(server.URL, "", server.Client()), fastPolicy(), zap.NewNop())

	event, err := bridge.CreateEvent(context.Background(), testAppointment())
	require.NoError(t, err)
	assert.Equal(t, "evt-1", event.ID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryingStopsOnClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	bridge := NewRetrying(NewHTTPBridge(server.URL, "", server.Client()), fastPolicy(), zap.NewNop())

	_, err := bridge.CreateEvent(context.Background(), testAppointment())
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.Status)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetryingGivesUpAfterAttempts(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	bridge := NewRetrying(NewHTTPBridge(server.URL, "", server.Client()), fastPolicy(), zap.NewNop())

	err := bridge.CancelEvent(context.Background(), "evt-1")
	require.Error(t, err)
	assert.Equal(t, int32(4), calls.Load())
}
