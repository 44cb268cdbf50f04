package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/Freeeeeet/mentor_scheduler/internal/calendar"
	"github.com/Freeeeeet/mentor_scheduler/internal/model"
	"github.com/Freeeeeet/mentor_scheduler/internal/notify"
	"github.com/Freeeeeet/mentor_scheduler/internal/repository/sqlite"
	"github.com/Freeeeeet/mentor_scheduler/internal/service"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

var (
	// среда, 14 октября 2026, 10:00 UTC
	now = time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
	// понедельник, 19 октября 2026, 09:00 UTC
	mondayNine = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
)

type envelope struct {
	Status  string          `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details []string        `json:"details"`
	Data    json.RawMessage `json:"data"`
}

type testAPI struct {
	t       *testing.T
	server  *Server
	booking *service.BookingService
	mentor  *model.User
	mentee  *model.User
	other   *model.User
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	settings := service.DefaultSettings()
	settings.Now = func() time.Time { return now }

	logger := zap.NewNop()
	users := service.NewUserService(store.Users(), logger)
	availability := service.NewAvailabilityService(store.Users(), store.Availability(), logger)
	slots := service.NewSlotService(availability, store.Appointments(), settings, logger)
	booking := service.NewBookingService(store.Users(), store.Availability(), store.Appointments(),
		calendar.NewJitsiBridge(calendar.DefaultJitsiBaseURL), notify.NewLogNotifier(logger), settings, logger)
	t.Cleanup(booking.Wait)

	api := &testAPI{
		t:       t,
		server:  NewServer(Config{JWTSecret: testSecret}, users, availability, slots, booking, logger),
		booking: booking,
	}

	api.mentor, err = users.RegisterUser(ctx, 1, "anna", "Anna", "", "ru")
	require.NoError(t, err)
	api.mentor, err = users.BecomeMentor(ctx, api.mentor.ID)
	require.NoError(t, err)
	api.mentee, err = users.RegisterUser(ctx, 2, "boris", "Boris", "", "ru")
	require.NoError(t, err)
	api.other, err = users.RegisterUser(ctx, 3, "vera", "Vera", "", "ru")
	require.NoError(t, err)

	return api
}

func token(t *testing.T, userID int64) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		userClaim: userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// do выполняет запрос от имени userID (0 означает без токена)
func (a *testAPI) do(method, path string, userID int64, body any, headers ...string) (int, envelope) {
	a.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+token(a.t, userID))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := a.server.App().Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(a.t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func (a *testAPI) setMondayMorning() {
	a.t.Helper()
	status, env := a.do(http.MethodPut, "/api/v1/me/availability", a.mentor.ID, map[string]any{
		"timezone": "UTC",
		"windows": []map[string]any{
			{"day_of_week": 1, "start_time": "09:00", "end_time": "11:00"},
		},
	})
	require.Equal(a.t, http.StatusOK, status, env.Message)
}

func (a *testAPI) book(userID int64, start time.Time, headers ...string) (int, envelope) {
	a.t.Helper()
	return a.do(http.MethodPost, "/api/v1/appointments", userID, map[string]any{
		"mentor_id":        a.mentor.ID,
		"scheduled_at":     start.Format(time.RFC3339),
		"duration_minutes": 60,
		"message":          "Хочу разобрать системный дизайн",
	}, headers...)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestHealth(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	status, env := api.do(http.MethodGet, "/health", 0, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", env.Status)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	status, env := api.do(http.MethodGet, "/api/v1/me/appointments", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHENTICATED", env.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/appointments", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err := api.server.App().Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAvailabilityRoundTrip(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	status, env := api.do(http.MethodPut, "/api/v1/me/availability", api.mentor.ID, map[string]any{
		"timezone": "UTC",
		"windows": []map[string]any{
			{"day_of_week": 3, "start_time": "18:00", "end_time": "20:00"},
			{"day_of_week": 1, "start_time": "09:00", "end_time": "11:00"},
		},
	})
	require.Equal(t, http.StatusOK, status, env.Message)

	status, env = api.do(http.MethodGet, "/api/v1/mentors/"+itoa(api.mentor.ID)+"/availability", 0, nil)
	require.Equal(t, http.StatusOK, status)

	windows := decode[[]model.AvailabilityWindow](t, env.Data)
	require.Len(t, windows, 2)
	assert.Equal(t, time.Monday, windows[0].DayOfWeek)
	assert.Equal(t, "09:00", windows[0].StartTime.String())
	assert.Equal(t, time.Wednesday, windows[1].DayOfWeek)
}

func TestSetAvailabilityErrors(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	status, env := api.do(http.MethodPut, "/api/v1/me/availability", api.mentor.ID, map[string]any{
		"timezone": "UTC",
		"windows": []map[string]any{
			{"day_of_week": 2, "start_time": "09:00", "end_time": "11:00"},
			{"day_of_week": 2, "start_time": "10:00", "end_time": "12:00"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", env.Code)
	assert.NotEmpty(t, env.Details)

	status, env = api.do(http.MethodPut, "/api/v1/me/availability", api.mentor.ID, map[string]any{
		"windows": []map[string]any{
			{"day_of_week": 9, "start_time": "9am", "end_time": "11:00"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Details, "windows[0].day_of_week: failed max=6")

	status, env = api.do(http.MethodPut, "/api/v1/me/availability", api.mentee.ID, map[string]any{
		"timezone": "UTC",
		"windows":  []map[string]any{},
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "PERMISSION_DENIED", env.Code)
}

func TestListMentorsAndSlots(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	api.setMondayMorning()

	status, env := api.do(http.MethodGet, "/api/v1/mentors", 0, nil)
	require.Equal(t, http.StatusOK, status)
	mentors := decode[[]mentorResponse](t, env.Data)
	require.Len(t, mentors, 1)
	assert.Equal(t, api.mentor.ID, mentors[0].ID)

	status, env = api.do(http.MethodGet, "/api/v1/mentors/"+itoa(api.mentor.ID)+"/slots?duration=60", 0, nil)
	require.Equal(t, http.StatusOK, status)
	slots := decode[[]model.Slot](t, env.Data)
	require.NotEmpty(t, slots)
	assert.True(t, mondayNine.Equal(slots[0].Start))

	status, env = api.do(http.MethodGet, "/api/v1/mentors/"+itoa(api.mentee.ID)+"/slots", 0, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Code)

	status, _ = api.do(http.MethodGet, "/api/v1/mentors/abc/slots", 0, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestBookingFlow(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	api.setMondayMorning()

	status, env := api.book(api.mentee.ID, mondayNine, IdempotencyKeyHeader, "req-1")
	require.Equal(t, http.StatusCreated, status, env.Message)
	created := decode[model.Appointment](t, env.Data)
	assert.Equal(t, model.AppointmentStatusPending, created.Status)

	// повтор с тем же ключом возвращает ту же запись
	status, env = api.book(api.mentee.ID, mondayNine, IdempotencyKeyHeader, "req-1")
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, created.ID, decode[model.Appointment](t, env.Data).ID)

	status, env = api.book(api.other.ID, mondayNine)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "SLOT_UNAVAILABLE", env.Code)

	path := "/api/v1/appointments/" + created.ID.String()

	status, env = api.do(http.MethodGet, path, api.other.ID, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env = api.do(http.MethodPost, path+"/respond", api.mentor.ID, map[string]any{"decision": "confirm"})
	require.Equal(t, http.StatusOK, status, env.Message)
	confirmed := decode[model.Appointment](t, env.Data)
	assert.Equal(t, model.AppointmentStatusConfirmed, confirmed.Status)
	assert.Contains(t, confirmed.MeetingLink, calendar.DefaultJitsiBaseURL)

	status, env = api.do(http.MethodPost, path+"/respond", api.mentor.ID, map[string]any{"decision": "reject"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "STATE_TRANSITION", env.Code)

	status, env = api.do(http.MethodPost, path+"/respond", api.mentor.ID, map[string]any{"decision": "maybe"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, []string{"decision: failed oneof=confirm reject"}, env.Details)

	status, env = api.do(http.MethodGet, "/api/v1/me/appointments", api.mentee.ID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]model.Appointment](t, env.Data), 1)

	status, env = api.do(http.MethodPost, path+"/cancel", api.mentee.ID, map[string]any{"reason": "планы изменились"})
	require.Equal(t, http.StatusOK, status, env.Message)
	cancelled := decode[model.Appointment](t, env.Data)
	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)
	assert.Equal(t, "планы изменились", cancelled.CancelReason)
}

func TestPendingRequests(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	api.setMondayMorning()

	status, _ := api.book(api.mentee.ID, mondayNine)
	require.Equal(t, http.StatusCreated, status)

	status, env := api.do(http.MethodGet, "/api/v1/me/requests", api.mentor.ID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]model.Appointment](t, env.Data), 1)
}

func TestAppointmentErrors(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	api.setMondayMorning()

	status, env := api.do(http.MethodGet, "/api/v1/appointments/not-a-uuid", api.mentee.ID, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", env.Code)

	status, env = api.do(http.MethodGet, "/api/v1/appointments/6f1c8a44-3a52-4c55-9b7a-0d8f3e2f0d11", api.mentee.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Code)

	status, env = api.book(api.mentee.ID, now)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Details, "scheduled_at must be in the future")

	status, env = api.do(http.MethodPost, "/api/v1/appointments", api.mentee.ID, map[string]any{"message": "x"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Details, "mentor_id: failed required")
}
