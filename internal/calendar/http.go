package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Freeeeeet/mentor_scheduler/internal/model"
)

// StatusError ответ календаря с неуспешным HTTP статусом
type StatusError struct {
	Op     string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d %s", e.Op, e.Status, http.StatusText(e.Status))
}

// Temporary сообщает, имеет ли смысл повторить запрос
func (e *StatusError) Temporary() bool {
	return e.Status >= http.StatusInternalServerError || e.Status == http.StatusTooManyRequests
}

type createEventRequest struct {
	AppointmentID string    `json:"appointment_id"`
	MentorID      int64     `json:"mentor_id"`
	MenteeID      int64     `json:"mentee_id"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
}

// HTTPBridge календарь за HTTP API: POST {base}/events, DELETE {base}/events/{id}
type HTTPBridge struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPBridge(baseURL, token string, client *http.Client) *HTTPBridge {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPBridge{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
	}
}

func (b *HTTPBridge) CreateEvent(ctx context.Context, appointment *model.Appointment) (Event, error) {
	payload, err := json.Marshal(createEventRequest{
		AppointmentID: appointment.ID.String(),
		MentorID:      appointment.MentorID,
		MenteeID:      appointment.MenteeID,
		Start:         appointment.ScheduledAt.UTC(),
		End:           appointment.ScheduledAt.Add(appointment.Duration()).UTC(),
		Title:         "Mentorship session",
		Description:   appointment.Message,
	})
	if err != nil {
		return Event{}, fmt.Errorf("encode create event request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/events", bytes.NewReader(payload))
	if err != nil {
		return Event{}, fmt.Errorf("build create event request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// календарь дедуплицирует повторы по ключу
	req.Header.Set("Idempotency-Key", appointment.ID.String())
	b.authorize(req)

	resp, err := b.client.Do(req)
	if err != nil {
		return Event{}, fmt.Errorf("create event request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return Event{}, &StatusError{Op: "create event", Status: resp.StatusCode}
	}

	var event Event
	if err := json.NewDecoder(resp.Body).Decode(&event); err != nil {
		return Event{}, fmt.Errorf("decode create event response: %w", err)
	}
	if event.ID == "" {
		return Event{}, errors.New("create event response has no id")
	}

	return event, nil
}

func (b *HTTPBridge) CancelEvent(ctx context.Context, eventID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, b.baseURL+"/events/"+url.PathEscape(eventID), nil)
	if err != nil {
		return fmt.Errorf("build cancel event request: %w", err)
	}
	b.authorize(req)

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("cancel event request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound, http.StatusGone:
		// событие уже удалено
		return nil
	default:
		return &StatusError{Op: "cancel event", Status: resp.StatusCode}
	}
}

func (b *HTTPBridge) authorize(req *http.Request) {
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}
}
