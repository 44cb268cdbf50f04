package httpapi

import (
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/mentor_scheduler/internal/apperr"
	"github.com/Freeeeeet/mentor_scheduler/internal/model"
)

type windowRequest struct {
	DayOfWeek *int   `json:"day_of_week" validate:"required,min=0,max=6"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Timezone  string `json:"timezone"`
}

// setAvailabilityRequest заменяет весь набор окон; timezone применяется к окнам без своего
type setAvailabilityRequest struct {
	Timezone string          `json:"timezone"`
	Windows  []windowRequest `json:"windows" validate:"max=100,dive"`
}

func (r setAvailabilityRequest) toWindows() ([]model.AvailabilityWindow, error) {
	var problems []string
	windows := make([]model.AvailabilityWindow, 0, len(r.Windows))

	for i, w := range r.Windows {
		start, err := model.ParseClockTime(w.StartTime)
		if err != nil {
			problems = append(problems, fmt.Sprintf("windows[%d].start_time: %v", i, err))
		}
		end, err := model.ParseClockTime(w.EndTime)
		if err != nil {
			problems = append(problems, fmt.Sprintf("windows[%d].end_time: %v", i, err))
		}

		timezone := strings.TrimSpace(w.Timezone)
		if timezone == "" {
			timezone = strings.TrimSpace(r.Timezone)
		}

		windows = append(windows, model.AvailabilityWindow{
			DayOfWeek: time.Weekday(*w.DayOfWeek),
			StartTime: start,
			EndTime:   end,
			Timezone:  timezone,
		})
	}

	if len(problems) > 0 {
		return nil, apperr.Validation("invalid availability windows", problems...)
	}
	return windows, nil
}

type bookingRequest struct {
	MentorID        int64     `json:"mentor_id" validate:"required,gt=0"`
	ScheduledAt     time.Time `json:"scheduled_at" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"gte=0"`
	Message         string    `json:"message" validate:"required,max=2000"`
}

type respondRequest struct {
	Decision string `json:"decision" validate:"required,oneof=confirm reject"`
	Notes    string `json:"notes" validate:"max=1000"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

type mentorResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
}

func toMentorResponses(users []*model.User) []mentorResponse {
	out := make([]mentorResponse, 0, len(users))
	for _, u := range users {
		out = append(out, mentorResponse{
			ID:        u.ID,
			Username:  u.Username,
			FirstName: u.FirstName,
			LastName:  u.LastName,
		})
	}
	return out
}
