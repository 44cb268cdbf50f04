package httpapi

import (
	"strings"

	"github.com/Freeeeeet/mentor_scheduler/internal/apperr"
	"github.com/Freeeeeet/mentor_scheduler/internal/service"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// IdempotencyKeyHeader заголовок с ключом идемпотентности заявки
const IdempotencyKeyHeader = "Idempotency-Key"

func success(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"status": "success",
		"data":   data,
	})
}

func mentorIDParam(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("mentorId")
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid mentor id", "mentorId must be a positive integer")
	}
	return int64(id), nil
}

func appointmentIDParam(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid appointment id", "id must be a UUID")
	}
	return id, nil
}

func (s *Server) listMentors(c *fiber.Ctx) error {
	mentors, err := s.users.ListMentors(c.UserContext())
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, toMentorResponses(mentors))
}

func (s *Server) getAvailability(c *fiber.Ctx) error {
	mentorID, err := mentorIDParam(c)
	if err != nil {
		return err
	}

	windows, err := s.availability.GetWindows(c.UserContext(), mentorID)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, windows)
}

func (s *Server) setAvailability(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req setAvailabilityRequest
	if err := s.parseBody(c, &req); err != nil {
		return err
	}
	windows, err := req.toWindows()
	if err != nil {
		return err
	}

	saved, err := s.availability.SetWindows(c.UserContext(), userID, windows)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, saved)
}

func (s *Server) listSlots(c *fiber.Ctx) error {
	mentorID, err := mentorIDParam(c)
	if err != nil {
		return err
	}

	duration := c.QueryInt("duration", 0)
	slots, err := s.slots.ListSlots(c.UserContext(), mentorID, duration)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, slots)
}

func (s *Server) requestBooking(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req bookingRequest
	if err := s.parseBody(c, &req); err != nil {
		return err
	}

	appointment, err := s.booking.RequestBooking(c.UserContext(), service.BookingRequest{
		MenteeID:        userID,
		MentorID:        req.MentorID,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
		Message:         req.Message,
		RequestKey:      strings.TrimSpace(c.Get(IdempotencyKeyHeader)),
	})
	if err != nil {
		return err
	}
	return success(c, fiber.StatusCreated, appointment)
}

func (s *Server) getAppointment(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := appointmentIDParam(c)
	if err != nil {
		return err
	}

	appointment, err := s.booking.GetAppointment(c.UserContext(), id, userID)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, appointment)
}

func (s *Server) listMyAppointments(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	appointments, err := s.booking.ListForUser(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, appointments)
}

func (s *Server) listPendingRequests(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	appointments, err := s.booking.ListPendingForMentor(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, appointments)
}

func (s *Server) respond(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := appointmentIDParam(c)
	if err != nil {
		return err
	}

	var req respondRequest
	if err := s.parseBody(c, &req); err != nil {
		return err
	}

	appointment, err := s.booking.Respond(c.UserContext(), id, userID, service.Decision(req.Decision), req.Notes)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, appointment)
}

func (s *Server) cancel(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := appointmentIDParam(c)
	if err != nil {
		return err
	}

	var req cancelRequest
	if len(c.Body()) > 0 {
		if err := s.parseBody(c, &req); err != nil {
			return err
		}
	}

	appointment, err := s.booking.Cancel(c.UserContext(), id, userID, req.Reason)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, appointment)
}
