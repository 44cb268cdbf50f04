package httpapi

import (
	"errors"

	"github.com/Freeeeeet/mentor_scheduler/internal/apperr"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type errorResponse struct {
	Status  string   `json:"status"`
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

var statusByKind = map[apperr.Kind]int{
	apperr.KindValidation:      fiber.StatusBadRequest,
	apperr.KindPermission:      fiber.StatusForbidden,
	apperr.KindNotFound:        fiber.StatusNotFound,
	apperr.KindSlotUnavailable: fiber.StatusConflict,
	apperr.KindStateTransition: fiber.StatusConflict,
	apperr.KindExternalService: fiber.StatusBadGateway,
}

// handleError переводит ошибки обработчиков в единый JSON-ответ
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(errorResponse{
			Status:  "error",
			Code:    codeForStatus(fiberErr.Code),
			Message: fiberErr.Message,
		})
	}

	kind := apperr.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		s.logger.Error("Request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{
			Status:  "error",
			Code:    string(apperr.KindInternal),
			Message: "internal error",
		})
	}

	var appErr *apperr.Error
	message := err.Error()
	if errors.As(err, &appErr) {
		message = appErr.Message
	}

	return c.Status(status).JSON(errorResponse{
		Status:  "error",
		Code:    string(kind),
		Message: message,
		Details: apperr.DetailsOf(err),
	})
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusUnauthorized:
		return "UNAUTHENTICATED"
	case fiber.StatusNotFound:
		return string(apperr.KindNotFound)
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	}
	if status >= 500 {
		return string(apperr.KindInternal)
	}
	return string(apperr.KindValidation)
}
