package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/finances-api/finances/internal/apperr"
)

// StandardError is the body of every error response.
type StandardError struct {
	Time    time.Time `json:"time"`
	Status  int       `json:"status"`
	Error   string    `json:"error"`
	Message string    `json:"message"`
	Path    string    `json:"path"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrInvariant):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ErrorHandler renders errors returned by handlers as StandardError bodies.
// Internal failures are logged and their details withheld from the client.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *fiber.Ctx, err error) error {
		status := StatusFor(err)
		message := apperr.Message(err)
		if status == http.StatusInternalServerError {
			requestID, _ := c.Locals(requestIDHeader).(string)
			logger.Error("unhandled error", "error", err, "path", c.Path(), "request_id", requestID)
			message = "internal server error"
		}
		return c.Status(status).JSON(StandardError{
			Time:    time.Now().UTC(),
			Status:  status,
			Error:   http.StatusText(status),
			Message: message,
			Path:    c.Path(),
		})
	}
}
