package auth

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// ErrorResponse is the JSON envelope for failed requests
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Category string         `json:"category"`
	Code     int            `json:"code"`
	TextCode string         `json:"text_code,omitempty"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewErrorHandler returns a fiber.ErrorHandler that renders rich errors
// as JSON, using the error code as HTTP status
func NewErrorHandler(logger Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(c *fiber.Ctx, err error) error {
		var richErr *errors.Error
		if !errors.As(err, &richErr) {
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				richErr = errorForStatus(fiberErr.Code, fiberErr.Message)
			} else {
				richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
					WithCode(errors.CodeInternal)
			}
		}

		status := StatusForError(richErr)

		if status >= fiber.StatusInternalServerError {
			logger.Error("request %s %s failed: %v details=%s", c.Method(), c.Path(), err, print.MaybePrettyJSON(richErr.Metadata))
		} else {
			logger.Debug("request %s %s rejected: %s (%s)", c.Method(), c.Path(), richErr.Message, richErr.Category)
		}

		return c.Status(status).JSON(ErrorResponse{
			Error: ErrorBody{
				Category: fmt.Sprint(richErr.Category),
				Code:     status,
				TextCode: richErr.TextCode,
				Message:  richErr.Message,
				Metadata: richErr.Metadata,
			},
		})
	}
}

// StatusForError resolves the HTTP status of a rich error, falling back
// to its category when no code was set
func StatusForError(richErr *errors.Error) int {
	if richErr == nil {
		return fiber.StatusInternalServerError
	}

	if richErr.Code >= 400 && richErr.Code < 600 {
		return richErr.Code
	}

	switch richErr.Category {
	case errors.CategoryValidation, errors.CategoryBadInput:
		return fiber.StatusBadRequest
	case errors.CategoryAuth:
		return fiber.StatusUnauthorized
	case errors.CategoryAuthz:
		return fiber.StatusForbidden
	case errors.CategoryNotFound:
		return fiber.StatusNotFound
	case errors.CategoryConflict:
		return fiber.StatusConflict
	case errors.CategoryRateLimit:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

func errorForStatus(status int, message string) *errors.Error {
	switch {
	case status == fiber.StatusUnauthorized:
		return errors.New(message, errors.CategoryAuth).WithCode(status)
	case status == fiber.StatusForbidden:
		return errors.New(message, errors.CategoryAuthz).WithCode(status)
	case status == fiber.StatusNotFound:
		return errors.New(message, errors.CategoryNotFound).WithCode(status)
	case status == fiber.StatusConflict:
		return errors.New(message, errors.CategoryConflict).WithCode(status)
	case status == fiber.StatusTooManyRequests:
		return errors.New(message, errors.CategoryRateLimit).WithCode(status)
	case status >= 400 && status < 500:
		return errors.New(message, errors.CategoryBadInput).WithCode(status)
	default:
		return errors.New(message, errors.CategoryInternal).WithCode(status)
	}
}
