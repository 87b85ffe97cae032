package response

import (
	"github.com/gofiber/fiber/v2"
	"github.com/versesong/api/internal/apperr"
)

type ErrorResponse struct {
	Error     string      `json:"error"`
	Type      apperr.Kind `json:"type"`
	Retryable bool        `json:"retryable"`
	Details   interface{} `json:"details,omitempty"`
}

// Error writes an error of the given kind with the kind's status code.
func Error(c *fiber.Ctx, kind apperr.Kind, message string, details interface{}) error {
	if message == "" {
		message = kind.UserMessage()
	}
	return c.Status(kind.HTTPStatus()).JSON(ErrorResponse{
		Error:     message,
		Type:      kind,
		Retryable: kind.Retryable(),
		Details:   details,
	})
}

// FromError renders any error. Unclassified errors never leak their text.
func FromError(c *fiber.Ctx, err error) error {
	appErr := apperr.From(err, apperr.KindService, "")
	message := appErr.Message
	if message == "" {
		message = appErr.Kind.UserMessage()
	}
	return Error(c, appErr.Kind, message, nil)
}

func ValidationError(c *fiber.Ctx, message string, details interface{}) error {
	return Error(c, apperr.KindValidation, message, details)
}

func MissingSession(c *fiber.Ctx) error {
	return Error(c, apperr.KindMissingSession, "Session ID required", nil)
}

func RateLimited(c *fiber.Ctx, message string) error {
	return Error(c, apperr.KindRateLimited, message, nil)
}

func OK(c *fiber.Ctx, data interface{}) error {
	return c.JSON(data)
}

func Accepted(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusAccepted).JSON(data)
}
