package api

import (
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"docsum/app/middleware"
	"docsum/types"
)

const maxMessageLen = 200

// ErrorHandler is the fiber error handler. Every failure leaves the service as {"error": msg}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	apiErr := FromError(err)
	if apiErr.Code >= fiber.StatusInternalServerError {
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "code", apiErr.Code, "err", err)
	} else {
		slog.Info("request rejected", "method", c.Method(), "path", c.Path(), "code", apiErr.Code, "err", err)
	}
	middleware.SetCORSHeaders(c)
	return c.Status(apiErr.Code).JSON(apiErr)
}

type Error struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
}

// Error implements the Error interface
func (e Error) Error() string {
	return e.Message
}

func NewError(code int, msg string) Error {
	return Error{
		Code:    code,
		Message: msg,
	}
}

func ErrNotFound() Error {
	return Error{
		Code:    fiber.StatusNotFound,
		Message: "Not found",
	}
}

// StatusFor classifies err into an HTTP status.
func StatusFor(err error) int {
	var apiErr Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	switch {
	case errors.Is(err, types.ErrInvalidInput),
		errors.Is(err, types.ErrUnsupportedFormat),
		errors.Is(err, types.ErrExtractionFailed),
		errors.Is(err, types.ErrMalformedMultipart):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// FromError converts any error into the payload sent to clients. Client errors carry
// the cause without the stage prefix; server errors keep the stage so the failing
// step is visible. Both are cut to a short message.
func FromError(err error) Error {
	var apiErr Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	code := StatusFor(err)
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		if code == fiber.StatusNotFound {
			return ErrNotFound()
		}
		return NewError(code, truncate(fiberErr.Message))
	}

	msg := err.Error()
	if code < fiber.StatusInternalServerError {
		var se *types.StageError
		if errors.As(err, &se) {
			msg = se.Err.Error()
		}
		msg = strings.TrimPrefix(msg, types.ErrInvalidInput.Error()+": ")
	}
	return NewError(code, truncate(msg))
}

func truncate(msg string) string {
	if utf8.RuneCountInString(msg) <= maxMessageLen {
		return msg
	}
	return string([]rune(msg)[:maxMessageLen-3]) + "..."
}
