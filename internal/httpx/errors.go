// Package httpx holds the Fiber plumbing shared by every handler package.
package httpx

import (
	"errors"

	"silvess-backend/internal/apperr"
	"silvess-backend/internal/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorHandler renders every error as {"error": msg} plus the details of
// errors implementing apperr.Detailer.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := StatusOf(err)

	body := fiber.Map{"error": err.Error()}
	var d apperr.Detailer
	if errors.As(err, &d) {
		for k, v := range d.Details() {
			body[k] = v
		}
	}

	if code >= fiber.StatusInternalServerError {
		logger.FromCtx(c).Error("unhandled error", zap.Error(err), zap.String("path", c.Path()))
	}

	return c.Status(code).JSON(body)
}

// StatusOf maps an error to its HTTP status code.
func StatusOf(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrRule):
		return fiber.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, apperr.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}
