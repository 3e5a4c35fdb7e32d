package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"ai-lending-be/internal/pkg/apperrors"
)

// ErrorHandlerMiddleware converts errors returned by handlers into the
// standard response envelope. Domain errors carry their own status codes.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := statusFor(err)
		return ctx.Status(code).JSON(ErrorResponse(code, err.Error()))
	}
}

func statusFor(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}

	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotOwner):
		return fiber.StatusForbidden
	case errors.Is(err, apperrors.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, apperrors.ErrInvalidTransition),
		errors.Is(err, apperrors.ErrDuplicateActiveLoan):
		return fiber.StatusConflict
	case errors.Is(err, apperrors.ErrGatewayTimeout):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, apperrors.ErrGatewayError):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
