package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorHandler renders every error as {"error": {"code", "message"}}.
// AppErrors keep their status; 5xx are logged with the wrapped cause.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			if appErr.StatusCode >= fiber.StatusInternalServerError {
				logger.ErrorContext(c.UserContext(), "request failed",
					slog.String("request_id", requestID(c)),
					slog.String("path", c.Path()),
					slog.String("code", appErr.Code),
					slog.Any("error", appErr.Err),
				)
			}
			return writeError(c, appErr.StatusCode, appErr.Code, appErr.Message)
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return writeError(c, fiberErr.Code, "HTTP_ERROR", fiberErr.Message)
		}

		logger.ErrorContext(c.UserContext(), "unhandled error",
			slog.String("request_id", requestID(c)),
			slog.String("path", c.Path()),
			slog.Any("error", err),
		)
		return writeError(c, fiber.StatusInternalServerError, domain.ErrInternal.Code, "An unexpected error occurred")
	}
}

func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": errorBody{Code: code, Message: message},
	})
}
