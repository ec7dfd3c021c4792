package middleware

import (
	"log/slog"
	"runtime/debug"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
)

// Recover turns a handler panic into a 500 response
func Recover(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					slog.Any("panic", r),
					slog.String("request_id", requestID(c)),
					slog.String("method", c.Method()),
					slog.String("path", c.Path()),
					slog.String("stack", string(debug.Stack())),
				)
				err = writeError(c, fiber.StatusInternalServerError, domain.ErrInternal.Code, "An unexpected error occurred")
			}
		}()
		return c.Next()
	}
}
