package middleware

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
)

const verificationIDLocal = "verification_id"

// SetVerificationID tags the request log line with the verification it touched.
func SetVerificationID(c *fiber.Ctx, id uuid.UUID) {
	c.Locals(verificationIDLocal, id.String())
}

// Logger writes one line per request once the handler chain has returned.
func Logger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		// The error handler has not written the response yet.
		status := responseStatus(c, err)

		level := slog.LevelInfo
		switch {
		case status >= fiber.StatusInternalServerError:
			level = slog.LevelError
		case status >= fiber.StatusBadRequest:
			level = slog.LevelWarn
		}

		attrs := []slog.Attr{
			slog.String("request_id", requestID(c)),
			slog.String("method", c.Method()),
			slog.String("route", c.Route().Path),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("ip", c.IP()),
		}
		if id, ok := c.Locals(verificationIDLocal).(string); ok {
			attrs = append(attrs, slog.String("verification_id", id))
		}

		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			attrs = append(attrs, slog.String("error_code", appErr.Code))
		}

		logger.LogAttrs(c.Context(), level, "http request", attrs...)

		return err
	}
}

func responseStatus(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}

	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}

	return fiber.StatusInternalServerError
}

// requestID returns the id set by the requestid middleware, if any.
func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}
