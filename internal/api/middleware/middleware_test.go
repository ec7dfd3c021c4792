package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeErrorBody(t *testing.T, body io.Reader) errorBody {
	t.Helper()
	var payload struct {
		Error errorBody `json:"error"`
	}
	require.NoError(t, json.NewDecoder(body).Decode(&payload))
	return payload.Error
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "app error",
			err:        domain.ErrVerificationNotFound,
			wantStatus: 404,
			wantCode:   "VERIFICATION_NOT_FOUND",
		},
		{
			name:       "wrapped app error",
			err:        fmt.Errorf("create verification: %w", domain.ErrInvalidImage.WithError(errors.New("too large"))),
			wantStatus: 422,
			wantCode:   "INVALID_IMAGE",
		},
		{
			name:       "internal app error",
			err:        domain.ErrInternal.WithError(errors.New("db down")),
			wantStatus: 500,
			wantCode:   "INTERNAL_ERROR",
		},
		{
			name:       "fiber error",
			err:        fiber.ErrMethodNotAllowed,
			wantStatus: 405,
			wantCode:   "HTTP_ERROR",
		},
		{
			name:       "unknown error",
			err:        errors.New("boom"),
			wantStatus: 500,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(discardLogger())})
			app.Get("/", func(c *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCode, decodeErrorBody(t, resp.Body).Code)
		})
	}
}

func TestErrorHandler_HidesInternalCause(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(discardLogger())})
	app.Get("/", func(c *fiber.Ctx) error {
		return errors.New("password=hunter2")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	body, _ := io.ReadAll(resp.Body)
	assert.NotContains(t, string(body), "hunter2")
}

func TestRecover(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger)})
	app.Use(requestid.New())
	app.Use(Recover(logger))
	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("nil map write")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/panic", nil))
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
	assert.Equal(t, "INTERNAL_ERROR", decodeErrorBody(t, resp.Body).Code)

	assert.Contains(t, logs.String(), "panic recovered")
	assert.Contains(t, logs.String(), "nil map write")
	assert.Contains(t, logs.String(), resp.Header.Get(fiber.HeaderXRequestID))
}

func TestLogger_IncludesRequestID(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	app := fiber.New()
	app.Use(requestid.New())
	app.Use(Logger(logger))
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(logs.String())), &entry))
	assert.Equal(t, "http request", entry["msg"])
	assert.Equal(t, resp.Header.Get(fiber.HeaderXRequestID), entry["request_id"])
	assert.Equal(t, float64(200), entry["status"])
}

func TestLogger_VerificationContext(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name      string
		handler   fiber.Handler
		wantLevel string
		wantCode  any
		status    float64
	}{
		{
			name: "success",
			handler: func(c *fiber.Ctx) error {
				SetVerificationID(c, id)
				return c.SendString("ok")
			},
			wantLevel: "INFO",
			status:    200,
		},
		{
			name: "app error status is logged before the error handler runs",
			handler: func(c *fiber.Ctx) error {
				SetVerificationID(c, id)
				return domain.ErrVerificationNotFound
			},
			wantLevel: "WARN",
			wantCode:  "VERIFICATION_NOT_FOUND",
			status:    404,
		},
		{
			name: "unknown error is a server error",
			handler: func(c *fiber.Ctx) error {
				SetVerificationID(c, id)
				return errors.New("boom")
			},
			wantLevel: "ERROR",
			status:    500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&logs, nil))

			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(discardLogger())})
			app.Use(Logger(logger))
			app.Get("/v1/verifications/:id", tt.handler)

			resp, err := app.Test(httptest.NewRequest("GET", "/v1/verifications/"+id.String(), nil))
			require.NoError(t, err)
			assert.Equal(t, int(tt.status), resp.StatusCode)

			var entry map[string]any
			require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(logs.String())), &entry))
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, tt.status, entry["status"])
			assert.Equal(t, id.String(), entry["verification_id"])
			assert.Equal(t, "/v1/verifications/:id", entry["route"])
			assert.Equal(t, tt.wantCode, entry["error_code"])
		})
	}
}
