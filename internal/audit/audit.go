package audit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
)

// EventType defines the type of auditable event
type EventType string

const (
	EventTextDetected         EventType = "TEXT_DETECTED"
	EventFacesDetected        EventType = "FACES_DETECTED"
	EventFacesCompared        EventType = "FACES_COMPARED"
	EventLivenessChecked      EventType = "LIVENESS_CHECKED"
	EventStepFailed           EventType = "STEP_FAILED"
	EventVerificationStarted  EventType = "VERIFICATION_STARTED"
	EventVerificationDecided  EventType = "VERIFICATION_DECIDED"
	EventVerificationFailed   EventType = "VERIFICATION_FAILED"
	EventVerificationReviewed EventType = "VERIFICATION_REVIEWED"
)

// ActorSystem is the actor recorded for automated pipeline actions
const ActorSystem = "system"

// Event represents an auditable action taken on a verification
type Event struct {
	ID             uuid.UUID         `json:"id"`
	Timestamp      time.Time         `json:"timestamp"`
	VerificationID uuid.UUID         `json:"verification_id"`
	EventType      EventType         `json:"event_type"`
	Actor          string            `json:"actor"`
	Provider       string            `json:"provider,omitempty"`
	Success        bool              `json:"success"`
	Error          string            `json:"error,omitempty"`
	Details        map[string]string `json:"details,omitempty"`
}

// Logger defines the interface for audit logging
type Logger interface {
	Log(ctx context.Context, event Event) error
}

type ctxKey struct{}

// WithVerificationID tags ctx so that events logged deeper in the call
// chain (providers, steps) are attributed to the verification.
func WithVerificationID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// VerificationIDFromContext returns the verification ID set by WithVerificationID.
func VerificationIDFromContext(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(ctxKey{}).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

func normalize(ctx context.Context, event *Event) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.VerificationID == uuid.Nil {
		event.VerificationID = VerificationIDFromContext(ctx)
	}
	if event.Actor == "" {
		event.Actor = ActorSystem
	}
}

// SlogLogger implements Logger using slog
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates a new audit logger using slog
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{
		logger: logger.With("component", "audit"),
	}
}

// Log records an audit event
func (l *SlogLogger) Log(ctx context.Context, event Event) error {
	normalize(ctx, &event)

	eventJSON, err := json.Marshal(event)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to marshal audit event",
			slog.String("error", err.Error()),
			slog.String("event_type", string(event.EventType)),
		)
		return err
	}

	l.logger.InfoContext(ctx, "audit_event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", string(event.EventType)),
		slog.String("verification_id", event.VerificationID.String()),
		slog.String("actor", event.Actor),
		slog.Bool("success", event.Success),
		slog.String("event_data", string(eventJSON)),
	)

	return nil
}

// Store persists audit entries
type Store interface {
	AppendAuditLog(ctx context.Context, entry *domain.AuditEntry) error
}

// StoreLogger writes verification-scoped events to the audit log table.
// Events without a verification ID are dropped.
type StoreLogger struct {
	store Store
}

func NewStoreLogger(store Store) *StoreLogger {
	return &StoreLogger{store: store}
}

func (l *StoreLogger) Log(ctx context.Context, event Event) error {
	normalize(ctx, &event)
	if event.VerificationID == uuid.Nil {
		return nil
	}

	details := event.Details
	if event.Provider != "" {
		details = make(map[string]string, len(event.Details)+1)
		for k, v := range event.Details {
			details[k] = v
		}
		details["provider"] = event.Provider
	}

	return l.store.AppendAuditLog(ctx, &domain.AuditEntry{
		ID:             event.ID,
		VerificationID: event.VerificationID,
		Action:         string(event.EventType),
		Actor:          event.Actor,
		Success:        event.Success,
		Error:          event.Error,
		Details:        details,
		CreatedAt:      event.Timestamp,
	})
}

// MultiLogger fans an event out to several loggers, joining their errors
type MultiLogger []Logger

func (m MultiLogger) Log(ctx context.Context, event Event) error {
	normalize(ctx, &event)

	var errs []error
	for _, l := range m {
		if err := l.Log(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NoOpLogger is a logger that does nothing (for testing or when audit is disabled)
type NoOpLogger struct{}

// Log does nothing and returns nil
func (l *NoOpLogger) Log(_ context.Context, _ Event) error {
	return nil
}
