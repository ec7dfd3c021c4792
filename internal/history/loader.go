// Package history builds the UserHistory the behavioral risk factor is scored
// from: prior verification outcomes, the recent attempt rate and whether the
// selfie matches a face already enrolled by another user.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/provider"
)

const (
	DefaultDuplicateThreshold = 0.92
	DefaultOutcomeLimit       = 50
	DefaultAttemptWindow      = 24 * time.Hour
)

// Store is the verification storage the loader reads from.
type Store interface {
	ListOutcomesByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.VerificationStatus, error)
	RecentAttempts(ctx context.Context, userID uuid.UUID, since time.Time) ([]time.Time, error)
	SaveEmbedding(ctx context.Context, id uuid.UUID, embedding []float64) error
	FindSimilarFaces(ctx context.Context, userID uuid.UUID, embedding []float64, threshold float64, limit int) ([]domain.FaceMatch, error)
}

// AttemptTracker records verification attempts outside the primary store.
type AttemptTracker interface {
	RecordAttempt(ctx context.Context, userID uuid.UUID, at time.Time) error
	AttemptsSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]time.Time, error)
}

type Loader struct {
	store              Store
	tracker            AttemptTracker
	embedder           provider.FaceEmbedder
	duplicateThreshold float64
	outcomeLimit       int
	window             time.Duration
	now                func() time.Time
	logger             *slog.Logger
}

type Option func(*Loader)

// WithAttemptTracker reads attempt timestamps from tracker instead of the store.
func WithAttemptTracker(tracker AttemptTracker) Option {
	return func(l *Loader) {
		l.tracker = tracker
	}
}

// WithFaceEmbedder enables the duplicate-face check.
func WithFaceEmbedder(embedder provider.FaceEmbedder) Option {
	return func(l *Loader) {
		l.embedder = embedder
	}
}

func WithDuplicateThreshold(threshold float64) Option {
	return func(l *Loader) {
		l.duplicateThreshold = threshold
	}
}

func WithAttemptWindow(window time.Duration) Option {
	return func(l *Loader) {
		l.window = window
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Loader) {
		l.now = now
	}
}

func NewLoader(store Store, logger *slog.Logger, opts ...Option) *Loader {
	l := &Loader{
		store:              store,
		duplicateThreshold: DefaultDuplicateThreshold,
		outcomeLimit:       DefaultOutcomeLimit,
		window:             DefaultAttemptWindow,
		now:                time.Now,
		logger:             logger.With("component", "history"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RecordAttempt notes that userID started a verification. Without a tracker
// the verification row itself is the record, so this is a no-op.
func (l *Loader) RecordAttempt(ctx context.Context, userID uuid.UUID) error {
	if l.tracker == nil {
		return nil
	}
	if err := l.tracker.RecordAttempt(ctx, userID, l.now()); err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// Load returns the user's history for verificationID. It returns nil for a
// user with no prior outcomes, no other recent attempts and nothing suspicious.
func (l *Loader) Load(ctx context.Context, verificationID, userID uuid.UUID, selfie []byte) (*domain.UserHistory, error) {
	outcomes, err := l.store.ListOutcomesByUser(ctx, userID, l.outcomeLimit)
	if err != nil {
		return nil, fmt.Errorf("load outcomes: %w", err)
	}

	attempts, err := l.attempts(ctx, userID)
	if err != nil {
		return nil, err
	}

	h := &domain.UserHistory{
		UserID:             userID,
		PriorOutcomes:      outcomes,
		RecentAttempts:     attempts,
		SuspiciousActivity: l.duplicateFace(ctx, verificationID, userID, selfie),
	}

	if len(h.PriorOutcomes) == 0 && len(h.RecentAttempts) <= 1 && !h.SuspiciousActivity {
		return nil, nil
	}

	return h, nil
}

func (l *Loader) attempts(ctx context.Context, userID uuid.UUID) ([]time.Time, error) {
	since := l.now().Add(-l.window)

	if l.tracker != nil {
		attempts, err := l.tracker.AttemptsSince(ctx, userID, since)
		if err == nil {
			return attempts, nil
		}
		l.logger.WarnContext(ctx, "attempt tracker unavailable, falling back to store",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()),
		)
	}

	attempts, err := l.store.RecentAttempts(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("load recent attempts: %w", err)
	}
	return attempts, nil
}

// duplicateFace stores the selfie embedding and reports whether another user
// already enrolled a face at least duplicateThreshold similar. Failures only
// disable the signal.
func (l *Loader) duplicateFace(ctx context.Context, verificationID, userID uuid.UUID, selfie []byte) bool {
	if l.embedder == nil || len(selfie) == 0 {
		return false
	}

	embedding, err := l.embedder.EmbedFace(ctx, selfie)
	if err != nil {
		l.logger.WarnContext(ctx, "selfie embedding failed",
			slog.String("verification_id", verificationID.String()),
			slog.String("error", err.Error()),
		)
		return false
	}

	matches, err := l.store.FindSimilarFaces(ctx, userID, embedding, l.duplicateThreshold, 1)
	if err != nil {
		l.logger.WarnContext(ctx, "duplicate face search failed",
			slog.String("verification_id", verificationID.String()),
			slog.String("error", err.Error()),
		)
		return false
	}

	if err := l.store.SaveEmbedding(ctx, verificationID, embedding); err != nil {
		l.logger.WarnContext(ctx, "failed to save selfie embedding",
			slog.String("verification_id", verificationID.String()),
			slog.String("error", err.Error()),
		)
	}

	if len(matches) == 0 {
		return false
	}

	l.logger.WarnContext(ctx, "selfie matches another user",
		slog.String("verification_id", verificationID.String()),
		slog.String("matched_verification_id", matches[0].VerificationID.String()),
		slog.Float64("similarity", matches[0].Similarity),
	)
	return true
}
