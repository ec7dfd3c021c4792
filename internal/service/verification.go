package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/audit"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/events"
)

const (
	defaultQueueLimit = 20
	maxQueueLimit     = 100
)

type VerificationStore interface {
	Create(ctx context.Context, v *domain.VerificationRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.VerificationRecord, error)
	ListByStatus(ctx context.Context, status domain.VerificationStatus, limit, offset int) ([]domain.VerificationRecord, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.VerificationStatus) error
	PersistDecision(ctx context.Context, id uuid.UUID, decision *domain.VerificationDecision, scores domain.DecisionScores, steps []domain.StepSummary) error
	Review(ctx context.Context, id uuid.UUID, status domain.VerificationStatus, reviewerID, notes string) error
}

type AuditTrail interface {
	ListByVerification(ctx context.Context, verificationID uuid.UUID) ([]domain.AuditEntry, error)
}

type HistoryLoader interface {
	RecordAttempt(ctx context.Context, userID uuid.UUID) error
	Load(ctx context.Context, verificationID, userID uuid.UUID, selfie []byte) (*domain.UserHistory, error)
}

type Pipeline interface {
	RunVerification(ctx context.Context, req *domain.VerificationRequest, history *domain.UserHistory) *domain.VerificationResult
}

type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, verificationID uuid.UUID, data any) error
}

// ReviewInput is a reviewer's resolution of a flagged verification.
type ReviewInput struct {
	ReviewerID string `json:"reviewer_id" validate:"required,max=255"`
	Approve    bool   `json:"approve"`
	Notes      string `json:"notes" validate:"max=2000"`
}

var validate = validator.New()

type VerificationService struct {
	store     VerificationStore
	pipeline  Pipeline
	history   HistoryLoader
	trail     AuditTrail
	publisher EventPublisher
	audit     audit.Logger
	logger    *slog.Logger
}

type Option func(*VerificationService)

func WithHistoryLoader(h HistoryLoader) Option {
	return func(s *VerificationService) {
		s.history = h
	}
}

func WithAuditTrail(t AuditTrail) Option {
	return func(s *VerificationService) {
		s.trail = t
	}
}

func WithPublisher(p EventPublisher) Option {
	return func(s *VerificationService) {
		s.publisher = p
	}
}

func WithAuditLogger(l audit.Logger) Option {
	return func(s *VerificationService) {
		s.audit = l
	}
}

func NewVerificationService(store VerificationStore, pipeline Pipeline, logger *slog.Logger, opts ...Option) *VerificationService {
	s := &VerificationService{
		store:     store,
		pipeline:  pipeline,
		publisher: events.NoOpPublisher{},
		audit:     &audit.NoOpLogger{},
		logger:    logger.With("component", "verification_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify stores a new verification, runs the pipeline on it and persists the
// decision. Pipeline failures are not errors: they come back as a REJECTED
// result. Errors are returned for invalid requests and storage failures.
func (s *VerificationService) Verify(ctx context.Context, req *domain.VerificationRequest) (*domain.VerificationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	record := &domain.VerificationRecord{
		ID:           uuid.New(),
		UserID:       req.UserID,
		DocumentType: req.DocumentType,
		UserType:     req.UserType,
		Status:       domain.StatusPending,
	}
	if err := s.store.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("user %s: %w", req.UserID, err)
	}

	ctx = audit.WithVerificationID(ctx, record.ID)
	s.logAudit(ctx, audit.Event{
		EventType: audit.EventVerificationStarted,
		Success:   true,
		Details: map[string]string{
			"user_id":       req.UserID.String(),
			"document_type": string(req.DocumentType),
			"user_type":     string(req.UserType),
		},
	})

	if err := s.store.UpdateStatus(ctx, record.ID, domain.StatusPending, domain.StatusRunning); err != nil {
		return nil, fmt.Errorf("verification %s: %w", record.ID, err)
	}

	history := s.loadHistory(ctx, record.ID, req)
	result := s.pipeline.RunVerification(ctx, req, history)

	// The decision is recorded even if the caller went away mid-run.
	persistCtx := context.WithoutCancel(ctx)
	if err := s.store.PersistDecision(persistCtx, record.ID, result.Decision, scoresOf(result), domain.SummarizeSteps(result.Steps)); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist decision",
			slog.String("verification_id", record.ID.String()),
			slog.String("error", err.Error()),
		)
		return nil, domain.ErrInternal.WithError(fmt.Errorf("persist decision: %w", err))
	}

	s.logAudit(persistCtx, audit.Event{
		EventType: audit.EventVerificationDecided,
		Success:   result.Success,
		Details: map[string]string{
			"status":     string(result.Status),
			"decision":   string(result.Decision.Decision),
			"rule":       result.Decision.Rule,
			"risk_score": strconv.FormatFloat(result.RiskScore, 'f', 4, 64),
		},
	})

	s.publish(persistCtx, events.RoutingDecided, record.ID, decidedEvent(record.UserID, result))

	s.logger.InfoContext(ctx, "verification completed",
		slog.String("verification_id", record.ID.String()),
		slog.String("status", string(result.Status)),
		slog.Float64("risk_score", result.RiskScore),
	)

	return result, nil
}

// loadHistory never fails the verification: without history the user is
// scored as new.
func (s *VerificationService) loadHistory(ctx context.Context, id uuid.UUID, req *domain.VerificationRequest) *domain.UserHistory {
	if s.history == nil {
		return nil
	}

	if err := s.history.RecordAttempt(ctx, req.UserID); err != nil {
		s.logger.WarnContext(ctx, "failed to record attempt",
			slog.String("user_id", req.UserID.String()),
			slog.String("error", err.Error()),
		)
	}

	h, err := s.history.Load(ctx, id, req.UserID, req.SelfieImage)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load user history",
			slog.String("verification_id", id.String()),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return h
}

func (s *VerificationService) Get(ctx context.Context, id uuid.UUID) (*domain.VerificationRecord, error) {
	return s.store.GetByID(ctx, id)
}

// ListReviewQueue returns flagged verifications, oldest first.
func (s *VerificationService) ListReviewQueue(ctx context.Context, limit, offset int) ([]domain.VerificationRecord, error) {
	if limit <= 0 {
		limit = defaultQueueLimit
	}
	if limit > maxQueueLimit {
		limit = maxQueueLimit
	}
	if offset < 0 {
		offset = 0
	}

	records, err := s.store.ListByStatus(ctx, domain.StatusFlagged, limit, offset)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []domain.VerificationRecord{}
	}
	return records, nil
}

// Review resolves a FLAGGED verification. Any other current status yields
// ErrInvalidTransition.
func (s *VerificationService) Review(ctx context.Context, id uuid.UUID, in ReviewInput) (*domain.VerificationRecord, error) {
	if err := validate.Struct(in); err != nil {
		return nil, domain.ErrValidationFailed.WithError(err)
	}

	status := domain.StatusRejected
	if in.Approve {
		status = domain.StatusApproved
	}

	ctx = audit.WithVerificationID(ctx, id)

	if err := s.store.Review(ctx, id, status, in.ReviewerID, in.Notes); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			if _, getErr := s.store.GetByID(ctx, id); errors.Is(getErr, domain.ErrVerificationNotFound) {
				return nil, getErr
			}
		}
		s.logAudit(ctx, audit.Event{
			EventType: audit.EventVerificationReviewed,
			Actor:     in.ReviewerID,
			Success:   false,
			Error:     err.Error(),
			Details:   map[string]string{"status": string(status)},
		})
		return nil, err
	}

	s.logAudit(ctx, audit.Event{
		EventType: audit.EventVerificationReviewed,
		Actor:     in.ReviewerID,
		Success:   true,
		Details:   map[string]string{"status": string(status)},
	})

	record, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.RoutingReviewed, id, events.Decided{
		VerificationID:       record.ID,
		UserID:               record.UserID,
		Status:               record.Status,
		Decision:             record.Decision,
		Confidence:           record.DecisionConfidence,
		RiskScore:            record.RiskScore,
		RiskLevel:            record.RiskLevel,
		RequiresManualReview: record.RequiresManualReview,
		ReviewerID:           in.ReviewerID,
	})

	return record, nil
}

// AuditTrail returns the audit log of an existing verification.
func (s *VerificationService) AuditTrail(ctx context.Context, id uuid.UUID) ([]domain.AuditEntry, error) {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if s.trail == nil {
		return []domain.AuditEntry{}, nil
	}

	entries, err := s.trail.ListByVerification(ctx, id)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	return entries, nil
}

func (s *VerificationService) publish(ctx context.Context, routingKey string, id uuid.UUID, data any) {
	if err := s.publisher.Publish(ctx, routingKey, id, data); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event",
			slog.String("routing_key", routingKey),
			slog.String("verification_id", id.String()),
			slog.String("error", err.Error()),
		)
	}
}

// logAudit logs an audit event, ignoring errors (fire-and-forget)
func (s *VerificationService) logAudit(ctx context.Context, event audit.Event) {
	if err := s.audit.Log(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to write audit event",
			slog.String("event_type", string(event.EventType)),
			slog.String("error", err.Error()),
		)
	}
}

func scoresOf(result *domain.VerificationResult) domain.DecisionScores {
	scores := domain.DecisionScores{
		RiskScore:           result.RiskScore,
		AuthenticityScore:   result.AuthenticityScore,
		DataValidationScore: result.DataValidationScore,
		FacialMatchScore:    result.FacialMatchScore,
	}
	if result.Assessment != nil {
		scores.RiskLevel = result.Assessment.RiskLevel
	}
	return scores
}

func decidedEvent(userID uuid.UUID, result *domain.VerificationResult) events.Decided {
	e := events.Decided{
		VerificationID: result.VerificationID,
		UserID:         userID,
		Status:         result.Status,
		RiskScore:      result.RiskScore,
	}
	if result.Decision != nil {
		e.Decision = result.Decision.Decision
		e.Confidence = result.Decision.Confidence
		e.RequiresManualReview = result.Decision.RequiresManualReview
	}
	if result.Assessment != nil {
		e.RiskLevel = result.Assessment.RiskLevel
	}
	return e
}
