package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
)

const verificationColumns = `id, user_id, document_type, user_type, status, COALESCE(decision, ''),
		decision_confidence, risk_score, COALESCE(risk_level, ''), authenticity_score,
		data_validation_score, facial_match_score, requires_manual_review, reasoning,
		next_steps, steps, COALESCE(reviewer_id, ''), COALESCE(review_notes, ''),
		reviewed_at, created_at, updated_at`

type VerificationRepository struct {
	pool PgxPool
}

func NewVerificationRepository(pool PgxPool) *VerificationRepository {
	return &VerificationRepository{pool: pool}
}

func (r *VerificationRepository) Create(ctx context.Context, v *domain.VerificationRecord) error {
	query := `
		INSERT INTO verifications (id, user_id, document_type, user_type, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.Status == "" {
		v.Status = domain.StatusPending
	}

	err := r.pool.QueryRow(ctx, query,
		v.ID,
		v.UserID,
		v.DocumentType,
		v.UserType,
		v.Status,
	).Scan(&v.CreatedAt, &v.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrVerificationExists
		}
		return fmt.Errorf("create verification: %w", err)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVerification(row scanner) (*domain.VerificationRecord, error) {
	var v domain.VerificationRecord
	err := row.Scan(
		&v.ID,
		&v.UserID,
		&v.DocumentType,
		&v.UserType,
		&v.Status,
		&v.Decision,
		&v.DecisionConfidence,
		&v.RiskScore,
		&v.RiskLevel,
		&v.AuthenticityScore,
		&v.DataValidationScore,
		&v.FacialMatchScore,
		&v.RequiresManualReview,
		&v.Reasoning,
		&v.NextSteps,
		&v.Steps,
		&v.ReviewerID,
		&v.ReviewNotes,
		&v.ReviewedAt,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VerificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.VerificationRecord, error) {
	query := `SELECT ` + verificationColumns + ` FROM verifications WHERE id = $1`

	v, err := scanVerification(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrVerificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get verification by id: %w", err)
	}

	return v, nil
}

// ListByStatus returns verifications in a status, oldest first, which is the
// order reviewers work the manual review queue in.
func (r *VerificationRepository) ListByStatus(ctx context.Context, status domain.VerificationStatus, limit, offset int) ([]domain.VerificationRecord, error) {
	query := `SELECT ` + verificationColumns + `
		FROM verifications
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list verifications by status: %w", err)
	}
	defer rows.Close()

	var records []domain.VerificationRecord
	for rows.Next() {
		v, err := scanVerification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan verification: %w", err)
		}
		records = append(records, *v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verifications: %w", err)
	}

	return records, nil
}

// UpdateStatus moves a verification from one status to another. It fails with
// ErrInvalidTransition when the lifecycle forbids the move or the stored
// status is no longer from.
func (r *VerificationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.VerificationStatus) error {
	if !from.CanTransitionTo(to) {
		return domain.ErrInvalidTransition.WithError(fmt.Errorf("%s to %s", from, to))
	}

	query := `
		UPDATE verifications
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`

	result, err := r.pool.Exec(ctx, query, id, from, to)
	if err != nil {
		return fmt.Errorf("update verification status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrInvalidTransition.WithError(fmt.Errorf("verification %s is not %s", id, from))
	}

	return nil
}

// PersistDecision stores the outcome of a run and moves the verification out
// of RUNNING into the status the decision maps to.
func (r *VerificationRepository) PersistDecision(ctx context.Context, id uuid.UUID, decision *domain.VerificationDecision, scores domain.DecisionScores, steps []domain.StepSummary) error {
	query := `
		UPDATE verifications
		SET status = $2,
			decision = $3,
			decision_confidence = $4,
			risk_score = $5,
			risk_level = $6,
			authenticity_score = $7,
			data_validation_score = $8,
			facial_match_score = $9,
			requires_manual_review = $10,
			reasoning = $11,
			next_steps = $12,
			steps = $13,
			updated_at = NOW()
		WHERE id = $1 AND status = 'RUNNING'
	`

	if steps == nil {
		steps = []domain.StepSummary{}
	}

	result, err := r.pool.Exec(ctx, query,
		id,
		decision.Decision.Status(),
		decision.Decision,
		decision.Confidence,
		scores.RiskScore,
		nullIfEmpty(string(scores.RiskLevel)),
		scores.AuthenticityScore,
		scores.DataValidationScore,
		scores.FacialMatchScore,
		decision.RequiresManualReview,
		nonNil(decision.Reasoning),
		nonNil(decision.NextSteps),
		steps,
	)
	if err != nil {
		return fmt.Errorf("persist decision: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrInvalidTransition.WithError(fmt.Errorf("verification %s is not running", id))
	}

	return nil
}

// Review resolves a flagged verification on behalf of a human reviewer.
func (r *VerificationRepository) Review(ctx context.Context, id uuid.UUID, status domain.VerificationStatus, reviewerID, notes string) error {
	if !domain.StatusFlagged.CanTransitionTo(status) {
		return domain.ErrInvalidTransition.WithError(fmt.Errorf("review cannot set %s", status))
	}

	query := `
		UPDATE verifications
		SET status = $2, reviewer_id = $3, review_notes = $4, reviewed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'FLAGGED'
	`

	result, err := r.pool.Exec(ctx, query, id, status, reviewerID, nullIfEmpty(notes))
	if err != nil {
		return fmt.Errorf("review verification: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrInvalidTransition.WithError(fmt.Errorf("verification %s is not flagged", id))
	}

	return nil
}

func (r *VerificationRepository) SaveEmbedding(ctx context.Context, id uuid.UUID, embedding []float64) error {
	query := `UPDATE verifications SET selfie_embedding = $2 WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, id, toVector(embedding)); err != nil {
		return fmt.Errorf("save selfie embedding: %w", err)
	}

	return nil
}

// FindSimilarFaces returns selfies of other users whose cosine similarity to
// embedding is at least threshold, most similar first.
func (r *VerificationRepository) FindSimilarFaces(ctx context.Context, userID uuid.UUID, embedding []float64, threshold float64, limit int) ([]domain.FaceMatch, error) {
	query := `
		SELECT id, user_id, 1 - (selfie_embedding <=> $1) AS similarity
		FROM verifications
		WHERE user_id <> $2
			AND selfie_embedding IS NOT NULL
			AND 1 - (selfie_embedding <=> $1) >= $3
		ORDER BY selfie_embedding <=> $1
		LIMIT $4
	`

	rows, err := r.pool.Query(ctx, query, toVector(embedding), userID, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("find similar faces: %w", err)
	}
	defer rows.Close()

	var matches []domain.FaceMatch
	for rows.Next() {
		var m domain.FaceMatch
		if err := rows.Scan(&m.VerificationID, &m.UserID, &m.Similarity); err != nil {
			return nil, fmt.Errorf("scan face match: %w", err)
		}
		matches = append(matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate face matches: %w", err)
	}

	return matches, nil
}

// ListOutcomesByUser returns the user's finished verification statuses, newest first.
func (r *VerificationRepository) ListOutcomesByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.VerificationStatus, error) {
	query := `
		SELECT status
		FROM verifications
		WHERE user_id = $1 AND status IN ('APPROVED', 'REJECTED', 'FLAGGED')
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list outcomes by user: %w", err)
	}
	defer rows.Close()

	var outcomes []domain.VerificationStatus
	for rows.Next() {
		var status domain.VerificationStatus
		if err := rows.Scan(&status); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		outcomes = append(outcomes, status)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}

	return outcomes, nil
}

// RecentAttempts returns when the user started verifications since the given time.
func (r *VerificationRepository) RecentAttempts(ctx context.Context, userID uuid.UUID, since time.Time) ([]time.Time, error) {
	query := `
		SELECT created_at
		FROM verifications
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("list recent attempts: %w", err)
	}
	defer rows.Close()

	var attempts []time.Time
	for rows.Next() {
		var at time.Time
		if err := rows.Scan(&at); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempts = append(attempts, at)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}

	return attempts, nil
}

func (r *VerificationRepository) CountByStatus(ctx context.Context) (map[domain.VerificationStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM verifications GROUP BY status`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count verifications by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.VerificationStatus]int)
	for rows.Next() {
		var (
			status domain.VerificationStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}

	return counts, nil
}

func toVector(embedding []float64) *pgvector.Vector {
	if len(embedding) == 0 {
		return nil
	}
	floats := make([]float32, len(embedding))
	for i, v := range embedding {
		floats[i] = float32(v)
	}
	vec := pgvector.NewVector(floats)
	return &vec
}
