package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
)

// PgxPool is the subset of *pgxpool.Pool used by repositories.
// pgxmock.PgxPoolIface satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// VerificationRepositoryInterface defines operations for verification records
type VerificationRepositoryInterface interface {
	Create(ctx context.Context, v *domain.VerificationRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.VerificationRecord, error)
	ListByStatus(ctx context.Context, status domain.VerificationStatus, limit, offset int) ([]domain.VerificationRecord, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.VerificationStatus) error
	PersistDecision(ctx context.Context, id uuid.UUID, decision *domain.VerificationDecision, scores domain.DecisionScores, steps []domain.StepSummary) error
	Review(ctx context.Context, id uuid.UUID, status domain.VerificationStatus, reviewerID, notes string) error
	SaveEmbedding(ctx context.Context, id uuid.UUID, embedding []float64) error
	FindSimilarFaces(ctx context.Context, userID uuid.UUID, embedding []float64, threshold float64, limit int) ([]domain.FaceMatch, error)
	ListOutcomesByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.VerificationStatus, error)
	RecentAttempts(ctx context.Context, userID uuid.UUID, since time.Time) ([]time.Time, error)
	CountByStatus(ctx context.Context) (map[domain.VerificationStatus]int, error)
}

// AuditLogRepositoryInterface defines operations for the verification audit log
type AuditLogRepositoryInterface interface {
	AppendAuditLog(ctx context.Context, entry *domain.AuditEntry) error
	ListByVerification(ctx context.Context, verificationID uuid.UUID) ([]domain.AuditEntry, error)
}
