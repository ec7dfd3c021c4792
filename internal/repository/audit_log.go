package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
)

type AuditLogRepository struct {
	pool PgxPool
}

func NewAuditLogRepository(pool PgxPool) *AuditLogRepository {
	return &AuditLogRepository{pool: pool}
}

// AppendAuditLog inserts one entry. Entries are never updated or deleted.
func (r *AuditLogRepository) AppendAuditLog(ctx context.Context, entry *domain.AuditEntry) error {
	query := `
		INSERT INTO verification_audit_log (id, verification_id, action, actor, success, error, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))
		RETURNING created_at
	`

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	details := entry.Details
	if details == nil {
		details = map[string]string{}
	}

	var createdAt any
	if !entry.CreatedAt.IsZero() {
		createdAt = entry.CreatedAt
	}

	err := r.pool.QueryRow(ctx, query,
		entry.ID,
		entry.VerificationID,
		entry.Action,
		entry.Actor,
		entry.Success,
		nullIfEmpty(entry.Error),
		details,
		createdAt,
	).Scan(&entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("append audit log: %w", err)
	}

	return nil
}

// ListByVerification returns a verification's audit trail in order.
func (r *AuditLogRepository) ListByVerification(ctx context.Context, verificationID uuid.UUID) ([]domain.AuditEntry, error) {
	query := `
		SELECT id, verification_id, action, actor, success, COALESCE(error, ''), details, created_at
		FROM verification_audit_log
		WHERE verification_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, verificationID)
	if err != nil {
		return nil, fmt.Errorf("list audit log: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(
			&e.ID,
			&e.VerificationID,
			&e.Action,
			&e.Actor,
			&e.Success,
			&e.Error,
			&e.Details,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit log: %w", err)
	}

	return entries, nil
}
