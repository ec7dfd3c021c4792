package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
)

// VerificationRepository Tests

func TestVerificationRepository_Create(t *testing.T) {
	verificationID := uuid.New()
	userID := uuid.New()
	now := time.Now()

	tests := []struct {
		name         string
		verification *domain.VerificationRecord
		mockSetup    func(mock pgxmock.PgxPoolIface)
		wantErr      error
	}{
		{
			name: "successful creation",
			verification: &domain.VerificationRecord{
				ID:           verificationID,
				UserID:       userID,
				DocumentType: domain.DocumentPassport,
				UserType:     domain.UserCustomer,
			},
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows([]string{"created_at", "updated_at"}).
					AddRow(now, now)

				mock.ExpectQuery(`INSERT INTO verifications`).
					WithArgs(verificationID, userID, domain.DocumentPassport, domain.UserCustomer, domain.StatusPending).
					WillReturnRows(rows)
			},
		},
		{
			name: "auto-generated id",
			verification: &domain.VerificationRecord{
				UserID:       userID,
				DocumentType: domain.DocumentDriversLicense,
				UserType:     domain.UserDriver,
			},
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows([]string{"created_at", "updated_at"}).
					AddRow(now, now)

				mock.ExpectQuery(`INSERT INTO verifications`).
					WithArgs(pgxmock.AnyArg(), userID, domain.DocumentDriversLicense, domain.UserDriver, domain.StatusPending).
					WillReturnRows(rows)
			},
		},
		{
			name: "verification already exists",
			verification: &domain.VerificationRecord{
				ID:           verificationID,
				UserID:       userID,
				DocumentType: domain.DocumentPassport,
				UserType:     domain.UserCustomer,
			},
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO verifications`).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(errors.New("duplicate key value violates unique constraint (23505)"))
			},
			wantErr: domain.ErrVerificationExists,
		},
		{
			name: "database error",
			verification: &domain.VerificationRecord{
				UserID:       userID,
				DocumentType: domain.DocumentPassport,
				UserType:     domain.UserCustomer,
			},
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO verifications`).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(errors.New("database unavailable"))
			},
			wantErr: errors.New("create verification: database unavailable"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewVerificationRepository(mock)
			err = repo.Create(context.Background(), tt.verification)

			if tt.wantErr != nil {
				require.Error(t, err)
				if errors.Is(tt.wantErr, domain.ErrVerificationExists) {
					assert.ErrorIs(t, err, domain.ErrVerificationExists)
				} else {
					assert.Contains(t, err.Error(), "create verification")
				}
			} else {
				require.NoError(t, err)
				assert.NotEqual(t, uuid.Nil, tt.verification.ID)
				assert.Equal(t, domain.StatusPending, tt.verification.Status)
				assert.False(t, tt.verification.CreatedAt.IsZero())
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

var verificationRowColumns = []string{
	"id", "user_id", "document_type", "user_type", "status", "decision",
	"decision_confidence", "risk_score", "risk_level", "authenticity_score",
	"data_validation_score", "facial_match_score", "requires_manual_review", "reasoning",
	"next_steps", "steps", "reviewer_id", "review_notes",
	"reviewed_at", "created_at", "updated_at",
}

func TestVerificationRepository_GetByID(t *testing.T) {
	verificationID := uuid.New()
	userID := uuid.New()
	now := time.Now()
	steps := []domain.StepSummary{
		{StepID: "document_authenticity", Type: domain.StepDocumentAuthenticity, Required: true, Success: true, Attempts: 1},
	}

	tests := []struct {
		name      string
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name: "successful retrieval",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(verificationRowColumns).AddRow(
					verificationID, userID, domain.DocumentPassport, domain.UserCustomer, domain.StatusFlagged, domain.DecisionFlagForReview,
					0.7, 0.2, domain.RiskLow, 0.95,
					0.8, 0.9, true, []string{"Overall risk level: LOW (0.20)"},
					[]string{"Add to manual review queue"}, steps, "", "",
					&now, now, now,
				)

				mock.ExpectQuery(`FROM verifications WHERE id = \$1`).
					WithArgs(verificationID).
					WillReturnRows(rows)
			},
		},
		{
			name: "verification not found",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM verifications WHERE id = \$1`).
					WithArgs(verificationID).
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: domain.ErrVerificationNotFound,
		},
		{
			name: "database error",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM verifications WHERE id = \$1`).
					WithArgs(verificationID).
					WillReturnError(errors.New("connection reset"))
			},
			wantErr: errors.New("get verification by id: connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewVerificationRepository(mock)
			got, err := repo.GetByID(context.Background(), verificationID)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Nil(t, got)
				if errors.Is(tt.wantErr, domain.ErrVerificationNotFound) {
					assert.ErrorIs(t, err, domain.ErrVerificationNotFound)
				} else {
					assert.Contains(t, err.Error(), "get verification by id")
				}
			} else {
				require.NoError(t, err)
				require.NotNil(t, got)
				assert.Equal(t, verificationID, got.ID)
				assert.Equal(t, domain.StatusFlagged, got.Status)
				assert.Equal(t, domain.DecisionFlagForReview, got.Decision)
				assert.Equal(t, domain.RiskLow, got.RiskLevel)
				assert.True(t, got.RequiresManualReview)
				assert.Equal(t, steps, got.Steps)
				assert.Len(t, got.Reasoning, 1)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestVerificationRepository_ListByStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	rows := pgxmock.NewRows(verificationRowColumns)
	for i := 0; i < 2; i++ {
		rows.AddRow(
			uuid.New(), uuid.New(), domain.DocumentNationalID, domain.UserCustomer, domain.StatusFlagged, domain.DecisionFlagForReview,
			0.4, 0.5, domain.RiskMedium, 0.8,
			0.6, 0.9, true, []string{}, []string{}, []domain.StepSummary{}, "", "",
			&now, now, now,
		)
	}

	mock.ExpectQuery(`FROM verifications`).
		WithArgs(domain.StatusFlagged, 20, 0).
		WillReturnRows(rows)

	repo := NewVerificationRepository(mock)
	got, err := repo.ListByStatus(context.Background(), domain.StatusFlagged, 20, 0)

	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerificationRepository_UpdateStatus(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name      string
		from, to  domain.VerificationStatus
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name: "pending to running",
			from: domain.StatusPending,
			to:   domain.StatusRunning,
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`UPDATE verifications`).
					WithArgs(id, domain.StatusPending, domain.StatusRunning).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			},
		},
		{
			name:      "forbidden transition never reaches the database",
			from:      domain.StatusApproved,
			to:        domain.StatusFlagged,
			mockSetup: func(mock pgxmock.PgxPoolIface) {},
			wantErr:   domain.ErrInvalidTransition,
		},
		{
			name: "stored status changed concurrently",
			from: domain.StatusPending,
			to:   domain.StatusRunning,
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`UPDATE verifications`).
					WithArgs(id, domain.StatusPending, domain.StatusRunning).
					WillReturnResult(pgxmock.NewResult("UPDATE", 0))
			},
			wantErr: domain.ErrInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			err = NewVerificationRepository(mock).UpdateStatus(context.Background(), id, tt.from, tt.to)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestVerificationRepository_PersistDecision(t *testing.T) {
	id := uuid.New()
	decision := &domain.VerificationDecision{
		Decision:   domain.DecisionApprove,
		Confidence: 1.0,
		Reasoning:  []string{"Overall risk level: LOW (0.05)"},
		Automated:  true,
		NextSteps:  []string{"Update verification status to APPROVED"},
	}
	scores := domain.DecisionScores{
		RiskScore:           0.05,
		RiskLevel:           domain.RiskLow,
		AuthenticityScore:   1.0,
		DataValidationScore: 1.0,
		FacialMatchScore:    0.95,
	}

	t.Run("stores decision", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`UPDATE verifications`).
			WithArgs(
				id,
				domain.StatusApproved,
				domain.DecisionApprove,
				1.0,
				0.05,
				pgxmock.AnyArg(),
				1.0,
				1.0,
				0.95,
				false,
				pgxmock.AnyArg(),
				pgxmock.AnyArg(),
				pgxmock.AnyArg(),
			).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err = NewVerificationRepository(mock).PersistDecision(context.Background(), id, decision, scores, nil)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("verification not running", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`UPDATE verifications`).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err = NewVerificationRepository(mock).PersistDecision(context.Background(), id, decision, scores, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`UPDATE verifications`).
			WillReturnError(errors.New("deadlock detected"))

		err = NewVerificationRepository(mock).PersistDecision(context.Background(), id, decision, scores, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "persist decision")
	})
}

func TestVerificationRepository_Review(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name      string
		status    domain.VerificationStatus
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name:   "approve flagged verification",
			status: domain.StatusApproved,
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`UPDATE verifications`).
					WithArgs(id, domain.StatusApproved, "reviewer-1", pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			},
		},
		{
			name:      "review cannot set running",
			status:    domain.StatusRunning,
			mockSetup: func(mock pgxmock.PgxPoolIface) {},
			wantErr:   domain.ErrInvalidTransition,
		},
		{
			name:   "verification is not flagged",
			status: domain.StatusRejected,
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`UPDATE verifications`).
					WithArgs(id, domain.StatusRejected, "reviewer-1", pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("UPDATE", 0))
			},
			wantErr: domain.ErrInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			err = NewVerificationRepository(mock).Review(context.Background(), id, tt.status, "reviewer-1", "documents look fine")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestVerificationRepository_FindSimilarFaces(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	otherUser := uuid.New()
	otherVerification := uuid.New()

	rows := pgxmock.NewRows([]string{"id", "user_id", "similarity"}).
		AddRow(otherVerification, otherUser, 0.97)

	mock.ExpectQuery(`FROM verifications`).
		WithArgs(pgxmock.AnyArg(), userID, 0.92, 5).
		WillReturnRows(rows)

	got, err := NewVerificationRepository(mock).FindSimilarFaces(context.Background(), userID, []float64{0.1, 0.2, 0.3}, 0.92, 5)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.FaceMatch{VerificationID: otherVerification, UserID: otherUser, Similarity: 0.97}, got[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerificationRepository_History(t *testing.T) {
	userID := uuid.New()
	now := time.Now()

	t.Run("outcomes", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		rows := pgxmock.NewRows([]string{"status"}).
			AddRow(domain.StatusRejected).
			AddRow(domain.StatusApproved)

		mock.ExpectQuery(`SELECT status`).
			WithArgs(userID, 50).
			WillReturnRows(rows)

		got, err := NewVerificationRepository(mock).ListOutcomesByUser(context.Background(), userID, 50)
		require.NoError(t, err)
		assert.Equal(t, []domain.VerificationStatus{domain.StatusRejected, domain.StatusApproved}, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("recent attempts", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		since := now.Add(-time.Hour)
		rows := pgxmock.NewRows([]string{"created_at"}).
			AddRow(now).
			AddRow(now.Add(-10 * time.Minute))

		mock.ExpectQuery(`SELECT created_at`).
			WithArgs(userID, since).
			WillReturnRows(rows)

		got, err := NewVerificationRepository(mock).RecentAttempts(context.Background(), userID, since)
		require.NoError(t, err)
		assert.Len(t, got, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT status`).
			WillReturnError(errors.New("timeout"))

		_, err = NewVerificationRepository(mock).ListOutcomesByUser(context.Background(), userID, 50)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "list outcomes by user")
	})
}

func TestVerificationRepository_CountByStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"status", "count"}).
		AddRow(domain.StatusApproved, 12).
		AddRow(domain.StatusFlagged, 3)

	mock.ExpectQuery(`GROUP BY status`).WillReturnRows(rows)

	got, err := NewVerificationRepository(mock).CountByStatus(context.Background())

	require.NoError(t, err)
	assert.Equal(t, map[domain.VerificationStatus]int{
		domain.StatusApproved: 12,
		domain.StatusFlagged:  3,
	}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// AuditLogRepository Tests

func TestAuditLogRepository_AppendAuditLog(t *testing.T) {
	verificationID := uuid.New()
	now := time.Now()

	t.Run("appends entry", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		entry := &domain.AuditEntry{
			VerificationID: verificationID,
			Action:         "VERIFICATION_DECIDED",
			Actor:          "system",
			Success:        true,
			Details:        map[string]string{"decision": "APPROVE"},
			CreatedAt:      now,
		}

		mock.ExpectQuery(`INSERT INTO verification_audit_log`).
			WithArgs(
				pgxmock.AnyArg(),
				verificationID,
				"VERIFICATION_DECIDED",
				"system",
				true,
				pgxmock.AnyArg(),
				map[string]string{"decision": "APPROVE"},
				pgxmock.AnyArg(),
			).
			WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))

		err = NewAuditLogRepository(mock).AppendAuditLog(context.Background(), entry)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, entry.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`INSERT INTO verification_audit_log`).
			WillReturnError(errors.New("foreign key violation"))

		err = NewAuditLogRepository(mock).AppendAuditLog(context.Background(), &domain.AuditEntry{VerificationID: verificationID})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "append audit log")
	})
}

func TestAuditLogRepository_ListByVerification(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	verificationID := uuid.New()
	now := time.Now()

	rows := pgxmock.NewRows([]string{"id", "verification_id", "action", "actor", "success", "error", "details", "created_at"}).
		AddRow(uuid.New(), verificationID, "VERIFICATION_STARTED", "system", true, "", map[string]string{}, now).
		AddRow(uuid.New(), verificationID, "STEP_FAILED", "system", false, "INSUFFICIENT_SIGNAL: no face", map[string]string{"step": "facial_recognition"}, now)

	mock.ExpectQuery(`FROM verification_audit_log`).
		WithArgs(verificationID).
		WillReturnRows(rows)

	got, err := NewAuditLogRepository(mock).ListByVerification(context.Background(), verificationID)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "STEP_FAILED", got[1].Action)
	assert.Equal(t, "facial_recognition", got[1].Details["step"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Helper function to test unique violation detection
func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "postgres error code 23505",
			err:  fmt.Errorf("pq: duplicate key value violates unique constraint (23505)"),
			want: true,
		},
		{
			name: "error contains unique",
			err:  fmt.Errorf("ERROR: unique constraint violated"),
			want: true,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "different error",
			err:  fmt.Errorf("connection timeout"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err))
		})
	}
}

func TestNullIfEmpty(t *testing.T) {
	assert.Nil(t, nullIfEmpty(""))
	require.NotNil(t, nullIfEmpty("notes"))
	assert.Equal(t, "notes", *nullIfEmpty("notes"))
	assert.Equal(t, []string{}, nonNil(nil))
}
