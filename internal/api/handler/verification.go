package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/service"
)

const (
	maxImageSize = 10 * 1024 * 1024 // 10MB
)

// Rekognition only decodes JPEG and PNG.
var validImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// VerificationService interface for the service
type VerificationService interface {
	Verify(ctx context.Context, req *domain.VerificationRequest) (*domain.VerificationResult, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.VerificationRecord, error)
	ListReviewQueue(ctx context.Context, limit, offset int) ([]domain.VerificationRecord, error)
	Review(ctx context.Context, id uuid.UUID, in service.ReviewInput) (*domain.VerificationRecord, error)
	AuditTrail(ctx context.Context, id uuid.UUID) ([]domain.AuditEntry, error)
}

// VerificationHandler handles verification requests
type VerificationHandler struct {
	service VerificationService
	logger  *slog.Logger
}

// NewVerificationHandler creates a new VerificationHandler instance
func NewVerificationHandler(service VerificationService, logger *slog.Logger) *VerificationHandler {
	return &VerificationHandler{
		service: service,
		logger:  logger,
	}
}

// QueueResponse response for the review queue endpoint
type QueueResponse struct {
	Items  []domain.VerificationRecord `json:"items"`
	Limit  int                         `json:"limit"`
	Offset int                         `json:"offset"`
}

// AuditTrailResponse response for the audit endpoint
type AuditTrailResponse struct {
	VerificationID string              `json:"verification_id"`
	Entries        []domain.AuditEntry `json:"entries"`
}

// Create POST /v1/verifications - run a verification on the submitted images
func (h *VerificationHandler) Create(c *fiber.Ctx) error {
	// 1. Extract identity fields from form
	userID, err := uuid.Parse(strings.TrimSpace(c.FormValue("user_id")))
	if err != nil {
		return domain.ErrValidationFailed.WithError(errors.New("user_id must be a valid UUID"))
	}

	req := &domain.VerificationRequest{
		UserID:       userID,
		DocumentType: domain.DocumentType(strings.ToUpper(strings.TrimSpace(c.FormValue("document_type")))),
		UserType:     domain.UserType(strings.ToUpper(strings.TrimSpace(c.FormValue("user_type")))),
	}

	// 2. Extract and validate images
	if req.FrontImage, err = extractImage(c, "front_image", true); err != nil {
		return fmt.Errorf("create verification: %w", err)
	}
	if req.BackImage, err = extractImage(c, "back_image", false); err != nil {
		return fmt.Errorf("create verification: %w", err)
	}
	if req.SelfieImage, err = extractImage(c, "selfie_image", true); err != nil {
		return fmt.Errorf("create verification: %w", err)
	}

	// 3. Run the verification
	result, err := h.service.Verify(c.Context(), req)
	if err != nil {
		return err
	}
	middleware.SetVerificationID(c, result.VerificationID)

	return c.JSON(result)
}

// Get GET /v1/verifications/:id
func (h *VerificationHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	record, err := h.service.Get(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(record)
}

// Queue GET /v1/review-queue - flagged verifications awaiting a reviewer
func (h *VerificationHandler) Queue(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	records, err := h.service.ListReviewQueue(c.Context(), limit, offset)
	if err != nil {
		return err
	}

	return c.JSON(QueueResponse{
		Items:  records,
		Limit:  limit,
		Offset: offset,
	})
}

// Review POST /v1/verifications/:id/review
func (h *VerificationHandler) Review(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var in service.ReviewInput
	if err := c.BodyParser(&in); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	record, err := h.service.Review(c.Context(), id, in)
	if err != nil {
		return err
	}

	h.logger.Info("verification reviewed",
		slog.String("verification_id", id.String()),
		slog.String("reviewer_id", in.ReviewerID),
		slog.String("status", string(record.Status)),
	)

	return c.JSON(record)
}

// Audit GET /v1/verifications/:id/audit
func (h *VerificationHandler) Audit(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	entries, err := h.service.AuditTrail(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(AuditTrailResponse{
		VerificationID: id.String(),
		Entries:        entries,
	})
}

func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, domain.ErrValidationFailed.WithError(errors.New("id must be a valid UUID"))
	}
	middleware.SetVerificationID(c, id)
	return id, nil
}

// extractImage reads an image form file. A missing optional image yields nil.
func extractImage(c *fiber.Ctx, field string, required bool) ([]byte, error) {
	// 1. Extract file
	file, err := c.FormFile(field)
	if err != nil {
		if !required {
			return nil, nil
		}
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("%s is required", field))
	}

	// 2. Validate size
	if file.Size == 0 || file.Size > maxImageSize {
		return nil, domain.ErrInvalidImage.WithError(fmt.Errorf("%s: size %d out of range", field, file.Size))
	}

	// 3. Validate Content-Type
	contentType := file.Header.Get("Content-Type")
	if !validImageTypes[contentType] {
		return nil, domain.ErrInvalidImage.WithError(fmt.Errorf("%s: unsupported content type %q", field, contentType))
	}

	// 4. Read image bytes
	f, err := file.Open()
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	imageBytes, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	return imageBytes, nil
}
