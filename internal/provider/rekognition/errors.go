package rekognition

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
)

const (
	errCodeAccessDenied       = "AccessDeniedException"
	errCodeInvalidParameter   = "InvalidParameterException"
	errCodeImageTooLarge      = "ImageTooLargeException"
	errCodeInvalidImageFormat = "InvalidImageFormatException"
	errCodeThrottling         = "ThrottlingException"
	errCodeThroughputExceeded = "ProvisionedThroughputExceededException"
)

var (
	// ErrInvalidCredentials indicates that AWS credentials are invalid or missing
	ErrInvalidCredentials = errors.New("invalid or missing AWS credentials")

	// ErrThrottled indicates that Rekognition rejected the call due to rate limits
	ErrThrottled = errors.New("rekognition request throttled")
)

// ParseNoFaceError checks if an AWS error indicates no face was detected
func ParseNoFaceError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == errCodeInvalidParameter {
		if msg := apiErr.ErrorMessage(); msg != "" {
			return fmt.Errorf("%w: %s", domain.ErrNoFaceDetected, msg)
		}
		return domain.ErrNoFaceDetected
	}

	return err
}

// mapAPIError translates Rekognition API errors into errors the pipeline can classify
func mapAPIError(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case errCodeInvalidParameter:
			return fmt.Errorf("%s: %w", op, ParseNoFaceError(err))
		case errCodeImageTooLarge, errCodeInvalidImageFormat:
			return fmt.Errorf("%s: %w", op, domain.ErrInvalidImage.WithError(err))
		case errCodeAccessDenied:
			return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		case errCodeThrottling, errCodeThroughputExceeded:
			return fmt.Errorf("%s: %w: %v", op, ErrThrottled, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
