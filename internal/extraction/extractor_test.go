package extraction

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/provider"
)

type MockTextDetector struct {
	mock.Mock
}

func (m *MockTextDetector) DetectText(ctx context.Context, image []byte) ([]provider.TextLine, error) {
	args := m.Called(ctx, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]provider.TextLine), args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMatchLabel(t *testing.T) {
	tests := []struct {
		text      string
		wantKey   string
		wantValue string
		wantOK    bool
	}{
		{"4d DLN D1234567", FieldDocumentNumber, "D1234567", true},
		{"DL NO: 99887766", FieldDocumentNumber, "99887766", true},
		{"1 SMITH", "", "", false},
		{"LN SMITH", FieldLastName, "SMITH", true},
		{"2 FN JANE", FieldFirstName, "JANE", true},
		{"3 DOB 01/02/1990", FieldDateOfBirth, "01/02/1990", true},
		{"4b EXP 01/02/2031", FieldExpiryDate, "01/02/2031", true},
		{"Expiry Date: 2031-01-02", FieldExpiryDate, "2031-01-02", true},
		{"ISSUER: CA DMV", FieldIssuer, "CA DMV", true},
		{"EXPERIENCE MATTERS", "", "", false},
		{"DOB:", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			key, value, ok := matchLabel(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantKey, key)
			assert.Equal(t, tt.wantValue, value)
		})
	}
}

func TestLabelProcessor_Process(t *testing.T) {
	p := NewLabelProcessor()

	result, err := p.Process(context.Background(), textLines(90,
		"CALIFORNIA DRIVER LICENSE",
		"4d DLN D1234567",
		"1 SMITH",
		"LN SMITH",
		"FN JANE",
		"3 DOB 01/02/1990",
		"4b EXP 01/02/2031",
		"LN OTHER",
	), domain.DocumentDriversLicense)

	require.NoError(t, err)
	fields := fieldMap(result.Fields)
	assert.Equal(t, "D1234567", fields[FieldDocumentNumber].Value)
	assert.Equal(t, "SMITH", fields[FieldLastName].Value, "first occurrence wins")
	assert.Equal(t, "1990-01-02", fields[FieldDateOfBirth].Value)
	assert.Equal(t, "2031-01-02", fields[FieldExpiryDate].Value)
	assert.InDelta(t, 0.85*0.9, fields[FieldFirstName].Confidence, 1e-9)
}

func TestExtractor_ExtractFields(t *testing.T) {
	image := []byte("image")

	t.Run("passport via MRZ with no spurious warnings", func(t *testing.T) {
		detector := new(MockTextDetector)
		detector.On("DetectText", mock.Anything, image).Return(textLines(99,
			"P<UTOERIKSSON<<ANNA<MARIA<<<<<<<<<<<<<<<<<<<",
			"L898902C36UTO7408122F3404159ZE184226B<<<<<10",
		), nil)

		extractor := NewExtractor(detector, nil, discardLogger())
		result, err := extractor.ExtractFields(context.Background(), image, domain.DocumentPassport)

		require.NoError(t, err)
		assert.Equal(t, "L898902C3", result.ExtractedData.DocumentNumber)
		assert.Equal(t, "2034-04-15", result.ExtractedData.ExpiryDate)
		assert.Equal(t, domain.DocumentPassport, result.ExtractedData.DocumentType)
		assert.Empty(t, result.Errors)
		assert.Greater(t, result.Confidence, 0.85)
		detector.AssertExpectations(t)
	})

	t.Run("label processor fills what the MRZ lacks", func(t *testing.T) {
		detector := new(MockTextDetector)
		detector.On("DetectText", mock.Anything, image).Return(textLines(95,
			"ADDRESS: 1 MAIN ST",
			"P<UTOERIKSSON<<ANNA<MARIA<<<<<<<<<<<<<<<<<<<",
			"L898902C36UTO7408122F3404159ZE184226B<<<<<10",
		), nil)

		result, err := NewExtractor(detector, nil, discardLogger()).ExtractFields(context.Background(), image, domain.DocumentPassport)

		require.NoError(t, err)
		assert.Equal(t, "1 MAIN ST", result.ExtractedData.Address)
		assert.Equal(t, "ERIKSSON", result.ExtractedData.LastName)
	})

	t.Run("no text is insufficient signal", func(t *testing.T) {
		detector := new(MockTextDetector)
		detector.On("DetectText", mock.Anything, image).Return([]provider.TextLine{}, nil)

		_, err := NewExtractor(detector, nil, discardLogger()).ExtractFields(context.Background(), image, domain.DocumentPassport)

		assert.ErrorIs(t, err, domain.ErrNoTextDetected)
	})

	t.Run("nothing readable", func(t *testing.T) {
		detector := new(MockTextDetector)
		detector.On("DetectText", mock.Anything, image).Return(textLines(40, "~~~", "###"), nil)

		result, err := NewExtractor(detector, nil, discardLogger()).ExtractFields(context.Background(), image, domain.DocumentDriversLicense)

		require.NoError(t, err)
		assert.Equal(t, 0.0, result.Confidence)
		assert.Contains(t, result.Errors, "no fields could be extracted")
		assert.Contains(t, result.Errors, "label: no labelled fields found")
	})

	t.Run("detector failure", func(t *testing.T) {
		detector := new(MockTextDetector)
		detector.On("DetectText", mock.Anything, image).Return(nil, errors.New("throttled"))

		_, err := NewExtractor(detector, nil, discardLogger()).ExtractFields(context.Background(), image, domain.DocumentPassport)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "detect text: throttled")
	})

	t.Run("unsupported document type", func(t *testing.T) {
		_, err := NewExtractor(new(MockTextDetector), nil, discardLogger()).ExtractFields(context.Background(), image, "LIBRARY_CARD")
		assert.ErrorIs(t, err, domain.ErrUnsupportedDocument)
	})
}

func TestMergeResults(t *testing.T) {
	front := &domain.OCRResult{
		ExtractedData:    domain.ExtractedDocumentData{FirstName: "JANE", LastName: "SMITH"},
		FieldConfidences: map[string]float64{FieldFirstName: 0.8, FieldLastName: 0.8},
		Confidence:       0.8,
	}
	back := &domain.OCRResult{
		ExtractedData:    domain.ExtractedDocumentData{FirstName: "J", DocumentNumber: "D1234567"},
		FieldConfidences: map[string]float64{FieldFirstName: 0.5, FieldDocumentNumber: 0.5},
		Confidence:       0.5,
	}

	merged := MergeResults(front, back)

	assert.Equal(t, "JANE", merged.ExtractedData.FirstName)
	assert.Equal(t, "D1234567", merged.ExtractedData.DocumentNumber)
	assert.InDelta(t, 0.7, merged.Confidence, 1e-9)
	assert.Equal(t, "SMITH", front.ExtractedData.LastName)
	assert.Empty(t, front.ExtractedData.DocumentNumber, "front must not be mutated")

	assert.Same(t, front, MergeResults(front, nil))
}
