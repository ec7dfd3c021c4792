package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/provider"
)

// Extractor reads structured document fields from an image by running the
// vision provider's text detection through the processor registry.
type Extractor struct {
	detector provider.TextDetector
	registry *Registry
	logger   *slog.Logger
}

func NewExtractor(detector provider.TextDetector, registry *Registry, logger *slog.Logger) *Extractor {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Extractor{
		detector: detector,
		registry: registry,
		logger:   logger.With("component", "extraction"),
	}
}

// ExtractFields returns the fields found on image. Processors run in
// registration order and later ones only fill fields earlier ones missed.
// An image with no detectable text yields domain.ErrNoTextDetected.
func (e *Extractor) ExtractFields(ctx context.Context, image []byte, docType domain.DocumentType) (*domain.OCRResult, error) {
	start := time.Now()

	if !docType.Valid() {
		return nil, domain.ErrUnsupportedDocument.WithError(fmt.Errorf("document type %q", docType))
	}

	lines, err := e.detector.DetectText(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("detect text: %w", err)
	}
	if len(lines) == 0 {
		return nil, domain.ErrNoTextDetected
	}

	fields := make(map[string]Field)

	// Warnings from processors that found nothing only matter when no
	// processor found anything.
	var warnings, emptyWarnings []string

	for _, p := range e.registry.FindProcessors(docType) {
		extraction, err := p.Process(ctx, lines, docType)
		if err != nil {
			e.logger.WarnContext(ctx, "processor failed",
				slog.String("processor", p.Name()),
				slog.String("error", err.Error()),
			)
			warnings = append(warnings, fmt.Sprintf("%s: %v", p.Name(), err))
			continue
		}

		for _, f := range extraction.Fields {
			if _, ok := fields[f.Key]; !ok {
				fields[f.Key] = f
			}
		}
		target := &warnings
		if len(extraction.Fields) == 0 {
			target = &emptyWarnings
		}
		for _, w := range extraction.Warnings {
			*target = append(*target, fmt.Sprintf("%s: %s", p.Name(), w))
		}
	}

	result := &domain.OCRResult{
		ExtractedData:    toDocumentData(fields, docType),
		FieldConfidences: make(map[string]float64, len(fields)),
		Errors:           warnings,
	}

	var total float64
	for key, f := range fields {
		result.FieldConfidences[key] = f.Confidence
		total += f.Confidence
	}
	if len(fields) > 0 {
		result.Confidence = total / float64(len(fields))
	} else {
		result.Errors = append(result.Errors, emptyWarnings...)
		result.Errors = append(result.Errors, "no fields could be extracted")
	}

	result.ProcessingTime = domain.MillisecondsSince(start)

	e.logger.DebugContext(ctx, "fields extracted",
		slog.String("document_type", string(docType)),
		slog.Int("fields", len(fields)),
		slog.Float64("confidence", result.Confidence),
	)

	return result, nil
}

func toDocumentData(fields map[string]Field, docType domain.DocumentType) domain.ExtractedDocumentData {
	get := func(key string) string { return fields[key].Value }

	return domain.ExtractedDocumentData{
		DocumentNumber: get(FieldDocumentNumber),
		FirstName:      get(FieldFirstName),
		LastName:       get(FieldLastName),
		DateOfBirth:    get(FieldDateOfBirth),
		ExpiryDate:     get(FieldExpiryDate),
		IssueDate:      get(FieldIssueDate),
		Address:        get(FieldAddress),
		Nationality:    get(FieldNationality),
		Gender:         get(FieldGender),
		Issuer:         get(FieldIssuer),
		DocumentType:   docType,
	}
}

// MergeResults fills the fields missing from primary with those of secondary,
// typically the front and back of the same card.
func MergeResults(primary, secondary *domain.OCRResult) *domain.OCRResult {
	if secondary == nil {
		return primary
	}
	if primary == nil {
		return secondary
	}

	merged := *primary
	merged.FieldConfidences = make(map[string]float64, len(primary.FieldConfidences)+len(secondary.FieldConfidences))
	for k, v := range primary.FieldConfidences {
		merged.FieldConfidences[k] = v
	}

	filled := 0
	fill := func(dst *string, src, key string) {
		if *dst == "" && src != "" {
			*dst = src
			merged.FieldConfidences[key] = secondary.FieldConfidences[key]
			filled++
		}
	}

	d, s := &merged.ExtractedData, secondary.ExtractedData
	fill(&d.DocumentNumber, s.DocumentNumber, FieldDocumentNumber)
	fill(&d.FirstName, s.FirstName, FieldFirstName)
	fill(&d.LastName, s.LastName, FieldLastName)
	fill(&d.DateOfBirth, s.DateOfBirth, FieldDateOfBirth)
	fill(&d.ExpiryDate, s.ExpiryDate, FieldExpiryDate)
	fill(&d.IssueDate, s.IssueDate, FieldIssueDate)
	fill(&d.Address, s.Address, FieldAddress)
	fill(&d.Nationality, s.Nationality, FieldNationality)
	fill(&d.Gender, s.Gender, FieldGender)
	fill(&d.Issuer, s.Issuer, FieldIssuer)

	var total float64
	for _, c := range merged.FieldConfidences {
		total += c
	}
	if len(merged.FieldConfidences) > 0 {
		merged.Confidence = total / float64(len(merged.FieldConfidences))
	}

	switch {
	case len(primary.FieldConfidences) == 0:
		merged.Errors = secondary.Errors
	case filled > 0:
		merged.Errors = append(append([]string(nil), primary.Errors...), secondary.Errors...)
	}
	merged.ProcessingTime = primary.ProcessingTime + secondary.ProcessingTime

	return &merged
}
