package extraction

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/provider"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/validation"
)

const labelFieldConfidence = 0.85

// fieldLabels maps printed labels to field keys. US licenses prefix labels with
// AAMVA field numbers ("4d DLN"), which are stripped before matching.
var fieldLabels = map[string]string{
	"DL":                 FieldDocumentNumber,
	"DLN":                FieldDocumentNumber,
	"DL NO":              FieldDocumentNumber,
	"LIC NO":             FieldDocumentNumber,
	"LICENSE NO":         FieldDocumentNumber,
	"LICENSE NUMBER":     FieldDocumentNumber,
	"DOCUMENT NO":        FieldDocumentNumber,
	"DOCUMENT NUMBER":    FieldDocumentNumber,
	"ID NO":              FieldDocumentNumber,
	"ID NUMBER":          FieldDocumentNumber,
	"PASSPORT NO":        FieldDocumentNumber,
	"LN":                 FieldLastName,
	"SURNAME":            FieldLastName,
	"LAST NAME":          FieldLastName,
	"FAMILY NAME":        FieldLastName,
	"FN":                 FieldFirstName,
	"GIVEN NAME":         FieldFirstName,
	"GIVEN NAMES":        FieldFirstName,
	"FIRST NAME":         FieldFirstName,
	"DOB":                FieldDateOfBirth,
	"DATE OF BIRTH":      FieldDateOfBirth,
	"BIRTH DATE":         FieldDateOfBirth,
	"EXP":                FieldExpiryDate,
	"EXPIRES":            FieldExpiryDate,
	"EXPIRY":             FieldExpiryDate,
	"EXPIRY DATE":        FieldExpiryDate,
	"DATE OF EXPIRY":     FieldExpiryDate,
	"ISS":                FieldIssueDate,
	"ISSUED":             FieldIssueDate,
	"ISSUE DATE":         FieldIssueDate,
	"DATE OF ISSUE":      FieldIssueDate,
	"ADDRESS":            FieldAddress,
	"ADDR":               FieldAddress,
	"NATIONALITY":        FieldNationality,
	"SEX":                FieldGender,
	"GENDER":             FieldGender,
	"ISSUER":             FieldIssuer,
	"ISSUING AUTHORITY":  FieldIssuer,
	"AUTHORITY":          FieldIssuer,
	"ISSUING STATE":      FieldIssuer,
	"ISSUING COUNTRY":    FieldIssuer,
	"STATE OF ISSUANCE":  FieldIssuer,
	"PLACE OF ISSUE":     FieldIssuer,
	"COUNTRY OF ISSUE":   FieldIssuer,
}

var (
	fieldNumberPrefix = regexp.MustCompile(`^\d{1,2}[a-z]?\s+`)
	sortedLabels      = sortLabels()
)

func sortLabels() []string {
	labels := make([]string, 0, len(fieldLabels))
	for l := range fieldLabels {
		labels = append(labels, l)
	}
	// Longest first so "EXPIRY DATE" wins over "EXP"
	sort.Slice(labels, func(i, j int) bool {
		if len(labels[i]) != len(labels[j]) {
			return len(labels[i]) > len(labels[j])
		}
		return labels[i] < labels[j]
	})
	return labels
}

// LabelProcessor extracts "LABEL value" pairs printed on the document face.
// It handles every document type and is registered last as the fallback.
type LabelProcessor struct{}

func NewLabelProcessor() *LabelProcessor {
	return &LabelProcessor{}
}

func (p *LabelProcessor) Name() string {
	return "label"
}

func (p *LabelProcessor) CanProcess(docType domain.DocumentType) bool {
	return docType.Valid()
}

func (p *LabelProcessor) Process(ctx context.Context, lines []provider.TextLine, docType domain.DocumentType) (*Extraction, error) {
	result := &Extraction{Processor: p.Name()}
	seen := make(map[string]bool)

	for _, line := range lines {
		key, value, ok := matchLabel(line.Text)
		if !ok || seen[key] {
			continue
		}
		seen[key] = true

		switch key {
		case FieldDateOfBirth, FieldExpiryDate, FieldIssueDate:
			value = validation.NormalizeDate(value)
		}

		result.Fields = append(result.Fields, Field{
			Key:        key,
			Value:      value,
			Confidence: labelFieldConfidence * line.Confidence / 100,
		})
	}

	if len(result.Fields) == 0 {
		result.Warnings = append(result.Warnings, "no labelled fields found")
	}

	return result, nil
}

func matchLabel(text string) (key, value string, ok bool) {
	text = fieldNumberPrefix.ReplaceAllString(strings.TrimSpace(text), "")
	upper := strings.ToUpper(text)
	src := text
	if len(upper) != len(text) {
		src = upper
	}

	for _, label := range sortedLabels {
		if !strings.HasPrefix(upper, label) {
			continue
		}
		rest := src[len(label):]
		if rest == "" || !strings.ContainsAny(rest[:1], " :.") {
			continue
		}
		value = strings.TrimSpace(strings.TrimLeft(rest, " :."))
		if value == "" {
			return "", "", false
		}
		return fieldLabels[label], value, true
	}

	return "", "", false
}
