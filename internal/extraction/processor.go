package extraction

import (
	"context"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/provider"
)

// Field keys produced by processors
const (
	FieldDocumentNumber = "document_number"
	FieldFirstName      = "first_name"
	FieldLastName       = "last_name"
	FieldDateOfBirth    = "date_of_birth"
	FieldExpiryDate     = "expiry_date"
	FieldIssueDate      = "issue_date"
	FieldAddress        = "address"
	FieldNationality    = "nationality"
	FieldGender         = "gender"
	FieldIssuer         = "issuer"
)

// Field is a single extracted value with its confidence (0..1)
type Field struct {
	Key        string  `json:"key"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Extraction is what a processor read from a document's text
type Extraction struct {
	Processor string   `json:"processor"`
	Fields    []Field  `json:"fields"`
	Warnings  []string `json:"warnings,omitempty"`
}

// Processor turns detected text lines into structured fields.
type Processor interface {
	// CanProcess returns true if this processor handles the given document type
	CanProcess(docType domain.DocumentType) bool

	// Process extracts fields from the detected text lines
	Process(ctx context.Context, lines []provider.TextLine, docType domain.DocumentType) (*Extraction, error)

	// Name returns the processor name for logging/audit
	Name() string
}

// Registry holds all registered processors and dispatches to the right one
type Registry struct {
	processors []Processor
}

// NewRegistry creates a new processor registry
func NewRegistry(processors ...Processor) *Registry {
	return &Registry{processors: processors}
}

// DefaultRegistry tries the MRZ first and falls back to labelled lines.
func DefaultRegistry() *Registry {
	return NewRegistry(NewMRZProcessor(), NewLabelProcessor())
}

// FindProcessors returns all processors that can handle the given document type,
// in registration order, so a later processor can fill in what an earlier one missed.
func (r *Registry) FindProcessors(docType domain.DocumentType) []Processor {
	var result []Processor
	for _, p := range r.processors {
		if p.CanProcess(docType) {
			result = append(result, p)
		}
	}
	return result
}
