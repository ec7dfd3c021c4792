package extraction

import (
	"context"
	"strings"
	"time"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/provider"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/validation"
)

const (
	td1LineLength = 30
	td3LineLength = 44

	// minMRZLineLength tolerates OCR dropping a few trailing fillers
	minMRZLineLength = 28

	// checkDigitPenalty scales the confidence of a field whose check digit fails
	checkDigitPenalty = 0.5
)

// MRZProcessor extracts data from the ICAO 9303 machine readable zone.
// TD1 (3 lines x 30 chars) is used by national ID cards and TD3
// (2 lines x 44 chars) by passports.
type MRZProcessor struct {
	now func() time.Time
}

func NewMRZProcessor() *MRZProcessor {
	return &MRZProcessor{now: time.Now}
}

func (p *MRZProcessor) Name() string {
	return "mrz"
}

func (p *MRZProcessor) CanProcess(docType domain.DocumentType) bool {
	return docType == domain.DocumentNationalID || docType == domain.DocumentPassport
}

func (p *MRZProcessor) Process(ctx context.Context, lines []provider.TextLine, docType domain.DocumentType) (*Extraction, error) {
	mrz, lineConfidence := findMRZ(lines)

	result := &Extraction{Processor: p.Name()}

	switch {
	case len(mrz) >= 3 && len(mrz[0]) <= td1LineLength+2:
		result.Fields, result.Warnings = p.parseTD1(mrz[:3])
	case len(mrz) >= 2:
		result.Fields, result.Warnings = p.parseTD3(mrz[:2])
	default:
		result.Warnings = []string{"no machine readable zone found"}
		return result, nil
	}

	for i := range result.Fields {
		result.Fields[i].Confidence *= lineConfidence / 100
	}

	return result, nil
}

// findMRZ returns the consecutive MRZ-looking lines and their mean confidence.
func findMRZ(lines []provider.TextLine) ([]string, float64) {
	var (
		mrz   []string
		total float64
	)
	for _, line := range lines {
		candidate := strings.ToUpper(strings.ReplaceAll(line.Text, " ", ""))
		if isMRZLine(candidate) {
			mrz = append(mrz, candidate)
			total += line.Confidence
			continue
		}
		if len(mrz) > 0 {
			break
		}
	}
	if len(mrz) == 0 {
		return nil, 0
	}
	return mrz, total / float64(len(mrz))
}

func isMRZLine(s string) bool {
	if len(s) < minMRZLineLength || !strings.Contains(s, "<") {
		return false
	}
	for _, c := range s {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') && c != '<' {
			return false
		}
	}
	return true
}

// parseTD1 parses a national ID MRZ
// Line 1: document code, issuing state, document number, check digit
// Line 2: birth date, check, sex, expiry date, check, nationality
// Line 3: LAST<<FIRST<MIDDLE
func (p *MRZProcessor) parseTD1(lines []string) ([]Field, []string) {
	var fields []Field
	var warnings []string

	line1 := padLine(lines[0], td1LineLength)
	line2 := padLine(lines[1], td1LineLength)
	line3 := padLine(lines[2], td1LineLength)

	if issuer := cleanMRZ(line1[2:5]); issuer != "" {
		fields = append(fields, Field{Key: FieldIssuer, Value: issuer, Confidence: 0.90})
	}

	if docNumber := cleanMRZ(line1[5:14]); docNumber != "" {
		f := Field{Key: FieldDocumentNumber, Value: docNumber, Confidence: 0.90}
		if !validCheckDigit(line1[5:14], line1[14]) {
			f.Confidence *= checkDigitPenalty
			warnings = append(warnings, "document number check digit mismatch")
		}
		fields = append(fields, f)
	}

	fields, warnings = p.appendDates(fields, warnings, line2[0:6], line2[6], line2[8:14], line2[14])

	if gender := line2[7]; gender == 'M' || gender == 'F' {
		fields = append(fields, Field{Key: FieldGender, Value: string(gender), Confidence: 0.95})
	}

	if nationality := cleanMRZ(line2[15:18]); nationality != "" {
		fields = append(fields, Field{Key: FieldNationality, Value: nationality, Confidence: 0.90})
	}

	fields = append(fields, parseNames(line3, 0.88)...)

	return fields, warnings
}

// parseTD3 parses a passport MRZ
// Line 1: P<, issuing state, LAST<<FIRST<MIDDLE
// Line 2: document number, check, nationality, birth date, check, sex, expiry date, check
func (p *MRZProcessor) parseTD3(lines []string) ([]Field, []string) {
	var fields []Field
	var warnings []string

	line1 := padLine(lines[0], td3LineLength)
	line2 := padLine(lines[1], td3LineLength)

	if issuer := cleanMRZ(line1[2:5]); issuer != "" {
		fields = append(fields, Field{Key: FieldIssuer, Value: issuer, Confidence: 0.90})
	}

	fields = append(fields, parseNames(line1[5:], 0.90)...)

	if docNumber := cleanMRZ(line2[0:9]); docNumber != "" {
		f := Field{Key: FieldDocumentNumber, Value: docNumber, Confidence: 0.92}
		if !validCheckDigit(line2[0:9], line2[9]) {
			f.Confidence *= checkDigitPenalty
			warnings = append(warnings, "document number check digit mismatch")
		}
		fields = append(fields, f)
	}

	if nationality := cleanMRZ(line2[10:13]); nationality != "" {
		fields = append(fields, Field{Key: FieldNationality, Value: nationality, Confidence: 0.90})
	}

	fields, warnings = p.appendDates(fields, warnings, line2[13:19], line2[19], line2[21:27], line2[27])

	if gender := line2[20]; gender == 'M' || gender == 'F' {
		fields = append(fields, Field{Key: FieldGender, Value: string(gender), Confidence: 0.95})
	}

	return fields, warnings
}

func (p *MRZProcessor) appendDates(fields []Field, warnings []string, dob string, dobCheck byte, expiry string, expiryCheck byte) ([]Field, []string) {
	now := p.now()

	if t, err := validation.ParseMRZDate(dob, true, now); err == nil {
		f := Field{Key: FieldDateOfBirth, Value: t.Format(validation.ISODate), Confidence: 0.92}
		if !validCheckDigit(dob, dobCheck) {
			f.Confidence *= checkDigitPenalty
			warnings = append(warnings, "date of birth check digit mismatch")
		}
		fields = append(fields, f)
	}

	if t, err := validation.ParseMRZDate(expiry, false, now); err == nil {
		f := Field{Key: FieldExpiryDate, Value: t.Format(validation.ISODate), Confidence: 0.92}
		if !validCheckDigit(expiry, expiryCheck) {
			f.Confidence *= checkDigitPenalty
			warnings = append(warnings, "expiry date check digit mismatch")
		}
		fields = append(fields, f)
	}

	return fields, warnings
}

func parseNames(section string, confidence float64) []Field {
	var fields []Field

	nameParts := strings.SplitN(section, "<<", 2)
	if lastName := cleanMRZName(nameParts[0]); lastName != "" {
		fields = append(fields, Field{Key: FieldLastName, Value: lastName, Confidence: confidence})
	}
	if len(nameParts) == 2 {
		if firstName := cleanMRZName(nameParts[1]); firstName != "" {
			fields = append(fields, Field{Key: FieldFirstName, Value: firstName, Confidence: confidence})
		}
	}

	return fields
}

// validCheckDigit applies the ICAO 9303 7-3-1 weighting.
func validCheckDigit(data string, check byte) bool {
	weights := [3]int{7, 3, 1}
	sum := 0
	for i := 0; i < len(data); i++ {
		sum += mrzCharValue(data[i]) * weights[i%3]
	}
	return check >= '0' && check <= '9' && sum%10 == int(check-'0')
}

func mrzCharValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	default:
		return 0
	}
}

func padLine(line string, length int) string {
	if len(line) >= length {
		return line[:length]
	}
	return line + strings.Repeat("<", length-len(line))
}

func cleanMRZ(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "<", ""))
}

func cleanMRZName(s string) string {
	cleaned := strings.TrimRight(s, "< ")
	cleaned = strings.ReplaceAll(cleaned, "<", " ")
	return strings.TrimSpace(cleaned)
}
