package validation

import (
	"errors"
	"strings"
	"time"
)

// ErrUnparseableDate is returned when a date matches none of the known layouts
var ErrUnparseableDate = errors.New("unparseable date")

// ISODate is the layout extracted dates are normalized to
const ISODate = "2006-01-02"

var dateLayouts = []string{
	ISODate,
	"01/02/2006",
	"02.01.2006",
	"02 Jan 2006",
	"20060102",
}

// ParseDate parses a document date in any of the layouts seen on supported documents.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrUnparseableDate
}

// ParseMRZDate parses a YYMMDD machine readable zone date. Birth dates that
// would land in the future relative to now are moved back one century; other
// dates are always in the 2000s.
func ParseMRZDate(s string, birth bool, now time.Time) (time.Time, error) {
	if len(s) != 6 {
		return time.Time{}, ErrUnparseableDate
	}
	t, err := time.Parse("060102", s)
	if err != nil {
		return time.Time{}, ErrUnparseableDate
	}

	// time.Parse maps 69-99 to the 1900s; normalize to 20YY first.
	if t.Year() < 2000 {
		t = t.AddDate(100, 0, 0)
	}
	if birth && t.After(now) {
		t = t.AddDate(-100, 0, 0)
	}
	return t, nil
}

// NormalizeDate rewrites a parseable date to ISODate, leaving anything else untouched.
func NormalizeDate(s string) string {
	t, err := ParseDate(s)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return t.Format(ISODate)
}

// Age computes whole years elapsed from birth to today.
func Age(birth, today time.Time) int {
	age := today.Year() - birth.Year()
	if today.Month() < birth.Month() || (today.Month() == birth.Month() && today.Day() < birth.Day()) {
		age--
	}
	return age
}
