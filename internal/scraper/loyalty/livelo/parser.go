package livelo

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/grez-lucas/livelo-scraper/internal/scraper/loyalty"
)

// Field is one labeled cell of a ledger row.
type Field int

const (
	FieldDate Field = iota
	FieldOperation
	FieldPartners
	FieldPoints
	FieldNotes
)

var fieldSpecs = [...]struct {
	testID string // suffix used by the site's data-testid attributes
	header string // column header as displayed
}{
	FieldDate:      {"Date", "Data"},
	FieldOperation: {"Operation", "Operação"},
	FieldPartners:  {"Partners", "Parceiros"},
	FieldPoints:    {"Points", "Pontos"},
	FieldNotes:     {"Observation", "Observações"},
}

// Fields lists every ledger field in column order.
func Fields() []Field {
	return []Field{FieldDate, FieldOperation, FieldPartners, FieldPoints, FieldNotes}
}

func (f Field) testID() string {
	return fieldSpecs[f].testID
}

// Header returns the column header shown by the site.
func (f Field) Header() string {
	return fieldSpecs[f].header
}

// Key returns the canonical record key, the normalized header.
func (f Field) Key() string {
	return NormalizeFieldName(f.Header())
}

func (f Field) String() string {
	return f.Key()
}

// assign stores a raw cell value into its slot of t.
func (f Field) assign(t *loyalty.Transaction, raw string) {
	switch f {
	case FieldDate:
		t.Date = raw
	case FieldOperation:
		t.Operation = raw
	case FieldPartners:
		t.Partners = raw
	case FieldPoints:
		t.Points = ParsePoints(raw)
	case FieldNotes:
		t.Notes = raw
	}
}

// NormalizeFieldName lower-cases s, strips diacritics and drops everything
// that is not an ASCII letter or digit: "Observações" becomes "observacoes".
func NormalizeFieldName(s string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	folded, _, err := transform.String(stripMarks, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	folded = strings.ReplaceAll(folded, "ç", "c")

	return strings.Map(func(r rune) rune {
		if ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') {
			return r
		}
		return -1
	}, folded)
}

// pointsPattern matches an optional sign, digits with '.' thousands
// separators and an optional ',' decimal part at the start of the text.
var pointsPattern = regexp.MustCompile(`^[+-]?\s*[\d.]+(?:,\d+)?`)

// ParsePoints parses a ledger points cell such as "-1.234,56" or "+10".
// Text that does not start with a number yields 0.
func ParsePoints(s string) float64 {
	m := pointsPattern.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}

	clean := strings.Join(strings.Fields(m), "")
	clean = strings.ReplaceAll(clean, ".", "")
	clean = strings.Replace(clean, ",", ".", 1)

	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseBalance parses the balance widget text, e.g. "12.345" or "1.234,5".
func ParseBalance(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty balance", loyalty.ErrParsingFailed)
	}

	clean := strings.ReplaceAll(s, ".", "")
	clean = strings.Replace(clean, ",", ".", 1)

	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: balance %q: %v", loyalty.ErrParsingFailed, s, err)
	}
	return v, nil
}

// maxPageLabel returns the largest integer label, or 1 when no label is
// numeric.
func maxPageLabel(labels []string) int {
	best := 0
	for _, l := range labels {
		n, err := strconv.Atoi(strings.TrimSpace(l))
		if err != nil {
			continue
		}
		best = max(best, n)
	}
	if best == 0 {
		return 1
	}
	return best
}

func formatPoints(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
