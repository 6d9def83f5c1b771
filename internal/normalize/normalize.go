package normalize

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// legal-entity suffixes stripped from vendor names before title-casing
var vendorSuffixes = []string{
	"incorporated", "corporation", "company", "limited",
	"inc", "llc", "corp", "ltd", "co", "lp", "llp",
}

var (
	reNonAlnum    = regexp.MustCompile(`[^A-Za-z0-9]`)
	reWhitespace  = regexp.MustCompile(`\s+`)
	reTrailingDot = regexp.MustCompile(`[.,]+$`)
)

// dateFormats lists accepted input layouts, most specific first. Output is
// always YYYY-MM-DD.
var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"01-02-2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
}

// Normalizer canonicalizes accepted candidates into storage-ready records.
type Normalizer struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// Normalize produces the canonical invoice and its line items from an
// accepted candidate. A natural-key field that cannot be resolved fails the
// whole call; nothing partial is ever returned.
func (n *Normalizer) Normalize(candidate *entity.ExtractionCandidate, vendor *entity.VendorPattern) (*entity.CanonicalInvoice, []entity.LineItem, error) {
	number := InvoiceNumber(candidate.InvoiceNumber)
	if number == "" {
		return nil, nil, common.WrapError(common.ErrNormalization, "invoice number is empty after normalization")
	}

	name := candidate.VendorName
	if vendor != nil && vendor.VendorName != "" {
		// registry canonical name wins over whatever the tier read
		name = vendor.VendorName
	}
	name = VendorName(name)
	if name == "" {
		return nil, nil, common.WrapError(common.ErrNormalization, "vendor name is empty after normalization")
	}

	date, err := Date(candidate.InvoiceDate)
	if err != nil {
		return nil, nil, common.WrapError(common.ErrNormalization, fmt.Sprintf("invoice date %q: %v", candidate.InvoiceDate, err))
	}

	total, err := Amount(candidate.Total())
	if err != nil {
		return nil, nil, common.WrapError(common.ErrNormalization, fmt.Sprintf("total amount: %v", err))
	}

	items := make([]entity.LineItem, 0, len(candidate.LineItems))
	for _, it := range candidate.LineItems {
		item := entity.LineItem{
			Description: strings.TrimSpace(reWhitespace.ReplaceAllString(it.Description, " ")),
			Quantity:    round2(it.Quantity),
			UnitPrice:   round2(it.UnitPrice),
			LineTotal:   round2(it.LineTotal),
			Order:       it.Order,
		}
		if item.Description == "" {
			continue
		}
		if item.Quantity > 0 && item.UnitPrice > 0 && item.LineTotal > 0 {
			expected := item.Quantity * item.UnitPrice
			if math.Abs(expected-item.LineTotal) > 0.05*math.Max(expected, item.LineTotal) {
				n.logger.Warn("normalize.line_item_mismatch",
					"description", item.Description,
					"expected", round2(expected),
					"line_total", item.LineTotal,
				)
			}
		}
		items = append(items, item)
	}

	inv := &entity.CanonicalInvoice{
		InvoiceNumber:    number,
		VendorName:       name,
		InvoiceDate:      date,
		TotalAmount:      total,
		ExtractionMethod: candidate.Method,
		ConfidenceScore:  candidate.RawConfidence,
	}
	return inv, items, nil
}

// InvoiceNumber strips non-alphanumeric characters and uppercases.
func InvoiceNumber(s string) string {
	return strings.ToUpper(reNonAlnum.ReplaceAllString(s, ""))
}

// VendorName strips legal-entity suffixes, collapses whitespace, and
// title-cases the result.
func VendorName(s string) string {
	s = reWhitespace.ReplaceAllString(strings.TrimSpace(s), " ")
	s = reTrailingDot.ReplaceAllString(s, "")

	words := strings.Split(s, " ")
	for len(words) > 1 {
		last := strings.ToLower(reTrailingDot.ReplaceAllString(words[len(words)-1], ""))
		last = strings.TrimSuffix(last, ".")
		if !isVendorSuffix(last) {
			break
		}
		words = words[:len(words)-1]
	}
	s = reTrailingDot.ReplaceAllString(strings.Join(words, " "), "")
	return titleCase(s)
}

func isVendorSuffix(w string) bool {
	for _, suffix := range vendorSuffixes {
		if w == suffix {
			return true
		}
	}
	return false
}

// titleCase capitalizes word-initial letters, preserving interior
// apostrophes ("Frank's", "O'Brien").
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	atWordStart := true
	for _, r := range strings.ToLower(s) {
		if atWordStart && r >= 'a' && r <= 'z' {
			b.WriteRune(r - 'a' + 'A')
		} else {
			b.WriteRune(r)
		}
		atWordStart = r == ' ' || r == '-' || r == '/'
	}
	return b.String()
}

// Date converts an input date in any accepted layout to YYYY-MM-DD.
func Date(s string) (string, error) {
	s = strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
	if s == "" {
		return "", fmt.Errorf("empty date")
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("unrecognized date format")
}

// Amount rounds to two-decimal currency; negative totals are rejected here
// so they can never reach the store.
func Amount(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("amount is not a finite number")
	}
	if v < 0 {
		return 0, fmt.Errorf("amount is negative")
	}
	return round2(v), nil
}

// AmountString parses a currency string ("$1,234.56") to a two-decimal value.
func AmountString(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return Amount(v)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ParseDateStrict reports whether s resolves to a real calendar date in any
// accepted layout. time.Parse already rejects impossible dates such as
// February 30.
func ParseDateStrict(s string) bool {
	_, err := Date(s)
	return err == nil
}
