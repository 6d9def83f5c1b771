// Package pattern is the Tier 1 back-end: deterministic regex extraction for
// known vendor layouts. Fast and free, but only as general as its pattern
// tables.
package pattern

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/textnorm"
	"github.com/joseph-ayodele/invoice-extractor/internal/tier"
)

type Extractor struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

func (e *Extractor) Method() constants.Method { return constants.MethodPattern }
func (e *Extractor) Input() tier.InputKind    { return tier.InputText }

// Extract runs the vendor-specific pattern tables over corrected page text.
// An unmatched vendor layout is a content failure, not unavailability.
func (e *Extractor) Extract(ctx context.Context, page tier.PageContent, hints *entity.VendorHints) (entity.ExtractionCandidate, error) {
	if err := ctx.Err(); err != nil {
		return entity.ExtractionCandidate{}, err
	}

	text := textnorm.Correct(page.Text)
	layout := detectLayout(text)
	if layout == nil {
		return entity.ExtractionCandidate{}, fmt.Errorf("no known vendor layout matched page %d", page.PageNumber)
	}

	cand := entity.ExtractionCandidate{
		VendorName: layout.vendorName,
		Method:     constants.MethodPattern,
	}

	cand.InvoiceNumber = layout.invoiceNumber(text)
	cand.InvoiceDate = layout.invoiceDate(text)
	if total, ok := layout.total(text); ok {
		cand.TotalAmount = &total
	}
	cand.LineItems = layout.lineItems(text)

	cand.RawConfidence = selfConfidence(&cand)
	e.logger.Debug("tier.pattern.extracted",
		"page", page.PageNumber,
		"vendor", cand.VendorName,
		"invoice_number", cand.InvoiceNumber,
		"line_items", len(cand.LineItems),
		"raw_confidence", cand.RawConfidence,
	)
	return cand, nil
}

// layout is one vendor's pattern table.
type layout struct {
	vendorName    string
	namePatterns  []*regexp.Regexp
	invoiceNumber func(text string) string
	invoiceDate   func(text string) string
	total         func(text string) (float64, bool)
	lineItems     func(text string) []entity.LineItem
}

var layouts = []*layout{franksLayout, pacificLayout}

func detectLayout(text string) *layout {
	for _, l := range layouts {
		for _, re := range l.namePatterns {
			if re.MatchString(text) {
				return l
			}
		}
	}
	return nil
}

// selfConfidence is the tier's advisory score: 40% required fields, 40% line
// item presence/quality, 20% total-vs-line-sum consistency. The orchestrator
// never trusts it for the accept decision.
func selfConfidence(c *entity.ExtractionCandidate) float32 {
	var conf float64

	if c.VendorName != "" {
		conf += 0.10
	}
	if c.InvoiceNumber != "" {
		conf += 0.10
	}
	if c.InvoiceDate != "" {
		conf += 0.10
	}
	if c.HasTotal() && c.Total() > 0 {
		conf += 0.10
	}

	valid := 0
	for _, it := range c.LineItems {
		if it.Description != "" {
			valid++
		}
	}
	if valid > 0 {
		itemScore := float64(valid) / 5.0 * 0.30
		if itemScore > 0.30 {
			itemScore = 0.30
		}
		conf += itemScore
		if valid >= 3 {
			conf += 0.10
		}
	}

	if len(c.LineItems) > 0 && c.HasTotal() && c.Total() > 0 {
		var lineSum float64
		for _, it := range c.LineItems {
			lineSum += it.LineTotal
		}
		variance := absFloat(lineSum-c.Total()) / c.Total()
		switch {
		case variance < 0.05:
			conf += 0.20
		case variance < 0.15:
			conf += 0.15
		case variance < 0.30:
			conf += 0.10
		default:
			conf += 0.05
		}
	}

	if conf > 1.0 {
		conf = 1.0
	}
	return float32(conf)
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func parseAmount(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// isoDate formats US-order captures as YYYY-MM-DD.
func isoDate(month, day, year string) string {
	if len(month) == 1 {
		month = "0" + month
	}
	if len(day) == 1 {
		day = "0" + day
	}
	return year + "-" + month + "-" + day
}
