package registry

import (
	"fmt"
	"regexp"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// SuggestPattern derives a draft vendor pattern from known-correct invoice
// numbers of an unregistered vendor: the most common fixed prefix plus a
// digit-count class covering every sample. The draft is a heuristic surfaced
// for human confirmation; it is never committed to the registry here.
func SuggestPattern(vendorName string, sampleNumbers []string) (entity.VendorPattern, error) {
	samples := make([]string, 0, len(sampleNumbers))
	for _, s := range sampleNumbers {
		if s != "" {
			samples = append(samples, s)
		}
	}
	if len(samples) == 0 {
		return entity.VendorPattern{}, fmt.Errorf("no sample invoice numbers provided")
	}

	// Most common prefix across prefix lengths 1..4.
	prefixCounts := make(map[string]int)
	for _, n := range samples {
		limit := len(n)
		if limit > 4 {
			limit = 4
		}
		for i := 1; i <= limit; i++ {
			prefixCounts[n[:i]]++
		}
	}
	common := ""
	for p, c := range prefixCounts {
		if c > prefixCounts[common] || (c == prefixCounts[common] && len(p) > len(common)) {
			common = p
		}
	}

	minLen, maxLen := len(samples[0]), len(samples[0])
	for _, n := range samples[1:] {
		if len(n) < minLen {
			minLen = len(n)
		}
		if len(n) > maxLen {
			maxLen = len(n)
		}
	}

	quoted := regexp.QuoteMeta(common)
	var regex string
	if minLen == maxLen {
		regex = fmt.Sprintf(`^%s\d{%d}$`, quoted, maxLen-len(common))
	} else {
		regex = fmt.Sprintf(`^%s\d{%d,%d}$`, quoted, minLen-len(common), maxLen-len(common))
	}

	return entity.VendorPattern{
		VendorName:             vendorName,
		InvoicePrefixPatterns:  []string{"^" + quoted},
		InvoiceNumberRegex:     regex,
		InvoiceNumberMinLength: minLen,
		InvoiceNumberMaxLength: maxLen,
		SampleCount:            len(samples),
		Confidence:             0.7,
		LastUpdated:            time.Now().UTC().Format(time.RFC3339),
		Notes:                  fmt.Sprintf("Auto-generated from %d sample invoices", len(samples)),
	}, nil
}
