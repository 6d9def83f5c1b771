package validate

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/normalize"
)

// NumberValidator is the registry-side check the validator consults when a
// vendor was detected for the page.
type NumberValidator interface {
	ValidateInvoiceNumber(number string, v *entity.VendorPattern) (bool, string)
}

// Validator scores candidates for the accept/reject decision and separately
// gates persistence on structural validity. The score is computed from the
// candidate's contents; a tier's self-reported confidence never enters it.
type Validator struct {
	registry NumberValidator
	logger   *slog.Logger
}

func New(registry NumberValidator, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{registry: registry, logger: logger}
}

// requiredFields is the divisor for the completeness sub-score.
const requiredFields = 5

// Score returns a confidence in [0,1]: field completeness over the five
// required fields, halved once when any plausibility check fails (unknown
// invoice number, zero total, or registry pattern mismatch for the detected
// vendor).
func (v *Validator) Score(candidate *entity.ExtractionCandidate, vendor *entity.VendorPattern) (float32, []string) {
	var reasons []string

	present := 0
	if strings.TrimSpace(candidate.InvoiceNumber) != "" {
		present++
	} else {
		reasons = append(reasons, "invoice number missing")
	}
	if strings.TrimSpace(candidate.VendorName) != "" {
		present++
	} else {
		reasons = append(reasons, "vendor name missing")
	}
	if strings.TrimSpace(candidate.InvoiceDate) != "" {
		present++
	} else {
		reasons = append(reasons, "invoice date missing")
	}
	if candidate.HasTotal() {
		present++
	} else {
		reasons = append(reasons, "total amount missing")
	}
	if len(candidate.LineItems) > 0 {
		present++
	} else {
		reasons = append(reasons, "no line items")
	}

	score := float32(present) / requiredFields

	penalized := false
	if strings.EqualFold(strings.TrimSpace(candidate.InvoiceNumber), constants.UnknownInvoiceNumber) {
		penalized = true
		reasons = append(reasons, "invoice number is the unknown sentinel")
	}
	if candidate.HasTotal() && candidate.Total() == 0 {
		penalized = true
		reasons = append(reasons, "total amount is zero")
	}
	if vendor != nil && v.registry != nil && strings.TrimSpace(candidate.InvoiceNumber) != "" {
		if ok, why := v.registry.ValidateInvoiceNumber(candidate.InvoiceNumber, vendor); !ok {
			penalized = true
			reasons = append(reasons, fmt.Sprintf("invoice number rejected for vendor %s: %s", vendor.VendorID, why))
		}
	}
	if penalized {
		score *= 0.5
	}

	v.logger.Debug("validate.scored",
		"method", candidate.Method,
		"score", score,
		"present_fields", present,
		"penalized", penalized,
	)
	return score, reasons
}

// IsStructurallyValid reports whether the candidate is safe to persist. A
// candidate can score above a tier threshold and still fail here; such
// results go to manual review, never to the store.
func (v *Validator) IsStructurallyValid(candidate *entity.ExtractionCandidate) (bool, []string) {
	var reasons []string

	if !normalize.ParseDateStrict(candidate.InvoiceDate) {
		reasons = append(reasons, fmt.Sprintf("date %q is not a real calendar date", candidate.InvoiceDate))
	}
	if candidate.HasTotal() && candidate.Total() < 0 {
		reasons = append(reasons, "total amount is negative")
	}
	for _, it := range candidate.LineItems {
		if it.Quantity < 0 || it.UnitPrice < 0 || it.LineTotal < 0 {
			reasons = append(reasons, fmt.Sprintf("line item %d has a negative value", it.Order))
		}
	}
	return len(reasons) == 0, reasons
}
