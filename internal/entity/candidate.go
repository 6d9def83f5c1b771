package entity

import "github.com/joseph-ayodele/invoice-extractor/constants"

// ExtractionCandidate is the normalized output of one tier attempt. Absent
// string fields are empty; TotalAmount is nil when the tier produced nothing
// for it (distinct from an extracted zero, which the validator penalizes).
type ExtractionCandidate struct {
	InvoiceNumber string           `json:"invoice_number,omitempty"`
	VendorName    string           `json:"vendor_name,omitempty"`
	InvoiceDate   string           `json:"invoice_date,omitempty"` // free-form until normalization
	TotalAmount   *float64         `json:"total_amount,omitempty"`
	LineItems     []LineItem       `json:"line_items,omitempty"`
	Method        constants.Method `json:"method"`
	RawConfidence float32          `json:"raw_confidence"` // producer-assigned, advisory only
}

// LineItem is one invoice line. Order is the position within the invoice and
// stays stable across normalization.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
	Order       int     `json:"order"`
}

// Total returns the candidate total or 0 when absent.
func (c *ExtractionCandidate) Total() float64 {
	if c.TotalAmount == nil {
		return 0
	}
	return *c.TotalAmount
}

// HasTotal reports whether the tier extracted any total at all.
func (c *ExtractionCandidate) HasTotal() bool {
	return c.TotalAmount != nil
}
