package entity

import (
	"time"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// InvoiceKey is the natural key for deduplication: at most one canonical
// invoice may exist per key. All three parts are already normalized.
type InvoiceKey struct {
	InvoiceNumber string
	VendorName    string
	InvoiceDate   string // YYYY-MM-DD
}

// CanonicalInvoice is the normalized, storage-ready invoice record.
type CanonicalInvoice struct {
	ID               int64            `json:"id"`
	InvoiceNumber    string           `json:"invoice_number"` // alphanumeric, uppercase
	VendorName       string           `json:"vendor_name"`    // title-cased, suffix-stripped
	InvoiceDate      string           `json:"invoice_date"`   // YYYY-MM-DD
	TotalAmount      float64          `json:"total_amount"`   // two-decimal currency
	ExtractionMethod constants.Method `json:"extraction_method"`
	ConfidenceScore  float32          `json:"confidence_score"`
	Validated        bool             `json:"validated"`
	SourcePath       string           `json:"source_path,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Key returns the invoice's natural key.
func (i *CanonicalInvoice) Key() InvoiceKey {
	return InvoiceKey{
		InvoiceNumber: i.InvoiceNumber,
		VendorName:    i.VendorName,
		InvoiceDate:   i.InvoiceDate,
	}
}
