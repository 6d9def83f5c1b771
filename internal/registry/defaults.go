package registry

import (
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// defaultVendors seeds a fresh registry with the two known vendor layouts.
func defaultVendors() map[string]*entity.VendorPattern {
	now := time.Now().UTC().Format(time.RFC3339)
	return map[string]*entity.VendorPattern{
		"pacific_food": {
			VendorID:   "pacific_food",
			VendorName: "Pacific Food Importers",
			NamePatterns: []string{
				`pacific\s+food\s+importers?`,
				`pacific\s+food`,
			},
			InvoicePrefixPatterns:  []string{"^37"},
			InvoiceNumberLocation:  "top_right",
			InvoiceNumberLabel:     "INVOICE",
			InvoiceNumberRegex:     `^37\d{4}$`,
			InvoiceNumberMinLength: 6,
			InvoiceNumberMaxLength: 6,
			ColumnMappings: map[string]string{
				"quantity":    "SHIPPED",
				"unit_price":  "Price",
				"line_total":  "Amount",
				"description": "DESCRIPTION",
			},
			Confidence:  1.0,
			SampleCount: 4,
			LastUpdated: now,
			Notes:       "Invoices always start with 37 (370-379). Do not confuse with ORDER NO.",
		},
		"franks": {
			VendorID:   "franks",
			VendorName: "Frank's Quality Produce",
			NamePatterns: []string{
				`frank'?s?\s+quality\s+produce`,
				`frank'?s?\s+produce`,
			},
			InvoicePrefixPatterns:  []string{"^200"},
			InvoiceNumberLocation:  "top_center",
			InvoiceNumberLabel:     "Invoice #",
			InvoiceNumberRegex:     `^200\d{5}$`,
			InvoiceNumberMinLength: 8,
			InvoiceNumberMaxLength: 8,
			ColumnMappings: map[string]string{
				"quantity":    "Quantity",
				"unit_price":  "Price Each",
				"line_total":  "Amount",
				"description": "Description",
			},
			Confidence:  1.0,
			SampleCount: 2,
			LastUpdated: now,
			Notes:       "Invoice numbers always start with 200 and are 8 digits total.",
		},
	}
}
