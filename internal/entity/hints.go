package entity

import (
	"fmt"
	"sort"
	"strings"
)

// VendorHints is the structured hint the registry hands to non-deterministic
// tiers. This is how registry knowledge parameterizes the model/LLM tiers,
// not just the pattern tier.
type VendorHints struct {
	VendorID              string            `json:"vendor_id"`
	VendorName            string            `json:"vendor_name"`
	InvoiceNumberRegex    string            `json:"invoice_number_regex"`
	InvoicePrefixPatterns []string          `json:"invoice_prefix_patterns"`
	InvoiceNumberLabel    string            `json:"invoice_number_label"`
	InvoiceNumberLocation string            `json:"invoice_number_location"`
	MinLength             int               `json:"min_length"`
	MaxLength             int               `json:"max_length"`
	ColumnMappings        map[string]string `json:"column_mappings,omitempty"`
	Notes                 string            `json:"notes,omitempty"`
}

// PromptInstructions renders the hints as extraction instructions suitable
// for inclusion in an LLM prompt.
func (h *VendorHints) PromptInstructions() string {
	var b strings.Builder
	fmt.Fprintf(&b, "VENDOR: %s\n", strings.ToUpper(h.VendorName))
	fmt.Fprintf(&b, "- Vendor Name: MUST be exactly %q\n", h.VendorName)
	fmt.Fprintf(&b, "- Invoice Number: located at %s, labeled %q\n", h.InvoiceNumberLocation, h.InvoiceNumberLabel)
	fmt.Fprintf(&b, "  * MUST match pattern: %s\n", h.InvoiceNumberRegex)
	if len(h.InvoicePrefixPatterns) > 0 {
		fmt.Fprintf(&b, "  * Valid prefixes: %s\n", strings.Join(h.InvoicePrefixPatterns, ", "))
	}
	fmt.Fprintf(&b, "  * Length: %d-%d characters\n", h.MinLength, h.MaxLength)
	b.WriteString("  * DO NOT confuse with other numbers (PO, Order No, etc.)\n")
	if len(h.ColumnMappings) > 0 {
		b.WriteString("- Column Mappings:\n")
		fields := make([]string, 0, len(h.ColumnMappings))
		for f := range h.ColumnMappings {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			fmt.Fprintf(&b, "  * %s: %q column\n", f, h.ColumnMappings[f])
		}
	}
	if h.Notes != "" {
		fmt.Fprintf(&b, "IMPORTANT NOTES:\n%s\n", h.Notes)
	}
	return b.String()
}
