package entity

// VendorPattern is one known vendor's extraction contract: how to detect the
// vendor, how to validate its invoice numbers, and where its fields live.
// JSON tags match the on-disk registry file.
type VendorPattern struct {
	VendorID   string `json:"vendor_id"`
	VendorName string `json:"vendor_name"`

	// Detection patterns
	NamePatterns          []string `json:"name_patterns"`
	InvoicePrefixPatterns []string `json:"invoice_prefix_patterns"`

	// Extraction hints
	InvoiceNumberLocation string `json:"invoice_number_location"`
	InvoiceNumberLabel    string `json:"invoice_number_label"`

	// Validation rules
	InvoiceNumberRegex     string `json:"invoice_number_regex"`
	InvoiceNumberMinLength int    `json:"invoice_number_min_length"`
	InvoiceNumberMaxLength int    `json:"invoice_number_max_length"`

	// Maps logical field -> source column label
	ColumnMappings map[string]string `json:"column_mappings"`

	// Learning data
	Confidence  float64 `json:"confidence"`
	SampleCount int     `json:"sample_count"`
	LastUpdated string  `json:"last_updated"`

	Notes string `json:"notes,omitempty"`
}
