package constants

// PageStatus is the terminal outcome for one processed page.
type PageStatus string

// Stable values (store these exact strings in DB).
const (
	PageAccepted    PageStatus = "ACCEPTED"     // a tier cleared its threshold and the record persisted
	PageNeedsReview PageStatus = "NEEDS_REVIEW" // accepted confidence-wise but structurally invalid
	PageExhausted   PageStatus = "EXHAUSTED"    // every tier was skipped or rejected
	PageFailed      PageStatus = "FAILED"       // normalization or persistence failed for this page
)

// UnknownInvoiceNumber is the sentinel some back-ends emit when they cannot
// read a number; the validator penalizes it.
const UnknownInvoiceNumber = "UNKNOWN"
