package entity

import "github.com/joseph-ayodele/invoice-extractor/constants"

// PageOutcome is the per-page result handed back to the batch caller. Exactly
// one outcome is produced per page; a failed page never aborts its batch.
type PageOutcome struct {
	PageNumber int                  `json:"page_number"`
	Status     constants.PageStatus `json:"status"`
	Method     constants.Method     `json:"method"`
	Confidence float32              `json:"confidence"`

	// Invoice is set when Status is ACCEPTED.
	Invoice *CanonicalInvoice `json:"invoice,omitempty"`

	// Candidate carries the best-effort extraction for manual review when the
	// page was not persisted (EXHAUSTED / NEEDS_REVIEW / FAILED).
	Candidate *ExtractionCandidate `json:"candidate,omitempty"`

	Reasons []string `json:"reasons,omitempty"`
}

// DocumentResult is the ordered page-indexed sequence of outcomes for one
// source file.
type DocumentResult struct {
	SourcePath string        `json:"source_path"`
	Pages      []PageOutcome `json:"pages"`
}

// Accepted reports whether any page of the document persisted.
func (d *DocumentResult) Accepted() bool {
	for _, p := range d.Pages {
		if p.Status == constants.PageAccepted {
			return true
		}
	}
	return false
}
