// Package tier defines the single contract every extraction back-end
// satisfies. The orchestrator only ever talks to this interface; the
// back-ends' internals (model inference, OCR, remote APIs) live elsewhere.
package tier

import (
	"context"
	"errors"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// ErrUnavailable means the back-end cannot run at all (missing credentials,
// model not loaded, endpoint unreachable). Distinct from a content-driven
// low-confidence result: an unavailable tier is skipped without affecting
// vendor statistics.
var ErrUnavailable = errors.New("tier unavailable")

// InputKind declares which page representation a tier consumes.
type InputKind int

const (
	InputText InputKind = iota
	InputImage
)

// PageContent carries both representations of one page; the orchestrator
// hands each tier the one it declares. Text is already corrected.
type PageContent struct {
	PageNumber int
	Text       string
	Image      []byte // encoded image bytes, nil for text-only sources
}

// Extractor is one strategy in the cascade.
type Extractor interface {
	// Method identifies the tier in results and thresholds.
	Method() constants.Method

	// Input declares the page representation this tier needs.
	Input() InputKind

	// Extract attempts the page. Returning ErrUnavailable skips the tier;
	// any other error, or a weak candidate, advances the cascade.
	Extract(ctx context.Context, page PageContent, hints *entity.VendorHints) (entity.ExtractionCandidate, error)
}
