package async

import (
	"context"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/tier"
)

// Job is one source document queued for extraction. Pages arrive already
// split and OCR'd by the caller.
type Job struct {
	SourcePath  string
	Pages       []tier.PageContent
	SubmittedAt time.Time
	TraceID     string

	// Done, when set, receives the document result on the worker goroutine.
	Done func(*entity.DocumentResult)
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
