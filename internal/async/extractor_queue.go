package async

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
)

// ExtractorQueue fans documents out to a fixed worker pool. Documents are
// independent of each other (the vendor registry handles its own locking),
// so workers share nothing beyond the processor.
type ExtractorQueue struct {
	proc    *pipeline.Processor
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ExtractorQueue)

func WithWorkers(n int) Option {
	return func(q *ExtractorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ExtractorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ExtractorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewExtractorQueue(proc *pipeline.Processor, logger *slog.Logger, opts ...Option) *ExtractorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ExtractorQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ExtractorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("queue.worker_started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					result := q.proc.ProcessDocument(ctx, job.SourcePath, job.Pages)
					cancel()

					q.logger.Info("queue.document_processed",
						"worker_id", workerID,
						"source_path", job.SourcePath,
						"trace_id", job.TraceID,
						"accepted", result.Accepted(),
						"wait_ms", time.Since(job.SubmittedAt).Milliseconds(),
					)
					if job.Done != nil {
						job.Done(result)
					}
				}

				q.logger.Info("queue.worker_stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ExtractorQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("queue.enqueue_after_shutdown", "source_path", job.SourcePath)
		return nil
	}
	select {
	case q.ch <- job:
		q.logger.Info("queue.document_queued", "source_path", job.SourcePath, "pages", len(job.Pages))
	default:
		q.logger.Warn("queue.full_backpressure", "source_path", job.SourcePath)
		q.ch <- job
	}
	return nil
}

func (q *ExtractorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown_interrupted")
	case <-done:
		q.logger.Info("queue.drained")
	}
}
