package async

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/normalize"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
	"github.com/joseph-ayodele/invoice-extractor/internal/registry"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
	"github.com/joseph-ayodele/invoice-extractor/internal/tier"
	"github.com/joseph-ayodele/invoice-extractor/internal/validate"
)

type stubTier struct{}

func (stubTier) Method() constants.Method { return constants.MethodPattern }
func (stubTier) Input() tier.InputKind    { return tier.InputText }
func (stubTier) Extract(_ context.Context, page tier.PageContent, _ *entity.VendorHints) (entity.ExtractionCandidate, error) {
	total := 1288.76
	return entity.ExtractionCandidate{
		InvoiceNumber: "378093",
		VendorName:    "Pacific Food Importers",
		InvoiceDate:   "2024-03-15",
		TotalAmount:   &total,
		LineItems: []entity.LineItem{
			{Description: "FLOUR POWER BAKERS", Quantity: 12, UnitPrice: 24.06, LineTotal: 288.76, Order: 1},
		},
		Method:        constants.MethodPattern,
		RawConfidence: 0.9,
	}, nil
}

func newTestProcessor(t *testing.T) (*pipeline.Processor, repository.InvoiceRepository) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	reg, err := registry.Load(filepath.Join(dir, "registry.json"), logger)
	require.NoError(t, err)

	db, err := repository.Open(context.Background(), common.DatabaseConfig{
		DSN: filepath.Join(dir, "invoices.db"),
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := repository.NewInvoiceRepository(db, logger)

	validator := validate.New(reg, logger)
	orch := pipeline.NewOrchestrator(
		[]tier.Extractor{stubTier{}},
		pipeline.Thresholds(common.TiersConfig{PatternThreshold: 0.60}),
		reg, validator, logger,
	)
	return pipeline.NewProcessor(orch, validator, normalize.New(logger), repo, logger), repo
}

func TestQueueProcessesJobsAndDrains(t *testing.T) {
	proc, repo := newTestProcessor(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	q := NewExtractorQueue(proc, logger, WithWorkers(2), WithQueueSize(8))

	var mu sync.Mutex
	var results []*entity.DocumentResult
	for i := 0; i < 4; i++ {
		err := q.Enqueue(context.Background(), Job{
			SourcePath:  "batch.pdf",
			Pages:       []tier.PageContent{{PageNumber: 1, Text: "PACIFIC FOOD IMPORTERS INVOICE 378093"}},
			SubmittedAt: time.Now(),
			Done: func(r *entity.DocumentResult) {
				mu.Lock()
				results = append(results, r)
				mu.Unlock()
			},
		})
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, results, 4)
	for _, r := range results {
		assert.True(t, r.Accepted())
	}

	// same natural key from every job: exactly one row
	all, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestQueueShutdownIsIdempotent(t *testing.T) {
	proc, _ := newTestProcessor(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	q := NewExtractorQueue(proc, logger, WithWorkers(1))
	ctx := context.Background()
	q.Shutdown(ctx)
	q.Shutdown(ctx)

	// enqueue after shutdown is a logged no-op
	assert.NoError(t, q.Enqueue(ctx, Job{SourcePath: "late.pdf"}))
}

func TestQueueOptionsApply(t *testing.T) {
	proc, _ := newTestProcessor(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	q := NewExtractorQueue(proc, logger,
		WithWorkers(7),
		WithQueueSize(3),
		WithProcessTimeout(time.Second),
	)
	defer q.Shutdown(context.Background())

	assert.Equal(t, 7, q.workers)
	assert.Equal(t, 3, cap(q.ch))
	assert.Equal(t, time.Second, q.timeout)
}
