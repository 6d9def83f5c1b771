package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/normalize"
	"github.com/joseph-ayodele/invoice-extractor/internal/registry"
	"github.com/joseph-ayodele/invoice-extractor/internal/tier"
	"github.com/joseph-ayodele/invoice-extractor/internal/validate"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTier counts invocations and delegates to a canned behavior.
type fakeTier struct {
	method  constants.Method
	input   tier.InputKind
	calls   int
	extract func(page tier.PageContent, hints *entity.VendorHints) (entity.ExtractionCandidate, error)
}

func (f *fakeTier) Method() constants.Method { return f.method }
func (f *fakeTier) Input() tier.InputKind    { return f.input }
func (f *fakeTier) Extract(_ context.Context, page tier.PageContent, hints *entity.VendorHints) (entity.ExtractionCandidate, error) {
	f.calls++
	return f.extract(page, hints)
}

func unavailableTier(method constants.Method) *fakeTier {
	return &fakeTier{
		method: method,
		input:  tier.InputText,
		extract: func(tier.PageContent, *entity.VendorHints) (entity.ExtractionCandidate, error) {
			return entity.ExtractionCandidate{}, fmt.Errorf("%s offline: %w", method, tier.ErrUnavailable)
		},
	}
}

func candidateTier(method constants.Method, candidate entity.ExtractionCandidate) *fakeTier {
	return &fakeTier{
		method: method,
		input:  tier.InputText,
		extract: func(tier.PageContent, *entity.VendorHints) (entity.ExtractionCandidate, error) {
			c := candidate
			c.Method = method
			return c, nil
		},
	}
}

// fakeRepo records upserts and optionally injects a failure.
type fakeRepo struct {
	upserts  []entity.CanonicalInvoice
	failWith error
}

func (r *fakeRepo) FindByKey(context.Context, entity.InvoiceKey) (*entity.CanonicalInvoice, error) {
	return nil, common.NewAppError("INVOICE_NOT_FOUND", "no invoice", common.ErrNotFound)
}
func (r *fakeRepo) Upsert(_ context.Context, inv *entity.CanonicalInvoice, _ []entity.LineItem) (int64, error) {
	if r.failWith != nil {
		return 0, r.failWith
	}
	r.upserts = append(r.upserts, *inv)
	return int64(len(r.upserts)), nil
}
func (r *fakeRepo) List(context.Context) ([]entity.CanonicalInvoice, error) {
	return r.upserts, nil
}
func (r *fakeRepo) GetLineItems(context.Context, int64) ([]entity.LineItem, error) {
	return nil, nil
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.Load(filepath.Join(t.TempDir(), "registry.json"), testLogger())
	require.NoError(t, err)
	return reg
}

func newProcessor(t *testing.T, reg *registry.Registry, repo *fakeRepo, tiers ...tier.Extractor) *Processor {
	t.Helper()
	logger := testLogger()
	validator := validate.New(reg, logger)
	thresholds := Thresholds(common.TiersConfig{
		PatternThreshold: 0.60,
		LayoutThreshold:  0.50,
		OCRLLMThreshold:  0.60,
	})
	orch := NewOrchestrator(tiers, thresholds, reg, validator, logger)
	return NewProcessor(orch, validator, normalize.New(logger), repo, logger)
}

func f64(v float64) *float64 { return &v }

func fullPacificCandidate() entity.ExtractionCandidate {
	return entity.ExtractionCandidate{
		InvoiceNumber: "378093",
		VendorName:    "Pacific Food Importers",
		InvoiceDate:   "2024-03-15",
		TotalAmount:   f64(1288.76),
		LineItems: []entity.LineItem{
			{Description: "FLOUR POWER BAKERS", Quantity: 12, UnitPrice: 24.06, LineTotal: 288.76, Order: 1},
		},
		RawConfidence: 0.88,
	}
}

const pacificPageText = "PACIFIC FOOD IMPORTERS\nINVOICE 378093\nINVOICE TOTAL $1,288.76"

func TestFirstTierAcceptanceStopsCascade(t *testing.T) {
	tier1 := candidateTier(constants.MethodPattern, fullPacificCandidate())
	tier2 := unavailableTier(constants.MethodLayoutModel)
	tier3 := candidateTier(constants.MethodOCRLLM, fullPacificCandidate())
	repo := &fakeRepo{}

	p := newProcessor(t, testRegistry(t), repo, tier1, tier2, tier3)
	outcome := p.ProcessPage(context.Background(), "a.pdf", tier.PageContent{PageNumber: 1, Text: pacificPageText})

	assert.Equal(t, constants.PageAccepted, outcome.Status)
	assert.Equal(t, constants.MethodPattern, outcome.Method)
	assert.Equal(t, 1, tier1.calls)
	assert.Equal(t, 0, tier2.calls)
	assert.Equal(t, 0, tier3.calls)
	require.Len(t, repo.upserts, 1)
	assert.Equal(t, "378093", repo.upserts[0].InvoiceNumber)
	assert.Equal(t, "Pacific Food Importers", repo.upserts[0].VendorName)
}

func TestLowScoreFallsThroughToLaterTier(t *testing.T) {
	sparse := entity.ExtractionCandidate{
		InvoiceNumber: "378093",
		VendorName:    "Pacific Food Importers",
		RawConfidence: 0.9, // self-reported confidence must not rescue it
	}
	tier1 := candidateTier(constants.MethodPattern, sparse)
	tier2 := unavailableTier(constants.MethodLayoutModel)
	tier3 := candidateTier(constants.MethodOCRLLM, fullPacificCandidate())
	repo := &fakeRepo{}

	p := newProcessor(t, testRegistry(t), repo, tier1, tier2, tier3)
	outcome := p.ProcessPage(context.Background(), "a.pdf", tier.PageContent{PageNumber: 1, Text: pacificPageText})

	assert.Equal(t, constants.PageAccepted, outcome.Status)
	assert.Equal(t, constants.MethodOCRLLM, outcome.Method)
	assert.Equal(t, 1, tier1.calls)
	assert.Equal(t, 1, tier2.calls)
	assert.Equal(t, 1, tier3.calls)
	assert.Len(t, repo.upserts, 1)
}

func TestAllTiersUnavailableIsExhaustedWithoutPersistence(t *testing.T) {
	tiers := []tier.Extractor{
		unavailableTier(constants.MethodPattern),
		unavailableTier(constants.MethodLayoutModel),
		unavailableTier(constants.MethodOCRLLM),
		unavailableTier(constants.MethodVisionLLM),
	}
	repo := &fakeRepo{}

	p := newProcessor(t, testRegistry(t), repo, tiers...)
	outcome := p.ProcessPage(context.Background(), "a.pdf", tier.PageContent{PageNumber: 1, Text: "illegible"})

	assert.Equal(t, constants.PageExhausted, outcome.Status)
	assert.Equal(t, constants.MethodNone, outcome.Method)
	assert.Empty(t, repo.upserts)
	assert.Len(t, outcome.Reasons, 4)
}

func TestExhaustedCarriesBestEffortCandidate(t *testing.T) {
	weak := entity.ExtractionCandidate{InvoiceNumber: "378093"}
	tier1 := candidateTier(constants.MethodPattern, weak)
	repo := &fakeRepo{}

	p := newProcessor(t, testRegistry(t), repo, tier1)
	outcome := p.ProcessPage(context.Background(), "a.pdf", tier.PageContent{PageNumber: 1, Text: "x"})

	assert.Equal(t, constants.PageExhausted, outcome.Status)
	require.NotNil(t, outcome.Candidate)
	assert.Equal(t, "378093", outcome.Candidate.InvoiceNumber)
	assert.NotEmpty(t, outcome.Reasons)
	assert.Empty(t, repo.upserts)
}

func TestUngatedFinalTierStructurallyInvalidGoesToReview(t *testing.T) {
	bad := fullPacificCandidate()
	bad.TotalAmount = f64(-500)
	final := candidateTier(constants.MethodVisionLLM, bad)
	final.input = tier.InputImage
	repo := &fakeRepo{}

	p := newProcessor(t, testRegistry(t), repo, final)
	outcome := p.ProcessPage(context.Background(), "a.pdf", tier.PageContent{
		PageNumber: 1,
		Text:       pacificPageText,
		Image:      []byte{0x89, 0x50},
	})

	assert.Equal(t, constants.PageNeedsReview, outcome.Status)
	require.NotNil(t, outcome.Candidate)
	assert.Empty(t, repo.upserts)
}

func TestImageTierSkippedWithoutImage(t *testing.T) {
	final := candidateTier(constants.MethodVisionLLM, fullPacificCandidate())
	final.input = tier.InputImage
	repo := &fakeRepo{}

	p := newProcessor(t, testRegistry(t), repo, final)
	outcome := p.ProcessPage(context.Background(), "a.pdf", tier.PageContent{PageNumber: 1, Text: "text only"})

	assert.Equal(t, constants.PageExhausted, outcome.Status)
	assert.Equal(t, 0, final.calls)
}

func TestInvoiceNumberRescanRecoversFromBadPick(t *testing.T) {
	// the tier grabs a number that violates the vendor contract; the page
	// itself contains the real one
	wrong := fullPacificCandidate()
	wrong.InvoiceNumber = "999999"
	tier1 := candidateTier(constants.MethodPattern, wrong)
	repo := &fakeRepo{}

	p := newProcessor(t, testRegistry(t), repo, tier1)
	outcome := p.ProcessPage(context.Background(), "a.pdf", tier.PageContent{PageNumber: 1, Text: pacificPageText})

	assert.Equal(t, constants.PageAccepted, outcome.Status)
	require.Len(t, repo.upserts, 1)
	assert.Equal(t, "378093", repo.upserts[0].InvoiceNumber)
}

func TestVendorNameCorrectedToCanonical(t *testing.T) {
	misread := fullPacificCandidate()
	misread.VendorName = "PAClFIC FOOD IMPORTERS" // OCR l-for-I
	tier1 := candidateTier(constants.MethodPattern, misread)
	repo := &fakeRepo{}

	p := newProcessor(t, testRegistry(t), repo, tier1)
	outcome := p.ProcessPage(context.Background(), "a.pdf", tier.PageContent{PageNumber: 1, Text: pacificPageText})

	assert.Equal(t, constants.PageAccepted, outcome.Status)
	require.Len(t, repo.upserts, 1)
	assert.Equal(t, "Pacific Food Importers", repo.upserts[0].VendorName)
}

func TestAcceptanceFeedsLearning(t *testing.T) {
	reg := testRegistry(t)
	before, ok := reg.Get("pacific_food")
	require.True(t, ok)

	tier1 := candidateTier(constants.MethodPattern, fullPacificCandidate())
	p := newProcessor(t, reg, &fakeRepo{}, tier1)
	p.ProcessPage(context.Background(), "a.pdf", tier.PageContent{PageNumber: 1, Text: pacificPageText})

	after, ok := reg.Get("pacific_food")
	require.True(t, ok)
	assert.Equal(t, before.SampleCount+1, after.SampleCount)
	assert.GreaterOrEqual(t, after.Confidence, before.Confidence)
}

func TestExhaustionFeedsLearningAsFailure(t *testing.T) {
	reg := testRegistry(t)
	before, ok := reg.Get("pacific_food")
	require.True(t, ok)

	// names the vendor so detection succeeds, but stays too sparse to accept
	sparse := entity.ExtractionCandidate{InvoiceNumber: "378093", VendorName: "Pacific Food Importers"}
	tier1 := candidateTier(constants.MethodPattern, sparse)
	p := newProcessor(t, reg, &fakeRepo{}, tier1)
	outcome := p.ProcessPage(context.Background(), "a.pdf", tier.PageContent{PageNumber: 1, Text: "no vendor text here"})

	assert.Equal(t, constants.PageExhausted, outcome.Status)
	after, ok := reg.Get("pacific_food")
	require.True(t, ok)
	assert.Equal(t, before.SampleCount+1, after.SampleCount)
	assert.Less(t, after.Confidence, before.Confidence)
}

func TestUnparsableDateGoesToReviewNotStore(t *testing.T) {
	bad := fullPacificCandidate()
	bad.InvoiceDate = "sometime in march"
	tier1 := candidateTier(constants.MethodPattern, bad)
	repo := &fakeRepo{}

	p := newProcessor(t, testRegistry(t), repo, tier1)
	outcome := p.ProcessPage(context.Background(), "a.pdf", tier.PageContent{PageNumber: 1, Text: pacificPageText})

	assert.Equal(t, constants.PageNeedsReview, outcome.Status)
	assert.Empty(t, repo.upserts)
}

func TestNormalizationFailureFailsPageOnly(t *testing.T) {
	// scores perfectly but the number strips to nothing during
	// normalization; no registry vendor, so no rescan can recover it
	bad := entity.ExtractionCandidate{
		InvoiceNumber: "---",
		VendorName:    "Zenith Logistics",
		InvoiceDate:   "2024-03-15",
		TotalAmount:   f64(42.00),
		LineItems: []entity.LineItem{
			{Description: "FREIGHT", Quantity: 1, UnitPrice: 42, LineTotal: 42, Order: 1},
		},
	}
	tier1 := candidateTier(constants.MethodPattern, bad)
	repo := &fakeRepo{}

	p := newProcessor(t, testRegistry(t), repo, tier1)
	result := p.ProcessDocument(context.Background(), "a.pdf", []tier.PageContent{
		{PageNumber: 1, Text: "ZENITH LOGISTICS FREIGHT BILL"},
	})

	require.Len(t, result.Pages, 1)
	assert.Equal(t, constants.PageFailed, result.Pages[0].Status)
	assert.Empty(t, repo.upserts)
}

func TestPersistenceFailureDoesNotHaltOtherPages(t *testing.T) {
	tier1 := candidateTier(constants.MethodPattern, fullPacificCandidate())
	repo := &fakeRepo{failWith: errors.New("disk full")}

	p := newProcessor(t, testRegistry(t), repo, tier1)
	result := p.ProcessDocument(context.Background(), "a.pdf", []tier.PageContent{
		{PageNumber: 1, Text: pacificPageText},
		{PageNumber: 2, Text: pacificPageText},
	})

	require.Len(t, result.Pages, 2)
	assert.Equal(t, constants.PageFailed, result.Pages[0].Status)
	assert.Equal(t, constants.PageFailed, result.Pages[1].Status)
	assert.False(t, result.Accepted())
}

func TestOneOutcomePerPageInOrder(t *testing.T) {
	tier1 := candidateTier(constants.MethodPattern, fullPacificCandidate())
	repo := &fakeRepo{}

	p := newProcessor(t, testRegistry(t), repo, tier1)
	pages := []tier.PageContent{
		{PageNumber: 1, Text: pacificPageText},
		{PageNumber: 2, Text: ""},
		{PageNumber: 3, Text: pacificPageText},
	}
	result := p.ProcessDocument(context.Background(), "batch.pdf", pages)

	require.Len(t, result.Pages, 3)
	for i, outcome := range result.Pages {
		assert.Equal(t, i+1, outcome.PageNumber)
	}
	assert.Equal(t, constants.PageAccepted, result.Pages[0].Status)
	assert.Equal(t, constants.PageExhausted, result.Pages[1].Status)
	assert.Equal(t, constants.PageAccepted, result.Pages[2].Status)
	assert.True(t, result.Accepted())
}
