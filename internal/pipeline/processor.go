package pipeline

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/normalize"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
	"github.com/joseph-ayodele/invoice-extractor/internal/tier"
	"github.com/joseph-ayodele/invoice-extractor/internal/validate"
)

// Processor turns raw pages into per-page outcomes: cascade, structural
// gate, normalization, transactional persistence. Every page yields exactly
// one outcome; no page error ever aborts the document.
type Processor struct {
	orchestrator *Orchestrator
	validator    *validate.Validator
	normalizer   *normalize.Normalizer
	repo         repository.InvoiceRepository
	logger       *slog.Logger
}

func NewProcessor(
	orchestrator *Orchestrator,
	validator *validate.Validator,
	normalizer *normalize.Normalizer,
	repo repository.InvoiceRepository,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		orchestrator: orchestrator,
		validator:    validator,
		normalizer:   normalizer,
		repo:         repo,
		logger:       logger,
	}
}

// ProcessDocument handles each page independently and returns outcomes in
// page order.
func (p *Processor) ProcessDocument(ctx context.Context, sourcePath string, pages []tier.PageContent) *entity.DocumentResult {
	result := &entity.DocumentResult{SourcePath: sourcePath}
	for _, page := range pages {
		outcome := p.ProcessPage(ctx, sourcePath, page)
		result.Pages = append(result.Pages, outcome)
	}

	p.logger.Info("processor.document_done",
		"source_path", sourcePath,
		"pages", len(pages),
		"accepted", result.Accepted(),
	)
	return result
}

// ProcessPage runs one page through the cascade and, when accepted and
// structurally valid, persists the canonical record.
func (p *Processor) ProcessPage(ctx context.Context, sourcePath string, page tier.PageContent) entity.PageOutcome {
	ext := p.orchestrator.extractPage(ctx, page)

	outcome := entity.PageOutcome{
		PageNumber: page.PageNumber,
		Method:     ext.candidate.Method,
		Confidence: ext.score,
		Reasons:    ext.reasons,
	}

	if !ext.accepted {
		outcome.Status = constants.PageExhausted
		if outcome.Method == "" {
			outcome.Method = constants.MethodNone
		} else {
			// best-effort candidate for manual review
			outcome.Candidate = &ext.candidate
		}
		p.logger.Warn("processor.page_exhausted", "source_path", sourcePath, "page", page.PageNumber)
		return outcome
	}

	if ok, why := p.validator.IsStructurallyValid(&ext.candidate); !ok {
		outcome.Status = constants.PageNeedsReview
		outcome.Candidate = &ext.candidate
		outcome.Reasons = append(outcome.Reasons, why...)
		p.logger.Warn("processor.page_needs_review",
			"source_path", sourcePath,
			"page", page.PageNumber,
			"reasons", why,
		)
		return outcome
	}

	inv, items, err := p.normalizer.Normalize(&ext.candidate, ext.vendor)
	if err != nil {
		outcome.Status = constants.PageFailed
		outcome.Candidate = &ext.candidate
		outcome.Reasons = append(outcome.Reasons, err.Error())
		p.logger.Error("processor.normalize_failed", "source_path", sourcePath, "page", page.PageNumber, "error", err)
		return outcome
	}
	inv.ConfidenceScore = ext.score
	inv.Validated = true
	inv.SourcePath = sourcePath

	if _, err := p.repo.Upsert(ctx, inv, items); err != nil {
		outcome.Status = constants.PageFailed
		outcome.Candidate = &ext.candidate
		outcome.Reasons = append(outcome.Reasons, err.Error())
		p.logger.Error("processor.persist_failed", "source_path", sourcePath, "page", page.PageNumber, "error", err)
		return outcome
	}

	outcome.Status = constants.PageAccepted
	outcome.Invoice = inv
	p.logger.Info("processor.page_accepted",
		"source_path", sourcePath,
		"page", page.PageNumber,
		"method", ext.candidate.Method,
		"confidence", ext.score,
		"invoice_number", inv.InvoiceNumber,
	)
	return outcome
}
