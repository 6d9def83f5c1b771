// Package pipeline drives page extraction end to end: the tier cascade,
// validator-gated acceptance, registry learning, and the normalize-and-
// persist step that turns accepted candidates into canonical records.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/textnorm"
	"github.com/joseph-ayodele/invoice-extractor/internal/tier"
	"github.com/joseph-ayodele/invoice-extractor/internal/validate"
)

// VendorRegistry is the slice of the registry the cascade needs: detection,
// hints, number validation, and the learning feedback loop.
type VendorRegistry interface {
	Detect(vendorName, invoiceNumber, rawText string) *entity.VendorPattern
	Instructions(v *entity.VendorPattern) *entity.VendorHints
	ValidateInvoiceNumber(number string, v *entity.VendorPattern) (bool, string)
	Learn(vendorID string, wasSuccessful bool) error
}

// Orchestrator walks the tier cascade for one page until a candidate scores
// past its tier's threshold or every tier has been tried. Tiers carrying no
// threshold entry are ungated: their candidate is accepted score-wise and
// the structural check downstream decides persistence.
type Orchestrator struct {
	tiers      []tier.Extractor
	thresholds map[constants.Method]float32
	registry   VendorRegistry
	validator  *validate.Validator
	logger     *slog.Logger
}

func NewOrchestrator(
	tiers []tier.Extractor,
	thresholds map[constants.Method]float32,
	reg VendorRegistry,
	validator *validate.Validator,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		tiers:      tiers,
		thresholds: thresholds,
		registry:   reg,
		validator:  validator,
		logger:     logger,
	}
}

// Thresholds builds the cascade's threshold map from configuration. The
// vision tier is deliberately absent: the last resort has no gate.
func Thresholds(cfg common.TiersConfig) map[constants.Method]float32 {
	return map[constants.Method]float32{
		constants.MethodPattern:     cfg.PatternThreshold,
		constants.MethodLayoutModel: cfg.LayoutThreshold,
		constants.MethodOCRLLM:      cfg.OCRLLMThreshold,
	}
}

// extraction is the cascade's verdict for one page, before normalization.
type extraction struct {
	accepted  bool
	candidate entity.ExtractionCandidate
	score     float32
	vendor    *entity.VendorPattern
	reasons   []string
}

// extractPage runs the cascade. The returned extraction always carries the
// best-scoring candidate seen, accepted or not, so exhausted pages still
// surface something for manual review.
func (o *Orchestrator) extractPage(ctx context.Context, page tier.PageContent) extraction {
	text := textnorm.Correct(page.Text)
	page.Text = text

	vendor := o.registry.Detect("", "", text)
	var hints *entity.VendorHints
	if vendor != nil {
		hints = o.registry.Instructions(vendor)
		o.logger.Debug("orchestrator.vendor_detected", "page", page.PageNumber, "vendor_id", vendor.VendorID)
	}

	result := extraction{vendor: vendor}
	var best *extraction

	for _, t := range o.tiers {
		method := t.Method()

		if t.Input() == tier.InputImage && len(page.Image) == 0 {
			result.reasons = append(result.reasons, fmt.Sprintf("%s: no page image available", method))
			continue
		}
		if t.Input() == tier.InputText && strings.TrimSpace(text) == "" {
			result.reasons = append(result.reasons, fmt.Sprintf("%s: no page text available", method))
			continue
		}

		candidate, err := t.Extract(ctx, page, hints)
		if err != nil {
			if errors.Is(err, tier.ErrUnavailable) {
				o.logger.Info("orchestrator.tier_skipped", "page", page.PageNumber, "method", method, "error", err)
				result.reasons = append(result.reasons, fmt.Sprintf("%s: unavailable", method))
				continue
			}
			o.logger.Warn("orchestrator.tier_failed", "page", page.PageNumber, "method", method, "error", err)
			result.reasons = append(result.reasons, fmt.Sprintf("%s: %v", method, err))
			continue
		}

		if vendor == nil {
			// the candidate may reveal the vendor the raw scan missed
			if v := o.registry.Detect(candidate.VendorName, candidate.InvoiceNumber, text); v != nil {
				vendor = v
				hints = o.registry.Instructions(v)
				result.vendor = v
				o.logger.Debug("orchestrator.vendor_detected_late", "page", page.PageNumber, "vendor_id", v.VendorID)
			}
		}
		o.refineCandidate(&candidate, vendor, text)

		score, why := o.validator.Score(&candidate, vendor)
		o.logger.Debug("orchestrator.tier_scored",
			"page", page.PageNumber,
			"method", method,
			"score", score,
			"raw_confidence", candidate.RawConfidence,
		)

		if best == nil || score > best.score {
			best = &extraction{candidate: candidate, score: score, vendor: vendor}
		}

		threshold, gated := o.thresholds[method]
		if !gated || score >= threshold {
			result.accepted = true
			result.candidate = candidate
			result.score = score
			result.vendor = vendor
			o.learn(vendor, true)
			return result
		}
		result.reasons = append(result.reasons,
			fmt.Sprintf("%s: score %.2f below threshold %.2f (%s)", method, score, threshold, strings.Join(why, "; ")))
	}

	if best != nil {
		result.candidate = best.candidate
		result.score = best.score
		if best.vendor != nil {
			result.vendor = best.vendor
		}
	}
	o.learn(result.vendor, false)
	return result
}

// learn feeds the adaptive-confidence loop. Failures to persist the
// registry are logged, never fatal to the page.
func (o *Orchestrator) learn(vendor *entity.VendorPattern, success bool) {
	if vendor == nil {
		return
	}
	if err := o.registry.Learn(vendor.VendorID, success); err != nil {
		o.logger.Warn("orchestrator.learn_failed", "vendor_id", vendor.VendorID, "error", err)
	}
}

// refineCandidate applies registry knowledge to a tier's output: the
// canonical vendor name replaces near-miss OCR readings, and when the
// extracted invoice number fails the vendor's contract the corrected page
// text is re-scanned for a token that satisfies it.
func (o *Orchestrator) refineCandidate(candidate *entity.ExtractionCandidate, vendor *entity.VendorPattern, text string) {
	if vendor == nil {
		return
	}
	if candidate.VendorName != vendor.VendorName && candidate.VendorName != "" {
		o.logger.Debug("orchestrator.vendor_name_corrected",
			"extracted", candidate.VendorName,
			"canonical", vendor.VendorName,
		)
	}
	candidate.VendorName = vendor.VendorName

	if ok, _ := o.registry.ValidateInvoiceNumber(candidate.InvoiceNumber, vendor); ok {
		return
	}
	if found := rescanInvoiceNumber(text, vendor); found != "" {
		o.logger.Info("orchestrator.invoice_number_rescanned",
			"rejected", candidate.InvoiceNumber,
			"found", found,
		)
		candidate.InvoiceNumber = found
	}
}

// rescanInvoiceNumber searches the page for any token matching the vendor's
// invoice-number contract, used when the tier's own pick fails validation.
func rescanInvoiceNumber(text string, vendor *entity.VendorPattern) string {
	if vendor.InvoiceNumberRegex == "" {
		return ""
	}
	pattern := strings.TrimSuffix(strings.TrimPrefix(vendor.InvoiceNumberRegex, "^"), "$")
	re, err := regexp.Compile(`\b(?:` + pattern + `)\b`)
	if err != nil {
		return ""
	}
	return re.FindString(text)
}
