package llmtier

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/tier"
)

const visionSystemPrompt = `You are an invoice data extraction system. You receive an image of a ` +
	`scanned invoice page and return structured JSON. Read the page directly; do not guess values ` +
	`that are not visible. Extract the invoice number, vendor name, invoice date (YYYY-MM-DD), ` +
	`total amount, and line items. Use "UNKNOWN" for the invoice number only when it genuinely ` +
	`cannot be found. Report a confidence between 0 and 1.`

// VisionExtractor is the last-resort tier: the rendered page image goes to
// a multimodal model. It carries no acceptance gate, so its candidate is
// always surfaced to the validator.
type VisionExtractor struct {
	client *Client
	logger *slog.Logger
}

func NewVisionExtractor(client *Client, logger *slog.Logger) *VisionExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &VisionExtractor{client: client, logger: logger}
}

func (e *VisionExtractor) Method() constants.Method { return constants.MethodVisionLLM }

func (e *VisionExtractor) Input() tier.InputKind { return tier.InputImage }

func (e *VisionExtractor) Extract(ctx context.Context, page tier.PageContent, hints *entity.VendorHints) (entity.ExtractionCandidate, error) {
	if !e.client.Available() {
		return entity.ExtractionCandidate{}, fmt.Errorf("vision llm tier: %w", tier.ErrUnavailable)
	}
	if len(page.Image) == 0 {
		return entity.ExtractionCandidate{}, fmt.Errorf("page %d has no image content", page.PageNumber)
	}

	system := visionSystemPrompt
	if hints != nil {
		system += "\n\n" + hints.PromptInstructions()
	}

	mime := http.DetectContentType(page.Image)
	dataURL := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(page.Image)
	messages := []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: []contentPart{
			{Type: "text", Text: "Extract the invoice data from this page image."},
			{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
		}},
	}

	content, err := e.client.Complete(ctx, e.client.cfg.VisionModel, messages)
	if err != nil {
		return entity.ExtractionCandidate{}, err
	}

	candidate, err := ParseCandidate(content, constants.MethodVisionLLM)
	if err != nil {
		e.logger.Warn("tier.vision_llm.parse_failed", "page", page.PageNumber, "error", err)
		return entity.ExtractionCandidate{}, err
	}

	e.logger.Debug("tier.vision_llm.extracted",
		"page", page.PageNumber,
		"invoice_number", candidate.InvoiceNumber,
		"confidence", candidate.RawConfidence,
	)
	return candidate, nil
}
