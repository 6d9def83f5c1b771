package llmtier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/textnorm"
	"github.com/joseph-ayodele/invoice-extractor/internal/tier"
)

const textSystemPrompt = `You are an invoice data extraction system. You receive OCR text from a ` +
	`scanned invoice page and return structured JSON. The text may contain OCR errors: O/0 and ` +
	`l/1 confusions, broken words, misaligned columns. Extract the invoice number, vendor name, ` +
	`invoice date (YYYY-MM-DD), total amount, and line items. Use "UNKNOWN" for the invoice ` +
	`number only when it genuinely cannot be found. Report a confidence between 0 and 1 that ` +
	`reflects how legible the source text was.`

// TextExtractor is the OCR+LLM tier: corrected page text goes to a text
// model constrained to the invoice schema.
type TextExtractor struct {
	client *Client
	logger *slog.Logger
}

func NewTextExtractor(client *Client, logger *slog.Logger) *TextExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextExtractor{client: client, logger: logger}
}

func (e *TextExtractor) Method() constants.Method { return constants.MethodOCRLLM }

func (e *TextExtractor) Input() tier.InputKind { return tier.InputText }

func (e *TextExtractor) Extract(ctx context.Context, page tier.PageContent, hints *entity.VendorHints) (entity.ExtractionCandidate, error) {
	if !e.client.Available() {
		return entity.ExtractionCandidate{}, fmt.Errorf("text llm tier: %w", tier.ErrUnavailable)
	}
	if strings.TrimSpace(page.Text) == "" {
		return entity.ExtractionCandidate{}, fmt.Errorf("page %d has no text content", page.PageNumber)
	}

	system := textSystemPrompt
	if hints != nil {
		system += "\n\n" + hints.PromptInstructions()
	}

	text := textnorm.Correct(page.Text)
	messages := []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: "Extract the invoice data from this page:\n\n" + text},
	}

	content, err := e.client.Complete(ctx, e.client.cfg.Model, messages)
	if err != nil {
		return entity.ExtractionCandidate{}, err
	}

	candidate, err := ParseCandidate(content, constants.MethodOCRLLM)
	if err != nil {
		e.logger.Warn("tier.ocr_llm.parse_failed", "page", page.PageNumber, "error", err)
		return entity.ExtractionCandidate{}, err
	}

	e.logger.Debug("tier.ocr_llm.extracted",
		"page", page.PageNumber,
		"invoice_number", candidate.InvoiceNumber,
		"confidence", candidate.RawConfidence,
	)
	return candidate, nil
}
