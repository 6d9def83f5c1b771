package layout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/textnorm"
	"github.com/joseph-ayodele/invoice-extractor/internal/tier"
	"github.com/joseph-ayodele/invoice-extractor/internal/transport"
)

// Extractor is the layout-model tier. It posts corrected page text to a
// locally served document-understanding model and maps the response into a
// candidate. With no endpoint configured the tier reports itself
// unavailable so the cascade skips it.
type Extractor struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func New(cfg common.LayoutConfig, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Extractor{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (e *Extractor) Method() constants.Method { return constants.MethodLayoutModel }

func (e *Extractor) Input() tier.InputKind { return tier.InputText }

type extractRequest struct {
	Text  string        `json:"text"`
	Hints *requestHints `json:"hints,omitempty"`
}

type requestHints struct {
	VendorName         string `json:"vendor_name,omitempty"`
	InvoiceNumberRegex string `json:"invoice_number_regex,omitempty"`
	InvoiceNumberLabel string `json:"invoice_number_label,omitempty"`
}

type extractResponse struct {
	InvoiceNumber string   `json:"invoice_number"`
	VendorName    string   `json:"vendor_name"`
	InvoiceDate   string   `json:"invoice_date"`
	TotalAmount   *float64 `json:"total_amount"`
	LineItems     []struct {
		Description string  `json:"description"`
		Quantity    float64 `json:"quantity"`
		UnitPrice   float64 `json:"unit_price"`
		LineTotal   float64 `json:"line_total"`
	} `json:"line_items"`
	Confidence float32 `json:"confidence"`
}

func (e *Extractor) Extract(ctx context.Context, page tier.PageContent, hints *entity.VendorHints) (entity.ExtractionCandidate, error) {
	if e.baseURL == "" {
		return entity.ExtractionCandidate{}, fmt.Errorf("layout model endpoint not configured: %w", tier.ErrUnavailable)
	}
	if strings.TrimSpace(page.Text) == "" {
		return entity.ExtractionCandidate{}, fmt.Errorf("page %d has no text content", page.PageNumber)
	}

	req := extractRequest{Text: textnorm.Correct(page.Text)}
	if hints != nil {
		req.Hints = &requestHints{
			VendorName:         hints.VendorName,
			InvoiceNumberRegex: hints.InvoiceNumberRegex,
			InvoiceNumberLabel: hints.InvoiceNumberLabel,
		}
	}

	raw, status, err := transport.SendJSON(ctx, e.httpClient, e.baseURL+"/v1/extract", req, nil, e.logger)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return entity.ExtractionCandidate{}, fmt.Errorf("layout model timed out: %w", err)
		}
		if status == 0 || status == http.StatusNotFound {
			return entity.ExtractionCandidate{}, fmt.Errorf("layout model unreachable: %v: %w", err, tier.ErrUnavailable)
		}
		return entity.ExtractionCandidate{}, fmt.Errorf("layout model request failed (status %d)", status)
	}

	var resp extractResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return entity.ExtractionCandidate{}, fmt.Errorf("decode layout model response: %w", err)
	}

	candidate := entity.ExtractionCandidate{
		InvoiceNumber: strings.TrimSpace(resp.InvoiceNumber),
		VendorName:    strings.TrimSpace(resp.VendorName),
		InvoiceDate:   strings.TrimSpace(resp.InvoiceDate),
		TotalAmount:   resp.TotalAmount,
		Method:        constants.MethodLayoutModel,
		RawConfidence: resp.Confidence,
	}
	if candidate.InvoiceNumber == "" {
		candidate.InvoiceNumber = constants.UnknownInvoiceNumber
	}
	for i, it := range resp.LineItems {
		desc := strings.TrimSpace(it.Description)
		if desc == "" {
			continue
		}
		candidate.LineItems = append(candidate.LineItems, entity.LineItem{
			Description: desc,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal,
			Order:       i + 1,
		})
	}

	e.logger.Debug("tier.layout_model.extracted",
		"page", page.PageNumber,
		"invoice_number", candidate.InvoiceNumber,
		"confidence", candidate.RawConfidence,
	)
	return candidate, nil
}
