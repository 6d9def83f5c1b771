package llmtier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

var invoiceSchema = mustCompileSchema(InvoiceJSONSchema)

func mustCompileSchema(src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("invoice.json", strings.NewReader(src)); err != nil {
		panic(fmt.Sprintf("add schema resource: %v", err))
	}
	schema, err := compiler.Compile("invoice.json")
	if err != nil {
		panic(fmt.Sprintf("compile invoice schema: %v", err))
	}
	return schema
}

type candidatePayload struct {
	InvoiceNumber string        `json:"invoice_number"`
	VendorName    string        `json:"vendor_name"`
	InvoiceDate   string        `json:"invoice_date"`
	TotalAmount   *float64      `json:"total_amount"`
	LineItems     []itemPayload `json:"line_items"`
	Confidence    float32       `json:"confidence"`
}

type itemPayload struct {
	Description string   `json:"description"`
	Quantity    *float64 `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price"`
	LineTotal   *float64 `json:"line_total"`
}

// ParseCandidate sanitizes a raw model reply, validates it against the
// invoice schema, and maps it into an ExtractionCandidate for the given
// method. Rejected replies fail the tier; they never surface partially.
func ParseCandidate(raw string, method constants.Method) (entity.ExtractionCandidate, error) {
	clean, err := SanitizeResponse(raw)
	if err != nil {
		return entity.ExtractionCandidate{}, fmt.Errorf("sanitize response: %w", err)
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(clean))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return entity.ExtractionCandidate{}, fmt.Errorf("decode sanitized json: %w", err)
	}
	if err := invoiceSchema.Validate(doc); err != nil {
		return entity.ExtractionCandidate{}, fmt.Errorf("response failed schema validation: %w", err)
	}

	var payload candidatePayload
	if err := json.Unmarshal(clean, &payload); err != nil {
		return entity.ExtractionCandidate{}, fmt.Errorf("unmarshal candidate: %w", err)
	}

	candidate := entity.ExtractionCandidate{
		InvoiceNumber: strings.TrimSpace(payload.InvoiceNumber),
		VendorName:    strings.TrimSpace(payload.VendorName),
		InvoiceDate:   strings.TrimSpace(payload.InvoiceDate),
		TotalAmount:   payload.TotalAmount,
		Method:        method,
		RawConfidence: clampConfidence(payload.Confidence),
	}
	if candidate.InvoiceNumber == "" {
		candidate.InvoiceNumber = constants.UnknownInvoiceNumber
	}

	for i, it := range payload.LineItems {
		desc := strings.TrimSpace(it.Description)
		if desc == "" {
			continue
		}
		candidate.LineItems = append(candidate.LineItems, entity.LineItem{
			Description: desc,
			Quantity:    floatOrZero(it.Quantity),
			UnitPrice:   floatOrZero(it.UnitPrice),
			LineTotal:   floatOrZero(it.LineTotal),
			Order:       i + 1,
		})
	}
	return candidate, nil
}

func clampConfidence(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
