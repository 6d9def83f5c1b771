package llmtier

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// fieldSynonyms maps key names models drift toward onto the schema's names.
var fieldSynonyms = map[string]string{
	"invoice_no":      "invoice_number",
	"invoice_id":      "invoice_number",
	"number":          "invoice_number",
	"vendor":          "vendor_name",
	"supplier":        "vendor_name",
	"supplier_name":   "vendor_name",
	"date":            "invoice_date",
	"total":           "total_amount",
	"amount":          "total_amount",
	"grand_total":     "total_amount",
	"items":           "line_items",
	"lines":           "line_items",
	"self_confidence": "confidence",
}

var itemSynonyms = map[string]string{
	"desc":     "description",
	"item":     "description",
	"name":     "description",
	"qty":      "quantity",
	"price":    "unit_price",
	"unit":     "unit_price",
	"total":    "line_total",
	"amount":   "line_total",
	"subtotal": "line_total",
}

// SanitizeResponse turns a best-effort model reply into strict candidate
// JSON. Models wrap output in code fences or prose despite instructions,
// so the outermost object is sliced out before any decoding is attempted.
func SanitizeResponse(raw string) ([]byte, error) {
	s := stripCodeFences(raw)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("response contains no JSON object")
	}
	s = s[start : end+1]

	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, fmt.Errorf("decode candidate json: %w", err)
	}

	obj = renameKeys(obj, fieldSynonyms)
	coerceNumeric(obj, "total_amount")
	coerceNumeric(obj, "confidence")

	if items, ok := obj["line_items"].([]any); ok {
		for i, it := range items {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			m = renameKeys(m, itemSynonyms)
			coerceNumeric(m, "quantity")
			coerceNumeric(m, "unit_price")
			coerceNumeric(m, "line_total")
			items[i] = m
		}
		obj["line_items"] = items
	} else if obj["line_items"] == nil {
		obj["line_items"] = []any{}
	}

	return json.Marshal(obj)
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// drop the language tag line (```json)
		s = s[idx+1:]
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func renameKeys(m map[string]any, synonyms map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		key := strings.ToLower(strings.TrimSpace(k))
		if canonical, ok := synonyms[key]; ok {
			if _, exists := m[canonical]; !exists {
				key = canonical
			}
		}
		out[key] = v
	}
	return out
}

// coerceNumeric rewrites string-typed amounts ("$1,234.56") as numbers.
func coerceNumeric(m map[string]any, key string) {
	v, ok := m[key]
	if !ok {
		return
	}
	s, ok := v.(string)
	if !ok {
		return
	}
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "n/a") {
		m[key] = nil
		return
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		m[key] = f
	}
}
