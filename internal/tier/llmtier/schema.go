package llmtier

// InvoiceJSONSchema constrains model output to the candidate shape. The
// schema is also what parse.go validates responses against, so a reply
// that slips past the provider's strict mode is still rejected locally.
const InvoiceJSONSchema = `{
  "type": "object",
  "properties": {
    "invoice_number": {
      "type": "string",
      "description": "Invoice identifier exactly as printed, or UNKNOWN if absent"
    },
    "vendor_name": {
      "type": "string",
      "description": "Issuing vendor or supplier name"
    },
    "invoice_date": {
      "type": "string",
      "description": "Invoice date in YYYY-MM-DD format"
    },
    "total_amount": {
      "type": ["number", "null"],
      "description": "Grand total including tax, null if not found"
    },
    "line_items": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "description": {"type": "string"},
          "quantity": {"type": ["number", "null"]},
          "unit_price": {"type": ["number", "null"]},
          "line_total": {"type": ["number", "null"]}
        },
        "required": ["description"],
        "additionalProperties": false
      }
    },
    "confidence": {
      "type": "number",
      "minimum": 0,
      "maximum": 1,
      "description": "Model's own confidence in the extraction"
    }
  },
  "required": ["invoice_number", "vendor_name", "invoice_date", "total_amount", "line_items", "confidence"],
  "additionalProperties": false
}`
