package llm

// BuildInvoiceJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// We pass this to the model in the prompt and also use it locally to validate the sanitized reply.
// Every field is optional here: a reply missing the vendor or total is a validation problem, not a malformed one.
func BuildInvoiceJSONSchema() map[string]any {
	lineItem := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"description": map[string]any{"type": "string"},
			"quantity":    map[string]any{"type": "number"},
			"cost":        map[string]any{"type": "number"},
		},
	}
	props := map[string]any{
		"vendor_name":    map[string]any{"type": "string"},
		"invoice_number": map[string]any{"type": "string"},
		"invoice_date":   map[string]any{"type": "string"},
		"currency":       map[string]any{"type": "string", "pattern": `^[A-Z]{3}$`},
		"total_amount":   map[string]any{"type": "number"},
		"line_items":     map[string]any{"type": "array", "items": lineItem},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"minProperties":        1,
		"properties":           props,
	}
}
