package llm

import (
	"encoding/json"
	"strings"
)

// DefaultMaxTextChars bounds how much document text goes into one prompt.
const DefaultMaxTextChars = 12000

// BuildSystemPrompt composes the system message: extraction rules plus the reply schema.
func BuildSystemPrompt(schema map[string]any) string {
	parts := []string{
		"You are an invoice parser. Return ONLY a JSON object that matches the JSON Schema below.",
		"Extract the vendor (the company issuing the invoice, not the customer) into 'vendor_name'.",
		"Copy the invoice number exactly as printed into 'invoice_number'.",
		"Put the invoice issue date into 'invoice_date', preferably as YYYY-MM-DD.",
		"'currency' must be a 3-letter ISO 4217 code; omit it if the document does not make the currency clear.",
		"'total_amount' is the final amount due as a plain number without symbols or thousands separators.",
		"List every line item under 'line_items' with 'description', 'quantity' and 'cost', where 'cost' is the line total column.",
		"Never output null. If a field is not present, omit it.",
	}
	return strings.Join(parts, " ") + "\n\nJSON Schema:\n" + mustJSON(schema)
}

// BuildUserPrompt packages the filename hint and the document text, truncated to maxChars runes.
func BuildUserPrompt(req ExtractRequest, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxTextChars
	}
	var b strings.Builder
	if filename := strings.TrimSpace(req.FilenameHint); filename != "" {
		b.WriteString("Filename: ")
		b.WriteString(filename)
		b.WriteString("\n")
	}

	text := []rune(strings.TrimSpace(req.Text))
	b.WriteString("\nInvoice text:\n")
	if len(text) > maxChars {
		b.WriteString(string(text[:maxChars]))
		b.WriteString("\n…(truncated)")
	} else {
		b.WriteString(string(text))
	}
	b.WriteString("\n\nReturn ONLY JSON that matches the provided schema.")
	return b.String()
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
