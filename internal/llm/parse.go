package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// ParseReply turns a provider reply into RawFields. It returns the cleaned JSON alongside the
// fields; any failure is a malformed ExtractionError.
func ParseReply(provider, reply string, schema *jsonschema.Schema, logger *slog.Logger) (entity.RawFields, []byte, error) {
	raw, err := ExtractJSONObject(reply)
	if err != nil {
		return entity.RawFields{}, nil, Malformed(provider, err)
	}

	cleaned, _, err := NormalizeAndSanitizeJSON(raw, logger)
	if err != nil {
		return entity.RawFields{}, raw, Malformed(provider, err)
	}

	if err := ValidateJSON(schema, cleaned); err != nil {
		return entity.RawFields{}, cleaned, Malformed(provider, fmt.Errorf("schema validation failed: %w", err))
	}

	var out entity.RawFields
	if err := json.Unmarshal(cleaned, &out); err != nil {
		return entity.RawFields{}, cleaned, Malformed(provider, fmt.Errorf("unmarshal fields: %w", err))
	}
	return out, cleaned, nil
}
