package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"strings"
)

var (
	reCurrencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

	topLevelAllowed = map[string]struct{}{
		"vendor_name": {}, "invoice_number": {}, "invoice_date": {},
		"currency": {}, "total_amount": {}, "line_items": {},
	}
	lineItemAllowed = map[string]struct{}{
		"description": {}, "quantity": {}, "cost": {},
	}

	topLevelSynonyms = [][2]string{
		{"vendor", "vendor_name"}, {"supplier", "vendor_name"}, {"seller", "vendor_name"},
		{"invoice_no", "invoice_number"}, {"invoice_id", "invoice_number"}, {"number", "invoice_number"},
		{"date", "invoice_date"},
		{"currency_code", "currency"},
		{"total", "total_amount"}, {"amount", "total_amount"}, {"amount_due", "total_amount"},
		{"items", "line_items"}, {"lines", "line_items"},
	}
	lineItemSynonyms = [][2]string{
		{"name", "description"}, {"item", "description"},
		{"qty", "quantity"},
		{"amount", "cost"}, {"total", "cost"}, {"line_total", "cost"}, {"price", "cost"},
	}
)

// ErrNoJSONObject means the reply had no {...} span at all.
var ErrNoJSONObject = errors.New("no JSON object in reply")

// ExtractJSONObject cuts the reply down to the span between the first '{' and the last '}'.
func ExtractJSONObject(reply string) ([]byte, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start == -1 || end <= start {
		return nil, ErrNoJSONObject
	}
	return []byte(reply[start : end+1]), nil
}

// NormalizeAndSanitizeJSON
// - Renames known synonyms (total -> total_amount, qty -> quantity)
// - Drops null/empty optionals
// - Coerces money strings ("$1,234.56") to plain numbers
// - Removes unknown keys (strict additionalProperties = false friendliness)
// Values of the wrong shape are left alone so schema validation reports them.
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 8)
	for _, syn := range topLevelSynonyms {
		renameKey(m, syn[0], syn[1], "", &dropped)
	}

	for _, k := range []string{"vendor_name", "invoice_number", "invoice_date"} {
		coerceText(m, k, "", &dropped)
	}

	if v, ok := m["currency"]; ok {
		switch t := v.(type) {
		case string:
			code := strings.ToUpper(strings.TrimSpace(t))
			if reCurrencyCode.MatchString(code) {
				m["currency"] = code
			} else {
				// symbols and names are resolved later from the document text
				delete(m, "currency")
				dropped = append(dropped, "currency(invalid)")
			}
		case nil:
			delete(m, "currency")
			dropped = append(dropped, "currency(null)")
		}
	}

	coerceMoney(m, "total_amount", "", &dropped)

	switch items := m["line_items"].(type) {
	case nil:
		if _, ok := m["line_items"]; ok {
			delete(m, "line_items")
			dropped = append(dropped, "line_items(null)")
		}
	case []any:
		kept := make([]any, 0, len(items))
		for i, it := range items {
			item, ok := it.(map[string]any)
			if !ok {
				dropped = append(dropped, fmt.Sprintf("line_items[%d](type)", i))
				continue
			}
			prefix := fmt.Sprintf("line_items[%d].", i)
			for _, syn := range lineItemSynonyms {
				renameKey(item, syn[0], syn[1], prefix, &dropped)
			}
			coerceText(item, "description", prefix, &dropped)
			coerceMoney(item, "quantity", prefix, &dropped)
			coerceMoney(item, "cost", prefix, &dropped)
			dropUnknown(item, lineItemAllowed, prefix, &dropped)
			kept = append(kept, item)
		}
		m["line_items"] = kept
	}

	dropUnknown(m, topLevelAllowed, "", &dropped)

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Debug("llm.extract.normalize_sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}

func renameKey(m map[string]any, from, to, prefix string, dropped *[]string) {
	v, ok := m[from]
	if !ok {
		return
	}
	// don't overwrite existing value if already present
	if _, exists := m[to]; !exists {
		m[to] = v
	}
	delete(m, from)
	*dropped = append(*dropped, prefix+from+"->"+to)
}

func coerceText(m map[string]any, k, prefix string, dropped *[]string) {
	v, ok := m[k]
	if !ok {
		return
	}
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "n/a") {
			delete(m, k)
			*dropped = append(*dropped, prefix+k+"(empty)")
		} else {
			m[k] = s
		}
	case json.Number:
		// invoice numbers come back as bare numbers
		m[k] = t.String()
	case nil:
		delete(m, k)
		*dropped = append(*dropped, prefix+k+"(null)")
	}
}

func coerceMoney(m map[string]any, k, prefix string, dropped *[]string) {
	v, ok := m[k]
	if !ok {
		return
	}
	switch t := v.(type) {
	case json.Number:
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "n/a") {
			delete(m, k)
			*dropped = append(*dropped, prefix+k+"(empty)")
			return
		}
		d, err := ParseAmount(s)
		if err != nil {
			delete(m, k)
			*dropped = append(*dropped, prefix+k+"(unparseable)")
			return
		}
		m[k] = json.Number(d.String())
	case nil:
		delete(m, k)
		*dropped = append(*dropped, prefix+k+"(null)")
	}
}

func dropUnknown(m map[string]any, allowed map[string]struct{}, prefix string, dropped *[]string) {
	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			*dropped = append(*dropped, prefix+k+"(unknown)")
		}
	}
}
