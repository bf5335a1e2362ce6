package llm

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount turns money text such as "$1,234.56", "USD 1 234.56" or "(12.00)" into a decimal.
// Commas, spaces, apostrophes and currency marks are stripped; '.' is the only decimal separator.
func ParseAmount(s string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(raw, "(") && strings.HasSuffix(raw, ")") {
		negative = true
		raw = raw[1 : len(raw)-1]
	}

	runes := []rune(raw)
	var b strings.Builder
	seenDigit := false
	for i, r := range runes {
		switch {
		case r >= '0' && r <= '9':
			seenDigit = true
			b.WriteRune(r)
		case r == '.':
			// "Rs. 12" keeps no dot; ".50" keeps its leading one
			nextIsDigit := i+1 < len(runes) && runes[i+1] >= '0' && runes[i+1] <= '9'
			if seenDigit || nextIsDigit {
				b.WriteRune(r)
			}
		case r == '-' || r == '−':
			if !seenDigit {
				negative = true
			}
		default:
			// thousands separators, currency symbols and codes
		}
	}
	cleaned := strings.TrimRight(b.String(), ".")
	if !seenDigit || strings.Count(cleaned, ".") > 1 {
		return decimal.Zero, fmt.Errorf("unparseable amount %q", s)
	}
	if strings.HasPrefix(cleaned, ".") {
		cleaned = "0" + cleaned
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unparseable amount %q: %w", s, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}
