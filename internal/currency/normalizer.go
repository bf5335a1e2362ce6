package currency

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	BaseCurrency = "USD"

	// confidence assigned to the currency of a converted amount
	ConfidenceExplicit = 0.95
	ConfidenceDefault  = 0.5
)

// Normalizer converts amounts to USD with a pluggable rate table.
type Normalizer struct {
	rates RateTable
}

func NewNormalizer(rates RateTable) *Normalizer {
	return &Normalizer{rates: rates}
}

func (n *Normalizer) Rates() RateTable { return n.rates }

// Known reports whether code has a rate.
func (n *Normalizer) Known(code string) bool {
	_, ok := n.rates.Rate(canonical(code))
	return ok && canonical(code) != ""
}

// Resolve returns the code a record should carry: the canonical code when it is known, USD otherwise.
func (n *Normalizer) Resolve(code string) string {
	if n.Known(code) {
		return canonical(code)
	}
	return BaseCurrency
}

// Normalize converts amount in code to USD. Unknown or empty codes are treated as USD with
// default confidence and the amount passes through unchanged. No rounding is applied.
func (n *Normalizer) Normalize(code string, amount decimal.Decimal) (decimal.Decimal, float64) {
	c := canonical(code)
	if c == "" {
		return amount, ConfidenceDefault
	}
	rate, ok := n.rates.Rate(c)
	if !ok || !rate.IsPositive() {
		return amount, ConfidenceDefault
	}
	if c == BaseCurrency {
		return amount, ConfidenceExplicit
	}
	// units per USD: dividing is the same as multiplying by the USD-per-unit rate
	return amount.Div(rate), ConfidenceExplicit
}

func canonical(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
