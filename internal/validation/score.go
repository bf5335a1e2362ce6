package validation

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

var largeTotal = decimal.NewFromInt(1_000_000)

// Deduction is one row of the scoring table.
type Deduction struct {
	Name    string
	Points  int
	Applies func(entity.RawFields) bool
}

// Deductions are independent of each other, so the order only matters for display.
var Deductions = []Deduction{
	{"missing vendor", 20, func(f entity.RawFields) bool {
		return strings.TrimSpace(f.VendorName) == ""
	}},
	{"missing invoice number", 10, func(f entity.RawFields) bool {
		return strings.TrimSpace(f.InvoiceNumber) == ""
	}},
	{"missing date", 10, func(f entity.RawFields) bool {
		return strings.TrimSpace(f.InvoiceDate) == ""
	}},
	{"zero total", 10, func(f entity.RawFields) bool {
		return f.TotalAmount != nil && f.TotalAmount.IsZero()
	}},
	{"no line items", 15, func(f entity.RawFields) bool {
		return len(f.LineItems) == 0
	}},
	{"total over 1,000,000", 5, func(f entity.RawFields) bool {
		return f.TotalAmount != nil && f.TotalAmount.GreaterThan(largeTotal)
	}},
	{"short vendor name", 10, func(f entity.RawFields) bool {
		v := strings.TrimSpace(f.VendorName)
		return v != "" && utf8.RuneCountInString(v) < 2
	}},
}

// Score is 100 minus every applicable deduction, clamped to [0,100].
func Score(f entity.RawFields) int {
	score := 100
	for _, d := range Deductions {
		if d.Applies(f) {
			score -= d.Points
		}
	}
	return max(0, min(100, score))
}

func ScoreLabel(score int) string {
	return string(constants.LabelFor(score))
}
