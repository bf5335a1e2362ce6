package currency

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// Summarize groups records by original currency: count, total in that currency, total in USD
// and the average invoice. Groups are ordered by currency code.
func Summarize(records []entity.InvoiceRecord) []entity.CurrencyBreakdown {
	if len(records) == 0 {
		return nil
	}
	groups := make(map[string]*entity.CurrencyBreakdown)
	for _, r := range records {
		code := canonical(r.Currency)
		if code == "" {
			code = BaseCurrency
		}
		g, ok := groups[code]
		if !ok {
			g = &entity.CurrencyBreakdown{Currency: code, Total: decimal.Zero, TotalUSD: decimal.Zero}
			groups[code] = g
		}
		g.Count++
		g.Total = g.Total.Add(r.TotalAmount)
		g.TotalUSD = g.TotalUSD.Add(r.TotalAmountUSD)
	}

	out := make([]entity.CurrencyBreakdown, 0, len(groups))
	for _, g := range groups {
		g.Average = g.Total.Div(decimal.NewFromInt(int64(g.Count)))
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out
}
