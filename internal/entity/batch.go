package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// File is one uploaded document.
type File struct {
	Name string
	Data []byte
}

// CurrencyBreakdown aggregates successful records sharing an original currency.
type CurrencyBreakdown struct {
	Currency string          `json:"currency"`
	Count    int             `json:"count"`
	Total    decimal.Decimal `json:"total"`
	TotalUSD decimal.Decimal `json:"total_usd"`
	Average  decimal.Decimal `json:"average"`
}

// BatchSummary totals only records that completed; failed files only contribute to Errors.
type BatchSummary struct {
	TotalInvoicesProcessed int                 `json:"total_invoices_processed"`
	TotalAmount            decimal.Decimal     `json:"total_amount"`
	FlaggedInvoicesCount   int                 `json:"flagged_invoices_count"`
	Errors                 []string            `json:"errors"`
	CurrencyBreakdown      []CurrencyBreakdown `json:"currency_breakdown,omitempty"`
}

// BatchResult is created fresh per batch and owned by the aggregator until returned.
type BatchResult struct {
	BatchID         string          `json:"batch_id"`
	Records         []InvoiceRecord `json:"invoices"`
	Summary         BatchSummary    `json:"summary"`
	ReportReference string          `json:"excel_file_path"`
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      time.Time       `json:"finished_at"`
}
