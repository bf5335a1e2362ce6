package entity

import (
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// LineItem is advisory detail; its costs are never rebalanced against the invoice total.
type LineItem struct {
	Description string           `json:"description"`
	Quantity    *decimal.Decimal `json:"quantity,omitempty"`
	Cost        *decimal.Decimal `json:"cost,omitempty"`
}

// RawFields is the extraction-service reply after parsing and money normalization, before validation.
type RawFields struct {
	VendorName    string           `json:"vendor_name"`
	InvoiceNumber string           `json:"invoice_number"`
	InvoiceDate   string           `json:"invoice_date"`
	Currency      string           `json:"currency"`
	TotalAmount   *decimal.Decimal `json:"total_amount"` // nil when the service found no total
	LineItems     []LineItem       `json:"line_items"`
}

// InvoiceRecord is one processed document.
type InvoiceRecord struct {
	ID                 string                 `json:"id"`
	SourceFile         string                 `json:"source_file"`
	VendorName         string                 `json:"vendor_name"`
	InvoiceNumber      string                 `json:"invoice_number"`
	InvoiceDate        string                 `json:"invoice_date"`
	Currency           string                 `json:"currency"`
	CurrencyConfidence float64                `json:"currency_confidence"`
	TotalAmount        decimal.Decimal        `json:"total_amount"`
	TotalAmountUSD     decimal.Decimal        `json:"total_amount_usd"`
	LineItems          []LineItem             `json:"line_items"`
	Flagged            bool                   `json:"flagged"`
	ConfidenceScore    int                    `json:"confidence_score"`
	ConfidenceLabel    string                 `json:"confidence_label"`
	Status             constants.RecordStatus `json:"status"`
	Errors             []string               `json:"errors,omitempty"`
	Warnings           []string               `json:"warnings,omitempty"`
	Pages              int                    `json:"pages"`
	ExtractionMethod   string                 `json:"extraction_method"`
}

// IsFlagged applies the high-value rule to a USD-normalized total. Exactly the threshold is not flagged.
func IsFlagged(totalUSD decimal.Decimal) bool {
	return totalUSD.GreaterThan(decimal.NewFromInt(constants.FlagThresholdUSD))
}
