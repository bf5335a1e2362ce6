package export

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-extractor/internal/currency"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

const (
	SheetInvoices   = "Invoices"
	SheetLineItems  = "Line Items"
	SheetSummary    = "Summary"
	SheetCurrencies = "Currencies"
)

var invoiceHeaders = []string{
	"Source File",
	"Vendor Name",
	"Invoice Number",
	"Invoice Date",
	"Currency",
	"Total Amount",
	"Total Amount (USD)",
	"Currency Confidence",
	"Line Items Count",
	"Flagged",
	"Confidence Score",
	"Confidence Label",
	"Status",
	"Errors",
	"Warnings",
}

// money columns of the Invoices sheet, 1-based
const (
	colTotal    = 6
	colTotalUSD = 7
)

var lineItemHeaders = []string{"Source File", "Invoice Number", "Line", "Description", "Quantity", "Cost", "Currency"}

var currencyHeaders = []string{"Currency", "Name", "Invoices", "Total", "Total (USD)", "Average", "Formatted Total"}

// Renderer lays a BatchResult out as a styled workbook.
type Renderer struct {
	logger *slog.Logger
}

func NewRenderer(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{logger: logger}
}

// Workbook builds the sheets. The caller closes the returned file.
func (r *Renderer) Workbook(res *entity.BatchResult) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetInvoices); err != nil {
		_ = f.Close()
		return nil, err
	}
	st, err := newStyles(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("xlsx styles: %w", err)
	}

	steps := []func(*excelize.File, *styles, *entity.BatchResult) error{
		writeInvoices,
		writeLineItems,
		writeSummary,
		writeCurrencies,
	}
	for _, step := range steps {
		if err := step(f, st, res); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	idx, _ := f.GetSheetIndex(SheetInvoices)
	f.SetActiveSheet(idx)
	return f, nil
}

// Bytes renders res into XLSX bytes.
func (r *Renderer) Bytes(res *entity.BatchResult) ([]byte, error) {
	f, err := r.Workbook(res)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeInvoices(f *excelize.File, st *styles, res *entity.BatchResult) error {
	const sheet = SheetInvoices
	if err := writeHeader(f, sheet, invoiceHeaders, st.header); err != nil {
		return err
	}

	row := 2
	for _, rec := range res.Records {
		flagged := "No"
		if rec.Flagged {
			flagged = "Yes"
		}
		values := []any{
			rec.SourceFile,
			rec.VendorName,
			rec.InvoiceNumber,
			rec.InvoiceDate,
			rec.Currency,
			money(rec.TotalAmount),
			money(rec.TotalAmountUSD),
			rec.CurrencyConfidence,
			len(rec.LineItems),
			flagged,
			rec.ConfidenceScore,
			rec.ConfidenceLabel,
			string(rec.Status),
			strings.Join(rec.Errors, "; "),
			strings.Join(rec.Warnings, "; "),
		}
		start := cellName(1, row)
		if err := f.SetSheetRow(sheet, start, &values); err != nil {
			return err
		}

		cellStyle, moneyStyle := st.cell, st.money
		if rec.Flagged {
			cellStyle, moneyStyle = st.flagged, st.flaggedCash
		}
		if err := f.SetCellStyle(sheet, start, cellName(len(values), row), cellStyle); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cellName(colTotal, row), cellName(colTotalUSD, row), moneyStyle); err != nil {
			return err
		}
		row++
	}

	// SUMMARY block one blank row below the data
	row++
	s := res.Summary
	block := []struct {
		label string
		value any
		style int
	}{
		{"Total Invoices Processed:", s.TotalInvoicesProcessed, st.bold},
		{"Total Amount:", money(s.TotalAmount), st.boldMoney},
		{"Flagged Invoices (>$5,000):", s.FlaggedInvoicesCount, st.bold},
	}
	if err := f.SetCellValue(sheet, cellName(1, row), "SUMMARY"); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, cellName(1, row), cellName(1, row), st.title); err != nil {
		return err
	}
	for _, b := range block {
		row++
		if err := f.SetCellValue(sheet, cellName(1, row), b.label); err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cellName(2, row), b.value); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cellName(2, row), cellName(2, row), b.style); err != nil {
			return err
		}
	}

	widths := []struct {
		from, to string
		width    float64
	}{
		{"A", "A", 28},
		{"B", "B", 24},
		{"C", "E", 15},
		{"F", "H", 18},
		{"I", "M", 15},
		{"N", "O", 48},
	}
	for _, w := range widths {
		if err := f.SetColWidth(sheet, w.from, w.to, w.width); err != nil {
			return err
		}
	}
	return nil
}

// writeLineItems lists every line item of every record, keyed by source file.
func writeLineItems(f *excelize.File, st *styles, res *entity.BatchResult) error {
	const sheet = SheetLineItems
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := writeHeader(f, sheet, lineItemHeaders, st.header); err != nil {
		return err
	}
	row := 2
	for _, rec := range res.Records {
		for i, item := range rec.LineItems {
			var qty, cost any
			if item.Quantity != nil {
				qty = item.Quantity.InexactFloat64()
			}
			if item.Cost != nil {
				cost = money(*item.Cost)
			}
			vals := []any{rec.SourceFile, rec.InvoiceNumber, i + 1, item.Description, qty, cost, rec.Currency}
			if err := f.SetSheetRow(sheet, cellName(1, row), &vals); err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, cellName(1, row), cellName(len(vals), row), st.cell); err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, cellName(6, row), cellName(6, row), st.money); err != nil {
				return err
			}
			row++
		}
	}
	if err := f.SetColWidth(sheet, "A", "B", 24); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "D", "D", 48); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "E", "G", 14)
}

func writeSummary(f *excelize.File, st *styles, res *entity.BatchResult) error {
	const sheet = SheetSummary
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	s := res.Summary
	rows := [][]any{
		{"Batch ID", res.BatchID},
		{"Started At", res.StartedAt.UTC().Format("2006-01-02 15:04:05 UTC")},
		{"Finished At", res.FinishedAt.UTC().Format("2006-01-02 15:04:05 UTC")},
		{"Total Invoices Processed", s.TotalInvoicesProcessed},
		{"Total Amount (USD)", money(s.TotalAmount)},
		{"Flagged Invoices", s.FlaggedInvoicesCount},
		{"Failed Files", len(s.Errors)},
	}
	for i, vals := range rows {
		if err := f.SetSheetRow(sheet, cellName(1, i+1), &vals); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheet, "B5", "B5", st.money); err != nil {
		return err
	}

	row := len(rows) + 2
	if err := f.SetCellValue(sheet, cellName(1, row), "Errors"); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, cellName(1, row), cellName(1, row), st.title); err != nil {
		return err
	}
	for _, e := range s.Errors {
		row++
		if err := f.SetCellValue(sheet, cellName(1, row), e); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheet, "A", "A", 28); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "B", "B", 40)
}

func writeCurrencies(f *excelize.File, st *styles, res *entity.BatchResult) error {
	const sheet = SheetCurrencies
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := writeHeader(f, sheet, currencyHeaders, st.header); err != nil {
		return err
	}
	for i, b := range res.Summary.CurrencyBreakdown {
		row := i + 2
		vals := []any{
			b.Currency,
			currency.Name(b.Currency),
			b.Count,
			money(b.Total),
			money(b.TotalUSD),
			money(b.Average),
			currency.Format(b.Total, b.Currency),
		}
		if err := f.SetSheetRow(sheet, cellName(1, row), &vals); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cellName(1, row), cellName(len(vals), row), st.cell); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cellName(4, row), cellName(6, row), st.money); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheet, "A", "G", 18)
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	vals := make([]any, len(headers))
	for i, h := range headers {
		vals[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &vals); err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", cellName(len(headers), 1), style)
}

// money hands excelize a float; full precision stays in the decimal until here.
func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
