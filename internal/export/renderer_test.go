package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/storage"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decp(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func sampleResult() *entity.BatchResult {
	return &entity.BatchResult{
		BatchID:    "batch-1",
		StartedAt:  time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2025, 3, 1, 10, 0, 5, 0, time.UTC),
		Records: []entity.InvoiceRecord{
			{
				SourceFile:         "a.pdf",
				VendorName:         "Acme Corp",
				InvoiceNumber:      "INV-1",
				InvoiceDate:        "2025-02-01",
				Currency:           "USD",
				CurrencyConfidence: 0.95,
				TotalAmount:        dec("12345.67"),
				TotalAmountUSD:     dec("12345.67"),
				LineItems: []entity.LineItem{
					{Description: "Widget", Quantity: decp("3"), Cost: decp("12000.5")},
					{Description: "Shipping"},
				},
				Flagged:         true,
				ConfidenceScore: 100,
				ConfidenceLabel: string(constants.LabelExcellent),
				Status:          constants.RecordStatusOK,
			},
			{
				SourceFile:      "b.pdf",
				VendorName:      "Globex",
				Currency:        "EUR",
				TotalAmount:     dec("100"),
				TotalAmountUSD:  dec("108.6956"),
				ConfidenceScore: 65,
				ConfidenceLabel: string(constants.LabelPoor),
				Status:          constants.RecordStatusOK,
				Warnings:        []string{"invoice_number is missing", "line_items are missing"},
			},
		},
		Summary: entity.BatchSummary{
			TotalInvoicesProcessed: 2,
			TotalAmount:            dec("12454.3656"),
			FlaggedInvoicesCount:   1,
			Errors:                 []string{"c.pdf: extraction failed (empty/corrupt document)"},
			CurrencyBreakdown: []entity.CurrencyBreakdown{
				{Currency: "EUR", Count: 1, Total: dec("100"), TotalUSD: dec("108.6956"), Average: dec("100")},
				{Currency: "USD", Count: 1, Total: dec("12345.67"), TotalUSD: dec("12345.67"), Average: dec("12345.67")},
			},
		},
	}
}

func open(data []byte) *excelize.File {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(f.Close)
	return f
}

func raw(f *excelize.File, sheet, cell string) string {
	v, err := f.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
	Expect(err).NotTo(HaveOccurred())
	return v
}

var _ = Describe("Renderer", func() {
	var (
		r *Renderer
		f *excelize.File
	)

	BeforeEach(func() {
		r = NewRenderer(slog.New(slog.NewTextHandler(io.Discard, nil)))
		data, err := r.Bytes(sampleResult())
		Expect(err).NotTo(HaveOccurred())
		f = open(data)
	})

	It("creates the sheets with Invoices first", func() {
		Expect(f.GetSheetList()).To(Equal([]string{SheetInvoices, SheetLineItems, SheetSummary, SheetCurrencies}))
	})

	It("lists every line item with its source file", func() {
		Expect(raw(f, SheetLineItems, "A1")).To(Equal("Source File"))
		Expect(raw(f, SheetLineItems, "A2")).To(Equal("a.pdf"))
		Expect(raw(f, SheetLineItems, "B2")).To(Equal("INV-1"))
		Expect(raw(f, SheetLineItems, "C2")).To(Equal("1"))
		Expect(raw(f, SheetLineItems, "D2")).To(Equal("Widget"))
		Expect(raw(f, SheetLineItems, "E2")).To(Equal("3"))
		Expect(raw(f, SheetLineItems, "F2")).To(Equal("12000.5"))
		Expect(raw(f, SheetLineItems, "G2")).To(Equal("USD"))

		Expect(raw(f, SheetLineItems, "C3")).To(Equal("2"))
		Expect(raw(f, SheetLineItems, "D3")).To(Equal("Shipping"))
		Expect(raw(f, SheetLineItems, "E3")).To(BeEmpty())
		Expect(raw(f, SheetLineItems, "F3")).To(BeEmpty())

		// the second record has no line items
		Expect(raw(f, SheetLineItems, "A4")).To(BeEmpty())
	})

	It("writes one row per record with the USD amount next to the original", func() {
		Expect(raw(f, SheetInvoices, "A1")).To(Equal("Source File"))
		Expect(raw(f, SheetInvoices, "F1")).To(Equal("Total Amount"))
		Expect(raw(f, SheetInvoices, "G1")).To(Equal("Total Amount (USD)"))

		Expect(raw(f, SheetInvoices, "B2")).To(Equal("Acme Corp"))
		Expect(raw(f, SheetInvoices, "F2")).To(Equal("12345.67"))
		Expect(raw(f, SheetInvoices, "J2")).To(Equal("Yes"))
		Expect(raw(f, SheetInvoices, "E3")).To(Equal("EUR"))
		Expect(raw(f, SheetInvoices, "G3")).To(Equal("108.7"))
		Expect(raw(f, SheetInvoices, "J3")).To(Equal("No"))
		Expect(raw(f, SheetInvoices, "L3")).To(Equal("Poor"))
		Expect(raw(f, SheetInvoices, "O3")).To(Equal("invoice_number is missing; line_items are missing"))
	})

	It("shows amounts with two decimals", func() {
		v, err := f.GetCellValue(SheetInvoices, "G3")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal("108.70"))
	})

	It("highlights flagged rows", func() {
		flagged, err := f.GetCellStyle(SheetInvoices, "B2")
		Expect(err).NotTo(HaveOccurred())
		plain, err := f.GetCellStyle(SheetInvoices, "B3")
		Expect(err).NotTo(HaveOccurred())
		Expect(flagged).NotTo(Equal(plain))
	})

	It("places the SUMMARY block below the rows", func() {
		Expect(raw(f, SheetInvoices, "A5")).To(Equal("SUMMARY"))
		Expect(raw(f, SheetInvoices, "A6")).To(Equal("Total Invoices Processed:"))
		Expect(raw(f, SheetInvoices, "B6")).To(Equal("2"))
		Expect(raw(f, SheetInvoices, "A7")).To(Equal("Total Amount:"))
		Expect(raw(f, SheetInvoices, "B7")).To(Equal("12454.37"))
		Expect(raw(f, SheetInvoices, "A8")).To(Equal("Flagged Invoices (>$5,000):"))
		Expect(raw(f, SheetInvoices, "B8")).To(Equal("1"))
	})

	It("lists the batch summary and errors", func() {
		Expect(raw(f, SheetSummary, "B1")).To(Equal("batch-1"))
		Expect(raw(f, SheetSummary, "B4")).To(Equal("2"))
		Expect(raw(f, SheetSummary, "B7")).To(Equal("1"))
		Expect(raw(f, SheetSummary, "A9")).To(Equal("Errors"))
		Expect(raw(f, SheetSummary, "A10")).To(Equal("c.pdf: extraction failed (empty/corrupt document)"))
	})

	It("breaks totals down by currency", func() {
		Expect(raw(f, SheetCurrencies, "A2")).To(Equal("EUR"))
		Expect(raw(f, SheetCurrencies, "B2")).To(Equal("Euro"))
		Expect(raw(f, SheetCurrencies, "C2")).To(Equal("1"))
		Expect(raw(f, SheetCurrencies, "G2")).To(Equal("€100.00"))
		Expect(raw(f, SheetCurrencies, "A3")).To(Equal("USD"))
		Expect(raw(f, SheetCurrencies, "G3")).To(Equal("$12,345.67"))
	})

	It("renders an all-failure batch", func() {
		res := &entity.BatchResult{Summary: entity.BatchSummary{Errors: []string{"x.pdf: processing timed out"}}}
		data, err := r.Bytes(res)
		Expect(err).NotTo(HaveOccurred())

		g := open(data)
		Expect(raw(g, SheetInvoices, "A3")).To(Equal("SUMMARY"))
		Expect(raw(g, SheetInvoices, "B4")).To(Equal("0"))
		Expect(raw(g, SheetSummary, "A10")).To(Equal("x.pdf: processing timed out"))
	})
})

var _ = Describe("Service", func() {
	var (
		ctx   context.Context
		store storage.ReportStore
		svc   *Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		var err error
		store, err = storage.NewLocalStore(GinkgoT().TempDir(), logger)
		Expect(err).NotTo(HaveOccurred())
		svc = NewService(store, logger)
		svc.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }
	})

	It("stores the workbook under a generated reference", func() {
		ref, err := svc.Render(ctx, sampleResult())
		Expect(err).NotTo(HaveOccurred())
		Expect(ref).To(MatchRegexp(`^invoices_export_20250301T100000Z_[0-9a-f]{8}\.xlsx$`))
		Expect(ValidReference(ref)).To(BeTrue())

		data, err := svc.Fetch(ctx, ref)
		Expect(err).NotTo(HaveOccurred())
		Expect(raw(open(data), SheetInvoices, "B2")).To(Equal("Acme Corp"))
	})

	It("gives every render its own reference", func() {
		a, err := svc.Render(ctx, sampleResult())
		Expect(err).NotTo(HaveOccurred())
		b, err := svc.Render(ctx, sampleResult())
		Expect(err).NotTo(HaveOccurred())
		Expect(a).NotTo(Equal(b))
	})

	It("returns not found for an unknown reference", func() {
		_, err := svc.Fetch(ctx, "invoices_export_20250301T100000Z_deadbeef.xlsx")
		Expect(err).To(MatchError(storage.ErrNotFound))
	})

	DescribeTable("refuses references outside the generated shape",
		func(ref string) {
			_, err := svc.Fetch(ctx, ref)
			Expect(errors.Is(err, common.ErrNotFound)).To(BeTrue())
		},
		Entry("traversal", "../../etc/passwd"),
		Entry("other extension", "invoices_export_20250301T100000Z_deadbeef.csv"),
		Entry("upper hex", "invoices_export_20250301T100000Z_DEADBEEF.xlsx"),
	)
})
