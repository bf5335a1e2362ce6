package validation

import (
	"github.com/shopspring/decimal"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func completeFields() entity.RawFields {
	return entity.RawFields{
		VendorName:    "Acme Corp",
		InvoiceNumber: "INV-001",
		InvoiceDate:   "2024-03-15",
		Currency:      "USD",
		TotalAmount:   dec("1500.00"),
		LineItems: []entity.LineItem{
			{Description: "Consulting", Quantity: dec("10"), Cost: dec("1500.00")},
		},
	}
}

var _ = Describe("Validate", func() {
	var (
		fields entity.RawFields
		report IssueReport
	)

	BeforeEach(func() {
		fields = completeFields()
	})

	JustBeforeEach(func() {
		report = Validate(fields)
	})

	When("every field is present", func() {
		It("has no errors or warnings", func() {
			Expect(report.Valid()).To(BeTrue())
			Expect(report.Errors).To(BeEmpty())
			Expect(report.Warnings).To(BeEmpty())
		})
	})

	When("the vendor is missing", func() {
		BeforeEach(func() { fields.VendorName = "  " })

		It("reports a hard error that does not reject the total", func() {
			Expect(report.Valid()).To(BeFalse())
			Expect(report.ErrorStrings()).To(ConsistOf("vendor_name is required"))
			Expect(report.RejectsTotal()).To(BeFalse())
		})
	})

	When("the total is missing", func() {
		BeforeEach(func() { fields.TotalAmount = nil })

		It("rejects the total", func() {
			Expect(report.RejectsTotal()).To(BeTrue())
			Expect(report.ErrorStrings()).To(ConsistOf("total_amount is required"))
		})
	})

	When("the total is negative", func() {
		BeforeEach(func() { fields.TotalAmount = dec("-10") })

		It("rejects the total", func() {
			Expect(report.RejectsTotal()).To(BeTrue())
			Expect(report.ErrorStrings()).To(ConsistOf("total_amount must not be negative"))
		})
	})

	When("a line item cost is negative", func() {
		BeforeEach(func() { fields.LineItems[0].Cost = dec("-1") })

		It("reports an error on that item", func() {
			Expect(report.ErrorStrings()).To(ConsistOf("line_items[0].cost must not be negative"))
			Expect(report.RejectsTotal()).To(BeFalse())
		})
	})

	When("optional fields are missing", func() {
		BeforeEach(func() {
			fields.InvoiceNumber = ""
			fields.InvoiceDate = ""
			fields.TotalAmount = dec("0")
			fields.LineItems = nil
		})

		It("only warns", func() {
			Expect(report.Valid()).To(BeTrue())
			Expect(report.WarningStrings()).To(ConsistOf(
				"invoice_number is missing",
				"invoice_date is missing",
				"total_amount is zero",
				"line_items are missing",
			))
		})
	})

	When("the date cannot be parsed", func() {
		BeforeEach(func() { fields.InvoiceDate = "sometime in March" })

		It("warns about the date", func() {
			Expect(report.Valid()).To(BeTrue())
			Expect(report.Warnings).To(HaveLen(1))
			Expect(report.Warnings[0].Field).To(Equal(FieldInvoiceDate))
			Expect(report.Warnings[0].Severity).To(Equal(SeverityWarning))
		})
	})

	When("a line item has no description", func() {
		BeforeEach(func() { fields.LineItems[0].Description = "" })

		It("warns about the item", func() {
			Expect(report.WarningStrings()).To(ConsistOf("line_items[0].description is missing"))
		})
	})
})

var _ = Describe("ParseDate", func() {
	DescribeTable("accepted shapes",
		func(in string, y, m, d int) {
			t, err := ParseDate(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(t.Year()).To(Equal(y))
			Expect(int(t.Month())).To(Equal(m))
			Expect(t.Day()).To(Equal(d))
		},
		Entry("ISO", "2024-03-15", 2024, 3, 15),
		Entry("US slashes", "03/15/2024", 2024, 3, 15),
		Entry("day first dashes", "15-03-2024", 2024, 3, 15),
		Entry("short month", "Mar 15, 2024", 2024, 3, 15),
		Entry("long month", "March 5, 2024", 2024, 3, 5),
	)

	DescribeTable("rejected shapes",
		func(in string) {
			_, err := ParseDate(in)
			Expect(err).To(HaveOccurred())
		},
		Entry("words", "next tuesday"),
		Entry("impossible month", "13/45/2024"),
		Entry("empty", ""),
	)
})
