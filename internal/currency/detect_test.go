package currency

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Detect", func() {
	DescribeTable("signals",
		func(text, wantCode string, wantConf float64) {
			code, conf := Detect(text)
			Expect(code).To(Equal(wantCode))
			Expect(conf).To(Equal(wantConf))
		},
		Entry("ISO code", "INVOICE 42\nTotal: EUR 1,200.00", "EUR", ConfidenceISOCode),
		Entry("ISO code beats a symbol", "Total $1,200.00 CAD", "CAD", ConfidenceISOCode),
		Entry("euro sign", "Amount due €1.200", "EUR", ConfidenceSymbol),
		Entry("pound sign", "Balance £99.00", "GBP", ConfidenceSymbol),
		Entry("canadian dollar", "Total C$100", "CAD", ConfidenceSymbol),
		Entry("new zealand dollar", "NZ$ 50.00", "NZD", ConfidenceSymbol),
		Entry("US dollar prefix", "US$ 50.00", "USD", ConfidenceSymbol),
		Entry("rupee sign", "₹ 4,500", "INR", ConfidenceSymbol),
		Entry("currency name", "All prices in euros", "EUR", ConfidenceName),
		Entry("swiss francs by name", "Payable in Swiss francs", "CHF", ConfidenceName),
		Entry("bare dollar", "Total $100", "USD", ConfidenceAmbiguous),
		Entry("yen sign", "合計 ¥5,000", "JPY", ConfidenceAmbiguous),
		Entry("krone abbreviation", "Sum 100 kr", "NOK", ConfidenceAmbiguous),
		Entry("nothing", "no currency here", "USD", ConfidenceDefault),
		Entry("empty", "", "USD", ConfidenceDefault),
	)

	It("prefers the earliest signal within a tier", func() {
		code, _ := Detect("£10 shipping, €20 handling")
		Expect(code).To(Equal("GBP"))
	})
})
