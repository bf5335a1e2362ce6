package currency

import (
	"strings"

	"github.com/shopspring/decimal"
	xcurrency "golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

type info struct {
	name   string
	symbol string
}

var currencyInfo = map[string]info{
	"USD": {"US Dollar", "$"},
	"EUR": {"Euro", "€"},
	"GBP": {"British Pound", "£"},
	"JPY": {"Japanese Yen", "¥"},
	"CAD": {"Canadian Dollar", "C$"},
	"AUD": {"Australian Dollar", "A$"},
	"CHF": {"Swiss Franc", "CHF "},
	"CNY": {"Chinese Yuan", "¥"},
	"INR": {"Indian Rupee", "₹"},
	"MXN": {"Mexican Peso", "MX$"},
	"BRL": {"Brazilian Real", "R$"},
	"RUB": {"Russian Ruble", "₽"},
	"ZAR": {"South African Rand", "R"},
	"NOK": {"Norwegian Krone", "kr "},
	"SEK": {"Swedish Krona", "kr "},
	"NZD": {"New Zealand Dollar", "NZ$"},
}

var printer = message.NewPrinter(language.English)

// IsISOCode reports whether code is a registered ISO 4217 currency.
func IsISOCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	_, err := xcurrency.ParseISO(code)
	return err == nil
}

// Symbol returns the display symbol for code, or the code itself when it has none.
func Symbol(code string) string {
	c := canonical(code)
	if i, ok := currencyInfo[c]; ok {
		return strings.TrimSpace(i.symbol)
	}
	return c
}

// Name returns the English name for code, or "Unknown".
func Name(code string) string {
	if i, ok := currencyInfo[canonical(code)]; ok {
		return i.name
	}
	return "Unknown"
}

// Digits is the number of minor-unit digits for code (2 when the code is not recognized).
func Digits(code string) int {
	u, err := xcurrency.ParseISO(canonical(code))
	if err != nil {
		return 2
	}
	scale, _ := xcurrency.Standard.Rounding(u)
	return scale
}

// Format renders amount for display, e.g. "$1,234.56", "€1,234.56" or "¥1,235".
// Rounding happens here only; stored values keep full precision.
func Format(amount decimal.Decimal, code string) string {
	c := canonical(code)
	digits := Digits(c)
	rounded := amount.Round(int32(digits))

	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Abs()
	}
	num := printer.Sprintf("%v", number.Decimal(rounded.InexactFloat64(), number.Scale(digits)))

	prefix := c + " "
	if i, ok := currencyInfo[c]; ok {
		prefix = i.symbol
	}
	return sign + prefix + num
}

// FormatPlain renders amount with two fixed decimals and no grouping, as used in reports.
func FormatPlain(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
