package currency

import (
	"regexp"
)

const (
	ConfidenceISOCode   = 0.9
	ConfidenceSymbol    = 0.8
	ConfidenceName      = 0.75
	ConfidenceAmbiguous = 0.7
)

type signal struct {
	re   *regexp.Regexp
	code string
}

var (
	reISOCode = regexp.MustCompile(`\b[A-Z]{3}\b`)

	// prefixed dollar forms are listed before the bare symbols they contain
	distinctiveSymbols = []signal{
		{regexp.MustCompile(`US\$`), "USD"},
		{regexp.MustCompile(`NZ\$`), "NZD"},
		{regexp.MustCompile(`(?:^|[^A-Za-z])C\$`), "CAD"},
		{regexp.MustCompile(`(?:^|[^A-Za-z])A\$`), "AUD"},
		{regexp.MustCompile(`(?:^|[^A-Za-z])R\$`), "BRL"},
		{regexp.MustCompile(`€`), "EUR"},
		{regexp.MustCompile(`£`), "GBP"},
		{regexp.MustCompile(`₹`), "INR"},
		{regexp.MustCompile(`₽`), "RUB"},
	}

	currencyNames = []signal{
		{regexp.MustCompile(`(?i)\b(?:us|american) dollars?\b`), "USD"},
		{regexp.MustCompile(`(?i)\bcanadian dollars?\b`), "CAD"},
		{regexp.MustCompile(`(?i)\baustralian dollars?\b`), "AUD"},
		{regexp.MustCompile(`(?i)\bnew zealand dollars?\b`), "NZD"},
		{regexp.MustCompile(`(?i)\beuros?\b`), "EUR"},
		{regexp.MustCompile(`(?i)\b(?:british pounds?|pounds? sterling)\b`), "GBP"},
		{regexp.MustCompile(`(?i)\b(?:japanese )?yen\b`), "JPY"},
		{regexp.MustCompile(`(?i)\bswiss francs?\b`), "CHF"},
		{regexp.MustCompile(`(?i)\b(?:yuan|renminbi|rmb)\b`), "CNY"},
		{regexp.MustCompile(`(?i)\brupees?\b`), "INR"},
		{regexp.MustCompile(`(?i)\bmexican pesos?\b`), "MXN"},
		{regexp.MustCompile(`(?i)\bbrazilian reais\b|\bbrazilian real\b`), "BRL"},
		{regexp.MustCompile(`(?i)\b(?:rubles?|roubles?)\b`), "RUB"},
		{regexp.MustCompile(`(?i)\b(?:south african )?rand\b`), "ZAR"},
		{regexp.MustCompile(`(?i)\bnorwegian kron(?:e|er)\b`), "NOK"},
		{regexp.MustCompile(`(?i)\bswedish kron(?:a|or)\b`), "SEK"},
	}

	ambiguousSymbols = []signal{
		{regexp.MustCompile(`\$`), "USD"},
		{regexp.MustCompile(`¥`), "JPY"},
		{regexp.MustCompile(`(?i)\bkr\b`), "NOK"},
	}
)

// Detect guesses the currency of a document from its text. Signals are tried strongest first:
// an ISO code, a distinctive symbol, a currency name, then an ambiguous symbol. Within a tier the
// earliest occurrence wins. With no signal it answers USD at default confidence.
func Detect(text string) (string, float64) {
	if text == "" {
		return BaseCurrency, ConfidenceDefault
	}
	for _, m := range reISOCode.FindAllString(text, -1) {
		if _, ok := currencyInfo[m]; ok {
			return m, ConfidenceISOCode
		}
	}
	if code, ok := earliest(text, distinctiveSymbols); ok {
		return code, ConfidenceSymbol
	}
	if code, ok := earliest(text, currencyNames); ok {
		return code, ConfidenceName
	}
	if code, ok := earliest(text, ambiguousSymbols); ok {
		return code, ConfidenceAmbiguous
	}
	return BaseCurrency, ConfidenceDefault
}

func earliest(text string, signals []signal) (string, bool) {
	best, code := -1, ""
	for _, s := range signals {
		loc := s.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if best == -1 || loc[0] < best {
			best, code = loc[0], s.code
		}
	}
	return code, best >= 0
}
