package currency

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// RateTable quotes how many units of a currency one US dollar buys.
type RateTable interface {
	Rate(code string) (decimal.Decimal, bool)
	UpdatedAt() time.Time
}

// defaultRates are units per USD.
var defaultRates = map[string]string{
	"USD": "1.0",
	"EUR": "0.92",
	"GBP": "0.79",
	"JPY": "149.50",
	"CAD": "1.36",
	"AUD": "1.53",
	"CHF": "0.89",
	"CNY": "7.24",
	"INR": "83.12",
	"MXN": "17.05",
	"BRL": "4.97",
	"RUB": "98.50",
	"ZAR": "18.50",
	"NOK": "10.48",
	"SEK": "10.35",
	"NZD": "1.62",
}

// StaticRates is an in-memory RateTable safe for concurrent readers.
type StaticRates struct {
	mu        sync.RWMutex
	rates     map[string]decimal.Decimal
	updatedAt time.Time
	now       func() time.Time
}

type RatesOption func(*StaticRates)

// WithClock replaces time.Now for UpdatedAt stamps.
func WithClock(now func() time.Time) RatesOption {
	return func(s *StaticRates) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStaticRates returns the built-in table with overrides applied on top.
func NewStaticRates(overrides map[string]float64, opts ...RatesOption) (*StaticRates, error) {
	s := &StaticRates{rates: make(map[string]decimal.Decimal, len(defaultRates)), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	for code, r := range defaultRates {
		s.rates[code] = decimal.RequireFromString(r)
	}
	for code, r := range overrides {
		d := decimal.NewFromFloat(r)
		if err := checkRate(code, d); err != nil {
			return nil, err
		}
		s.rates[strings.ToUpper(code)] = d
	}
	s.updatedAt = s.now().UTC()
	return s, nil
}

func (s *StaticRates) Rate(code string) (decimal.Decimal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rates[strings.ToUpper(strings.TrimSpace(code))]
	return r, ok
}

func (s *StaticRates) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// Update merges new quotes into the table and stamps the update time. Nothing changes on error.
func (s *StaticRates) Update(rates map[string]decimal.Decimal) error {
	for code, r := range rates {
		if err := checkRate(code, r); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for code, r := range rates {
		s.rates[strings.ToUpper(code)] = r
	}
	s.updatedAt = s.now().UTC()
	return nil
}

// Supported lists the quoted codes in alphabetical order.
func (s *StaticRates) Supported() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.rates))
	for code := range s.rates {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

func checkRate(code string, r decimal.Decimal) error {
	if !IsISOCode(strings.ToUpper(code)) {
		return fmt.Errorf("rate for %q: not an ISO 4217 code", code)
	}
	if !r.IsPositive() {
		return fmt.Errorf("rate for %s must be positive, got %s", code, r)
	}
	return nil
}
