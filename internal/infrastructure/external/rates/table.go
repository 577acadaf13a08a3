package rates

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dmarkov/expensio/internal/application/port"
)

// Table is a static exchange-rate table relative to USD. It exists for
// display-time conversion only; authoritative report totals stay
// per-currency and never pass through here.
type Table struct {
	rates map[string]decimal.Decimal
}

// defaultRates holds the value of one unit of each currency in USD.
// Snapshot values; refreshing them is a config concern, not a runtime one.
var defaultRates = map[string]string{
	"USD": "1",
	"EUR": "1.09",
	"GBP": "1.27",
	"JPY": "0.0067",
	"CHF": "1.13",
	"CAD": "0.73",
	"AUD": "0.66",
	"SEK": "0.095",
	"NOK": "0.094",
	"DKK": "0.146",
	"PLN": "0.25",
	"CZK": "0.043",
	"INR": "0.012",
}

// NewTable creates a table with the built-in snapshot rates.
func NewTable() *Table {
	table := &Table{rates: make(map[string]decimal.Decimal, len(defaultRates))}
	for code, rate := range defaultRates {
		table.rates[code] = decimal.RequireFromString(rate)
	}
	return table
}

// NewTableWith creates a table from explicit code->rate pairs (rates in USD
// per unit). Useful for tests and configuration overrides.
func NewTableWith(rates map[string]decimal.Decimal) *Table {
	copied := make(map[string]decimal.Decimal, len(rates))
	for code, rate := range rates {
		copied[strings.ToUpper(code)] = rate
	}
	return &Table{rates: copied}
}

// Rate returns the USD value of one unit of the currency.
func (t *Table) Rate(code string) (decimal.Decimal, error) {
	rate, ok := t.rates[strings.ToUpper(code)]
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown currency %q", code)
	}
	return rate, nil
}

// Convert converts an amount between two known currencies through the base
// unit.
func (t *Table) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	fromRate, err := t.Rate(from)
	if err != nil {
		return decimal.Zero, err
	}
	toRate, err := t.Rate(to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(fromRate).DivRound(toRate, 4), nil
}

var _ port.RateTable = (*Table)(nil)
