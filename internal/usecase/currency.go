// File: internal/usecase/currency.go
package usecase

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"vpn-billing/internal/domain"
)

// moneyPlaces matches the NUMERIC(20,6) money columns.
const moneyPlaces = 6

// CurrencyNormalizer converts amounts into the reference currency.
// Rates are units of a currency per one reference unit.
type CurrencyNormalizer struct {
	reference string
	rates     map[string]decimal.Decimal
}

func NewCurrencyNormalizer(reference string, rates map[string]decimal.Decimal) *CurrencyNormalizer {
	ref := strings.ToUpper(strings.TrimSpace(reference))
	n := &CurrencyNormalizer{reference: ref, rates: make(map[string]decimal.Decimal, len(rates)+1)}
	for code, r := range rates {
		n.rates[strings.ToUpper(strings.TrimSpace(code))] = r
	}
	n.rates[ref] = decimal.NewFromInt(1)
	return n
}

func (n *CurrencyNormalizer) Reference() string { return n.reference }

// ToReference returns amount / rate(currency). An empty currency is the reference.
func (n *CurrencyNormalizer) ToReference(amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = n.reference
	}
	rate, ok := n.rates[code]
	if !ok || !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s: %w", code, domain.ErrUnknownCurrency)
	}
	return amount.Div(rate).Round(moneyPlaces), nil
}
