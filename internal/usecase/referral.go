package usecase

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ComputeCommission returns amountRef * percent / 100. Non-positive inputs yield zero.
func ComputeCommission(amountRef, percent decimal.Decimal) decimal.Decimal {
	if !amountRef.IsPositive() || !percent.IsPositive() {
		return decimal.Zero
	}
	return amountRef.Mul(percent).Div(hundred).Round(moneyPlaces)
}
