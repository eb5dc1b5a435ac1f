package ledger

import "github.com/shopspring/decimal"

// Amounts are persisted as NUMERIC(12,2): at most two decimal places and an absolute
// value below 10^10.
const AmountScale = 2

var amountLimit = decimal.New(1, 10)

// ValidAmount reports whether the amount is storable without rounding.
func ValidAmount(amount decimal.Decimal) bool {
	if !amount.Equal(amount.Round(AmountScale)) {
		return false
	}
	return amount.Abs().LessThan(amountLimit)
}
