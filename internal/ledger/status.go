// Package ledger holds the storage-agnostic fee ledger rules: status derivation, billing
// fallback, reconciliation of fee records against enrolment, payment posting and the
// projection of fee records from the transaction log.
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/school-ledger-api/internal/models"
)

// DeriveStatus computes the fee status from the amount due and the amount paid.
// A zero or negative balance is paid, so a zero bill with nothing paid is paid.
func DeriveStatus(due, paid decimal.Decimal) models.FeeStatus {
	balance := due.Sub(paid)
	switch {
	case !balance.IsPositive():
		return models.FeeStatusPaid
	case paid.IsPositive():
		return models.FeeStatusPartial
	default:
		return models.FeeStatusUnpaid
	}
}

// Recompute refreshes the record status in place.
func Recompute(record *models.FeeRecord) {
	record.Status = DeriveStatus(record.AmountDue, record.AmountPaid)
}
