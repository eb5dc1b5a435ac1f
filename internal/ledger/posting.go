package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/school-ledger-api/internal/models"
)

// ValidatePayment checks a transaction before anything is written.
func ValidatePayment(tx models.FeeTransaction) error {
	if strings.TrimSpace(tx.StudentID) == "" {
		return ErrMissingStudent
	}
	if !tx.Amount.IsPositive() || !ValidAmount(tx.Amount) {
		return ErrInvalidAmount
	}
	if !tx.Method.Valid() {
		return ErrInvalidMethod
	}
	return nil
}

// ApplyPayment adds the transaction amount to the record and refreshes the status.
func ApplyPayment(record *models.FeeRecord, tx models.FeeTransaction, now time.Time) {
	record.AmountPaid = record.AmountPaid.Add(tx.Amount)
	date := tx.Date
	record.LastPaymentDate = &date
	record.UpdatedAt = now
	Recompute(record)
}

// ValidateAdjustment checks a new amount due.
func ValidateAdjustment(amountDue decimal.Decimal) error {
	if amountDue.IsNegative() || !ValidAmount(amountDue) {
		return ErrInvalidAmount
	}
	return nil
}

// ApplyAdjustment overrides the amount due and refreshes the status from the existing payments.
func ApplyAdjustment(record *models.FeeRecord, amountDue decimal.Decimal, now time.Time) {
	record.AmountDue = amountDue
	record.UpdatedAt = now
	Recompute(record)
}
