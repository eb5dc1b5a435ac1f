package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/school-ledger-api/internal/models"
)

// Project rebuilds a fee record from its transaction log. Only amount_paid, the last payment
// date and the status are derived; the bill itself comes from the stored record.
func Project(record models.FeeRecord, txs []models.FeeTransaction) models.FeeRecord {
	projected := record
	projected.AmountPaid = decimal.Zero
	projected.LastPaymentDate = nil
	for _, tx := range txs {
		if tx.StudentID != record.StudentID {
			continue
		}
		ApplyPayment(&projected, tx, record.UpdatedAt)
	}
	Recompute(&projected)
	return projected
}

// Verify compares a stored record with the projection of its transactions.
func Verify(record models.FeeRecord, txs []models.FeeTransaction) models.LedgerDrift {
	projected := Project(record, txs)

	count := 0
	for _, tx := range txs {
		if tx.StudentID == record.StudentID {
			count++
		}
	}

	drift := models.LedgerDrift{
		StudentID:        record.StudentID,
		RecordedPaid:     record.AmountPaid,
		TransactionTotal: projected.AmountPaid,
		Difference:       record.AmountPaid.Sub(projected.AmountPaid),
		RecordedStatus:   record.Status,
		ExpectedStatus:   projected.Status,
		Transactions:     count,
	}
	drift.Consistent = drift.Difference.IsZero() && drift.RecordedStatus == drift.ExpectedStatus
	return drift
}
