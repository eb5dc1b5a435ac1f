package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/school-ledger-api/internal/models"
)

const billDescription = "School fees bill"

// BuildStatement lays out the current bill followed by each payment with a running balance.
func BuildStatement(student models.Student, record models.FeeRecord, txs []models.FeeTransaction, currency string, now time.Time) models.Statement {
	lines := make([]models.StatementLine, 0, len(txs)+1)
	running := record.AmountDue
	lines = append(lines, models.StatementLine{
		Description: billDescription,
		Debit:       record.AmountDue,
		Credit:      decimal.Zero,
		Balance:     running,
	})

	for _, tx := range txs {
		if tx.StudentID != record.StudentID {
			continue
		}
		date := tx.Date
		running = running.Sub(tx.Amount)
		lines = append(lines, models.StatementLine{
			Date:        &date,
			Description: tx.Description,
			Reference:   string(tx.Method),
			Debit:       decimal.Zero,
			Credit:      tx.Amount,
			Balance:     running,
		})
	}

	return models.Statement{
		Student:     student,
		Record:      record,
		Lines:       lines,
		Outstanding: record.Balance(),
		Currency:    currency,
		GeneratedAt: now,
	}
}

// Summarize totals the ledger rows.
func Summarize(rows []models.LedgerRow, currency string, now time.Time) models.LedgerSummary {
	summary := models.LedgerSummary{
		TotalExpected:    decimal.Zero,
		TotalCollected:   decimal.Zero,
		TotalOutstanding: decimal.Zero,
		Currency:         currency,
		GeneratedAt:      now,
	}
	for _, row := range rows {
		summary.Students++
		summary.TotalExpected = summary.TotalExpected.Add(row.Record.AmountDue)
		summary.TotalCollected = summary.TotalCollected.Add(row.Record.AmountPaid)
		if balance := row.Record.Balance(); balance.IsPositive() {
			summary.TotalOutstanding = summary.TotalOutstanding.Add(balance)
		}
		switch row.Record.Status {
		case models.FeeStatusPaid:
			summary.Paid++
		case models.FeeStatusPartial:
			summary.Partial++
		default:
			summary.Unpaid++
		}
	}
	return summary
}
