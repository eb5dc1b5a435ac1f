package ledger

import (
	"context"

	"github.com/noah-isme/school-ledger-api/internal/models"
)

// Reader exposes the fee ledger queries. FindFeeRecord returns sql.ErrNoRows when the
// student has no record.
type Reader interface {
	ListFeeRecords(ctx context.Context) ([]models.FeeRecord, error)
	FindFeeRecord(ctx context.Context, studentID string) (*models.FeeRecord, error)
	ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.FeeTransaction, error)
}

// Unit is one atomic unit of work. Nothing written through a Unit is visible to
// other callers until the enclosing WithinTx returns nil.
type Unit interface {
	Reader
	// LockFeeRecord loads the record and holds it until the unit ends.
	LockFeeRecord(ctx context.Context, studentID string) (*models.FeeRecord, error)
	// InsertFeeRecords stores new records, skipping students that already have one.
	// It returns the number of rows written.
	InsertFeeRecords(ctx context.Context, records []models.FeeRecord) (int, error)
	UpdateFeeRecord(ctx context.Context, record *models.FeeRecord) error
	AppendTransaction(ctx context.Context, tx *models.FeeTransaction) error
	RecordAudit(ctx context.Context, entry *models.AuditLog) error
}

// Store is the persistence boundary for fee records and the transaction log.
type Store interface {
	Reader
	WithinTx(ctx context.Context, fn func(ctx context.Context, unit Unit) error) error
}
