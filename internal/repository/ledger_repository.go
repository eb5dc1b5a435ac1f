package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-ledger-api/internal/ledger"
	"github.com/noah-isme/school-ledger-api/internal/models"
)

const (
	feeRecordColumns      = `id, student_id, amount_due, amount_paid, last_payment_date, status, created_at, updated_at`
	feeTransactionColumns = `id, student_id, amount, date, method, description, recorded_by, created_at`
)

type ledgerQuerier interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

// LedgerRepository stores fee records and the fee transaction log in PostgreSQL.
type LedgerRepository struct {
	db *sqlx.DB
}

var _ ledger.Store = (*LedgerRepository)(nil)

// NewLedgerRepository constructs a LedgerRepository.
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// WithinTx runs fn inside a database transaction, committing only when fn succeeds.
func (r *LedgerRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, unit ledger.Unit) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(ctx, &ledgerUnit{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	committed = true
	return nil
}

// ListFeeRecords returns every fee record.
func (r *LedgerRepository) ListFeeRecords(ctx context.Context) ([]models.FeeRecord, error) {
	return (&ledgerUnit{q: r.db}).ListFeeRecords(ctx)
}

// FindFeeRecord returns the student's record or sql.ErrNoRows.
func (r *LedgerRepository) FindFeeRecord(ctx context.Context, studentID string) (*models.FeeRecord, error) {
	return (&ledgerUnit{q: r.db}).FindFeeRecord(ctx, studentID)
}

// ListTransactions returns transactions in the order they were posted.
func (r *LedgerRepository) ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.FeeTransaction, error) {
	return (&ledgerUnit{q: r.db}).ListTransactions(ctx, filter)
}

type ledgerUnit struct {
	q ledgerQuerier
}

func (u *ledgerUnit) ListFeeRecords(ctx context.Context) ([]models.FeeRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM fee_records ORDER BY created_at ASC, student_id ASC", feeRecordColumns)
	var records []models.FeeRecord
	if err := u.q.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("list fee records: %w", err)
	}
	return records, nil
}

func (u *ledgerUnit) FindFeeRecord(ctx context.Context, studentID string) (*models.FeeRecord, error) {
	return u.getFeeRecord(ctx, studentID, "")
}

func (u *ledgerUnit) LockFeeRecord(ctx context.Context, studentID string) (*models.FeeRecord, error) {
	return u.getFeeRecord(ctx, studentID, " FOR UPDATE")
}

func (u *ledgerUnit) getFeeRecord(ctx context.Context, studentID, suffix string) (*models.FeeRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM fee_records WHERE student_id = $1%s", feeRecordColumns, suffix)
	var record models.FeeRecord
	if err := u.q.GetContext(ctx, &record, query, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find fee record: %w", err)
	}
	return &record, nil
}

func (u *ledgerUnit) InsertFeeRecords(ctx context.Context, records []models.FeeRecord) (int, error) {
	const query = `INSERT INTO fee_records (id, student_id, amount_due, amount_paid, last_payment_date, status, created_at, updated_at)
VALUES (:id, :student_id, :amount_due, :amount_paid, :last_payment_date, :status, :created_at, :updated_at)
ON CONFLICT (student_id) DO NOTHING`
	inserted := 0
	for i := range records {
		res, err := u.q.NamedExecContext(ctx, query, records[i])
		if err != nil {
			return inserted, fmt.Errorf("insert fee record: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	return inserted, nil
}

func (u *ledgerUnit) UpdateFeeRecord(ctx context.Context, record *models.FeeRecord) error {
	const query = `UPDATE fee_records SET amount_due = :amount_due, amount_paid = :amount_paid, last_payment_date = :last_payment_date,
        status = :status, updated_at = :updated_at WHERE student_id = :student_id`
	res, err := u.q.NamedExecContext(ctx, query, record)
	if err != nil {
		return fmt.Errorf("update fee record: %w", err)
	}
	return expectAffected(res)
}

func (u *ledgerUnit) AppendTransaction(ctx context.Context, tx *models.FeeTransaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	const query = `INSERT INTO fee_transactions (id, student_id, amount, date, method, description, recorded_by, created_at)
VALUES (:id, :student_id, :amount, :date, :method, :description, :recorded_by, :created_at)`
	if _, err := u.q.NamedExecContext(ctx, query, tx); err != nil {
		return fmt.Errorf("append fee transaction: %w", err)
	}
	return nil
}

func (u *ledgerUnit) ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.FeeTransaction, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	query := fmt.Sprintf("SELECT %s FROM fee_transactions WHERE %s ORDER BY seq ASC", feeTransactionColumns, strings.Join(conditions, " AND "))
	txs := make([]models.FeeTransaction, 0)
	if err := u.q.SelectContext(ctx, &txs, query, args...); err != nil {
		return nil, fmt.Errorf("list fee transactions: %w", err)
	}
	return txs, nil
}

func (u *ledgerUnit) RecordAudit(ctx context.Context, entry *models.AuditLog) error {
	return insertAuditLog(ctx, u.q, entry)
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
