package ledger

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/noah-isme/school-ledger-api/internal/models"
)

// MemoryStore is a process-local Store. Units of work are serialised and run against a
// copy of the state that replaces the live state only when the unit succeeds.
type MemoryStore struct {
	mu    sync.Mutex
	state memoryState

	// FailOn makes the named unit operation fail, for exercising rollback paths.
	FailOn map[string]error
}

type memoryState struct {
	records map[string]models.FeeRecord
	order   []string
	txs     []models.FeeTransaction
	audits  []models.AuditLog
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: memoryState{records: make(map[string]models.FeeRecord)}}
}

func (s memoryState) clone() memoryState {
	records := make(map[string]models.FeeRecord, len(s.records))
	for k, v := range s.records {
		records[k] = v
	}
	return memoryState{
		records: records,
		order:   append([]string(nil), s.order...),
		txs:     append([]models.FeeTransaction(nil), s.txs...),
		audits:  append([]models.AuditLog(nil), s.audits...),
	}
}

// ListFeeRecords returns records in insertion order.
func (s *MemoryStore) ListFeeRecords(ctx context.Context) ([]models.FeeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memoryUnit{state: &s.state}).ListFeeRecords(ctx)
}

// FindFeeRecord returns the student's record or sql.ErrNoRows.
func (s *MemoryStore) FindFeeRecord(ctx context.Context, studentID string) (*models.FeeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memoryUnit{state: &s.state}).FindFeeRecord(ctx, studentID)
}

// ListTransactions returns matching transactions in insertion order.
func (s *MemoryStore) ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.FeeTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memoryUnit{state: &s.state}).ListTransactions(ctx, filter)
}

// AuditLogs returns a copy of the audit entries written so far.
func (s *MemoryStore) AuditLogs() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditLog(nil), s.state.audits...)
}

// WithinTx runs fn atomically.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, unit Unit) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(ctx, &memoryUnit{state: &working, failOn: s.FailOn}); err != nil {
		return err
	}
	s.state = working
	return nil
}

type memoryUnit struct {
	state  *memoryState
	failOn map[string]error
}

func (u *memoryUnit) fail(op string) error {
	if u.failOn == nil {
		return nil
	}
	return u.failOn[op]
}

func (u *memoryUnit) ListFeeRecords(ctx context.Context) ([]models.FeeRecord, error) {
	records := make([]models.FeeRecord, 0, len(u.state.order))
	for _, id := range u.state.order {
		records = append(records, u.state.records[id])
	}
	return records, nil
}

func (u *memoryUnit) FindFeeRecord(ctx context.Context, studentID string) (*models.FeeRecord, error) {
	record, ok := u.state.records[studentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &record, nil
}

func (u *memoryUnit) ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.FeeTransaction, error) {
	txs := make([]models.FeeTransaction, 0)
	for _, tx := range u.state.txs {
		if filter.StudentID != "" && tx.StudentID != filter.StudentID {
			continue
		}
		if filter.From != nil && tx.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && tx.Date.After(*filter.To) {
			continue
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (u *memoryUnit) LockFeeRecord(ctx context.Context, studentID string) (*models.FeeRecord, error) {
	if err := u.fail("LockFeeRecord"); err != nil {
		return nil, err
	}
	return u.FindFeeRecord(ctx, studentID)
}

func (u *memoryUnit) InsertFeeRecords(ctx context.Context, records []models.FeeRecord) (int, error) {
	if err := u.fail("InsertFeeRecords"); err != nil {
		return 0, err
	}
	inserted := 0
	for _, record := range records {
		if _, exists := u.state.records[record.StudentID]; exists {
			continue
		}
		u.state.records[record.StudentID] = record
		u.state.order = append(u.state.order, record.StudentID)
		inserted++
	}
	return inserted, nil
}

func (u *memoryUnit) UpdateFeeRecord(ctx context.Context, record *models.FeeRecord) error {
	if err := u.fail("UpdateFeeRecord"); err != nil {
		return err
	}
	if _, ok := u.state.records[record.StudentID]; !ok {
		return sql.ErrNoRows
	}
	u.state.records[record.StudentID] = *record
	return nil
}

func (u *memoryUnit) AppendTransaction(ctx context.Context, tx *models.FeeTransaction) error {
	if err := u.fail("AppendTransaction"); err != nil {
		return err
	}
	if tx.ID == "" {
		return errors.New("memory store: transaction id is required")
	}
	u.state.txs = append(u.state.txs, *tx)
	return nil
}

func (u *memoryUnit) RecordAudit(ctx context.Context, entry *models.AuditLog) error {
	if err := u.fail("RecordAudit"); err != nil {
		return err
	}
	u.state.audits = append(u.state.audits, *entry)
	return nil
}
