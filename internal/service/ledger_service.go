package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/school-ledger-api/internal/dto"
	"github.com/noah-isme/school-ledger-api/internal/ledger"
	"github.com/noah-isme/school-ledger-api/internal/models"
	appErrors "github.com/noah-isme/school-ledger-api/pkg/errors"
)

// Reconcile triggers.
const (
	TriggerAPI      = "api"
	TriggerView     = "view"
	TriggerStudent  = "student"
	TriggerSchedule = "schedule"
	TriggerStartup  = "startup"
)

const (
	defaultDescription = "School fees payment"
	defaultRecorder    = "Admin"
	dateLayout         = "2006-01-02"
)

type scheduleLister interface {
	List(ctx context.Context) ([]models.FeeSchedule, error)
}

type studentDirectory interface {
	ListEnrolled(ctx context.Context) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// LedgerConfig carries the billing settings of the ledger.
type LedgerConfig struct {
	Policy   ledger.FallbackPolicy
	Currency string
	CacheTTL time.Duration
}

// LedgerService reconciles fee records against enrolment and posts payments and bill adjustments.
// Every mutation runs as one unit of work on the ledger store.
type LedgerService struct {
	store     ledger.Store
	schedules scheduleLister
	students  studentDirectory
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    LedgerConfig
	now       func() time.Time
}

// NewLedgerService constructs the ledger service. cache and metrics may be nil.
func NewLedgerService(store ledger.Store, schedules scheduleLister, students studentDirectory, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config LedgerConfig) *LedgerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Policy.Primary.IsZero() && config.Policy.Default.IsZero() {
		config.Policy = ledger.DefaultFallbackPolicy()
	}
	if config.Currency == "" {
		config.Currency = "GHS"
	}
	return &LedgerService{
		store:     store,
		schedules: schedules,
		students:  students,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Reconcile gives every enrolled student a fee record. Running it again without new
// students writes nothing.
func (s *LedgerService) Reconcile(ctx context.Context, trigger string) (*models.ReconcileResult, error) {
	_, result, err := s.reconcile(ctx, trigger)
	return result, err
}

func (s *LedgerService) reconcile(ctx context.Context, trigger string) ([]models.Student, *models.ReconcileResult, error) {
	students, err := s.students.ListEnrolled(ctx)
	if err != nil {
		s.metrics.RecordReconcile(trigger, 0, err)
		return nil, nil, s.persistenceError("reconcile", err, "failed to load enrolled students")
	}
	schedules, err := s.schedules.List(ctx)
	if err != nil {
		s.metrics.RecordReconcile(trigger, 0, err)
		return nil, nil, s.persistenceError("reconcile", err, "failed to load fee schedules")
	}
	index := ledger.IndexSchedules(schedules)
	now := s.now()

	result := &models.ReconcileResult{Students: len(students)}
	inserted := 0
	err = s.store.WithinTx(ctx, func(ctx context.Context, unit ledger.Unit) error {
		existing, err := unit.ListFeeRecords(ctx)
		if err != nil {
			return err
		}
		merged, created := ledger.Reconcile(students, existing, index, s.config.Policy, now)
		if inserted, err = unit.InsertFeeRecords(ctx, created); err != nil {
			return err
		}
		result.Records = len(merged)
		result.Created = created
		return nil
	})
	s.metrics.RecordReconcile(trigger, inserted, err)
	if err != nil {
		return nil, nil, s.persistenceError("reconcile", err, "failed to reconcile fee records")
	}
	if result.Created == nil {
		result.Created = []models.FeeRecord{}
	}

	if len(result.Created) > 0 {
		grades := make(map[string]string, len(students))
		for _, student := range students {
			grades[student.ID] = student.GradeLevel
		}
		for _, record := range result.Created {
			grade := grades[record.StudentID]
			if _, ok := index.Lookup(grade); !ok {
				s.logger.Debug("no fee schedule for grade level, fallback applied",
					zap.String("student_id", record.StudentID), zap.String("grade_level", grade))
			}
		}
		s.invalidate(ctx)
		s.logger.Info("fee records reconciled",
			zap.String("trigger", trigger), zap.Int("created", len(result.Created)), zap.Int("inserted", inserted), zap.Int("records", result.Records))
	}
	return students, result, nil
}

// Balances reconciles and returns one row per enrolled student in enrolment order.
func (s *LedgerService) Balances(ctx context.Context) ([]models.LedgerRow, error) {
	students, _, err := s.reconcile(ctx, TriggerView)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListFeeRecords(ctx)
	if err != nil {
		return nil, s.persistenceError("ledger_view", err, "failed to load fee records")
	}
	byStudent := make(map[string]models.FeeRecord, len(records))
	for _, record := range records {
		if _, dup := byStudent[record.StudentID]; !dup {
			byStudent[record.StudentID] = record
		}
	}

	rows := make([]models.LedgerRow, 0, len(students))
	for _, student := range students {
		record, ok := byStudent[student.ID]
		if !ok {
			record = models.FeeRecord{StudentID: student.ID}
			ledger.Recompute(&record)
		}
		rows = append(rows, models.LedgerRow{Student: student, Record: record, Balance: record.Balance()})
	}
	return rows, nil
}

// LedgerView returns the filtered, paginated ledger.
func (s *LedgerService) LedgerView(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerRow, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "status must be one of unpaid, partial, paid")
	}
	rows, err := s.Balances(ctx)
	if err != nil {
		return nil, nil, err
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	filtered := make([]models.LedgerRow, 0, len(rows))
	for _, row := range rows {
		if filter.Status != "" && row.Record.Status != filter.Status {
			continue
		}
		if filter.GradeLevel != "" && row.Student.GradeLevel != filter.GradeLevel {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(row.Student.FullName()), search) &&
			!strings.Contains(strings.ToLower(row.Student.RegNumber), search) {
			continue
		}
		filtered = append(filtered, row)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	start := (page - 1) * size
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + size
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], &models.Pagination{Page: page, PageSize: size, TotalCount: len(filtered)}, nil
}

// Summary totals the ledger, serving from cache when enabled.
func (s *LedgerService) Summary(ctx context.Context) (*models.LedgerSummary, bool, error) {
	if cached, hit := s.cache.Summary(ctx); hit {
		return cached, true, nil
	}
	rows, err := s.Balances(ctx)
	if err != nil {
		return nil, false, err
	}
	summary := ledger.Summarize(rows, s.config.Currency, s.now())
	s.cache.StoreSummary(ctx, summary, s.config.CacheTTL)
	return &summary, false, nil
}

// RecordPayment validates and posts a payment. The transaction append and the fee record
// update commit together or not at all.
func (s *LedgerService) RecordPayment(ctx context.Context, req dto.RecordPaymentRequest, actor string) (*models.PaymentReceipt, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	now := s.now()
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if req.Date != "" {
		parsed, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be YYYY-MM-DD")
		}
		date = parsed
	}

	tx := models.FeeTransaction{
		ID:          uuid.NewString(),
		StudentID:   strings.TrimSpace(req.StudentID),
		Amount:      req.Amount,
		Date:        date,
		Method:      models.PaymentMethod(req.Method),
		Description: firstNonEmpty(req.Description, defaultDescription),
		RecordedBy:  firstNonEmpty(req.RecordedBy, actor, defaultRecorder),
		CreatedAt:   now,
	}
	if err := ledger.ValidatePayment(tx); err != nil {
		return nil, s.ledgerError("record_payment", err)
	}

	var receipt models.PaymentReceipt
	err := s.store.WithinTx(ctx, func(ctx context.Context, unit ledger.Unit) error {
		record, err := unit.LockFeeRecord(ctx, tx.StudentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ledger.ErrRecordNotFound
			}
			return err
		}
		if err := unit.AppendTransaction(ctx, &tx); err != nil {
			return err
		}
		ledger.ApplyPayment(record, tx, now)
		if err := unit.UpdateFeeRecord(ctx, record); err != nil {
			return err
		}
		receipt = models.PaymentReceipt{Transaction: tx, Record: *record}
		return nil
	})
	if err != nil {
		return nil, s.ledgerError("record_payment", err)
	}

	s.metrics.RecordPayment(string(tx.Method), tx.Amount)
	s.invalidate(ctx)
	s.logger.Info("fee payment recorded",
		zap.String("student_id", tx.StudentID),
		zap.String("transaction_id", tx.ID),
		zap.String("amount", tx.Amount.StringFixed(2)),
		zap.String("method", string(tx.Method)),
		zap.String("status", string(receipt.Record.Status)))
	return &receipt, nil
}

// AdjustBill overrides a student's amount due and recomputes the status from what has
// already been paid. No transaction is written; an audit entry is.
func (s *LedgerService) AdjustBill(ctx context.Context, studentID string, req dto.AdjustBillRequest, actorID string) (*models.FeeRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid adjustment payload")
	}
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, s.ledgerError("adjust_bill", ledger.ErrMissingStudent)
	}
	if err := ledger.ValidateAdjustment(*req.AmountDue); err != nil {
		return nil, s.ledgerError("adjust_bill", err)
	}

	now := s.now()
	var adjusted models.FeeRecord
	err := s.store.WithinTx(ctx, func(ctx context.Context, unit ledger.Unit) error {
		record, err := unit.LockFeeRecord(ctx, studentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ledger.ErrRecordNotFound
			}
			return err
		}
		before := *record
		ledger.ApplyAdjustment(record, *req.AmountDue, now)
		if err := unit.UpdateFeeRecord(ctx, record); err != nil {
			return err
		}

		entry := &models.AuditLog{
			ID:         uuid.NewString(),
			Action:     models.AuditActionFeeAdjust,
			Resource:   "fee_record",
			ResourceID: &studentID,
			CreatedAt:  now,
		}
		if actorID != "" {
			entry.UserID = &actorID
		}
		entry.OldValues, _ = json.Marshal(map[string]interface{}{"amount_due": before.AmountDue, "status": before.Status})
		entry.NewValues, _ = json.Marshal(map[string]interface{}{"amount_due": record.AmountDue, "status": record.Status, "reason": req.Reason})
		if err := unit.RecordAudit(ctx, entry); err != nil {
			return err
		}
		adjusted = *record
		return nil
	})
	if err != nil {
		return nil, s.ledgerError("adjust_bill", err)
	}

	s.metrics.RecordAdjustment()
	s.invalidate(ctx)
	s.logger.Info("fee bill adjusted",
		zap.String("student_id", studentID),
		zap.String("amount_due", adjusted.AmountDue.StringFixed(2)),
		zap.String("status", string(adjusted.Status)))
	return &adjusted, nil
}

// TransactionHistory returns posted transactions in insertion order, optionally for one student.
func (s *LedgerService) TransactionHistory(ctx context.Context, filter models.TransactionFilter) ([]models.FeeTransaction, error) {
	txs, err := s.store.ListTransactions(ctx, filter)
	if err != nil {
		return nil, s.persistenceError("transaction_history", err, "failed to load transactions")
	}
	return txs, nil
}

// Statement lays out a student's bill and payments with a running balance.
func (s *LedgerService) Statement(ctx context.Context, studentID string) (*models.Statement, error) {
	student, record, txs, err := s.account(ctx, studentID)
	if err != nil {
		return nil, err
	}
	statement := ledger.BuildStatement(*student, *record, txs, s.config.Currency, s.now())
	return &statement, nil
}

// Verify replays the student's transactions and compares the result with the stored record.
func (s *LedgerService) Verify(ctx context.Context, studentID string) (*models.LedgerDrift, error) {
	_, record, txs, err := s.account(ctx, studentID)
	if err != nil {
		return nil, err
	}
	drift := ledger.Verify(*record, txs)
	if !drift.Consistent {
		s.logger.Warn("fee record drift detected",
			zap.String("student_id", studentID),
			zap.String("recorded_paid", drift.RecordedPaid.StringFixed(2)),
			zap.String("transaction_total", drift.TransactionTotal.StringFixed(2)))
	}
	return &drift, nil
}

func (s *LedgerService) account(ctx context.Context, studentID string) (*models.Student, *models.FeeRecord, []models.FeeTransaction, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, nil, nil, s.persistenceError("statement", err, "failed to load student")
	}
	record, err := s.store.FindFeeRecord(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil, appErrors.Clone(appErrors.ErrRecordNotFound, "student has no fee record yet")
		}
		return nil, nil, nil, s.persistenceError("statement", err, "failed to load fee record")
	}
	txs, err := s.store.ListTransactions(ctx, models.TransactionFilter{StudentID: studentID})
	if err != nil {
		return nil, nil, nil, s.persistenceError("statement", err, "failed to load transactions")
	}
	return student, record, txs, nil
}

func (s *LedgerService) ledgerError(operation string, err error) error {
	switch {
	case errors.Is(err, ledger.ErrRecordNotFound):
		return appErrors.Clone(appErrors.ErrRecordNotFound, "fee record not found for student; reconcile first")
	case errors.Is(err, ledger.ErrInvalidAmount):
		if operation == "adjust_bill" {
			return appErrors.Clone(appErrors.ErrInvalidAmount, "amount due must be non-negative with at most two decimal places")
		}
		return appErrors.Clone(appErrors.ErrInvalidAmount, "payment amount must be greater than zero with at most two decimal places")
	case errors.Is(err, ledger.ErrInvalidMethod):
		return appErrors.Clone(appErrors.ErrValidation, "method must be one of Cash, Mobile Money, Bank Transfer")
	case errors.Is(err, ledger.ErrMissingStudent):
		return appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return s.persistenceError(operation, err, "fee ledger update aborted")
}

func (s *LedgerService) persistenceError(operation string, err error, message string) error {
	s.metrics.RecordLedgerFailure(operation)
	s.logger.Error("ledger store failure", zap.String("operation", operation), zap.Error(err))
	return appErrors.Persistence(err, message)
}

func (s *LedgerService) invalidate(ctx context.Context) {
	s.cache.InvalidateLedger(ctx)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
