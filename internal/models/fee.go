package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeeStatus is always derived from amount due and amount paid, never set directly.
type FeeStatus string

const (
	FeeStatusUnpaid  FeeStatus = "unpaid"
	FeeStatusPartial FeeStatus = "partial"
	FeeStatusPaid    FeeStatus = "paid"
)

// Valid reports whether the status is one of the known values.
func (s FeeStatus) Valid() bool {
	switch s {
	case FeeStatusUnpaid, FeeStatusPartial, FeeStatusPaid:
		return true
	}
	return false
}

// PaymentMethod enumerates how a payment was received.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "Cash"
	PaymentMethodMobileMoney  PaymentMethod = "Mobile Money"
	PaymentMethodBankTransfer PaymentMethod = "Bank Transfer"
)

// Valid reports whether the method is accepted.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodMobileMoney, PaymentMethodBankTransfer:
		return true
	}
	return false
}

// FeeSchedule is the billing template for one grade level.
type FeeSchedule struct {
	ID         string          `db:"id" json:"id"`
	GradeLevel string          `db:"grade_level" json:"grade_level"`
	Tuition    decimal.Decimal `db:"tuition" json:"tuition"`
	Canteen    decimal.Decimal `db:"canteen" json:"canteen"`
	Others     decimal.Decimal `db:"others" json:"others"`
	Total      decimal.Decimal `db:"total" json:"total"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// FeeRecord is a student's billing state. There is exactly one per student.
type FeeRecord struct {
	ID              string          `db:"id" json:"id"`
	StudentID       string          `db:"student_id" json:"student_id"`
	AmountDue       decimal.Decimal `db:"amount_due" json:"amount_due"`
	AmountPaid      decimal.Decimal `db:"amount_paid" json:"amount_paid"`
	LastPaymentDate *time.Time      `db:"last_payment_date" json:"last_payment_date,omitempty"`
	Status          FeeStatus       `db:"status" json:"status"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// Balance is amount due minus amount paid; negative means overpaid.
func (r FeeRecord) Balance() decimal.Decimal {
	return r.AmountDue.Sub(r.AmountPaid)
}

// FeeTransaction is an immutable payment event.
type FeeTransaction struct {
	ID          string          `db:"id" json:"id"`
	StudentID   string          `db:"student_id" json:"student_id"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Date        time.Time       `db:"date" json:"date"`
	Method      PaymentMethod   `db:"method" json:"method"`
	Description string          `db:"description" json:"description"`
	RecordedBy  string          `db:"recorded_by" json:"recorded_by"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// TransactionFilter narrows the transaction history. Results are always in insertion order.
type TransactionFilter struct {
	StudentID string
	From      *time.Time
	To        *time.Time
}

// LedgerFilter narrows the ledger view.
type LedgerFilter struct {
	Status     FeeStatus
	Search     string
	GradeLevel string
	Page       int
	PageSize   int
}

// LedgerRow pairs an enrolled student with their fee record.
type LedgerRow struct {
	Student Student         `json:"student"`
	Record  FeeRecord       `json:"fee_record"`
	Balance decimal.Decimal `json:"balance"`
}

// LedgerSummary aggregates the whole ledger.
type LedgerSummary struct {
	Students         int             `json:"students"`
	Paid             int             `json:"paid"`
	Partial          int             `json:"partial"`
	Unpaid           int             `json:"unpaid"`
	TotalExpected    decimal.Decimal `json:"total_expected"`
	TotalCollected   decimal.Decimal `json:"total_collected"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	Currency         string          `json:"currency"`
	GeneratedAt      time.Time       `json:"generated_at"`
}

// ReconcileResult reports the outcome of a synchronisation run.
type ReconcileResult struct {
	Students int         `json:"students"`
	Records  int         `json:"records"`
	Created  []FeeRecord `json:"created"`
}

// PaymentReceipt is returned after posting a payment.
type PaymentReceipt struct {
	Transaction FeeTransaction `json:"transaction"`
	Record      FeeRecord      `json:"fee_record"`
}

// StatementLine is one row of a student statement with a running balance.
type StatementLine struct {
	Date        *time.Time      `json:"date,omitempty"`
	Description string          `json:"description"`
	Reference   string          `json:"reference,omitempty"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
}

// Statement is the printable history of a student's account.
type Statement struct {
	Student     Student         `json:"student"`
	Record      FeeRecord       `json:"fee_record"`
	Lines       []StatementLine `json:"lines"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Currency    string          `json:"currency"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// LedgerDrift compares a fee record against the transaction log it should reflect.
type LedgerDrift struct {
	StudentID        string          `json:"student_id"`
	RecordedPaid     decimal.Decimal `json:"recorded_paid"`
	TransactionTotal decimal.Decimal `json:"transaction_total"`
	Difference       decimal.Decimal `json:"difference"`
	RecordedStatus   FeeStatus       `json:"recorded_status"`
	ExpectedStatus   FeeStatus       `json:"expected_status"`
	Transactions     int             `json:"transactions"`
	Consistent       bool            `json:"consistent"`
}
