package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/school-ledger-api/internal/models"
)

// RecordPaymentRequest captures POST /fees/transactions payload.
type RecordPaymentRequest struct {
	StudentID   string          `json:"studentId" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Method      string          `json:"method" validate:"required"`
	Description string          `json:"description" validate:"max=255"`
	RecordedBy  string          `json:"recordedBy" validate:"max=120"`
}

// AdjustBillRequest captures PUT /fees/records/:studentId/amount-due payload.
type AdjustBillRequest struct {
	AmountDue *decimal.Decimal `json:"amountDue" validate:"required"`
	Reason    string           `json:"reason" validate:"max=255"`
}

// UpsertScheduleRequest captures fee schedule create and update payloads.
// Any total sent by the client is ignored.
type UpsertScheduleRequest struct {
	GradeLevel string          `json:"gradeLevel" validate:"required,max=64"`
	Tuition    decimal.Decimal `json:"tuition"`
	Canteen    decimal.Decimal `json:"canteen"`
	Others     decimal.Decimal `json:"others"`
}

// ReconcileResponse is returned by POST /fees/reconcile.
type ReconcileResponse struct {
	Students int                `json:"students"`
	Records  int                `json:"records"`
	Created  []models.FeeRecord `json:"created"`
}

// SeedSchedulesResponse reports how many default schedules were installed.
type SeedSchedulesResponse struct {
	Seeded int `json:"seeded"`
}
