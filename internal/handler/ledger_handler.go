package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-ledger-api/internal/dto"
	"github.com/noah-isme/school-ledger-api/internal/middleware"
	"github.com/noah-isme/school-ledger-api/internal/models"
	"github.com/noah-isme/school-ledger-api/internal/service"
	appErrors "github.com/noah-isme/school-ledger-api/pkg/errors"
	"github.com/noah-isme/school-ledger-api/pkg/response"
)

type ledgerService interface {
	Reconcile(ctx context.Context, trigger string) (*models.ReconcileResult, error)
	LedgerView(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerRow, *models.Pagination, error)
	Summary(ctx context.Context) (*models.LedgerSummary, bool, error)
	RecordPayment(ctx context.Context, req dto.RecordPaymentRequest, actor string) (*models.PaymentReceipt, error)
	AdjustBill(ctx context.Context, studentID string, req dto.AdjustBillRequest, actorID string) (*models.FeeRecord, error)
	TransactionHistory(ctx context.Context, filter models.TransactionFilter) ([]models.FeeTransaction, error)
	Statement(ctx context.Context, studentID string) (*models.Statement, error)
	Verify(ctx context.Context, studentID string) (*models.LedgerDrift, error)
}

// LedgerHandler exposes the fee ledger endpoints.
type LedgerHandler struct {
	ledger ledgerService
}

// NewLedgerHandler constructs LedgerHandler.
func NewLedgerHandler(ledger ledgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// Ledger godoc
// @Summary Fee ledger view
// @Description Reconciles fee records, then lists one row per enrolled student
// @Tags Fees
// @Produce json
// @Param status query string false "unpaid, partial or paid"
// @Param search query string false "Student name or registration number"
// @Param gradeLevel query string false "Grade level"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /fees/ledger [get]
func (h *LedgerHandler) Ledger(c *gin.Context) {
	filter := models.LedgerFilter{
		Status:     models.FeeStatus(strings.ToLower(strings.TrimSpace(c.Query("status")))),
		Search:     strings.TrimSpace(c.Query("search")),
		GradeLevel: strings.TrimSpace(c.Query("gradeLevel")),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}

	rows, pagination, err := h.ledger.LedgerView(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// Summary godoc
// @Summary Fee ledger totals
// @Tags Fees
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /fees/summary [get]
func (h *LedgerHandler) Summary(c *gin.Context) {
	summary, hit, err := h.ledger.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}

// Reconcile godoc
// @Summary Reconcile fee records
// @Description Creates a fee record for every enrolled student that lacks one
// @Tags Fees
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /fees/reconcile [post]
func (h *LedgerHandler) Reconcile(c *gin.Context) {
	result, err := h.ledger.Reconcile(c.Request.Context(), service.TriggerAPI)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ReconcileResponse{
		Students: result.Students,
		Records:  result.Records,
		Created:  result.Created,
	}, nil)
}

// RecordPayment godoc
// @Summary Record a fee payment
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body dto.RecordPaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /fees/transactions [post]
func (h *LedgerHandler) RecordPayment(c *gin.Context) {
	var req dto.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	receipt, err := h.ledger.RecordPayment(c.Request.Context(), req, actorName(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, receipt)
}

// Transactions godoc
// @Summary List fee transactions
// @Tags Fees
// @Produce json
// @Param studentId query string false "Student ID"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /fees/transactions [get]
func (h *LedgerHandler) Transactions(c *gin.Context) {
	filter := models.TransactionFilter{StudentID: strings.TrimSpace(c.Query("studentId"))}
	var err error
	if filter.From, err = parseDateQuery(c, "from"); err != nil {
		response.Error(c, err)
		return
	}
	if filter.To, err = parseDateQuery(c, "to"); err != nil {
		response.Error(c, err)
		return
	}

	txs, err := h.ledger.TransactionHistory(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, txs, nil)
}

// AdjustBill godoc
// @Summary Override a student's amount due
// @Tags Fees
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param payload body dto.AdjustBillRequest true "Adjustment payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fees/records/{studentId}/amount-due [put]
func (h *LedgerHandler) AdjustBill(c *gin.Context) {
	var req dto.AdjustBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.ledger.AdjustBill(c.Request.Context(), c.Param("studentId"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Statement godoc
// @Summary Student fee statement
// @Tags Fees
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fees/records/{studentId}/statement [get]
func (h *LedgerHandler) Statement(c *gin.Context) {
	statement, err := h.ledger.Statement(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, statement, nil)
}

// Verify godoc
// @Summary Check a fee record against its transactions
// @Tags Fees
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /fees/records/{studentId}/verify [get]
func (h *LedgerHandler) Verify(c *gin.Context) {
	drift, err := h.ledger.Verify(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, drift, nil)
}

func parseDateQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, key+" must be YYYY-MM-DD")
	}
	return &parsed, nil
}
