package service

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceRecordsLedgerActivity(t *testing.T) {
	m := NewMetricsService()

	m.RecordPayment("Cash", decimal.RequireFromString("250.50"))
	m.RecordPayment("Cash", decimal.NewFromInt(100))
	m.RecordAdjustment()
	m.RecordReconcile(TriggerAPI, 3, nil)
	m.RecordReconcile(TriggerSchedule, 0, errors.New("boom"))
	m.RecordLedgerFailure("record_payment")
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/fees/ledger", http.StatusOK, 10*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.payments.WithLabelValues("Cash")))
	assert.InDelta(t, 350.5, testutil.ToFloat64(m.paymentAmount.WithLabelValues("Cash")), 0.001)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.adjustments))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.recordsCreated))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.reconcileRuns.WithLabelValues(TriggerSchedule, "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ledgerFailures.WithLabelValues("record_payment")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "fee_payments_total"))
}

func TestMetricsServiceCacheHitRatio(t *testing.T) {
	m := NewMetricsService()
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.cacheHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.cacheMisses))
	assert.InDelta(t, 2.0/3.0, testutil.ToFloat64(m.cacheHitRatio), 0.001)
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.RecordPayment("Cash", decimal.NewFromInt(1))
	m.RecordReconcile(TriggerAPI, 1, nil)
	m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
