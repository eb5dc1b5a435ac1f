package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-ledger-api/internal/models"
)

type countingReconciler struct {
	calls    int32
	failures int32
}

func (c *countingReconciler) Reconcile(ctx context.Context, trigger string) (*models.ReconcileResult, error) {
	n := atomic.AddInt32(&c.calls, 1)
	if n <= atomic.LoadInt32(&c.failures) {
		return nil, errors.New("store unavailable")
	}
	return &models.ReconcileResult{}, nil
}

func TestReconcileSchedulerRunsRequests(t *testing.T) {
	rec := &countingReconciler{}
	scheduler, err := NewReconcileScheduler(rec, ReconcileSchedulerConfig{Workers: 1, RetryDelay: 10 * time.Millisecond}, nil)
	require.NoError(t, err)

	assert.False(t, scheduler.Request(TriggerStudent), "request before start is dropped")

	scheduler.Start(context.Background())
	defer scheduler.Stop()

	assert.True(t, scheduler.Request(TriggerStudent))
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&rec.calls) >= 1 }, time.Second, 5*time.Millisecond)
}

func TestReconcileSchedulerRetriesFailures(t *testing.T) {
	rec := &countingReconciler{failures: 2}
	scheduler, err := NewReconcileScheduler(rec, ReconcileSchedulerConfig{MaxRetries: 3, RetryDelay: 5 * time.Millisecond}, nil)
	require.NoError(t, err)
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	require.True(t, scheduler.Request(TriggerSchedule))
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&rec.calls) == 3 }, time.Second, 5*time.Millisecond)
}

func TestReconcileSchedulerRejectsBadCron(t *testing.T) {
	_, err := NewReconcileScheduler(&countingReconciler{}, ReconcileSchedulerConfig{Cron: "not a cron"}, nil)
	assert.Error(t, err)

	scheduler, err := NewReconcileScheduler(&countingReconciler{}, ReconcileSchedulerConfig{Cron: "@every 1h"}, nil)
	require.NoError(t, err)
	scheduler.Start(context.Background())
	scheduler.Stop()
}
