package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/school-ledger-api/internal/models"
	"github.com/noah-isme/school-ledger-api/pkg/jobs"
)

const (
	reconcileJobType = "fee_reconcile"
	reconcileJobKey  = "fee-reconcile"
)

type reconciler interface {
	Reconcile(ctx context.Context, trigger string) (*models.ReconcileResult, error)
}

// ReconcileSchedulerConfig tunes background reconciliation.
type ReconcileSchedulerConfig struct {
	Cron       string
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// ReconcileScheduler runs fee reconciliation in the background, on request and on a cron schedule.
// Requests made while a run is already queued are folded into it.
type ReconcileScheduler struct {
	ledger  reconciler
	queue   *jobs.Queue
	cron    *cron.Cron
	timeout time.Duration
	logger  *zap.Logger
}

// NewReconcileScheduler builds the scheduler. An empty cron spec disables periodic runs.
func NewReconcileScheduler(ledger reconciler, cfg ReconcileSchedulerConfig, logger *zap.Logger) (*ReconcileScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	s := &ReconcileScheduler{ledger: ledger, timeout: cfg.Timeout, logger: logger}
	s.queue = jobs.NewQueue("fee-reconcile", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})

	if cfg.Cron != "" {
		s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
		if _, err := s.cron.AddFunc(cfg.Cron, func() { s.Request(TriggerSchedule) }); err != nil {
			return nil, fmt.Errorf("parse reconcile cron %q: %w", cfg.Cron, err)
		}
	}
	return s, nil
}

// Start launches the workers and the cron schedule.
func (s *ReconcileScheduler) Start(ctx context.Context) {
	s.queue.Start(ctx)
	if s.cron != nil {
		s.cron.Start()
		s.logger.Info("reconcile schedule started", zap.Int("entries", len(s.cron.Entries())))
	}
}

// Stop halts the cron schedule and drains the workers.
func (s *ReconcileScheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.queue.Stop()
}

// Request queues a reconciliation. It reports false when a run is already pending.
func (s *ReconcileScheduler) Request(trigger string) bool {
	queued, err := s.queue.Enqueue(jobs.Job{
		ID:       uuid.NewString(),
		Type:     reconcileJobType,
		Key:      reconcileJobKey,
		Payload:  trigger,
		Enqueued: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("reconcile request dropped", zap.String("trigger", trigger), zap.Error(err))
		return false
	}
	return queued
}

func (s *ReconcileScheduler) handle(ctx context.Context, job jobs.Job) error {
	trigger, _ := job.Payload.(string)
	if trigger == "" {
		trigger = TriggerSchedule
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.ledger.Reconcile(ctx, trigger)
	if err != nil {
		return err
	}
	s.logger.Debug("background reconcile finished",
		zap.String("trigger", trigger), zap.Int("attempt", job.Attempt), zap.Int("created", len(result.Created)))
	return nil
}
