package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-ledger-api/internal/models"
	appErrors "github.com/noah-isme/school-ledger-api/pkg/errors"
)

const (
	summaryCacheKey = "summary"
	// every ledger read model lives under the repository prefix
	ledgerCachePattern = "*"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService holds derived ledger views between mutations. A nil or disabled
// service misses on every lookup and ignores writes.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled reports whether lookups reach the backing store.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Summary returns the cached ledger summary, if any. Backend errors count as a miss.
func (s *CacheService) Summary(ctx context.Context) (*models.LedgerSummary, bool) {
	var summary models.LedgerSummary
	if !s.lookup(ctx, summaryCacheKey, &summary) {
		return nil, false
	}
	return &summary, true
}

// StoreSummary caches a freshly computed summary.
func (s *CacheService) StoreSummary(ctx context.Context, summary models.LedgerSummary, ttl time.Duration) {
	if !s.Enabled() {
		return
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, summaryCacheKey, summary, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("ledger cache write failed", zap.String("key", summaryCacheKey), zap.Error(err))
	}
}

// InvalidateLedger drops every cached ledger view. Called after any committed mutation.
func (s *CacheService) InvalidateLedger(ctx context.Context) {
	if !s.Enabled() {
		return
	}
	if err := s.repo.DeleteByPattern(ctx, ledgerCachePattern); err != nil {
		s.logger.Warn("ledger cache invalidation failed", zap.Error(err))
	}
}

func (s *CacheService) lookup(ctx context.Context, key string, dest interface{}) bool {
	if !s.Enabled() {
		return false
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("ledger cache read failed", zap.String("key", key), zap.Error(err))
	}
	return err == nil
}
