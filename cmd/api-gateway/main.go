package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/school-ledger-api/internal/handler"
	"github.com/noah-isme/school-ledger-api/internal/ledger"
	"github.com/noah-isme/school-ledger-api/internal/models"
	"github.com/noah-isme/school-ledger-api/internal/repository"
	"github.com/noah-isme/school-ledger-api/internal/repository/memory"
	"github.com/noah-isme/school-ledger-api/internal/service"
	"github.com/noah-isme/school-ledger-api/migrations"
	"github.com/noah-isme/school-ledger-api/pkg/cache"
	"github.com/noah-isme/school-ledger-api/pkg/config"
	"github.com/noah-isme/school-ledger-api/pkg/database"
	"github.com/noah-isme/school-ledger-api/pkg/logger"
)

// @title School Ledger API
// @version 1.0.0
// @description Student fee ledger: schedules, reconciliation, payments and balance reports.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := buildDependencies(ctx, cfg, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to initialise dependencies", "error", err)
	}
	defer cleanup()

	metrics := service.NewMetricsService()
	var cacheSvc *service.CacheService
	if deps.redis != nil {
		cacheRepo := repository.NewCacheRepository(deps.redis, "ledger:", logr)
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)
	}

	ledgerSvc := service.NewLedgerService(deps.store, deps.schedules, deps.students, cacheSvc, metrics, nil, logr, service.LedgerConfig{
		Policy:   ledger.FallbackPolicy{Primary: cfg.Fees.FallbackPrimary, Default: cfg.Fees.FallbackDefault},
		Currency: cfg.Fees.Currency,
		CacheTTL: cfg.Cache.TTL,
	})
	scheduler, err := service.NewReconcileScheduler(ledgerSvc, service.ReconcileSchedulerConfig{
		Cron:       cfg.Reconcile.Cron,
		Workers:    cfg.Reconcile.Workers,
		MaxRetries: cfg.Reconcile.MaxRetries,
		RetryDelay: cfg.Reconcile.RetryDelay,
		Timeout:    cfg.Reconcile.Timeout,
	}, logr)
	if err != nil {
		logr.Sugar().Fatalw("invalid reconcile schedule", "error", err)
	}

	scheduleSvc := service.NewFeeScheduleService(deps.schedules, deps.users, nil, logr)
	studentSvc := service.NewStudentService(deps.students, scheduler, nil, logr)
	exportSvc := service.NewExportService(ledgerSvc, service.ExportConfig{SchoolName: cfg.SchoolName, Currency: cfg.Fees.Currency}, logr)
	authSvc := service.NewAuthService(deps.users, nil, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	if cfg.Fees.SeedDefaultSchedules {
		seeded, err := scheduleSvc.SeedDefaults(ctx)
		if err != nil {
			logr.Warn("seeding default fee schedules failed", zap.Error(err))
		} else if seeded > 0 {
			logr.Info("seeded default fee schedules", zap.Int("count", seeded))
		}
	}

	scheduler.Start(ctx)
	defer scheduler.Stop()
	scheduler.Request(service.TriggerStartup)

	r := newRouter(cfg, logr, routerDeps{
		metrics:   metrics,
		audit:     deps.users,
		auth:      authSvc,
		ledger:    ledgerSvc,
		schedules: scheduleSvc,
		students:  studentSvc,
		exports:   exportSvc,
		checks:    deps.checks,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.Fees.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

type userStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type studentStore interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	ListEnrolled(ctx context.Context) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByRegNumber(ctx context.Context, regNumber, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Deactivate(ctx context.Context, id string) error
}

type scheduleStore interface {
	List(ctx context.Context) ([]models.FeeSchedule, error)
	FindByID(ctx context.Context, id string) (*models.FeeSchedule, error)
	Upsert(ctx context.Context, schedule *models.FeeSchedule) error
	Update(ctx context.Context, schedule *models.FeeSchedule) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

type dependencies struct {
	store     ledger.Store
	students  studentStore
	schedules scheduleStore
	users     userStore
	redis     *redis.Client
	checks    map[string]handler.ReadinessCheck
}

// buildDependencies selects the storage backend. Redis is optional: when it is
// unreachable the ledger runs uncached.
func buildDependencies(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*dependencies, func(), error) {
	deps := &dependencies{checks: map[string]handler.ReadinessCheck{}}
	closers := []func(){}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Fees.Store {
	case config.StoreMemory:
		users := memory.NewUserRepository()
		if err := bootstrapAdmin(ctx, users, cfg.Bootstrap, logr); err != nil {
			return nil, cleanup, err
		}
		deps.store = ledger.NewMemoryStore()
		deps.students = memory.NewStudentRepository()
		deps.schedules = memory.NewFeeScheduleRepository()
		deps.users = users
		logr.Warn("using in-memory ledger store; data is lost on restart")
	default:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, cleanup, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, func() { _ = db.Close() })
		if cfg.Database.AutoMigrate {
			applied, err := database.Migrate(ctx, db, migrations.Files)
			if err != nil {
				return nil, cleanup, fmt.Errorf("migrate: %w", err)
			}
			logr.Info("schema migrations applied", zap.Strings("files", applied))
		}
		deps.store = repository.NewLedgerRepository(db)
		deps.students = repository.NewStudentRepository(db)
		deps.schedules = repository.NewFeeScheduleRepository(db)
		users := repository.NewUserRepository(db)
		if err := bootstrapAdmin(ctx, users, cfg.Bootstrap, logr); err != nil {
			return nil, cleanup, err
		}
		deps.users = users
		deps.checks["database"] = pingDB(db)
	}

	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, ledger cache disabled", zap.Error(err))
		} else {
			closers = append(closers, func() { _ = client.Close() })
			deps.redis = client
			deps.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		}
	}

	return deps, cleanup, nil
}

func pingDB(db *sqlx.DB) handler.ReadinessCheck {
	return func(ctx context.Context) error { return db.PingContext(ctx) }
}

type userCreator interface {
	Create(ctx context.Context, user *models.User) error
}

// bootstrapAdmin creates the configured administrator once. An existing account is kept as is.
func bootstrapAdmin(ctx context.Context, users userCreator, cfg config.BootstrapConfig, logr *zap.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash bootstrap password: %w", err)
	}
	err = users.Create(ctx, &models.User{
		Email:        cfg.AdminEmail,
		PasswordHash: string(hash),
		FullName:     cfg.AdminName,
		Role:         models.RoleAdmin,
		Active:       true,
	})
	switch {
	case errors.Is(err, repository.ErrUserExists):
		return nil
	case err != nil:
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	logr.Info("bootstrap administrator created", zap.String("email", cfg.AdminEmail))
	return nil
}
