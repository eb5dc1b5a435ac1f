package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-ledger-api/internal/dto"
	"github.com/noah-isme/school-ledger-api/internal/ledger"
	"github.com/noah-isme/school-ledger-api/internal/models"
	"github.com/noah-isme/school-ledger-api/internal/repository"
	appErrors "github.com/noah-isme/school-ledger-api/pkg/errors"
)

type feeScheduleRepository interface {
	List(ctx context.Context) ([]models.FeeSchedule, error)
	FindByID(ctx context.Context, id string) (*models.FeeSchedule, error)
	Upsert(ctx context.Context, schedule *models.FeeSchedule) error
	Update(ctx context.Context, schedule *models.FeeSchedule) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// FeeScheduleService manages the per-grade billing templates. Schedule changes only affect
// fee records created afterwards.
type FeeScheduleService struct {
	repo      feeScheduleRepository
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFeeScheduleService constructs the service. audit may be nil.
func NewFeeScheduleService(repo feeScheduleRepository, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *FeeScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeScheduleService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns every schedule.
func (s *FeeScheduleService) List(ctx context.Context) ([]models.FeeSchedule, error) {
	schedules, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to list fee schedules")
	}
	return schedules, nil
}

// Get returns a schedule by id.
func (s *FeeScheduleService) Get(ctx context.Context, id string) (*models.FeeSchedule, error) {
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrScheduleNotFound, "fee schedule not found")
		}
		return nil, appErrors.Persistence(err, "failed to load fee schedule")
	}
	return schedule, nil
}

// Upsert creates the schedule for a grade level or replaces its amounts.
func (s *FeeScheduleService) Upsert(ctx context.Context, req dto.UpsertScheduleRequest, actorID string) (*models.FeeSchedule, error) {
	schedule, err := s.build(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, schedule); err != nil {
		return nil, appErrors.Persistence(err, "failed to save fee schedule")
	}
	s.logger.Info("fee schedule saved", zap.String("grade_level", schedule.GradeLevel), zap.String("total", schedule.Total.StringFixed(2)))
	s.record(ctx, models.AuditActionScheduleUpsert, schedule.ID, actorID, schedule)
	return schedule, nil
}

// Update rewrites an existing schedule, including its grade level.
func (s *FeeScheduleService) Update(ctx context.Context, id string, req dto.UpsertScheduleRequest, actorID string) (*models.FeeSchedule, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	schedule, err := s.build(req)
	if err != nil {
		return nil, err
	}
	schedule.ID = existing.ID
	schedule.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, schedule); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateGradeLevel):
			return nil, appErrors.Clone(appErrors.ErrConflict, "a fee schedule already exists for this grade level")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrScheduleNotFound, "fee schedule not found")
		}
		return nil, appErrors.Persistence(err, "failed to update fee schedule")
	}
	s.record(ctx, models.AuditActionScheduleUpsert, schedule.ID, actorID, schedule)
	return schedule, nil
}

// Delete removes a schedule. Students in that grade fall back to the default amounts on their next reconciliation.
func (s *FeeScheduleService) Delete(ctx context.Context, id string, actorID string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrScheduleNotFound, "fee schedule not found")
		}
		return appErrors.Persistence(err, "failed to delete fee schedule")
	}
	s.record(ctx, models.AuditActionScheduleDelete, id, actorID, nil)
	return nil
}

// SeedDefaults installs the stock schedules when the registry is empty.
func (s *FeeScheduleService) SeedDefaults(ctx context.Context) (int, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return 0, appErrors.Persistence(err, "failed to count fee schedules")
	}
	if count > 0 {
		return 0, nil
	}
	seeded := 0
	for _, schedule := range ledger.DefaultSchedules() {
		schedule := schedule
		if err := s.repo.Upsert(ctx, &schedule); err != nil {
			return seeded, appErrors.Persistence(err, "failed to seed fee schedules")
		}
		seeded++
	}
	s.logger.Info("default fee schedules seeded", zap.Int("count", seeded))
	return seeded, nil
}

func (s *FeeScheduleService) build(req dto.UpsertScheduleRequest) (*models.FeeSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee schedule payload")
	}
	schedule := &models.FeeSchedule{
		GradeLevel: req.GradeLevel,
		Tuition:    req.Tuition,
		Canteen:    req.Canteen,
		Others:     req.Others,
	}
	if err := ledger.NormalizeSchedule(schedule); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidAmount, "fee components must be non-negative with at most two decimal places")
	}
	if schedule.GradeLevel == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grade level is required")
	}
	return schedule, nil
}

func (s *FeeScheduleService) record(ctx context.Context, action, resourceID, actorID string, value interface{}) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{Action: action, Resource: "fee_schedule", ResourceID: &resourceID}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if value != nil {
		entry.NewValues, _ = json.Marshal(value)
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record fee schedule audit log", zap.Error(err))
	}
}
