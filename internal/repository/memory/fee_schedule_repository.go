package memory

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/school-ledger-api/internal/models"
	"github.com/noah-isme/school-ledger-api/internal/repository"
)

// FeeScheduleRepository keeps fee schedules in memory, unique by grade level.
type FeeScheduleRepository struct {
	mu        sync.RWMutex
	schedules map[string]models.FeeSchedule
}

// NewFeeScheduleRepository constructs an empty repository.
func NewFeeScheduleRepository() *FeeScheduleRepository {
	return &FeeScheduleRepository{schedules: make(map[string]models.FeeSchedule)}
}

// List returns schedules ordered by grade level.
func (r *FeeScheduleRepository) List(ctx context.Context) ([]models.FeeSchedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schedules := make([]models.FeeSchedule, 0, len(r.schedules))
	for _, schedule := range r.schedules {
		schedules = append(schedules, schedule)
	}
	sort.Slice(schedules, func(i, j int) bool { return schedules[i].GradeLevel < schedules[j].GradeLevel })
	return schedules, nil
}

// FindByID returns the schedule or sql.ErrNoRows.
func (r *FeeScheduleRepository) FindByID(ctx context.Context, id string) (*models.FeeSchedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schedule, ok := r.schedules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &schedule, nil
}

// Upsert inserts or replaces the amounts for the schedule's grade level.
func (r *FeeScheduleRepository) Upsert(ctx context.Context, schedule *models.FeeSchedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	for id, existing := range r.schedules {
		if existing.GradeLevel != schedule.GradeLevel {
			continue
		}
		schedule.ID = id
		schedule.CreatedAt = existing.CreatedAt
		schedule.UpdatedAt = now
		r.schedules[id] = *schedule
		return nil
	}
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	schedule.CreatedAt = now
	schedule.UpdatedAt = now
	r.schedules[schedule.ID] = *schedule
	return nil
}

// Update rewrites the schedule identified by schedule.ID.
func (r *FeeScheduleRepository) Update(ctx context.Context, schedule *models.FeeSchedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.schedules[schedule.ID]
	if !ok {
		return sql.ErrNoRows
	}
	for id, other := range r.schedules {
		if id != schedule.ID && other.GradeLevel == schedule.GradeLevel {
			return repository.ErrDuplicateGradeLevel
		}
	}
	schedule.CreatedAt = existing.CreatedAt
	schedule.UpdatedAt = time.Now().UTC()
	r.schedules[schedule.ID] = *schedule
	return nil
}

// Delete removes a schedule.
func (r *FeeScheduleRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.schedules[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.schedules, id)
	return nil
}

// Count returns the number of schedules.
func (r *FeeScheduleRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.schedules), nil
}
