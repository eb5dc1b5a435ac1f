package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/school-ledger-api/internal/models"
)

// ErrDuplicateGradeLevel is returned when a schedule update collides with another grade level.
var ErrDuplicateGradeLevel = errors.New("fee schedule grade level already exists")

const uniqueViolation = "23505"

const feeScheduleColumns = `id, grade_level, tuition, canteen, others, total, created_at, updated_at`

// FeeScheduleRepository persists fee schedules keyed by grade level.
type FeeScheduleRepository struct {
	db *sqlx.DB
}

// NewFeeScheduleRepository constructs the repository.
func NewFeeScheduleRepository(db *sqlx.DB) *FeeScheduleRepository {
	return &FeeScheduleRepository{db: db}
}

// List returns every schedule ordered by grade level.
func (r *FeeScheduleRepository) List(ctx context.Context) ([]models.FeeSchedule, error) {
	query := fmt.Sprintf("SELECT %s FROM fee_schedules ORDER BY grade_level ASC", feeScheduleColumns)
	var schedules []models.FeeSchedule
	if err := r.db.SelectContext(ctx, &schedules, query); err != nil {
		return nil, fmt.Errorf("list fee schedules: %w", err)
	}
	return schedules, nil
}

// FindByID fetches a schedule by identifier.
func (r *FeeScheduleRepository) FindByID(ctx context.Context, id string) (*models.FeeSchedule, error) {
	query := fmt.Sprintf("SELECT %s FROM fee_schedules WHERE id = $1", feeScheduleColumns)
	var schedule models.FeeSchedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// Upsert inserts the schedule or replaces the amounts of the schedule with the same grade level.
// The stored row, including its original id, is written back into schedule.
func (r *FeeScheduleRepository) Upsert(ctx context.Context, schedule *models.FeeSchedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	const query = `INSERT INTO fee_schedules (id, grade_level, tuition, canteen, others, total, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
ON CONFLICT (grade_level)
DO UPDATE SET tuition = EXCLUDED.tuition, canteen = EXCLUDED.canteen, others = EXCLUDED.others,
              total = EXCLUDED.total, updated_at = EXCLUDED.updated_at
RETURNING ` + feeScheduleColumns
	if err := r.db.GetContext(ctx, schedule, query, schedule.ID, schedule.GradeLevel, schedule.Tuition, schedule.Canteen, schedule.Others, schedule.Total, now); err != nil {
		return fmt.Errorf("upsert fee schedule: %w", err)
	}
	return nil
}

// Update rewrites the schedule identified by schedule.ID.
func (r *FeeScheduleRepository) Update(ctx context.Context, schedule *models.FeeSchedule) error {
	schedule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE fee_schedules SET grade_level = :grade_level, tuition = :tuition, canteen = :canteen, others = :others,
        total = :total, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, schedule)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateGradeLevel
		}
		return fmt.Errorf("update fee schedule: %w", err)
	}
	return expectAffected(res)
}

// Delete removes a schedule. Existing fee records are unaffected.
func (r *FeeScheduleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM fee_schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete fee schedule: %w", err)
	}
	return expectAffected(res)
}

// Count returns the number of stored schedules.
func (r *FeeScheduleRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM fee_schedules`); err != nil {
		return 0, fmt.Errorf("count fee schedules: %w", err)
	}
	return total, nil
}
