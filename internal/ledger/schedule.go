package ledger

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/school-ledger-api/internal/models"
)

// NormalizeSchedule trims the grade level, validates the components and derives the total.
// Any total supplied by the caller is overwritten.
func NormalizeSchedule(schedule *models.FeeSchedule) error {
	schedule.GradeLevel = strings.TrimSpace(schedule.GradeLevel)
	for _, part := range []decimal.Decimal{schedule.Tuition, schedule.Canteen, schedule.Others} {
		if part.IsNegative() || !ValidAmount(part) {
			return ErrInvalidAmount
		}
	}
	total := schedule.Tuition.Add(schedule.Canteen).Add(schedule.Others)
	if !ValidAmount(total) {
		return ErrInvalidAmount
	}
	schedule.Total = total
	return nil
}

// ScheduleIndex resolves schedules by exact grade level.
type ScheduleIndex map[string]models.FeeSchedule

// IndexSchedules builds an index. When two schedules share a grade level the first wins.
func IndexSchedules(schedules []models.FeeSchedule) ScheduleIndex {
	index := make(ScheduleIndex, len(schedules))
	for _, schedule := range schedules {
		if _, exists := index[schedule.GradeLevel]; exists {
			continue
		}
		index[schedule.GradeLevel] = schedule
	}
	return index
}

// Lookup returns the schedule for the grade level, if any.
func (i ScheduleIndex) Lookup(gradeLevel string) (models.FeeSchedule, bool) {
	schedule, ok := i[gradeLevel]
	return schedule, ok
}

// DefaultSchedules returns the stock schedule set used to seed an empty registry.
func DefaultSchedules() []models.FeeSchedule {
	primary := func(grade string) models.FeeSchedule {
		return models.FeeSchedule{
			GradeLevel: grade,
			Tuition:    decimal.NewFromInt(800),
			Canteen:    decimal.NewFromInt(400),
			Others:     decimal.NewFromInt(300),
		}
	}
	jhs := func(grade string) models.FeeSchedule {
		return models.FeeSchedule{
			GradeLevel: grade,
			Tuition:    decimal.NewFromInt(1200),
			Canteen:    decimal.NewFromInt(500),
			Others:     decimal.NewFromInt(300),
		}
	}

	schedules := []models.FeeSchedule{
		primary("Class 1"),
		primary("Class 2"),
		primary("Class 3"),
		primary("Class 4"),
		jhs("Basic 7 (JHS 1)"),
		jhs("Basic 8 (JHS 2)"),
	}
	for i := range schedules {
		_ = NormalizeSchedule(&schedules[i])
	}
	return schedules
}
