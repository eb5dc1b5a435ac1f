package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/school-ledger-api/internal/models"
)

var recordNamespace = uuid.MustParse("6b3f0c2e-7d1a-4c5e-9a8b-2f4e6d0c1b3a")

// RecordID returns the stable fee record id for a student, so concurrent
// reconcile runs agree on the identity of a newly created record.
func RecordID(studentID string) string {
	return uuid.NewSHA1(recordNamespace, []byte(studentID)).String()
}

// Enrolled reports whether the student should carry a fee record.
func Enrolled(student models.Student) bool {
	return student.Status == models.StudentStatusActive
}

// Reconcile ensures every enrolled student has a fee record. Existing records are returned
// untouched, deduplicated by student with the first occurrence kept. New records are billed
// from the student's grade schedule, falling back to the policy amount for their level.
// The second return value holds only the newly created records.
func Reconcile(students []models.Student, existing []models.FeeRecord, schedules ScheduleIndex, policy FallbackPolicy, now time.Time) ([]models.FeeRecord, []models.FeeRecord) {
	merged := make([]models.FeeRecord, 0, len(existing)+len(students))
	seen := make(map[string]struct{}, len(existing)+len(students))

	for _, record := range existing {
		if _, dup := seen[record.StudentID]; dup {
			continue
		}
		seen[record.StudentID] = struct{}{}
		merged = append(merged, record)
	}

	var created []models.FeeRecord
	for _, student := range students {
		if student.ID == "" || !Enrolled(student) {
			continue
		}
		if _, ok := seen[student.ID]; ok {
			continue
		}
		seen[student.ID] = struct{}{}

		record := NewRecord(student, schedules, policy, now)
		merged = append(merged, record)
		created = append(created, record)
	}

	return merged, created
}

// NewRecord builds the opening fee record for a student.
func NewRecord(student models.Student, schedules ScheduleIndex, policy FallbackPolicy, now time.Time) models.FeeRecord {
	due := policy.AmountFor(student.Level)
	if schedule, ok := schedules.Lookup(student.GradeLevel); ok {
		due = schedule.Total
	}

	record := models.FeeRecord{
		ID:         RecordID(student.ID),
		StudentID:  student.ID,
		AmountDue:  due,
		AmountPaid: decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	Recompute(&record)
	return record
}
