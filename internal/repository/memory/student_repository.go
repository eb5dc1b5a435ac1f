// Package memory provides process-local repositories used when LEDGER_STORE=memory.
package memory

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/school-ledger-api/internal/models"
)

// StudentRepository keeps students in memory.
type StudentRepository struct {
	mu       sync.RWMutex
	students map[string]models.Student
	order    []string
}

// NewStudentRepository constructs an empty repository.
func NewStudentRepository() *StudentRepository {
	return &StudentRepository{students: make(map[string]models.Student)}
}

// List filters, sorts by registration order (newest first) and paginates.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := make([]models.Student, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		student := r.students[r.order[i]]
		if filter.GradeLevel != "" && student.GradeLevel != filter.GradeLevel {
			continue
		}
		if filter.Status != "" && student.Status != filter.Status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(student.FullName()), search) && !strings.Contains(strings.ToLower(student.RegNumber), search) {
			continue
		}
		matched = append(matched, student)
	}

	if filter.SortBy == "last_name" || filter.SortBy == "reg_number" {
		asc := strings.ToUpper(filter.SortOrder) == "ASC"
		sort.SliceStable(matched, func(i, j int) bool {
			a, b := matched[i].LastName, matched[j].LastName
			if filter.SortBy == "reg_number" {
				a, b = matched[i].RegNumber, matched[j].RegNumber
			}
			if asc {
				return a < b
			}
			return a > b
		})
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	start := (page - 1) * size
	if start > len(matched) {
		start = len(matched)
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], len(matched), nil
}

// ListEnrolled returns active students in registration order.
func (r *StudentRepository) ListEnrolled(ctx context.Context) ([]models.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	students := make([]models.Student, 0, len(r.order))
	for _, id := range r.order {
		if student := r.students[id]; student.Status == models.StudentStatusActive {
			students = append(students, student)
		}
	}
	return students, nil
}

// FindByID returns the student or sql.ErrNoRows.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	student, ok := r.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &student, nil
}

// ExistsByRegNumber reports whether another student uses regNumber.
func (r *StudentRepository) ExistsByRegNumber(ctx context.Context, regNumber, excludeID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, student := range r.students {
		if id != excludeID && student.RegNumber == regNumber {
			return true, nil
		}
	}
	return false, nil
}

// Create stores a new student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	if _, exists := r.students[student.ID]; !exists {
		r.order = append(r.order, student.ID)
	}
	r.students[student.ID] = *student
	return nil
}

// Update replaces a stored student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	student.UpdatedAt = time.Now().UTC()
	r.students[student.ID] = *student
	return nil
}

// Deactivate marks a student inactive.
func (r *StudentRepository) Deactivate(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	student, ok := r.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	student.Status = models.StudentStatusInactive
	student.UpdatedAt = time.Now().UTC()
	r.students[id] = student
	return nil
}
