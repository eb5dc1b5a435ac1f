package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-ledger-api/internal/models"
	appErrors "github.com/noah-isme/school-ledger-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByRegNumber(ctx context.Context, regNumber, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Deactivate(ctx context.Context, id string) error
}

type reconcileRequester interface {
	Request(trigger string) bool
}

// StudentRequest holds payload for creating and updating students.
type StudentRequest struct {
	RegNumber   string     `json:"reg_number" validate:"required,max=32"`
	FirstName   string     `json:"first_name" validate:"required,max=80"`
	LastName    string     `json:"last_name" validate:"required,max=80"`
	Gender      string     `json:"gender" validate:"omitempty,oneof=M F"`
	DOB         *time.Time `json:"dob"`
	Level       string     `json:"level" validate:"required,oneof=PRIMARY JHS"`
	GradeLevel  string     `json:"grade_level" validate:"required,max=64"`
	ParentName  string     `json:"parent_name" validate:"max=120"`
	ParentPhone string     `json:"parent_phone" validate:"max=32"`
	Status      string     `json:"status" validate:"omitempty,oneof=active graduated inactive"`
}

// StudentService handles student use-cases. Saving a student asks for a background fee
// reconciliation so new students are billed without waiting for the next ledger read.
type StudentService struct {
	repo      studentRepository
	reconcile reconcileRequester
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service. reconcile may be nil.
func NewStudentService(repo studentRepository, reconcile reconcileRequester, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, reconcile: reconcile, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if err := s.ensureUniqueRegNumber(ctx, req.RegNumber, ""); err != nil {
		return nil, err
	}

	student := &models.Student{Status: models.StudentStatusActive}
	applyStudentRequest(student, req)
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.requestReconcile(student)
	return student, nil
}

// Update modifies an existing student record. Grade changes do not rebill an existing fee record.
func (s *StudentService) Update(ctx context.Context, id string, req StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueRegNumber(ctx, req.RegNumber, id); err != nil {
		return nil, err
	}

	applyStudentRequest(student, req)
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	s.requestReconcile(student)
	return student, nil
}

// Deactivate marks the student inactive. Their fee record and transactions are retained.
func (s *StudentService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate student")
	}
	return nil
}

func (s *StudentService) ensureUniqueRegNumber(ctx context.Context, regNumber, excludeID string) error {
	exists, err := s.repo.ExistsByRegNumber(ctx, regNumber, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate registration number")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "registration number already used")
	}
	return nil
}

func (s *StudentService) requestReconcile(student *models.Student) {
	if s.reconcile == nil || student.Status != models.StudentStatusActive {
		return
	}
	if !s.reconcile.Request(TriggerStudent) {
		s.logger.Debug("fee reconcile already queued", zap.String("student_id", student.ID))
	}
}

func applyStudentRequest(student *models.Student, req StudentRequest) {
	student.RegNumber = req.RegNumber
	student.FirstName = req.FirstName
	student.LastName = req.LastName
	student.Gender = req.Gender
	student.DOB = req.DOB
	student.Level = models.SchoolLevel(req.Level)
	student.GradeLevel = req.GradeLevel
	student.ParentName = req.ParentName
	student.ParentPhone = req.ParentPhone
	if req.Status != "" {
		student.Status = models.StudentStatus(req.Status)
	}
}
