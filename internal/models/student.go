package models

import (
	"strings"
	"time"
)

// SchoolLevel partitions grade levels into the primary school and junior high tiers.
type SchoolLevel string

const (
	SchoolLevelPrimary SchoolLevel = "PRIMARY"
	SchoolLevelJHS     SchoolLevel = "JHS"
)

// StudentStatus captures enrolment state; only active students are billed.
type StudentStatus string

const (
	StudentStatusActive    StudentStatus = "active"
	StudentStatusGraduated StudentStatus = "graduated"
	StudentStatusInactive  StudentStatus = "inactive"
)

// Student represents a learner registered in the institution.
type Student struct {
	ID          string        `db:"id" json:"id"`
	RegNumber   string        `db:"reg_number" json:"reg_number"`
	FirstName   string        `db:"first_name" json:"first_name"`
	LastName    string        `db:"last_name" json:"last_name"`
	Gender      string        `db:"gender" json:"gender"`
	DOB         *time.Time    `db:"dob" json:"dob,omitempty"`
	Level       SchoolLevel   `db:"level" json:"level"`
	GradeLevel  string        `db:"grade_level" json:"grade_level"`
	ParentName  string        `db:"parent_name" json:"parent_name"`
	ParentPhone string        `db:"parent_phone" json:"parent_phone"`
	Status      StudentStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search     string
	GradeLevel string
	Status     StudentStatus
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
