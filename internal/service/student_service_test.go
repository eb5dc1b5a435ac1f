package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-ledger-api/internal/models"
	"github.com/noah-isme/school-ledger-api/internal/repository/memory"
	appErrors "github.com/noah-isme/school-ledger-api/pkg/errors"
)

type mockReconcileRequester struct {
	triggers []string
}

func (m *mockReconcileRequester) Request(trigger string) bool {
	m.triggers = append(m.triggers, trigger)
	return true
}

func studentRequest(reg string) StudentRequest {
	return StudentRequest{
		RegNumber:  reg,
		FirstName:  "Ama",
		LastName:   "Mensah",
		Gender:     "F",
		Level:      "PRIMARY",
		GradeLevel: "Class 1",
	}
}

func TestStudentServiceCreateRequestsReconcile(t *testing.T) {
	ctx := context.Background()
	requester := &mockReconcileRequester{}
	svc := NewStudentService(memory.NewStudentRepository(), requester, nil, zap.NewNop())

	student, err := svc.Create(ctx, studentRequest("REG-001"))
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.Equal(t, models.StudentStatusActive, student.Status)
	assert.Equal(t, []string{TriggerStudent}, requester.triggers)

	_, err = svc.Create(ctx, studentRequest("REG-001"))
	assertCode(t, err, appErrors.ErrConflict.Code)

	req := studentRequest("REG-002")
	req.Status = "graduated"
	_, err = svc.Create(ctx, req)
	require.NoError(t, err)
	assert.Len(t, requester.triggers, 1)
}

func TestStudentServiceValidation(t *testing.T) {
	svc := NewStudentService(memory.NewStudentRepository(), nil, nil, nil)

	req := studentRequest("REG-001")
	req.Level = "SHS"
	_, err := svc.Create(context.Background(), req)
	assertCode(t, err, appErrors.ErrValidation.Code)

	req = studentRequest("")
	_, err = svc.Create(context.Background(), req)
	assertCode(t, err, appErrors.ErrValidation.Code)
}

func TestStudentServiceUpdateAndDeactivate(t *testing.T) {
	ctx := context.Background()
	requester := &mockReconcileRequester{}
	repo := memory.NewStudentRepository()
	svc := NewStudentService(repo, requester, nil, nil)

	first, err := svc.Create(ctx, studentRequest("REG-001"))
	require.NoError(t, err)
	second, err := svc.Create(ctx, studentRequest("REG-002"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, second.ID, studentRequest("REG-001"))
	assertCode(t, err, appErrors.ErrConflict.Code)

	req := studentRequest("REG-002")
	req.GradeLevel = "Class 2"
	updated, err := svc.Update(ctx, second.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Class 2", updated.GradeLevel)
	assert.Len(t, requester.triggers, 3)

	require.NoError(t, svc.Deactivate(ctx, first.ID))
	enrolled, err := repo.ListEnrolled(ctx)
	require.NoError(t, err)
	require.Len(t, enrolled, 1)
	assert.Equal(t, second.ID, enrolled[0].ID)

	err = svc.Deactivate(ctx, "missing")
	assertCode(t, err, appErrors.ErrNotFound.Code)

	_, err = svc.Update(ctx, "missing", studentRequest("REG-009"))
	assertCode(t, err, appErrors.ErrNotFound.Code)
}

func TestStudentServiceListPagination(t *testing.T) {
	ctx := context.Background()
	svc := NewStudentService(memory.NewStudentRepository(), nil, nil, nil)
	for _, reg := range []string{"REG-001", "REG-002", "REG-003"} {
		_, err := svc.Create(ctx, studentRequest(reg))
		require.NoError(t, err)
	}

	students, page, err := svc.List(ctx, models.StudentFilter{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, students, 2)
	assert.Equal(t, 3, page.TotalCount)
	assert.Equal(t, 2, page.PageSize)

	students, _, err = svc.List(ctx, models.StudentFilter{Search: "reg-003"})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "REG-003", students[0].RegNumber)
}
