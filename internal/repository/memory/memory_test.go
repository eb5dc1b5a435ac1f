package memory

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-ledger-api/internal/models"
	"github.com/noah-isme/school-ledger-api/internal/repository"
)

func TestStudentRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewStudentRepository()

	ama := &models.Student{RegNumber: "REG-1", FirstName: "Ama", LastName: "Mensah", GradeLevel: "Class 1", Status: models.StudentStatusActive}
	kofi := &models.Student{RegNumber: "REG-2", FirstName: "Kofi", LastName: "Owusu", GradeLevel: "Class 2", Status: models.StudentStatusActive}
	require.NoError(t, repo.Create(ctx, ama))
	require.NoError(t, repo.Create(ctx, kofi))
	assert.NotEmpty(t, ama.ID)

	enrolled, err := repo.ListEnrolled(ctx)
	require.NoError(t, err)
	require.Len(t, enrolled, 2)
	assert.Equal(t, ama.ID, enrolled[0].ID)

	found, total, err := repo.List(ctx, models.StudentFilter{Search: "owu"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, kofi.ID, found[0].ID)

	exists, err := repo.ExistsByRegNumber(ctx, "REG-1", kofi.ID)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.ExistsByRegNumber(ctx, "REG-1", ama.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.Deactivate(ctx, ama.ID))
	enrolled, err = repo.ListEnrolled(ctx)
	require.NoError(t, err)
	require.Len(t, enrolled, 1)
	assert.Equal(t, kofi.ID, enrolled[0].ID)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestFeeScheduleRepositoryUpsertByGradeLevel(t *testing.T) {
	ctx := context.Background()
	repo := NewFeeScheduleRepository()

	first := &models.FeeSchedule{GradeLevel: "Class 1", Total: decimal.NewFromInt(1500)}
	require.NoError(t, repo.Upsert(ctx, first))
	second := &models.FeeSchedule{GradeLevel: "Class 1", Total: decimal.NewFromInt(1600)}
	require.NoError(t, repo.Upsert(ctx, second))

	assert.Equal(t, first.ID, second.ID)
	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	other := &models.FeeSchedule{GradeLevel: "Class 2"}
	require.NoError(t, repo.Upsert(ctx, other))
	other.GradeLevel = "Class 1"
	assert.ErrorIs(t, repo.Update(ctx, other), repository.ErrDuplicateGradeLevel)

	require.NoError(t, repo.Delete(ctx, first.ID))
	assert.ErrorIs(t, repo.Delete(ctx, first.ID), sql.ErrNoRows)
}

func TestUserRepositoryLookupsAndAudit(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	user := &models.User{Email: " Bursar@School.test ", FullName: "Bursar", Role: models.RoleAdmin, Active: true}
	require.NoError(t, repo.Create(ctx, user))

	found, err := repo.FindByEmail(ctx, "bursar@school.test")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.ErrorIs(t, repo.Create(ctx, &models.User{Email: "BURSAR@school.test"}), repository.ErrUserExists)

	_, err = repo.FindByEmail(ctx, "someone@school.test")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	ts := time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID, ts))
	found, err = repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, found.LastLogin)
	assert.True(t, found.LastLogin.Equal(ts))
	assert.ErrorIs(t, repo.UpdateLastLogin(ctx, "missing", ts), sql.ErrNoRows)

	require.NoError(t, repo.CreateAuditLog(ctx, &models.AuditLog{Action: models.AuditActionLogin, Resource: "auth"}))
	logs := repo.AuditLogs()
	require.Len(t, logs, 1)
	assert.NotEmpty(t, logs[0].ID)
	assert.False(t, logs[0].CreatedAt.IsZero())
}
