package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/workflow"
)

func TestDirectoryService(t *testing.T) {
	ctx := context.Background()
	svc := NewDirectoryService(newDirectory(), nopLogger{})

	user, err := svc.GetUser(ctx, hassanDeanEng)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleDean, user.Role)

	_, err = svc.GetUser(ctx, "999")
	assert.ErrorIs(t, err, ErrUserNotFound)

	dvcs, err := svc.ListUsers(ctx, entity.RoleDVC)
	require.NoError(t, err)
	assert.Len(t, dvcs, 2)

	everyone, err := svc.ListUsers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, everyone, 8)

	_, err = svc.ListUsers(ctx, "registrar")
	assert.ErrorIs(t, err, workflow.ErrValidation)

	school, err := svc.DepartmentSchool(ctx, "Physics")
	require.NoError(t, err)
	assert.Equal(t, "Engineering", school)

	_, err = svc.DepartmentSchool(ctx, "Astrology")
	assert.ErrorIs(t, err, workflow.ErrValidation)

	depts, err := svc.ListDepartments(ctx)
	require.NoError(t, err)
	assert.Len(t, depts, 3)

	schools, err := svc.ListSchools(ctx)
	require.NoError(t, err)
	assert.Len(t, schools, 2)
}
