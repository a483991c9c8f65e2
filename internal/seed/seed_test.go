package seed

import (
	"context"
	"testing"

	"project-management-api/internal/auth"
	"project-management-api/internal/logger"
	"project-management-api/internal/models"
	"project-management-api/internal/testutil"

	"github.com/stretchr/testify/require"
)

func TestRun_Idempotent(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	ctx := context.Background()

	first, err := Run(ctx, db, logger.Discard())
	require.NoError(t, err)
	require.Equal(t, Result{Users: 4, Projects: 1, Members: 2, Tasks: 3}, *first)

	second, err := Run(ctx, db, logger.Discard())
	require.NoError(t, err)
	require.Equal(t, Result{}, *second)

	var n int64
	require.NoError(t, db.Model(&models.Task{}).Count(&n).Error)
	require.EqualValues(t, 3, n)
}

func TestRun_Credentials(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	_, err = Run(context.Background(), db, logger.Discard())
	require.NoError(t, err)

	var manager models.User
	require.NoError(t, db.Where("username = ?", "john_manager").Take(&manager).Error)
	require.Equal(t, models.RoleProjectManager, manager.Role)
	require.True(t, manager.IsActive)
	require.True(t, auth.VerifyPassword("manager123", manager.PasswordHash))
}
