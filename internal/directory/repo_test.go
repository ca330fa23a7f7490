package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gestion-ambientes/ambientes-backend/internal/dbtest"
	"github.com/gestion-ambientes/ambientes-backend/pkg/db/models"
	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
)

func TestRepositoryLookups(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	env := dbtest.SeedEnvironment(t, conn)
	student := dbtest.SeedUser(t, conn, enums.UserRoleStudent)
	schedule := dbtest.SeedSchedule(t, conn, env.ID, nil, 1, "07:00:00", "12:00:00")

	gotEnv, err := repo.FindEnvironment(ctx, env.ID)
	require.NoError(t, err)
	assert.Equal(t, env.Name, gotEnv.Name)

	gotUser, err := repo.FindUser(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleStudent, gotUser.Role)

	gotSchedule, err := repo.FindSchedule(ctx, schedule.ID)
	require.NoError(t, err)
	assert.Equal(t, env.ID, gotSchedule.EnvironmentID)

	_, err = repo.FindEnvironment(ctx, uuid.New())
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestListActiveSchedulesOrdersByStart(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	env := dbtest.SeedEnvironment(t, conn)

	late := dbtest.SeedSchedule(t, conn, env.ID, nil, 3, "13:00:00", "18:00:00")
	early := dbtest.SeedSchedule(t, conn, env.ID, nil, 3, "07:00:00", "12:00:00")
	dbtest.SeedSchedule(t, conn, env.ID, nil, 4, "07:00:00", "12:00:00")
	inactive := dbtest.SeedSchedule(t, conn, env.ID, nil, 3, "18:00:00", "22:00:00")
	require.NoError(t, conn.Model(&models.Schedule{}).Where("id = ?", inactive.ID).Update("is_active", false).Error)

	rows, err := repo.ListActiveSchedules(context.Background(), env.ID, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, early.ID, rows[0].ID)
	assert.Equal(t, late.ID, rows[1].ID)
}

func TestActiveUserIDsByRole(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)

	sup := dbtest.SeedUser(t, conn, enums.UserRoleSupervisor)
	admin := dbtest.SeedUser(t, conn, enums.UserRoleAdmin)
	dbtest.SeedUser(t, conn, enums.UserRoleStudent)
	retired := dbtest.SeedUser(t, conn, enums.UserRoleSupervisor)
	require.NoError(t, conn.Model(&models.User{}).Where("id = ?", retired.ID).Update("is_active", false).Error)

	ids, err := repo.ActiveUserIDsByRole(context.Background(), enums.UserRoleSupervisor, enums.UserRoleAdmin)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{sup.ID, admin.ID}, ids)

	none, err := repo.ActiveUserIDsByRole(context.Background())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFindInventoryItemRequiresEnvironment(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	env := dbtest.SeedEnvironment(t, conn)
	other := dbtest.SeedEnvironment(t, conn)
	item := dbtest.SeedInventoryItem(t, conn, env.ID, 3)

	found, err := repo.FindInventoryItem(context.Background(), item.ID, env.ID)
	require.NoError(t, err)
	assert.Equal(t, item.InternalCode, found.InternalCode)

	_, err = repo.FindInventoryItem(context.Background(), item.ID, other.ID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}
