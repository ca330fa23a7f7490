package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestion-ambientes/ambientes-backend/pkg/db/models"
	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
)

// SeedUser inserts an active user with role.
func SeedUser(t *testing.T, conn *gorm.DB, role enums.UserRole) models.User {
	t.Helper()
	id := uuid.New()
	user := models.User{
		ID:        id,
		Email:     id.String() + "@ambientes.test",
		FirstName: string(role),
		LastName:  "Test",
		Role:      role,
		IsActive:  true,
	}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// SeedEnvironment inserts an active environment.
func SeedEnvironment(t *testing.T, conn *gorm.DB) models.Environment {
	t.Helper()
	env := models.Environment{ID: uuid.New(), Name: "Ambiente 101", IsActive: true}
	if err := conn.Create(&env).Error; err != nil {
		t.Fatalf("seed environment: %v", err)
	}
	return env
}

// SeedSchedule inserts an active schedule for environmentID on an ISO weekday.
func SeedSchedule(t *testing.T, conn *gorm.DB, environmentID uuid.UUID, instructorID *uuid.UUID, isoWeekday int, start, end string) models.Schedule {
	t.Helper()
	schedule := models.Schedule{
		ID:            uuid.New(),
		EnvironmentID: environmentID,
		InstructorID:  instructorID,
		Program:       "ADSO",
		Ficha:         "2558104",
		StartTime:     start,
		EndTime:       end,
		DayOfWeek:     isoWeekday,
		IsActive:      true,
	}
	if err := conn.Create(&schedule).Error; err != nil {
		t.Fatalf("seed schedule: %v", err)
	}
	return schedule
}

// SeedInventoryItem inserts an available item in environmentID.
func SeedInventoryItem(t *testing.T, conn *gorm.DB, environmentID uuid.UUID, quantity int) models.InventoryItem {
	t.Helper()
	id := uuid.New()
	item := models.InventoryItem{
		ID:            id,
		EnvironmentID: &environmentID,
		Name:          "Computador",
		InternalCode:  "INV-" + id.String()[:8],
		Status:        enums.InventoryItemAvailable,
		Quantity:      quantity,
	}
	if err := conn.Create(&item).Error; err != nil {
		t.Fatalf("seed inventory item: %v", err)
	}
	return item
}
