package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
	"github.com/gestion-ambientes/ambientes-backend/pkg/types"
)

// InventoryCheck is the verification record for one environment, schedule and day.
type InventoryCheck struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EnvironmentID uuid.UUID  `gorm:"column:environment_id;type:uuid;not null"`
	ScheduleID    *uuid.UUID `gorm:"column:schedule_id;type:uuid"`
	StudentID     *uuid.UUID `gorm:"column:student_id;type:uuid"`
	InstructorID  *uuid.UUID `gorm:"column:instructor_id;type:uuid"`
	SupervisorID  *uuid.UUID `gorm:"column:supervisor_id;type:uuid"`

	CheckDate types.Date                 `gorm:"column:check_date;type:date;not null"`
	CheckTime time.Time                  `gorm:"column:check_time;not null"`
	Status    enums.InventoryCheckStatus `gorm:"column:status;type:inventory_check_status;not null"`

	TotalItems   int `gorm:"column:total_items;not null;default:0"`
	ItemsGood    int `gorm:"column:items_good;not null;default:0"`
	ItemsDamaged int `gorm:"column:items_damaged;not null;default:0"`
	ItemsMissing int `gorm:"column:items_missing;not null;default:0"`

	IsClean           *bool `gorm:"column:is_clean"`
	IsOrganized       *bool `gorm:"column:is_organized"`
	InventoryComplete *bool `gorm:"column:inventory_complete"`

	CleaningNotes      *string `gorm:"column:cleaning_notes"`
	Comments           *string `gorm:"column:comments"`
	SupervisorComments *string `gorm:"column:supervisor_comments"`

	StudentConfirmedAt    *time.Time `gorm:"column:student_confirmed_at"`
	InstructorConfirmedAt *time.Time `gorm:"column:instructor_confirmed_at"`
	SupervisorConfirmedAt *time.Time `gorm:"column:supervisor_confirmed_at"`

	Version   int       `gorm:"column:version;not null;default:1"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (InventoryCheck) TableName() string { return "inventory_checks" }
