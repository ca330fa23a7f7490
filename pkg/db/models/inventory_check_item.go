package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
)

// InventoryCheckItem is one immutable observation of an inventory item.
type InventoryCheckItem struct {
	ID               uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ItemID           uuid.UUID                `gorm:"column:item_id;type:uuid;not null"`
	EnvironmentID    uuid.UUID                `gorm:"column:environment_id;type:uuid;not null"`
	UserID           *uuid.UUID               `gorm:"column:user_id;type:uuid"`
	Status           enums.CheckItemCondition `gorm:"column:status;type:check_item_condition;not null"`
	QuantityExpected int                      `gorm:"column:quantity_expected;not null;default:1"`
	QuantityFound    int                      `gorm:"column:quantity_found;not null;default:0"`
	QuantityDamaged  int                      `gorm:"column:quantity_damaged;not null;default:0"`
	QuantityMissing  int                      `gorm:"column:quantity_missing;not null;default:0"`
	Notes            *string                  `gorm:"column:notes"`
	CreatedAt        time.Time                `gorm:"column:created_at;not null"`
}

func (InventoryCheckItem) TableName() string { return "inventory_check_items" }
