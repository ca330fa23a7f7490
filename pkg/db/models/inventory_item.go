package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
)

// InventoryItem is a physical asset assigned to an environment.
type InventoryItem struct {
	ID              uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EnvironmentID   *uuid.UUID                `gorm:"column:environment_id;type:uuid"`
	Name            string                    `gorm:"column:name;not null"`
	InternalCode    string                    `gorm:"column:internal_code;not null;uniqueIndex"`
	Status          enums.InventoryItemStatus `gorm:"column:status;type:inventory_item_status;not null;default:available"`
	Quantity        int                       `gorm:"column:quantity;not null;default:1"`
	QuantityDamaged int                       `gorm:"column:quantity_damaged;not null;default:0"`
	QuantityMissing int                       `gorm:"column:quantity_missing;not null;default:0"`
	UpdatedAt       time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}
