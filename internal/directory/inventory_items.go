package directory

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/gestion-ambientes/ambientes-backend/pkg/db/models"
	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
)

// InventoryItems writes observed quantities back onto inventory items.
type InventoryItems struct{}

// NewInventoryItems returns the GORM-backed inventory reflector.
func NewInventoryItems() *InventoryItems {
	return &InventoryItems{}
}

// Reflect applies one observation to its item inside tx: quantity becomes
// found plus damaged, and status follows missing > damaged. A clean
// observation clears a damaged or missing status and keeps any other.
func (InventoryItems) Reflect(ctx context.Context, tx *gorm.DB, obs models.InventoryCheckItem) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	updates := map[string]any{
		"quantity":         obs.QuantityFound + obs.QuantityDamaged,
		"quantity_damaged": obs.QuantityDamaged,
		"quantity_missing": obs.QuantityMissing,
	}
	if status, defective := ReflectedStatus(obs); defective {
		updates["status"] = status
	} else {
		updates["status"] = gorm.Expr("CASE WHEN status IN (?, ?) THEN ? ELSE status END",
			enums.InventoryItemDamaged, enums.InventoryItemMissing, status)
	}
	res := tx.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ?", obs.ItemID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ReflectedStatus derives the item status implied by an observation and
// whether the observation reported a defect.
func ReflectedStatus(obs models.InventoryCheckItem) (enums.InventoryItemStatus, bool) {
	switch {
	case obs.QuantityMissing > 0 || obs.Status == enums.CheckItemMissing:
		return enums.InventoryItemMissing, true
	case obs.QuantityDamaged > 0 || obs.Status == enums.CheckItemDamaged:
		return enums.InventoryItemDamaged, true
	default:
		return enums.InventoryItemAvailable, false
	}
}
