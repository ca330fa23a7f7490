package enums

import "fmt"

// InventoryItemStatus maps to inventory_items.status.
type InventoryItemStatus string

const (
	InventoryItemAvailable   InventoryItemStatus = "available"
	InventoryItemInUse       InventoryItemStatus = "in_use"
	InventoryItemMaintenance InventoryItemStatus = "maintenance"
	InventoryItemDamaged     InventoryItemStatus = "damaged"
	InventoryItemMissing     InventoryItemStatus = "missing"
)

var validInventoryItemStatuses = []InventoryItemStatus{
	InventoryItemAvailable,
	InventoryItemInUse,
	InventoryItemMaintenance,
	InventoryItemDamaged,
	InventoryItemMissing,
}

func (s InventoryItemStatus) IsValid() bool {
	for _, candidate := range validInventoryItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseInventoryItemStatus(value string) (InventoryItemStatus, error) {
	for _, candidate := range validInventoryItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory item status %q", value)
}
