package checks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestion-ambientes/ambientes-backend/internal/checkitems"
	"github.com/gestion-ambientes/ambientes-backend/pkg/db/models"
	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
	"github.com/gestion-ambientes/ambientes-backend/pkg/types"
)

// Totals are the per-check counts derived from a day's observations.
type Totals struct {
	TotalItems   int `json:"total_items"`
	ItemsGood    int `json:"items_good"`
	ItemsDamaged int `json:"items_damaged"`
	ItemsMissing int `json:"items_missing"`
}

// Aggregate folds observations with status filtering: found quantities
// count only for good rows, damaged for damaged rows, missing for missing
// rows. Order does not matter.
func Aggregate(items []models.InventoryCheckItem) Totals {
	t := Totals{TotalItems: len(items)}
	for _, it := range items {
		switch it.Status {
		case enums.CheckItemGood:
			t.ItemsGood += it.QuantityFound
		case enums.CheckItemDamaged:
			t.ItemsDamaged += it.QuantityDamaged
		case enums.CheckItemMissing:
			t.ItemsMissing += it.QuantityMissing
		}
	}
	return t
}

// AggregateAllRecords sums every quantity column regardless of the row's
// status. Kept for comparison with Aggregate; the workflow never uses it.
func AggregateAllRecords(items []models.InventoryCheckItem) Totals {
	t := Totals{TotalItems: len(items)}
	for _, it := range items {
		t.ItemsGood += it.QuantityFound
		t.ItemsDamaged += it.QuantityDamaged
		t.ItemsMissing += it.QuantityMissing
	}
	return t
}

// Aggregator reads a day window of observations and folds it.
type Aggregator struct {
	items checkitems.Repository
	loc   *time.Location
}

func NewAggregator(items checkitems.Repository, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{items: items, loc: loc}
}

// ForDay recomputes totals for environmentID on day, reading through tx.
func (a *Aggregator) ForDay(ctx context.Context, tx *gorm.DB, environmentID uuid.UUID, day types.Date) (Totals, error) {
	start, end := day.Window(a.loc)
	rows, err := a.items.WithTx(tx).ListWindow(ctx, environmentID, start, end)
	if err != nil {
		return Totals{}, err
	}
	return Aggregate(rows), nil
}

func (t Totals) apply(check *models.InventoryCheck) {
	check.TotalItems = t.TotalItems
	check.ItemsGood = t.ItemsGood
	check.ItemsDamaged = t.ItemsDamaged
	check.ItemsMissing = t.ItemsMissing
}

func (t Totals) updates() map[string]any {
	return map[string]any{
		"total_items":   t.TotalItems,
		"items_good":    t.ItemsGood,
		"items_damaged": t.ItemsDamaged,
		"items_missing": t.ItemsMissing,
	}
}
