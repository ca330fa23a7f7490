package checks

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestion-ambientes/ambientes-backend/internal/checkitems"
	"github.com/gestion-ambientes/ambientes-backend/internal/dbtest"
	"github.com/gestion-ambientes/ambientes-backend/pkg/db/models"
	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
	"github.com/gestion-ambientes/ambientes-backend/pkg/types"
)

func observation(status enums.CheckItemCondition, found, damaged, missing int) models.InventoryCheckItem {
	return models.InventoryCheckItem{
		ID:              uuid.New(),
		Status:          status,
		QuantityFound:   found,
		QuantityDamaged: damaged,
		QuantityMissing: missing,
	}
}

func sampleObservations() []models.InventoryCheckItem {
	return []models.InventoryCheckItem{
		observation(enums.CheckItemGood, 5, 0, 0),
		observation(enums.CheckItemGood, 3, 1, 0),
		observation(enums.CheckItemDamaged, 1, 2, 0),
		observation(enums.CheckItemMissing, 0, 0, 4),
		observation(enums.CheckItemDamaged, 0, 1, 1),
	}
}

func TestAggregateFiltersByStatus(t *testing.T) {
	got := Aggregate(sampleObservations())
	assert.Equal(t, Totals{TotalItems: 5, ItemsGood: 8, ItemsDamaged: 3, ItemsMissing: 4}, got)
}

func TestAggregateAllRecordsSumsEverything(t *testing.T) {
	got := AggregateAllRecords(sampleObservations())
	assert.Equal(t, Totals{TotalItems: 5, ItemsGood: 9, ItemsDamaged: 4, ItemsMissing: 5}, got)
}

func TestAggregateIgnoresOrder(t *testing.T) {
	items := sampleObservations()
	want := Aggregate(items)
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		r.Shuffle(len(items), func(a, b int) { items[a], items[b] = items[b], items[a] })
		assert.Equal(t, want, Aggregate(items))
	}
	assert.Equal(t, Totals{}, Aggregate(nil))
}

func TestAggregatorForDayUsesLocalWindow(t *testing.T) {
	conn := dbtest.Open(t)
	env := dbtest.SeedEnvironment(t, conn)
	repo := checkitems.NewRepository(conn)

	// 2026-03-10 in Bogota runs from 05:00Z to 05:00Z next day.
	rows := []models.InventoryCheckItem{
		{ID: uuid.New(), ItemID: uuid.New(), EnvironmentID: env.ID, Status: enums.CheckItemGood, QuantityFound: 2,
			CreatedAt: time.Date(2026, 3, 10, 4, 59, 0, 0, time.UTC)},
		{ID: uuid.New(), ItemID: uuid.New(), EnvironmentID: env.ID, Status: enums.CheckItemGood, QuantityFound: 3,
			CreatedAt: time.Date(2026, 3, 10, 5, 0, 0, 0, time.UTC)},
		{ID: uuid.New(), ItemID: uuid.New(), EnvironmentID: env.ID, Status: enums.CheckItemMissing, QuantityMissing: 1,
			CreatedAt: time.Date(2026, 3, 11, 4, 59, 0, 0, time.UTC)},
		{ID: uuid.New(), ItemID: uuid.New(), EnvironmentID: env.ID, Status: enums.CheckItemGood, QuantityFound: 7,
			CreatedAt: time.Date(2026, 3, 11, 5, 0, 0, 0, time.UTC)},
	}
	require.NoError(t, repo.Create(context.Background(), rows))

	agg := NewAggregator(repo, bogota)
	got, err := agg.ForDay(context.Background(), conn, env.ID, types.Date{Year: 2026, Month: time.March, Day: 10})
	require.NoError(t, err)
	assert.Equal(t, Totals{TotalItems: 2, ItemsGood: 3, ItemsMissing: 1}, got)
}
