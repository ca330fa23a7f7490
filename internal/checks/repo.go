package checks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestion-ambientes/ambientes-backend/internal/repo"
	"github.com/gestion-ambientes/ambientes-backend/pkg/db/models"
	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
	"github.com/gestion-ambientes/ambientes-backend/pkg/pagination"
	"github.com/gestion-ambientes/ambientes-backend/pkg/types"
	"github.com/gestion-ambientes/ambientes-backend/pkg/visibility"
)

// UniqueTripleIndex guards one check per environment, schedule and day.
const UniqueTripleIndex = "ux_inventory_checks_env_schedule_date"

// ListQuery filters the check listing. Shift keeps checks whose schedule
// starts inside the shift.
type ListQuery struct {
	Scope         visibility.CheckScope
	EnvironmentID *uuid.UUID
	Date          *types.Date
	Status        *enums.InventoryCheckStatus
	Shift         *enums.Shift
	Cursor        *pagination.Cursor
	Limit         int
}

// StatsQuery filters the aggregate reads.
type StatsQuery struct {
	Scope         visibility.CheckScope
	EnvironmentID *uuid.UUID
	StartDate     *types.Date
	EndDate       *types.Date
}

// ItemSums are summed aggregate counters over a set of checks.
type ItemSums struct {
	TotalChecked int64
	GoodItems    int64
	DamagedItems int64
	MissingItems int64
}

// Repository persists inventory checks.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, check *models.InventoryCheck) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryCheck, error)
	FindByTriple(ctx context.Context, environmentID uuid.UUID, scheduleID *uuid.UUID, day types.Date) (*models.InventoryCheck, error)
	UpdateVersioned(ctx context.Context, id uuid.UUID, version int, updates map[string]any) (bool, error)
	List(ctx context.Context, q ListQuery) ([]models.InventoryCheck, error)
	ListForDay(ctx context.Context, environmentID uuid.UUID, day types.Date) ([]models.InventoryCheck, error)
	CountByStatus(ctx context.Context, q StatsQuery) (map[enums.InventoryCheckStatus]int64, error)
	SumItems(ctx context.Context, q StatsQuery) (ItemSums, error)
	ListStale(ctx context.Context, statuses []enums.InventoryCheckStatus, updatedBefore time.Time, limit int) ([]models.InventoryCheck, error)
}

type repository struct {
	base repo.Base
}

// NewRepository returns a GORM-backed check repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{base: r.base.WithTx(tx)}
}

func (r *repository) Create(ctx context.Context, check *models.InventoryCheck) error {
	if check.ID == uuid.Nil {
		check.ID = uuid.New()
	}
	return r.base.DB(ctx).Create(check).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryCheck, error) {
	var check models.InventoryCheck
	if err := r.base.DB(ctx).Where("id = ?", id).First(&check).Error; err != nil {
		return nil, err
	}
	return &check, nil
}

// FindByTriple returns nil, nil when no check exists for the triple.
func (r *repository) FindByTriple(ctx context.Context, environmentID uuid.UUID, scheduleID *uuid.UUID, day types.Date) (*models.InventoryCheck, error) {
	q := r.base.DB(ctx).Where("environment_id = ? AND check_date = ?", environmentID, day)
	if scheduleID == nil {
		q = q.Where("schedule_id IS NULL")
	} else {
		q = q.Where("schedule_id = ?", *scheduleID)
	}
	var check models.InventoryCheck
	err := q.First(&check).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &check, nil
}

// UpdateVersioned applies updates only if the row still carries version and
// bumps it. It reports false when another writer got there first.
func (r *repository) UpdateVersioned(ctx context.Context, id uuid.UUID, version int, updates map[string]any) (bool, error) {
	values := make(map[string]any, len(updates)+2)
	for k, v := range updates {
		values[k] = v
	}
	values["version"] = gorm.Expr("version + 1")
	if _, ok := values["updated_at"]; !ok {
		values["updated_at"] = time.Now().UTC()
	}
	res := r.base.DB(ctx).
		Model(&models.InventoryCheck{}).
		Where("id = ? AND version = ?", id, version).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) List(ctx context.Context, q ListQuery) ([]models.InventoryCheck, error) {
	tx := applyScope(r.base.DB(ctx).Model(&models.InventoryCheck{}), q.Scope)
	if q.EnvironmentID != nil {
		tx = tx.Where("environment_id = ?", *q.EnvironmentID)
	}
	if q.Date != nil {
		tx = tx.Where("check_date = ?", *q.Date)
	}
	if q.Status != nil {
		tx = tx.Where("status = ?", *q.Status)
	}
	if q.Shift != nil {
		tx = tx.Where("schedule_id IN (?)", r.schedulesInShift(ctx, *q.Shift))
	}
	if q.Cursor != nil {
		tx = tx.Where("(created_at < ?) OR (created_at = ? AND id <= ?)",
			q.Cursor.CreatedAt.UTC(), q.Cursor.CreatedAt.UTC(), q.Cursor.ID)
	}
	var checks []models.InventoryCheck
	err := tx.Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(q.Limit)).
		Find(&checks).Error
	return checks, err
}

func (r *repository) schedulesInShift(ctx context.Context, shift enums.Shift) *gorm.DB {
	from, to, inclusive := shift.Bounds()
	sub := r.base.DB(ctx).Model(&models.Schedule{}).Select("id").Where("start_time >= ?", from)
	if inclusive {
		return sub.Where("start_time <= ?", to)
	}
	return sub.Where("start_time < ?", to)
}

func (r *repository) ListForDay(ctx context.Context, environmentID uuid.UUID, day types.Date) ([]models.InventoryCheck, error) {
	var checks []models.InventoryCheck
	err := r.base.DB(ctx).
		Where("environment_id = ? AND check_date = ?", environmentID, day).
		Order("created_at ASC").
		Find(&checks).Error
	return checks, err
}

func (r *repository) CountByStatus(ctx context.Context, q StatsQuery) (map[enums.InventoryCheckStatus]int64, error) {
	var rows []struct {
		Status enums.InventoryCheckStatus
		Count  int64
	}
	err := r.statsQuery(ctx, q).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[enums.InventoryCheckStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func (r *repository) SumItems(ctx context.Context, q StatsQuery) (ItemSums, error) {
	var sums ItemSums
	err := r.statsQuery(ctx, q).
		Select(`COALESCE(SUM(total_items), 0) AS total_checked,
			COALESCE(SUM(items_good), 0) AS good_items,
			COALESCE(SUM(items_damaged), 0) AS damaged_items,
			COALESCE(SUM(items_missing), 0) AS missing_items`).
		Scan(&sums).Error
	return sums, err
}

// ListStale returns checks sitting in statuses since before updatedBefore,
// oldest first.
func (r *repository) ListStale(ctx context.Context, statuses []enums.InventoryCheckStatus, updatedBefore time.Time, limit int) ([]models.InventoryCheck, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = pagination.MaxLimit
	}
	var checks []models.InventoryCheck
	err := r.base.DB(ctx).
		Where("status IN ? AND updated_at < ?", statuses, updatedBefore.UTC()).
		Order("updated_at ASC, id ASC").
		Limit(limit).
		Find(&checks).Error
	return checks, err
}

func (r *repository) statsQuery(ctx context.Context, q StatsQuery) *gorm.DB {
	tx := applyScope(r.base.DB(ctx).Model(&models.InventoryCheck{}), q.Scope)
	if q.EnvironmentID != nil {
		tx = tx.Where("environment_id = ?", *q.EnvironmentID)
	}
	if q.StartDate != nil {
		tx = tx.Where("check_date >= ?", *q.StartDate)
	}
	if q.EndDate != nil {
		tx = tx.Where("check_date <= ?", *q.EndDate)
	}
	return tx
}

func applyScope(tx *gorm.DB, scope visibility.CheckScope) *gorm.DB {
	if scope.All {
		return tx
	}
	slot := scope.SlotColumn + " = ?"
	if len(scope.OpenStatuses) == 0 {
		return tx.Where(slot, scope.UserID)
	}
	return tx.Where("("+slot+" OR status IN ?)", scope.UserID, scope.OpenStatuses)
}
