package checkitems

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestion-ambientes/ambientes-backend/pkg/db/models"
)

// Repository persists item observations. Rows are insert-only.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, items []models.InventoryCheckItem) error
	ListWindow(ctx context.Context, environmentID uuid.UUID, start, end time.Time) ([]models.InventoryCheckItem, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an observations repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, items []models.InventoryCheckItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

// ListWindow returns observations for an environment created in [start, end).
func (r *repositoryImpl) ListWindow(ctx context.Context, environmentID uuid.UUID, start, end time.Time) ([]models.InventoryCheckItem, error) {
	var items []models.InventoryCheckItem
	err := r.db.WithContext(ctx).
		Where("environment_id = ? AND created_at >= ? AND created_at < ?", environmentID, start.UTC(), end.UTC()).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	return items, err
}
