package reviews

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestion-ambientes/ambientes-backend/pkg/db/models"
)

// Repository appends and reads supervisor decisions. There is no update or
// delete path.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, review *models.SupervisorReview) error
	ListByCheck(ctx context.Context, checkID uuid.UUID) ([]models.SupervisorReview, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Append(ctx context.Context, review *models.SupervisorReview) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *repositoryImpl) ListByCheck(ctx context.Context, checkID uuid.UUID) ([]models.SupervisorReview, error) {
	var rows []models.SupervisorReview
	err := r.db.WithContext(ctx).
		Where("check_id = ?", checkID).
		Order("reviewed_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}
