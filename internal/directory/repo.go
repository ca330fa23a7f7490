package directory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestion-ambientes/ambientes-backend/internal/repo"
	"github.com/gestion-ambientes/ambientes-backend/pkg/db/models"
	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
)

// Repository reads the environment, schedule and user tables owned by the
// directory service. The workflow only performs existence checks and
// recipient lookups against them.
type Repository struct {
	base repo.Base
}

// NewRepository constructs a directory repo bound to db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

// WithTx scopes the lookups to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{base: r.base.WithTx(tx)}
}

// FindEnvironment loads an environment by id.
func (r *Repository) FindEnvironment(ctx context.Context, id uuid.UUID) (*models.Environment, error) {
	var env models.Environment
	if err := r.base.DB(ctx).First(&env, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &env, nil
}

// FindSchedule loads a schedule by id.
func (r *Repository) FindSchedule(ctx context.Context, id uuid.UUID) (*models.Schedule, error) {
	var schedule models.Schedule
	if err := r.base.DB(ctx).First(&schedule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &schedule, nil
}

// FindUser loads a user by id.
func (r *Repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.base.DB(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListActiveSchedules returns the active schedules of an environment on an
// ISO weekday, earliest first.
func (r *Repository) ListActiveSchedules(ctx context.Context, environmentID uuid.UUID, isoWeekday int) ([]models.Schedule, error) {
	var schedules []models.Schedule
	err := r.base.DB(ctx).
		Where("environment_id = ? AND day_of_week = ? AND is_active = ?", environmentID, isoWeekday, true).
		Order("start_time ASC").
		Find(&schedules).Error
	return schedules, err
}

// ActiveUserIDsByRole returns active users holding any of roles.
func (r *Repository) ActiveUserIDsByRole(ctx context.Context, roles ...enums.UserRole) ([]uuid.UUID, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	err := r.base.DB(ctx).
		Model(&models.User{}).
		Where("role IN ? AND is_active = ?", roles, true).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// FindInventoryItem loads an inventory item that belongs to environmentID.
func (r *Repository) FindInventoryItem(ctx context.Context, itemID, environmentID uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.base.DB(ctx).
		Where("id = ? AND environment_id = ?", itemID, environmentID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}
