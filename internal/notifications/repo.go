package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestion-ambientes/ambientes-backend/internal/repo"
	"github.com/gestion-ambientes/ambientes-backend/pkg/db"
	"github.com/gestion-ambientes/ambientes-backend/pkg/db/models"
	"github.com/gestion-ambientes/ambientes-backend/pkg/pagination"
)

// UniqueEventIndex keeps one notification per recipient per outbox event.
const UniqueEventIndex = "ux_notifications_user_event"

// Repository exposes persistence helpers for notifications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) (bool, error)
	List(ctx context.Context, params listParams) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (markResult, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	base repo.Base
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{base: repo.NewBase(conn)}
}

type listParams struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
	Now        time.Time
}

type markResult struct {
	Updated bool
	Found   bool
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{base: r.base.WithTx(tx)}
}

// Create inserts the notification. A row that repeats (user_id, event_id) is
// skipped and reported as not created.
func (r *repository) Create(ctx context.Context, notification *models.Notification) (bool, error) {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	err := r.base.DB(ctx).Create(notification).Error
	if err == nil {
		return true, nil
	}
	if notification.EventID != nil && db.IsUniqueViolation(err, UniqueEventIndex) {
		return false, nil
	}
	return false, err
}

func (r *repository) List(ctx context.Context, params listParams) ([]models.Notification, error) {
	query := r.base.DB(ctx).Model(&models.Notification{}).Where("user_id = ?", params.UserID)
	if !params.Now.IsZero() {
		query = query.Where("expires_at IS NULL OR expires_at > ?", params.Now.UTC())
	}
	if params.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if params.Cursor != nil {
		at := params.Cursor.CreatedAt.UTC()
		query = query.Where("(created_at < ?) OR (created_at = ? AND id <= ?)", at, at, params.Cursor.ID)
	}

	var rows []models.Notification
	err := query.Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	return rows, err
}

func (r *repository) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (markResult, error) {
	result := r.base.DB(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND is_read = ?", notificationID, userID, false).
		Updates(map[string]any{"is_read": true, "read_at": now.UTC()})
	if result.Error != nil {
		return markResult{}, result.Error
	}
	if result.RowsAffected > 0 {
		return markResult{Updated: true, Found: true}, nil
	}

	var count int64
	if err := r.base.DB(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Count(&count).Error; err != nil {
		return markResult{}, err
	}
	return markResult{Found: count > 0}, nil
}

func (r *repository) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	result := r.base.DB(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{"is_read": true, "read_at": now.UTC()})
	return result.RowsAffected, result.Error
}

// DeleteExpired removes notifications whose expires_at has passed.
func (r *repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.base.DB(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now.UTC()).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}

// DeleteReadBefore removes read notifications created before cutoff.
func (r *repository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.base.DB(ctx).
		Where("is_read = ? AND created_at < ?", true, cutoff.UTC()).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}
