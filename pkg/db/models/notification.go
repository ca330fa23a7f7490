package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
)

// Notification is an in-app alert addressed to one user.
type Notification struct {
	ID        uuid.UUID                  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID                  `gorm:"type:uuid;not null"`
	Type      enums.NotificationType     `gorm:"type:notification_type;not null"`
	Title     string                     `gorm:"type:text;not null"`
	Message   string                     `gorm:"type:text;not null"`
	IsRead    bool                       `gorm:"not null;default:false"`
	Priority  enums.NotificationPriority `gorm:"type:notification_priority;not null;default:medium"`
	ActionURL *string                    `gorm:"type:text"`
	CheckID   *uuid.UUID                 `gorm:"type:uuid"`
	EventID   *uuid.UUID                 `gorm:"type:uuid"`
	ExpiresAt *time.Time                 `gorm:"type:timestamptz"`
	ReadAt    *time.Time                 `gorm:"type:timestamptz"`
	CreatedAt time.Time                  `gorm:"type:timestamptz;not null"`
}
