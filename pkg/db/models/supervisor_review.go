package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
)

// SupervisorReview is an append-only supervisor decision.
type SupervisorReview struct {
	ID           uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CheckID      uuid.UUID            `gorm:"column:check_id;type:uuid;not null"`
	SupervisorID uuid.UUID            `gorm:"column:supervisor_id;type:uuid;not null"`
	Decision     enums.ReviewDecision `gorm:"column:decision;type:review_decision;not null"`
	Comments     *string              `gorm:"column:comments"`
	ReviewedAt   time.Time            `gorm:"column:reviewed_at;not null"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime"`
}

func (SupervisorReview) TableName() string { return "supervisor_reviews" }
