package checkitems

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/gestion-ambientes/ambientes-backend/pkg/db/models"
	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
)

// MaxBatchSize bounds a single batch submission.
const MaxBatchSize = 500

// RecordItemRequest is one scanned observation.
type RecordItemRequest struct {
	ItemID           uuid.UUID                `json:"item_id" validate:"required"`
	EnvironmentID    uuid.UUID                `json:"environment_id" validate:"required"`
	Status           enums.CheckItemCondition `json:"status" validate:"required,oneof=good damaged missing"`
	QuantityExpected int                      `json:"quantity_expected" validate:"min=0"`
	QuantityFound    int                      `json:"quantity_found" validate:"min=0"`
	QuantityDamaged  int                      `json:"quantity_damaged" validate:"min=0"`
	QuantityMissing  int                      `json:"quantity_missing" validate:"min=0"`
	Notes            *string                  `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// RecordBatchRequest carries several observations recorded together.
type RecordBatchRequest struct {
	Items []RecordItemRequest `json:"items" validate:"required,min=1,max=500,dive"`
}

func (r RecordItemRequest) check() error {
	var err error
	if r.ItemID == uuid.Nil {
		err = multierr.Append(err, fmt.Errorf("item_id is required"))
	}
	if r.EnvironmentID == uuid.Nil {
		err = multierr.Append(err, fmt.Errorf("environment_id is required"))
	}
	if !r.Status.IsValid() {
		err = multierr.Append(err, fmt.Errorf("status %q is invalid", r.Status))
	}
	if r.QuantityExpected < 0 || r.QuantityFound < 0 || r.QuantityDamaged < 0 || r.QuantityMissing < 0 {
		err = multierr.Append(err, fmt.Errorf("quantities must not be negative"))
	}
	return err
}

func (r RecordItemRequest) toModel(userID uuid.UUID, now time.Time) models.InventoryCheckItem {
	item := models.InventoryCheckItem{
		ID:               uuid.New(),
		ItemID:           r.ItemID,
		EnvironmentID:    r.EnvironmentID,
		Status:           r.Status,
		QuantityExpected: r.QuantityExpected,
		QuantityFound:    r.QuantityFound,
		QuantityDamaged:  r.QuantityDamaged,
		QuantityMissing:  r.QuantityMissing,
		CreatedAt:        now,
	}
	if userID != uuid.Nil {
		uid := userID
		item.UserID = &uid
	}
	if r.Notes != nil {
		if notes := strings.TrimSpace(*r.Notes); notes != "" {
			item.Notes = &notes
		}
	}
	return item
}

// RecordResult summarises a stored batch.
type RecordResult struct {
	Recorded int                         `json:"recorded"`
	Items    []models.InventoryCheckItem `json:"items"`
}
