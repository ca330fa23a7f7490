package checkitems

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/gestion-ambientes/ambientes-backend/pkg/auth"
	"github.com/gestion-ambientes/ambientes-backend/pkg/db/models"
	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
	pkgerrors "github.com/gestion-ambientes/ambientes-backend/pkg/errors"
	"github.com/gestion-ambientes/ambientes-backend/pkg/logger"
	"github.com/gestion-ambientes/ambientes-backend/pkg/types"
)

// Service records item observations and lists them per day window.
type Service interface {
	Record(ctx context.Context, actor auth.Actor, req RecordItemRequest) (*models.InventoryCheckItem, error)
	RecordBatch(ctx context.Context, actor auth.Actor, reqs []RecordItemRequest) (*RecordResult, error)
	List(ctx context.Context, actor auth.Actor, environmentID uuid.UUID, day types.Date) ([]models.InventoryCheckItem, error)
}

type itemFinder interface {
	FindInventoryItem(ctx context.Context, itemID, environmentID uuid.UUID) (*models.InventoryItem, error)
}

// InventoryReflector writes an observation back onto its inventory item
// inside the recording transaction.
type InventoryReflector interface {
	Reflect(ctx context.Context, tx *gorm.DB, obs models.InventoryCheckItem) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the recorder.
type ServiceParams struct {
	Repo      Repository
	Items     itemFinder
	Reflector InventoryReflector
	TX        txRunner
	Location  *time.Location
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	repo      Repository
	items     itemFinder
	reflector InventoryReflector
	tx        txRunner
	loc       *time.Location
	logg      *logger.Logger
	now       func() time.Time
}

var recorderRoles = []enums.UserRole{
	enums.UserRoleStudent,
	enums.UserRoleInstructor,
	enums.UserRoleSupervisor,
}

// NewService validates dependencies and builds the recorder.
func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "check items repository required")
	}
	if p.Items == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inventory item lookup required")
	}
	if p.Reflector == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inventory reflector required")
	}
	if p.TX == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      p.Repo,
		items:     p.Items,
		reflector: p.Reflector,
		tx:        p.TX,
		loc:       loc,
		logg:      p.Logger,
		now:       now,
	}, nil
}

func (s *service) Record(ctx context.Context, actor auth.Actor, req RecordItemRequest) (*models.InventoryCheckItem, error) {
	res, err := s.RecordBatch(ctx, actor, []RecordItemRequest{req})
	if err != nil {
		return nil, err
	}
	return &res.Items[0], nil
}

func (s *service) RecordBatch(ctx context.Context, actor auth.Actor, reqs []RecordItemRequest) (*RecordResult, error) {
	if !actor.Is(recorderRoles...) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot record inventory observations")
	}
	if len(reqs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	if len(reqs) > MaxBatchSize {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "at most %d items per batch", MaxBatchSize)
	}

	var invalid error
	for i, req := range reqs {
		for _, e := range multierr.Errors(req.check()) {
			invalid = multierr.Append(invalid, fmt.Errorf("items[%d]: %w", i, e))
		}
	}
	if invalid != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, invalid, "invalid observations").
			WithDetails(validationDetails(invalid))
	}

	for _, req := range reqs {
		if _, err := s.items.FindInventoryItem(ctx, req.ItemID, req.EnvironmentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "inventory item %s not found in environment %s", req.ItemID, req.EnvironmentID)
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup inventory item")
		}
	}

	now := s.now().UTC()
	rows := make([]models.InventoryCheckItem, 0, len(reqs))
	for _, req := range reqs {
		rows = append(rows, req.toModel(actor.UserID, now))
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, rows); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store observations")
		}
		for _, row := range rows {
			if err := s.reflector.Reflect(ctx, tx, row); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inventory item")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"user_id":        actor.UserID.String(),
			"environment_id": rows[0].EnvironmentID.String(),
			"count":          len(rows),
		})
		s.logg.Info(logCtx, "inventory observations recorded")
	}
	return &RecordResult{Recorded: len(rows), Items: rows}, nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, environmentID uuid.UUID, day types.Date) ([]models.InventoryCheckItem, error) {
	if !actor.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if environmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "environment_id is required")
	}
	if day.IsZero() {
		day = types.DateOf(s.now().In(s.loc))
	}
	start, end := day.Window(s.loc)
	rows, err := s.repo.ListWindow(ctx, environmentID, start, end)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list observations")
	}
	return rows, nil
}

func validationDetails(err error) map[string]any {
	msgs := []string{}
	for _, e := range multierr.Errors(err) {
		msgs = append(msgs, e.Error())
	}
	return map[string]any{"errors": msgs}
}
