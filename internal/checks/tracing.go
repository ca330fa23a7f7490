package checks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/gestion-ambientes/ambientes-backend/pkg/db/models"
	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
	"github.com/gestion-ambientes/ambientes-backend/pkg/types"
)

var tracer = otel.Tracer("ambientes-backend/checks")

// TracedRepository wraps a Repository with one span per call.
type TracedRepository struct {
	next Repository
}

func NewTracedRepository(next Repository) *TracedRepository {
	return &TracedRepository{next: next}
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (r *TracedRepository) WithTx(tx *gorm.DB) Repository {
	return &TracedRepository{next: r.next.WithTx(tx)}
}

func (r *TracedRepository) Create(ctx context.Context, check *models.InventoryCheck) (err error) {
	ctx, span := tracer.Start(ctx, "repository.Create",
		trace.WithAttributes(attribute.String("environment_id", check.EnvironmentID.String())))
	defer func() { finish(span, err) }()
	return r.next.Create(ctx, check)
}

func (r *TracedRepository) FindByID(ctx context.Context, id uuid.UUID) (_ *models.InventoryCheck, err error) {
	ctx, span := tracer.Start(ctx, "repository.FindByID",
		trace.WithAttributes(attribute.String("check_id", id.String())))
	defer func() { finish(span, err) }()
	return r.next.FindByID(ctx, id)
}

func (r *TracedRepository) FindByTriple(ctx context.Context, environmentID uuid.UUID, scheduleID *uuid.UUID, day types.Date) (_ *models.InventoryCheck, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("environment_id", environmentID.String()),
		attribute.String("check_date", day.String()),
	}
	if scheduleID != nil {
		attrs = append(attrs, attribute.String("schedule_id", scheduleID.String()))
	}
	ctx, span := tracer.Start(ctx, "repository.FindByTriple", trace.WithAttributes(attrs...))
	defer func() { finish(span, err) }()
	return r.next.FindByTriple(ctx, environmentID, scheduleID, day)
}

func (r *TracedRepository) UpdateVersioned(ctx context.Context, id uuid.UUID, version int, updates map[string]any) (ok bool, err error) {
	ctx, span := tracer.Start(ctx, "repository.UpdateVersioned",
		trace.WithAttributes(
			attribute.String("check_id", id.String()),
			attribute.Int("version", version),
		))
	defer func() {
		span.SetAttributes(attribute.Bool("applied", ok))
		finish(span, err)
	}()
	return r.next.UpdateVersioned(ctx, id, version, updates)
}

func (r *TracedRepository) List(ctx context.Context, q ListQuery) (out []models.InventoryCheck, err error) {
	ctx, span := tracer.Start(ctx, "repository.List",
		trace.WithAttributes(attribute.Int("limit", q.Limit)))
	defer func() {
		span.SetAttributes(attribute.Int("rows", len(out)))
		finish(span, err)
	}()
	return r.next.List(ctx, q)
}

func (r *TracedRepository) ListForDay(ctx context.Context, environmentID uuid.UUID, day types.Date) (_ []models.InventoryCheck, err error) {
	ctx, span := tracer.Start(ctx, "repository.ListForDay",
		trace.WithAttributes(
			attribute.String("environment_id", environmentID.String()),
			attribute.String("check_date", day.String()),
		))
	defer func() { finish(span, err) }()
	return r.next.ListForDay(ctx, environmentID, day)
}

func (r *TracedRepository) CountByStatus(ctx context.Context, q StatsQuery) (_ map[enums.InventoryCheckStatus]int64, err error) {
	ctx, span := tracer.Start(ctx, "repository.CountByStatus")
	defer func() { finish(span, err) }()
	return r.next.CountByStatus(ctx, q)
}

func (r *TracedRepository) SumItems(ctx context.Context, q StatsQuery) (_ ItemSums, err error) {
	ctx, span := tracer.Start(ctx, "repository.SumItems")
	defer func() { finish(span, err) }()
	return r.next.SumItems(ctx, q)
}

func (r *TracedRepository) ListStale(ctx context.Context, statuses []enums.InventoryCheckStatus, updatedBefore time.Time, limit int) (out []models.InventoryCheck, err error) {
	ctx, span := tracer.Start(ctx, "repository.ListStale",
		trace.WithAttributes(attribute.String("updated_before", updatedBefore.UTC().Format(time.RFC3339))))
	defer func() {
		span.SetAttributes(attribute.Int("rows", len(out)))
		finish(span, err)
	}()
	return r.next.ListStale(ctx, statuses, updatedBefore, limit)
}
