package reviews

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestion-ambientes/ambientes-backend/pkg/db/models"
	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
	pkgerrors "github.com/gestion-ambientes/ambientes-backend/pkg/errors"
)

// Decision is what a supervisor submitted for a check.
type Decision struct {
	CheckID      uuid.UUID
	SupervisorID uuid.UUID
	Decision     enums.ReviewDecision
	Comments     *string
	ReviewedAt   time.Time
}

// Recorder is the review trail used by the workflow.
type Recorder struct {
	repo Repository
}

func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo}
}

// Record appends a review inside tx and returns the stored row.
func (r *Recorder) Record(ctx context.Context, tx *gorm.DB, d Decision) (*models.SupervisorReview, error) {
	if d.CheckID == uuid.Nil || d.SupervisorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "check and supervisor are required")
	}
	if !d.Decision.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid decision %q", d.Decision)
	}
	at := d.ReviewedAt
	if at.IsZero() {
		at = time.Now()
	}
	review := &models.SupervisorReview{
		ID:           uuid.New(),
		CheckID:      d.CheckID,
		SupervisorID: d.SupervisorID,
		Decision:     d.Decision,
		Comments:     trimmed(d.Comments),
		ReviewedAt:   at.UTC(),
	}
	if err := r.repo.WithTx(tx).Append(ctx, review); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store supervisor review")
	}
	return review, nil
}

// History lists the reviews of a check, oldest first.
func (r *Recorder) History(ctx context.Context, checkID uuid.UUID) ([]models.SupervisorReview, error) {
	rows, err := r.repo.ListByCheck(ctx, checkID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list supervisor reviews")
	}
	return rows, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
