package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gestion-ambientes/ambientes-backend/pkg/db/models"
	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
	"github.com/gestion-ambientes/ambientes-backend/pkg/logger"
	"github.com/gestion-ambientes/ambientes-backend/pkg/metrics"
	"github.com/gestion-ambientes/ambientes-backend/pkg/outbox"
	"github.com/gestion-ambientes/ambientes-backend/pkg/outbox/payloads"
)

type recipientDirectory interface {
	ActiveUserIDsByRole(ctx context.Context, roles ...enums.UserRole) ([]uuid.UUID, error)
}

// DispatcherParams wires a Dispatcher.
type DispatcherParams struct {
	Repo          Repository
	Directory     recipientDirectory
	Metrics       *metrics.WorkflowMetrics
	Logger        *logger.Logger
	TTL           time.Duration
	ActionBaseURL string
	Now           func() time.Time
}

// Dispatcher turns inventory check events into per-user notifications.
type Dispatcher struct {
	repo          Repository
	directory     recipientDirectory
	metrics       *metrics.WorkflowMetrics
	logg          *logger.Logger
	ttl           time.Duration
	actionBaseURL string
	now           func() time.Time
}

// NewDispatcher validates params and builds a Dispatcher.
func NewDispatcher(p DispatcherParams) (*Dispatcher, error) {
	if p.Repo == nil {
		return nil, errors.New("notifications repository required")
	}
	if p.Directory == nil {
		return nil, errors.New("directory required")
	}
	now := p.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Dispatcher{
		repo:          p.Repo,
		directory:     p.Directory,
		metrics:       p.Metrics,
		logg:          p.Logger,
		ttl:           p.TTL,
		actionBaseURL: strings.TrimRight(p.ActionBaseURL, "/"),
		now:           now,
	}, nil
}

// notice is one notification to be fanned out to recipients.
type notice struct {
	kind     enums.NotificationType
	title    string
	message  string
	priority enums.NotificationPriority
	checkID  *uuid.UUID
}

// Create writes a standalone notification for userID.
func (d *Dispatcher) Create(ctx context.Context, userID uuid.UUID, kind enums.NotificationType, title, message string, priority enums.NotificationPriority) (*models.Notification, error) {
	if userID == uuid.Nil {
		return nil, errors.New("user id required")
	}
	if !kind.IsValid() {
		return nil, fmt.Errorf("invalid notification type %q", kind)
	}
	if !priority.IsValid() {
		priority = enums.NotificationPriorityMedium
	}
	n := d.build(userID, notice{kind: kind, title: title, message: message, priority: priority}, nil)
	if _, err := d.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	d.metrics.NotificationsDispatched(string(kind), 1)
	return n, nil
}

// Dispatch fans a decoded event out to its recipients and returns how many
// notifications were written. The envelope actor never notifies themselves.
func (d *Dispatcher) Dispatch(ctx context.Context, env outbox.PayloadEnvelope, payload any) (int, error) {
	eventID, err := uuid.Parse(env.EventID)
	if err != nil {
		return 0, fmt.Errorf("invalid event id: %w", err)
	}

	var (
		recipients []uuid.UUID
		msg        notice
	)
	switch p := payload.(type) {
	case *payloads.CheckPendingInstructorEvent:
		recipients, err = d.pendingRecipients(ctx, p)
		msg = pendingInstructorNotice(p)
	case *payloads.CheckEscalatedEvent:
		recipients, err = d.directory.ActiveUserIDsByRole(ctx, enums.UserRoleSupervisor)
		msg = escalatedNotice(p)
	case *payloads.CheckReviewedEvent:
		recipients = compactIDs(p.StudentID, p.InstructorID)
		msg = reviewedNotice(p)
	case *payloads.CheckReminderEvent:
		recipients = p.RecipientIDs
		msg = reminderNotice(p)
	default:
		return 0, fmt.Errorf("unsupported payload %T", payload)
	}
	if err != nil {
		return 0, fmt.Errorf("resolve recipients: %w", err)
	}

	var actor uuid.UUID
	if env.Actor != nil {
		actor = env.Actor.UserID
	}

	written := 0
	seen := make(map[uuid.UUID]struct{}, len(recipients))
	for _, userID := range recipients {
		if userID == uuid.Nil || userID == actor {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}

		created, err := d.repo.Create(ctx, d.build(userID, msg, &eventID))
		if err != nil {
			return written, fmt.Errorf("create notification for %s: %w", userID, err)
		}
		if created {
			written++
		}
	}

	d.metrics.NotificationsDispatched(string(msg.kind), written)
	if d.logg != nil {
		logCtx := d.logg.WithFields(ctx, map[string]any{
			"event_id":   eventID.String(),
			"recipients": len(seen),
			"written":    written,
		})
		d.logg.Info(logCtx, "notifications dispatched")
	}
	return written, nil
}

// pendingRecipients targets the schedule's instructor, or every supervisor
// when the check has no instructor to hand it to.
func (d *Dispatcher) pendingRecipients(ctx context.Context, p *payloads.CheckPendingInstructorEvent) ([]uuid.UUID, error) {
	if p.InstructorID != nil && *p.InstructorID != uuid.Nil {
		return []uuid.UUID{*p.InstructorID}, nil
	}
	return d.directory.ActiveUserIDsByRole(ctx, enums.UserRoleSupervisor)
}

func (d *Dispatcher) build(userID uuid.UUID, msg notice, eventID *uuid.UUID) *models.Notification {
	now := d.now()
	n := &models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      msg.kind,
		Title:     msg.title,
		Message:   msg.message,
		Priority:  msg.priority,
		CheckID:   msg.checkID,
		EventID:   eventID,
		CreatedAt: now,
	}
	if msg.checkID != nil {
		url := d.actionBaseURL + "/" + msg.checkID.String()
		n.ActionURL = &url
	}
	if d.ttl > 0 {
		expires := now.Add(d.ttl)
		n.ExpiresAt = &expires
	}
	return n
}

func pendingInstructorNotice(p *payloads.CheckPendingInstructorEvent) notice {
	n := notice{
		kind:     enums.NotificationTypeVerificationPending,
		title:    "Nueva Verificación Pendiente",
		message:  fmt.Sprintf("Una verificación de inventario del %s ha sido iniciada y espera su revisión.", p.CheckDate),
		priority: enums.NotificationPriorityMedium,
		checkID:  idPtr(p.CheckID),
	}
	if p.Status == enums.CheckStatusIssues {
		n.priority = enums.NotificationPriorityHigh
		n.message = fmt.Sprintf("Una verificación de inventario del %s fue iniciada con novedades y espera su revisión.", p.CheckDate)
	}
	return n
}

func escalatedNotice(p *payloads.CheckEscalatedEvent) notice {
	if p.Status == enums.CheckStatusIssues {
		return notice{
			kind:     enums.NotificationTypeAlert,
			title:    "Verificación con Novedades",
			message:  fmt.Sprintf("La verificación del %s reporta %d ítems dañados y %d faltantes.", p.CheckDate, p.ItemsDamaged, p.ItemsMissing),
			priority: enums.NotificationPriorityHigh,
			checkID:  idPtr(p.CheckID),
		}
	}
	return notice{
		kind:     enums.NotificationTypeVerificationPending,
		title:    "Verificación Pendiente de Aprobación",
		message:  fmt.Sprintf("La verificación del %s está lista para su aprobación.", p.CheckDate),
		priority: enums.NotificationPriorityMedium,
		checkID:  idPtr(p.CheckID),
	}
}

func reviewedNotice(p *payloads.CheckReviewedEvent) notice {
	n := notice{
		kind:     enums.NotificationTypeVerificationUpdate,
		priority: enums.NotificationPriorityMedium,
		checkID:  idPtr(p.CheckID),
	}
	switch {
	case p.Decision == enums.ReviewDecisionRejected:
		n.title = "Verificación Rechazada"
		n.message = "El supervisor rechazó la verificación de inventario."
		n.priority = enums.NotificationPriorityHigh
	case p.Status == enums.CheckStatusComplete:
		n.title = "Verificación Aprobada"
		n.message = "El supervisor aprobó la verificación de inventario."
	default:
		n.title = "Verificación Aprobada con Novedades"
		n.message = "El supervisor revisó la verificación, pero quedan novedades por resolver."
		n.priority = enums.NotificationPriorityHigh
	}
	if c := strings.TrimSpace(p.Comments); c != "" {
		n.message += " Comentarios: " + c
	}
	return n
}

func reminderNotice(p *payloads.CheckReminderEvent) notice {
	return notice{
		kind:     enums.NotificationTypeCheckReminder,
		title:    "Recordatorio de Verificación",
		message:  fmt.Sprintf("La verificación del %s lleva %d horas pendiente.", p.CheckDate, p.PendingHours),
		priority: enums.NotificationPriorityMedium,
		checkID:  idPtr(p.CheckID),
	}
}

func compactIDs(ids ...*uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != nil && *id != uuid.Nil {
			out = append(out, *id)
		}
	}
	return out
}

func idPtr(id uuid.UUID) *uuid.UUID {
	return &id
}
