package controllers

import (
	"net/http"
	"strings"

	"github.com/gestion-ambientes/ambientes-backend/api/responses"
	"github.com/gestion-ambientes/ambientes-backend/api/validators"
	"github.com/gestion-ambientes/ambientes-backend/internal/notifications"
	pkgerrors "github.com/gestion-ambientes/ambientes-backend/pkg/errors"
	"github.com/gestion-ambientes/ambientes-backend/pkg/logger"
	"github.com/gestion-ambientes/ambientes-backend/pkg/pagination"
)

// ListNotifications returns the caller's inbox, newest first.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unread, err := validators.ParseQueryBool(r, "unread_only")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.List(r.Context(), notifications.ListParams{
			UserID:     actor.UserID,
			Limit:      limit,
			Cursor:     strings.TrimSpace(r.URL.Query().Get("cursor")),
			UnreadOnly: unread,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// MarkNotificationRead marks one notification of the caller as read.
func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		notificationID, err := validators.ParsePathUUID(r, "notificationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MarkRead(r.Context(), actor.UserID, notificationID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"read": true})
	}
}

// MarkAllNotificationsRead clears the caller's unread notifications.
func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		updated, err := svc.MarkAllRead(r.Context(), actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"updated": updated})
	}
}
