package controllers

import (
	"net/http"

	"github.com/gestion-ambientes/ambientes-backend/api/responses"
	"github.com/gestion-ambientes/ambientes-backend/api/validators"
	"github.com/gestion-ambientes/ambientes-backend/internal/checkitems"
	pkgerrors "github.com/gestion-ambientes/ambientes-backend/pkg/errors"
	"github.com/gestion-ambientes/ambientes-backend/pkg/logger"
	"github.com/gestion-ambientes/ambientes-backend/pkg/types"
)

func itemsUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory check items service unavailable"))
}

// RecordCheckItem stores one scanned observation.
func RecordCheckItem(svc checkitems.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			itemsUnavailable(w, r, logg)
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var req checkitems.RecordItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Record(r.Context(), actor, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

// RecordCheckItemBatch stores several observations atomically.
func RecordCheckItemBatch(svc checkitems.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			itemsUnavailable(w, r, logg)
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var req checkitems.RecordBatchRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RecordBatch(r.Context(), actor, req.Items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// ListCheckItems returns an environment's observations for one day.
func ListCheckItems(svc checkitems.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			itemsUnavailable(w, r, logg)
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		envID, day, err := parseBoardQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var d types.Date
		if day != nil {
			d = *day
		}

		items, err := svc.List(r.Context(), actor, envID, d)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}
