package controllers

import (
	"net/http"

	"github.com/gestion-ambientes/ambientes-backend/api/middleware"
	"github.com/gestion-ambientes/ambientes-backend/api/responses"
	"github.com/gestion-ambientes/ambientes-backend/pkg/auth"
	pkgerrors "github.com/gestion-ambientes/ambientes-backend/pkg/errors"
	"github.com/gestion-ambientes/ambientes-backend/pkg/logger"
)

// requireActor writes a 401 and returns false when the request carries no caller.
func requireActor(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (auth.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return auth.Actor{}, false
	}
	return actor, true
}
