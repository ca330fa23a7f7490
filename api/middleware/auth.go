package middleware

import (
	"net/http"
	"strings"

	"github.com/gestion-ambientes/ambientes-backend/api/responses"
	pkgAuth "github.com/gestion-ambientes/ambientes-backend/pkg/auth"
	"github.com/gestion-ambientes/ambientes-backend/pkg/config"
	pkgerrors "github.com/gestion-ambientes/ambientes-backend/pkg/errors"
	"github.com/gestion-ambientes/ambientes-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the
// actor. A misconfigured verifier rejects every request.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	verifier, verifierErr := pkgAuth.NewVerifier(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifierErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, verifierErr, "token verification unavailable"))
				return
			}
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			claims, err := verifier.Verify(token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			actor := pkgAuth.ActorFromClaims(claims)
			ctx := WithActor(r.Context(), actor)
			if logg != nil {
				ctx = logg.WithUserID(ctx, actor.UserID.String())
				ctx = logg.WithActorRole(ctx, string(actor.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
