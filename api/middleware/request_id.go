package middleware

import (
	"net/http"
	"unicode"

	"github.com/google/uuid"

	"github.com/gestion-ambientes/ambientes-backend/api/responses"
	"github.com/gestion-ambientes/ambientes-backend/pkg/logger"
)

const maxRequestIDLen = 128

// RequestID echoes a caller supplied X-Request-Id when it is usable and mints
// one otherwise. The id is attached to the response and to the log context.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(responses.RequestIDHeader)
			if !usableRequestID(id) {
				id = uuid.NewString()
			}
			w.Header().Set(responses.RequestIDHeader, id)

			if logg == nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(logg.WithRequestID(r.Context(), id)))
		})
	}
}

func usableRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, c := range id {
		if c > unicode.MaxASCII || !unicode.IsPrint(c) || unicode.IsSpace(c) {
			return false
		}
	}
	return true
}
