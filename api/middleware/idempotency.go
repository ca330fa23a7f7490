package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gestion-ambientes/ambientes-backend/api/responses"
	pkgerrors "github.com/gestion-ambientes/ambientes-backend/pkg/errors"
	"github.com/gestion-ambientes/ambientes-backend/pkg/logger"
)

const (
	idempotencyHeader     = "Idempotency-Key"
	defaultIdempotencyTTL = 24 * time.Hour
)

// RequestStore persists replayable responses keyed per caller.
type RequestStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	RequestKey(userID, key string) string
}

type routeMatcher func(string) bool

type idempotencyRule struct {
	method  string
	matcher routeMatcher
}

var idempotencyRules = []idempotencyRule{
	{method: http.MethodPost, matcher: matchExact("/api/v1/inventory-checks")},
	{method: http.MethodPost, matcher: matchExact("/api/v1/inventory-checks/by-schedule")},
	{method: http.MethodPut, matcher: matchPrefixSuffix("/api/v1/inventory-checks/", "/confirm")},
	{method: http.MethodPut, matcher: matchPrefixSuffix("/api/v1/inventory-checks/", "/assign-role")},
	{method: http.MethodPut, matcher: matchPrefixSuffix("/api/v1/inventory-checks/", "/supervisor-approve")},
	{method: http.MethodPost, matcher: matchExact("/api/v1/inventory-check-items")},
	{method: http.MethodPost, matcher: matchExact("/api/v1/inventory-check-items/batch")},
}

type idempotencyRecord struct {
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

// Idempotency replays the stored response when a workflow write is retried
// with the same Idempotency-Key. Requests without the header pass through.
// Only 2xx responses are stored.
func Idempotency(store RequestStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if store == nil || key == "" || !idempotentRoute(r.Method, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			userID := UserIDFromContext(r.Context())
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashBody(r.Method, r.URL.Path, body)
			storeKey := store.RequestKey(userID, key)

			stored, getErr := store.Get(r.Context(), storeKey)
			if getErr != nil && !errors.Is(getErr, redis.Nil) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, getErr, "check idempotency"))
				return
			}
			if stored != "" {
				record, decodeErr := decodeRecord(stored)
				if decodeErr != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, decodeErr, "decode idempotency record"))
					return
				}
				if record.RequestHash != requestHash {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request"))
					return
				}
				w.Header().Set("Idempotent-Replayed", "true")
				writeStoredResponse(w, record)
				return
			}

			rec := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := defaultStatus(rec.status)
			if status < 200 || status >= 300 {
				return
			}
			record := idempotencyRecord{
				Status:      status,
				Body:        base64.StdEncoding.EncodeToString(rec.body.Bytes()),
				RequestHash: requestHash,
			}
			if ct := rec.Header().Get("Content-Type"); ct != "" {
				record.Headers = map[string]string{"Content-Type": ct}
			}

			payload, marshalErr := json.Marshal(record)
			if marshalErr != nil {
				logError(r.Context(), logg, "marshal idempotency record", marshalErr)
				return
			}
			if _, setErr := store.SetNX(r.Context(), storeKey, string(payload), ttl); setErr != nil {
				logError(r.Context(), logg, "persist idempotency record", setErr)
			}
		})
	}
}

func idempotentRoute(method, path string) bool {
	path = strings.TrimRight(path, "/")
	for _, rule := range idempotencyRules {
		if rule.method == method && rule.matcher(path) {
			return true
		}
	}
	return false
}

func decodeRecord(payload string) (*idempotencyRecord, error) {
	var record idempotencyRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func writeStoredResponse(w http.ResponseWriter, record *idempotencyRecord) {
	if ct, ok := record.Headers["Content-Type"]; ok && ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(record.Status)
	if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

// hashBody binds the key to the route as well as the payload so one key
// cannot replay a response for a different endpoint.
func hashBody(method, path string, payload []byte) string {
	h := sha256.New()
	h.Write([]byte(method + " " + strings.TrimRight(path, "/") + "\n"))
	h.Write(payload)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func defaultStatus(value int) int {
	if value == 0 {
		return http.StatusOK
	}
	return value
}

func matchExact(path string) routeMatcher {
	return func(p string) bool {
		return p == path
	}
}

func matchPrefixSuffix(prefix, suffix string) routeMatcher {
	return func(p string) bool {
		return strings.HasPrefix(p, prefix) && strings.HasSuffix(p, suffix)
	}
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
