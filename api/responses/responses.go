package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/gestion-ambientes/ambientes-backend/pkg/errors"
	"github.com/gestion-ambientes/ambientes-backend/pkg/logger"
)

// RequestIDHeader is set by the request id middleware before any handler
// runs, so error bodies can echo it back.
const RequestIDHeader = "X-Request-Id"

// SuccessEnvelope wraps every 2xx payload.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorEnvelope wraps every non-2xx payload.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, SuccessEnvelope{Data: data})
}

// WriteError renders err with the status its code maps to. Client errors keep
// the caller-facing message; server errors expose only the generic one.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	apiErr := APIError{
		Code:      string(typed.Code()),
		Message:   meta.PublicMessage,
		RequestID: w.Header().Get(RequestIDHeader),
	}
	if meta.HTTPStatus < http.StatusInternalServerError && typed.Message() != "" {
		apiErr.Message = typed.Message()
	}
	if meta.DetailsAllowed {
		apiErr.Details = typed.Details()
	}

	logError(ctx, logg, meta.HTTPStatus, err)
	writeJSON(w, meta.HTTPStatus, ErrorEnvelope{Error: apiErr})
}

// logError records 5xx at error level with the unwrapped cause chain and
// postgres diagnostics; 4xx are expected outcomes and log at warn.
func logError(ctx context.Context, logg *logger.Logger, status int, err error) {
	if logg == nil {
		return
	}
	dump := pkgerrors.Dump(err)
	if status < http.StatusInternalServerError {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"error":      dump.TopMessage,
			"error_code": dump.Code,
			"status":     status,
		}), "request.rejected")
		return
	}
	fields := map[string]any{
		"error_code":  dump.Code,
		"error_chain": dump.Chain,
		"status":      status,
	}
	if dump.PGCode != "" {
		fields["pg_code"] = dump.PGCode
		fields["pg_message"] = dump.PGMessage
		fields["pg_detail"] = dump.PGDetail
		fields["pg_table"] = dump.PGTable
		fields["pg_constraint"] = dump.PGConstraint
	}
	logg.Error(logg.WithFields(ctx, fields), "request.error", err)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// the status line is already out; an encode failure can only be dropped
	_ = json.NewEncoder(w).Encode(payload)
}
