package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/gestion-ambientes/ambientes-backend/pkg/errors"
	"github.com/gestion-ambientes/ambientes-backend/pkg/logger"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var body ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body.Error
}

func TestWriteSuccessStatus(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]string{"status": "instructor_review"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var body SuccessEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "instructor_review", body.Data.(map[string]any)["status"])
}

func TestWriteErrorStatusByCode(t *testing.T) {
	cases := map[pkgerrors.Code]int{
		pkgerrors.CodeValidation:    http.StatusBadRequest,
		pkgerrors.CodeUnauthorized:  http.StatusUnauthorized,
		pkgerrors.CodeForbidden:     http.StatusForbidden,
		pkgerrors.CodeNotFound:      http.StatusNotFound,
		pkgerrors.CodeConflict:      http.StatusConflict,
		pkgerrors.CodeStateConflict: http.StatusUnprocessableEntity,
		pkgerrors.CodeIdempotency:   http.StatusConflict,
		pkgerrors.CodeDependency:    http.StatusServiceUnavailable,
	}
	for code, status := range cases {
		t.Run(string(code), func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(context.Background(), nil, w, pkgerrors.New(code, "caller message"))
			assert.Equal(t, status, w.Code)
			got := decodeError(t, w)
			assert.Equal(t, string(code), got.Code)
			if status < http.StatusInternalServerError {
				assert.Equal(t, "caller message", got.Message)
			} else {
				assert.NotEqual(t, "caller message", got.Message)
			}
		})
	}
}

func TestWriteErrorKeepsValidationDetails(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
		WithDetails(map[string]string{"environment_id": "is required"})
	WriteError(context.Background(), nil, w, err)

	got := decodeError(t, w)
	assert.Equal(t, map[string]any{"environment_id": "is required"}, got.Details)
}

func TestWriteErrorHidesUntypedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	w.Header().Set(RequestIDHeader, "req-1")
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})

	WriteError(context.Background(), logg, w, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	got := decodeError(t, w)
	assert.Equal(t, string(pkgerrors.CodeInternal), got.Code)
	assert.NotContains(t, got.Message, "connection refused")
	assert.Nil(t, got.Details)
	assert.Equal(t, "req-1", got.RequestID)
	assert.Contains(t, buf.String(), "request.error")
}

func TestWriteErrorLogsClientErrorsAsWarnings(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})

	WriteError(context.Background(), logg, httptest.NewRecorder(), pkgerrors.New(pkgerrors.CodeNotFound, "check not found"))

	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "request.rejected")
}
