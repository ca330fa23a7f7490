package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestion-ambientes/ambientes-backend/api/responses"
	"github.com/gestion-ambientes/ambientes-backend/pkg/logger"
)

func TestRequestIDEchoesUsableHeader(t *testing.T) {
	handler := RequestID(nil)(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(responses.RequestIDHeader, "req-123")
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	assert.Equal(t, "req-123", resp.Header().Get(responses.RequestIDHeader))
}

func TestRequestIDReplacesUnusableHeader(t *testing.T) {
	cases := map[string]string{
		"empty":   "",
		"spaces":  "has spaces",
		"control": "bad\x01id",
		"long":    strings.Repeat("a", maxRequestIDLen+1),
	}
	for name, incoming := range cases {
		t.Run(name, func(t *testing.T) {
			handler := RequestID(nil)(okHandler())
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(responses.RequestIDHeader, incoming)
			resp := httptest.NewRecorder()

			handler.ServeHTTP(resp, req)
			got := resp.Header().Get(responses.RequestIDHeader)
			_, err := uuid.Parse(got)
			assert.NoError(t, err, "expected generated uuid, got %q", got)
		})
	}
}

func TestRecovererWritesInternalEnvelope(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	handler := RequestID(logg)(Recoverer(logg)(panicking))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory-checks", nil)
	req.Header.Set(responses.RequestIDHeader, "req-panic")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Contains(t, resp.Body.String(), `"request_id":"req-panic"`)
	assert.NotContains(t, resp.Body.String(), "boom")
	assert.Contains(t, buf.String(), "request.panic")
	assert.Contains(t, buf.String(), `"request_id":"req-panic"`)
}

func TestRecovererRethrowsAbortHandler(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
