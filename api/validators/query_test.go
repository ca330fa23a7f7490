package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/gestion-ambientes/ambientes-backend/pkg/errors"
)

func TestParseQueryInt(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?limit=10&bad=x&big=900", nil)

	v, err := ParseQueryInt(r, "limit", 25, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	v, err = ParseQueryInt(r, "missing", 25, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 25, v)

	_, err = ParseQueryInt(r, "bad", 25, 1, 100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = ParseQueryInt(r, "big", 25, 1, 100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseQueryUUIDAndDate(t *testing.T) {
	id := uuid.New()
	r := httptest.NewRequest(http.MethodGet, "/?environment_id="+id.String()+"&date=2026-03-10&bad_date=10/03/2026&bad_id=x", nil)

	got, err := ParseQueryUUID(r, "environment_id")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, *got)

	none, err := ParseQueryUUID(r, "schedule_id")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = ParseQueryUUID(r, "bad_id")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	day, err := ParseQueryDate(r, "date")
	require.NoError(t, err)
	require.NotNil(t, day)
	assert.Equal(t, time.March, day.Month)
	assert.Equal(t, 10, day.Day)

	_, err = ParseQueryDate(r, "bad_date")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseQueryBool(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?unread_only=true&bad=maybe", nil)
	v, err := ParseQueryBool(r, "unread_only")
	require.NoError(t, err)
	assert.True(t, v)

	_, err = ParseQueryBool(r, "bad")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParsePathUUID(t *testing.T) {
	id := uuid.New()
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id.String())
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

	got, err := ParsePathUUID(r, "id")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParsePathUUID(r, "other")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
