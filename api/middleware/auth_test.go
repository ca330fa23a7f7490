package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gestion-ambientes/ambientes-backend/pkg/auth"
	"github.com/gestion-ambientes/ambientes-backend/pkg/config"
	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWT, nil)(okHandler())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWT, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsTokenFromOtherIssuer(t *testing.T) {
	other := testJWT
	other.Issuer = "someone-else"
	token := mintTestToken(t, other, uuid.New(), enums.UserRoleStudent)
	handler := Auth(testJWT, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthSeedsActor(t *testing.T) {
	userID := uuid.New()
	token := mintTestToken(t, testJWT, userID, enums.UserRoleInstructor)

	var captured auth.Actor
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.UserID != userID {
		t.Fatalf("expected user %s got %s", userID, captured.UserID)
	}
	if captured.Role != enums.UserRoleInstructor {
		t.Fatalf("expected instructor got %s", captured.Role)
	}
}

func TestRequireRoles(t *testing.T) {
	handler := RequireRoles(nil, enums.UserRoleSupervisor, enums.UserRoleAdmin)(okHandler())

	cases := []struct {
		name  string
		actor *auth.Actor
		want  int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"student", &auth.Actor{UserID: uuid.New(), Role: enums.UserRoleStudent}, http.StatusForbidden},
		{"supervisor", &auth.Actor{UserID: uuid.New(), Role: enums.UserRoleSupervisor}, http.StatusOK},
		{"admin", &auth.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}, http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPut, "/", nil)
		if tc.actor != nil {
			req = req.WithContext(WithActor(req.Context(), *tc.actor))
		}
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != tc.want {
			t.Fatalf("%s: expected %d got %d", tc.name, tc.want, resp.Code)
		}
	}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, userID uuid.UUID, role enums.UserRole) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{UserID: userID, Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		token string
		ok    bool
	}{
		"Bearer abc":     {"abc", true},
		"bearer   abc  ": {"abc", true},
		"Basic abc":      {"", false},
		"abc":            {"", false},
		"Bearer ":        {"", false},
	}
	for header, want := range cases {
		token, ok := bearerToken(header)
		if token != want.token || ok != want.ok {
			t.Fatalf("%q: got (%q, %v) want (%q, %v)", header, token, ok, want.token, want.ok)
		}
	}
}

func TestAuthWithoutSecretFailsClosed(t *testing.T) {
	handler := Auth(config.JWTConfig{Issuer: "issuer"}, nil)(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}
