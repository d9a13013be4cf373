package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"kickstore/internal/auth"
	"kickstore/internal/config"

	"github.com/google/uuid"
)

func newTestAuthManager(t *testing.T) *auth.Manager {
	manager, err := auth.NewManager(&config.AuthConfig{
		JWTSecret:   "test-secret-key",
		TokenTTLHrs: 1,
		TokenIssuer: "kickstore-test",
	})
	if err != nil {
		t.Fatalf("failed to create auth manager: %v", err)
	}
	return manager
}

func TestAuthMiddleware(t *testing.T) {
	manager := newTestAuthManager(t)
	userID := uuid.New()

	token, err := manager.GenerateToken(userID, false)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	var gotUser uuid.UUID
	handler := AuthMiddleware(manager, newTestLogger(), func(w http.ResponseWriter, r *http.Request) {
		identity, _ := auth.IdentityFromContext(r.Context())
		gotUser = identity.UserID
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if gotUser != userID {
		t.Fatalf("expected user %s in context, got %s", userID, gotUser)
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	manager := newTestAuthManager(t)

	handler := AuthMiddleware(manager, newTestLogger(), func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	})

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not.a.jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", w.Code)
			}
		})
	}
}

func TestAdminMiddleware(t *testing.T) {
	reached := false
	handler := AdminMiddleware(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})

	req := withIdentity(httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil), uuid.New(), true)
	w := httptest.NewRecorder()

	handler(w, req)

	if w.Code != http.StatusOK || !reached {
		t.Fatalf("expected admin to pass, got %d", w.Code)
	}
}

func TestAdminMiddleware_Forbidden(t *testing.T) {
	handler := AdminMiddleware(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	})

	req := withIdentity(httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil), uuid.New(), false)
	w := httptest.NewRecorder()

	handler(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}
