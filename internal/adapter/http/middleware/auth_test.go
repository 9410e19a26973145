package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iho/ledgerbot/internal/infrastructure/auth"
)

const testSubject = "TR120006200000000000000001"

func issue(t *testing.T, m *auth.JWTManager) string {
	t.Helper()
	token, err := m.Generate(testSubject, "cus-demo")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return token
}

func TestAuthMiddleware(t *testing.T) {
	manager := auth.NewJWTManager("secret", time.Minute)
	token := issue(t, manager)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "bearer " + token, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Principal
			h := AuthMiddleware(manager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = PrincipalFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rr.Code)
			}
			if tt.wantStatus == http.StatusOK && (got.Subject != testSubject || got.CustomerID != "cus-demo") {
				t.Fatalf("unexpected principal %+v", got)
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	manager := auth.NewJWTManager("secret", time.Minute)

	var seen bool
	h := OptionalAuth(manager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, seen = PrincipalFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || seen {
		t.Fatalf("expected anonymous pass-through, got code=%d principal=%v", rr.Code, seen)
	}

	req.Header.Set("Authorization", "Bearer "+issue(t, manager))
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !seen {
		t.Fatalf("expected principal for a valid token")
	}
}
