package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		header     string
		wantCalled bool
		wantErr    string
	}{
		{"missing header", "secret-token", "", false, "missing authorization header"},
		{"basic scheme", "secret-token", "Basic dXNlcjpwYXNz", false, "invalid authorization format"},
		{"no token part", "secret-token", "Bearer", false, "invalid authorization format"},
		{"wrong token", "secret-token", "Bearer wrong-token", false, "invalid token"},
		{"valid token", "secret-token", "Bearer secret-token", true, ""},
		{"lowercase scheme", "secret-token", "bearer secret-token", true, ""},
		{"auth disabled", "", "", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.BearerToken = tt.configured
			srv := testServer(cfg, &mockController{})

			called := false
			handler := srv.withAuth(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest("GET", "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler(w, req)

			if called != tt.wantCalled {
				t.Errorf("handler called = %v, want %v", called, tt.wantCalled)
			}
			if tt.wantCalled {
				if w.Code != http.StatusOK {
					t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
				}
				return
			}
			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
			}
			if got := decodeError(t, w); got != tt.wantErr {
				t.Errorf("error = %q, want %q", got, tt.wantErr)
			}
		})
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	srv := testServer(testConfig(), &mockController{})

	for _, route := range []struct{ method, path string }{
		{"GET", "/v1/status"},
		{"POST", "/v1/speak"},
		{"POST", "/v1/pause"},
		{"POST", "/v1/stop"},
		{"POST", "/v1/save"},
	} {
		req := httptest.NewRequest(route.method, route.path, nil)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without auth: status %d, want %d", route.method, route.path, w.Code, http.StatusUnauthorized)
		}
	}
}
