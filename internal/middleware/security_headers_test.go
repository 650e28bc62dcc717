package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSecurityHeadersMiddleware(t *testing.T) {
	handler := NewSecurityHeadersMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		path        string
		wantNoStore bool
	}{
		{"/conversations", true},
		{"/conversations/10?after=3", true},
		{"/auth/me", true},
		{"/users/search?q=al", true},
		{"/username/check", true},
		{"/chat", false},
		{"/login", false},
		{"/health", false},
		{"/metrics", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			h := w.Result().Header
			if got := h.Get("X-Content-Type-Options"); got != "nosniff" {
				t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
			}
			if got := h.Get("X-Frame-Options"); got != "DENY" {
				t.Errorf("X-Frame-Options = %q, want DENY", got)
			}
			if got := h.Get("Content-Security-Policy"); got != pageCSP {
				t.Errorf("Content-Security-Policy = %q", got)
			}
			gotNoStore := h.Get("Cache-Control") == "no-store"
			if gotNoStore != tt.wantNoStore {
				t.Errorf("Cache-Control no-store = %v, want %v", gotNoStore, tt.wantNoStore)
			}
		})
	}
}
