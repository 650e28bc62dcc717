package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/chatline/internal/metrics"
	"github.com/hitoshi/chatline/internal/model"
)

// --- モック定義 ---

type mockSessionResolver struct {
	resolveFn func(ctx context.Context, rawToken string) *model.User
	calls     int
}

func (m *mockSessionResolver) Resolve(ctx context.Context, rawToken string) *model.User {
	m.calls++
	if m.resolveFn != nil {
		return m.resolveFn(ctx, rawToken)
	}
	return nil
}

var _ SessionResolver = (*mockSessionResolver)(nil)

// recordingCollector はHTTP系メトリクスの記録内容を保持するテスト用コレクター。
type recordingCollector struct {
	metrics.Nop
	statuses  []int
	latencies int
}

func (c *recordingCollector) RecordHTTPStatus(code int) {
	c.statuses = append(c.statuses, code)
}

func (c *recordingCollector) RecordRequestLatency(time.Duration) {
	c.latencies++
}

// requestAs は認証済みユーザーをコンテキストに持つリクエストを生成する。
func requestAs(method, target string, userID int64) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return req.WithContext(ContextWithUser(req.Context(), &model.User{ID: userID}))
}

// --- テスト ---

func TestSessionMiddleware_ValidSession_InjectsUser(t *testing.T) {
	resolver := &mockSessionResolver{
		resolveFn: func(_ context.Context, rawToken string) *model.User {
			if rawToken == "valid-token" {
				return &model.User{ID: 123, Username: "alice"}
			}
			return nil
		},
	}

	mw := NewSessionMiddleware(resolver, "session")

	var captured *model.User
	var capturedID int64
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			t.Error("expected user in context")
		}
		captured = user
		id, err := UserIDFromContext(r.Context())
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		capturedID = id
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "valid-token"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if captured == nil || captured.Username != "alice" {
		t.Errorf("user = %+v, want alice", captured)
	}
	if capturedID != 123 {
		t.Errorf("userID = %d, want 123", capturedID)
	}
}

func TestSessionMiddleware_NoCookie_Returns401WithoutResolving(t *testing.T) {
	resolver := &mockSessionResolver{}
	mw := NewSessionMiddleware(resolver, "session")

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/conversations", nil))

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
	if resolver.calls != 0 {
		t.Errorf("resolver calls = %d, want 0", resolver.calls)
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Code != model.ErrCodeUnauthorized {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeUnauthorized)
	}
}

func TestSessionMiddleware_EmptyCookie_Returns401(t *testing.T) {
	resolver := &mockSessionResolver{}
	handler := NewSessionMiddleware(resolver, "session")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: ""})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestSessionMiddleware_UnresolvedToken_Returns401(t *testing.T) {
	resolver := &mockSessionResolver{}
	handler := NewSessionMiddleware(resolver, "session")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "expired-token"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
	if resolver.calls != 1 {
		t.Errorf("resolver calls = %d, want 1", resolver.calls)
	}
}

func TestSessionMiddleware_CustomCookieName(t *testing.T) {
	resolver := &mockSessionResolver{
		resolveFn: func(_ context.Context, _ string) *model.User {
			return &model.User{ID: 1}
		},
	}
	handler := NewSessionMiddleware(resolver, "chat_sid")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// 既定名のCookieは無視される
	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "token"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("default cookie: status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}

	req = httptest.NewRequest(http.MethodGet, "/conversations", nil)
	req.AddCookie(&http.Cookie{Name: "chat_sid", Value: "token"})
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("custom cookie: status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestUserIDFromContext_NoUser(t *testing.T) {
	if _, err := UserIDFromContext(context.Background()); err == nil {
		t.Error("expected error for context without user")
	}
	if _, ok := UserFromContext(context.Background()); ok {
		t.Error("expected ok=false for context without user")
	}
}

func TestContextWithUser(t *testing.T) {
	ctx := ContextWithUser(context.Background(), &model.User{ID: 456})

	userID, err := UserIDFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if userID != 456 {
		t.Errorf("userID = %d, want 456", userID)
	}
}
