// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hitoshi/chatline/internal/model"
)

// DefaultSessionCookieName はセッションCookieの既定名。
const DefaultSessionCookieName = "session"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userContextKey はリクエストコンテキストに認証済みユーザーを格納するためのキー。
var userContextKey = contextKey("user")

// SessionResolver は生トークンからユーザーを解決するインターフェース。
// 解決できない場合（期限切れ、不明、ストア障害）はnilを返す。
type SessionResolver interface {
	Resolve(ctx context.Context, rawToken string) *model.User
}

// NewSessionMiddleware はCookieのセッショントークンをユーザーに解決するミドルウェアを返す。
// 認証済みユーザーをリクエストコンテキストに注入し、未認証リクエストには401を返す。
func NewSessionMiddleware(resolver SessionResolver, cookieName string) func(next http.Handler) http.Handler {
	if cookieName == "" {
		cookieName = DefaultSessionCookieName
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			user := resolver.Resolve(r.Context(), cookie.Value)
			if user == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// アクセスログにユーザーIDを残す
			if info := requestInfoFromContext(r.Context()); info != nil {
				info.userID = user.ID
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

// UserFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (int64, error) {
	user, ok := UserFromContext(ctx)
	if !ok {
		return 0, fmt.Errorf("user not found in context")
	}
	return user.ID, nil
}

// ContextWithUser はコンテキストに認証済みユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
