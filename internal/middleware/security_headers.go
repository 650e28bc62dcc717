package middleware

import (
	"net/http"
	"strings"
)

// pageCSP はページシェル用のContent-Security-Policy。
// スクリプトは同一オリジンのみ、メディアはhttp(s)の外部URLを許可する。
const pageCSP = "default-src 'self'; img-src 'self' https: http:; media-src 'self' https: http:; frame-ancestors 'none'"

// NewSecurityHeadersMiddleware はセキュリティ関連のHTTPレスポンスヘッダーを付与するミドルウェアを返す。
// APIレスポンスはメッセージ本文を含むため、/metricsとページ以外はキャッシュを禁止する。
func NewSecurityHeadersMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			h.Set("Content-Security-Policy", pageCSP)
			if isAPIPath(r.URL.Path) {
				h.Set("Cache-Control", "no-store")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// isAPIPath はJSONを返すパスかどうかを判定する。
func isAPIPath(path string) bool {
	for _, prefix := range []string{"/auth/", "/conversations", "/users", "/username/", "/email/"} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
