package middleware

import "net/http"

// corsAllowedMethods はAPIが受け付けるメソッド。PATCHは /users/me のみで使う。
const corsAllowedMethods = "GET, POST, PATCH, OPTIONS"

// NewCORSMiddleware は指定されたオリジンに対するCORSミドルウェアを返す。
// セッションCookieを送らせるためワイルドカード(*)は使わず、
// Originが一致する場合（または同一オリジンでOriginなしの場合）のみ許可ヘッダーを付ける。
// OPTIONSプリフライトは一致すれば204、不一致なら403で応答する。
func NewCORSMiddleware(allowedOrigin string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := origin == "" || origin == allowedOrigin

			h := w.Header()
			h.Add("Vary", "Origin")
			if allowed {
				h.Set("Access-Control-Allow-Origin", allowedOrigin)
				h.Set("Access-Control-Allow-Methods", corsAllowedMethods)
				h.Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)
				// ポーリングクライアントが429の待機時間を読めるようにする
				h.Set("Access-Control-Expose-Headers", RequestIDHeader+", Retry-After")
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Max-Age", "86400")
			}

			if r.Method == http.MethodOptions {
				if !allowed {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
