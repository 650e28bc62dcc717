package middleware

import (
	"net/http"
	"strings"
)

// ページルートのパス
const (
	PathHome     = "/"
	PathLogin    = "/login"
	PathRegister = "/register"
	PathChat     = "/chat"
)

// NewSessionGuard はページルートに対するCookieの有無のみの事前チェックを行うミドルウェアを返す。
// トークンの有効性は検証しない。有効性はAPI側のセッションミドルウェアで判定する。
//
//   - /chat 配下にCookieなしでアクセスした場合は /login へリダイレクト
//   - /login, /register 配下にCookieありでアクセスした場合は / へリダイレクト
//   - それ以外はそのまま通過
func NewSessionGuard(cookieName string) func(next http.Handler) http.Handler {
	if cookieName == "" {
		cookieName = DefaultSessionCookieName
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hasCookie := false
			if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
				hasCookie = true
			}

			path := r.URL.Path
			switch {
			case underPath(path, PathChat) && !hasCookie:
				http.Redirect(w, r, PathLogin, http.StatusSeeOther)
				return
			case (underPath(path, PathLogin) || underPath(path, PathRegister)) && hasCookie:
				http.Redirect(w, r, PathHome, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// underPath はpathがbase自身またはその配下かを返す。/chatter は /chat の配下ではない。
func underPath(path, base string) bool {
	return path == base || strings.HasPrefix(path, base+"/")
}
