package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/chatline/internal/auth"
	"github.com/hitoshi/chatline/internal/middleware"
	"github.com/hitoshi/chatline/internal/model"
)

// redirectAfterAuth はサインアップ・ログイン成功後の遷移先。
const redirectAfterAuth = middleware.PathChat

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Signup(ctx context.Context, in auth.SignupInput) (*model.User, *auth.Issued, error)
	Login(ctx context.Context, in auth.LoginInput) (*model.User, *auth.Issued, error)
	Logout(ctx context.Context, rawToken string) error
}

// AccountLifecycleInterface はアカウント停止・削除のサービスインターフェース。
type AccountLifecycleInterface interface {
	Deactivate(ctx context.Context, userID int64) error
	DeleteAccount(ctx context.Context, userID int64) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieName    string
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge time.Duration
}

// AuthHandler はサインアップ・ログイン・ログアウトとアカウント操作のHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	accounts AccountLifecycleInterface
	config   AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, accounts AccountLifecycleInterface, config AuthHandlerConfig) *AuthHandler {
	if config.CookieName == "" {
		config.CookieName = middleware.DefaultSessionCookieName
	}
	return &AuthHandler{
		service:  service,
		accounts: accounts,
		config:   config,
	}
}

// signupRequest はサインアップリクエストのボディ。
type signupRequest struct {
	Name            string `json:"name"`
	Surname         string `json:"surname"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// loginRequest はログインリクエストのボディ。loginはusernameまたはemail。
type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// authSuccessResponse は認証成功時のレスポンス。
type authSuccessResponse struct {
	Success    bool         `json:"success"`
	User       userResponse `json:"user"`
	RedirectTo string       `json:"redirect_to"`
}

// successResponse は本文を持たない成功レスポンス。
type successResponse struct {
	Success bool `json:"success"`
}

// Signup はユーザーを登録し、セッションCookieを発行する。
// POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, issued, err := h.service.Signup(r.Context(), auth.SignupInput{
		Name:            req.Name,
		Surname:         req.Surname,
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.setSessionCookie(w, issued)
	writeJSON(w, http.StatusOK, authSuccessResponse{
		Success:    true,
		User:       toUserResponse(user),
		RedirectTo: redirectAfterAuth,
	})
}

// Login は認証してセッションCookieを発行する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, issued, err := h.service.Login(r.Context(), auth.LoginInput{
		Login:    req.Login,
		Password: req.Password,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.setSessionCookie(w, issued)
	writeJSON(w, http.StatusOK, authSuccessResponse{
		Success:    true,
		User:       toUserResponse(user),
		RedirectTo: redirectAfterAuth,
	})
}

// Logout はセッションを破棄してCookieをクリアする。
// セッションが存在しない場合も成功とする。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.config.CookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			// ログアウト失敗してもCookieはクリアする
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
		}
	}

	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Deactivate はユーザーの全セッションを破棄する。
// POST /auth/deactivate
func (h *AuthHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.accounts.Deactivate(r.Context(), user.ID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// DeleteAccount はユーザーと関連データを削除する。
// POST /auth/delete-account
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.accounts.DeleteAccount(r.Context(), user.ID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// setSessionCookie はセッションCookieを設定する（HTTP Only, SameSite=Lax）。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, issued *auth.Issued) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.config.CookieName,
		Value:    issued.Token,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		Expires:  issued.ExpiresAt,
		MaxAge:   int(h.config.SessionMaxAge / time.Second),
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie はセッションCookieを削除する。
func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.config.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
