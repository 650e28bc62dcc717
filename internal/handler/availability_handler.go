package handler

import (
	"context"
	"net/http"
	"strings"
)

// AvailabilityServiceInterface はusername/emailの利用可否チェックのサービスインターフェース。
type AvailabilityServiceInterface interface {
	UsernameAvailable(ctx context.Context, username string) bool
	EmailAvailable(ctx context.Context, email string) bool
}

// AvailabilityHandler はサインアップフォームの利用可否チェックのHTTPハンドラー。
// 認証不要。エラー時も常に200で available=false を返す。
type AvailabilityHandler struct {
	service AvailabilityServiceInterface
}

// NewAvailabilityHandler はAvailabilityHandlerを生成する。
func NewAvailabilityHandler(service AvailabilityServiceInterface) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

type availabilityResponse struct {
	Available bool `json:"available"`
}

// CheckUsername はusernameが未使用かどうかを返す。
// POST /username/check
func (h *AvailabilityHandler) CheckUsername(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	username := strings.TrimSpace(req.Username)
	available := username != "" && h.service.UsernameAvailable(r.Context(), username)
	writeJSON(w, http.StatusOK, availabilityResponse{Available: available})
}

// CheckEmail はemailが未登録かどうかを返す。
// POST /email/check
func (h *AvailabilityHandler) CheckEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	email := strings.TrimSpace(req.Email)
	available := email != "" && h.service.EmailAvailable(r.Context(), email)
	writeJSON(w, http.StatusOK, availabilityResponse{Available: available})
}
