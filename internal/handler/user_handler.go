package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/chatline/internal/account"
	"github.com/hitoshi/chatline/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	Me(ctx context.Context, userID int64) (*model.User, error)
	UpdateProfile(ctx context.Context, userID int64, in account.ProfileInput) (*model.User, error)
	Search(ctx context.Context, userID int64, query string) ([]model.User, error)
	ListOthers(ctx context.Context, userID int64) ([]model.User, error)
}

// UserHandler はユーザー一覧・検索・プロフィールのHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

type userListResponse struct {
	Users []userSummaryResponse `json:"users"`
}

type updateProfileRequest struct {
	Name    *string `json:"name"`
	Surname *string `json:"surname"`
	Email   *string `json:"email"`
}

// ListUsers は自分以外のユーザー一覧を返す。
// GET /users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	users, err := h.service.ListOthers(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserListResponse(users))
}

// SearchUsers はユーザーを検索する。
// GET /users/search?q=
func (h *UserHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	users, err := h.service.Search(r.Context(), user.ID, r.URL.Query().Get("q"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserListResponse(users))
}

// GetMe は自分のプロフィールを返す。
// GET /users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	me, err := h.service.Me(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(me))
}

// UpdateMe は自分のプロフィールを部分更新する。
// PATCH /users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.service.UpdateProfile(r.Context(), user.ID, account.ProfileInput{
		Name:    req.Name,
		Surname: req.Surname,
		Email:   req.Email,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(updated))
}

func toUserListResponse(users []model.User) userListResponse {
	results := make([]userSummaryResponse, len(users))
	for i := range users {
		results[i] = toUserSummaryResponse(users[i].Summary())
	}
	return userListResponse{Users: results}
}
