// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/chatline/internal/middleware"
	"github.com/hitoshi/chatline/internal/model"
)

// maxBodyBytes はJSONリクエストボディの上限サイズ。
const maxBodyBytes = 1 << 20

// userSummaryResponse は会話ヘッダーやメッセージ送信者のAPIレスポンス。
type userSummaryResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
}

// userResponse は本人向けのユーザー情報のAPIレスポンス。
type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Surname   string    `json:"surname"`
	CreatedAt time.Time `json:"created_at"`
}

// discussionResponse は会話ヘッダーのAPIレスポンス。
type discussionResponse struct {
	ID        int64               `json:"id"`
	User1     userSummaryResponse `json:"user1"`
	User2     userSummaryResponse `json:"user2"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// messageResponse はメッセージのAPIレスポンス。
// 本文または添付のない側はnullになる。
type messageResponse struct {
	ID           int64                `json:"id"`
	DiscussionID int64                `json:"discussion_id"`
	SenderID     int64                `json:"sender_id"`
	Sender       *userSummaryResponse `json:"sender,omitempty"`
	Content      *string              `json:"content"`
	MediaURL     *string              `json:"media_url"`
	MediaType    *string              `json:"media_type"`
	CreatedAt    time.Time            `json:"created_at"`
}

// conversationSummaryResponse は会話一覧の1行のAPIレスポンス。
type conversationSummaryResponse struct {
	ID          int64               `json:"id"`
	OtherUser   userSummaryResponse `json:"other_user"`
	LastMessage *messageResponse    `json:"last_message"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func toUserSummaryResponse(s model.UserSummary) userSummaryResponse {
	return userSummaryResponse{
		ID:       s.ID,
		Username: s.Username,
		Name:     s.Name,
		Surname:  s.Surname,
	}
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Name:      u.Name,
		Surname:   u.Surname,
		CreatedAt: u.CreatedAt,
	}
}

func toDiscussionResponse(d *model.Discussion) *discussionResponse {
	if d == nil {
		return nil
	}
	return &discussionResponse{
		ID:        d.ID,
		User1:     toUserSummaryResponse(d.User1),
		User2:     toUserSummaryResponse(d.User2),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func toMessageResponse(m *model.Message) messageResponse {
	resp := messageResponse{
		ID:           m.ID,
		DiscussionID: m.DiscussionID,
		SenderID:     m.SenderID,
		Content:      optionalString(m.Content),
		MediaURL:     optionalString(m.MediaURL),
		MediaType:    optionalString(m.MediaType),
		CreatedAt:    m.CreatedAt,
	}
	if m.Sender.ID != 0 {
		sender := toUserSummaryResponse(m.Sender)
		resp.Sender = &sender
	}
	return resp
}

func toMessageResponses(msgs []model.Message) []messageResponse {
	results := make([]messageResponse, len(msgs))
	for i := range msgs {
		results[i] = toMessageResponse(&msgs[i])
	}
	return results
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", slog.String("error", err.Error()))
	}
}

// decodeJSON はリクエストボディをvにデコードする。
// 失敗した場合は400を書き込みfalseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました。"))
		return false
	}
	return true
}

// requireUser はコンテキストから認証済みユーザーを取得する。
// 存在しない場合は401を書き込みfalseを返す。
func requireUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return nil, false
	}
	return user, true
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error",
		slog.String("error", err.Error()),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized, model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeDiscussionNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidDiscussionID, model.ErrCodeInvalidCursor,
		model.ErrCodeEmptyMessage, model.ErrCodeInvalidMedia,
		model.ErrCodeSelfDiscussion, model.ErrCodeValidationFailed,
		model.ErrCodeInvalidRequest, model.ErrCodeInvalidQuery,
		model.ErrCodeUsernameTaken, model.ErrCodeEmailTaken:
		return http.StatusBadRequest
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
