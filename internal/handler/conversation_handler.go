package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/chatline/internal/conversation"
	"github.com/hitoshi/chatline/internal/middleware"
	"github.com/hitoshi/chatline/internal/model"
)

// ConversationServiceInterface は会話ハンドラーが必要とするサービスインターフェース。
type ConversationServiceInterface interface {
	List(ctx context.Context, userID int64) ([]model.ConversationSummary, error)
	Create(ctx context.Context, userID, otherUserID int64) (*model.Discussion, bool, error)
	GetMessages(ctx context.Context, discussionID, userID, after int64) (*conversation.Page, error)
	Send(ctx context.Context, discussionID, userID int64, in conversation.SendInput) (*model.Message, error)
}

// ConversationHandler は会話とメッセージのHTTPハンドラー。
type ConversationHandler struct {
	service ConversationServiceInterface
}

// NewConversationHandler はConversationHandlerを生成する。
func NewConversationHandler(service ConversationServiceInterface) *ConversationHandler {
	return &ConversationHandler{service: service}
}

type createConversationRequest struct {
	OtherUserID int64 `json:"other_user_id"`
}

type sendMessageRequest struct {
	Content   string `json:"content"`
	MediaURL  string `json:"media_url"`
	MediaType string `json:"media_type"`
}

type conversationListResponse struct {
	Conversations []conversationSummaryResponse `json:"conversations"`
}

// messagesResponse は差分取得エンドポイントのレスポンス。
// discussionはフル取得時のみ含まれる。
type messagesResponse struct {
	Discussion *discussionResponse `json:"discussion,omitempty"`
	Messages   []messageResponse   `json:"messages"`
	HasMore    bool                `json:"has_more"`
}

// ListConversations はユーザーの会話一覧を返す。
// GET /conversations
func (h *ConversationHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	summaries, err := h.service.List(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	results := make([]conversationSummaryResponse, len(summaries))
	for i, s := range summaries {
		results[i] = conversationSummaryResponse{
			ID:        s.ID,
			OtherUser: toUserSummaryResponse(s.OtherUser),
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		}
		if s.LastMessage != nil {
			last := toMessageResponse(s.LastMessage)
			results[i].LastMessage = &last
		}
	}

	writeJSON(w, http.StatusOK, conversationListResponse{Conversations: results})
}

// CreateConversation は相手ユーザーとの会話を作成する。
// 既存の会話がある場合は200、新規作成時は201を返す。
// POST /conversations
func (h *ConversationHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req createConversationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.OtherUserID <= 0 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("other_user_id には正の整数を指定してください。"))
		return
	}

	d, created, err := h.service.Create(r.Context(), user.ID, req.OtherUserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, toDiscussionResponse(d))
}

// GetMessages は会話のメッセージを返す。
// afterを省略または0以下にした場合は会話ヘッダー付きのフル取得、
// afterを指定した場合はIDがafterより大きいメッセージのみを返す。
// GET /conversations/{id}?after=N
func (h *ConversationHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	discussionID, ok := parseDiscussionID(w, r)
	if !ok {
		return
	}

	var after int64
	if raw := r.URL.Query().Get("after"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidCursorError(raw))
			return
		}
		after = max(v, 0)
	}

	page, err := h.service.GetMessages(r.Context(), discussionID, user.ID, after)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messagesResponse{
		Discussion: toDiscussionResponse(page.Discussion),
		Messages:   toMessageResponses(page.Messages),
		HasMore:    page.HasMore,
	})
}

// SendMessage は会話にメッセージを送信する。
// POST /conversations/{id}
func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	discussionID, ok := parseDiscussionID(w, r)
	if !ok {
		return
	}

	var req sendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.service.Send(r.Context(), discussionID, user.ID, conversation.SendInput{
		Content:   req.Content,
		MediaURL:  req.MediaURL,
		MediaType: req.MediaType,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toMessageResponse(msg))
}

// parseDiscussionID はURLパスの会話IDを正の整数として解析する。
func parseDiscussionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidDiscussionIDError(raw))
		return 0, false
	}
	return id, true
}
