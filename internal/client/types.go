package client

import "time"

// UserSummary は会話ヘッダーやメッセージ送信者として返されるユーザー情報。
type UserSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
}

// User は本人向けのユーザー情報。
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Surname   string    `json:"surname"`
	CreatedAt time.Time `json:"created_at"`
}

// Discussion は会話ヘッダー。
type Discussion struct {
	ID        int64       `json:"id"`
	User1     UserSummary `json:"user1"`
	User2     UserSummary `json:"user2"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Other はuserIDから見た相手側の参加者を返す。
func (d *Discussion) Other(userID int64) UserSummary {
	if d.User1.ID == userID {
		return d.User2
	}
	return d.User1
}

// Message は会話内の1件のメッセージ。
// 本文または添付がない側は空文字になる。
type Message struct {
	ID           int64        `json:"id"`
	DiscussionID int64        `json:"discussion_id"`
	SenderID     int64        `json:"sender_id"`
	Sender       *UserSummary `json:"sender,omitempty"`
	Content      string       `json:"content"`
	MediaURL     string       `json:"media_url"`
	MediaType    string       `json:"media_type"`
	CreatedAt    time.Time    `json:"created_at"`
}

// MessagesResponse はメッセージ取得のレスポンス。
// Discussionはフル取得時のみ設定される。
type MessagesResponse struct {
	Discussion *Discussion `json:"discussion,omitempty"`
	Messages   []Message   `json:"messages"`
	HasMore    bool        `json:"has_more"`
}

// ConversationSummary は会話一覧の1行。
type ConversationSummary struct {
	ID          int64       `json:"id"`
	OtherUser   UserSummary `json:"other_user"`
	LastMessage *Message    `json:"last_message"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// SignupRequest はサインアップのリクエスト。
type SignupRequest struct {
	Name            string `json:"name"`
	Surname         string `json:"surname"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// SendRequest はメッセージ送信のリクエスト。
type SendRequest struct {
	Content   string `json:"content,omitempty"`
	MediaURL  string `json:"media_url,omitempty"`
	MediaType string `json:"media_type,omitempty"`
}

type authResponse struct {
	Success    bool   `json:"success"`
	User       User   `json:"user"`
	RedirectTo string `json:"redirect_to"`
}

type conversationListResponse struct {
	Conversations []ConversationSummary `json:"conversations"`
}

type userListResponse struct {
	Users []UserSummary `json:"users"`
}

type errorBody struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Action  string              `json:"action"`
	Errors  map[string][]string `json:"errors,omitempty"`
}
