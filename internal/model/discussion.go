package model

import "time"

// Discussion は2人のユーザー間の会話を表す。
// 参加者の組は順序を問わず一意で、自分自身との会話は存在しない。
type Discussion struct {
	ID        int64
	User1ID   int64
	User2ID   int64
	User1     UserSummary
	User2     UserSummary
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasParticipant はuserIDが会話の参加者かどうかを返す。
func (d *Discussion) HasParticipant(userID int64) bool {
	return d.User1ID == userID || d.User2ID == userID
}

// OtherParticipant はuserIDから見た相手側の参加者IDを返す。
func (d *Discussion) OtherParticipant(userID int64) int64 {
	if d.User1ID == userID {
		return d.User2ID
	}
	return d.User1ID
}

// OtherSummary はuserIDから見た相手側の参加者サマリーを返す。
func (d *Discussion) OtherSummary(userID int64) UserSummary {
	if d.User1ID == userID {
		return d.User2
	}
	return d.User1
}

// ParticipantSummary はuserID本人の参加者サマリーを返す。
func (d *Discussion) ParticipantSummary(userID int64) UserSummary {
	if d.User1ID == userID {
		return d.User1
	}
	return d.User2
}

// Message は会話内の1件のメッセージを表す。
// IDは作成時にストレージが単調増加で採番し、同期カーソルとして使われる。
// Content と MediaURL の少なくとも一方は空でない。
type Message struct {
	ID           int64
	DiscussionID int64
	SenderID     int64
	Sender       UserSummary
	Content      string
	MediaURL     string
	MediaType    string
	CreatedAt    time.Time
}

// ConversationSummary は会話一覧の1行を表す。
// 相手ユーザーと最新メッセージ（存在しない場合はnil）を含む。
type ConversationSummary struct {
	ID          int64
	OtherUser   UserSummary
	LastMessage *Message
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
