package chatsync

import (
	"cmp"
	"slices"

	"github.com/hitoshi/chatline/internal/client"
)

// State は会話同期の状態。
type State int

const (
	// StateInitializing はフル取得が未完了の状態。
	StateInitializing State = iota
	// StateSteady は差分取得でポーリングしている状態。
	StateSteady
	// StateSuspended は同期を停止した状態。
	StateSuspended
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateSteady:
		return "steady"
	case StateSuspended:
		return "suspended"
	default:
		return "unknown"
	}
}

// Conversation は1つの会話の同期状態。
// Cursorはマージ済みメッセージの最大IDで、減少しない。0はカーソル未取得を表す。
type Conversation struct {
	DiscussionID int64
	State        State
	Cursor       int64
	Idle         int
	Discussion   *client.Discussion
	Messages     []client.Message
}

// NewConversation は初期状態のConversationを生成する。
func NewConversation(discussionID int64) *Conversation {
	return &Conversation{
		DiscussionID: discussionID,
		State:        StateInitializing,
	}
}

// Merge はカーソルより新しいメッセージをID昇順で追加し、追加したものだけを返す。
// カーソル以下のIDと重複IDは捨てる。
func (c *Conversation) Merge(msgs []client.Message) []client.Message {
	if len(msgs) == 0 {
		return nil
	}

	sorted := slices.Clone(msgs)
	slices.SortFunc(sorted, func(a, b client.Message) int {
		return cmp.Compare(a.ID, b.ID)
	})

	var added []client.Message
	for _, m := range sorted {
		if m.ID <= c.Cursor {
			continue
		}
		c.Messages = append(c.Messages, m)
		c.Cursor = m.ID
		added = append(added, m)
	}
	return added
}

// clone は描画用のコピーを返す。
func (c *Conversation) clone() Conversation {
	cp := *c
	cp.Messages = slices.Clone(c.Messages)
	if c.Discussion != nil {
		d := *c.Discussion
		cp.Discussion = &d
	}
	return cp
}
