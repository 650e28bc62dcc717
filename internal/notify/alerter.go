// Package notify は新着メッセージの通知を提供する。
// 同じメッセージの通知は1度だけ行い、通知処理が同期処理をブロックすることはない。
package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/hitoshi/chatline/internal/client"
)

// attachmentBody は本文のない添付メッセージの通知本文。
const attachmentBody = "Attachment"

// Alert は1件の通知内容。
type Alert struct {
	MessageID int64
	Title     string
	Body      string
}

// Alerter は通知を表示するインターフェース。
type Alerter interface {
	Alert(ctx context.Context, alert Alert) error
}

// AlertFor はメッセージから通知内容を組み立てる。
func AlertFor(msg client.Message) Alert {
	title := "新着メッセージ"
	if msg.Sender != nil && msg.Sender.Username != "" {
		title = msg.Sender.Username
	}
	body := msg.Content
	if body == "" {
		body = attachmentBody
	}
	return Alert{
		MessageID: msg.ID,
		Title:     title,
		Body:      body,
	}
}

// TerminalAlerter は端末に通知を書き出す。BEL文字で音を鳴らす。
type TerminalAlerter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTerminalAlerter はTerminalAlerterを生成する。
func NewTerminalAlerter(w io.Writer) *TerminalAlerter {
	return &TerminalAlerter{w: w}
}

// Alert は "title: body" とBEL文字を書き出す。
func (a *TerminalAlerter) Alert(_ context.Context, alert Alert) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := fmt.Fprintf(a.w, "%s: %s\a\n", alert.Title, alert.Body); err != nil {
		return fmt.Errorf("通知の書き込みに失敗しました: %w", err)
	}
	return nil
}
