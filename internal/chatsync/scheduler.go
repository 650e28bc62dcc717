// Package chatsync は会話のポーリング同期を提供する。
//
// 会話を開くとフル取得で履歴と会話ヘッダーを読み込み、以降はカーソルより新しいメッセージだけを
// 差分取得する。待機時間は表示状態と連続空振り回数で変わる。取得は常に1件ずつ直列に行い、
// 会話を切り替えると前の会話の同期は取得中のものも含めて破棄される。
package chatsync

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hitoshi/chatline/internal/client"
)

// Fetcher は会話メッセージの取得インターフェース。*client.Clientが満たす。
type Fetcher interface {
	Messages(ctx context.Context, discussionID, after int64) (*client.MessagesResponse, error)
}

// Notifier は相手からの新着メッセージを通知するインターフェース。
type Notifier interface {
	Notify(msg client.Message)
}

// Listener はマージ結果を受け取るインターフェース。
type Listener interface {
	OnMerge(discussionID int64, newMessages []client.Message)
}

// ListenerFunc は関数をListenerとして扱うアダプター。
type ListenerFunc func(discussionID int64, newMessages []client.Message)

// OnMerge はf(discussionID, newMessages)を呼ぶ。
func (f ListenerFunc) OnMerge(discussionID int64, newMessages []client.Message) {
	f(discussionID, newMessages)
}

// Options はSchedulerの設定。
type Options struct {
	Fetcher Fetcher
	Policy  DelayPolicy
	// SelfID はログインユーザーのID。自分の送信したメッセージは通知しない。
	SelfID   int64
	Notifier Notifier
	Listener Listener
	// OnTerminal は401/403/404で同期を停止したときに1度だけ呼ばれる。
	OnTerminal func(discussionID int64, err error)
	Logger     *slog.Logger
}

// Scheduler は表示中の1会話の同期を管理する。
type Scheduler struct {
	opts    Options
	policy  DelayPolicy
	logger  *slog.Logger
	visible atomic.Bool

	current atomic.Pointer[session]
}

// session は開いている1会話の同期ループ。
type session struct {
	conv   *Conversation
	mu     sync.Mutex
	active atomic.Bool
	cancel context.CancelFunc
	done   chan struct{}
	// prev は直前のセッション。その終了を待ってから最初の取得を行う。
	prev *session
}

// NewScheduler はSchedulerを生成する。初期状態は表示中。
func NewScheduler(opts Options) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		opts:   opts,
		policy: opts.Policy.Normalize(),
		logger: logger,
	}
	s.visible.Store(true)
	return s
}

// Open は会話の同期を開始する。既に開いている会話があれば停止させて切り替える。
// 前の会話の取得が終わるまで新しい会話の取得は始まらない。
// ListenerやOnTerminalの中から呼んでもよい。
func (s *Scheduler) Open(ctx context.Context, discussionID int64) {
	ctx, cancel := context.WithCancel(ctx)
	sess := &session{
		conv:   NewConversation(discussionID),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	sess.active.Store(true)

	if prev := s.current.Swap(sess); prev != nil {
		prev.suspend()
		sess.prev = prev
	}
	go s.run(ctx, sess)
}

// Close は表示中の会話の同期を停止する。状態はSUSPENDEDになり、
// 以降の応答はマージされない。取得ゴルーチンの終了は待たない。
// ListenerやOnTerminalの中から呼んでもよい。
func (s *Scheduler) Close() {
	if sess := s.current.Load(); sess != nil {
		sess.suspend()
	}
}

// SetVisible は表示状態を切り替える。次回の待機時間の計算から反映される。
func (s *Scheduler) SetVisible(visible bool) {
	s.visible.Store(visible)
}

// Visible は現在の表示状態を返す。
func (s *Scheduler) Visible() bool {
	return s.visible.Load()
}

// Snapshot は表示中の会話の同期状態のコピーを返す。会話を開いていない場合はfalse。
func (s *Scheduler) Snapshot() (Conversation, bool) {
	sess := s.current.Load()
	if sess == nil {
		return Conversation{}, false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.conv.clone(), true
}

func (s *Scheduler) run(ctx context.Context, sess *session) {
	if sess.prev != nil {
		<-sess.prev.done
		sess.prev = nil
	}
	err := s.loop(ctx, sess)

	sess.mu.Lock()
	sess.conv.State = StateSuspended
	discussionID := sess.conv.DiscussionID
	sess.mu.Unlock()
	close(sess.done)

	if err != nil && s.opts.OnTerminal != nil {
		s.opts.OnTerminal(discussionID, err)
	}
}

// loop はctxがキャンセルされるか終端エラーを受け取るまで取得を繰り返す。
// 終端エラーの場合はそのエラーを返す。
func (s *Scheduler) loop(ctx context.Context, sess *session) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		hasMore, err := s.tick(ctx, sess)
		if !sess.active.Load() || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			if client.IsTerminal(err) {
				s.logger.Warn("会話の同期を停止しました",
					slog.Int64("discussion_id", sess.discussionID()),
					slog.String("error", err.Error()),
				)
				return err
			}
			s.logger.Warn("メッセージの取得に失敗しました",
				slog.Int64("discussion_id", sess.discussionID()),
				slog.String("error", err.Error()),
			)
		}

		delay := s.policy.Delay(s.visible.Load(), sess.idle())
		if hasMore {
			delay = 0
		}
		timer.Reset(delay)
	}
}

// tick は1回の取得とマージを行う。差分がまだ残っている場合はtrueを返す。
func (s *Scheduler) tick(ctx context.Context, sess *session) (bool, error) {
	sess.mu.Lock()
	discussionID := sess.conv.DiscussionID
	full := sess.conv.State == StateInitializing
	after := sess.conv.Cursor
	sess.mu.Unlock()
	if full {
		after = 0
	}

	resp, err := s.opts.Fetcher.Messages(ctx, discussionID, after)
	if err != nil {
		return false, err
	}

	// 切り替え後に届いた応答は破棄する。suspendと同じロックの中で判定する。
	sess.mu.Lock()
	if !sess.active.Load() || ctx.Err() != nil {
		sess.mu.Unlock()
		return false, nil
	}
	if full {
		sess.conv.Discussion = resp.Discussion
		sess.conv.State = StateSteady
	}
	added := sess.conv.Merge(resp.Messages)
	switch {
	case full:
		// 履歴の読み込みは空振りに数えない
		sess.conv.Idle = 0
	case len(added) == 0:
		sess.conv.Idle++
	default:
		sess.conv.Idle = 0
	}
	sess.mu.Unlock()

	if len(added) > 0 && s.opts.Listener != nil && sess.active.Load() {
		s.opts.Listener.OnMerge(discussionID, added)
	}
	// 履歴の読み込みでは通知しない
	if !full && s.opts.Notifier != nil && sess.active.Load() {
		for _, m := range added {
			if m.SenderID != s.opts.SelfID {
				s.opts.Notifier.Notify(m)
			}
		}
	}

	return !full && resp.HasMore, nil
}

// suspend はセッションを無効化して取得を取り消す。ループの終了は待たない。
func (sess *session) suspend() {
	sess.active.Store(false)
	sess.cancel()

	sess.mu.Lock()
	sess.conv.State = StateSuspended
	sess.mu.Unlock()
}

func (sess *session) idle() int {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.conv.Idle
}

func (sess *session) discussionID() int64 {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.conv.DiscussionID
}
