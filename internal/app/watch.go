package app

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/hitoshi/chatline/internal/chatsync"
	"github.com/hitoshi/chatline/internal/client"
	"github.com/hitoshi/chatline/internal/config"
	"github.com/hitoshi/chatline/internal/logger"
	"github.com/hitoshi/chatline/internal/notify"
)

// logoutTimeout は終了時のログアウト要求に許す時間。
const logoutTimeout = 5 * time.Second

var errNoPeer = errors.New("相手ユーザーが見つかりません")

// watchOptions はwatchサブコマンドの起動オプション。
type watchOptions struct {
	ServerURL      string
	Login          string
	Password       string
	ConversationID int64
	With           string
	Timeout        time.Duration
	Policy         chatsync.DelayPolicy
}

// parseWatchFlags はwatchサブコマンドのフラグを解析する。
// 未指定のフラグは環境変数由来のdefaultsで補う。
func parseWatchFlags(args []string, defaults *config.ClientConfig, errOut io.Writer) (*watchOptions, error) {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(errOut)

	opts := &watchOptions{
		Timeout: defaults.RequestTimeout,
		Policy: chatsync.DelayPolicy{
			Foreground:    defaults.PollForeground,
			Background:    defaults.PollBackground,
			Idle:          defaults.PollIdle,
			IdleThreshold: defaults.IdleThreshold,
		}.Normalize(),
	}
	fs.StringVar(&opts.ServerURL, "server", defaults.ServerURL, "サーバーのベースURL")
	fs.StringVar(&opts.Login, "login", defaults.Login, "usernameまたはemail")
	fs.StringVar(&opts.Password, "password", defaults.Password, "パスワード")
	fs.Int64Var(&opts.ConversationID, "conversation", 0, "開く会話のID")
	fs.StringVar(&opts.With, "with", "", "会話相手のusername（会話がなければ作成する）")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if opts.Login == "" || opts.Password == "" {
		return nil, errors.New("-login と -password は必須です")
	}
	if (opts.ConversationID > 0) == (opts.With != "") {
		return nil, errors.New("-conversation か -with のどちらか一方を指定してください")
	}
	if opts.ConversationID < 0 {
		return nil, errors.New("-conversation は正の整数で指定してください")
	}
	return opts, nil
}

// runWatch は端末クライアントを起動し、1つの会話を同期し続ける。
// 標準入力の各行をメッセージとして送信する。EOF、/quit、シグナル、
// または認証切れ・アクセス拒否で終了する。
func runWatch(in io.Reader, w io.Writer, args []string) error {
	logger.SetupDefault(os.Stderr)
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	opts, err := parseWatchFlags(args, config.LoadClient(), os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return watch(ctx, in, &lockedWriter{w: w}, opts)
}

// watch はログイン、会話の解決、同期ループの起動を行い、終了条件まで入力を処理する。
func watch(ctx context.Context, in io.Reader, out io.Writer, opts *watchOptions) error {
	c, err := client.New(client.Config{
		BaseURL: opts.ServerURL,
		Timeout: opts.Timeout,
	})
	if err != nil {
		return err
	}

	me, err := c.Login(ctx, opts.Login, opts.Password)
	if err != nil {
		return fmt.Errorf("ログインに失敗しました: %w", err)
	}
	defer func() {
		logoutCtx, cancel := context.WithTimeout(context.Background(), logoutTimeout)
		defer cancel()
		if err := c.Logout(logoutCtx); err != nil {
			slog.Warn("ログアウトに失敗しました", slog.String("error", err.Error()))
		}
	}()

	discussionID, err := resolveDiscussion(ctx, c, me.ID, opts)
	if err != nil {
		return err
	}

	deduper := notify.NewDeduper(notify.NewTerminalAlerter(out), notify.DeduperOptions{})
	deduper.Start(ctx)
	defer deduper.Close()

	terminal := make(chan error, 1)
	scheduler := chatsync.NewScheduler(chatsync.Options{
		Fetcher:  c,
		Policy:   opts.Policy,
		SelfID:   me.ID,
		Notifier: deduper,
		Listener: chatsync.ListenerFunc(func(_ int64, msgs []client.Message) {
			for _, m := range msgs {
				fmt.Fprintln(out, formatMessage(m, me.ID))
			}
		}),
		OnTerminal: func(_ int64, err error) {
			select {
			case terminal <- err:
			default:
			}
		},
	})
	scheduler.Open(ctx, discussionID)
	defer scheduler.Close()

	fmt.Fprintf(out, "%s としてログインしました。会話 %d を表示しています（/quit で終了）\n", me.Username, discussionID)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	cmd := &commandRunner{client: c, scheduler: scheduler, discussionID: discussionID, out: out}
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-terminal:
			return fmt.Errorf("会話の同期を停止しました: %w", err)
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := cmd.handle(ctx, line); quit {
				return nil
			}
		}
	}
}

// resolveDiscussion は起動オプションから開く会話のIDを決める。
// -with の場合はusernameが完全一致するユーザーとの会話を取得または作成する。
func resolveDiscussion(ctx context.Context, c *client.Client, selfID int64, opts *watchOptions) (int64, error) {
	if opts.ConversationID > 0 {
		return opts.ConversationID, nil
	}

	users, err := c.SearchUsers(ctx, opts.With)
	if err != nil {
		return 0, fmt.Errorf("ユーザー検索に失敗しました: %w", err)
	}
	for _, u := range users {
		if u.Username != opts.With || u.ID == selfID {
			continue
		}
		d, err := c.CreateConversation(ctx, u.ID)
		if err != nil {
			return 0, fmt.Errorf("会話の作成に失敗しました: %w", err)
		}
		return d.ID, nil
	}
	return 0, fmt.Errorf("%w: %s", errNoPeer, opts.With)
}

// messageSender はcommandRunnerが使う送信インターフェース。
type messageSender interface {
	Send(ctx context.Context, discussionID int64, req client.SendRequest) (*client.Message, error)
}

// visibilitySetter はcommandRunnerが使う表示状態の切り替えインターフェース。
type visibilitySetter interface {
	SetVisible(visible bool)
}

// commandRunner は入力1行を解釈して実行する。
type commandRunner struct {
	client       messageSender
	scheduler    visibilitySetter
	discussionID int64
	out          io.Writer
}

// handle は1行を処理し、終了すべき場合にtrueを返す。
//
//	/quit               終了
//	/away, /back        バックグラウンド・フォアグラウンドの切り替え
//	/media URL [TYPE]   メディアの送信
//	それ以外            テキストとして送信
func (r *commandRunner) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	fields := strings.Fields(line)
	var req client.SendRequest
	switch fields[0] {
	case "/quit":
		return true
	case "/away":
		r.scheduler.SetVisible(false)
		return false
	case "/back":
		r.scheduler.SetVisible(true)
		return false
	case "/media":
		if len(fields) < 2 {
			fmt.Fprintln(r.out, "使い方: /media URL [TYPE]")
			return false
		}
		req.MediaURL = fields[1]
		if len(fields) > 2 {
			req.MediaType = fields[2]
		}
	default:
		req.Content = line
	}

	// 送信したメッセージは次回の差分取得で表示される
	if _, err := r.client.Send(ctx, r.discussionID, req); err != nil {
		fmt.Fprintf(r.out, "送信に失敗しました: %s\n", sendErrorText(err))
	}
	return false
}

// sendErrorText は送信エラーを利用者向けの文字列にする。
func sendErrorText(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// formatMessage はメッセージを1行の表示文字列にする。
func formatMessage(m client.Message, selfID int64) string {
	name := "?"
	switch {
	case m.SenderID == selfID:
		name = "自分"
	case m.Sender != nil:
		name = m.Sender.Username
	}

	body := m.Content
	if m.MediaURL != "" {
		media := "[" + m.MediaURL + "]"
		if body == "" {
			body = media
		} else {
			body += " " + media
		}
	}
	return fmt.Sprintf("[%s] %s: %s", m.CreatedAt.Local().Format("15:04"), name, body)
}

// lockedWriter は複数goroutineからの書き込みを直列化する。
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
