// Package client はchatlineサーバーのHTTP APIクライアントを提供する。
// セッショントークンはCookie Jarにのみ保持し、全リクエストにリクエスト単位のタイムアウトを設定する。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/chatline/internal/retry"
)

const (
	// DefaultTimeout はリクエスト単位のタイムアウトの既定値。
	DefaultTimeout = 10 * time.Second
	// maxResponseBytes はレスポンスボディの読み取り上限。
	maxResponseBytes = 4 << 20

	userAgent = "chatline-client/1.0"
)

// Config はクライアントの設定。
type Config struct {
	BaseURL string
	// Timeout は1リクエストあたりのタイムアウト。0以下の場合はDefaultTimeout。
	Timeout time.Duration
	// LoginRetry はLoginの通信失敗時のリトライ方針。Attemptsが0の場合は3回。
	LoginRetry retry.Policy
	// HTTPClient はテスト用に差し替え可能。Jarは上書きされる。
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client はchatline APIのクライアント。
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
	loginRetry retry.Policy
	logger     *slog.Logger
}

// New はClientを生成する。
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("サーバーURLのパースに失敗しました: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("サーバーURLは http:// または https:// で始まる必要があります: %q", cfg.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("Cookie Jarの生成に失敗しました: %w", err)
	}

	httpClient := &http.Client{}
	if cfg.HTTPClient != nil {
		copied := *cfg.HTTPClient
		httpClient = &copied
	}
	httpClient.Jar = jar

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	loginRetry := cfg.LoginRetry
	if loginRetry.Attempts == 0 {
		loginRetry.Attempts = 3
	}
	if loginRetry.Step == 0 {
		loginRetry.Step = 500 * time.Millisecond
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		timeout:    timeout,
		loginRetry: loginRetry,
		logger:     logger,
	}, nil
}

// Login はusernameまたはemailとパスワードで認証し、セッションCookieを取得する。
// 通信失敗と5xxはリトライし、4xxはリトライしない。
func (c *Client) Login(ctx context.Context, login, password string) (*User, error) {
	policy := c.loginRetry
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		c.logger.Warn("ログインに失敗しました。再試行します",
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()),
		)
	}

	return retry.Do(ctx, policy, func(ctx context.Context) (*User, error) {
		var resp authResponse
		err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
			"login":    login,
			"password": password,
		}, &resp)
		if err != nil {
			if isClientError(err) {
				return nil, retry.Permanent(err)
			}
			return nil, err
		}
		return &resp.User, nil
	})
}

// Signup はユーザーを登録し、セッションCookieを取得する。
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*User, error) {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/auth/signup", req, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Logout はセッションを破棄する。
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// Me はログイン中のユーザーを返す。
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Conversations は会話一覧を返す。
func (c *Client) Conversations(ctx context.Context) ([]ConversationSummary, error) {
	var resp conversationListResponse
	if err := c.do(ctx, http.MethodGet, "/conversations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// CreateConversation は相手ユーザーとの会話を作成し、既存の場合はその会話を返す。
func (c *Client) CreateConversation(ctx context.Context, otherUserID int64) (*Discussion, error) {
	var d Discussion
	err := c.do(ctx, http.MethodPost, "/conversations", map[string]int64{"other_user_id": otherUserID}, &d)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Messages は会話のメッセージを取得する。
// afterが0以下の場合はフル取得、それ以外はIDがafterより大きいメッセージのみを取得する。
func (c *Client) Messages(ctx context.Context, discussionID, after int64) (*MessagesResponse, error) {
	path := "/conversations/" + strconv.FormatInt(discussionID, 10)
	if after > 0 {
		path += "?after=" + strconv.FormatInt(after, 10)
	}

	var resp MessagesResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Send は会話にメッセージを送信する。
func (c *Client) Send(ctx context.Context, discussionID int64, req SendRequest) (*Message, error) {
	var msg Message
	path := "/conversations/" + strconv.FormatInt(discussionID, 10)
	if err := c.do(ctx, http.MethodPost, path, req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SearchUsers はユーザーを検索する。
func (c *Client) SearchUsers(ctx context.Context, query string) ([]UserSummary, error) {
	var resp userListResponse
	if err := c.do(ctx, http.MethodGet, "/users/search?q="+url.QueryEscape(query), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// do はリクエスト単位のタイムアウト付きでAPIを呼び出し、2xxの場合はoutにデコードする。
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("リクエストのエンコードに失敗しました: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb *errorBody
		if len(raw) > 0 {
			var decoded errorBody
			if json.Unmarshal(raw, &decoded) == nil {
				eb = &decoded
			}
		}
		return statusToError(resp.StatusCode, eb)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	return nil
}

// isClientError はerrが4xx由来のエラーかどうかを返す。
func isClientError(err error) bool {
	if IsTerminal(err) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
