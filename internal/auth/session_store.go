package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hitoshi/chatline/internal/logger"
	"github.com/hitoshi/chatline/internal/metrics"
	"github.com/hitoshi/chatline/internal/model"
	"github.com/hitoshi/chatline/internal/repository"
	"github.com/hitoshi/chatline/internal/retry"
)

// tokenBytes は生トークンのバイト長。hexエンコード後は96文字になる。
const tokenBytes = 48

// SessionStoreConfig はセッションストアの設定。
type SessionStoreConfig struct {
	MaxAge          time.Duration // セッション有効期間
	ResolveAttempts int           // 解決時の最大試行回数
	ResolveBackoff  time.Duration // n回目の失敗後は n×ResolveBackoff 待機
}

// SessionStore はセッショントークンの発行、解決、破棄を行う。
// 生トークンはクライアントのみが保持し、ストレージにはSHA-256ハッシュのみを保存する。
type SessionStore struct {
	repo    repository.SessionRepository
	config  SessionStoreConfig
	metrics metrics.MetricsCollector
	now     func() time.Time
	random  io.Reader
}

// NewSessionStore はSessionStoreを生成する。mcがnilの場合はメトリクスを記録しない。
func NewSessionStore(repo repository.SessionRepository, config SessionStoreConfig, mc metrics.MetricsCollector) *SessionStore {
	return &SessionStore{
		repo:    repo,
		config:  config,
		metrics: metrics.OrNop(mc),
		now:     time.Now,
		random:  rand.Reader,
	}
}

// HashToken は生トークンから保存用のハッシュ値（hex）を導出する。
func HashToken(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}

// Create はユーザーのセッションを発行し、生トークンと有効期限を返す。
func (s *SessionStore) Create(ctx context.Context, userID int64) (string, time.Time, error) {
	b := make([]byte, tokenBytes)
	if _, err := io.ReadFull(s.random, b); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate session token: %w", err)
	}
	rawToken := hex.EncodeToString(b)

	now := s.now()
	session := &model.Session{
		TokenHash: HashToken(rawToken),
		UserID:    userID,
		ExpiresAt: now.Add(s.config.MaxAge),
		CreatedAt: now,
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to save session: %w", err)
	}

	slog.Info("session created",
		slog.Int64("user_id", userID),
		logger.TokenHash(session.TokenHash),
	)
	return rawToken, session.ExpiresAt, nil
}

// Resolve は生トークンに対応する有効なセッションの所有ユーザーを返す。
// トークンが空、未登録、期限切れの場合はnilを返す。
// ストレージエラーは設定回数までリトライし、それでも失敗した場合もnilを返す。
func (s *SessionStore) Resolve(ctx context.Context, rawToken string) *model.User {
	if rawToken == "" {
		return nil
	}
	hash := HashToken(rawToken)

	policy := retry.Policy{
		Attempts: s.config.ResolveAttempts,
		Step:     s.config.ResolveBackoff,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			s.metrics.RecordSessionResolveRetry()
			slog.Warn("session lookup failed, retrying",
				slog.Int("attempt", attempt),
				slog.Duration("wait", wait),
				slog.String("error", err.Error()),
			)
		},
	}

	found, err := retry.Do(ctx, policy, func(ctx context.Context) (*repository.SessionWithUser, error) {
		return s.repo.FindActiveByTokenHash(ctx, hash)
	})
	if err != nil {
		s.metrics.RecordSessionResolve(metrics.ResolveError)
		slog.Error("session resolution failed",
			logger.TokenHash(hash),
			slog.String("error", err.Error()),
		)
		return nil
	}

	if found == nil ||
		subtle.ConstantTimeCompare([]byte(found.TokenHash), []byte(hash)) != 1 ||
		!found.ValidAt(s.now()) {
		s.metrics.RecordSessionResolve(metrics.ResolveMiss)
		return nil
	}

	s.metrics.RecordSessionResolve(metrics.ResolveHit)
	user := found.User
	return &user
}

// Destroy は生トークンに対応するセッションを削除する。存在しないトークンは何もしない。
func (s *SessionStore) Destroy(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}
	hash := HashToken(rawToken)
	if err := s.repo.DeleteByTokenHash(ctx, hash); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("session destroyed", logger.TokenHash(hash))
	return nil
}

// DestroyAllForUser はユーザーの全セッションを削除する。
func (s *SessionStore) DestroyAllForUser(ctx context.Context, userID int64) error {
	if err := s.repo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete sessions for user: %w", err)
	}

	slog.Info("all sessions destroyed", slog.Int64("user_id", userID))
	return nil
}
