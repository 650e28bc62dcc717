// Package conversation は会話とメッセージのビジネスロジックを提供する。
// メッセージ取得は初回の全件取得と、カーソル以降の差分取得の2経路を持つ。
package conversation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/chatline/internal/metrics"
	"github.com/hitoshi/chatline/internal/model"
	"github.com/hitoshi/chatline/internal/repository"
	"github.com/hitoshi/chatline/internal/security"
)

// DefaultPageSize は1回のメッセージ取得で返す最大件数の既定値。
const DefaultPageSize = 200

// Config は会話サービスの設定。
type Config struct {
	PageSize int
}

// Page はメッセージ取得の結果。
// Discussionは全件取得（afterなし）の場合のみ設定され、差分取得ではnil。
// HasMoreは件数上限により切り詰められた場合にtrueとなる。
type Page struct {
	Discussion *model.Discussion
	Messages   []model.Message
	HasMore    bool
}

// SendInput はメッセージ送信の入力値。ContentとMediaURLの少なくとも一方が必要。
type SendInput struct {
	Content   string
	MediaURL  string
	MediaType string
}

// Service は会話に関するビジネスロジックを提供する。
type Service struct {
	discussions repository.DiscussionRepository
	messages    repository.MessageRepository
	users       repository.UserRepository
	sanitizer   security.MessageSanitizer
	metrics     metrics.MetricsCollector
	config      Config
}

// NewService はServiceを生成する。
func NewService(
	discussions repository.DiscussionRepository,
	messages repository.MessageRepository,
	users repository.UserRepository,
	sanitizer security.MessageSanitizer,
	mc metrics.MetricsCollector,
	config Config,
) *Service {
	if config.PageSize <= 0 {
		config.PageSize = DefaultPageSize
	}
	return &Service{
		discussions: discussions,
		messages:    messages,
		users:       users,
		sanitizer:   sanitizer,
		metrics:     metrics.OrNop(mc),
		config:      config,
	}
}

// List はユーザーの会話一覧を最終更新の新しい順に返す。
func (s *Service) List(ctx context.Context, userID int64) ([]model.ConversationSummary, error) {
	list, err := s.discussions.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list discussions: %w", err)
	}
	return list, nil
}

// Create はuserIDとotherUserIDの会話を作成する。
// 既に存在する場合は既存の会話を返し、createdはfalseとなる。
func (s *Service) Create(ctx context.Context, userID, otherUserID int64) (*model.Discussion, bool, error) {
	if userID == otherUserID {
		return nil, false, model.NewSelfDiscussionError()
	}

	other, err := s.users.FindByID(ctx, otherUserID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to find user: %w", err)
	}
	if other == nil {
		return nil, false, model.NewUserNotFoundError()
	}

	d, created, err := s.discussions.CreateIfAbsent(ctx, userID, otherUserID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create discussion: %w", err)
	}

	if created {
		slog.Info("discussion created",
			slog.Int64("discussion_id", d.ID),
			slog.Int64("user_id", userID),
			slog.Int64("other_user_id", otherUserID),
		)
	}
	return d, created, nil
}

// GetMessages は会話のメッセージを返す。
// after <= 0 の場合は会話ヘッダーと最新PageSize件をID昇順で返す。
// after > 0 の場合はIDがafterより大きいメッセージのみをID昇順で返し、ヘッダーは含めない。
// 参加者でない場合は会話の内容を一切返さずにFORBIDDENを返す。
func (s *Service) GetMessages(ctx context.Context, discussionID, userID, after int64) (*Page, error) {
	d, err := s.authorize(ctx, discussionID, userID)
	if err != nil {
		return nil, err
	}

	limit := s.config.PageSize
	if after <= 0 {
		msgs, err := s.messages.ListLatest(ctx, discussionID, limit+1)
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}
		page := &Page{Discussion: d, Messages: msgs}
		// 最新側を残し、最も古い1件を落とす
		if len(msgs) > limit {
			page.Messages = msgs[len(msgs)-limit:]
			page.HasMore = true
		}
		s.metrics.RecordDeltaQuery(metrics.PathFull, len(page.Messages))
		return page, nil
	}

	msgs, err := s.messages.ListAfter(ctx, discussionID, after, limit+1)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages after cursor: %w", err)
	}
	page := &Page{Messages: msgs}
	// カーソル直後から連続するよう古い側を残す
	if len(msgs) > limit {
		page.Messages = msgs[:limit]
		page.HasMore = true
	}
	s.metrics.RecordDeltaQuery(metrics.PathDelta, len(page.Messages))
	return page, nil
}

// Send は会話にメッセージを追加し、送信者サマリー付きのメッセージを返す。
func (s *Service) Send(ctx context.Context, discussionID, userID int64, in SendInput) (*model.Message, error) {
	d, err := s.authorize(ctx, discussionID, userID)
	if err != nil {
		return nil, err
	}

	content := s.sanitizer.Sanitize(in.Content)
	if content == "" && in.MediaURL == "" {
		return nil, model.NewEmptyMessageError()
	}
	if in.MediaURL != "" {
		if err := security.ValidateMediaURL(in.MediaURL); err != nil {
			return nil, model.NewInvalidMediaError(err.Error())
		}
		if err := security.ValidateMediaType(in.MediaType); err != nil {
			return nil, model.NewInvalidMediaError(err.Error())
		}
	}

	msg := &model.Message{
		DiscussionID: discussionID,
		SenderID:     userID,
		Sender:       d.ParticipantSummary(userID),
		Content:      content,
		MediaURL:     in.MediaURL,
		MediaType:    in.MediaType,
	}
	if in.MediaURL == "" {
		msg.MediaType = ""
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	s.metrics.RecordMessageSent()
	slog.Info("message sent",
		slog.Int64("discussion_id", discussionID),
		slog.Int64("message_id", msg.ID),
		slog.Int64("user_id", userID),
	)
	return msg, nil
}

// authorize は会話の存在とuserIDの参加を確認する。
func (s *Service) authorize(ctx context.Context, discussionID, userID int64) (*model.Discussion, error) {
	d, err := s.discussions.FindByID(ctx, discussionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find discussion: %w", err)
	}
	if d == nil {
		return nil, model.NewDiscussionNotFoundError(discussionID)
	}
	if !d.HasParticipant(userID) {
		slog.Warn("discussion access denied",
			slog.Int64("discussion_id", discussionID),
			slog.Int64("user_id", userID),
		)
		return nil, model.NewForbiddenError()
	}
	return d, nil
}
