// Package account はアカウント管理のドメインロジックを提供する。
// プロフィール参照・更新、利用可否チェック、ユーザー検索、アカウント停止と削除を扱う。
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/chatline/internal/auth"
	"github.com/hitoshi/chatline/internal/model"
	"github.com/hitoshi/chatline/internal/repository"
)

const (
	// SearchLimit はユーザー検索の最大件数。
	SearchLimit = 20
	// ListLimit はユーザー一覧の最大件数。
	ListLimit = 50
	// minQueryLength は検索語の最小文字数。
	minQueryLength = 2
)

// SessionTerminator はユーザーの全セッションを破棄するインターフェース。
type SessionTerminator interface {
	DestroyAllForUser(ctx context.Context, userID int64) error
}

// ProfileInput はプロフィール更新の入力。nilまたは空文字のフィールドは変更しない。
type ProfileInput struct {
	Name    *string
	Surname *string
	Email   *string
}

// Service はアカウント管理のサービス層。
type Service struct {
	userRepo repository.UserRepository
	sessions SessionTerminator
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, sessions SessionTerminator) *Service {
	return &Service{
		userRepo: userRepo,
		sessions: sessions,
	}
}

// Me は指定ユーザーのプロフィールを返す。
func (s *Service) Me(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// UpdateProfile は指定されたフィールドのみを検証して更新する。
func (s *Service) UpdateProfile(ctx context.Context, userID int64, in ProfileInput) (*model.User, error) {
	update := repository.ProfileUpdate{
		Name:    nonEmpty(in.Name),
		Surname: nonEmpty(in.Surname),
		Email:   nonEmpty(in.Email),
	}

	fields := make(map[string][]string)
	check := func(field string, v *string) {
		if v == nil {
			return
		}
		if msgs := auth.ValidateField(field, *v, nil); len(msgs) > 0 {
			fields[field] = msgs
		}
	}
	check(auth.FieldName, update.Name)
	check(auth.FieldSurname, update.Surname)
	check(auth.FieldEmail, update.Email)
	if len(fields) > 0 {
		return nil, model.NewValidationError(fields)
	}

	if update.Name != nil {
		trimmed := strings.TrimSpace(*update.Name)
		update.Name = &trimmed
	}
	if update.Surname != nil {
		trimmed := strings.TrimSpace(*update.Surname)
		update.Surname = &trimmed
	}

	user, err := s.userRepo.UpdateProfile(ctx, userID, update)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return nil, model.NewEmailTakenError()
	}
	if err != nil {
		return nil, fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// UsernameAvailable はusernameが未使用かどうかを返す。
// 形式が不正な場合や確認に失敗した場合はfalseを返す。
func (s *Service) UsernameAvailable(ctx context.Context, username string) bool {
	if len(auth.ValidateField(auth.FieldUsername, username, nil)) > 0 {
		return false
	}
	exists, err := s.userRepo.ExistsByUsername(ctx, username)
	if err != nil {
		slog.Warn("usernameの利用可否確認に失敗しました",
			slog.String("error", err.Error()),
		)
		return false
	}
	return !exists
}

// EmailAvailable はemailが未登録かどうかを返す。
// 形式が不正な場合や確認に失敗した場合はfalseを返す。
func (s *Service) EmailAvailable(ctx context.Context, email string) bool {
	if len(auth.ValidateField(auth.FieldEmail, email, nil)) > 0 {
		return false
	}
	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		slog.Warn("emailの利用可否確認に失敗しました",
			slog.String("error", err.Error()),
		)
		return false
	}
	return !exists
}

// Search はusername、email、name、surnameの部分一致でユーザーを検索する。
// 検索者自身は結果に含めない。
func (s *Service) Search(ctx context.Context, userID int64, query string) ([]model.User, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minQueryLength {
		return nil, model.NewInvalidQueryError()
	}

	// 自身を除外しても上限件数を満たせるよう1件多く取得する
	users, err := s.userRepo.Search(ctx, query, SearchLimit+1)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}

	result := make([]model.User, 0, len(users))
	for _, u := range users {
		if u.ID == userID {
			continue
		}
		result = append(result, u)
	}
	if len(result) > SearchLimit {
		result = result[:SearchLimit]
	}
	return result, nil
}

// ListOthers は自身以外のユーザーを最大ListLimit件返す。
func (s *Service) ListOthers(ctx context.Context, userID int64) ([]model.User, error) {
	users, err := s.userRepo.ListOthers(ctx, userID, ListLimit)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

// Deactivate はユーザーの全セッションを破棄する。ユーザーデータは残る。
func (s *Service) Deactivate(ctx context.Context, userID int64) error {
	slog.Info("アカウント停止処理を開始します",
		slog.Int64("user_id", userID),
	)

	if err := s.sessions.DestroyAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}

	slog.Info("アカウント停止処理が完了しました",
		slog.Int64("user_id", userID),
	)
	return nil
}

// DeleteAccount はユーザーを削除する。
// sessions、discussions、messages はCASCADE削除される。
func (s *Service) DeleteAccount(ctx context.Context, userID int64) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("アカウント削除処理を開始します",
		slog.Int64("user_id", userID),
	)

	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("アカウント削除処理が完了しました",
		slog.Int64("user_id", userID),
	)
	return nil
}

func nonEmpty(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	return v
}
