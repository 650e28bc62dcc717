// Package auth はパスワード認証とセッション管理を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/chatline/internal/model"
	"github.com/hitoshi/chatline/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// SessionIssuer はセッションの発行と破棄を行うインターフェース。
type SessionIssuer interface {
	Create(ctx context.Context, userID int64) (string, time.Time, error)
	Destroy(ctx context.Context, rawToken string) error
}

// SignupInput はサインアップフォームの入力値。
type SignupInput struct {
	Name            string
	Surname         string
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

func (in SignupInput) form() map[string]string {
	return map[string]string{
		FieldName:            in.Name,
		FieldSurname:         in.Surname,
		FieldUsername:        in.Username,
		FieldEmail:           in.Email,
		FieldPassword:        in.Password,
		FieldConfirmPassword: in.ConfirmPassword,
	}
}

// LoginInput はログインフォームの入力値。Loginはusernameまたはemail。
type LoginInput struct {
	Login    string
	Password string
}

// Issued は発行されたセッションの生トークンと有効期限。
type Issued struct {
	Token     string
	ExpiresAt time.Time
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	BcryptCost int // 0の場合はbcrypt.DefaultCost
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	sessions SessionIssuer
	config   ServiceConfig
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, sessions SessionIssuer, config ServiceConfig) *Service {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		userRepo: userRepo,
		sessions: sessions,
		config:   config,
	}
}

// Signup は入力を検証してユーザーを作成し、セッションを発行する。
// 入力エラーはフィールド単位の*model.APIErrorとして返す。
func (s *Service) Signup(ctx context.Context, in SignupInput) (*model.User, *Issued, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Surname = strings.TrimSpace(in.Surname)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if fields := ValidateForm(in.form()); len(fields) > 0 {
		return nil, nil, model.NewValidationError(fields)
	}

	taken, err := s.userRepo.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return nil, nil, model.NewUsernameTakenError()
	}

	taken, err = s.userRepo.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return nil, nil, model.NewEmailTakenError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.config.BcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		Name:         in.Name,
		Surname:      in.Surname,
		PasswordHash: string(hash),
	}

	// 事前チェック後に同時登録された場合は一意制約違反で検出する
	if err := s.userRepo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateUsername):
			return nil, nil, model.NewUsernameTakenError()
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, nil, model.NewEmailTakenError()
		}
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user created",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)

	issued, err := s.issue(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, issued, nil
}

// Login はusernameまたはemailとパスワードで認証し、セッションを発行する。
func (s *Service) Login(ctx context.Context, in LoginInput) (*model.User, *Issued, error) {
	login := strings.TrimSpace(in.Login)

	fields := make(map[string][]string)
	if login == "" {
		fields[FieldLogin] = []string{"ユーザー名またはメールアドレスを入力してください。"}
	}
	if in.Password == "" {
		fields[FieldPassword] = []string{"パスワードを入力してください。"}
	}
	if len(fields) > 0 {
		return nil, nil, model.NewValidationError(fields)
	}

	user, err := s.userRepo.FindByLogin(ctx, login)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, nil, model.NewInvalidCredentialsError(map[string][]string{
			FieldLogin: {"ユーザーが見つかりません。"},
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		slog.Warn("login failed: password mismatch", slog.Int64("user_id", user.ID))
		return nil, nil, model.NewInvalidCredentialsError(map[string][]string{
			FieldPassword: {"パスワードが正しくありません。"},
		})
	}

	issued, err := s.issue(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("user logged in", slog.Int64("user_id", user.ID))
	return user, issued, nil
}

// Logout はセッションを破棄する。未登録のトークンでもエラーにしない。
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	return s.sessions.Destroy(ctx, rawToken)
}

func (s *Service) issue(ctx context.Context, userID int64) (*Issued, error) {
	token, expiresAt, err := s.sessions.Create(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &Issued{Token: token, ExpiresAt: expiresAt}, nil
}
