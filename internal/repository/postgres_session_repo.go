package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/chatline/internal/model"
)

// PostgresSessionRepo はPostgreSQLを使用したセッションリポジトリ。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// Create はセッションを作成する。
func (r *PostgresSessionRepo) Create(ctx context.Context, session *model.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token_hash, user_id, expires_at, created_at)
		 VALUES ($1, $2, $3, $4)`,
		session.TokenHash, session.UserID, session.ExpiresAt, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindActiveByTokenHash は有効期限内のセッションと所有ユーザーを取得する。期限切れの場合はnilを返す。
func (r *PostgresSessionRepo) FindActiveByTokenHash(ctx context.Context, tokenHash string) (*SessionWithUser, error) {
	s := &SessionWithUser{}
	err := r.db.QueryRowContext(ctx,
		`SELECT s.token_hash, s.user_id, s.expires_at, s.created_at,
		        u.id, u.username, u.email, u.name, u.surname, u.password_hash, u.created_at, u.updated_at
		 FROM sessions s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.token_hash = $1 AND s.expires_at > now()`,
		tokenHash,
	).Scan(
		&s.TokenHash, &s.UserID, &s.ExpiresAt, &s.CreatedAt,
		&s.User.ID, &s.User.Username, &s.User.Email, &s.User.Name, &s.User.Surname,
		&s.User.PasswordHash, &s.User.CreatedAt, &s.User.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	return s, nil
}

// DeleteByTokenHash は指定ハッシュのセッションを削除する。
func (r *PostgresSessionRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE token_hash = $1`,
		tokenHash,
	)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteByUserID は指定ユーザーの全セッションを削除する。
func (r *PostgresSessionRepo) DeleteByUserID(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SessionRepository = (*PostgresSessionRepo)(nil)
