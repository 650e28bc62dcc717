// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// username と email はそれぞれ一意。
type User struct {
	ID           int64
	Username     string
	Email        string
	Name         string
	Surname      string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Summary はユーザーの公開用サマリーを返す。
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.Name,
		Surname:  u.Surname,
	}
}

// UserSummary は会話ヘッダーやメッセージ送信者として返すユーザー情報。
// パスワードハッシュやメールアドレスは含まない。
type UserSummary struct {
	ID       int64
	Username string
	Name     string
	Surname  string
}

// Session はユーザーのログインセッションを表す。
// 生トークンはクライアントのCookieにのみ存在し、サーバーはSHA-256ハッシュだけを保持する。
type Session struct {
	TokenHash string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ValidAt は時刻tにおいてセッションが有効かどうかを返す。
// expires_at が t より厳密に後の場合のみ有効。
func (s *Session) ValidAt(t time.Time) bool {
	return s.ExpiresAt.After(t)
}
