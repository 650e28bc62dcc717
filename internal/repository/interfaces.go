// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/chatline/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByLogin はusernameまたはemailが一致するユーザーを取得する。見つからない場合はnilを返す。
	FindByLogin(ctx context.Context, login string) (*model.User, error)

	// ExistsByUsername はusernameが使用済みかどうかを返す。
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// ExistsByEmail はemailが使用済みかどうかを返す。
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Create はユーザーを作成し、採番されたIDとタイムスタンプをuserに設定する。
	// username/emailの一意制約違反はErrDuplicateUsername/ErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error

	// UpdateProfile はnilでないフィールドのみを更新し、更新後のユーザーを返す。
	UpdateProfile(ctx context.Context, id int64, update ProfileUpdate) (*model.User, error)

	// Search はusername、email、name、surnameの部分一致（大文字小文字無視）でユーザーを検索する。
	Search(ctx context.Context, query string, limit int) ([]model.User, error)

	// ListOthers は指定ユーザー以外のユーザーを返す。
	ListOthers(ctx context.Context, excludeID int64, limit int) ([]model.User, error)

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するsessions、discussions、messagesはCASCADE削除される。
	DeleteByID(ctx context.Context, id int64) error
}

// ProfileUpdate はプロフィール更新の部分更新内容。nilのフィールドは変更しない。
type ProfileUpdate struct {
	Name    *string
	Surname *string
	Email   *string
}

// SessionRepository はセッションデータの永続化インターフェース。
// キーは生トークンではなくトークンのハッシュ値。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindActiveByTokenHash は有効期限内のセッションと所有ユーザーを取得する。
	// 見つからない、または期限切れの場合はnilを返す。
	FindActiveByTokenHash(ctx context.Context, tokenHash string) (*SessionWithUser, error)
	// DeleteByTokenHash は指定ハッシュのセッションを削除する。存在しない場合も成功とする。
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID int64) error
}

// SessionWithUser はセッションと所有ユーザーを結合した構造体。
type SessionWithUser struct {
	model.Session
	User model.User
}

// DiscussionRepository は会話データの永続化インターフェース。
type DiscussionRepository interface {
	// FindByID は指定IDの会話を参加者サマリー付きで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Discussion, error)

	// FindByPair は順序を問わず2人のユーザー間の会話を取得する。見つからない場合はnilを返す。
	FindByPair(ctx context.Context, userA, userB int64) (*model.Discussion, error)

	// CreateIfAbsent は2人のユーザー間の会話を作成する。
	// 既に存在する場合は既存の会話を返し、createdはfalseとなる。
	// 同時に呼ばれても行は1つだけ作成される。
	CreateIfAbsent(ctx context.Context, userA, userB int64) (d *model.Discussion, created bool, err error)

	// ListByUser はユーザーが参加する会話一覧をupdated_at降順で返す。
	ListByUser(ctx context.Context, userID int64) ([]model.ConversationSummary, error)
}

// MessageRepository はメッセージデータの永続化インターフェース。
// メッセージは追記のみで、作成後に更新されることはない。
type MessageRepository interface {
	// ListLatest は会話の最新limit件をID昇順で返す。
	ListLatest(ctx context.Context, discussionID int64, limit int) ([]model.Message, error)

	// ListAfter はIDがafterより大きいメッセージを最大limit件、ID昇順で返す。
	ListAfter(ctx context.Context, discussionID, after int64, limit int) ([]model.Message, error)

	// Create はメッセージを作成し、会話のupdated_atを同一トランザクションで更新する。
	// 採番されたIDとcreated_atをmsgに設定する。
	Create(ctx context.Context, msg *model.Message) error
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
