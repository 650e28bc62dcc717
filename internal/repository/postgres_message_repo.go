package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/chatline/internal/model"
)

const messageSelect = `SELECT m.id, m.discussion_id, m.sender_id, m.content, m.media_url, m.media_type, m.created_at,
	       u.username, u.name, u.surname
	FROM messages m
	JOIN users u ON u.id = m.sender_id`

// PostgresMessageRepo はPostgreSQLを使用したメッセージリポジトリ。
type PostgresMessageRepo struct {
	db *sql.DB
}

// NewPostgresMessageRepo はPostgresMessageRepoを生成する。
func NewPostgresMessageRepo(db *sql.DB) *PostgresMessageRepo {
	return &PostgresMessageRepo{db: db}
}

// ListLatest は会話の最新limit件をID昇順で返す。
func (r *PostgresMessageRepo) ListLatest(ctx context.Context, discussionID int64, limit int) ([]model.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		messageSelect+`
		 WHERE m.discussion_id = $1
		 ORDER BY m.id DESC
		 LIMIT $2`,
		discussionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list latest messages: %w", err)
	}
	defer rows.Close()

	messages, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}

	// 降順で取得したものを昇順に並べ替える
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// ListAfter はIDがafterより大きいメッセージを最大limit件、ID昇順で返す。
func (r *PostgresMessageRepo) ListAfter(ctx context.Context, discussionID, after int64, limit int) ([]model.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		messageSelect+`
		 WHERE m.discussion_id = $1 AND m.id > $2
		 ORDER BY m.id ASC
		 LIMIT $3`,
		discussionID, after, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages after cursor: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

// Create はメッセージを作成し、会話のupdated_atを同一トランザクションで更新する。
// 会話の行ロックを取ってから採番するため、同じ会話のメッセージIDはコミット順に増える。
func (r *PostgresMessageRepo) Create(ctx context.Context, msg *model.Message) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE discussions SET updated_at = now() WHERE id = $1`,
		msg.DiscussionID,
	)
	if err != nil {
		return fmt.Errorf("failed to touch discussion: %w", err)
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO messages (discussion_id, sender_id, content, media_url, media_type)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		msg.DiscussionID, msg.SenderID,
		nullString(msg.Content), nullString(msg.MediaURL), nullString(msg.MediaType),
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func collectMessages(rows *sql.Rows) ([]model.Message, error) {
	messages := []model.Message{}
	for rows.Next() {
		var (
			m                            model.Message
			content, mediaURL, mediaType sql.NullString
		)
		if err := rows.Scan(
			&m.ID, &m.DiscussionID, &m.SenderID, &content, &mediaURL, &mediaType, &m.CreatedAt,
			&m.Sender.Username, &m.Sender.Name, &m.Sender.Surname,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Sender.ID = m.SenderID
		m.Content = content.String
		m.MediaURL = mediaURL.String
		m.MediaType = mediaType.String
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}

// nullString は空文字列をNULLとして扱う。
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// compile-time interface check
var _ MessageRepository = (*PostgresMessageRepo)(nil)
