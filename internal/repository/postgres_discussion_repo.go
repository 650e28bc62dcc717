package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/chatline/internal/model"
)

const discussionSelect = `SELECT d.id, d.user1_id, d.user2_id, d.created_at, d.updated_at,
	       u1.username, u1.name, u1.surname,
	       u2.username, u2.name, u2.surname
	FROM discussions d
	JOIN users u1 ON u1.id = d.user1_id
	JOIN users u2 ON u2.id = d.user2_id`

// PostgresDiscussionRepo はPostgreSQLを使用した会話リポジトリ。
type PostgresDiscussionRepo struct {
	db *sql.DB
}

// NewPostgresDiscussionRepo はPostgresDiscussionRepoを生成する。
func NewPostgresDiscussionRepo(db *sql.DB) *PostgresDiscussionRepo {
	return &PostgresDiscussionRepo{db: db}
}

func scanDiscussion(row rowScanner) (*model.Discussion, error) {
	d := &model.Discussion{}
	err := row.Scan(
		&d.ID, &d.User1ID, &d.User2ID, &d.CreatedAt, &d.UpdatedAt,
		&d.User1.Username, &d.User1.Name, &d.User1.Surname,
		&d.User2.Username, &d.User2.Name, &d.User2.Surname,
	)
	if err != nil {
		return nil, err
	}
	d.User1.ID = d.User1ID
	d.User2.ID = d.User2ID
	return d, nil
}

// FindByID は指定IDの会話を参加者サマリー付きで取得する。見つからない場合はnilを返す。
func (r *PostgresDiscussionRepo) FindByID(ctx context.Context, id int64) (*model.Discussion, error) {
	d, err := scanDiscussion(r.db.QueryRowContext(ctx,
		discussionSelect+` WHERE d.id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find discussion: %w", err)
	}
	return d, nil
}

// FindByPair は順序を問わず2人のユーザー間の会話を取得する。見つからない場合はnilを返す。
func (r *PostgresDiscussionRepo) FindByPair(ctx context.Context, userA, userB int64) (*model.Discussion, error) {
	d, err := scanDiscussion(r.db.QueryRowContext(ctx,
		discussionSelect+`
		 WHERE LEAST(d.user1_id, d.user2_id) = LEAST($1::bigint, $2::bigint)
		   AND GREATEST(d.user1_id, d.user2_id) = GREATEST($1::bigint, $2::bigint)`,
		userA, userB,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find discussion by pair: %w", err)
	}
	return d, nil
}

// CreateIfAbsent は2人のユーザー間の会話を作成する。
// 順序なしペアの一意インデックスに対するON CONFLICT DO NOTHINGで、
// 同時に呼ばれても行は1つだけ作成される。既存の場合はその行を返す。
func (r *PostgresDiscussionRepo) CreateIfAbsent(ctx context.Context, userA, userB int64) (*model.Discussion, bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO discussions (user1_id, user2_id)
		 VALUES ($1, $2)
		 ON CONFLICT ((LEAST(user1_id, user2_id)), (GREATEST(user1_id, user2_id))) DO NOTHING
		 RETURNING id`,
		userA, userB,
	).Scan(&id)

	created := true
	if err == sql.ErrNoRows {
		// 競合した（既に存在する）
		created = false
		existing, findErr := r.FindByPair(ctx, userA, userB)
		if findErr != nil {
			return nil, false, findErr
		}
		if existing == nil {
			return nil, false, fmt.Errorf("discussion conflict but no row found for pair (%d, %d)", userA, userB)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to create discussion: %w", err)
	}

	d, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if d == nil {
		return nil, false, fmt.Errorf("created discussion %d not found", id)
	}
	return d, created, nil
}

// ListByUser はユーザーが参加する会話一覧をupdated_at降順で返す。
// 各行には相手ユーザーと最新メッセージを含める。
func (r *PostgresDiscussionRepo) ListByUser(ctx context.Context, userID int64) ([]model.ConversationSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT d.id, d.created_at, d.updated_at,
		        o.id, o.username, o.name, o.surname,
		        m.id, m.sender_id, m.content, m.media_url, m.media_type, m.created_at
		 FROM discussions d
		 JOIN users o ON o.id = CASE WHEN d.user1_id = $1 THEN d.user2_id ELSE d.user1_id END
		 LEFT JOIN LATERAL (
		     SELECT id, sender_id, content, media_url, media_type, created_at
		     FROM messages
		     WHERE discussion_id = d.id
		     ORDER BY id DESC
		     LIMIT 1
		 ) m ON true
		 WHERE d.user1_id = $1 OR d.user2_id = $1
		 ORDER BY d.updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list discussions: %w", err)
	}
	defer rows.Close()

	var result []model.ConversationSummary
	for rows.Next() {
		var (
			c                            model.ConversationSummary
			msgID, senderID              sql.NullInt64
			content, mediaURL, mediaType sql.NullString
			msgCreatedAt                 sql.NullTime
		)
		if err := rows.Scan(
			&c.ID, &c.CreatedAt, &c.UpdatedAt,
			&c.OtherUser.ID, &c.OtherUser.Username, &c.OtherUser.Name, &c.OtherUser.Surname,
			&msgID, &senderID, &content, &mediaURL, &mediaType, &msgCreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan discussion: %w", err)
		}
		if msgID.Valid {
			c.LastMessage = &model.Message{
				ID:           msgID.Int64,
				DiscussionID: c.ID,
				SenderID:     senderID.Int64,
				Content:      content.String,
				MediaURL:     mediaURL.String,
				MediaType:    mediaType.String,
				CreatedAt:    msgCreatedAt.Time,
			}
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate discussions: %w", err)
	}
	return result, nil
}

// compile-time interface check
var _ DiscussionRepository = (*PostgresDiscussionRepo)(nil)
