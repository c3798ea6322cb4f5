package tenant

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/tenantbase/internal/model"
)

// CommentStore はアイテムスコープの追記専用コメント永続化を提供する。
// item_idの妥当性はDBの外部キー参照以上には検証しない
// （カスケード削除がアイテム削除時の整合性を保つ）。
type CommentStore struct {
	db *sql.DB
}

// NewCommentStore はCommentStoreを生成する。
func NewCommentStore(db *sql.DB) *CommentStore {
	return &CommentStore{db: db}
}

// List は指定アイテムのコメントを新しい順（created_at降順、同時刻はID降順）で返す。
// IDによるタイブレークで同一タイムスタンプでも順序が決定的になる。
func (s *CommentStore) List(ctx context.Context, accountID, itemID string) ([]model.Comment, error) {
	schema, err := SchemaName(accountID)
	if err != nil {
		return nil, err
	}

	sess, err := Bind(ctx, s.db, accountID)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	query := fmt.Sprintf(
		`SELECT id::text, item_id::text, COALESCE(user_id::text, ''), COALESCE(user_name, ''), body, created_at
		 FROM %s.comments
		 WHERE item_id = $1
		 ORDER BY created_at DESC, id DESC`, QuoteIdentifier(schema))

	rows, err := sess.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("コメント一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.ItemID, &c.UserID, &c.UserName, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("コメント行の読み取りに失敗しました: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("コメント一覧の走査に失敗しました: %w", err)
	}

	return comments, nil
}

// Create はコメントを作成し、永続化済みの行を返す。
// userIDが空文字列の場合はNULLとして保存する（退会済みユーザーと同じ扱い）。
func (s *CommentStore) Create(ctx context.Context, accountID, itemID, userID, userName, body string) (*model.Comment, error) {
	schema, err := SchemaName(accountID)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("コメントIDの生成に失敗しました: %w", err)
	}

	sess, err := Bind(ctx, s.db, accountID)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	query := fmt.Sprintf(
		`INSERT INTO %s.comments (id, item_id, user_id, user_name, body)
		 VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5)
		 RETURNING id::text, item_id::text, COALESCE(user_id::text, ''), COALESCE(user_name, ''), body, created_at`,
		QuoteIdentifier(schema))

	var c model.Comment
	err = sess.QueryRowContext(ctx, query, id.String(), itemID, userID, userName, body).
		Scan(&c.ID, &c.ItemID, &c.UserID, &c.UserName, &c.Body, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("コメントの作成に失敗しました: %w", err)
	}
	return &c, nil
}
