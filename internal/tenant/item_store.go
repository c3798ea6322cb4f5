package tenant

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hitoshi/tenantbase/internal/model"
)

// ItemStore はテナント・セクションスコープのアイテム永続化を提供する。
//
// 全操作は最初にテナントコンテキストをバインドし、テナントの物理スキーマに
// 対してちょうど1つのステートメントを実行する。アプリケーションロジックを
// 迂回されても、行レベルセキュリティが他テナントの行を拒否する。
type ItemStore struct {
	db *sql.DB
}

// NewItemStore はItemStoreを生成する。
func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

// List は指定セクションのアイテムをID昇順でlimit件まで返す。
// cursorが空でない場合、IDがcursorより大きい行のみを返す
// （排他的キーセットページネーション。オフセットと違い並行挿入に対して安定）。
func (s *ItemStore) List(ctx context.Context, accountID, section string, limit int, cursor string) ([]model.Item, error) {
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
		`SELECT id::text, section_slug, name, COALESCE(data, '{}'::jsonb), created_at
		 FROM %s.items
		 WHERE section_slug = $1`, QuoteIdentifier(schema))
	args := []any{section}

	if cursor != "" {
		query += fmt.Sprintf(` AND id > $%d`, len(args)+1)
		args = append(args, cursor)
	}

	query += fmt.Sprintf(` ORDER BY id LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := sess.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("アイテム一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("アイテム一覧の走査に失敗しました: %w", err)
	}

	return items, nil
}

// Create はアイテムを作成し、サーバー側で確定した値込みの永続化済み行を返す。
// IDはアプリケーション側で時刻順序を持つUUIDv7を生成する。
// （カラムデフォルトのgen_random_uuid()はランダムで挿入順ソートを保証しないため）
func (s *ItemStore) Create(ctx context.Context, accountID, section, name string, data map[string]any) (*model.Item, error) {
	schema, err := SchemaName(accountID)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("アイテムIDの生成に失敗しました: %w", err)
	}

	if data == nil {
		data = map[string]any{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("アイテムデータのシリアライズに失敗しました: %w", err)
	}

	sess, err := Bind(ctx, s.db, accountID)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	query := fmt.Sprintf(
		`INSERT INTO %s.items (id, section_slug, name, data)
		 VALUES ($1, $2, $3, CAST($4 AS jsonb))
		 RETURNING id::text, section_slug, name, data, created_at`, QuoteIdentifier(schema))

	item, err := scanItem(sess.QueryRowContext(ctx, query, id.String(), section, name, string(payload)))
	if err != nil {
		return nil, fmt.Errorf("アイテムの作成に失敗しました: %w", err)
	}
	return item, nil
}

// Get は指定IDのアイテムを取得する。
// 見つからない場合（バインド中のテナントから不可視の場合を含む）はnilを返す。
func (s *ItemStore) Get(ctx context.Context, accountID, itemID string) (*model.Item, error) {
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
		`SELECT id::text, section_slug, name, COALESCE(data, '{}'::jsonb), created_at
		 FROM %s.items
		 WHERE id = $1
		 LIMIT 1`, QuoteIdentifier(schema))

	item, err := scanItem(sess.QueryRowContext(ctx, query, itemID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("アイテムの取得に失敗しました: %w", err)
	}
	return item, nil
}

// Update はアイテムの部分更新を行う。nilのフィールドは変更しない。
// name・dataの両方がnilの場合はステートメントを発行せずnilを返す
// （リトライに対して冪等なno-op）。見つからない場合もnilを返す。
func (s *ItemStore) Update(ctx context.Context, accountID, itemID string, name *string, data map[string]any) (*model.Item, error) {
	schema, err := SchemaName(accountID)
	if err != nil {
		return nil, err
	}

	sets := []string{}
	args := []any{itemID}

	if name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)+1))
		args = append(args, *name)
	}
	if data != nil {
		payload, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("アイテムデータのシリアライズに失敗しました: %w", err)
		}
		sets = append(sets, fmt.Sprintf("data = CAST($%d AS jsonb)", len(args)+1))
		args = append(args, string(payload))
	}
	if len(sets) == 0 {
		return nil, nil
	}

	sess, err := Bind(ctx, s.db, accountID)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	query := fmt.Sprintf(
		`UPDATE %s.items SET %s
		 WHERE id = $1
		 RETURNING id::text, section_slug, name, data, created_at`,
		QuoteIdentifier(schema), strings.Join(sets, ", "))

	item, err := scanItem(sess.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("アイテムの更新に失敗しました: %w", err)
	}
	return item, nil
}

// Delete は指定IDのアイテムを無条件に削除する。
// 存在しないIDの削除はエラーにならない（冪等な削除）。
func (s *ItemStore) Delete(ctx context.Context, accountID, itemID string) error {
	schema, err := SchemaName(accountID)
	if err != nil {
		return err
	}

	sess, err := Bind(ctx, s.db, accountID)
	if err != nil {
		return err
	}
	defer sess.Close()

	query := fmt.Sprintf(`DELETE FROM %s.items WHERE id = $1`, QuoteIdentifier(schema))
	if _, err := sess.ExecContext(ctx, query, itemID); err != nil {
		return fmt.Errorf("アイテムの削除に失敗しました: %w", err)
	}
	return nil
}

// DeleteBySection は指定セクションのアイテムをすべて削除する。
// セクション削除時に呼び出される。
func (s *ItemStore) DeleteBySection(ctx context.Context, accountID, section string) error {
	schema, err := SchemaName(accountID)
	if err != nil {
		return err
	}

	sess, err := Bind(ctx, s.db, accountID)
	if err != nil {
		return err
	}
	defer sess.Close()

	query := fmt.Sprintf(`DELETE FROM %s.items WHERE section_slug = $1`, QuoteIdentifier(schema))
	if _, err := sess.ExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("セクション内アイテムの削除に失敗しました: %w", err)
	}
	return nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通部分。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanItem は1行をmodel.Itemに読み取り、dataをJSONデコード済みで返す。
func scanItem(row rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var raw []byte

	if err := row.Scan(&item.ID, &item.SectionSlug, &item.Name, &raw, &item.CreatedAt); err != nil {
		return nil, err
	}

	item.Data = map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &item.Data); err != nil {
			return nil, fmt.Errorf("アイテムデータのデコードに失敗しました: %w", err)
		}
	}
	return item, nil
}
