package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/tenantbase/internal/model"
)

// PostgresSectionRepo はPostgreSQLを使用したセクションリポジトリ。
// schemaカラムは正規化済みのJSONドキュメントをそのまま保持する。
type PostgresSectionRepo struct {
	db *sql.DB
}

// NewPostgresSectionRepo はPostgresSectionRepoを生成する。
func NewPostgresSectionRepo(db *sql.DB) *PostgresSectionRepo {
	return &PostgresSectionRepo{db: db}
}

// ListByAccount はアカウントのセクションを作成順で返す。
func (r *PostgresSectionRepo) ListByAccount(ctx context.Context, accountID string) ([]model.Section, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id::text, account_id::text, slug, label, COALESCE(schema, '{}'::jsonb)
		 FROM sections
		 WHERE account_id = $1
		 ORDER BY created_at`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("セクション一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	sections := []model.Section{}
	for rows.Next() {
		section, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		sections = append(sections, *section)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("セクション一覧の走査に失敗しました: %w", err)
	}

	return sections, nil
}

// FindBySlug はアカウントとスラグでセクションを取得する。見つからない場合はnilを返す。
func (r *PostgresSectionRepo) FindBySlug(ctx context.Context, accountID, slug string) (*model.Section, error) {
	section, err := scanSection(r.db.QueryRowContext(ctx,
		`SELECT id::text, account_id::text, slug, label, COALESCE(schema, '{}'::jsonb)
		 FROM sections
		 WHERE account_id = $1 AND slug = $2
		 LIMIT 1`,
		accountID, slug,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("セクションの取得に失敗しました: %w", err)
	}
	return section, nil
}

// Upsert は(account_id, slug)で作成または上書きし、永続化済みの行を返す。
func (r *PostgresSectionRepo) Upsert(ctx context.Context, accountID, slug, label string, schema json.RawMessage) (*model.Section, error) {
	section, err := scanSection(r.db.QueryRowContext(ctx,
		`INSERT INTO sections (account_id, slug, label, schema)
		 VALUES ($1, $2, $3, CAST($4 AS jsonb))
		 ON CONFLICT (account_id, slug) DO UPDATE
		   SET label = EXCLUDED.label,
		       schema = EXCLUDED.schema
		 RETURNING id::text, account_id::text, slug, label, COALESCE(schema, '{}'::jsonb)`,
		accountID, slug, label, string(schema),
	))
	if err != nil {
		return nil, fmt.Errorf("セクションの作成に失敗しました: %w", err)
	}
	return section, nil
}

// Update は既存セクションのラベルとスキーマを更新する。見つからない場合はnilを返す。
func (r *PostgresSectionRepo) Update(ctx context.Context, accountID, slug, label string, schema json.RawMessage) (*model.Section, error) {
	section, err := scanSection(r.db.QueryRowContext(ctx,
		`UPDATE sections
		 SET label = $3,
		     schema = CAST($4 AS jsonb)
		 WHERE account_id = $1 AND slug = $2
		 RETURNING id::text, account_id::text, slug, label, COALESCE(schema, '{}'::jsonb)`,
		accountID, slug, label, string(schema),
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("セクションの更新に失敗しました: %w", err)
	}
	return section, nil
}

// Delete はセクション行を削除する。見つからない場合はfalseを返す。
func (r *PostgresSectionRepo) Delete(ctx context.Context, accountID, slug string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM sections WHERE account_id = $1 AND slug = $2`,
		accountID, slug,
	)
	if err != nil {
		return false, fmt.Errorf("セクションの削除に失敗しました: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除行数の取得に失敗しました: %w", err)
	}
	return affected > 0, nil
}

// scanSection は1行をmodel.Sectionに読み取り、schemaをデコード済みで返す。
func scanSection(row interface{ Scan(dest ...any) error }) (*model.Section, error) {
	section := &model.Section{}
	var raw []byte

	if err := row.Scan(&section.ID, &section.AccountID, &section.Slug, &section.Label, &raw); err != nil {
		return nil, err
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &section.Schema); err != nil {
			return nil, fmt.Errorf("セクションスキーマのデコードに失敗しました: %w", err)
		}
	}
	if section.Schema.Fields == nil {
		section.Schema.Fields = []model.SectionField{}
	}
	return section, nil
}

// compile-time interface check
var _ SectionRepository = (*PostgresSectionRepo)(nil)
