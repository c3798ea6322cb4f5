package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresPreferenceRepo はPostgreSQLを使用したユーザー設定リポジトリ。
// ui_labelsカラムに生のJSONドキュメントを保持し、デフォルト値との
// マージはpreferenceパッケージが担当する。
type PostgresPreferenceRepo struct {
	db *sql.DB
}

// NewPostgresPreferenceRepo はPostgresPreferenceRepoを生成する。
func NewPostgresPreferenceRepo(db *sql.DB) *PostgresPreferenceRepo {
	return &PostgresPreferenceRepo{db: db}
}

// FindLabels はユーザーの生のUIラベルドキュメントを返す。見つからない場合はnilを返す。
func (r *PostgresPreferenceRepo) FindLabels(ctx context.Context, userID string) (map[string]any, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT ui_labels FROM user_preferences WHERE user_id = $1 LIMIT 1`,
		userID,
	).Scan(&raw)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザー設定の取得に失敗しました: %w", err)
	}

	labels := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &labels); err != nil {
			return nil, fmt.Errorf("ユーザー設定のデコードに失敗しました: %w", err)
		}
	}
	return labels, nil
}

// Upsert はUIラベルドキュメントを作成または上書きする。
func (r *PostgresPreferenceRepo) Upsert(ctx context.Context, userID string, labels map[string]any) error {
	payload, err := json.Marshal(labels)
	if err != nil {
		return fmt.Errorf("ユーザー設定のシリアライズに失敗しました: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO user_preferences (user_id, ui_labels, updated_at)
		 VALUES ($1, CAST($2 AS jsonb), now())
		 ON CONFLICT (user_id) DO UPDATE
		   SET ui_labels = EXCLUDED.ui_labels,
		       updated_at = now()`,
		userID, string(payload),
	)
	if err != nil {
		return fmt.Errorf("ユーザー設定の保存に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ PreferenceRepository = (*PostgresPreferenceRepo)(nil)
