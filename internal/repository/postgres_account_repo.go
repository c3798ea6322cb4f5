package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/tenantbase/internal/model"
)

// PostgresAccountRepo はPostgreSQLを使用したアカウントリポジトリ。
type PostgresAccountRepo struct {
	db *sql.DB
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
func NewPostgresAccountRepo(db *sql.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	account := &model.Account{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id::text, name, created_at FROM accounts WHERE id = $1`,
		id,
	).Scan(&account.ID, &account.Name, &account.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("アカウントの取得に失敗しました: %w", err)
	}

	return account, nil
}

// ListAll は全アカウントを作成日時降順で返す。
func (r *PostgresAccountRepo) ListAll(ctx context.Context) ([]model.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id::text, name, created_at FROM accounts ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("アカウント一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanAccounts(rows)
}

// ListByUser はユーザーがメンバーシップを持つアカウントを返す。
func (r *PostgresAccountRepo) ListByUser(ctx context.Context, userID string) ([]model.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id::text, a.name, a.created_at
		 FROM accounts a
		 JOIN memberships m ON m.account_id = a.id
		 WHERE m.user_id = $1
		 ORDER BY a.created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("所属アカウント一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanAccounts(rows)
}

// CreateWithOwner はアカウント行・オーナーメンバーシップ行の挿入と
// テナントスキーマのプロビジョニングを同一トランザクションで実行する。
// provisionが失敗した場合、アカウントもメンバーシップも残らない。
func (r *PostgresAccountRepo) CreateWithOwner(ctx context.Context, name, ownerUserID string, provision ProvisionFunc) (*model.Account, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	account := &model.Account{}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO accounts (name) VALUES ($1) RETURNING id::text, name, created_at`,
		name,
	).Scan(&account.ID, &account.Name, &account.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("アカウントの作成に失敗しました: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO memberships (user_id, account_id, role)
		 VALUES ($1, $2, 'owner')
		 ON CONFLICT (user_id, account_id) DO NOTHING`,
		ownerUserID, account.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("オーナーメンバーシップの作成に失敗しました: %w", err)
	}

	if provision != nil {
		if err := provision(ctx, tx, account.ID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	return account, nil
}

// UpdateName はアカウント名を更新する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) UpdateName(ctx context.Context, id, name string) (*model.Account, error) {
	account := &model.Account{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE accounts SET name = $2 WHERE id = $1 RETURNING id::text, name, created_at`,
		id, name,
	).Scan(&account.ID, &account.Name, &account.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("アカウントの更新に失敗しました: %w", err)
	}

	return account, nil
}

// DeleteCascade はテナントスキーマの削除・依存行の削除・アカウント行の削除を
// 同一トランザクションで実行する。孤立したテナントデータを残さない。
func (r *PostgresAccountRepo) DeleteCascade(ctx context.Context, id string, drop DropFunc) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	if drop != nil {
		if err := drop(ctx, tx, id); err != nil {
			return false, err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM memberships WHERE account_id = $1`, id); err != nil {
		return false, fmt.Errorf("メンバーシップの削除に失敗しました: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sections WHERE account_id = $1`, id); err != nil {
		return false, fmt.Errorf("セクションの削除に失敗しました: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("アカウントの削除に失敗しました: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除行数の取得に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	return affected > 0, nil
}

// scanAccounts は結果セットをアカウントのスライスに読み取る。
func scanAccounts(rows *sql.Rows) ([]model.Account, error) {
	accounts := []model.Account{}
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("アカウント行の読み取りに失敗しました: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("アカウント一覧の走査に失敗しました: %w", err)
	}
	return accounts, nil
}

// compile-time interface check
var _ AccountRepository = (*PostgresAccountRepo)(nil)
