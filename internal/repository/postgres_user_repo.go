package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/hitoshi/tenantbase/internal/model"
)

// uniqueViolationCode はPostgreSQLの一意制約違反のSQLSTATE。
const uniqueViolationCode = "23505"

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// userColumns は読み取りクエリの共通SELECT列。
// user_typeが未設定の旧データはis_adminフラグから推定する。
const userColumns = `id::text,
	email,
	COALESCE(name, ''),
	COALESCE(user_type, CASE WHEN is_admin THEN 'admin' ELSE 'standard' END),
	COALESCE(password_hash, ''),
	is_active,
	created_at`

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 LIMIT 1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	return user, nil
}

// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 LIMIT 1`, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("メールアドレスによるユーザーの検索に失敗しました: %w", err)
	}
	return user, nil
}

// List は全ユーザーを作成日時降順で返す。
func (r *PostgresUserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("ユーザー行の読み取りに失敗しました: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ユーザー一覧の走査に失敗しました: %w", err)
	}
	return users, nil
}

// Create はユーザーを作成する。
// メールアドレスの一意制約違反はmodel.APIError（CONFLICT）として返す。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) (*model.User, error) {
	created, err := scanUser(r.db.QueryRowContext(ctx,
		`INSERT INTO users (email, name, user_type, password_hash, is_admin, is_active)
		 VALUES ($1, $2, $3, $4, $5, TRUE)
		 RETURNING `+userColumns,
		user.Email, user.Name, string(user.UserType), user.PasswordHash, user.UserType.IsAdmin(),
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, model.NewConflictError("このメールアドレスは既に登録されています。")
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}
	return created, nil
}

// Update はユーザーの部分更新を行う。nilのフィールドは変更しない。
// user_typeの変更時は互換用のis_adminフラグも同期する。
// 全フィールドがnilの場合は現在の行をそのまま返す。見つからない場合はnilを返す。
func (r *PostgresUserRepo) Update(ctx context.Context, id string, name *string, userType *model.UserType, isActive *bool) (*model.User, error) {
	sets := []string{}
	args := []any{id}

	if name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)+1))
		args = append(args, *name)
	}
	if userType != nil {
		sets = append(sets, fmt.Sprintf("user_type = $%d", len(args)+1))
		args = append(args, string(*userType))
		sets = append(sets, fmt.Sprintf("is_admin = $%d", len(args)+1))
		args = append(args, userType.IsAdmin())
	}
	if isActive != nil {
		sets = append(sets, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *isActive)
	}

	if len(sets) == 0 {
		return r.FindByID(ctx, id)
	}

	user, err := scanUser(r.db.QueryRowContext(ctx,
		fmt.Sprintf(`UPDATE users SET %s WHERE id = $1 RETURNING %s`,
			strings.Join(sets, ", "), userColumns),
		args...,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの更新に失敗しました: %w", err)
	}
	return user, nil
}

// Delete は指定IDのユーザーを削除する。見つからない場合はfalseを返す。
// memberships、user_preferencesはCASCADE削除される。
func (r *PostgresUserRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除行数の取得に失敗しました: %w", err)
	}
	return affected > 0, nil
}

// AddMemberships は指定アカウント群へのownerメンバーシップを追加する。
// 実在するアカウントのみを対象とし、既存のメンバーシップは無視する。
func (r *PostgresUserRepo) AddMemberships(ctx context.Context, userID string, accountIDs []string) error {
	if len(accountIDs) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO memberships (user_id, account_id, role)
		 SELECT $1, a.id, 'owner' FROM accounts a WHERE a.id = ANY($2::uuid[])
		 ON CONFLICT DO NOTHING`,
		userID, pq.Array(accountIDs),
	)
	if err != nil {
		return fmt.Errorf("メンバーシップの追加に失敗しました: %w", err)
	}
	return nil
}

// ReplaceMemberships はユーザーのメンバーシップを指定アカウント群で置き換える。
// 削除と追加を同一トランザクションで実行する。
func (r *PostgresUserRepo) ReplaceMemberships(ctx context.Context, userID string, accountIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM memberships WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("メンバーシップの削除に失敗しました: %w", err)
	}

	if len(accountIDs) > 0 {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO memberships (user_id, account_id, role)
			 SELECT $1, a.id, 'owner' FROM accounts a WHERE a.id = ANY($2::uuid[])
			 ON CONFLICT DO NOTHING`,
			userID, pq.Array(accountIDs),
		)
		if err != nil {
			return fmt.Errorf("メンバーシップの追加に失敗しました: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// scanUser は1行をmodel.Userに読み取る。
func scanUser(row interface{ Scan(dest ...any) error }) (*model.User, error) {
	user := &model.User{}
	var userType string
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &userType, &user.PasswordHash, &user.IsActive, &user.CreatedAt); err != nil {
		return nil, err
	}
	user.UserType = model.UserType(userType)
	return user, nil
}

// isUniqueViolation はPostgreSQLの一意制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return string(pqErr.Code) == uniqueViolationCode
}
