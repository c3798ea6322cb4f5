// Package repository は共有スキーマのデータ永続化インターフェースを定義する。
// テナント専用スキーマ（items/comments）はtenantパッケージのストアが担当する。
package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/hitoshi/tenantbase/internal/model"
)

// ProvisionFunc はアカウント作成トランザクションの内側で実行される
// テナントスキーマのプロビジョニング処理。
// tenant.ProvisionOnを部分適用して渡す。
type ProvisionFunc func(ctx context.Context, ex Execer, accountID string) error

// DropFunc はアカウント削除トランザクションの内側で実行される
// テナントスキーマの削除処理。
type DropFunc func(ctx context.Context, ex Execer, accountID string) error

// Execer はトランザクション内でのステートメント実行を抽象化する。
// tenant.Execerと同形で、*sql.Txがそのまま満たす。
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// AccountRepository はアカウントデータの永続化インターフェース。
type AccountRepository interface {
	// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Account, error)

	// ListAll は全アカウントを作成日時降順で返す。
	ListAll(ctx context.Context) ([]model.Account, error)

	// ListByUser はユーザーがメンバーシップを持つアカウントを返す。
	ListByUser(ctx context.Context, userID string) ([]model.Account, error)

	// CreateWithOwner はアカウント行・オーナーメンバーシップ行の挿入と
	// テナントスキーマのプロビジョニングを同一トランザクションで実行する。
	// いずれかが失敗した場合は全体がロールバックされる。
	CreateWithOwner(ctx context.Context, name, ownerUserID string, provision ProvisionFunc) (*model.Account, error)

	// UpdateName はアカウント名を更新する。見つからない場合はnilを返す。
	UpdateName(ctx context.Context, id, name string) (*model.Account, error)

	// DeleteCascade はテナントスキーマの削除・メンバーシップ・セクション・
	// アカウント行の削除を同一トランザクションで実行する。
	// アカウントが存在しない場合はfalseを返す。
	DeleteCascade(ctx context.Context, id string, drop DropFunc) (bool, error)
}

// SectionRepository はセクションデータの永続化インターフェース。
type SectionRepository interface {
	// ListByAccount はアカウントのセクションを作成順で返す。
	ListByAccount(ctx context.Context, accountID string) ([]model.Section, error)

	// FindBySlug はアカウントとスラグでセクションを取得する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, accountID, slug string) (*model.Section, error)

	// Upsert は(account_id, slug)で作成または上書きし、永続化済みの行を返す。
	Upsert(ctx context.Context, accountID, slug, label string, schema json.RawMessage) (*model.Section, error)

	// Update は既存セクションのラベルとスキーマを更新する。見つからない場合はnilを返す。
	Update(ctx context.Context, accountID, slug, label string, schema json.RawMessage) (*model.Section, error)

	// Delete はセクション行を削除する。見つからない場合はfalseを返す。
	Delete(ctx context.Context, accountID, slug string) (bool, error)
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
	// 認証用にPasswordHashを含む。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// List は全ユーザーを作成日時降順で返す。
	List(ctx context.Context) ([]model.User, error)

	// Create はユーザーを作成する。メールアドレスの一意制約違反は
	// model.APIError（CONFLICT）として返す。
	Create(ctx context.Context, user *model.User) (*model.User, error)

	// Update はユーザーの部分更新を行う。nilのフィールドは変更しない。
	// 見つからない場合はnilを返す。
	Update(ctx context.Context, id string, name *string, userType *model.UserType, isActive *bool) (*model.User, error)

	// Delete は指定IDのユーザーを削除する。見つからない場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)

	// AddMemberships は指定アカウント群へのownerメンバーシップを追加する。
	// 既存のメンバーシップは無視する（ON CONFLICT DO NOTHING）。
	AddMemberships(ctx context.Context, userID string, accountIDs []string) error

	// ReplaceMemberships はユーザーのメンバーシップを指定アカウント群で置き換える。
	ReplaceMemberships(ctx context.Context, userID string, accountIDs []string) error
}

// PreferenceRepository はユーザー設定の永続化インターフェース。
type PreferenceRepository interface {
	// FindLabels はユーザーの生のUIラベルドキュメントを返す。
	// 見つからない場合はnilを返す。
	FindLabels(ctx context.Context, userID string) (map[string]any, error)

	// Upsert はUIラベルドキュメントを作成または上書きする。
	Upsert(ctx context.Context, userID string, labels map[string]any) error
}
