package tenant

import (
	"context"
	"database/sql"
	"fmt"
)

// Execer はプロビジョニングDDLの実行先を抽象化する。
// *sql.DB、*sql.Tx、*sql.Conn のいずれも満たす。
// アカウント作成時はアカウント行・メンバーシップ行と同一トランザクションの
// *sql.Txを渡すことで、途中失敗時にスキーマだけが残ることを防ぐ。
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Provisioner はテナント専用スキーマの冪等なプロビジョニングを行う。
//
// 全DDLは存在チェック付き（IF NOT EXISTS / pg_policies照会）のため、
// プロビジョニング済みテナントへの再実行は無害なno-opとなる。
type Provisioner struct {
	db *sql.DB
}

// NewProvisioner はProvisionerを生成する。
func NewProvisioner(db *sql.DB) *Provisioner {
	return &Provisioner{db: db}
}

// Provision はテナントのスキーマ・テーブル・行レベルセキュリティポリシーを作成する。
func (p *Provisioner) Provision(ctx context.Context, accountID string) error {
	return ProvisionOn(ctx, p.db, accountID)
}

// EnsureComments はcommentsテーブルとその分離ポリシーのみを作成する。
// コメント機能追加以前にプロビジョニングされたテナントを修復するため、
// コメント操作の前に防御的に呼び出される。
func (p *Provisioner) EnsureComments(ctx context.Context, accountID string) error {
	id, err := NormalizeAccountID(accountID)
	if err != nil {
		return err
	}
	schema, err := SchemaName(id)
	if err != nil {
		return err
	}
	return runStatements(ctx, p.db, commentStatements(schema, id))
}

// Drop はテナントスキーマを依存オブジェクトごと削除する。
// スキーマが存在しない場合もエラーにならない。
func (p *Provisioner) Drop(ctx context.Context, ex Execer, accountID string) error {
	return DropOn(ctx, ex, accountID)
}

// ProvisionOn は指定されたExecer上でプロビジョニングDDLを実行する。
// アカウント作成トランザクションの内側から呼び出すための関数。
func ProvisionOn(ctx context.Context, ex Execer, accountID string) error {
	id, err := NormalizeAccountID(accountID)
	if err != nil {
		return err
	}
	schema, err := SchemaName(id)
	if err != nil {
		return err
	}
	return runStatements(ctx, ex, provisionStatements(schema, id))
}

// DropOn は指定されたExecer上でテナントスキーマをCASCADE削除する。
func DropOn(ctx context.Context, ex Execer, accountID string) error {
	schema, err := SchemaName(accountID)
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf(`DROP SCHEMA IF EXISTS %s CASCADE`, QuoteIdentifier(schema))
	if _, err := ex.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("テナントスキーマの削除に失敗しました: %w", err)
	}
	return nil
}

// runStatements はDDLステートメントを順番に実行する。
// いずれかが失敗した時点で中断し、囲っているトランザクションをアボートさせる。
func runStatements(ctx context.Context, ex Execer, statements []string) error {
	for _, stmt := range statements {
		if _, err := ex.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("プロビジョニングDDLの実行に失敗しました: %w", err)
		}
	}
	return nil
}

// provisionStatements はテナント1件分のプロビジョニングDDL一式を生成する。
// schemaはSchemaNameの出力、accountIDはNormalizeAccountIDの出力であること。
// 識別子はQuoteIdentifier、ポリシー式内のリテラルはquoteLiteralを必ず通す。
func provisionStatements(schema, accountID string) []string {
	qs := QuoteIdentifier(schema)

	statements := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, qs),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.items (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			section_slug TEXT NOT NULL DEFAULT 'default',
			name TEXT NOT NULL,
			data JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, qs),

		// 旧形式のテーブルをダウンタイムなしで移行するためのバックフィル。
		// section_slugが無い・NULLの行をdefaultに寄せてからNOT NULLを強制する。
		fmt.Sprintf(`ALTER TABLE %s.items ADD COLUMN IF NOT EXISTS section_slug TEXT`, qs),
		fmt.Sprintf(`UPDATE %s.items SET section_slug = 'default' WHERE section_slug IS NULL`, qs),
		fmt.Sprintf(`ALTER TABLE %s.items ALTER COLUMN section_slug SET DEFAULT 'default'`, qs),
		fmt.Sprintf(`ALTER TABLE %s.items ALTER COLUMN section_slug SET NOT NULL`, qs),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS items_section_slug_idx ON %s.items(section_slug)`, qs),

		fmt.Sprintf(`ALTER TABLE %s.items ENABLE ROW LEVEL SECURITY`, qs),
		policyStatement(schema, "items", "items_tenant_policy", tenantPolicy(schema, "items", "items_tenant_policy", accountID)),
	}

	return append(statements, commentStatements(schema, accountID)...)
}

// commentStatements はcommentsテーブルとその分離ポリシーのDDLを生成する。
// commentsのポリシーもitemsと同じテナントフィルタ付きで作成する。
func commentStatements(schema, accountID string) []string {
	qs := QuoteIdentifier(schema)

	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.comments (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			item_id UUID NOT NULL REFERENCES %s.items(id) ON DELETE CASCADE,
			user_id UUID,
			user_name TEXT,
			body TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, qs, qs),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS comments_item_id_idx ON %s.comments(item_id)`, qs),
		fmt.Sprintf(`ALTER TABLE %s.comments ENABLE ROW LEVEL SECURITY`, qs),
		policyStatement(schema, "comments", "comments_tenant_policy", tenantPolicy(schema, "comments", "comments_tenant_policy", accountID)),
	}
}

// tenantPolicy はテナント分離ポリシーのCREATE POLICY文を生成する。
// 読み取り（USING）と書き込み（WITH CHECK）の両方を
// 「バインド中のテナント == このテナント」で制限する。
func tenantPolicy(schema, table, policyName, accountID string) string {
	predicate := fmt.Sprintf(`current_setting('app.current_account')::uuid = %s`, quoteLiteral(accountID))
	return fmt.Sprintf(`CREATE POLICY %s ON %s.%s USING ( %s ) WITH CHECK ( %s )`,
		QuoteIdentifier(policyName), QuoteIdentifier(schema), QuoteIdentifier(table), predicate, predicate)
}

// policyStatement はポリシーが未作成の場合のみ作成する条件付きDDLを生成する。
// PostgreSQLにCREATE POLICY IF NOT EXISTSが無いため、pg_policiesを照会するDOブロックで包む。
func policyStatement(schema, table, policyName, createPolicy string) string {
	return fmt.Sprintf(`DO $policy$
BEGIN
	IF NOT EXISTS (
		SELECT 1 FROM pg_policies
		WHERE schemaname = %s AND tablename = %s AND policyname = %s
	) THEN
		EXECUTE %s;
	END IF;
END
$policy$`, quoteLiteral(schema), quoteLiteral(table), quoteLiteral(policyName), quoteLiteral(createPolicy))
}
