package tenant

import (
	"context"
	"database/sql"
	"fmt"
)

// Session はテナントコンテキストをバインド済みのDBセッションを表す。
//
// 行レベルセキュリティポリシーが参照するセッションローカル変数
// (app.current_account) を設定した専用コネクションを1本保持する。
// 暗黙のグローバル状態にせず明示的なハンドルとして受け渡すことで、
// バインディングの所有権と寿命を型として可視化する。
// Closeで変数をクリアしてからコネクションをプールへ返却するため、
// 再利用されたコネクションが以前のテナントを参照することはない。
type Session struct {
	conn      *sql.Conn
	accountID string
}

// Bind はアカウントIDを検証し、プールから取得した専用コネクションに
// テナントコンテキストを設定したSessionを返す。
// 以降このセッションで実行される全ステートメントは、行レベルセキュリティ
// によって当該テナントの行のみに束縛される。
// 値はポリシー側でtext/uuidとして比較されるため、プレーンなテキスト
// パラメータとしてバインドする。
func Bind(ctx context.Context, db *sql.DB, accountID string) (*Session, error) {
	id, err := NormalizeAccountID(accountID)
	if err != nil {
		return nil, err
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("テナントセッションの取得に失敗しました: %w", err)
	}

	if _, err := conn.ExecContext(ctx, `SELECT set_current_account($1)`, id); err != nil {
		conn.Close()
		return nil, fmt.Errorf("テナントコンテキストのバインドに失敗しました: %w", err)
	}

	return &Session{conn: conn, accountID: id}, nil
}

// AccountID はバインド済みの正規化されたアカウントIDを返す。
func (s *Session) AccountID() string {
	return s.accountID
}

// ExecContext はバインド済みコネクション上でステートメントを実行する。
func (s *Session) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.conn.ExecContext(ctx, query, args...)
}

// QueryContext はバインド済みコネクション上でクエリを実行する。
func (s *Session) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.conn.QueryContext(ctx, query, args...)
}

// QueryRowContext はバインド済みコネクション上で単一行クエリを実行する。
func (s *Session) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return s.conn.QueryRowContext(ctx, query, args...)
}

// Close はテナントコンテキストをクリアしてコネクションをプールへ返却する。
// リクエスト間でバインディングが漏洩しないよう、取得したセッションは
// 必ずCloseすること。クリアに失敗した場合もコネクションは返却する。
func (s *Session) Close() error {
	// プール返却前にセッションローカル変数を必ずリセットする
	_, resetErr := s.conn.ExecContext(context.Background(), `SELECT set_current_account(NULL)`)
	closeErr := s.conn.Close()

	if resetErr != nil {
		return fmt.Errorf("テナントコンテキストのリセットに失敗しました: %w", resetErr)
	}
	return closeErr
}
