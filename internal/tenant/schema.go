// Package tenant はテナント分離の中核を提供する。
//
// テナントごとに専用のPostgreSQLスキーマを持ち、行レベルセキュリティと
// セッションローカルなテナントコンテキストで分離を強制する。
// ユーザー入力からSQL識別子への唯一の信頼境界はこのパッケージにある。
package tenant

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// schemaPrefix はテナントスキーマ名の固定プレフィックス。
const schemaPrefix = "tenant_"

// NormalizeAccountID はアカウントIDを厳密にUUIDとして検証し、
// 正規形（小文字・ハイフン区切り）で返す。
// この検証を通過した文字列のみがスキーマ名やポリシーリテラルに使用できる。
func NormalizeAccountID(accountID string) (string, error) {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return "", fmt.Errorf("アカウントIDがUUIDではありません: %w", err)
	}
	return id.String(), nil
}

// SchemaName はアカウントIDからテナントスキーマ名を導出する。
// UUID検証済みのIDからハイフンを除去しプレフィックスを付与するため、
// 結果は常に英数字とアンダースコアのみで構成される。
// 出力は必ずQuoteIdentifier経由でSQL識別子位置に使用し、値位置には使用しないこと。
func SchemaName(accountID string) (string, error) {
	id, err := NormalizeAccountID(accountID)
	if err != nil {
		return "", err
	}
	return schemaPrefix + strings.ReplaceAll(id, "-", ""), nil
}

// QuoteIdentifier はスキーマ名・テーブル名をSQL識別子として引用する。
func QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

// quoteLiteral は文字列をSQLリテラルとして引用する。
// プロビジョニングDDL内のポリシー式など、パラメータを取れない位置でのみ使用する。
func quoteLiteral(literal string) string {
	return pq.QuoteLiteral(literal)
}
