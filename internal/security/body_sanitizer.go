// Package security はアプリケーションのセキュリティ機能を提供する。
//
// BodySanitizerService はユーザー入力のコメント本文をサニタイズし、
// 保存されたコンテンツ経由のXSS攻撃からユーザーを保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なインライン装飾タグのみを通過させる。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// BodySanitizerService はコメント本文のサニタイズ機能のインターフェースを定義する。
// コメントの保存前に使用される。
type BodySanitizerService interface {
	// Sanitize は本文をサニタイズして安全なHTMLを返す。
	// 許可タグ（a, code, strong, em, br）のみを通過させ、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// aタグにはtarget="_blank"とrel="noopener noreferrer"が自動付与される。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// bodySanitizer はBodySanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type bodySanitizer struct {
	policy *bluemonday.Policy
}

// NewBodySanitizer はBodySanitizerServiceの新しいインスタンスを生成する。
// 初期化時にbluemondayのカスタムポリシーを構築する。
// ポリシーの内容:
//   - 許可タグ: a, code, strong, em, br
//   - 禁止タグ: script, iframe, style および全てのon*イベント属性
//   - aタグ: httpsリンクのみ許可し、target="_blank" と rel="noopener noreferrer" を自動付与
func NewBodySanitizer() *bodySanitizer {
	p := bluemonday.NewPolicy()

	// コメントはインライン装飾のみ許可する。
	// ブロック要素やscript等は許可リストに含めないことで自動的に除去される。
	p.AllowElements("code", "strong", "em", "br")

	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AllowURLSchemes("https")
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return &bodySanitizer{
		policy: p,
	}
}

// Sanitize は本文をサニタイズして安全なHTMLを返す。
func (s *bodySanitizer) Sanitize(raw string) string {
	return s.policy.Sanitize(raw)
}
