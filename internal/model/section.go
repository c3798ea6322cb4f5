package model

import "encoding/json"

// Section はテナント内のアイテムの名前付きグルーピングを表す。
// slugはアカウント内でユニーク。暗黙のスラグ "default" はレコードなしで常に存在する。
type Section struct {
	ID        string        `json:"id"`
	AccountID string        `json:"-"`
	Slug      string        `json:"slug"`
	Label     string        `json:"label"`
	Schema    SectionSchema `json:"schema"`
}

// SectionSchema はセクションに宣言されたフィールド定義のドキュメント。
// 正規化後は常にfields配列の形を取る。
type SectionSchema struct {
	Fields []SectionField `json:"fields"`
}

// SectionField はセクションスキーマの1フィールド定義。
// Key以外は任意項目。
type SectionField struct {
	Key     string          `json:"key"`
	Label   string          `json:"label,omitempty"`
	Type    string          `json:"type,omitempty"`
	Options json.RawMessage `json:"options,omitempty"`
	Order   *int            `json:"order,omitempty"`
}
