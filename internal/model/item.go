package model

import "time"

// DefaultSectionSlug はセクション未指定のアイテムが属する暗黙のセクション。
// Sectionレコードが存在しなくても常に有効なスラグとして扱う。
const DefaultSectionSlug = "default"

// Item はテナント専用スキーマに格納されるJSONドキュメントを表す。
// IDは時刻順序を持つUUID（UUIDv7）で、昇順がほぼ挿入順となり
// キーセットページネーションの安定ソートキーとして機能する。
type Item struct {
	ID          string         `json:"id"`
	SectionSlug string         `json:"section_slug,omitempty"`
	Name        string         `json:"name"`
	Data        map[string]any `json:"data"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ItemPage はキーセットページネーションの1ページ分の結果を表す。
// Nextは満杯ページ（len(Items) == limit）の場合のみ最終アイテムのIDが入り、
// それ以外はnull（次ページなし）となる。
type ItemPage struct {
	Items []Item  `json:"items"`
	Next  *string `json:"next"`
}

// Comment はアイテムに紐づく追記専用のコメントを表す。
// item_idの外部キーはON DELETE CASCADEで、アイテム削除時にコメントも消える。
type Comment struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"item_id"`
	UserID    string    `json:"user_id,omitempty"`
	UserName  string    `json:"user_name,omitempty"`
	Body      string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}
