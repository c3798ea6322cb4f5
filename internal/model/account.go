package model

import "time"

// Account はテナントを表す。物理DB上では専用スキーマを1つ所有する。
type Account struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Membership はユーザーとアカウントの多対多の紐付けを表す。
// (user_id, account_id) でユニーク。roleは現状owner固定だが将来の差別化のために保持する。
type Membership struct {
	ID        string
	UserID    string
	AccountID string
	Role      string
	CreatedAt time.Time
}
