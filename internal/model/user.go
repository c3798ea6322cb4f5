// Package model はドメインモデルを定義する。
package model

import "time"

// UserType はユーザーの権限レベルを表す。
// standard < admin < super_admin の全順序を持つ。
type UserType string

const (
	// UserTypeStandard は一般ユーザー。管理操作は実行できない。
	UserTypeStandard UserType = "standard"
	// UserTypeAdmin は管理者。アカウント・ユーザー管理を実行できる。
	UserTypeAdmin UserType = "admin"
	// UserTypeSuperAdmin は特権管理者。super_adminの作成・編集・削除が唯一許可される。
	UserTypeSuperAdmin UserType = "super_admin"
)

// Valid は定義済みのユーザー種別かどうかを返す。
func (t UserType) Valid() bool {
	switch t {
	case UserTypeStandard, UserTypeAdmin, UserTypeSuperAdmin:
		return true
	}
	return false
}

// Level は権限レベルの序数を返す。大きいほど強い権限を持つ。
// 未定義の種別はstandard相当として扱う。
func (t UserType) Level() int {
	switch t {
	case UserTypeSuperAdmin:
		return 2
	case UserTypeAdmin:
		return 1
	default:
		return 0
	}
}

// IsAdmin はadmin以上の権限を持つかどうかを返す。
func (t UserType) IsAdmin() bool {
	return t.Level() >= UserTypeAdmin.Level()
}

// User はサービス利用ユーザーを表す。
// PasswordHashは永続層と認証層のみが参照し、APIレスポンスには含めない。
type User struct {
	ID           string
	Email        string
	Name         string
	UserType     UserType
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
}

// Preferences はユーザーごとのUIラベル設定を表す。
type Preferences struct {
	AccountsLabel string `json:"accounts_label"`
	SectionsLabel string `json:"sections_label"`
	ItemsLabel    string `json:"items_label"`
	ShowSlugs     bool   `json:"show_slugs"`
}
