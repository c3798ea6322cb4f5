// Package authz はロール階層に基づく認可ルールを評価する。
//
// ロールは standard < admin < super_admin の全順序を持つ。
// 管理操作はデータストアに触れる前にここで却下される。
// 「未認証」「権限不足」「対象未検出」は重複しない別個のエラーとして返す。
package authz

import "github.com/hitoshi/tenantbase/internal/model"

// RequireAdmin は要求者がadmin以上であることを検証する。
// アカウント・ユーザーの一覧および管理操作の前提条件。
func RequireAdmin(requester model.UserType) error {
	if !requester.IsAdmin() {
		return model.NewAuthorizationDeniedError("この操作には管理者権限が必要です。")
	}
	return nil
}

// RequireSuperAdmin は要求者がsuper_adminであることを検証する。
func RequireSuperAdmin(requester model.UserType) error {
	if requester != model.UserTypeSuperAdmin {
		return model.NewAuthorizationDeniedError("この操作には特権管理者権限が必要です。")
	}
	return nil
}

// CanAssignRole はtargetRoleのユーザーを作成・昇格できるかを検証する。
// super_adminロールの付与はsuper_adminにのみ許可される（権限昇格の防止）。
func CanAssignRole(requester, targetRole model.UserType) error {
	if err := RequireAdmin(requester); err != nil {
		return err
	}
	if targetRole == model.UserTypeSuperAdmin && requester != model.UserTypeSuperAdmin {
		return model.NewAuthorizationDeniedError("super_adminロールの付与は特権管理者のみ実行できます。")
	}
	return nil
}

// CanManageUser は既存ユーザーの編集・削除が許可されるかを検証する。
// super_adminユーザーへの操作はsuper_adminにのみ許可される。
func CanManageUser(requester, targetType model.UserType) error {
	if err := RequireAdmin(requester); err != nil {
		return err
	}
	if targetType == model.UserTypeSuperAdmin && requester != model.UserTypeSuperAdmin {
		return model.NewAuthorizationDeniedError("super_adminユーザーの操作は特権管理者のみ実行できます。")
	}
	return nil
}

// CanDeleteUser はユーザー削除が許可されるかを検証する。
// ロールに関わらず、自分自身のユーザーは削除できない。
func CanDeleteUser(requesterID, targetID string, requester, targetType model.UserType) error {
	if requesterID == targetID {
		return model.NewAuthorizationDeniedError("自分自身のユーザーアカウントは削除できません。")
	}
	return CanManageUser(requester, targetType)
}

// CanViewPreferences は管理一覧で他ユーザーの設定を閲覧できるかを返す。
// 認証ルールではなく機密性ルール: super_adminのみ許可。
func CanViewPreferences(requester model.UserType) bool {
	return requester == model.UserTypeSuperAdmin
}
