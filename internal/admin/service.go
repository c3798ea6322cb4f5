// Package admin はユーザー管理の管理操作を提供する。
//
// 認可の起点は常にデータベース上の要求者のロールであり、トークンや
// リクエストの内容からロールを信用しない。super_adminに関わる操作
// （付与・編集・削除）はsuper_adminにのみ許可される。
package admin

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/hitoshi/tenantbase/internal/auth"
	"github.com/hitoshi/tenantbase/internal/authz"
	"github.com/hitoshi/tenantbase/internal/model"
	"github.com/hitoshi/tenantbase/internal/preference"
	"github.com/hitoshi/tenantbase/internal/repository"
)

// パスワードの最小長。短いパスワードはハッシュ化の前に却下する。
const minPasswordLength = 8

// UserView は管理APIが返すユーザー像。
// Preferencesは要求者がsuper_adminの場合のみ設定される（機密性ルール）。
type UserView struct {
	User        model.User
	Preferences *model.Preferences
}

// Service はユーザーの管理操作を提供する。
type Service struct {
	users       repository.UserRepository
	preferences *preference.Service
	bcryptCost  int
	logger      *slog.Logger
}

// NewService はServiceを生成する。
func NewService(users repository.UserRepository, preferences *preference.Service, bcryptCost int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: users, preferences: preferences, bcryptCost: bcryptCost, logger: logger}
}

// ListUsers は全ユーザーを作成日時降順で返す。管理者のみ実行できる。
// 要求者がsuper_adminの場合は各ユーザーの設定も併せて返す。
func (s *Service) ListUsers(ctx context.Context, requesterID string) ([]UserView, error) {
	requester, err := s.requireAdmin(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}

	includePrefs := authz.CanViewPreferences(requester.UserType)
	views := make([]UserView, 0, len(users))
	for _, u := range users {
		view := UserView{User: u}
		if includePrefs {
			prefs, err := s.preferences.Get(ctx, u.ID)
			if err != nil {
				return nil, err
			}
			view.Preferences = &prefs
		}
		views = append(views, view)
	}
	return views, nil
}

// CreateUser はユーザーを作成する。管理者のみ実行できる。
// super_adminロールの付与はsuper_adminにのみ許可される。
// accountIDsが指定された場合、各アカウントへのownerメンバーシップを追加する。
// 新規ユーザーは作成者のUI設定を初期値として引き継ぐ（失敗しても作成は成功扱い）。
func (s *Service) CreateUser(ctx context.Context, requesterID, email, name, password string, userType model.UserType, accountIDs []string) (*UserView, error) {
	requester, err := s.requireAdmin(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	if userType == "" {
		userType = model.UserTypeStandard
	}
	if !userType.Valid() {
		return nil, model.NewValidationError("ユーザー種別はstandard・admin・super_adminのいずれかを指定してください。")
	}
	if err := authz.CanAssignRole(requester.UserType, userType); err != nil {
		return nil, err
	}

	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, model.NewValidationError("メールアドレスの形式が正しくありません。")
	}
	if len(password) < minPasswordLength {
		return nil, model.NewValidationError("パスワードは8文字以上で指定してください。")
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	created, err := s.users.Create(ctx, &model.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		UserType:     userType,
		PasswordHash: hash,
		IsActive:     true,
	})
	if err != nil {
		return nil, err
	}

	if len(accountIDs) > 0 {
		if err := s.users.AddMemberships(ctx, created.ID, dedupe(accountIDs)); err != nil {
			return nil, err
		}
	}

	// 作成者のUI設定の引き継ぎはベストエフォート。
	if creatorPrefs, err := s.preferences.Get(ctx, requesterID); err == nil {
		if _, err := s.preferences.Save(ctx, created.ID, creatorPrefs); err != nil {
			s.logger.Warn("作成者設定の引き継ぎに失敗しました",
				slog.String("user_id", created.ID),
				slog.String("error", err.Error()))
		}
	}

	s.logger.Info("ユーザーを作成しました",
		slog.String("user_id", created.ID),
		slog.String("user_type", string(created.UserType)),
		slog.String("created_by", requesterID))
	return s.view(ctx, requester, created)
}

// UpdateUser はユーザーの部分更新を行う。管理者のみ実行できる。
// nilのフィールドは変更しない。accountIDsがnil以外の場合、
// メンバーシップを指定アカウント群で置き換える（空スライスは全削除）。
func (s *Service) UpdateUser(ctx context.Context, requesterID, targetID string, name *string, userType *model.UserType, isActive *bool, accountIDs []string) (*UserView, error) {
	requester, err := s.requireAdmin(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	if userType != nil {
		if !userType.Valid() {
			return nil, model.NewValidationError("ユーザー種別はstandard・admin・super_adminのいずれかを指定してください。")
		}
		if err := authz.CanAssignRole(requester.UserType, *userType); err != nil {
			return nil, err
		}
	}

	target, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, model.NewUserNotFoundError()
	}
	if err := authz.CanManageUser(requester.UserType, target.UserType); err != nil {
		return nil, err
	}

	if name != nil {
		cleaned := strings.TrimSpace(*name)
		name = &cleaned
	}

	updated, err := s.users.Update(ctx, targetID, name, userType, isActive)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, model.NewUserNotFoundError()
	}

	if accountIDs != nil {
		if err := s.users.ReplaceMemberships(ctx, targetID, dedupe(accountIDs)); err != nil {
			return nil, err
		}
	}

	return s.view(ctx, requester, updated)
}

// DeleteUser はユーザーを削除する。管理者のみ実行できる。
// 自分自身の削除、およびsuper_adminでない要求者によるsuper_adminの削除は
// 認可エラーになる。
func (s *Service) DeleteUser(ctx context.Context, requesterID, targetID string) error {
	requester, err := s.requireAdmin(ctx, requesterID)
	if err != nil {
		return err
	}

	target, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		return err
	}
	if target == nil {
		return model.NewUserNotFoundError()
	}
	if err := authz.CanDeleteUser(requesterID, targetID, requester.UserType, target.UserType); err != nil {
		return err
	}

	deleted, err := s.users.Delete(ctx, targetID)
	if err != nil {
		return err
	}
	if !deleted {
		return model.NewUserNotFoundError()
	}

	s.logger.Info("ユーザーを削除しました",
		slog.String("user_id", targetID),
		slog.String("deleted_by", requesterID))
	return nil
}

// requireAdmin は要求者をロードし、admin以上であることを検証する。
func (s *Service) requireAdmin(ctx context.Context, requesterID string) (*model.User, error) {
	requester, err := s.users.FindByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if requester == nil {
		return nil, model.NewAuthorizationDeniedError("要求者のユーザーが見つかりません。")
	}
	if err := authz.RequireAdmin(requester.UserType); err != nil {
		return nil, err
	}
	return requester, nil
}

// view はユーザーを要求者の権限に応じたUserViewに変換する。
func (s *Service) view(ctx context.Context, requester *model.User, user *model.User) (*UserView, error) {
	view := &UserView{User: *user}
	if authz.CanViewPreferences(requester.UserType) {
		prefs, err := s.preferences.Get(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		view.Preferences = &prefs
	}
	return view, nil
}

// dedupe は順序を保ったままIDの重複を取り除く。
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
