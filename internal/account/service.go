// Package account はアカウント（テナント）のライフサイクルを管理する。
package account

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hitoshi/tenantbase/internal/authz"
	"github.com/hitoshi/tenantbase/internal/model"
	"github.com/hitoshi/tenantbase/internal/repository"
	"github.com/hitoshi/tenantbase/internal/tenant"
)

// ProvisionRecorder はプロビジョニングの成否の計測を受け取る。
// metrics.Collectorが満たす。
type ProvisionRecorder interface {
	RecordProvisionSuccess()
	RecordProvisionFailure()
}

// Service はアカウントのCRUDとテナントスキーマのライフサイクルを提供する。
//
// アカウント作成はアカウント行・オーナーメンバーシップ・テナントスキーマの
// プロビジョニングを単一トランザクションで実行する。作成に成功して
// スキーマが存在しない状態、またはその逆の状態は観測されない。
type Service struct {
	accounts repository.AccountRepository
	users    repository.UserRepository
	recorder ProvisionRecorder
	logger   *slog.Logger
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(accounts repository.AccountRepository, users repository.UserRepository, recorder ProvisionRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{accounts: accounts, users: users, recorder: recorder, logger: logger}
}

// Create はアカウントを作成し、作成者をオーナーとして登録し、
// テナントスキーマをプロビジョニングする。すべて同一トランザクション内で
// 実行され、プロビジョニング失敗時はアカウント行ごとロールバックされる。
func (s *Service) Create(ctx context.Context, userID, name string) (*model.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.NewValidationError("アカウントの名前を指定してください。")
	}

	var provisionErr error
	created, err := s.accounts.CreateWithOwner(ctx, name, userID, func(ctx context.Context, ex repository.Execer, accountID string) error {
		if err := tenant.ProvisionOn(ctx, ex, accountID); err != nil {
			provisionErr = err
			return err
		}
		return nil
	})
	if err != nil {
		if provisionErr != nil {
			s.logger.Error("テナントスキーマのプロビジョニングに失敗しました",
				slog.String("user_id", userID),
				slog.String("error", provisionErr.Error()))
			if s.recorder != nil {
				s.recorder.RecordProvisionFailure()
			}
			return nil, model.NewProvisioningFailedError()
		}
		return nil, err
	}

	if s.recorder != nil {
		s.recorder.RecordProvisionSuccess()
	}
	s.logger.Info("アカウントを作成しました",
		slog.String("account_id", created.ID),
		slog.String("owner_user_id", userID))
	return created, nil
}

// Get は指定IDのアカウントを返す。
func (s *Service) Get(ctx context.Context, accountID string) (*model.Account, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, model.NewAccountNotFoundError(accountID)
	}
	return account, nil
}

// ListForUser は要求者がメンバーシップを持つアカウントを返す。
func (s *Service) ListForUser(ctx context.Context, userID string) ([]model.Account, error) {
	return s.accounts.ListByUser(ctx, userID)
}

// ListAll は全アカウントを返す。管理者のみ実行できる。
func (s *Service) ListAll(ctx context.Context, requesterID string) ([]model.Account, error) {
	if err := s.requireAdmin(ctx, requesterID); err != nil {
		return nil, err
	}
	return s.accounts.ListAll(ctx)
}

// Update はアカウント名を変更する。管理者のみ実行できる。
func (s *Service) Update(ctx context.Context, requesterID, accountID, name string) (*model.Account, error) {
	if err := s.requireAdmin(ctx, requesterID); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.NewValidationError("アカウントの名前を指定してください。")
	}

	updated, err := s.accounts.UpdateName(ctx, accountID, name)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, model.NewAccountNotFoundError(accountID)
	}
	return updated, nil
}

// Delete はアカウントを削除する。管理者のみ実行できる。
// テナントスキーマのCASCADE削除・メンバーシップ・セクション・アカウント行の
// 削除を単一トランザクションで実行する。
func (s *Service) Delete(ctx context.Context, requesterID, accountID string) error {
	if err := s.requireAdmin(ctx, requesterID); err != nil {
		return err
	}

	deleted, err := s.accounts.DeleteCascade(ctx, accountID, func(ctx context.Context, ex repository.Execer, id string) error {
		return tenant.DropOn(ctx, ex, id)
	})
	if err != nil {
		return err
	}
	if !deleted {
		return model.NewAccountNotFoundError(accountID)
	}

	s.logger.Info("アカウントを削除しました", slog.String("account_id", accountID))
	return nil
}

// requireAdmin は要求者をロード（認可の起点は常にDB上のロール）し、
// admin以上であることを検証する。
func (s *Service) requireAdmin(ctx context.Context, requesterID string) error {
	requester, err := s.users.FindByID(ctx, requesterID)
	if err != nil {
		return err
	}
	if requester == nil {
		return model.NewAuthorizationDeniedError("要求者のユーザーが見つかりません。")
	}
	return authz.RequireAdmin(requester.UserType)
}
