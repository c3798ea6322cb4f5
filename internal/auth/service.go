package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/tenantbase/internal/model"
	"github.com/hitoshi/tenantbase/internal/repository"
)

// Service はログイン認証のビジネスロジックを提供する。
// クレデンシャル検証とトークン発行のみを担い、認可はauthzパッケージが担当する。
type Service struct {
	userRepo repository.UserRepository
	issuer   *TokenIssuer
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, issuer *TokenIssuer) *Service {
	return &Service{
		userRepo: userRepo,
		issuer:   issuer,
	}
}

// Login はメールアドレスとパスワードを検証し、アクセストークンを発行する。
// 未登録メールアドレス・パスワード不一致・無効化済みユーザーは
// 同一のエラーとして返す（アカウント列挙の防止）。
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("ログイン処理に失敗しました: %w", err)
	}
	if user == nil || !user.IsActive || !VerifyPassword(user.PasswordHash, password) {
		return "", model.NewInvalidCredentialsError()
	}

	token, err := s.issuer.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("ログイン処理に失敗しました: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
	)

	return token, nil
}

// VerifyToken はベアラートークンを検証し、ユーザーIDを返す。
// ミドルウェアから呼び出される。
func (s *Service) VerifyToken(tokenString string) (string, error) {
	return s.issuer.Verify(tokenString)
}
