// Package comment はアイテムに対するコメント操作を提供する。
package comment

import (
	"context"
	"strings"

	"github.com/hitoshi/tenantbase/internal/model"
	"github.com/hitoshi/tenantbase/internal/repository"
	"github.com/hitoshi/tenantbase/internal/security"
)

// Ensurer はコメントテーブルの存在を保証する。tenant.Provisionerが満たす。
// コメント機能より前に作られたテナントスキーマにはcommentsテーブルが
// 存在しないことがあるため、読み書きの前に毎回呼び出す。
type Ensurer interface {
	EnsureComments(ctx context.Context, accountID string) error
}

// WriteRecorder はコメント書き込みの計測を受け取る。metrics.Collectorが満たす。
type WriteRecorder interface {
	RecordCommentWrite()
}

// Store はテナントスキーマ上のコメント永続化を抽象化する。tenant.CommentStoreが満たす。
type Store interface {
	List(ctx context.Context, accountID, itemID string) ([]model.Comment, error)
	Create(ctx context.Context, accountID, itemID, userID, userName, body string) (*model.Comment, error)
}

// ItemFinder はコメント対象アイテムの存在確認を行う。tenant.ItemStoreが満たす。
type ItemFinder interface {
	Get(ctx context.Context, accountID, itemID string) (*model.Item, error)
}

// Service はコメントの一覧と投稿を提供する。
type Service struct {
	store     Store
	items     ItemFinder
	users     repository.UserRepository
	ensurer   Ensurer
	sanitizer security.BodySanitizerService
	recorder  WriteRecorder
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(store Store, items ItemFinder, users repository.UserRepository, ensurer Ensurer, sanitizer security.BodySanitizerService, recorder WriteRecorder) *Service {
	return &Service{
		store:     store,
		items:     items,
		users:     users,
		ensurer:   ensurer,
		sanitizer: sanitizer,
		recorder:  recorder,
	}
}

// List は指定アイテムのコメントを新しい順で返す。
// アイテムが存在しない場合はITEM_NOT_FOUNDを返す。
func (s *Service) List(ctx context.Context, accountID, itemID string) ([]model.Comment, error) {
	if err := s.ensurer.EnsureComments(ctx, accountID); err != nil {
		return nil, err
	}

	if err := s.ensureItem(ctx, accountID, itemID); err != nil {
		return nil, err
	}

	return s.store.List(ctx, accountID, itemID)
}

// Create はコメントを投稿する。
// 本文は前後の空白を除いたうえで必須とし、保存前にサニタイズする。
// 投稿者の表示名はuserNameを指定した場合はその値、省略時はユーザーの名前、
// 名前未設定ならメールアドレスを使う。
// 投稿者のユーザーが見つからない場合は認可エラーを返す
// （トークンは有効だが対応する行が削除済みのケース）。
func (s *Service) Create(ctx context.Context, accountID, itemID, userID, userName, body string) (*model.Comment, error) {
	if err := s.ensurer.EnsureComments(ctx, accountID); err != nil {
		return nil, err
	}

	if err := s.ensureItem(ctx, accountID, itemID); err != nil {
		return nil, err
	}

	body = strings.TrimSpace(s.sanitizer.Sanitize(body))
	if body == "" {
		return nil, model.NewValidationError("コメントの本文を指定してください。")
	}

	author, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if author == nil {
		return nil, model.NewAuthorizationDeniedError("コメントの投稿者ユーザーが見つかりません。")
	}

	name := strings.TrimSpace(userName)
	if name == "" {
		name = strings.TrimSpace(author.Name)
	}
	if name == "" {
		name = author.Email
	}

	created, err := s.store.Create(ctx, accountID, itemID, author.ID, name, body)
	if err != nil {
		return nil, err
	}
	if s.recorder != nil {
		s.recorder.RecordCommentWrite()
	}
	return created, nil
}

// ensureItem はアイテムの存在を確認する。
func (s *Service) ensureItem(ctx context.Context, accountID, itemID string) error {
	found, err := s.items.Get(ctx, accountID, itemID)
	if err != nil {
		return err
	}
	if found == nil {
		return model.NewItemNotFoundError(itemID)
	}
	return nil
}
