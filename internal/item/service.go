// Package item はテナントスコープのアイテム操作を提供する。
package item

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/hitoshi/tenantbase/internal/model"
	"github.com/hitoshi/tenantbase/internal/repository"
)

// ページサイズの境界値。範囲外の指定はエラーにせず境界に丸める。
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// WriteRecorder はアイテム書き込みの計測を受け取る。metrics.Collectorが満たす。
type WriteRecorder interface {
	RecordItemWrite()
}

// Store はテナントスキーマ上のアイテム永続化を抽象化する。tenant.ItemStoreが満たす。
type Store interface {
	List(ctx context.Context, accountID, section string, limit int, cursor string) ([]model.Item, error)
	Create(ctx context.Context, accountID, section, name string, data map[string]any) (*model.Item, error)
	Get(ctx context.Context, accountID, itemID string) (*model.Item, error)
	Update(ctx context.Context, accountID, itemID string, name *string, data map[string]any) (*model.Item, error)
	Delete(ctx context.Context, accountID, itemID string) error
}

// Service はアイテムのCRUDとページネーションを提供する。
type Service struct {
	store    Store
	accounts repository.AccountRepository
	recorder WriteRecorder
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(store Store, accounts repository.AccountRepository, recorder WriteRecorder) *Service {
	return &Service{store: store, accounts: accounts, recorder: recorder}
}

// List は指定セクションのアイテムをキーセットページネーションで返す。
// limitは1〜200に丸め、0以下はデフォルトの50とする。
// 返却件数がちょうどlimit件のときのみ次ページカーソル（最終アイテムのID）を返す。
// limit未満のページは最終ページであり、Nextはnilになる。
func (s *Service) List(ctx context.Context, accountID, section string, limit int, cursor string) (*model.ItemPage, error) {
	if err := s.ensureAccount(ctx, accountID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	cursor = strings.TrimSpace(cursor)
	if cursor != "" {
		parsed, err := uuid.Parse(cursor)
		if err != nil {
			return nil, model.NewValidationError("カーソルの形式が正しくありません。")
		}
		cursor = parsed.String()
	}

	items, err := s.store.List(ctx, accountID, section, limit, cursor)
	if err != nil {
		return nil, err
	}

	page := &model.ItemPage{Items: items}
	if len(items) == limit {
		next := items[len(items)-1].ID
		page.Next = &next
	}
	return page, nil
}

// Create はアイテムを作成する。名前は前後の空白を除いたうえで必須。
func (s *Service) Create(ctx context.Context, accountID, section, name string, data map[string]any) (*model.Item, error) {
	if err := s.ensureAccount(ctx, accountID); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.NewValidationError("アイテムの名前を指定してください。")
	}

	created, err := s.store.Create(ctx, accountID, section, name, data)
	if err != nil {
		return nil, err
	}
	s.recordWrite()
	return created, nil
}

// Get は指定IDのアイテムを返す。
func (s *Service) Get(ctx context.Context, accountID, itemID string) (*model.Item, error) {
	if err := s.ensureAccount(ctx, accountID); err != nil {
		return nil, err
	}

	found, err := s.store.Get(ctx, accountID, itemID)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, model.NewItemNotFoundError(itemID)
	}
	return found, nil
}

// Update はアイテムの部分更新を行う。
// name・dataの両方が省略された場合はバリデーションエラー、
// 対象が存在しない場合はITEM_NOT_FOUNDを返す。
func (s *Service) Update(ctx context.Context, accountID, itemID string, name *string, data map[string]any) (*model.Item, error) {
	if err := s.ensureAccount(ctx, accountID); err != nil {
		return nil, err
	}

	if name == nil && data == nil {
		return nil, model.NewValidationError("更新するフィールドを1つ以上指定してください。")
	}
	if name != nil {
		cleaned := strings.TrimSpace(*name)
		if cleaned == "" {
			return nil, model.NewValidationError("アイテムの名前には空でない値を指定してください。")
		}
		name = &cleaned
	}

	updated, err := s.store.Update(ctx, accountID, itemID, name, data)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, model.NewItemNotFoundError(itemID)
	}
	s.recordWrite()
	return updated, nil
}

// Delete は指定IDのアイテムを削除する。存在しないIDでも成功扱い（冪等な削除）。
func (s *Service) Delete(ctx context.Context, accountID, itemID string) error {
	if err := s.ensureAccount(ctx, accountID); err != nil {
		return err
	}
	return s.store.Delete(ctx, accountID, itemID)
}

// ensureAccount はアカウントの存在を確認する。
func (s *Service) ensureAccount(ctx context.Context, accountID string) error {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return model.NewAccountNotFoundError(accountID)
	}
	return nil
}

func (s *Service) recordWrite() {
	if s.recorder != nil {
		s.recorder.RecordItemWrite()
	}
}
