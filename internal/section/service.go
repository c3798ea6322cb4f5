// Package section はアカウント内のセクション（アイテム分類）を管理する。
package section

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hitoshi/tenantbase/internal/model"
	"github.com/hitoshi/tenantbase/internal/repository"
)

// ItemPurger はセクション削除時にセクション内のアイテムを一掃する。
// tenant.ItemStoreが満たす。
type ItemPurger interface {
	DeleteBySection(ctx context.Context, accountID, section string) error
}

// Service はセクションのCRUDを提供する。
type Service struct {
	sections repository.SectionRepository
	accounts repository.AccountRepository
	items    ItemPurger
}

// NewService はServiceを生成する。
func NewService(sections repository.SectionRepository, accounts repository.AccountRepository, items ItemPurger) *Service {
	return &Service{sections: sections, accounts: accounts, items: items}
}

// List はアカウントのセクションを作成順で返す。
func (s *Service) List(ctx context.Context, accountID string) ([]model.Section, error) {
	if err := s.ensureAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.sections.ListByAccount(ctx, accountID)
}

// Get は指定スラグのセクションを返す。
func (s *Service) Get(ctx context.Context, accountID, slug string) (*model.Section, error) {
	if err := s.ensureAccount(ctx, accountID); err != nil {
		return nil, err
	}
	found, err := s.sections.FindBySlug(ctx, accountID, slug)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, model.NewSectionNotFoundError(slug)
	}
	return found, nil
}

// Save はセクションを作成または上書きする。
// 同一(アカウント, スラグ)への再実行は上書きとなり冪等。
// スキーマは保存前に正規のfields配列形式に正規化する。
func (s *Service) Save(ctx context.Context, accountID, slug, label string, rawSchema map[string]any) (*model.Section, error) {
	if err := s.ensureAccount(ctx, accountID); err != nil {
		return nil, err
	}

	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, model.NewValidationError("セクションのスラグを指定してください。")
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = slug
	}

	payload, err := marshalSchema(rawSchema)
	if err != nil {
		return nil, err
	}

	return s.sections.Upsert(ctx, accountID, slug, label, payload)
}

// Update は既存セクションのラベルとスキーマを更新する。
func (s *Service) Update(ctx context.Context, accountID, slug string, label *string, rawSchema map[string]any) (*model.Section, error) {
	current, err := s.Get(ctx, accountID, slug)
	if err != nil {
		return nil, err
	}

	newLabel := current.Label
	if label != nil {
		cleaned := strings.TrimSpace(*label)
		if cleaned == "" {
			return nil, model.NewValidationError("セクションのラベルには空でない値を指定してください。")
		}
		newLabel = cleaned
	}

	payload, err := marshalSchema(rawSchema)
	if err != nil {
		return nil, err
	}
	if rawSchema == nil {
		payload, err = json.Marshal(current.Schema)
		if err != nil {
			return nil, fmt.Errorf("セクションスキーマのシリアライズに失敗しました: %w", err)
		}
	}

	updated, err := s.sections.Update(ctx, accountID, slug, newLabel, payload)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, model.NewSectionNotFoundError(slug)
	}
	return updated, nil
}

// Delete はセクションとそのセクション内のアイテムをすべて削除する。
// テナントスキーマ側のアイテム削除を先に行い、その後セクション行を削除する。
func (s *Service) Delete(ctx context.Context, accountID, slug string) error {
	if err := s.ensureAccount(ctx, accountID); err != nil {
		return err
	}

	if err := s.items.DeleteBySection(ctx, accountID, slug); err != nil {
		return err
	}

	deleted, err := s.sections.Delete(ctx, accountID, slug)
	if err != nil {
		return err
	}
	if !deleted {
		return model.NewSectionNotFoundError(slug)
	}
	return nil
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

// marshalSchema は生のスキーマを正規化してJSONにシリアライズする。
func marshalSchema(raw map[string]any) (json.RawMessage, error) {
	normalized := NormalizeSchema(raw)
	payload, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("セクションスキーマのシリアライズに失敗しました: %w", err)
	}
	return payload, nil
}
