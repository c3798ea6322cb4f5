// Package preference はユーザーごとのUIラベル設定を管理する。
package preference

import (
	"context"
	"fmt"
	"strings"

	"github.com/hitoshi/tenantbase/internal/model"
	"github.com/hitoshi/tenantbase/internal/repository"
)

// ラベルドキュメントのキー。保存形式とAPIフィールド名を兼ねる。
const (
	keyAccountsLabel = "accounts_label"
	keySectionsLabel = "sections_label"
	keyItemsLabel    = "items_label"
	keyShowSlugs     = "show_slugs"
)

// Defaults は設定未保存ユーザーに適用されるデフォルト値を返す。
func Defaults() model.Preferences {
	return model.Preferences{
		AccountsLabel: "Home",
		SectionsLabel: "Sections",
		ItemsLabel:    "Items",
		ShowSlugs:     false,
	}
}

// Merge は生のラベルドキュメントをデフォルト値にマージする。
// 既知のキーのみを採用し、文字列はトリム後に空でない場合のみ上書きする。
// 真偽値キーは任意の値を真偽値に正規化する。
func Merge(raw map[string]any) model.Preferences {
	merged := Defaults()
	if raw == nil {
		return merged
	}

	if v, ok := stringValue(raw[keyAccountsLabel]); ok {
		merged.AccountsLabel = v
	}
	if v, ok := stringValue(raw[keySectionsLabel]); ok {
		merged.SectionsLabel = v
	}
	if v, ok := stringValue(raw[keyItemsLabel]); ok {
		merged.ItemsLabel = v
	}
	if v, ok := raw[keyShowSlugs]; ok {
		merged.ShowSlugs = boolValue(v)
	}

	return merged
}

// stringValue は値をトリム済みの非空文字列として取り出す。
func stringValue(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

// boolValue は値を真偽値に正規化する。
func boolValue(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

// Service はユーザー設定の読み書きを提供する。
type Service struct {
	repo repository.PreferenceRepository
}

// NewService はServiceを生成する。
func NewService(repo repository.PreferenceRepository) *Service {
	return &Service{repo: repo}
}

// Get はユーザーの設定をデフォルト値とマージして返す。
func (s *Service) Get(ctx context.Context, userID string) (model.Preferences, error) {
	raw, err := s.repo.FindLabels(ctx, userID)
	if err != nil {
		return Defaults(), fmt.Errorf("ユーザー設定の読み込みに失敗しました: %w", err)
	}
	return Merge(raw), nil
}

// Save は設定をマージしたうえで保存し、保存後の値を返す。
func (s *Service) Save(ctx context.Context, userID string, prefs model.Preferences) (model.Preferences, error) {
	merged := Merge(toLabels(prefs))
	if err := s.repo.Upsert(ctx, userID, toLabels(merged)); err != nil {
		return Defaults(), fmt.Errorf("ユーザー設定の保存に失敗しました: %w", err)
	}
	return merged, nil
}

// Update は部分更新を適用して保存する。nilのフィールドは変更しない。
// 文字列フィールドに空白のみの値が指定された場合はバリデーションエラーを返す。
func (s *Service) Update(ctx context.Context, userID string, accountsLabel, sectionsLabel, itemsLabel *string, showSlugs *bool) (model.Preferences, error) {
	current, err := s.Get(ctx, userID)
	if err != nil {
		return Defaults(), err
	}

	for field, v := range map[string]*string{
		keyAccountsLabel: accountsLabel,
		keySectionsLabel: sectionsLabel,
		keyItemsLabel:    itemsLabel,
	} {
		if v == nil {
			continue
		}
		cleaned := strings.TrimSpace(*v)
		if cleaned == "" {
			return Defaults(), model.NewValidationError(fmt.Sprintf("%s には空でない値を指定してください。", field))
		}
		switch field {
		case keyAccountsLabel:
			current.AccountsLabel = cleaned
		case keySectionsLabel:
			current.SectionsLabel = cleaned
		case keyItemsLabel:
			current.ItemsLabel = cleaned
		}
	}

	if showSlugs != nil {
		current.ShowSlugs = *showSlugs
	}

	return s.Save(ctx, userID, current)
}

// toLabels はPreferencesを保存用のラベルドキュメントに変換する。
func toLabels(p model.Preferences) map[string]any {
	return map[string]any{
		keyAccountsLabel: p.AccountsLabel,
		keySectionsLabel: p.SectionsLabel,
		keyItemsLabel:    p.ItemsLabel,
		keyShowSlugs:     p.ShowSlugs,
	}
}
