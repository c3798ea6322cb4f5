package section

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hitoshi/tenantbase/internal/model"
	"github.com/hitoshi/tenantbase/internal/repository"
)

// mockSectionRepo はSectionRepositoryのモック。
type mockSectionRepo struct {
	listByAccountFunc func(ctx context.Context, accountID string) ([]model.Section, error)
	findBySlugFunc    func(ctx context.Context, accountID, slug string) (*model.Section, error)
	upsertFunc        func(ctx context.Context, accountID, slug, label string, schema json.RawMessage) (*model.Section, error)
	updateFunc        func(ctx context.Context, accountID, slug, label string, schema json.RawMessage) (*model.Section, error)
	deleteFunc        func(ctx context.Context, accountID, slug string) (bool, error)
}

func (m *mockSectionRepo) ListByAccount(ctx context.Context, accountID string) ([]model.Section, error) {
	return m.listByAccountFunc(ctx, accountID)
}

func (m *mockSectionRepo) FindBySlug(ctx context.Context, accountID, slug string) (*model.Section, error) {
	return m.findBySlugFunc(ctx, accountID, slug)
}

func (m *mockSectionRepo) Upsert(ctx context.Context, accountID, slug, label string, schema json.RawMessage) (*model.Section, error) {
	return m.upsertFunc(ctx, accountID, slug, label, schema)
}

func (m *mockSectionRepo) Update(ctx context.Context, accountID, slug, label string, schema json.RawMessage) (*model.Section, error) {
	return m.updateFunc(ctx, accountID, slug, label, schema)
}

func (m *mockSectionRepo) Delete(ctx context.Context, accountID, slug string) (bool, error) {
	return m.deleteFunc(ctx, accountID, slug)
}

// mockAccountRepo はAccountRepositoryのモック。存在確認のみに使用する。
type mockAccountRepo struct {
	findByIDFunc func(ctx context.Context, id string) (*model.Account, error)
}

func (m *mockAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockAccountRepo) ListAll(context.Context) ([]model.Account, error) { return nil, nil }

func (m *mockAccountRepo) ListByUser(context.Context, string) ([]model.Account, error) {
	return nil, nil
}

func (m *mockAccountRepo) CreateWithOwner(context.Context, string, string, repository.ProvisionFunc) (*model.Account, error) {
	return nil, nil
}

func (m *mockAccountRepo) UpdateName(context.Context, string, string) (*model.Account, error) {
	return nil, nil
}

func (m *mockAccountRepo) DeleteCascade(context.Context, string, repository.DropFunc) (bool, error) {
	return false, nil
}

// mockItemPurger はItemPurgerのモック。
type mockItemPurger struct {
	deleteBySectionFunc func(ctx context.Context, accountID, section string) error
}

func (m *mockItemPurger) DeleteBySection(ctx context.Context, accountID, section string) error {
	return m.deleteBySectionFunc(ctx, accountID, section)
}

func existingAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{
		findByIDFunc: func(_ context.Context, id string) (*model.Account, error) {
			return &model.Account{ID: id, Name: "Test Account"}, nil
		},
	}
}

func missingAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{
		findByIDFunc: func(_ context.Context, _ string) (*model.Account, error) {
			return nil, nil
		},
	}
}

func assertAPIErrorCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T: %v", err, err)
	}
	if apiErr.Code != wantCode {
		t.Errorf("code = %q, want %q", apiErr.Code, wantCode)
	}
}

func TestList_UnknownAccount_ReturnsAccountNotFound(t *testing.T) {
	svc := NewService(&mockSectionRepo{}, missingAccountRepo(), &mockItemPurger{})

	_, err := svc.List(context.Background(), "account-x")
	assertAPIErrorCode(t, err, model.ErrCodeAccountNotFound)
}

func TestGet_UnknownSlug_ReturnsSectionNotFound(t *testing.T) {
	sections := &mockSectionRepo{
		findBySlugFunc: func(_ context.Context, _, _ string) (*model.Section, error) {
			return nil, nil
		},
	}
	svc := NewService(sections, existingAccountRepo(), &mockItemPurger{})

	_, err := svc.Get(context.Background(), "account-1", "missing")
	assertAPIErrorCode(t, err, model.ErrCodeSectionNotFound)
}

func TestSave_BlankSlug_ReturnsValidationError(t *testing.T) {
	svc := NewService(&mockSectionRepo{}, existingAccountRepo(), &mockItemPurger{})

	_, err := svc.Save(context.Background(), "account-1", "   ", "Label", nil)
	assertAPIErrorCode(t, err, model.ErrCodeValidationFailed)
}

func TestSave_BlankLabel_DefaultsToSlug(t *testing.T) {
	var gotLabel string
	sections := &mockSectionRepo{
		upsertFunc: func(_ context.Context, _, slug, label string, _ json.RawMessage) (*model.Section, error) {
			gotLabel = label
			return &model.Section{Slug: slug, Label: label}, nil
		},
	}
	svc := NewService(sections, existingAccountRepo(), &mockItemPurger{})

	if _, err := svc.Save(context.Background(), "account-1", "news", "", nil); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if gotLabel != "news" {
		t.Errorf("label = %q, want %q", gotLabel, "news")
	}
}

func TestSave_SchemaIsNormalizedBeforePersist(t *testing.T) {
	var gotSchema json.RawMessage
	sections := &mockSectionRepo{
		upsertFunc: func(_ context.Context, _, slug, label string, schema json.RawMessage) (*model.Section, error) {
			gotSchema = schema
			return &model.Section{Slug: slug, Label: label}, nil
		},
	}
	svc := NewService(sections, existingAccountRepo(), &mockItemPurger{})

	raw := map[string]any{
		"title": map[string]any{"friendlyname": "Title"},
	}
	if _, err := svc.Save(context.Background(), "account-1", "news", "News", raw); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	var persisted model.SectionSchema
	if err := json.Unmarshal(gotSchema, &persisted); err != nil {
		t.Fatalf("persisted schema should be valid JSON: %v", err)
	}
	if len(persisted.Fields) != 1 || persisted.Fields[0].Key != "title" || persisted.Fields[0].Label != "Title" {
		t.Errorf("persisted schema = %+v", persisted)
	}
}

func TestUpdate_NilSchema_KeepsCurrentSchema(t *testing.T) {
	current := &model.Section{
		Slug:  "news",
		Label: "News",
		Schema: model.SectionSchema{Fields: []model.SectionField{
			{Key: "title", Label: "Title", Type: "text"},
		}},
	}

	var gotSchema json.RawMessage
	sections := &mockSectionRepo{
		findBySlugFunc: func(_ context.Context, _, _ string) (*model.Section, error) {
			return current, nil
		},
		updateFunc: func(_ context.Context, _, slug, label string, schema json.RawMessage) (*model.Section, error) {
			gotSchema = schema
			return &model.Section{Slug: slug, Label: label}, nil
		},
	}
	svc := NewService(sections, existingAccountRepo(), &mockItemPurger{})

	newLabel := "Latest News"
	if _, err := svc.Update(context.Background(), "account-1", "news", &newLabel, nil); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	var persisted model.SectionSchema
	if err := json.Unmarshal(gotSchema, &persisted); err != nil {
		t.Fatalf("persisted schema should be valid JSON: %v", err)
	}
	if len(persisted.Fields) != 1 || persisted.Fields[0].Key != "title" {
		t.Errorf("schema should be preserved, got %+v", persisted)
	}
}

func TestUpdate_BlankLabel_ReturnsValidationError(t *testing.T) {
	sections := &mockSectionRepo{
		findBySlugFunc: func(_ context.Context, _, _ string) (*model.Section, error) {
			return &model.Section{Slug: "news", Label: "News"}, nil
		},
	}
	svc := NewService(sections, existingAccountRepo(), &mockItemPurger{})

	blank := "  "
	_, err := svc.Update(context.Background(), "account-1", "news", &blank, nil)
	assertAPIErrorCode(t, err, model.ErrCodeValidationFailed)
}

func TestDelete_PurgesItemsBeforeRow(t *testing.T) {
	var order []string
	items := &mockItemPurger{
		deleteBySectionFunc: func(_ context.Context, _, section string) error {
			order = append(order, "purge:"+section)
			return nil
		},
	}
	sections := &mockSectionRepo{
		deleteFunc: func(_ context.Context, _, slug string) (bool, error) {
			order = append(order, "delete:"+slug)
			return true, nil
		},
	}
	svc := NewService(sections, existingAccountRepo(), items)

	if err := svc.Delete(context.Background(), "account-1", "news"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	if len(order) != 2 || order[0] != "purge:news" || order[1] != "delete:news" {
		t.Errorf("operation order = %v, want [purge:news delete:news]", order)
	}
}

func TestDelete_UnknownSlug_ReturnsSectionNotFound(t *testing.T) {
	items := &mockItemPurger{
		deleteBySectionFunc: func(_ context.Context, _, _ string) error { return nil },
	}
	sections := &mockSectionRepo{
		deleteFunc: func(_ context.Context, _, _ string) (bool, error) {
			return false, nil
		},
	}
	svc := NewService(sections, existingAccountRepo(), items)

	err := svc.Delete(context.Background(), "account-1", "missing")
	assertAPIErrorCode(t, err, model.ErrCodeSectionNotFound)
}
