package item

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/hitoshi/tenantbase/internal/model"
	"github.com/hitoshi/tenantbase/internal/repository"
)

// mockStore はStoreのモック。
type mockStore struct {
	listFunc   func(ctx context.Context, accountID, section string, limit int, cursor string) ([]model.Item, error)
	createFunc func(ctx context.Context, accountID, section, name string, data map[string]any) (*model.Item, error)
	getFunc    func(ctx context.Context, accountID, itemID string) (*model.Item, error)
	updateFunc func(ctx context.Context, accountID, itemID string, name *string, data map[string]any) (*model.Item, error)
	deleteFunc func(ctx context.Context, accountID, itemID string) error
}

func (m *mockStore) List(ctx context.Context, accountID, section string, limit int, cursor string) ([]model.Item, error) {
	return m.listFunc(ctx, accountID, section, limit, cursor)
}

func (m *mockStore) Create(ctx context.Context, accountID, section, name string, data map[string]any) (*model.Item, error) {
	return m.createFunc(ctx, accountID, section, name, data)
}

func (m *mockStore) Get(ctx context.Context, accountID, itemID string) (*model.Item, error) {
	return m.getFunc(ctx, accountID, itemID)
}

func (m *mockStore) Update(ctx context.Context, accountID, itemID string, name *string, data map[string]any) (*model.Item, error) {
	return m.updateFunc(ctx, accountID, itemID, name, data)
}

func (m *mockStore) Delete(ctx context.Context, accountID, itemID string) error {
	return m.deleteFunc(ctx, accountID, itemID)
}

// mockAccountRepo はAccountRepositoryのモック。存在確認のみに使用する。
type mockAccountRepo struct {
	account *model.Account
}

func (m *mockAccountRepo) FindByID(context.Context, string) (*model.Account, error) {
	return m.account, nil
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

// countingRecorder は書き込み計測の呼び出し回数を数える。
type countingRecorder struct {
	writes int
}

func (r *countingRecorder) RecordItemWrite() { r.writes++ }

func existingAccount() *mockAccountRepo {
	return &mockAccountRepo{account: &model.Account{ID: "account-1", Name: "Test"}}
}

func makeItems(n int) []model.Item {
	items := make([]model.Item, n)
	for i := range items {
		items[i] = model.Item{
			ID:   uuid.Must(uuid.NewV7()).String(),
			Name: fmt.Sprintf("item-%d", i),
		}
	}
	return items
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
	svc := NewService(&mockStore{}, &mockAccountRepo{account: nil}, nil)

	_, err := svc.List(context.Background(), "account-x", model.DefaultSectionSlug, 0, "")
	assertAPIErrorCode(t, err, model.ErrCodeAccountNotFound)
}

func TestList_LimitClamping(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		wantLimit int
	}{
		{"0はデフォルトの50", 0, DefaultPageLimit},
		{"負数はデフォルトの50", -5, DefaultPageLimit},
		{"上限超過は200に丸める", 1000, MaxPageLimit},
		{"範囲内はそのまま", 25, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotLimit int
			store := &mockStore{
				listFunc: func(_ context.Context, _, _ string, limit int, _ string) ([]model.Item, error) {
					gotLimit = limit
					return nil, nil
				},
			}
			svc := NewService(store, existingAccount(), nil)

			if _, err := svc.List(context.Background(), "account-1", model.DefaultSectionSlug, tt.limit, ""); err != nil {
				t.Fatalf("List returned error: %v", err)
			}
			if gotLimit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", gotLimit, tt.wantLimit)
			}
		})
	}
}

func TestList_InvalidCursor_ReturnsValidationError(t *testing.T) {
	svc := NewService(&mockStore{}, existingAccount(), nil)

	_, err := svc.List(context.Background(), "account-1", model.DefaultSectionSlug, 10, "not-a-uuid")
	assertAPIErrorCode(t, err, model.ErrCodeValidationFailed)
}

func TestList_FullPage_SetsNextCursor(t *testing.T) {
	items := makeItems(10)
	store := &mockStore{
		listFunc: func(_ context.Context, _, _ string, _ int, _ string) ([]model.Item, error) {
			return items, nil
		},
	}
	svc := NewService(store, existingAccount(), nil)

	page, err := svc.List(context.Background(), "account-1", model.DefaultSectionSlug, 10, "")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}

	if page.Next == nil {
		t.Fatal("full page should carry a next cursor")
	}
	if *page.Next != items[len(items)-1].ID {
		t.Errorf("Next = %q, want last item id %q", *page.Next, items[len(items)-1].ID)
	}
}

func TestList_PartialPage_NextIsNil(t *testing.T) {
	store := &mockStore{
		listFunc: func(_ context.Context, _, _ string, _ int, _ string) ([]model.Item, error) {
			return makeItems(3), nil
		},
	}
	svc := NewService(store, existingAccount(), nil)

	page, err := svc.List(context.Background(), "account-1", model.DefaultSectionSlug, 10, "")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}

	if page.Next != nil {
		t.Errorf("partial page should have nil Next, got %q", *page.Next)
	}
	if len(page.Items) != 3 {
		t.Errorf("len(Items) = %d, want 3", len(page.Items))
	}
}

func TestList_CursorIsNormalizedAndPassedThrough(t *testing.T) {
	var gotCursor string
	store := &mockStore{
		listFunc: func(_ context.Context, _, _ string, _ int, cursor string) ([]model.Item, error) {
			gotCursor = cursor
			return nil, nil
		},
	}
	svc := NewService(store, existingAccount(), nil)

	cursor := "0198A3F2-1111-7000-8000-000000000001"
	if _, err := svc.List(context.Background(), "account-1", model.DefaultSectionSlug, 10, cursor); err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if gotCursor != "0198a3f2-1111-7000-8000-000000000001" {
		t.Errorf("cursor = %q, want canonical lowercase form", gotCursor)
	}
}

func TestCreate_BlankName_ReturnsValidationError(t *testing.T) {
	recorder := &countingRecorder{}
	svc := NewService(&mockStore{}, existingAccount(), recorder)

	_, err := svc.Create(context.Background(), "account-1", model.DefaultSectionSlug, "   ", nil)
	assertAPIErrorCode(t, err, model.ErrCodeValidationFailed)
	if recorder.writes != 0 {
		t.Errorf("writes = %d, want 0", recorder.writes)
	}
}

func TestCreate_TrimsNameAndRecordsWrite(t *testing.T) {
	recorder := &countingRecorder{}
	var gotName string
	store := &mockStore{
		createFunc: func(_ context.Context, _, _, name string, _ map[string]any) (*model.Item, error) {
			gotName = name
			return &model.Item{ID: "item-1", Name: name}, nil
		},
	}
	svc := NewService(store, existingAccount(), recorder)

	created, err := svc.Create(context.Background(), "account-1", model.DefaultSectionSlug, "  My Item  ", map[string]any{"k": "v"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if gotName != "My Item" {
		t.Errorf("name = %q, want %q", gotName, "My Item")
	}
	if created == nil {
		t.Fatal("expected created item")
	}
	if recorder.writes != 1 {
		t.Errorf("writes = %d, want 1", recorder.writes)
	}
}

func TestGet_MissingItem_ReturnsItemNotFound(t *testing.T) {
	store := &mockStore{
		getFunc: func(_ context.Context, _, _ string) (*model.Item, error) {
			return nil, nil
		},
	}
	svc := NewService(store, existingAccount(), nil)

	_, err := svc.Get(context.Background(), "account-1", "item-x")
	assertAPIErrorCode(t, err, model.ErrCodeItemNotFound)
}

func TestUpdate_NoFields_ReturnsValidationError(t *testing.T) {
	svc := NewService(&mockStore{}, existingAccount(), nil)

	_, err := svc.Update(context.Background(), "account-1", "item-1", nil, nil)
	assertAPIErrorCode(t, err, model.ErrCodeValidationFailed)
}

func TestUpdate_BlankName_ReturnsValidationError(t *testing.T) {
	svc := NewService(&mockStore{}, existingAccount(), nil)

	blank := "  "
	_, err := svc.Update(context.Background(), "account-1", "item-1", &blank, nil)
	assertAPIErrorCode(t, err, model.ErrCodeValidationFailed)
}

func TestUpdate_MissingItem_ReturnsItemNotFound(t *testing.T) {
	store := &mockStore{
		updateFunc: func(_ context.Context, _, _ string, _ *string, _ map[string]any) (*model.Item, error) {
			return nil, nil
		},
	}
	svc := NewService(store, existingAccount(), nil)

	name := "New Name"
	_, err := svc.Update(context.Background(), "account-1", "item-x", &name, nil)
	assertAPIErrorCode(t, err, model.ErrCodeItemNotFound)
}

func TestUpdate_Success_RecordsWrite(t *testing.T) {
	recorder := &countingRecorder{}
	store := &mockStore{
		updateFunc: func(_ context.Context, _, itemID string, name *string, _ map[string]any) (*model.Item, error) {
			return &model.Item{ID: itemID, Name: *name}, nil
		},
	}
	svc := NewService(store, existingAccount(), recorder)

	name := "Renamed"
	if _, err := svc.Update(context.Background(), "account-1", "item-1", &name, nil); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if recorder.writes != 1 {
		t.Errorf("writes = %d, want 1", recorder.writes)
	}
}

func TestDelete_IsIdempotent(t *testing.T) {
	calls := 0
	store := &mockStore{
		deleteFunc: func(_ context.Context, _, _ string) error {
			calls++
			return nil
		},
	}
	svc := NewService(store, existingAccount(), nil)

	// 存在しないIDでもエラーにならない
	if err := svc.Delete(context.Background(), "account-1", "item-x"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := svc.Delete(context.Background(), "account-1", "item-x"); err != nil {
		t.Fatalf("second Delete returned error: %v", err)
	}
	if calls != 2 {
		t.Errorf("delete calls = %d, want 2", calls)
	}
}
