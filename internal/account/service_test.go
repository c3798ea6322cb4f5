package account

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hitoshi/tenantbase/internal/model"
	"github.com/hitoshi/tenantbase/internal/repository"
)

// mockAccountRepo はAccountRepositoryのモック。
type mockAccountRepo struct {
	findByIDFunc        func(ctx context.Context, id string) (*model.Account, error)
	listAllFunc         func(ctx context.Context) ([]model.Account, error)
	listByUserFunc      func(ctx context.Context, userID string) ([]model.Account, error)
	createWithOwnerFunc func(ctx context.Context, name, ownerUserID string, provision repository.ProvisionFunc) (*model.Account, error)
	updateNameFunc      func(ctx context.Context, id, name string) (*model.Account, error)
	deleteCascadeFunc   func(ctx context.Context, id string, drop repository.DropFunc) (bool, error)
}

func (m *mockAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockAccountRepo) ListAll(ctx context.Context) ([]model.Account, error) {
	return m.listAllFunc(ctx)
}

func (m *mockAccountRepo) ListByUser(ctx context.Context, userID string) ([]model.Account, error) {
	return m.listByUserFunc(ctx, userID)
}

func (m *mockAccountRepo) CreateWithOwner(ctx context.Context, name, ownerUserID string, provision repository.ProvisionFunc) (*model.Account, error) {
	return m.createWithOwnerFunc(ctx, name, ownerUserID, provision)
}

func (m *mockAccountRepo) UpdateName(ctx context.Context, id, name string) (*model.Account, error) {
	return m.updateNameFunc(ctx, id, name)
}

func (m *mockAccountRepo) DeleteCascade(ctx context.Context, id string, drop repository.DropFunc) (bool, error) {
	return m.deleteCascadeFunc(ctx, id, drop)
}

// mockUserRepo はUserRepositoryのうちFindByIDのみ意味を持つモック。
type mockUserRepo struct {
	user *model.User
}

func (m *mockUserRepo) FindByID(context.Context, string) (*model.User, error) { return m.user, nil }

func (m *mockUserRepo) FindByEmail(context.Context, string) (*model.User, error) { return nil, nil }

func (m *mockUserRepo) List(context.Context) ([]model.User, error) { return nil, nil }

func (m *mockUserRepo) Create(context.Context, *model.User) (*model.User, error) { return nil, nil }

func (m *mockUserRepo) Update(context.Context, string, *string, *model.UserType, *bool) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) Delete(context.Context, string) (bool, error) { return false, nil }

func (m *mockUserRepo) AddMemberships(context.Context, string, []string) error { return nil }

func (m *mockUserRepo) ReplaceMemberships(context.Context, string, []string) error { return nil }

// noopExecer はDDLを実行せず成功を返すExecer。
type noopExecer struct{}

func (noopExecer) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, nil
}

// mockProvisionRecorder はプロビジョニング成否の計測を数える。
type mockProvisionRecorder struct {
	successes int
	failures  int
}

func (r *mockProvisionRecorder) RecordProvisionSuccess() { r.successes++ }

func (r *mockProvisionRecorder) RecordProvisionFailure() { r.failures++ }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func userOfType(t model.UserType) *mockUserRepo {
	return &mockUserRepo{user: &model.User{ID: "requester-1", UserType: t, IsActive: true}}
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

func TestCreate_BlankName_ReturnsValidationError(t *testing.T) {
	svc := NewService(&mockAccountRepo{}, &mockUserRepo{}, nil, quietLogger())

	_, err := svc.Create(context.Background(), "user-1", "   ")
	assertAPIErrorCode(t, err, model.ErrCodeValidationFailed)
}

func TestCreate_Success_RunsProvisionInsideTransaction(t *testing.T) {
	recorder := &mockProvisionRecorder{}
	provisionCalled := false

	accounts := &mockAccountRepo{
		createWithOwnerFunc: func(ctx context.Context, name, ownerUserID string, provision repository.ProvisionFunc) (*model.Account, error) {
			if name != "New Tenant" {
				t.Errorf("name = %q, want %q", name, "New Tenant")
			}
			if ownerUserID != "user-1" {
				t.Errorf("ownerUserID = %q, want %q", ownerUserID, "user-1")
			}
			// リポジトリがトランザクション内で呼び出すプロビジョニング関数
			provisionCalled = true
			if err := provision(ctx, noopExecer{}, "0198a3f2-1111-7000-8000-000000000001"); err != nil {
				t.Errorf("provision returned error: %v", err)
			}
			return &model.Account{ID: "0198a3f2-1111-7000-8000-000000000001", Name: name}, nil
		},
	}
	svc := NewService(accounts, &mockUserRepo{}, recorder, quietLogger())

	created, err := svc.Create(context.Background(), "user-1", "  New Tenant  ")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if !provisionCalled {
		t.Error("provision func should be invoked by the repository")
	}
	if created.Name != "New Tenant" {
		t.Errorf("Name = %q, want %q", created.Name, "New Tenant")
	}
	if recorder.successes != 1 || recorder.failures != 0 {
		t.Errorf("recorder = %+v, want 1 success / 0 failures", recorder)
	}
}

func TestCreate_ProvisionFailure_ReturnsProvisioningFailed(t *testing.T) {
	recorder := &mockProvisionRecorder{}
	accounts := &mockAccountRepo{
		createWithOwnerFunc: func(ctx context.Context, _, _ string, provision repository.ProvisionFunc) (*model.Account, error) {
			// プロビジョニング失敗 -> トランザクション全体がロールバックしてエラーを返す
			if err := provision(ctx, nil, "not-a-uuid"); err != nil {
				return nil, err
			}
			t.Fatal("provision should have failed")
			return nil, nil
		},
	}
	svc := NewService(accounts, &mockUserRepo{}, recorder, quietLogger())

	_, err := svc.Create(context.Background(), "user-1", "New Tenant")
	assertAPIErrorCode(t, err, model.ErrCodeProvisioningFailed)
	if recorder.failures != 1 || recorder.successes != 0 {
		t.Errorf("recorder = %+v, want 0 successes / 1 failure", recorder)
	}
}

func TestCreate_NonProvisionRepoError_IsPassedThrough(t *testing.T) {
	accounts := &mockAccountRepo{
		createWithOwnerFunc: func(context.Context, string, string, repository.ProvisionFunc) (*model.Account, error) {
			return nil, model.NewConflictError("アカウント名が重複しています。")
		},
	}
	svc := NewService(accounts, &mockUserRepo{}, nil, quietLogger())

	_, err := svc.Create(context.Background(), "user-1", "New Tenant")
	assertAPIErrorCode(t, err, model.ErrCodeConflict)
}

func TestGet_MissingAccount_ReturnsAccountNotFound(t *testing.T) {
	accounts := &mockAccountRepo{
		findByIDFunc: func(context.Context, string) (*model.Account, error) {
			return nil, nil
		},
	}
	svc := NewService(accounts, &mockUserRepo{}, nil, quietLogger())

	_, err := svc.Get(context.Background(), "account-x")
	assertAPIErrorCode(t, err, model.ErrCodeAccountNotFound)
}

func TestListAll_RequiresAdmin(t *testing.T) {
	accounts := &mockAccountRepo{
		listAllFunc: func(context.Context) ([]model.Account, error) {
			return []model.Account{{ID: "a-1", Name: "One"}}, nil
		},
	}

	t.Run("standardは拒否される", func(t *testing.T) {
		svc := NewService(accounts, userOfType(model.UserTypeStandard), nil, quietLogger())
		_, err := svc.ListAll(context.Background(), "requester-1")
		assertAPIErrorCode(t, err, model.ErrCodeAuthorizationDenied)
	})

	t.Run("adminは許可される", func(t *testing.T) {
		svc := NewService(accounts, userOfType(model.UserTypeAdmin), nil, quietLogger())
		got, err := svc.ListAll(context.Background(), "requester-1")
		if err != nil {
			t.Fatalf("ListAll returned error: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("len = %d, want 1", len(got))
		}
	})
}

func TestListAll_UnknownRequester_ReturnsAuthorizationDenied(t *testing.T) {
	svc := NewService(&mockAccountRepo{}, &mockUserRepo{user: nil}, nil, quietLogger())

	_, err := svc.ListAll(context.Background(), "ghost")
	assertAPIErrorCode(t, err, model.ErrCodeAuthorizationDenied)
}

func TestUpdate_RequiresAdmin(t *testing.T) {
	svc := NewService(&mockAccountRepo{}, userOfType(model.UserTypeStandard), nil, quietLogger())

	_, err := svc.Update(context.Background(), "requester-1", "account-1", "Renamed")
	assertAPIErrorCode(t, err, model.ErrCodeAuthorizationDenied)
}

func TestUpdate_MissingAccount_ReturnsAccountNotFound(t *testing.T) {
	accounts := &mockAccountRepo{
		updateNameFunc: func(context.Context, string, string) (*model.Account, error) {
			return nil, nil
		},
	}
	svc := NewService(accounts, userOfType(model.UserTypeAdmin), nil, quietLogger())

	_, err := svc.Update(context.Background(), "requester-1", "account-x", "Renamed")
	assertAPIErrorCode(t, err, model.ErrCodeAccountNotFound)
}

func TestDelete_RequiresAdmin(t *testing.T) {
	svc := NewService(&mockAccountRepo{}, userOfType(model.UserTypeStandard), nil, quietLogger())

	err := svc.Delete(context.Background(), "requester-1", "account-1")
	assertAPIErrorCode(t, err, model.ErrCodeAuthorizationDenied)
}

func TestDelete_PassesDropFuncToRepository(t *testing.T) {
	var gotDrop repository.DropFunc
	accounts := &mockAccountRepo{
		deleteCascadeFunc: func(_ context.Context, id string, drop repository.DropFunc) (bool, error) {
			if id != "account-1" {
				t.Errorf("id = %q, want %q", id, "account-1")
			}
			gotDrop = drop
			return true, nil
		},
	}
	svc := NewService(accounts, userOfType(model.UserTypeAdmin), nil, quietLogger())

	if err := svc.Delete(context.Background(), "requester-1", "account-1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if gotDrop == nil {
		t.Fatal("drop func should be passed to the repository")
	}
	// スキーマ削除関数もIDを検証すること
	if err := gotDrop(context.Background(), nil, "not-a-uuid"); err == nil {
		t.Error("drop with invalid account id should fail")
	}
}

func TestDelete_MissingAccount_ReturnsAccountNotFound(t *testing.T) {
	accounts := &mockAccountRepo{
		deleteCascadeFunc: func(context.Context, string, repository.DropFunc) (bool, error) {
			return false, nil
		},
	}
	svc := NewService(accounts, userOfType(model.UserTypeAdmin), nil, quietLogger())

	err := svc.Delete(context.Background(), "requester-1", "account-x")
	assertAPIErrorCode(t, err, model.ErrCodeAccountNotFound)
}
