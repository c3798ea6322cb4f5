package tenant

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/hitoshi/tenantbase/internal/model"
)

// ============================================================
// 単体テスト（DB不要）
// ============================================================

func TestItemStore_InvalidAccountID_ReturnsErrorWithoutQuerying(t *testing.T) {
	// dbがnilでもpanicしないこと自体が、ステートメント発行前に
	// アカウントID検証が走る証明になる
	store := NewItemStore(nil)
	ctx := context.Background()

	if _, err := store.List(ctx, "not-a-uuid", "default", 10, ""); err == nil {
		t.Error("List: 不正なアカウントIDでエラーが返らなかった")
	}
	if _, err := store.Create(ctx, "not-a-uuid", "default", "name", nil); err == nil {
		t.Error("Create: 不正なアカウントIDでエラーが返らなかった")
	}
	if _, err := store.Get(ctx, "not-a-uuid", uuid.NewString()); err == nil {
		t.Error("Get: 不正なアカウントIDでエラーが返らなかった")
	}
	if err := store.Delete(ctx, "not-a-uuid", uuid.NewString()); err == nil {
		t.Error("Delete: 不正なアカウントIDでエラーが返らなかった")
	}
}

func TestItemStoreUpdate_NoFields_IsNoOp(t *testing.T) {
	// name・dataの両方がnilならステートメントを発行しない
	store := NewItemStore(nil)

	item, err := store.Update(context.Background(), uuid.NewString(), uuid.NewString(), nil, nil)
	if err != nil {
		t.Fatalf("no-opの更新でエラー: %v", err)
	}
	if item != nil {
		t.Errorf("no-opの更新結果 = %+v, want nil", item)
	}
}

// ============================================================
// 結合テスト
// ============================================================

// TestItemStore_CrossTenantIsolation は一方のテナントに挿入した行が
// 他方のテナントから一切見えないことを検証する。
func TestItemStore_CrossTenantIsolation(t *testing.T) {
	db := tenantTestDB(t)
	accountA := provisionTestTenant(t, db)
	accountB := provisionTestTenant(t, db)
	ctx := context.Background()

	store := NewItemStore(db)

	created, err := store.Create(ctx, accountA, model.DefaultSectionSlug, "テナントAのアイテム", map[string]any{"status": "draft"})
	if err != nil {
		t.Fatalf("アイテム作成に失敗: %v", err)
	}

	t.Run("テナントBの一覧には現れない", func(t *testing.T) {
		items, err := store.List(ctx, accountB, model.DefaultSectionSlug, 10, "")
		if err != nil {
			t.Fatalf("一覧取得に失敗: %v", err)
		}
		if len(items) != 0 {
			t.Errorf("テナントBから %d 件見えた, want 0", len(items))
		}
	})

	t.Run("テナントBからIDを直接指定しても取得できない", func(t *testing.T) {
		item, err := store.Get(ctx, accountB, created.ID)
		if err != nil {
			t.Fatalf("取得に失敗: %v", err)
		}
		if item != nil {
			t.Errorf("テナントBからアイテムが見えた: %+v", item)
		}
	})

	t.Run("テナントA自身からは取得できる", func(t *testing.T) {
		item, err := store.Get(ctx, accountA, created.ID)
		if err != nil {
			t.Fatalf("取得に失敗: %v", err)
		}
		if item == nil {
			t.Fatal("テナントAからアイテムが見えない")
		}
		if item.Name != "テナントAのアイテム" {
			t.Errorf("name = %q, want %q", item.Name, "テナントAのアイテム")
		}
	})
}

// TestItemStore_KeysetPagination はカーソルを辿ることで全件を
// 重複・欠落なくID昇順で読み切れることを検証する。
func TestItemStore_KeysetPagination(t *testing.T) {
	db := tenantTestDB(t)
	accountID := provisionTestTenant(t, db)
	ctx := context.Background()

	store := NewItemStore(db)

	const total = 5
	created := make([]string, 0, total)
	for i := 0; i < total; i++ {
		item, err := store.Create(ctx, accountID, model.DefaultSectionSlug, "アイテム", nil)
		if err != nil {
			t.Fatalf("アイテム作成に失敗: %v", err)
		}
		created = append(created, item.ID)
	}

	// limit=2でカーソルを辿って全ページを読む
	collected := []string{}
	cursor := ""
	for {
		page, err := store.List(ctx, accountID, model.DefaultSectionSlug, 2, cursor)
		if err != nil {
			t.Fatalf("一覧取得に失敗: %v", err)
		}
		if len(page) == 0 {
			break
		}
		for _, item := range page {
			collected = append(collected, item.ID)
		}
		cursor = page[len(page)-1].ID
	}

	if len(collected) != total {
		t.Fatalf("収集件数 = %d, want %d", len(collected), total)
	}
	// UUIDv7はID昇順 = 挿入順
	for i, id := range collected {
		if id != created[i] {
			t.Errorf("collected[%d] = %q, want %q（ID昇順で重複なく返ること）", i, id, created[i])
		}
	}
}

// TestItemStore_DeleteIsIdempotent は存在しないIDの削除が
// エラーにならないことを検証する。
func TestItemStore_DeleteIsIdempotent(t *testing.T) {
	db := tenantTestDB(t)
	accountID := provisionTestTenant(t, db)
	ctx := context.Background()

	store := NewItemStore(db)

	item, err := store.Create(ctx, accountID, model.DefaultSectionSlug, "削除対象", nil)
	if err != nil {
		t.Fatalf("アイテム作成に失敗: %v", err)
	}

	if err := store.Delete(ctx, accountID, item.ID); err != nil {
		t.Fatalf("1回目の削除に失敗: %v", err)
	}
	if err := store.Delete(ctx, accountID, item.ID); err != nil {
		t.Errorf("2回目の削除がエラーになった（冪等性の問題）: %v", err)
	}
	if err := store.Delete(ctx, accountID, uuid.NewString()); err != nil {
		t.Errorf("存在しないIDの削除がエラーになった: %v", err)
	}

	got, err := store.Get(ctx, accountID, item.ID)
	if err != nil {
		t.Fatalf("取得に失敗: %v", err)
	}
	if got != nil {
		t.Errorf("削除後もアイテムが残存: %+v", got)
	}
}

// TestItemStore_UpdatePartial はnilのフィールドが変更されないことを検証する。
func TestItemStore_UpdatePartial(t *testing.T) {
	db := tenantTestDB(t)
	accountID := provisionTestTenant(t, db)
	ctx := context.Background()

	store := NewItemStore(db)

	item, err := store.Create(ctx, accountID, model.DefaultSectionSlug, "旧名", map[string]any{"status": "draft"})
	if err != nil {
		t.Fatalf("アイテム作成に失敗: %v", err)
	}

	newName := "新名"
	updated, err := store.Update(ctx, accountID, item.ID, &newName, nil)
	if err != nil {
		t.Fatalf("更新に失敗: %v", err)
	}
	if updated == nil {
		t.Fatal("更新結果がnil")
	}
	if updated.Name != "新名" {
		t.Errorf("name = %q, want %q", updated.Name, "新名")
	}
	if updated.Data["status"] != "draft" {
		t.Errorf("data[status] = %v, want %q（dataは変更されないこと）", updated.Data["status"], "draft")
	}
}
