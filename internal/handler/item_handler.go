package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/tenantbase/internal/model"
)

// ItemServiceInterface はアイテムハンドラーが必要とするサービスインターフェース。
type ItemServiceInterface interface {
	// List は指定セクションのアイテムをキーセットページネーションで返す。
	List(ctx context.Context, accountID, section string, limit int, cursor string) (*model.ItemPage, error)
	// Create はアイテムを作成する。
	Create(ctx context.Context, accountID, section, name string, data map[string]any) (*model.Item, error)
	// Get は指定IDのアイテムを返す。
	Get(ctx context.Context, accountID, itemID string) (*model.Item, error)
	// Update はアイテムの部分更新を行う。nilのフィールドは変更しない。
	Update(ctx context.Context, accountID, itemID string, name *string, data map[string]any) (*model.Item, error)
	// Delete は指定IDのアイテムを削除する。存在しないIDでも成功扱い。
	Delete(ctx context.Context, accountID, itemID string) error
}

// ItemHandler はアイテム管理のHTTPハンドラー。
// セクション指定のないルートはdefaultセクションに対して動作する。
type ItemHandler struct {
	service ItemServiceInterface
}

// NewItemHandler はItemHandlerを生成する。
func NewItemHandler(service ItemServiceInterface) *ItemHandler {
	return &ItemHandler{service: service}
}

// --- リクエスト・レスポンス型 ---

// itemCreateRequest はアイテム作成リクエストのボディ。
type itemCreateRequest struct {
	Name string         `json:"name"`
	Data map[string]any `json:"data"`
}

// itemUpdateRequest はアイテム更新リクエストのボディ。
type itemUpdateRequest struct {
	Name *string        `json:"name,omitempty"`
	Data map[string]any `json:"data,omitempty"`
}

// itemResponse はアイテムのレスポンス。
type itemResponse struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
}

// itemPageResponse はアイテム一覧のページレスポンス。
// Nextは次ページカーソル。最終ページではnullになる。
type itemPageResponse struct {
	Items []itemResponse `json:"items"`
	Next  *string        `json:"next"`
}

func toItemResponse(item *model.Item) itemResponse {
	return itemResponse{
		ID:        item.ID,
		Name:      item.Name,
		Data:      item.Data,
		CreatedAt: item.CreatedAt,
	}
}

// list は指定セクションのアイテム一覧を取得する共通処理。
func (h *ItemHandler) list(w http.ResponseWriter, r *http.Request, section string) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("limitには整数を指定してください。"))
			return
		}
		limit = parsed
	}
	cursor := r.URL.Query().Get("cursor")

	page, err := h.service.List(r.Context(), chi.URLParam(r, "account_id"), section, limit, cursor)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	items := make([]itemResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, toItemResponse(&page.Items[i]))
	}
	writeJSON(w, http.StatusOK, itemPageResponse{Items: items, Next: page.Next})
}

// create は指定セクションにアイテムを作成する共通処理。
func (h *ItemHandler) create(w http.ResponseWriter, r *http.Request, section string) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	var req itemCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました。"))
		return
	}

	item, err := h.service.Create(r.Context(), chi.URLParam(r, "account_id"), section, req.Name, req.Data)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toItemResponse(item))
}

// ListDefault はdefaultセクションのアイテム一覧を取得する。
// GET /api/accounts/:account_id/items?limit=50&cursor=xxx
func (h *ItemHandler) ListDefault(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, model.DefaultSectionSlug)
}

// CreateDefault はdefaultセクションにアイテムを作成する。
// POST /api/accounts/:account_id/items
func (h *ItemHandler) CreateDefault(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, model.DefaultSectionSlug)
}

// ListBySection は指定セクションのアイテム一覧を取得する。
// GET /api/accounts/:account_id/sections/:slug/items?limit=50&cursor=xxx
func (h *ItemHandler) ListBySection(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, chi.URLParam(r, "slug"))
}

// CreateBySection は指定セクションにアイテムを作成する。
// POST /api/accounts/:account_id/sections/:slug/items
func (h *ItemHandler) CreateBySection(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, chi.URLParam(r, "slug"))
}

// Get はアイテムの詳細を取得する。
// GET /api/accounts/:account_id/items/:item_id
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	item, err := h.service.Get(r.Context(), chi.URLParam(r, "account_id"), chi.URLParam(r, "item_id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toItemResponse(item))
}

// Update はアイテムの部分更新を行う。
// PUT /api/accounts/:account_id/items/:item_id
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	var req itemUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました。"))
		return
	}

	item, err := h.service.Update(r.Context(), chi.URLParam(r, "account_id"), chi.URLParam(r, "item_id"), req.Name, req.Data)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toItemResponse(item))
}

// Delete はアイテムを削除する。
// DELETE /api/accounts/:account_id/items/:item_id
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	if err := h.service.Delete(r.Context(), chi.URLParam(r, "account_id"), chi.URLParam(r, "item_id")); err != nil {
		handleServiceError(w, err)
		return
	}

	writeOK(w)
}
