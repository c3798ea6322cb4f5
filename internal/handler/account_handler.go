package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/tenantbase/internal/model"
)

// AccountServiceInterface はアカウントハンドラーが必要とするサービスインターフェース。
type AccountServiceInterface interface {
	// Create はアカウントを作成し、作成者をオーナーとして登録する。
	Create(ctx context.Context, userID, name string) (*model.Account, error)
	// Get は指定IDのアカウントを返す。
	Get(ctx context.Context, accountID string) (*model.Account, error)
	// ListForUser は要求者がメンバーシップを持つアカウントを返す。
	ListForUser(ctx context.Context, userID string) ([]model.Account, error)
	// ListAll は全アカウントを返す。管理者のみ実行できる。
	ListAll(ctx context.Context, requesterID string) ([]model.Account, error)
	// Update はアカウント名を変更する。管理者のみ実行できる。
	Update(ctx context.Context, requesterID, accountID, name string) (*model.Account, error)
	// Delete はアカウントをテナントスキーマごと削除する。管理者のみ実行できる。
	Delete(ctx context.Context, requesterID, accountID string) error
}

// AccountHandler はアカウント管理のHTTPハンドラー。
type AccountHandler struct {
	service AccountServiceInterface
}

// NewAccountHandler はAccountHandlerを生成する。
func NewAccountHandler(service AccountServiceInterface) *AccountHandler {
	return &AccountHandler{service: service}
}

// --- リクエスト・レスポンス型 ---

// accountRequest はアカウント作成・更新リクエストのボディ。
type accountRequest struct {
	Name string `json:"name"`
}

// accountResponse はアカウントのレスポンス。
type accountResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func toAccountResponse(a *model.Account) accountResponse {
	return accountResponse{ID: a.ID, Name: a.Name}
}

func toAccountResponses(accounts []model.Account) []accountResponse {
	out := make([]accountResponse, 0, len(accounts))
	for i := range accounts {
		out = append(out, toAccountResponse(&accounts[i]))
	}
	return out
}

// ListMine は認証済みユーザーがメンバーシップを持つアカウント一覧を返す。
// GET /api/me/accounts
func (h *AccountHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	accounts, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponses(accounts))
}

// ListAll は全アカウント一覧を返す（管理者用）。
// GET /api/admin/all-accounts
func (h *AccountHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	accounts, err := h.service.ListAll(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponses(accounts))
}

// Create はアカウントを作成し、テナントスキーマをプロビジョニングする。
// POST /api/accounts
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました。"))
		return
	}

	account, err := h.service.Create(r.Context(), userID, req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAccountResponse(account))
}

// Get はアカウントの詳細を返す。
// GET /api/accounts/:account_id
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	account, err := h.service.Get(r.Context(), chi.URLParam(r, "account_id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

// Update はアカウント名を変更する。
// PUT /api/accounts/:account_id
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました。"))
		return
	}

	account, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "account_id"), req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

// Delete はアカウントをテナントスキーマごと削除する。
// DELETE /api/accounts/:account_id
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "account_id")); err != nil {
		handleServiceError(w, err)
		return
	}

	writeOK(w)
}
