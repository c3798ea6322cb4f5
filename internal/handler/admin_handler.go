package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/tenantbase/internal/admin"
	"github.com/hitoshi/tenantbase/internal/model"
)

// AdminServiceInterface は管理ハンドラーが必要とするサービスインターフェース。
type AdminServiceInterface interface {
	// ListUsers は全ユーザーを返す。管理者のみ実行できる。
	ListUsers(ctx context.Context, requesterID string) ([]admin.UserView, error)
	// CreateUser はユーザーを作成する。管理者のみ実行できる。
	CreateUser(ctx context.Context, requesterID, email, name, password string, userType model.UserType, accountIDs []string) (*admin.UserView, error)
	// UpdateUser はユーザーの部分更新を行う。管理者のみ実行できる。
	UpdateUser(ctx context.Context, requesterID, targetID string, name *string, userType *model.UserType, isActive *bool, accountIDs []string) (*admin.UserView, error)
	// DeleteUser はユーザーを削除する。管理者のみ実行できる。
	DeleteUser(ctx context.Context, requesterID, targetID string) error
}

// AdminHandler はユーザー管理のHTTPハンドラー。
type AdminHandler struct {
	service AdminServiceInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// --- リクエスト・レスポンス型 ---

// adminUserCreateRequest はユーザー作成リクエストのボディ。
type adminUserCreateRequest struct {
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Name     string   `json:"name"`
	UserType string   `json:"user_type"`
	Accounts []string `json:"accounts"`
}

// adminUserUpdateRequest はユーザー更新リクエストのボディ。
// Accountsがnil以外の場合、メンバーシップを置き換える。
type adminUserUpdateRequest struct {
	Name     *string  `json:"name,omitempty"`
	UserType *string  `json:"user_type,omitempty"`
	IsActive *bool    `json:"is_active,omitempty"`
	Accounts []string `json:"accounts,omitempty"`
}

// adminUserResponse は管理APIのユーザーレスポンス。
// Preferencesは要求者がsuper_adminの場合のみ含まれる。
type adminUserResponse struct {
	ID          string             `json:"id"`
	Email       string             `json:"email"`
	Name        string             `json:"name"`
	UserType    string             `json:"user_type"`
	IsActive    bool               `json:"is_active"`
	Preferences *model.Preferences `json:"preferences,omitempty"`
}

func toAdminUserResponse(view *admin.UserView) adminUserResponse {
	return adminUserResponse{
		ID:          view.User.ID,
		Email:       view.User.Email,
		Name:        view.User.Name,
		UserType:    string(view.User.UserType),
		IsActive:    view.User.IsActive,
		Preferences: view.Preferences,
	}
}

// ListUsers は全ユーザー一覧を返す。
// GET /api/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	views, err := h.service.ListUsers(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]adminUserResponse, 0, len(views))
	for i := range views {
		out = append(out, toAdminUserResponse(&views[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateUser はユーザーを作成する。
// POST /api/admin/users
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req adminUserCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました。"))
		return
	}

	view, err := h.service.CreateUser(r.Context(), userID, req.Email, req.Name, req.Password, model.UserType(req.UserType), req.Accounts)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAdminUserResponse(view))
}

// UpdateUser はユーザーの部分更新を行う。
// PUT /api/admin/users/:user_id
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req adminUserUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました。"))
		return
	}

	var userType *model.UserType
	if req.UserType != nil {
		t := model.UserType(*req.UserType)
		userType = &t
	}

	view, err := h.service.UpdateUser(r.Context(), userID, chi.URLParam(r, "user_id"), req.Name, userType, req.IsActive, req.Accounts)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAdminUserResponse(view))
}

// DeleteUser はユーザーを削除する。
// DELETE /api/admin/users/:user_id
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteUser(r.Context(), userID, chi.URLParam(r, "user_id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
