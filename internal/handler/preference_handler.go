package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/tenantbase/internal/model"
)

// PreferenceServiceInterface は設定ハンドラーが必要とするサービスインターフェース。
type PreferenceServiceInterface interface {
	// Get はユーザーの設定をデフォルト値とマージして返す。
	Get(ctx context.Context, userID string) (model.Preferences, error)
	// Update は部分更新を適用して保存する。nilのフィールドは変更しない。
	Update(ctx context.Context, userID string, accountsLabel, sectionsLabel, itemsLabel *string, showSlugs *bool) (model.Preferences, error)
}

// PreferenceHandler はユーザー設定のHTTPハンドラー。
type PreferenceHandler struct {
	service PreferenceServiceInterface
}

// NewPreferenceHandler はPreferenceHandlerを生成する。
func NewPreferenceHandler(service PreferenceServiceInterface) *PreferenceHandler {
	return &PreferenceHandler{service: service}
}

// preferencesUpdateRequest は設定更新リクエストのボディ。
type preferencesUpdateRequest struct {
	AccountsLabel *string `json:"accounts_label,omitempty"`
	SectionsLabel *string `json:"sections_label,omitempty"`
	ItemsLabel    *string `json:"items_label,omitempty"`
	ShowSlugs     *bool   `json:"show_slugs,omitempty"`
}

// Get は認証済みユーザーの設定を返す。
// GET /api/me/preferences
func (h *PreferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	prefs, err := h.service.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, prefs)
}

// Update は認証済みユーザーの設定を部分更新する。
// PUT /api/me/preferences
func (h *PreferenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req preferencesUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました。"))
		return
	}

	prefs, err := h.service.Update(r.Context(), userID, req.AccountsLabel, req.SectionsLabel, req.ItemsLabel, req.ShowSlugs)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, prefs)
}
