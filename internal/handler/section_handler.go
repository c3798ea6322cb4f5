package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/tenantbase/internal/model"
)

// SectionServiceInterface はセクションハンドラーが必要とするサービスインターフェース。
type SectionServiceInterface interface {
	// List はアカウントのセクションを作成順で返す。
	List(ctx context.Context, accountID string) ([]model.Section, error)
	// Get は指定スラグのセクションを返す。
	Get(ctx context.Context, accountID, slug string) (*model.Section, error)
	// Save はセクションを作成または上書きする。
	Save(ctx context.Context, accountID, slug, label string, rawSchema map[string]any) (*model.Section, error)
	// Update は既存セクションのラベルとスキーマを更新する。
	Update(ctx context.Context, accountID, slug string, label *string, rawSchema map[string]any) (*model.Section, error)
	// Delete はセクションとセクション内のアイテムをすべて削除する。
	Delete(ctx context.Context, accountID, slug string) error
}

// SectionHandler はセクション管理のHTTPハンドラー。
type SectionHandler struct {
	service SectionServiceInterface
}

// NewSectionHandler はSectionHandlerを生成する。
func NewSectionHandler(service SectionServiceInterface) *SectionHandler {
	return &SectionHandler{service: service}
}

// --- リクエスト・レスポンス型 ---

// sectionCreateRequest はセクション作成リクエストのボディ。
type sectionCreateRequest struct {
	Slug   string         `json:"slug"`
	Label  string         `json:"label"`
	Schema map[string]any `json:"schema"`
}

// sectionUpdateRequest はセクション更新リクエストのボディ。
type sectionUpdateRequest struct {
	Label  *string        `json:"label,omitempty"`
	Schema map[string]any `json:"schema,omitempty"`
}

// sectionResponse はセクションのレスポンス。
type sectionResponse struct {
	ID     string              `json:"id"`
	Slug   string              `json:"slug"`
	Label  string              `json:"label"`
	Schema model.SectionSchema `json:"schema"`
}

func toSectionResponse(s *model.Section) sectionResponse {
	return sectionResponse{ID: s.ID, Slug: s.Slug, Label: s.Label, Schema: s.Schema}
}

// List はアカウントのセクション一覧を返す。
// GET /api/accounts/:account_id/sections
func (h *SectionHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	sections, err := h.service.List(r.Context(), chi.URLParam(r, "account_id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]sectionResponse, 0, len(sections))
	for i := range sections {
		out = append(out, toSectionResponse(&sections[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// Create はセクションを作成または上書きする。
// POST /api/accounts/:account_id/sections
func (h *SectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	var req sectionCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました。"))
		return
	}

	section, err := h.service.Save(r.Context(), chi.URLParam(r, "account_id"), req.Slug, req.Label, req.Schema)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSectionResponse(section))
}

// Get は指定スラグのセクションを返す。
// GET /api/accounts/:account_id/sections/:slug
func (h *SectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	section, err := h.service.Get(r.Context(), chi.URLParam(r, "account_id"), chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSectionResponse(section))
}

// Update はセクションのラベルとスキーマを更新する。
// PUT /api/accounts/:account_id/sections/:slug
func (h *SectionHandler) Update(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	var req sectionUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました。"))
		return
	}

	section, err := h.service.Update(r.Context(), chi.URLParam(r, "account_id"), chi.URLParam(r, "slug"), req.Label, req.Schema)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSectionResponse(section))
}

// Delete はセクションとセクション内のアイテムを削除する。
// DELETE /api/accounts/:account_id/sections/:slug
func (h *SectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	if err := h.service.Delete(r.Context(), chi.URLParam(r, "account_id"), chi.URLParam(r, "slug")); err != nil {
		handleServiceError(w, err)
		return
	}

	writeOK(w)
}
