package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/tenantbase/internal/model"
)

// CommentServiceInterface はコメントハンドラーが必要とするサービスインターフェース。
type CommentServiceInterface interface {
	// List は指定アイテムのコメントを新しい順で返す。
	List(ctx context.Context, accountID, itemID string) ([]model.Comment, error)
	// Create はコメントを投稿する。userNameは表示名の上書き（省略可）。
	Create(ctx context.Context, accountID, itemID, userID, userName, body string) (*model.Comment, error)
}

// CommentHandler はコメント管理のHTTPハンドラー。
type CommentHandler struct {
	service CommentServiceInterface
}

// NewCommentHandler はCommentHandlerを生成する。
func NewCommentHandler(service CommentServiceInterface) *CommentHandler {
	return &CommentHandler{service: service}
}

// --- リクエスト・レスポンス型 ---

// commentCreateRequest はコメント投稿リクエストのボディ。
type commentCreateRequest struct {
	Comment  string  `json:"comment"`
	UserName *string `json:"user_name,omitempty"`
}

// commentResponse はコメントのレスポンス。
type commentResponse struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"item_id"`
	UserName  string    `json:"user_name"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

func toCommentResponse(c *model.Comment) commentResponse {
	return commentResponse{
		ID:        c.ID,
		ItemID:    c.ItemID,
		UserName:  c.UserName,
		Comment:   c.Body,
		CreatedAt: c.CreatedAt,
	}
}

// List は指定アイテムのコメント一覧を返す。
// GET /api/accounts/:account_id/items/:item_id/comments
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	comments, err := h.service.List(r.Context(), chi.URLParam(r, "account_id"), chi.URLParam(r, "item_id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]commentResponse, 0, len(comments))
	for i := range comments {
		out = append(out, toCommentResponse(&comments[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// Create はコメントを投稿する。
// POST /api/accounts/:account_id/items/:item_id/comments
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req commentCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました。"))
		return
	}

	userName := ""
	if req.UserName != nil {
		userName = *req.UserName
	}

	comment, err := h.service.Create(r.Context(), chi.URLParam(r, "account_id"), chi.URLParam(r, "item_id"), userID, userName, req.Comment)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCommentResponse(comment))
}
