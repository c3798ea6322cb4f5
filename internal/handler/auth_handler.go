package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/tenantbase/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Login は認証情報を検証し、アクセストークンを発行する。
	Login(ctx context.Context, email, password string) (string, error)
}

// UserFinder は認証済みユーザーのプロフィール取得に必要なインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// PreferenceGetter はユーザー設定の取得に必要なインターフェース。
// preference.Serviceが満たす。
type PreferenceGetter interface {
	Get(ctx context.Context, userID string) (model.Preferences, error)
}

// AuthHandler はログインとプロフィール取得のHTTPハンドラー。
type AuthHandler struct {
	service     AuthServiceInterface
	users       UserFinder
	preferences PreferenceGetter
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, users UserFinder, preferences PreferenceGetter) *AuthHandler {
	return &AuthHandler{
		service:     service,
		users:       users,
		preferences: preferences,
	}
}

// --- リクエスト・レスポンス型 ---

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// tokenResponse はアクセストークンのレスポンス。
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// meResponse は認証済みユーザーのプロフィールレスポンス。
type meResponse struct {
	ID          string            `json:"id"`
	Email       string            `json:"email"`
	Name        string            `json:"name"`
	UserType    string            `json:"user_type"`
	IsAdmin     bool              `json:"is_admin"`
	Preferences model.Preferences `json:"preferences"`
}

// Login は認証情報を検証してアクセストークンを発行する。
// POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました。"))
		return
	}

	token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// Me は認証済みユーザーのプロフィールと設定を返す。
// GET /api/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	user, err := h.users.FindByID(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if user == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError())
		return
	}

	prefs, err := h.preferences.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		UserType:    string(user.UserType),
		IsAdmin:     user.UserType.IsAdmin(),
		Preferences: prefs,
	})
}
