package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/tenantbase/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger // nilの場合はslog.Default()
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	IPAllowlist       []string
	RateLimiter       *middleware.RateLimiter
	MetricsRecorder   middleware.StatusRecorder // nilの場合は計測しない
	MetricsHandler    http.Handler              // nilの場合は/metricsを公開しない

	// 認証・プロフィール
	AuthService AuthServiceInterface
	UserFinder  UserFinder

	// ユーザー設定
	PreferenceService PreferenceServiceInterface

	// アカウント
	AccountService AccountServiceInterface

	// セクション
	SectionService SectionServiceInterface

	// アイテム
	ItemService ItemServiceInterface

	// コメント
	CommentService CommentServiceInterface

	// ユーザー管理
	AdminService AdminServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	SecurityHeaders → CORS → Logging → Recovery → IPAllowlist → (Metrics) → Auth → RateLimit(General) → RateLimit(Write)
//
// LoggingはRecoveryの外側に置き、panicで終わったリクエストも
// 500としてログに残す。
// /health と /api/login は認証ミドルウェアの外に配置する
// （IP許可リストは認証前でも適用される）。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	requestLogger := deps.Logger
	if requestLogger == nil {
		requestLogger = slog.Default()
	}

	// 全ルートに効くミドルウェア
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(requestLogger))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewIPAllowlistMiddleware(deps.IPAllowlist))
	if deps.MetricsRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.MetricsRecorder))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.UserFinder, deps.PreferenceService)
	prefHandler := NewPreferenceHandler(deps.PreferenceService)
	accountHandler := NewAccountHandler(deps.AccountService)
	sectionHandler := NewSectionHandler(deps.SectionService)
	itemHandler := NewItemHandler(deps.ItemService)
	commentHandler := NewCommentHandler(deps.CommentService)
	adminHandler := NewAdminHandler(deps.AdminService)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/login", authHandler.Login)

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General) → RateLimit(Write)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(deps.RateLimiter.WriteMiddleware())

		// プロフィール・設定
		r.Route("/api/me", func(r chi.Router) {
			r.Get("/", authHandler.Me)
			r.Get("/preferences", prefHandler.Get)
			r.Put("/preferences", prefHandler.Update)
			r.Get("/accounts", accountHandler.ListMine)
		})

		// アカウント管理
		r.Route("/api/accounts", func(r chi.Router) {
			r.Post("/", accountHandler.Create)

			r.Route("/{account_id}", func(r chi.Router) {
				r.Get("/", accountHandler.Get)
				r.Put("/", accountHandler.Update)
				r.Delete("/", accountHandler.Delete)

				// セクション管理
				r.Route("/sections", func(r chi.Router) {
					r.Get("/", sectionHandler.List)
					r.Post("/", sectionHandler.Create)

					r.Route("/{slug}", func(r chi.Router) {
						r.Get("/", sectionHandler.Get)
						r.Put("/", sectionHandler.Update)
						r.Delete("/", sectionHandler.Delete)

						// セクション指定のアイテム一覧・作成
						r.Get("/items", itemHandler.ListBySection)
						r.Post("/items", itemHandler.CreateBySection)
					})
				})

				// defaultセクションのアイテム管理
				r.Route("/items", func(r chi.Router) {
					r.Get("/", itemHandler.ListDefault)
					r.Post("/", itemHandler.CreateDefault)

					r.Route("/{item_id}", func(r chi.Router) {
						r.Get("/", itemHandler.Get)
						r.Put("/", itemHandler.Update)
						r.Delete("/", itemHandler.Delete)

						// コメント管理
						r.Get("/comments", commentHandler.List)
						r.Post("/comments", commentHandler.Create)
					})
				})
			})
		})

		// ユーザー管理（管理者用）
		r.Route("/api/admin", func(r chi.Router) {
			r.Get("/all-accounts", accountHandler.ListAll)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", adminHandler.ListUsers)
				r.Post("/", adminHandler.CreateUser)
				r.Put("/{user_id}", adminHandler.UpdateUser)
				r.Delete("/{user_id}", adminHandler.DeleteUser)
			})
		})
	})

	return r
}
