package middleware

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/hitoshi/tenantbase/internal/model"
)

// NewIPAllowlistMiddleware は接続元IPアドレスを許可リストと照合するミドルウェアを返す。
// 許可リストが空の場合は全接続を許可する（制限なし）。
// リストにないIPからのリクエストには403 Forbiddenを返す。
// 照合はリバースプロキシのヘッダーではなく接続元アドレスに対して行う
// （X-Forwarded-Forは偽装可能なため信用しない）。
func NewIPAllowlistMiddleware(allowed []string) func(next http.Handler) http.Handler {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, ip := range allowed {
		allowedSet[ip] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(allowedSet) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				// ポートなしのRemoteAddr（テスト環境など）はそのまま照合する
				host = r.RemoteAddr
			}

			if _, ok := allowedSet[host]; !ok {
				slog.Warn("接続元IPが許可リストにありません",
					slog.String("remote_ip", host),
					slog.String("path", r.URL.Path))
				WriteErrorResponse(w, http.StatusForbidden,
					model.NewAuthorizationDeniedError("この接続元IPアドレスからのアクセスは許可されていません。"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
