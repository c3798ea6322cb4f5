package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

// testRateLimiterConfig はバースト枯渇を少ないリクエスト数で再現できる設定を返す。
func testRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(0.001), // テスト中に補充されないよう極小にする
		GeneralBurst:    3,
		WriteRate:       rate.Limit(0.001),
		WriteBurst:      2,
		CleanupInterval: time.Hour,
	}
}

func authedRequest(method, target, userID string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return req.WithContext(ContextWithUserID(req.Context(), userID))
}

func TestGeneralMiddleware_AllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()
	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authedRequest(http.MethodGet, "/items", "user-1"))
		if rec.Code != http.StatusOK {
			t.Fatalf("リクエスト%d: status = %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}
}

func TestGeneralMiddleware_ExceedingBurst_Returns429(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()
	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authedRequest(http.MethodGet, "/items", "user-1"))
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodGet, "/items", "user-1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-Afterヘッダーが設定されていない")
	}
}

func TestGeneralMiddleware_LimitersAreIndependentPerUser(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()
	handler := rl.GeneralMiddleware()(okHandler())

	// user-1のバーストを使い切る
	for i := 0; i < 4; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authedRequest(http.MethodGet, "/items", "user-1"))
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodGet, "/items", "user-2"))
	if rec.Code != http.StatusOK {
		t.Errorf("別ユーザーが巻き込まれた: status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestGeneralMiddleware_MissingUserID_Returns401(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()
	handler := rl.GeneralMiddleware()(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestWriteMiddleware_ReadMethodsBypassLimit(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()
	handler := rl.WriteMiddleware()(okHandler())

	// バースト(2)を大きく超える読み取りリクエストがすべて通過する
	for i := 0; i < 10; i++ {
		for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, authedRequest(method, "/items", "user-1"))
			if rec.Code == http.StatusTooManyRequests {
				t.Fatalf("%sリクエストが書き込みレート制限に掛かった", method)
			}
		}
	}
	if rl.WriteLimiterCount() != 0 {
		t.Errorf("読み取りリクエストでリミッターが作成された: count = %d", rl.WriteLimiterCount())
	}
}

func TestWriteMiddleware_WriteMethodsAreLimited(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()
	handler := rl.WriteMiddleware()(okHandler())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/items", "user-1"))
		if rec.Code != http.StatusOK {
			t.Fatalf("リクエスト%d: status = %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodDelete, "/items/abc", "user-1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
}

func TestWriteMiddleware_IndependentFromGeneralLimiter(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()
	general := rl.GeneralMiddleware()(okHandler())
	write := rl.WriteMiddleware()(okHandler())

	// 書き込みバーストを使い切ってもAPI全般の枠は残る
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		write.ServeHTTP(rec, authedRequest(http.MethodPost, "/items", "user-1"))
	}

	rec := httptest.NewRecorder()
	general.ServeHTTP(rec, authedRequest(http.MethodGet, "/items", "user-1"))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRateLimiter_CleanupRemovesStaleEntries(t *testing.T) {
	config := testRateLimiterConfig()
	config.CleanupInterval = 10 * time.Millisecond
	rl := NewRateLimiter(config)
	defer rl.Stop()

	rl.getOrCreateGeneralLimiter("user-1")
	rl.getOrCreateWriteLimiter("user-1")
	if rl.GeneralLimiterCount() != 1 || rl.WriteLimiterCount() != 1 {
		t.Fatalf("エントリ数 = (%d, %d), want (1, 1)", rl.GeneralLimiterCount(), rl.WriteLimiterCount())
	}

	// TTL（CleanupIntervalの2倍）を確実に超えてからクリーンアップを実行する
	time.Sleep(25 * time.Millisecond)
	rl.cleanup()

	if rl.GeneralLimiterCount() != 0 {
		t.Errorf("期限切れのAPI全般エントリが残っている: count = %d", rl.GeneralLimiterCount())
	}
	if rl.WriteLimiterCount() != 0 {
		t.Errorf("期限切れの書き込みエントリが残っている: count = %d", rl.WriteLimiterCount())
	}
}

func TestRateLimiter_RecentEntriesSurviveCleanup(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	rl.getOrCreateGeneralLimiter("user-1")
	rl.cleanup()

	if rl.GeneralLimiterCount() != 1 {
		t.Errorf("直近アクセスのエントリが削除された: count = %d", rl.GeneralLimiterCount())
	}
}

func TestWriteRateLimitResponse_RetryAfterReflectsRate(t *testing.T) {
	rec := httptest.NewRecorder()
	writeRateLimitResponse(rec, rate.Limit(0.5))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	// 0.5 req/sec → 1トークンの補充に2秒
	if got := rec.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %q, want %q", got, "2")
	}
}
