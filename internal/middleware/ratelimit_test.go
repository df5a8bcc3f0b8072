package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/hitoshi/todoapi/internal/model"
)

func newClientRequest(method, path, remoteAddr string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = remoteAddr
	return req
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// --- GeneralMiddleware のテスト ---

func TestRateLimitMiddleware_AllowsRequestsWithinLimit(t *testing.T) {
	cfg := RateLimiterConfig{
		GeneralRate:     2, // 2 req/sec
		GeneralBurst:    5, // バースト5
		WriteRate:       1,
		WriteBurst:      10,
		CleanupInterval: 1 * time.Minute,
	}

	rl := NewRateLimiter(cfg, nil)
	defer rl.Stop()

	handlerCallCount := 0
	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCallCount++
		w.WriteHeader(http.StatusOK)
	}))

	// バースト内の5リクエストは全て通る
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, newClientRequest(http.MethodGet, "/todos", "10.0.0.1:5555"))

		if w.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}

	if handlerCallCount != 5 {
		t.Errorf("handler call count = %d, want 5", handlerCallCount)
	}
}

func TestRateLimitMiddleware_Returns429WithRetryAfter(t *testing.T) {
	cfg := RateLimiterConfig{
		GeneralRate:     0.5, // 2秒に1トークン
		GeneralBurst:    2,
		WriteRate:       1,
		WriteBurst:      10,
		CleanupInterval: 1 * time.Minute,
	}

	collector := &fakeCollector{}
	rl := NewRateLimiter(cfg, collector)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, newClientRequest(http.MethodGet, "/todos", "10.0.0.2:1000"))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, w.Code)
		}
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, newClientRequest(http.MethodGet, "/todos", "10.0.0.2:1000"))

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
	if err != nil || retryAfter != 2 {
		t.Errorf("Retry-After = %q, want 2", w.Header().Get("Retry-After"))
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Code != model.ErrCodeRateLimited {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeRateLimited)
	}
	if body.Category == "" || body.Message == "" || body.Action == "" {
		t.Errorf("all error fields should be present: %+v", body)
	}

	if len(collector.rateLimited) != 1 || collector.rateLimited[0] != "general" {
		t.Errorf("rateLimited = %v, want [general]", collector.rateLimited)
	}
}

func TestRateLimitMiddleware_IsolatesClients(t *testing.T) {
	cfg := RateLimiterConfig{
		GeneralRate:     1,
		GeneralBurst:    1,
		WriteRate:       1,
		WriteBurst:      1,
		CleanupInterval: 1 * time.Minute,
	}

	rl := NewRateLimiter(cfg, nil)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	// クライアントAがバーストを使い切る
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, newClientRequest(http.MethodGet, "/todos", "10.0.0.3:1"))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, newClientRequest(http.MethodGet, "/todos", "10.0.0.3:2"))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("client A second request: status = %d, want 429 (port should not matter)", w.Code)
	}

	// クライアントBは影響を受けない
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, newClientRequest(http.MethodGet, "/todos", "10.0.0.4:1"))
	if w.Code != http.StatusOK {
		t.Errorf("client B: status = %d, want 200", w.Code)
	}

	if got := rl.GeneralLimiterCount(); got != 2 {
		t.Errorf("GeneralLimiterCount = %d, want 2", got)
	}
}

// --- WriteMiddleware のテスト ---

func TestWriteRateLimit_OnlyAppliesToWriteMethods(t *testing.T) {
	cfg := RateLimiterConfig{
		GeneralRate:     100,
		GeneralBurst:    100,
		WriteRate:       1,
		WriteBurst:      1,
		CleanupInterval: 1 * time.Minute,
	}

	collector := &fakeCollector{}
	rl := NewRateLimiter(cfg, collector)
	defer rl.Stop()

	handler := rl.WriteMiddleware()(okHandler())
	addr := "10.0.0.5:1"

	// GETは何度でも通る
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, newClientRequest(http.MethodGet, "/todos", addr))
		if w.Code != http.StatusOK {
			t.Fatalf("GET %d: status = %d, want 200", i, w.Code)
		}
	}
	if got := rl.WriteLimiterCount(); got != 0 {
		t.Errorf("GET should not create write limiter entries, got %d", got)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, newClientRequest(http.MethodPost, "/todos", addr))
	if w.Code != http.StatusOK {
		t.Fatalf("first POST: status = %d, want 200", w.Code)
	}

	for _, method := range []string{http.MethodPut, http.MethodDelete, http.MethodPost} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, newClientRequest(method, "/todos/1", addr))
		if w.Code != http.StatusTooManyRequests {
			t.Errorf("%s after burst: status = %d, want 429", method, w.Code)
		}
	}

	if len(collector.rateLimited) != 3 || collector.rateLimited[0] != "write" {
		t.Errorf("rateLimited = %v, want three write entries", collector.rateLimited)
	}
}

func TestWriteRateLimit_IndependentFromGeneralLimit(t *testing.T) {
	cfg := RateLimiterConfig{
		GeneralRate:     1,
		GeneralBurst:    1,
		WriteRate:       1,
		WriteBurst:      5,
		CleanupInterval: 1 * time.Minute,
	}

	rl := NewRateLimiter(cfg, nil)
	defer rl.Stop()

	general := rl.GeneralMiddleware()(okHandler())
	write := rl.WriteMiddleware()(okHandler())
	addr := "10.0.0.6:1"

	// 全般リミットを使い切っても更新系リミットは別
	general.ServeHTTP(httptest.NewRecorder(), newClientRequest(http.MethodGet, "/todos", addr))

	w := httptest.NewRecorder()
	write.ServeHTTP(w, newClientRequest(http.MethodPost, "/todos", addr))
	if w.Code != http.StatusOK {
		t.Errorf("write limiter should be independent: status = %d", w.Code)
	}
}

// --- クリーンアップのテスト ---

func TestRateLimiter_CleanupRemovesExpiredEntries(t *testing.T) {
	cfg := RateLimiterConfig{
		GeneralRate:     2,
		GeneralBurst:    5,
		WriteRate:       1,
		WriteBurst:      10,
		CleanupInterval: time.Hour, // バックグラウンドでは動かさず直接呼ぶ
	}

	rl := NewRateLimiter(cfg, nil)
	defer rl.Stop()

	general := rl.GeneralMiddleware()(okHandler())
	write := rl.WriteMiddleware()(okHandler())
	general.ServeHTTP(httptest.NewRecorder(), newClientRequest(http.MethodGet, "/todos", "10.0.0.7:1"))
	write.ServeHTTP(httptest.NewRecorder(), newClientRequest(http.MethodPost, "/todos", "10.0.0.7:1"))

	if rl.GeneralLimiterCount() != 1 || rl.WriteLimiterCount() != 1 {
		t.Fatal("expected one entry in each limiter set")
	}

	// TTL（CleanupIntervalの2倍）以内なら残る
	rl.cleanup(time.Now().Add(time.Hour))
	if rl.GeneralLimiterCount() != 1 {
		t.Error("entry within TTL should be kept")
	}

	rl.cleanup(time.Now().Add(3 * time.Hour))
	if rl.GeneralLimiterCount() != 0 || rl.WriteLimiterCount() != 0 {
		t.Errorf("expired entries should be removed: general=%d write=%d",
			rl.GeneralLimiterCount(), rl.WriteLimiterCount())
	}
}

func TestRateLimiter_BackgroundCleanup(t *testing.T) {
	cfg := RateLimiterConfig{
		GeneralRate:     2,
		GeneralBurst:    5,
		WriteRate:       1,
		WriteBurst:      10,
		CleanupInterval: 20 * time.Millisecond,
	}

	rl := NewRateLimiter(cfg, nil)
	defer rl.Stop()

	rl.GeneralMiddleware()(okHandler()).ServeHTTP(httptest.NewRecorder(), newClientRequest(http.MethodGet, "/", "10.0.0.8:1"))

	// TTLは40ms、十分に待てば削除される
	deadline := time.Now().Add(2 * time.Second)
	for rl.GeneralLimiterCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("background cleanup did not remove the entry")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig(), nil)
	rl.Stop()
	rl.Stop()
}

// --- 設定値のテスト ---

func TestDefaultRateLimiterConfig(t *testing.T) {
	cfg := DefaultRateLimiterConfig()

	if cfg.GeneralRate != 2.0 { // 120/60 = 2
		t.Errorf("GeneralRate = %f, want 2.0", cfg.GeneralRate)
	}
	if cfg.GeneralBurst != 120 {
		t.Errorf("GeneralBurst = %d, want 120", cfg.GeneralBurst)
	}
	if cfg.WriteRate != 0.5 { // 30/60
		t.Errorf("WriteRate = %f, want 0.5", cfg.WriteRate)
	}
	if cfg.WriteBurst != 30 {
		t.Errorf("WriteBurst = %d, want 30", cfg.WriteBurst)
	}
	if cfg.CleanupInterval != 5*time.Minute {
		t.Errorf("CleanupInterval = %v, want 5m", cfg.CleanupInterval)
	}
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		remoteAddr string
		want       string
	}{
		{"192.0.2.1:1234", "192.0.2.1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"192.0.2.1", "192.0.2.1"},
	}
	for _, tt := range tests {
		req := newClientRequest(http.MethodGet, "/", tt.remoteAddr)
		if got := clientKey(req); got != tt.want {
			t.Errorf("clientKey(%q) = %q, want %q", tt.remoteAddr, got, tt.want)
		}
	}
}
