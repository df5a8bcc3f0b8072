package middleware

import (
	"net/http"
	"time"

	"github.com/hitoshi/todoapi/internal/metrics"
)

// NewMetricsMiddleware はリクエスト数と処理時間をルートパターン単位で記録するミドルウェアを返す。
// パスではなくパターン（/todos/{id}）をラベルに使うため、IDごとに系列が増えることはない。
func NewMetricsMiddleware(collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newResponseRecorder(w)

			next.ServeHTTP(rec, r)

			collector.RecordHTTPRequest(r.Method, routePattern(r), rec.Status(), time.Since(start))
		})
	}
}
