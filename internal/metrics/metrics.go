// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェアやサービス層から利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
	RecordRateLimited(scope string)
	RecordUserCreated()
	RecordTodoCreated()
	RecordTodoUpdated(completed bool)
	RecordTodoDeleted()
	RecordStorageError(op string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	rateLimited   *prometheus.CounterVec
	usersCreated  prometheus.Counter
	todosCreated  prometheus.Counter
	todosUpdated  *prometheus.CounterVec
	todosDeleted  prometheus.Counter
	storageErrors *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todoapi_http_requests_total",
			Help: "メソッド・ルート・ステータスコード別のリクエスト数",
		}, []string{"method", "route", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "todoapi_http_request_duration_seconds",
			Help:    "リクエスト処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todoapi_rate_limited_total",
			Help: "レート制限により拒否されたリクエスト数",
		}, []string{"scope"}),
		usersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "todoapi_users_created_total",
			Help: "作成されたユーザーの合計数",
		}),
		todosCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "todoapi_todos_created_total",
			Help: "作成されたタスクの合計数",
		}),
		todosUpdated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todoapi_todos_updated_total",
			Help: "更新されたタスクの合計数（更新後の完了状態別）",
		}, []string{"completed"}),
		todosDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "todoapi_todos_deleted_total",
			Help: "削除されたタスクの合計数",
		}),
		storageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todoapi_storage_errors_total",
			Help: "操作別のデータベースエラー数",
		}, []string{"op"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.rateLimited,
		c.usersCreated,
		c.todosCreated,
		c.todosUpdated,
		c.todosDeleted,
		c.storageErrors,
	)

	return c
}

// RecordHTTPRequest はリクエスト1件の結果と処理時間を記録する。
// routeにはchiのルートパターン（/todos/{id} など）を渡し、ラベルの爆発を防ぐ。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRateLimited はレート制限による拒否を記録する。
func (c *Collector) RecordRateLimited(scope string) {
	c.rateLimited.WithLabelValues(scope).Inc()
}

// RecordUserCreated はユーザー作成を記録する。
func (c *Collector) RecordUserCreated() {
	c.usersCreated.Inc()
}

// RecordTodoCreated はタスク作成を記録する。
func (c *Collector) RecordTodoCreated() {
	c.todosCreated.Inc()
}

// RecordTodoUpdated はタスク更新を記録する。
func (c *Collector) RecordTodoUpdated(completed bool) {
	c.todosUpdated.WithLabelValues(strconv.FormatBool(completed)).Inc()
}

// RecordTodoDeleted はタスク削除を記録する。
func (c *Collector) RecordTodoDeleted() {
	c.todosDeleted.Inc()
}

// RecordStorageError はデータベース操作の失敗を記録する。
func (c *Collector) RecordStorageError(op string) {
	c.storageErrors.WithLabelValues(op).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
