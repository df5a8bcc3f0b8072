package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/todoapi/internal/metrics"
	"github.com/hitoshi/todoapi/internal/middleware"
	"github.com/hitoshi/todoapi/internal/model"
	"github.com/hitoshi/todoapi/internal/validation"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// サービス
	UserService   UserServiceInterface
	TodoService   TodoServiceInterface
	StatsService  StatsServiceInterface
	HealthChecker HealthChecker
	Validator     *validation.Validator

	// ミドルウェア依存。RateLimiterとMetricsはnilの場合は無効になる。
	RateLimiter       *middleware.RateLimiter
	Metrics           metrics.MetricsCollector
	CORSAllowedOrigin string
	Logger            *slog.Logger
	// TrustProxyHeaders がtrueのときだけX-Forwarded-For / X-Real-IPをクライアントIPとして採用する。
	// falseではRemoteAddrのみを見るため、ヘッダーの偽装でレート制限を回避できない。
	TrustProxyHeaders bool

	// MetricsHandler がnilの場合は /metrics をマウントしない。
	MetricsHandler http.Handler

	Version string
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	[RealIP] → RequestID → Logging → Metrics → Recovery → SecurityHeaders → CORS → RateLimit(General, Write)
//
// RealIPはTrustProxyHeadersが有効な場合のみ挟む。
// Recoveryを内側に置くので、panicした要求も500としてログとメトリクスに残る。
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	if deps.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewRouteNotFoundError(req.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusMethodNotAllowed, model.NewMethodNotAllowedError(req.Method))
	})

	userHandler := NewUserHandler(deps.UserService, deps.Validator)
	todoHandler := NewTodoHandler(deps.TodoService, deps.Validator)
	statsHandler := NewStatsHandler(deps.StatsService)
	healthHandler := NewHealthHandler(deps.HealthChecker)

	// --- レート制限対象外 ---
	r.Get("/health", healthHandler.Check)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- API本体 ---
	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
			r.Use(deps.RateLimiter.WriteMiddleware())
		}

		r.Get("/", NewIndexHandler(deps.Version))

		// ユーザー管理
		r.Route("/users", func(r chi.Router) {
			r.Get("/", userHandler.ListUsers)
			r.Post("/", userHandler.CreateUser)
			r.Get("/{id}", userHandler.GetUser)
		})

		// タスク管理
		r.Route("/todos", func(r chi.Router) {
			r.Get("/", todoHandler.ListTodos)
			r.Post("/", todoHandler.CreateTodo)
			r.Get("/user/{user_id}", todoHandler.ListTodosByUser)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", todoHandler.GetTodo)
				r.Put("/", todoHandler.UpdateTodo)
				r.Delete("/", todoHandler.DeleteTodo)
			})
		})

		// 集計
		r.Route("/stats", func(r chi.Router) {
			r.Get("/", statsHandler.Global)
			r.Get("/users", statsHandler.PerUser)
		})
	})

	return r
}
