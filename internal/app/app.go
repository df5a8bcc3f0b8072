package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/todoapi/internal/client"
	"github.com/hitoshi/todoapi/internal/config"
	"github.com/hitoshi/todoapi/internal/database"
	"github.com/hitoshi/todoapi/internal/handler"
	"github.com/hitoshi/todoapi/internal/logger"
	"github.com/hitoshi/todoapi/internal/metrics"
	"github.com/hitoshi/todoapi/internal/middleware"
	"github.com/hitoshi/todoapi/internal/repository"
	"github.com/hitoshi/todoapi/internal/security"
	"github.com/hitoshi/todoapi/internal/stats"
	"github.com/hitoshi/todoapi/internal/todo"
	"github.com/hitoshi/todoapi/internal/user"
	"github.com/hitoshi/todoapi/internal/validation"
)

// Version はビルド時に -ldflags "-X github.com/hitoshi/todoapi/internal/app.Version=..." で上書きする。
var Version = "1.0.0"

// Init は環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// requireDBがfalseの場合はDATABASE_URLを必須としない（client, healthcheck用）。
// wが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer, requireDB bool) (*config.Config, error) {
	// 設定読み込み前にもログを使えるようにする
	logger.SetupDefault(w, "info")

	load := config.LoadClient
	if requireDB {
		load = config.Load
	}
	cfg, err := load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, cfg.LogLevel)
	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。サブコマンドが省略された場合はserveとして起動する。
func Run(ctx context.Context, w io.Writer, args []string) error {
	root := NewRootCommand(w)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// runServe はAPIサーバーモードで起動する。
// DB接続（リトライ付き）→ マイグレーション（AUTO_MIGRATE時）→ ワイヤリング → HTTPサーバー起動の順で初期化する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	slog.Info("starting application",
		slog.String("version", Version),
		slog.String("port", cfg.ServerPort),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	// 1. DB接続
	db, err := database.Connect(ctx, cfg.DatabaseURL, poolConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	slog.Info("database connection established",
		slog.Int("max_open_conns", cfg.DBMaxOpenConns),
	)

	// 2. スキーマ適用
	if cfg.AutoMigrate {
		if err := runMigrate(cfg); err != nil {
			return err
		}
	}

	// 3. メトリクスとレート制限
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, "todoapi"),
	)
	collector := metrics.NewCollector(reg)

	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitWrite),
		collector,
	)
	defer rateLimiter.Stop()

	// 4. ルーターの構築
	router, err := buildRouter(db, cfg, reg, collector, rateLimiter)
	if err != nil {
		return err
	}

	// 5. HTTPサーバーの起動
	listener, err := net.Listen("tcp", ":"+cfg.ServerPort)
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", cfg.ServerPort, err)
	}

	return serveHTTP(ctx, listener, router, cfg.ShutdownTimeout)
}

// buildRouter はリポジトリ・サービス・ハンドラーをワイヤリングしたhttp.Handlerを返す。
func buildRouter(
	db *sql.DB,
	cfg *config.Config,
	gatherer prometheus.Gatherer,
	collector metrics.MetricsCollector,
	rateLimiter *middleware.RateLimiter,
) (http.Handler, error) {
	validator, err := validation.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to compile request schemas: %w", err)
	}

	// リポジトリ
	userRepo := repository.NewPostgresUserRepo(db)
	todoRepo := repository.NewPostgresTodoRepo(db)
	statsRepo := repository.NewPostgresStatsRepo(db)
	healthRepo := repository.NewPostgresHealthRepo(db)

	// ドメインサービス
	normalizer := security.NewTextNormalizer()
	userService := user.NewService(userRepo, normalizer, collector)
	todoService := todo.NewService(todoRepo, userRepo, normalizer, collector)
	statsService := stats.NewService(statsRepo, collector)

	return handler.NewRouter(&handler.RouterDeps{
		UserService:   userService,
		TodoService:   todoService,
		StatsService:  statsService,
		HealthChecker: healthRepo,
		Validator:     validator,

		RateLimiter:       rateLimiter,
		Metrics:           collector,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		Logger:            slog.Default(),
		TrustProxyHeaders: cfg.TrustProxyHeaders,

		MetricsHandler: metrics.Handler(gatherer),
		Version:        Version,
	}), nil
}

// serveHTTP はlistenerでHTTPサーバーを起動し、ctxのキャンセルでシャットダウンする。
// サーバーが異常終了した場合はそのエラーを返す。
func serveHTTP(ctx context.Context, listener net.Listener, h http.Handler, shutdownTimeout time.Duration) error {
	server := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", listener.Addr().String()),
		)
		serveErr <- server.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server listen error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate は未適用のデータベースマイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
	)
	return nil
}

// runHealthcheck はAPIの /health を呼び出し、healthyでなければエラーを返す。
// distroless環境でのDockerヘルスチェック用。
func runHealthcheck(ctx context.Context, c *client.Client) error {
	health, err := c.Health(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if !health.Healthy() {
		return fmt.Errorf("health check reported %s (database: %s): %s", health.Status, health.Database, health.Error)
	}
	return nil
}

func poolConfig(cfg *config.Config) database.PoolConfig {
	return database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnectRetries:  cfg.DBConnectRetries,
		RetryDelay:      cfg.DBConnectRetryDelay,
	}
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
