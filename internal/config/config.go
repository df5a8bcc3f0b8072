package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL         string
	AutoMigrate         bool
	DBConnectRetries    int
	DBConnectRetryDelay time.Duration
	DBMaxOpenConns      int
	DBMaxIdleConns      int
	DBConnMaxLifetime   time.Duration

	// Rate Limit（req/min/client）
	RateLimitGeneral int
	RateLimitWrite   int

	// Server
	ServerPort        string
	CORSAllowedOrigin string
	ShutdownTimeout   time.Duration
	// trueのときのみX-Forwarded-For等からクライアントIPを決める。
	// リバースプロキシの背後に置く場合だけ有効にする。
	TrustProxyHeaders bool

	// Logging
	LogLevel string

	// Client
	APIURL     string
	APITimeout time.Duration
}

// 環境変数名
const (
	EnvDatabaseURL         = "DATABASE_URL"
	EnvAutoMigrate         = "AUTO_MIGRATE"
	EnvDBConnectRetries    = "DB_CONNECT_RETRIES"
	EnvDBConnectRetryDelay = "DB_CONNECT_RETRY_DELAY"
	EnvDBMaxOpenConns      = "DB_MAX_OPEN_CONNS"
	EnvDBMaxIdleConns      = "DB_MAX_IDLE_CONNS"
	EnvDBConnMaxLifetime   = "DB_CONN_MAX_LIFETIME"
	EnvRateLimitGeneral    = "RATE_LIMIT_GENERAL"
	EnvRateLimitWrite      = "RATE_LIMIT_WRITE"
	EnvServerPort          = "SERVER_PORT"
	EnvCORSAllowedOrigin   = "CORS_ALLOWED_ORIGIN"
	EnvShutdownTimeout     = "SHUTDOWN_TIMEOUT"
	EnvTrustProxyHeaders   = "TRUST_PROXY_HEADERS"
	EnvLogLevel            = "LOG_LEVEL"
	EnvAPIURL              = "API_URL"
	EnvAPITimeout          = "API_TIMEOUT"
)

var defaults = map[string]string{
	EnvAutoMigrate:         "true",
	EnvDBConnectRetries:    "10",
	EnvDBConnectRetryDelay: "2s",
	EnvDBMaxOpenConns:      "10",
	EnvDBMaxIdleConns:      "5",
	EnvDBConnMaxLifetime:   "30m",
	EnvRateLimitGeneral:    "120",
	EnvRateLimitWrite:      "30",
	EnvServerPort:          "5000",
	EnvCORSAllowedOrigin:   "http://localhost:3000",
	EnvShutdownTimeout:     "10s",
	EnvTrustProxyHeaders:   "false",
	EnvLogLevel:            "info",
	EnvAPIURL:              "http://localhost:5000",
	EnvAPITimeout:          "10s",
}

// newViper は環境変数のみを参照するviperインスタンスを生成する。
func newViper() *viper.Viper {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	// デフォルトを持たないキーはBindEnvで明示する
	v.AutomaticEnv()
	_ = v.BindEnv(EnvDatabaseURL)
	return v
}

// Load は環境変数からConfigを読み込む。
// DATABASE_URLが未設定の場合や、数値・期間の値が不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg, err := load(newViper())
	if err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("required environment variables are not set: [%s]", EnvDatabaseURL)
	}
	return cfg, nil
}

// LoadClient はDATABASE_URLを必要としないコマンド（client, healthcheck）向けにConfigを読み込む。
func LoadClient() (*Config, error) {
	return load(newViper())
}

func load(v *viper.Viper) (*Config, error) {
	var errs []error

	getInt := func(key string) int {
		// viperのGetIntは不正な値を黙って0にするため文字列で受けて変換する
		n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: not an integer: %q", key, v.GetString(key)))
		}
		return n
	}
	getDuration := func(key string) time.Duration {
		d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return d
	}
	getBool := func(key string) bool {
		b, err := strconv.ParseBool(strings.TrimSpace(v.GetString(key)))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: not a boolean: %q", key, v.GetString(key)))
		}
		return b
	}

	cfg := &Config{
		DatabaseURL:         strings.TrimSpace(v.GetString(EnvDatabaseURL)),
		AutoMigrate:         v.GetBool(EnvAutoMigrate),
		DBConnectRetries:    getInt(EnvDBConnectRetries),
		DBConnectRetryDelay: getDuration(EnvDBConnectRetryDelay),
		DBMaxOpenConns:      getInt(EnvDBMaxOpenConns),
		DBMaxIdleConns:      getInt(EnvDBMaxIdleConns),
		DBConnMaxLifetime:   getDuration(EnvDBConnMaxLifetime),
		RateLimitGeneral:    getInt(EnvRateLimitGeneral),
		RateLimitWrite:      getInt(EnvRateLimitWrite),
		ServerPort:          v.GetString(EnvServerPort),
		CORSAllowedOrigin:   v.GetString(EnvCORSAllowedOrigin),
		ShutdownTimeout:     getDuration(EnvShutdownTimeout),
		TrustProxyHeaders:   getBool(EnvTrustProxyHeaders),
		LogLevel:            strings.ToLower(v.GetString(EnvLogLevel)),
		APIURL:              strings.TrimRight(v.GetString(EnvAPIURL), "/"),
		APITimeout:          getDuration(EnvAPITimeout),
	}

	if cfg.DBConnectRetries < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1", EnvDBConnectRetries))
	}
	if cfg.DBMaxOpenConns < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1", EnvDBMaxOpenConns))
	}
	if cfg.DBMaxIdleConns < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", EnvDBMaxIdleConns))
	}
	if cfg.RateLimitGeneral < 1 || cfg.RateLimitWrite < 1 {
		errs = append(errs, fmt.Errorf("%s and %s must be at least 1", EnvRateLimitGeneral, EnvRateLimitWrite))
	}
	if cfg.ServerPort == "" {
		errs = append(errs, fmt.Errorf("%s must not be empty", EnvServerPort))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}
