package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/todoapi/internal/middleware"
)

// HealthChecker はデータベースへの疎通確認を行う。
type HealthChecker interface {
	Check(ctx context.Context) error
}

// HealthHandler はヘルスチェックのHTTPハンドラー。
type HealthHandler struct {
	checker HealthChecker
}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler(checker HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`
}

const (
	statusHealthy        = "healthy"
	statusUnhealthy      = "unhealthy"
	databaseConnected    = "connected"
	databaseDisconnected = "disconnected"
)

// Check はデータベースの状態を返す。DBに接続できなくても常に200を返す。
// GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if err := h.checker.Check(r.Context()); err != nil {
		slog.Warn("health check failed",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
		)
		writeJSON(w, http.StatusOK, healthResponse{
			Status:   statusUnhealthy,
			Database: databaseDisconnected,
			Error:    err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:   statusHealthy,
		Database: databaseConnected,
	})
}
