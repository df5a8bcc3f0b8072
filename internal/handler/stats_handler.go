package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/todoapi/internal/model"
)

// StatsServiceInterface は集計ハンドラーが必要とするサービスインターフェース。
type StatsServiceInterface interface {
	Global(ctx context.Context) (*model.TodoStats, error)
	PerUser(ctx context.Context) ([]*model.UserTodoStats, error)
}

// StatsHandler はタスク集計のHTTPハンドラー。
type StatsHandler struct {
	service StatsServiceInterface
}

// NewStatsHandler はStatsHandlerを生成する。
func NewStatsHandler(service StatsServiceInterface) *StatsHandler {
	return &StatsHandler{service: service}
}

type statsResponse struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

type userStatsResponse struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	TotalTodos     int    `json:"total_todos"`
	CompletedTodos int    `json:"completed_todos"`
	PendingTodos   int    `json:"pending_todos"`
}

// Global はタスク全体の集計を返す。
// GET /stats
func (h *StatsHandler) Global(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Global(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Total:     stats.Total,
		Completed: stats.Completed,
		Pending:   stats.Pending,
	})
}

// PerUser はユーザーごとの集計を返す。タスクのないユーザーも0件で含む。
// GET /stats/users
func (h *StatsHandler) PerUser(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.PerUser(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]userStatsResponse, 0, len(rows))
	for _, s := range rows {
		resp = append(resp, userStatsResponse{
			ID:             s.UserID,
			Name:           s.Name,
			Email:          s.Email,
			TotalTodos:     s.TotalTodos,
			CompletedTodos: s.CompletedTodos,
			PendingTodos:   s.PendingTodos,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
