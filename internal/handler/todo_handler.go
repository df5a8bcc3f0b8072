package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/todoapi/internal/model"
	"github.com/hitoshi/todoapi/internal/validation"
)

// TodoServiceInterface はタスクハンドラーが必要とするサービスインターフェース。
type TodoServiceInterface interface {
	ListTodos(ctx context.Context) ([]*model.Todo, error)
	GetTodo(ctx context.Context, id int64) (*model.Todo, error)
	// CreateTodo は所有ユーザーの存在を確認してからタスクを作成する。
	CreateTodo(ctx context.Context, userID int64, task string, completed bool) (*model.Todo, error)
	// UpdateTodo はtaskとcompletedを全置換する。
	UpdateTodo(ctx context.Context, id int64, task string, completed bool) (*model.Todo, error)
	// DeleteTodo はタスクを削除し、削除前の内容を返す。
	DeleteTodo(ctx context.Context, id int64) (*model.Todo, error)
	ListTodosByUser(ctx context.Context, userID int64) ([]*model.Todo, error)
}

// TodoHandler はタスク管理のHTTPハンドラー。
type TodoHandler struct {
	service   TodoServiceInterface
	validator *validation.Validator
}

// NewTodoHandler はTodoHandlerを生成する。
func NewTodoHandler(service TodoServiceInterface, validator *validation.Validator) *TodoHandler {
	return &TodoHandler{
		service:   service,
		validator: validator,
	}
}

// todoResponse はタスク情報のAPIレスポンス。
type todoResponse struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	Task      string `json:"task"`
	Completed bool   `json:"completed"`
	CreatedAt string `json:"created_at"`
}

type createTodoResponse struct {
	Message   string `json:"message"`
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	Task      string `json:"task"`
	Completed bool   `json:"completed"`
}

type updateTodoResponse struct {
	Message   string `json:"message"`
	ID        int64  `json:"id"`
	Task      string `json:"task"`
	Completed bool   `json:"completed"`
}

type deleteTodoResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
	Task    string `json:"task"`
}

func toTodoResponse(t *model.Todo) todoResponse {
	return todoResponse{
		ID:        t.ID,
		UserID:    t.UserID,
		Task:      t.Task,
		Completed: t.Completed,
		CreatedAt: formatTime(t.CreatedAt),
	}
}

func toTodoListResponse(todos []*model.Todo) []todoResponse {
	resp := make([]todoResponse, 0, len(todos))
	for _, t := range todos {
		resp = append(resp, toTodoResponse(t))
	}
	return resp
}

// ListTodos は全タスクを新しい順に返す。
// GET /todos
func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := h.service.ListTodos(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTodoListResponse(todos))
}

// CreateTodo はタスクを作成する。
// POST /todos
func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	var req validation.CreateTodoRequest
	if err := h.validator.Decode(r.Body, validation.SchemaCreateTodo, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	todo, err := h.service.CreateTodo(r.Context(), req.UserID, req.Task, req.Completed)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createTodoResponse{
		Message:   "タスクを追加しました",
		ID:        todo.ID,
		UserID:    todo.UserID,
		Task:      todo.Task,
		Completed: todo.Completed,
	})
}

// GetTodo は指定IDのタスクを返す。
// GET /todos/{id}
func (h *TodoHandler) GetTodo(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	todo, err := h.service.GetTodo(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTodoResponse(todo))
}

// UpdateTodo はタスクを全置換で更新する。同じ内容での再送は同じ結果になる。
// PUT /todos/{id}
func (h *TodoHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	var req validation.UpdateTodoRequest
	if err := h.validator.Decode(r.Body, validation.SchemaUpdateTodo, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	todo, err := h.service.UpdateTodo(r.Context(), id, req.Task, req.Completed)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, updateTodoResponse{
		Message:   "タスクを更新しました",
		ID:        todo.ID,
		Task:      todo.Task,
		Completed: todo.Completed,
	})
}

// DeleteTodo はタスクを削除する。
// DELETE /todos/{id}
func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	todo, err := h.service.DeleteTodo(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, deleteTodoResponse{
		Message: "タスクを削除しました",
		ID:      todo.ID,
		Task:    todo.Task,
	})
}

// ListTodosByUser は指定ユーザーのタスクを新しい順に返す。
// GET /todos/user/{user_id}
func (h *TodoHandler) ListTodosByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r, "user_id")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	todos, err := h.service.ListTodosByUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTodoListResponse(todos))
}
