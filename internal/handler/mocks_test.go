package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/todoapi/internal/middleware"
	"github.com/hitoshi/todoapi/internal/model"
	"github.com/hitoshi/todoapi/internal/validation"
)

// --- モック定義 ---

type mockUserService struct {
	listUsersFn  func(ctx context.Context) ([]*model.User, error)
	getUserFn    func(ctx context.Context, id int64) (*model.User, error)
	createUserFn func(ctx context.Context, name, email string) (*model.User, error)
}

func (m *mockUserService) ListUsers(ctx context.Context) ([]*model.User, error) {
	if m.listUsersFn != nil {
		return m.listUsersFn(ctx)
	}
	return nil, nil
}

func (m *mockUserService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	if m.getUserFn != nil {
		return m.getUserFn(ctx, id)
	}
	return nil, model.NewUserNotFoundError(id)
}

func (m *mockUserService) CreateUser(ctx context.Context, name, email string) (*model.User, error) {
	if m.createUserFn != nil {
		return m.createUserFn(ctx, name, email)
	}
	return &model.User{ID: 1, Name: name, Email: email}, nil
}

type mockTodoService struct {
	listTodosFn       func(ctx context.Context) ([]*model.Todo, error)
	getTodoFn         func(ctx context.Context, id int64) (*model.Todo, error)
	createTodoFn      func(ctx context.Context, userID int64, task string, completed bool) (*model.Todo, error)
	updateTodoFn      func(ctx context.Context, id int64, task string, completed bool) (*model.Todo, error)
	deleteTodoFn      func(ctx context.Context, id int64) (*model.Todo, error)
	listTodosByUserFn func(ctx context.Context, userID int64) ([]*model.Todo, error)
}

func (m *mockTodoService) ListTodos(ctx context.Context) ([]*model.Todo, error) {
	if m.listTodosFn != nil {
		return m.listTodosFn(ctx)
	}
	return nil, nil
}

func (m *mockTodoService) GetTodo(ctx context.Context, id int64) (*model.Todo, error) {
	if m.getTodoFn != nil {
		return m.getTodoFn(ctx, id)
	}
	return nil, model.NewTodoNotFoundError(id)
}

func (m *mockTodoService) CreateTodo(ctx context.Context, userID int64, task string, completed bool) (*model.Todo, error) {
	if m.createTodoFn != nil {
		return m.createTodoFn(ctx, userID, task, completed)
	}
	return &model.Todo{ID: 1, UserID: userID, Task: task, Completed: completed}, nil
}

func (m *mockTodoService) UpdateTodo(ctx context.Context, id int64, task string, completed bool) (*model.Todo, error) {
	if m.updateTodoFn != nil {
		return m.updateTodoFn(ctx, id, task, completed)
	}
	return &model.Todo{ID: id, UserID: 1, Task: task, Completed: completed}, nil
}

func (m *mockTodoService) DeleteTodo(ctx context.Context, id int64) (*model.Todo, error) {
	if m.deleteTodoFn != nil {
		return m.deleteTodoFn(ctx, id)
	}
	return nil, model.NewTodoNotFoundError(id)
}

func (m *mockTodoService) ListTodosByUser(ctx context.Context, userID int64) ([]*model.Todo, error) {
	if m.listTodosByUserFn != nil {
		return m.listTodosByUserFn(ctx, userID)
	}
	return nil, nil
}

type mockStatsService struct {
	globalFn  func(ctx context.Context) (*model.TodoStats, error)
	perUserFn func(ctx context.Context) ([]*model.UserTodoStats, error)
}

func (m *mockStatsService) Global(ctx context.Context) (*model.TodoStats, error) {
	if m.globalFn != nil {
		return m.globalFn(ctx)
	}
	return &model.TodoStats{}, nil
}

func (m *mockStatsService) PerUser(ctx context.Context) ([]*model.UserTodoStats, error) {
	if m.perUserFn != nil {
		return m.perUserFn(ctx)
	}
	return nil, nil
}

type mockHealthChecker struct {
	checkFn func(ctx context.Context) error
}

func (m *mockHealthChecker) Check(ctx context.Context) error {
	if m.checkFn != nil {
		return m.checkFn(ctx)
	}
	return nil
}

// --- テストヘルパー ---

func newTestValidator(t *testing.T) *validation.Validator {
	t.Helper()
	v, err := validation.NewValidator()
	if err != nil {
		t.Fatalf("NewValidator() error = %v", err)
	}
	return v
}

// newTestRouter は未指定のサービスをモックで埋めたルーターを生成する。
func newTestRouter(t *testing.T, deps *RouterDeps) http.Handler {
	t.Helper()
	if deps.UserService == nil {
		deps.UserService = &mockUserService{}
	}
	if deps.TodoService == nil {
		deps.TodoService = &mockTodoService{}
	}
	if deps.StatsService == nil {
		deps.StatsService = &mockStatsService{}
	}
	if deps.HealthChecker == nil {
		deps.HealthChecker = &mockHealthChecker{}
	}
	if deps.Validator == nil {
		deps.Validator = newTestValidator(t)
	}
	if deps.CORSAllowedOrigin == "" {
		deps.CORSAllowedOrigin = "http://localhost:3000"
	}
	return NewRouter(deps)
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode response body %q: %v", w.Body.String(), err)
	}
	return v
}

func assertStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d (body: %s)", w.Code, want, w.Body.String())
	}
}

func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, want string) {
	t.Helper()
	body := decodeBody[middleware.ErrorResponseBody](t, w)
	if body.Code != want {
		t.Errorf("error code = %q, want %q", body.Code, want)
	}
	if body.Message == "" || body.Category == "" || body.Action == "" {
		t.Errorf("error body should have message, category and action: %+v", body)
	}
}
