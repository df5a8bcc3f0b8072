// Package client はtodoapiのHTTP APIを呼び出す型付きクライアントを提供する。
// healthcheckコマンドとclientサブコマンドから利用する。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

const userAgent = "todoapi-client/1.0"

// maxResponseBytes はレスポンスボディの読み取り上限。
const maxResponseBytes = 4 << 20

// User はユーザー情報。
type User struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// Todo はタスク情報。
type Todo struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	Task      string `json:"task"`
	Completed bool   `json:"completed"`
	CreatedAt string `json:"created_at"`
}

// CreatedUser はPOST /usersのレスポンス。
type CreatedUser struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
}

// CreatedTodo はPOST /todosのレスポンス。
type CreatedTodo struct {
	Message   string `json:"message"`
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	Task      string `json:"task"`
	Completed bool   `json:"completed"`
}

// UpdatedTodo はPUT /todos/{id}のレスポンス。
type UpdatedTodo struct {
	Message   string `json:"message"`
	ID        int64  `json:"id"`
	Task      string `json:"task"`
	Completed bool   `json:"completed"`
}

// DeletedTodo はDELETE /todos/{id}のレスポンス。
type DeletedTodo struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
	Task    string `json:"task"`
}

// Stats はタスク全体の集計。
type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

// UserStats はユーザーごとの集計。
type UserStats struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	TotalTodos     int    `json:"total_todos"`
	CompletedTodos int    `json:"completed_todos"`
	PendingTodos   int    `json:"pending_todos"`
}

// Health はGET /healthのレスポンス。
type Health struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`
}

// Healthy はAPIとデータベースの両方が正常かを返す。
func (h *Health) Healthy() bool {
	return h.Status == "healthy"
}

// APIError はAPIが返したエラーレスポンス。
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Category   string `json:"category"`
	Action     string `json:"action"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("todoapi: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("todoapi: HTTP %d [%s] %s", e.StatusCode, e.Code, e.Message)
}

// IsNotFound はerrが404のAPIErrorかを返す。
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client はtodoapiのHTTPクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
}

// New はClientの新しいインスタンスを生成する。
// baseURLの末尾のスラッシュは取り除く。httpClientとloggerがnilの場合はデフォルトを使う。
func New(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// --- ユーザー ---

// ListUsers は全ユーザーを取得する。
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.do(ctx, http.MethodGet, "/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser は指定IDのユーザーを取得する。
func (c *Client) GetUser(ctx context.Context, id int64) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/users/"+strconv.FormatInt(id, 10), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser はユーザーを作成する。
func (c *Client) CreateUser(ctx context.Context, name, email string) (*CreatedUser, error) {
	body := map[string]string{"name": name, "email": email}
	var created CreatedUser
	if err := c.do(ctx, http.MethodPost, "/users", body, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// --- タスク ---

// ListTodos は全タスクを取得する。
func (c *Client) ListTodos(ctx context.Context) ([]Todo, error) {
	var todos []Todo
	if err := c.do(ctx, http.MethodGet, "/todos", nil, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

// ListTodosByUser は指定ユーザーのタスクを取得する。
func (c *Client) ListTodosByUser(ctx context.Context, userID int64) ([]Todo, error) {
	var todos []Todo
	if err := c.do(ctx, http.MethodGet, "/todos/user/"+strconv.FormatInt(userID, 10), nil, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

// GetTodo は指定IDのタスクを取得する。
func (c *Client) GetTodo(ctx context.Context, id int64) (*Todo, error) {
	var todo Todo
	if err := c.do(ctx, http.MethodGet, todoPath(id), nil, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// CreateTodo はタスクを作成する。
func (c *Client) CreateTodo(ctx context.Context, userID int64, task string, completed bool) (*CreatedTodo, error) {
	body := struct {
		UserID    int64  `json:"user_id"`
		Task      string `json:"task"`
		Completed bool   `json:"completed"`
	}{userID, task, completed}

	var created CreatedTodo
	if err := c.do(ctx, http.MethodPost, "/todos", body, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateTodo はタスクのtaskとcompletedを全置換する。
func (c *Client) UpdateTodo(ctx context.Context, id int64, task string, completed bool) (*UpdatedTodo, error) {
	body := struct {
		Task      string `json:"task"`
		Completed bool   `json:"completed"`
	}{task, completed}

	var updated UpdatedTodo
	if err := c.do(ctx, http.MethodPut, todoPath(id), body, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteTodo はタスクを削除する。
func (c *Client) DeleteTodo(ctx context.Context, id int64) (*DeletedTodo, error) {
	var deleted DeletedTodo
	if err := c.do(ctx, http.MethodDelete, todoPath(id), nil, &deleted); err != nil {
		return nil, err
	}
	return &deleted, nil
}

// --- 集計・ヘルスチェック ---

// Stats はタスク全体の集計を取得する。
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if err := c.do(ctx, http.MethodGet, "/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// UserStats はユーザーごとの集計を取得する。
func (c *Client) UserStats(ctx context.Context) ([]UserStats, error) {
	var stats []UserStats
	if err := c.do(ctx, http.MethodGet, "/stats/users", nil, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// Health はAPIのヘルスチェックを行う。
// DBに接続できない場合もエラーにはならず、Health.Healthy()がfalseになる。
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var health Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

func todoPath(id int64) string {
	return "/todos/" + strconv.FormatInt(id, 10)
}

// do はリクエストを送信し、2xxの場合はレスポンスをoutにデコードする。
// それ以外のステータスは*APIErrorとして返す。
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("todoapi request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		c.logger.Debug("todoapi returned an error",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
			slog.String("code", apiErr.Code),
			slog.String("request_id", resp.Header.Get("X-Request-ID")),
		)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
