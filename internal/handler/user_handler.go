package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/todoapi/internal/model"
	"github.com/hitoshi/todoapi/internal/validation"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// ListUsers は全ユーザーをID昇順で返す。
	ListUsers(ctx context.Context) ([]*model.User, error)
	// GetUser は指定IDのユーザーを返す。
	GetUser(ctx context.Context, id int64) (*model.User, error)
	// CreateUser は名前とメールアドレスを検証してユーザーを作成する。
	CreateUser(ctx context.Context, name, email string) (*model.User, error)
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service   UserServiceInterface
	validator *validation.Validator
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, validator *validation.Validator) *UserHandler {
	return &UserHandler{
		service:   service,
		validator: validator,
	}
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

type createUserResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: formatTime(u.CreatedAt),
	}
}

// ListUsers は全ユーザーを返す。
// GET /users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateUser はユーザーを作成する。
// POST /users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req validation.CreateUserRequest
	if err := h.validator.Decode(r.Body, validation.SchemaCreateUser, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	user, err := h.service.CreateUser(r.Context(), req.Name, req.Email)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createUserResponse{
		Message: "ユーザーを作成しました",
		ID:      user.ID,
		Name:    user.Name,
		Email:   user.Email,
	})
}

// GetUser は指定IDのユーザーを返す。
// GET /users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}
