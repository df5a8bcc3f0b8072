// Package todo はタスク管理のドメインロジックを提供する。
package todo

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hitoshi/todoapi/internal/metrics"
	"github.com/hitoshi/todoapi/internal/model"
	"github.com/hitoshi/todoapi/internal/repository"
	"github.com/hitoshi/todoapi/internal/security"
)

// UserChecker はタスク作成・一覧取得前のユーザー存在確認インターフェース。
type UserChecker interface {
	ExistsByID(ctx context.Context, id int64) (bool, error)
}

// Service はタスク管理のサービス層。
type Service struct {
	todoRepo   repository.TodoRepository
	users      UserChecker
	normalizer security.TextNormalizer
	metrics    metrics.MetricsCollector
	now        func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// collectorはnilでもよい。
func NewService(
	todoRepo repository.TodoRepository,
	users UserChecker,
	normalizer security.TextNormalizer,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		todoRepo:   todoRepo,
		users:      users,
		normalizer: normalizer,
		metrics:    collector,
		now:        time.Now,
	}
}

// ListTodos は全タスクを作成日時の降順で返す。
func (s *Service) ListTodos(ctx context.Context) ([]*model.Todo, error) {
	todos, err := s.todoRepo.List(ctx)
	if err != nil {
		return nil, s.storageError("list todos", err)
	}
	return todos, nil
}

// GetTodo は指定IDのタスクを返す。存在しない場合はTODO_NOT_FOUNDエラーを返す。
func (s *Service) GetTodo(ctx context.Context, id int64) (*model.Todo, error) {
	todo, err := s.todoRepo.FindByID(ctx, id)
	if err != nil {
		return nil, s.storageError("get todo", err)
	}
	if todo == nil {
		return nil, model.NewTodoNotFoundError(id)
	}
	return todo, nil
}

// CreateTodo はユーザーの存在を確認したうえでタスクを作成する。
// 存在確認とINSERTは同一トランザクションではない。その間にユーザーが削除された場合は
// 外部キー違反となり、同じくUSER_NOT_FOUNDとして返す。
func (s *Service) CreateTodo(ctx context.Context, userID int64, task string, completed bool) (*model.Todo, error) {
	task, err := s.normalizeTask(task)
	if err != nil {
		return nil, err
	}

	if err := s.ensureUserExists(ctx, userID); err != nil {
		return nil, err
	}

	todo := &model.Todo{
		UserID:    userID,
		Task:      task,
		Completed: completed,
		CreatedAt: s.now().UTC(),
	}
	if err := s.todoRepo.Create(ctx, todo); err != nil {
		if errors.Is(err, repository.ErrUserReference) {
			return nil, model.NewUserNotFoundError(userID)
		}
		return nil, s.storageError("create todo", err)
	}

	if s.metrics != nil {
		s.metrics.RecordTodoCreated()
	}
	slog.Info("todo created",
		slog.Int64("todo_id", todo.ID),
		slog.Int64("user_id", userID),
	)

	return todo, nil
}

// UpdateTodo はtaskとcompletedを上書きする。
// 同じ内容で繰り返し呼んでも結果は変わらない。
func (s *Service) UpdateTodo(ctx context.Context, id int64, task string, completed bool) (*model.Todo, error) {
	task, err := s.normalizeTask(task)
	if err != nil {
		return nil, err
	}

	todo, err := s.todoRepo.Update(ctx, id, task, completed)
	if err != nil {
		return nil, s.storageError("update todo", err)
	}
	if todo == nil {
		return nil, model.NewTodoNotFoundError(id)
	}

	if s.metrics != nil {
		s.metrics.RecordTodoUpdated(todo.Completed)
	}
	return todo, nil
}

// DeleteTodo はタスクを削除し、削除したタスクを返す。
// 既に削除済みのIDに対してはTODO_NOT_FOUNDエラーを返す。
func (s *Service) DeleteTodo(ctx context.Context, id int64) (*model.Todo, error) {
	todo, err := s.todoRepo.DeleteByID(ctx, id)
	if err != nil {
		return nil, s.storageError("delete todo", err)
	}
	if todo == nil {
		return nil, model.NewTodoNotFoundError(id)
	}

	if s.metrics != nil {
		s.metrics.RecordTodoDeleted()
	}
	slog.Info("todo deleted",
		slog.Int64("todo_id", id),
	)

	return todo, nil
}

// ListTodosByUser は指定ユーザーのタスクを作成日時の降順で返す。
// ユーザーが存在しない場合はUSER_NOT_FOUNDエラーを返す。
func (s *Service) ListTodosByUser(ctx context.Context, userID int64) ([]*model.Todo, error) {
	if err := s.ensureUserExists(ctx, userID); err != nil {
		return nil, err
	}

	todos, err := s.todoRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, s.storageError("list todos by user", err)
	}
	return todos, nil
}

func (s *Service) ensureUserExists(ctx context.Context, userID int64) error {
	exists, err := s.users.ExistsByID(ctx, userID)
	if err != nil {
		return s.storageError("check user", err)
	}
	if !exists {
		return model.NewUserNotFoundError(userID)
	}
	return nil
}

func (s *Service) storageError(op string, err error) error {
	if s.metrics != nil {
		s.metrics.RecordStorageError(op)
	}
	return model.NewStorageError(op, err)
}

// normalizeTask は前後の空白を除いたtaskを返す。それ以外の文字は書き換えない。
func (s *Service) normalizeTask(task string) (string, error) {
	task, err := s.normalizer.Normalize(task)
	if err != nil {
		return "", model.NewInvalidCharacterError("task", err)
	}
	if task == "" {
		return "", model.NewInvalidTaskError()
	}
	return task, nil
}
