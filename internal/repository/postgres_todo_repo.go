package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/todoapi/internal/model"
)

const todoColumns = `id, user_id, task, completed, created_at`

// PostgresTodoRepo はPostgreSQLを使用したタスクリポジトリ。
type PostgresTodoRepo struct {
	db *sql.DB
}

// NewPostgresTodoRepo はPostgresTodoRepoを生成する。
func NewPostgresTodoRepo(db *sql.DB) *PostgresTodoRepo {
	return &PostgresTodoRepo{db: db}
}

// rowScanner は*sql.Rowと*sql.Rowsの共通部分。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(s rowScanner) (*model.Todo, error) {
	todo := &model.Todo{}
	if err := s.Scan(&todo.ID, &todo.UserID, &todo.Task, &todo.Completed, &todo.CreatedAt); err != nil {
		return nil, err
	}
	return todo, nil
}

// List は全タスクを作成日時の降順で返す。同時刻の場合はIDの降順。
func (r *PostgresTodoRepo) List(ctx context.Context) ([]*model.Todo, error) {
	return r.queryTodos(ctx, "list todos",
		`SELECT `+todoColumns+` FROM todos ORDER BY created_at DESC, id DESC`,
	)
}

// ListByUserID は指定ユーザーのタスクを作成日時の降順で返す。
func (r *PostgresTodoRepo) ListByUserID(ctx context.Context, userID int64) ([]*model.Todo, error) {
	return r.queryTodos(ctx, "list todos by user",
		`SELECT `+todoColumns+` FROM todos WHERE user_id = $1 ORDER BY created_at DESC, id DESC`,
		userID,
	)
}

func (r *PostgresTodoRepo) queryTodos(ctx context.Context, op, query string, args ...any) ([]*model.Todo, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	todos := make([]*model.Todo, 0)
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan todo row: %w", err)
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate todo rows: %w", err)
	}
	return todos, nil
}

// FindByID は指定IDのタスクを取得する。見つからない場合はnilを返す。
func (r *PostgresTodoRepo) FindByID(ctx context.Context, id int64) (*model.Todo, error) {
	todo, err := scanTodo(r.db.QueryRowContext(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find todo by ID: %w", err)
	}
	return todo, nil
}

// Create はタスクを作成する。CreatedAtがゼロ値の場合はDBの現在時刻を使う。
func (r *PostgresTodoRepo) Create(ctx context.Context, todo *model.Todo) error {
	var createdAt any
	if !todo.CreatedAt.IsZero() {
		createdAt = todo.CreatedAt
	}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO todos (user_id, task, completed, created_at)
		 VALUES ($1, $2, $3, COALESCE($4::timestamptz, NOW()))
		 RETURNING id, created_at`,
		todo.UserID, todo.Task, todo.Completed, createdAt,
	).Scan(&todo.ID, &todo.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("failed to insert todo: %w", ErrUserReference)
		}
		return fmt.Errorf("failed to insert todo: %w", err)
	}
	return nil
}

// Update はtaskとcompletedを上書きする。見つからない場合はnilを返す。
func (r *PostgresTodoRepo) Update(ctx context.Context, id int64, task string, completed bool) (*model.Todo, error) {
	todo, err := scanTodo(r.db.QueryRowContext(ctx,
		`UPDATE todos SET task = $2, completed = $3 WHERE id = $1
		 RETURNING `+todoColumns,
		id, task, completed,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update todo: %w", err)
	}
	return todo, nil
}

// DeleteByID は指定IDのタスクを削除し、削除前の内容を返す。
// 見つからない場合はnilを返す。
func (r *PostgresTodoRepo) DeleteByID(ctx context.Context, id int64) (*model.Todo, error) {
	todo, err := scanTodo(r.db.QueryRowContext(ctx,
		`DELETE FROM todos WHERE id = $1 RETURNING `+todoColumns,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete todo: %w", err)
	}
	return todo, nil
}

// compile-time interface check
var _ TodoRepository = (*PostgresTodoRepo)(nil)
