// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/todoapi/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// List は全ユーザーをID昇順で返す。
	List(ctx context.Context) ([]*model.User, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// ExistsByID は指定IDのユーザーが存在するかを返す。
	ExistsByID(ctx context.Context, id int64) (bool, error)

	// Create はユーザーを作成し、採番されたIDと作成日時をuserに設定する。
	// emailが既に登録済みの場合はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error
}

// TodoRepository はタスクデータの永続化インターフェース。
type TodoRepository interface {
	// List は全タスクを作成日時の降順で返す。
	List(ctx context.Context) ([]*model.Todo, error)

	// FindByID は指定IDのタスクを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Todo, error)

	// ListByUserID は指定ユーザーのタスクを作成日時の降順で返す。
	ListByUserID(ctx context.Context, userID int64) ([]*model.Todo, error)

	// Create はタスクを作成し、採番されたIDをtodoに設定する。
	// user_idが存在しないユーザーを参照した場合はErrUserReferenceを返す。
	Create(ctx context.Context, todo *model.Todo) error

	// Update はtaskとcompletedを上書きし、更新後のタスクを返す。
	// 見つからない場合はnilを返す。
	Update(ctx context.Context, id int64, task string, completed bool) (*model.Todo, error)

	// DeleteByID は指定IDのタスクを削除し、削除したタスクを返す。
	// 見つからない場合はnilを返す。
	DeleteByID(ctx context.Context, id int64) (*model.Todo, error)
}

// StatsRepository は集計クエリのインターフェース。
type StatsRepository interface {
	// Global はタスク全体の件数・完了数・未完了数を返す。
	Global(ctx context.Context) (*model.TodoStats, error)

	// PerUser は全ユーザーのタスク集計をユーザーID昇順で返す。
	// タスクを持たないユーザーも0件で含む。
	PerUser(ctx context.Context) ([]*model.UserTodoStats, error)
}

// HealthRepository はストレージの疎通確認インターフェース。
type HealthRepository interface {
	// Check はストレージへの往復が成功するかを確認する。
	Check(ctx context.Context) error
}
