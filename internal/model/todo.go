package model

import "time"

// Todo はユーザーが所有するタスクを表す。
// 更新可能なのはTaskとCompletedのみで、UserIDとCreatedAtは作成後に変わらない。
type Todo struct {
	ID        int64
	UserID    int64
	Task      string
	Completed bool
	CreatedAt time.Time
}

// TodoStats はタスク全体の集計結果を表す。
// Total は常に Completed + Pending と一致する。
type TodoStats struct {
	Total     int
	Completed int
	Pending   int
}

// UserTodoStats はユーザーごとのタスク集計結果を表す。
// タスクを持たないユーザーも0件として含まれる。
type UserTodoStats struct {
	UserID         int64
	Name           string
	Email          string
	TotalTodos     int
	CompletedTodos int
	PendingTodos   int
}
