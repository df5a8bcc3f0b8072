package model

import "time"

// User はタスクを所有するユーザーを表す。
// 作成後に更新・削除されることはない。
type User struct {
	ID        int64
	Name      string
	Email     string
	CreatedAt time.Time
}
