package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/todoapi/internal/model"
)

// PostgresStatsRepo はPostgreSQLを使用した集計リポジトリ。
type PostgresStatsRepo struct {
	db *sql.DB
}

// NewPostgresStatsRepo はPostgresStatsRepoを生成する。
func NewPostgresStatsRepo(db *sql.DB) *PostgresStatsRepo {
	return &PostgresStatsRepo{db: db}
}

// Global はタスク全体の集計を返す。タスクが0件の場合は全て0になる。
// Pendingは同じスナップショットから算出するためTotal = Completed + Pendingが常に成り立つ。
func (r *PostgresStatsRepo) Global(ctx context.Context) (*model.TodoStats, error) {
	stats := &model.TodoStats{}
	err := r.db.QueryRowContext(ctx,
		`SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE completed),
			COUNT(*) FILTER (WHERE NOT completed)
		 FROM todos`,
	).Scan(&stats.Total, &stats.Completed, &stats.Pending)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate todo stats: %w", err)
	}
	return stats, nil
}

// PerUser は全ユーザーのタスク集計をユーザーID昇順で返す。
func (r *PostgresStatsRepo) PerUser(ctx context.Context) ([]*model.UserTodoStats, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT
			u.id, u.name, u.email,
			COUNT(t.id),
			COUNT(t.id) FILTER (WHERE t.completed),
			COUNT(t.id) FILTER (WHERE NOT t.completed)
		 FROM users u
		 LEFT JOIN todos t ON t.user_id = u.id
		 GROUP BY u.id, u.name, u.email
		 ORDER BY u.id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate per-user stats: %w", err)
	}
	defer rows.Close()

	results := make([]*model.UserTodoStats, 0)
	for rows.Next() {
		s := &model.UserTodoStats{}
		if err := rows.Scan(&s.UserID, &s.Name, &s.Email, &s.TotalTodos, &s.CompletedTodos, &s.PendingTodos); err != nil {
			return nil, fmt.Errorf("failed to scan per-user stats row: %w", err)
		}
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate per-user stats rows: %w", err)
	}
	return results, nil
}

// compile-time interface check
var _ StatsRepository = (*PostgresStatsRepo)(nil)
