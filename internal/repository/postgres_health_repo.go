package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresHealthRepo はPostgreSQLへの疎通確認を行う。
type PostgresHealthRepo struct {
	db *sql.DB
}

// NewPostgresHealthRepo はPostgresHealthRepoを生成する。
func NewPostgresHealthRepo(db *sql.DB) *PostgresHealthRepo {
	return &PostgresHealthRepo{db: db}
}

// Check はSELECT 1を実行し、往復が成功するかを確認する。
func (r *PostgresHealthRepo) Check(ctx context.Context) error {
	var one int
	if err := r.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("database round trip failed: %w", err)
	}
	return nil
}

// compile-time interface check
var _ HealthRepository = (*PostgresHealthRepo)(nil)
