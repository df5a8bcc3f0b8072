// Package stats はタスクの集計ロジックを提供する。
package stats

import (
	"context"

	"github.com/hitoshi/todoapi/internal/metrics"
	"github.com/hitoshi/todoapi/internal/model"
	"github.com/hitoshi/todoapi/internal/repository"
)

// Service は集計のサービス層。
type Service struct {
	statsRepo repository.StatsRepository
	metrics   metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
// collectorはnilでもよい。
func NewService(statsRepo repository.StatsRepository, collector metrics.MetricsCollector) *Service {
	return &Service{
		statsRepo: statsRepo,
		metrics:   collector,
	}
}

// Global はタスク全体の件数・完了数・未完了数を返す。
func (s *Service) Global(ctx context.Context) (*model.TodoStats, error) {
	stats, err := s.statsRepo.Global(ctx)
	if err != nil {
		return nil, s.storageError("global stats", err)
	}
	return stats, nil
}

// PerUser は全ユーザーのタスク集計をユーザーID昇順で返す。
func (s *Service) PerUser(ctx context.Context) ([]*model.UserTodoStats, error) {
	stats, err := s.statsRepo.PerUser(ctx)
	if err != nil {
		return nil, s.storageError("per-user stats", err)
	}
	return stats, nil
}

func (s *Service) storageError(op string, err error) error {
	if s.metrics != nil {
		s.metrics.RecordStorageError(op)
	}
	return model.NewStorageError(op, err)
}
