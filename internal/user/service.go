// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/todoapi/internal/metrics"
	"github.com/hitoshi/todoapi/internal/model"
	"github.com/hitoshi/todoapi/internal/repository"
	"github.com/hitoshi/todoapi/internal/security"
)

// 列定義（users.name VARCHAR(255), users.email VARCHAR(320)）に合わせた上限
const (
	maxNameLength  = 255
	maxEmailLength = 320
)

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo   repository.UserRepository
	normalizer security.TextNormalizer
	metrics    metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
// collectorはnilでもよい。
func NewService(
	userRepo repository.UserRepository,
	normalizer security.TextNormalizer,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		userRepo:   userRepo,
		normalizer: normalizer,
		metrics:    collector,
	}
}

// ListUsers は全ユーザーをID昇順で返す。
func (s *Service) ListUsers(ctx context.Context) ([]*model.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, s.storageError("list users", err)
	}
	return users, nil
}

// GetUser は指定IDのユーザーを返す。存在しない場合はUSER_NOT_FOUNDエラーを返す。
func (s *Service) GetUser(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, s.storageError("get user", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(id)
	}
	return user, nil
}

// CreateUser はユーザーを作成する。
// nameとemailは前後の空白を除いてそのまま保存する。nameは空であってはならず、
// emailは表示名を含まない単一アドレスでなければならない。
// emailが登録済みの場合はEMAIL_ALREADY_EXISTSエラーを返す。
func (s *Service) CreateUser(ctx context.Context, name, email string) (*model.User, error) {
	name, err := s.normalizer.Normalize(name)
	if err != nil {
		return nil, model.NewInvalidCharacterError("name", err)
	}
	if name == "" {
		return nil, model.NewInvalidNameError()
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, model.NewNameTooLongError(maxNameLength)
	}

	email, err = s.normalizer.Normalize(email)
	if err != nil {
		return nil, model.NewInvalidCharacterError("email", err)
	}
	if !ValidEmail(email) {
		return nil, model.NewInvalidEmailError(email)
	}

	user := &model.User{Name: name, Email: email}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, model.NewEmailConflictError(email)
		}
		return nil, s.storageError("create user", err)
	}

	if s.metrics != nil {
		s.metrics.RecordUserCreated()
	}
	slog.Info("user created",
		slog.Int64("user_id", user.ID),
	)

	return user, nil
}

// ValidEmail はemailが "local@domain" 形式の単一アドレスかを返す。
// "Ann <ann@x.com>" のような表示名付き形式やドメインにドットを含まないアドレスは拒否する。
func ValidEmail(email string) bool {
	if email == "" || len(email) > maxEmailLength {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Name != "" || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}

func (s *Service) storageError(op string, err error) error {
	if s.metrics != nil {
		s.metrics.RecordStorageError(op)
	}
	return model.NewStorageError(op, err)
}
