package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrDuplicateEmail はusers.emailの一意制約違反を表す。
	ErrDuplicateEmail = errors.New("email already exists")

	// ErrUserReference はtodos.user_idの外部キー制約違反を表す。
	ErrUserReference = errors.New("referenced user does not exist")
)

// PostgreSQLのSQLSTATEコード
const (
	pgUniqueViolation     = pq.ErrorCode("23505")
	pgForeignKeyViolation = pq.ErrorCode("23503")
)

// pgErrorCode はerrのチェーンに含まれる*pq.ErrorのSQLSTATEを返す。
// pq.Errorでない場合は空文字を返す。
func pgErrorCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pgErrorCode(err) == pgForeignKeyViolation
}
