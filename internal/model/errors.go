// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// Categoryがエラー種別（validation, conflict, not_found, storage）を兼ね、
// ハンドラー層はCategoryからHTTPステータスコードを決定する。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, conflict, not_found, storage, system
	Action   string // ユーザー向け対処方法
	Err      error  // 原因となったエラー（クライアントには返さない）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は原因となったエラーを返す。
func (e *APIError) Unwrap() error {
	return e.Err
}

// エラーカテゴリ
const (
	CategoryValidation = "validation"
	CategoryConflict   = "conflict"
	CategoryNotFound   = "not_found"
	CategoryStorage    = "storage"
	CategorySystem     = "system"
)

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeInvalidID        = "INVALID_ID"
	ErrCodeInvalidName      = "INVALID_NAME"
	ErrCodeInvalidEmail     = "INVALID_EMAIL"
	ErrCodeInvalidTask      = "INVALID_TASK"
	ErrCodeInvalidCharacter = "INVALID_CHARACTER"
	ErrCodeEmailConflict    = "EMAIL_ALREADY_EXISTS"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
	ErrCodeTodoNotFound     = "TODO_NOT_FOUND"
	ErrCodeStorage          = "STORAGE_ERROR"
	ErrCodeInternal         = "INTERNAL_ERROR"
	ErrCodeRateLimited      = "rate_limit_exceeded"
	ErrCodeRouteNotFound    = "ROUTE_NOT_FOUND"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

// NewInvalidRequestError はリクエストボディが不正な場合のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: CategoryValidation,
		Action:   "必須フィールドと型を確認し、正しいJSON形式でリクエストしてください。",
	}
}

// NewInvalidIDError はパスパラメータのIDが不正な場合のエラーを生成する。
func NewInvalidIDError(raw string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidID,
		Message:  fmt.Sprintf("無効なIDです: %s", raw),
		Category: CategoryValidation,
		Action:   "IDには1以上の整数を指定してください。",
	}
}

// NewInvalidNameError はユーザー名が空の場合のエラーを生成する。
func NewInvalidNameError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidName,
		Message:  "ユーザー名が空です。",
		Category: CategoryValidation,
		Action:   "1文字以上のユーザー名を入力してください。",
	}
}

// NewNameTooLongError はユーザー名が上限文字数を超えた場合のエラーを生成する。
func NewNameTooLongError(maxLen int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidName,
		Message:  fmt.Sprintf("ユーザー名が長すぎます（最大%d文字）。", maxLen),
		Category: CategoryValidation,
		Action:   fmt.Sprintf("%d文字以内のユーザー名を入力してください。", maxLen),
	}
}

// NewInvalidEmailError はメールアドレスの形式が不正な場合のエラーを生成する。
func NewInvalidEmailError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEmail,
		Message:  fmt.Sprintf("無効なメールアドレスです: %s", email),
		Category: CategoryValidation,
		Action:   "user@example.com の形式でメールアドレスを入力してください。",
	}
}

// NewInvalidTaskError はタスク本文が空の場合のエラーを生成する。
func NewInvalidTaskError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTask,
		Message:  "タスクが空です。",
		Category: CategoryValidation,
		Action:   "1文字以上のタスクを入力してください。",
	}
}

// NewInvalidCharacterError はfieldに保存できない文字（NUL、不正なUTF-8）が含まれる場合のエラーを生成する。
func NewInvalidCharacterError(field string, cause error) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCharacter,
		Message:  fmt.Sprintf("%s に使用できない文字が含まれています。", field),
		Category: CategoryValidation,
		Action:   "NUL文字を取り除き、UTF-8のテキストを送信してください。",
		Err:      cause,
	}
}

// NewEmailConflictError はメールアドレスが既に登録済みの場合のエラーを生成する。
func NewEmailConflictError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeEmailConflict,
		Message:  fmt.Sprintf("メールアドレスは既に登録されています: %s", email),
		Category: CategoryConflict,
		Action:   "別のメールアドレスを使用してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(userID int64) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("ユーザーが見つかりません: %d", userID),
		Category: CategoryNotFound,
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewTodoNotFoundError はタスクが見つからない場合のエラーを生成する。
func NewTodoNotFoundError(todoID int64) *APIError {
	return &APIError{
		Code:     ErrCodeTodoNotFound,
		Message:  fmt.Sprintf("タスクが見つかりません: %d", todoID),
		Category: CategoryNotFound,
		Action:   "タスクIDを確認してください。",
	}
}

// NewStorageError は永続化層の障害を表すエラーを生成する。
// opには失敗した操作名を指定する。原因エラーはErrに保持し、レスポンスには含めない。
func NewStorageError(op string, err error) *APIError {
	return &APIError{
		Code:     ErrCodeStorage,
		Message:  fmt.Sprintf("データベース操作に失敗しました: %s", op),
		Category: CategoryStorage,
		Action:   "しばらく待ってから再度お試しください。",
		Err:      err,
	}
}

// NewInternalError は分類できない内部エラーを生成する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: CategorySystem,
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewRateLimitError はレート制限を超過した場合のエラーを生成する。
func NewRateLimitError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: CategorySystem,
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再度お試しください。",
	}
}

// NewRouteNotFoundError は存在しないパスへのリクエストに対するエラーを生成する。
func NewRouteNotFoundError(path string) *APIError {
	return &APIError{
		Code:     ErrCodeRouteNotFound,
		Message:  fmt.Sprintf("エンドポイントが見つかりません: %s", path),
		Category: CategoryNotFound,
		Action:   "GET / でエンドポイント一覧を確認してください。",
	}
}

// NewMethodNotAllowedError はパスが対応していないHTTPメソッドに対するエラーを生成する。
func NewMethodNotAllowedError(method string) *APIError {
	return &APIError{
		Code:     ErrCodeMethodNotAllowed,
		Message:  fmt.Sprintf("このエンドポイントは %s に対応していません", method),
		Category: CategoryValidation,
		Action:   "GET / でエンドポイント一覧を確認してください。",
	}
}

// HasCategory はerrのチェーンに指定カテゴリのAPIErrorが含まれるかを返す。
func HasCategory(err error, category string) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Category == category
	}
	return false
}

// IsValidation はerrが入力検証エラーかを返す。
func IsValidation(err error) bool { return HasCategory(err, CategoryValidation) }

// IsConflict はerrが一意制約違反エラーかを返す。
func IsConflict(err error) bool { return HasCategory(err, CategoryConflict) }

// IsNotFound はerrが参照先不在エラーかを返す。
func IsNotFound(err error) bool { return HasCategory(err, CategoryNotFound) }

// IsStorage はerrが永続化層エラーかを返す。
func IsStorage(err error) bool { return HasCategory(err, CategoryStorage) }
