// Package handler はHTTPエンドポイントのハンドラーとルーティングを提供する。
//
// ハンドラーはリクエストのデコードとスキーマ検証のみを行い、
// 業務上の検証と存在確認はサービス層に委ねる。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/todoapi/internal/middleware"
	"github.com/hitoshi/todoapi/internal/model"
)

// writeJSON はステータスコードとJSONボディを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
// 永続化層の原因はログにのみ記録する。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.RequestIDFromContext(r.Context())

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		slog.Error("internal server error",
			slog.String("error", err.Error()),
			slog.String("request_id", requestID),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	statusCode := statusForCategory(apiErr.Category)
	if statusCode >= http.StatusInternalServerError {
		attrs := []any{
			slog.String("code", apiErr.Code),
			slog.String("message", apiErr.Message),
			slog.String("request_id", requestID),
		}
		if apiErr.Err != nil {
			attrs = append(attrs, slog.String("error", apiErr.Err.Error()))
		}
		slog.Error("service error", attrs...)
	}

	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// statusForCategory はエラーカテゴリからHTTPステータスコードを決定する。
func statusForCategory(category string) int {
	switch category {
	case model.CategoryValidation:
		return http.StatusBadRequest
	case model.CategoryConflict:
		return http.StatusConflict
	case model.CategoryNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// parseIDParam はURLパラメータを正のint64として解釈する。
func parseIDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, model.NewInvalidIDError(raw)
	}
	return id, nil
}

// formatTime はタイムスタンプをRFC 3339形式（UTC）の文字列にする。
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
