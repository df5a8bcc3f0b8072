package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/todoapi/internal/model"
)

// ErrorResponseBody は4xx/5xx応答のJSONボディ。
// codeは機械判定用（USER_NOT_FOUND等）、categoryはvalidation/conflict/not_found/storage等の区分。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteErrorResponse はapiErrをErrorResponseBodyに詰めてstatusCodeで返す。
// 原因のerror（apiErr.Err）はログ用で、ボディには含めない。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError はINTERNAL_ERRORの500を返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}
