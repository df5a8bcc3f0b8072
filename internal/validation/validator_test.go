package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/hitoshi/todoapi/internal/model"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator returned error: %v", err)
	}
	return v
}

func assertInvalidRequest(t *testing.T, err error) *model.APIError {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T: %v", err, err)
	}
	if apiErr.Code != model.ErrCodeInvalidRequest {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeInvalidRequest)
	}
	if apiErr.Category != model.CategoryValidation {
		t.Errorf("Category = %q, want %q", apiErr.Category, model.CategoryValidation)
	}
	return apiErr
}

func TestDecode_CreateUser(t *testing.T) {
	v := newTestValidator(t)

	var req CreateUserRequest
	err := v.Decode(strings.NewReader(`{"name":"Ann","email":"ann@x.com"}`), SchemaCreateUser, &req)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if req.Name != "Ann" || req.Email != "ann@x.com" {
		t.Errorf("req = %+v", req)
	}
}

func TestDecode_CreateTodo_CompletedOptional(t *testing.T) {
	v := newTestValidator(t)

	var req CreateTodoRequest
	err := v.Decode(strings.NewReader(`{"user_id":1,"task":"write report"}`), SchemaCreateTodo, &req)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if req.UserID != 1 || req.Task != "write report" || req.Completed {
		t.Errorf("req = %+v", req)
	}

	req = CreateTodoRequest{}
	err = v.Decode(strings.NewReader(`{"user_id":1,"task":"x","completed":true}`), SchemaCreateTodo, &req)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if !req.Completed {
		t.Error("completed should be true")
	}
}

func TestDecode_UpdateTodo(t *testing.T) {
	v := newTestValidator(t)

	var req UpdateTodoRequest
	err := v.Decode(strings.NewReader(`{"task":"write report","completed":true}`), SchemaUpdateTodo, &req)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if req.Task != "write report" || !req.Completed {
		t.Errorf("req = %+v", req)
	}
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		body   string
		// メッセージに含まれるべきフィールド名（空なら検査しない）
		field string
	}{
		{"空ボディ", SchemaCreateUser, ``, ""},
		{"空白のみ", SchemaCreateUser, "  \n", ""},
		{"不正なJSON", SchemaCreateUser, `{"name":`, ""},
		{"末尾に余分なデータ", SchemaCreateUser, `{"name":"Ann","email":"a@b.c"} {}`, ""},
		{"オブジェクト以外", SchemaCreateUser, `["Ann"]`, ""},
		{"email欠落", SchemaCreateUser, `{"name":"Ann"}`, "email"},
		{"未知のフィールド", SchemaCreateUser, `{"name":"Ann","email":"a@b.c","age":3}`, "age"},
		{"nameが数値", SchemaCreateUser, `{"name":1,"email":"a@b.c"}`, "name"},
		{"user_idが文字列", SchemaCreateTodo, `{"user_id":"1","task":"x"}`, "user_id"},
		{"user_idが0", SchemaCreateTodo, `{"user_id":0,"task":"x"}`, "user_id"},
		{"user_idが小数", SchemaCreateTodo, `{"user_id":1.5,"task":"x"}`, "user_id"},
		{"task欠落", SchemaCreateTodo, `{"user_id":1}`, "task"},
		{"completedが文字列", SchemaCreateTodo, `{"user_id":1,"task":"x","completed":"yes"}`, "completed"},
		{"更新でcompleted欠落", SchemaUpdateTodo, `{"task":"x"}`, "completed"},
		{"更新でuser_id指定", SchemaUpdateTodo, `{"task":"x","completed":true,"user_id":2}`, "user_id"},
		{"taskがnull", SchemaUpdateTodo, `{"task":null,"completed":true}`, "task"},
	}

	v := newTestValidator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dst map[string]any
			err := v.Decode(strings.NewReader(tt.body), tt.schema, &dst)
			apiErr := assertInvalidRequest(t, err)
			if tt.field != "" && !strings.Contains(apiErr.Message, tt.field) {
				t.Errorf("Message = %q, should mention %q", apiErr.Message, tt.field)
			}
		})
	}
}

func TestDecode_BodyTooLarge(t *testing.T) {
	v := newTestValidator(t)

	body := `{"name":"` + strings.Repeat("a", MaxBodyBytes) + `","email":"a@b.c"}`
	var req CreateUserRequest
	assertInvalidRequest(t, v.Decode(strings.NewReader(body), SchemaCreateUser, &req))
}

func TestDecode_UnknownSchema(t *testing.T) {
	v := newTestValidator(t)

	var req CreateUserRequest
	err := v.Decode(strings.NewReader(`{}`), "missing.json", &req)
	if err == nil {
		t.Fatal("expected error for unknown schema")
	}
	if model.IsValidation(err) {
		t.Error("unknown schema is a programming error, not a validation error")
	}
}
