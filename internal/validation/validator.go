// Package validation はリクエストボディのJSON Schema検証とデコードを提供する。
//
// エンドポイントごとに固定のリクエスト型とスキーマを持ち、
// 未知のフィールド・必須フィールドの欠落・型の不一致はすべてINVALID_REQUESTとして拒否する。
package validation

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/hitoshi/todoapi/internal/model"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// スキーマ名
const (
	SchemaCreateUser = "create_user.json"
	SchemaCreateTodo = "create_todo.json"
	SchemaUpdateTodo = "update_todo.json"
)

// MaxBodyBytes はリクエストボディの上限サイズ。
const MaxBodyBytes = 1 << 20

const schemaBaseURL = "https://todoapi.local/schemas/"

// CreateUserRequest はPOST /usersのリクエストボディ。
type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CreateTodoRequest はPOST /todosのリクエストボディ。
// completedは省略時false。
type CreateTodoRequest struct {
	UserID    int64  `json:"user_id"`
	Task      string `json:"task"`
	Completed bool   `json:"completed"`
}

// UpdateTodoRequest はPUT /todos/{id}のリクエストボディ。
// taskとcompletedの両方が必須（全置換）。
type UpdateTodoRequest struct {
	Task      string `json:"task"`
	Completed bool   `json:"completed"`
}

// Validator はコンパイル済みスキーマを保持する。
// 生成後は読み取り専用のため複数goroutineから利用できる。
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// NewValidator は埋め込みスキーマを全てコンパイルしたValidatorを生成する。
func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()

	names := []string{SchemaCreateUser, SchemaCreateTodo, SchemaUpdateTodo}
	for _, name := range names {
		data, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", name, err)
		}
		if err := compiler.AddResource(schemaBaseURL+name, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to add schema %s: %w", name, err)
		}
	}

	schemas := make(map[string]*jsonschema.Schema, len(names))
	for _, name := range names {
		schema, err := compiler.Compile(schemaBaseURL + name)
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
		}
		schemas[name] = schema
	}

	return &Validator{schemas: schemas}, nil
}

// Decode はbodyを読み取り、schemaNameのスキーマで検証してからdstにデコードする。
// 検証に失敗した場合はINVALID_REQUESTの*model.APIErrorを返す。
func (v *Validator) Decode(body io.Reader, schemaName string, dst any) error {
	schema, ok := v.schemas[schemaName]
	if !ok {
		return fmt.Errorf("unknown schema: %s", schemaName)
	}

	data, err := io.ReadAll(io.LimitReader(body, MaxBodyBytes+1))
	if err != nil {
		return model.NewInvalidRequestError("リクエストボディの読み取りに失敗しました")
	}
	if len(data) > MaxBodyBytes {
		return model.NewInvalidRequestError("リクエストボディが大きすぎます")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return model.NewInvalidRequestError("リクエストボディが空です")
	}

	doc, err := decodeDocument(data)
	if err != nil {
		return model.NewInvalidRequestError("JSONの形式が不正です")
	}

	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return model.NewInvalidRequestError(describe(ve))
		}
		return model.NewInvalidRequestError(err.Error())
	}

	// スキーマ検証済みでも整数フィールドへの 1.5 や範囲外の値はここで弾かれる
	if err := json.Unmarshal(data, dst); err != nil {
		return model.NewInvalidRequestError("フィールドの値が不正です")
	}
	return nil
}

// decodeDocument は数値の精度を保つためUseNumberでデコードし、
// 末尾に余分なデータがある場合はエラーにする。
func decodeDocument(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected trailing data")
	}
	return doc, nil
}

// describe は検証エラーのうち最も具体的な原因を "場所: 内容" の形式で返す。
func describe(ve *jsonschema.ValidationError) string {
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}

	location := strings.TrimPrefix(leaf.InstanceLocation, "/")
	if location == "" {
		return leaf.Message
	}
	return fmt.Sprintf("%s: %s", strings.ReplaceAll(location, "/", "."), leaf.Message)
}
