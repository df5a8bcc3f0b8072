package handler

import "net/http"

// endpointCatalog はGET / で返すエンドポイント一覧。グループ名 → "METHOD path" → 説明。
var endpointCatalog = map[string]map[string]string{
	"users": {
		"GET /users":      "全ユーザーを取得",
		"POST /users":     "ユーザーを作成",
		"GET /users/{id}": "IDでユーザーを取得",
	},
	"todos": {
		"GET /todos":                "全タスクを取得",
		"POST /todos":               "タスクを作成",
		"GET /todos/{id}":           "IDでタスクを取得",
		"PUT /todos/{id}":           "タスクを更新",
		"DELETE /todos/{id}":        "タスクを削除",
		"GET /todos/user/{user_id}": "ユーザーのタスクを取得",
	},
	"stats": {
		"GET /stats":       "タスク全体の集計",
		"GET /stats/users": "ユーザーごとの集計",
	},
	"system": {
		"GET /health":  "ヘルスチェック",
		"GET /metrics": "Prometheusメトリクス",
	},
}

type indexResponse struct {
	Name      string                       `json:"name"`
	Version   string                       `json:"version"`
	Endpoints map[string]map[string]string `json:"endpoints"`
}

// NewIndexHandler はAPI名・バージョン・エンドポイント一覧を返すハンドラーを生成する。
// GET /
func NewIndexHandler(version string) http.HandlerFunc {
	body := indexResponse{
		Name:      "todoapi",
		Version:   version,
		Endpoints: endpointCatalog,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, body)
	}
}
