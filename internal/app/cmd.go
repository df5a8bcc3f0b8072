package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hitoshi/todoapi/internal/client"
)

// NewRootCommand はtodoapiのコマンドツリーを生成する。
// logWriterは構造化ログの出力先。コマンドの結果はcmd.OutOrStdout()に書き込む。
//
//	todoapi [serve]        APIサーバーを起動する（デフォルト）
//	todoapi migrate        マイグレーションを適用する
//	todoapi healthcheck    /health を呼び出す（Dockerヘルスチェック用）
//	todoapi client ...     APIクライアント
func NewRootCommand(logWriter io.Writer) *cobra.Command {
	serve := newServeCommand(logWriter)

	root := &cobra.Command{
		Use:           "todoapi",
		Short:         "Task-tracking HTTP API backed by PostgreSQL",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          serve.RunE,
	}

	root.AddCommand(
		serve,
		newMigrateCommand(logWriter),
		newHealthcheckCommand(logWriter),
		newClientCommand(logWriter),
	)
	return root
}

func newServeCommand(logWriter io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := Init(logWriter, true)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg)
		},
	}
}

func newMigrateCommand(logWriter io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := Init(logWriter, true)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			return runMigrate(cfg)
		},
	}
}

func newHealthcheckCommand(logWriter io.Writer) *cobra.Command {
	var apiURL string

	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Call GET /health and exit non-zero unless healthy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newAPIClient(logWriter, apiURL)
			if err != nil {
				return err
			}
			return runHealthcheck(cmd.Context(), c)
		},
	}
	cmd.Flags().StringVar(&apiURL, "url", "", "API base URL (default: $API_URL)")
	return cmd
}

// newAPIClient はAPI_URL/API_TIMEOUTの設定からクライアントを生成する。
// overrideURLが空でなければAPI_URLより優先する。
func newAPIClient(logWriter io.Writer, overrideURL string) (*client.Client, error) {
	cfg, err := Init(logWriter, false)
	if err != nil {
		return nil, fmt.Errorf("initialization failed: %w", err)
	}

	baseURL := cfg.APIURL
	if overrideURL != "" {
		baseURL = overrideURL
	}
	return client.New(baseURL, &http.Client{Timeout: cfg.APITimeout}, nil), nil
}

// --- client サブコマンド ---

func newClientCommand(logWriter io.Writer) *cobra.Command {
	var apiURL string

	cmd := &cobra.Command{
		Use:   "client",
		Short: "Call the API and print JSON responses",
	}
	cmd.PersistentFlags().StringVar(&apiURL, "url", "", "API base URL (default: $API_URL)")

	connect := func() (*client.Client, error) {
		return newAPIClient(logWriter, apiURL)
	}

	cmd.AddCommand(
		newClientUsersCommand(connect),
		newClientTodosCommand(connect),
		newClientStatsCommand(connect),
	)
	return cmd
}

type connectFunc func() (*client.Client, error)

// clientRunE はクライアント呼び出しの結果をJSONで出力するRunEを生成する。
func clientRunE(connect connectFunc, call func(ctx context.Context, c *client.Client, args []string) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		result, err := call(cmd.Context(), c, args)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	}
}

func newClientUsersCommand(connect connectFunc) *cobra.Command {
	listAll := func(ctx context.Context, c *client.Client, args []string) (any, error) {
		return c.ListUsers(ctx)
	}

	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users (GET /users)",
		Args:  cobra.NoArgs,
		RunE:  clientRunE(connect, listAll),
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Get a user (GET /users/{id})",
		Args:  cobra.ExactArgs(1),
		RunE: clientRunE(connect, func(ctx context.Context, c *client.Client, args []string) (any, error) {
			id, err := parseIDArg(args[0])
			if err != nil {
				return nil, err
			}
			return c.GetUser(ctx, id)
		}),
	}

	var name, email string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user (POST /users)",
		Args:  cobra.NoArgs,
		RunE: clientRunE(connect, func(ctx context.Context, c *client.Client, args []string) (any, error) {
			return c.CreateUser(ctx, name, email)
		}),
	}
	create.Flags().StringVar(&name, "name", "", "user name")
	create.Flags().StringVar(&email, "email", "", "email address")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("email")

	cmd.AddCommand(get, create)
	return cmd
}

func newClientTodosCommand(connect connectFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "todos",
		Short: "List todos (GET /todos)",
		Args:  cobra.NoArgs,
		RunE: clientRunE(connect, func(ctx context.Context, c *client.Client, args []string) (any, error) {
			return c.ListTodos(ctx)
		}),
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Get a todo (GET /todos/{id})",
		Args:  cobra.ExactArgs(1),
		RunE: clientRunE(connect, func(ctx context.Context, c *client.Client, args []string) (any, error) {
			id, err := parseIDArg(args[0])
			if err != nil {
				return nil, err
			}
			return c.GetTodo(ctx, id)
		}),
	}

	byUser := &cobra.Command{
		Use:   "user <user_id>",
		Short: "List a user's todos (GET /todos/user/{user_id})",
		Args:  cobra.ExactArgs(1),
		RunE: clientRunE(connect, func(ctx context.Context, c *client.Client, args []string) (any, error) {
			userID, err := parseIDArg(args[0])
			if err != nil {
				return nil, err
			}
			return c.ListTodosByUser(ctx, userID)
		}),
	}

	var (
		userID    int64
		task      string
		completed bool
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a todo (POST /todos)",
		Args:  cobra.NoArgs,
		RunE: clientRunE(connect, func(ctx context.Context, c *client.Client, args []string) (any, error) {
			return c.CreateTodo(ctx, userID, task, completed)
		}),
	}
	create.Flags().Int64Var(&userID, "user-id", 0, "owner user ID")
	create.Flags().StringVar(&task, "task", "", "task text")
	create.Flags().BoolVar(&completed, "completed", false, "mark as completed")
	_ = create.MarkFlagRequired("user-id")
	_ = create.MarkFlagRequired("task")

	var (
		newTask      string
		newCompleted bool
	)
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace a todo's task and completion state (PUT /todos/{id})",
		Args:  cobra.ExactArgs(1),
		RunE: clientRunE(connect, func(ctx context.Context, c *client.Client, args []string) (any, error) {
			id, err := parseIDArg(args[0])
			if err != nil {
				return nil, err
			}
			return c.UpdateTodo(ctx, id, newTask, newCompleted)
		}),
	}
	update.Flags().StringVar(&newTask, "task", "", "task text")
	update.Flags().BoolVar(&newCompleted, "completed", false, "completion state")
	_ = update.MarkFlagRequired("task")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a todo (DELETE /todos/{id})",
		Args:  cobra.ExactArgs(1),
		RunE: clientRunE(connect, func(ctx context.Context, c *client.Client, args []string) (any, error) {
			id, err := parseIDArg(args[0])
			if err != nil {
				return nil, err
			}
			return c.DeleteTodo(ctx, id)
		}),
	}

	cmd.AddCommand(get, byUser, create, update, del)
	return cmd
}

func newClientStatsCommand(connect connectFunc) *cobra.Command {
	var perUser bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show todo statistics (GET /stats, GET /stats/users)",
		Args:  cobra.NoArgs,
		RunE: clientRunE(connect, func(ctx context.Context, c *client.Client, args []string) (any, error) {
			if perUser {
				return c.UserStats(ctx)
			}
			return c.Stats(ctx)
		}),
	}
	cmd.Flags().BoolVar(&perUser, "users", false, "show per-user statistics")
	return cmd
}

func parseIDArg(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: must be a positive integer", raw)
	}
	return id, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
