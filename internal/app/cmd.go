package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hitoshi/eventhub/internal/config"
)

// NewRootCommand はeventhubのルートコマンドを生成する。
// サブコマンドなしで起動した場合はserveとして動作する。
// wはログとコマンド出力の書き込み先。
func NewRootCommand(w io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "eventhub",
		Short:         "Event management REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConfig(cmd, w, runServe)
		},
	}
	root.SetOut(w)
	root.SetErr(w)

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the API server",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withConfig(cmd, w, runServe)
			},
		},
		&cobra.Command{
			Use:   "worker",
			Short: "Mark finished events as completed on a schedule",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withConfig(cmd, w, runWorker)
			},
		},
		newMigrateCommand(w),
		&cobra.Command{
			Use:   "seed",
			Short: "Insert sample users, events and registrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withConfig(cmd, w, func(ctx context.Context, cfg *config.Config) error {
					return runSeed(ctx, cfg, cmd.OutOrStdout())
				})
			},
		},
		newHealthcheckCommand(),
	)
	return root
}

func newMigrateCommand(w io.Writer) *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:       "migrate [up|down|version]",
		Short:     "Apply or roll back database migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}
			return withConfig(cmd, w, func(_ context.Context, cfg *config.Config) error {
				return runMigrate(cfg, direction, steps, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back with down (0 = all)")
	return cmd
}

// newHealthcheckCommand はフル初期化を行わない軽量なヘルスチェックコマンドを生成する。
func newHealthcheckCommand() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Check the local /health endpoint (for container health checks)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				port := os.Getenv("SERVER_PORT")
				if port == "" {
					port = "5000"
				}
				url = fmt.Sprintf("http://localhost:%s/health", port)
			}
			return runHealthcheck(cmd.Context(), url)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "health endpoint URL (default http://localhost:$SERVER_PORT/health)")
	return cmd
}

// withConfig は設定を読み込み、SIGINT/SIGTERMでキャンセルされるコンテキストでrunを実行する。
func withConfig(cmd *cobra.Command, w io.Writer, run func(context.Context, *config.Config) error) error {
	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return run(ctx, cfg)
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。
func Run(ctx context.Context, w io.Writer, args []string) error {
	root := NewRootCommand(w)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
