// Havirkeshtダッシュボード用API Gatewayのエントリポイント。
// ダッシュボードからのリクエストを教育サーバーへ転送する。
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/havirkesht/internal/config"
	"github.com/nao1215/havirkesht/internal/gateway"
	"github.com/nao1215/havirkesht/pkg/httpclient"
	"github.com/nao1215/havirkesht/pkg/logging"
	"github.com/nao1215/havirkesht/pkg/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version はビルド時に -ldflags "-X main.version=..." で埋め込まれる。
var version = "dev"

// errCheckFailed は接続診断が失敗したことを示す。
var errCheckFailed = errors.New("教育サーバーへの接続診断に失敗しました")

// main はシグナルで終了するコンテキストでルートコマンドを実行する。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// newRootCommand はgatewayのルートコマンドを返す。サブコマンドなしで実行するとサーバーを起動する。
func newRootCommand() *cobra.Command {
	var envFiles []string

	cmd := &cobra.Command{
		Use:           "gateway",
		Short:         "Havirkeshtダッシュボード用API Gateway",
		Long:          "ダッシュボードからのリクエストを受け付け、Bearerトークンを付けて教育サーバーへ転送します。",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(envFiles...)
			if err != nil {
				return fmt.Errorf("設定の読み込みに失敗: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "読み込む.envファイル（複数指定可）")

	cmd.AddCommand(
		newCheckCommand(&envFiles),
		newVersionCommand(),
	)
	return cmd
}

// newCheckCommand は接続診断を1回実行して結果を表示するコマンドを返す。
func newCheckCommand(envFiles *[]string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "教育サーバーへの接続を診断する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*envFiles...)
			if err != nil {
				return fmt.Errorf("設定の読み込みに失敗: %w", err)
			}
			return check(cmd.Context(), cmd.OutOrStdout(), cfg, newUpstream(cfg, zap.NewNop(), nil))
		},
	}
}

// newVersionCommand はバージョンを表示するコマンドを返す。
func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "バージョンを表示する",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gateway %s\n", version)
		},
	}
}

// serve はcfgに従ってgatewayを起動し、ctxが終了するまで待つ。
func serve(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	gin.SetMode(cfg.GinMode)
	if !cfg.HasServiceCredentials() {
		logger.Warn("API_USERNAMEとAPI_PASSWORDが未設定のため、接続診断の認証は失敗します")
	}

	m := metrics.New()
	server := gateway.NewServer(cfg, logger, newUpstream(cfg, logger, m), m)
	if err := server.Run(ctx); err != nil {
		logger.Error("Gatewayサービスが異常終了しました", zap.Error(err))
		return err
	}
	logger.Info("Gatewayサービスを停止しました")
	return nil
}

// check は接続診断を実行し、結果をインデント付きJSONでwに書き出す。
func check(ctx context.Context, w io.Writer, cfg *config.Config, upstream gateway.Upstream) error {
	report := gateway.Diagnose(ctx, upstream, gateway.DiagnoseOptions{
		Username: cfg.APIUsername,
		Password: cfg.APIPassword,
		Timeout:  cfg.DiagnosticTimeout,
		Proxy:    cfg.ProxyMode(),
	})

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("診断結果の出力に失敗: %w", err)
	}
	if !report.OverallSuccess {
		return errCheckFailed
	}
	return nil
}

// newUpstream はcfgの教育サーバーに接続するクライアントを生成する。
func newUpstream(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) *httpclient.Client {
	opts := httpclient.Options{
		Timeout:            cfg.RequestTimeout,
		RetryMax:           cfg.UpstreamRetryMax,
		RetryWaitMin:       cfg.UpstreamRetryWaitMin,
		RetryWaitMax:       cfg.UpstreamRetryWaitMax,
		DisableProxy:       cfg.UpstreamDisableProxy,
		InsecureSkipVerify: cfg.UpstreamInsecureSkipVerify,
		Logger:             logger,
	}
	if m != nil {
		opts.Observer = m
	}
	return httpclient.New(cfg.ServerURL, opts)
}
