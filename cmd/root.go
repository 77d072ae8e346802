package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/shouni/gemini-headshot-kit/internal/config"

	"github.com/spf13/cobra"
)

var (
	opts    config.GenerateOptions
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "headshot",
	Short: "自撮り写真から Gemini でプロフィール用ヘッドショットを生成します。",
	Long: `自撮り写真 (ローカルファイル、URL、またはネットワークカメラ) を読み込み、
スタイルを選んで Gemini でプロフェッショナルなヘッドショットを生成します。`,
	SilenceUsage:      true,
	PersistentPreRunE: preRunAppE,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "デバッグログを出力します。")
	rootCmd.PersistentFlags().StringVar(&opts.OutputDir, "out", config.DefaultOutputDir, "生成した画像の保存先ディレクトリです。")
	rootCmd.PersistentFlags().StringVar(&opts.CameraURL, "camera-url", "", "JPEG スナップショットを返すネットワークカメラの URL です。")

	rootCmd.AddCommand(generateCmd, captureCmd, stylesCmd, quotaCmd, chatCmd)
}

// preRunAppE はロガーを設定し、.env を読み込みます。
func preRunAppE(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := config.LoadDotEnv(); err != nil {
		return fmt.Errorf(".env の読み込みに失敗しました: %w", err)
	}
	return nil
}

// loadConfig は環境変数の設定に CLI フラグを反映します。
func loadConfig() *config.Config {
	cfg := config.LoadConfig()
	cfg.Options = opts
	return cfg
}

// Execute はアプリケーションのエントリポイントです。
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
