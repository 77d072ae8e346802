package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/gemini-headshot-kit/internal/builder"
	"github.com/shouni/gemini-headshot-kit/pkg/crop"
	"github.com/shouni/gemini-headshot-kit/pkg/domain"
	"github.com/shouni/gemini-headshot-kit/pkg/orchestrator"
	"github.com/shouni/gemini-headshot-kit/pkg/studio"

	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "自撮り写真とスタイルからヘッドショットを生成します。",
	Long: `--image で指定した画像 (または --camera-url のカメラで撮影した写真) に
--style のスタイルを適用し、<out>/ai-headshot.png に保存します。`,
	RunE: generateCommand,
}

func init() {
	generateCmd.Flags().StringVarP(&opts.ImagePath, "image", "i", "", "自撮り写真のパスまたは http(s) URL です。")
	generateCmd.Flags().StringVarP(&opts.StyleID, "style", "s", "", "スタイルの ID です (styles コマンドで一覧を表示)。")
	generateCmd.Flags().StringVarP(&opts.UserText, "text", "t", "", "スタイルが要求する自由入力 (名札の名前など) です。")
	generateCmd.Flags().BoolVar(&opts.Crop, "crop", false, "中央の正方形に切り抜いてから送ります。")
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := loadConfig()

	appCtx, err := builder.NewAppContext(cfg)
	if err != nil {
		return err
	}
	app, err := builder.BuildApp(ctx, appCtx)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.WarnContext(ctx, "リソースの解放に失敗しました", "error", err)
		}
	}()

	ws := app.Workspace
	if err := acquireImage(ctx, ws, cfg.Options.ImagePath); err != nil {
		return err
	}
	if cfg.Options.Crop {
		if err := cropCenter(ctx, ws); err != nil {
			return err
		}
	}

	style, err := ws.SelectStyle(cfg.Options.StyleID)
	if err != nil {
		return err
	}
	ws.SetUserText(cfg.Options.UserText)

	slog.InfoContext(ctx, "ヘッドショットを生成します",
		"style", style.ID,
		"image", ws.Image().URI(),
		"remaining", app.Orchestrator.Remaining())

	stop := reportProgress(ctx, cmd, style.Name)
	_, err = ws.Generate(ctx)
	stop()
	if err != nil {
		return userFacingError(err)
	}

	path, err := ws.Download(ctx, cfg.Options.OutputDir)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "保存しました: %s\n", path)
	fmt.Fprintln(out, orchestrator.QuotaMessage(app.Orchestrator.Remaining()))
	return nil
}

// userFacingError は利用者に見せる文言だけを持つエラーに変換します。
func userFacingError(err error) error {
	return errors.New(domain.UserMessage(err))
}

// acquireImage はファイルまたはカメラから画像を取り込みます。
func acquireImage(ctx context.Context, ws *studio.Workspace, location string) error {
	if location != "" {
		return ws.Upload(ctx, location)
	}
	if opts.CameraURL == "" {
		return domain.NewUserError(domain.ErrValidation, "Please provide --image or --camera-url.")
	}
	if err := ws.OpenCamera(ctx); err != nil {
		return err
	}
	return ws.Capture(ctx)
}

// cropCenter は中央の最大正方形でクロップを確定します。
func cropCenter(ctx context.Context, ws *studio.Workspace) error {
	region, err := ws.BeginCrop(crop.Size{})
	if err != nil {
		return err
	}
	slog.DebugContext(ctx, "クロップ領域", "region", region.String())
	return ws.ConfirmCrop(ctx)
}

// reportProgress は生成中の進捗メッセージを一定間隔で表示します。
// 戻り値の関数を呼ぶと停止します。
func reportProgress(ctx context.Context, cmd *cobra.Command, styleName string) func() {
	messages := orchestrator.ProgressMessages(styleName)
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(orchestrator.ProgressInterval)
		defer ticker.Stop()

		i := 0
		fmt.Fprintln(cmd.ErrOrStderr(), messages[i])
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				i = (i + 1) % len(messages)
				fmt.Fprintln(cmd.ErrOrStderr(), messages[i])
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
