package cmd

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/gemini-headshot-kit/internal/builder"
	"github.com/shouni/gemini-headshot-kit/pkg/crop"
	"github.com/shouni/gemini-headshot-kit/pkg/domain"

	"github.com/shouni/go-utils/urlpath"
	"github.com/spf13/cobra"
)

const capturedFileName = "selfie.jpg"

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "ネットワークカメラで撮影して保存します。",
	Long:  `--camera-url のカメラから1枚撮影し、<out>/selfie.jpg に保存します。--crop で中央の正方形に切り抜きます。`,
	RunE:  captureCommand,
}

func init() {
	captureCmd.Flags().BoolVar(&opts.Crop, "crop", false, "中央の正方形に切り抜いて保存します。")
}

func captureCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := loadConfig()
	if cfg.Options.CameraURL == "" {
		return domain.NewUserError(domain.ErrCameraUnavailable, "Please provide --camera-url.")
	}

	appCtx, err := builder.NewAppContext(cfg)
	if err != nil {
		return err
	}
	camera, err := builder.BuildCamera(appCtx)
	if err != nil {
		return err
	}
	defer camera.Close()

	if err := camera.Open(ctx); err != nil {
		return err
	}
	img, err := camera.Capture(ctx)
	if err != nil {
		return err
	}
	defer img.Release()

	if cfg.Options.Crop {
		cropped, err := cropImage(ctx, appCtx, img)
		if err != nil {
			return err
		}
		defer cropped.Release()
		img = cropped
	}

	data, err := img.Bytes()
	if err != nil {
		return err
	}
	_, writer, err := builder.InitializeRemoteIO(ctx)
	if err != nil {
		return err
	}
	path, err := urlpath.ResolveOutputPath(cfg.Options.OutputDir, capturedFileName)
	if err != nil {
		return fmt.Errorf("保存先パスの生成に失敗しました: %w", err)
	}
	if err := writer.Write(ctx, path, bytes.NewReader(data), img.MimeType); err != nil {
		return fmt.Errorf("画像の保存に失敗しました (path: %s): %w", path, err)
	}

	slog.InfoContext(ctx, "撮影した画像を保存しました", "path", path, "bytes", len(data))
	fmt.Fprintf(cmd.OutOrStdout(), "保存しました: %s\n", path)
	return nil
}

// cropImage は中央の最大正方形で切り抜いた新しい画像を返します。
func cropImage(ctx context.Context, appCtx *builder.AppContext, img *domain.NormalizedImage) (*domain.NormalizedImage, error) {
	engine, err := crop.NewEngine(appCtx.Codec)
	if err != nil {
		return nil, err
	}
	if _, err := engine.Begin(img, crop.Size{}); err != nil {
		return nil, err
	}
	return engine.Confirm(ctx)
}
