package studio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/shouni/gemini-headshot-kit/pkg/capture"
	"github.com/shouni/gemini-headshot-kit/pkg/crop"
	"github.com/shouni/gemini-headshot-kit/pkg/domain"

	"github.com/shouni/go-utils/urlpath"
)

// DownloadFileName は生成結果を保存するときのファイル名です。
const DownloadFileName = "ai-headshot.png"

// ImageLoader はファイルや URL から画像を読み込みます。
type ImageLoader interface {
	Load(ctx context.Context, location string) (*domain.NormalizedImage, error)
}

// CameraController はカメラの開閉と撮影を行います。
type CameraController interface {
	Open(ctx context.Context) error
	Capture(ctx context.Context) (*domain.NormalizedImage, error)
	Close()
}

// Cropper は正方形クロップの編集を行います。
type Cropper interface {
	Begin(src *domain.NormalizedImage, display crop.Size) (crop.Region, error)
	Adjust(r crop.Region) (crop.Region, error)
	Confirm(ctx context.Context) (*domain.NormalizedImage, error)
	Cancel()
}

// Generator はヘッドショットの生成を行います。
type Generator interface {
	Generate(ctx context.Context, image *domain.NormalizedImage, style *domain.StylePreset, userText string) (*domain.ImageResponse, error)
}

// OutputWriter は生成結果をローカルまたは GCS に書き出します。
// remoteio.OutputWriter はこれを満たします。
type OutputWriter interface {
	Write(ctx context.Context, path string, r io.Reader, contentType string) error
}

// StyleLookup は ID からスタイルを引きます。
type StyleLookup interface {
	Lookup(id string) (*domain.StylePreset, bool)
}

// Workspace は「現在アップロードされている画像」を所有し、画像が置き換わるたびに
// 古い画像の表示用ハンドルを解放します。
type Workspace struct {
	loader    ImageLoader
	camera    CameraController
	cropper   Cropper
	generator Generator
	styles    StyleLookup
	writer    OutputWriter

	mu       sync.Mutex
	image    *domain.NormalizedImage
	style    *domain.StylePreset
	userText string
	result   *domain.ImageResponse
	cropping bool
}

// Deps は Workspace の依存関係です。Camera は nil を許容します。
type Deps struct {
	Loader    ImageLoader
	Camera    CameraController
	Cropper   Cropper
	Generator Generator
	Styles    StyleLookup
	Writer    OutputWriter
}

// New は Workspace を生成します。
func New(deps Deps) (*Workspace, error) {
	if deps.Loader == nil {
		return nil, fmt.Errorf("loader is required")
	}
	if deps.Cropper == nil {
		return nil, fmt.Errorf("cropper is required")
	}
	if deps.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if deps.Styles == nil {
		return nil, fmt.Errorf("styles is required")
	}
	if deps.Writer == nil {
		return nil, fmt.Errorf("writer is required")
	}
	return &Workspace{
		loader:    deps.Loader,
		camera:    deps.Camera,
		cropper:   deps.Cropper,
		generator: deps.Generator,
		styles:    deps.Styles,
		writer:    deps.Writer,
	}, nil
}

// Image は現在の画像を返します。
func (w *Workspace) Image() *domain.NormalizedImage {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.image
}

// Style は選択中のスタイルを返します。
func (w *Workspace) Style() *domain.StylePreset {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.style
}

// UserText は入力済みの自由入力テキストを返します。
func (w *Workspace) UserText() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.userText
}

// Result は直近の生成結果を返します。
func (w *Workspace) Result() *domain.ImageResponse {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result
}

// Upload は location の画像を読み込んで現在の画像と置き換えます。
// 読み込みに失敗した場合は現在の画像をそのまま残します。
func (w *Workspace) Upload(ctx context.Context, location string) error {
	img, err := w.loader.Load(ctx, location)
	if err != nil {
		return err
	}
	w.replaceImage(ctx, img, true)
	return nil
}

// OpenCamera はカメラを開きます。
func (w *Workspace) OpenCamera(ctx context.Context) error {
	if w.camera == nil {
		return domain.NewUserError(domain.ErrCameraUnavailable, capture.MsgCameraUnsupported)
	}
	return w.camera.Open(ctx)
}

// Capture はカメラで撮影し、現在の画像と置き換えます。
func (w *Workspace) Capture(ctx context.Context) error {
	if w.camera == nil {
		return domain.NewUserError(domain.ErrCameraUnavailable, capture.MsgCameraUnsupported)
	}
	img, err := w.camera.Capture(ctx)
	if err != nil {
		return err
	}
	w.replaceImage(ctx, img, true)
	return nil
}

// CloseCamera はカメラを閉じます。
func (w *Workspace) CloseCamera() {
	if w.camera != nil {
		w.camera.Close()
	}
}

// BeginCrop は現在の画像のクロップを開始します。
func (w *Workspace) BeginCrop(display crop.Size) (crop.Region, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	region, err := w.cropper.Begin(w.image, display)
	if err != nil {
		return crop.Region{}, err
	}
	w.cropping = true
	return region, nil
}

// AdjustCrop はクロップ領域を変更します。
func (w *Workspace) AdjustCrop(r crop.Region) (crop.Region, error) {
	return w.cropper.Adjust(r)
}

// ConfirmCrop はクロップを確定し、切り出した画像で現在の画像を置き換えます。
func (w *Workspace) ConfirmCrop(ctx context.Context) error {
	img, err := w.cropper.Confirm(ctx)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.cropping = false
	w.mu.Unlock()
	w.replaceImage(ctx, img, false)
	return nil
}

// CancelCrop はクロップを破棄します。現在の画像はそのまま残ります。
func (w *Workspace) CancelCrop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cropper.Cancel()
	w.cropping = false
}

// SelectStyle はスタイルを選択し、自由入力テキストをクリアします。
func (w *Workspace) SelectStyle(id string) (*domain.StylePreset, error) {
	style, ok := w.styles.Lookup(id)
	if !ok {
		return nil, domain.NewUserError(domain.ErrValidation, "Unknown style %q.", id)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.style = style
	w.userText = ""
	return style, nil
}

// SetUserText は自由入力テキストを設定します。
func (w *Workspace) SetUserText(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.userText = text
}

// Generate は現在の画像とスタイルでヘッドショットを生成します。
// 送信まで進んで失敗した場合は前回の結果を破棄します。入力不足や待機中による拒否では残します。
func (w *Workspace) Generate(ctx context.Context) (*domain.ImageResponse, error) {
	w.mu.Lock()
	image, style, text := w.image, w.style, w.userText
	w.mu.Unlock()

	resp, err := w.generator.Generate(ctx, image, style, text)
	if err != nil {
		if !errors.Is(err, domain.ErrValidation) {
			w.mu.Lock()
			w.result = nil
			w.mu.Unlock()
		}
		return nil, err
	}

	w.mu.Lock()
	w.result = resp
	w.mu.Unlock()
	return resp, nil
}

// Download は生成結果を dir/ai-headshot.png (dir は gs:// も可) に書き出し、そのパスを返します。
func (w *Workspace) Download(ctx context.Context, dir string) (string, error) {
	w.mu.Lock()
	result := w.result
	w.mu.Unlock()

	if result == nil || len(result.Data) == 0 {
		return "", domain.NewUserError(domain.ErrValidation, "There is no generated headshot to download yet.")
	}
	if dir == "" {
		dir = "."
	}

	path, err := urlpath.ResolveOutputPath(dir, DownloadFileName)
	if err != nil {
		return "", fmt.Errorf("保存先パスの生成に失敗しました (dir: %s): %w", dir, err)
	}
	if err := w.writer.Write(ctx, path, bytes.NewReader(result.Data), result.MimeType); err != nil {
		return "", fmt.Errorf("画像の保存に失敗しました (path: %s): %w", path, err)
	}
	slog.InfoContext(ctx, "ヘッドショットを保存しました", "path", path, "mime_type", result.MimeType)
	return path, nil
}

// Close はカメラとクロップを終了し、現在の画像のハンドルを解放します。
func (w *Workspace) Close() error {
	w.CloseCamera()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cropping {
		w.cropper.Cancel()
		w.cropping = false
	}
	err := w.image.Release()
	w.image = nil
	w.result = nil
	return err
}

// replaceImage は現在の画像を img に置き換え、古い画像を解放します。
func (w *Workspace) replaceImage(ctx context.Context, img *domain.NormalizedImage, clearResult bool) {
	w.mu.Lock()
	old := w.image
	w.image = img
	if clearResult {
		w.result = nil
	}
	if w.cropping {
		// 編集中の領域は古い画像に対するものなので破棄する
		w.cropper.Cancel()
		w.cropping = false
	}
	w.mu.Unlock()

	if old != nil && old != img {
		if err := old.Release(); err != nil {
			slog.WarnContext(ctx, "画像ハンドルの解放に失敗しました", "error", err)
		}
	}
}
