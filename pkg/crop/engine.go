package crop

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"

	"github.com/shouni/gemini-headshot-kit/pkg/domain"
	"github.com/shouni/gemini-headshot-kit/pkg/imagecodec"
	"github.com/shouni/gemini-headshot-kit/pkg/imgutil"
)

// OutputQuality はクロップ結果の JPEG 品質です。
const OutputQuality = 95

// State はクロップエンジンの状態です。
type State int

const (
	StateIdle State = iota
	StateEditing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEditing:
		return "editing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Encoder はラスタを NormalizedImage に変換します。
type Encoder interface {
	EncodeRaster(ctx context.Context, img image.Image, quality int) (*domain.NormalizedImage, error)
}

// Engine は取得済み画像から正方形の領域を切り出します。
type Engine struct {
	encoder Encoder

	mu      sync.Mutex
	state   State
	source  image.Image
	display Size
	region  Region
}

// NewEngine は Engine を生成します。
func NewEngine(encoder Encoder) (*Engine, error) {
	if encoder == nil {
		return nil, fmt.Errorf("encoder is required")
	}
	return &Engine{encoder: encoder}, nil
}

// State は現在の状態を返します。
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Region は編集中の領域を返します。
func (e *Engine) Region() Region {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.region
}

// Begin は src の編集を開始し、中央の最大正方形を初期領域とします。
// display が未指定の場合は画像のネイティブサイズで表示しているとみなします。
func (e *Engine) Begin(src *domain.NormalizedImage, display Size) (Region, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if src == nil {
		return Region{}, domain.NewUserError(domain.ErrValidation, "Please provide an image before cropping.")
	}
	if e.state != StateIdle {
		return Region{}, fmt.Errorf("%w: crop is already in progress", domain.ErrValidation)
	}

	raster, err := imagecodec.Decode(src)
	if err != nil {
		return Region{}, err
	}
	b := raster.Bounds()
	if b.Empty() {
		return Region{}, fmt.Errorf("%w: source image is empty", domain.ErrDecode)
	}
	if display.IsZero() {
		display = Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
	}

	e.source = raster
	e.display = display
	e.region = CenterSquare(display)
	e.state = StateEditing
	return e.region, nil
}

// Adjust はユーザーが指定した領域を制約に合わせて補正し、現在の領域とします。
func (e *Engine) Adjust(r Region) (Region, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateEditing {
		return Region{}, fmt.Errorf("%w: no crop in progress", domain.ErrValidation)
	}
	e.region = Constrain(r, e.display)
	return e.region, nil
}

// Confirm は現在の領域をネイティブ解像度で切り出し、新しい画像を返します。
// 成功すると Idle に戻ります。失敗した場合は編集状態を保ちます。
func (e *Engine) Confirm(ctx context.Context) (*domain.NormalizedImage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateEditing {
		return nil, fmt.Errorf("%w: no crop in progress", domain.ErrValidation)
	}

	srcRect, dstW, dstH := ScaleToNatural(e.region, e.display, e.source.Bounds())
	canvas, err := imgutil.CropScaled(e.source, srcRect, dstW, dstH)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCropRasterization, err)
	}

	img, err := e.encoder.EncodeRaster(ctx, canvas, OutputQuality)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCropRasterization, err)
	}

	slog.InfoContext(ctx, "画像をクロップしました", "region", e.region.String(), "width", dstW, "height", dstH)
	e.reset()
	return img, nil
}

// Cancel は編集中の領域を破棄して Idle に戻ります。元画像には触れません。
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reset()
}

func (e *Engine) reset() {
	e.state = StateIdle
	e.source = nil
	e.region = Region{}
	e.display = Size{}
}

// ScaleToNatural は表示単位の領域をネイティブ解像度の矩形に変換します。
// 戻り値の dstW, dstH は出力キャンバスの大きさで、領域の幅・高さに natural/display を掛けて丸めた値です。
// 丸めで矩形が画像からはみ出す場合は原点を内側にずらし、サイズは変えません。
func ScaleToNatural(r Region, display Size, natural image.Rectangle) (image.Rectangle, int, int) {
	scaleX := float64(natural.Dx()) / display.Width
	scaleY := float64(natural.Dy()) / display.Height

	x, dstW := scaleSpan(r.X, r.Width, scaleX, natural.Min.X, natural.Max.X)
	y, dstH := scaleSpan(r.Y, r.Height, scaleY, natural.Min.Y, natural.Max.Y)

	return image.Rect(x, y, x+dstW, y+dstH), dstW, dstH
}

// scaleSpan は 1 軸分の原点と長さを求め、[lo, hi) に収めます。
func scaleSpan(start, length, scale float64, lo, hi int) (int, int) {
	size := min(int(math.Round(length*scale)), hi-lo)
	origin := lo + int(math.Round(start*scale))
	origin = max(lo, min(origin, hi-size))
	return origin, size
}
