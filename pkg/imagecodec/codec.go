package imagecodec

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shouni/gemini-headshot-kit/pkg/domain"
	"github.com/shouni/gemini-headshot-kit/pkg/imgutil"
)

// MimeJPEG はキャンバスから書き出す画像の MIME タイプです。
const MimeJPEG = "image/jpeg"

// HandleAllocator は表示用ハンドルを払い出すインターフェースです。
type HandleAllocator interface {
	Allocate(data []byte, mimeType string) (domain.DisplayRef, error)
}

// Codec は任意のバイナリ画像ソースを NormalizedImage に変換します。
type Codec struct {
	handles HandleAllocator
}

// New は Codec を生成します。handles が nil の場合はメモリ上のハンドルを使います。
func New(handles HandleAllocator) *Codec {
	if handles == nil {
		handles = NopAllocator{}
	}
	return &Codec{handles: handles}
}

// Encode は r の内容をすべて読み込み、NormalizedImage を返します。
// mimeType が空の場合は内容から判定します。
func (c *Codec) Encode(ctx context.Context, r io.Reader, mimeType string) (*domain.NormalizedImage, error) {
	data, err := readAll(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read image data: %v", domain.ErrDecode, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: image data is empty", domain.ErrDecode)
	}

	if mimeType == "" {
		mimeType = DetectMimeType(data)
	}

	ref, err := c.handles.Allocate(data, mimeType)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to allocate display handle: %v", domain.ErrDecode, err)
	}

	slog.DebugContext(ctx, "画像を正規化しました", "mime_type", mimeType, "bytes", len(data))
	return domain.NewNormalizedImage(data, mimeType, ref), nil
}

// EncodeRaster はラスタを JPEG にエンコードしてから正規化します。
// quality が 0 以下の場合はエンコーダの既定品質です。
func (c *Codec) EncodeRaster(ctx context.Context, img image.Image, quality int) (*domain.NormalizedImage, error) {
	data, err := imgutil.EncodeJPEG(img, quality)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode raster: %v", domain.ErrDecode, err)
	}
	return c.Encode(ctx, bytes.NewReader(data), MimeJPEG)
}

// Decode は NormalizedImage をラスタにデコードします。
func Decode(img *domain.NormalizedImage) (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: no image", domain.ErrDecode)
	}
	data, err := img.Bytes()
	if err != nil {
		return nil, err
	}
	raster, err := imgutil.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	return raster, nil
}

// DetectMimeType はバイト列から MIME タイプを判定します。
func DetectMimeType(data []byte) string {
	mimeType := http.DetectContentType(data)
	// "text/plain; charset=utf-8" のようなパラメータを取り除く
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return mimeType
}

// readAll は ctx のキャンセルを考慮しながら r を読み切ります。
func readAll(ctx context.Context, r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("reader is nil")
	}
	var buf bytes.Buffer
	chunk := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(chunk)
		buf.Write(chunk[:n])
		if err == io.EOF {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, err
		}
	}
}
