package domain

import (
	"encoding/base64"
	"fmt"
	"sync"
)

// DisplayRef は UI 側で画像を表示するための一時的なハンドルです。
// 画像が破棄・置換されるときは必ず Release を呼び出す必要があります。
type DisplayRef interface {
	URI() string
	Release() error
}

// NormalizedImage はアプリケーション内で扱う正規化済みの画像表現です。
// ペイロードは base64 (StdEncoding) で保持します。
type NormalizedImage struct {
	Base64   string
	MimeType string
	Display  DisplayRef

	releaseOnce sync.Once
	releaseErr  error
}

// NewNormalizedImage は生バイト列から NormalizedImage を生成します。
func NewNormalizedImage(data []byte, mimeType string, display DisplayRef) *NormalizedImage {
	return &NormalizedImage{
		Base64:   base64.StdEncoding.EncodeToString(data),
		MimeType: mimeType,
		Display:  display,
	}
}

// Bytes は base64 ペイロードをデコードしたバイト列を返します。
func (img *NormalizedImage) Bytes() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(img.Base64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 payload: %v", ErrDecode, err)
	}
	return data, nil
}

// DataURI は data URI 形式の文字列を返します。
func (img *NormalizedImage) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", img.MimeType, img.Base64)
}

// URI は表示用ハンドルの URI を返します。ハンドルがない場合は data URI を返します。
func (img *NormalizedImage) URI() string {
	if img.Display == nil {
		return img.DataURI()
	}
	return img.Display.URI()
}

// Release は表示用ハンドルを解放します。複数回呼び出しても安全です。
func (img *NormalizedImage) Release() error {
	if img == nil {
		return nil
	}
	img.releaseOnce.Do(func() {
		if img.Display != nil {
			img.releaseErr = img.Display.Release()
		}
	})
	return img.releaseErr
}

// HeadshotRequest は外部の画像生成呼び出しへ渡す要求です。
type HeadshotRequest struct {
	ImageBase64 string
	MimeType    string
	Prompt      string
}

// ImageResponse は生成された画像データとそのメタデータです。
type ImageResponse struct {
	Data     []byte
	MimeType string
}

// DataURI は生成結果を表示可能な data URI として返します。
func (r *ImageResponse) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", r.MimeType, base64.StdEncoding.EncodeToString(r.Data))
}
