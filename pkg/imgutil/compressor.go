package imgutil

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// CompressToJPEG は画像データ（PNG, GIF, JPEG, WebP等）をJPEG形式に圧縮します。
// image.Decodeがサポートするフォーマットに対応しています。
func CompressToJPEG(data []byte, quality int) ([]byte, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return EncodeJPEG(img, quality)
}

// Decode は画像データをデコードします。
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return img, nil
}

// DecodeConfig は画像全体をデコードせずにサイズとフォーマットを取得します。
func DecodeConfig(data []byte) (image.Config, string, error) {
	return image.DecodeConfig(bytes.NewReader(data))
}

// EncodeJPEG はラスタを JPEG にエンコードします。
// quality が 0 以下の場合はエンコーダの既定品質を使います。
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	opts := &jpeg.Options{Quality: jpeg.DefaultQuality}
	if quality > 0 {
		opts.Quality = quality
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
