package imgutil

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 左半分が赤、右半分が青の画像を作るヘルパー
func splitImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			c := color.RGBA{255, 0, 0, 255}
			if x >= w/2 {
				c = color.RGBA{0, 0, 255, 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func TestCropScaled(t *testing.T) {
	src := splitImage(200, 100)

	t.Run("等倍の切り出しは元のピクセルをそのまま写す", func(t *testing.T) {
		dst, err := CropScaled(src, image.Rect(100, 0, 200, 100), 100, 100)
		require.NoError(t, err)

		assert.Equal(t, 100, dst.Bounds().Dx())
		assert.Equal(t, 100, dst.Bounds().Dy())
		assert.Equal(t, color.RGBA{0, 0, 255, 255}, dst.RGBAAt(0, 0))
		assert.Equal(t, color.RGBA{0, 0, 255, 255}, dst.RGBAAt(99, 99))
	})

	t.Run("縮小時もキャンバスサイズに従う", func(t *testing.T) {
		dst, err := CropScaled(src, image.Rect(0, 0, 100, 100), 40, 40)
		require.NoError(t, err)

		assert.Equal(t, image.Rect(0, 0, 40, 40), dst.Bounds())
		px := dst.RGBAAt(20, 20)
		assert.Greater(t, px.R, uint8(250))
		assert.Less(t, px.B, uint8(5))
	})

	t.Run("範囲外の矩形はエラーになる", func(t *testing.T) {
		_, err := CropScaled(src, image.Rect(300, 300, 400, 400), 100, 100)
		assert.Error(t, err)
	})

	t.Run("空のキャンバスはエラーになる", func(t *testing.T) {
		_, err := CropScaled(src, image.Rect(0, 0, 10, 10), 0, 10)
		assert.Error(t, err)
	})
}
