package imgutil

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// CropScaled は src の srcRect 部分を dstW x dstH のキャンバスへ描画します。
// canvas の drawImage(image, sx, sy, sw, sh, 0, 0, dw, dh) に相当します。
func CropScaled(src image.Image, srcRect image.Rectangle, dstW, dstH int) (*image.RGBA, error) {
	if dstW <= 0 || dstH <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", dstW, dstH)
	}

	rect := srcRect.Intersect(src.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("crop rectangle %v is outside of image bounds %v", srcRect, src.Bounds())
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	if rect.Dx() == dstW && rect.Dy() == dstH {
		draw.Draw(dst, dst.Bounds(), src, rect.Min, draw.Src)
		return dst, nil
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, rect, draw.Src, nil)
	return dst, nil
}
