package crop

import (
	"fmt"
	"math"
)

// MinSide はクロップ領域の一辺の最小値（表示単位）です。
const MinSide = 100.0

// Unit はクロップ座標の単位です。
type Unit string

const (
	UnitPixel   Unit = "px"
	UnitPercent Unit = "%"
)

// Size は画像の幅と高さです。
type Size struct {
	Width  float64
	Height float64
}

// IsZero はサイズが未指定かどうかを返します。
func (s Size) IsZero() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Region はクロップ領域です。アスペクト比は常に 1:1 です。
type Region struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
	Unit   Unit
}

func (r Region) String() string {
	return fmt.Sprintf("(%.1f,%.1f %.1fx%.1f%s)", r.X, r.Y, r.Width, r.Height, r.Unit)
}

// CenterSquare は表示サイズに収まる最大の正方形を中央に配置した領域を返します。
func CenterSquare(display Size) Region {
	var side float64
	if display.Width/display.Height > 1 {
		side = display.Height
	} else {
		side = display.Width
	}
	return Region{
		X:      (display.Width - side) / 2,
		Y:      (display.Height - side) / 2,
		Width:  side,
		Height: side,
		Unit:   UnitPixel,
	}
}

// ToPixels はパーセント指定の領域を表示サイズ基準のピクセル領域に変換します。
func (r Region) ToPixels(display Size) Region {
	if r.Unit != UnitPercent {
		r.Unit = UnitPixel
		return r
	}
	return Region{
		X:      r.X * display.Width / 100,
		Y:      r.Y * display.Height / 100,
		Width:  r.Width * display.Width / 100,
		Height: r.Height * display.Height / 100,
		Unit:   UnitPixel,
	}
}

// Constrain は領域を 1:1 に揃え、最小サイズを満たし、表示範囲内に収めます。
// 画像自体が MinSide より小さい場合は短辺を最小値とします。
func Constrain(r Region, display Size) Region {
	r = r.ToPixels(display)

	maxSide := math.Min(display.Width, display.Height)
	minSide := math.Min(MinSide, maxSide)

	side := math.Min(r.Width, r.Height)
	side = clamp(side, minSide, maxSide)

	return Region{
		X:      clamp(r.X, 0, display.Width-side),
		Y:      clamp(r.Y, 0, display.Height-side),
		Width:  side,
		Height: side,
		Unit:   UnitPixel,
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(v, hi))
}
