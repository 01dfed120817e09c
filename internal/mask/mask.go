// Package mask builds the binary inpainting mask for a watermark region.
package mask

import (
	"image"

	"github.com/yokitheyo/watermarkremover/internal/domain"
)

const (
	Keep   uint8 = 0
	Remove uint8 = 255
)

// Rect returns the watermark rectangle for an image of the given size.
// The rectangle is anchored at (width-OffsetX, height-OffsetY) and its size
// is clamped to the image size. Max may lie outside the image when offsets
// are zero; Generate clips it.
func Rect(width, height int, region domain.WatermarkRegion) image.Rectangle {
	rectWidth := min(region.Width, width)
	rectHeight := min(region.Height, height)
	right := width - region.OffsetX
	bottom := height - region.OffsetY
	left := max(0, right-rectWidth)
	top := max(0, bottom-rectHeight)
	return image.Rectangle{
		Min: image.Point{X: left, Y: top},
		Max: image.Point{X: right, Y: bottom},
	}
}

// Generate returns a width×height mask with the closed rectangle
// [Min, Max] of Rect set to Remove and everything else set to Keep.
// Pixels of the rectangle that fall outside the image are dropped.
func Generate(width, height int, region domain.WatermarkRegion) *image.Gray {
	m := image.NewGray(image.Rect(0, 0, width, height))
	r := Rect(width, height, region)

	// closed rectangle: include the right and bottom edges
	x0, y0 := r.Min.X, r.Min.Y
	x1, y1 := min(r.Max.X, width-1), min(r.Max.Y, height-1)
	if x1 < x0 || y1 < y0 {
		return m
	}

	for y := y0; y <= y1; y++ {
		row := m.Pix[y*m.Stride : y*m.Stride+width]
		for x := x0; x <= x1; x++ {
			row[x] = Remove
		}
	}
	return m
}

// Covered reports how many pixels of m are marked for removal.
func Covered(m *image.Gray) int {
	n := 0
	for _, v := range m.Pix {
		if v == Remove {
			n++
		}
	}
	return n
}
