package inpaint

import (
	"context"
	"fmt"
	"image"
	"math"
)

const DeviceCPU = "cpu"

// DiffusionModel fills masked pixels by repeatedly averaging each one with
// its four neighbours until the hole blends into its surroundings. It needs
// no weights and runs on the CPU only.
type DiffusionModel struct {
	iterations int
}

func NewBuiltinFactory(iterations int) Factory {
	return func(_ context.Context, device string) (Model, error) {
		if device != DeviceCPU {
			return nil, fmt.Errorf("%w: builtin backend runs on %s only, got %q", ErrUnsupportedDevice, DeviceCPU, device)
		}
		if iterations <= 0 {
			iterations = 200
		}
		return &DiffusionModel{iterations: iterations}, nil
	}
}

func (m *DiffusionModel) ConcurrentSafe() bool { return true }

func (m *DiffusionModel) Close() error { return nil }

func (m *DiffusionModel) Inpaint(ctx context.Context, img *image.NRGBA, mask *image.Gray) (image.Image, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+w*4], img.Pix[y*img.Stride:y*img.Stride+w*4])
	}

	holes := make([]int, 0)
	inHole := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if mask.Pix[y*mask.Stride+x] != 0 {
				holes = append(holes, y*w+x)
				inHole[y*w+x] = true
			}
		}
	}
	if len(holes) == 0 || len(holes) == w*h {
		return out, nil
	}

	// float working copy of the three colour channels
	px := make([]float32, w*h*3)
	var sum [3]float64
	known := 0
	for i := 0; i < w*h; i++ {
		o := (i/w)*out.Stride + (i%w)*4
		for c := 0; c < 3; c++ {
			px[i*3+c] = float32(out.Pix[o+c])
		}
		if !inHole[i] {
			for c := 0; c < 3; c++ {
				sum[c] += float64(out.Pix[o+c])
			}
			known++
		}
	}
	for _, i := range holes {
		for c := 0; c < 3; c++ {
			px[i*3+c] = float32(sum[c] / float64(known))
		}
	}

	for it := 0; it < m.iterations; it++ {
		if it%16 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for _, i := range holes {
			x, y := i%w, i/w
			var acc [3]float32
			n := float32(0)
			if x > 0 {
				addPixel(&acc, px, i-1)
				n++
			}
			if x < w-1 {
				addPixel(&acc, px, i+1)
				n++
			}
			if y > 0 {
				addPixel(&acc, px, i-w)
				n++
			}
			if y < h-1 {
				addPixel(&acc, px, i+w)
				n++
			}
			for c := 0; c < 3; c++ {
				px[i*3+c] = acc[c] / n
			}
		}
	}

	for _, i := range holes {
		o := (i/w)*out.Stride + (i%w)*4
		for c := 0; c < 3; c++ {
			out.Pix[o+c] = uint8(math.Round(float64(min(max(px[i*3+c], 0), 255))))
		}
		out.Pix[o+3] = 0xff
	}
	return out, nil
}

func addPixel(acc *[3]float32, px []float32, i int) {
	acc[0] += px[i*3]
	acc[1] += px[i*3+1]
	acc[2] += px[i*3+2]
}
