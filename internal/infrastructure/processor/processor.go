// Package processor holds the image codec used by the pipeline: decoding of
// downloaded bytes, conversion to an opaque RGB bitmap and PNG encoding.
package processor

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/wb-go/wbf/zlog"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decode reads an image in any registered format, honouring EXIF
// orientation, and returns it as an opaque RGB bitmap.
func Decode(r io.Reader) (*image.NRGBA, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	width, height := GetImageDimensions(img)
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("decoded image is empty")
	}
	zlog.Logger.Debug().
		Int("width", width).
		Int("height", height).
		Msg("image decoded")
	return ToRGB(img), nil
}

func DecodeBytes(data []byte) (*image.NRGBA, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image data")
	}
	return Decode(bytes.NewReader(data))
}

// ToRGB copies img into a zero-origin NRGBA bitmap with every alpha value
// forced to 255. Colour channels are kept as stored, so transparent pixels
// keep their underlying RGB value.
func ToRGB(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

// EncodePNG writes img as PNG. The output is deterministic for equal input.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func PNGBytes(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func GetImageDimensions(img image.Image) (width, height int) {
	bounds := img.Bounds()
	return bounds.Dx(), bounds.Dy()
}
