package domain

import (
	"context"
	"image"
)

// ImageFetcher downloads and decodes a remote image. Failures are reported
// as plain errors; the pipeline wraps them into a RemovalError.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (image.Image, error)
}

// Inpainter regenerates the pixels of img selected by mask.
type Inpainter interface {
	Inpaint(ctx context.Context, img image.Image, mask *image.Gray) (image.Image, error)
}

// EngineProvider returns the shared inpainter for a compute device.
type EngineProvider interface {
	Engine(device string) (Inpainter, error)
}

type WatermarkService interface {
	RemoveWatermarks(ctx context.Context, urls []string, region WatermarkRegion, device string) ([]image.Image, error)
}
