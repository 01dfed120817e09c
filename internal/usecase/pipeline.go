package usecase

import (
	"context"
	"image"
	"time"

	"github.com/wb-go/wbf/zlog"

	"github.com/yokitheyo/watermarkremover/internal/domain"
	"github.com/yokitheyo/watermarkremover/internal/infrastructure/processor"
	"github.com/yokitheyo/watermarkremover/internal/mask"
	"github.com/yokitheyo/watermarkremover/internal/worker"
)

// Dispatcher runs blocking work away from the calling goroutine and waits
// for its result.
type Dispatcher interface {
	Submit(ctx context.Context, task worker.Task) (image.Image, error)
}

// Pipeline cleans a single image: fetch, mask, inpaint.
type Pipeline struct {
	fetcher    domain.ImageFetcher
	dispatcher Dispatcher
}

func NewPipeline(fetcher domain.ImageFetcher, dispatcher Dispatcher) *Pipeline {
	return &Pipeline{
		fetcher:    fetcher,
		dispatcher: dispatcher,
	}
}

// Process returns the cleaned image for url. Every failure is returned as a
// *domain.RemovalError carrying url.
func (p *Pipeline) Process(ctx context.Context, url string, region domain.WatermarkRegion, engine domain.Inpainter) (image.Image, error) {
	start := time.Now()

	src, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("url", url).Msg("failed to fetch image")
		return nil, domain.NewDownloadError(url, err)
	}

	img := processor.ToRGB(src)
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	m := mask.Generate(w, h, region)

	zlog.Logger.Debug().
		Str("url", url).
		Int("width", w).
		Int("height", h).
		Int("masked_pixels", mask.Covered(m)).
		Msg("image fetched, dispatching inpaint")

	out, err := p.dispatcher.Submit(ctx, func() (image.Image, error) {
		return engine.Inpaint(ctx, img, m)
	})
	if err != nil {
		zlog.Logger.Error().Err(err).Str("url", url).Msg("failed to inpaint image")
		return nil, domain.NewInpaintError(url, err)
	}

	zlog.Logger.Info().
		Str("url", url).
		Int("width", w).
		Int("height", h).
		Dur("duration", time.Since(start)).
		Msg("watermark removed")

	return out, nil
}
