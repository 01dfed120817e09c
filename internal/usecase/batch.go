package usecase

import (
	"context"
	"image"
	"time"

	"github.com/wb-go/wbf/zlog"
	"golang.org/x/sync/errgroup"

	"github.com/yokitheyo/watermarkremover/internal/domain"
)

// WatermarkUsecase removes watermarks from a batch of images. A batch either
// succeeds as a whole or fails with the first pipeline error.
type WatermarkUsecase struct {
	pipeline *Pipeline
	engines  domain.EngineProvider
}

func NewWatermarkUsecase(pipeline *Pipeline, engines domain.EngineProvider) *WatermarkUsecase {
	return &WatermarkUsecase{
		pipeline: pipeline,
		engines:  engines,
	}
}

// ProcessAll runs one pipeline per url concurrently. Results are returned in
// the order of urls regardless of completion order. When any pipeline fails
// the remaining ones are cancelled and only the error is returned.
func (u *WatermarkUsecase) ProcessAll(ctx context.Context, urls []string, region domain.WatermarkRegion, engine domain.Inpainter) ([]domain.Result, error) {
	results := make([]domain.Result, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	for i, url := range urls {
		results[i].URL = url
		g.Go(func() error {
			img, err := u.pipeline.Process(gctx, url, region, engine)
			if err != nil {
				results[i].Err = err
				return err
			}
			results[i].Image = img
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (u *WatermarkUsecase) RemoveWatermarks(ctx context.Context, urls []string, region domain.WatermarkRegion, device string) ([]image.Image, error) {
	if len(urls) == 0 {
		return nil, &domain.ValidationError{Field: "images", Reason: "at least one image url is required"}
	}
	if err := region.Validate(); err != nil {
		return nil, err
	}

	engine, err := u.engines.Engine(device)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	results, err := u.ProcessAll(ctx, urls, region, engine)
	if err != nil {
		zlog.Logger.Error().
			Err(err).
			Int("images", len(urls)).
			Str("device", device).
			Msg("batch failed")
		return nil, err
	}

	images := make([]image.Image, len(results))
	for i, r := range results {
		images[i] = r.Image
	}

	zlog.Logger.Info().
		Int("images", len(urls)).
		Str("device", device).
		Dur("duration", time.Since(start)).
		Msg("batch completed")

	return images, nil
}
