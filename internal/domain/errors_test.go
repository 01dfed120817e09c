package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemovalError(t *testing.T) {
	cause := errors.New("connection refused")

	err := error(NewDownloadError("http://x/a.png", cause))
	assert.Equal(t, "failed to download image from http://x/a.png: connection refused", err.Error())
	assert.ErrorIs(t, err, ErrDownload)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrInpaint)

	err = NewInpaintError("http://x/a.png", fmt.Errorf("%w: device cuda: no driver", ErrModelUnavailable))
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.NotErrorIs(t, err, ErrInpaint)

	err = fmt.Errorf("batch: %w", NewInpaintError("http://x/b.png", cause))
	var removal *RemovalError
	require.True(t, errors.As(err, &removal))
	assert.Equal(t, "http://x/b.png", removal.URL)
	assert.Equal(t, ErrInpaint, removal.Kind)
}

func TestWatermarkRegion_Validate(t *testing.T) {
	assert.NoError(t, DefaultRegion.Validate())
	assert.NoError(t, WatermarkRegion{Width: 1, Height: 1, OffsetX: 500}.Validate())

	err := WatermarkRegion{Width: 10, Height: 10, OffsetY: -1}.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "watermark.offset_y: must be non-negative, got -1", err.Error())

	assert.ErrorIs(t, WatermarkRegion{Height: 10}.Validate(), ErrValidation)
}
