package domain

import (
	"fmt"
	"image"
)

// WatermarkRegion describes a rectangle anchored to the bottom-right corner
// of an image. Offsets are measured from the right and bottom edges.
type WatermarkRegion struct {
	Width   int `json:"width"`
	Height  int `json:"height"`
	OffsetX int `json:"offset_x"`
	OffsetY int `json:"offset_y"`
}

var DefaultRegion = WatermarkRegion{Width: 120, Height: 120}

func (r WatermarkRegion) Validate() error {
	if r.Width <= 0 {
		return &ValidationError{Field: "watermark.width", Reason: fmt.Sprintf("must be positive, got %d", r.Width)}
	}
	if r.Height <= 0 {
		return &ValidationError{Field: "watermark.height", Reason: fmt.Sprintf("must be positive, got %d", r.Height)}
	}
	if r.OffsetX < 0 {
		return &ValidationError{Field: "watermark.offset_x", Reason: fmt.Sprintf("must be non-negative, got %d", r.OffsetX)}
	}
	if r.OffsetY < 0 {
		return &ValidationError{Field: "watermark.offset_y", Reason: fmt.Sprintf("must be non-negative, got %d", r.OffsetY)}
	}
	return nil
}

// Result pairs a source URL with its cleaned image. Err is set instead of
// Image when the pipeline for URL failed.
type Result struct {
	URL   string
	Image image.Image
	Err   error
}

type ResponseFormat string

const (
	FormatBase64 ResponseFormat = "base64"
	FormatFile   ResponseFormat = "file"
)
