package dto

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yokitheyo/watermarkremover/internal/domain"
)

// ImageList accepts either a single URL string or a list of URLs.
type ImageList []string

func (l *ImageList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = ImageList{strings.TrimSpace(single)}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("images must be a url or a list of urls")
	}
	for i := range many {
		many[i] = strings.TrimSpace(many[i])
	}
	*l = many
	return nil
}

type WatermarkRequest struct {
	Width   int `json:"width" binding:"gt=0"`
	Height  int `json:"height" binding:"gt=0"`
	OffsetX int `json:"offset_x" binding:"gte=0"`
	OffsetY int `json:"offset_y" binding:"gte=0"`
}

type RemoveWatermarkRequest struct {
	Images         ImageList         `json:"images" binding:"required,min=1,dive,required,url"`
	Watermark      *WatermarkRequest `json:"watermark"`
	Device         string            `json:"device"`
	ResponseFormat string            `json:"response_format" binding:"omitempty,oneof=base64 file"`
}

// URLs returns the trimmed image urls in request order.
func (r *RemoveWatermarkRequest) URLs() []string {
	urls := make([]string, 0, len(r.Images))
	for _, u := range r.Images {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// Region returns the requested watermark region or def when none was sent.
func (r *RemoveWatermarkRequest) Region(def domain.WatermarkRegion) domain.WatermarkRegion {
	if r.Watermark == nil {
		return def
	}
	return domain.WatermarkRegion{
		Width:   r.Watermark.Width,
		Height:  r.Watermark.Height,
		OffsetX: r.Watermark.OffsetX,
		OffsetY: r.Watermark.OffsetY,
	}
}

func (r *RemoveWatermarkRequest) Format() domain.ResponseFormat {
	if r.ResponseFormat == "" {
		return domain.FormatBase64
	}
	return domain.ResponseFormat(r.ResponseFormat)
}
