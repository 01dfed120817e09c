package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yokitheyo/watermarkremover/internal/domain"
)

func TestRemoveWatermarkRequest_Decode(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		urls   []string
		region domain.WatermarkRegion
		format domain.ResponseFormat
	}{
		{
			name:   "single url",
			body:   `{"images":"https://example.com/a.png"}`,
			urls:   []string{"https://example.com/a.png"},
			region: domain.DefaultRegion,
			format: domain.FormatBase64,
		},
		{
			name:   "list with watermark",
			body:   `{"images":["https://e.com/a.png"," https://e.com/b.png "],"watermark":{"width":50,"height":20,"offset_x":5,"offset_y":3},"response_format":"file"}`,
			urls:   []string{"https://e.com/a.png", "https://e.com/b.png"},
			region: domain.WatermarkRegion{Width: 50, Height: 20, OffsetX: 5, OffsetY: 3},
			format: domain.FormatFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req RemoveWatermarkRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			assert.Equal(t, tt.urls, req.URLs())
			assert.Equal(t, tt.region, req.Region(domain.DefaultRegion))
			assert.Equal(t, tt.format, req.Format())
		})
	}
}

func TestImageList_RejectsOtherTypes(t *testing.T) {
	var req RemoveWatermarkRequest
	err := json.Unmarshal([]byte(`{"images":42}`), &req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "images must be a url or a list of urls")
}
