package dto

type ImageResult struct {
	SourceURL          string `json:"source_url"`
	CleanedImageBase64 string `json:"cleaned_image_base64"`
}

type RemoveWatermarkResponse struct {
	Results []ImageResult `json:"results"`
}

func NewRemoveWatermarkResponse(urls, encoded []string) *RemoveWatermarkResponse {
	results := make([]ImageResult, len(urls))
	for i, u := range urls {
		results[i] = ImageResult{SourceURL: u, CleanedImageBase64: encoded[i]}
	}
	return &RemoveWatermarkResponse{Results: results}
}

type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message,omitempty"`
	Details []string `json:"details,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
