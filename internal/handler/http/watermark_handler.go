package http

import (
	"errors"
	"fmt"
	"image"
	"net/http"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/yokitheyo/watermarkremover/internal/domain"
	"github.com/yokitheyo/watermarkremover/internal/dto"
	"github.com/yokitheyo/watermarkremover/internal/infrastructure/encoder"
)

type Options struct {
	DefaultDevice  string
	Devices        []string
	DefaultRegion  domain.WatermarkRegion
	MaxRequestSize int64
	// SupportsURL reports whether a url can be fetched at all.
	SupportsURL func(string) bool
}

type WatermarkHandler struct {
	service domain.WatermarkService
	opts    Options
}

func NewWatermarkHandler(service domain.WatermarkService, opts Options) *WatermarkHandler {
	if opts.DefaultRegion == (domain.WatermarkRegion{}) {
		opts.DefaultRegion = domain.DefaultRegion
	}
	return &WatermarkHandler{
		service: service,
		opts:    opts,
	}
}

func (h *WatermarkHandler) RegisterRoutes(engine *ginext.Engine) {
	engine.GET("/healthz", h.Health)
	engine.POST("/v1/remove-watermark", h.RemoveWatermark)
}

// Health GET /healthz
func (h *WatermarkHandler) Health(c *ginext.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{Status: "ok"})
}

// RemoveWatermark POST /v1/remove-watermark
func (h *WatermarkHandler) RemoveWatermark(c *ginext.Context) {
	if h.opts.MaxRequestSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxRequestSize)
	}

	var req dto.RemoveWatermarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	urls := req.URLs()
	if len(urls) == 0 {
		validationFailed(c, &domain.ValidationError{Field: "images", Reason: "at least one image url is required"})
		return
	}
	if h.opts.SupportsURL != nil {
		for _, u := range urls {
			if !h.opts.SupportsURL(u) {
				validationFailed(c, &domain.ValidationError{Field: "images", Reason: fmt.Sprintf("unsupported url %s", u)})
				return
			}
		}
	}

	region := req.Region(h.opts.DefaultRegion)
	if err := region.Validate(); err != nil {
		validationFailed(c, err)
		return
	}

	device, err := h.device(req.Device)
	if err != nil {
		validationFailed(c, err)
		return
	}

	images, err := h.service.RemoveWatermarks(c.Request.Context(), urls, region, device)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	if req.Format() == domain.FormatFile {
		h.writeFile(c, images)
		return
	}

	encoded, err := encoder.Base64All(images)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to encode images")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "encode_failed",
			Message: "Failed to encode cleaned images",
		})
		return
	}
	c.JSON(http.StatusOK, dto.NewRemoveWatermarkResponse(urls, encoded))
}

func (h *WatermarkHandler) device(requested string) (string, error) {
	device := strings.ToLower(strings.TrimSpace(requested))
	if device == "" {
		device = h.opts.DefaultDevice
	}
	if len(h.opts.Devices) > 0 && !slices.Contains(h.opts.Devices, device) {
		return "", &domain.ValidationError{
			Field:  "device",
			Reason: fmt.Sprintf("must be one of %s, got %q", strings.Join(h.opts.Devices, ", "), device),
		}
	}
	return device, nil
}

func (h *WatermarkHandler) writeFile(c *ginext.Context, images []image.Image) {
	file, err := encoder.ToFile(images)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to build response file")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "encode_failed",
			Message: "Failed to encode cleaned images",
		})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", file.Name))
	c.Data(http.StatusOK, file.ContentType, file.Data)

	zlog.Logger.Info().
		Str("filename", file.Name).
		Int("images", len(images)).
		Int("bytes_written", len(file.Data)).
		Msg("cleaned file sent")
}

func (h *WatermarkHandler) bindError(c *ginext.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{
			Error:   "request_too_large",
			Message: fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit),
		})
		return
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, describeFieldError(fe))
		}
		zlog.Logger.Warn().Strs("details", details).Msg("request validation failed")
		c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{
			Error:   "validation_error",
			Message: "Request validation failed",
			Details: details,
		})
		return
	}

	zlog.Logger.Warn().Err(err).Msg("failed to parse request")
	c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{
		Error:   "validation_error",
		Message: err.Error(),
	})
}

func (h *WatermarkHandler) serviceError(c *ginext.Context, err error) {
	if errors.Is(err, domain.ErrValidation) {
		validationFailed(c, err)
		return
	}

	var removal *domain.RemovalError
	if errors.As(err, &removal) {
		code := "inpaint_failed"
		switch {
		case errors.Is(err, domain.ErrDownload):
			code = "download_failed"
		case errors.Is(err, domain.ErrModelUnavailable):
			code = "model_unavailable"
		}
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   code,
			Message: removal.Error(),
		})
		return
	}

	zlog.Logger.Error().Err(err).Msg("watermark removal failed")
	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
		Error:   "server_error",
		Message: "Failed to process images",
	})
}

func validationFailed(c *ginext.Context, err error) {
	zlog.Logger.Warn().Err(err).Msg("request validation failed")
	c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{
		Error:   "validation_error",
		Message: err.Error(),
	})
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid url, got %q", field, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gt", "gte":
		return fmt.Sprintf("%s must be %s %s", field, fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
