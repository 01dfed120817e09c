package inpaint

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/wb-go/wbf/zlog"

	"github.com/yokitheyo/watermarkremover/internal/helpers"
	"github.com/yokitheyo/watermarkremover/internal/infrastructure/processor"
)

// RemoteModel delegates inference to an HTTP inpainting server that hosts
// the network on the requested device.
type RemoteModel struct {
	client  *http.Client
	baseURL string
	device  string
	token   string
}

// NewRemoteFactory returns a factory whose models talk to the server at
// baseURL. Construction probes {baseURL}/health for the device, so an
// unreachable server or unavailable device fails initialisation.
func NewRemoteFactory(baseURL string, timeout time.Duration, token string) Factory {
	return func(ctx context.Context, device string) (Model, error) {
		m := &RemoteModel{
			client: &http.Client{
				Timeout: timeout,
				Transport: &http.Transport{
					Proxy:               http.ProxyFromEnvironment,
					MaxIdleConnsPerHost: 4,
					IdleConnTimeout:     90 * time.Second,
				},
			},
			baseURL: baseURL,
			device:  device,
			token:   token,
		}
		if err := m.CheckHealth(ctx); err != nil {
			_ = m.Close()
			return nil, err
		}
		return m, nil
	}
}

func (m *RemoteModel) endpoint(path string) (string, error) {
	u, err := url.JoinPath(m.baseURL, path)
	if err != nil {
		return "", fmt.Errorf("build %s url: %w", path, err)
	}
	return u + "?device=" + url.QueryEscape(m.device), nil
}

func (m *RemoteModel) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	endpoint, err := m.endpoint(path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if m.token != "" {
		req.Header.Set("X-Internal-Token", m.token)
	}
	return req, nil
}

// CheckHealth verifies that the server can serve the model's device.
func (m *RemoteModel) CheckHealth(ctx context.Context) error {
	req, err := m.newRequest(ctx, http.MethodGet, "health", nil)
	if err != nil {
		return err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("inference server unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("inference server unhealthy for device %s: status %d: %s", m.device, resp.StatusCode, helpers.Truncate(string(data), 200))
	}
	return nil
}

func (m *RemoteModel) Inpaint(ctx context.Context, img *image.NRGBA, mask *image.Gray) (image.Image, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writePNGPart(writer, "image", img); err != nil {
		return nil, err
	}
	if err := writePNGPart(writer, "mask", mask); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := m.newRequest(ctx, http.MethodPost, "inpaint", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("inference failed: status %d: %s", resp.StatusCode, helpers.Truncate(string(data), 300))
	}

	out, err := processor.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("inference response: %w", err)
	}

	zlog.Logger.Debug().
		Str("device", m.device).
		Int("width", out.Bounds().Dx()).
		Int("height", out.Bounds().Dy()).
		Dur("duration", time.Since(start)).
		Msg("remote inference completed")

	return out, nil
}

func (m *RemoteModel) Close() error {
	m.client.CloseIdleConnections()
	return nil
}

func writePNGPart(w *multipart.Writer, field string, img image.Image) error {
	part, err := w.CreateFormFile(field, field+".png")
	if err != nil {
		return fmt.Errorf("create form file %s: %w", field, err)
	}
	if err := processor.EncodePNG(part, img); err != nil {
		return fmt.Errorf("write form file %s: %w", field, err)
	}
	return nil
}
