// Package fetcher downloads source images over HTTP(S) or from S3 compatible
// object storage and decodes them into RGB bitmaps.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/wb-go/wbf/zlog"

	"github.com/yokitheyo/watermarkremover/internal/config"
	"github.com/yokitheyo/watermarkremover/internal/infrastructure/processor"
)

const DefaultTimeout = 10 * time.Second

var (
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
	ErrTooLarge          = errors.New("image exceeds maximum allowed size")
)

type Fetcher struct {
	http     *httpSource
	s3       *s3Source
	timeout  time.Duration
	maxBytes int64
	schemes  []string
}

func New(cfg *config.FetchConfig, storageCfg *config.StorageConfig) (*Fetcher, error) {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxBytes := int64(cfg.MaxImageSizeMB) * 1024 * 1024
	if maxBytes <= 0 {
		maxBytes = 20 * 1024 * 1024
	}
	schemes := cfg.AllowedSchemes
	if len(schemes) == 0 {
		schemes = []string{"http", "https"}
	}

	f := &Fetcher{
		http:     newHTTPSource(cfg.UserAgent),
		timeout:  timeout,
		maxBytes: maxBytes,
		schemes:  schemes,
	}

	if storageCfg != nil && storageCfg.S3Enabled() {
		src, err := newS3Source(storageCfg)
		if err != nil {
			return nil, err
		}
		f.s3 = src
	}

	zlog.Logger.Info().
		Dur("timeout", timeout).
		Int64("max_bytes", maxBytes).
		Strs("schemes", schemes).
		Bool("s3", f.s3 != nil).
		Msg("image fetcher initialized")

	return f, nil
}

// Supports reports whether rawURL uses a scheme this fetcher can download.
func (f *Fetcher) Supports(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return f.supportsScheme(strings.ToLower(u.Scheme))
}

func (f *Fetcher) supportsScheme(scheme string) bool {
	if !slices.Contains(f.schemes, scheme) {
		return false
	}
	if scheme == "s3" {
		return f.s3 != nil
	}
	return true
}

// Fetch downloads rawURL and decodes it. Each call has its own timeout.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (image.Image, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if !f.supportsScheme(scheme) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	var body io.ReadCloser
	switch scheme {
	case "s3":
		body, err = f.s3.open(ctx, u)
	default:
		body, err = f.http.open(ctx, u)
	}
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := readLimited(body, f.maxBytes)
	if err != nil {
		return nil, err
	}

	img, err := processor.DecodeBytes(data)
	if err != nil {
		return nil, err
	}

	zlog.Logger.Debug().
		Str("url", rawURL).
		Int("bytes", len(data)).
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Dur("duration", time.Since(start)).
		Msg("image downloaded")

	return img, nil
}

func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, maxBytes)
	}
	return data, nil
}

// objectReader narrows *minio.Object for tests.
type objectReader interface {
	io.ReadCloser
	Stat() (minio.ObjectInfo, error)
}
