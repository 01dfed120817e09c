package fetcher

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yokitheyo/watermarkremover/internal/config"
)

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestFetcher(t *testing.T, cfg config.FetchConfig) *Fetcher {
	t.Helper()

	f, err := New(&cfg, nil)
	require.NoError(t, err)
	return f
}

func TestFetcher_Fetch(t *testing.T) {
	t.Parallel()

	img := pngBytes(t, 7, 5, color.NRGBA{R: 255, A: 255})

	mux := http.NewServeMux()
	mux.HandleFunc("/ok.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(img)
	})
	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ok.png", http.StatusFound)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such image", http.StatusNotFound)
	})
	mux.HandleFunc("/html", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>hello</html>"))
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	f := newTestFetcher(t, config.FetchConfig{TimeoutSec: 1, MaxImageSizeMB: 1})

	tests := []struct {
		name       string
		path       string
		wantErrMsg string
	}{
		{name: "success", path: "/ok.png"},
		{name: "follows redirects", path: "/redirect"},
		{name: "not found", path: "/missing", wantErrMsg: "unexpected status 404: no such image"},
		{name: "not an image", path: "/html", wantErrMsg: "decode image"},
		{name: "timeout", path: "/slow", wantErrMsg: "context deadline exceeded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := f.Fetch(context.Background(), server.URL+tt.path)
			if tt.wantErrMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 7, 5), got.Bounds())
			r, g, b, a := got.At(3, 3).RGBA()
			assert.Equal(t, []uint32{0xffff, 0, 0, 0xffff}, []uint32{r, g, b, a})
		})
	}
}

func TestFetcher_TooLarge(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 1024*1024+10))
	}))
	defer server.Close()

	f := newTestFetcher(t, config.FetchConfig{TimeoutSec: 5, MaxImageSizeMB: 1})
	_, err := f.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooLarge))
}

func TestFetcher_Schemes(t *testing.T) {
	t.Parallel()

	f := newTestFetcher(t, config.FetchConfig{AllowedSchemes: []string{"https", "s3"}})

	assert.True(t, f.Supports("https://example.com/a.png"))
	assert.False(t, f.Supports("http://example.com/a.png"))
	// s3 is listed but no storage is configured
	assert.False(t, f.Supports("s3://bucket/a.png"))

	_, err := f.Fetch(context.Background(), "ftp://example.com/a.png")
	assert.True(t, errors.Is(err, ErrUnsupportedScheme))
}

func TestFetcher_ContextCancelled(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	f := newTestFetcher(t, config.FetchConfig{TimeoutSec: 10})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := f.Fetch(ctx, server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context canceled")
}

type fakeObject struct {
	io.Reader
	statErr error
	closed  bool
}

func (o *fakeObject) Close() error {
	o.closed = true
	return nil
}

func (o *fakeObject) Stat() (minio.ObjectInfo, error) {
	return minio.ObjectInfo{}, o.statErr
}

func TestS3Source(t *testing.T) {
	t.Parallel()

	img := pngBytes(t, 3, 3, color.White)
	missing := &fakeObject{Reader: bytes.NewReader(nil), statErr: minio.ErrorResponse{Code: "NoSuchKey", Message: "missing"}}

	f := newTestFetcher(t, config.FetchConfig{AllowedSchemes: []string{"s3"}})
	f.s3 = &s3Source{
		getObject: func(ctx context.Context, bucket, key string) (objectReader, error) {
			if bucket == "images" && key == "cats/a.png" {
				return &fakeObject{Reader: bytes.NewReader(img)}, nil
			}
			return missing, nil
		},
	}

	got, err := f.Fetch(context.Background(), "s3://images/cats/a.png")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 3), got.Bounds())

	_, err = f.Fetch(context.Background(), "s3://images/dogs/b.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NoSuchKey")
	assert.True(t, missing.closed)
}

func TestParseS3URL(t *testing.T) {
	t.Parallel()

	u, _ := url.Parse("s3://bucket/path/to/key.jpg")
	bucket, key, err := parseS3URL(u)
	require.NoError(t, err)
	assert.Equal(t, "bucket", bucket)
	assert.Equal(t, "path/to/key.jpg", key)

	u, _ = url.Parse("s3://bucket")
	_, _, err = parseS3URL(u)
	assert.Error(t, err)
}
