package inpaint

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yokitheyo/watermarkremover/internal/domain"
	"github.com/yokitheyo/watermarkremover/internal/infrastructure/processor"
)

func newInferenceServer(t *testing.T, healthy bool, inferStatus int) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var inferCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if !healthy || r.URL.Query().Get("device") != "cpu" {
			http.Error(w, "device unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/inpaint", func(w http.ResponseWriter, r *http.Request) {
		inferCalls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("X-Internal-Token"))
		assert.Equal(t, "cpu", r.URL.Query().Get("device"))

		if inferStatus != http.StatusOK {
			http.Error(w, "CUDA out of memory", inferStatus)
			return
		}

		imgFile, _, err := r.FormFile("image")
		require.NoError(t, err)
		defer imgFile.Close()
		img, err := png.Decode(imgFile)
		require.NoError(t, err)

		maskFile, _, err := r.FormFile("mask")
		require.NoError(t, err)
		defer maskFile.Close()
		m, err := png.Decode(maskFile)
		require.NoError(t, err)
		assert.Equal(t, img.Bounds(), m.Bounds())

		out := image.NewNRGBA(img.Bounds())
		for i := range out.Pix {
			out.Pix[i] = 0x40
		}
		w.Header().Set("Content-Type", "image/png")
		require.NoError(t, processor.EncodePNG(w, out))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &inferCalls
}

func TestRemoteModel_Inpaint(t *testing.T) {
	t.Parallel()

	server, calls := newInferenceServer(t, true, http.StatusOK)
	factory := NewRemoteFactory(server.URL, 5*time.Second, "secret")

	model, err := factory(context.Background(), "cpu")
	require.NoError(t, err)
	defer model.Close()

	img, m := testImage(6, 4)
	out, err := model.Inpaint(context.Background(), img, m)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 6, 4), out.Bounds())
	assert.Equal(t, color.NRGBA{R: 0x40, G: 0x40, B: 0x40, A: 0xff}, out.(*image.NRGBA).NRGBAAt(1, 1))
	assert.Equal(t, int32(1), calls.Load())
}

func TestRemoteModel_UnhealthyServerFailsConstruction(t *testing.T) {
	t.Parallel()

	server, _ := newInferenceServer(t, false, http.StatusOK)
	factory := NewRemoteFactory(server.URL, 5*time.Second, "secret")

	_, err := factory(context.Background(), "cpu")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")

	e := NewEngine("cpu", factory, false)
	img, m := testImage(2, 2)
	_, err = e.Inpaint(context.Background(), img, m)
	assert.True(t, errors.Is(err, domain.ErrModelUnavailable))
}

func TestRemoteModel_InferenceFailure(t *testing.T) {
	t.Parallel()

	server, _ := newInferenceServer(t, true, http.StatusInternalServerError)
	model, err := NewRemoteFactory(server.URL, 5*time.Second, "secret")(context.Background(), "cpu")
	require.NoError(t, err)

	img, m := testImage(2, 2)
	_, err = model.Inpaint(context.Background(), img, m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500: CUDA out of memory")
}

func TestRemoteModel_UnreachableServer(t *testing.T) {
	t.Parallel()

	_, err := NewRemoteFactory("http://127.0.0.1:1", time.Second, "")(context.Background(), "cpu")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inference server unreachable")
}
