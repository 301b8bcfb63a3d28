package cache

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func imageServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	body := pngBytes(t)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newCache(t *testing.T, fs afero.Fs) *ImageCache {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	ic, err := NewImageCache(fs, "/cache/images", nil, logrus.NewEntry(logger))
	require.NoError(t, err)
	return ic
}

func TestLoadUsesMemoryThenDisk(t *testing.T) {
	srv, hits := imageServer(t)
	fs := afero.NewMemMapFs()
	ic := newCache(t, fs)
	ctx := context.Background()

	img, err := ic.Load(ctx, srv.URL+"/poster.png")
	require.NoError(t, err)
	assert.Equal(t, 3, img.Bounds().Dx())

	_, err = ic.Load(ctx, srv.URL+"/poster.png")
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits.Load())
	assert.NotNil(t, ic.Get(srv.URL+"/poster.png"))

	files, err := afero.Glob(fs, "/cache/images/*/*")
	require.NoError(t, err)
	assert.Len(t, files, 1)

	fresh := newCache(t, fs)
	img, err = fresh.Load(ctx, srv.URL+"/poster.png")
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dy())
	assert.EqualValues(t, 1, hits.Load())

	ic.Clear()
	assert.Nil(t, ic.Get(srv.URL+"/poster.png"))
}

func TestLoadMissing(t *testing.T) {
	srv, _ := imageServer(t)
	ic := newCache(t, afero.NewMemMapFs())
	_, err := ic.Load(context.Background(), srv.URL+"/missing.png")
	assert.ErrorContains(t, err, "404")
	assert.Nil(t, ic.Get(srv.URL+"/missing.png"))
}

func TestLoadAsync(t *testing.T) {
	srv, _ := imageServer(t)
	ic := newCache(t, afero.NewMemMapFs())

	got := make(chan image.Image, 2)
	ic.LoadAsync(context.Background(), srv.URL+"/poster.png", func(img image.Image) { got <- img })
	ic.LoadAsync(context.Background(), srv.URL+"/poster.png", func(img image.Image) { got <- img })

	for i := 0; i < 2; i++ {
		select {
		case img := <-got:
			assert.Equal(t, 3, img.Bounds().Dx())
		case <-time.After(5 * time.Second):
			t.Fatal("callback not called")
		}
	}
}

func TestLoadAsyncCancelled(t *testing.T) {
	srv, _ := imageServer(t)
	ic := newCache(t, afero.NewMemMapFs())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := make(chan struct{}, 1)
	ic.LoadAsync(ctx, srv.URL+"/poster.png", func(image.Image) { called <- struct{}{} })
	assert.Never(t, func() bool { return len(called) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestLoadReplacesCorruptFile(t *testing.T) {
	srv, hits := imageServer(t)
	fs := afero.NewMemMapFs()
	ic := newCache(t, fs)
	url := srv.URL + "/poster.png"

	path := ic.diskPath(url)
	require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, afero.WriteFile(fs, path, []byte("not an image"), 0o644))

	img, err := ic.Load(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, 3, img.Bounds().Dx())
	assert.EqualValues(t, 1, hits.Load())

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, pngBytes(t), data)
}

func TestClearDisk(t *testing.T) {
	srv, _ := imageServer(t)
	fs := afero.NewMemMapFs()
	ic := newCache(t, fs)
	_, err := ic.Load(context.Background(), srv.URL+"/poster.png")
	require.NoError(t, err)

	require.NoError(t, ic.ClearDisk())
	ok, err := afero.DirExists(fs, "/cache/images")
	require.NoError(t, err)
	assert.False(t, ok)
}
