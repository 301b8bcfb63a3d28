// Package cache keeps downloaded poster images on disk and in memory.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

// ImageCache provides disk + memory caching for images.
type ImageCache struct {
	fs       afero.Afero
	cacheDir string
	client   *http.Client
	log      *logrus.Entry
	memory   sync.Map // url -> image.Image
	loading  sync.Map // url -> *loadEntry
	sem      chan struct{}
}

type loadEntry struct {
	mu        sync.Mutex
	callbacks []func(image.Image)
	done      bool
	img       image.Image
}

// NewImageCache creates a cache rooted at cacheDir on fs. A nil client uses
// a shared one with a short timeout.
func NewImageCache(fs afero.Fs, cacheDir string, client *http.Client, log *logrus.Entry) (*ImageCache, error) {
	afs := afero.Afero{Fs: fs}
	if err := afs.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, err
	}
	if client == nil {
		client = httpClient
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &ImageCache{
		fs:       afs,
		cacheDir: cacheDir,
		client:   client,
		log:      log.WithField("component", "images"),
		sem:      make(chan struct{}, 4),
	}, nil
}

// Get returns a cached image if available, or nil.
func (ic *ImageCache) Get(url string) image.Image {
	if v, ok := ic.memory.Load(url); ok {
		return v.(image.Image)
	}
	return nil
}

// LoadAsync loads url in the background and calls callback with the image.
// Concurrent requests for one url share a download. Failures are logged and
// the callback is not called.
func (ic *ImageCache) LoadAsync(ctx context.Context, url string, callback func(image.Image)) {
	if img := ic.Get(url); img != nil {
		callback(img)
		return
	}

	entry := &loadEntry{callbacks: []func(image.Image){callback}}
	if existing, loaded := ic.loading.LoadOrStore(url, entry); loaded {
		e := existing.(*loadEntry)
		e.mu.Lock()
		if !e.done {
			e.callbacks = append(e.callbacks, callback)
			e.mu.Unlock()
			return
		}
		img := e.img
		e.mu.Unlock()
		if img != nil {
			callback(img)
		}
		return
	}

	go func() {
		var (
			img image.Image
			err error
		)
		select {
		case ic.sem <- struct{}{}:
			img, err = ic.Load(ctx, url)
			<-ic.sem
		case <-ctx.Done():
			err = ctx.Err()
		}

		entry.mu.Lock()
		entry.done = true
		entry.img = img
		cbs := entry.callbacks
		entry.callbacks = nil
		entry.mu.Unlock()
		ic.loading.Delete(url)

		if err != nil {
			ic.log.WithError(err).WithField("url", url).Warn("load image")
			return
		}
		for _, cb := range cbs {
			cb(img)
		}
	}()
}

// Load returns the image for url from memory, disk or the network.
func (ic *ImageCache) Load(ctx context.Context, url string) (image.Image, error) {
	if img := ic.Get(url); img != nil {
		return img, nil
	}
	img, err := ic.loadImage(ctx, url)
	if err != nil {
		return nil, err
	}
	ic.memory.Store(url, img)
	return img, nil
}

func (ic *ImageCache) loadImage(ctx context.Context, url string) (image.Image, error) {
	diskPath := ic.diskPath(url)

	if f, err := ic.fs.Open(diskPath); err == nil {
		img, _, err := image.Decode(f)
		f.Close()
		if err == nil {
			return img, nil
		}
		// corrupt, download again
		ic.fs.Remove(diskPath)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := ic.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download failed: %s", resp.Status)
	}

	if err := ic.fs.MkdirAll(filepath.Dir(diskPath), 0o755); err != nil {
		return nil, err
	}
	f, err := ic.fs.Create(diskPath)
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(io.TeeReader(resp.Body, f))
	f.Close()
	if err != nil {
		ic.fs.Remove(diskPath)
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	return img, nil
}

func (ic *ImageCache) diskPath(url string) string {
	h := sha256.Sum256([]byte(url))
	name := fmt.Sprintf("%x", h[:16])
	return filepath.Join(ic.cacheDir, name[:2], name)
}

// Clear drops the in-memory images.
func (ic *ImageCache) Clear() {
	ic.memory.Range(func(k, _ any) bool {
		ic.memory.Delete(k)
		return true
	})
}

func (ic *ImageCache) ClearDisk() error {
	return ic.fs.RemoveAll(ic.cacheDir)
}
