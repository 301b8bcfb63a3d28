// Package hls is an adaptive streaming decoder for HLS manifests. It fetches
// the master playlist, exposes its variants as quality levels and hands the
// chosen variant to the media element.
package hls

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/grafov/m3u8"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/depeter/reelplayer/internal/media"
)

var httpClient = &http.Client{Timeout: 15 * time.Second}

// Factory creates decoders that share one HTTP client.
type Factory struct {
	Client *http.Client
	Log    *logrus.Entry
}

// Supported is always true: the decoder only needs network access.
func (f Factory) Supported() bool { return true }

func (f Factory) New() media.Decoder {
	return NewDecoder(f.Client, f.Log)
}

// Decoder implements media.Decoder.
type Decoder struct {
	client *http.Client
	log    *logrus.Entry
	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	src         string
	el          media.Element
	unsubscribe func()
	levels      []media.Level
	current     int
	pinned      int
	parsed      bool
	destroyed   bool

	onManifest func([]media.Level)
	onError    func(media.DecoderError)
}

// NewDecoder returns an idle decoder. A nil client uses a shared default.
func NewDecoder(client *http.Client, log *logrus.Entry) *Decoder {
	if client == nil {
		client = httpClient
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Decoder{
		client:  client,
		log:     log.WithField("component", "hls"),
		ctx:     ctx,
		cancel:  cancel,
		current: -1,
		pinned:  -1,
	}
}

func (d *Decoder) OnManifestParsed(fn func([]media.Level)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onManifest = fn
}

func (d *Decoder) OnError(fn func(media.DecoderError)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onError = fn
}

// LoadSource starts fetching the manifest in the background.
func (d *Decoder) LoadSource(src string) {
	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return
	}
	d.src = src
	d.mu.Unlock()
	go d.fetch(src)
}

// AttachMedia binds the element that plays the selected variant.
func (d *Decoder) AttachMedia(el media.Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return
	}
	if d.unsubscribe != nil {
		d.unsubscribe()
	}
	d.el = el
	d.unsubscribe = el.Subscribe(func(ev media.Event) {
		if ev.Type == media.EventError {
			d.emitError(media.DecoderError{
				Type:    media.ErrorMedia,
				Fatal:   true,
				Details: "mediaError",
				Err:     ev.Err,
			})
		}
	})
	if d.parsed {
		d.startLocked()
	}
}

func (d *Decoder) fetch(src string) {
	log := d.log.WithField("src", src)
	levels, err := d.loadManifest(src)
	if err != nil {
		log.WithError(err.Err).Warn("manifest failed")
		d.emitError(*err)
		return
	}

	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return
	}
	d.levels = levels
	d.parsed = true
	cb := d.onManifest
	d.mu.Unlock()

	log.WithField("levels", len(levels)).Debug("manifest parsed")
	if cb != nil {
		cb(slices.Clone(levels))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.destroyed && d.el != nil && d.current < 0 {
		d.startLocked()
	}
}

func (d *Decoder) loadManifest(src string) ([]media.Level, *media.DecoderError) {
	netErr := func(details string, err error) *media.DecoderError {
		return &media.DecoderError{Type: media.ErrorNetwork, Fatal: true, Details: details, Err: err}
	}

	base, err := url.Parse(src)
	if err != nil {
		return nil, netErr("manifestLoadError", fmt.Errorf("parse manifest url: %w", err))
	}
	req, err := http.NewRequestWithContext(d.ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, netErr("manifestLoadError", fmt.Errorf("build manifest request: %w", err))
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, netErr("manifestLoadError", fmt.Errorf("fetch manifest: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, netErr("manifestLoadError", fmt.Errorf("fetch manifest: status %d", resp.StatusCode))
	}

	playlist, listType, err := m3u8.DecodeFrom(resp.Body, false)
	if err != nil {
		return nil, &media.DecoderError{
			Type:    media.ErrorOther,
			Fatal:   true,
			Details: "manifestParsingError",
			Err:     fmt.Errorf("decode manifest: %w", err),
		}
	}

	if listType != m3u8.MASTER {
		return []media.Level{{URL: src}}, nil
	}
	master, ok := playlist.(*m3u8.MasterPlaylist)
	if !ok || len(master.Variants) == 0 {
		return nil, &media.DecoderError{
			Type:    media.ErrorOther,
			Fatal:   true,
			Details: "manifestParsingError",
			Err:     fmt.Errorf("master playlist has no variants"),
		}
	}
	variants := lo.Filter(master.Variants, func(v *m3u8.Variant, _ int) bool {
		return v != nil && !v.Iframe
	})
	return lo.Map(variants, func(v *m3u8.Variant, _ int) media.Level {
		return variantLevel(base, v)
	}), nil
}

func variantLevel(base *url.URL, v *m3u8.Variant) media.Level {
	l := media.Level{
		Bandwidth: int(v.Bandwidth),
		Codecs:    v.Codecs,
		URL:       v.URI,
	}
	if ref, err := url.Parse(v.URI); err == nil {
		l.URL = base.ResolveReference(ref).String()
	}
	var w, h int
	if _, err := fmt.Sscanf(v.Resolution, "%dx%d", &w, &h); err == nil {
		l.Width, l.Height = w, h
	}
	return l
}

// pick returns the pinned level, or the highest bandwidth one in auto mode.
func (d *Decoder) pick() int {
	if d.pinned >= 0 && d.pinned < len(d.levels) {
		return d.pinned
	}
	best := 0
	for i, l := range d.levels {
		if l.Bandwidth > d.levels[best].Bandwidth {
			best = i
		}
	}
	return best
}

func (d *Decoder) startLocked() {
	d.switchLocked(d.pick(), 0)
}

func (d *Decoder) switchLocked(index int, position float64) {
	if d.el == nil || index < 0 || index >= len(d.levels) {
		return
	}
	d.current = index
	level := d.levels[index]
	log := d.log.WithFields(logrus.Fields{"level": index, "height": level.Height})
	if err := d.el.SetSource(level.URL); err != nil {
		log.WithError(err).Warn("attach variant")
		e := media.DecoderError{Type: media.ErrorNetwork, Fatal: true, Details: "levelLoadError", Err: err}
		go d.emitError(e)
		return
	}
	if position > 0 {
		d.el.SetCurrentTime(position)
	}
	log.Debug("variant attached")
}

func (d *Decoder) emitError(e media.DecoderError) {
	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return
	}
	cb := d.onError
	d.mu.Unlock()
	if cb != nil {
		cb(e)
	}
}

func (d *Decoder) Levels() []media.Level {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.levels)
}

func (d *Decoder) CurrentLevel() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// SetCurrentLevel pins index, or returns to automatic selection with -1.
// Switching keeps the playback position.
func (d *Decoder) SetCurrentLevel(index int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed || index < -1 || (d.parsed && index >= len(d.levels)) {
		return
	}
	d.pinned = index
	if !d.parsed || d.el == nil {
		return
	}
	if next := d.pick(); next != d.current {
		d.switchLocked(next, d.el.CurrentTime())
	}
}

// RecoverMediaError reattaches the current variant at the last position.
func (d *Decoder) RecoverMediaError() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed || d.el == nil || d.current < 0 {
		return
	}
	d.log.Info("recovering from media error")
	d.switchLocked(d.current, d.el.CurrentTime())
}

// Destroy stops pending requests and detaches from the element.
func (d *Decoder) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return
	}
	d.destroyed = true
	d.cancel()
	if d.unsubscribe != nil {
		d.unsubscribe()
		d.unsubscribe = nil
	}
	d.el = nil
	d.onManifest = nil
	d.onError = nil
}
