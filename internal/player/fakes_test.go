package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/depeter/reelplayer/internal/media"
)

// fakeClock fires callbacks only when advanced.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Duration
	pending []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Stopper {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.pending = append(c.pending, t)
	return t
}

// Advance moves time forward, firing due callbacks in order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()
	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.pending {
			if t.stopped || t.fired || t.at > target {
				continue
			}
			if next == nil || t.at < next.at {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.at
		next.fired = true
		c.mu.Unlock()
		next.f()
	}
}

// fakeElement records commands and emits events on demand.
type fakeElement struct {
	mu          sync.Mutex
	currentTime float64
	duration    float64
	volume      float64
	rate        float64
	paused      bool
	buffered    []media.TimeRange
	tracks      []media.TrackMode
	nativeHLS   bool
	src         string
	playErr     error

	seeks  []float64
	plays  int
	pauses int

	listener func(media.Event)
}

func newFakeElement() *fakeElement {
	return &fakeElement{volume: 1, rate: 1, paused: true}
}

func (e *fakeElement) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentTime
}

func (e *fakeElement) SetCurrentTime(s float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.currentTime = s
	e.seeks = append(e.seeks, s)
}

func (e *fakeElement) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

func (e *fakeElement) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

func (e *fakeElement) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = v
}

func (e *fakeElement) PlaybackRate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rate
}

func (e *fakeElement) SetPlaybackRate(r float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rate = r
}

func (e *fakeElement) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

func (e *fakeElement) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.plays++
	if e.playErr != nil {
		return e.playErr
	}
	e.paused = false
	return nil
}

func (e *fakeElement) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pauses++
	e.paused = true
	return nil
}

func (e *fakeElement) Buffered() []media.TimeRange {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]media.TimeRange(nil), e.buffered...)
}

func (e *fakeElement) TextTracks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tracks)
}

func (e *fakeElement) SetTextTrackMode(i int, mode media.TrackMode) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.tracks) {
		return errors.New("no such track")
	}
	e.tracks[i] = mode
	return nil
}

func (e *fakeElement) CanPlayType(mime string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return mime == media.MimeHLS && e.nativeHLS
}

func (e *fakeElement) SetSource(url string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.src = url
	return nil
}

func (e *fakeElement) Subscribe(fn func(media.Event)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.listener = nil
	}
}

func (e *fakeElement) setTimes(current, duration float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.currentTime, e.duration = current, duration
}

func (e *fakeElement) emit(t media.EventType) {
	e.mu.Lock()
	fn := e.listener
	e.mu.Unlock()
	if fn != nil {
		fn(media.Event{Type: t})
	}
}

func (e *fakeElement) seekLog() []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]float64(nil), e.seeks...)
}

func (e *fakeElement) trackModes() []media.TrackMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]media.TrackMode(nil), e.tracks...)
}

// fakeDecoder lets tests drive manifest and error callbacks. It keeps calling
// back after Destroy so the player's own guard is exercised.
type fakeDecoder struct {
	mu         sync.Mutex
	src        string
	attached   media.Element
	levels     []media.Level
	level      int
	pinned     int
	destroyed  bool
	recoveries int

	onManifest func([]media.Level)
	onError    func(media.DecoderError)
}

func (d *fakeDecoder) LoadSource(url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.src = url
}

func (d *fakeDecoder) AttachMedia(el media.Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attached = el
}

func (d *fakeDecoder) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyed = true
}

func (d *fakeDecoder) Levels() []media.Level {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.levels
}

func (d *fakeDecoder) CurrentLevel() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.level
}

func (d *fakeDecoder) SetCurrentLevel(i int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pinned = i
}

func (d *fakeDecoder) RecoverMediaError() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recoveries++
}

func (d *fakeDecoder) OnManifestParsed(fn func([]media.Level)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onManifest = fn
}

func (d *fakeDecoder) OnError(fn func(media.DecoderError)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onError = fn
}

func (d *fakeDecoder) parse(levels ...media.Level) {
	d.mu.Lock()
	d.levels = levels
	d.level = 0
	fn := d.onManifest
	d.mu.Unlock()
	fn(levels)
}

func (d *fakeDecoder) fail(t media.ErrorType, fatal bool) {
	d.mu.Lock()
	fn := d.onError
	d.mu.Unlock()
	fn(media.DecoderError{Type: t, Fatal: fatal, Details: "test", Err: errors.New("boom")})
}

func (d *fakeDecoder) isDestroyed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.destroyed
}

type fakeFactory struct {
	mu          sync.Mutex
	unsupported bool
	decoders    []*fakeDecoder
}

func (f *fakeFactory) Supported() bool { return !f.unsupported }

func (f *fakeFactory) New() media.Decoder {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := &fakeDecoder{level: -1, pinned: -1}
	f.decoders = append(f.decoders, d)
	return d
}

func (f *fakeFactory) last() *fakeDecoder {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.decoders) == 0 {
		return nil
	}
	return f.decoders[len(f.decoders)-1]
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.decoders)
}

type fakeFullscreen struct {
	mu       sync.Mutex
	active   bool
	requests int
	listener func(bool)
}

func (f *fakeFullscreen) Enabled() bool { return true }

func (f *fakeFullscreen) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeFullscreen) set(active bool) error {
	f.mu.Lock()
	f.requests++
	f.active = active
	fn := f.listener
	f.mu.Unlock()
	if fn != nil {
		fn(active)
	}
	return nil
}

func (f *fakeFullscreen) Request(context.Context) error { return f.set(true) }
func (f *fakeFullscreen) Exit(context.Context) error    { return f.set(false) }

func (f *fakeFullscreen) OnChange(fn func(bool)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listener = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.listener = nil
	}
}

// fakePiP reports changes through the element like a browser would.
type fakePiP struct {
	el     *fakeElement
	mu     sync.Mutex
	active bool
}

func (f *fakePiP) Supported() bool { return true }

func (f *fakePiP) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakePiP) Request(context.Context) error {
	f.mu.Lock()
	f.active = true
	f.mu.Unlock()
	f.el.emit(media.EventEnterPictureInPicture)
	return nil
}

func (f *fakePiP) Exit(context.Context) error {
	f.mu.Lock()
	f.active = false
	f.mu.Unlock()
	f.el.emit(media.EventLeavePictureInPicture)
	return nil
}
