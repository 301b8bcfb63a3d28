// Package mpv implements the media element on top of libmpv.
package mpv

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"sync"

	libmpv "github.com/gen2brain/go-mpv"
	"github.com/sirupsen/logrus"

	"github.com/depeter/reelplayer/internal/config"
	"github.com/depeter/reelplayer/internal/media"
)

// OSD overlay id used for the player controls.
const controlsOverlay = 1

// Element wraps libmpv as a media.Element.
type Element struct {
	m       *libmpv.Mpv
	log     *logrus.Entry
	wid     int64
	done    chan struct{}
	release sync.Once

	mu          sync.Mutex
	state       playbackState
	volume      float64
	rate        float64
	pendingSeek float64
	subtitleIDs []string
	activeSub   int
	posterPath  string
	closed      bool

	subsMu  sync.Mutex
	nextSub int
	subs    map[int]func(media.Event)
	fsSubs  map[int]func(bool)
}

// New creates and initializes an mpv instance. wid embeds the video into an
// existing native window; zero lets mpv open its own.
func New(cfg *config.Config, wid int64, log *logrus.Entry) (*Element, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("component", "mpv")
	m := libmpv.New()

	for _, o := range initOptions(cfg, wid) {
		if err := m.SetOptionString(o.name, o.value); err != nil {
			log.WithError(err).WithField("option", o.name).Warn("mpv option rejected")
		}
	}

	if err := m.Initialize(); err != nil {
		return nil, fmt.Errorf("mpv init: %w", err)
	}

	e := &Element{
		m:           m,
		log:         log,
		wid:         wid,
		done:        make(chan struct{}),
		state:       newPlaybackState(),
		volume:      cfg.Playback.Volume,
		rate:        cfg.Playback.Speed,
		pendingSeek: -1,
		activeSub:   -1,
		subs:        make(map[int]func(media.Event)),
		fsSubs:      make(map[int]func(bool)),
	}

	observed := []struct {
		name   string
		format libmpv.Format
	}{
		{"time-pos", libmpv.FormatDouble},
		{"duration", libmpv.FormatDouble},
		{"demuxer-cache-time", libmpv.FormatDouble},
		{"pause", libmpv.FormatFlag},
		{"paused-for-cache", libmpv.FormatFlag},
		{"eof-reached", libmpv.FormatFlag},
		{"fullscreen", libmpv.FormatFlag},
		{"ontop", libmpv.FormatFlag},
	}
	for _, p := range observed {
		if err := m.ObserveProperty(0, p.name, p.format); err != nil {
			log.WithError(err).WithField("property", p.name).Warn("observe property")
		}
	}

	go e.eventLoop()
	return e, nil
}

func (e *Element) eventLoop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(e.done)
	for {
		ev := e.m.WaitEvent(1.0)
		if ev == nil {
			continue
		}

		switch ev.EventID {
		case libmpv.EventPropertyChange:
			if ev.Data == nil {
				continue
			}
			prop := ev.Property()
			e.mu.Lock()
			events, fsChanged := e.state.property(prop.Name, prop.Data)
			fullscreen := e.state.fullscreen
			e.mu.Unlock()
			for _, t := range events {
				e.emit(media.Event{Type: t})
			}
			if fsChanged {
				e.emitFullscreen(fullscreen)
			}

		case libmpv.EventFileLoaded:
			e.fileLoaded()
			e.emit(media.Event{Type: media.EventLoadedMetadata})

		case libmpv.EventEnd:
			if ev.Data == nil {
				continue
			}
			ef := ev.EndFile()
			e.log.WithField("reason", ef.Reason).Debug("end-file")
			if ef.Reason == libmpv.EndFileError {
				e.emit(media.Event{Type: media.EventError, Err: fmt.Errorf("mpv end-file: %v", ef.Reason)})
			}

		case libmpv.EventShutdown:
			return
		}
	}
}

// fileLoaded applies a seek requested while loading and lists the subtitle
// tracks of the new file.
func (e *Element) fileLoaded() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.loading = false
	if e.pendingSeek >= 0 {
		e.seekLocked(e.pendingSeek)
		e.pendingSeek = -1
	}

	e.subtitleIDs = e.subtitleIDs[:0]
	e.activeSub = -1
	n, _ := strconv.Atoi(e.m.GetPropertyString("track-list/count"))
	for i := 0; i < n; i++ {
		if e.m.GetPropertyString(fmt.Sprintf("track-list/%d/type", i)) != "sub" {
			continue
		}
		e.subtitleIDs = append(e.subtitleIDs, e.m.GetPropertyString(fmt.Sprintf("track-list/%d/id", i)))
	}
	e.log.WithField("subtitles", len(e.subtitleIDs)).Debug("file loaded")
}

func (e *Element) emit(ev media.Event) {
	e.subsMu.Lock()
	fns := make([]func(media.Event), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.subsMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (e *Element) emitFullscreen(active bool) {
	e.subsMu.Lock()
	fns := make([]func(bool), 0, len(e.fsSubs))
	for _, fn := range e.fsSubs {
		fns = append(fns, fn)
	}
	e.subsMu.Unlock()
	for _, fn := range fns {
		fn(active)
	}
}

// Subscribe registers fn for element events. Events are delivered on the mpv
// event goroutine.
func (e *Element) Subscribe(fn func(media.Event)) func() {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	return func() {
		e.subsMu.Lock()
		defer e.subsMu.Unlock()
		delete(e.subs, id)
	}
}

func (e *Element) command(args ...string) error {
	if e.closed {
		return fmt.Errorf("mpv: closed")
	}
	return e.m.Command(args)
}

func (e *Element) setProperty(name, value string) error {
	if e.closed {
		return fmt.Errorf("mpv: closed")
	}
	return e.m.SetPropertyString(name, value)
}

func flag(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func (e *Element) warn(err error, what string) {
	if err != nil {
		e.log.WithError(err).Warn(what)
	}
}

func (e *Element) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.position
}

// SetCurrentTime seeks to an absolute position. While a file is loading the
// seek is held until it has loaded.
func (e *Element) SetCurrentTime(seconds float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.loading {
		e.pendingSeek = seconds
		return
	}
	e.seekLocked(seconds)
}

func (e *Element) seekLocked(seconds float64) {
	e.state.position = seconds
	e.warn(e.command("seek", strconv.FormatFloat(seconds, 'f', 3, 64), "absolute"), "seek")
}

func (e *Element) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.duration
}

func (e *Element) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

// SetVolume maps [0,1] onto mpv's percentage volume.
func (e *Element) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = v
	e.warn(e.setProperty("volume", strconv.FormatFloat(v*100, 'f', 1, 64)), "set volume")
}

func (e *Element) PlaybackRate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rate
}

func (e *Element) SetPlaybackRate(rate float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rate = rate
	e.warn(e.setProperty("speed", strconv.FormatFloat(rate, 'f', -1, 64)), "set speed")
}

func (e *Element) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.paused
}

// Play resumes playback, restarting from the beginning once the end was
// reached.
func (e *Element) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.eof {
		e.seekLocked(0)
	}
	return e.setProperty("pause", "no")
}

func (e *Element) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.setProperty("pause", "yes")
}

func (e *Element) Buffered() []media.TimeRange {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.buffered()
}

func (e *Element) TextTracks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subtitleIDs)
}

// SetTextTrackMode selects subtitle track index when showing. Hiding the
// active track turns subtitles off.
func (e *Element) SetTextTrackMode(index int, mode media.TrackMode) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.subtitleIDs) {
		return fmt.Errorf("subtitle track %d out of range", index)
	}
	switch {
	case mode == media.TrackShowing:
		e.activeSub = index
		return e.setProperty("sid", e.subtitleIDs[index])
	case e.activeSub == index:
		e.activeSub = -1
		return e.setProperty("sid", "no")
	}
	return nil
}

// CanPlayType reports HLS support; mpv demuxes manifests itself.
func (e *Element) CanPlayType(mime string) bool {
	return mime == media.MimeHLS
}

func (e *Element) SetSource(url string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.load()
	e.pendingSeek = -1
	if err := e.command("loadfile", url, "replace"); err != nil {
		e.state.loading = false
		return fmt.Errorf("loadfile: %w", err)
	}
	return nil
}

// SetOSDOverlay replaces the controls overlay with ASS events drawn on a
// resX x resY canvas. An empty string removes it.
func (e *Element) SetOSDOverlay(ass string, resX, resY int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	if ass == "" {
		return osdOverlayRemove(e.m, controlsOverlay)
	}
	return osdOverlaySet(e.m, controlsOverlay, ass, resX, resY)
}

// Close shuts mpv down. The handle is destroyed once the event loop has seen
// the shutdown.
func (e *Element) Close() {
	e.release.Do(func() {
		e.mu.Lock()
		e.warn(e.command("quit"), "quit")
		e.closed = true
		e.mu.Unlock()
		<-e.done
		e.m.TerminateDestroy()
		if e.posterPath != "" {
			os.Remove(e.posterPath)
		}
	})
}

// Fullscreen controls mpv's own window. Embedded instances report it as
// unavailable; the host window owns fullscreen then.
func (e *Element) Fullscreen() media.Fullscreen {
	return windowFullscreen{e}
}

// PictureInPicture returns the mini-player capability: a small always-on-top
// mpv window.
func (e *Element) PictureInPicture() media.PictureInPicture {
	return miniPlayer{e}
}

type windowFullscreen struct{ e *Element }

func (f windowFullscreen) Enabled() bool { return f.e.wid == 0 }

func (f windowFullscreen) Active() bool {
	f.e.mu.Lock()
	defer f.e.mu.Unlock()
	return f.e.state.fullscreen
}

func (f windowFullscreen) set(ctx context.Context, v string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.e.mu.Lock()
	defer f.e.mu.Unlock()
	return f.e.setProperty("fullscreen", v)
}

func (f windowFullscreen) Request(ctx context.Context) error { return f.set(ctx, "yes") }
func (f windowFullscreen) Exit(ctx context.Context) error    { return f.set(ctx, "no") }

func (f windowFullscreen) OnChange(fn func(bool)) func() {
	e := f.e
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	id := e.nextSub
	e.nextSub++
	e.fsSubs[id] = fn
	return func() {
		e.subsMu.Lock()
		defer e.subsMu.Unlock()
		delete(e.fsSubs, id)
	}
}

type miniPlayer struct{ e *Element }

func (p miniPlayer) Supported() bool { return p.e.wid == 0 }

func (p miniPlayer) Active() bool {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()
	return p.e.state.ontop
}

func (p miniPlayer) set(ctx context.Context, ontop bool, scale string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.e.mu.Lock()
	defer p.e.mu.Unlock()
	if ontop && p.e.state.fullscreen {
		if err := p.e.setProperty("fullscreen", "no"); err != nil {
			return err
		}
	}
	if err := p.e.setProperty("window-scale", scale); err != nil {
		return err
	}
	return p.e.setProperty("ontop", flag(ontop))
}

func (p miniPlayer) Request(ctx context.Context) error { return p.set(ctx, true, "0.35") }
func (p miniPlayer) Exit(ctx context.Context) error    { return p.set(ctx, false, "1") }
