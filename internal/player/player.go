// Package player keeps the playback and UI state of one video player in sync
// with its media element, adaptive streaming decoder and user input.
//
// Every entry point (commands, element events, decoder callbacks, timers) runs
// as one atomic step under the player's lock, so the store is only ever
// mutated by a single logical thread. Callbacks into the host run after the
// lock is released.
package player

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"

	"github.com/depeter/reelplayer/internal/chapter"
	"github.com/depeter/reelplayer/internal/format"
	"github.com/depeter/reelplayer/internal/media"
)

// Options configures a Player. Element is required.
type Options struct {
	Element    media.Element
	Fullscreen media.Fullscreen
	PiP        media.PictureInPicture
	Decoders   media.DecoderFactory
	Clock      Clock

	Title    string
	Poster   string
	Chapters []chapter.Chapter

	TheaterModeEnabled bool
	Autoplay           bool

	IdleTimeout time.Duration
	SeekStep    int
	SeekQuiet   time.Duration
	SeekLinger  time.Duration

	// OnVideoChange receives the playlist index to switch to. The caller owns
	// the playlist position and answers with SetPlaylistIndex.
	OnVideoChange func(index int)

	Log *logrus.Entry
}

// SeekIndicator describes the cumulative seek gesture on screen.
type SeekIndicator struct {
	Direction SeekDirection
	Seconds   int
}

// Snapshot is the read-only view handed to the presentation layer.
type Snapshot struct {
	State

	ID     string
	Title  string
	Poster string
	Source string
	Phase  Phase

	Chapters      []chapter.Chapter
	ActiveChapter mo.Option[chapter.Chapter]

	QualityLabel string
	SpeedLabel   string
	TimeLabel    string
	Seek         SeekIndicator
	Settings     SettingsView

	PlaylistIndex  int
	PlaylistLength int
	HasNext        bool
	HasPrevious    bool

	TheaterModeEnabled bool
}

// Player is one player instance. Create it with New, call Mount once the
// element is ready and Close on teardown.
type Player struct {
	id   string
	opts Options
	log  *logrus.Entry

	el  media.Element
	fs  media.Fullscreen
	pip media.PictureInPicture

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closed  bool
	mounted bool

	store    *Store
	bridge   *bridge
	stream   *streaming
	seek     *cumulativeSeek
	controls *controlsVisibility
	settings *settingsMenu
	timers   []*timer

	src       string
	loaded    bool
	playlist  []string
	index     int
	autostart bool

	after   []func()
	subs    map[int]func(Snapshot)
	nextSub int
	seq     uint64

	// notifyMu orders deliveries; delivered is the newest step handed out.
	notifyMu  sync.Mutex
	delivered uint64

	fsUnsubscribe func()
}

// New builds a player around opts.Element.
func New(opts Options) *Player {
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.Log == nil {
		opts.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	if opts.SeekStep <= 0 {
		opts.SeekStep = DefaultSeekStep
	}
	if opts.SeekQuiet <= 0 {
		opts.SeekQuiet = DefaultSeekQuiet
	}
	if opts.SeekLinger <= 0 {
		opts.SeekLinger = DefaultSeekLinger
	}
	opts.IdleTimeout = clampIdle(opts.IdleTimeout)
	opts.Chapters = slices.Clone(opts.Chapters)

	id := uuid.NewString()
	log := opts.Log.WithField("player", id)
	ctx, cancel := context.WithCancel(context.Background())

	p := &Player{
		id:     id,
		opts:   opts,
		log:    log,
		el:     opts.Element,
		fs:     opts.Fullscreen,
		pip:    opts.PiP,
		ctx:    ctx,
		cancel: cancel,
		store:  NewStore(),
		subs:   make(map[int]func(Snapshot)),
	}
	if opts.Autoplay {
		p.store.ToggleAutoplay()
	}

	p.bridge = &bridge{
		el:      p.el,
		store:   p.store,
		onEnded: p.handleEnded,
		onError: func(err error) { p.stream.elementError(err) },
		log:     log.WithField("component", "bridge"),
	}
	p.stream = &streaming{
		factory: opts.Decoders,
		el:      p.el,
		store:   p.store,
		exec:    p.do,
		log:     log.WithField("component", "streaming"),
	}
	p.seek = &cumulativeSeek{
		step:      opts.SeekStep,
		quiet:     opts.SeekQuiet,
		linger:    opts.SeekLinger,
		apply:     p.seekRelative,
		commit:    p.newTimer(),
		indicator: p.newTimer(),
	}
	p.controls = &controlsVisibility{
		store: p.store,
		idle:  opts.IdleTimeout,
		timer: p.newTimer(),
	}
	p.settings = &settingsMenu{store: p.store}
	return p
}

func (p *Player) newTimer() *timer {
	t := newTimer(p.opts.Clock, p.do)
	p.timers = append(p.timers, t)
	return t
}

// ID identifies the instance in logs and remote sessions.
func (p *Player) ID() string { return p.id }

// do runs fn as one atomic step and then notifies subscribers. A snapshot
// older than one already delivered is dropped.
func (p *Player) do(fn func()) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	wasPlaying, wasOpen := p.store.playback()
	fn()
	if playing, open := p.store.playback(); playing != wasPlaying || open != wasOpen {
		p.controls.playbackChanged()
	}

	after := p.after
	p.after = nil
	p.seq++
	seq := p.seq
	var (
		subs []func(Snapshot)
		snap Snapshot
	)
	if len(p.subs) > 0 {
		subs = lo.Values(p.subs)
		snap = p.snapshot()
	}
	p.mu.Unlock()

	for _, f := range after {
		f()
	}
	if len(subs) > 0 {
		p.notify(seq, subs, snap)
	}
}

func (p *Player) notify(seq uint64, subs []func(Snapshot), snap Snapshot) {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()
	if seq <= p.delivered {
		return
	}
	p.delivered = seq
	for _, s := range subs {
		s(snap)
	}
}

// deferCall queues f to run once the current step has released the lock.
func (p *Player) deferCall(f func()) {
	p.after = append(p.after, f)
}

// Mount attaches the player to its element and loads the pending source.
func (p *Player) Mount() {
	p.do(func() {
		if p.mounted {
			return
		}
		p.mounted = true
		p.bridge.attach(p.do)
		if p.fs != nil {
			p.fsUnsubscribe = p.fs.OnChange(func(active bool) {
				p.do(func() { p.store.SetFullScreen(active) })
			})
		}
		p.log.Debug("mounted")
		if p.src != "" {
			p.load()
		}
	})
}

// Close tears the player down: the decoder is destroyed and every timer and
// listener is released. Later calls are no-ops.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.cancel()
	p.bridge.detach()
	p.stream.destroy()
	for _, t := range p.timers {
		t.Close()
	}
	if p.fsUnsubscribe != nil {
		p.fsUnsubscribe()
		p.fsUnsubscribe = nil
	}
	p.subs = nil
	p.after = nil
	p.log.Debug("closed")
}

// Subscribe registers fn to receive a snapshot after every step.
func (p *Player) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return func() {}
	}
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

// Snapshot returns the current state with derived values.
func (p *Player) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

func (p *Player) snapshot() Snapshot {
	s := p.store.Snapshot()
	dir, secs := p.seek.indicatorState()
	return Snapshot{
		State:              s,
		ID:                 p.id,
		Title:              p.opts.Title,
		Poster:             p.opts.Poster,
		Source:             p.src,
		Phase:              p.stream.phase,
		Chapters:           slices.Clone(p.opts.Chapters),
		ActiveChapter:      chapter.Active(p.opts.Chapters, s.CurrentTime),
		QualityLabel:       format.QualityLabel(s.CurrentQuality, s.AvailableQualities, p.stream.activeLevel()),
		SpeedLabel:         format.SpeedLabel(s.PlaybackSpeed),
		TimeLabel:          format.FormatTime(s.CurrentTime) + " / " + format.FormatTime(s.Duration),
		Seek:               SeekIndicator{Direction: dir, Seconds: secs},
		Settings:           p.settings.view(s),
		PlaylistIndex:      p.index,
		PlaylistLength:     len(p.playlist),
		HasNext:            p.index < len(p.playlist)-1,
		HasPrevious:        len(p.playlist) > 0 && p.index > 0,
		TheaterModeEnabled: p.opts.TheaterModeEnabled,
	}
}

// SetSource plays a single URL.
func (p *Player) SetSource(src string) {
	p.do(func() {
		p.playlist = nil
		p.index = 0
		p.autostart = false
		p.changeSource(src)
	})
}

// SetPlaylist plays urls starting at index.
func (p *Player) SetPlaylist(urls []string, index int) {
	p.do(func() {
		p.playlist = slices.Clone(urls)
		p.index = 0
		p.autostart = false
		if len(p.playlist) == 0 {
			p.changeSource("")
			return
		}
		p.index = lo.Clamp(index, 0, len(p.playlist)-1)
		p.changeSource(p.playlist[p.index])
	})
}

// SetPlaylistIndex moves to another playlist entry. Out-of-range indices are
// ignored.
func (p *Player) SetPlaylistIndex(index int) {
	p.do(func() {
		if index < 0 || index >= len(p.playlist) {
			return
		}
		p.index = index
		p.changeSource(p.playlist[index])
	})
}

// SetMetadata replaces the title, poster and chapters shown for the current
// source.
func (p *Player) SetMetadata(title, poster string, chapters []chapter.Chapter) {
	p.do(func() {
		p.opts.Title = title
		p.opts.Poster = poster
		p.opts.Chapters = slices.Clone(chapters)
	})
}

func (p *Player) changeSource(src string) {
	if src == p.src && p.loaded {
		return
	}
	p.src = src
	p.loaded = false
	if p.mounted {
		p.load()
	}
}

// load resets per-source state and hands the source to the streaming adapter.
func (p *Player) load() {
	p.loaded = true
	p.store.Reset()
	p.settings.page = PageMain
	p.log.WithField("src", p.src).Info("source changed")

	s := p.store.Snapshot()
	p.el.SetVolume(s.Volume)
	p.el.SetPlaybackRate(s.PlaybackSpeed)
	for i := 0; i < p.el.TextTracks(); i++ {
		_ = p.el.SetTextTrackMode(i, media.TrackHidden)
	}
	// A new source starts paused, matching the reset state.
	if !p.el.Paused() {
		if err := p.el.Pause(); err != nil {
			p.log.WithError(err).Warn("pause before load failed")
		}
	}

	p.stream.load(p.src)

	if p.autostart {
		p.autostart = false
		if p.src != "" {
			p.togglePlay()
		}
	}
}

// TogglePlay flips the requested playing state and commands the element.
func (p *Player) TogglePlay() { p.do(p.togglePlay) }

func (p *Player) togglePlay() {
	p.store.TogglePlay()
	if playing, _ := p.store.playback(); playing {
		if err := p.el.Play(); err != nil {
			p.log.WithError(err).Warn("play rejected")
			p.store.SetPlaying(false)
		}
		return
	}
	if err := p.el.Pause(); err != nil {
		p.log.WithError(err).Warn("pause failed")
	}
}

// SetVolume sets the volume, clamped to [0,1].
func (p *Player) SetVolume(v float64) { p.do(func() { p.setVolume(v) }) }

func (p *Player) setVolume(v float64) {
	p.store.SetVolume(v)
	p.el.SetVolume(p.store.Snapshot().Volume)
}

func (p *Player) adjustVolume(delta float64) {
	p.setVolume(p.store.Snapshot().Volume + delta)
}

// ToggleMute mutes or restores the previous volume.
func (p *Player) ToggleMute() { p.do(p.toggleMute) }

func (p *Player) toggleMute() {
	p.store.ToggleMute()
	p.el.SetVolume(p.store.Snapshot().Volume)
}

// SetPlaybackSpeed applies speed and closes the settings menu.
func (p *Player) SetPlaybackSpeed(speed float64) {
	p.do(func() {
		p.store.SetPlaybackSpeed(speed)
		p.settings.page = PageMain
		p.el.SetPlaybackRate(p.store.Snapshot().PlaybackSpeed)
	})
}

// SetCurrentQuality pins a quality level, or AutoQuality.
func (p *Player) SetCurrentQuality(index int) {
	p.do(func() {
		if p.store.SetCurrentQuality(index) {
			p.stream.selectLevel(index)
		}
	})
}

func (p *Player) ToggleAutoplay() { p.do(p.store.ToggleAutoplay) }

// ToggleSubtitles shows the first text track or hides all of them.
func (p *Player) ToggleSubtitles() { p.do(p.toggleSubtitles) }

func (p *Player) toggleSubtitles() {
	n := p.el.TextTracks()
	if n == 0 {
		return
	}
	enable := !p.store.Snapshot().AreSubtitlesEnabled
	for i := 0; i < n; i++ {
		mode := media.TrackHidden
		if enable && i == 0 {
			mode = media.TrackShowing
		}
		if err := p.el.SetTextTrackMode(i, mode); err != nil {
			p.log.WithError(err).WithField("track", i).Warn("set text track mode")
		}
	}
	p.store.SetSubtitlesEnabled(enable)
}

// ToggleTheaterMode is a no-op unless theater mode is enabled for the player.
func (p *Player) ToggleTheaterMode() { p.do(p.toggleTheaterMode) }

func (p *Player) toggleTheaterMode() {
	if p.opts.TheaterModeEnabled {
		p.store.ToggleTheaterMode()
	}
}

// ToggleMiniPlayer enters or leaves picture-in-picture. The state follows the
// element's enter/leave events; failures are logged only.
func (p *Player) ToggleMiniPlayer() { p.do(p.toggleMiniPlayer) }

func (p *Player) toggleMiniPlayer() {
	if p.pip == nil || !p.pip.Supported() {
		return
	}
	pip, ctx, log := p.pip, p.ctx, p.log
	leave := pip.Active()
	go func() {
		var err error
		if leave {
			err = pip.Exit(ctx)
		} else {
			err = pip.Request(ctx)
		}
		if err != nil {
			log.WithError(err).Warn("toggle picture-in-picture")
		}
	}()
}

// ToggleFullscreen requests or exits fullscreen. The state follows the
// capability's change notifications; failures are logged only.
func (p *Player) ToggleFullscreen() { p.do(p.toggleFullscreen) }

func (p *Player) toggleFullscreen() {
	if p.fs == nil || !p.fs.Enabled() {
		return
	}
	fs, ctx, log := p.fs, p.ctx, p.log
	leave := fs.Active()
	go func() {
		var err error
		if leave {
			err = fs.Exit(ctx)
		} else {
			err = fs.Request(ctx)
		}
		if err != nil {
			log.WithError(err).Warn("toggle fullscreen")
		}
	}()
}

// clampSeek bounds t to [0, duration]. The upper bound applies once a
// duration is known.
func (p *Player) clampSeek(t float64) (float64, float64) {
	d := p.store.Snapshot().Duration
	if d <= 0 {
		d = p.el.Duration()
	}
	if t < 0 {
		t = 0
	}
	if d > 0 && t > d {
		t = d
	}
	return t, d
}

// Seek moves to an absolute time in seconds.
func (p *Player) Seek(t float64) { p.do(func() { p.seekTo(t) }) }

func (p *Player) seekTo(t float64) {
	t, d := p.clampSeek(t)
	p.el.SetCurrentTime(t)
	p.store.SetTimeUpdate(t, d)
}

// SeekRelative moves by delta seconds from the element's position.
func (p *Player) SeekRelative(delta float64) { p.do(func() { p.seekRelative(delta) }) }

func (p *Player) seekRelative(delta float64) {
	p.seekTo(p.el.CurrentTime() + delta)
}

// SeekToPercentage moves to pct percent of the duration.
func (p *Player) SeekToPercentage(pct float64) { p.do(func() { p.seekToPercentage(pct) }) }

func (p *Player) seekToPercentage(pct float64) {
	p.seekTo(p.store.Snapshot().Duration * lo.Clamp(pct, 0, 100) / 100)
}

// SeekToChapter jumps to a chapter and toggles the chapters sidebar.
func (p *Player) SeekToChapter(index int) {
	p.do(func() {
		if index < 0 || index >= len(p.opts.Chapters) {
			return
		}
		p.seekTo(p.opts.Chapters[index].Time)
		p.store.ToggleChapters()
	})
}

// SeekForward and SeekBackward are cumulative seek gestures.
func (p *Player) SeekForward()  { p.do(func() { p.seekGesture(SeekForward) }) }
func (p *Player) SeekBackward() { p.do(func() { p.seekGesture(SeekBackward) }) }

func (p *Player) seekGesture(dir SeekDirection) {
	p.seek.gesture(dir)
}

// HoverLabel formats the time under a timeline position in [0,1].
func (p *Player) HoverLabel(fraction float64) string {
	return format.FormatTime(lo.Clamp(fraction, 0, 1) * p.Snapshot().Duration)
}

func (p *Player) ToggleSettingsMenu() { p.do(p.settings.toggle) }

// ShowSettingsPage switches the open settings menu to page.
func (p *Player) ShowSettingsPage(page SettingsPage) {
	p.do(func() { p.settings.show(page) })
}

// Escape closes the settings menu.
func (p *Player) Escape() { p.do(p.settings.close) }

// PointerDown reports a press anywhere on the page; presses outside the
// player close the settings menu.
func (p *Player) PointerDown(insidePlayer bool) {
	p.do(func() { p.settings.pointerDown(insidePlayer) })
}

func (p *Player) ToggleChaptersSidebar() { p.do(p.store.ToggleChapters) }

// PointerMove and PointerLeave drive the controls visibility.
func (p *Player) PointerMove()  { p.do(p.controls.pointerMove) }
func (p *Player) PointerLeave() { p.do(p.controls.pointerLeave) }

// Next and Previous ask the caller to move within the playlist.
func (p *Player) Next()     { p.do(p.next) }
func (p *Player) Previous() { p.do(p.previous) }

func (p *Player) next() {
	if p.index < len(p.playlist)-1 {
		p.requestIndex(p.index + 1)
	}
}

func (p *Player) previous() {
	if len(p.playlist) > 0 && p.index > 0 {
		p.requestIndex(p.index - 1)
	}
}

func (p *Player) requestIndex(index int) {
	if cb := p.opts.OnVideoChange; cb != nil {
		p.deferCall(func() { cb(index) })
	}
}

func (p *Player) handleEnded() {
	if !p.store.Snapshot().IsAutoplayEnabled {
		return
	}
	if p.index < len(p.playlist)-1 && p.opts.OnVideoChange != nil {
		p.autostart = true
		p.next()
	}
}

// HandleKey runs the keyboard shortcut for k. preventDefault tells the host
// to suppress the key's default behavior.
func (p *Player) HandleKey(k Key) (handled, preventDefault bool) {
	p.do(func() { handled, preventDefault = dispatchKey(p, k) })
	return
}
