package player

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depeter/reelplayer/internal/chapter"
	"github.com/depeter/reelplayer/internal/media"
)

type harness struct {
	p       *Player
	el      *fakeElement
	dec     *fakeFactory
	clock   *fakeClock
	changes []int
}

func newHarness(t *testing.T, configure func(*Options)) *harness {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	h := &harness{el: newFakeElement(), dec: &fakeFactory{}, clock: &fakeClock{}}
	opts := Options{
		Element:  h.el,
		Decoders: h.dec,
		Clock:    h.clock,
		Log:      logrus.NewEntry(logger),
		OnVideoChange: func(i int) {
			h.changes = append(h.changes, i)
		},
	}
	if configure != nil {
		configure(&opts)
	}
	h.p = New(opts)
	h.p.Mount()
	t.Cleanup(h.p.Close)
	return h
}

func TestSetVolumeClamps(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{-1, 0},
		{-0.01, 0},
		{0.5, 0.5},
		{1.7, 1},
		{42, 1},
	}
	h := newHarness(t, nil)
	for _, c := range cases {
		h.p.SetVolume(c.in)
		assert.Equal(t, c.want, h.p.Snapshot().Volume, "volume %v", c.in)
		assert.Equal(t, c.want, h.el.Volume(), "element volume %v", c.in)
	}
}

func TestToggleMuteRoundTrip(t *testing.T) {
	h := newHarness(t, nil)
	h.p.SetVolume(0.37)

	h.p.ToggleMute()
	s := h.p.Snapshot()
	assert.True(t, s.IsMuted())
	assert.Equal(t, 0.37, s.LastVolume)

	h.p.ToggleMute()
	assert.Equal(t, 0.37, h.p.Snapshot().Volume)
	assert.Equal(t, 0.37, h.el.Volume())
}

func TestTogglePlayLatchesHasStarted(t *testing.T) {
	h := newHarness(t, nil)
	require.False(t, h.p.Snapshot().HasStarted)

	h.p.TogglePlay()
	assert.True(t, h.p.Snapshot().IsPlaying)
	h.p.TogglePlay()

	s := h.p.Snapshot()
	assert.False(t, s.IsPlaying)
	assert.True(t, s.HasStarted)
	assert.Equal(t, 1, h.el.plays)
	assert.Equal(t, 1, h.el.pauses)
}

func TestTogglePlayRejectedByElement(t *testing.T) {
	h := newHarness(t, nil)
	h.el.playErr = errors.New("autoplay blocked")

	h.p.TogglePlay()
	s := h.p.Snapshot()
	assert.False(t, s.IsPlaying)
	assert.True(t, s.HasStarted)
}

func TestElementEventsAreAuthoritative(t *testing.T) {
	h := newHarness(t, nil)
	h.el.emit(media.EventPlay)
	assert.True(t, h.p.Snapshot().IsPlaying)
	h.el.emit(media.EventWaiting)
	assert.True(t, h.p.Snapshot().IsBuffering)
	h.el.emit(media.EventPlaying)
	assert.False(t, h.p.Snapshot().IsBuffering)
	h.el.emit(media.EventPause)
	assert.False(t, h.p.Snapshot().IsPlaying)
}

func TestSeekRelativeClamps(t *testing.T) {
	h := newHarness(t, nil)

	h.el.setTimes(5, 10)
	h.p.SeekRelative(100)
	assert.Equal(t, 10.0, h.el.CurrentTime())
	assert.Equal(t, 10.0, h.p.Snapshot().CurrentTime)

	h.el.setTimes(5, 10)
	h.p.SeekRelative(-100)
	assert.Equal(t, 0.0, h.el.CurrentTime())
	assert.Equal(t, 0.0, h.p.Snapshot().CurrentTime)
}

func TestSeekToPercentage(t *testing.T) {
	h := newHarness(t, nil)
	h.el.setTimes(0, 200)
	h.el.emit(media.EventLoadedMetadata)

	h.p.SeekToPercentage(30)
	assert.Equal(t, []float64{60}, h.el.seekLog())

	h.p.SeekToPercentage(250)
	assert.Equal(t, 200.0, h.el.CurrentTime())
}

func TestCumulativeSeekCoalesces(t *testing.T) {
	h := newHarness(t, nil)
	h.el.setTimes(20, 300)

	for i := 0; i < 3; i++ {
		h.p.SeekForward()
		h.clock.Advance(50 * time.Millisecond)
	}
	assert.Empty(t, h.el.seekLog())
	assert.Equal(t, SeekIndicator{Direction: SeekForward, Seconds: 30}, h.p.Snapshot().Seek)

	h.clock.Advance(DefaultSeekQuiet)
	assert.Equal(t, []float64{50}, h.el.seekLog())
	assert.Equal(t, SeekIndicator{Direction: SeekForward, Seconds: 30}, h.p.Snapshot().Seek)

	h.clock.Advance(DefaultSeekLinger)
	assert.Equal(t, SeekIndicator{Direction: SeekNone}, h.p.Snapshot().Seek)
	assert.Len(t, h.el.seekLog(), 1)
}

func TestCumulativeSeekNetsOpposingGestures(t *testing.T) {
	h := newHarness(t, nil)
	h.el.setTimes(100, 300)

	h.p.SeekBackward()
	h.p.SeekBackward()
	h.p.SeekForward()
	assert.Equal(t, SeekIndicator{Direction: SeekForward, Seconds: -10}, h.p.Snapshot().Seek)

	h.clock.Advance(DefaultSeekQuiet)
	assert.Equal(t, []float64{90}, h.el.seekLog())
}

func TestSourceChangeResets(t *testing.T) {
	h := newHarness(t, nil)
	h.p.SetSource("first.m3u8")
	h.dec.last().parse(media.Level{Height: 1080}, media.Level{Height: 720}, media.Level{Height: 360})
	h.p.ToggleAutoplay()
	h.p.TogglePlay()
	h.p.SetCurrentQuality(2)
	h.el.setTimes(60, 120)
	h.el.emit(media.EventLoadedMetadata)
	h.el.emit(media.EventTimeUpdate)
	h.el.buffered = []media.TimeRange{{Start: 0, End: 90}}
	h.el.emit(media.EventProgress)
	h.dec.last().fail(media.ErrorMedia, true)

	before := h.p.Snapshot()
	require.Equal(t, 120.0, before.Duration)
	require.Equal(t, 2, before.CurrentQuality)
	require.True(t, before.Error.IsPresent())

	first := h.dec.last()
	h.p.SetSource("second.m3u8")

	s := h.p.Snapshot()
	assert.True(t, first.isDestroyed())
	assert.Equal(t, 2, h.dec.count())
	assert.Zero(t, s.Duration)
	assert.Zero(t, s.CurrentTime)
	assert.Zero(t, s.Progress)
	assert.Zero(t, s.Buffered)
	assert.Equal(t, AutoQuality, s.CurrentQuality)
	assert.False(t, s.Error.IsPresent())
	assert.False(t, s.IsPlaying)
	assert.True(t, s.IsAutoplayEnabled)
	assert.Equal(t, "second.m3u8", s.Source)
}

func TestSameSourceDoesNotReload(t *testing.T) {
	h := newHarness(t, nil)
	h.p.SetSource("a.m3u8")
	h.p.SetSource("a.m3u8")
	assert.Equal(t, 1, h.dec.count())
}

func TestSourceBeforeMountLoadsOnMount(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	el, dec := newFakeElement(), &fakeFactory{}
	p := New(Options{Element: el, Decoders: dec, Clock: &fakeClock{}, Log: logrus.NewEntry(logger)})
	defer p.Close()

	p.SetSource("late.m3u8")
	assert.Zero(t, dec.count())
	p.Mount()
	require.Equal(t, 1, dec.count())
	assert.Equal(t, "late.m3u8", dec.last().src)
	assert.Equal(t, el, dec.last().attached)
}

func TestQualityLabel(t *testing.T) {
	h := newHarness(t, nil)
	h.p.SetSource("video.m3u8")

	assert.Equal(t, "Auto (...p)", h.p.Snapshot().QualityLabel)

	h.dec.last().parse(media.Level{Height: 1080}, media.Level{Height: 480})
	assert.Equal(t, "Auto (1080p)", h.p.Snapshot().QualityLabel)

	h.p.SetCurrentQuality(1)
	assert.Equal(t, "480p", h.p.Snapshot().QualityLabel)
	assert.Equal(t, 1, h.dec.last().pinned)

	h.p.SetCurrentQuality(7)
	assert.Equal(t, 1, h.p.Snapshot().CurrentQuality)

	h.p.SetCurrentQuality(AutoQuality)
	assert.Equal(t, AutoQuality, h.dec.last().pinned)
}

func TestNetworkErrorDestroysDecoder(t *testing.T) {
	h := newHarness(t, nil)
	h.p.SetSource("video.m3u8")
	d := h.dec.last()

	d.fail(media.ErrorNetwork, true)

	s := h.p.Snapshot()
	assert.Equal(t, MsgNetworkError, s.Error.OrEmpty())
	assert.Equal(t, PhaseFailed, s.Phase)
	assert.True(t, d.isDestroyed())

	d.parse(media.Level{Height: 720})
	assert.Empty(t, h.p.Snapshot().AvailableQualities)
}

func TestNonFatalErrorIsIgnored(t *testing.T) {
	h := newHarness(t, nil)
	h.p.SetSource("video.m3u8")
	h.dec.last().fail(media.ErrorNetwork, false)

	assert.False(t, h.p.Snapshot().Error.IsPresent())
	assert.False(t, h.dec.last().isDestroyed())
}

func TestMediaErrorRecoversOnce(t *testing.T) {
	h := newHarness(t, nil)
	h.p.SetSource("video.m3u8")
	d := h.dec.last()

	d.fail(media.ErrorMedia, true)
	assert.Equal(t, MsgMediaError, h.p.Snapshot().Error.OrEmpty())
	assert.Equal(t, 1, d.recoveries)
	assert.False(t, d.isDestroyed())

	d.fail(media.ErrorMedia, true)
	assert.Equal(t, 1, d.recoveries)
	assert.True(t, d.isDestroyed())
	assert.Equal(t, PhaseFailed, h.p.Snapshot().Phase)
}

func TestOtherErrorIsUnexpected(t *testing.T) {
	h := newHarness(t, nil)
	h.p.SetSource("video.m3u8")
	h.dec.last().fail(media.ErrorOther, true)
	assert.Equal(t, MsgUnexpectedError, h.p.Snapshot().Error.OrEmpty())
	assert.True(t, h.dec.last().isDestroyed())
}

func TestNativeAndProgressiveSources(t *testing.T) {
	h := newHarness(t, nil)

	h.p.SetSource("clip.mp4")
	assert.Equal(t, "clip.mp4", h.el.src)
	assert.Zero(t, h.dec.count())
	assert.Equal(t, PhaseReady, h.p.Snapshot().Phase)

	h.dec.unsupported = true
	h.el.nativeHLS = true
	h.p.SetSource("native.m3u8")
	assert.Equal(t, "native.m3u8", h.el.src)
	assert.Zero(t, h.dec.count())
}

func TestUnsupportedSource(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Decoders = nil })
	h.p.SetSource("video.m3u8")

	s := h.p.Snapshot()
	assert.Equal(t, MsgUnsupportedError, s.Error.OrEmpty())
	assert.Equal(t, PhaseFailed, s.Phase)
	assert.Empty(t, h.el.src)
}

func TestElementErrorOnProgressiveSource(t *testing.T) {
	h := newHarness(t, nil)
	h.p.SetSource("clip.mp4")
	h.el.emit(media.EventError)
	assert.Equal(t, MsgMediaError, h.p.Snapshot().Error.OrEmpty())
}

func TestEndToEnd(t *testing.T) {
	h := newHarness(t, nil)
	h.p.SetPlaylist([]string{"video.m3u8", "two.m3u8", "three.m3u8"}, 0)

	h.dec.last().parse(media.Level{Height: 720}, media.Level{Height: 360})
	s := h.p.Snapshot()
	require.Len(t, s.AvailableQualities, 2)
	assert.Equal(t, PhaseReady, s.Phase)

	h.el.setTimes(30, 120)
	h.el.emit(media.EventTimeUpdate)
	assert.Equal(t, 25.0, h.p.Snapshot().Progress)

	h.p.ToggleAutoplay()
	h.el.emit(media.EventEnded)
	assert.Equal(t, []int{1}, h.changes)
}

func TestEndedWithoutAutoplay(t *testing.T) {
	h := newHarness(t, nil)
	h.p.SetPlaylist([]string{"a.m3u8", "b.m3u8"}, 0)
	h.el.emit(media.EventPlay)
	h.el.emit(media.EventEnded)

	assert.Empty(t, h.changes)
	assert.False(t, h.p.Snapshot().IsPlaying)
}

func TestAutoplayStartsNextEntry(t *testing.T) {
	h := newHarness(t, nil)
	h.p.SetPlaylist([]string{"a.m3u8", "b.m3u8"}, 0)
	h.p.ToggleAutoplay()
	h.el.emit(media.EventEnded)
	require.Equal(t, []int{1}, h.changes)

	h.p.SetPlaylistIndex(1)
	s := h.p.Snapshot()
	assert.Equal(t, "b.m3u8", s.Source)
	assert.True(t, s.IsPlaying)
	assert.Equal(t, 1, h.el.plays)

	h.el.emit(media.EventEnded)
	assert.Equal(t, []int{1}, h.changes)
}

func TestSourceChangePausesElement(t *testing.T) {
	h := newHarness(t, nil)
	h.p.SetPlaylist([]string{"a.m3u8", "b.m3u8"}, 0)
	h.p.TogglePlay()
	require.False(t, h.el.Paused())

	h.p.SetPlaylistIndex(1)
	s := h.p.Snapshot()
	assert.True(t, h.el.Paused())
	assert.False(t, s.IsPlaying)
	assert.False(t, s.HasStarted)
	assert.Equal(t, 1, h.el.pauses)

	h.p.TogglePlay()
	assert.True(t, h.p.Snapshot().IsPlaying)
	assert.False(t, h.el.Paused())
	assert.Equal(t, 2, h.el.plays)
}

func TestAutoplayNeedsVideoChangeCallback(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.OnVideoChange = nil })
	h.p.SetPlaylist([]string{"a.m3u8", "b.m3u8"}, 0)
	h.p.ToggleAutoplay()
	h.el.emit(media.EventEnded)

	h.p.SetPlaylistIndex(1)
	assert.False(t, h.p.Snapshot().IsPlaying)
	assert.Zero(t, h.el.plays)
}

func TestNewPlaylistClearsPendingAutoplay(t *testing.T) {
	h := newHarness(t, nil)
	h.p.SetPlaylist([]string{"a.m3u8", "b.m3u8"}, 0)
	h.p.ToggleAutoplay()
	h.el.emit(media.EventEnded)
	require.Equal(t, []int{1}, h.changes)

	h.p.SetPlaylist([]string{"c.m3u8", "d.m3u8"}, 1)
	s := h.p.Snapshot()
	assert.Equal(t, "d.m3u8", s.Source)
	assert.False(t, s.IsPlaying)
	assert.Zero(t, h.el.plays)
}

func TestNextPreviousBounds(t *testing.T) {
	h := newHarness(t, nil)
	h.p.Next()
	h.p.Previous()
	assert.Empty(t, h.changes)

	h.p.SetPlaylist([]string{"a", "b", "c"}, 2)
	s := h.p.Snapshot()
	assert.True(t, s.HasPrevious)
	assert.False(t, s.HasNext)

	h.p.Next()
	h.p.Previous()
	assert.Equal(t, []int{1}, h.changes)
}

func TestControlsHideAfterIdle(t *testing.T) {
	h := newHarness(t, nil)
	h.p.TogglePlay()
	h.clock.Advance(DefaultIdleTimeout - time.Millisecond)
	assert.True(t, h.p.Snapshot().AreControlsVisible)
	h.clock.Advance(time.Millisecond)
	assert.False(t, h.p.Snapshot().AreControlsVisible)

	h.p.PointerMove()
	assert.True(t, h.p.Snapshot().AreControlsVisible)

	h.p.ToggleSettingsMenu()
	h.clock.Advance(10 * time.Second)
	assert.True(t, h.p.Snapshot().AreControlsVisible)

	h.p.ToggleSettingsMenu()
	h.clock.Advance(DefaultIdleTimeout)
	assert.False(t, h.p.Snapshot().AreControlsVisible)

	h.p.TogglePlay()
	assert.True(t, h.p.Snapshot().AreControlsVisible)
}

func TestPointerLeaveHidesWhilePlaying(t *testing.T) {
	h := newHarness(t, nil)
	h.p.PointerLeave()
	assert.True(t, h.p.Snapshot().AreControlsVisible)

	h.p.TogglePlay()
	h.p.PointerLeave()
	assert.False(t, h.p.Snapshot().AreControlsVisible)
}

func TestIdleTimeoutClamped(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.IdleTimeout = 30 * time.Second })
	h.p.TogglePlay()
	h.clock.Advance(MaxIdleTimeout)
	assert.False(t, h.p.Snapshot().AreControlsVisible)
}

func TestHandleKey(t *testing.T) {
	h := newHarness(t, nil)
	h.p.SetPlaylist([]string{"a", "b"}, 0)
	h.el.setTimes(0, 100)
	h.el.emit(media.EventLoadedMetadata)

	handled, prevent := h.p.HandleKey(Key{Name: " "})
	assert.True(t, handled)
	assert.True(t, prevent)
	assert.True(t, h.p.Snapshot().IsPlaying)

	handled, _ = h.p.HandleKey(Key{Name: "k", Ctrl: true})
	assert.False(t, handled)
	assert.True(t, h.p.Snapshot().IsPlaying)

	handled, _ = h.p.HandleKey(Key{Name: "n"})
	assert.False(t, handled)
	handled, _ = h.p.HandleKey(Key{Name: "N", Shift: true})
	assert.True(t, handled)
	assert.Equal(t, []int{1}, h.changes)

	h.p.HandleKey(Key{Name: "5"})
	assert.Equal(t, 50.0, h.el.CurrentTime())

	_, prevent = h.p.HandleKey(Key{Name: "ArrowDown"})
	assert.True(t, prevent)
	assert.InDelta(t, DefaultVolume-VolumeStep, h.p.Snapshot().Volume, 1e-9)

	h.p.HandleKey(Key{Name: "m", InTextField: true})
	assert.False(t, h.p.Snapshot().IsMuted())
	h.p.HandleKey(Key{Name: "M"})
	assert.True(t, h.p.Snapshot().IsMuted())
}

func TestToggleSubtitles(t *testing.T) {
	h := newHarness(t, nil)
	h.p.ToggleSubtitles()
	assert.False(t, h.p.Snapshot().AreSubtitlesEnabled)

	h.el.tracks = []media.TrackMode{media.TrackHidden, media.TrackHidden}
	h.p.ToggleSubtitles()
	assert.True(t, h.p.Snapshot().AreSubtitlesEnabled)
	assert.Equal(t, []media.TrackMode{media.TrackShowing, media.TrackHidden}, h.el.trackModes())

	h.p.ToggleSubtitles()
	assert.False(t, h.p.Snapshot().AreSubtitlesEnabled)
	assert.Equal(t, []media.TrackMode{media.TrackHidden, media.TrackHidden}, h.el.trackModes())
}

func TestTheaterMode(t *testing.T) {
	h := newHarness(t, nil)
	h.p.ToggleTheaterMode()
	assert.False(t, h.p.Snapshot().IsTheaterMode)

	h = newHarness(t, func(o *Options) { o.TheaterModeEnabled = true })
	h.p.ToggleTheaterMode()
	assert.True(t, h.p.Snapshot().IsTheaterMode)
}

func TestSettingsMenu(t *testing.T) {
	h := newHarness(t, nil)
	h.p.ShowSettingsPage(PageSpeed)
	assert.False(t, h.p.Snapshot().Settings.Open)

	h.p.ToggleSettingsMenu()
	h.p.ShowSettingsPage(PageSpeed)
	v := h.p.Snapshot().Settings
	assert.True(t, v.Open)
	assert.Equal(t, PageSpeed, v.Page)
	assert.Equal(t, SpeedOptions, v.Speeds)

	h.p.SetPlaybackSpeed(1.5)
	s := h.p.Snapshot()
	assert.False(t, s.IsSettingsOpen)
	assert.Equal(t, "1.5x", s.SpeedLabel)
	assert.Equal(t, 1.5, h.el.PlaybackRate())

	h.p.ToggleSettingsMenu()
	assert.Equal(t, PageMain, h.p.Snapshot().Settings.Page)
	h.p.PointerDown(true)
	assert.True(t, h.p.Snapshot().IsSettingsOpen)
	h.p.PointerDown(false)
	assert.False(t, h.p.Snapshot().IsSettingsOpen)

	h.p.ToggleSettingsMenu()
	h.p.Escape()
	assert.False(t, h.p.Snapshot().IsSettingsOpen)

	v = h.p.Snapshot().Settings
	v.Speeds[0] = 99
	assert.Equal(t, 0.5, SpeedOptions[0])
	assert.Equal(t, 0.5, h.p.Snapshot().Settings.Speeds[0])
}

func TestSeekToChapter(t *testing.T) {
	chapters := []chapter.Chapter{{Time: 0, Label: "Intro"}, {Time: 45, Label: "Main"}}
	h := newHarness(t, func(o *Options) { o.Chapters = chapters })
	h.el.setTimes(0, 100)

	h.p.SeekToChapter(1)
	s := h.p.Snapshot()
	assert.Equal(t, 45.0, h.el.CurrentTime())
	assert.True(t, s.AreChaptersVisible)
	assert.Equal(t, "Main", s.ActiveChapter.MustGet().Label)

	h.p.SeekToChapter(5)
	assert.True(t, h.p.Snapshot().AreChaptersVisible)
}

func TestSetMetadata(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Title = "Pilot" })
	h.el.setTimes(70, 100)
	h.el.emit(media.EventTimeUpdate)

	h.p.SetMetadata("Episode 2", "poster.jpg", []chapter.Chapter{{Time: 60, Label: "Credits"}})
	s := h.p.Snapshot()
	assert.Equal(t, "Episode 2", s.Title)
	assert.Equal(t, "poster.jpg", s.Poster)
	assert.Equal(t, "Credits", s.ActiveChapter.MustGet().Label)
}

func TestHoverLabel(t *testing.T) {
	h := newHarness(t, nil)
	h.el.setTimes(0, 8000)
	h.el.emit(media.EventLoadedMetadata)
	assert.Equal(t, "1:06:40", h.p.HoverLabel(0.5))
	assert.Equal(t, "20:00", h.p.HoverLabel(0.15))
	assert.Equal(t, "00:00", h.p.HoverLabel(-1))
}

func TestFullscreenFollowsChangeEvents(t *testing.T) {
	fs := &fakeFullscreen{}
	h := newHarness(t, func(o *Options) { o.Fullscreen = fs })

	h.p.ToggleFullscreen()
	assert.Eventually(t, func() bool { return h.p.Snapshot().IsFullScreen }, time.Second, time.Millisecond)

	h.p.HandleKey(Key{Name: "f"})
	assert.Eventually(t, func() bool { return !h.p.Snapshot().IsFullScreen }, time.Second, time.Millisecond)
}

func TestMiniPlayerFollowsElement(t *testing.T) {
	var h *harness
	pip := &fakePiP{}
	h = newHarness(t, func(o *Options) {
		pip.el = o.Element.(*fakeElement)
		o.PiP = pip
	})

	h.p.ToggleMiniPlayer()
	assert.Eventually(t, func() bool { return h.p.Snapshot().IsMiniPlayer }, time.Second, time.Millisecond)
	h.p.ToggleMiniPlayer()
	assert.Eventually(t, func() bool { return !h.p.Snapshot().IsMiniPlayer }, time.Second, time.Millisecond)
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	h := newHarness(t, nil)
	var calls atomic.Int32
	var last atomic.Value
	unsubscribe := h.p.Subscribe(func(s Snapshot) {
		calls.Add(1)
		last.Store(s.Volume)
	})

	h.p.SetVolume(0.2)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 0.2, last.Load())

	unsubscribe()
	h.p.SetVolume(0.3)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSubscribersEndOnLatestSnapshot(t *testing.T) {
	h := newHarness(t, nil)
	var (
		mu   sync.Mutex
		last Snapshot
	)
	unsubscribe := h.p.Subscribe(func(s Snapshot) {
		mu.Lock()
		last = s
		mu.Unlock()
	})
	defer unsubscribe()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				h.p.SetVolume(float64(g*50+i) / 400)
			}
		}(g)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, h.p.Snapshot(), last)
}

func TestCloseReleasesEverything(t *testing.T) {
	h := newHarness(t, nil)
	h.p.SetSource("video.m3u8")
	d := h.dec.last()
	h.el.setTimes(10, 100)
	h.p.TogglePlay()
	h.p.SeekForward()

	h.p.Close()
	assert.True(t, d.isDestroyed())
	assert.Nil(t, h.el.listener)

	before := h.p.Snapshot()
	h.clock.Advance(time.Minute)
	h.el.emit(media.EventPause)
	d.parse(media.Level{Height: 720})
	h.p.TogglePlay()

	assert.Equal(t, before, h.p.Snapshot())
	assert.Empty(t, h.el.seekLog())
	h.p.Close()
}
