package player

import (
	"math"
	"slices"
	"sync"

	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/depeter/reelplayer/internal/media"
)

// Default values applied at construction and on every reset.
const (
	DefaultVolume = 0.9
	DefaultSpeed  = 1.0
	AutoQuality   = -1
)

// State is the playback and UI state of one player.
type State struct {
	IsPlaying   bool
	CurrentTime float64
	Duration    float64
	Progress    float64 // percent of Duration
	Buffered    float64 // percent of Duration

	Volume     float64
	LastVolume float64

	PlaybackSpeed float64

	AvailableQualities []media.Level
	CurrentQuality     int

	IsFullScreen        bool
	IsMiniPlayer        bool
	IsTheaterMode       bool
	IsSettingsOpen      bool
	AreSubtitlesEnabled bool
	AreControlsVisible  bool
	AreChaptersVisible  bool
	HasStarted          bool
	IsBuffering         bool

	Error mo.Option[string]

	IsAutoplayEnabled bool
}

// IsMuted is derived from the volume.
func (s State) IsMuted() bool {
	return s.Volume == 0
}

func initialState() State {
	return State{
		Volume:             DefaultVolume,
		LastVolume:         DefaultVolume,
		PlaybackSpeed:      DefaultSpeed,
		CurrentQuality:     AutoQuality,
		AreControlsVisible: true,
		Error:              mo.None[string](),
	}
}

// Store owns a State and the transitions allowed on it. Every method is a
// single atomic step; invalid input is corrected or ignored.
type Store struct {
	mu sync.RWMutex
	s  State
}

// NewStore returns a store holding the default state.
func NewStore() *Store {
	return &Store{s: initialState()}
}

// Snapshot returns a copy that shares nothing with the store.
func (st *Store) Snapshot() State {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s := st.s
	s.AvailableQualities = slices.Clone(st.s.AvailableQualities)
	return s
}

func (st *Store) update(fn func(s *State)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	fn(&st.s)
}

func (st *Store) read(fn func(s *State)) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	fn(&st.s)
}

// Reset restores the defaults for a new source. Autoplay survives.
func (st *Store) Reset() {
	st.update(func(s *State) {
		autoplay := s.IsAutoplayEnabled
		*s = initialState()
		s.IsAutoplayEnabled = autoplay
	})
}

func clampVolume(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return lo.Clamp(v, 0, 1)
}

// SetVolume stores v clamped to [0,1]. LastVolume is untouched.
func (st *Store) SetVolume(v float64) {
	st.update(func(s *State) { s.Volume = clampVolume(v) })
}

// ToggleMute mutes while remembering the volume, or restores it.
func (st *Store) ToggleMute() {
	st.update(func(s *State) {
		if s.Volume > 0 {
			s.LastVolume = s.Volume
			s.Volume = 0
			return
		}
		s.Volume = s.LastVolume
	})
}

// TogglePlay flips the requested playing state and latches HasStarted.
func (st *Store) TogglePlay() {
	st.update(func(s *State) {
		s.HasStarted = true
		s.IsPlaying = !s.IsPlaying
	})
}

func (st *Store) ToggleAutoplay() {
	st.update(func(s *State) { s.IsAutoplayEnabled = !s.IsAutoplayEnabled })
}

// SetPlaybackSpeed stores speed and closes the settings menu in one step.
// Non-positive speeds are ignored.
func (st *Store) SetPlaybackSpeed(speed float64) {
	if !(speed > 0) || math.IsInf(speed, 0) {
		return
	}
	st.update(func(s *State) {
		s.PlaybackSpeed = speed
		s.IsSettingsOpen = false
	})
}

// SetCurrentQuality accepts AutoQuality or an index into AvailableQualities
// and closes the settings menu. It returns false when index was ignored.
func (st *Store) SetCurrentQuality(index int) bool {
	ok := false
	st.update(func(s *State) {
		if index != AutoQuality && (index < 0 || index >= len(s.AvailableQualities)) {
			return
		}
		ok = true
		s.CurrentQuality = index
		s.IsSettingsOpen = false
	})
	return ok
}

func (st *Store) SetPlaying(playing bool) {
	st.update(func(s *State) { s.IsPlaying = playing })
}

// SetTimeUpdate records the position reported together with the element's
// duration at that moment.
func (st *Store) SetTimeUpdate(currentTime, duration float64) {
	if !(duration > 0) || math.IsInf(duration, 0) {
		return
	}
	st.update(func(s *State) {
		s.CurrentTime = lo.Clamp(currentTime, 0, duration)
		s.Progress = s.CurrentTime / duration * 100
	})
}

// SetBuffered records the end of the last buffered range.
func (st *Store) SetBuffered(end, duration float64) {
	if !(duration > 0) || math.IsInf(duration, 0) {
		return
	}
	st.update(func(s *State) { s.Buffered = lo.Clamp(end/duration*100, 0, 100) })
}

func (st *Store) SetDuration(d float64) {
	if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		return
	}
	st.update(func(s *State) {
		s.Duration = d
		if d > 0 && s.CurrentTime > d {
			s.CurrentTime = d
			s.Progress = 100
		}
	})
}

func (st *Store) SetBuffering(buffering bool) {
	st.update(func(s *State) { s.IsBuffering = buffering })
}

// SetError records a user-visible error. An empty message clears it.
func (st *Store) SetError(msg string) {
	st.update(func(s *State) {
		if msg == "" {
			s.Error = mo.None[string]()
			return
		}
		s.Error = mo.Some(msg)
	})
}

// SetAvailableQualities stores a copy of levels in decoder order.
func (st *Store) SetAvailableQualities(levels []media.Level) {
	st.update(func(s *State) {
		s.AvailableQualities = slices.Clone(levels)
		if s.CurrentQuality >= len(s.AvailableQualities) {
			s.CurrentQuality = AutoQuality
		}
	})
}

func (st *Store) SetFullScreen(v bool) {
	st.update(func(s *State) { s.IsFullScreen = v })
}

func (st *Store) SetMiniPlayer(v bool) {
	st.update(func(s *State) { s.IsMiniPlayer = v })
}

func (st *Store) ToggleTheaterMode() {
	st.update(func(s *State) { s.IsTheaterMode = !s.IsTheaterMode })
}

func (st *Store) SetSettingsOpen(open bool) {
	st.update(func(s *State) { s.IsSettingsOpen = open })
}

func (st *Store) SetSubtitlesEnabled(v bool) {
	st.update(func(s *State) { s.AreSubtitlesEnabled = v })
}

func (st *Store) SetControlsVisible(v bool) {
	st.update(func(s *State) { s.AreControlsVisible = v })
}

func (st *Store) ToggleChapters() {
	st.update(func(s *State) { s.AreChaptersVisible = !s.AreChaptersVisible })
}

// playback returns the two fields the controls timer depends on.
func (st *Store) playback() (playing, settingsOpen bool) {
	st.read(func(s *State) {
		playing, settingsOpen = s.IsPlaying, s.IsSettingsOpen
	})
	return
}
