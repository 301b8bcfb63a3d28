// Package media describes the capability surface a player drives: the media
// element, the fullscreen and picture-in-picture primitives, and the adaptive
// streaming decoder. Implementations live elsewhere (libmpv, HLS).
package media

import "context"

// EventType identifies an element event.
type EventType int

const (
	EventPlay EventType = iota
	EventPause
	EventEnded
	EventTimeUpdate
	EventProgress
	EventLoadedMetadata
	EventWaiting
	EventStalled
	EventPlaying
	EventEnterPictureInPicture
	EventLeavePictureInPicture
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventPlay:
		return "play"
	case EventPause:
		return "pause"
	case EventEnded:
		return "ended"
	case EventTimeUpdate:
		return "timeupdate"
	case EventProgress:
		return "progress"
	case EventLoadedMetadata:
		return "loadedmetadata"
	case EventWaiting:
		return "waiting"
	case EventStalled:
		return "stalled"
	case EventPlaying:
		return "playing"
	case EventEnterPictureInPicture:
		return "enterpictureinpicture"
	case EventLeavePictureInPicture:
		return "leavepictureinpicture"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a single notification from an Element. Handlers read the
// element's properties when they need values; Err is set for EventError.
type Event struct {
	Type EventType
	Err  error
}

// TimeRange is a buffered span in seconds.
type TimeRange struct {
	Start, End float64
}

// TrackMode is the visibility of a text track.
type TrackMode int

const (
	TrackHidden TrackMode = iota
	TrackShowing
)

// MimeHLS is the manifest type checked before falling back to native playback.
const MimeHLS = "application/vnd.apple.mpegurl"

// Element is the media playback surface.
type Element interface {
	CurrentTime() float64
	SetCurrentTime(seconds float64)
	Duration() float64
	Volume() float64
	SetVolume(v float64)
	PlaybackRate() float64
	SetPlaybackRate(rate float64)
	Paused() bool

	// Play may be refused by the host (autoplay policy, nothing loaded).
	Play() error
	Pause() error

	Buffered() []TimeRange
	TextTracks() int
	SetTextTrackMode(index int, mode TrackMode) error

	CanPlayType(mime string) bool
	SetSource(url string) error

	// Subscribe registers fn for every event, in emission order.
	Subscribe(fn func(Event)) (unsubscribe func())
}

// Fullscreen is the host's fullscreen capability.
type Fullscreen interface {
	Enabled() bool
	Active() bool
	Request(ctx context.Context) error
	Exit(ctx context.Context) error
	OnChange(fn func(active bool)) (unsubscribe func())
}

// PictureInPicture is the host's mini-player capability. Entering and leaving
// are reported through element events.
type PictureInPicture interface {
	Supported() bool
	Active() bool
	Request(ctx context.Context) error
	Exit(ctx context.Context) error
}
