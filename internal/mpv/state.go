package mpv

import "github.com/depeter/reelplayer/internal/media"

// playbackState mirrors the observed mpv properties and turns their changes
// into element events. It holds no libmpv handle so it can be driven directly.
type playbackState struct {
	position float64
	duration float64
	cacheEnd float64

	loading   bool
	paused    bool
	buffering bool
	eof       bool

	fullscreen bool
	ontop      bool
}

func newPlaybackState() playbackState {
	return playbackState{paused: true}
}

func asFlag(data any) (bool, bool) {
	switch v := data.(type) {
	case bool:
		return v, true
	case int:
		return v == 1, true
	case int64:
		return v == 1, true
	}
	return false, false
}

func asDouble(data any) (float64, bool) {
	switch v := data.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// property applies one property change. fsChanged reports a fullscreen toggle.
func (s *playbackState) property(name string, data any) (events []media.EventType, fsChanged bool) {
	switch name {
	case "time-pos":
		if v, ok := asDouble(data); ok {
			s.position = v
			events = append(events, media.EventTimeUpdate)
		}
	case "duration":
		if v, ok := asDouble(data); ok && v != s.duration {
			s.duration = v
			if v > 0 {
				events = append(events, media.EventLoadedMetadata)
			}
		}
	case "demuxer-cache-time":
		if v, ok := asDouble(data); ok {
			s.cacheEnd = v
			events = append(events, media.EventProgress)
		}
	case "pause":
		if v, ok := asFlag(data); ok && v != s.paused {
			s.paused = v
			if v {
				events = append(events, media.EventPause)
			} else {
				events = append(events, media.EventPlay)
				if !s.buffering {
					events = append(events, media.EventPlaying)
				}
			}
		}
	case "paused-for-cache":
		if v, ok := asFlag(data); ok && v != s.buffering {
			s.buffering = v
			if v {
				events = append(events, media.EventWaiting)
			} else if !s.paused {
				events = append(events, media.EventPlaying)
			}
		}
	case "eof-reached":
		if v, ok := asFlag(data); ok && v != s.eof {
			s.eof = v
			if v && !s.loading {
				events = append(events, media.EventEnded)
			}
		}
	case "fullscreen":
		if v, ok := asFlag(data); ok && v != s.fullscreen {
			s.fullscreen = v
			fsChanged = true
		}
	case "ontop":
		if v, ok := asFlag(data); ok && v != s.ontop {
			s.ontop = v
			if v {
				events = append(events, media.EventEnterPictureInPicture)
			} else {
				events = append(events, media.EventLeavePictureInPicture)
			}
		}
	}
	return events, fsChanged
}

// load resets the per-file fields when a new source is assigned.
func (s *playbackState) load() {
	s.loading = true
	s.position = 0
	s.duration = 0
	s.cacheEnd = 0
	s.eof = false
}

func (s *playbackState) buffered() []media.TimeRange {
	if s.cacheEnd <= 0 {
		return nil
	}
	return []media.TimeRange{{Start: min(s.position, s.cacheEnd), End: s.cacheEnd}}
}
