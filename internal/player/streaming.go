package player

import (
	"github.com/sirupsen/logrus"

	"github.com/depeter/reelplayer/internal/media"
)

// Phase of the streaming adapter for the current source.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseReady
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// User-visible error messages.
const (
	MsgNetworkError     = "This video could not be loaded."
	MsgMediaError       = "An error occurred while playing the video."
	MsgUnexpectedError  = "An unexpected error occurred."
	MsgUnsupportedError = "This video format is not supported."
)

// streaming owns the decoder for the current source. At most one decoder
// exists at a time; the previous one is destroyed before a new one is made.
type streaming struct {
	factory media.DecoderFactory
	el      media.Element
	store   *Store
	exec    func(func())
	log     *logrus.Entry

	decoder   media.Decoder
	recovered bool
	phase     Phase
	src       string
}

// load switches to src. An empty src only tears down the current decoder.
func (s *streaming) load(src string) {
	s.destroy()
	s.src = src
	s.recovered = false
	if src == "" {
		s.phase = PhaseIdle
		return
	}

	s.phase = PhaseLoading
	s.store.SetBuffering(true)
	log := s.log.WithField("src", src)

	if !media.IsManifestURL(src) {
		s.assign(src, "progressive source")
		return
	}

	if s.factory != nil && s.factory.Supported() {
		d := s.factory.New()
		s.decoder = d
		d.OnManifestParsed(func(levels []media.Level) {
			s.exec(func() {
				if s.decoder != d {
					return
				}
				log.WithField("levels", len(levels)).Debug("manifest parsed")
				s.store.SetAvailableQualities(levels)
				s.phase = PhaseReady
			})
		})
		d.OnError(func(e media.DecoderError) {
			s.exec(func() {
				if s.decoder != d {
					return
				}
				s.handleError(e)
			})
		})
		d.LoadSource(src)
		d.AttachMedia(s.el)
		return
	}

	if s.el.CanPlayType(media.MimeHLS) {
		s.assign(src, "native manifest playback")
		return
	}

	log.Warn("no playback path for source")
	s.store.SetError(MsgUnsupportedError)
	s.phase = PhaseFailed
}

func (s *streaming) assign(src, reason string) {
	log := s.log.WithField("src", src)
	if err := s.el.SetSource(src); err != nil {
		log.WithError(err).Error("assign source")
		s.store.SetError(MsgNetworkError)
		s.phase = PhaseFailed
		return
	}
	log.Debug(reason)
	s.phase = PhaseReady
}

func (s *streaming) handleError(e media.DecoderError) {
	log := s.log.WithFields(logrus.Fields{"type": e.Type.String(), "details": e.Details})
	if !e.Fatal {
		log.WithError(e.Err).Debug("decoder error")
		return
	}
	log.WithError(e.Err).Error("fatal decoder error")

	switch e.Type {
	case media.ErrorNetwork:
		s.store.SetError(MsgNetworkError)
		s.fail()
	case media.ErrorMedia:
		s.store.SetError(MsgMediaError)
		if s.recovered {
			s.fail()
			return
		}
		s.recovered = true
		s.decoder.RecoverMediaError()
	default:
		s.store.SetError(MsgUnexpectedError)
		s.fail()
	}
}

// elementError handles errors the element raises while no decoder is active.
func (s *streaming) elementError(err error) {
	if s.decoder != nil || s.phase != PhaseReady {
		return
	}
	s.log.WithError(err).Error("media element failed")
	s.store.SetError(MsgMediaError)
	s.phase = PhaseFailed
}

func (s *streaming) fail() {
	s.destroy()
	s.phase = PhaseFailed
}

// selectLevel forwards a quality choice; AutoQuality re-enables adaptation.
func (s *streaming) selectLevel(index int) {
	if s.decoder != nil {
		s.decoder.SetCurrentLevel(index)
	}
}

// activeLevel is the index the decoder is currently playing, or -1.
func (s *streaming) activeLevel() int {
	if s.decoder == nil {
		return -1
	}
	return s.decoder.CurrentLevel()
}

func (s *streaming) destroy() {
	if s.decoder != nil {
		d := s.decoder
		s.decoder = nil
		d.Destroy()
	}
}
