package media

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Level is one selectable encoded variant of a stream.
type Level struct {
	Height    int
	Width     int
	Bandwidth int
	Codecs    string
	URL       string
}

// ErrorType classifies decoder failures.
type ErrorType int

const (
	ErrorNetwork ErrorType = iota
	ErrorMedia
	ErrorOther
)

func (t ErrorType) String() string {
	switch t {
	case ErrorNetwork:
		return "network"
	case ErrorMedia:
		return "media"
	default:
		return "other"
	}
}

// DecoderError is reported by a Decoder through its error callback.
type DecoderError struct {
	Type    ErrorType
	Fatal   bool
	Details string
	Err     error
}

func (e DecoderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error (%s): %v", e.Type, e.Details, e.Err)
	}
	return fmt.Sprintf("%s error (%s)", e.Type, e.Details)
}

func (e DecoderError) Unwrap() error { return e.Err }

// Decoder is an adaptive streaming decoder bound to one source.
// Callbacks may run on any goroutine. Once Destroy has been called no new
// callback starts; one already running may still finish.
type Decoder interface {
	LoadSource(url string)
	AttachMedia(el Element)
	Destroy()

	Levels() []Level
	// CurrentLevel is the index being played, or -1 while unknown.
	CurrentLevel() int
	// SetCurrentLevel pins a level; -1 hands selection back to the decoder.
	SetCurrentLevel(index int)
	RecoverMediaError()

	OnManifestParsed(fn func(levels []Level))
	OnError(fn func(err DecoderError))
}

// DecoderFactory creates one Decoder per source.
type DecoderFactory interface {
	Supported() bool
	New() Decoder
}

// IsManifestURL reports whether u points at an HLS manifest.
func IsManifestURL(u string) bool {
	p := u
	if parsed, err := url.Parse(u); err == nil && parsed.Path != "" {
		p = parsed.Path
	}
	return strings.EqualFold(path.Ext(p), ".m3u8") || strings.EqualFold(path.Ext(p), ".m3u")
}
