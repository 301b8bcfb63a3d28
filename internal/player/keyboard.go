package player

import "strings"

// Key is a key press delivered to the player.
type Key struct {
	// Name is the key value: a character such as "k" or " ", or a named key
	// such as "ArrowLeft".
	Name  string
	Shift bool
	Ctrl  bool
	Alt   bool
	Meta  bool
	// InTextField is set when focus is inside a text input.
	InTextField bool
}

// VolumeStep is the change applied by ArrowUp/ArrowDown.
const VolumeStep = 0.05

// shortcutActions is what the dispatcher drives. Methods run on the player's
// executor.
type shortcutActions interface {
	togglePlay()
	next()
	previous()
	toggleMute()
	toggleFullscreen()
	toggleSubtitles()
	toggleTheaterMode()
	toggleMiniPlayer()
	seekGesture(dir SeekDirection)
	adjustVolume(delta float64)
	seekToPercentage(pct float64)
}

// dispatchKey maps k onto actions. It reports whether the key was used and
// whether the host should suppress its default behavior.
func dispatchKey(a shortcutActions, k Key) (handled, preventDefault bool) {
	if k.InTextField || k.Meta || k.Ctrl || k.Alt {
		return false, false
	}

	switch k.Name {
	case " ":
		a.togglePlay()
		return true, true
	case "ArrowRight":
		a.seekGesture(SeekForward)
		return true, false
	case "ArrowLeft":
		a.seekGesture(SeekBackward)
		return true, false
	case "ArrowUp":
		a.adjustVolume(VolumeStep)
		return true, true
	case "ArrowDown":
		a.adjustVolume(-VolumeStep)
		return true, true
	}

	if len(k.Name) != 1 {
		return false, false
	}
	if c := k.Name[0]; c >= '0' && c <= '9' {
		a.seekToPercentage(float64(c-'0') * 10)
		return true, false
	}

	switch strings.ToLower(k.Name) {
	case "k":
		a.togglePlay()
		return true, true
	case "n":
		if !k.Shift {
			return false, false
		}
		a.next()
	case "p":
		if !k.Shift {
			return false, false
		}
		a.previous()
	case "m":
		a.toggleMute()
	case "f":
		a.toggleFullscreen()
	case "c":
		a.toggleSubtitles()
	case "t":
		a.toggleTheaterMode()
	case "i":
		a.toggleMiniPlayer()
	case "l":
		a.seekGesture(SeekForward)
	case "j":
		a.seekGesture(SeekBackward)
	default:
		return false, false
	}
	return true, false
}
