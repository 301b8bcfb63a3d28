// Package format renders playback values for display.
package format

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/samber/lo"

	"github.com/depeter/reelplayer/internal/media"
)

// FormatTime formats seconds into "H:MM:SS" or "MM:SS".
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// SpeedLabel returns "Normal" for 1x and "<speed>x" otherwise.
func SpeedLabel(speed float64) string {
	if speed == 1 {
		return "Normal"
	}
	return strconv.FormatFloat(speed, 'f', -1, 64) + "x"
}

// QualityLabel describes the selected quality. current is the stored
// selection (-1 = automatic) and active the level the decoder is playing.
func QualityLabel(current int, levels []media.Level, active int) string {
	if current == -1 {
		if active >= 0 && active < len(levels) {
			return fmt.Sprintf("Auto (%dp)", levels[active].Height)
		}
		return "Auto (...p)"
	}
	if current >= 0 && current < len(levels) {
		return fmt.Sprintf("%dp", levels[current].Height)
	}
	return "Auto (...p)"
}

// QualityOption is a display entry that remembers its canonical index.
type QualityOption struct {
	Index  int
	Height int
	Label  string
}

// QualityOptions returns levels sorted by descending height for display.
// The input is left untouched.
func QualityOptions(levels []media.Level) []QualityOption {
	opts := lo.Map(levels, func(l media.Level, i int) QualityOption {
		return QualityOption{Index: i, Height: l.Height, Label: fmt.Sprintf("%dp", l.Height)}
	})
	sort.SliceStable(opts, func(i, j int) bool { return opts[i].Height > opts[j].Height })
	return opts
}
