// Package osd renders a player snapshot as ASS events for mpv's osd-overlay.
package osd

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
	"github.com/samber/lo"

	"github.com/depeter/reelplayer/internal/format"
	"github.com/depeter/reelplayer/internal/player"
)

// Canvas size the events are laid out on.
const (
	Width  = 1920
	Height = 1080
)

// Seek bar geometry in canvas coordinates.
const (
	barX = 200
	barW = 1520
	barY = 975
	barH = 6
	barR = 3

	// hitSlop widens the clickable band around the bar.
	hitSlop = 20
)

// ASS color format: &HAABBGGRR
const (
	assWhite    = "&H00FFFFFF"
	assWhiteDim = "&H60FFFFFF"
	assBlack    = "&H00000000"
	assPrimary  = "&H00DCA400"
	assBuffered = "&H40FFFFFF"
	assShadow   = "&H80000000"
	assError    = "&H004040E0"
)

// Text limits in cells.
const (
	titleWidth = 80
	errorWidth = 48
)

const fontUI = `\fnSegoe UI,Liberation Sans,sans-serif`

// SeekBarFraction maps a canvas point onto the seek bar. ok is false when the
// point is outside the bar's band.
func SeekBarFraction(x, y float64) (fraction float64, ok bool) {
	if y < barY-hitSlop || y > barY+hitSlop || x < barX || x > barX+barW {
		return 0, false
	}
	return (x - barX) / barW, true
}

// Render returns the overlay for s. It is empty when nothing is on screen.
func Render(s player.Snapshot) string {
	var b strings.Builder

	if msg, ok := s.Error.Get(); ok {
		renderError(&b, msg)
		return b.String()
	}
	if !s.HasStarted {
		renderStartPrompt(&b, s)
		return b.String()
	}

	if s.IsBuffering {
		text(&b, 5, Width/2, Height/2, 40, assWhite, "Buffering…")
	}
	renderSeekIndicator(&b, s.Seek)
	if s.AreControlsVisible {
		renderControls(&b, s)
	}
	if s.Settings.Open {
		renderSettings(&b, s)
	}
	if s.AreChaptersVisible && len(s.Chapters) > 0 {
		renderChapters(&b, s)
	}
	return b.String()
}

func text(b *strings.Builder, align, x, y, size int, color, s string) {
	fmt.Fprintf(b, "{\\an%d\\pos(%d,%d)\\bord0\\shad1\\3c%s\\fs%d\\1c%s%s}%s{\\r}\n",
		align, x, y, assShadow, size, color, fontUI, escape(s))
}

func shape(b *strings.Builder, align, x, y int, color, alpha, drawing string) {
	fmt.Fprintf(b, "{\\an%d\\pos(%d,%d)\\p1\\bord0\\shad0\\1c%s\\1a%s}%s{\\p0}\n",
		align, x, y, color, alpha, drawing)
}

// escape keeps user text from being read as override blocks.
func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, "{", `\{`, "}", `\}`, "\n", `\N`).Replace(s)
}

func shortTitle(title string) string {
	return truncate.StringWithTail(title, titleWidth, "…")
}

func renderError(b *strings.Builder, msg string) {
	shape(b, 5, Width/2, Height/2, assBlack, "&H40&", assRoundRect(0, 0, 900, 160, 16))
	text(b, 5, Width/2, Height/2-25, 44, assError, "⚠")
	text(b, 5, Width/2, Height/2+30, 32, assWhite, wordwrap.String(msg, errorWidth))
}

func renderStartPrompt(b *strings.Builder, s player.Snapshot) {
	shape(b, 5, Width/2, Height/2, assPrimary, "&H20&", assCircle(0, 0, 70))
	text(b, 5, Width/2+6, Height/2, 72, assWhite, "▶")
	if s.Title != "" {
		text(b, 5, Width/2, Height/2+130, 36, assWhite, shortTitle(s.Title))
	}
}

func renderSeekIndicator(b *strings.Builder, ind player.SeekIndicator) {
	if ind.Direction == player.SeekNone {
		return
	}
	x, icon := Width*3/4, "»"
	if ind.Direction == player.SeekBackward {
		x, icon = Width/4, "«"
	}
	shape(b, 5, x, Height/2, assBlack, "&H60&", assCircle(0, 0, 90))
	text(b, 5, x, Height/2-20, 48, assWhite, icon)
	text(b, 5, x, Height/2+35, 28, assWhite, fmt.Sprintf("%+ds", ind.Seconds))
}

func renderControls(b *strings.Builder, s player.Snapshot) {
	shape(b, 5, Width/2, 1010, assBlack, "&H40&", fmt.Sprintf("m 0 0 l %d 0 l %d 140 l 0 140", Width, Width))
	if s.Title != "" {
		text(b, 7, 60, 40, 34, assWhite, shortTitle(s.Title))
	}

	// buffered, then played, then the scrubber on top
	top := barY - barH/2
	shape(b, 7, barX, top, assWhite, "&H80&", assRoundRect(0, 0, barW, barH, barR))
	if w := int(float64(barW) * lo.Clamp(s.Buffered, 0, 100) / 100); w > 0 {
		shape(b, 7, barX, top, assBuffered, "&H00&", assRoundRect(0, 0, max(w, barR*2), barH, barR))
	}
	played := int(float64(barW) * lo.Clamp(s.Progress, 0, 100) / 100)
	if played > 0 {
		shape(b, 7, barX, top, assPrimary, "&H00&", assRoundRect(0, 0, max(played, barR*2), barH, barR))
	}
	for _, c := range s.Chapters {
		if s.Duration <= 0 || c.Time <= 0 || c.Time >= s.Duration {
			continue
		}
		shape(b, 7, barX+int(float64(barW)*c.Time/s.Duration)-1, top, assBlack, "&H00&", "m 0 0 l 2 0 l 2 6 l 0 6")
	}
	shape(b, 5, barX+played, barY, assWhite, "&H00&", assCircle(0, 0, 10))

	icon := "❚❚"
	if !s.IsPlaying {
		icon = "▶"
	}
	text(b, 4, 60, 1000, 42, assWhite, icon)
	text(b, 4, 120, 1003, 28, assWhite, s.TimeLabel)
	if ch, ok := s.ActiveChapter.Get(); ok {
		text(b, 4, 420, 1003, 26, assWhiteDim, "• "+ch.Label)
	}

	status := []string{volumeLabel(s), s.QualityLabel}
	if s.PlaybackSpeed != 1 {
		status = append(status, s.SpeedLabel)
	}
	if s.AreSubtitlesEnabled {
		status = append(status, "CC")
	}
	if s.IsAutoplayEnabled {
		status = append(status, "Autoplay")
	}
	if s.PlaylistLength > 1 {
		status = append(status, fmt.Sprintf("%d/%d", s.PlaylistIndex+1, s.PlaylistLength))
	}
	text(b, 6, 1860, 1003, 24, assWhiteDim, strings.Join(status, "   "))
}

func volumeLabel(s player.Snapshot) string {
	if s.IsMuted() {
		return "Muted"
	}
	return fmt.Sprintf("Vol %d%%", int(s.Volume*100+0.5))
}

func renderSettings(b *strings.Builder, s player.Snapshot) {
	var rows []string
	switch s.Settings.Page {
	case player.PageSpeed:
		rows = lo.Map(s.Settings.Speeds, func(v float64, _ int) string {
			return marked(v == s.PlaybackSpeed, format.SpeedLabel(v))
		})
	case player.PageQuality:
		rows = append(rows, marked(s.CurrentQuality == player.AutoQuality, "Auto"))
		for _, q := range s.Settings.Qualities {
			rows = append(rows, marked(q.Index == s.CurrentQuality, q.Label))
		}
	default:
		rows = []string{
			"Speed   " + s.SpeedLabel,
			"Quality   " + s.QualityLabel,
		}
	}

	h := 40 + len(rows)*44
	shape(b, 3, 1860, 930, assBlack, "&H30&", assRoundRect(0, 0, 380, h, 12))
	for i, r := range rows {
		text(b, 4, 1500, 930-h+40+i*44, 28, assWhite, r)
	}
}

func marked(on bool, label string) string {
	if on {
		return "✓ " + label
	}
	return "   " + label
}

func renderChapters(b *strings.Builder, s player.Snapshot) {
	active, hasActive := s.ActiveChapter.Get()
	h := 60 + len(s.Chapters)*40
	shape(b, 7, 40, 100, assBlack, "&H30&", assRoundRect(0, 0, 520, h, 12))
	text(b, 7, 70, 120, 30, assWhite, "Chapters")
	for i, c := range s.Chapters {
		color := assWhiteDim
		if hasActive && c.Time == active.Time {
			color = assPrimary
		}
		text(b, 7, 70, 170+i*40, 26, color, format.FormatTime(c.Time)+"  "+c.Label)
	}
}

// assRoundRect draws a rounded rectangle relative to the \pos anchor.
func assRoundRect(x, y, w, h, r int) string {
	r = min(r, h/2, w/2)
	return fmt.Sprintf(
		"m %d %d l %d %d b %d %d %d %d %d %d l %d %d b %d %d %d %d %d %d l %d %d b %d %d %d %d %d %d l %d %d b %d %d %d %d %d %d",
		x+r, y,
		x+w-r, y,
		x+w, y, x+w, y, x+w, y+r,
		x+w, y+h-r,
		x+w, y+h, x+w, y+h, x+w-r, y+h,
		x+r, y+h,
		x, y+h, x, y+h, x, y+h-r,
		x, y+r,
		x, y, x, y, x+r, y,
	)
}

// assCircle approximates a circle with four cubic beziers.
func assCircle(cx, cy, r int) string {
	k := r * 55 / 100
	return fmt.Sprintf(
		"m %d %d b %d %d %d %d %d %d b %d %d %d %d %d %d b %d %d %d %d %d %d b %d %d %d %d %d %d",
		cx, cy-r,
		cx+k, cy-r, cx+r, cy-k, cx+r, cy,
		cx+r, cy+k, cx+k, cy+r, cx, cy+r,
		cx-k, cy+r, cx-r, cy+k, cx-r, cy,
		cx-r, cy-k, cx-k, cy-r, cx, cy-r,
	)
}
