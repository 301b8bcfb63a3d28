package app

import "time"

// doubleClickWindow is how long a click waits for a second one before it
// counts as a single click.
const doubleClickWindow = 300 * time.Millisecond

type clickAction int

const (
	clickNone clickAction = iota
	clickTogglePlay
	clickSeekBackward
	clickSeekForward
)

// clickTracker turns presses on the video into play toggles and double-click
// seeks. A single click is only reported once the window has passed without a
// second press; every further press within the window of the previous one
// seeks again.
type clickTracker struct {
	window  time.Duration
	last    time.Time
	right   bool
	pending bool
	streak  bool
}

func newClickTracker() *clickTracker {
	return &clickTracker{window: doubleClickWindow}
}

func seekAction(right bool) clickAction {
	if right {
		return clickSeekForward
	}
	return clickSeekBackward
}

// press registers a click on the right or left half of the video.
func (c *clickTracker) press(now time.Time, right bool) clickAction {
	within := now.Sub(c.last) <= c.window
	if (c.pending || c.streak) && within && right == c.right {
		c.pending = false
		c.streak = true
		c.last = now
		return seekAction(right)
	}
	c.pending = true
	c.streak = false
	c.right = right
	c.last = now
	return clickNone
}

// tick reports the deferred single click once its window has expired.
func (c *clickTracker) tick(now time.Time) clickAction {
	if now.Sub(c.last) <= c.window {
		return clickNone
	}
	c.streak = false
	if c.pending {
		c.pending = false
		return clickTogglePlay
	}
	return clickNone
}

// pointerTracker follows the cursor across frames.
type pointerTracker struct {
	x, y   int
	inside bool
}

// update records the cursor position for a w×h window. moved is set when the
// cursor is inside and has moved, or just entered; left when it has just
// gone out of the window or the window lost focus.
func (p *pointerTracker) update(x, y, w, h int, focused bool) (moved, left bool) {
	inside := focused && x >= 0 && y >= 0 && x < w && y < h
	switch {
	case inside && (!p.inside || x != p.x || y != p.y):
		moved = true
	case !inside && p.inside:
		left = true
	}
	p.x, p.y, p.inside = x, y, inside
	return moved, left
}

// toCanvas maps window coordinates onto a cw×ch canvas.
func toCanvas(x, y, w, h, cw, ch int) (float64, float64) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	return float64(x) * float64(cw) / float64(w), float64(y) * float64(ch) / float64(h)
}
