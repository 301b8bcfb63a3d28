package player

import "time"

// SeekDirection is the visible direction of a cumulative seek.
type SeekDirection int

const (
	SeekNone SeekDirection = iota
	SeekForward
	SeekBackward
)

func (d SeekDirection) String() string {
	switch d {
	case SeekForward:
		return "forward"
	case SeekBackward:
		return "backward"
	default:
		return "none"
	}
}

// Cumulative seek defaults.
const (
	DefaultSeekStep   = 10
	DefaultSeekQuiet  = 800 * time.Millisecond
	DefaultSeekLinger = 400 * time.Millisecond
)

// cumulativeSeek coalesces rapid seek gestures into one relative seek that
// commits after a quiet period.
type cumulativeSeek struct {
	step   int
	quiet  time.Duration
	linger time.Duration
	apply  func(delta float64)

	commit    *timer
	indicator *timer

	total     int
	shown     int
	direction SeekDirection
}

// gesture adds one step in dir and restarts the quiet period.
func (c *cumulativeSeek) gesture(dir SeekDirection) {
	switch dir {
	case SeekForward:
		c.total += c.step
	case SeekBackward:
		c.total -= c.step
	default:
		return
	}
	c.direction = dir
	c.shown = c.total
	c.indicator.Cancel()
	c.commit.Start(c.quiet, c.fire)
}

func (c *cumulativeSeek) fire() {
	delta := c.total
	c.total = 0
	c.apply(float64(delta))
	c.indicator.Start(c.linger, func() {
		c.direction = SeekNone
		c.shown = 0
	})
}

// indicatorState is what the presentation shows: the direction and the
// accumulated seconds, kept until the indicator has animated out.
func (c *cumulativeSeek) indicatorState() (SeekDirection, int) {
	return c.direction, c.shown
}

// pending is the accumulated delta not yet applied.
func (c *cumulativeSeek) pending() int {
	return c.total
}
