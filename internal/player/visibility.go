package player

import "time"

// Idle timeout bounds for hiding the controls.
const (
	DefaultIdleTimeout = 3 * time.Second
	MinIdleTimeout     = 3 * time.Second
	MaxIdleTimeout     = 5 * time.Second
)

// controlsVisibility hides the on-screen controls after an idle period while
// playing with the settings menu closed.
type controlsVisibility struct {
	store *Store
	idle  time.Duration
	timer *timer
}

func (c *controlsVisibility) shouldHide() bool {
	playing, settingsOpen := c.store.playback()
	return playing && !settingsOpen
}

func (c *controlsVisibility) restart() {
	c.timer.Start(c.idle, func() {
		if c.shouldHide() {
			c.store.SetControlsVisible(false)
		}
	})
}

// pointerMove shows the controls and restarts the idle period.
func (c *controlsVisibility) pointerMove() {
	c.store.SetControlsVisible(true)
	c.restart()
}

// pointerLeave hides immediately when the idle condition already holds.
func (c *controlsVisibility) pointerLeave() {
	c.timer.Cancel()
	if c.shouldHide() {
		c.store.SetControlsVisible(false)
	}
}

// playbackChanged runs whenever playing or the settings menu changes state.
func (c *controlsVisibility) playbackChanged() {
	playing, _ := c.store.playback()
	if playing {
		c.restart()
		return
	}
	c.timer.Cancel()
	c.store.SetControlsVisible(true)
}

func clampIdle(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultIdleTimeout
	case d < MinIdleTimeout:
		return MinIdleTimeout
	case d > MaxIdleTimeout:
		return MaxIdleTimeout
	}
	return d
}
