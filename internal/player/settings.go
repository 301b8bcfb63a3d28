package player

import (
	"slices"

	"github.com/depeter/reelplayer/internal/format"
)

// SettingsPage is the visible page of the settings menu.
type SettingsPage int

const (
	PageMain SettingsPage = iota
	PageSpeed
	PageQuality
)

func (p SettingsPage) String() string {
	switch p {
	case PageSpeed:
		return "speed"
	case PageQuality:
		return "quality"
	default:
		return "main"
	}
}

// SpeedOptions are the playback rates offered by the settings menu.
var SpeedOptions = []float64{0.5, 0.75, 1, 1.25, 1.5, 2}

// SettingsView is the settings menu as the presentation sees it.
type SettingsView struct {
	Open      bool
	Page      SettingsPage
	Speeds    []float64
	Qualities []format.QualityOption
}

// settingsMenu tracks the page of the settings menu. Open/closed lives in the
// store; the page resets to main each time the menu opens.
type settingsMenu struct {
	store *Store
	page  SettingsPage
}

func (m *settingsMenu) toggle() {
	_, open := m.store.playback()
	m.page = PageMain
	m.store.SetSettingsOpen(!open)
}

func (m *settingsMenu) close() {
	m.page = PageMain
	m.store.SetSettingsOpen(false)
}

func (m *settingsMenu) show(page SettingsPage) {
	if _, open := m.store.playback(); !open {
		return
	}
	m.page = page
}

// pointerDown closes the menu when the press lands outside the player.
func (m *settingsMenu) pointerDown(insidePlayer bool) {
	if _, open := m.store.playback(); open && !insidePlayer {
		m.close()
	}
}

func (m *settingsMenu) view(s State) SettingsView {
	if !s.IsSettingsOpen {
		return SettingsView{Page: PageMain}
	}
	return SettingsView{
		Open:      true,
		Page:      m.page,
		Speeds:    slices.Clone(SpeedOptions),
		Qualities: format.QualityOptions(s.AvailableQualities),
	}
}
