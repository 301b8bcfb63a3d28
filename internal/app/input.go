package app

import (
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/depeter/reelplayer/internal/player"
)

// keyNames maps ebiten keys to the key values the player understands.
var keyNames = map[ebiten.Key]string{
	ebiten.KeySpace:      " ",
	ebiten.KeyArrowLeft:  "ArrowLeft",
	ebiten.KeyArrowRight: "ArrowRight",
	ebiten.KeyArrowUp:    "ArrowUp",
	ebiten.KeyArrowDown:  "ArrowDown",
	ebiten.KeyEscape:     "Escape",
	ebiten.KeyBackspace:  "Backspace",
	ebiten.KeyA:          "a",
	ebiten.KeyB:          "b",
	ebiten.KeyC:          "c",
	ebiten.KeyD:          "d",
	ebiten.KeyE:          "e",
	ebiten.KeyF:          "f",
	ebiten.KeyG:          "g",
	ebiten.KeyH:          "h",
	ebiten.KeyI:          "i",
	ebiten.KeyJ:          "j",
	ebiten.KeyK:          "k",
	ebiten.KeyL:          "l",
	ebiten.KeyM:          "m",
	ebiten.KeyN:          "n",
	ebiten.KeyO:          "o",
	ebiten.KeyP:          "p",
	ebiten.KeyQ:          "q",
	ebiten.KeyR:          "r",
	ebiten.KeyS:          "s",
	ebiten.KeyT:          "t",
	ebiten.KeyU:          "u",
	ebiten.KeyV:          "v",
	ebiten.KeyW:          "w",
	ebiten.KeyX:          "x",
	ebiten.KeyY:          "y",
	ebiten.KeyZ:          "z",
	ebiten.KeyDigit0:     "0",
	ebiten.KeyDigit1:     "1",
	ebiten.KeyDigit2:     "2",
	ebiten.KeyDigit3:     "3",
	ebiten.KeyDigit4:     "4",
	ebiten.KeyDigit5:     "5",
	ebiten.KeyDigit6:     "6",
	ebiten.KeyDigit7:     "7",
	ebiten.KeyDigit8:     "8",
	ebiten.KeyDigit9:     "9",
	ebiten.KeyNumpad0:    "0",
	ebiten.KeyNumpad1:    "1",
	ebiten.KeyNumpad2:    "2",
	ebiten.KeyNumpad3:    "3",
	ebiten.KeyNumpad4:    "4",
	ebiten.KeyNumpad5:    "5",
	ebiten.KeyNumpad6:    "6",
	ebiten.KeyNumpad7:    "7",
	ebiten.KeyNumpad8:    "8",
	ebiten.KeyNumpad9:    "9",
}

type modifiers struct {
	shift, ctrl, alt, meta bool
}

func currentModifiers() modifiers {
	return modifiers{
		shift: ebiten.IsKeyPressed(ebiten.KeyShift),
		ctrl:  ebiten.IsKeyPressed(ebiten.KeyControl),
		alt:   ebiten.IsKeyPressed(ebiten.KeyAlt),
		meta:  ebiten.IsKeyPressed(ebiten.KeyMeta),
	}
}

// translateKey converts an ebiten key press. Shifted letters arrive upper
// case, as a browser would report them.
func translateKey(k ebiten.Key, mods modifiers) (player.Key, bool) {
	name, ok := keyNames[k]
	if !ok {
		return player.Key{}, false
	}
	if mods.shift && len(name) == 1 && name[0] >= 'a' && name[0] <= 'z' {
		name = strings.ToUpper(name)
	}
	return player.Key{
		Name:  name,
		Shift: mods.shift,
		Ctrl:  mods.ctrl,
		Alt:   mods.alt,
		Meta:  mods.meta,
	}, true
}

// pressedKeys returns this frame's new key presses.
func pressedKeys() []player.Key {
	mods := currentModifiers()
	var keys []player.Key
	for _, k := range inpututil.AppendJustPressedKeys(nil) {
		if pk, ok := translateKey(k, mods); ok {
			keys = append(keys, pk)
		}
	}
	return keys
}

// menuAction is what a key does while the settings menu is open.
type menuAction struct {
	page    player.SettingsPage
	speed   float64
	quality int
	kind    menuActionKind
}

type menuActionKind int

const (
	menuNone menuActionKind = iota
	menuPage
	menuSpeed
	menuQuality
)

// menuKey resolves a digit or Backspace against the visible settings page.
// Digits are 1-based row numbers.
func menuKey(v player.SettingsView, name string) menuAction {
	if !v.Open {
		return menuAction{}
	}
	if name == "Backspace" {
		if v.Page == player.PageMain {
			return menuAction{}
		}
		return menuAction{kind: menuPage, page: player.PageMain}
	}
	if len(name) != 1 || name[0] < '1' || name[0] > '9' {
		return menuAction{}
	}
	row := int(name[0] - '1')

	switch v.Page {
	case player.PageSpeed:
		if row < len(v.Speeds) {
			return menuAction{kind: menuSpeed, speed: v.Speeds[row]}
		}
	case player.PageQuality:
		if row == 0 {
			return menuAction{kind: menuQuality, quality: player.AutoQuality}
		}
		if row-1 < len(v.Qualities) {
			return menuAction{kind: menuQuality, quality: v.Qualities[row-1].Index}
		}
	default:
		switch row {
		case 0:
			return menuAction{kind: menuPage, page: player.PageSpeed}
		case 1:
			return menuAction{kind: menuPage, page: player.PageQuality}
		}
	}
	return menuAction{}
}
