//go:build windows

package mpv

import libmpv "github.com/gen2brain/go-mpv"

// The overlay needs mpv_command_node through cgo; Windows builds render
// without it.
func osdOverlaySet(*libmpv.Mpv, int, string, int, int) error { return nil }
func osdOverlayRemove(*libmpv.Mpv, int) error                 { return nil }
