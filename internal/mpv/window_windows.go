//go:build windows

package mpv

import (
	"errors"
	"syscall"
)

var procForegroundWindow = syscall.NewLazyDLL("user32.dll").NewProc("GetForegroundWindow")

// FocusedWindow returns the HWND of the foreground window, used to embed the
// video into the host window.
func FocusedWindow() (int64, error) {
	hwnd, _, _ := procForegroundWindow.Call()
	if hwnd == 0 {
		return 0, errors.New("no foreground window")
	}
	return int64(hwnd), nil
}
