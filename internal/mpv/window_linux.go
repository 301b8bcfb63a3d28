//go:build linux

package mpv

/*
#cgo LDFLAGS: -lX11
#include <X11/Xlib.h>

static long focused_window(void) {
    Display *d = XOpenDisplay(NULL);
    if (!d) return 0;
    Window w;
    int revert;
    XGetInputFocus(d, &w, &revert);
    XCloseDisplay(d);
    return (long)w;
}
*/
import "C"

import "errors"

// FocusedWindow returns the X11 id of the focused window, used to embed the
// video into the host window.
func FocusedWindow() (int64, error) {
	wid := int64(C.focused_window())
	if wid == 0 {
		return 0, errors.New("no focused X11 window")
	}
	return wid, nil
}
