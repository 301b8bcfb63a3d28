//go:build linux

package mpv

/*
#include <mpv/client.h>
#include <stdlib.h>

// osd_overlay issues the osd-overlay command as a node map, the only form that
// accepts its named arguments.
static int osd_overlay(mpv_handle *h, int64_t id, const char *format, const char *data, int64_t res_x, int64_t res_y) {
    char *keys[] = {"name", "id", "format", "data", "res_x", "res_y"};
    mpv_node vals[6];

    vals[0].format = MPV_FORMAT_STRING;
    vals[0].u.string = "osd-overlay";
    vals[1].format = MPV_FORMAT_INT64;
    vals[1].u.int64 = id;
    vals[2].format = MPV_FORMAT_STRING;
    vals[2].u.string = (char *)format;
    vals[3].format = MPV_FORMAT_STRING;
    vals[3].u.string = (char *)data;
    vals[4].format = MPV_FORMAT_INT64;
    vals[4].u.int64 = res_x;
    vals[5].format = MPV_FORMAT_INT64;
    vals[5].u.int64 = res_y;

    mpv_node_list list = {.num = 6, .values = vals, .keys = keys};
    mpv_node cmd = {.format = MPV_FORMAT_NODE_MAP, .u.list = &list};
    mpv_node result;
    int err = mpv_command_node(h, &cmd, &result);
    if (err >= 0) {
        mpv_free_node_contents(&result);
    }
    return err;
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	libmpv "github.com/gen2brain/go-mpv"
)

// handle extracts the C handle; it is the only field of libmpv.Mpv.
func handle(m *libmpv.Mpv) *C.mpv_handle {
	return *(**C.mpv_handle)(unsafe.Pointer(m))
}

func osdOverlay(m *libmpv.Mpv, id int, format, data string, resX, resY int) error {
	cFormat := C.CString(format)
	defer C.free(unsafe.Pointer(cFormat))
	cData := C.CString(data)
	defer C.free(unsafe.Pointer(cData))
	if rc := C.osd_overlay(handle(m), C.int64_t(id), cFormat, cData, C.int64_t(resX), C.int64_t(resY)); rc < 0 {
		return fmt.Errorf("osd-overlay %s: mpv error %d", format, int(rc))
	}
	return nil
}

func osdOverlaySet(m *libmpv.Mpv, id int, ass string, resX, resY int) error {
	return osdOverlay(m, id, "ass-events", ass, resX, resY)
}

func osdOverlayRemove(m *libmpv.Mpv, id int) error {
	return osdOverlay(m, id, "none", "", 0, 0)
}
