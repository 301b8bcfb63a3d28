package mpv

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/image/draw"
)

// Bitmap overlay slot for the poster (overlay-add ids are separate from
// osd-overlay ids).
const posterOverlay = 0

// fitBGRA scales img to fit within maxW x maxH, keeping its aspect ratio, and
// returns the raw BGRA pixels overlay-add expects.
func fitBGRA(img image.Image, maxW, maxH int) (buf []byte, w, h int) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 || maxW <= 0 || maxH <= 0 {
		return nil, 0, 0
	}
	scale := min(float64(maxW)/float64(b.Dx()), float64(maxH)/float64(b.Dy()))
	w = max(1, int(float64(b.Dx())*scale))
	h = max(1, int(float64(b.Dy())*scale))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)

	buf = make([]byte, w*h*4)
	for i := 0; i < len(buf); i += 4 {
		// RGBA -> BGRA, premultiplied as mpv wants it
		buf[i] = dst.Pix[i+2]
		buf[i+1] = dst.Pix[i+1]
		buf[i+2] = dst.Pix[i]
		buf[i+3] = dst.Pix[i+3]
	}
	return buf, w, h
}

// ShowPoster draws img centered over the video, sized to half the window
// height. It stays until HidePoster.
func (e *Element) ShowPoster(img image.Image) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}

	winW, _ := strconv.Atoi(e.m.GetPropertyString("osd-width"))
	winH, _ := strconv.Atoi(e.m.GetPropertyString("osd-height"))
	if winW == 0 || winH == 0 {
		return fmt.Errorf("poster: window size unknown")
	}

	buf, w, h := fitBGRA(img, winW, winH/2)
	if buf == nil {
		return fmt.Errorf("poster: empty image")
	}
	if e.posterPath == "" {
		e.posterPath = filepath.Join(os.TempDir(), fmt.Sprintf("reelplayer-poster-%d.bgra", os.Getpid()))
	}
	if err := os.WriteFile(e.posterPath, buf, 0o600); err != nil {
		return fmt.Errorf("poster: %w", err)
	}

	return e.command("overlay-add",
		strconv.Itoa(posterOverlay),
		strconv.Itoa((winW-w)/2),
		strconv.Itoa((winH-h)/2),
		e.posterPath,
		"0",
		"bgra",
		strconv.Itoa(w),
		strconv.Itoa(h),
		strconv.Itoa(w*4),
	)
}

func (e *Element) HidePoster() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.posterPath == "" {
		return nil
	}
	return e.command("overlay-remove", strconv.Itoa(posterOverlay))
}
