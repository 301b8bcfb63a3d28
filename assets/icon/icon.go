package icon

import (
	"image"
	"image/color"
	"math"
)

var (
	reelBlue  = color.RGBA{R: 0x00, G: 0xA4, B: 0xDC, A: 0xFF}
	reelDark  = color.RGBA{R: 0x00, G: 0x78, B: 0xA8, A: 0xFF}
	darkBG    = color.RGBA{R: 0x10, G: 0x10, B: 0x14, A: 0xFF}
	playWhite = color.RGBA{R: 0xF5, G: 0xF5, B: 0xF5, A: 0xFF}
)

// Generate returns 64x64 and 32x32 icon images for use with ebiten.SetWindowIcon.
func Generate() []image.Image {
	return []image.Image{
		generate(64),
		generate(32),
	}
}

func generate(size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	s := float64(size)

	fillRect(img, 0, 0, size, size, darkBG)

	// Reel body with five spoke holes
	c := s / 2
	fillCircle(img, c, c, s*0.44, reelBlue)
	for i := 0; i < 5; i++ {
		a := float64(i)*2*math.Pi/5 - math.Pi/2
		fillCircle(img, c+math.Cos(a)*s*0.28, c+math.Sin(a)*s*0.28, s*0.085, reelDark)
	}
	fillCircle(img, c, c, s*0.2, reelDark)

	// Play triangle over the hub
	fillTriangle(img,
		c-s*0.08, c-s*0.12,
		c-s*0.08, c+s*0.12,
		c+s*0.13, c,
		playWhite)
	return img
}

func fillRect(img *image.RGBA, x0, y0, w, h int, c color.Color) {
	bounds := img.Bounds()
	for y := y0; y < y0+h && y < bounds.Max.Y; y++ {
		for x := x0; x < x0+w && x < bounds.Max.X; x++ {
			if x >= 0 && y >= 0 {
				blendPixel(img, x, y, c)
			}
		}
	}
}

func fillCircle(img *image.RGBA, cx, cy, r float64, c color.Color) {
	bounds := img.Bounds()
	r2 := r * r
	for y := max(int(cy-r), 0); y <= int(cy+r+1) && y < bounds.Max.Y; y++ {
		for x := max(int(cx-r), 0); x <= int(cx+r+1) && x < bounds.Max.X; x++ {
			dx := float64(x) + 0.5 - cx
			dy := float64(y) + 0.5 - cy
			if dx*dx+dy*dy <= r2 {
				blendPixel(img, x, y, c)
			}
		}
	}
}

func fillTriangle(img *image.RGBA, x0, y0, x1, y1, x2, y2 float64, c color.Color) {
	edge := func(ax, ay, bx, by, px, py float64) float64 {
		return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
	}
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px, py := float64(x)+0.5, float64(y)+0.5
			e0 := edge(x0, y0, x1, y1, px, py)
			e1 := edge(x1, y1, x2, y2, px, py)
			e2 := edge(x2, y2, x0, y0, px, py)
			if (e0 >= 0 && e1 >= 0 && e2 >= 0) || (e0 <= 0 && e1 <= 0 && e2 <= 0) {
				blendPixel(img, x, y, c)
			}
		}
	}
}

// blendPixel alpha-composites c over the existing pixel.
func blendPixel(img *image.RGBA, x, y int, c color.Color) {
	sr, sg, sb, sa := c.RGBA()
	if sa == 0 {
		return
	}
	dst := img.RGBAAt(x, y)
	inv := 0xFFFF - sa
	img.SetRGBA(x, y, color.RGBA{
		R: uint8((sr + uint32(dst.R)*0x101*inv/0xFFFF) >> 8),
		G: uint8((sg + uint32(dst.G)*0x101*inv/0xFFFF) >> 8),
		B: uint8((sb + uint32(dst.B)*0x101*inv/0xFFFF) >> 8),
		A: uint8((sa + uint32(dst.A)*0x101*inv/0xFFFF) >> 8),
	})
}
