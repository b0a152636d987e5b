package simulation

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// maxCanvasPixels bounds the canvas allocation (16k x 16k).
const maxCanvasPixels = 1 << 28

// Canvas is the W x H pixel buffer agents are drawn into.
// Agents are drawn opaque on a transparent background, so the pixels read the
// same as premultiplied or straight alpha.
type Canvas struct {
	img *image.RGBA
}

// NewCanvas allocates a cleared canvas.
func NewCanvas(width, height int) (*Canvas, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: canvas size %dx%d", ErrResource, width, height)
	}
	if width > 0 && height > maxCanvasPixels/width {
		return nil, fmt.Errorf("%w: canvas %dx%d is too large", ErrResource, width, height)
	}
	return &Canvas{img: image.NewRGBA(image.Rect(0, 0, width, height))}, nil
}

// Width in pixels.
func (c *Canvas) Width() int { return c.img.Rect.Dx() }

// Height in pixels.
func (c *Canvas) Height() int { return c.img.Rect.Dy() }

// Bounds returns the canvas rectangle.
func (c *Canvas) Bounds() image.Rectangle { return c.img.Rect }

// Image exposes the underlying buffer. It is overwritten by the next frame.
func (c *Canvas) Image() *image.RGBA { return c.img }

// Clear resets the pixels of r to transparent black.
func (c *Canvas) Clear(r image.Rectangle) {
	r = r.Intersect(c.img.Rect)
	if r.Empty() {
		return
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		start := c.img.PixOffset(r.Min.X, y)
		clear(c.img.Pix[start : start+4*r.Dx()])
	}
}

// Plot sets one pixel, coordinates outside the canvas are ignored.
func (c *Canvas) Plot(x, y int, col color.RGBA) {
	if !(image.Point{X: x, Y: y}).In(c.img.Rect) {
		return
	}
	i := c.img.PixOffset(x, y)
	p := c.img.Pix[i : i+4 : i+4]
	p[0], p[1], p[2], p[3] = col.R, col.G, col.B, col.A
}

// At returns the pixel at (x, y), transparent black outside the canvas.
func (c *Canvas) At(x, y int) color.RGBA {
	return c.img.RGBAAt(x, y)
}

// FillDisk plots every pixel of clip whose center lies within radius of (cx, cy).
// A radius below one pixel still marks the pixel containing the center.
func (c *Canvas) FillDisk(cx, cy, radius float32, col color.RGBA, clip image.Rectangle) {
	clip = clip.Intersect(c.img.Rect)
	if clip.Empty() {
		return
	}
	if radius < 0.5 {
		p := image.Point{X: int(math.Floor(float64(cx))), Y: int(math.Floor(float64(cy)))}
		if p.In(clip) {
			c.Plot(p.X, p.Y, col)
		}
		return
	}
	box := diskBounds(cx, cy, radius).Intersect(clip)
	r2 := radius * radius
	for y := box.Min.Y; y < box.Max.Y; y++ {
		dy := float32(y) + 0.5 - cy
		for x := box.Min.X; x < box.Max.X; x++ {
			dx := float32(x) + 0.5 - cx
			if dx*dx+dy*dy <= r2 {
				c.Plot(x, y, col)
			}
		}
	}
}

// diskBounds is the pixel rectangle that may be touched by a disk.
func diskBounds(cx, cy, radius float32) image.Rectangle {
	if radius < 0.5 {
		x, y := int(math.Floor(float64(cx))), int(math.Floor(float64(cy)))
		return image.Rect(x, y, x+1, y+1)
	}
	return image.Rect(
		int(math.Floor(float64(cx-radius))),
		int(math.Floor(float64(cy-radius))),
		int(math.Ceil(float64(cx+radius)))+1,
		int(math.Ceil(float64(cy+radius)))+1,
	)
}

// ParseColor reads a #RRGGBB string into an opaque color.
func ParseColor(s string) (color.RGBA, error) {
	var r, g, b uint8
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{}, fmt.Errorf("%w: color %q is not #RRGGBB", ErrInvalidConfig, s)
	}
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("%w: color %q: %w", ErrInvalidConfig, s, err)
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}
