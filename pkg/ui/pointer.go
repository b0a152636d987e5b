package ui

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Pointer is the input state the widgets react to during one tick.
// A touch is reported the same way as the left mouse button.
type Pointer struct {
	X, Y    int
	Pressed bool
	// JustPressed is only set on the tick the press started
	JustPressed bool
	WheelY      float64
}

// In reports whether the pointer is inside the x, y, w, h rectangle.
func (p Pointer) In(x, y, w, h float64) bool {
	return float64(p.X) >= x && float64(p.X) <= x+w &&
		float64(p.Y) >= y && float64(p.Y) <= y+h
}

// ReadPointer samples the mouse, or the first touch when there is one.
func ReadPointer() Pointer {
	x, y := ebiten.CursorPosition()
	_, wy := ebiten.Wheel()
	p := Pointer{
		X:           x,
		Y:           y,
		Pressed:     ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft),
		JustPressed: inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft),
		WheelY:      wy,
	}
	touches := ebiten.AppendTouchIDs(nil)
	if len(touches) > 0 {
		p.X, p.Y = ebiten.TouchPosition(touches[0])
		p.Pressed = true
		for _, id := range inpututil.AppendJustPressedTouchIDs(nil) {
			if id == touches[0] {
				p.JustPressed = true
			}
		}
	}
	return p
}

// TouchPoints appends the position of every active touch to dst.
func TouchPoints(dst []image.Point) []image.Point {
	for _, id := range ebiten.AppendTouchIDs(nil) {
		x, y := ebiten.TouchPosition(id)
		dst = append(dst, image.Pt(x, y))
	}
	return dst
}
