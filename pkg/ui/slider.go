package ui

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const sliderLabelHeight = 16

// Slider is a horizontal value picker between Min and Max.
type Slider struct {
	Label    string
	Value    float64
	Min, Max float64
	X, Y     float64
	W, H     float64
	// Format prints the value next to the label, "%.2f" when empty
	Format string
	// OnChange is called with the new value while the slider is dragged
	OnChange func(v float64)
}

// NewSlider creates a slider, value is clamped to [min,max].
func NewSlider(x, y, w float64, label string, min, max, value float64) *Slider {
	s := &Slider{
		Label: label,
		Min:   min,
		Max:   max,
		X:     x,
		Y:     y,
		W:     w,
		H:     10,
	}
	s.Value = s.clamp(value)
	return s
}

func (s *Slider) clamp(v float64) float64 {
	if v < s.Min {
		return s.Min
	}
	if v > s.Max {
		return s.Max
	}
	return v
}

// Contains reports whether (x, y) is over the slider track.
func (s *Slider) Contains(x, y int) bool {
	return float64(x) >= s.X && float64(x) <= s.X+s.W &&
		float64(y) >= s.Y && float64(y) <= s.Y+s.H
}

// Update moves the value to the pointer while it is pressed over the track.
func (s *Slider) Update(p Pointer) {
	if !p.Pressed || !s.Contains(p.X, p.Y) || s.W <= 0 {
		return
	}
	// Calculate value based on horizontal position
	ratio := (float64(p.X) - s.X) / s.W
	v := s.clamp(s.Min + ratio*(s.Max-s.Min))
	if v == s.Value {
		return
	}
	s.Value = v
	if s.OnChange != nil {
		s.OnChange(v)
	}
}

// Text is the label with the current value.
func (s *Slider) Text() string {
	format := s.Format
	if format == "" {
		format = "%.2f"
	}
	return s.Label + ": " + fmt.Sprintf(format, s.Value)
}

// Draw renders the track and the value bar.
func (s *Slider) Draw(screen *ebiten.Image) {
	ebitenutil.DebugPrintAt(screen, s.Text(), int(s.X), int(s.Y-sliderLabelHeight))

	vector.FillRect(screen, float32(s.X), float32(s.Y), float32(s.W), float32(s.H), color.RGBA{R: 80, G: 80, B: 80, A: 255}, true)

	ratio := 0.0
	if s.Max > s.Min {
		ratio = (s.Value - s.Min) / (s.Max - s.Min)
	}
	vector.FillRect(screen, float32(s.X), float32(s.Y), float32(s.W*ratio), float32(s.H), color.RGBA{R: 200, G: 200, B: 200, A: 255}, true)
}

func (s *Slider) GetHeight() float64 {
	return s.H + 25 // track + label
}

// SetY puts the label at y and the track right under it.
func (s *Slider) SetY(y float64) { s.Y = y + sliderLabelHeight }
