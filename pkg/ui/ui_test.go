package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlider_Update(t *testing.T) {
	s := NewSlider(20, 100, 200, "Radius", 0, 50, 15)
	var changes []float64
	s.OnChange = func(v float64) { changes = append(changes, v) }

	s.Update(Pointer{X: 120, Y: 105})
	assert.Equal(t, 15.0, s.Value, "a released pointer does not move the slider")

	s.Update(Pointer{X: 120, Y: 105, Pressed: true})
	assert.Equal(t, 25.0, s.Value)

	s.Update(Pointer{X: 120, Y: 105, Pressed: true})
	s.Update(Pointer{X: 500, Y: 105, Pressed: true})
	assert.Equal(t, 25.0, s.Value, "outside the track")

	s.Update(Pointer{X: 220, Y: 110, Pressed: true})
	assert.Equal(t, 50.0, s.Value)
	assert.Equal(t, []float64{25, 50}, changes)

	assert.Equal(t, "Radius: 50.00", s.Text())
	s.Format = "%.0f"
	assert.Equal(t, "Radius: 50", s.Text())
}

func TestSlider_Clamp(t *testing.T) {
	assert.Equal(t, 1.0, NewSlider(0, 0, 10, "x", 0, 1, 5).Value)
	assert.Equal(t, 1.0, NewSlider(0, 0, 10, "x", 1, 5, -2).Value)
}

func TestButton_ClickOncePerPress(t *testing.T) {
	clicks := 0
	b := NewButton(10, 10, 100, 20, "Reset", func() { clicks++ })

	b.Update(Pointer{X: 50, Y: 20, Pressed: true, JustPressed: true})
	b.Update(Pointer{X: 50, Y: 20, Pressed: true})
	b.Update(Pointer{X: 50, Y: 20, Pressed: true})
	assert.Equal(t, 1, clicks)

	b.Update(Pointer{X: 500, Y: 20, Pressed: true, JustPressed: true})
	assert.Equal(t, 1, clicks)

	b.Update(Pointer{X: 110, Y: 30, Pressed: true, JustPressed: true})
	assert.Equal(t, 2, clicks)
}

func TestCheckbox_Toggle(t *testing.T) {
	c := NewCheckbox(0, 0, "Show stats", true)
	c.Update(Pointer{X: 8, Y: 8, Pressed: true, JustPressed: true})
	assert.False(t, c.Value)
	c.Update(Pointer{X: 8, Y: 8, Pressed: true})
	assert.False(t, c.Value)
	c.Update(Pointer{X: 8, Y: 8, Pressed: true, JustPressed: true})
	assert.True(t, c.Value)
}

func TestUIPanel_Layout(t *testing.T) {
	p := NewUIPanel(10, 10, 280, 300)
	p.AddSection("Flocking")
	align := p.AddSlider("Align", 0, 1, 0.3)
	show := p.AddCheckbox("Show stats", true)
	p.AddSection("Population")
	restart := p.AddButton("Restart", nil)

	// title, header, then widgets in order
	assert.Equal(t, 10.0+titleHeight+sectionHeaderHeight+sliderLabelHeight, align.Y)
	assert.Equal(t, align.Y-sliderLabelHeight+align.GetHeight(), show.Y)
	assert.Equal(t, show.Y+show.GetHeight()+sectionHeaderHeight, restart.Y)
	for i := range p.Widgets {
		assert.True(t, p.Visible(i))
	}
	assert.False(t, p.Visible(-1))
	assert.False(t, p.Visible(3))

	assert.True(t, p.Contains(10, 10))
	assert.True(t, p.Contains(290, 310))
	assert.False(t, p.Contains(291, 100))
}

func TestUIPanel_UpdateRoutesPointer(t *testing.T) {
	p := NewUIPanel(10, 10, 280, 300)
	p.AddSection("Flocking")
	align := p.AddSlider("Align", 0, 1, 0.3)

	x := int(align.X + align.W/2)
	y := int(align.Y + 2)
	p.Update(Pointer{X: x, Y: y, Pressed: true})
	assert.InDelta(t, 0.5, align.Value, 1e-9)
}

func TestUIPanel_CollapseSection(t *testing.T) {
	p := NewUIPanel(10, 10, 280, 300)
	p.AddSection("Flocking")
	align := p.AddSlider("Align", 0, 1, 0.3)
	p.AddSection("Population")
	restart := p.AddButton("Restart", nil)
	before := restart.Y

	header := Pointer{X: 50, Y: int(p.Y) + titleHeight + 5, Pressed: true, JustPressed: true}
	p.Update(header)
	assert.False(t, p.Visible(0))
	assert.True(t, p.Visible(1))
	assert.Equal(t, before-align.GetHeight(), restart.Y)

	// hidden widgets ignore input
	p.Update(Pointer{X: int(align.X + align.W), Y: int(align.Y + 2), Pressed: true})
	assert.Equal(t, 0.3, align.Value)

	p.Update(header)
	assert.True(t, p.Visible(0))
}

func TestUIPanel_Scroll(t *testing.T) {
	p := NewUIPanel(10, 10, 280, 300)
	p.AddSection("Many")
	sliders := make([]*Slider, 20)
	for i := range sliders {
		sliders[i] = p.AddSlider("s", 0, 1, 0)
	}
	require.False(t, p.Visible(19))

	p.Update(Pointer{X: 100, Y: 100, WheelY: -100})
	want := p.contentHeight() - (p.Height - titleHeight)
	assert.Equal(t, want, p.ScrollOffset)
	assert.True(t, p.Visible(19))
	assert.False(t, p.Visible(0))

	// the wheel outside the panel is not ours
	p.Update(Pointer{X: 600, Y: 100, WheelY: 100})
	assert.Equal(t, want, p.ScrollOffset)

	p.Update(Pointer{X: 100, Y: 100, WheelY: 1000})
	assert.Zero(t, p.ScrollOffset)
}
