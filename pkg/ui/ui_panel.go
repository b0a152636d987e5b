package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const (
	titleHeight         = 30
	sectionHeaderHeight = 25
	scrollStep          = 20
)

// UIWidget is an interface for all UI widgets
type UIWidget interface {
	Update(p Pointer)
	Draw(screen *ebiten.Image)
	GetHeight() float64
	// SetY places the top of the widget, label included
	SetY(y float64)
}

// UIPanel manages a collection of UI widgets in a scrollable panel
type UIPanel struct {
	X, Y          float64 // Panel position
	Width, Height float64 // Panel dimensions
	Widgets       []UIWidget
	ScrollOffset  float64 // Current scroll position
	Title         string

	// Styling
	BGColor     color.RGBA
	BorderColor color.RGBA
	TextColor   color.RGBA

	sections []PanelSection
	visible  []bool
}

// PanelSection represents a collapsible section in the panel
type PanelSection struct {
	Title      string
	StartIndex int // Widget index where this section starts
	Collapsed  bool
	y          float64
}

// NewUIPanel creates a new UI panel
func NewUIPanel(x, y, width, height float64) *UIPanel {
	return &UIPanel{
		X:           x,
		Y:           y,
		Width:       width,
		Height:      height,
		Title:       "Configuration",
		BGColor:     color.RGBA{R: 40, G: 40, B: 45, A: 230},
		BorderColor: color.RGBA{R: 100, G: 100, B: 110, A: 255},
		TextColor:   color.RGBA{R: 220, G: 220, B: 220, A: 255},
	}
}

// AddSection starts a section, the widgets added next belong to it.
func (p *UIPanel) AddSection(title string) {
	p.sections = append(p.sections, PanelSection{
		Title:      title,
		StartIndex: len(p.Widgets),
	})
}

// Add appends any widget to the current section.
func (p *UIPanel) Add(w UIWidget) {
	if len(p.sections) == 0 {
		p.AddSection("")
	}
	p.Widgets = append(p.Widgets, w)
	p.layout()
}

// AddSlider adds a slider widget to the panel
func (p *UIPanel) AddSlider(label string, min, max, value float64) *Slider {
	slider := NewSlider(p.X+10, 0, p.Width-20, label, min, max, value)
	p.Add(slider)
	return slider
}

// AddCheckbox adds a checkbox widget to the panel
func (p *UIPanel) AddCheckbox(label string, value bool) *Checkbox {
	checkbox := NewCheckbox(p.X+10, 0, label, value)
	p.Add(checkbox)
	return checkbox
}

// AddButton adds a full width button to the panel
func (p *UIPanel) AddButton(label string, onClick func()) *Button {
	button := NewButton(p.X+10, 0, p.Width-20, 20, label, onClick)
	p.Add(button)
	return button
}

// Contains reports whether (x, y) is over the panel, pointer input there is not
// meant for the scene behind it.
func (p *UIPanel) Contains(x, y int) bool {
	return Pointer{X: x, Y: y}.In(p.X, p.Y, p.Width, p.Height)
}

// Visible reports whether widget i is currently shown.
func (p *UIPanel) Visible(i int) bool {
	return i >= 0 && i < len(p.visible) && p.visible[i]
}

func (p *UIPanel) sectionEnd(si int) int {
	if si+1 < len(p.sections) {
		return p.sections[si+1].StartIndex
	}
	return len(p.Widgets)
}

// layout positions the headers and widgets for the current scroll offset.
func (p *UIPanel) layout() {
	if len(p.visible) != len(p.Widgets) {
		p.visible = make([]bool, len(p.Widgets))
	}
	y := p.Y + titleHeight - p.ScrollOffset
	for si := range p.sections {
		section := &p.sections[si]
		section.y = y
		y += sectionHeaderHeight
		for i := section.StartIndex; i < p.sectionEnd(si); i++ {
			w := p.Widgets[i]
			if section.Collapsed {
				p.visible[i] = false
				continue
			}
			w.SetY(y)
			h := w.GetHeight()
			p.visible[i] = y >= p.Y+titleHeight && y+h <= p.Y+p.Height
			y += h
		}
	}
}

// contentHeight is the height of everything below the title when nothing is scrolled.
func (p *UIPanel) contentHeight() float64 {
	height := 0.0
	for si, section := range p.sections {
		height += sectionHeaderHeight
		if section.Collapsed {
			continue
		}
		for i := section.StartIndex; i < p.sectionEnd(si); i++ {
			height += p.Widgets[i].GetHeight()
		}
	}
	return height
}

func (p *UIPanel) clampScroll() {
	maxScroll := p.contentHeight() - (p.Height - titleHeight)
	if maxScroll < 0 {
		maxScroll = 0
	}
	if p.ScrollOffset > maxScroll {
		p.ScrollOffset = maxScroll
	}
	if p.ScrollOffset < 0 {
		p.ScrollOffset = 0
	}
}

// Update handles scrolling, section toggles and the input of the visible widgets.
func (p *UIPanel) Update(ptr Pointer) {
	if ptr.WheelY != 0 && p.Contains(ptr.X, ptr.Y) {
		p.ScrollOffset -= ptr.WheelY * scrollStep
	}
	p.clampScroll()
	p.layout()

	if ptr.JustPressed {
		for si := range p.sections {
			section := &p.sections[si]
			if section.y >= p.Y+titleHeight-1 && ptr.In(p.X, section.y, p.Width, sectionHeaderHeight-5) {
				section.Collapsed = !section.Collapsed
				p.clampScroll()
				p.layout()
				return
			}
		}
	}

	for i, widget := range p.Widgets {
		if p.visible[i] {
			widget.Update(ptr)
		}
	}
}

// Draw renders the panel and all widgets
func (p *UIPanel) Draw(screen *ebiten.Image) {
	vector.FillRect(screen,
		float32(p.X), float32(p.Y),
		float32(p.Width), float32(p.Height),
		p.BGColor, true)

	vector.StrokeRect(screen,
		float32(p.X), float32(p.Y),
		float32(p.Width), float32(p.Height),
		2, p.BorderColor, true)

	ebitenutil.DebugPrintAt(screen, p.Title, int(p.X+10), int(p.Y+5))

	for _, section := range p.sections {
		if section.Title == "" || section.y < p.Y+titleHeight-1 || section.y+sectionHeaderHeight > p.Y+p.Height {
			continue
		}
		sectionBG := color.RGBA{R: 60, G: 60, B: 70, A: 255}
		vector.FillRect(screen,
			float32(p.X+5), float32(section.y),
			float32(p.Width-10), 20,
			sectionBG, true)
		marker := "[-] "
		if section.Collapsed {
			marker = "[+] "
		}
		ebitenutil.DebugPrintAt(screen, marker+section.Title, int(p.X+10), int(section.y+3))
	}

	for i, widget := range p.Widgets {
		if p.visible[i] {
			widget.Draw(screen)
		}
	}
}
