// Package terminal hosts the simulation in a terminal. Every cell shows two canvas
// pixels stacked with the upper half block, the last row is a status line.
package terminal

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/lao-tseu-is-alive/go-boids-unlimited/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-boids-unlimited/pkg/simulation"
	golog "github.com/tochemey/goakt/v3/log"
)

const (
	halfBlock = '▀'
	// below this size there is no room for the flock and the status line
	minCols = 16
	minRows = 4
)

var statusStyle = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorSilver)

// Host drives a Simulation from a tcell screen.
type Host struct {
	screen    tcell.Screen
	sim       *simulation.Simulation
	controls  *simulation.Controls
	telemetry *simulation.Telemetry
	logger    golog.Logger
	tick      time.Duration
	maxFrames uint64

	width, height int
	paused        bool
	lastFrame     *simulation.Frame
}

// NewHost builds the simulation described by cfg with screen as its surface.
// maxFrames > 0 stops Run after that many frames.
func NewHost(screen tcell.Screen, cfg *simulation.Config, telemetry *simulation.Telemetry, maxFrames int) (*Host, error) {
	h := &Host{
		screen:    screen,
		telemetry: telemetry,
		logger:    cfg.Logger(),
		tick:      time.Second / time.Duration(max(cfg.TicksPerSecond, 1)),
		maxFrames: uint64(max(maxFrames, 0)),
	}
	cols, rows := screen.Size()
	w, ht := canvasSize(cols, rows)
	opts, err := cfg.Options(simulation.WithSurface(h), simulation.WithCanvasSize(w, ht))
	if err != nil {
		return nil, err
	}
	sim, err := simulation.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create simulation: %w", err)
	}
	h.sim = sim
	h.controls = simulation.NewControls(sim, cfg.Params())
	h.width, h.height = cols, rows
	return h, nil
}

// Simulation returns the hosted simulation.
func (h *Host) Simulation() *simulation.Simulation { return h.sim }

// Controls returns the parameters fed to every frame.
func (h *Host) Controls() *simulation.Controls { return h.controls }

// canvasSize is the pixel canvas shown by a cols x rows terminal.
func canvasSize(cols, rows int) (int, int) {
	if cols < minCols || rows < minRows {
		return 0, 0
	}
	return cols, (rows - 1) * 2
}

// cellToPixel maps a terminal cell to the center of its upper pixel.
func cellToPixel(x, y int) geometry.Vector2D {
	return geometry.NewVector(float32(x)+0.5, float32(2*y)+0.5)
}

// Present draws frame with half blocks: foreground is the upper pixel, background the lower one.
func (h *Host) Present(ctx context.Context, frame *simulation.Frame) error {
	cols, rows := h.screen.Size()
	if w, ht := canvasSize(cols, rows); w != frame.Width || ht != frame.Height {
		return fmt.Errorf("terminal is %dx%d, frame is %dx%d: %w", cols, rows, frame.Width, frame.Height, simulation.ErrNoDrawable)
	}
	canvas := frame.Canvas
	for y := 0; y < rows-1; y++ {
		for x := 0; x < cols; x++ {
			top, bottom := canvas.At(x, 2*y), canvas.At(x, 2*y+1)
			if top.A == 0 && bottom.A == 0 {
				h.screen.SetContent(x, y, ' ', nil, tcell.StyleDefault)
				continue
			}
			style := tcell.StyleDefault
			if top.A != 0 {
				style = style.Foreground(tcell.NewRGBColor(int32(top.R), int32(top.G), int32(top.B)))
			} else {
				style = style.Foreground(tcell.ColorBlack)
			}
			if bottom.A != 0 {
				style = style.Background(tcell.NewRGBColor(int32(bottom.R), int32(bottom.G), int32(bottom.B)))
			}
			h.screen.SetContent(x, y, halfBlock, nil, style)
		}
	}
	h.lastFrame = frame
	h.drawStatus(cols, rows)
	h.screen.Show()
	return nil
}

func (h *Host) statusText() string {
	msg := "[space] pause  [r] restart  [n] agents  [q] quit"
	if f := h.lastFrame; f != nil {
		msg = fmt.Sprintf("frame %d | %d agents | %dx%d | %s | %s",
			f.Index, f.AgentCount, f.Width, f.Height, f.Duration.Round(time.Microsecond), msg)
	}
	if h.paused {
		msg = "PAUSED | " + msg
	}
	return msg
}

func (h *Host) drawStatus(cols, rows int) {
	y := rows - 1
	text := []rune(h.statusText())
	for x := 0; x < cols; x++ {
		r := ' '
		if x < len(text) {
			r = text[x]
		}
		h.screen.SetContent(x, y, r, nil, statusStyle)
	}
}

// handleEvent applies one terminal event and reports whether the host keeps running.
func (h *Host) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if ev.Key() != tcell.KeyRune {
			return true
		}
		switch ev.Rune() {
		case 'q', 'Q':
			return false
		case ' ':
			h.paused = !h.paused
			if h.paused {
				h.drawStatus(h.width, h.height)
				h.screen.Show()
			}
		case 'r', 'R':
			h.controls.Restart()
		case 'n', 'N':
			err := h.controls.Update(func(p *simulation.Params) {
				p.AgentCount = simulation.NextAgentCountPreset(p.AgentCount)
			})
			if err != nil {
				h.logger.Warnf("cannot change agent count: %v", err)
				break
			}
			h.controls.Restart()
		}

	case *tcell.EventMouse:
		x, y := ev.Position()
		if ev.Buttons()&tcell.Button1 != 0 && y < h.height-1 {
			h.controls.SetObstacles(cellToPixel(x, y))
		} else {
			h.controls.ClearObstacles()
		}

	case *tcell.EventResize:
		h.width, h.height = ev.Size()
		w, ht := canvasSize(h.width, h.height)
		h.sim.OnSurfaceResize(w, ht)
		h.screen.Sync()
	}
	return true
}

// step renders one frame unless paused and reports whether the frame limit is reached.
func (h *Host) step(ctx context.Context) (bool, error) {
	if h.paused {
		return false, nil
	}
	frame, err := h.sim.RenderFrame(ctx, h.controls.Params())
	if err != nil {
		return false, err
	}
	if frame.Dropped && frame.Width == 0 {
		h.screen.Clear()
		h.lastFrame = nil
		h.drawStatus(h.width, h.height)
		h.screen.Show()
	}
	if err := h.telemetry.Observe(ctx, h.sim, frame); err != nil {
		h.logger.Warnf("telemetry: %v", err)
	}
	return h.maxFrames > 0 && frame.Index >= h.maxFrames, nil
}

// Run renders a frame every tick until the user quits, ctx is done or the frame limit is reached.
func (h *Host) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h.screen.EnableMouse()
	ticker := time.NewTicker(h.tick)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := h.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case eventChan <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev := <-eventChan:
			if !h.handleEvent(ev) {
				return nil
			}

		case <-ticker.C:
			done, err := h.step(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			if done {
				return nil
			}
		}
	}
}
