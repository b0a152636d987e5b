// Package game hosts the simulation in an ebiten window with a control panel.
package game

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/lao-tseu-is-alive/go-boids-unlimited/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-boids-unlimited/pkg/simulation"
	"github.com/lao-tseu-is-alive/go-boids-unlimited/pkg/ui"
	golog "github.com/tochemey/goakt/v3/log"
)

const panelWidth = 260

var backgroundColor = color.RGBA{R: 10, G: 10, B: 20, A: 255}

type Game struct {
	ctx       context.Context
	sim       *simulation.Simulation
	controls  *simulation.Controls
	telemetry *simulation.Telemetry
	logger    golog.Logger

	canvasImage *ebiten.Image
	lastFrame   *simulation.Frame
	width       int
	height      int
	paused      bool
	obstacles   []geometry.Vector2D
	err         error

	// UI Controls
	panel *ui.UIPanel

	widgetAlign       *ui.Slider
	widgetCohere      *ui.Slider
	widgetSeparate    *ui.Slider
	widgetRadius      *ui.Slider
	widgetMaxSpeed    *ui.Slider
	widgetDrawRadius  *ui.Slider
	widgetObstacles   *ui.Checkbox
	widgetShowStats   *ui.Checkbox
	widgetPause       *ui.Button
	widgetAgentPreset *ui.Button

	// Timing instrumentation
	lastUpdateDuration time.Duration
	lastDrawDuration   time.Duration
	updateAvg          float64 // Rolling average in ms
	drawAvg            float64 // Rolling average in ms
}

// NewGame builds the simulation described by cfg with the window as its surface.
func NewGame(ctx context.Context, cfg *simulation.Config, telemetry *simulation.Telemetry) (*Game, error) {
	g := &Game{
		ctx:       ctx,
		telemetry: telemetry,
		logger:    cfg.Logger(),
	}
	opts, err := cfg.Options(simulation.WithSurface(g))
	if err != nil {
		return nil, err
	}
	sim, err := simulation.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create simulation: %w", err)
	}
	g.sim = sim
	g.controls = simulation.NewControls(sim, cfg.Params())
	g.buildPanel(cfg.Params())
	return g, nil
}

// Simulation returns the hosted simulation.
func (g *Game) Simulation() *simulation.Simulation { return g.sim }

func (g *Game) buildPanel(p simulation.Params) {
	panel := ui.NewUIPanel(10, 10, panelWidth, 420)

	panel.AddSection("Flocking")
	g.widgetAlign = panel.AddSlider("Align", 0, 1, float64(p.AlignCoefficient))
	g.widgetCohere = panel.AddSlider("Cohere", 0, 1, float64(p.CohereCoefficient))
	g.widgetSeparate = panel.AddSlider("Separate", 0, 1, float64(p.SeparateCoefficient))
	g.widgetRadius = panel.AddSlider("Radius", 0, 50, float64(p.Radius))
	g.widgetRadius.Format = "%.1f"
	g.widgetMaxSpeed = panel.AddSlider("Max Speed", 0, 10, float64(p.MaxSpeed))
	g.widgetMaxSpeed.Format = "%.1f"

	panel.AddSection("Display")
	g.widgetDrawRadius = panel.AddSlider("Draw Size", 1, 5, float64(p.DrawRadius))
	g.widgetDrawRadius.Format = "%.1f"
	g.widgetShowStats = panel.AddCheckbox("Show Stats", true)
	g.widgetObstacles = panel.AddCheckbox("Pointer Obstacles", true)

	panel.AddSection("Population (Restart Required)")
	g.widgetAgentPreset = panel.AddButton(agentsLabel(p.AgentCount), g.nextPreset)
	panel.AddButton("Restart", g.restart)
	g.widgetPause = panel.AddButton("Pause", g.togglePause)

	g.panel = panel
}

func agentsLabel(n int) string {
	return fmt.Sprintf("Agents: %d", n)
}

func (g *Game) nextPreset() {
	err := g.controls.Update(func(p *simulation.Params) {
		p.AgentCount = simulation.NextAgentCountPreset(p.AgentCount)
	})
	if err != nil {
		g.logger.Warnf("cannot change agent count: %v", err)
		return
	}
	g.widgetAgentPreset.Label = agentsLabel(g.controls.Params().AgentCount)
	g.restart()
}

func (g *Game) restart() {
	g.controls.Restart()
	g.logger.Infof("restart requested with %d agents", g.controls.Params().AgentCount)
}

func (g *Game) togglePause() {
	g.paused = !g.paused
	if g.paused {
		g.widgetPause.Label = "Resume"
	} else {
		g.widgetPause.Label = "Pause"
	}
}

// applyWidgets copies the slider values into the shared parameters.
func (g *Game) applyWidgets() error {
	return g.controls.Update(func(p *simulation.Params) {
		p.AlignCoefficient = float32(g.widgetAlign.Value)
		p.CohereCoefficient = float32(g.widgetCohere.Value)
		p.SeparateCoefficient = float32(g.widgetSeparate.Value)
		p.Radius = float32(g.widgetRadius.Value)
		p.MaxSpeed = float32(g.widgetMaxSpeed.Value)
		p.DrawRadius = float32(g.widgetDrawRadius.Value)
	})
}

// updateObstacles turns every pressed pointer outside the panel into an obstacle.
func (g *Game) updateObstacles(ptr ui.Pointer, touches []image.Point) {
	g.obstacles = g.obstacles[:0]
	if g.widgetObstacles.Value {
		if ptr.Pressed && len(touches) == 0 && !g.panel.Contains(ptr.X, ptr.Y) {
			g.obstacles = append(g.obstacles, geometry.NewVector(float32(ptr.X), float32(ptr.Y)))
		}
		for _, t := range touches {
			if !g.panel.Contains(t.X, t.Y) {
				g.obstacles = append(g.obstacles, geometry.NewVector(float32(t.X), float32(t.Y)))
			}
		}
	}
	if len(g.obstacles) == 0 {
		g.controls.ClearObstacles()
		return
	}
	g.controls.SetObstacles(g.obstacles...)
}

// Present copies a finished canvas into the texture drawn by Draw.
func (g *Game) Present(ctx context.Context, frame *simulation.Frame) error {
	if ebiten.IsWindowMinimized() {
		return fmt.Errorf("window is minimized: %w", simulation.ErrNoDrawable)
	}
	if g.canvasImage == nil || g.canvasImage.Bounds().Dx() != frame.Width || g.canvasImage.Bounds().Dy() != frame.Height {
		if g.canvasImage != nil {
			g.canvasImage.Deallocate()
		}
		g.canvasImage = ebiten.NewImage(frame.Width, frame.Height)
	}
	g.canvasImage.WritePixels(frame.Canvas.Image().Pix)
	return nil
}

func (g *Game) Update() error {
	start := time.Now()
	defer func() {
		g.lastUpdateDuration = time.Since(start)
		// Rolling average (exponential moving average)
		g.updateAvg = g.updateAvg*0.95 + float64(g.lastUpdateDuration.Microseconds())/1000.0*0.05
	}()
	if g.err != nil {
		return g.err
	}

	// 1. Update UI Panel
	ptr := ui.ReadPointer()
	g.panel.Update(ptr)
	if err := g.applyWidgets(); err != nil {
		g.logger.Warnf("ignoring panel values: %v", err)
	}

	// 2. Pointer and touches outside the panel repel the flock
	g.updateObstacles(ptr, ui.TouchPoints(nil))

	if g.paused {
		return nil
	}

	// 3. One simulation frame per tick
	frame, err := g.sim.RenderFrame(g.ctx, g.controls.Params())
	if err != nil {
		g.logger.Errorf("frame failed: %v", err)
		g.err = err
		return err
	}
	g.lastFrame = frame
	if err := g.telemetry.Observe(g.ctx, g.sim, frame); err != nil {
		g.logger.Warnf("telemetry: %v", err)
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	start := time.Now()
	defer func() {
		g.lastDrawDuration = time.Since(start)
		g.drawAvg = g.drawAvg*0.95 + float64(g.lastDrawDuration.Microseconds())/1000.0*0.05
	}()

	screen.Fill(backgroundColor)

	// 1. The canvas of the last presented frame
	if g.canvasImage != nil {
		screen.DrawImage(g.canvasImage, nil)
	}

	// 2. Draw UI Panel
	g.panel.Draw(screen)

	// 3. Performance stats on the right side to avoid overlap with panel
	if g.widgetShowStats.Value {
		ebitenutil.DebugPrintAt(screen, g.statsText(), screen.Bounds().Dx()-200, 10)
	}
}

func (g *Game) statsText() string {
	msg := fmt.Sprintf("FPS: %.2f\nTPS: %.2f\n\nUpdate: %.2fms\nDraw:   %.2fms\nTotal:  %.2fms",
		ebiten.ActualFPS(),
		ebiten.ActualTPS(),
		g.updateAvg,
		g.drawAvg,
		g.updateAvg+g.drawAvg)
	if f := g.lastFrame; f != nil {
		msg += fmt.Sprintf("\n\nFrame:  %d\nAgents: %d\nCanvas: %dx%d\nState:  %s",
			f.Index, f.AgentCount, f.Width, f.Height, g.sim.State())
		if f.Dropped {
			msg += "\n(dropped)"
		}
	}
	if g.paused {
		msg += "\n\nPAUSED"
	}
	return msg
}

// Layout keeps the canvas at the window size, the next frame picks up a new size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != g.width || outsideHeight != g.height {
		g.width, g.height = outsideWidth, outsideHeight
		g.sim.OnSurfaceResize(outsideWidth, outsideHeight)
	}
	return outsideWidth, outsideHeight
}
