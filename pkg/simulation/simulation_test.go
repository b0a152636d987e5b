package simulation

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"math"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/lao-tseu-is-alive/go-boids-unlimited/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-boids-unlimited/pkg/dispatch"
	"github.com/lao-tseu-is-alive/go-boids-unlimited/pkg/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tochemey/goakt/v3/log"
)

func newTestSimulation(t *testing.T, opts ...Option) *Simulation {
	t.Helper()
	base := []Option{
		WithLogger(log.DiscardLogger),
		WithSeed(42),
		WithCanvasSize(96, 64),
		WithDispatchGrid(dispatch.Grid{GroupSize: 16, TileWidth: 16, TileHeight: 16}),
		WithWorkers(4),
	}
	sim, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return sim
}

func testParams(agents int) Params {
	p := DefaultParams()
	p.AgentCount = agents
	p.Margin = 10
	return p
}

func countPainted(c *Canvas) int {
	n := 0
	for i := 3; i < len(c.Image().Pix); i += 4 {
		if c.Image().Pix[i] != 0 {
			n++
		}
	}
	return n
}

func TestNew_Errors(t *testing.T) {
	_, err := New(WithWorkers(-1))
	assert.ErrorIs(t, err, ErrResource)

	_, err = New(WithDispatchGrid(dispatch.Grid{GroupSize: -1}))
	assert.ErrorIs(t, err, ErrResource)

	_, err = New(WithNeighborSearch("octree"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRenderFrame_ZeroAgents(t *testing.T) {
	sim := newTestSimulation(t)
	ctx := context.Background()

	frame, err := sim.RenderFrame(ctx, testParams(0))
	require.NoError(t, err)
	assert.False(t, frame.Dropped)
	assert.Equal(t, 0, frame.AgentCount)
	assert.Equal(t, 96, frame.Width)
	assert.Equal(t, 64, frame.Height)
	assert.Zero(t, countPainted(frame.Canvas), "canvas must be cleared")
	assert.Empty(t, sim.SnapshotAgents())
	assert.Equal(t, StateReady, sim.State())
}

func TestRenderFrame_ClearsPreviousFrame(t *testing.T) {
	sim := newTestSimulation(t)
	ctx := context.Background()

	frame, err := sim.RenderFrame(ctx, testParams(50))
	require.NoError(t, err)
	assert.Positive(t, countPainted(frame.Canvas))

	sim.Reset()
	frame, err = sim.RenderFrame(ctx, testParams(0))
	require.NoError(t, err)
	assert.Zero(t, countPainted(frame.Canvas))
}

func TestRenderFrame_States(t *testing.T) {
	var seen []State
	var sim *Simulation
	sim = newTestSimulation(t, WithSurface(SurfaceFunc(func(ctx context.Context, frame *Frame) error {
		seen = append(seen, sim.State())
		return nil
	})))
	assert.Equal(t, StateUninitialized, sim.State())
	assert.Equal(t, uuid.Nil, sim.Session())

	_, err := sim.RenderFrame(context.Background(), testParams(20))
	require.NoError(t, err)
	assert.Equal(t, []State{StateRendering}, seen)
	assert.Equal(t, StateReady, sim.State())
	assert.NotEqual(t, uuid.Nil, sim.Session())

	assert.Equal(t, "simulating", StateSimulating.String())
	assert.Equal(t, "State(42)", State(42).String())
}

func TestRenderFrame_WaitsForCanvas(t *testing.T) {
	sim, err := New(WithLogger(log.DiscardLogger))
	require.NoError(t, err)
	ctx := context.Background()

	frame, err := sim.RenderFrame(ctx, testParams(10))
	require.NoError(t, err)
	assert.True(t, frame.Dropped)
	assert.Equal(t, StateUninitialized, sim.State())
	assert.Empty(t, sim.SnapshotAgents())

	sim.OnSurfaceResize(40, 30)
	frame, err = sim.RenderFrame(ctx, testParams(10))
	require.NoError(t, err)
	assert.False(t, frame.Dropped)
	assert.Len(t, sim.SnapshotAgents(), 10)
}

func TestRenderFrame_AgentCountLatched(t *testing.T) {
	sim := newTestSimulation(t)
	ctx := context.Background()

	frame, err := sim.RenderFrame(ctx, testParams(10))
	require.NoError(t, err)
	assert.Equal(t, 10, frame.AgentCount)
	first := sim.Session()

	frame, err = sim.RenderFrame(ctx, testParams(25))
	require.NoError(t, err)
	assert.Equal(t, 10, frame.AgentCount, "agent count applies on re-initialization only")
	assert.Equal(t, first, frame.Session)

	sim.Reset()
	frame, err = sim.RenderFrame(ctx, testParams(25))
	require.NoError(t, err)
	assert.Equal(t, 25, frame.AgentCount)
	assert.NotEqual(t, first, frame.Session)
	assert.Equal(t, frame.Session, sim.Session())
}

func TestRenderFrame_Resize(t *testing.T) {
	sim := newTestSimulation(t)
	ctx := context.Background()
	p := testParams(30)
	p.MaxSpeed = 0 // agents stay where they are

	_, err := sim.RenderFrame(ctx, p)
	require.NoError(t, err)
	before := sim.SnapshotAgents()
	session := sim.Session()

	sim.OnSurfaceResize(200, 150)
	frame, err := sim.RenderFrame(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 200, frame.Width)
	assert.Equal(t, 150, frame.Height)
	assert.Equal(t, 200, frame.Canvas.Width())
	assert.Equal(t, session, frame.Session, "resize must not re-initialize")

	after := sim.SnapshotAgents()
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].Position, after[i].Position, "agent %d was rescaled", i)
	}
}

func TestRenderFrame_FollowsKernel(t *testing.T) {
	for _, search := range []NeighborSearch{SearchScan, SearchGrid} {
		t.Run(string(search), func(t *testing.T) {
			sim := newTestSimulation(t, WithNeighborSearch(search))
			ctx := context.Background()
			p := testParams(120)
			p.Radius = 12

			_, err := sim.RenderFrame(ctx, p)
			require.NoError(t, err)
			sim.SetObstacles([]geometry.Vector2D{{X: 48, Y: 32}})

			start := sim.SnapshotAgents()
			obstacles := sim.Obstacles()
			_, err = sim.RenderFrame(ctx, p)
			require.NoError(t, err)
			got := sim.SnapshotAgents()

			settings := p.Settings(96, 64)
			for i := range start {
				want := behavior.Step(i, start, nil, obstacles, settings)
				if got[i] != want {
					t.Fatalf("agent %d = %+v, want %+v", i, got[i], want)
				}
			}
		})
	}
}

func TestRenderFrame_DrawsEveryAgent(t *testing.T) {
	agentColor := color.RGBA{R: 255, G: 10, B: 20, A: 255}
	sim := newTestSimulation(t, WithAgentColor(agentColor))
	p := testParams(40)
	p.MaxSpeed = 0

	frame, err := sim.RenderFrame(context.Background(), p)
	require.NoError(t, err)
	for i, a := range sim.SnapshotAgents() {
		x, y := int(a.Position.X), int(a.Position.Y)
		assert.Equal(t, agentColor, frame.Canvas.At(x, y), "agent %d at %v not drawn", i, a.Position)
	}
}

func TestRenderFrame_DroppedFrame(t *testing.T) {
	fail := true
	sim := newTestSimulation(t, WithSurface(SurfaceFunc(func(ctx context.Context, frame *Frame) error {
		if fail {
			return fmt.Errorf("window minimized: %w", ErrNoDrawable)
		}
		return nil
	})))
	ctx := context.Background()

	frame, err := sim.RenderFrame(ctx, testParams(10))
	require.NoError(t, err)
	assert.True(t, frame.Dropped)
	assert.Equal(t, StateReady, sim.State())
	snap := sim.Snapshot()
	assert.Equal(t, frame.Index, snap.Frame, "physics result is kept for a dropped frame")

	fail = false
	frame, err = sim.RenderFrame(ctx, testParams(10))
	require.NoError(t, err)
	assert.False(t, frame.Dropped)
	assert.Equal(t, uint64(2), frame.Index)
}

func TestRenderFrame_PresentError(t *testing.T) {
	boom := errors.New("gpu lost")
	sim := newTestSimulation(t, WithSurface(SurfaceFunc(func(ctx context.Context, frame *Frame) error {
		return boom
	})))
	_, err := sim.RenderFrame(context.Background(), testParams(5))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateReady, sim.State())
}

func TestRenderFrame_InvalidParams(t *testing.T) {
	sim := newTestSimulation(t)
	p := testParams(5)
	p.AlignCoefficient = 3
	_, err := sim.RenderFrame(context.Background(), p)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, StateUninitialized, sim.State())
}

func TestRenderFrame_Cancelled(t *testing.T) {
	sim := newTestSimulation(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sim.RenderFrame(ctx, testParams(5))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimulation_ObstaclesAndConcurrentCallers(t *testing.T) {
	sim := newTestSimulation(t)
	ctx := context.Background()

	assert.True(t, sim.Obstacles()[0].Inert)
	sim.SetObstacles([]geometry.Vector2D{{X: 1, Y: 1}, {X: 2, Y: 2}})
	assert.Len(t, sim.Obstacles(), 2)
	sim.ClearObstacles()
	assert.True(t, sim.Obstacles()[0].Inert)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			sim.SetObstacles([]geometry.Vector2D{{X: float32(i), Y: 10}})
			_ = sim.SnapshotAgents()
			_ = sim.State()
			sim.OnSurfaceResize(96+i%2, 64)
		}
		sim.ClearObstacles()
	}()
	for i := 0; i < 20; i++ {
		_, err := sim.RenderFrame(ctx, testParams(64))
		require.NoError(t, err)
	}
	wg.Wait()
	assert.Len(t, sim.SnapshotAgents(), 64)
}

func TestParams_Validate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())

	tests := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"negative margin", func(p *Params) { p.Margin = -1 }},
		{"negative draw radius", func(p *Params) { p.DrawRadius = -1 }},
		{"NaN margin", func(p *Params) { p.Margin = float32(math.NaN()) }},
		{"Inf margin", func(p *Params) { p.Margin = float32(math.Inf(1)) }},
		{"Inf draw radius", func(p *Params) { p.DrawRadius = float32(math.Inf(1)) }},
		{"NaN draw radius", func(p *Params) { p.DrawRadius = float32(math.NaN()) }},
		{"draw radius above max", func(p *Params) { p.DrawRadius = MaxDrawRadius + 1 }},
		{"negative agent count", func(p *Params) { p.AgentCount = -1 }},
		{"separate above one", func(p *Params) { p.SeparateCoefficient = 1.01 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			assert.ErrorIs(t, p.Validate(), ErrInvalidConfig)
		})
	}
}

func TestRenderFrame_RejectsNaNMargin(t *testing.T) {
	sim := newTestSimulation(t)
	p := testParams(4)
	p.Margin = float32(math.NaN())
	_, err := sim.RenderFrame(context.Background(), p)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Empty(t, sim.SnapshotAgents())

	p.Margin = 10
	_, err = sim.RenderFrame(context.Background(), p)
	require.NoError(t, err)
	for _, a := range sim.SnapshotAgents() {
		assert.True(t, a.Position.IsFinite(), "position %v", a.Position)
	}
}

func TestNextAgentCountPreset(t *testing.T) {
	assert.Equal(t, 256, NextAgentCountPreset(128))
	assert.Equal(t, 128, NextAgentCountPreset(65536))
	assert.Equal(t, 8192, NextAgentCountPreset(3000))
	assert.Equal(t, 128, NextAgentCountPreset(0))
}

func TestControls(t *testing.T) {
	sim := newTestSimulation(t)
	c := NewControls(sim, DefaultParams())

	require.NoError(t, c.Update(func(p *Params) { p.Radius = 30 }))
	assert.Equal(t, float32(30), c.Params().Radius)

	err := c.Update(func(p *Params) { p.CohereCoefficient = -1 })
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, DefaultParams().CohereCoefficient, c.Params().CohereCoefficient)

	assert.ErrorIs(t, c.SetParams(Params{MaxSpeed: -1}), ErrInvalidConfig)
	require.NoError(t, c.SetParams(testParams(7)))
	assert.Equal(t, 7, c.Params().AgentCount)

	c.SetObstacles(geometry.NewVector(5, 6))
	assert.Equal(t, geometry.NewVector(5, 6), sim.Obstacles()[0].Position)
	c.ClearObstacles()
	assert.True(t, sim.Obstacles()[0].Inert)

	_, err = sim.RenderFrame(context.Background(), c.Params())
	require.NoError(t, err)
	first := sim.Session()
	c.Restart()
	_, err = sim.RenderFrame(context.Background(), c.Params())
	require.NoError(t, err)
	assert.NotEqual(t, first, sim.Session())
}

func BenchmarkRenderFrame(b *testing.B) {
	for _, search := range []NeighborSearch{SearchScan, SearchGrid} {
		b.Run(string(search), func(b *testing.B) {
			sim, err := New(
				WithLogger(log.DiscardLogger),
				WithSeed(1),
				WithCanvasSize(1024, 768),
				WithNeighborSearch(search),
			)
			require.NoError(b, err)
			p := DefaultParams()
			p.AgentCount = 4096
			ctx := context.Background()
			b.ResetTimer()
			for n := 0; n < b.N; n++ {
				if _, err := sim.RenderFrame(ctx, p); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
