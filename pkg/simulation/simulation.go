package simulation

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/lao-tseu-is-alive/go-boids-unlimited/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-boids-unlimited/pkg/dispatch"
	"github.com/lao-tseu-is-alive/go-boids-unlimited/pkg/geometry"
	"github.com/tochemey/goakt/v3/log"
)

// State is the frame pipeline position of a Simulation.
type State int32

const (
	StateUninitialized State = iota
	StateReady
	StateClearing
	StateSimulating
	StateRendering
	StatePresented
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateClearing:
		return "clearing"
	case StateSimulating:
		return "simulating"
	case StateRendering:
		return "rendering"
	case StatePresented:
		return "presented"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// NeighborSearch selects how the kernel finds neighbour candidates.
type NeighborSearch string

const (
	// SearchScan compares every agent with every other one.
	SearchScan NeighborSearch = "scan"
	// SearchGrid queries a spatial hash rebuilt once per frame.
	SearchGrid NeighborSearch = "grid"
)

// DefaultAgentColor is the color agents are drawn with.
var DefaultAgentColor = color.RGBA{R: 100, G: 200, B: 255, A: 255}

// Frame describes one RenderFrame call.
type Frame struct {
	Index      uint64
	Session    uuid.UUID
	Width      int
	Height     int
	AgentCount int
	// Dropped is set when nothing was presented, the physics step still happened
	// unless the canvas is empty.
	Dropped  bool
	Duration time.Duration
	// Canvas is owned by the Simulation and overwritten by the next frame.
	Canvas *Canvas
}

// Surface is where presented frames go.
// Present returns an error wrapping ErrNoDrawable when there is nothing to draw into this time.
type Surface interface {
	Present(ctx context.Context, frame *Frame) error
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func(ctx context.Context, frame *Frame) error

// Present calls f.
func (f SurfaceFunc) Present(ctx context.Context, frame *Frame) error { return f(ctx, frame) }

// Option configures a Simulation.
type Option func(*Simulation)

// WithLogger sets the logger, log.DefaultLogger otherwise.
func WithLogger(l log.Logger) Option {
	return func(s *Simulation) { s.logger = l }
}

// WithDispatchGrid sets the group and tile sizes.
func WithDispatchGrid(g dispatch.Grid) Option {
	return func(s *Simulation) { s.grid = g }
}

// WithWorkers bounds the worker pool, 0 means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(s *Simulation) { s.workers = n }
}

// WithSurface sets where frames are presented. Without one, frames are only returned.
func WithSurface(surface Surface) Option {
	return func(s *Simulation) { s.surface = surface }
}

// WithAgentColor sets the draw color.
func WithAgentColor(c color.RGBA) Option {
	return func(s *Simulation) { s.color = c }
}

// WithNeighborSearch selects the neighbour search strategy.
func WithNeighborSearch(n NeighborSearch) Option {
	return func(s *Simulation) { s.search = n }
}

// WithSeed makes agent placement reproducible, 0 picks a random seed.
func WithSeed(seed uint64) Option {
	return func(s *Simulation) { s.seed = seed }
}

// WithCanvasSize sets the initial canvas size, same as calling OnSurfaceResize before the first frame.
func WithCanvasSize(width, height int) Option {
	return func(s *Simulation) { s.pendingW, s.pendingH, s.resized = width, height, true }
}

// Simulation owns the agent buffer and the canvas and sequences the frame passes:
// clear, physics, rasterize, present.
// RenderFrame calls are serialized. OnSurfaceResize, SetObstacles, ClearObstacles,
// Reset, State and SnapshotAgents may be called from any goroutine.
type Simulation struct {
	logger     log.Logger
	grid       dispatch.Grid
	workers    int
	dispatcher *dispatch.Dispatcher
	surface    Surface
	color      color.RGBA
	search     NeighborSearch
	seed       uint64
	obstacles  *behavior.ObstacleSet
	state      atomic.Int32

	// frame is held for the whole of RenderFrame
	frame       sync.Mutex
	canvas      *Canvas
	next        behavior.Agents
	neighbors   *behavior.Grid
	bins        [][]int32
	initialized bool
	generation  uint64
	index       uint64

	// pending changes applied at the start of the next frame
	pending  sync.Mutex
	pendingW int
	pendingH int
	resized  bool
	reset    bool

	// current is the last completed physics result, swapped under snap
	snap       sync.RWMutex
	current    behavior.Agents
	session    uuid.UUID
	lastIndex  uint64
	lastWidth  int
	lastHeight int
}

// New returns a Simulation in the Uninitialized state.
func New(opts ...Option) (*Simulation, error) {
	s := &Simulation{
		logger:    log.DefaultLogger,
		grid:      dispatch.Grid{GroupSize: dispatch.DefaultGroupSize, TileWidth: dispatch.DefaultTileWidth, TileHeight: dispatch.DefaultTileHeight},
		color:     DefaultAgentColor,
		search:    SearchScan,
		obstacles: behavior.NewObstacleSet(),
		neighbors: behavior.NewGrid(),
	}
	for _, opt := range opts {
		opt(s)
	}
	grid, err := dispatch.NewGrid(s.grid.GroupSize, s.grid.TileWidth, s.grid.TileHeight)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResource, err)
	}
	if s.workers < 0 {
		return nil, fmt.Errorf("%w: negative worker count %d", ErrResource, s.workers)
	}
	switch s.search {
	case SearchScan, SearchGrid:
	default:
		return nil, fmt.Errorf("%w: unknown neighbour search %q", ErrInvalidConfig, s.search)
	}
	s.grid = grid
	s.dispatcher = dispatch.NewDispatcher(grid, s.workers)
	if s.seed == 0 {
		s.seed = rand.Uint64()
	}
	canvas, err := NewCanvas(0, 0)
	if err != nil {
		return nil, err
	}
	s.canvas = canvas
	s.state.Store(int32(StateUninitialized))
	return s, nil
}

// State returns the current pipeline state.
func (s *Simulation) State() State {
	return State(s.state.Load())
}

func (s *Simulation) setState(st State) {
	s.state.Store(int32(st))
}

// Session identifies the current agent buffer, it changes on every (re)initialization.
// It is the zero UUID before the first initialization.
func (s *Simulation) Session() uuid.UUID {
	s.snap.RLock()
	defer s.snap.RUnlock()
	return s.session
}

// Workers returns the size of the worker pool.
func (s *Simulation) Workers() int { return s.dispatcher.Workers() }

// OnSurfaceResize records the new canvas size, applied at the start of the next frame.
// Agent positions are not rescaled.
func (s *Simulation) OnSurfaceResize(width, height int) {
	s.pending.Lock()
	defer s.pending.Unlock()
	s.pendingW, s.pendingH, s.resized = max(width, 0), max(height, 0), true
}

// SetObstacles replaces the obstacle set, points are in canvas pixels.
func (s *Simulation) SetObstacles(points []geometry.Vector2D) {
	s.obstacles.Replace(points)
}

// ClearObstacles removes every active obstacle.
func (s *Simulation) ClearObstacles() {
	s.obstacles.Clear()
}

// Obstacles returns the set the next frame will use.
func (s *Simulation) Obstacles() []behavior.Obstacle {
	return s.obstacles.Load()
}

// Reset discards the agent buffer, the next frame re-initializes it with the
// AgentCount of its params.
func (s *Simulation) Reset() {
	s.pending.Lock()
	defer s.pending.Unlock()
	s.reset = true
}

// SnapshotAgents returns a copy of the agents as of the last completed frame.
func (s *Simulation) SnapshotAgents() behavior.Agents {
	s.snap.RLock()
	defer s.snap.RUnlock()
	return s.current.Clone()
}

// Snapshot returns the last completed frame with its metadata.
func (s *Simulation) Snapshot() Snapshot {
	s.snap.RLock()
	defer s.snap.RUnlock()
	return Snapshot{
		Session: s.session,
		Frame:   s.lastIndex,
		Width:   s.lastWidth,
		Height:  s.lastHeight,
		Agents:  s.current.Clone(),
	}
}

// RenderFrame runs one frame with p: clear the canvas, update every agent,
// draw them and present the canvas.
// A frame with no drawable is reported through Frame.Dropped, not as an error.
func (s *Simulation) RenderFrame(ctx context.Context, p Params) (*Frame, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s.frame.Lock()
	defer s.frame.Unlock()

	start := time.Now()
	if err := s.applyPending(); err != nil {
		return nil, err
	}

	s.index++
	frame := &Frame{
		Index:  s.index,
		Width:  s.canvas.Width(),
		Height: s.canvas.Height(),
		Canvas: s.canvas,
	}
	if frame.Width == 0 || frame.Height == 0 {
		// nothing to draw into, initialization waits for a real surface
		frame.Dropped = true
		frame.Duration = time.Since(start)
		s.logger.Debugf("frame %d skipped, empty canvas", frame.Index)
		return frame, nil
	}

	if !s.initialized {
		s.initialize(p, frame.Width, frame.Height)
	}
	s.snap.RLock()
	current := s.current
	frame.Session = s.session
	s.snap.RUnlock()
	frame.AgentCount = len(current)

	if err := s.runPasses(ctx, p, current, frame); err != nil {
		s.setState(StateReady)
		return nil, err
	}

	if s.surface != nil {
		err := s.surface.Present(ctx, frame)
		switch {
		case errors.Is(err, ErrNoDrawable):
			frame.Dropped = true
			s.logger.Warnf("frame %d dropped: %v", frame.Index, err)
		case err != nil:
			s.setState(StateReady)
			return nil, fmt.Errorf("present frame %d: %w", frame.Index, err)
		}
	}
	s.setState(StatePresented)
	frame.Duration = time.Since(start)
	s.logger.Debugf("frame %d: %d agents on %dx%d in %s", frame.Index, frame.AgentCount, frame.Width, frame.Height, frame.Duration)
	s.setState(StateReady)
	return frame, nil
}

func (s *Simulation) runPasses(ctx context.Context, p Params, current behavior.Agents, frame *Frame) error {
	s.setState(StateClearing)
	err := s.dispatcher.Tiles(ctx, frame.Width, frame.Height, func(_ context.Context, _ int, r image.Rectangle) error {
		s.canvas.Clear(r)
		return nil
	})
	if err != nil {
		return fmt.Errorf("clear pass: %w", err)
	}

	s.setState(StateSimulating)
	obstacles := s.obstacles.Load()
	settings := p.Settings(frame.Width, frame.Height)
	next := s.next[:len(current)]
	if err := s.physicsPass(ctx, current, next, obstacles, settings); err != nil {
		return fmt.Errorf("physics pass: %w", err)
	}
	s.snap.Lock()
	s.current, s.next = next, current
	s.lastIndex = frame.Index
	s.lastWidth, s.lastHeight = frame.Width, frame.Height
	s.snap.Unlock()

	s.setState(StateRendering)
	if err := s.drawPass(ctx, next, p.DrawRadius, frame.Width, frame.Height); err != nil {
		return fmt.Errorf("draw pass: %w", err)
	}
	return nil
}

// physicsPass writes next[i] for every agent, reading only the frame-start snapshot current.
func (s *Simulation) physicsPass(ctx context.Context, current, next behavior.Agents, obstacles []behavior.Obstacle, settings behavior.Settings) error {
	useGrid := s.search == SearchGrid
	if useGrid {
		s.neighbors.Rebuild(current, settings.Width, settings.Height, settings.Radius)
	}
	return s.dispatcher.Agents(ctx, len(current), func(ctx context.Context, r dispatch.Range) error {
		var near []int
		for i := r.Start; i < r.End; i++ {
			if useGrid {
				near = s.neighbors.Neighbors(near[:0], current[i].Position)
				if near == nil {
					near = []int{}
				}
			}
			next[i] = behavior.Step(i, current, near, obstacles, settings)
		}
		return ctx.Err()
	})
}

// drawPass bins agents into the tiles their disk touches, then fills every tile in parallel.
func (s *Simulation) drawPass(ctx context.Context, agents behavior.Agents, radius float32, width, height int) error {
	cols, rows := s.grid.TileCount(width, height)
	if len(s.bins) != cols*rows {
		s.bins = make([][]int32, cols*rows)
	} else {
		for k := range s.bins {
			s.bins[k] = s.bins[k][:0]
		}
	}
	bounds := s.canvas.Bounds()
	for i, a := range agents {
		box := diskBounds(a.Position.X, a.Position.Y, radius).Intersect(bounds)
		if box.Empty() {
			continue
		}
		for ty := box.Min.Y / s.grid.TileHeight; ty <= (box.Max.Y-1)/s.grid.TileHeight; ty++ {
			for tx := box.Min.X / s.grid.TileWidth; tx <= (box.Max.X-1)/s.grid.TileWidth; tx++ {
				k := ty*cols + tx
				s.bins[k] = append(s.bins[k], int32(i))
			}
		}
	}
	return s.dispatcher.Tiles(ctx, width, height, func(_ context.Context, tile int, r image.Rectangle) error {
		for _, i := range s.bins[tile] {
			p := agents[i].Position
			s.canvas.FillDisk(p.X, p.Y, radius, s.color, r)
		}
		return nil
	})
}

func (s *Simulation) applyPending() error {
	s.pending.Lock()
	resized, w, h, reset := s.resized, s.pendingW, s.pendingH, s.reset
	s.resized, s.reset = false, false
	s.pending.Unlock()

	if resized && (w != s.canvas.Width() || h != s.canvas.Height()) {
		canvas, err := NewCanvas(w, h)
		if err != nil {
			return err
		}
		s.canvas = canvas
		s.bins = nil
		s.logger.Infof("canvas resized to %dx%d", w, h)
	}
	if reset && s.initialized {
		s.initialized = false
		s.logger.Infof("session %s reset after %d frames", s.Session(), s.index)
	}
	return nil
}

func (s *Simulation) initialize(p Params, width, height int) {
	s.generation++
	rng := rand.New(rand.NewPCG(s.seed, s.generation))
	agents := behavior.NewAgents(p.AgentCount, float32(width), float32(height), p.Margin, p.MaxSpeed, rng)
	session := uuid.New()

	s.snap.Lock()
	s.current = agents
	s.session = session
	s.lastIndex = s.index
	s.lastWidth, s.lastHeight = width, height
	s.snap.Unlock()

	s.next = make(behavior.Agents, len(agents))
	s.initialized = true
	s.setState(StateReady)
	s.logger.Infof("session %s initialized: %d agents on %dx%d", session, len(agents), width, height)
}
