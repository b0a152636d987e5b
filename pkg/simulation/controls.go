package simulation

import (
	"sync"

	"github.com/lao-tseu-is-alive/go-boids-unlimited/pkg/geometry"
)

// Controls is the mailbox between an input thread (UI widgets, pointer, terminal events)
// and the frame loop. Parameters are copied out once per frame, obstacle points
// are forwarded to the Simulation as a whole new set.
type Controls struct {
	mu     sync.Mutex
	params Params
	sim    *Simulation
}

// NewControls starts from p and forwards obstacles to sim.
func NewControls(sim *Simulation, p Params) *Controls {
	return &Controls{params: p, sim: sim}
}

// Params returns the parameters for the next frame.
func (c *Controls) Params() Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// SetParams replaces all parameters. AgentCount only takes effect after a Reset.
func (c *Controls) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params = p
	return nil
}

// Update applies fn to a copy of the parameters and keeps the result when it is valid.
func (c *Controls) Update(fn func(p *Params)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.params
	fn(&p)
	if err := p.Validate(); err != nil {
		return err
	}
	c.params = p
	return nil
}

// SetObstacles replaces the obstacle set with points given in canvas pixels.
func (c *Controls) SetObstacles(points ...geometry.Vector2D) {
	c.sim.SetObstacles(points)
}

// ClearObstacles removes every obstacle (pointer released).
func (c *Controls) ClearObstacles() {
	c.sim.ClearObstacles()
}

// Restart latches the current AgentCount by resetting the simulation.
func (c *Controls) Restart() {
	c.sim.Reset()
}
