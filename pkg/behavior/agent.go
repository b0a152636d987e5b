package behavior

import (
	"math/rand/v2"

	"github.com/lao-tseu-is-alive/go-boids-unlimited/pkg/geometry"
)

// Agent represents a single entity in the flock.
// Boids is an artificial life program, developed by Craig Reynolds in 1986,
// which simulates the flocking behaviour of birds, and related group motion.
// https://en.wikipedia.org/wiki/Boids
// The four vectors keep the layout of the compute buffer they mirror:
// position, velocity, acceleration and force, all in single precision.
type Agent struct {
	Position     geometry.Vector2D `json:"position"`
	Velocity     geometry.Vector2D `json:"velocity"`
	Acceleration geometry.Vector2D `json:"acceleration"`
	// Force is carried through every update untouched, nothing reads it yet.
	Force geometry.Vector2D `json:"force"`
}

// Agents is the flock buffer. Within a frame it is read-shared by every
// kernel invocation and each index is written by exactly one of them.
type Agents []Agent

// NewAgents creates n agents with a random position inset by margin from the
// canvas borders and a random velocity in [-maxSpeed, maxSpeed] on each axis.
// When a dimension is too small for the inset the whole range is used.
func NewAgents(n int, width, height, margin, maxSpeed float32, rng *rand.Rand) Agents {
	if n <= 0 {
		return Agents{}
	}
	agents := make(Agents, n)
	for i := range agents {
		agents[i] = Agent{
			Position: geometry.Vector2D{
				X: inset(rng, width, margin),
				Y: inset(rng, height, margin),
			},
			Velocity: geometry.Vector2D{
				X: (rng.Float32()*2 - 1) * maxSpeed,
				Y: (rng.Float32()*2 - 1) * maxSpeed,
			},
		}
	}
	return agents
}

// Clone returns a copy that shares no memory with a.
func (a Agents) Clone() Agents {
	out := make(Agents, len(a))
	copy(out, a)
	return out
}

func inset(rng *rand.Rand, length, margin float32) float32 {
	// NaN fails both comparisons
	if !(margin >= 0) {
		margin = 0
	}
	span := length - 2*margin
	if !(span > 0) {
		return rng.Float32() * length
	}
	return margin + rng.Float32()*span
}
