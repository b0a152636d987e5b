package behavior

import (
	"errors"
	"fmt"

	"github.com/lao-tseu-is-alive/go-boids-unlimited/pkg/geometry"
)

// ErrInvalidSettings is returned by Settings.Validate.
var ErrInvalidSettings = errors.New("invalid flocking settings")

// Settings controls the physics constants for the simulation.
// A fresh copy is passed into every update so rules can change at runtime.
type Settings struct {
	AlignCoefficient    float32 // Alignment strength, [0,1]
	CohereCoefficient   float32 // Cohesion strength, [0,1]
	SeparateCoefficient float32 // Separation strength, [0,1]

	Radius   float32 // How far can they see?
	MaxSpeed float32

	// ObstacleWeight scales the obstacle term inside separation, 1 is the reference behaviour.
	ObstacleWeight float32
	// ObstacleRadius is the sensing radius for obstacles, 0 means Radius.
	ObstacleRadius float32

	Width  float32
	Height float32
}

// DefaultSettings returns the reference tuning on a width x height canvas.
func DefaultSettings(width, height float32) Settings {
	return Settings{
		AlignCoefficient:    0.3,
		CohereCoefficient:   0.4,
		SeparateCoefficient: 0.5,
		Radius:              15,
		MaxSpeed:            5,
		ObstacleWeight:      1,
		Width:               width,
		Height:              height,
	}
}

// Validate checks ranges. Coefficients live in [0,1], everything else must be non-negative.
func (s Settings) Validate() error {
	coefficients := []struct {
		name  string
		value float32
	}{
		{"alignCoefficient", s.AlignCoefficient},
		{"cohereCoefficient", s.CohereCoefficient},
		{"separateCoefficient", s.SeparateCoefficient},
	}
	for _, c := range coefficients {
		if c.value < 0 || c.value > 1 {
			return fmt.Errorf("%w: %s %v outside [0,1]", ErrInvalidSettings, c.name, c.value)
		}
	}
	scalars := []struct {
		name  string
		value float32
	}{
		{"radius", s.Radius},
		{"maxSpeed", s.MaxSpeed},
		{"obstacleWeight", s.ObstacleWeight},
		{"obstacleRadius", s.ObstacleRadius},
		{"width", s.Width},
		{"height", s.Height},
	}
	for _, c := range scalars {
		if c.value < 0 || !geometry.NewVector(c.value, 0).IsFinite() {
			return fmt.Errorf("%w: %s must be a non-negative number, got %v", ErrInvalidSettings, c.name, c.value)
		}
	}
	return nil
}

func (s Settings) obstacleRadius() float32 {
	if s.ObstacleRadius > 0 {
		return s.ObstacleRadius
	}
	return s.Radius
}

// Forces is the steering breakdown for one agent.
// Align and Cohere are zero when the agent has no neighbour.
type Forces struct {
	Align     geometry.Vector2D
	Cohere    geometry.Vector2D
	Separate  geometry.Vector2D // peers plus weighted obstacles
	Neighbors int
}

// Acceleration combines the three rules with their coefficients.
func (f Forces) Acceleration(s Settings) geometry.Vector2D {
	return f.Align.Mul(s.AlignCoefficient).
		Add(f.Cohere.Mul(s.CohereCoefficient)).
		Add(f.Separate.Mul(s.SeparateCoefficient))
}

// Steer computes the forces acting on agents[i].
// near lists the candidate neighbour indices in ascending order, nil means every agent.
// Only agents and obstacles are read, nothing is written.
func Steer(i int, agents Agents, near []int, obstacles []Obstacle, s Settings) Forces {
	me := agents[i]
	radiusSq := s.Radius * s.Radius

	var alignSum, cohereSum, separateSum geometry.Vector2D
	neighbors := 0

	visit := func(j int) {
		if j == i {
			return
		}
		other := agents[j]
		distSq := me.Position.DistanceSquaredTo(other.Position)
		if distSq >= radiusSq {
			return
		}
		alignSum = alignSum.Add(other.Velocity)
		cohereSum = cohereSum.Add(other.Position)
		// coincident agents still count as neighbours, they just do not push
		if distSq > 0 {
			separateSum = separateSum.Add(me.Position.Sub(other.Position).Mul(1 / distSq))
		}
		neighbors++
	}
	if near == nil {
		for j := range agents {
			visit(j)
		}
	} else {
		for _, j := range near {
			visit(j)
		}
	}

	f := Forces{Neighbors: neighbors}
	if neighbors > 0 {
		n := 1 / float32(neighbors)
		f.Align = alignSum.Mul(n).Sub(me.Velocity)
		f.Cohere = cohereSum.Mul(n).Sub(me.Position)
	}

	obstacleRadiusSq := s.obstacleRadius() * s.obstacleRadius()
	var repel geometry.Vector2D
	for _, o := range obstacles {
		if o.Inert {
			continue
		}
		distSq := me.Position.DistanceSquaredTo(o.Position)
		if distSq >= obstacleRadiusSq || distSq == 0 {
			continue
		}
		repel = repel.Add(me.Position.Sub(o.Position).Mul(1 / distSq))
	}
	f.Separate = separateSum.Add(repel.Mul(s.ObstacleWeight))
	return f
}

// Integrate applies acceleration to a and returns the updated agent.
// Velocity is clamped per axis then capped in magnitude to MaxSpeed,
// position wraps around the canvas.
func Integrate(a Agent, acceleration geometry.Vector2D, s Settings) Agent {
	velocity := a.Velocity.Add(acceleration).ClampAxes(s.MaxSpeed).Limit(s.MaxSpeed)
	return Agent{
		Position:     a.Position.Add(velocity).Wrap(s.Width, s.Height),
		Velocity:     velocity,
		Acceleration: acceleration,
		Force:        a.Force,
	}
}

// Step runs the full update for agents[i] against the frame-start snapshot agents.
func Step(i int, agents Agents, near []int, obstacles []Obstacle, s Settings) Agent {
	f := Steer(i, agents, near, obstacles, s)
	return Integrate(agents[i], f.Acceleration(s), s)
}
