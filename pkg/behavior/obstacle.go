package behavior

import (
	"sync/atomic"

	"github.com/lao-tseu-is-alive/go-boids-unlimited/pkg/geometry"
)

// Obstacle is a repulsion point driven by user input.
// An Inert obstacle fills the set when nothing is pressed and is ignored by the kernel.
type Obstacle struct {
	Position geometry.Vector2D `json:"position"`
	Inert    bool              `json:"inert,omitempty"`
}

// NeutralObstacle returns the placeholder used when no obstacle is active.
func NeutralObstacle() Obstacle {
	return Obstacle{Inert: true}
}

// ResolveObstacles guarantees a set with at least one element.
// An empty input yields the single neutral obstacle, anything else is returned unchanged.
func ResolveObstacles(points []Obstacle) []Obstacle {
	if len(points) == 0 {
		return []Obstacle{NeutralObstacle()}
	}
	return points
}

// ObstacleSet holds the current obstacles. Writers swap the whole slice,
// readers get an immutable view, so a frame in flight never sees a partial update.
type ObstacleSet struct {
	current atomic.Pointer[[]Obstacle]
}

// NewObstacleSet returns a set holding the neutral obstacle.
func NewObstacleSet() *ObstacleSet {
	s := &ObstacleSet{}
	s.Clear()
	return s
}

// Replace swaps in a copy of points (press or drag).
func (s *ObstacleSet) Replace(points []geometry.Vector2D) {
	next := make([]Obstacle, len(points))
	for i, p := range points {
		next[i] = Obstacle{Position: p}
	}
	next = ResolveObstacles(next)
	s.current.Store(&next)
}

// Clear drops every active obstacle (release).
func (s *ObstacleSet) Clear() {
	next := ResolveObstacles(nil)
	s.current.Store(&next)
}

// Load returns the set to use for the next frame. Callers must not modify it.
func (s *ObstacleSet) Load() []Obstacle {
	p := s.current.Load()
	if p == nil {
		return ResolveObstacles(nil)
	}
	return *p
}
