package simulation

import (
	"fmt"

	"github.com/lao-tseu-is-alive/go-boids-unlimited/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-boids-unlimited/pkg/geometry"
)

// MaxDrawRadius bounds the disk drawn per agent, same as the config schema.
const MaxDrawRadius = 64

// AgentCountPresets are the flock sizes offered by the hosts.
var AgentCountPresets = []int{128, 256, 512, 1024, 2048, 8192, 16384, 32768, 65536}

// NextAgentCountPreset returns the preset following n, wrapping to the first one.
func NextAgentCountPreset(n int) int {
	for _, p := range AgentCountPresets {
		if p > n {
			return p
		}
	}
	return AgentCountPresets[0]
}

// Params are the tuning values read fresh by every RenderFrame call.
// AgentCount is latched when the agent buffer is (re)initialized, changing it
// later has no effect until Reset.
type Params struct {
	AlignCoefficient    float32 `json:"alignCoefficient"`
	CohereCoefficient   float32 `json:"cohereCoefficient"`
	SeparateCoefficient float32 `json:"separateCoefficient"`
	Radius              float32 `json:"radius"`
	MaxSpeed            float32 `json:"maxSpeed"`
	Margin              float32 `json:"margin"`
	DrawRadius          float32 `json:"drawRadius"`
	AgentCount          int     `json:"agentCount"`

	ObstacleWeight float32 `json:"obstacleWeight"`
	ObstacleRadius float32 `json:"obstacleRadius"`
}

// DefaultParams returns the reference tuning.
func DefaultParams() Params {
	return Params{
		AlignCoefficient:    0.3,
		CohereCoefficient:   0.4,
		SeparateCoefficient: 0.5,
		Radius:              15,
		MaxSpeed:            5,
		Margin:              50,
		DrawRadius:          2,
		AgentCount:          16384,
		ObstacleWeight:      1,
	}
}

// Settings projects the params onto a width x height canvas for the kernel.
func (p Params) Settings(width, height int) behavior.Settings {
	return behavior.Settings{
		AlignCoefficient:    p.AlignCoefficient,
		CohereCoefficient:   p.CohereCoefficient,
		SeparateCoefficient: p.SeparateCoefficient,
		Radius:              p.Radius,
		MaxSpeed:            p.MaxSpeed,
		ObstacleWeight:      p.ObstacleWeight,
		ObstacleRadius:      p.ObstacleRadius,
		Width:               float32(width),
		Height:              float32(height),
	}
}

// Validate checks every value range.
func (p Params) Validate() error {
	if err := p.Settings(0, 0).Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if p.Margin < 0 || !geometry.NewVector(p.Margin, 0).IsFinite() {
		return fmt.Errorf("%w: margin must be a non-negative number, got %v", ErrInvalidConfig, p.Margin)
	}
	if p.DrawRadius < 0 || p.DrawRadius > MaxDrawRadius || !geometry.NewVector(p.DrawRadius, 0).IsFinite() {
		return fmt.Errorf("%w: drawRadius must be within [0,%d], got %v", ErrInvalidConfig, MaxDrawRadius, p.DrawRadius)
	}
	if p.AgentCount < 0 {
		return fmt.Errorf("%w: agentCount must not be negative, got %d", ErrInvalidConfig, p.AgentCount)
	}
	return nil
}
