package simulation

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/lao-tseu-is-alive/go-boids-unlimited/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-boids-unlimited/pkg/dispatch"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tochemey/goakt/v3/log"
)

//go:embed boids.schema.json
var embeddedSchema string

const embeddedSchemaURL = "boids.schema.json"

// Config is the JSON configuration shared by the hosts and the headless runner.
type Config struct {
	// Canvas
	CanvasWidth  int `json:"canvasWidth"`
	CanvasHeight int `json:"canvasHeight"`

	// Population, applied on (re)initialization only
	AgentCount int `json:"agentCount"`

	// Flocking
	AlignCoefficient    float32 `json:"alignCoefficient"`
	CohereCoefficient   float32 `json:"cohereCoefficient"`
	SeparateCoefficient float32 `json:"separateCoefficient"`
	Radius              float32 `json:"radius"` // How far can they see?
	MaxSpeed            float32 `json:"maxSpeed"`
	Margin              float32 `json:"margin"` // spawn inset from the borders
	DrawRadius          float32 `json:"drawRadius"`

	// Obstacles, the defaults reuse the separation rule as is
	ObstacleWeight float32 `json:"obstacleWeight"`
	ObstacleRadius float32 `json:"obstacleRadius"` // 0 = radius

	// Dispatch
	NeighborSearch NeighborSearch `json:"neighborSearch"`
	GroupSize      int            `json:"groupSize"`
	TileWidth      int            `json:"tileWidth"`
	TileHeight     int            `json:"tileHeight"`
	Workers        int            `json:"workers"` // 0 = GOMAXPROCS

	// Hosts
	AgentColor     string `json:"agentColor"`
	Seed           uint64 `json:"seed"` // 0 = random
	TicksPerSecond int    `json:"ticksPerSecond"`
	SnapshotEvery  int    `json:"snapshotEvery"` // frames between telemetry snapshots, 0 disables
	Quiet          bool   `json:"quiet"`
}

// DefaultConfig returns the reference configuration on a 1024x768 canvas.
func DefaultConfig() *Config {
	p := DefaultParams()
	return &Config{
		CanvasWidth:         1024,
		CanvasHeight:        768,
		AgentCount:          p.AgentCount,
		AlignCoefficient:    p.AlignCoefficient,
		CohereCoefficient:   p.CohereCoefficient,
		SeparateCoefficient: p.SeparateCoefficient,
		Radius:              p.Radius,
		MaxSpeed:            p.MaxSpeed,
		Margin:              p.Margin,
		DrawRadius:          p.DrawRadius,
		ObstacleWeight:      p.ObstacleWeight,
		ObstacleRadius:      p.ObstacleRadius,
		NeighborSearch:      SearchGrid,
		GroupSize:           dispatch.DefaultGroupSize,
		TileWidth:           dispatch.DefaultTileWidth,
		TileHeight:          dispatch.DefaultTileHeight,
		AgentColor:          "#64c8ff",
		TicksPerSecond:      30,
		SnapshotEvery:       30,
	}
}

// LoadConfig loads configuration from a JSON file and validates it against the schema.
// An empty schemaFile uses the schema compiled into the binary.
// Keys missing from the file keep their DefaultConfig value.
func LoadConfig(configFile string, schemaFile string) (*Config, error) {
	// 1. Compile Schema
	sch, err := compileSchema(schemaFile)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	// 2. Read Config File
	b, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(b, sch)
}

// ParseConfig validates the JSON document b against sch (the embedded schema when nil)
// and decodes it over the defaults.
func ParseConfig(b []byte, sch *jsonschema.Schema) (*Config, error) {
	if sch == nil {
		var err error
		if sch, err = compileSchema(""); err != nil {
			return nil, fmt.Errorf("failed to compile schema: %w", err)
		}
	}

	var v interface{}
	if err := json.NewDecoder(bytes.NewReader(b)).Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode config json: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return nil, fmt.Errorf("%w: config validation failed: %w", ErrInvalidConfig, err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func compileSchema(schemaFile string) (*jsonschema.Schema, error) {
	if schemaFile == "" {
		return jsonschema.CompileString(embeddedSchemaURL, embeddedSchema)
	}
	return jsonschema.Compile(schemaFile)
}

// Validate repeats the schema range checks for configs built in code.
func (c *Config) Validate() error {
	if c.CanvasWidth < 0 || c.CanvasHeight < 0 {
		return fmt.Errorf("%w: canvas %dx%d", ErrInvalidConfig, c.CanvasWidth, c.CanvasHeight)
	}
	if err := c.Params().Validate(); err != nil {
		return err
	}
	switch c.NeighborSearch {
	case SearchScan, SearchGrid:
	default:
		return fmt.Errorf("%w: neighborSearch %q is neither scan nor grid", ErrInvalidConfig, c.NeighborSearch)
	}
	if c.GroupSize < 0 || c.TileWidth < 0 || c.TileHeight < 0 || c.Workers < 0 {
		return fmt.Errorf("%w: groupSize, tileWidth, tileHeight and workers must not be negative", ErrInvalidConfig)
	}
	if _, err := ParseColor(c.AgentColor); err != nil {
		return err
	}
	if c.TicksPerSecond <= 0 {
		return fmt.Errorf("%w: ticksPerSecond must be positive, got %d", ErrInvalidConfig, c.TicksPerSecond)
	}
	if c.SnapshotEvery < 0 {
		return fmt.Errorf("%w: snapshotEvery must not be negative, got %d", ErrInvalidConfig, c.SnapshotEvery)
	}
	return nil
}

// Params projects the config onto the per-frame parameters.
func (c *Config) Params() Params {
	return Params{
		AlignCoefficient:    c.AlignCoefficient,
		CohereCoefficient:   c.CohereCoefficient,
		SeparateCoefficient: c.SeparateCoefficient,
		Radius:              c.Radius,
		MaxSpeed:            c.MaxSpeed,
		Margin:              c.Margin,
		DrawRadius:          c.DrawRadius,
		AgentCount:          c.AgentCount,
		ObstacleWeight:      c.ObstacleWeight,
		ObstacleRadius:      c.ObstacleRadius,
	}
}

// Settings projects the config onto the kernel settings for its canvas.
func (c *Config) Settings() behavior.Settings {
	return c.Params().Settings(c.CanvasWidth, c.CanvasHeight)
}

// Logger returns log.DiscardLogger for quiet configs, log.DefaultLogger otherwise.
func (c *Config) Logger() log.Logger {
	if c.Quiet {
		return log.DiscardLogger
	}
	return log.DefaultLogger
}

// Options turns the config into Simulation options. extra options are applied last.
func (c *Config) Options(extra ...Option) ([]Option, error) {
	col, err := ParseColor(c.AgentColor)
	if err != nil {
		return nil, err
	}
	opts := []Option{
		WithLogger(c.Logger()),
		WithDispatchGrid(dispatch.Grid{GroupSize: c.GroupSize, TileWidth: c.TileWidth, TileHeight: c.TileHeight}),
		WithWorkers(c.Workers),
		WithAgentColor(col),
		WithNeighborSearch(c.NeighborSearch),
		WithSeed(c.Seed),
		WithCanvasSize(c.CanvasWidth, c.CanvasHeight),
	}
	return append(opts, extra...), nil
}
