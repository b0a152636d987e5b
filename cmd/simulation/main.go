package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/lao-tseu-is-alive/go-boids-unlimited/pkg/simulation"
	"github.com/tochemey/goakt/v3/actor"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "simulation"
	app.Usage = "Run the flock headless and report what the recorder saw"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, c", Value: "", Usage: "JSON configuration file, built-in defaults when empty"},
		cli.StringFlag{Name: "schema", Value: "", Usage: "JSON schema for the configuration, the embedded one when empty"},
		cli.IntFlag{Name: "frames, f", Value: 300, Usage: "Number of frames to render"},
		cli.IntFlag{Name: "agents, n", Usage: "Number of agents, overrides the configuration"},
		cli.StringFlag{Name: "snapshot, o", Value: "", Usage: "Write the last frame's agents to this file (protobuf wire format)"},
	}
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	cfg := simulation.DefaultConfig()
	if file := c.String("config"); file != "" {
		var err error
		if cfg, err = simulation.LoadConfig(file, c.String("schema")); err != nil {
			return err
		}
	}
	if c.IsSet("agents") {
		cfg.AgentCount = c.Int("agents")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	frames := c.Int("frames")
	if frames < 0 {
		return fmt.Errorf("frames must not be negative, got %d", frames)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	logger := cfg.Logger()

	system, err := actor.NewActorSystem("BoidsHeadless",
		actor.WithLogger(logger),
		actor.WithActorInitMaxRetries(3))
	if err != nil {
		return fmt.Errorf("failed to create actor system: %w", err)
	}
	if err := system.Start(ctx); err != nil {
		return fmt.Errorf("failed to start actor system: %w", err)
	}
	defer system.Stop(context.Background())

	telemetry, err := simulation.NewTelemetry(ctx, system, cfg.SnapshotEvery)
	if err != nil {
		return err
	}

	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	sim, err := simulation.New(opts...)
	if err != nil {
		return err
	}

	params := cfg.Params()
	start := time.Now()
	var dropped int
	for i := 0; i < frames; i++ {
		frame, err := sim.RenderFrame(ctx, params)
		if err != nil {
			return err
		}
		if frame.Dropped {
			dropped++
		}
		if err := telemetry.Observe(ctx, sim, frame); err != nil {
			logger.Warnf("telemetry: %v", err)
		}
	}
	elapsed := time.Since(start)
	if frames > 0 {
		logger.Infof("%d frames (%d dropped) of %d agents on %dx%d in %s, %.2f frames/sec",
			frames, dropped, cfg.AgentCount, cfg.CanvasWidth, cfg.CanvasHeight, elapsed,
			float64(frames)/elapsed.Seconds())
	}

	if out := c.String("snapshot"); out != "" {
		snap := sim.Snapshot()
		if err := os.WriteFile(out, simulation.EncodeSnapshot(snap), 0o644); err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
		logger.Infof("snapshot of frame %d (%d agents) written to %s", snap.Frame, len(snap.Agents), out)
	}

	if telemetry.Enabled() {
		stats, err := telemetry.Stats(ctx, 5*time.Second)
		if err != nil {
			return err
		}
		fmt.Printf("session %s: %d snapshots, %d corrupt, last frame %d, %d agents, mean speed %.2f, centroid %v\n",
			stats.Session, stats.Snapshots, stats.Corrupt, stats.Frame, stats.Agents, stats.MeanSpeed, stats.Centroid)
	}
	return nil
}
