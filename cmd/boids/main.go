package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/lao-tseu-is-alive/go-boids-unlimited/internal/game"
	"github.com/lao-tseu-is-alive/go-boids-unlimited/internal/terminal"
	"github.com/lao-tseu-is-alive/go-boids-unlimited/pkg/simulation"
	"github.com/tochemey/goakt/v3/actor"
	golog "github.com/tochemey/goakt/v3/log"
	"github.com/urfave/cli"
)

var commonFlags = []cli.Flag{
	cli.StringFlag{Name: "config, c", Value: "", Usage: "JSON configuration file, built-in defaults when empty"},
	cli.StringFlag{Name: "schema", Value: "", Usage: "JSON schema for the configuration, the embedded one when empty"},
	cli.IntFlag{Name: "agents, n", Usage: "Number of agents, overrides the configuration"},
	cli.Uint64Flag{Name: "seed", Usage: "Seed of the agent placement, overrides the configuration"},
	cli.BoolFlag{Name: "quiet, q", Usage: "Discard log output"},
}

func main() {
	app := makeapp()
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func makeapp() *cli.App {
	app := cli.NewApp()
	app.Name = "boids"
	app.Usage = "Flocking simulation rendered on a pixel canvas"
	app.Commands = []cli.Command{
		{
			Name:    "window",
			Aliases: []string{"w"},
			Usage:   "Run in a window with a control panel",
			Flags:   commonFlags,
			Action:  windowAction,
		},
		{
			Name:    "term",
			Aliases: []string{"t"},
			Usage:   "Run in the terminal, two pixels per cell",
			Flags: append([]cli.Flag{
				cli.IntFlag{Name: "frames", Usage: "Stop after this many frames, 0 runs until q is pressed"},
			}, commonFlags...),
			Action: termAction,
		},
	}
	// a bare "boids" opens the window
	app.Flags = commonFlags
	app.Action = windowAction
	return app
}

// loadConfig reads the configuration named by the flags and applies the overrides.
func loadConfig(c *cli.Context) (*simulation.Config, error) {
	cfg := simulation.DefaultConfig()
	if file := c.String("config"); file != "" {
		var err error
		if cfg, err = simulation.LoadConfig(file, c.String("schema")); err != nil {
			return nil, err
		}
	}
	if c.IsSet("agents") {
		cfg.AgentCount = c.Int("agents")
	}
	if c.IsSet("seed") {
		cfg.Seed = c.Uint64("seed")
	}
	if c.Bool("quiet") {
		cfg.Quiet = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// startTelemetry starts an actor system hosting the snapshot recorder.
func startTelemetry(ctx context.Context, cfg *simulation.Config, logger golog.Logger) (actor.ActorSystem, *simulation.Telemetry, error) {
	system, err := actor.NewActorSystem("BoidsTelemetry",
		actor.WithLogger(logger),
		actor.WithActorInitMaxRetries(3))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create actor system: %w", err)
	}
	if err := system.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to start actor system: %w", err)
	}
	telemetry, err := simulation.NewTelemetry(ctx, system, cfg.SnapshotEvery)
	if err != nil {
		_ = system.Stop(ctx)
		return nil, nil, err
	}
	return system, telemetry, nil
}

func windowAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx := context.Background()
	logger := cfg.Logger()

	system, telemetry, err := startTelemetry(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer system.Stop(ctx)

	g, err := game.NewGame(ctx, cfg, telemetry)
	if err != nil {
		return err
	}

	ebiten.SetWindowSize(cfg.CanvasWidth, cfg.CanvasHeight)
	ebiten.SetWindowTitle("Boids")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(cfg.TicksPerSecond)
	logger.Infof("starting window %dx%d with %d agents on %d workers",
		cfg.CanvasWidth, cfg.CanvasHeight, cfg.AgentCount, g.Simulation().Workers())
	if err := ebiten.RunGame(g); err != nil {
		return err
	}
	logStats(ctx, logger, telemetry)
	return nil
}

func termAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// anything written to stdout would tear the screen
	cfg.Quiet = true
	system, telemetry, err := startTelemetry(ctx, cfg, golog.DiscardLogger)
	if err != nil {
		return err
	}
	defer system.Stop(context.Background())

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	host, err := terminal.NewHost(screen, cfg, telemetry, c.Int("frames"))
	if err != nil {
		return err
	}
	return host.Run(ctx)
}

func logStats(ctx context.Context, logger golog.Logger, telemetry *simulation.Telemetry) {
	if !telemetry.Enabled() {
		return
	}
	stats, err := telemetry.Stats(ctx, 2*time.Second)
	if err != nil {
		logger.Warnf("no telemetry stats: %v", err)
		return
	}
	logger.Infof("recorded %d snapshots (%d corrupt), last frame %d: %d agents, mean speed %.2f, centroid %v",
		stats.Snapshots, stats.Corrupt, stats.Frame, stats.Agents, stats.MeanSpeed, stats.Centroid)
}
