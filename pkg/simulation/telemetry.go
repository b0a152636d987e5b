package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/tochemey/goakt/v3/actor"
	"google.golang.org/protobuf/types/known/structpb"
)

// RecorderName is the name the Recorder actor is spawned under.
const RecorderName = "recorder"

// Telemetry forwards a snapshot to a Recorder actor every few frames.
// The zero value and nil are disabled and do nothing.
type Telemetry struct {
	pid   *actor.PID
	every uint64
}

// NewTelemetry spawns a Recorder in system. every <= 0 or a nil system returns a disabled Telemetry.
func NewTelemetry(ctx context.Context, system actor.ActorSystem, every int) (*Telemetry, error) {
	if every <= 0 || system == nil {
		return &Telemetry{}, nil
	}
	pid, err := system.Spawn(ctx, RecorderName, NewRecorder())
	if err != nil {
		return nil, fmt.Errorf("failed to spawn %s: %w", RecorderName, err)
	}
	return &Telemetry{pid: pid, every: uint64(every)}, nil
}

// Enabled reports whether snapshots are forwarded.
func (t *Telemetry) Enabled() bool {
	return t != nil && t.pid != nil
}

// Observe sends the snapshot of sim when frame is due. Frames that did not run
// the physics (empty canvas) are never due.
func (t *Telemetry) Observe(ctx context.Context, sim *Simulation, frame *Frame) error {
	if !t.Enabled() || frame == nil || frame.Index%t.every != 0 {
		return nil
	}
	if frame.Width == 0 || frame.Height == 0 {
		return nil
	}
	return actor.Tell(ctx, t.pid, SnapshotMessage(sim.Snapshot()))
}

// Stats asks the Recorder for its running statistics.
func (t *Telemetry) Stats(ctx context.Context, timeout time.Duration) (RecorderStats, error) {
	if !t.Enabled() {
		return RecorderStats{}, nil
	}
	reply, err := actor.Ask(ctx, t.pid, StatsRequest(), timeout)
	if err != nil {
		return RecorderStats{}, fmt.Errorf("failed to ask %s for stats: %w", RecorderName, err)
	}
	st, ok := reply.(*structpb.Struct)
	if !ok {
		return RecorderStats{}, fmt.Errorf("unexpected %s reply %T", RecorderName, reply)
	}
	return RecorderStatsFromStruct(st), nil
}
