package simulation

import (
	"time"

	"github.com/lao-tseu-is-alive/go-boids-unlimited/pkg/geometry"
	"github.com/tochemey/goakt/v3/actor"
	"github.com/tochemey/goakt/v3/goaktpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// RecorderStats summarizes the snapshots received by a Recorder.
type RecorderStats struct {
	Snapshots uint64
	Corrupt   uint64
	Session   string
	Frame     uint64
	Agents    int
	MeanSpeed float64
	Centroid  geometry.Vector2D
}

// Struct converts the stats into the reply of a stats request.
func (s RecorderStats) Struct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"snapshots": s.Snapshots,
		"corrupt":   s.Corrupt,
		"session":   s.Session,
		"frame":     s.Frame,
		"agents":    s.Agents,
		"meanSpeed": s.MeanSpeed,
		"centroidX": s.Centroid.X,
		"centroidY": s.Centroid.Y,
	})
}

// RecorderStatsFromStruct reads back a stats reply.
func RecorderStatsFromStruct(st *structpb.Struct) RecorderStats {
	f := st.GetFields()
	return RecorderStats{
		Snapshots: uint64(f["snapshots"].GetNumberValue()),
		Corrupt:   uint64(f["corrupt"].GetNumberValue()),
		Session:   f["session"].GetStringValue(),
		Frame:     uint64(f["frame"].GetNumberValue()),
		Agents:    int(f["agents"].GetNumberValue()),
		MeanSpeed: f["meanSpeed"].GetNumberValue(),
		Centroid: geometry.Vector2D{
			X: float32(f["centroidX"].GetNumberValue()),
			Y: float32(f["centroidY"].GetNumberValue()),
		},
	}
}

// SnapshotMessage wraps an encoded snapshot for a Recorder.
func SnapshotMessage(s Snapshot) *wrapperspb.BytesValue {
	return wrapperspb.Bytes(EncodeSnapshot(s))
}

// StatsRequest is the message answered by a Recorder with a *structpb.Struct.
func StatsRequest() *emptypb.Empty {
	return &emptypb.Empty{}
}

// Recorder is the telemetry actor. Hosts send it encoded snapshots every few frames,
// it keeps running statistics, logs them once per second and answers stats requests.
type Recorder struct {
	stats RecorderStats
	// --- Benchmark Stats ---
	recvCount   int
	lastLogTime time.Time
}

// NewRecorder creates the telemetry actor.
func NewRecorder() *Recorder {
	return &Recorder{lastLogTime: time.Now()}
}

func (r *Recorder) PreStart(ctx *actor.Context) error {
	ctx.ActorSystem().Logger().Info("Recorder is starting...")
	return nil
}

func (r *Recorder) Receive(ctx *actor.ReceiveContext) {
	switch msg := ctx.Message().(type) {
	case *goaktpb.PostStart:
		ctx.Logger().Infof("%s started", ctx.Self().Name())

	case *wrapperspb.BytesValue:
		snap, err := DecodeSnapshot(msg.GetValue())
		if err != nil {
			r.stats.Corrupt++
			ctx.Logger().Warnf("dropping snapshot: %v", err)
			return
		}
		r.record(snap)
		r.logBenchmarks(ctx)

	case *emptypb.Empty:
		reply, err := r.stats.Struct()
		if err != nil {
			ctx.Logger().Errorf("cannot build stats reply: %v", err)
			ctx.Unhandled()
			return
		}
		ctx.Response(reply)

	default:
		ctx.Unhandled()
	}
}

func (r *Recorder) PostStop(ctx *actor.Context) error {
	ctx.ActorSystem().Logger().Infof("Recorder is shutdown after %d snapshots", r.stats.Snapshots)
	return nil
}

func (r *Recorder) record(snap Snapshot) {
	r.recvCount++
	r.stats.Snapshots++
	r.stats.Session = snap.Session.String()
	r.stats.Frame = snap.Frame
	r.stats.Agents = len(snap.Agents)

	if len(snap.Agents) == 0 {
		r.stats.MeanSpeed = 0
		r.stats.Centroid = geometry.Vector2D{}
		return
	}
	var speed, cx, cy float64
	for _, a := range snap.Agents {
		speed += float64(a.Velocity.Len())
		cx += float64(a.Position.X)
		cy += float64(a.Position.Y)
	}
	n := float64(len(snap.Agents))
	r.stats.MeanSpeed = speed / n
	r.stats.Centroid = geometry.Vector2D{X: float32(cx / n), Y: float32(cy / n)}
}

func (r *Recorder) logBenchmarks(ctx *actor.ReceiveContext) {
	if time.Since(r.lastLogTime) >= time.Second {
		ctx.Logger().Infof("📊 SNAPSHOT RATE: %d/sec | Frame: %d | Agents: %d | Mean speed: %.2f | Centroid: %v",
			r.recvCount, r.stats.Frame, r.stats.Agents, r.stats.MeanSpeed, r.stats.Centroid)
		r.recvCount = 0
		r.lastLogTime = time.Now()
	}
}
