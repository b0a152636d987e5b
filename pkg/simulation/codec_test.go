package simulation

import (
	"os"
	"regexp"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/lao-tseu-is-alive/go-boids-unlimited/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-boids-unlimited/pkg/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		Session: uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		Frame:   1234,
		Width:   1024,
		Height:  768,
		Agents: behavior.Agents{
			{
				Position:     geometry.NewVector(10.5, 20.25),
				Velocity:     geometry.NewVector(-1.5, 0),
				Acceleration: geometry.NewVector(0, 0.125),
			},
			{},
			{
				Position: geometry.NewVector(1023.9, 0.001),
				Velocity: geometry.NewVector(3, -4),
				Force:    geometry.NewVector(7, 8),
			},
		},
	}
}

func TestSnapshotCodec(t *testing.T) {
	want := sampleSnapshot()
	got, err := DecodeSnapshot(EncodeSnapshot(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSnapshotCodec_Empty(t *testing.T) {
	b := EncodeSnapshot(Snapshot{})
	assert.Empty(t, b)

	got, err := DecodeSnapshot(b)
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, got.Session)
	assert.NotNil(t, got.Agents)
	assert.Empty(t, got.Agents)
}

func TestSnapshotCodec_SkipsUnknownFields(t *testing.T) {
	want := sampleSnapshot()
	b := EncodeSnapshot(want)
	b = protowire.AppendTag(b, 99, protowire.VarintType)
	b = protowire.AppendVarint(b, 7)
	b = protowire.AppendTag(b, 100, protowire.BytesType)
	b = protowire.AppendString(b, "added later")

	got, err := DecodeSnapshot(b)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSnapshotCodec_Corrupt(t *testing.T) {
	valid := EncodeSnapshot(sampleSnapshot())

	badSession := protowire.AppendTag(nil, fieldSnapshotSession, protowire.BytesType)
	badSession = protowire.AppendBytes(badSession, []byte{1, 2, 3})

	tests := []struct {
		name string
		b    []byte
	}{
		{"truncated", valid[:len(valid)-3]},
		{"bad tag", []byte{0x00}},
		{"session is not a uuid", badSession},
		{"length past the end", []byte{0x2a, 0x7f, 0x01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSnapshot(tt.b)
			assert.ErrorIs(t, err, ErrCorruptSnapshot)
		})
	}
}

func TestSnapshotCodec_FromSimulation(t *testing.T) {
	sim := newTestSimulation(t)
	_, err := sim.RenderFrame(t.Context(), testParams(32))
	require.NoError(t, err)

	snap := sim.Snapshot()
	assert.Equal(t, uint64(1), snap.Frame)
	assert.Equal(t, sim.Session(), snap.Session)

	got, err := DecodeSnapshot(EncodeSnapshot(snap))
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	// the copy is detached from the simulation
	got.Agents[0].Position = geometry.NewVector(-1, -1)
	assert.NotEqual(t, got.Agents[0], sim.SnapshotAgents()[0])
}

// protoFields returns the field numbers of every message in a .proto file, keyed by message then field name.
func protoFields(t *testing.T, file string) map[string]map[string]protowire.Number {
	t.Helper()
	b, err := os.ReadFile(file)
	require.NoError(t, err)
	message := regexp.MustCompile(`^message\s+(\w+)\s*\{`)
	field := regexp.MustCompile(`^(?:repeated\s+)?\w+\s+(\w+)\s*=\s*(\d+)\s*;`)
	noise := regexp.MustCompile(`^\s+|\s*(//.*)?$`)

	fields := make(map[string]map[string]protowire.Number)
	current := ""
	for _, line := range regexp.MustCompile(`\r?\n`).Split(string(b), -1) {
		line = noise.ReplaceAllString(line, "")
		if m := message.FindStringSubmatch(line); m != nil {
			current = m[1]
			fields[current] = make(map[string]protowire.Number)
			continue
		}
		if line == "}" {
			current = ""
			continue
		}
		if m := field.FindStringSubmatch(line); m != nil && current != "" {
			n, err := strconv.Atoi(m[2])
			require.NoError(t, err)
			fields[current][m[1]] = protowire.Number(n)
		}
	}
	return fields
}

func TestSnapshotCodec_MatchesProtoFile(t *testing.T) {
	got := protoFields(t, "../../proto/boids/v1/snapshot.proto")
	want := map[string]map[string]protowire.Number{
		"Vec2": {
			"x": fieldVecX,
			"y": fieldVecY,
		},
		"Agent": {
			"position":     fieldAgentPosition,
			"velocity":     fieldAgentVelocity,
			"acceleration": fieldAgentAcceleration,
			"force":        fieldAgentForce,
		},
		"Snapshot": {
			"session": fieldSnapshotSession,
			"frame":   fieldSnapshotFrame,
			"width":   fieldSnapshotWidth,
			"height":  fieldSnapshotHeight,
			"agents":  fieldSnapshotAgents,
		},
	}
	assert.Equal(t, want, got)
}
