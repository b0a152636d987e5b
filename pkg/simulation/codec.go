package simulation

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/lao-tseu-is-alive/go-boids-unlimited/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-boids-unlimited/pkg/geometry"
	"google.golang.org/protobuf/encoding/protowire"
)

// Snapshot is the agent buffer of one completed frame plus its metadata.
// On the wire it is the boids.v1.Snapshot message (proto/boids/v1/snapshot.proto).
type Snapshot struct {
	Session uuid.UUID
	Frame   uint64
	Width   int
	Height  int
	Agents  behavior.Agents
}

// field numbers of proto/boids/v1/snapshot.proto
const (
	fieldSnapshotSession protowire.Number = 1
	fieldSnapshotFrame   protowire.Number = 2
	fieldSnapshotWidth   protowire.Number = 3
	fieldSnapshotHeight  protowire.Number = 4
	fieldSnapshotAgents  protowire.Number = 5

	fieldAgentPosition     protowire.Number = 1
	fieldAgentVelocity     protowire.Number = 2
	fieldAgentAcceleration protowire.Number = 3
	fieldAgentForce        protowire.Number = 4

	fieldVecX protowire.Number = 1
	fieldVecY protowire.Number = 2
)

// agentWireSize is an upper bound of one encoded agent: 4 vectors of two fixed32 fields.
const agentWireSize = 2 + 4*(2+2*(1+4))

// EncodeSnapshot serializes s in protobuf wire format.
func EncodeSnapshot(s Snapshot) []byte {
	b := make([]byte, 0, 32+len(s.Agents)*agentWireSize)
	if s.Session != uuid.Nil {
		b = protowire.AppendTag(b, fieldSnapshotSession, protowire.BytesType)
		b = protowire.AppendBytes(b, s.Session[:])
	}
	if s.Frame != 0 {
		b = protowire.AppendTag(b, fieldSnapshotFrame, protowire.VarintType)
		b = protowire.AppendVarint(b, s.Frame)
	}
	if s.Width != 0 {
		b = protowire.AppendTag(b, fieldSnapshotWidth, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(s.Width))
	}
	if s.Height != 0 {
		b = protowire.AppendTag(b, fieldSnapshotHeight, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(s.Height))
	}
	var agent []byte
	for _, a := range s.Agents {
		agent = appendAgent(agent[:0], a)
		b = protowire.AppendTag(b, fieldSnapshotAgents, protowire.BytesType)
		b = protowire.AppendBytes(b, agent)
	}
	return b
}

func appendAgent(b []byte, a behavior.Agent) []byte {
	b = appendVec(b, fieldAgentPosition, a.Position)
	b = appendVec(b, fieldAgentVelocity, a.Velocity)
	b = appendVec(b, fieldAgentAcceleration, a.Acceleration)
	b = appendVec(b, fieldAgentForce, a.Force)
	return b
}

func appendVec(b []byte, num protowire.Number, v geometry.Vector2D) []byte {
	x, y := math.Float32bits(v.X), math.Float32bits(v.Y)
	if x == 0 && y == 0 {
		return b
	}
	size := 0
	if x != 0 {
		size += 5
	}
	if y != 0 {
		size += 5
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendVarint(b, uint64(size))
	if x != 0 {
		b = protowire.AppendTag(b, fieldVecX, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, x)
	}
	if y != 0 {
		b = protowire.AppendTag(b, fieldVecY, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, y)
	}
	return b
}

// DecodeSnapshot parses the output of EncodeSnapshot. Unknown fields are skipped.
func DecodeSnapshot(b []byte) (Snapshot, error) {
	var s Snapshot
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldSnapshotSession && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			id, err := uuid.FromBytes(v)
			if err != nil {
				return 0, fmt.Errorf("session: %w", err)
			}
			s.Session = id
			return n, nil
		case num == fieldSnapshotFrame && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			s.Frame = v
			return n, nil
		case num == fieldSnapshotWidth && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			s.Width = int(uint32(v))
			return n, nil
		case num == fieldSnapshotHeight && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			s.Height = int(uint32(v))
			return n, nil
		case num == fieldSnapshotAgents && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			a, err := decodeAgent(v)
			if err != nil {
				return 0, fmt.Errorf("agent %d: %w", len(s.Agents), err)
			}
			s.Agents = append(s.Agents, a)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	if s.Agents == nil {
		s.Agents = behavior.Agents{}
	}
	return s, nil
}

func decodeAgent(b []byte) (behavior.Agent, error) {
	var a behavior.Agent
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var dst *geometry.Vector2D
		switch num {
		case fieldAgentPosition:
			dst = &a.Position
		case fieldAgentVelocity:
			dst = &a.Velocity
		case fieldAgentAcceleration:
			dst = &a.Acceleration
		case fieldAgentForce:
			dst = &a.Force
		}
		if dst == nil || typ != protowire.BytesType {
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n, nil
		}
		vec, err := decodeVec(v)
		if err != nil {
			return 0, err
		}
		*dst = vec
		return n, nil
	})
	return a, err
}

func decodeVec(b []byte) (geometry.Vector2D, error) {
	var v geometry.Vector2D
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.Fixed32Type || (num != fieldVecX && num != fieldVecY) {
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
		bits, n := protowire.ConsumeFixed32(b)
		if n < 0 {
			return n, nil
		}
		if num == fieldVecX {
			v.X = math.Float32frombits(bits)
		} else {
			v.Y = math.Float32frombits(bits)
		}
		return n, nil
	})
	return v, err
}

// walkFields calls fn for every field of the message b. fn consumes the field value
// and returns its length, a negative length is a protowire parse error.
func walkFields(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %w", ErrCorruptSnapshot, protowire.ParseError(n))
		}
		b = b[n:]
		m, err := fn(num, typ, b)
		if errors.Is(err, ErrCorruptSnapshot) {
			return err
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
		}
		if m < 0 {
			return fmt.Errorf("%w: field %d: %w", ErrCorruptSnapshot, num, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return nil
}
