package geometry

import (
	"errors"
	"fmt"
	"math"
)

// Epsilon Precision constant.
// Agents live in single precision, so comparisons use a float32-sized tolerance.
const (
	Epsilon = 1e-5
)

// Vector2D represents a 2D vector or point in canvas space.
// Components are float32 so that an agent buffer keeps the compact
// position/velocity/acceleration/force layout of the compute buffers it replaces.
type Vector2D struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// NewVector creates a new Vector2D.
func NewVector(x, y float32) Vector2D {
	return Vector2D{X: x, Y: y}
}

// ---------------------------------------------------------------------
// Stringer Interface
// ---------------------------------------------------------------------

// String implements the fmt.Stringer interface.
func (v Vector2D) String() string {
	return fmt.Sprintf("(%.2f, %.2f)", v.X, v.Y)
}

// ---------------------------------------------------------------------
// Arithmetic Operations
// Value receivers returning new values, the struct is two words wide.
// ---------------------------------------------------------------------

// Add adds two vectors and returns the result.
func (v Vector2D) Add(other Vector2D) Vector2D {
	return Vector2D{v.X + other.X, v.Y + other.Y}
}

// Sub subtracts the other vector from the current vector.
func (v Vector2D) Sub(other Vector2D) Vector2D {
	return Vector2D{v.X - other.X, v.Y - other.Y}
}

// Mul scales the vector by a scalar value.
func (v Vector2D) Mul(scalar float32) Vector2D {
	return Vector2D{v.X * scalar, v.Y * scalar}
}

// Div scales the vector by 1/scalar.
// if scalar is zero it returns a +Inf vector together with an error.
func (v Vector2D) Div(scalar float32) (Vector2D, error) {
	if scalar == 0 {
		inf := float32(math.Inf(1))
		return Vector2D{inf, inf}, errors.New("vector cannot be divided by zero")
	}
	return Vector2D{v.X / scalar, v.Y / scalar}, nil
}

// Dot calculates the dot product of two vectors.
func (v Vector2D) Dot(other Vector2D) float32 {
	return v.X*other.X + v.Y*other.Y
}

// ---------------------------------------------------------------------
// Magnitude and Normalization
// ---------------------------------------------------------------------

// LenSqr calculates the squared magnitude of the vector.
// Use it for range comparisons, it avoids the square root.
func (v Vector2D) LenSqr() float32 {
	return v.X*v.X + v.Y*v.Y
}

// Len calculates the magnitude (length) of the vector.
func (v Vector2D) Len() float32 {
	return float32(math.Hypot(float64(v.X), float64(v.Y)))
}

// Normalize returns a unit vector in the same direction.
// Returns a zero vector if the length is effectively zero.
func (v Vector2D) Normalize() Vector2D {
	l := v.Len()
	if l < Epsilon {
		return Vector2D{0, 0}
	}
	return v.Mul(1 / l)
}

// ClampAxes clamps each component independently to [-limit, limit].
func (v Vector2D) ClampAxes(limit float32) Vector2D {
	if limit < 0 {
		limit = 0
	}
	return Vector2D{clamp(v.X, -limit, limit), clamp(v.Y, -limit, limit)}
}

// Limit scales the vector down so that its length does not exceed max.
// Shorter vectors are returned unchanged.
func (v Vector2D) Limit(max float32) Vector2D {
	if max <= 0 {
		return Vector2D{0, 0}
	}
	l := v.Len()
	if l <= max {
		return v
	}
	return v.Mul(max / l)
}

// ---------------------------------------------------------------------
// Geometric Utilities
// ---------------------------------------------------------------------

// DistanceTo calculates the Euclidean distance to another vector.
func (v Vector2D) DistanceTo(other Vector2D) float32 {
	return v.Sub(other).Len()
}

// DistanceSquaredTo calculates the squared Euclidean distance to another vector.
func (v Vector2D) DistanceSquaredTo(other Vector2D) float32 {
	return v.Sub(other).LenSqr()
}

// Wrap folds the point back into [0,width) x [0,height) (toroidal topology).
// A non-positive dimension leaves that axis untouched.
func (v Vector2D) Wrap(width, height float32) Vector2D {
	return Vector2D{wrap(v.X, width), wrap(v.Y, height)}
}

// ---------------------------------------------------------------------
// Comparison
// ---------------------------------------------------------------------

// Eq checks if two vectors are approximately equal using the Epsilon constant.
func (v Vector2D) Eq(other Vector2D) bool {
	return abs(v.X-other.X) <= Epsilon && abs(v.Y-other.Y) <= Epsilon
}

// IsFinite reports whether both components are neither NaN nor infinite.
func (v Vector2D) IsFinite() bool {
	return isFinite(v.X) && isFinite(v.Y)
}

func wrap(x, size float32) float32 {
	if size <= 0 {
		return x
	}
	if x >= 0 && x < size {
		return x
	}
	r := float32(math.Mod(float64(x), float64(size)))
	if r < 0 {
		r += size
	}
	// -tiny + size rounds up to size in single precision
	if r >= size {
		r = 0
	}
	return r
}

func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func isFinite(x float32) bool {
	f := float64(x)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
