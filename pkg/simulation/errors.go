package simulation

import "errors"

var (
	// ErrResource reports that the agent buffer, the canvas or the worker pool could not be set up.
	// It is fatal: hosts surface it as a startup failure and do not retry.
	ErrResource = errors.New("simulation resource unavailable")

	// ErrNoDrawable is returned by a Surface that has nothing to present into this frame.
	// The frame is dropped, the simulation state is kept and the next frame tries again.
	ErrNoDrawable = errors.New("no drawable surface")

	// ErrInvalidConfig reports a configuration or parameter value outside its range.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrCorruptSnapshot is returned by DecodeSnapshot for malformed input.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
)
