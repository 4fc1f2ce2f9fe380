package capture

import (
	"github.com/tphakala/dualcapture/internal/errors"
)

// ComponentCapture identifies capture engine errors
const ComponentCapture = "capture"

// Lifecycle precondition errors returned by the Engine control operations.
var (
	// ErrNotInitialized is returned when Start is called before Initialize
	ErrNotInitialized = newStateError("engine not initialized", "initialized")

	// ErrAlreadyInitialized is returned when Initialize is called twice
	ErrAlreadyInitialized = newStateError("engine already initialized", "initialized")

	// ErrAlreadyRunning is returned when Start is called on a running engine
	ErrAlreadyRunning = newStateError("already running", "running")

	// ErrNotRunning is returned when Stop or Reset is called on a stopped engine
	ErrNotRunning = newStateError("not running", "running")

	// ErrInvalidCapacity is returned when the window and sample rate yield no samples
	ErrInvalidCapacity = errors.New(errors.NewStd("window and sample rate yield zero capacity")).
		Component(ComponentCapture).
		Category(errors.CategoryValidation).
		Context("resource", "capture_buffer").
		Build()
)

func newStateError(msg, flag string) *errors.EnhancedError {
	return errors.New(errors.NewStd(msg)).
		Component(ComponentCapture).
		Category(errors.CategoryState).
		Context("flag", flag).
		Build()
}
