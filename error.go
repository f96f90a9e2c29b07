package bounce

import (
	"errors"
	"fmt"
)

var (
	// ErrInitialization is returned when the graph cannot be bound to the
	// engine.
	ErrInitialization = errors.New("initialization failed")
	// ErrStageLoad is returned when a stage cannot be loaded or configured.
	ErrStageLoad = errors.New("stage load failed")
	// ErrInvalidDuration is returned when requested duration is out of range.
	ErrInvalidDuration = errors.New("invalid duration")
	// ErrOutputTooLarge is returned when resolved output exceeds the limit.
	ErrOutputTooLarge = errors.New("output too large")
	// ErrSinkOpen is returned when render destination cannot be created.
	ErrSinkOpen = errors.New("sink open failed")
)

// StageError is returned when stage load fails. It matches ErrStageLoad.
type StageError struct {
	Stage  string
	Detail string // last error reported by the graph
	Err    error
}

func (e *StageError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("failed to load %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("failed to load %s: %v, error was: %s", e.Stage, e.Err, e.Detail)
}

// Is allows to match stage errors with ErrStageLoad.
func (e *StageError) Is(err error) bool {
	return err == ErrStageLoad
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// RenderError is returned if render was started, but rendering and/or
// closing of the sink failed.
type RenderError struct {
	ErrRender error
	ErrClose  error
}

func (e *RenderError) Error() string {
	switch {
	case e.ErrRender != nil && e.ErrClose != nil:
		return fmt.Sprintf("close error: %v after render error: %v", e.ErrClose, e.ErrRender)
	case e.ErrRender != nil:
		return fmt.Sprintf("render error: %v", e.ErrRender)
	case e.ErrClose != nil:
		return fmt.Sprintf("close error: %v", e.ErrClose)
	}
	return ""
}

// Is checks if any of errors match provided sentinel error.
func (e *RenderError) Is(err error) bool {
	if e.ErrRender != nil && errors.Is(e.ErrRender, err) {
		return true
	}
	if e.ErrClose != nil && errors.Is(e.ErrClose, err) {
		return true
	}
	return false
}
