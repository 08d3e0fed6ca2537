package engine

import (
	"errors"
	"fmt"
	"time"
)

// ErrQueueFull is returned when no engine slot frees up within the admission wait.
var ErrQueueFull = errors.New("engine slots exhausted")

// ProcessError reports that the engine binary could not be started at all.
type ProcessError struct {
	Binary string
	Err    error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("start engine %s: %v", e.Binary, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// EngineFailure reports a non-zero engine exit.
type EngineFailure struct {
	ExitCode int
	Stderr   string
}

func (e *EngineFailure) Error() string {
	return fmt.Sprintf("engine exited with code %d", e.ExitCode)
}

// TimeoutError reports that the engine was killed after exceeding its time limit.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("engine timed out after %s", e.Timeout)
}
