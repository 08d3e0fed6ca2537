// Package observer defines metrics hooks for uploads and engine runs.
package observer

import (
	"context"
	"time"
)

// Slice outcomes reported to SliceFinished.
const (
	OutcomeSuccess       = "success"
	OutcomeEngineFailure = "engine_failure"
	OutcomeLaunchError   = "launch_error"
	OutcomeTimeout       = "timeout"
	OutcomeCanceled      = "canceled"
	OutcomeRejected      = "rejected"
)

// MetricsRecorder records slice service metrics.
type MetricsRecorder interface {
	SliceStarted(ctx context.Context)
	SliceFinished(ctx context.Context, outcome string, elapsed time.Duration)
	ObserveUpload(ctx context.Context, extension string, sizeBytes int64, accepted bool)
}

// NoopMetricsRecorder discards all metrics.
type NoopMetricsRecorder struct{}

func (NoopMetricsRecorder) SliceStarted(context.Context)                         {}
func (NoopMetricsRecorder) SliceFinished(context.Context, string, time.Duration) {}
func (NoopMetricsRecorder) ObserveUpload(context.Context, string, int64, bool)   {}
