// Package service orchestrates one slice job from accepted upload to artifact.
package service

import (
	"context"
	"errors"

	"printum/internal/slicer/artifact"
	"printum/internal/slicer/engine"
	"printum/internal/slicer/observer"
	"printum/internal/slicer/upload"
	"printum/internal/slicer/workspace"
	appErr "printum/pkg/errors"
	"printum/pkg/utils/logger"

	"go.uber.org/zap"
)

// Slicer runs the engine for one request.
type Slicer interface {
	SliceModel(ctx context.Context, req engine.SliceRequest) (*engine.SliceResult, error)
}

// SliceService validates uploads, runs the engine and hands back artifacts.
type SliceService struct {
	gate    *upload.Gate
	ws      *workspace.Workspace
	slicer  Slicer
	metrics observer.MetricsRecorder
}

// NewSliceService creates a SliceService. Nil metrics are discarded.
func NewSliceService(gate *upload.Gate, ws *workspace.Workspace, slicer Slicer, metrics observer.MetricsRecorder) *SliceService {
	if metrics == nil {
		metrics = observer.NoopMetricsRecorder{}
	}
	return &SliceService{gate: gate, ws: ws, slicer: slicer, metrics: metrics}
}

// Ticket is an accepted upload and where to store it.
type Ticket struct {
	Extension   string
	StoragePath string
}

// SliceInput is a stored upload ready for slicing.
type SliceInput struct {
	ModelPath    string
	OriginalName string
	JobLabel     string
	Settings     []engine.Setting
}

// Gate exposes the upload gate.
func (s *SliceService) Gate() *upload.Gate {
	return s.gate
}

// Accept checks an upload before any byte is stored.
func (s *SliceService) Accept(ctx context.Context, name string, size int64) (Ticket, error) {
	ext, err := s.gate.Check(name, size)
	s.metrics.ObserveUpload(ctx, ext, size, err == nil)
	if err != nil {
		return Ticket{}, err
	}
	return Ticket{Extension: ext, StoragePath: s.ws.NewInputPath(ext)}, nil
}

// Discard removes a stored upload that will not be sliced.
func (s *SliceService) Discard(ctx context.Context, path string) {
	s.ws.Remove(ctx, path)
}

// Slice runs the engine on a stored upload. On success the returned artifact owns both
// files and must be released by the caller; on failure the upload is already removed.
func (s *SliceService) Slice(ctx context.Context, in SliceInput) (*artifact.Artifact, error) {
	if in.ModelPath == "" {
		return nil, appErr.New(appErr.ModelFileRequired)
	}

	res, err := s.slicer.SliceModel(ctx, engine.SliceRequest{
		ModelPath: in.ModelPath,
		JobLabel:  in.JobLabel,
		Settings:  in.Settings,
	})
	if err != nil {
		s.ws.Remove(ctx, in.ModelPath)
		return nil, mapEngineError(err)
	}

	logger.Debug(ctx, "slice produced artifact",
		zap.String("job_id", res.JobID),
		zap.Int("stdout_bytes", len(res.Stdout)),
		zap.Int("stderr_bytes", len(res.Stderr)),
	)
	name := artifact.AttachmentName(in.JobLabel, in.OriginalName)
	return artifact.New(res.JobID, in.ModelPath, res.OutputPath, name, s.ws), nil
}

// mapEngineError turns engine failures into coded errors. Public messages never carry
// paths or engine output; the original error stays wrapped for logging.
func mapEngineError(err error) error {
	var (
		failure *engine.EngineFailure
		launch  *engine.ProcessError
		timeout *engine.TimeoutError
	)
	switch {
	case errors.As(err, &failure):
		return appErr.Wrap(err, appErr.EngineFailed).
			WithMessagef("%s: engine exited with code %d", appErr.EngineFailed.Message(), failure.ExitCode).
			WithDetail("exitCode", failure.ExitCode)
	case errors.As(err, &launch):
		return appErr.Wrap(err, appErr.EngineLaunchFailed).WithMessage(appErr.EngineLaunchFailed.Message())
	case errors.As(err, &timeout):
		return appErr.Wrap(err, appErr.EngineTimeout).
			WithMessagef("%s after %s", appErr.EngineTimeout.Message(), timeout.Timeout)
	case errors.Is(err, engine.ErrQueueFull):
		return appErr.Wrap(err, appErr.JobQueueFull).WithMessage(appErr.JobQueueFull.Message())
	case errors.Is(err, context.Canceled):
		return appErr.Wrap(err, appErr.RequestCanceled).WithMessage(appErr.RequestCanceled.Message())
	case errors.Is(err, context.DeadlineExceeded):
		return appErr.Wrap(err, appErr.Timeout).WithMessage(appErr.Timeout.Message())
	default:
		return appErr.Wrap(err, appErr.InternalServerError).WithMessage(appErr.InternalServerError.Message())
	}
}
