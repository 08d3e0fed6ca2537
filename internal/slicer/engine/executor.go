// Package engine runs the slicing engine as a subprocess.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"printum/internal/slicer/observer"
	"printum/internal/slicer/workspace"
	"printum/pkg/utils/contextkey"
	"printum/pkg/utils/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultWaitDelay      = 2 * time.Second
	defaultMaxOutputBytes = 1 << 20
)

// Config controls engine invocation.
type Config struct {
	Binary string
	// BaseArgs precede per-job arguments on every run. The executor never modifies it.
	BaseArgs []string
	Timeout  time.Duration
	// WaitDelay bounds output draining after the engine is killed.
	WaitDelay time.Duration
	// MaxOutputBytes caps how much of each stream is kept; the tail is retained.
	MaxOutputBytes int
}

// Executor runs one engine process per SliceModel call.
type Executor struct {
	cfg       Config
	admission Admission
	metrics   observer.MetricsRecorder
	remove    func(string) error
}

// NewExecutor creates an executor. A nil admission means Unbounded; nil metrics are discarded.
func NewExecutor(cfg Config, admission Admission, metrics observer.MetricsRecorder) (*Executor, error) {
	if cfg.Binary == "" {
		return nil, fmt.Errorf("engine binary is required")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("engine timeout must be positive")
	}
	if cfg.WaitDelay <= 0 {
		cfg.WaitDelay = defaultWaitDelay
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = defaultMaxOutputBytes
	}
	base := make([]string, len(cfg.BaseArgs))
	copy(base, cfg.BaseArgs)
	cfg.BaseArgs = base

	if admission == nil {
		admission = Unbounded
	}
	if metrics == nil {
		metrics = observer.NoopMetricsRecorder{}
	}
	return &Executor{cfg: cfg, admission: admission, metrics: metrics, remove: os.Remove}, nil
}

// Binary returns the configured engine path.
func (e *Executor) Binary() string {
	return e.cfg.Binary
}

// SliceModel runs the engine on req.ModelPath and writes the output beside it.
//
// Errors are *ProcessError when the binary cannot start, *TimeoutError when the run
// exceeds the configured timeout, *EngineFailure on a non-zero exit, ErrQueueFull when
// admission gives up, or the context error if ctx ends first. On any error the partial
// output file has been removed.
func (e *Executor) SliceModel(ctx context.Context, req SliceRequest) (*SliceResult, error) {
	if req.ModelPath == "" {
		return nil, fmt.Errorf("model path is required")
	}

	jobID := JobIdentity(req.JobLabel)
	ctx = context.WithValue(ctx, contextkey.JobID, jobID)
	outputPath := workspace.OutputPath(req.ModelPath, jobID)
	args := BuildArgs(e.cfg.BaseArgs, req.Settings, outputPath, req.ModelPath)

	release, err := e.admission.Acquire(ctx)
	if err != nil {
		if errors.Is(err, ErrQueueFull) {
			e.metrics.SliceFinished(ctx, observer.OutcomeRejected, 0)
			logger.Warn(ctx, "engine admission rejected job")
		}
		return nil, err
	}
	defer release()

	logger.Debug(ctx, "starting engine job", zap.String("binary", e.cfg.Binary), zap.Strings("args", args))

	e.metrics.SliceStarted(ctx)
	start := time.Now()
	res, err := e.run(ctx, args, filepath.Dir(req.ModelPath))
	elapsed := time.Since(start)
	e.metrics.SliceFinished(ctx, outcomeOf(err), elapsed)

	if err != nil {
		workspace.SafeRemove(ctx, e.remove, outputPath)
		var failure *EngineFailure
		if errors.As(err, &failure) {
			logger.Error(ctx, "engine failed",
				zap.Int("exit_code", failure.ExitCode),
				zap.String("stderr", failure.Stderr),
				zap.Duration("duration", elapsed),
			)
		} else {
			logger.Error(ctx, "engine run aborted", zap.Error(err), zap.Duration("duration", elapsed))
		}
		return nil, err
	}

	logger.Info(ctx, "engine finished", zap.Duration("duration", elapsed), zap.String("output", outputPath))
	res.JobID = jobID
	res.OutputPath = outputPath
	res.Duration = elapsed
	return res, nil
}

func (e *Executor) run(ctx context.Context, args []string, dir string) (*SliceResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, e.cfg.Binary, args...)
	cmd.Dir = dir
	cmd.Env = os.Environ()
	cmd.Stdin = nil
	cmd.WaitDelay = e.cfg.WaitDelay
	configureProcess(cmd)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &ProcessError{Binary: e.cfg.Binary, Err: err}
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, &ProcessError{Binary: e.cfg.Binary, Err: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, &ProcessError{Binary: e.cfg.Binary, Err: err}
	}

	// A killed engine may leave descendants holding the pipes open; close our ends once
	// the wait delay has passed so the readers always return.
	stopWatchdog := context.AfterFunc(runCtx, func() {
		time.AfterFunc(e.cfg.WaitDelay, func() {
			_ = stdoutPipe.Close()
			_ = stderrPipe.Close()
		})
	})
	defer stopWatchdog()

	stdout := newTailBuffer(e.cfg.MaxOutputBytes)
	stderr := newTailBuffer(e.cfg.MaxOutputBytes)
	var drain errgroup.Group
	drain.Go(func() error { return copyStream(stdout, stdoutPipe) })
	drain.Go(func() error { return copyStream(stderr, stderrPipe) })
	drainErr := drain.Wait()

	waitErr := cmd.Wait()
	if errors.Is(waitErr, exec.ErrWaitDelay) {
		logger.Warn(ctx, "engine exited but left its output pipes open")
		waitErr = nil
	}
	if drainErr != nil {
		logger.Warn(ctx, "engine output drain failed", zap.Error(drainErr))
	}

	if waitErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Timeout: e.cfg.Timeout}
		}
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return nil, &ProcessError{Binary: e.cfg.Binary, Err: waitErr}
		}
		return nil, &EngineFailure{ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
	}

	return &SliceResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: 0,
	}, nil
}

func copyStream(dst io.Writer, src io.Reader) error {
	_, err := io.Copy(dst, src)
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}

func outcomeOf(err error) string {
	var (
		failure *EngineFailure
		launch  *ProcessError
		timeout *TimeoutError
	)
	switch {
	case err == nil:
		return observer.OutcomeSuccess
	case errors.As(err, &failure):
		return observer.OutcomeEngineFailure
	case errors.As(err, &launch):
		return observer.OutcomeLaunchError
	case errors.As(err, &timeout):
		return observer.OutcomeTimeout
	default:
		return observer.OutcomeCanceled
	}
}
