package engine

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// Admission gates engine launches. Acquire blocks until a slot is available and returns
// the function that frees it.
type Admission interface {
	Acquire(ctx context.Context) (release func(), err error)
}

type unbounded struct{}

// Unbounded admits every job immediately.
var Unbounded Admission = unbounded{}

func (unbounded) Acquire(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return func() {}, nil
}

type semaphoreAdmission struct {
	sem  *semaphore.Weighted
	wait time.Duration
}

// NewSemaphoreAdmission allows at most limit concurrent engine runs. A job waits up to
// wait for a slot (0 waits as long as its context lives) before failing with ErrQueueFull.
// A limit of 0 or less returns Unbounded.
func NewSemaphoreAdmission(limit int64, wait time.Duration) Admission {
	if limit <= 0 {
		return Unbounded
	}
	return &semaphoreAdmission{sem: semaphore.NewWeighted(limit), wait: wait}
}

func (a *semaphoreAdmission) Acquire(ctx context.Context) (func(), error) {
	if a.sem.TryAcquire(1) {
		return a.release, nil
	}

	waitCtx := ctx
	if a.wait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, a.wait)
		defer cancel()
	}
	if err := a.sem.Acquire(waitCtx, 1); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, ErrQueueFull
	}
	return a.release, nil
}

func (a *semaphoreAdmission) release() {
	a.sem.Release(1)
}
