package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/darkroom-go/darkroom/core"
	apperrors "github.com/darkroom-go/darkroom/errors"
	"github.com/darkroom-go/darkroom/pipeline"
)

// runFunc executes one request through the stage sequence.
type runFunc func(ctx context.Context, req core.ProcessingRequest) core.RenderResult

// job pairs a request with its reply channel.  The reply channel is buffered
// so a caller that has given up (watchdog) never blocks the worker.
type job struct {
	ctx   context.Context
	req   core.ProcessingRequest
	reply chan core.RenderResult
}

// executor runs the stage sequence either on a dedicated worker goroutine
// (message passing, buffer ownership moves with the job) or synchronously on
// the caller's goroutine.  Once the worker path faults it is abandoned for
// the remaining lifetime of the executor; there is no retry.
type executor struct {
	run       runFunc // synchronous path
	workerRun runFunc // worker path; separate seam so faults can be injected
	watchdog  time.Duration
	logger    core.Logger

	jobs     chan job
	closed   chan struct{}
	wg       sync.WaitGroup
	latest   atomic.Uint64 // most recently dispatched request id
	fallback atomic.Bool   // permanent synchronous mode
	isClosed atomic.Bool
}

// newExecutor builds an executor over pipe.  With useWorker false the
// executor starts in synchronous mode and never spawns the worker.
func newExecutor(pipe *pipeline.Pipeline, useWorker bool, watchdog time.Duration, logger core.Logger) *executor {
	run := func(ctx context.Context, req core.ProcessingRequest) core.RenderResult {
		buf, timings, err := pipe.Run(ctx, req.Source, req.Params)
		return core.RenderResult{ID: req.ID, Buffer: buf, Timings: timings, Err: err}
	}
	e := &executor{
		run:       run,
		workerRun: run,
		watchdog:  watchdog,
		logger:    logger,
		jobs:      make(chan job, 1),
		closed:    make(chan struct{}),
	}
	if !useWorker {
		e.fallback.Store(true)
		return e
	}
	e.wg.Add(1)
	go e.worker()
	return e
}

// Execute dispatches req and blocks until its result arrives or the request
// is superseded.  Submitting req moves req.Source into the executor; the
// caller must not read it afterwards — the synchronous path honors the same
// contract so both paths stay interchangeable.
func (e *executor) Execute(ctx context.Context, req core.ProcessingRequest) core.RenderResult {
	if e.isClosed.Load() {
		return core.RenderResult{ID: req.ID, Err: apperrors.New(apperrors.CategoryState, "executor.execute", apperrors.ErrExecutorClosed)}
	}
	e.latest.Store(req.ID)

	if e.fallback.Load() {
		return e.runLocal(ctx, req)
	}

	j := job{ctx: ctx, req: req, reply: make(chan core.RenderResult, 1)}
	e.enqueue(j)

	var timeout <-chan time.Time
	if e.watchdog > 0 {
		t := time.NewTimer(e.watchdog)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case res := <-j.reply:
		if res.Err != nil && apperrors.IsCategory(res.Err, apperrors.CategoryExecutor) {
			// Worker-path fault: degrade permanently and satisfy the
			// request in-process so the caller still gets output.
			e.degrade("worker fault", res.Err)
			return e.runLocal(ctx, req)
		}
		return res
	case <-timeout:
		e.degrade("watchdog expired", nil)
		return e.runLocal(ctx, req)
	case <-ctx.Done():
		return core.RenderResult{ID: req.ID, Err: apperrors.Wrap(apperrors.CategoryPipeline, "executor.execute", ctx.Err())}
	case <-e.closed:
		return core.RenderResult{ID: req.ID, Err: apperrors.New(apperrors.CategoryState, "executor.execute", apperrors.ErrExecutorClosed)}
	}
}

// enqueue places j in the single-slot pending register.  A job already
// waiting there is superseded and answered immediately.
func (e *executor) enqueue(j job) {
	for {
		select {
		case e.jobs <- j:
			return
		default:
		}
		select {
		case old := <-e.jobs:
			old.reply <- core.RenderResult{ID: old.req.ID, Err: supersededErr(old.req.ID)}
		default:
		}
	}
}

func (e *executor) worker() {
	defer e.wg.Done()
	for {
		select {
		case <-e.closed:
			return
		case j := <-e.jobs:
			j.reply <- e.process(j)
		}
	}
}

// process runs one job on the worker, discarding results that are already
// stale by the time they finish.
func (e *executor) process(j job) (res core.RenderResult) {
	defer func() {
		if r := recover(); r != nil {
			res = core.RenderResult{ID: j.req.ID, Err: apperrors.New(
				apperrors.CategoryExecutor, "executor.worker", fmt.Errorf("panic: %v", r))}
		}
	}()

	if j.req.ID != e.latest.Load() {
		return core.RenderResult{ID: j.req.ID, Err: supersededErr(j.req.ID)}
	}
	res = e.workerRun(j.ctx, j.req)
	if res.Err == nil && res.ID != e.latest.Load() {
		return core.RenderResult{ID: res.ID, Err: supersededErr(res.ID)}
	}
	return res
}

func (e *executor) runLocal(ctx context.Context, req core.ProcessingRequest) core.RenderResult {
	res := e.run(ctx, req)
	if res.Err == nil && res.ID != e.latest.Load() {
		return core.RenderResult{ID: res.ID, Err: supersededErr(res.ID)}
	}
	return res
}

// degrade switches the executor into permanent synchronous mode.
func (e *executor) degrade(reason string, err error) {
	if e.fallback.Swap(true) {
		return
	}
	if e.logger != nil {
		e.logger.Warn("executor.degraded",
			"reason", reason,
			"error", fmt.Sprint(err),
		)
	}
}

// Close terminates the worker.  Execute calls after Close fail with a
// state-category error.
func (e *executor) Close() {
	if e.isClosed.Swap(true) {
		return
	}
	close(e.closed)
	e.wg.Wait()
	// Answer anything still parked in the pending slot.
	select {
	case old := <-e.jobs:
		old.reply <- core.RenderResult{ID: old.req.ID, Err: apperrors.New(
			apperrors.CategoryState, "executor.close", apperrors.ErrExecutorClosed)}
	default:
	}
}

// Degraded reports whether the executor has fallen back to synchronous mode.
func (e *executor) Degraded() bool { return e.fallback.Load() }

func supersededErr(id uint64) error {
	return apperrors.New(apperrors.CategoryPipeline, "executor.stale",
		fmt.Errorf("%w: request %d", apperrors.ErrSuperseded, id))
}
