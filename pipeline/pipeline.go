// Package pipeline implements the ordered adjustment stages and the sequencer
// that runs them with hook and timing support.
package pipeline

import (
	"context"
	"time"

	"github.com/darkroom-go/darkroom/core"
	apperrors "github.com/darkroom-go/darkroom/errors"
	"github.com/darkroom-go/darkroom/raster"
)

// Stage is one buffer-to-buffer transform.  Apply consumes buf — the caller
// must not touch it afterwards — and returns a buffer the caller then owns.
// Stages never fail for in-range params; only buffer allocation can error.
type Stage interface {
	Name() string
	Apply(ctx context.Context, buf *raster.Buffer, p core.AdjustmentParams) (*raster.Buffer, error)
}

// Pipeline executes a sequence of Stages with hook support.
type Pipeline struct {
	stages []Stage
	hooks  []core.Hook
}

// New returns a pipeline over the given stages.
func New(stages ...Stage) *Pipeline { return &Pipeline{stages: stages} }

// Default returns the standard four-stage adjustment sequence.  maxPixels
// bounds any intermediate allocation; pass 0 for no limit.
func Default(maxPixels int64) *Pipeline {
	return New(
		&GeometryStage{MaxPixels: maxPixels},
		&ToneStage{},
		&ColourStage{},
		&EffectsStage{},
	)
}

// AddHook registers an observer.
func (p *Pipeline) AddHook(h core.Hook) *Pipeline {
	p.hooks = append(p.hooks, h)
	return p
}

// Run executes the stages in order on buf with the given (clamped) params.
// It consumes buf and returns the final buffer and per-stage timings.
func (p *Pipeline) Run(ctx context.Context, buf *raster.Buffer, params core.AdjustmentParams) (*raster.Buffer, map[string]time.Duration, error) {
	params = params.Clamped()
	timings := make(map[string]time.Duration, len(p.stages))
	current := buf

	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, timings, apperrors.Wrap(apperrors.CategoryPipeline, stage.Name(), err)
		}

		p.callHooksBefore(ctx, stage.Name(), current)
		start := time.Now()
		result, err := stage.Apply(ctx, current, params)
		elapsed := time.Since(start)
		timings[stage.Name()] = elapsed
		p.callHooksAfter(ctx, stage.Name(), result, elapsed, err)

		if err != nil {
			return nil, timings, err
		}
		current = result
	}
	return current, timings, nil
}

func (p *Pipeline) callHooksBefore(ctx context.Context, name string, buf *raster.Buffer) {
	for _, h := range p.hooks {
		h.BeforeStage(ctx, name, buf.W, buf.H)
	}
}

func (p *Pipeline) callHooksAfter(ctx context.Context, name string, buf *raster.Buffer, d time.Duration, err error) {
	w, h := 0, 0
	if buf != nil {
		w, h = buf.W, buf.H
	}
	for _, hook := range p.hooks {
		hook.AfterStage(ctx, name, w, h, d, err)
	}
}

// Clone returns a shallow copy so a pipeline template can be reused safely
// across goroutines.
func (p *Pipeline) Clone() *Pipeline {
	cp := &Pipeline{
		stages: make([]Stage, len(p.stages)),
		hooks:  make([]core.Hook, len(p.hooks)),
	}
	copy(cp.stages, p.stages)
	copy(cp.hooks, p.hooks)
	return cp
}
