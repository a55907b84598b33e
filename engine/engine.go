package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"sync/atomic"
	"time"

	xdraw "golang.org/x/image/draw"

	"github.com/darkroom-go/darkroom/config"
	"github.com/darkroom-go/darkroom/core"
	apperrors "github.com/darkroom-go/darkroom/errors"
	"github.com/darkroom-go/darkroom/pipeline"
	"github.com/darkroom-go/darkroom/raster"
	"github.com/darkroom-go/darkroom/utils"
)

// State tracks the engine lifecycle.
type State uint8

const (
	StateUninitialized State = iota
	StateReady
	StateProcessing
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateProcessing:
		return "processing"
	case StateDestroyed:
		return "destroyed"
	}
	return "unknown"
}

// Engine is the pipeline orchestrator.  It owns the immutable full-resolution
// source buffer, the downscaled preview buffer, the task executor, and the
// snapshot history.  It is safe for concurrent use; concurrent adjustment
// calls coalesce so only the most recent request's result is authoritative.
type Engine struct {
	cfg    config.Config
	reg    core.Registry
	pipe   *pipeline.Pipeline
	logger core.Logger

	mu      sync.Mutex
	state   State
	exec    *executor
	full    *raster.Buffer // source of truth, read-only after Initialize
	preview *raster.Buffer // downscaled working source, read-only
	params  core.AdjustmentParams
	history *History

	// Debounced commit register: the latest preview render waiting for the
	// idle window to elapse.
	pendingCommit *core.EncodedImage
	commitTimer   *time.Timer
	commitGen     uint64

	nextID      atomic.Uint64
	renderCount atomic.Int64
	errorCount  atomic.Int64
}

// New creates an Engine.  Call Initialize before any adjustment operation and
// Destroy when done.
func New(cfg config.Config, reg core.Registry) (*Engine, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryConfig, "engine.new", err)
	}
	return &Engine{
		cfg:     cfg,
		reg:     reg,
		pipe:    pipeline.Default(cfg.MaxPixels),
		params:  core.DefaultParams(),
		history: NewHistory(cfg.HistoryCapacity),
	}, nil
}

// SetLogger attaches a structured logger.
func (e *Engine) SetLogger(l core.Logger) { e.logger = l }

// AddHook registers an observer for stage events.
func (e *Engine) AddHook(h core.Hook) { e.pipe.AddHook(h) }

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Params returns a copy of the current adjustment parameters.
func (e *Engine) Params() core.AdjustmentParams {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params
}

// History returns the snapshot history.  It must only be used from the
// engine's calling context.
func (e *Engine) History() *History { return e.history }

// Initialize decodes src into the full-resolution source buffer, builds the
// preview buffer at the configured quality factor, resets adjustments to
// defaults, and creates the task executor.  It is the only transition out of
// the uninitialized state.
func (e *Engine) Initialize(ctx context.Context, src core.Source) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateDestroyed {
		return apperrors.New(apperrors.CategoryState, "engine.initialize", apperrors.ErrDestroyed)
	}

	full, meta, err := e.decode(ctx, src)
	if err != nil {
		return err
	}
	preview, err := e.buildPreview(full)
	if err != nil {
		return err
	}

	if e.exec != nil {
		e.exec.Close()
	}
	e.exec = newExecutor(e.pipe, e.cfg.UseWorker, e.cfg.WatchdogTimeout, e.logger)

	e.full = full
	e.preview = preview
	e.params = core.DefaultParams()
	e.history.Reset()
	e.stopCommitTimerLocked()
	e.pendingCommit = nil
	e.state = StateReady

	if e.logger != nil {
		e.logger.Info("engine.initialized",
			"format", string(meta.Format),
			"width", meta.Width,
			"height", meta.Height,
			"preview_width", preview.W,
			"preview_height", preview.H,
		)
	}
	return nil
}

// UpdateAdjustments merges the partial patch onto the current parameters,
// renders one preview-tier pass, schedules a history commit, and returns the
// encoded result.  When a newer update supersedes this one before its result
// lands, the call fails with ErrSuperseded and only the newest request's
// result is delivered as authoritative.
func (e *Engine) UpdateAdjustments(ctx context.Context, patch core.Patch) (core.EncodedImage, error) {
	e.mu.Lock()
	if err := e.readyErrLocked("engine.update"); err != nil {
		e.mu.Unlock()
		return core.EncodedImage{}, err
	}
	e.params = patch.Apply(e.params)
	params := e.params
	source := e.preview.Clone()
	exec := e.exec
	e.state = StateProcessing
	e.mu.Unlock()

	encoded, err := e.render(ctx, exec, source, params, core.TierPreview)

	e.mu.Lock()
	if e.state == StateProcessing {
		e.state = StateReady
	}
	if err == nil {
		e.scheduleCommitLocked(encoded, patch.Discrete())
	}
	e.mu.Unlock()

	return encoded, err
}

// ResetAdjustments restores default parameters and renders.  A reset is a
// discrete action and commits immediately.
func (e *Engine) ResetAdjustments(ctx context.Context) (core.EncodedImage, error) {
	e.mu.Lock()
	if err := e.readyErrLocked("engine.reset"); err != nil {
		e.mu.Unlock()
		return core.EncodedImage{}, err
	}
	e.params = core.DefaultParams()
	params := e.params
	source := e.preview.Clone()
	exec := e.exec
	e.state = StateProcessing
	e.mu.Unlock()

	encoded, err := e.render(ctx, exec, source, params, core.TierPreview)

	e.mu.Lock()
	if e.state == StateProcessing {
		e.state = StateReady
	}
	if err == nil {
		e.scheduleCommitLocked(encoded, true)
	}
	e.mu.Unlock()

	return encoded, err
}

// GenerateFinalImage re-runs the full stage sequence at full source
// resolution with the current parameters.  It bypasses the staleness register
// so an in-flight preview drag cannot cancel an export, and it leaves the
// preview state and history untouched.
func (e *Engine) GenerateFinalImage(ctx context.Context) (core.EncodedImage, error) {
	e.mu.Lock()
	if err := e.readyErrLocked("engine.final"); err != nil {
		e.mu.Unlock()
		return core.EncodedImage{}, err
	}
	params := e.params
	source := e.full.Clone()
	e.mu.Unlock()

	buf, _, err := e.pipe.Run(ctx, source, params)
	if err != nil {
		e.errorCount.Add(1)
		return core.EncodedImage{}, err
	}
	encoded, err := e.encode(ctx, buf)
	if err != nil {
		e.errorCount.Add(1)
		return core.EncodedImage{}, err
	}
	e.renderCount.Add(1)
	return encoded, nil
}

// Undo steps back one committed snapshot.  A pending debounced commit is
// flushed first so the most recent render is undoable.
func (e *Engine) Undo() (core.EncodedImage, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flushCommitLocked()
	return e.history.Undo()
}

// Redo steps forward one committed snapshot.
func (e *Engine) Redo() (core.EncodedImage, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flushCommitLocked()
	return e.history.Redo()
}

// Destroy releases buffers and terminates the owned executor.  The engine is
// unusable afterwards.
func (e *Engine) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateDestroyed {
		return
	}
	e.stopCommitTimerLocked()
	e.pendingCommit = nil
	if e.exec != nil {
		e.exec.Close()
		e.exec = nil
	}
	e.full = nil
	e.preview = nil
	e.state = StateDestroyed
}

// Stats returns lightweight render statistics.
func (e *Engine) Stats() (renders, errors int64) {
	return e.renderCount.Load(), e.errorCount.Load()
}

// Degraded reports whether the executor has permanently fallen back to
// synchronous execution.
func (e *Engine) Degraded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exec != nil && e.exec.Degraded()
}

// ── internals ─────────────────────────────────────────────────────────────────

func (e *Engine) readyErrLocked(op string) error {
	switch e.state {
	case StateUninitialized:
		return apperrors.New(apperrors.CategoryState, op, apperrors.ErrNotInitialized)
	case StateDestroyed:
		return apperrors.New(apperrors.CategoryState, op, apperrors.ErrDestroyed)
	}
	return nil
}

func (e *Engine) render(ctx context.Context, exec *executor, source *raster.Buffer, params core.AdjustmentParams, tier core.QualityTier) (core.EncodedImage, error) {
	req := core.ProcessingRequest{
		ID:     e.nextID.Add(1),
		Source: source,
		Params: params,
		Tier:   tier,
	}
	res := exec.Execute(ctx, req)
	if res.Err != nil {
		e.errorCount.Add(1)
		return core.EncodedImage{}, res.Err
	}
	encoded, err := e.encode(ctx, res.Buffer)
	if err != nil {
		e.errorCount.Add(1)
		return core.EncodedImage{}, err
	}
	e.renderCount.Add(1)
	return encoded, nil
}

func (e *Engine) decode(ctx context.Context, src core.Source) (*raster.Buffer, core.Metadata, error) {
	if src.Reader == nil {
		return nil, core.Metadata{}, apperrors.New(apperrors.CategoryInput, "engine.decode", apperrors.ErrEmptyInput)
	}
	rdr := src.Reader
	if e.cfg.MaxInputBytes > 0 {
		rdr = &utils.LimitedReader{R: rdr, Max: e.cfg.MaxInputBytes}
	}
	buf, err := utils.DrainReader(ctx, rdr, 32*1024)
	if err != nil {
		if e.cfg.MaxInputBytes > 0 && errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, core.Metadata{}, apperrors.New(apperrors.CategoryInput, "engine.decode",
				fmt.Errorf("%w: limit %d bytes", apperrors.ErrInputTooLarge, e.cfg.MaxInputBytes))
		}
		return nil, core.Metadata{}, apperrors.Wrap(apperrors.CategoryDecode, "engine.decode.drain", err)
	}
	raw := utils.CloneBytes(buf.Bytes())
	utils.ReleaseBuffer(buf)
	if len(raw) == 0 {
		return nil, core.Metadata{}, apperrors.New(apperrors.CategoryDecode, "engine.decode", apperrors.ErrEmptyInput)
	}

	format := core.Format(utils.DetectFormat(raw))
	dec, ok := e.reg.DecoderFor(format)
	if !ok {
		return nil, core.Metadata{}, apperrors.New(apperrors.CategoryDecode, "engine.decode",
			fmt.Errorf("%w: %s (registered: %v)", apperrors.ErrUnsupportedFormat, format, e.reg.DecodeFormats()))
	}
	decoded, err := dec.Decode(ctx, utils.BytesReader(raw))
	if err != nil {
		return nil, core.Metadata{}, err
	}
	img, ok := decoded.Image.(image.Image)
	if !ok || img == nil {
		return nil, core.Metadata{}, apperrors.New(apperrors.CategoryDecode, "engine.decode", apperrors.ErrEmptyInput)
	}

	full, err := raster.FromImage(img, e.cfg.MaxPixels)
	if err != nil {
		return nil, core.Metadata{}, err
	}
	return full, decoded.Meta, nil
}

// buildPreview downscales the source buffer to the configured quality factor.
func (e *Engine) buildPreview(full *raster.Buffer) (*raster.Buffer, error) {
	factor := float64(e.cfg.PreviewQuality)
	if factor >= 1 {
		return full.Clone(), nil
	}
	w, h := utils.PreviewDimensions(full.W, full.H, factor)
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), full.ToImage(), image.Rect(0, 0, full.W, full.H), xdraw.Src, nil)
	return raster.FromImage(dst, e.cfg.MaxPixels)
}

func (e *Engine) encode(ctx context.Context, buf *raster.Buffer) (core.EncodedImage, error) {
	format := core.Format(e.cfg.DefaultFormat)
	if format == "" {
		format = core.FormatPNG
	}
	enc, ok := e.reg.EncoderFor(format)
	if !ok {
		return core.EncodedImage{}, apperrors.New(apperrors.CategoryEncode, "engine.encode",
			fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, format))
	}
	data, err := enc.Encode(ctx, buf.ToImage(), core.EncodeOptions{Quality: e.cfg.DefaultQuality})
	if err != nil {
		return core.EncodedImage{}, err
	}
	return core.EncodedImage{Data: data, Format: format, Width: buf.W, Height: buf.H}, nil
}

// scheduleCommitLocked registers encoded for a history commit.  Discrete
// actions commit immediately; slider-style updates wait out the debounce
// window, with each new render replacing the pending one.
func (e *Engine) scheduleCommitLocked(encoded core.EncodedImage, discrete bool) {
	if discrete || e.cfg.CommitDebounce <= 0 {
		e.stopCommitTimerLocked()
		e.flushCommitLocked()
		e.history.Commit(encoded)
		return
	}

	e.pendingCommit = &encoded
	e.commitGen++
	gen := e.commitGen
	// A fresh timer per schedule: a callback that already fired for an older
	// schedule and is waiting on mu must not flush this newer snapshot early.
	if e.commitTimer != nil {
		e.commitTimer.Stop()
	}
	e.commitTimer = time.AfterFunc(e.cfg.CommitDebounce, func() {
		e.commitTimerFired(gen)
	})
}

func (e *Engine) commitTimerFired(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.commitGen {
		return
	}
	e.flushCommitLocked()
}

func (e *Engine) flushCommitLocked() {
	if e.pendingCommit == nil {
		return
	}
	e.history.Commit(*e.pendingCommit)
	e.pendingCommit = nil
}

func (e *Engine) stopCommitTimerLocked() {
	e.commitGen++
	if e.commitTimer != nil {
		e.commitTimer.Stop()
	}
}
