// Package hooks provides production-ready Hook and Logger implementations.
package hooks

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/darkroom-go/darkroom/core"
)

// ── Structured logger adapter ─────────────────────────────────────────────────

// SlogLogger wraps the standard library slog.Logger to satisfy core.Logger.
type SlogLogger struct {
	log *slog.Logger
}

// NewSlogLogger creates a logger backed by slog.
func NewSlogLogger(l *slog.Logger) *SlogLogger { return &SlogLogger{log: l} }

func (s *SlogLogger) Debug(msg string, fields ...interface{}) {
	s.log.Debug(msg, toAttrs(fields)...)
}
func (s *SlogLogger) Info(msg string, fields ...interface{}) {
	s.log.Info(msg, toAttrs(fields)...)
}
func (s *SlogLogger) Warn(msg string, fields ...interface{}) {
	s.log.Warn(msg, toAttrs(fields)...)
}
func (s *SlogLogger) Error(msg string, fields ...interface{}) {
	s.log.Error(msg, toAttrs(fields)...)
}

func toAttrs(fields []interface{}) []any { return fields }

// ── Logging hook ──────────────────────────────────────────────────────────────

// LoggingHook logs before/after each pipeline stage.
type LoggingHook struct {
	logger core.Logger
}

// NewLoggingHook creates a LoggingHook.
func NewLoggingHook(l core.Logger) *LoggingHook { return &LoggingHook{logger: l} }

func (h *LoggingHook) BeforeStage(_ context.Context, stageName string, width, height int) {
	h.logger.Debug("pipeline.stage.start",
		"stage", stageName,
		"width", width,
		"height", height,
	)
}

func (h *LoggingHook) AfterStage(_ context.Context, stageName string, width, height int, d time.Duration, err error) {
	if err != nil {
		h.logger.Error("pipeline.stage.error",
			"stage", stageName,
			"duration_ms", d.Milliseconds(),
			"error", err.Error(),
		)
		return
	}
	h.logger.Debug("pipeline.stage.done",
		"stage", stageName,
		"duration_ms", d.Milliseconds(),
		"width", width,
		"height", height,
	)
}

// ── In-memory metrics collector ───────────────────────────────────────────────

// InMemoryMetrics accumulates metrics atomically; safe for concurrent use.
type InMemoryMetrics struct {
	mu sync.RWMutex

	stageDurationsMs map[string]int64 // cumulative ms per stage
	stageCalls       map[string]int64 // call count per stage
	stageErrors      map[string]int64

	totalThroughputB int64
}

// NewInMemoryMetrics creates an empty metrics store.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		stageDurationsMs: make(map[string]int64),
		stageCalls:       make(map[string]int64),
		stageErrors:      make(map[string]int64),
	}
}

func (m *InMemoryMetrics) RecordProcessingTime(stageName string, d interface{ Seconds() float64 }) {
	ms := int64(d.Seconds() * 1000)
	m.mu.Lock()
	m.stageDurationsMs[stageName] += ms
	m.stageCalls[stageName]++
	m.mu.Unlock()
}

func (m *InMemoryMetrics) RecordThroughput(bytes int64) {
	atomic.AddInt64(&m.totalThroughputB, bytes)
}

func (m *InMemoryMetrics) RecordError(stageName string, _ string) {
	m.mu.Lock()
	m.stageErrors[stageName]++
	m.mu.Unlock()
}

// Snapshot returns a copy of current metrics.
func (m *InMemoryMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		StageDurationsMs: make(map[string]int64, len(m.stageDurationsMs)),
		StageCalls:       make(map[string]int64, len(m.stageCalls)),
		StageErrors:      make(map[string]int64, len(m.stageErrors)),
		TotalThroughputB: atomic.LoadInt64(&m.totalThroughputB),
	}
	for k, v := range m.stageDurationsMs {
		snap.StageDurationsMs[k] = v
	}
	for k, v := range m.stageCalls {
		snap.StageCalls[k] = v
	}
	for k, v := range m.stageErrors {
		snap.StageErrors[k] = v
	}
	return snap
}

// MetricsSnapshot is an immutable point-in-time copy of metrics.
type MetricsSnapshot struct {
	StageDurationsMs map[string]int64
	StageCalls       map[string]int64
	StageErrors      map[string]int64
	TotalThroughputB int64
}

// ── Metrics hook ──────────────────────────────────────────────────────────────

// MetricsHook feeds pipeline stage events into a MetricsCollector.
type MetricsHook struct {
	collector core.MetricsCollector
}

// NewMetricsHook creates a MetricsHook.
func NewMetricsHook(c core.MetricsCollector) *MetricsHook { return &MetricsHook{collector: c} }

func (h *MetricsHook) BeforeStage(_ context.Context, _ string, _, _ int) {}

func (h *MetricsHook) AfterStage(_ context.Context, stageName string, width, height int, d time.Duration, err error) {
	h.collector.RecordProcessingTime(stageName, d)
	if err != nil {
		h.collector.RecordError(stageName, "pipeline")
		return
	}
	h.collector.RecordThroughput(int64(width) * int64(height) * 4)
}
