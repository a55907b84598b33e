package hooks

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestMetricsHook_RecordsStageActivity(t *testing.T) {
	m := NewInMemoryMetrics()
	hook := NewMetricsHook(m)

	ctx := context.Background()
	hook.BeforeStage(ctx, "tone", 100, 80)
	hook.AfterStage(ctx, "tone", 100, 80, 5*time.Millisecond, nil)
	hook.AfterStage(ctx, "tone", 100, 80, 7*time.Millisecond, nil)
	hook.AfterStage(ctx, "colour", 100, 80, 3*time.Millisecond, errors.New("boom"))

	snap := m.Snapshot()
	if snap.StageCalls["tone"] != 2 {
		t.Errorf("tone calls: got %d, want 2", snap.StageCalls["tone"])
	}
	if snap.StageErrors["colour"] != 1 {
		t.Errorf("colour errors: got %d, want 1", snap.StageErrors["colour"])
	}
	// Two successful 100x80 RGBA stages.
	if want := int64(2 * 100 * 80 * 4); snap.TotalThroughputB != want {
		t.Errorf("throughput: got %d, want %d", snap.TotalThroughputB, want)
	}
}

func TestLoggingHook_EmitsStageEvents(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	hook := NewLoggingHook(logger)

	ctx := context.Background()
	hook.BeforeStage(ctx, "geometry", 10, 10)
	hook.AfterStage(ctx, "geometry", 10, 10, time.Millisecond, nil)
	hook.AfterStage(ctx, "effects", 10, 10, time.Millisecond, errors.New("boom"))

	out := buf.String()
	for _, want := range []string{"pipeline.stage.start", "pipeline.stage.done", "pipeline.stage.error"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}
