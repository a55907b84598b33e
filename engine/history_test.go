package engine

import (
	"testing"

	"github.com/darkroom-go/darkroom/core"
)

func snap(b byte) core.EncodedImage {
	return core.EncodedImage{Data: []byte{b}, Format: core.FormatPNG, Width: 1, Height: 1}
}

func TestHistory_EmptyHasNoCurrent(t *testing.T) {
	h := NewHistory(10)
	if _, ok := h.Current(); ok {
		t.Error("empty history reported a current entry")
	}
	if _, ok := h.Undo(); ok {
		t.Error("empty history allowed Undo")
	}
	if _, ok := h.Redo(); ok {
		t.Error("empty history allowed Redo")
	}
}

func TestHistory_UndoRedo(t *testing.T) {
	h := NewHistory(10)
	h.Commit(snap(1))
	h.Commit(snap(2))
	h.Commit(snap(3))

	img, ok := h.Undo()
	if !ok || img.Data[0] != 2 {
		t.Fatalf("first undo: got %v %v, want snapshot 2", img.Data, ok)
	}
	img, ok = h.Undo()
	if !ok || img.Data[0] != 1 {
		t.Fatalf("second undo: got %v %v, want snapshot 1", img.Data, ok)
	}
	if _, ok := h.Undo(); ok {
		t.Error("undo past the first entry should fail")
	}

	img, ok = h.Redo()
	if !ok || img.Data[0] != 2 {
		t.Fatalf("redo: got %v %v, want snapshot 2", img.Data, ok)
	}
	img, ok = h.Redo()
	if !ok || img.Data[0] != 3 {
		t.Fatalf("second redo: got %v %v, want snapshot 3", img.Data, ok)
	}
	if _, ok := h.Redo(); ok {
		t.Error("redo past the last entry should fail")
	}
}

func TestHistory_CommitAfterUndoTruncatesRedo(t *testing.T) {
	h := NewHistory(10)
	h.Commit(snap(1))
	h.Commit(snap(2))

	if _, ok := h.Undo(); !ok {
		t.Fatal("undo failed")
	}
	h.Commit(snap(3))

	if h.Len() != 2 {
		t.Fatalf("len: got %d, want 2", h.Len())
	}
	if _, ok := h.Redo(); ok {
		t.Error("redo should be empty after committing past an undo")
	}
	img, ok := h.Undo()
	if !ok || img.Data[0] != 1 {
		t.Errorf("undo: got %v %v, want snapshot 1", img.Data, ok)
	}
}

func TestHistory_CapEvictsOldest(t *testing.T) {
	h := NewHistory(10)
	for i := byte(1); i <= 13; i++ {
		h.Commit(snap(i))
	}

	if h.Len() != 10 {
		t.Fatalf("len: got %d, want 10", h.Len())
	}

	// Walk back to the floor; the oldest surviving snapshot is number 4.
	undos := 0
	for {
		img, ok := h.Undo()
		if !ok {
			break
		}
		undos++
		if undos == 9 && img.Data[0] != 4 {
			t.Errorf("oldest entry: got %d, want 4", img.Data[0])
		}
	}
	if undos != 9 {
		t.Errorf("undo steps: got %d, want 9", undos)
	}
}

func TestHistory_DeduplicatesConsecutiveIdentical(t *testing.T) {
	h := NewHistory(10)
	h.Commit(snap(1))
	h.Commit(snap(1))
	h.Commit(snap(1))

	if h.Len() != 1 {
		t.Errorf("len: got %d, want 1 after dedup", h.Len())
	}

	h.Commit(snap(2))
	h.Commit(snap(1)) // not consecutive with the first, kept
	if h.Len() != 3 {
		t.Errorf("len: got %d, want 3", h.Len())
	}
}

func TestHistory_Reset(t *testing.T) {
	h := NewHistory(10)
	h.Commit(snap(1))
	h.Commit(snap(2))
	h.Reset()

	if h.Len() != 0 {
		t.Errorf("len after reset: got %d, want 0", h.Len())
	}
	if _, ok := h.Current(); ok {
		t.Error("reset history reported a current entry")
	}
}
