// Package engine hosts the pipeline orchestrator, the task executor, and the
// undo/redo history for rendered snapshots.
package engine

import (
	"time"

	"github.com/darkroom-go/darkroom/core"
	"github.com/darkroom-go/darkroom/utils"
)

// HistoryEntry is one committed render snapshot.
type HistoryEntry struct {
	Image core.EncodedImage
	Hash  uint64
	At    time.Time
}

// History is a bounded undo/redo stack of encoded snapshots.  Entries are
// inserted at the tail and evicted from the head once over capacity.
// History is not internally synchronized: it is owned exclusively by the
// engine's calling context and never touched from the executor.
type History struct {
	entries []HistoryEntry
	cursor  int // index of the current entry; -1 when empty
	cap     int
}

// NewHistory returns an empty history bounded to capacity entries.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 10
	}
	return &History{cursor: -1, cap: capacity}
}

// Commit appends img as the new current entry.  If the cursor is not at the
// tail, everything past it is discarded first (standard editor redo
// truncation).  Consecutive identical snapshots are deduplicated by content
// hash.
func (h *History) Commit(img core.EncodedImage) {
	hash := utils.ContentHash(img.Data)
	if h.cursor >= 0 && h.entries[h.cursor].Hash == hash {
		return
	}

	h.entries = h.entries[:h.cursor+1]
	h.entries = append(h.entries, HistoryEntry{Image: img, Hash: hash, At: time.Now()})
	h.cursor++

	if len(h.entries) > h.cap {
		drop := len(h.entries) - h.cap
		h.entries = h.entries[drop:]
		h.cursor -= drop
	}
}

// Undo moves the cursor back one entry and returns it.  Returns false when
// already at the first entry.
func (h *History) Undo() (core.EncodedImage, bool) {
	if h.cursor <= 0 {
		return core.EncodedImage{}, false
	}
	h.cursor--
	return h.entries[h.cursor].Image, true
}

// Redo moves the cursor forward one entry and returns it.  Returns false when
// already at the last entry.
func (h *History) Redo() (core.EncodedImage, bool) {
	if h.cursor >= len(h.entries)-1 {
		return core.EncodedImage{}, false
	}
	h.cursor++
	return h.entries[h.cursor].Image, true
}

// Current returns the entry under the cursor.
func (h *History) Current() (core.EncodedImage, bool) {
	if h.cursor < 0 {
		return core.EncodedImage{}, false
	}
	return h.entries[h.cursor].Image, true
}

// Len returns the number of retained entries.
func (h *History) Len() int { return len(h.entries) }

// Reset discards all entries.
func (h *History) Reset() {
	h.entries = nil
	h.cursor = -1
}
