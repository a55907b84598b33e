package darkroom

import "github.com/darkroom-go/darkroom/engine"

// Inner exposes the underlying engine.Engine for advanced use (e.g., direct
// history access in tests).  Prefer the high-level API for normal usage.
func (e *Editor) Inner() *engine.Engine { return e.inner }
