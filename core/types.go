package core

import (
	"io"
	"time"

	"github.com/darkroom-go/darkroom/raster"
)

// Format identifies an image codec.
type Format string

const (
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatWebP    Format = "webp"
	FormatUnknown Format = "unknown"
)

// QualityTier selects the resolution level a pipeline pass executes at.
type QualityTier string

const (
	TierPreview QualityTier = "preview"
	TierFinal   QualityTier = "final"
)

// Metadata holds extracted image information.
type Metadata struct {
	Width     int
	Height    int
	Format    Format
	HasAlpha  bool
	SizeBytes int64
}

// Source abstracts where raw image bytes come from (reader, file, upload).
type Source struct {
	Reader      io.Reader
	ContentType string // optional hint
	Name        string // optional logical name / filename
	Size        int64  // -1 if unknown
}

// EncodedImage is the boundary format handed to persistence collaborators.
// PNG is the default container so repeated edits round-trip losslessly.
type EncodedImage struct {
	Data   []byte
	Format Format
	Width  int
	Height int
}

// ProcessingRequest is one unit of work for the task executor.  IDs increase
// monotonically per engine; a response whose ID is older than the most
// recently dispatched one is discarded (staleness cancellation).
type ProcessingRequest struct {
	ID     uint64
	Source *raster.Buffer // ownership moves with the request
	Params AdjustmentParams
	Tier   QualityTier
}

// RenderResult is the executor's response to a ProcessingRequest.
type RenderResult struct {
	ID      uint64
	Buffer  *raster.Buffer
	Timings map[string]time.Duration
	Err     error
}
