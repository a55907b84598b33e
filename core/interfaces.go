package core

import (
	"context"
	"io"
	"time"
)

// Decoder converts raw bytes / a reader into a decoded pixel buffer plus
// metadata.  Implementations live in adapters/decoder/.
type Decoder interface {
	// Decode reads from r and returns a decoded DecodedImage.
	Decode(ctx context.Context, r io.Reader) (*DecodedImage, error)
	// CanDecode reports whether this decoder handles the given format hint.
	CanDecode(format Format) bool
}

// DecodedImage pairs a decoded image with its metadata.  Image holds an
// image.Image; adapters with their own pixel representations (libvips) wrap
// it before returning.
type DecodedImage struct {
	Image interface{} // actual type: image.Image
	Meta  Metadata
}

// Encoder serialises a raster into bytes in a target format.
// Implementations live in adapters/encoder/.
type Encoder interface {
	Encode(ctx context.Context, img interface{}, opts EncodeOptions) ([]byte, error)
	CanEncode(format Format) bool
}

// EncodeOptions carries format-specific encoding parameters.
type EncodeOptions struct {
	Quality    int  // 1-100; 0 = use encoder default
	Lossless   bool // WebP / PNG lossless mode
	Interlaced bool // progressive JPEG / interlaced PNG
}

// StorageAdapter persists encoded edits and retrieves them later.
// Implementations live in adapters/storage/.
type StorageAdapter interface {
	Put(ctx context.Context, key StorageKey, r io.Reader, meta map[string]string) error
	Get(ctx context.Context, key StorageKey) (io.ReadCloser, error)
	Delete(ctx context.Context, key StorageKey) error
	Exists(ctx context.Context, key StorageKey) (bool, error)
}

// StorageKey uniquely identifies a stored image.
type StorageKey struct {
	Bucket string
	Path   string
}

// TokenSource supplies a fresh bearer token on demand.  The engine never
// stores or refreshes tokens itself; that is the auth collaborator's job.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// MetricsCollector receives performance observations from the pipeline.
type MetricsCollector interface {
	RecordProcessingTime(stageName string, d interface{ Seconds() float64 })
	RecordThroughput(bytes int64)
	RecordError(stageName string, category string)
}

// Logger is a minimal structured logging interface.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// Hook is an optional observer invoked around pipeline stages.
type Hook interface {
	BeforeStage(ctx context.Context, stageName string, width, height int)
	AfterStage(ctx context.Context, stageName string, width, height int, d time.Duration, err error)
}

// Registry maps Format values to Decoder/Encoder implementations.
type Registry interface {
	DecoderFor(format Format) (Decoder, bool)
	EncoderFor(format Format) (Encoder, bool)
	RegisterDecoder(format Format, d Decoder)
	RegisterEncoder(format Format, e Encoder)
	DecodeFormats() []Format
}
