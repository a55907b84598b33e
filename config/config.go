package config

import (
	"errors"
	"time"
)

// StorageBackend selects the storage adapter.
type StorageBackend string

const (
	StorageLocal StorageBackend = "local"
	StorageDrive StorageBackend = "drive"
)

// PreviewQuality is the downscale factor applied to the source image for the
// interactive preview buffer.
type PreviewQuality float64

const (
	PreviewHalf         PreviewQuality = 0.5
	PreviewThreeQuarter PreviewQuality = 0.75
	PreviewFull         PreviewQuality = 1.0
)

// Config is the top-level configuration struct.  All fields have safe defaults
// so callers can start with Config{} and override only what they need.
type Config struct {
	// Preview rendering.
	PreviewQuality PreviewQuality // default: 0.5

	// History.
	HistoryCapacity int           // max retained snapshots; default 10
	CommitDebounce  time.Duration // idle window before a render is committed; default 300ms

	// Task executor.
	UseWorker       bool          // run stages on a dedicated worker goroutine
	WatchdogTimeout time.Duration // discard a hung worker job after this bound; default 10s

	// Allocation guard.  A pipeline pass that would allocate a buffer with
	// more than MaxPixels pixels aborts with an alloc-category error.
	MaxPixels int64 // 0 = no limit

	// Input guard.  Loading a source whose encoded bytes exceed this bound
	// aborts before decoding starts.
	MaxInputBytes int64 // 0 = no limit

	// Default encode options applied when the caller does not override.
	DefaultQuality int // 1-100; default 85
	DefaultFormat  string

	// Storage.
	Storage StorageBackend
	Local   LocalConfig
	Drive   DriveConfig

	// Logging / metrics.
	LogLevel string // "debug", "info", "warn", "error"
}

// LocalConfig configures the local filesystem saved-edit store.
type LocalConfig struct {
	RootDir     string
	Permissions uint32 // default 0644
	QuotaBytes  int64  // 0 = no quota; on overflow oldest entries are evicted
}

// DriveConfig configures the cloud drive upload adapter.
type DriveConfig struct {
	Folder     string
	MaxRetries int           // transient-failure retry bound; default 3
	RetryDelay time.Duration // fixed backoff between retries; default 500ms
}

// Default returns a Config populated with sensible production defaults.
func Default() Config {
	return Config{
		PreviewQuality:  PreviewHalf,
		HistoryCapacity: 10,
		CommitDebounce:  300 * time.Millisecond,
		UseWorker:       true,
		WatchdogTimeout: 10 * time.Second,
		DefaultQuality:  85,
		DefaultFormat:   "png",
		Storage:         StorageLocal,
		Drive: DriveConfig{
			MaxRetries: 3,
			RetryDelay: 500 * time.Millisecond,
		},
		LogLevel: "info",
	}
}

// Validate returns an error if the configuration is inconsistent.
func Validate(c Config) error {
	switch c.PreviewQuality {
	case PreviewHalf, PreviewThreeQuarter, PreviewFull:
	default:
		return errors.New("config: PreviewQuality must be 0.5, 0.75 or 1.0")
	}
	if c.HistoryCapacity <= 0 {
		return errors.New("config: HistoryCapacity must be positive")
	}
	if c.CommitDebounce < 0 {
		return errors.New("config: CommitDebounce must not be negative")
	}
	if c.DefaultQuality < 1 || c.DefaultQuality > 100 {
		return errors.New("config: DefaultQuality must be between 1 and 100")
	}
	if c.MaxInputBytes < 0 {
		return errors.New("config: MaxInputBytes must not be negative")
	}
	if c.Drive.MaxRetries < 0 {
		return errors.New("config: Drive.MaxRetries must not be negative")
	}
	return nil
}
