package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/darkroom-go/darkroom/core"
	apperrors "github.com/darkroom-go/darkroom/errors"
	"github.com/darkroom-go/darkroom/utils"
)

// DriveClient defines the minimal cloud-drive interface used by the adapter.
// This allows injection of a real drive SDK client or test doubles.  Every
// call carries a fresh bearer token supplied by the auth collaborator.
type DriveClient interface {
	Upload(ctx context.Context, token, folder, name string, body io.Reader, meta map[string]string) error
	Download(ctx context.Context, token, folder, name string) (io.ReadCloser, error)
	Remove(ctx context.Context, token, folder, name string) error
	Stat(ctx context.Context, token, folder, name string) (bool, error)
}

// Drive is the StorageAdapter backed by a cloud drive.  Transient failures
// are retried up to a small fixed bound with fixed backoff; tokens are never
// cached here — the TokenSource is asked on each call.
type Drive struct {
	client     DriveClient
	tokens     core.TokenSource
	folder     string
	maxRetries int
	retryDelay time.Duration
}

// NewDrive creates a Drive adapter.  client and tokens must not be nil.
func NewDrive(client DriveClient, tokens core.TokenSource, folder string, maxRetries int, retryDelay time.Duration) (*Drive, error) {
	if client == nil {
		return nil, fmt.Errorf("drive storage: client must not be nil")
	}
	if tokens == nil {
		return nil, fmt.Errorf("drive storage: token source must not be nil")
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if retryDelay <= 0 {
		retryDelay = 500 * time.Millisecond
	}
	return &Drive{
		client:     client,
		tokens:     tokens,
		folder:     folder,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}, nil
}

func (d *Drive) folderFor(key core.StorageKey) string {
	if key.Bucket != "" {
		return key.Bucket
	}
	return d.folder
}

// withRetry runs fn, retrying transient failures with fixed backoff.
func (d *Drive) withRetry(ctx context.Context, op string, fn func(token string) error) error {
	var lastErr error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return apperrors.Wrap(apperrors.CategoryStorage, op, ctx.Err())
			case <-time.After(d.retryDelay):
			}
		}
		token, err := d.tokens.Token(ctx)
		if err != nil {
			return apperrors.New(apperrors.CategoryStorage, op,
				fmt.Errorf("%w: %v", apperrors.ErrTokenUnavailable, err))
		}
		lastErr = fn(token)
		if lastErr == nil || !apperrors.IsRetryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (d *Drive) Put(ctx context.Context, key core.StorageKey, r io.Reader, meta map[string]string) error {
	// Drain the body once up front.  A failed attempt leaves the original
	// reader partially or fully consumed, so each retry gets a fresh reader
	// over the same bytes.
	buf, err := utils.DrainReader(ctx, r, 32*1024)
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "drive.put.drain", err)
	}
	body := utils.CloneBytes(buf.Bytes())
	utils.ReleaseBuffer(buf)

	return d.withRetry(ctx, "drive.put", func(token string) error {
		if err := d.client.Upload(ctx, token, d.folderFor(key), key.Path, utils.BytesReader(body), meta); err != nil {
			return apperrors.Transient("drive.put", err)
		}
		return nil
	})
}

func (d *Drive) Get(ctx context.Context, key core.StorageKey) (io.ReadCloser, error) {
	var rc io.ReadCloser
	err := d.withRetry(ctx, "drive.get", func(token string) error {
		var err error
		rc, err = d.client.Download(ctx, token, d.folderFor(key), key.Path)
		if err != nil {
			return apperrors.Transient("drive.get", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rc, nil
}

func (d *Drive) Delete(ctx context.Context, key core.StorageKey) error {
	return d.withRetry(ctx, "drive.delete", func(token string) error {
		if err := d.client.Remove(ctx, token, d.folderFor(key), key.Path); err != nil {
			return apperrors.Transient("drive.delete", err)
		}
		return nil
	})
}

func (d *Drive) Exists(ctx context.Context, key core.StorageKey) (bool, error) {
	var exists bool
	err := d.withRetry(ctx, "drive.exists", func(token string) error {
		var err error
		exists, err = d.client.Stat(ctx, token, d.folderFor(key), key.Path)
		if err != nil {
			return apperrors.Transient("drive.exists", err)
		}
		return nil
	})
	return exists, err
}
