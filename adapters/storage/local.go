// Package storage provides StorageAdapter implementations for saved edits.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/darkroom-go/darkroom/core"
	apperrors "github.com/darkroom-go/darkroom/errors"
	"github.com/darkroom-go/darkroom/utils"
)

// Local stores saved edits on the local filesystem under a byte quota.  When
// a Put would exceed the quota the oldest saved entries are evicted and the
// write retried; if the entry alone is larger than the quota, everything but
// the incoming entry is dropped and the write attempted one last time.
type Local struct {
	rootDir     string
	permissions os.FileMode
	quotaBytes  int64
}

// NewLocal creates a Local store rooted at dir.  quotaBytes of 0 disables
// quota enforcement.
func NewLocal(dir string, perm os.FileMode, quotaBytes int64) (*Local, error) {
	if perm == 0 {
		perm = 0o644
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("local storage: mkdir %s: %w", dir, err)
	}
	return &Local{rootDir: dir, permissions: perm, quotaBytes: quotaBytes}, nil
}

func (l *Local) absPath(key core.StorageKey) string {
	// Bucket maps to a subdirectory; Path is the filename.
	return filepath.Join(l.rootDir, filepath.Clean(key.Bucket), filepath.Clean(key.Path))
}

func (l *Local) Put(ctx context.Context, key core.StorageKey, r io.Reader, meta map[string]string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.put", err)
	}

	buf, err := utils.DrainReader(ctx, r, 32*1024)
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.put.drain", err)
	}
	data := utils.CloneBytes(buf.Bytes())
	utils.ReleaseBuffer(buf)

	if l.quotaBytes > 0 {
		if err := l.makeRoom(int64(len(data))); err != nil {
			return err
		}
	}

	path := l.absPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.put.mkdir", err)
	}
	if err := os.WriteFile(path, data, l.permissions); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.put.write", err)
	}

	// Persist metadata as a side-car JSON file.
	if len(meta) > 0 {
		metaPath := path + ".meta.json"
		mf, err := os.OpenFile(metaPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, l.permissions)
		if err == nil {
			_ = json.NewEncoder(mf).Encode(meta)
			mf.Close()
		}
	}
	return nil
}

// makeRoom evicts the oldest saved entries until incoming bytes fit inside
// the quota.  An entry too large to ever fit fails with ErrStorageQuota.
func (l *Local) makeRoom(incoming int64) error {
	if incoming > l.quotaBytes {
		return apperrors.New(apperrors.CategoryStorage, "local.quota",
			fmt.Errorf("%w: entry of %d bytes exceeds quota %d", apperrors.ErrStorageQuota, incoming, l.quotaBytes))
	}

	entries, used, err := l.scan()
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.quota.scan", err)
	}
	for used+incoming > l.quotaBytes && len(entries) > 0 {
		oldest := entries[0]
		entries = entries[1:]
		if err := os.Remove(oldest.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			// Eviction failure: keep trying with the next oldest so repeated
			// failures still converge on keeping the newest entries only.
			continue
		}
		_ = os.Remove(oldest.path + ".meta.json")
		used -= oldest.size
	}
	if used+incoming > l.quotaBytes {
		return apperrors.New(apperrors.CategoryStorage, "local.quota", apperrors.ErrStorageQuota)
	}
	return nil
}

type storedEntry struct {
	path    string
	size    int64
	modUnix int64
}

// scan lists stored entries oldest-first, plus total bytes used.
func (l *Local) scan() ([]storedEntry, int64, error) {
	var entries []storedEntry
	var used int64
	err := filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.HasSuffix(path, ".meta.json") {
			return nil
		}
		entries = append(entries, storedEntry{path: path, size: info.Size(), modUnix: info.ModTime().UnixNano()})
		used += info.Size()
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].modUnix < entries[j].modUnix })
	return entries, used, nil
}

func (l *Local) Get(ctx context.Context, key core.StorageKey) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "local.get", err)
	}
	f, err := os.Open(l.absPath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.New(apperrors.CategoryStorage, "local.get", fmt.Errorf("key not found: %v", key))
		}
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "local.get.open", err)
	}
	return f, nil
}

func (l *Local) Delete(ctx context.Context, key core.StorageKey) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.delete", err)
	}
	path := l.absPath(key)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.delete", err)
	}
	_ = os.Remove(path + ".meta.json")
	return nil
}

func (l *Local) Exists(ctx context.Context, key core.StorageKey) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, apperrors.Wrap(apperrors.CategoryStorage, "local.exists", err)
	}
	_, err := os.Stat(l.absPath(key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, apperrors.Wrap(apperrors.CategoryStorage, "local.exists.stat", err)
}
