package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/darkroom-go/darkroom/core"
	apperrors "github.com/darkroom-go/darkroom/errors"
)

// ── Local store tests ─────────────────────────────────────────────────────────

func TestLocal_PutGetDelete(t *testing.T) {
	store, err := NewLocal(t.TempDir(), 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	key := core.StorageKey{Bucket: "edits", Path: "a.png"}
	payload := []byte("encoded image bytes")

	if err := store.Put(ctx, key, bytes.NewReader(payload), map[string]string{"format": "png"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	ok, err := store.Exists(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Exists: %v %v, want true", ok, err)
	}

	rc, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("stored content mismatch")
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := store.Exists(ctx, key); ok {
		t.Error("entry still exists after delete")
	}
}

func TestLocal_GetMissingKey(t *testing.T) {
	store, err := NewLocal(t.TempDir(), 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(context.Background(), core.StorageKey{Bucket: "edits", Path: "missing.png"}); err == nil {
		t.Error("expected error for missing key, got nil")
	}
}

func TestLocal_QuotaEvictsOldestFirst(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocal(dir, 0, 100)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	payload := bytes.Repeat([]byte("x"), 40)

	keys := []core.StorageKey{
		{Bucket: "edits", Path: "oldest.png"},
		{Bucket: "edits", Path: "middle.png"},
		{Bucket: "edits", Path: "newest.png"},
	}
	// Spread modification times so eviction order is unambiguous.
	for i, key := range keys {
		if err := store.Put(ctx, key, bytes.NewReader(payload), nil); err != nil {
			t.Fatalf("Put %s: %v", key.Path, err)
		}
		mod := time.Now().Add(time.Duration(i-3) * time.Hour)
		if err := os.Chtimes(filepath.Join(dir, "edits", key.Path), mod, mod); err != nil {
			t.Fatal(err)
		}
	}

	// 120 bytes used; a fourth 40-byte entry forces the two oldest out.
	incoming := core.StorageKey{Bucket: "edits", Path: "incoming.png"}
	if err := store.Put(ctx, incoming, bytes.NewReader(payload), nil); err != nil {
		t.Fatalf("Put incoming: %v", err)
	}

	for _, tc := range []struct {
		key  core.StorageKey
		want bool
	}{
		{keys[0], false},
		{keys[1], false},
		{keys[2], true},
		{incoming, true},
	} {
		ok, err := store.Exists(ctx, tc.key)
		if err != nil {
			t.Fatal(err)
		}
		if ok != tc.want {
			t.Errorf("%s: exists = %v, want %v", tc.key.Path, ok, tc.want)
		}
	}
}

func TestLocal_EntryLargerThanQuota(t *testing.T) {
	store, err := NewLocal(t.TempDir(), 0, 100)
	if err != nil {
		t.Fatal(err)
	}
	err = store.Put(context.Background(),
		core.StorageKey{Bucket: "edits", Path: "huge.png"},
		bytes.NewReader(bytes.Repeat([]byte("x"), 200)), nil)
	if !errors.Is(err, apperrors.ErrStorageQuota) {
		t.Errorf("err = %v, want ErrStorageQuota", err)
	}
}

// ── Drive adapter tests ───────────────────────────────────────────────────────

type fakeTokens struct {
	token string
	err   error
	calls int
}

func (f *fakeTokens) Token(context.Context) (string, error) {
	f.calls++
	return f.token, f.err
}

type fakeDrive struct {
	failures int // upload failures before succeeding
	uploads  int
	tokens   []string
	bodies   [][]byte // what each attempt actually sent
}

func (f *fakeDrive) Upload(_ context.Context, token, folder, name string, body io.Reader, meta map[string]string) error {
	f.uploads++
	f.tokens = append(f.tokens, token)
	// A real client consumes the reader whether or not the call succeeds.
	sent, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.bodies = append(f.bodies, sent)
	if f.uploads <= f.failures {
		return errors.New("transient network failure")
	}
	return nil
}

func (f *fakeDrive) Download(context.Context, string, string, string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader([]byte("payload"))), nil
}
func (f *fakeDrive) Remove(context.Context, string, string, string) error     { return nil }
func (f *fakeDrive) Stat(context.Context, string, string, string) (bool, error) {
	return true, nil
}

func TestDrive_RetriesTransientFailures(t *testing.T) {
	client := &fakeDrive{failures: 2}
	tokens := &fakeTokens{token: "tok"}
	drive, err := NewDrive(client, tokens, "edits", 3, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	key := core.StorageKey{Path: "a.png"}
	if err := drive.Put(context.Background(), key, bytes.NewReader([]byte("data")), nil); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if client.uploads != 3 {
		t.Errorf("upload attempts: got %d, want 3", client.uploads)
	}
	// A fresh token is fetched for every attempt.
	if tokens.calls != 3 {
		t.Errorf("token fetches: got %d, want 3", tokens.calls)
	}
}

func TestDrive_RetryResendsFullBody(t *testing.T) {
	client := &fakeDrive{failures: 1}
	drive, err := NewDrive(client, &fakeTokens{token: "tok"}, "edits", 3, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	payload := []byte("full upload payload")
	key := core.StorageKey{Path: "a.png"}
	if err := drive.Put(context.Background(), key, bytes.NewReader(payload), nil); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if len(client.bodies) != 2 {
		t.Fatalf("attempts: got %d, want 2", len(client.bodies))
	}
	// The first attempt drained the caller's reader; the retry must still
	// carry the complete body, not whatever the reader had left.
	for i, sent := range client.bodies {
		if !bytes.Equal(sent, payload) {
			t.Errorf("attempt %d uploaded %d bytes %q, want %q", i+1, len(sent), sent, payload)
		}
	}
}

func TestDrive_ExhaustsRetries(t *testing.T) {
	client := &fakeDrive{failures: 100}
	drive, err := NewDrive(client, &fakeTokens{token: "tok"}, "edits", 2, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	err = drive.Put(context.Background(), core.StorageKey{Path: "a.png"}, bytes.NewReader(nil), nil)
	if err == nil {
		t.Fatal("expected error after exhausting retries, got nil")
	}
	if client.uploads != 3 { // initial attempt + 2 retries
		t.Errorf("upload attempts: got %d, want 3", client.uploads)
	}
}

func TestDrive_TokenFailureIsNotRetried(t *testing.T) {
	client := &fakeDrive{}
	drive, err := NewDrive(client, &fakeTokens{err: errors.New("auth down")}, "edits", 3, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	err = drive.Put(context.Background(), core.StorageKey{Path: "a.png"}, bytes.NewReader(nil), nil)
	if !errors.Is(err, apperrors.ErrTokenUnavailable) {
		t.Errorf("err = %v, want ErrTokenUnavailable", err)
	}
	if client.uploads != 0 {
		t.Errorf("uploads: got %d, want 0", client.uploads)
	}
}

func TestDrive_BucketOverridesFolder(t *testing.T) {
	drive, err := NewDrive(&fakeDrive{}, &fakeTokens{token: "tok"}, "default-folder", 0, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if got := drive.folderFor(core.StorageKey{Path: "a.png"}); got != "default-folder" {
		t.Errorf("folder: got %q, want default-folder", got)
	}
	if got := drive.folderFor(core.StorageKey{Bucket: "custom", Path: "a.png"}); got != "custom" {
		t.Errorf("folder: got %q, want custom", got)
	}
}

func TestDrive_RequiresCollaborators(t *testing.T) {
	if _, err := NewDrive(nil, &fakeTokens{}, "f", 1, time.Millisecond); err == nil {
		t.Error("expected error for nil client")
	}
	if _, err := NewDrive(&fakeDrive{}, nil, "f", 1, time.Millisecond); err == nil {
		t.Error("expected error for nil token source")
	}
}
