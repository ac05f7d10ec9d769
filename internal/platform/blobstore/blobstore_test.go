package blobstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func readAll(t *testing.T, store Store, loc string) string {
	t.Helper()
	rc, err := store.Open(context.Background(), loc)
	if err != nil {
		t.Fatalf("open %s: %v", loc, err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read %s: %v", loc, err)
	}
	return string(b)
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name string
		want error
	}{
		{"reporte_2024-03-10_1710100000000.pdf", nil},
		{"", ErrMissingFileName},
		{"   ", ErrMissingFileName},
		{"../etc/passwd", ErrInvalidFileName},
		{`a\b.pdf`, ErrInvalidFileName},
		{"..", ErrInvalidFileName},
	}
	for _, tt := range tests {
		if got := validateName(tt.name); !errors.Is(got, tt.want) {
			t.Errorf("validateName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMemoryStore_PutOpen(t *testing.T) {
	store := NewMemoryStore()
	loc, err := store.Put(context.Background(), "r.pdf", []byte("%PDF-1.3"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := readAll(t, store, loc); got != "%PDF-1.3" {
		t.Errorf("expected stored content, got %q", got)
	}

	if _, err := store.Open(context.Background(), "mem/missing.pdf"); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound, got %v", err)
	}
}

func TestMemoryStore_CopiesContent(t *testing.T) {
	store := NewMemoryStore()
	data := []byte("abc")
	loc, _ := store.Put(context.Background(), "c.pdf", data)
	data[0] = 'z'
	if got := readAll(t, store, loc); got != "abc" {
		t.Errorf("expected stored copy to be unaffected, got %q", got)
	}
}

func TestMemoryStore_PurgeOlderThan(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	store.SetClock(func() time.Time { return base })
	store.Put(context.Background(), "old.pdf", []byte("old"))
	store.SetClock(func() time.Time { return base.AddDate(0, 0, 40) })
	store.Put(context.Background(), "new.pdf", []byte("new"))

	removed, err := store.PurgeOlderThan(context.Background(), base.AddDate(0, 0, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	locs := store.Locations()
	if len(locs) != 1 || locs[0] != "mem/new.pdf" {
		t.Errorf("expected only new.pdf to remain, got %v", locs)
	}
}

func TestLocalStore_PutOpen(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(filepath.Join(dir, "reports"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loc, err := store.Put(context.Background(), "reporte.pdf", []byte("pdf-bytes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Dir(loc) != store.Dir() {
		t.Errorf("expected artifact inside %s, got %s", store.Dir(), loc)
	}
	if got := readAll(t, store, loc); got != "pdf-bytes" {
		t.Errorf("expected pdf-bytes, got %q", got)
	}

	entries, _ := os.ReadDir(store.Dir())
	if len(entries) != 1 {
		t.Errorf("expected temp files to be cleaned up, got %d entries", len(entries))
	}
}

func TestLocalStore_OpenOutsideDir(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewLocalStore(filepath.Join(dir, "reports"))

	outside := filepath.Join(dir, "secret.txt")
	os.WriteFile(outside, []byte("x"), 0o600)

	if _, err := store.Open(context.Background(), outside); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound for path outside dir, got %v", err)
	}
	if _, err := store.Open(context.Background(), filepath.Join(store.Dir(), "nope.pdf")); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound for missing file, got %v", err)
	}
}

func TestLocalStore_PurgeOlderThan(t *testing.T) {
	store, _ := NewLocalStore(t.TempDir())
	oldLoc, _ := store.Put(context.Background(), "old.pdf", []byte("o"))
	newLoc, _ := store.Put(context.Background(), "new.pdf", []byte("n"))

	past := time.Now().AddDate(0, 0, -45)
	if err := os.Chtimes(oldLoc, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	removed, err := store.PurgeOlderThan(context.Background(), time.Now().AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if _, err := os.Stat(oldLoc); !os.IsNotExist(err) {
		t.Error("expected old artifact to be removed")
	}
	if _, err := os.Stat(newLoc); err != nil {
		t.Errorf("expected new artifact to remain: %v", err)
	}
}

func TestLocalStore_PurgeRecreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	store, _ := NewLocalStore(dir)
	os.RemoveAll(dir)

	removed, err := store.PurgeOlderThan(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 0 {
		t.Errorf("expected 0 removed, got %d", removed)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("expected dir to be recreated: %v", err)
	}
}
