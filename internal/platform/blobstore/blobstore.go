// Package blobstore persists generated report artifacts. A Store hands back
// an opaque location string on Put that is later passed to Open; the
// retention sweep removes artifacts older than a cutoff.
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrBlobNotFound    = errors.New("blob not found")
	ErrMissingFileName = errors.New("file name is required")
	ErrInvalidFileName = errors.New("file name must not contain path separators")
)

// Store is the contract for artifact storage backends.
type Store interface {
	Put(ctx context.Context, name string, content []byte) (location string, err error)
	Open(ctx context.Context, location string) (io.ReadCloser, error)
	// PurgeOlderThan deletes artifacts last modified before cutoff and
	// returns how many were removed.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrMissingFileName
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return ErrInvalidFileName
	}
	return nil
}

// ---------------------------------------------------------------------------
// In-memory implementation
// ---------------------------------------------------------------------------

type storedBlob struct {
	content    []byte
	modifiedAt time.Time
}

// MemoryStore keeps artifacts in memory. Used by tests.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]*storedBlob
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]*storedBlob), now: time.Now}
}

// SetClock overrides the modification timestamp source.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Put(_ context.Context, name string, content []byte) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	cp := make([]byte, len(content))
	copy(cp, content)

	s.mu.Lock()
	defer s.mu.Unlock()
	loc := path.Join("mem", name)
	s.blobs[loc] = &storedBlob{content: cp, modifiedAt: s.now()}
	return loc, nil
}

func (s *MemoryStore) Open(_ context.Context, location string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[location]
	if !ok {
		return nil, ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(b.content)), nil
}

func (s *MemoryStore) PurgeOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for loc, b := range s.blobs {
		if b.modifiedAt.Before(cutoff) {
			delete(s.blobs, loc)
			removed++
		}
	}
	return removed, nil
}

// Locations returns the stored locations in sorted order.
func (s *MemoryStore) Locations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.blobs))
	for loc := range s.blobs {
		out = append(out, loc)
	}
	sort.Strings(out)
	return out
}
