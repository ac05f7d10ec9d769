package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Sink accepts audit entries without blocking the caller.
type Sink interface {
	Record(ctx context.Context, e Entry)
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, Entry) {}

const defaultQueueSize = 256

// Recorder persists entries on a background worker. When the queue is full
// the entry is dropped and logged; audit failures never reach callers.
type Recorder struct {
	repo    Repository
	logger  zerolog.Logger
	queue   chan Entry
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewRecorder(repo Repository, logger zerolog.Logger, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	r := &Recorder{
		repo:    repo,
		logger:  logger.With().Str("component", "audit").Logger(),
		queue:   make(chan Entry, queueSize),
		timeout: 5 * time.Second,
		done:    make(chan struct{}),
	}
	go r.loop()
	return r
}

func (r *Recorder) Record(_ context.Context, e Entry) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- e:
	default:
		r.logger.Warn().Str("action", e.Action).Msg("audit queue full, entry dropped")
	}
}

// Close stops accepting entries and drains the queue, waiting at most until
// ctx expires.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) loop() {
	defer close(r.done)
	for e := range r.queue {
		r.write(e)
	}
}

func (r *Recorder) write(e Entry) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().Str("action", e.Action).Interface("panic", rec).Msg("audit write panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.repo.Create(ctx, &e); err != nil {
		r.logger.Warn().Err(fmt.Errorf("write audit entry: %w", err)).
			Str("action", e.Action).
			Str("owner_id", e.OwnerID.String()).
			Msg("audit entry not stored")
	}
}
