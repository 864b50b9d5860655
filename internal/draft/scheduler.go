package draft

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultDebounce is the quiet period before a scheduled write runs.
const DefaultDebounce = 500 * time.Millisecond

const writeTimeout = 10 * time.Second

// WriteFunc performs one deferred write.
type WriteFunc func(ctx context.Context) error

// Scheduler coalesces rapid writes per key: each Schedule replaces the
// pending write for its key and restarts the quiet period. Writes for one
// key run in the order they were scheduled and a superseded write never
// runs after a newer one.
type Scheduler struct {
	window time.Duration
	log    *slog.Logger

	// OnWrite, when set, is called after every executed write.
	OnWrite func(key string, err error)

	mu      sync.Mutex
	seq     uint64
	pending map[string]*pendingWrite
	floor   map[string]uint64
	closed  bool
	wg      sync.WaitGroup

	// writeMu serializes execution so a flushed write and a timer-fired
	// write for the same key cannot interleave.
	writeMu sync.Mutex
}

type pendingWrite struct {
	seq   uint64
	fn    WriteFunc
	timer *time.Timer
}

// NewScheduler creates a scheduler. A non-positive window uses DefaultDebounce.
func NewScheduler(window time.Duration, log *slog.Logger) *Scheduler {
	if window <= 0 {
		window = DefaultDebounce
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		window:  window,
		log:     log,
		pending: make(map[string]*pendingWrite),
		floor:   make(map[string]uint64),
	}
}

// Schedule replaces any pending write for key with fn. After Close, fn runs
// immediately.
func (s *Scheduler) Schedule(key string, fn WriteFunc) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.execute(context.Background(), key, &pendingWrite{seq: s.nextSeq(), fn: fn})
		return
	}
	if old, ok := s.pending[key]; ok {
		s.stopLocked(old)
	}
	p := &pendingWrite{seq: s.nextSeqLocked(), fn: fn}
	s.wg.Add(1)
	p.timer = time.AfterFunc(s.window, func() { s.fire(key, p) })
	s.pending[key] = p
	s.mu.Unlock()
}

// Pending reports whether key has a write waiting.
func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[key]
	return ok
}

// Flush runs the pending write for key now, if any.
func (s *Scheduler) Flush(ctx context.Context, key string) error {
	s.mu.Lock()
	p, ok := s.pending[key]
	if ok {
		delete(s.pending, key)
		s.stopLocked(p)
	}
	s.mu.Unlock()

	if ok {
		return s.execute(ctx, key, p)
	}
	// Wait out a timer-fired write already in progress.
	s.writeMu.Lock()
	s.writeMu.Unlock()
	return nil
}

// Cancel drops the pending write for key and waits for any write of key
// already executing, so the caller may delete the key afterwards.
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	if p, ok := s.pending[key]; ok {
		delete(s.pending, key)
		s.stopLocked(p)
	}
	s.floor[key] = s.seq
	s.mu.Unlock()

	s.writeMu.Lock()
	s.writeMu.Unlock()
}

// Close flushes every pending write and waits until none is running.
func (s *Scheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	pending := s.pending
	s.pending = make(map[string]*pendingWrite)
	for _, p := range pending {
		s.stopLocked(p)
	}
	s.mu.Unlock()

	var errs []error
	for key, p := range pending {
		if err := s.execute(ctx, key, p); err != nil {
			errs = append(errs, err)
		}
	}
	s.wg.Wait()
	return errors.Join(errs...)
}

// stopLocked stops p's timer. When the timer already fired, its callback
// finds p superseded and releases the wait group itself.
func (s *Scheduler) stopLocked(p *pendingWrite) {
	if p.timer != nil && p.timer.Stop() {
		s.wg.Done()
	}
}

func (s *Scheduler) fire(key string, p *pendingWrite) {
	defer s.wg.Done()

	s.mu.Lock()
	current := s.pending[key] == p
	if current {
		delete(s.pending, key)
	}
	s.mu.Unlock()
	if !current {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.execute(ctx, key, p); err != nil {
		s.log.Error("deferred write failed", "key", key, "error", err)
	}
}

func (s *Scheduler) execute(ctx context.Context, key string, p *pendingWrite) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	stale := p.seq <= s.floor[key]
	if !stale {
		s.floor[key] = p.seq
	}
	s.mu.Unlock()
	if stale {
		return nil
	}

	err := p.fn(ctx)
	if s.OnWrite != nil {
		s.OnWrite(key, err)
	}
	return err
}

func (s *Scheduler) nextSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextSeqLocked()
}

func (s *Scheduler) nextSeqLocked() uint64 {
	s.seq++
	return s.seq
}
