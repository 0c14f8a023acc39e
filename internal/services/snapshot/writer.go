package snapshot

import (
	"context"
	"errors"
	"sync"
	"time"

	"code.cloudfoundry.org/lager/v3"
	"github.com/asakaida/rolegate/internal/entities"
	"github.com/asakaida/rolegate/internal/repositories"
)

// ErrWriterClosed is returned by Flush after Close
var ErrWriterClosed = errors.New("snapshot writer closed")

// SaveObserver is notified after every save attempt
type SaveObserver interface {
	ObserveSave(duration time.Duration, err error)
}

// Writer persists snapshots in the background. Persist never blocks: it
// replaces the pending snapshot and a single goroutine saves the newest one,
// so intermediate revisions may be skipped. A failed save is logged and left
// for the next mutation to supersede.
//
// State committed in memory but not yet saved is lost if the process dies.
type Writer struct {
	repo        repositories.SnapshotRepository
	logger      lager.Logger
	observer    SaveObserver
	saveTimeout time.Duration

	mu           sync.Mutex
	pending      *entities.Snapshot
	pendingRev   uint64
	enqueuedRev  uint64
	attemptedRev uint64
	lastErr      error
	changed      chan struct{} // closed and replaced after every attempt
	closed       bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// WriterOption configures a Writer
type WriterOption func(*Writer)

// WithSaveObserver sets the observer notified after each save
func WithSaveObserver(o SaveObserver) WriterOption {
	return func(w *Writer) { w.observer = o }
}

// WithSaveTimeout bounds every Save call
func WithSaveTimeout(d time.Duration) WriterOption {
	return func(w *Writer) { w.saveTimeout = d }
}

// NewWriter starts a writer saving to repo
func NewWriter(repo repositories.SnapshotRepository, logger lager.Logger, opts ...WriterOption) *Writer {
	w := &Writer{
		repo:        repo,
		logger:      logger.Session("snapshot-writer"),
		saveTimeout: 10 * time.Second,
		changed:     make(chan struct{}),
		wake:        make(chan struct{}, 1),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	go w.run()
	return w
}

// Persist queues s as the newest state. It implements directory.Persister.
func (w *Writer) Persist(revision uint64, s *entities.Snapshot) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.logger.Info("dropped-after-close", lager.Data{"revision": revision})
		return
	}
	if revision <= w.enqueuedRev {
		w.mu.Unlock()
		return
	}
	w.pending = s
	w.pendingRev = revision
	w.enqueuedRev = revision
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Flush waits until the newest queued revision has been attempted and returns
// the result of that attempt
func (w *Writer) Flush(ctx context.Context) error {
	for {
		w.mu.Lock()
		target := w.enqueuedRev
		if w.attemptedRev >= target {
			err := w.lastErr
			w.mu.Unlock()
			return err
		}
		if w.closed && w.isDone() {
			w.mu.Unlock()
			return ErrWriterClosed
		}
		changed := w.changed
		w.mu.Unlock()

		select {
		case <-changed:
		case <-w.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close saves any pending snapshot and stops the background goroutine
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.stop)
	select {
	case <-w.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.attemptedRev < w.enqueuedRev {
		return ErrWriterClosed
	}
	return w.lastErr
}

func (w *Writer) isDone() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

func (w *Writer) run() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			w.saveLatest()
		case <-w.stop:
			w.saveLatest()
			return
		}
	}
}

func (w *Writer) saveLatest() {
	w.mu.Lock()
	snap, rev := w.pending, w.pendingRev
	w.pending = nil
	w.mu.Unlock()

	if snap == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.saveTimeout)
	start := time.Now()
	err := w.repo.Save(ctx, snap)
	elapsed := time.Since(start)
	cancel()

	if w.observer != nil {
		w.observer.ObserveSave(elapsed, err)
	}
	if err != nil {
		w.logger.Error("save-failed", err, lager.Data{"revision": rev})
	} else {
		w.logger.Debug("saved", lager.Data{"revision": rev, "roles": len(snap.Roles), "users": len(snap.Users)})
	}

	w.mu.Lock()
	w.attemptedRev = rev
	w.lastErr = err
	close(w.changed)
	w.changed = make(chan struct{})
	w.mu.Unlock()
}
