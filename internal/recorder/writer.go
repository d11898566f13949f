package recorder

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/logs"
)

var (
	ErrQueueFull      = errors.New("journal queue full")
	ErrClosed         = errors.New("journal writer closed")
	ErrNotStarted     = errors.New("journal writer not started")
	ErrAlreadyStarted = errors.New("journal writer already started")
)

// Sink stores a batch of entries.
type Sink interface {
	Insert(ctx context.Context, entries []Entry) error
}

// Writer queues entries and flushes them to a Sink in batches from one
// goroutine, so the ladder never waits on the database.
type Writer struct {
	cfg  Config
	sink Sink
	ch   chan Entry
	wg   sync.WaitGroup
	err  atomic.Value

	dropped atomic.Uint64
	started uint32
	closed  uint32
}

// NewWriter creates a journal writer on top of sink.
func NewWriter(cfg Config, sink Sink) (*Writer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Writer{
		cfg:  cfg,
		sink: sink,
		ch:   make(chan Entry, cfg.QueueSize),
	}, nil
}

// Start runs the writer loop in a new goroutine.
func (w *Writer) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapUint32(&w.started, 0, 1) {
		return ErrAlreadyStarted
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
	return nil
}

// Close stops the writer after flushing everything queued.
func (w *Writer) Close() error {
	if atomic.CompareAndSwapUint32(&w.closed, 0, 1) {
		close(w.ch)
	}
	w.wg.Wait()
	return w.Err()
}

// Err returns the last flush error observed by the writer, if any.
func (w *Writer) Err() error {
	if v := w.err.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// Dropped counts entries rejected because the queue was full.
func (w *Writer) Dropped() uint64 {
	return w.dropped.Load()
}

// Record enqueues entry without blocking.
func (w *Writer) Record(_ context.Context, entry Entry) error {
	if atomic.LoadUint32(&w.closed) != 0 {
		return ErrClosed
	}
	if atomic.LoadUint32(&w.started) == 0 {
		return ErrNotStarted
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	select {
	case w.ch <- entry:
		return nil
	default:
		w.dropped.Add(1)
		return ErrQueueFull
	}
}

func (w *Writer) run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]Entry, 0, w.cfg.BatchSize)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := w.sink.Insert(ctx, batch); err != nil {
			w.err.Store(err)
			logs.Errorf("journal flush %d entries, err: %+v", len(batch), err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			w.drain(&batch)
			flush(context.WithoutCancel(ctx))
			return
		case entry, ok := <-w.ch:
			if !ok {
				flush(context.WithoutCancel(ctx))
				return
			}
			batch = append(batch, entry)
			if len(batch) >= w.cfg.BatchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		}
	}
}

func (w *Writer) drain(batch *[]Entry) {
	for {
		select {
		case entry, ok := <-w.ch:
			if !ok {
				return
			}
			*batch = append(*batch, entry)
		default:
			return
		}
	}
}
