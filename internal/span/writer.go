package span

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

const writerBatchSize = 64

// WriteFailure describes spans that could not be persisted.
type WriteFailure struct {
	BatchSize   int
	FailedCount int
	Err         error
}

// WriteFailureHandler receives asynchronous span write failure signals.
type WriteFailureHandler func(WriteFailure)

var noopWriteFailureHandler = WriteFailureHandler(func(WriteFailure) {})

// WriterMetrics holds optional callbacks the Writer invokes at key
// pipeline points.
type WriterMetrics struct {
	OnEnqueue func()
	OnDrop    func()
	OnFlush   func(batchSize int, duration time.Duration)
}

// Writer decouples span ingestion from storage with a bounded queue and
// batched writes. When the queue is full spans are dropped rather than
// blocking the importer.
type Writer struct {
	store Store
	queue chan *Span
	wg    sync.WaitGroup

	started  atomic.Bool
	stopped  atomic.Bool
	stopOnce sync.Once
	doneOnce sync.Once
	done     chan struct{}

	queueMu      sync.RWMutex
	lifecycleMu  sync.Mutex
	workerCancel context.CancelFunc

	failureHandler atomic.Value // WriteFailureHandler
	metrics        atomic.Value // *WriterMetrics

	enqueueAcceptedTotal atomic.Int64
	enqueueDroppedTotal  atomic.Int64
	writeDroppedTotal    atomic.Int64
}

func NewWriter(store Store, bufferSize int) *Writer {
	if bufferSize <= 0 {
		bufferSize = 256
	}

	w := &Writer{
		store: store,
		queue: make(chan *Span, bufferSize),
		done:  make(chan struct{}),
	}
	w.failureHandler.Store(noopWriteFailureHandler)
	w.metrics.Store(&WriterMetrics{})
	return w
}

// SetWriteFailureHandler replaces the callback used for dropped span
// write signals.
func (w *Writer) SetWriteFailureHandler(handler WriteFailureHandler) {
	if w == nil {
		return
	}
	if handler == nil {
		handler = noopWriteFailureHandler
	}
	w.failureHandler.Store(handler)
}

// SetMetrics replaces the metric callbacks used by the writer pipeline.
func (w *Writer) SetMetrics(m *WriterMetrics) {
	if w == nil {
		return
	}
	if m == nil {
		m = &WriterMetrics{}
	}
	w.metrics.Store(m)
}

func (w *Writer) loadMetrics() *WriterMetrics {
	m, _ := w.metrics.Load().(*WriterMetrics)
	return m
}

// QueueLen returns the number of spans waiting in the write queue.
func (w *Writer) QueueLen() int {
	if w == nil {
		return 0
	}
	return len(w.queue)
}

// Dropped returns the total spans dropped at enqueue or write time.
func (w *Writer) Dropped() int64 {
	if w == nil {
		return 0
	}
	return w.enqueueDroppedTotal.Load() + w.writeDroppedTotal.Load()
}

func (w *Writer) Start(ctx context.Context) {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	if ctx == nil || ctx.Err() != nil {
		ctx = context.Background()
	}
	workerCtx, cancel := context.WithCancel(ctx)
	w.lifecycleMu.Lock()
	w.workerCancel = cancel
	w.lifecycleMu.Unlock()

	w.wg.Add(1)
	go func(workerCtx context.Context) {
		defer w.wg.Done()
		defer w.markDone()

		for {
			select {
			case <-workerCtx.Done():
				return
			case sp, ok := <-w.queue:
				if !ok {
					return
				}

				batch := make([]*Span, 0, writerBatchSize)
				if sp != nil {
					batch = append(batch, sp)
				}
			drain:
				for len(batch) < writerBatchSize {
					select {
					case <-workerCtx.Done():
						// Flush with a fresh context so the final batch is
						// not rejected due to context cancellation.
						w.flushBatch(context.Background(), batch)
						return
					case next, ok := <-w.queue:
						if !ok {
							w.flushBatch(context.Background(), batch)
							return
						}
						if next != nil {
							batch = append(batch, next)
						}
					default:
						break drain
					}
				}
				w.flushBatch(workerCtx, batch)
			}
		}
	}(workerCtx)
}

func (w *Writer) Enqueue(sp *Span) bool {
	if w.stopped.Load() {
		return false
	}
	w.queueMu.RLock()
	defer w.queueMu.RUnlock()
	if w.stopped.Load() {
		return false
	}

	select {
	case w.queue <- sp:
		w.enqueueAcceptedTotal.Add(1)
		if m := w.loadMetrics(); m != nil && m.OnEnqueue != nil {
			m.OnEnqueue()
		}
		return true
	default:
		w.enqueueDroppedTotal.Add(1)
		if m := w.loadMetrics(); m != nil && m.OnDrop != nil {
			m.OnDrop()
		}
		return false
	}
}

// Stop closes the queue; queued spans are still flushed by the worker.
func (w *Writer) Stop() {
	w.stopOnce.Do(func() {
		w.stopped.Store(true)
		w.queueMu.Lock()
		close(w.queue)
		w.queueMu.Unlock()
		if !w.started.Load() {
			w.markDone()
		}
	})
}

// Shutdown stops the writer and waits for the worker to drain, honoring
// the context deadline.
func (w *Writer) Shutdown(ctx context.Context) error {
	w.Stop()
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.lifecycleMu.Lock()
		cancel := w.workerCancel
		w.lifecycleMu.Unlock()
		if cancel != nil {
			cancel()
		}
		return errors.New("span writer shutdown timed out before drain completed")
	}
}

func (w *Writer) markDone() {
	w.doneOnce.Do(func() {
		close(w.done)
	})
}

func (w *Writer) flushBatch(ctx context.Context, batch []*Span) {
	if len(batch) == 0 {
		return
	}

	start := time.Now()
	err := w.store.WriteBatch(ctx, batch)
	if err != nil {
		w.writeDroppedTotal.Add(int64(len(batch)))
		if handler, ok := w.failureHandler.Load().(WriteFailureHandler); ok && handler != nil {
			handler(WriteFailure{
				BatchSize:   len(batch),
				FailedCount: len(batch),
				Err:         err,
			})
		}
		return
	}

	if m := w.loadMetrics(); m != nil && m.OnFlush != nil {
		m.OnFlush(len(batch), time.Since(start))
	}
}
