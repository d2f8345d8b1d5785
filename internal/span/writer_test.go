package span

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// memStore records batched writes; failErr makes every write fail.
type memStore struct {
	mu      sync.Mutex
	written []*Span
	batches int
	failErr error
}

func (m *memStore) WriteSpan(_ context.Context, sp *Span) error {
	return m.WriteBatch(context.Background(), []*Span{sp})
}

func (m *memStore) WriteBatch(_ context.Context, spans []*Span) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.written = append(m.written, spans...)
	m.batches++
	return nil
}

func (m *memStore) GetSpan(context.Context, string) (*Span, error) { return nil, ErrNotFound }

func (m *memStore) ListTraceSpans(context.Context, string) ([]Span, error) { return nil, nil }

func (m *memStore) ListTraceIDs(context.Context, Filter) ([]string, error) { return nil, nil }

func (m *memStore) QuerySpans(context.Context, Filter) (*QueryResult, error) {
	return &QueryResult{}, nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) writtenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.written)
}

func TestWriterFlushesOnShutdown(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	w := NewWriter(store, 128)
	w.Start(context.Background())

	for i := 0; i < 100; i++ {
		if !w.Enqueue(&Span{SpanKey: "s", TraceID: "t1"}) {
			t.Fatalf("enqueue %d rejected", i)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if got := store.writtenCount(); got != 100 {
		t.Fatalf("wrote %d spans, want 100", got)
	}
	if w.Dropped() != 0 {
		t.Fatalf("Dropped = %d, want 0", w.Dropped())
	}
}

func TestWriterDropsWhenQueueFull(t *testing.T) {
	t.Parallel()

	var drops atomic.Int64
	w := NewWriter(&memStore{}, 1)
	w.SetMetrics(&WriterMetrics{OnDrop: func() { drops.Add(1) }})

	// The worker is never started, so the queue fills at capacity 1.
	if !w.Enqueue(&Span{SpanKey: "s1"}) {
		t.Fatal("first enqueue rejected")
	}
	if w.Enqueue(&Span{SpanKey: "s2"}) {
		t.Fatal("second enqueue accepted past capacity")
	}
	if w.Dropped() != 1 {
		t.Fatalf("Dropped = %d, want 1", w.Dropped())
	}
	if drops.Load() != 1 {
		t.Fatalf("OnDrop fired %d times, want 1", drops.Load())
	}
}

func TestWriterEnqueueAfterStop(t *testing.T) {
	t.Parallel()

	w := NewWriter(&memStore{}, 4)
	w.Stop()
	if w.Enqueue(&Span{SpanKey: "late"}) {
		t.Fatal("enqueue accepted after Stop")
	}
}

func TestWriterReportsWriteFailures(t *testing.T) {
	t.Parallel()

	store := &memStore{failErr: errors.New("disk full")}
	w := NewWriter(store, 16)

	var mu sync.Mutex
	var failures []WriteFailure
	w.SetWriteFailureHandler(func(f WriteFailure) {
		mu.Lock()
		failures = append(failures, f)
		mu.Unlock()
	})

	w.Start(context.Background())
	for i := 0; i < 3; i++ {
		if !w.Enqueue(&Span{SpanKey: "s"}) {
			t.Fatalf("enqueue %d rejected", i)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(failures) == 0 {
		t.Fatal("no write failures reported")
	}
	total := 0
	for _, f := range failures {
		if f.Err == nil {
			t.Fatal("failure without error")
		}
		if f.FailedCount != f.BatchSize {
			t.Fatalf("failure = %+v, want FailedCount == BatchSize", f)
		}
		total += f.FailedCount
	}
	if total != 3 {
		t.Fatalf("reported %d failed spans, want 3", total)
	}
	if w.Dropped() != 3 {
		t.Fatalf("Dropped = %d, want 3", w.Dropped())
	}
}

func TestWriterFlushMetric(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	w := NewWriter(store, 16)

	var flushed atomic.Int64
	w.SetMetrics(&WriterMetrics{OnFlush: func(batchSize int, _ time.Duration) {
		flushed.Add(int64(batchSize))
	}})

	w.Start(context.Background())
	for i := 0; i < 5; i++ {
		w.Enqueue(&Span{SpanKey: "s"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if flushed.Load() != 5 {
		t.Fatalf("flushed %d spans, want 5", flushed.Load())
	}
}

func TestWriterShutdownWithoutStart(t *testing.T) {
	t.Parallel()

	w := NewWriter(&memStore{}, 4)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
