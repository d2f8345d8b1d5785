package span

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

var storeEpoch = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "spans.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func storedSpan(key, traceID string, offset time.Duration) *Span {
	return &Span{
		SpanKey:       key,
		TraceID:       traceID,
		OperationName: "chat",
		ServiceName:   "agent",
		StartTime:     storeEpoch.Add(offset),
		Duration:      250 * time.Millisecond,
		Tags:          map[string]string{"gen_ai.request.model": "gpt-4o"},
	}
}

func TestSQLiteStoreWriteAndGet(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	in := storedSpan("s1", "t1", 0)
	in.ParentSpanKey = "root"
	in.IsError = true
	if err := store.WriteSpan(ctx, in); err != nil {
		t.Fatalf("WriteSpan: %v", err)
	}

	got, err := store.GetSpan(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSpan: %v", err)
	}
	if got.SpanKey != "s1" || got.TraceID != "t1" || got.OperationName != "chat" {
		t.Fatalf("span = %+v", got)
	}
	if got.ServiceName != "agent" || got.ParentSpanKey != "root" || !got.IsError {
		t.Fatalf("span = %+v", got)
	}
	if !got.StartTime.Equal(in.StartTime) {
		t.Fatalf("StartTime = %v, want %v", got.StartTime, in.StartTime)
	}
	if got.Duration != in.Duration {
		t.Fatalf("Duration = %v, want %v", got.Duration, in.Duration)
	}
	if got.Tags["gen_ai.request.model"] != "gpt-4o" {
		t.Fatalf("Tags = %v", got.Tags)
	}
}

func TestSQLiteStoreGetMissing(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	if _, err := store.GetSpan(context.Background(), "absent"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetSpan error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStoreWriteReplacesExistingKey(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	first := storedSpan("s1", "t1", 0)
	if err := store.WriteSpan(ctx, first); err != nil {
		t.Fatalf("WriteSpan: %v", err)
	}

	second := storedSpan("s1", "t1", 0)
	second.OperationName = "embeddings"
	if err := store.WriteSpan(ctx, second); err != nil {
		t.Fatalf("rewrite span: %v", err)
	}

	got, err := store.GetSpan(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSpan: %v", err)
	}
	if got.OperationName != "embeddings" {
		t.Fatalf("OperationName = %q, want embeddings", got.OperationName)
	}

	spans, err := store.ListTraceSpans(ctx, "t1")
	if err != nil {
		t.Fatalf("ListTraceSpans: %v", err)
	}
	if len(spans) != 1 {
		t.Fatalf("got %d spans after rewrite, want 1", len(spans))
	}
}

func TestSQLiteStoreListTraceSpansOrdering(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	batch := []*Span{
		storedSpan("s3", "t1", 2*time.Second),
		storedSpan("s1", "t1", 0),
		storedSpan("s2", "t1", 1*time.Second),
		storedSpan("other", "t2", 0),
	}
	if err := store.WriteBatch(ctx, batch); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}

	spans, err := store.ListTraceSpans(ctx, "t1")
	if err != nil {
		t.Fatalf("ListTraceSpans: %v", err)
	}
	if len(spans) != 3 {
		t.Fatalf("got %d spans, want 3", len(spans))
	}
	for i, want := range []string{"s1", "s2", "s3"} {
		if spans[i].SpanKey != want {
			t.Fatalf("spans[%d] = %q, want %q", i, spans[i].SpanKey, want)
		}
	}

	empty, err := store.ListTraceSpans(ctx, "no-such-trace")
	if err != nil {
		t.Fatalf("ListTraceSpans(empty): %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("got %d spans for unknown trace", len(empty))
	}
}

func TestSQLiteStoreListTraceIDs(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	batch := []*Span{
		storedSpan("a1", "older", 0),
		storedSpan("b1", "newer", 10*time.Second),
		storedSpan("b2", "newer", 11*time.Second),
	}
	if err := store.WriteBatch(ctx, batch); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}

	ids, err := store.ListTraceIDs(ctx, Filter{})
	if err != nil {
		t.Fatalf("ListTraceIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != "newer" || ids[1] != "older" {
		t.Fatalf("ids = %v, want [newer older]", ids)
	}

	ids, err = store.ListTraceIDs(ctx, Filter{To: storeEpoch.Add(5 * time.Second)})
	if err != nil {
		t.Fatalf("ListTraceIDs with filter: %v", err)
	}
	if len(ids) != 1 || ids[0] != "older" {
		t.Fatalf("filtered ids = %v, want [older]", ids)
	}
}

func TestSQLiteStoreQuerySpansPaging(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	var batch []*Span
	for i, key := range []string{"s1", "s2", "s3", "s4", "s5"} {
		batch = append(batch, storedSpan(key, "t1", time.Duration(i)*time.Second))
	}
	if err := store.WriteBatch(ctx, batch); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}

	page1, err := store.QuerySpans(ctx, Filter{Limit: 2})
	if err != nil {
		t.Fatalf("QuerySpans page 1: %v", err)
	}
	if len(page1.Items) != 2 || page1.Items[0].SpanKey != "s5" || page1.Items[1].SpanKey != "s4" {
		t.Fatalf("page 1 = %+v", page1.Items)
	}
	if page1.NextCursor == "" {
		t.Fatal("page 1 has no cursor")
	}

	page2, err := store.QuerySpans(ctx, Filter{Limit: 2, Cursor: page1.NextCursor})
	if err != nil {
		t.Fatalf("QuerySpans page 2: %v", err)
	}
	if len(page2.Items) != 2 || page2.Items[0].SpanKey != "s3" || page2.Items[1].SpanKey != "s2" {
		t.Fatalf("page 2 = %+v", page2.Items)
	}

	page3, err := store.QuerySpans(ctx, Filter{Limit: 2, Cursor: page2.NextCursor})
	if err != nil {
		t.Fatalf("QuerySpans page 3: %v", err)
	}
	if len(page3.Items) != 1 || page3.Items[0].SpanKey != "s1" {
		t.Fatalf("page 3 = %+v", page3.Items)
	}
	if page3.NextCursor != "" {
		t.Fatalf("page 3 cursor = %q, want empty", page3.NextCursor)
	}
}

func TestSQLiteStoreQuerySpansInvalidCursor(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	if _, err := store.QuerySpans(context.Background(), Filter{Cursor: "%%%not-base64"}); !errors.Is(err, ErrInvalidCursor) {
		t.Fatalf("QuerySpans error = %v, want ErrInvalidCursor", err)
	}
}

func TestSQLiteStoreQuerySpansFilters(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	other := storedSpan("svc2", "t2", time.Second)
	other.ServiceName = "gateway"
	other.OperationName = "http.request"
	batch := []*Span{storedSpan("svc1", "t1", 0), other}
	if err := store.WriteBatch(ctx, batch); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}

	byService, err := store.QuerySpans(ctx, Filter{ServiceName: "gateway"})
	if err != nil {
		t.Fatalf("QuerySpans by service: %v", err)
	}
	if len(byService.Items) != 1 || byService.Items[0].SpanKey != "svc2" {
		t.Fatalf("by service = %+v", byService.Items)
	}

	byOperation, err := store.QuerySpans(ctx, Filter{OperationName: "chat"})
	if err != nil {
		t.Fatalf("QuerySpans by operation: %v", err)
	}
	if len(byOperation.Items) != 1 || byOperation.Items[0].SpanKey != "svc1" {
		t.Fatalf("by operation = %+v", byOperation.Items)
	}

	byTrace, err := store.QuerySpans(ctx, Filter{TraceID: "t2"})
	if err != nil {
		t.Fatalf("QuerySpans by trace: %v", err)
	}
	if len(byTrace.Items) != 1 || byTrace.Items[0].TraceID != "t2" {
		t.Fatalf("by trace = %+v", byTrace.Items)
	}
}

func TestSQLiteStoreWriteNilSpan(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	if err := store.WriteSpan(context.Background(), nil); err != nil {
		t.Fatalf("WriteSpan(nil): %v", err)
	}
	if err := store.WriteBatch(context.Background(), nil); err != nil {
		t.Fatalf("WriteBatch(nil): %v", err)
	}
}
