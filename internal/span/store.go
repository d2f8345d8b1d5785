package span

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("span store record not found")
var ErrInvalidCursor = errors.New("span cursor is invalid")

// Store persists imported spans and serves them back for analysis. The
// engine itself never touches a Store; it consumes plain []Span slices.
type Store interface {
	WriteSpan(ctx context.Context, s *Span) error
	WriteBatch(ctx context.Context, spans []*Span) error
	GetSpan(ctx context.Context, spanKey string) (*Span, error)
	ListTraceSpans(ctx context.Context, traceID string) ([]Span, error)
	ListTraceIDs(ctx context.Context, filter Filter) ([]string, error)
	QuerySpans(ctx context.Context, filter Filter) (*QueryResult, error)
	Close() error
}

// Filter narrows span queries. Zero values mean "no constraint".
type Filter struct {
	TraceID       string
	ServiceName   string
	OperationName string
	From          time.Time
	To            time.Time
	Limit         int
	Cursor        string
}

// QueryResult is one page of spans plus the cursor for the next page.
type QueryResult struct {
	Items      []Span
	NextCursor string
}
