package span

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/agentlens/agentlens/migrations"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	Path string
	db   *sql.DB
	// SQLite allows only one writer at a time; serialize writes to avoid
	// SQLITE_BUSY contention when callers import spans concurrently.
	writeMu sync.Mutex
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory %q: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %q: %w", path, err)
	}

	store := &SQLiteStore{
		Path: path,
		db:   db,
	}

	if err := store.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const spanInsertSQL = `
INSERT OR REPLACE INTO spans (
    span_key,
    trace_id,
    operation_name,
    service_name,
    start_time,
    duration_us,
    parent_span_key,
    tags,
    is_error,
    created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (s *SQLiteStore) WriteSpan(ctx context.Context, sp *Span) error {
	if sp == nil {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := retrySQLiteBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, spanInsertSQL, spanInsertArgs(sp)...)
		return err
	})
	if err != nil {
		return fmt.Errorf("write span %q: %w", sp.SpanKey, err)
	}
	return nil
}

func (s *SQLiteStore) WriteBatch(ctx context.Context, spans []*Span) error {
	if len(spans) == 0 {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return retrySQLiteBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin sqlite batch transaction: %w", err)
		}
		defer func() {
			_ = tx.Rollback()
		}()

		stmt, err := tx.PrepareContext(ctx, spanInsertSQL)
		if err != nil {
			return fmt.Errorf("prepare sqlite batch insert: %w", err)
		}
		defer stmt.Close()

		for _, sp := range spans {
			if sp == nil {
				continue
			}
			if _, err := stmt.ExecContext(ctx, spanInsertArgs(sp)...); err != nil {
				return fmt.Errorf("write span %q in batch: %w", sp.SpanKey, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit sqlite batch transaction: %w", err)
		}
		return nil
	})
}

func spanInsertArgs(sp *Span) []any {
	return []any{
		sp.SpanKey,
		sp.TraceID,
		sp.OperationName,
		sp.ServiceName,
		sp.StartTime.UTC().Format(time.RFC3339Nano),
		sp.Duration.Microseconds(),
		sp.ParentSpanKey,
		encodeTags(sp.Tags),
		sp.IsError,
		time.Now().UTC().Format(time.RFC3339Nano),
	}
}

const spanSelectColumns = `
span_key,
trace_id,
operation_name,
service_name,
start_time,
duration_us,
parent_span_key,
tags,
is_error`

func (s *SQLiteStore) GetSpan(ctx context.Context, spanKey string) (*Span, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+spanSelectColumns+" FROM spans WHERE span_key = ? LIMIT 1", spanKey)
	sp, err := scanSpanRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get span %q: %w", spanKey, err)
	}
	return sp, nil
}

func (s *SQLiteStore) ListTraceSpans(ctx context.Context, traceID string) ([]Span, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+spanSelectColumns+" FROM spans WHERE trace_id = ? ORDER BY start_time ASC, span_key ASC", traceID)
	if err != nil {
		return nil, fmt.Errorf("query trace spans %q: %w", traceID, err)
	}
	defer rows.Close()

	var spans []Span
	for rows.Next() {
		sp, err := scanSpanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan span row: %w", err)
		}
		spans = append(spans, *sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate span rows: %w", err)
	}
	return spans, nil
}

func (s *SQLiteStore) ListTraceIDs(ctx context.Context, filter Filter) ([]string, error) {
	whereSQL, args := buildSpanWhere(filter, "?")
	limit := normalizeLimit(filter.Limit)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx,
		"SELECT trace_id FROM spans WHERE "+whereSQL+" GROUP BY trace_id ORDER BY MIN(start_time) DESC LIMIT ?", args...)
	if err != nil {
		return nil, fmt.Errorf("query trace ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan trace id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trace ids: %w", err)
	}
	return ids, nil
}

func (s *SQLiteStore) QuerySpans(ctx context.Context, filter Filter) (*QueryResult, error) {
	limit := normalizeLimit(filter.Limit)

	whereSQL, args := buildSpanWhere(filter, "?")
	if filter.Cursor != "" {
		cursorTime, cursorKey, err := decodeSpanCursor(filter.Cursor)
		if err != nil {
			return nil, err
		}
		whereSQL += " AND (start_time < ? OR (start_time = ? AND span_key < ?))"
		cursorText := cursorTime.Format(time.RFC3339Nano)
		args = append(args, cursorText, cursorText, cursorKey)
	}
	args = append(args, limit+1)

	query := "SELECT " + spanSelectColumns + " FROM spans WHERE " + whereSQL + " ORDER BY start_time DESC, span_key DESC LIMIT ?"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query spans: %w", err)
	}
	defer rows.Close()

	items := make([]Span, 0, limit+1)
	for rows.Next() {
		sp, err := scanSpanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan span row: %w", err)
		}
		items = append(items, *sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate span rows: %w", err)
	}

	nextCursor := ""
	if len(items) > limit {
		items = items[:limit]
		last := items[len(items)-1]
		nextCursor = encodeSpanCursor(last.StartTime, last.SpanKey)
	}

	return &QueryResult{Items: items, NextCursor: nextCursor}, nil
}

// buildSpanWhere assembles the filter clause; placeholder is "?" for
// sqlite and rewritten to $n for postgres by the caller.
func buildSpanWhere(filter Filter, placeholder string) (string, []any) {
	clauses := []string{"1=1"}
	var args []any

	add := func(clause string, value any) {
		clauses = append(clauses, clause)
		args = append(args, value)
	}

	if filter.TraceID != "" {
		add("trace_id = "+placeholder, filter.TraceID)
	}
	if filter.ServiceName != "" {
		add("service_name = "+placeholder, filter.ServiceName)
	}
	if filter.OperationName != "" {
		add("operation_name = "+placeholder, filter.OperationName)
	}
	if !filter.From.IsZero() {
		add("start_time >= "+placeholder, filter.From.UTC().Format(time.RFC3339Nano))
	}
	if !filter.To.IsZero() {
		add("start_time <= "+placeholder, filter.To.UTC().Format(time.RFC3339Nano))
	}

	return strings.Join(clauses, " AND "), args
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func encodeSpanCursor(startTime time.Time, spanKey string) string {
	if startTime.IsZero() || spanKey == "" {
		return ""
	}
	raw := startTime.UTC().Format(time.RFC3339Nano) + "|" + spanKey
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeSpanCursor(cursor string) (time.Time, string, error) {
	payload, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: decode base64 cursor", ErrInvalidCursor)
	}
	parts := strings.SplitN(string(payload), "|", 2)
	if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
		return time.Time{}, "", fmt.Errorf("%w: missing span key", ErrInvalidCursor)
	}
	startTime, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(parts[0]))
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: parse start_time", ErrInvalidCursor)
	}
	return startTime.UTC(), strings.TrimSpace(parts[1]), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSpanRow(scanner rowScanner) (*Span, error) {
	var (
		sp            Span
		serviceName   sql.NullString
		startTimeText string
		durationUS    int64
		parentSpanKey sql.NullString
		tagsText      sql.NullString
	)

	if err := scanner.Scan(
		&sp.SpanKey,
		&sp.TraceID,
		&sp.OperationName,
		&serviceName,
		&startTimeText,
		&durationUS,
		&parentSpanKey,
		&tagsText,
		&sp.IsError,
	); err != nil {
		return nil, err
	}

	sp.ServiceName = serviceName.String
	sp.ParentSpanKey = parentSpanKey.String
	sp.Duration = time.Duration(durationUS) * time.Microsecond
	sp.Tags = decodeTags(tagsText.String)

	startTime, err := time.Parse(time.RFC3339Nano, startTimeText)
	if err != nil {
		return nil, fmt.Errorf("parse span start_time %q: %w", startTimeText, err)
	}
	sp.StartTime = startTime

	return &sp, nil
}

func encodeTags(tags map[string]string) string {
	if len(tags) == 0 {
		return "{}"
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func decodeTags(raw string) map[string]string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	tags := make(map[string]string)
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

const (
	sqliteBusyMaxRetries     = 12
	sqliteBusyInitialBackoff = 5 * time.Millisecond
	sqliteBusyMaxBackoff     = 250 * time.Millisecond
)

// retrySQLiteBusy retries transient lock contention so imported spans are
// not dropped during concurrent writes.
func retrySQLiteBusy(ctx context.Context, fn func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var timer *time.Timer
	stopTimer := func() {
		if timer == nil {
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
	}
	defer stopTimer()

	for retries := 0; ; retries++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !isSQLiteBusyError(err) || retries >= sqliteBusyMaxRetries {
			return err
		}

		wait := sqliteBusyInitialBackoff << retries
		if wait > sqliteBusyMaxBackoff {
			wait = sqliteBusyMaxBackoff
		}

		if timer == nil {
			timer = time.NewTimer(wait)
		} else {
			stopTimer()
			timer.Reset(wait)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func isSQLiteBusyError(err error) bool {
	if err == nil {
		return false
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "sqlite_busy") || strings.Contains(value, "database is locked")
}

func (s *SQLiteStore) configure() error {
	if _, err := s.db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		return fmt.Errorf("enable sqlite WAL mode: %w", err)
	}
	if _, err := s.db.Exec(`PRAGMA synchronous = NORMAL;`); err != nil {
		return fmt.Errorf("set sqlite synchronous mode: %w", err)
	}
	if _, err := s.db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		return fmt.Errorf("set sqlite busy timeout: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ensureSchema() error {
	if err := migrations.Apply(context.Background(), s.db, migrations.DriverSQLite); err != nil {
		return fmt.Errorf("ensure sqlite schema: %w", err)
	}
	return nil
}
