package span

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/agentlens/agentlens/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresStore struct {
	DSN string
	db  *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres dsn cannot be empty")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}

	store := &PostgresStore{
		DSN: dsn,
		db:  db,
	}
	if err := store.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const pgSpanInsertSQL = `
INSERT INTO spans (
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
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (span_key) DO UPDATE SET
    trace_id = EXCLUDED.trace_id,
    operation_name = EXCLUDED.operation_name,
    service_name = EXCLUDED.service_name,
    start_time = EXCLUDED.start_time,
    duration_us = EXCLUDED.duration_us,
    parent_span_key = EXCLUDED.parent_span_key,
    tags = EXCLUDED.tags,
    is_error = EXCLUDED.is_error`

func (s *PostgresStore) WriteSpan(ctx context.Context, sp *Span) error {
	if sp == nil {
		return nil
	}

	_, err := s.db.ExecContext(ctx, pgSpanInsertSQL, pgSpanInsertArgs(sp)...)
	if err != nil {
		return fmt.Errorf("write span %q: %w", sp.SpanKey, err)
	}
	return nil
}

func (s *PostgresStore) WriteBatch(ctx context.Context, spans []*Span) error {
	if len(spans) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin postgres batch transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, pgSpanInsertSQL)
	if err != nil {
		return fmt.Errorf("prepare postgres batch insert: %w", err)
	}
	defer stmt.Close()

	for _, sp := range spans {
		if sp == nil {
			continue
		}
		if _, err := stmt.ExecContext(ctx, pgSpanInsertArgs(sp)...); err != nil {
			return fmt.Errorf("write span %q in batch: %w", sp.SpanKey, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit postgres batch transaction: %w", err)
	}
	return nil
}

func pgSpanInsertArgs(sp *Span) []any {
	return []any{
		sp.SpanKey,
		sp.TraceID,
		sp.OperationName,
		sp.ServiceName,
		sp.StartTime.UTC(),
		sp.Duration.Microseconds(),
		sp.ParentSpanKey,
		encodeTags(sp.Tags),
		sp.IsError,
		time.Now().UTC(),
	}
}

func (s *PostgresStore) GetSpan(ctx context.Context, spanKey string) (*Span, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+pgSpanSelectColumns+" FROM spans WHERE span_key = $1 LIMIT 1", spanKey)
	sp, err := scanPostgresSpanRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get span %q: %w", spanKey, err)
	}
	return sp, nil
}

func (s *PostgresStore) ListTraceSpans(ctx context.Context, traceID string) ([]Span, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+pgSpanSelectColumns+" FROM spans WHERE trace_id = $1 ORDER BY start_time ASC, span_key ASC", traceID)
	if err != nil {
		return nil, fmt.Errorf("query trace spans %q: %w", traceID, err)
	}
	defer rows.Close()

	var spans []Span
	for rows.Next() {
		sp, err := scanPostgresSpanRow(rows)
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

func (s *PostgresStore) ListTraceIDs(ctx context.Context, filter Filter) ([]string, error) {
	whereSQL, args := buildPostgresSpanWhere(filter)
	limit := normalizeLimit(filter.Limit)
	args = append(args, limit)

	query := fmt.Sprintf(
		"SELECT trace_id FROM spans WHERE %s GROUP BY trace_id ORDER BY MIN(start_time) DESC LIMIT $%d",
		whereSQL, len(args))
	rows, err := s.db.QueryContext(ctx, query, args...)
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

func (s *PostgresStore) QuerySpans(ctx context.Context, filter Filter) (*QueryResult, error) {
	limit := normalizeLimit(filter.Limit)

	whereSQL, args := buildPostgresSpanWhere(filter)
	if filter.Cursor != "" {
		cursorTime, cursorKey, err := decodeSpanCursor(filter.Cursor)
		if err != nil {
			return nil, err
		}
		n := len(args)
		whereSQL += fmt.Sprintf(" AND (start_time < $%d OR (start_time = $%d AND span_key < $%d))", n+1, n+2, n+3)
		args = append(args, cursorTime, cursorTime, cursorKey)
	}
	args = append(args, limit+1)

	query := fmt.Sprintf(
		"SELECT %s FROM spans WHERE %s ORDER BY start_time DESC, span_key DESC LIMIT $%d",
		pgSpanSelectColumns, whereSQL, len(args))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query spans: %w", err)
	}
	defer rows.Close()

	items := make([]Span, 0, limit+1)
	for rows.Next() {
		sp, err := scanPostgresSpanRow(rows)
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

const pgSpanSelectColumns = `
span_key,
trace_id,
operation_name,
service_name,
start_time,
duration_us,
parent_span_key,
tags,
is_error`

func buildPostgresSpanWhere(filter Filter) (string, []any) {
	clauses := []string{"1=1"}
	var args []any

	add := func(column, op string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("%s %s $%d", column, op, len(args)))
	}

	if filter.TraceID != "" {
		add("trace_id", "=", filter.TraceID)
	}
	if filter.ServiceName != "" {
		add("service_name", "=", filter.ServiceName)
	}
	if filter.OperationName != "" {
		add("operation_name", "=", filter.OperationName)
	}
	if !filter.From.IsZero() {
		add("start_time", ">=", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		add("start_time", "<=", filter.To.UTC())
	}

	return strings.Join(clauses, " AND "), args
}

func scanPostgresSpanRow(scanner rowScanner) (*Span, error) {
	var (
		sp            Span
		serviceName   sql.NullString
		startTime     time.Time
		durationUS    int64
		parentSpanKey sql.NullString
		tagsText      sql.NullString
	)

	if err := scanner.Scan(
		&sp.SpanKey,
		&sp.TraceID,
		&sp.OperationName,
		&serviceName,
		&startTime,
		&durationUS,
		&parentSpanKey,
		&tagsText,
		&sp.IsError,
	); err != nil {
		return nil, err
	}

	sp.ServiceName = serviceName.String
	sp.ParentSpanKey = parentSpanKey.String
	sp.StartTime = startTime.UTC()
	sp.Duration = time.Duration(durationUS) * time.Microsecond
	sp.Tags = decodeTags(tagsText.String)

	return &sp, nil
}

func (s *PostgresStore) ensureSchema() error {
	if err := migrations.Apply(context.Background(), s.db, migrations.DriverPostgres); err != nil {
		return fmt.Errorf("ensure postgres schema: %w", err)
	}
	return nil
}
