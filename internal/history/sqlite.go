package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nerrad567/aquarium-core/internal/infrastructure/metrics"
)

const (
	// DefaultLimit is the number of entries returned when no limit is given.
	DefaultLimit = 20

	// MaxLimit caps a single query.
	MaxLimit = 1000

	// timestampLayout is fixed-width UTC so lexical order is time order.
	timestampLayout = "2006-01-02T15:04:05.000000Z"

	appendTimeout = 5 * time.Second
)

// SQLiteLog stores history in the history table created by the embedded
// migrations.
//
// Thread Safety: safe for concurrent use; *sql.DB serialises access.
type SQLiteLog struct {
	db      *sql.DB
	now     func() time.Time
	logger  Logger
	metrics *metrics.Registry
}

// NewSQLiteLog creates a log on an open, migrated database.
func NewSQLiteLog(db *sql.DB) *SQLiteLog {
	return &SQLiteLog{
		db:     db,
		now:    time.Now,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger used for write failures and pruning.
func (l *SQLiteLog) SetLogger(logger Logger) {
	l.logger = logger
}

// SetMetrics sets the metrics registry. Nil disables instrumentation.
func (l *SQLiteLog) SetMetrics(m *metrics.Registry) {
	l.metrics = m
}

// Append implements Sink. Failures are logged and counted, not returned.
func (l *SQLiteLog) Append(ts time.Time, topic, value string) {
	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()

	if err := l.Insert(ctx, ts, topic, value); err != nil {
		l.metrics.HistoryWrite(false)
		l.logger.Error("history append failed", "topic", topic, "error", err)
		return
	}
	l.metrics.HistoryWrite(true)
}

// Insert writes one entry and reports any error.
func (l *SQLiteLog) Insert(ctx context.Context, ts time.Time, topic, value string) error {
	_, err := l.db.ExecContext(ctx,
		"INSERT INTO history (recorded_at, topic, value) VALUES (?, ?, ?)",
		formatTimestamp(ts), topic, value,
	)
	if err != nil {
		return fmt.Errorf("inserting history: %w", err)
	}
	return nil
}

// Query returns the most recent entries, newest first. An empty topic
// matches every topic. A limit outside 1..MaxLimit falls back to
// DefaultLimit or is clamped to MaxLimit.
func (l *SQLiteLog) Query(ctx context.Context, topic string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	var (
		rows *sql.Rows
		err  error
	)
	if topic == "" {
		rows, err = l.db.QueryContext(ctx,
			`SELECT id, recorded_at, topic, value FROM history
			 ORDER BY recorded_at DESC, id DESC LIMIT ?`, limit)
	} else {
		rows, err = l.db.QueryContext(ctx,
			`SELECT id, recorded_at, topic, value FROM history
			 WHERE topic = ?
			 ORDER BY recorded_at DESC, id DESC LIMIT ?`, topic, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e  Entry
			ts string
		)
		if err := rows.Scan(&e.ID, &ts, &e.Topic, &e.Value); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		if e.RecordedAt, err = parseTimestamp(ts); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	return entries, nil
}

// Prune deletes entries older than olderThan and returns how many went.
func (l *SQLiteLog) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, ErrInvalidRetention
	}

	cutoff := formatTimestamp(l.now().Add(-olderThan))
	res, err := l.db.ExecContext(ctx, "DELETE FROM history WHERE recorded_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning history: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

// RunPruner prunes on every interval until ctx is cancelled.
func (l *SQLiteLog) RunPruner(ctx context.Context, retention, interval time.Duration) error {
	if retention <= 0 {
		return ErrInvalidRetention
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := l.Prune(ctx, retention)
			if err != nil {
				l.logger.Warn("history prune failed", "error", err)
				continue
			}
			if n > 0 {
				l.logger.Info("history pruned", "removed", n, "retention", retention)
			}
		}
	}
}

func formatTimestamp(ts time.Time) string {
	return ts.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	ts, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %w", ErrInvalidTimestamp, s, err)
	}
	return ts, nil
}
