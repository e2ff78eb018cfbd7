package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/elonfeng/signalradar/pkg/source"
	"github.com/elonfeng/signalradar/pkg/trend"
)

// ErrNoRun is returned when no run has been saved yet.
var ErrNoRun = errors.New("no run saved")

// Run describes one pipeline run.
type Run struct {
	ID          string    `db:"id" json:"id"`
	StartedAt   time.Time `db:"started_at" json:"started_at"`
	FinishedAt  time.Time `db:"finished_at" json:"finished_at"`
	Feeds       int       `db:"feeds" json:"feeds"`
	FailedFeeds int       `db:"failed_feeds" json:"failed_feeds"`
	Items       int       `db:"items" json:"items"`
	P33         float64   `db:"p33" json:"p33"`
	P66         float64   `db:"p66" json:"p66"`
}

// SignalListOpts controls signal listing.
type SignalListOpts struct {
	Category source.Category
	Tier     trend.Tier
	Limit    int
}

// Store keeps a snapshot of the latest run only. Saving a run replaces the previous one.
type Store interface {
	SaveRun(ctx context.Context, run Run, signals []trend.Signal) error
	LatestRun(ctx context.Context) (*Run, error)
	ListSignals(ctx context.Context, opts SignalListOpts) ([]trend.Signal, error)
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

type signalRow struct {
	ID             int64   `db:"id"`
	RunID          string  `db:"run_id"`
	Position       int     `db:"position"`
	Published      string  `db:"published"`
	Title          string  `db:"title"`
	Link           string  `db:"link"`
	Category       string  `db:"category"`
	PrimaryKeyword string  `db:"primary_keyword"`
	HitCount       int     `db:"hit_count"`
	TrendScore     float64 `db:"trend_score"`
	Status         string  `db:"status"`
}

// criticalError wraps an error that should not be retried
type criticalError struct {
	err error
}

func (e *criticalError) Error() string { return e.err.Error() }
func (e *criticalError) Unwrap() error { return e.err }

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun replaces the stored snapshot with the given run and its signals in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run Run, signals []trend.Signal) error {
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	err := retrier.Do(ctx, func() error {
		err := s.saveRun(ctx, run, signals)
		if err != nil && !isLockError(err) {
			return &criticalError{err: err}
		}
		return err
	})
	var ce *criticalError
	if errors.As(err, &ce) {
		return ce.err
	}
	return err
}

func (s *SQLiteStore) saveRun(ctx context.Context, run Run, signals []trend.Signal) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM signals"); err != nil {
		return fmt.Errorf("clear signals: %w", err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM runs"); err != nil {
		return fmt.Errorf("clear runs: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, feeds, failed_feeds, items, p33, p66)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Feeds, run.FailedFeeds, run.Items, run.P33, run.P66)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO signals (run_id, position, published, title, link, category, primary_keyword, hit_count, trend_score, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare signal insert: %w", err)
	}
	defer stmt.Close()

	for i, sig := range signals {
		_, err = stmt.ExecContext(ctx, run.ID, i, sig.PublishedISO, sig.Title, sig.Link, string(sig.Category),
			sig.PrimaryKeyword, sig.HitCount, sig.TrendScore, string(sig.Tier))
		if err != nil {
			return fmt.Errorf("insert signal %q: %w", sig.Link, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", run.ID, err)
	}
	return nil
}

// LatestRun returns the stored run or ErrNoRun.
func (s *SQLiteStore) LatestRun(ctx context.Context) (*Run, error) {
	var runs []Run
	if err := s.db.SelectContext(ctx, &runs, "SELECT * FROM runs ORDER BY started_at DESC LIMIT 1"); err != nil {
		return nil, fmt.Errorf("get latest run: %w", err)
	}
	if len(runs) == 0 {
		return nil, ErrNoRun
	}
	return &runs[0], nil
}

// ListSignals returns stored signals in published order, optionally filtered.
func (s *SQLiteStore) ListSignals(ctx context.Context, opts SignalListOpts) ([]trend.Signal, error) {
	query := "SELECT * FROM signals WHERE 1=1"
	var args []any

	if opts.Category != "" {
		query += " AND category = ?"
		args = append(args, string(opts.Category))
	}
	if opts.Tier != "" {
		query += " AND status = ?"
		args = append(args, string(opts.Tier))
	}

	query += " ORDER BY position"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	var rows []signalRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}

	signals := make([]trend.Signal, 0, len(rows))
	for _, r := range rows {
		sig := trend.Signal{
			Item: source.Item{
				Title:        r.Title,
				Link:         r.Link,
				Category:     source.Category(r.Category),
				PublishedRaw: r.Published,
			},
			PublishedISO:   r.Published,
			PrimaryKeyword: r.PrimaryKeyword,
			HitCount:       r.HitCount,
			TrendScore:     r.TrendScore,
			Tier:           trend.Tier(r.Status),
		}
		if t, err := time.Parse(time.RFC3339, r.Published); err == nil {
			sig.PublishedAt = t.UTC()
		}
		signals = append(signals, sig)
	}
	return signals, nil
}

// isLockError checks if an error is a SQLite lock/busy error
func isLockError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "SQLITE_BUSY") ||
		strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "database table is locked")
}
