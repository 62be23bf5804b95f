// Package postgres provides Postgres-backed persistence for events and
// per-source crawl status.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LBtakeuti/fanfan-worker/internal/event"
)

// db is the subset of pgxpool.Pool the store needs; pgxmock satisfies it in
// tests.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements event.EventStore and event.SourceStore on Postgres.
type Store struct {
	pool db
}

// Config controls the Postgres connection pool.
type Config struct {
	DSN      string
	MaxConns int32
}

// New creates a Store backed by a pgx connection pool.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithDB wraps an existing connection (tests).
func NewWithDB(pool db) *Store {
	return &Store{pool: pool}
}

// Close closes the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

const upsertEventSQL = `
	INSERT INTO events (
		tour, tour_start_date, tour_end_date,
		place, place_start_date, place_end_date,
		date, performance, artist, source_url, checksum
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (artist, tour, place, date, performance) DO UPDATE
	SET tour_start_date = EXCLUDED.tour_start_date,
		tour_end_date = EXCLUDED.tour_end_date,
		place_start_date = EXCLUDED.place_start_date,
		place_end_date = EXCLUDED.place_end_date,
		source_url = EXCLUDED.source_url,
		checksum = EXCLUDED.checksum;
`

// UpsertEvent writes one record keyed by the natural uniqueness constraint.
// Empty date, performance and range fields are stored as NULL.
func (s *Store) UpsertEvent(ctx context.Context, rec event.DedupedRecord) error {
	_, err := s.pool.Exec(ctx, upsertEventSQL,
		rec.Tour,
		nullIfEmpty(rec.TourStartDate),
		nullIfEmpty(rec.TourEndDate),
		rec.Place,
		nullIfEmpty(rec.PlaceStartDate),
		nullIfEmpty(rec.PlaceEndDate),
		nullIfEmpty(rec.Date),
		nullIfEmpty(rec.Performance),
		rec.Artist,
		rec.SourceURL,
		rec.Checksum,
	)
	if err != nil {
		return fmt.Errorf("upsert event: %w", err)
	}
	return nil
}

// ExistingChecksums reports which of the given checksums are already stored.
func (s *Store) ExistingChecksums(ctx context.Context, checksums []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(checksums))
	if len(checksums) == 0 {
		return existing, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT checksum FROM events WHERE checksum = ANY($1);`, checksums)
	if err != nil {
		return nil, fmt.Errorf("query checksums: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sum string
		if err := rows.Scan(&sum); err != nil {
			return nil, fmt.Errorf("scan checksum: %w", err)
		}
		existing[sum] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checksums: %w", err)
	}
	return existing, nil
}

// GetSource loads the crawl status for a source URL.
func (s *Store) GetSource(ctx context.Context, sourceURL string) (event.SourceStatus, error) {
	var status event.SourceStatus
	err := s.pool.QueryRow(ctx,
		`SELECT source_url, last_crawled_at, last_status FROM url_sources WHERE source_url = $1;`,
		sourceURL,
	).Scan(&status.SourceURL, &status.LastCrawledAt, &status.LastStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return event.SourceStatus{}, event.ErrSourceUnknown
	}
	if err != nil {
		return event.SourceStatus{}, fmt.Errorf("get source: %w", err)
	}
	return status, nil
}

// TouchSource records the outcome of a crawl attempt for a source URL.
func (s *Store) TouchSource(ctx context.Context, status event.SourceStatus) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO url_sources (source_url, last_crawled_at, last_status)
		VALUES ($1, $2, $3)
		ON CONFLICT (source_url) DO UPDATE
		SET last_crawled_at = EXCLUDED.last_crawled_at,
			last_status = EXCLUDED.last_status;`,
		status.SourceURL, status.LastCrawledAt, string(status.LastStatus),
	)
	if err != nil {
		return fmt.Errorf("touch source: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
