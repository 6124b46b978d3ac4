package sink

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octobees/placeharvest/internal/entity"
)

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresSink upserts records into a Postgres table keyed by place_id.
type PostgresSink struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresSink opens a pgx pool for the given DSN and verifies
// connectivity. The table name must be a plain identifier since it is
// interpolated into statements.
func NewPostgresSink(ctx context.Context, dsn, table string) (*PostgresSink, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}

	cfg.MaxConnLifetime = 1 * time.Hour
	cfg.MaxConnIdleTime = 15 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresSink{pool: pool, table: table}, nil
}

// Name identifies the sink in failure reports.
func (s *PostgresSink) Name() string {
	return "postgres:" + s.table
}

// Write upserts every record in one batch round-trip.
func (s *PostgresSink) Write(ctx context.Context, records []entity.BusinessRecord) error {
	if len(records) == 0 {
		return nil
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (place_id, run_id, name, address, phone, website, email, rating, reviews, types, scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (place_id) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			name = EXCLUDED.name,
			address = EXCLUDED.address,
			phone = EXCLUDED.phone,
			website = EXCLUDED.website,
			email = EXCLUDED.email,
			rating = EXCLUDED.rating,
			reviews = EXCLUDED.reviews,
			types = EXCLUDED.types,
			scraped_at = EXCLUDED.scraped_at`, s.table)

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(stmt,
			r.PlaceID, r.RunID, r.Name, r.Address, r.Phone, r.Website, r.Email,
			r.Rating, r.Reviews, strings.Join(r.Types, ","), r.ScrapedAt)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert record: %w", err)
		}
	}
	return results.Close()
}

// Close releases the connection pool.
func (s *PostgresSink) Close() {
	s.pool.Close()
}

var _ Sink = (*PostgresSink)(nil)
