package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arryn/arryn/internal/domain/model"
)

const (
	defaultMaxConns = 4
	connectTimeout  = 5 * time.Second
)

// Live is a PostgreSQL-backed DataSource.
type Live struct {
	pool *pgxpool.Pool
}

// OpenLive connects to dsn, verifies the connection and applies the schema.
func OpenLive(ctx context.Context, dsn string, maxConns int) (*Live, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: database_url is empty", ErrInvalidConfig)
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	cfg.MaxConns = int32(maxConns) //nolint:gosec // bounded by config validation

	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(cctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err := pool.Ping(cctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	l := &Live{pool: pool}
	if err := l.migrate(cctx); err != nil {
		pool.Close()
		return nil, err
	}
	return l, nil
}

func (l *Live) migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := l.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (l *Live) Insert(ctx context.Context, docs []model.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	b := &pgx.Batch{}
	for i := range docs {
		d := &docs[i]
		var day any
		if d.ExtractedAt != nil {
			day = d.ExtractedAt.Time()
		}
		b.Queue(insertSQL,
			d.ID, d.Title, d.Brand, d.PriceText, d.Price, d.Currency,
			d.Category, d.Image, d.Link, d.Source, day, d.Details,
		)
	}

	br := l.pool.SendBatch(ctx, b)
	total := 0
	for range docs {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return total, fmt.Errorf("insert: %w", err)
		}
		total += int(tag.RowsAffected())
	}
	if err := br.Close(); err != nil {
		return total, fmt.Errorf("insert: %w", err)
	}
	return total, nil
}

func (l *Live) Documents(ctx context.Context, q Query) ([]model.Document, error) {
	sql, args := buildDocumentsQuery(q)
	rows, err := l.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	out := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	return out, nil
}

func (l *Live) Document(ctx context.Context, id string) (model.Document, error) {
	d, err := scanDocument(l.pool.QueryRow(ctx, selectByIDSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return d, err
}

func (l *Live) Facets(ctx context.Context, field, category string) ([]model.Facet, error) {
	sql, args, err := buildFacetQuery(field, category)
	if err != nil {
		return nil, err
	}
	rows, err := l.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query facets: %w", err)
	}
	defer rows.Close()

	out := make([]model.Facet, 0)
	for rows.Next() {
		var f model.Facet
		if err := rows.Scan(&f.Name, &f.Count); err != nil {
			return nil, fmt.Errorf("scan facet: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (l *Live) Count(ctx context.Context) (int, error) {
	var n int
	if err := l.pool.QueryRow(ctx, countSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

func (l *Live) Ping(ctx context.Context) error { return l.pool.Ping(ctx) }

func (l *Live) Close() { l.pool.Close() }

func scanDocument(row pgx.Row) (model.Document, error) {
	var (
		d   model.Document
		day *time.Time
	)
	err := row.Scan(&d.ID, &d.Title, &d.Brand, &d.PriceText, &d.Price, &d.Currency,
		&d.Category, &d.Image, &d.Link, &d.Source, &day, &d.Details)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return d, err
		}
		return d, fmt.Errorf("scan document: %w", err)
	}
	if day != nil {
		date := model.DateOf(*day)
		d.ExtractedAt = &date
	}
	return d, nil
}
