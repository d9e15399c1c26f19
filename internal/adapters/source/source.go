// Package source provides the document stores the service reads from and
// writes to: a PostgreSQL-backed live store and an in-memory fixture.
package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/arryn/arryn/internal/domain/model"
)

// Kinds accepted by Open.
const (
	KindFixture = "fixture"
	KindLive    = "live"
)

// Facet fields.
const (
	FacetBrand    = "marca"
	FacetCategory = "categoria"
)

// DataSource stores scraped documents and answers filtered reads.
type DataSource interface {
	// Insert stores docs, ignoring ids that already exist, and returns how
	// many were new.
	Insert(ctx context.Context, docs []model.Document) (int, error)

	// Documents returns the documents matching q in insertion order.
	Documents(ctx context.Context, q Query) ([]model.Document, error)

	// Document returns one document or ErrNotFound.
	Document(ctx context.Context, id string) (model.Document, error)

	// Facets counts documents per distinct value of field, optionally within
	// a category. Ordered by count, then name.
	Facets(ctx context.Context, field, category string) ([]model.Facet, error)

	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Close()
}

// Query filters documents. Zero values mean "no filter".
type Query struct {
	Category      string
	Since         *model.Date
	Brands        []string
	MinPrice      *float64
	MaxPrice      *float64
	TitleContains string
	PricedOnly    bool
	Limit         int
}

// Match reports whether d satisfies q. Used by in-memory stores; the live
// store translates the same rules to SQL.
func (q Query) Match(d model.Document) bool {
	if q.Category != "" && d.Category != q.Category {
		return false
	}
	if q.PricedOnly && d.Price == nil {
		return false
	}
	if q.Since != nil && (d.ExtractedAt == nil || d.ExtractedAt.Before(*q.Since)) {
		return false
	}
	if len(q.Brands) > 0 && !containsFold(q.Brands, d.Brand) {
		return false
	}
	if q.MinPrice != nil && (d.Price == nil || *d.Price < *q.MinPrice) {
		return false
	}
	if q.MaxPrice != nil && (d.Price == nil || *d.Price > *q.MaxPrice) {
		return false
	}
	if q.TitleContains != "" && !strings.Contains(strings.ToLower(d.Title), strings.ToLower(q.TitleContains)) {
		return false
	}
	return true
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// Config selects and configures a data source.
type Config struct {
	Kind        string
	DatabaseURL string
	MaxConns    int
	FixturePath string
}

// Open builds the data source named by cfg.Kind. A live source that cannot
// connect returns an error; callers decide whether to fall back.
func Open(ctx context.Context, cfg Config) (DataSource, error) {
	switch strings.ToLower(cfg.Kind) {
	case KindFixture, "":
		return LoadFixture(cfg.FixturePath)
	case KindLive:
		return OpenLive(ctx, cfg.DatabaseURL, cfg.MaxConns)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}

func facetValue(field string, d model.Document) (string, error) {
	switch field {
	case FacetBrand:
		return d.Brand, nil
	case FacetCategory:
		return d.Category, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFacet, field)
	}
}
