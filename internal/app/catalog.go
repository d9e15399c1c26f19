package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/arryn/arryn/internal/adapters/source"
	"github.com/arryn/arryn/internal/domain/ingest"
	"github.com/arryn/arryn/internal/domain/model"
)

// DocumentDetails is a document's detalles text parsed into fields.
type DocumentDetails struct {
	ID      string            `json:"_id"`
	Title   string            `json:"titulo"`
	Source  string            `json:"fuente"`
	Details map[string]string `json:"detalles"`
}

func detailsOf(d model.Document) DocumentDetails {
	return DocumentDetails{
		ID:      d.ID,
		Title:   d.Title,
		Source:  d.Source,
		Details: ingest.ParseDetails(d.Details),
	}
}

// ListDocuments returns up to limit stored documents in insertion order.
func (s *Service) ListDocuments(ctx context.Context, limit int) ([]model.Document, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be at least 1", ErrBadRequest)
	}
	return s.documents(ctx, "documents", source.Query{Limit: limit})
}

// Document returns one stored document. Unknown ids yield source.ErrNotFound.
func (s *Service) Document(ctx context.Context, id string) (model.Document, error) {
	if strings.TrimSpace(id) == "" {
		return model.Document{}, fmt.Errorf("%w: empty id", ErrBadRequest)
	}
	d, err := s.source.Document(ctx, id)
	if err != nil && !errors.Is(err, source.ErrNotFound) {
		return model.Document{}, fmt.Errorf("document %s: %w", id, err)
	}
	return d, err
}

// Details returns the parsed detalles of one document.
func (s *Service) Details(ctx context.Context, id string) (DocumentDetails, error) {
	d, err := s.Document(ctx, id)
	if err != nil {
		return DocumentDetails{}, err
	}
	return detailsOf(d), nil
}

// AllDetails returns the parsed detalles of up to limit documents.
func (s *Service) AllDetails(ctx context.Context, limit int) ([]DocumentDetails, error) {
	docs, err := s.ListDocuments(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]DocumentDetails, len(docs))
	for i, d := range docs {
		out[i] = detailsOf(d)
	}
	return out, nil
}

// Brands counts documents per brand, optionally within a category.
func (s *Service) Brands(ctx context.Context, category string) ([]model.Facet, error) {
	return s.facets(ctx, source.FacetBrand, category)
}

// Categories counts documents per category.
func (s *Service) Categories(ctx context.Context) ([]model.Facet, error) {
	return s.facets(ctx, source.FacetCategory, "")
}

func (s *Service) facets(ctx context.Context, field, category string) ([]model.Facet, error) {
	facets, err := s.source.Facets(ctx, field, category)
	if err != nil {
		return nil, fmt.Errorf("facets %s: %w", field, err)
	}
	return facets, nil
}

// OffersByCategory returns the priced offers of category, cheapest first.
func (s *Service) OffersByCategory(ctx context.Context, category string, limit int) ([]model.Offer, error) {
	if category == "" {
		return nil, fmt.Errorf("%w: category is required", ErrBadRequest)
	}
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be at least 1", ErrBadRequest)
	}
	offers, err := s.offers(ctx, "offers_by_category", source.Query{Category: category})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(offers, func(i, j int) bool { return offers[i].Price < offers[j].Price })
	if len(offers) > limit {
		offers = offers[:limit]
	}
	return offers, nil
}
