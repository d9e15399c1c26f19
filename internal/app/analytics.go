package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/arryn/arryn/internal/adapters/source"
	"github.com/arryn/arryn/internal/domain/model"
	"github.com/arryn/arryn/internal/domain/stats"
)

// Period is the trailing window a report covers.
type Period struct {
	Start model.Date `json:"start"`
	End   model.Date `json:"end"`
	Days  int        `json:"days"`
}

// StoreReport is the store comparison over a period.
type StoreReport struct {
	Period   Period `json:"period"`
	Category string `json:"category,omitempty"`
	stats.StoreComparison
	GeneratedAt time.Time `json:"generated_at"`
}

// PriceReport is the price distribution of a category over a period.
type PriceReport struct {
	Period      Period              `json:"period"`
	Category    string              `json:"category"`
	Analysis    stats.PriceAnalysis `json:"analysis"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// BestPriceFilter narrows BestPrices.
type BestPriceFilter struct {
	Brands   []string
	MinPrice *float64
	MaxPrice *float64
}

// period returns the window of the last days days ending today.
func (s *Service) period(days int) (Period, error) {
	if days < 1 {
		return Period{}, fmt.Errorf("%w: days must be at least 1", ErrBadRequest)
	}
	end := model.DateOf(s.now())
	return Period{Start: end.AddDays(-days), End: end, Days: days}, nil
}

// RankOffers scores every priced offer against its category and returns the
// best limit, optionally restricted to one category.
func (s *Service) RankOffers(ctx context.Context, category string, limit int) ([]model.ScoredOffer, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be at least 1", ErrBadRequest)
	}
	offers, err := s.offers(ctx, "rank_offers", source.Query{Category: category})
	if err != nil {
		return nil, err
	}
	defer s.observeEngine("rank_offers", time.Now())
	return s.ranker.RankOffers(offers, category, limit), nil
}

// TrendingOffers groups the offers seen in the last days days and returns the
// limit most trending groups.
func (s *Service) TrendingOffers(ctx context.Context, days, limit int) ([]model.TrendGroup, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be at least 1", ErrBadRequest)
	}
	p, err := s.period(days)
	if err != nil {
		return nil, err
	}
	offers, err := s.offers(ctx, "trending_offers", source.Query{Since: &p.Start})
	if err != nil {
		return nil, err
	}
	defer s.observeEngine("trending_offers", time.Now())
	return s.ranker.TrendingOffers(offers, limit), nil
}

// BestPrices returns the cheapest offers of category that pass f, with their
// savings against the filtered category average.
func (s *Service) BestPrices(ctx context.Context, category string, f BestPriceFilter, limit int) ([]model.PricedOffer, error) {
	if category == "" {
		return nil, fmt.Errorf("%w: category is required", ErrBadRequest)
	}
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be at least 1", ErrBadRequest)
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return nil, fmt.Errorf("%w: min_price is greater than max_price", ErrBadRequest)
	}
	offers, err := s.offers(ctx, "best_prices", source.Query{
		Category: category,
		Brands:   f.Brands,
		MinPrice: f.MinPrice,
		MaxPrice: f.MaxPrice,
	})
	if err != nil {
		return nil, err
	}
	defer s.observeEngine("best_prices", time.Now())
	return s.ranker.BestPrices(offers, limit), nil
}

// PriceComparison compares the offers whose title contains query across
// stores. No matching offer yields stats.ErrNoData.
func (s *Service) PriceComparison(ctx context.Context, query string) (stats.PriceComparison, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return stats.PriceComparison{}, fmt.Errorf("%w: q is required", ErrBadRequest)
	}
	offers, err := s.offers(ctx, "price_comparison", source.Query{TitleContains: query})
	if err != nil {
		return stats.PriceComparison{}, err
	}
	defer s.observeEngine("price_comparison", time.Now())
	return stats.ComparePrices(query, offers)
}

// StoreReport compares stores over the last days days.
func (s *Service) StoreReport(ctx context.Context, category string, days int) (StoreReport, error) {
	p, err := s.period(days)
	if err != nil {
		return StoreReport{}, err
	}
	offers, err := s.offers(ctx, "store_report", source.Query{Category: category, Since: &p.Start})
	if err != nil {
		return StoreReport{}, err
	}
	defer s.observeEngine("store_report", time.Now())
	return StoreReport{
		Period:          p,
		Category:        category,
		StoreComparison: stats.CompareStores(stats.GroupBySource(offers)),
		GeneratedAt:     s.now().UTC(),
	}, nil
}

// PriceReport analyses the prices of category over the last days days.
// A category without offers in the period yields stats.ErrNoData.
func (s *Service) PriceReport(ctx context.Context, category string, days int) (PriceReport, error) {
	if category == "" {
		return PriceReport{}, fmt.Errorf("%w: category is required", ErrBadRequest)
	}
	p, err := s.period(days)
	if err != nil {
		return PriceReport{}, err
	}
	offers, err := s.offers(ctx, "price_report", source.Query{Category: category, Since: &p.Start})
	if err != nil {
		return PriceReport{}, err
	}
	defer s.observeEngine("price_report", time.Now())
	prices := make([]float64, len(offers))
	for i, o := range offers {
		prices[i] = o.Price
	}
	analysis, err := stats.AnalyzePrices(prices)
	if err != nil {
		return PriceReport{}, fmt.Errorf("category %q: %w", category, err)
	}
	return PriceReport{
		Period:      p,
		Category:    category,
		Analysis:    analysis,
		GeneratedAt: s.now().UTC(),
	}, nil
}
