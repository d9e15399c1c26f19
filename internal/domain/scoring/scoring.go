// Package scoring ranks offers by value and detects trending products.
// It is pure computation over an in-memory snapshot and safe for
// concurrent use.
package scoring

import (
	"sort"
	"time"

	"github.com/arryn/arryn/internal/domain/model"
	"github.com/arryn/arryn/internal/domain/stats"
)

// Score weights and constants.
const (
	priceWeight     = 0.6
	freshnessWeight = 0.4
	flatPriceScore  = 0.5
	freshWithinDays = 1.0
	freshnessDecay  = 0.1

	trendCountWeight  = 0.4
	trendSourceWeight = 0.3
	trendPriceNumer   = 1000.0
)

// Ranker computes value rankings, trending groups and best prices.
type Ranker struct {
	now func() time.Time
}

// New creates a Ranker using the wall clock unless WithClock is given.
func New(opts ...Option) *Ranker {
	r := &Ranker{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Freshness scores how recent an extraction date is: 1 within a day, then
// decaying as 1/(1+0.1*age).
func Freshness(extracted model.Date, now time.Time) float64 {
	age := extracted.AgeDays(now)
	if age <= freshWithinDays {
		return 1.0
	}
	return 1 / (1 + freshnessDecay*age)
}

// PriceScore places price within [min, max]: 1 for the cheapest, 0 for the
// most expensive. A flat category scores 0.5.
func PriceScore(price float64, s model.CategoryPriceStats) float64 {
	if s.Max > s.Min {
		return (s.Max - price) / (s.Max - s.Min)
	}
	return flatPriceScore
}

// RankOffers scores the offers of category (all when empty) against their
// category population and returns the best limit of them. The population
// supplies the category statistics; it is not modified.
func (r *Ranker) RankOffers(population []model.Offer, category string, limit int) []model.ScoredOffer {
	if limit < 1 {
		return []model.ScoredOffer{}
	}
	now := r.now()
	catStats := stats.CategoryStats(population)

	type scored struct {
		model.ScoredOffer
		raw float64
	}
	candidates := make([]scored, 0, len(population))
	for _, o := range population {
		if category != "" && o.Category != category {
			continue
		}
		cs := catStats[o.Category]
		ps := PriceScore(o.Price, cs)
		fs := Freshness(o.ExtractedAt, now)
		total := priceWeight*ps + freshnessWeight*fs
		candidates = append(candidates, scored{
			ScoredOffer: model.ScoredOffer{
				Offer:            o,
				ScorePrice:       stats.Round(ps, 3),
				ScoreFreshness:   stats.Round(fs, 3),
				ScoreTotal:       stats.Round(total, 3),
				SavingsVsAverage: stats.Round(cs.Avg-o.Price, 2),
				PricePercentile:  stats.Round((1-ps)*100, 1),
			},
			raw: total,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].raw > candidates[j].raw
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]model.ScoredOffer, len(candidates))
	for i, c := range candidates {
		out[i] = c.ScoredOffer
	}
	return out
}

type trendAcc struct {
	rep     model.Offer
	count   int
	min     float64
	sum     float64
	sources map[string]struct{}
}

// TrendingOffers groups the window by product (case-insensitive title, exact
// brand) and ranks groups by 0.4*count + 0.3*sources + 1000/min_price.
// A zero minimum price contributes nothing to the score.
func (r *Ranker) TrendingOffers(window []model.Offer, limit int) []model.TrendGroup {
	if limit < 1 {
		return []model.TrendGroup{}
	}
	index := make(map[string]int)
	var groups []*trendAcc
	for _, o := range window {
		key := o.TrendKey()
		i, ok := index[key]
		if !ok {
			index[key] = len(groups)
			groups = append(groups, &trendAcc{
				rep:     o,
				min:     o.Price,
				sources: make(map[string]struct{}),
			})
			i = len(groups) - 1
		}
		g := groups[i]
		g.count++
		g.sum += o.Price
		g.min = min(g.min, o.Price)
		g.sources[o.Source] = struct{}{}
		if !o.ExtractedAt.Before(g.rep.ExtractedAt) {
			g.rep = o
		}
	}

	type ranked struct {
		model.TrendGroup
		raw float64
	}
	out := make([]ranked, 0, len(groups))
	for _, g := range groups {
		score := trendCountWeight*float64(g.count) + trendSourceWeight*float64(len(g.sources))
		if g.min > 0 {
			score += trendPriceNumer / g.min
		}
		out = append(out, ranked{
			TrendGroup: model.TrendGroup{
				Offer:               g.rep,
				TrendingScore:       stats.Round(score, 2),
				Apparitions:         g.count,
				DistinctSourceCount: len(g.sources),
				MinPriceFound:       g.min,
				AvgPriceFound:       stats.Round(g.sum/float64(g.count), 2),
			},
			raw: score,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].raw > out[j].raw })
	if len(out) > limit {
		out = out[:limit]
	}
	result := make([]model.TrendGroup, len(out))
	for i, g := range out {
		result[i] = g.TrendGroup
	}
	return result
}

// BestPrices returns the cheapest limit offers annotated with how much they
// save against their category average over offers.
func (r *Ranker) BestPrices(offers []model.Offer, limit int) []model.PricedOffer {
	if limit < 1 {
		return []model.PricedOffer{}
	}
	catStats := stats.CategoryStats(offers)
	sorted := append([]model.Offer(nil), offers...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Price < sorted[j].Price })
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	out := make([]model.PricedOffer, len(sorted))
	for i, o := range sorted {
		out[i] = model.PricedOffer{
			Offer:            o,
			EstimatedSavings: stats.Round(catStats[o.Category].Avg-o.Price, 2),
		}
	}
	return out
}
