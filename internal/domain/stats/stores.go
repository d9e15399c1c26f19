package stats

import (
	"sort"

	"github.com/arryn/arryn/internal/domain/model"
)

// StoreSummary aggregates the offers of one source.
type StoreSummary struct {
	Source        string     `json:"source"`
	TotalOffers   int        `json:"total_offers"`
	AvgPrice      float64    `json:"avg_price"`
	MinPrice      float64    `json:"min_price"`
	MaxPrice      float64    `json:"max_price"`
	PriceRange    float64    `json:"price_range"`
	Categories    []string   `json:"categories"`
	Brands        []string   `json:"brands"`
	CategoryCount int        `json:"total_categories"`
	BrandCount    int        `json:"total_brands"`
	LastUpdated   model.Date `json:"last_updated"`
}

// StoreRankings names the leading store under each criterion.
type StoreRankings struct {
	BestAveragePrice    *StoreSummary `json:"best_average_price"`
	WidestAssortment    *StoreSummary `json:"widest_assortment"`
	MostRecentlyUpdated *StoreSummary `json:"most_recently_updated"`
}

// StoreComparison is the cross-store report.
type StoreComparison struct {
	TotalStores       int            `json:"total_stores"`
	TotalOffers       int            `json:"total_offers"`
	AvgOffersPerStore float64        `json:"avg_offers_per_store"`
	Rankings          StoreRankings  `json:"rankings"`
	Stores            []StoreSummary `json:"stores"`
}

// GroupBySource aggregates offers per source, most offers first. Ties are
// ordered by source name.
func GroupBySource(offers []model.Offer) []StoreSummary {
	type acc struct {
		summary    StoreSummary
		sum        float64
		categories map[string]struct{}
		brands     map[string]struct{}
	}
	groups := make(map[string]*acc)
	for _, o := range offers {
		g, ok := groups[o.Source]
		if !ok {
			g = &acc{
				summary:    StoreSummary{Source: o.Source, MinPrice: o.Price, MaxPrice: o.Price, LastUpdated: o.ExtractedAt},
				categories: make(map[string]struct{}),
				brands:     make(map[string]struct{}),
			}
			groups[o.Source] = g
		}
		s := &g.summary
		s.TotalOffers++
		g.sum += o.Price
		if o.Price < s.MinPrice {
			s.MinPrice = o.Price
		}
		if o.Price > s.MaxPrice {
			s.MaxPrice = o.Price
		}
		if o.ExtractedAt.After(s.LastUpdated) {
			s.LastUpdated = o.ExtractedAt
		}
		g.categories[o.Category] = struct{}{}
		g.brands[o.Brand] = struct{}{}
	}

	out := make([]StoreSummary, 0, len(groups))
	for _, g := range groups {
		s := g.summary
		s.AvgPrice = Round(g.sum/float64(s.TotalOffers), 2)
		s.PriceRange = Round(s.MaxPrice-s.MinPrice, 2)
		s.Categories = sortedKeys(g.categories)
		s.Brands = sortedKeys(g.brands)
		s.CategoryCount = len(s.Categories)
		s.BrandCount = len(s.Brands)
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalOffers != out[j].TotalOffers {
			return out[i].TotalOffers > out[j].TotalOffers
		}
		return out[i].Source < out[j].Source
	})
	return out
}

// CompareStores summarizes grouped stores and picks the leaders. An empty
// input yields zero totals and no rankings.
func CompareStores(stores []StoreSummary) StoreComparison {
	cmp := StoreComparison{Stores: stores, TotalStores: len(stores)}
	if len(stores) == 0 {
		cmp.Stores = []StoreSummary{}
		return cmp
	}
	for _, s := range stores {
		cmp.TotalOffers += s.TotalOffers
	}
	cmp.AvgOffersPerStore = Round(float64(cmp.TotalOffers)/float64(len(stores)), 2)

	cmp.Rankings.BestAveragePrice = pick(stores, func(a, b StoreSummary) bool {
		if a.AvgPrice != b.AvgPrice {
			return a.AvgPrice < b.AvgPrice
		}
		if a.TotalOffers != b.TotalOffers {
			return a.TotalOffers > b.TotalOffers
		}
		return a.Source < b.Source
	})
	cmp.Rankings.WidestAssortment = pick(stores, func(a, b StoreSummary) bool {
		if a.TotalOffers != b.TotalOffers {
			return a.TotalOffers > b.TotalOffers
		}
		if a.AvgPrice != b.AvgPrice {
			return a.AvgPrice < b.AvgPrice
		}
		return a.Source < b.Source
	})
	cmp.Rankings.MostRecentlyUpdated = pick(stores, func(a, b StoreSummary) bool {
		if !a.LastUpdated.Time().Equal(b.LastUpdated.Time()) {
			return a.LastUpdated.After(b.LastUpdated)
		}
		if a.TotalOffers != b.TotalOffers {
			return a.TotalOffers > b.TotalOffers
		}
		return a.Source < b.Source
	})
	return cmp
}

// pick returns a copy of the store that sorts first under better.
func pick(stores []StoreSummary, better func(a, b StoreSummary) bool) *StoreSummary {
	best := stores[0]
	for _, s := range stores[1:] {
		if better(s, best) {
			best = s
		}
	}
	return &best
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
