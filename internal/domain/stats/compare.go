package stats

import (
	"sort"

	"github.com/arryn/arryn/internal/domain/model"
)

// StorePrices lists what one source charges for a product.
type StorePrices struct {
	Source   string        `json:"source"`
	MinPrice float64       `json:"min_price"`
	MaxPrice float64       `json:"max_price"`
	AvgPrice float64       `json:"avg_price"`
	Count    int           `json:"count"`
	Products []model.Offer `json:"products"`
}

// PriceComparison compares a product across sources, cheapest first.
type PriceComparison struct {
	Query       string        `json:"query"`
	TotalStores int           `json:"total_stores"`
	MinPrice    float64       `json:"min_price"`
	MaxPrice    float64       `json:"max_price"`
	AvgPrice    float64       `json:"avg_price"`
	PriceSpread float64       `json:"price_spread"`
	BestDeal    *StorePrices  `json:"best_deal"`
	Stores      []StorePrices `json:"stores"`
}

// ComparePrices groups matching offers by source. The caller is expected to
// have filtered offers by query already. No offers returns ErrNoData.
func ComparePrices(query string, offers []model.Offer) (PriceComparison, error) {
	if len(offers) == 0 {
		return PriceComparison{}, ErrNoData
	}

	index := make(map[string]int)
	var stores []StorePrices
	sums := make(map[string]float64)
	var total float64
	lo, hi := offers[0].Price, offers[0].Price
	for _, o := range offers {
		i, ok := index[o.Source]
		if !ok {
			i = len(stores)
			index[o.Source] = i
			stores = append(stores, StorePrices{Source: o.Source, MinPrice: o.Price, MaxPrice: o.Price})
		}
		s := &stores[i]
		s.Count++
		s.Products = append(s.Products, o)
		s.MinPrice = min(s.MinPrice, o.Price)
		s.MaxPrice = max(s.MaxPrice, o.Price)
		sums[o.Source] += o.Price
		total += o.Price
		lo = min(lo, o.Price)
		hi = max(hi, o.Price)
	}
	for i := range stores {
		stores[i].AvgPrice = Round(sums[stores[i].Source]/float64(stores[i].Count), 2)
	}
	sort.SliceStable(stores, func(i, j int) bool {
		if stores[i].MinPrice != stores[j].MinPrice {
			return stores[i].MinPrice < stores[j].MinPrice
		}
		return stores[i].Source < stores[j].Source
	})

	best := stores[0]
	return PriceComparison{
		Query:       query,
		TotalStores: len(stores),
		MinPrice:    lo,
		MaxPrice:    hi,
		AvgPrice:    Round(total/float64(len(offers)), 2),
		PriceSpread: Round(hi-lo, 2),
		BestDeal:    &best,
		Stores:      stores,
	}, nil
}
