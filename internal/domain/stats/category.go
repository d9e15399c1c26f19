package stats

import "github.com/arryn/arryn/internal/domain/model"

// CategoryStats computes min, max and average price per category over the
// whole population.
func CategoryStats(offers []model.Offer) map[string]model.CategoryPriceStats {
	sums := make(map[string]float64)
	out := make(map[string]model.CategoryPriceStats)
	for _, o := range offers {
		s, seen := out[o.Category]
		if !seen {
			s.Min, s.Max = o.Price, o.Price
		}
		if o.Price < s.Min {
			s.Min = o.Price
		}
		if o.Price > s.Max {
			s.Max = o.Price
		}
		s.Count++
		sums[o.Category] += o.Price
		out[o.Category] = s
	}
	for cat, s := range out {
		s.Avg = sums[cat] / float64(s.Count)
		out[cat] = s
	}
	return out
}
