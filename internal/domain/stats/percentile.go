package stats

import (
	"math"
	"sort"
)

// Percentile returns the p-th percentile of an ascending slice using linear
// interpolation between closest ranks. p is clamped to [0, 100]; an empty
// slice yields 0.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	p = math.Max(0, math.Min(100, p))
	k := float64(n-1) * p / 100
	f, c := math.Floor(k), math.Ceil(k)
	if f == c {
		return sorted[int(k)]
	}
	return sorted[int(f)]*(c-k) + sorted[int(c)]*(k-f)
}

// Percentiles holds the quartile-style cut points of a price set.
type Percentiles struct {
	P25 float64 `json:"p25"`
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P90 float64 `json:"p90"`
}

// Distribution counts prices per range bucket.
type Distribution struct {
	Economical int `json:"economical"`
	Medium     int `json:"medium"`
	Premium    int `json:"premium"`
}

// Recommendations are the pricing hints derived from the distribution.
type Recommendations struct {
	CompetitivePrice    float64 `json:"competitive_price"`
	AcceptablePremium   float64 `json:"acceptable_premium_price"`
	DiscountOpportunity float64 `json:"discount_opportunity"`
}

// PriceAnalysis describes the price distribution of a category.
type PriceAnalysis struct {
	Count           int             `json:"count"`
	Average         float64         `json:"average"`
	Min             float64         `json:"min"`
	Max             float64         `json:"max"`
	Range           float64         `json:"range"`
	Percentiles     Percentiles     `json:"percentiles"`
	Distribution    Distribution    `json:"distribution"`
	Recommendations Recommendations `json:"recommendations"`
}

// AnalyzePrices builds the distribution report of prices. The input is not
// modified. An empty input returns ErrNoData.
func AnalyzePrices(prices []float64) (PriceAnalysis, error) {
	if len(prices) == 0 {
		return PriceAnalysis{}, ErrNoData
	}
	sorted := append([]float64(nil), prices...)
	sort.Float64s(sorted)

	avg := Mean(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	p25 := Percentile(sorted, 25)
	p33 := Percentile(sorted, 33)
	p66 := Percentile(sorted, 66)
	p75 := Percentile(sorted, 75)

	var dist Distribution
	for _, v := range sorted {
		switch {
		case v <= p33:
			dist.Economical++
		case v <= p66:
			dist.Medium++
		default:
			dist.Premium++
		}
	}

	return PriceAnalysis{
		Count:   len(sorted),
		Average: Round(avg, 2),
		Min:     lo,
		Max:     hi,
		Range:   Round(hi-lo, 2),
		Percentiles: Percentiles{
			P25: Round(p25, 2),
			P50: Round(Percentile(sorted, 50), 2),
			P75: Round(p75, 2),
			P90: Round(Percentile(sorted, 90), 2),
		},
		Distribution: dist,
		Recommendations: Recommendations{
			CompetitivePrice:    Round(p25, 2),
			AcceptablePremium:   Round(p75, 2),
			DiscountOpportunity: Round(avg*0.8, 2),
		},
	}, nil
}
