package stats

import (
	"errors"
	"testing"

	"github.com/arryn/arryn/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func offer(source, category, brand string, price float64, day int) model.Offer {
	return model.Offer{
		Title:       "item",
		Brand:       brand,
		Price:       price,
		Category:    category,
		Source:      source,
		ExtractedAt: model.NewDate(2025, 9, day),
	}
}

func TestPercentile(t *testing.T) {
	Convey("Given a sorted price list", t, func() {
		prices := []float64{50, 70, 90, 110}

		Convey("When asking for the endpoints", func() {
			Convey("Then p0 is the minimum and p100 the maximum", func() {
				So(Percentile(prices, 0), ShouldEqual, 50)
				So(Percentile(prices, 100), ShouldEqual, 110)
			})
		})

		Convey("When asking for interior percentiles", func() {
			Convey("Then values are interpolated", func() {
				So(Percentile(prices, 50), ShouldEqual, 80)
				So(Percentile(prices, 25), ShouldEqual, 65)
				So(Percentile(prices, 75), ShouldEqual, 95)
			})
		})

		Convey("When p is out of range", func() {
			Convey("Then it is clamped", func() {
				So(Percentile(prices, -10), ShouldEqual, 50)
				So(Percentile(prices, 250), ShouldEqual, 110)
			})
		})

		Convey("When the list is empty or single", func() {
			Convey("Then 0 or the single value is returned", func() {
				So(Percentile(nil, 50), ShouldEqual, 0)
				So(Percentile([]float64{42}, 90), ShouldEqual, 42)
			})
		})
	})
}

func TestAnalyzePrices(t *testing.T) {
	Convey("Given category prices", t, func() {
		Convey("When analyzing four prices", func() {
			input := []float64{110, 50, 90, 70}
			a, err := AnalyzePrices(input)

			Convey("Then the report matches the distribution", func() {
				So(err, ShouldBeNil)
				So(a.Count, ShouldEqual, 4)
				So(a.Average, ShouldEqual, 80)
				So(a.Min, ShouldEqual, 50)
				So(a.Max, ShouldEqual, 110)
				So(a.Range, ShouldEqual, 60)
				So(a.Percentiles.P50, ShouldEqual, 80)
				So(a.Percentiles.P90, ShouldEqual, 104)
				So(a.Distribution, ShouldResemble, Distribution{Economical: 1, Medium: 1, Premium: 2})
				So(a.Recommendations.CompetitivePrice, ShouldEqual, 65)
				So(a.Recommendations.AcceptablePremium, ShouldEqual, 95)
				So(a.Recommendations.DiscountOpportunity, ShouldEqual, 64)
			})

			Convey("And the input is left unsorted", func() {
				So(input, ShouldResemble, []float64{110, 50, 90, 70})
			})
		})

		Convey("When the buckets are counted for any input", func() {
			a, _ := AnalyzePrices([]float64{5, 5, 5, 7, 9, 11, 13, 100, 2})
			d := a.Distribution

			Convey("Then they sum to the count", func() {
				So(d.Economical+d.Medium+d.Premium, ShouldEqual, a.Count)
			})
		})

		Convey("When there are no prices", func() {
			_, err := AnalyzePrices(nil)

			Convey("Then ErrNoData is returned", func() {
				So(errors.Is(err, ErrNoData), ShouldBeTrue)
			})
		})
	})
}

func TestRound(t *testing.T) {
	Convey("Given values to round", t, func() {
		So(Round(0.95781, 3), ShouldEqual, 0.958)
		So(Round(0.81234, 3), ShouldEqual, 0.812)
		So(Round(15.6789, 2), ShouldEqual, 15.68)
		So(Round(24.987, 1), ShouldEqual, 25.0)
		So(Round(98.7654, 2), ShouldEqual, 98.77)
		So(Mean(nil), ShouldEqual, 0)
	})
}

func TestCategoryStats(t *testing.T) {
	Convey("Given offers in two categories", t, func() {
		offers := []model.Offer{
			offer("a", "audio", "X", 10, 1),
			offer("b", "audio", "X", 30, 1),
			offer("a", "video", "Y", 7, 1),
		}

		Convey("When computing category stats", func() {
			s := CategoryStats(offers)

			Convey("Then each category has its own min, max and average", func() {
				So(s["audio"], ShouldResemble, model.CategoryPriceStats{Count: 2, Min: 10, Max: 30, Avg: 20})
				So(s["video"], ShouldResemble, model.CategoryPriceStats{Count: 1, Min: 7, Max: 7, Avg: 7})
			})
		})
	})
}

func TestStores(t *testing.T) {
	Convey("Given offers from several sources", t, func() {
		offers := []model.Offer{
			offer("store_b", "electronics", "ADIDAS", 80, 21),
			offer("store_a", "electronics", "NIKE", 50, 20),
			offer("store_b", "fitness", "PUMA", 220, 19),
			offer("store_a", "electronics", "NIKE", 120, 18),
			offer("store_b", "electronics", "PUMA", 150, 21),
		}

		Convey("When grouping by source", func() {
			groups := GroupBySource(offers)

			Convey("Then stores are ordered by count with aggregates", func() {
				So(len(groups), ShouldEqual, 2)
				b := groups[0]
				So(b.Source, ShouldEqual, "store_b")
				So(b.TotalOffers, ShouldEqual, 3)
				So(b.AvgPrice, ShouldEqual, 150)
				So(b.PriceRange, ShouldEqual, 140)
				So(b.Categories, ShouldResemble, []string{"electronics", "fitness"})
				So(b.BrandCount, ShouldEqual, 2)
				So(b.LastUpdated.String(), ShouldEqual, "2025-09-21")
				So(groups[1].AvgPrice, ShouldEqual, 85)
			})
		})

		Convey("When comparing aggregated stores", func() {
			stores := []StoreSummary{
				{Source: "store_a", TotalOffers: 10, AvgPrice: 90.5, LastUpdated: model.NewDate(2025, 9, 20)},
				{Source: "store_b", TotalOffers: 20, AvgPrice: 150, LastUpdated: model.NewDate(2025, 9, 21)},
			}
			cmp := CompareStores(stores)

			Convey("Then totals and leaders are computed", func() {
				So(cmp.TotalOffers, ShouldEqual, 30)
				So(cmp.TotalStores, ShouldEqual, 2)
				So(cmp.AvgOffersPerStore, ShouldEqual, 15.0)
				So(cmp.Rankings.BestAveragePrice.Source, ShouldEqual, "store_a")
				So(cmp.Rankings.WidestAssortment.Source, ShouldEqual, "store_b")
				So(cmp.Rankings.MostRecentlyUpdated.Source, ShouldEqual, "store_b")
			})
		})

		Convey("When stores tie on every criterion", func() {
			day := model.NewDate(2025, 9, 1)
			stores := []StoreSummary{
				{Source: "zeta", TotalOffers: 5, AvgPrice: 10, LastUpdated: day},
				{Source: "alpha", TotalOffers: 5, AvgPrice: 10, LastUpdated: day},
			}
			cmp := CompareStores(stores)

			Convey("Then the source name breaks the tie", func() {
				So(cmp.Rankings.BestAveragePrice.Source, ShouldEqual, "alpha")
				So(cmp.Rankings.WidestAssortment.Source, ShouldEqual, "alpha")
				So(cmp.Rankings.MostRecentlyUpdated.Source, ShouldEqual, "alpha")
			})
		})

		Convey("When there are no stores", func() {
			cmp := CompareStores(nil)

			Convey("Then totals are zero and there are no leaders", func() {
				So(cmp.TotalOffers, ShouldEqual, 0)
				So(cmp.AvgOffersPerStore, ShouldEqual, 0)
				So(cmp.Rankings.BestAveragePrice, ShouldBeNil)
				So(cmp.Stores, ShouldBeEmpty)
			})
		})
	})
}

func TestComparePrices(t *testing.T) {
	Convey("Given offers for one product", t, func() {
		offers := []model.Offer{
			offer("store_b", "audio", "X", 120, 1),
			offer("store_a", "audio", "X", 100, 1),
			offer("store_b", "audio", "X", 90, 2),
			offer("store_c", "audio", "X", 140, 2),
		}

		Convey("When comparing prices", func() {
			cmp, err := ComparePrices("item", offers)

			Convey("Then stores are ordered by their cheapest listing", func() {
				So(err, ShouldBeNil)
				So(cmp.TotalStores, ShouldEqual, 3)
				So(cmp.Stores[0].Source, ShouldEqual, "store_b")
				So(cmp.Stores[0].Count, ShouldEqual, 2)
				So(cmp.Stores[0].AvgPrice, ShouldEqual, 105)
				So(cmp.BestDeal.Source, ShouldEqual, "store_b")
				So(cmp.MinPrice, ShouldEqual, 90)
				So(cmp.MaxPrice, ShouldEqual, 140)
				So(cmp.PriceSpread, ShouldEqual, 50)
				So(cmp.AvgPrice, ShouldEqual, 112.5)
			})
		})

		Convey("When nothing matches", func() {
			_, err := ComparePrices("nothing", nil)

			Convey("Then ErrNoData is returned", func() {
				So(errors.Is(err, ErrNoData), ShouldBeTrue)
			})
		})
	})
}
