package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/arryn/arryn/internal/adapters/source"
	service "github.com/arryn/arryn/internal/app"
	"github.com/arryn/arryn/internal/domain/model"
	"github.com/arryn/arryn/internal/domain/stats"
	"github.com/arryn/arryn/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

func doc(id, title, brand, category, src string, price float64, daysAgo int) model.Document {
	d := model.DateOf(testNow).AddDays(-daysAgo)
	p := price
	return model.Document{
		ID: id, Title: title, Brand: brand, Category: category, Source: src,
		Price: &p, ExtractedAt: &d,
	}
}

func catalogue() *source.Fixture {
	a1 := doc("a1", "Zapatilla Run", "NIKE", "calzado", "norte", 100, 0)
	a1.Details = "Talla: 42\nColor: negro"
	unpriced := doc("b2", "Audifonos Z", "SONY", "electronica", "norte", 0, 0)
	unpriced.Price = nil
	return source.NewFixture(
		a1,
		doc("a2", "zapatilla run", "NIKE", "calzado", "sur", 80, 1),
		doc("a3", "Zapatilla Trail", "PUMA", "calzado", "norte", 120, 10),
		doc("b1", "Audifonos Z", "SONY", "electronica", "sur", 50, 2),
		unpriced,
		doc("c1", "Polera", "ADIDAS", "ropa", "norte", 20, 40),
	)
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with custom options", t, func() {
		svc := service.New(catalogue(),
			service.WithWorkerCount(8),
			service.WithQueueSize(50_000),
			service.WithDedupeSize(25_000),
			service.WithBatchSize(10),
			service.WithFlushInterval(time.Second),
			service.WithClock(clock),
		)

		Convey("Then stats reflect the configuration before start", func() {
			st := svc.GetStats(context.Background())
			So(st["started"], ShouldEqual, false)
			So(st["workerCount"], ShouldEqual, 8)
			So(st["queueSize"], ShouldEqual, 50_000)
			So(st["totalDocuments"], ShouldEqual, 6)
		})

		Convey("Then ingesting before start is refused", func() {
			_, err := svc.Ingest(context.Background(), []byte(`{"titulo":"x"}`))
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("Then stopping a service that never started is a no-op", func() {
			So(svc.Stop(context.Background()), ShouldBeNil)
		})
	})
}

func TestService_Catalog(t *testing.T) {
	Convey("Given a service over a small catalogue", t, func() {
		ctx := context.Background()
		svc := service.New(catalogue(), service.WithClock(clock))

		Convey("When listing documents", func() {
			docs, err := svc.ListDocuments(ctx, 4)

			Convey("Then they come in insertion order up to the limit", func() {
				So(err, ShouldBeNil)
				So(len(docs), ShouldEqual, 4)
				So(docs[0].ID, ShouldEqual, "a1")
				So(docs[3].ID, ShouldEqual, "b1")
			})
		})

		Convey("When the limit is not positive", func() {
			_, err := svc.ListDocuments(ctx, 0)

			Convey("Then it is a bad request", func() {
				So(errors.Is(err, service.ErrBadRequest), ShouldBeTrue)
			})
		})

		Convey("When fetching one document", func() {
			d, err := svc.Document(ctx, "a3")
			_, missing := svc.Document(ctx, "nope")

			Convey("Then known ids resolve and unknown ones are not found", func() {
				So(err, ShouldBeNil)
				So(d.Title, ShouldEqual, "Zapatilla Trail")
				So(errors.Is(missing, source.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When reading details", func() {
			one, err := svc.Details(ctx, "a1")
			all, allErr := svc.AllDetails(ctx, 10)

			Convey("Then detalles are parsed into fields", func() {
				So(err, ShouldBeNil)
				So(one.Details["Talla"], ShouldEqual, "42")
				So(one.Details["Color"], ShouldEqual, "negro")
				So(allErr, ShouldBeNil)
				So(len(all), ShouldEqual, 6)
				So(all[1].Details, ShouldBeEmpty)
			})
		})

		Convey("When listing facets", func() {
			cats, err := svc.Categories(ctx)
			brands, brandErr := svc.Brands(ctx, "calzado")

			Convey("Then counts are ordered by frequency", func() {
				So(err, ShouldBeNil)
				So(cats[0], ShouldResemble, model.Facet{Name: "calzado", Count: 3})
				So(len(cats), ShouldEqual, 3)
				So(brandErr, ShouldBeNil)
				So(brands, ShouldResemble, []model.Facet{{Name: "NIKE", Count: 2}, {Name: "PUMA", Count: 1}})
			})
		})

		Convey("When listing offers of a category", func() {
			offers, err := svc.OffersByCategory(ctx, "calzado", 2)
			_, noCat := svc.OffersByCategory(ctx, "", 2)

			Convey("Then the cheapest come first", func() {
				So(err, ShouldBeNil)
				So(len(offers), ShouldEqual, 2)
				So(offers[0].ID, ShouldEqual, "a2")
				So(offers[1].ID, ShouldEqual, "a1")
				So(errors.Is(noCat, service.ErrBadRequest), ShouldBeTrue)
			})
		})
	})
}

func TestService_Analytics(t *testing.T) {
	Convey("Given a service over a small catalogue", t, func() {
		ctx := context.Background()
		svc := service.New(catalogue(), service.WithClock(clock))

		Convey("When ranking offers", func() {
			all, err := svc.RankOffers(ctx, "", 10)
			top, topErr := svc.RankOffers(ctx, "calzado", 1)
			_, badLimit := svc.RankOffers(ctx, "", 0)

			Convey("Then only priced offers are scored, best first", func() {
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 5)
				for i := 1; i < len(all); i++ {
					So(all[i-1].ScoreTotal, ShouldBeGreaterThanOrEqualTo, all[i].ScoreTotal)
				}
				So(topErr, ShouldBeNil)
				So(len(top), ShouldEqual, 1)
				So(top[0].ID, ShouldEqual, "a2")
				So(errors.Is(badLimit, service.ErrBadRequest), ShouldBeTrue)
			})
		})

		Convey("When computing trending offers over a week", func() {
			groups, err := svc.TrendingOffers(ctx, 7, 10)
			_, badDays := svc.TrendingOffers(ctx, 0, 10)

			Convey("Then groups inside the window are ranked", func() {
				So(err, ShouldBeNil)
				So(len(groups), ShouldEqual, 2)
				So(groups[0].ID, ShouldEqual, "b1")
				So(groups[0].TrendingScore, ShouldEqual, 20.7)
				So(groups[1].Apparitions, ShouldEqual, 2)
				So(groups[1].ID, ShouldEqual, "a1")
				So(errors.Is(badDays, service.ErrBadRequest), ShouldBeTrue)
			})
		})

		Convey("When looking for best prices with a brand filter", func() {
			best, err := svc.BestPrices(ctx, "calzado", service.BestPriceFilter{Brands: []string{"nike"}}, 10)
			lo, hi := 50.0, 10.0
			_, badRange := svc.BestPrices(ctx, "calzado", service.BestPriceFilter{MinPrice: &lo, MaxPrice: &hi}, 10)

			Convey("Then savings are measured against the filtered average", func() {
				So(err, ShouldBeNil)
				So(len(best), ShouldEqual, 2)
				So(best[0].ID, ShouldEqual, "a2")
				So(best[0].EstimatedSavings, ShouldEqual, 10)
				So(best[1].EstimatedSavings, ShouldEqual, -10)
				So(errors.Is(badRange, service.ErrBadRequest), ShouldBeTrue)
			})
		})

		Convey("When comparing a product across stores", func() {
			cmp, err := svc.PriceComparison(ctx, " audifonos ")
			_, none := svc.PriceComparison(ctx, "televisor")
			_, empty := svc.PriceComparison(ctx, "")

			Convey("Then only priced listings are compared", func() {
				So(err, ShouldBeNil)
				So(cmp.Query, ShouldEqual, "audifonos")
				So(cmp.TotalStores, ShouldEqual, 1)
				So(cmp.BestDeal.Source, ShouldEqual, "sur")
				So(errors.Is(none, stats.ErrNoData), ShouldBeTrue)
				So(errors.Is(empty, service.ErrBadRequest), ShouldBeTrue)
			})
		})

		Convey("When building the store report for thirty days", func() {
			rep, err := svc.StoreReport(ctx, "", 30)

			Convey("Then the period and totals cover the window only", func() {
				So(err, ShouldBeNil)
				So(rep.Period.Start.String(), ShouldEqual, "2024-04-10")
				So(rep.Period.End.String(), ShouldEqual, "2024-05-10")
				So(rep.Period.Days, ShouldEqual, 30)
				So(rep.TotalStores, ShouldEqual, 2)
				So(rep.TotalOffers, ShouldEqual, 4)
				So(rep.GeneratedAt.Equal(testNow), ShouldBeTrue)
			})
		})

		Convey("When building price reports", func() {
			rep, err := svc.PriceReport(ctx, "calzado", 30)
			_, stale := svc.PriceReport(ctx, "ropa", 30)
			_, noCat := svc.PriceReport(ctx, "", 30)

			Convey("Then categories without recent offers have no data", func() {
				So(err, ShouldBeNil)
				So(rep.Analysis.Count, ShouldEqual, 3)
				So(rep.Analysis.Min, ShouldEqual, 80)
				So(rep.Analysis.Max, ShouldEqual, 120)
				So(errors.Is(stale, stats.ErrNoData), ShouldBeTrue)
				So(errors.Is(noCat, service.ErrBadRequest), ShouldBeTrue)
			})
		})
	})
}
