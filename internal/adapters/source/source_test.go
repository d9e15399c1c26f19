package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arryn/arryn/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func ptr(v float64) *float64 { return &v }

func dated(y int, m time.Month, d int) *model.Date {
	day := model.NewDate(y, m, d)
	return &day
}

func sampleDocs() []model.Document {
	return []model.Document{
		{ID: "1", Title: "Laptop Air", Brand: "ACME", Price: ptr(900), Category: "pc", Source: "a", ExtractedAt: dated(2025, 9, 1)},
		{ID: "2", Title: "Mouse", Brand: "ZED", Price: ptr(20), Category: "pc", Source: "b", ExtractedAt: dated(2025, 9, 5)},
		{ID: "3", Title: "Speaker", Brand: "ACME", Category: "audio", Source: "a", ExtractedAt: dated(2025, 9, 6)},
		{ID: "4", Title: "laptop pro", Brand: "ZED", Price: ptr(1500), Category: "pc", Source: "c"},
	}
}

func TestQueryMatch(t *testing.T) {
	Convey("Given documents and filters", t, func() {
		docs := sampleDocs()

		matching := func(q Query) []string {
			var ids []string
			for _, d := range docs {
				if q.Match(d) {
					ids = append(ids, d.ID)
				}
			}
			return ids
		}

		Convey("Then each filter narrows the result", func() {
			So(matching(Query{}), ShouldResemble, []string{"1", "2", "3", "4"})
			So(matching(Query{Category: "pc"}), ShouldResemble, []string{"1", "2", "4"})
			So(matching(Query{PricedOnly: true}), ShouldResemble, []string{"1", "2", "4"})
			So(matching(Query{Since: dated(2025, 9, 5)}), ShouldResemble, []string{"2", "3"})
			So(matching(Query{Brands: []string{"acme"}}), ShouldResemble, []string{"1", "3"})
			So(matching(Query{MinPrice: ptr(100)}), ShouldResemble, []string{"1", "4"})
			So(matching(Query{MaxPrice: ptr(900)}), ShouldResemble, []string{"1", "2"})
			So(matching(Query{TitleContains: "LAPTOP"}), ShouldResemble, []string{"1", "4"})
		})
	})
}

func TestFixture(t *testing.T) {
	ctx := context.Background()

	Convey("Given a fixture with documents", t, func() {
		f := NewFixture(sampleDocs()...)

		Convey("When inserting a duplicate and a new document", func() {
			n, err := f.Insert(ctx, []model.Document{{ID: "1", Title: "dup"}, {ID: "5", Title: "new"}})
			count, _ := f.Count(ctx)

			Convey("Then only the new one is stored", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
				So(count, ShouldEqual, 5)
			})
		})

		Convey("When reading with a limit", func() {
			docs, err := f.Documents(ctx, Query{Category: "pc", Limit: 2})

			Convey("Then insertion order is kept", func() {
				So(err, ShouldBeNil)
				So(len(docs), ShouldEqual, 2)
				So(docs[0].ID, ShouldEqual, "1")
				So(docs[1].ID, ShouldEqual, "2")
			})
		})

		Convey("When looking up ids", func() {
			d, err := f.Document(ctx, "3")
			_, missing := f.Document(ctx, "nope")

			Convey("Then known ids resolve and unknown ones are ErrNotFound", func() {
				So(err, ShouldBeNil)
				So(d.Title, ShouldEqual, "Speaker")
				So(errors.Is(missing, ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When counting facets", func() {
			brands, err := f.Facets(ctx, FacetBrand, "")
			pcBrands, _ := f.Facets(ctx, FacetBrand, "pc")
			cats, _ := f.Facets(ctx, FacetCategory, "")
			_, bad := f.Facets(ctx, "precio", "")

			Convey("Then they are ordered by count then name", func() {
				So(err, ShouldBeNil)
				So(brands, ShouldResemble, []model.Facet{{Name: "ACME", Count: 2}, {Name: "ZED", Count: 2}})
				So(pcBrands, ShouldResemble, []model.Facet{{Name: "ZED", Count: 2}, {Name: "ACME", Count: 1}})
				So(cats[0], ShouldResemble, model.Facet{Name: "pc", Count: 3})
				So(errors.Is(bad, ErrUnknownFacet), ShouldBeTrue)
			})
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := f.Documents(cctx, Query{})

			Convey("Then the read fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestLoadFixture(t *testing.T) {
	Convey("Given fixture YAML", t, func() {
		Convey("When the built-in catalogue is loaded", func() {
			f, err := LoadFixture("")

			Convey("Then it holds documents with and without prices", func() {
				So(err, ShouldBeNil)
				n, _ := f.Count(context.Background())
				So(n, ShouldBeGreaterThan, 10)
				d, err := f.Document(context.Background(), "sample-006")
				So(err, ShouldBeNil)
				So(*d.Price, ShouldEqual, 59990)
				noPrice, _ := f.Document(context.Background(), "sample-015")
				So(noPrice.Price, ShouldBeNil)
			})
		})

		Convey("When entries use days_ago", func() {
			now := time.Date(2025, 9, 10, 8, 0, 0, 0, time.UTC)
			docs, err := decodeFixture([]byte("- titulo: A\n  precio_valor: 10\n  days_ago: 3\n- titulo: B\n  fecha_extraccion: 2025-01-02\n"), now)

			Convey("Then dates are relative to the load time", func() {
				So(err, ShouldBeNil)
				So(docs[0].ExtractedAt.String(), ShouldEqual, "2025-09-07")
				So(docs[1].ExtractedAt.String(), ShouldEqual, "2025-01-02")
				So(docs[0].ID, ShouldNotBeBlank)
			})
		})

		Convey("When a file path is given", func() {
			path := filepath.Join(t.TempDir(), "fixture.yaml")
			So(os.WriteFile(path, []byte("- _id: x\n  titulo: X\n  marca: acme\n"), 0o600), ShouldBeNil)
			f, err := LoadFixture(path)

			Convey("Then the file is used", func() {
				So(err, ShouldBeNil)
				d, err := f.Document(context.Background(), "x")
				So(err, ShouldBeNil)
				So(d.Brand, ShouldEqual, "ACME")
			})
		})

		Convey("When an entry is invalid", func() {
			_, err := decodeFixture([]byte("- marca: nobody\n"), time.Now())

			Convey("Then loading fails", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the file is missing", func() {
			_, err := LoadFixture(filepath.Join(t.TempDir(), "missing.yaml"))

			Convey("Then loading fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestOpen(t *testing.T) {
	Convey("Given data source configs", t, func() {
		ctx := context.Background()

		Convey("When the fixture kind is requested", func() {
			ds, err := Open(ctx, Config{Kind: "fixture"})

			Convey("Then a fixture is returned", func() {
				So(err, ShouldBeNil)
				_, ok := ds.(*Fixture)
				So(ok, ShouldBeTrue)
				So(ds.Ping(ctx), ShouldBeNil)
			})
		})

		Convey("When an unknown kind is requested", func() {
			_, err := Open(ctx, Config{Kind: "mongo"})

			Convey("Then ErrUnknownKind is returned", func() {
				So(errors.Is(err, ErrUnknownKind), ShouldBeTrue)
			})
		})

		Convey("When live is requested without a URL", func() {
			_, err := Open(ctx, Config{Kind: "live"})

			Convey("Then the config is invalid", func() {
				So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
			})
		})

		Convey("When live is given a malformed URL", func() {
			_, err := OpenLive(ctx, "postgres://%zz", 1)

			Convey("Then the config is invalid", func() {
				So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
			})
		})
	})
}

func TestBuildDocumentsQuery(t *testing.T) {
	Convey("Given queries", t, func() {
		Convey("When no filter is set", func() {
			sql, args := buildDocumentsQuery(Query{})

			Convey("Then every document is selected in insertion order", func() {
				So(sql, ShouldEqual, "SELECT "+documentColumns+" FROM archivos ORDER BY seq")
				So(args, ShouldBeEmpty)
			})
		})

		Convey("When every filter is set", func() {
			sql, args := buildDocumentsQuery(Query{
				Category:      "pc",
				PricedOnly:    true,
				Since:         dated(2025, 9, 1),
				Brands:        []string{"acme", "Zed"},
				MinPrice:      ptr(10),
				MaxPrice:      ptr(100),
				TitleContains: "50%_off",
				Limit:         5,
			})

			Convey("Then placeholders are numbered in order", func() {
				So(sql, ShouldContainSubstring, "WHERE categoria = $1 AND precio_valor IS NOT NULL AND fecha_extraccion >= $2")
				So(sql, ShouldContainSubstring, "upper(marca) = ANY($3) AND precio_valor >= $4 AND precio_valor <= $5")
				So(sql, ShouldContainSubstring, `titulo ILIKE $6 ESCAPE '\'`)
				So(sql, ShouldEndWith, "ORDER BY seq LIMIT $7")
				So(len(args), ShouldEqual, 7)
				So(args[2], ShouldResemble, []string{"ACME", "ZED"})
				So(args[5], ShouldEqual, `%50\%\_off%`)
				So(args[6], ShouldEqual, 5)
			})
		})
	})
}

func TestBuildFacetQuery(t *testing.T) {
	Convey("Given facet requests", t, func() {
		sql, args, err := buildFacetQuery(FacetBrand, "pc")
		So(err, ShouldBeNil)
		So(sql, ShouldEqual, `SELECT marca, count(*) FROM archivos WHERE marca <> '' AND categoria = $1 GROUP BY marca ORDER BY count(*) DESC, marca COLLATE "C"`)
		So(args, ShouldResemble, []any{"pc"})

		_, _, err = buildFacetQuery("titulo; DROP TABLE archivos", "")
		So(errors.Is(err, ErrUnknownFacet), ShouldBeTrue)
	})
}
