package ingest

import (
	"errors"
	"testing"
	"time"

	"github.com/arryn/arryn/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func fixedIDs() Option {
	n := 0
	return WithIDFunc(func() string {
		n++
		return "gen-" + string(rune('0'+n))
	})
}

func TestParse(t *testing.T) {
	Convey("Given request bodies", t, func() {
		Convey("When the body is a single object", func() {
			recs, err := Parse([]byte(`{"titulo":"A"}`))

			Convey("Then one record is returned", func() {
				So(err, ShouldBeNil)
				So(len(recs), ShouldEqual, 1)
				So(recs[0]["titulo"], ShouldEqual, "A")
			})
		})

		Convey("When the body is an array with a non-object element", func() {
			recs, err := Parse([]byte(`[{"titulo":"A"}, 3, {"titulo":"B"}]`))

			Convey("Then positions are kept with nil for the bad element", func() {
				So(err, ShouldBeNil)
				So(len(recs), ShouldEqual, 3)
				So(recs[1], ShouldBeNil)
				So(recs[2]["titulo"], ShouldEqual, "B")
			})
		})

		Convey("When the body is newline-delimited JSON", func() {
			recs, err := Parse([]byte("{\"titulo\":\"A\"}\n\n{\"titulo\":\"B\"}\n"))

			Convey("Then every line is a record", func() {
				So(err, ShouldBeNil)
				So(len(recs), ShouldEqual, 2)
			})
		})

		Convey("When an NDJSON line is broken", func() {
			_, err := Parse([]byte("{\"titulo\":\"A\"}\n{oops"))

			Convey("Then the payload is malformed", func() {
				So(errors.Is(err, ErrMalformed), ShouldBeTrue)
			})
		})

		Convey("When the body is empty or an empty array", func() {
			_, err1 := Parse([]byte("  "))
			_, err2 := Parse([]byte("[]"))

			Convey("Then ErrEmptyPayload is returned", func() {
				So(errors.Is(err1, ErrEmptyPayload), ShouldBeTrue)
				So(errors.Is(err2, ErrEmptyPayload), ShouldBeTrue)
			})
		})

		Convey("When the body is a bare scalar", func() {
			_, err := Parse([]byte(`"hello"`))

			Convey("Then it is malformed", func() {
				So(errors.Is(err, ErrMalformed), ShouldBeTrue)
			})
		})
	})
}

func TestNormalize(t *testing.T) {
	Convey("Given a normalizer with predictable ids", t, func() {
		n := NewNormalizer(fixedIDs())

		Convey("When a full record is normalized", func() {
			doc, err := n.Normalize(map[string]any{
				"_id":              map[string]any{"$oid": "abc"},
				"titulo":           "  Zapatilla Run ",
				"marca":            "nike",
				"precio_valor":     "129.9",
				"categoria":        "calzado",
				"fuente":           "store_a",
				"fecha_extraccion": "2025-09-20T10:00:00Z",
			})

			Convey("Then fields are cleaned", func() {
				So(err, ShouldBeNil)
				So(doc.ID, ShouldEqual, "abc")
				So(doc.Title, ShouldEqual, "Zapatilla Run")
				So(doc.Brand, ShouldEqual, "nike")
				So(*doc.Price, ShouldEqual, 129.9)
				So(doc.ExtractedAt.String(), ShouldEqual, "2025-09-20")
			})
		})

		Convey("When the price is only present as text", func() {
			doc, err := n.Normalize(map[string]any{"titulo": "X", "precio_texto": "$ 1.299,99"})

			Convey("Then it is parsed from the text and an id is generated", func() {
				So(err, ShouldBeNil)
				So(*doc.Price, ShouldEqual, 1299.99)
				So(doc.ID, ShouldEqual, "gen-1")
				So(doc.ExtractedAt, ShouldBeNil)
			})
		})

		Convey("When the price is negative", func() {
			doc, err := n.Normalize(map[string]any{"titulo": "X", "precio_valor": -5.0})

			Convey("Then the document has no price", func() {
				So(err, ShouldBeNil)
				So(doc.Price, ShouldBeNil)
			})
		})

		Convey("When the price is not a finite number", func() {
			_, errNaN := n.Normalize(map[string]any{"titulo": "X", "precio_valor": "NaN"})
			_, errInf := n.Normalize(map[string]any{"titulo": "X", "precio_valor": "Inf"})
			_, errInfinity := n.Normalize(map[string]any{"titulo": "X", "precio_valor": "-Infinity"})

			Convey("Then the record is rejected as a bad price", func() {
				So(errors.Is(errNaN, ErrBadPrice), ShouldBeTrue)
				So(errors.Is(errInf, ErrBadPrice), ShouldBeTrue)
				So(errors.Is(errInfinity, ErrBadPrice), ShouldBeTrue)
			})
		})

		Convey("When brands differ only in case", func() {
			upper, _ := n.Normalize(map[string]any{"titulo": "X", "marca": "NIKE"})
			mixed, _ := n.Normalize(map[string]any{"titulo": "X", "marca": " Nike "})

			Convey("Then each brand is kept as received", func() {
				So(upper.Brand, ShouldEqual, "NIKE")
				So(mixed.Brand, ShouldEqual, "Nike")
			})
		})

		Convey("When a date arrives as time.Time", func() {
			doc, err := n.Normalize(map[string]any{"titulo": "X", "fecha_extraccion": time.Date(2025, 1, 2, 23, 0, 0, 0, time.UTC)})

			Convey("Then it is truncated to the day", func() {
				So(err, ShouldBeNil)
				So(*doc.ExtractedAt, ShouldResemble, model.NewDate(2025, 1, 2))
			})
		})

		Convey("When required fields are missing or invalid", func() {
			_, errTitle := n.Normalize(map[string]any{"marca": "x"})
			_, errPrice := n.Normalize(map[string]any{"titulo": "X", "precio_valor": "cheap"})
			_, errDate := n.Normalize(map[string]any{"titulo": "X", "fecha_extraccion": "tomorrow"})
			_, errNil := n.Normalize(nil)

			Convey("Then the matching sentinel is returned", func() {
				So(errors.Is(errTitle, ErrMissingTitle), ShouldBeTrue)
				So(errors.Is(errPrice, ErrBadPrice), ShouldBeTrue)
				So(errors.Is(errDate, ErrBadDate), ShouldBeTrue)
				So(errors.Is(errNil, ErrNotObject), ShouldBeTrue)
			})
		})

		Convey("When decoding a mixed array", func() {
			b, err := n.Decode([]byte(`[{"titulo":"A","precio_valor":10}, 7, {"marca":"x"}, {"titulo":"B","precio_valor":"NaN"}]`))

			Convey("Then good records become documents and bad ones are reported", func() {
				So(err, ShouldBeNil)
				So(len(b.Documents), ShouldEqual, 1)
				So(*b.Documents[0].Price, ShouldEqual, 10)
				So(len(b.Rejected), ShouldEqual, 3)
				So(b.Rejected[0].Index, ShouldEqual, 1)
				So(b.Rejected[1].Index, ShouldEqual, 2)
				So(b.Rejected[2].Index, ShouldEqual, 3)
			})
		})
	})
}

func TestParsePriceText(t *testing.T) {
	Convey("Given price texts in several formats", t, func() {
		cases := map[string]float64{
			"$ 1.299,99":  1299.99,
			"US$1,299.99": 1299.99,
			"1299":        1299,
			"$1.299":      1299,
			"12,5 €":      12.5,
			"S/ 45.90":    45.9,
			"2.500.000":   2500000,
		}
		for text, want := range cases {
			d, ok := ParsePriceText(text)
			So(ok, ShouldBeTrue)
			So(d.InexactFloat64(), ShouldEqual, want)
		}

		_, ok := ParsePriceText("consultar")
		So(ok, ShouldBeFalse)
	})
}

func TestParseDetails(t *testing.T) {
	Convey("Given a detalles text", t, func() {
		text := "Color: Rojo\nTalla 42\nsinvalor\r\nMaterial: cuero: genuino"

		Convey("When parsed", func() {
			got := ParseDetails(text)

			Convey("Then colon lines split on the first colon and others on the first space", func() {
				So(got, ShouldResemble, map[string]string{
					"Color":    "Rojo",
					"Talla":    "42",
					"Material": "cuero: genuino",
				})
			})
		})

		Convey("When empty", func() {
			So(ParseDetails(""), ShouldBeEmpty)
		})
	})
}

func TestFingerprint(t *testing.T) {
	Convey("Given documents", t, func() {
		day := model.NewDate(2025, 9, 1)
		a := model.Document{Title: "Mouse", Source: "s", Link: "https://s/1", ExtractedAt: &day}
		b := model.Document{Title: "MOUSE", Source: "s"}

		Convey("Then the link is preferred and the day is part of the key", func() {
			So(Fingerprint(a), ShouldEqual, "https://s/1|2025-09-01")
			So(Fingerprint(b), ShouldEqual, "mouse|s|-")
		})
	})
}
