package seeding

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arryn/arryn/internal/domain/model"
)

type product struct {
	title    string
	brand    string
	category string
	base     int
}

var catalogue = []product{ //nolint:gochecknoglobals // static product list
	{"Zapatilla Running Pegasus", "NIKE", "calzado", 89990},
	{"Zapatilla Urbana Court", "ADIDAS", "calzado", 59990},
	{"Bototo Trekking Impermeable", "MERRELL", "calzado", 119990},
	{"Sandalia Playa", "IPANEMA", "calzado", 12990},
	{"Polera Dry Fit", "NIKE", "ropa", 19990},
	{"Chaqueta Cortaviento", "COLUMBIA", "ropa", 69990},
	{"Jeans Slim 511", "LEVIS", "ropa", 39990},
	{"Polerón Canguro", "PUMA", "ropa", 34990},
	{"Audífonos Bluetooth WH-CH520", "SONY", "electronica", 44990},
	{"Smartwatch Galaxy Fit", "SAMSUNG", "electronica", 79990},
	{"Parlante Portátil Flip", "JBL", "electronica", 99990},
	{"Notebook IdeaPad 15", "LENOVO", "computacion", 499990},
	{"Mouse Inalámbrico M185", "LOGITECH", "computacion", 9990},
	{"Monitor 24 IPS", "LG", "computacion", 129990},
	{"Hervidor Eléctrico 1.7L", "OSTER", "hogar", 19990},
	{"Freidora de Aire 4L", "THOMAS", "hogar", 54990},
}

var stores = []string{"falabella", "ripley", "paris", "lider", "hites"} //nolint:gochecknoglobals // static store list

var details = []string{ //nolint:gochecknoglobals // static detail templates
	"Color: negro\nMaterial: sintético",
	"Garantía: 12 meses\nOrigen: importado",
	"Talla: M\nColor: azul",
	"",
}

// Generator produces synthetic documents. The same seed yields the same
// catalogue apart from ids.
type Generator struct {
	rnd  *rand.Rand
	now  time.Time
	days int
}

// NewGenerator creates a generator spreading extraction dates over days.
func NewGenerator(seed uint64, now time.Time, days int) *Generator {
	if days < 1 {
		days = 1
	}
	return &Generator{
		rnd:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), //nolint:gosec // synthetic data
		now:  now,
		days: days,
	}
}

// Generate returns n documents. Products repeat across stores so trending
// groups form; about one in five carries only precio_texto, and one in
// twenty has no price at all.
func (g *Generator) Generate(n int) []model.Document {
	docs := make([]model.Document, n)
	for i := range docs {
		docs[i] = g.document()
	}
	return docs
}

func (g *Generator) document() model.Document {
	p := catalogue[g.rnd.IntN(len(catalogue))]
	// +-25% around the base price, rounded to the usual ...990 ending.
	price := p.base * (75 + g.rnd.IntN(51)) / 100
	price = price/1000*1000 + 990
	date := model.DateOf(g.now.AddDate(0, 0, -g.rnd.IntN(g.days)))

	doc := model.Document{
		ID:          uuid.NewString(),
		Title:       p.title,
		Brand:       p.brand,
		PriceText:   FormatPrice(price),
		Currency:    "CLP",
		Category:    p.category,
		Source:      stores[g.rnd.IntN(len(stores))],
		ExtractedAt: &date,
		Details:     details[g.rnd.IntN(len(details))],
	}
	doc.Link = "https://www." + doc.Source + ".cl/p/" + doc.ID

	switch roll := g.rnd.IntN(20); {
	case roll == 0:
		doc.PriceText = ""
	case roll <= 4:
		// Parsed server-side from the display text.
	default:
		v := float64(price)
		doc.Price = &v
	}
	return doc
}

// FormatPrice renders an integer amount the way Chilean stores display it,
// e.g. 59990 as "$ 59.990".
func FormatPrice(amount int) string {
	s := strconv.Itoa(amount)
	var b strings.Builder
	b.WriteString("$ ")
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String()
}
