// Package model contains domain models passed between layers.
package model

import "strings"

// Document is a scraped listing as stored. Price and date are optional
// because scrapers do not always manage to extract them.
type Document struct {
	ID          string   `json:"_id"`
	Title       string   `json:"titulo"`
	Brand       string   `json:"marca"`
	PriceText   string   `json:"precio_texto,omitempty"`
	Price       *float64 `json:"precio_valor"`
	Currency    string   `json:"moneda,omitempty"`
	Category    string   `json:"categoria"`
	Image       string   `json:"imagen,omitempty"`
	Link        string   `json:"link,omitempty"`
	Source      string   `json:"fuente"`
	ExtractedAt *Date    `json:"fecha_extraccion"`
	Details     string   `json:"detalles,omitempty"`
}

// Offer returns the document as an Offer. ok is false when the document has
// no price, a negative price or no extraction date.
func (d Document) Offer() (Offer, bool) {
	if d.Price == nil || *d.Price < 0 || d.ExtractedAt == nil {
		return Offer{}, false
	}
	return Offer{
		ID:          d.ID,
		Title:       d.Title,
		Brand:       d.Brand,
		PriceText:   d.PriceText,
		Price:       *d.Price,
		Currency:    d.Currency,
		Category:    d.Category,
		Image:       d.Image,
		Link:        d.Link,
		Source:      d.Source,
		ExtractedAt: *d.ExtractedAt,
		Details:     d.Details,
	}, true
}

// Offers converts documents, skipping the ones without price or date.
func Offers(docs []Document) []Offer {
	out := make([]Offer, 0, len(docs))
	for _, d := range docs {
		if o, ok := d.Offer(); ok {
			out = append(out, o)
		}
	}
	return out
}

// Offer is a priced, dated listing. Read-only to the engines.
type Offer struct {
	ID          string  `json:"_id"`
	Title       string  `json:"titulo"`
	Brand       string  `json:"marca"`
	PriceText   string  `json:"precio_texto,omitempty"`
	Price       float64 `json:"precio_valor"`
	Currency    string  `json:"moneda,omitempty"`
	Category    string  `json:"categoria"`
	Image       string  `json:"imagen,omitempty"`
	Link        string  `json:"link,omitempty"`
	Source      string  `json:"fuente"`
	ExtractedAt Date    `json:"fecha_extraccion"`
	Details     string  `json:"detalles,omitempty"`
}

// TrendKey groups offers describing the same product: case-insensitive
// title plus brand.
func (o Offer) TrendKey() string {
	return strings.ToLower(o.Title) + "\x00" + o.Brand
}

// CategoryPriceStats summarizes the prices of one category.
type CategoryPriceStats struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
}

// ScoredOffer is an Offer annotated with its value score.
type ScoredOffer struct {
	Offer
	ScorePrice       float64 `json:"score_price"`
	ScoreFreshness   float64 `json:"score_freshness"`
	ScoreTotal       float64 `json:"score_total"`
	SavingsVsAverage float64 `json:"savings_vs_average"`
	PricePercentile  float64 `json:"price_percentile"`
}

// TrendGroup is the representative offer of a product group with its
// trending aggregates.
type TrendGroup struct {
	Offer
	TrendingScore       float64 `json:"trending_score"`
	Apparitions         int     `json:"apparitions"`
	DistinctSourceCount int     `json:"distinct_source_count"`
	MinPriceFound       float64 `json:"min_price_found"`
	AvgPriceFound       float64 `json:"avg_price_found"`
}

// PricedOffer is a best-price listing.
type PricedOffer struct {
	Offer
	EstimatedSavings float64 `json:"estimated_savings"`
}

// Facet is a distinct value of a field with its number of documents.
type Facet struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
