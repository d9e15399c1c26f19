package ingest

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arryn/arryn/internal/domain/model"
)

// Normalizer turns raw records into documents.
type Normalizer struct {
	newID func() string
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithIDFunc overrides the id generator used for records without _id.
func WithIDFunc(fn func() string) Option {
	return func(n *Normalizer) {
		if fn != nil {
			n.newID = fn
		}
	}
}

// NewNormalizer creates a Normalizer that assigns random UUIDs.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{newID: uuid.NewString}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Rejection reports a record that could not be normalized.
type Rejection struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// Batch is the outcome of decoding one payload.
type Batch struct {
	Documents []model.Document
	Rejected  []Rejection
}

// Decode parses body and normalizes each record. Only payload-level
// problems are returned as errors; bad records end up in Rejected.
func (n *Normalizer) Decode(body []byte) (Batch, error) {
	raws, err := Parse(body)
	if err != nil {
		return Batch{}, err
	}
	var b Batch
	for i, raw := range raws {
		doc, err := n.Normalize(raw)
		if err != nil {
			b.Rejected = append(b.Rejected, Rejection{Index: i, Reason: err.Error()})
			continue
		}
		b.Documents = append(b.Documents, doc)
	}
	return b, nil
}

// Normalize validates and cleans one raw record.
func (n *Normalizer) Normalize(raw map[string]any) (model.Document, error) {
	if raw == nil {
		return model.Document{}, ErrNotObject
	}
	doc := model.Document{
		ID:        idOf(raw["_id"]),
		Title:     str(raw["titulo"]),
		Brand:     str(raw["marca"]),
		PriceText: str(raw["precio_texto"]),
		Currency:  str(raw["moneda"]),
		Category:  str(raw["categoria"]),
		Image:     str(raw["imagen"]),
		Link:      str(raw["link"]),
		Source:    str(raw["fuente"]),
		Details:   str(raw["detalles"]),
	}
	if doc.Title == "" {
		return model.Document{}, ErrMissingTitle
	}
	if doc.ID == "" {
		doc.ID = n.newID()
	}

	price, err := priceOf(raw["precio_valor"], doc.PriceText)
	if err != nil {
		return model.Document{}, err
	}
	doc.Price = price

	date, err := dateOf(raw["fecha_extraccion"])
	if err != nil {
		return model.Document{}, err
	}
	doc.ExtractedAt = date
	return doc, nil
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// idOf accepts a plain string or an extended-JSON {"$oid": "..."} id.
func idOf(v any) string {
	if m, ok := v.(map[string]any); ok {
		return str(m["$oid"])
	}
	return str(v)
}

func priceOf(v any, text string) (*float64, error) {
	var (
		p   float64
		err error
	)
	switch t := v.(type) {
	case nil:
		d, ok := ParsePriceText(text)
		if !ok {
			return nil, nil
		}
		p = d.InexactFloat64()
	case json.Number:
		p, err = t.Float64()
	case float64:
		p = t
	case int:
		p = float64(t)
	case int64:
		p = float64(t)
	case string:
		if strings.TrimSpace(t) == "" {
			return priceOf(nil, text)
		}
		p, err = strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		err = fmt.Errorf("unsupported type %T", v)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadPrice, err)
	}
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return nil, fmt.Errorf("%w: %v is not a finite number", ErrBadPrice, p)
	}
	if p < 0 {
		return nil, nil
	}
	return &p, nil
}

func dateOf(v any) (*model.Date, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		d := model.DateOf(t)
		return &d, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, nil
		}
		d, err := model.ParseDate(t)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadDate, err)
		}
		return &d, nil
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrBadDate, v)
	}
}

// ParsePriceText extracts a price from display text such as "$ 1.299,99",
// "US$1,299.99" or "1299". ok is false when no number can be found.
func ParsePriceText(text string) (decimal.Decimal, bool) {
	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	s := strings.Trim(b.String(), ".,")
	if s == "" {
		return decimal.Zero, false
	}

	lastDot, lastComma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		s = normalizeSingleSeparator(s, ",")
	case lastDot >= 0:
		s = normalizeSingleSeparator(s, ".")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// normalizeSingleSeparator decides whether sep is a decimal point or a
// thousands separator. A single occurrence followed by exactly three digits
// is read as thousands, as is any repeated separator.
func normalizeSingleSeparator(s, sep string) string {
	parts := strings.Split(s, sep)
	if len(parts) == 2 && len(parts[1]) != 3 {
		return parts[0] + "." + parts[1]
	}
	return strings.Join(parts, "")
}
