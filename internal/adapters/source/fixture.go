package source

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arryn/arryn/internal/domain/ingest"
	"github.com/arryn/arryn/internal/domain/model"
)

//go:embed sample.yaml
var sampleCatalogue []byte

// Fixture is an in-memory DataSource. It keeps insertion order and is safe
// for concurrent use.
type Fixture struct {
	mu   sync.RWMutex
	docs []model.Document
	byID map[string]int
}

// NewFixture creates a fixture holding docs.
func NewFixture(docs ...model.Document) *Fixture {
	f := &Fixture{byID: make(map[string]int)}
	_, _ = f.Insert(context.Background(), docs)
	return f
}

// LoadFixture reads a YAML list of documents from path, or the built-in
// sample catalogue when path is empty. Entries may give days_ago instead of
// fecha_extraccion to stay relative to the load time.
func LoadFixture(path string) (*Fixture, error) {
	data := sampleCatalogue
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read fixture: %w", err)
		}
		data = b
	}
	docs, err := decodeFixture(data, time.Now())
	if err != nil {
		return nil, err
	}
	return NewFixture(docs...), nil
}

func decodeFixture(data []byte, now time.Time) ([]model.Document, error) {
	var raws []map[string]any
	if err := yaml.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	n := ingest.NewNormalizer()
	docs := make([]model.Document, 0, len(raws))
	for i, raw := range raws {
		if days, ok := raw["days_ago"].(int); ok {
			if _, has := raw["fecha_extraccion"]; !has {
				raw["fecha_extraccion"] = now.AddDate(0, 0, -days)
			}
			delete(raw, "days_ago")
		}
		doc, err := n.Normalize(raw)
		if err != nil {
			return nil, fmt.Errorf("fixture entry %d: %w", i, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (f *Fixture) Insert(_ context.Context, docs []model.Document) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := 0
	for _, d := range docs {
		if _, ok := f.byID[d.ID]; ok {
			continue
		}
		f.byID[d.ID] = len(f.docs)
		f.docs = append(f.docs, d)
		stored++
	}
	return stored, nil
}

func (f *Fixture) Documents(ctx context.Context, q Query) ([]model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]model.Document, 0)
	for _, d := range f.docs {
		if !q.Match(d) {
			continue
		}
		out = append(out, d)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (f *Fixture) Document(_ context.Context, id string) (model.Document, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	i, ok := f.byID[id]
	if !ok {
		return model.Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return f.docs[i], nil
}

func (f *Fixture) Facets(_ context.Context, field, category string) ([]model.Facet, error) {
	if _, err := facetValue(field, model.Document{}); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	counts := make(map[string]int)
	for _, d := range f.docs {
		if category != "" && d.Category != category {
			continue
		}
		v, _ := facetValue(field, d)
		if v == "" {
			continue
		}
		counts[v]++
	}
	return sortFacets(counts), nil
}

func (f *Fixture) Count(_ context.Context) (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.docs), nil
}

func (f *Fixture) Ping(context.Context) error { return nil }

func (f *Fixture) Close() {}

func sortFacets(counts map[string]int) []model.Facet {
	out := make([]model.Facet, 0, len(counts))
	for name, c := range counts {
		out = append(out, model.Facet{Name: name, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}
