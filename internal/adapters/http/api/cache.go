package api

import (
	"bytes"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/arryn/arryn/pkg/metrics"
)

const responseCacheSize = 1024

// cachedResponse is a successful GET response body.
type cachedResponse struct {
	contentType string
	body        []byte
}

// responseCache memoizes successful GET responses by request URI.
type responseCache struct {
	entries *expirable.LRU[string, cachedResponse]
}

// newResponseCache returns nil when caching is disabled.
func newResponseCache(ttl time.Duration) *responseCache {
	if ttl <= 0 {
		return nil
	}
	return &responseCache{entries: expirable.NewLRU[string, cachedResponse](responseCacheSize, nil, ttl)}
}

// Purge drops every cached response.
func (c *responseCache) Purge() {
	if c != nil {
		c.entries.Purge()
	}
}

func (c *responseCache) middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next(w, r)
			return
		}
		key := r.URL.RequestURI()
		if hit, ok := c.entries.Get(key); ok {
			metrics.RecordCacheHit()
			w.Header().Set("Content-Type", hit.contentType)
			w.Header().Set("X-Cache", "HIT")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(hit.body)
			return
		}
		metrics.RecordCacheMiss()

		w.Header().Set("X-Cache", "MISS")
		rec := &capturingWriter{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		if rec.status == http.StatusOK {
			c.entries.Add(key, cachedResponse{
				contentType: w.Header().Get("Content-Type"),
				body:        rec.buf.Bytes(),
			})
		}
	}
}

// capturingWriter copies the body it writes so it can be cached.
type capturingWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (cw *capturingWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *capturingWriter) Write(b []byte) (int, error) {
	cw.buf.Write(b)
	return cw.ResponseWriter.Write(b)
}
