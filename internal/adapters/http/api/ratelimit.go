package api

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/arryn/arryn/pkg/metrics"
)

var errRateLimited = errors.New("rate limit exceeded")

// rateLimiter keeps one token bucket per client IP. A client may burst up to
// requests and then refills at requests per window.
type rateLimiter struct {
	limit  rate.Limit
	burst  int
	window time.Duration

	// trustProxy reads the client address from X-Forwarded-For.
	trustProxy bool

	mu       sync.Mutex
	clients  map[string]*client
	lastScan time.Time
	now      func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newRateLimiter returns nil when limiting is disabled.
func newRateLimiter(requests int, window time.Duration) *rateLimiter {
	if requests <= 0 || window <= 0 {
		return nil
	}
	return &rateLimiter{
		limit:   rate.Limit(float64(requests) / window.Seconds()),
		burst:   requests,
		window:  window,
		clients: make(map[string]*client),
		now:     time.Now,
	}
}

// reserve takes a token for key. When none is available it returns false
// and how long until one will be.
func (l *rateLimiter) reserve(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evictIdle(now)

	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now

	res := c.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// evictIdle forgets clients whose bucket has been full for a whole window.
func (l *rateLimiter) evictIdle(now time.Time) {
	if now.Sub(l.lastScan) < l.window {
		return
	}
	l.lastScan = now
	for k, c := range l.clients {
		if now.Sub(c.lastSeen) > l.window {
			delete(l.clients, k)
		}
	}
}

func (l *rateLimiter) middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok, retry := l.reserve(clientIP(r, l.trustProxy))
		if !ok {
			metrics.RecordRateLimited()
			writeRetry(w, "rate_limited", retry, errRateLimited)
			return
		}
		next(w, r)
	}
}

// clientIP returns the peer host. Behind a trusted proxy it returns the last
// X-Forwarded-For hop instead, since earlier hops are client supplied.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		fwd := r.Header.Values("X-Forwarded-For")
		if n := len(fwd); n > 0 {
			hops := strings.Split(fwd[n-1], ",")
			if ip := strings.TrimSpace(hops[len(hops)-1]); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
