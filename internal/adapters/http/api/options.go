package api

import (
	"time"

	"github.com/arryn/arryn/pkg/logger"
)

// Option configures a Server.
type Option func(*Server)

// WithLimits sets the default and maximum of the limit query parameter.
func WithLimits(defaultLimit, maxLimit int) Option {
	return func(s *Server) {
		if defaultLimit > 0 && maxLimit >= defaultLimit {
			s.defaultLimit = defaultLimit
			s.maxLimit = maxLimit
		}
	}
}

// WithDefaultDays sets the windows used when days is not given.
func WithDefaultDays(trending, report int) Option {
	return func(s *Server) {
		if trending > 0 {
			s.trendingDays = trending
		}
		if report > 0 {
			s.reportDays = report
		}
	}
}

// WithRateLimit allows each client IP requests per window. Zero disables it.
func WithRateLimit(requests int, window time.Duration) Option {
	return func(s *Server) {
		s.limiter = newRateLimiter(requests, window)
	}
}

// WithTrustProxy keys the rate limit on the last X-Forwarded-For hop instead
// of the peer address. Enable it only behind a proxy that appends that header.
func WithTrustProxy(trust bool) Option {
	return func(s *Server) {
		s.trustProxy = trust
	}
}

// WithCacheTTL caches successful GET responses for ttl. Zero disables it.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.cache = newResponseCache(ttl)
	}
}

// WithSlowRequest sets the duration above which requests are logged as slow.
func WithSlowRequest(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.slow = d
		}
	}
}

// WithMaxBodyBytes bounds POST payloads.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
