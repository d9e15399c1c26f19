package scoring

import "time"

// Option applies a configuration option to the Ranker.
type Option func(*Ranker)

// WithClock sets the time source used for freshness.
func WithClock(now func() time.Time) Option {
	return func(r *Ranker) {
		if now != nil {
			r.now = now
		}
	}
}
