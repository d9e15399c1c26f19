package worker

import (
	"context"
	"time"

	"github.com/arryn/arryn/internal/domain/model"
	"github.com/arryn/arryn/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name used in logs.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithBatchSize sets how many documents are written per insert.
func WithBatchSize(n int) Option {
	return func(w *InMemoryWorker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithFlushInterval bounds how long a partial batch may wait.
func WithFlushInterval(d time.Duration) Option {
	return func(w *InMemoryWorker) {
		if d > 0 {
			w.flushInterval = d
		}
	}
}

// WithOnStored registers fn to run after each batch the sink accepts, with
// the number of documents that were new.
func WithOnStored(fn func(ctx context.Context, docs []model.Document, stored int)) Option {
	return func(w *InMemoryWorker) {
		w.onStored = fn
	}
}

// WithOnFailure registers fn to run with each batch the sink rejects. The
// slice is only valid for the duration of the call.
func WithOnFailure(fn func(ctx context.Context, docs []model.Document, err error)) Option {
	return func(w *InMemoryWorker) {
		w.onFailure = fn
	}
}

func withCounters(c *counters) Option {
	return func(w *InMemoryWorker) {
		w.counters = c
	}
}
