// Package service wires the data source, the ingestion pipeline and the
// scoring and statistics engines into the operations served over HTTP.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arryn/arryn/internal/adapters/mq/queue"
	"github.com/arryn/arryn/internal/adapters/mq/worker"
	"github.com/arryn/arryn/internal/adapters/source"
	"github.com/arryn/arryn/internal/domain/dedupe"
	"github.com/arryn/arryn/internal/domain/ingest"
	"github.com/arryn/arryn/internal/domain/model"
	"github.com/arryn/arryn/internal/domain/scoring"
	"github.com/arryn/arryn/pkg/logger"
	"github.com/arryn/arryn/pkg/metrics"
)

// Service implements the API dependencies for the offers API.
type Service struct {
	mu sync.RWMutex

	// Core components
	source     source.DataSource
	ranker     *scoring.Ranker
	normalizer *ingest.Normalizer
	deduper    dedupe.Deduper
	queue      *queue.InMemoryQueue
	pool       *worker.Pool

	// Configuration
	workerCount   int
	queueSize     int
	batchSize     int
	flushInterval time.Duration
	dedupeSize    int
	now           func() time.Time
	newID         func() string

	hooksMu     sync.Mutex
	storedHooks []func()

	started bool
	logger  logger.Logger
}

// New constructs a Service reading from and writing to src.
func New(src source.DataSource, opts ...Option) *Service {
	s := &Service{
		source:        src,
		workerCount:   4,
		queueSize:     10_000,
		batchSize:     100,
		flushInterval: 500 * time.Millisecond,
		dedupeSize:    100_000,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.ranker = scoring.New(scoring.WithClock(s.now))
	var nopts []ingest.Option
	if s.newID != nil {
		nopts = append(nopts, ingest.WithIDFunc(s.newID))
	}
	s.normalizer = ingest.NewNormalizer(nopts...)
	return s
}

// Start builds the ingestion pipeline and launches its workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.source,
		worker.WithBatchSize(s.batchSize),
		worker.WithFlushInterval(s.flushInterval),
		worker.WithOnStored(s.batchStored),
		worker.WithOnFailure(s.batchFailed),
	)
	// Workers run until Stop so queued documents are drained, not dropped.
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "offers service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("batchSize", s.batchSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains queued documents into the data source and stops the workers.
// The data source itself is left open; its owner closes it.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping offers service...")

	err := s.pool.Shutdown(ctx)
	s.started = false
	if err != nil {
		s.logger.Error(ctx, "worker pool did not drain", logger.Error(err))
		return err
	}
	s.logger.Info(ctx, "offers service stopped")
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"batchSize":   s.batchSize,
		"dedupeSize":  s.dedupeSize,
	}

	if count, err := s.source.Count(ctx); err == nil {
		stats["totalDocuments"] = count
		metrics.UpdateDocumentsTotal(count)
	} else {
		stats["sourceError"] = err.Error()
	}

	if s.started {
		c := s.pool.Counters()
		stats["queueLength"] = s.queue.Len(ctx)
		stats["fingerprints"] = s.deduper.Size()
		stats["storedDocuments"] = c.Stored
		stats["batches"] = c.Batches
		stats["failedBatches"] = c.Failed
		metrics.UpdateWorkerActiveCount(s.pool.Size())
	}
	return stats
}

// Ping checks the data source.
func (s *Service) Ping(ctx context.Context) error {
	return s.source.Ping(ctx)
}

// documents runs a data source query and records its latency.
func (s *Service) documents(ctx context.Context, op string, q source.Query) ([]model.Document, error) {
	start := time.Now()
	docs, err := s.source.Documents(ctx, q)
	metrics.RecordSourceLatency(op, sinceMs(start))
	if err != nil {
		metrics.RecordSourceError(op)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return docs, nil
}

// offers loads the priced, dated documents matching q as offers.
func (s *Service) offers(ctx context.Context, op string, q source.Query) ([]model.Offer, error) {
	q.PricedOnly = true
	docs, err := s.documents(ctx, op, q)
	if err != nil {
		return nil, err
	}
	return model.Offers(docs), nil
}

func (s *Service) observeEngine(op string, start time.Time) {
	metrics.RecordEngineLatency(op, sinceMs(start))
}

func sinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
