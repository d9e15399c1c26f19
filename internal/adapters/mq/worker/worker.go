// Package worker persists queued documents in batches.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arryn/arryn/internal/domain/model"
	"github.com/arryn/arryn/pkg/logger"
	"github.com/arryn/arryn/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultBatchSize     = 100
	defaultFlushInterval = 500 * time.Millisecond
	flushTimeout         = 10 * time.Second
	poolShutdownTimeout  = 30 * time.Second
)

// Sink stores a batch of documents and reports how many were new.
type Sink interface {
	Insert(ctx context.Context, docs []model.Document) (int, error)
}

// Queue defines how workers receive documents.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Document
}

// Worker drains the queue into the sink.
type Worker interface {
	// Run consumes until the queue is closed, ctx is done or Shutdown is called.
	Run(ctx context.Context)

	// Shutdown stops the worker after flushing its pending batch.
	Shutdown(ctx context.Context) error
}

// Counters are the totals a pool has processed.
type Counters struct {
	Stored  int64 `json:"stored"`
	Batches int64 `json:"batches"`
	Failed  int64 `json:"failed"`
}

// InMemoryWorker batches documents by size and by time.
type InMemoryWorker struct {
	queue         Queue
	sink          Sink
	name          string
	batchSize     int
	flushInterval time.Duration
	counters      *counters

	onStored  func(ctx context.Context, docs []model.Document, stored int)
	onFailure func(ctx context.Context, docs []model.Document, err error)

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

type counters struct {
	stored, batches, failed atomic.Int64
}

// NewInMemoryWorker creates a worker reading q and writing to sink.
func NewInMemoryWorker(q Queue, sink Sink, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:         q,
		sink:          sink,
		name:          "worker",
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		counters:      &counters{},
		shutdown:      make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	batch := make([]model.Document, 0, w.batchSize)
	in := w.queue.Dequeue(ctx)
	for {
		select {
		case d, ok := <-in:
			if !ok {
				w.flush(ctx, batch)
				return
			}
			metrics.RecordQueueDequeue()
			batch = append(batch, d)
			if len(batch) >= w.batchSize {
				w.flush(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(ctx, batch)
				batch = batch[:0]
			}
		case <-w.shutdown:
			w.flush(ctx, batch)
			return
		case <-ctx.Done():
			w.flush(ctx, batch)
			return
		}
	}
}

// Shutdown signals the worker and waits for it to exit.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// flush writes batch with its own deadline so a cancelled run context
// does not lose the pending documents. Hooks run before batch is reused.
func (w *InMemoryWorker) flush(ctx context.Context, batch []model.Document) {
	if len(batch) == 0 {
		return
	}
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()

	start := time.Now()
	stored, err := w.sink.Insert(fctx, batch)
	if err != nil {
		w.logger.Error(ctx, "batch insert failed",
			logger.Int("documents", len(batch)),
			logger.Error(err),
		)
		if w.onFailure != nil {
			w.onFailure(ctx, batch, err)
		}
		w.counters.failed.Add(int64(len(batch)))
		metrics.RecordWorkerError()
		metrics.RecordIngest(metrics.IngestDropped, len(batch))
		return
	}
	w.counters.batches.Add(1)
	w.counters.stored.Add(int64(stored))
	metrics.RecordWorkerBatch(float64(time.Since(start).Microseconds()) / 1000)
	metrics.RecordIngest(metrics.IngestStored, stored)
	if skipped := len(batch) - stored; skipped > 0 {
		metrics.RecordIngest(metrics.IngestDuplicate, skipped)
	}
	w.logger.Debug(ctx, "batch stored",
		logger.Int("documents", len(batch)),
		logger.Int("stored", stored),
		logger.Duration("took", time.Since(start)),
	)
	if w.onStored != nil {
		w.onStored(ctx, batch, stored)
	}
}

// Pool manages multiple workers sharing one queue and sink.
type Pool struct {
	workers  []*InMemoryWorker
	queue    Queue
	counters *counters
	logger   logger.Logger
}

// NewPool creates workerCount workers (at least one). opts apply to every
// worker; names are assigned per worker.
func NewPool(workerCount int, q Queue, sink Sink, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	p := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    q,
		counters: &counters{},
		logger:   logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{}, opts...)
		wopts = append(wopts, WithName("worker-"+strconv.Itoa(i)), withCounters(p.counters))
		p.workers[i] = NewInMemoryWorker(q, sink, wopts...)
	}
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerActiveCount(len(p.workers))
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Counters returns processing totals across workers.
func (p *Pool) Counters() Counters {
	return Counters{
		Stored:  p.counters.stored.Load(),
		Batches: p.counters.batches.Load(),
		Failed:  p.counters.failed.Load(),
	}
}

// Shutdown closes the queue, lets workers drain it and waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
