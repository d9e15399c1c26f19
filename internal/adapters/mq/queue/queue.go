// Package queue buffers ingested documents between the HTTP handler and the
// persistence workers.
package queue

import (
	"context"
	"sync"

	"github.com/arryn/arryn/internal/domain/model"
	"github.com/arryn/arryn/pkg/metrics"
)

const defaultQueueCapacity = 10000

// Document is the payload type flowing through the queue.
type Document = model.Document

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a document. It returns false when the queue is full, closed
	// or ctx is done; it never blocks.
	Enqueue(ctx context.Context, d Document) bool

	// Dequeue returns the channel consumers read from. It is closed, after
	// the remaining documents are drained, once Close is called.
	Dequeue(ctx context.Context) <-chan Document

	// Len returns the number of queued documents.
	Len(ctx context.Context) int

	// Cap returns the queue capacity.
	Cap() int

	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue with a buffered channel.
type InMemoryQueue struct {
	docs     chan Document
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a bounded queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.docs = make(chan Document, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)
	return q
}

func (q *InMemoryQueue) Enqueue(ctx context.Context, d Document) bool { //nolint:gocritic // value semantics for channel send
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed || ctx.Err() != nil {
		metrics.RecordQueueEnqueueError()
		return false
	}
	select {
	case q.docs <- d:
		metrics.RecordQueueEnqueue()
		q.observe()
		return true
	default:
		metrics.RecordQueueEnqueueError()
		return false
	}
}

func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Document {
	return q.docs
}

func (q *InMemoryQueue) Len(_ context.Context) int {
	return q.observe()
}

func (q *InMemoryQueue) Cap() int { return q.capacity }

// Close stops accepting documents. Queued documents stay readable.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.docs)
	q.closed = true
	return nil
}

func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *InMemoryQueue) observe() int {
	size := len(q.docs)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}
