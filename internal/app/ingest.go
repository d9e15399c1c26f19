package service

import (
	"context"
	"fmt"

	"github.com/arryn/arryn/internal/domain/ingest"
	"github.com/arryn/arryn/internal/domain/model"
	"github.com/arryn/arryn/pkg/logger"
	"github.com/arryn/arryn/pkg/metrics"
)

// IngestResult reports what happened to one POSTed payload.
type IngestResult struct {
	Accepted   int                `json:"accepted"`
	IDs        []string           `json:"ids"`
	Duplicates int                `json:"duplicates"`
	Rejected   []ingest.Rejection `json:"rejected"`
}

// Ingest decodes body, drops observations already seen and queues the rest
// for storage. Payload-level problems return ingest errors. When the queue
// fills up the documents queued so far stay accepted, the remaining ones are
// forgotten by the deduper and ErrBackpressure is returned with the partial
// result.
func (s *Service) Ingest(ctx context.Context, body []byte) (IngestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return IngestResult{}, ErrNotStarted
	}

	batch, err := s.normalizer.Decode(body)
	if err != nil {
		return IngestResult{}, err
	}

	res := IngestResult{
		IDs:      make([]string, 0, len(batch.Documents)),
		Rejected: batch.Rejected,
	}
	if res.Rejected == nil {
		res.Rejected = []ingest.Rejection{}
	}
	metrics.RecordIngest(metrics.IngestReceived, len(batch.Documents)+len(batch.Rejected))
	metrics.RecordIngest(metrics.IngestRejected, len(batch.Rejected))

	for i, doc := range batch.Documents {
		fp := ingest.Fingerprint(doc)
		if s.deduper.SeenAndRecord(ctx, fp) {
			res.Duplicates++
			continue
		}
		if !s.queue.Enqueue(ctx, doc) {
			s.deduper.Unrecord(ctx, fp)
			metrics.RecordIngest(metrics.IngestDuplicate, res.Duplicates)
			s.logger.Warn(ctx, "ingest queue full",
				logger.Int("accepted", res.Accepted),
				logger.Int("remaining", len(batch.Documents)-i),
			)
			return res, fmt.Errorf("%w: %d of %d documents accepted",
				ErrBackpressure, res.Accepted, len(batch.Documents))
		}
		res.Accepted++
		res.IDs = append(res.IDs, doc.ID)
	}
	metrics.RecordIngest(metrics.IngestDuplicate, res.Duplicates)

	s.logger.Debug(ctx, "payload ingested",
		logger.Int("accepted", res.Accepted),
		logger.Int("duplicates", res.Duplicates),
		logger.Int("rejected", len(res.Rejected)),
	)
	return res, nil
}

// OnStored registers fn to run each time a batch of ingested documents has
// been written to the data source. fn runs on a worker goroutine.
func (s *Service) OnStored(fn func()) {
	if fn == nil {
		return
	}
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.storedHooks = append(s.storedHooks, fn)
}

func (s *Service) batchStored(_ context.Context, _ []model.Document, stored int) {
	if stored == 0 {
		return
	}
	s.hooksMu.Lock()
	hooks := append([]func(){}, s.storedHooks...)
	s.hooksMu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// batchFailed forgets the fingerprints of a batch the data source refused, so
// the client can post those documents again.
func (s *Service) batchFailed(ctx context.Context, docs []model.Document, err error) {
	for _, d := range docs {
		s.deduper.Unrecord(ctx, ingest.Fingerprint(d))
	}
	s.logger.Warn(ctx, "dropped batch may be posted again",
		logger.Int("documents", len(docs)),
		logger.Error(err),
	)
}
