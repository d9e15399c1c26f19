package seeding

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arryn/arryn/internal/domain/model"
	"github.com/arryn/arryn/pkg/logger"
)

const maxRetries = 5

type submitCounters struct {
	batches, accepted, duplicates, rejected, failed, throttled atomic.Int64
}

// submit posts docs in batches from cfg.Workers goroutines. Batches refused
// with 429 are retried after the advertised delay.
func submit(ctx context.Context, c *client, cfg *Config, docs []model.Document, stats *Stats) {
	log := logger.Named("seeding")
	log.Info(ctx, "submitting documents",
		logger.Int("documents", len(docs)),
		logger.Int("batchSize", cfg.BatchSize),
		logger.Int("workers", cfg.Workers))

	var counters submitCounters
	batches := make(chan []model.Document, cfg.Workers*2)
	var wg sync.WaitGroup

	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range batches {
				submitBatch(ctx, c, batch, &counters, cfg.Verbose)
			}
		}()
	}

	go func() {
		defer close(batches)
		for start := 0; start < len(docs); start += cfg.BatchSize {
			end := min(start+cfg.BatchSize, len(docs))
			select {
			case <-ctx.Done():
				return
			case batches <- docs[start:end]:
			}
		}
	}()
	wg.Wait()

	stats.Batches = int(counters.batches.Load())
	stats.Accepted = int(counters.accepted.Load())
	stats.Duplicates = int(counters.duplicates.Load())
	stats.Rejected = int(counters.rejected.Load())
	stats.Failed = int(counters.failed.Load())
	stats.Throttled = int(counters.throttled.Load())

	log.Info(ctx, "submission completed",
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Int("throttled", stats.Throttled))
}

func submitBatch(ctx context.Context, c *client, batch []model.Document, counters *submitCounters, verbose bool) {
	log := logger.Named("seeding")
	for attempt := 0; ; attempt++ {
		status, body, err := c.postJSON(ctx, "/api/archivos", batch)
		if err != nil {
			counters.failed.Add(int64(len(batch)))
			log.Warn(ctx, "batch failed", logger.Error(err))
			return
		}

		var res ingestResponse
		_ = json.Unmarshal(body, &res)

		switch status {
		case http.StatusAccepted:
			counters.batches.Add(1)
			counters.accepted.Add(int64(res.Accepted))
			counters.duplicates.Add(int64(res.Duplicates))
			counters.rejected.Add(int64(len(res.Rejected)))
			if verbose {
				log.Debug(ctx, "batch accepted", logger.Int("accepted", res.Accepted), logger.Int("duplicates", res.Duplicates))
			}
			return
		case http.StatusTooManyRequests:
			counters.throttled.Add(1)
			// A full ingest queue may have taken part of the batch already;
			// resending it reports those as duplicates.
			if attempt >= maxRetries {
				counters.failed.Add(int64(len(batch)))
				return
			}
			var e errorResponse
			_ = json.Unmarshal(body, &e)
			wait := time.Duration(max(e.RetryAfter, 1)) * time.Second
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
		default:
			counters.failed.Add(int64(len(batch)))
			log.Warn(ctx, "batch refused", logger.Int("status", status), logger.String("body", string(body)))
			return
		}
	}
}
