package seeding

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/arryn/arryn/internal/domain/model"
	"github.com/arryn/arryn/pkg/logger"
)

const (
	pollInterval        = 200 * time.Millisecond
	directoryPermission = 0o750
	filePermission      = 0o600
)

// Run generates documents, submits them, waits for them to be stored and
// verifies the ranked views.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Named("seeding")
	log.Info(ctx, "starting seeding run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("documents", cfg.Documents),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout))

	c := newClient(cfg.BaseURL, cfg.Timeout)

	before, err := storedDocuments(ctx, c)
	if err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	docs := NewGenerator(cfg.Seed, time.Now(), cfg.Days).Generate(cfg.Documents)
	stats.Generated = len(docs)
	if cfg.OutputFile != "" {
		if err := saveDocuments(cfg.OutputFile, docs); err != nil {
			log.Warn(ctx, "failed to save generated documents", logger.Error(err))
		}
	}

	submit(ctx, c, cfg, docs, stats)

	if err := waitForDocuments(ctx, c, before+stats.Accepted, cfg.Wait); err != nil {
		log.Warn(ctx, "documents not fully stored before verification", logger.Error(err))
	}

	if err := verify(ctx, c, cfg, stats); err != nil {
		return stats, fmt.Errorf("verification failed: %w", err)
	}

	stats.Duration = time.Since(stats.StartTime)
	log.Info(ctx, "seeding run completed",
		logger.Int("accepted", stats.Accepted),
		logger.Int("ranked", stats.Ranked),
		logger.Int("trending", stats.Trending),
		logger.Duration("duration", stats.Duration))
	return stats, nil
}

// storedDocuments reads totalDocuments from /stats.
func storedDocuments(ctx context.Context, c *client) (int, error) {
	var stats map[string]any
	if err := c.getJSON(ctx, "/stats", &stats); err != nil {
		return 0, err
	}
	n, _ := stats["totalDocuments"].(float64)
	return int(n), nil
}

func waitForDocuments(ctx context.Context, c *client, want int, wait time.Duration) error {
	deadline := time.Now().Add(wait)
	for {
		got, err := storedDocuments(ctx, c)
		if err == nil && got >= want {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("stored %d of %d documents after %s", got, want, wait)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func saveDocuments(path string, docs []model.Document) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, filePermission)
}
