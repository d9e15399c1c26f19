package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/arryn/arryn/internal/seeding"
	"github.com/arryn/arryn/pkg/logger"
)

const (
	defaultDocuments = 1000
	defaultBatchSize = 100
	defaultDays      = 14
	defaultLimit     = 20
	defaultTimeout   = 30 * time.Second
	defaultWait      = 30 * time.Second
	runTimeout       = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:8000", "Base URL of the service")
		documents = flag.Int("documents", defaultDocuments, "Number of documents to generate")
		batchSize = flag.Int("batch", defaultBatchSize, "Documents per request")
		workers   = flag.Int("workers", runtime.NumCPU(), "Concurrent submitters")
		days      = flag.Int("days", defaultDays, "Spread extraction dates over this many days")
		limit     = flag.Int("limit", defaultLimit, "limit used when reading the ranked views")
		seed      = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Random seed") //nolint:gosec // nanoseconds are positive
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		wait      = flag.Duration("wait", defaultWait, "How long to wait for documents to be stored")
		output    = flag.String("output", "", "Write generated documents to this JSON file")
		verbose   = flag.Bool("verbose", false, "Log every batch")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seeding.ShowHelp()
		return
	}

	level := "info"
	if *verbose {
		level = "debug"
	}
	if err := logger.Init(logger.WithLevel(level)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	cfg := &seeding.Config{
		BaseURL:    *baseURL,
		Documents:  *documents,
		BatchSize:  max(*batchSize, 1),
		Workers:    max(*workers, 1),
		Days:       max(*days, 1),
		Limit:      max(*limit, 1),
		Timeout:    *timeout,
		Wait:       *wait,
		Seed:       *seed,
		OutputFile: *output,
		Verbose:    *verbose,
	}

	if _, err := seeding.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "seeding failed", logger.Error(err))
		os.Exit(1)
	}
}
