package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/arryn/arryn/internal/adapters/http/api"
	"github.com/arryn/arryn/internal/adapters/http/site"
	"github.com/arryn/arryn/internal/adapters/http/swagger"
	"github.com/arryn/arryn/internal/adapters/source"
	app "github.com/arryn/arryn/internal/app"
	"github.com/arryn/arryn/internal/config"
	"github.com/arryn/arryn/pkg/logger"
	"github.com/arryn/arryn/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Our own runtime gauges replace the default Go collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		// The logger is not configured yet.
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithLevel(cfg.LogLevel)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()

	src, err := openSource(ctx, cfg, log)
	if err != nil {
		log.Fatal(ctx, "failed to open data source", logger.String("data_source", cfg.DataSource), logger.Error(err))
	}
	defer src.Close()

	svc := app.New(src,
		app.WithLogger(log.Named("service")),
		app.WithWorkerCount(cfg.IngestWorkers),
		app.WithQueueSize(cfg.IngestQueueSize),
		app.WithBatchSize(cfg.IngestBatchSize),
		app.WithFlushInterval(cfg.IngestFlushInterval()),
		app.WithDedupeSize(cfg.DedupeSize),
	)
	if err := svc.Start(ctx); err != nil {
		log.Fatal(ctx, "failed to start service", logger.Error(err))
	}

	if path := os.Getenv(config.EnvConfigPath); cfg.WatchConfig && path != "" {
		go watchConfig(ctx, path, log)
	}

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	// Drain pending documents before the source is closed by the deferred Close.
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(ctx, "service shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// openSource opens the configured data source. When the live store cannot be
// reached and fallback is enabled, the fixture store is used instead.
func openSource(ctx context.Context, cfg *config.Config, log logger.Logger) (source.DataSource, error) {
	src, err := source.Open(ctx, source.Config{
		Kind:        cfg.DataSource,
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DBMaxConns,
		FixturePath: cfg.FixturePath,
	})
	if err == nil {
		return src, nil
	}
	if cfg.DataSource != config.SourceLive || !cfg.FallbackToFixture {
		return nil, err
	}
	log.Warn(ctx, "live data source unavailable, falling back to fixture", logger.Error(err))
	return source.LoadFixture(cfg.FixturePath)
}

// newHandler builds the HTTP routes served by the process.
func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service) http.Handler {
	mux := http.NewServeMux()
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc,
		api.WithLimits(cfg.DefaultLimit, cfg.MaxLimit),
		api.WithDefaultDays(cfg.TrendingDays, cfg.ReportDays),
		api.WithRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow()),
		api.WithTrustProxy(cfg.TrustProxy),
		api.WithCacheTTL(cfg.CacheTTL()),
		api.WithSlowRequest(cfg.SlowRequest()),
		api.WithLogger(logger.Named("http")),
	)
	apiServer.Register(ctx, mux)
	return mux
}

func watchConfig(ctx context.Context, path string, log logger.Logger) {
	err := config.Watch(ctx, path, func(next *config.Config) {
		if err := logger.SetLevelString(next.LogLevel); err != nil {
			log.Warn(ctx, "ignoring reloaded log_level", logger.String("log_level", next.LogLevel), logger.Error(err))
			return
		}
		log.Info(ctx, "log level updated", logger.String("log_level", next.LogLevel))
	})
	if err != nil {
		log.Warn(ctx, "config watcher stopped", logger.Error(err))
	}
}

// startSystemMetricsUpdater refreshes runtime gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc)
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

func updateServiceMetrics(ctx context.Context, svc *app.Service) {
	stats := svc.GetStats(ctx)

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if total, ok := stats["totalDocuments"].(int); ok {
		metrics.UpdateDocumentsTotal(total)
	}
	if workers, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerActiveCount(workers)
	}
}
