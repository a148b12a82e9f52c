package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"newspulse/adapter"
	"newspulse/cache"
	"newspulse/config"
	"newspulse/fetcher"
	"newspulse/handler"
	"newspulse/logger"
	"newspulse/metrics"
	"newspulse/ratelimit"
	"newspulse/registry"
	"newspulse/service"
	"newspulse/surge"
	"newspulse/telemetry"
)

func main() {
	// Optional .env for local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(cfg.Log.ServiceName, cfg.Log.Level)

	shutdownTracing, err := telemetry.Init(context.Background(), cfg.Log.ServiceName, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.SampleRatio)
	if err != nil {
		log.Error("failed to configure trace exporter", "error", err)
		os.Exit(1)
	}
	if cfg.Telemetry.Enabled() {
		log.Info("trace export enabled", "endpoint", cfg.Telemetry.OTLPEndpoint, "sampleRatio", cfg.Telemetry.SampleRatio)
	}

	reg, err := registry.Load(cfg.Registry.Path)
	if err != nil {
		log.Error("failed to load source registry", "path", cfg.Registry.Path, "error", err)
		os.Exit(1)
	}
	log.Info("source registry loaded", "path", cfg.Registry.Path, "sources", len(reg.Sources()))

	m := metrics.New(prometheus.DefaultRegisterer)

	var persistent cache.PersistentStore
	if cfg.Cache.RedisURL != "" {
		store, err := cache.NewRedisStore(cfg.Cache.RedisURL)
		if err != nil {
			log.Error("failed to configure redis cache tier", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		persistent = store
	} else {
		log.Warn("REDIS_URL not set, running on the in-process cache tier only")
	}

	cacheService := cache.NewService[service.Snapshot](persistent, cache.Options{
		FreshWindow:    cfg.Cache.FreshWindow,
		StaleWindow:    cfg.Cache.StaleWindow,
		RefreshTimeout: cfg.Fetch.AggregateTimeout,
		Logger:         log,
		Metrics:        m,
	}, func(s service.Snapshot) int { return len(s.Items) })

	adapters := adapter.NewRegistry(cfg, adapter.Deps{
		Client:    adapter.NewHTTPClient(cfg.Fetch.CallTimeout),
		Limiter:   ratelimit.NewHostLimiter(cfg.Fetch.HostInterval),
		Logger:    log,
		UserAgent: cfg.Fetch.UserAgent,
	})

	batchFetcher := fetcher.New(adapters, log, m)
	detector := surge.NewDetector(log)
	newsService := service.NewNewsService(reg, batchFetcher, cacheService, detector, cfg, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Cache.PrewarmInterval > 0 {
		go newsService.RunPrewarm(ctx, cfg.Cache.PrewarmInterval)
	}

	e := handler.NewRouter(cfg, newsService, persistent, log)
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		log.Info("starting server", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped unexpectedly", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("trace exporter shutdown failed", "error", err)
	}
}
