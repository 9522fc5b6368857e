// Package main is the entry point for the farmgate controller.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"farmgate/internal/auth"
	"farmgate/internal/config"
	"farmgate/internal/controller"
	"farmgate/internal/controller/handlers"
	"farmgate/internal/delegate"
	"farmgate/internal/extractor"
	"farmgate/internal/farm"
	"farmgate/internal/history"
	"farmgate/internal/logger"
	"farmgate/internal/observability"
	"farmgate/internal/pipeline"
	"farmgate/internal/report"
	"farmgate/internal/scheduler"
	"farmgate/internal/store"
	"farmgate/internal/store/objectstore"
	"farmgate/internal/store/postgres"
	"farmgate/internal/upload"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogger := logger.New()
	ctx := context.Background()

	// Tracing
	if cfg.CollectorAddr != "" {
		shutdownTracer, err := observability.InitTracing(ctx, "farmgate-controller", cfg.CollectorAddr)
		if err != nil {
			log.Fatalf("Failed to init tracing: %v", err)
		}
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				log.Printf("Failed to shutdown tracer: %v", err)
			}
		}()
	}

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to init metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Printf("Failed to shutdown metrics: %v", err)
		}
	}()
	metrics, err := observability.NewMetrics()
	if err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}

	// Farm client with cached credentials
	creds := auth.NewCachingProvider(auth.StaticProvider{Token: cfg.FarmToken}, cfg.CredentialTTL)
	farmClient := farm.NewClient(cfg.FarmURL, creds)

	// Object store: report cache and the history document
	objects, err := objectstore.New(cfg.StoreRoot, cfg.StoreBaseURL)
	if err != nil {
		log.Fatalf("Failed to open object store: %v", err)
	}
	cache := &store.ReportCache{Objects: objects, Prefix: cfg.ReportCachePrefix}

	// History store: document by default, PostgreSQL when configured
	var historyStore store.HistoryStore = &store.DocumentHistoryStore{Objects: objects}
	var ready func(context.Context) error
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to DB: %v", err)
		}
		defer pg.Close()
		historyStore = pg
		ready = pg.Ping
		log.Println("Using PostgreSQL history store")
	}

	// Extraction delegate
	var invoker delegate.Invoker
	switch cfg.DelegateMode {
	case "exec":
		invoker = &delegate.ExecInvoker{Path: cfg.ExtractorPath}
		log.Printf("Using exec delegate (%s)", cfg.ExtractorPath)
	case "docker":
		dockerInv, err := delegate.NewDockerInvoker(cfg.ExtractorImage, extractorEnv(cfg))
		if err != nil {
			log.Fatalf("Failed to create Docker delegate: %v", err)
		}
		invoker = dockerInv
		log.Printf("Using docker delegate (%s)", cfg.ExtractorImage)
	default:
		invoker = extractor.New(cache, slogger)
		log.Println("Using in-process extraction")
	}

	// Pipeline wiring
	budgets := pipeline.Budgets{
		Binary:   pollPolicy(cfg.PollPolicy, cfg.BinaryPollInterval, cfg.BinaryMaxAttempts),
		Bundle:   pollPolicy(cfg.PollPolicy, cfg.BundlePollInterval, cfg.BundleMaxAttempts),
		TestSpec: pollPolicy(cfg.PollPolicy, cfg.TestSpecPollInterval, cfg.TestSpecMaxAttempts),
	}
	engine := upload.New(farmClient, slogger, metrics)
	sched := scheduler.New(farmClient, slogger)
	runs := pipeline.New(farmClient, engine, sched, budgets, cfg.ProjectHandle, cfg.TestBundlePath, slogger)
	resolver := report.New(farmClient, cache, invoker, slogger, metrics)
	hist := history.NewService(historyStore, farmClient, cfg.ProjectHandle, slogger, metrics)

	h := handlers.New(runs, resolver, hist, ready, slogger)
	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := controller.New(addr, h, controller.Options{
		APIKeyHash:     cfg.APIKeyHash,
		RateLimit:      cfg.RateLimit,
		RateLimitBurst: cfg.RateLimitBurst,
		Metrics:        metricsHandler,
	})

	go func() {
		log.Printf("Farmgate controller starting on %s", addr)
		if err := srv.Run(ctx); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down controller...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited properly")
}

func pollPolicy(kind string, interval time.Duration, attempts int) upload.Policy {
	if kind == "exponential" {
		return upload.ExponentialPolicy(interval, attempts)
	}
	return upload.ConstantPolicy(interval, attempts)
}

// extractorEnv passes the store location through to a containerized
// extractor so it writes into the same cache the controller reads.
func extractorEnv(cfg *config.Config) []string {
	return []string{
		"STORE_ROOT=" + cfg.StoreRoot,
		"STORE_BASE_URL=" + cfg.StoreBaseURL,
		"REPORT_CACHE_PREFIX=" + cfg.ReportCachePrefix,
	}
}
