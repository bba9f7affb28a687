package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/XavierBriggs/Argus/adapters/oddsfeed"
	"github.com/XavierBriggs/Argus/internal/aggregate"
	"github.com/XavierBriggs/Argus/internal/cache"
	"github.com/XavierBriggs/Argus/internal/collector"
	"github.com/XavierBriggs/Argus/internal/config"
	"github.com/XavierBriggs/Argus/internal/logging"
	"github.com/XavierBriggs/Argus/internal/metrics"
	"github.com/XavierBriggs/Argus/internal/minerva"
	"github.com/XavierBriggs/Argus/internal/normalize"
	"github.com/XavierBriggs/Argus/internal/ratelimit"
	"github.com/XavierBriggs/Argus/internal/registry"
	"github.com/XavierBriggs/Argus/internal/scheduler"
	"github.com/XavierBriggs/Argus/internal/writer"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("✗ failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("✗ invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Printf("✗ failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Loaded configuration (%d sources, %d sports)\n", len(cfg.Sources), len(cfg.Sports))

	// History DB is opt-in; when enabled it must be reachable
	var db *sql.DB
	if cfg.DB.Enabled {
		db, err = sql.Open("postgres", cfg.DB.DSN())
		if err != nil {
			fmt.Printf("✗ failed to open history DB: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			fmt.Printf("✗ failed to ping history DB: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("✓ Connected to history DB")
	}

	// Redis backs the quote cache and the arbitrage alert stream. An
	// unreachable Redis degrades collection to uncached, it does not stop it.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		fmt.Printf("✗ Redis unreachable, running uncached: %v\n", err)
		logger.Warn("redis unreachable at startup", "addr", cfg.Redis.Addr, "error", err)
	} else {
		fmt.Println("✓ Connected to Redis")
	}

	// Every configured source fetches odds through the shared feed client
	feed := oddsfeed.NewClient()
	sourceRegistry := registry.NewFetcherRegistry()
	for _, src := range cfg.Sources {
		if err := sourceRegistry.Register(src.Name, feed); err != nil {
			fmt.Printf("✗ failed to register source %s: %v\n", src.Name, err)
			os.Exit(1)
		}
	}

	fmt.Printf("✓ Registered %d source(s)\n", sourceRegistry.Count())

	limiter := ratelimit.NewLimiter(cfg.Sources, logger)

	remote := minerva.NewClient(minerva.Config{
		BaseURL: cfg.Minerva.BaseURL,
		APIKey:  cfg.Minerva.APIKey,
		Enabled: cfg.Minerva.Enabled,
		Timeout: cfg.Minerva.Timeout(),
	}, logger)
	normalizer := normalize.NewNormalizer(remote, logger)

	if remote.IsEnabled() {
		fmt.Println("✓ Minerva normalization enabled")
	} else {
		fmt.Println("  Minerva not configured, using local normalization")
	}

	store := cache.NewRedisStore(redisClient)
	coll := collector.NewCollector(cfg.Sources, sourceRegistry, limiter, store, normalizer, cfg.Collector.CacheTTL(), logger)
	engine := aggregate.NewEngine()

	historyWriter := writer.NewWriter(db, logger)
	historyWriter.SetAlertStream(redisClient)
	if db != nil {
		fmt.Println("✓ History writer enabled")
	}

	sched := scheduler.NewScheduler(coll, engine, historyWriter, cfg.Sports, cfg.Collector.PollInterval(), logger)

	statusHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(coll.Status()); err != nil {
			logger.Warn("status encode failed", "error", err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return metrics.Serve(gctx, cfg.Metrics.Addr, statusHandler, logger)
	})

	if err := sched.Start(ctx); err != nil {
		fmt.Printf("✗ failed to start scheduler: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✓ Argus started - polling odds")
	fmt.Printf("  Poll interval: %v\n", cfg.Collector.PollInterval())
	fmt.Printf("  Cache TTL: %v\n", cfg.Collector.CacheTTL())
	fmt.Printf("  Ops listener: %s\n", cfg.Metrics.Addr)
	fmt.Println()

	for _, src := range cfg.Sources {
		state := "enabled"
		if !src.Enabled {
			state = "disabled"
		}
		fmt.Printf("  [%s] %s, %d req/min (%s)\n", src.Name, src.BaseURL, src.RequestsPerMinute, state)
	}

	// Block until a signal arrives or the metrics listener dies
	<-gctx.Done()
	fmt.Println("\n✓ Shutting down gracefully...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sched.Stop()

	if err := g.Wait(); err != nil {
		fmt.Printf("✗ ops listener failed: %v\n", err)
		os.Exit(1)
	}

	select {
	case <-shutdownCtx.Done():
		fmt.Println("✗ Shutdown timeout exceeded")
		os.Exit(1)
	default:
		fmt.Println("✓ Argus stopped")
	}
}
