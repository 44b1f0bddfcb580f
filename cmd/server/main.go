package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"summer-miles/ledger/internal/api"
	"summer-miles/ledger/internal/common"
	"summer-miles/ledger/internal/config"
	"summer-miles/ledger/internal/db"
	"summer-miles/ledger/internal/db/repositories"
	"summer-miles/ledger/internal/jobs"
	"summer-miles/ledger/internal/logging"
	"summer-miles/ledger/internal/metrics"
	"summer-miles/ledger/internal/providers"
	"summer-miles/ledger/internal/routes"
	"summer-miles/ledger/internal/workers"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	configPath := flag.String("config", os.Getenv("LEDGER_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	if err := logging.Init(cfg.AppEnv); err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	logging.Info("Ledger starting up",
		"environment", cfg.AppEnv,
		"storage", cfg.Storage.Driver,
		"timestamp", time.Now().Format(time.RFC3339),
	)

	conn, err := db.Open(cfg.Storage)
	if err != nil {
		logging.Fatal("Failed to open ledger store", "error", err)
	}
	defer db.Close(conn)

	if err := db.Migrate(conn); err != nil {
		logging.Fatal("Failed to migrate ledger schema", "error", err)
	}

	reader, err := db.NewReader(conn, cfg.Storage)
	if err != nil {
		logging.Fatal("Failed to open read handle", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis backs the cache and the stream mirror; it is only dialled when one of them asks for it.
	var redisClient *redis.Client
	if cfg.CacheBackend == config.CacheBackendRedis || (cfg.Mirror.Enabled && cfg.Mirror.Sink == config.MirrorSinkRedis) {
		redisClient = common.NewRedisClient(cfg.Redis)
		defer redisClient.Close()
	}

	var cache common.CacheInterface
	if cfg.CacheBackend == config.CacheBackendRedis {
		cache = common.NewRedisCacheService(redisClient, "ledger")
	} else {
		cache = common.NewCacheService(cfg.StatsTTL, 2*cfg.StatsTTL)
	}
	defer cache.Close()

	registry := providers.NewRegistry(
		providers.NewSimulatedProvider("strava", cfg.Sync.LookbackDays, cfg.Sync.ProviderRateLimit),
		providers.NewSimulatedProvider("garmin", cfg.Sync.LookbackDays, cfg.Sync.ProviderRateLimit),
		providers.NewSimulatedProvider("fitbit", cfg.Sync.LookbackDays, cfg.Sync.ProviderRateLimit),
	)

	store := repositories.NewStore(conn)
	deps := api.InitDependencies(cfg, store, reader, cache, registry)
	deps.SyncJob = jobs.InitializeJobs(ctx, store, deps.Services.Sync, cfg.Sync.ScheduleInterval, cfg.Sync.ScheduleWorkers)

	workersContainer, err := workers.InitWorkers(ctx, cfg.Mirror, store, redisClient)
	if err != nil {
		logging.Fatal("Failed to start workers", "error", err)
	}

	metricsReg := metrics.NewMetricsRegistry(prometheus.DefaultRegisterer)
	router := routes.RegisterRoutes(deps, cfg, metricsReg, prometheus.DefaultGatherer)

	server := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info("Server starting", "address", cfg.HTTP.Address, "providers", registry.Names())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("HTTP server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logging.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error("HTTP shutdown failed", "error", err)
	}
	if err := workersContainer.Shutdown(); err != nil {
		logging.Error("Worker shutdown failed", "error", err)
	}
	logging.Info("Ledger stopped")
}
