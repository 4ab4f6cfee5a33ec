package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/farhanzaki/apotekgo/config"
	"github.com/farhanzaki/apotekgo/internal/cache"
	"github.com/farhanzaki/apotekgo/internal/connectivity"
	"github.com/farhanzaki/apotekgo/internal/queue"
	"github.com/farhanzaki/apotekgo/internal/repository/kv"
	"github.com/farhanzaki/apotekgo/internal/repository/remote"
	"github.com/farhanzaki/apotekgo/internal/usecase"
	"github.com/farhanzaki/apotekgo/internal/worker"
	"github.com/farhanzaki/apotekgo/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	// Initialize logger
	logger.Init(cfg.App.Environment)
	defer logger.Sync()

	// Print configuration in development mode
	if cfg.App.IsDevelopment() {
		cfg.Print()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open local persistence
	store, err := kv.NewStore(cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to open local store", logger.ErrorField(err))
	}
	defer store.Close()

	// Connect to the remote document store
	connectCtx, connectCancel := context.WithTimeout(ctx, cfg.Remote.Timeout)
	client, err := mongo.Connect(connectCtx, mongooptions.Client().ApplyURI(cfg.Remote.URI))
	connectCancel()
	if err != nil {
		logger.Fatal("Failed to connect to remote store", logger.ErrorField(err))
	}
	defer client.Disconnect(context.Background())

	remoteStore := remote.NewMongoStore(client, cfg.Remote.Database)

	logger.Info("Local store and remote store connections established")

	// Connectivity monitor
	monitor := connectivity.NewMonitor(connectivity.MonitorConfig{
		Probe:         connectivity.DialProbe(cfg.Connectivity.ProbeAddr, cfg.Connectivity.ProbeTimeout),
		ProbeInterval: cfg.Connectivity.ProbeInterval,
	})
	go monitor.Start(ctx)

	// Cache coordinator: the pharmacy catalogue is shared across
	// tenants and lives in the LRU; everything else is per tenant.
	coordinator := cache.NewCoordinator(store, cache.Config{
		LRUCapacity: cfg.Cache.LRUCapacity,
		TTL:         cfg.Cache.TTL,
		Shapes: map[string]cache.Shape{
			usecase.CollectionPharmacies: cache.ShapeShared,
		},
	})

	// Operation queue
	opQueue := queue.New(store, monitor, queue.Config{
		MaxAttempts:    cfg.Sync.MaxAttempts,
		RetryBackoff:   cfg.Sync.RetryBackoff,
		HandlerTimeout: cfg.Sync.HandlerTimeout,
	})
	if err := opQueue.Load(ctx); err != nil {
		logger.Fatal("Failed to restore queue snapshot", logger.ErrorField(err))
	}

	// Facade wires the per-kind handlers into the queue
	syncUC := usecase.NewSyncUsecase(monitor, opQueue, coordinator, remoteStore)
	logger.Info("Sync facade ready", logger.Int("pending", syncUC.PendingOperationsCount()))

	// Auto-drain on reconnect, plus a periodic safety net
	go opQueue.Start(ctx)

	syncWorker := worker.NewSyncWorker(opQueue, monitor, worker.SyncWorkerConfig{
		Interval: cfg.Sync.WorkerInterval,
	})
	go syncWorker.Start(ctx)

	// Expose metrics
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(":9109", nil); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server stopped", logger.ErrorField(err))
		}
	}()

	logger.Info("Sync daemon started",
		logger.String("app", cfg.App.Name),
		logger.String("env", cfg.App.Environment),
	)

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	cancel()
}
