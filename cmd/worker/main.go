package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/combat-engine/internal/config"
	"github.com/jwebster45206/combat-engine/internal/logger"
	"github.com/jwebster45206/combat-engine/internal/scripting"
	"github.com/jwebster45206/combat-engine/internal/services/events"
	"github.com/jwebster45206/combat-engine/internal/services/queue"
	"github.com/jwebster45206/combat-engine/internal/storage"
	"github.com/jwebster45206/combat-engine/internal/telemetry"
	"github.com/jwebster45206/combat-engine/internal/worker"
	"github.com/jwebster45206/combat-engine/pkg/actor"
	"github.com/jwebster45206/combat-engine/pkg/combat"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg, "worker")

	log.Info("Starting Combat Engine Worker",
		"environment", cfg.Environment,
		"pulse_interval", cfg.PulseInterval,
		"storage_backend", cfg.StorageBackend)

	tuning, err := config.LoadTuning(cfg.TuningFile)
	if err != nil {
		log.Error("Failed to load tuning", "error", err, "file", cfg.TuningFile)
		os.Exit(1)
	}

	queueClient, err := queue.NewClient(cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to create queue client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			log.Error("Error closing queue client", "error", err)
		}
	}()
	intents := queue.NewIntentQueue(queueClient)
	redisClient := queueClient.GetRedisClient()
	log.Info("Queue service initialized successfully")

	store, err := storage.New(cfg.StorageBackend, cfg.RedisURL, cfg.SQLitePath, cfg.DataDir, log)
	if err != nil {
		log.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing storage", "error", err)
		}
	}()
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	if err := store.Ping(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage service initialized successfully")

	metrics, err := telemetry.New()
	if err != nil {
		log.Error("Failed to create metrics", "error", err)
		os.Exit(1)
	}
	broadcaster := events.NewBroadcaster(redisClient, log)

	seed := cfg.RNGSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	engine := combat.New(tuning.Settings(), actor.NewChecker(seed),
		combat.WithSeed(seed),
		combat.WithLogger(log),
		combat.WithEligibilityHook(scripting.NewLuaHook(log)),
		combat.WithNotifier(metrics.Notifier(broadcaster)),
	)
	log.Info("Combat engine initialized", "seed", seed)

	w := worker.New(worker.Options{
		ID:          cfg.WorkerID,
		Interval:    cfg.PulseInterval,
		Engine:      engine,
		Queue:       intents,
		Store:       store,
		Broadcaster: broadcaster,
		Metrics:     metrics,
		RedisClient: redisClient,
		Log:         log,
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Start(); err != nil {
			log.Error("Worker error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("Worker started, waiting for requests...", "worker_id", w.ID())

	<-quit
	log.Info("Worker shutdown signal received")

	w.Stop()

	// let the current pulse finish and the lock be released
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		log.Warn("Worker did not stop in time")
	}

	log.Info("Worker exited")
}
