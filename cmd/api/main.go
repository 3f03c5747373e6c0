package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jwebster45206/combat-engine/internal/config"
	"github.com/jwebster45206/combat-engine/internal/handlers"
	"github.com/jwebster45206/combat-engine/internal/logger"
	"github.com/jwebster45206/combat-engine/internal/middleware"
	"github.com/jwebster45206/combat-engine/internal/services/events"
	"github.com/jwebster45206/combat-engine/internal/services/queue"
	"github.com/jwebster45206/combat-engine/internal/storage"
	"github.com/jwebster45206/combat-engine/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg, "api")

	log.Info("Starting Combat Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"storage_backend", cfg.StorageBackend)

	store, err := storage.New(cfg.StorageBackend, cfg.RedisURL, cfg.SQLitePath, cfg.DataDir, log)
	if err != nil {
		log.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	if err := store.Ping(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	// Built-in templates are seeded once; existing names are left alone.
	templates, err := storage.LoadTemplateDir(filepath.Join(cfg.DataDir, "templates"))
	if err != nil {
		log.Warn("Failed to load template directory", "error", err)
	} else if n, err := storage.Seed(storageCtx, store, templates, log); err != nil {
		log.Error("Failed to seed templates", "error", err)
	} else if n > 0 {
		log.Info("Seeded templates", "count", n)
	}

	queueClient, err := queue.NewClient(cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to create queue client", "error", err)
		os.Exit(1)
	}
	intents := queue.NewIntentQueue(queueClient)
	redisClient := queueClient.GetRedisClient()
	broadcaster := events.NewBroadcaster(redisClient, log)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(map[string]handlers.Pinger{
		"storage": store,
		"queue":   queueClient,
	}, log)
	mux.Handle("/health", healthHandler)

	mux.Handle("/v1/requests", handlers.NewRequestHandler(intents, broadcaster, log))
	mux.Handle("/v1/state", handlers.NewStateHandler(redisClient, worker.SnapshotKey, log))

	templateHandler := handlers.NewTemplateHandler(store, log)
	mux.Handle("/v1/templates", templateHandler)
	mux.Handle("/v1/templates/", templateHandler)

	fighterHandler := handlers.NewFighterHandler(log, store)
	mux.Handle("/v1/fighters", fighterHandler)
	mux.Handle("/v1/fighters/", fighterHandler)

	mux.Handle("/v1/events/", handlers.NewEventsHandler(redisClient, log))

	handler := middleware.Logger(log, mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: the SSE endpoints stream indefinitely
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := queueClient.Close(); err != nil {
		log.Error("Error closing queue client", "error", err)
	}
	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
