package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/adventure-engine/internal/config"
	"github.com/jwebster45206/adventure-engine/internal/handlers"
	"github.com/jwebster45206/adventure-engine/internal/logger"
	internalstorage "github.com/jwebster45206/adventure-engine/internal/storage"
	"github.com/jwebster45206/adventure-engine/pkg/engine"
	"github.com/jwebster45206/adventure-engine/pkg/storage"
	"github.com/jwebster45206/adventure-engine/pkg/validate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Adventure Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"storage_backend", cfg.StorageBackend,
		"data_dir", cfg.DataDir)

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	store, err := openStorage(storageCtx, cfg, log)
	if err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	if sq, ok := store.(*internalstorage.SQLiteStorage); ok {
		go purgeExpired(bgCtx, sq, cfg.SessionTTL, log)
	}

	router := handlers.NewRouter(store, log,
		engine.WithValidator(validate.Service{Options: validate.Options{Scope: validate.ScopeStructure}}),
		engine.WithCacheSize(cfg.ConditionCacheSize),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")
	bgCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	// Close storage after in-flight requests have drained
	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}

func openStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.Storage, error) {
	switch cfg.StorageBackend {
	case config.BackendSQLite:
		ss, err := internalstorage.NewSQLiteStorage(ctx, cfg.SQLitePath, cfg.DataDir, cfg.SessionTTL, log)
		if err != nil {
			return nil, err
		}
		return ss, nil
	default:
		rs, err := internalstorage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, cfg.SessionTTL, log)
		if err != nil {
			return nil, err
		}
		if err := rs.WaitForConnection(ctx); err != nil {
			rs.Close()
			return nil, err
		}
		return rs, nil
	}
}

// purgeExpired sweeps expired SQLite sessions; Redis expires keys itself.
func purgeExpired(ctx context.Context, s *internalstorage.SQLiteStorage, ttl time.Duration, log *slog.Logger) {
	interval := min(ttl, time.Hour)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeExpired(ctx)
			if err != nil {
				log.Warn("Failed to purge expired sessions", "error", err)
				continue
			}
			if n > 0 {
				log.Info("Purged expired sessions", "count", n)
			}
		}
	}
}
