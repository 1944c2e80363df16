package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/talk-engine/internal/config"
	"github.com/jwebster45206/talk-engine/internal/gamedata"
	"github.com/jwebster45206/talk-engine/internal/handlers"
	"github.com/jwebster45206/talk-engine/internal/logger"
	"github.com/jwebster45206/talk-engine/internal/services/events"
	"github.com/jwebster45206/talk-engine/internal/services/queue"
	"github.com/jwebster45206/talk-engine/internal/session"
	"github.com/jwebster45206/talk-engine/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Talk Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"data_dir", cfg.DataDir,
		"language", cfg.Language)

	library, err := gamedata.LoadLibrary(cfg.DataDir, gamedata.Options{
		CacheSize:  cfg.ScriptCacheSize,
		CacheTTL:   cfg.ScriptCacheTTL,
		Language:   cfg.Language,
		LocalesDir: cfg.LocalesDir,
	}, log)
	if err != nil {
		log.Error("Failed to load game data", "error", err, "data_dir", cfg.DataDir)
		os.Exit(1)
	}

	store, err := storage.NewRedisStorage(cfg.RedisURL, cfg.SessionTTL, log)
	if err != nil {
		log.Error("Failed to configure storage", "error", err)
		os.Exit(1)
	}
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	rdb := store.Client()
	transcript := queue.NewTranscriptQueue(queue.NewClientFromRedis(rdb, log), cfg.SessionTTL, log)

	manager := session.NewManager(library, store, log,
		session.WithTranscript(transcript),
		session.WithPublisher(events.NewBroadcaster(rdb, log)),
		session.WithLocker(session.NewRedisLocker(rdb, 0)),
		session.WithDefaultAvatar(cfg.AvatarName),
	)

	router := handlers.NewRouter(handlers.RouterDeps{
		Manager:       manager,
		Storage:       store,
		Library:       library,
		Transcript:    transcript,
		Redis:         rdb,
		DefaultAvatar: cfg.AvatarName,
		Logger:        log,
	})

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the SSE and websocket endpoints stay open.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Running conversations save their games before the store closes.
	if err := manager.Shutdown(shutdownCtx); err != nil {
		log.Error("Sessions did not finish before shutdown", "error", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
