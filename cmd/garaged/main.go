package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/patrickmn/go-cache"

	"github.com/amitRaDev/GMS/config"
	"github.com/amitRaDev/GMS/internal/anpr"
	"github.com/amitRaDev/GMS/internal/api"
	"github.com/amitRaDev/GMS/internal/camera"
	"github.com/amitRaDev/GMS/internal/db"
	"github.com/amitRaDev/GMS/internal/gate"
	"github.com/amitRaDev/GMS/internal/notification"
	"github.com/amitRaDev/GMS/internal/store"
	"github.com/amitRaDev/GMS/internal/ws"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "garaged ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	loc, err := time.LoadLocation(cfg.Server.Timezone)
	if err != nil {
		logger.Fatalf("invalid server timezone %q: %v", cfg.Server.Timezone, err)
	}

	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		logger.Println("VAPID keys are not configured; push notifications are disabled")
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Store layer
	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	// WebSocket hub for operator broadcasts
	hub := ws.NewHub()
	go hub.Run()

	// Push worker pool for job-closed notifications
	var workerPool *notification.WorkerPool
	var pusher gate.Pusher
	if webpushOptions != nil {
		workerPool = notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions)
		workerPool.Start(ctx)
		pusher = workerPool
	}

	// Gate state machine and camera ingest
	gateSvc := gate.NewService(appStore, appStore, hub, pusher)
	cameraSvc := camera.NewService(appStore, gateSvc)

	// Optional ANPR polling for cameras that cannot push
	poller := anpr.NewPoller(cfg, cameraSvc)
	go poller.Run(ctx)

	// HTTP API
	respCache := cache.New(time.Duration(cfg.Server.CacheTTLSeconds)*time.Second, time.Minute)
	handler := api.NewHandler(appStore, gateSvc, cameraSvc, hub, webpushOptions, respCache, loc)
	router := api.NewRouter(handler, &cfg.Server)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
