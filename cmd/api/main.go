package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"qrmenu/internal/config"
	"qrmenu/internal/logger"
	"qrmenu/internal/server"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *server.Server, logger *zap.Logger, stopWorkers context.CancelFunc, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// Stop the token auto-refresh worker before draining requests.
	stopWorkers()

	// The context is used to inform the server it has 30 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Close server resources
	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting QR table-ordering API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("pos_base_url", cfg.POS.BaseURL),
	)

	// Connect the local store
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Redis connection failed", zap.Error(err))
	}
	log.Info("Local store connected")

	// Create server (wires store, token manager, POS client, cart, menu)
	srv := server.NewServer(cfg, log, redisClient)

	workerCtx, stopWorkers := context.WithCancel(context.Background())

	// Obtain an initial credential; the app still serves (empty menu,
	// offline checkout) if the POS is unreachable at startup.
	if !srv.Tokens.IsValid() {
		loginCtx, cancel := context.WithTimeout(workerCtx, cfg.POS.Timeout)
		if err := srv.Tokens.Login(loginCtx); err != nil {
			log.Warn("Initial POS login failed", zap.Error(err))
		}
		cancel()
	}

	// Background credential refresher
	go srv.Tokens.StartAutoRefresh(workerCtx)

	// Short post-start self-test: probe the selling-products listing and
	// log what the menu will look like.
	time.AfterFunc(500*time.Millisecond, func() {
		probeCtx, cancel := context.WithTimeout(workerCtx, cfg.POS.Timeout)
		defer cancel()
		products := srv.Menu.SellingProducts(probeCtx, "")
		log.Info("Menu self-test", zap.Int("selling_products", len(products)))
	})

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(srv, log, stopWorkers, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Info("Graceful shutdown complete")
}
