package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zatekoja/Clinicqueuedesign/internal/adapters/events"
	"github.com/zatekoja/Clinicqueuedesign/internal/api/handlers"
	"github.com/zatekoja/Clinicqueuedesign/internal/api/middleware"
	"github.com/zatekoja/Clinicqueuedesign/internal/infrastructure/clients/redis"
	"github.com/zatekoja/Clinicqueuedesign/internal/infrastructure/observability"
	"github.com/zatekoja/Clinicqueuedesign/pkg/config"
)

// Standalone stream server. Waiting rooms poll nothing: they hold one SSE
// connection here while the API instances publish through Redis. Runs
// separately so long-lived connections never tie up API workers.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName+"-stream", os.Getenv("APP_ENV"))
	logger := observability.GetLogger()

	// Redis is required here: without the event bus there is nothing to stream
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize Redis client")
	}
	defer redisClient.Close()
	logger.Info().Msg("Redis client initialized successfully")

	eventBus := events.NewRedisEventBus(redisClient)
	streamHandler := handlers.NewStreamHandler(eventBus)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("GET /api/stream/sessions/{id}", streamHandler.StreamSessionUpdates)

	mux.HandleFunc("GET /api/stream/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"connected_clients": %d}`, streamHandler.GetClientCount())
	})

	var handler http.Handler = mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.CORSMiddleware(handler)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		// No write timeout: streams stay open until the client leaves
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", serverAddr).Msg("Stream server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Stream server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Stream server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error during server shutdown")
	}

	if err := eventBus.Close(); err != nil {
		logger.Error().Err(err).Msg("Error closing event bus")
	}

	logger.Info().Msg("Stream server stopped")
}
