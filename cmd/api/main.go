package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zatekoja/Clinicqueuedesign/internal/adapters/cache"
	"github.com/zatekoja/Clinicqueuedesign/internal/adapters/database"
	"github.com/zatekoja/Clinicqueuedesign/internal/adapters/events"
	"github.com/zatekoja/Clinicqueuedesign/internal/adapters/providers/ledger"
	"github.com/zatekoja/Clinicqueuedesign/internal/adapters/providers/notify"
	"github.com/zatekoja/Clinicqueuedesign/internal/adapters/providers/payments"
	"github.com/zatekoja/Clinicqueuedesign/internal/api/handlers"
	"github.com/zatekoja/Clinicqueuedesign/internal/api/routes"
	"github.com/zatekoja/Clinicqueuedesign/internal/application/services"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/providers"
	"github.com/zatekoja/Clinicqueuedesign/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/Clinicqueuedesign/internal/infrastructure/clients/redis"
	"github.com/zatekoja/Clinicqueuedesign/internal/infrastructure/observability"
	"github.com/zatekoja/Clinicqueuedesign/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, os.Getenv("APP_ENV"))
	logger := observability.GetLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := shutdown(shutdownCtx); err != nil {
					logger.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			logger.Info().Msg("OpenTelemetry initialized successfully")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()
	logger.Info().Msg("PostgreSQL client initialized successfully")

	// Initialize Redis client. The engine degrades to an in-process cache
	// and loses cross-instance fan-out when Redis is unavailable.
	var cacheProvider providers.CacheProvider
	var eventBus providers.EventBus
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable, falling back to in-memory cache")
		cacheProvider = cache.NewMemoryAdapter()
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient)
		eventBus = events.NewRedisEventBus(redisClient)
		logger.Info().Msg("Redis client initialized successfully")
	}

	// Initialize repository adapters
	sessionAdapter := database.NewSessionAdapter(pgClient)
	tokenAdapter := database.NewTokenAdapter(pgClient)
	bookingAdapter := database.NewBookingAdapter(pgClient)
	consultationAdapter := database.NewConsultationAdapter(pgClient)

	// Initialize external providers
	paymentProvider := payments.NewPaymentProvider(&cfg.Payment, 0, "")

	var ledgerProvider providers.LedgerProvider
	if cfg.Ledger.WalletURL != "" {
		ledgerProvider = ledger.NewWalletAdapter(cfg.Ledger.WalletURL, cfg.Ledger.APIKey)
	} else {
		ledgerProvider = ledger.NewMockAdapter()
	}

	var notificationTrigger providers.NotificationTrigger
	if cfg.Notify.WebhookURL != "" {
		notificationTrigger = notify.NewWebhookAdapter(cfg.Notify.WebhookURL, cfg.Notify.APIKey)
	} else {
		notificationTrigger = notify.NewMockAdapter()
	}

	// Initialize application services
	calculator := services.NewETACalculator(cfg.Queue.ObservedSampleWindow, cfg.Queue.ObservedMinSamples)

	queueStateService := services.NewQueueStateService(
		sessionAdapter,
		tokenAdapter,
		consultationAdapter,
		cacheProvider,
		eventBus,
		calculator,
		metrics,
		cfg.Queue.CacheTTL,
	)

	notificationService := services.NewNotificationService(notificationTrigger)

	bookingService := services.NewBookingService(
		sessionAdapter,
		tokenAdapter,
		bookingAdapter,
		paymentProvider,
		ledgerProvider,
		eventBus,
		queueStateService,
		notificationService,
		metrics,
		cfg.Payment.AmountTolerance,
		cfg.Queue.DefaultCommissionRate,
	)

	lifecycleService := services.NewLifecycleService(
		tokenAdapter,
		sessionAdapter,
		consultationAdapter,
		eventBus,
		queueStateService,
		notificationService,
		metrics,
		cfg.Queue.MaxRecalls,
	)

	sessionService := services.NewSessionService(
		sessionAdapter,
		tokenAdapter,
		eventBus,
		queueStateService,
	)

	// Initialize handlers
	sessionHandler := handlers.NewSessionHandler(sessionService)
	queueHandler := handlers.NewQueueHandler(bookingService, lifecycleService, queueStateService)

	var streamHandler *handlers.StreamHandler
	if eventBus != nil {
		streamHandler = handlers.NewStreamHandler(eventBus)
	}

	// Set up router
	router := routes.NewRouter(sessionHandler, queueHandler, streamHandler, metrics)
	handler := router.SetupRoutes()

	// Create HTTP server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No write timeout: SSE streams stay open until the client leaves
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().Str("addr", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error during server shutdown")
	}

	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing event bus")
		}
	}

	logger.Info().Msg("Server stopped")
}
