// main.go - The entry point: wires stores, providers and the gateway behind the router.

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/bosocmputer/expense_ai_gateway/configs"
	"github.com/bosocmputer/expense_ai_gateway/internal/ai"
	"github.com/bosocmputer/expense_ai_gateway/internal/api"
	"github.com/bosocmputer/expense_ai_gateway/internal/common"
	"github.com/bosocmputer/expense_ai_gateway/internal/gateway"
	"github.com/bosocmputer/expense_ai_gateway/internal/processor"
	"github.com/bosocmputer/expense_ai_gateway/internal/quota"
	"github.com/bosocmputer/expense_ai_gateway/internal/ratelimit"
	"github.com/bosocmputer/expense_ai_gateway/internal/storage"
)

func main() {
	// Step 0: Load configuration from environment variables
	configs.LoadConfig()
	common.InitLogger(configs.LOG_LEVEL, configs.LOG_PRETTY)

	// Step 0.5: Set production mode
	if ginMode := os.Getenv("GIN_MODE"); ginMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// Step 1: Quota store, shared through Redis when configured
	var store quota.Store = quota.NewMemoryStore()
	if configs.REDIS_URL != "" {
		client, err := quota.ConnectRedis(ctx, configs.REDIS_URL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer client.Close()
		store = quota.NewRedisStore(client, "")
		log.Info().Msg("using Redis quota store")
	}

	// Step 2: Providers
	registry, err := ai.BuildRegistry(ctx, ai.SettingsFromConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build provider registry")
	}
	defer registry.Close()

	// Step 3: Audit sinks
	sinks := gateway.MultiSink{gateway.NewLogSink()}
	var auditReader api.AuditReader
	if configs.MONGO_URI != "" {
		auditStore, err := storage.ConnectMongo(ctx, configs.MONGO_URI, configs.MONGO_DB_NAME)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to MongoDB")
		}
		defer auditStore.Close(context.Background())
		sinks = append(sinks, auditStore)
		auditReader = auditStore
	}

	// Step 4: Gateway
	gw := gateway.New(gateway.Config{
		Registry:        registry,
		Quota:           quota.NewTracker(store, registry.Limits(), quota.WithSafePercent(configs.QUOTA_SAFE_PERCENT)),
		RateLimits:      ratelimit.NewRegistry(registry.RPMs()),
		Audit:           sinks,
		LocalOCR:        processor.NewLocalOCR(configs.TESSERACT_PATH, configs.LOCAL_OCR_TIMEOUT),
		ProviderTimeout: configs.PROVIDER_TIMEOUT,
	})

	router := api.NewRouter(api.NewHandler(gw, auditReader, configs.MAX_UPLOAD_BYTES), configs.AllowedOrigins())

	// Step 5: Setup HTTP server with timeouts
	srv := &http.Server{
		Addr:           ":" + configs.PORT,
		Handler:        router,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   3 * time.Minute, // a full cascade may try every provider
		MaxHeaderBytes: 1 << 20,
	}

	// Start server in a goroutine
	go func() {
		log.Info().
			Str("port", configs.PORT).
			Strs("providers", registry.Names()).
			Msg("starting server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}
