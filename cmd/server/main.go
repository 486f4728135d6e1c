package main

import (
	"context"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/scanwise/internal/config"
	"github.com/benvon/scanwise/internal/handlers"
	"github.com/benvon/scanwise/internal/history"
	"github.com/benvon/scanwise/internal/ingest"
	"github.com/benvon/scanwise/internal/logger"
	"github.com/benvon/scanwise/internal/middleware"
	"github.com/benvon/scanwise/internal/models"
	"github.com/benvon/scanwise/internal/profile"
	"github.com/benvon/scanwise/internal/scan"
	"github.com/benvon/scanwise/internal/services/ai"
	"github.com/benvon/scanwise/internal/storage"
	"github.com/benvon/scanwise/internal/telemetry"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

const serviceName = "scanwise-api"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	configFlag := flag.String("config", "", "Path to an optional YAML config file")
	flag.Parse()

	cfg, err := config.LoadFile(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			_ = syncErr
		}
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("storage_driver", cfg.StorageDriver),
		zap.String("ai_model", cfg.AIModel),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// Initialize OpenTelemetry if enabled
	otelReady := false
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), serviceName, cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				otelReady = true
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Open storage
	adapter, err := storage.Open(cfg.StorageDriver, storage.Options{
		SQLitePath:  cfg.SQLitePath,
		RedisURL:    cfg.RedisURL,
		DatabaseURL: cfg.DatabaseURL,
	})
	if err != nil {
		zapLogger.Fatal("failed_to_open_storage", zap.Error(err))
	}
	defer func() {
		if closer, ok := adapter.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				zapLogger.Warn("failed_to_close_storage", zap.Error(err))
			}
		}
	}()
	zapLogger.Info("storage_opened", zap.String("driver", cfg.StorageDriver))

	// Initialize stores and the scan pipeline
	profileStore := profile.NewStore(adapter, profile.ConsentPolicy{RequireOnEdit: cfg.ReconsentOnEdit}, zapLogger)
	historyStore := history.NewStore(adapter, cfg.HistoryLimit, zapLogger)
	ingestor := ingest.NewIngestor(zapLogger)

	var gateway ai.Gateway
	gateway, err = ai.NewOpenAIGateway(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel, zapLogger, debugMode)
	if err != nil {
		// Keep serving: profile and history still work, and every scan
		// attempt fails with the configuration message.
		zapLogger.Warn("ai_gateway_not_configured", zap.Error(err))
		gateway = unconfiguredGateway{err: err}
	}

	orchestrator := scan.NewOrchestrator(profileStore, ingestor, historyStore, gateway, zapLogger)

	// Initialize handlers
	profileHandler := handlers.NewProfileHandler(profileStore)
	historyHandler := handlers.NewHistoryHandler(historyStore)
	scanHandler := handlers.NewScanHandler(orchestrator, zapLogger)
	healthHandler := handlers.NewHealthHandler(adapter)

	// Setup router. Middleware executes outermost-first in registration order.
	r := mux.NewRouter()

	if otelReady {
		r.Use(otelmux.Middleware(serviceName))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORS(cfg.FrontendURL))
	r.Use(middleware.ContentType)
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	// Rate limit middleware for scan routes only; each scan costs an AI call.
	rateLimitMW := rateLimitMiddleware(cfg, adapter, zapLogger)

	r.HandleFunc("/healthz", healthHandler.Health).Methods("GET")

	apiRouter := r.PathPrefix("/api/v1").Subrouter()

	profileRouter := apiRouter.PathPrefix("/profile").Subrouter()
	profileRouter.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	profileHandler.RegisterRoutes(profileRouter)

	historyRouter := apiRouter.PathPrefix("/history").Subrouter()
	historyRouter.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	historyHandler.RegisterRoutes(historyRouter)

	scanRouter := apiRouter.PathPrefix("/scan").Subrouter()
	scanRouter.Use(middleware.MaxRequestSize(middleware.UploadMaxRequestSize))
	if rateLimitMW != nil {
		scanRouter.Use(rateLimitMW)
	}
	scanHandler.RegisterRoutes(scanRouter)

	// Catch-all OPTIONS handler so preflight requests get a response even on
	// routes that don't list the method. CORS headers are already set upstream.
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// rateLimitMiddleware builds the Redis-backed limiter for scan routes. It
// reuses the storage connection when storage itself is Redis, otherwise it
// dials REDIS_URL. Rate limiting is skipped, with a warning, when no Redis
// is reachable.
func rateLimitMiddleware(cfg *config.Config, adapter storage.Adapter, zapLogger *zap.Logger) func(http.Handler) http.Handler {
	var client *redis.Client

	if redisAdapter, ok := adapter.(*storage.RedisAdapter); ok {
		client = redisAdapter.Client()
	} else if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			zapLogger.Warn("rate_limiting_disabled_invalid_redis_url", zap.Error(err))
			return nil
		}
		client = redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			zapLogger.Warn("rate_limiting_disabled_redis_unreachable", zap.Error(err))
			return nil
		}
	} else {
		zapLogger.Warn("rate_limiting_disabled_no_redis_configured")
		return nil
	}

	mw, err := middleware.RateLimit(client, cfg.RateLimit)
	if err != nil {
		zapLogger.Warn("rate_limiting_disabled", zap.Error(err))
		return nil
	}
	zapLogger.Info("rate_limiting_enabled", zap.String("rate", cfg.RateLimit))
	return mw
}

// unconfiguredGateway stands in when no API key is configured so the rest of
// the API stays usable.
type unconfiguredGateway struct {
	err error
}

func (g unconfiguredGateway) Analyze(ctx context.Context, p models.Profile, images models.Selection) (*models.AnalysisResult, error) {
	return nil, g.err
}
