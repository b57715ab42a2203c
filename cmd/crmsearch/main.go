package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/crmsearch/internal/backend"
	bleveBackend "github.com/kailas-cloud/crmsearch/internal/backend/bleve"
	scanBackend "github.com/kailas-cloud/crmsearch/internal/backend/scan"
	"github.com/kailas-cloud/crmsearch/internal/config"
	"github.com/kailas-cloud/crmsearch/internal/db"
	dbMemory "github.com/kailas-cloud/crmsearch/internal/db/memory"
	dbRedis "github.com/kailas-cloud/crmsearch/internal/db/redis"
	logpkg "github.com/kailas-cloud/crmsearch/internal/logger"
	"github.com/kailas-cloud/crmsearch/internal/metrics"
	"github.com/kailas-cloud/crmsearch/internal/provider"
	cacherepo "github.com/kailas-cloud/crmsearch/internal/repository/cache"
	expansionrepo "github.com/kailas-cloud/crmsearch/internal/repository/expansion"
	metricsrepo "github.com/kailas-cloud/crmsearch/internal/repository/metrics"
	chiTransport "github.com/kailas-cloud/crmsearch/internal/transport/chi"
	expanduc "github.com/kailas-cloud/crmsearch/internal/usecase/expand"
	explainuc "github.com/kailas-cloud/crmsearch/internal/usecase/explain"
	facetuc "github.com/kailas-cloud/crmsearch/internal/usecase/facet"
	gdpruc "github.com/kailas-cloud/crmsearch/internal/usecase/gdpr"
	graphuc "github.com/kailas-cloud/crmsearch/internal/usecase/graph"
	healthuc "github.com/kailas-cloud/crmsearch/internal/usecase/health"
	rankuc "github.com/kailas-cloud/crmsearch/internal/usecase/rank"
	searchuc "github.com/kailas-cloud/crmsearch/internal/usecase/search"
	semcacheuc "github.com/kailas-cloud/crmsearch/internal/usecase/semcache"
	"github.com/kailas-cloud/crmsearch/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting crmsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("search_backend", cfg.Search.Backend),
	)

	// Create database store based on driver
	var store db.Store
	switch cfg.Database.Driver {
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	case "memory":
		store = dbMemory.NewStore()
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register search metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	// Record provider — the integration point with the CRM data layer.
	// In-process deployments register records directly on the static
	// provider; external deployments replace it at this seam.
	recordProvider := provider.NewStatic()

	// Select the search backend
	var finder backend.Finder
	switch cfg.Search.Backend {
	case "provider":
		finder = scanBackend.New(recordProvider)
	case "bleve":
		engine, err := bleveBackend.New(cfg.Search.BlevePath, recordProvider, logger)
		if err != nil {
			logger.Fatal("Failed to open bleve index", zap.Error(err))
		}
		finder = engine
	default:
		logger.Fatal("Unknown search backend", zap.String("backend", cfg.Search.Backend))
	}
	logger.Info("Search backend ready", zap.String("backend", finder.Name()))

	// Create repositories
	cacheRepo := cacherepo.New(store, cfg.Search.CacheL1Size,
		time.Duration(cfg.Search.CacheTTLSec)*time.Second)
	expansionRepo := expansionrepo.New(store)
	metricsRepo := metricsrepo.New(store)

	// Create use case services
	expander := buildExpander(cfg.Search, expansionRepo, logger)

	semCache := semcacheuc.New(cacheRepo,
		time.Duration(cfg.Search.CacheTTLSec)*time.Second, logger)

	weights := rankuc.Weights{
		Recency:        cfg.Ranking.RecencyWeight,
		Ownership:      cfg.Ranking.OwnershipWeight,
		Interaction:    cfg.Ranking.InteractionWeight,
		DecayDays:      cfg.Ranking.DecayDays,
		RecentBonus:    rankuc.DefaultWeights().RecentBonus,
		RecentDays:     rankuc.DefaultWeights().RecentDays,
		InteractionCap: cfg.Ranking.InteractionCap,
	}
	ranker := rankuc.New(metricsRepo, weights)

	gdprSvc := gdpruc.New(gdprConfig(cfg.GDPR))

	searchSvc := searchuc.New(
		finder,
		expander,
		semCache,
		facetuc.New(),
		gdprSvc,
		ranker,
		explainuc.New(weights),
		metricsRepo,
		logger,
	).WithBackendTimeout(time.Duration(cfg.Search.BackendTimeoutSec) * time.Second)

	graphSvc := graphuc.New(recordProvider, logger)
	healthSvc := healthuc.New(finder, store, gdprSvc.Enabled())

	// Create chi server
	server := chiTransport.NewServer(searchSvc, graphSvc, expansionRepo, metricsRepo, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(chiTransport.TenantMiddleware())
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildExpander selects the query-expansion strategy.
func buildExpander(
	cfg config.SearchConfig,
	rules *expansionrepo.Repo,
	logger *zap.Logger,
) expanduc.Expander {
	switch cfg.ExpansionStrategy {
	case "llm":
		return expanduc.NewLLM(expanduc.LLMConfig{
			APIKey:        cfg.LLM.APIKey,
			BaseURL:       cfg.LLM.BaseURL,
			Model:         cfg.LLM.Model,
			MaxExpansions: cfg.MaxExpansions,
			Logger:        logger,
		})
	default:
		return expanduc.New(rules).WithMaxExpansions(cfg.MaxExpansions)
	}
}

// gdprConfig merges configured field classes over the defaults.
func gdprConfig(cfg config.GDPRConfig) gdpruc.Config {
	out := gdpruc.DefaultConfig()
	out.Enabled = cfg.MaskingEnabled()
	if len(cfg.PIIFields) > 0 {
		out.PIIFields = cfg.PIIFields
	}
	if len(cfg.PHIFields) > 0 {
		out.PHIFields = cfg.PHIFields
	}
	if len(cfg.AddressFields) > 0 {
		out.AddressFields = cfg.AddressFields
	}
	out.PHIAllowedRoles = cfg.PHIAllowedRoles
	return out
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
