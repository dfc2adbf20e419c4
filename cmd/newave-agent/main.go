package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hugomontan/newave-agent-sub004/internal/config"
	"github.com/hugomontan/newave-agent-sub004/internal/db"
	dbRedis "github.com/hugomontan/newave-agent-sub004/internal/db/redis"
	"github.com/hugomontan/newave-agent-sub004/internal/domain"
	"github.com/hugomontan/newave-agent-sub004/internal/domain/expand"
	"github.com/hugomontan/newave-agent-sub004/internal/domain/plant"
	logpkg "github.com/hugomontan/newave-agent-sub004/internal/logger"
	"github.com/hugomontan/newave-agent-sub004/internal/metrics"
	aliasrepo "github.com/hugomontan/newave-agent-sub004/internal/repository/aliases"
	budgetrepo "github.com/hugomontan/newave-agent-sub004/internal/repository/budget"
	"github.com/hugomontan/newave-agent-sub004/internal/repository/embcache"
	"github.com/hugomontan/newave-agent-sub004/internal/tools"
	chiTransport "github.com/hugomontan/newave-agent-sub004/internal/transport/chi"
	openaiEmb "github.com/hugomontan/newave-agent-sub004/internal/transport/openai"
	embeddinguc "github.com/hugomontan/newave-agent-sub004/internal/usecase/embedding"
	healthuc "github.com/hugomontan/newave-agent-sub004/internal/usecase/health"
	resolutionuc "github.com/hugomontan/newave-agent-sub004/internal/usecase/resolution"
	routinguc "github.com/hugomontan/newave-agent-sub004/internal/usecase/routing"
	usageuc "github.com/hugomontan/newave-agent-sub004/internal/usecase/usage"
	"github.com/hugomontan/newave-agent-sub004/internal/version"
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

	logger.Info("Starting newave-agent API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Bool("database_enabled", cfg.Database.Enabled),
		zap.String("embedding_provider", cfg.Embedding.Provider),
	)

	ctx := context.Background()

	// The KV store is optional: without it the embedding cache is in-memory
	// only and budget counters reset on restart.
	var store db.Store
	if cfg.Database.Enabled {
		redisStore, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		defer redisStore.Close()

		if err := redisStore.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		logger.Info("Connected to database")
		store = redisStore
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRoutingMetrics()

	provName := cfg.Embedding.Provider

	// Single BudgetTracker shared by the embedder chain and the usage service.
	var budget *embeddinguc.BudgetTracker
	budgetCfg := cfg.Embedding.Budget
	if budgetCfg.DailyTokenLimit > 0 || budgetCfg.MonthlyTokenLimit > 0 {
		action := embeddinguc.BudgetActionWarn
		if budgetCfg.Action == "reject" {
			action = embeddinguc.BudgetActionReject
		}
		budget = embeddinguc.NewBudgetTracker(
			provName, budgetCfg.DailyTokenLimit, budgetCfg.MonthlyTokenLimit, action, logger,
		)
		// Connect persistence store — loads current counters from DB.
		if store != nil {
			budgetStore := budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour)
			budget.WithStore(ctx, budgetStore)
		}
	}

	// Embedder chain: OpenAI-compatible provider -> budget instrumentation.
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   provName,
		Logger:     logger,
	})
	embedder := embeddinguc.NewInstrumentedEmbedder(base, budget, provName, logger)
	logger.Info("Embedder created",
		zap.String("provider", provName),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// Embedding cache with optional KV write-through.
	cache := embcache.New(store, metrics.EmbeddingCacheTotal, logger)

	registry, err := tools.Default()
	if err != nil {
		logger.Fatal("Failed to build tool registry", zap.Error(err))
	}
	logger.Info("Tool registry built", zap.Int("tools", registry.Len()))

	// The alias table is optional reference data: a missing file degrades
	// resolution to live names only.
	var aliases []plant.AliasRecord
	if cfg.Resolver.AliasTablePath != "" {
		aliases, err = aliasrepo.Load(cfg.Resolver.AliasTablePath, logger)
		if err != nil {
			if !errors.Is(err, domain.ErrAliasTableNotFound) {
				logger.Fatal("Failed to load alias table", zap.Error(err))
			}
			logger.Warn("Alias table not found, resolving against live names only",
				zap.String("path", cfg.Resolver.AliasTablePath),
			)
		} else {
			logger.Info("Alias table loaded", zap.Int("records", len(aliases)))
		}
	}

	// Create use case services
	routerSvc := routinguc.New(cache, embedder, registry, expand.DefaultRules(), routinguc.Config{
		ExecuteThreshold:   cfg.Router.ExecuteThreshold,
		RankThreshold:      cfg.Router.RankThreshold,
		TopK:               cfg.Router.TopK,
		FilterByCapability: cfg.Router.FilterByCapability,
		FanoutWorkers:      cfg.Router.FanoutWorkers,
		FetchTimeout:       time.Duration(cfg.Router.FetchTimeoutSec) * time.Second,
	}, logger)

	resolverSvc := resolutionuc.New(aliases, resolutionuc.Config{
		EntityKind:      cfg.Resolver.EntityKind,
		Threshold:       cfg.Resolver.Threshold,
		SnapshotTimeout: time.Duration(cfg.Resolver.SnapshotTimeoutSec) * time.Second,
	}, logger)

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetReader = budget
	}
	usageSvc := usageuc.New(budgetReader, provName)

	// Health service. The db pinger stays nil when the store is disabled.
	var dbPinger healthuc.DBPinger
	if store != nil {
		dbPinger = store
	}
	healthSvc := healthuc.New(dbPinger, newEmbeddingHealthChecker(base))

	// Create chi server
	server := chiTransport.NewServer(
		routerSvc, resolverSvc, cache, registry, usageSvc, healthSvc, logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
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

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
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
