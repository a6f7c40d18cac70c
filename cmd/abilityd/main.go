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

	"github.com/merchkit/abilityd/internal/ability"
	authability "github.com/merchkit/abilityd/internal/ability/auth"
	crawlerability "github.com/merchkit/abilityd/internal/ability/crawler"
	searchability "github.com/merchkit/abilityd/internal/ability/search"
	"github.com/merchkit/abilityd/internal/config"
	"github.com/merchkit/abilityd/internal/es"
	"github.com/merchkit/abilityd/internal/health"
	logpkg "github.com/merchkit/abilityd/internal/logger"
	"github.com/merchkit/abilityd/internal/metrics"
	chiTransport "github.com/merchkit/abilityd/internal/transport/chi"
	"github.com/merchkit/abilityd/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting abilityd server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("engine_host", cfg.Engine.Host),
		zap.String("search_index", cfg.Search.Index),
	)

	// Register ability metrics explicitly (no init())
	metrics.RegisterAbilityMetrics()

	// Vendor credential store. Login falls back to static users when the
	// store cannot be opened and fallback is enabled.
	var store *authability.Store
	store, err = authability.OpenStore(cfg.Login.DBPath)
	if err != nil {
		if !cfg.Login.FallbackEnabled {
			logger.Fatal("Failed to open vendor store", zap.Error(err))
		}
		logger.Warn("Vendor store unavailable, login uses static fallback", zap.Error(err))
		store = nil
	} else {
		defer store.Close()
	}

	// Composition root — build abilities and register them
	registry := ability.NewRegistry()

	registry.Register(crawlerability.New(crawlerability.Options{
		Timeout:      time.Duration(cfg.Crawler.TimeoutSec) * time.Second,
		MaxBodyBytes: cfg.Crawler.MaxBodyBytes,
	}, logger))

	staticUsers := make(map[string]authability.StaticUser, len(cfg.Login.Users))
	for name, u := range cfg.Login.Users {
		staticUsers[name] = authability.StaticUser{Password: u.Password, MerchantID: u.MerchantID}
	}
	var credStore authability.CredentialStore
	if store != nil {
		credStore = store
	}
	registry.Register(authability.New(authability.Options{
		FallbackEnabled: cfg.Login.FallbackEnabled,
		Users:           staticUsers,
	}, credStore, logger))

	engineCfg := es.Config{
		Host:        cfg.Engine.Host,
		Port:        cfg.Engine.Port,
		Username:    cfg.Engine.Username,
		Password:    cfg.Engine.Password,
		UseSSL:      cfg.Engine.UseSSL,
		VerifyCerts: cfg.Engine.VerifyCerts,
		Timeout:     time.Duration(cfg.Engine.TimeoutSec) * time.Second,
	}
	registry.Register(searchability.New(searchability.Options{
		Index:       cfg.Search.Index,
		DefaultSize: cfg.Search.DefaultSize,
		Fuzziness:   cfg.Search.Fuzziness,
		MinScore:    cfg.Search.MinScore,
		MaxAttempts: cfg.Search.MaxAttempts,
		BackoffBase: time.Duration(cfg.Search.BackoffBaseMS) * time.Millisecond,
		Timeout:     time.Duration(cfg.Engine.TimeoutSec) * time.Second,
		Fallback: searchability.FallbackOptions{
			Enabled:  cfg.Fallback.Enabled,
			Keywords: cfg.Fallback.Keywords,
			Size:     cfg.Fallback.Size,
		},
	}, func() searchability.Engine { return es.Dial(engineCfg) }, logger))

	logger.Info("Abilities registered", zap.Any("abilities", registry.List()))

	// Health service
	healthSvc := health.New()
	if store != nil {
		healthSvc.With("vendor_store", store)
	}

	server := chiTransport.NewServer(registry, healthSvc, logger)

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
			ctx := logpkg.WithContext(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
