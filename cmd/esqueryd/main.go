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

	"github.com/kailas-cloud/esquery"
	"github.com/kailas-cloud/esquery/internal/config"
	"github.com/kailas-cloud/esquery/internal/domain/query"
	logpkg "github.com/kailas-cloud/esquery/internal/logger"
	"github.com/kailas-cloud/esquery/internal/metrics"
	chiTransport "github.com/kailas-cloud/esquery/internal/transport/chi"
	"github.com/kailas-cloud/esquery/internal/usecase/health"
	"github.com/kailas-cloud/esquery/internal/version"
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

	logger.Info("Starting esquery API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("elastic_addrs", cfg.Elastic.Addrs),
		zap.String("dialect", cfg.Elastic.Dialect),
		zap.Bool("cache", cfg.Cache.Enabled()),
	)

	// Register backend metrics explicitly (no init())
	metrics.RegisterBackendMetrics()

	client, err := newClient(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create search client", zap.Error(err))
	}
	defer client.Close()
	logger.Info("Connected to search backend")

	var cache health.Pinger
	if client.HasCache() {
		cache = cacheProbe{client}
	}
	healthSvc := health.New(client, cache)

	server := chiTransport.NewServer(client, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware("/metrics", "/health"))
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

// newClient maps the service configuration onto client options.
func newClient(cfg config.Config, logger *zap.Logger) (*esquery.Client, error) {
	dialect, err := query.ParseDialect(cfg.Elastic.Dialect)
	if err != nil {
		return nil, err
	}

	opts := []esquery.Option{
		esquery.WithAddresses(cfg.Elastic.Addrs...),
		esquery.WithDefaultIndex(cfg.Elastic.DefaultIndex),
		esquery.WithDialect(dialect),
		esquery.WithResultsPerPage(cfg.Search.DefaultPageSize),
		esquery.WithBulkChunkSize(cfg.Search.BulkChunkSize),
		esquery.WithReadinessTimeout(time.Duration(cfg.Elastic.ReadinessTimeout) * time.Second),
		esquery.WithLogger(logger),
	}
	if cfg.Elastic.Username != "" {
		opts = append(opts, esquery.WithBasicAuth(cfg.Elastic.Username, cfg.Elastic.Password))
	}
	if cfg.Cache.Enabled() {
		opts = append(opts, esquery.WithRedisCache(
			cfg.Cache.Addrs, cfg.Cache.Password, time.Duration(cfg.Cache.TTLSec)*time.Second,
		))
	}
	return esquery.New(opts...)
}

// cacheProbe adapts the client's cache ping to health.Pinger.
type cacheProbe struct {
	client *esquery.Client
}

func (p cacheProbe) Ping(ctx context.Context) error { return p.client.PingCache(ctx) }

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
						"code":    chiTransport.CodeInternalError,
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

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			ctx := logpkg.With(logpkg.ContextWithLogger(r.Context(), logger), zap.String("request_id", requestID))
			reqLogger := logpkg.FromContext(ctx)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
