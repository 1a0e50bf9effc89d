package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aryan0dhankhar/droplog/internal/domain"
	"github.com/aryan0dhankhar/droplog/internal/featureflags"
	"github.com/aryan0dhankhar/droplog/internal/handler"
	"github.com/aryan0dhankhar/droplog/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/droplog/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/droplog/internal/observability/metrics"
	"github.com/aryan0dhankhar/droplog/internal/observability/tracing"
	"github.com/aryan0dhankhar/droplog/internal/repository"
	"github.com/aryan0dhankhar/droplog/internal/security/capability"
	"github.com/aryan0dhankhar/droplog/internal/security/middleware"
	"github.com/aryan0dhankhar/droplog/internal/security/ratelimit"
	"github.com/aryan0dhankhar/droplog/internal/service"
	"github.com/aryan0dhankhar/droplog/internal/worker"
	"github.com/aryan0dhankhar/droplog/pkg/config"
	"github.com/aryan0dhankhar/droplog/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting droplog server",
		slog.String("environment", cfg.Environment),
		slog.String("store", cfg.StoreBackend),
		slog.String("token_scheme", cfg.TokenScheme),
	)
	if cfg.UsingDevSecret() {
		log.Warn("using built-in development secret; set SECRET_KEY before exposing this server")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, log, "droplog", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 3. Token service
	codec, err := capability.New(cfg.TokenScheme, cfg.SecretKey)
	if err != nil {
		log.Error("failed to initialize token codec", slog.String("error", err.Error()))
		os.Exit(1)
	}
	tokens := capability.NewCachedCodec(codec, 10000, 10*time.Minute)

	// 4. Tenant store
	checks := map[string]handler.Pinger{}
	var (
		store       domain.TenantStore
		sqliteStore *repository.SQLiteTenantStore
	)
	switch cfg.StoreBackend {
	case "redis":
		redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Error("failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()
		store = repository.NewRedisTenantStore(redisClient, "droplog", log)
	default:
		sqliteStore, err = repository.NewSQLiteTenantStore(cfg.DataDir, log)
		if err != nil {
			log.Error("failed to open data directory", slog.String("error", err.Error()))
			os.Exit(1)
		}
		store = sqliteStore
	}
	guarded := repository.NewGuardedStore(store, nil, log)
	checks["store"] = guarded

	// 5. Optional claim ledger
	var ledger domain.ClaimLedger
	if featureflags.Enabled(featureflags.ClaimLedger) {
		pool, err := openClaimPool(ctx, cfg, log)
		if err != nil {
			log.Error("failed to open claim ledger", slog.String("error", err.Error()))
			os.Exit(1)
		}
		sqlLedger, err := repository.NewSQLClaimLedger(ctx, pool, log)
		if err != nil {
			log.Error("failed to initialize claim ledger", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer sqlLedger.Close()
		ledger = sqlLedger
		checks["claims"] = handler.PingFunc(pool.Health)
		log.Info("claim ledger enabled", slog.String("driver", pool.Driver()))
	}

	// 6. Services and handlers
	namespaces := service.NewNamespaceService(guarded, tokens, ledger, log)

	mux := http.NewServeMux()
	handler.Register(mux,
		handler.NewNamespaceHandler(namespaces, log, cfg.MaxBodyBytes),
		handler.NewHealthHandler(checks, log),
		handler.NewPageHandler(cfg.StaticDir, log),
	)

	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept", "Authorization"},
		ExposedHeaders: []string{"X-Request-ID"},
	})

	// Chain middleware: tracing -> request ID -> CORS -> rate limit -> metrics -> mux
	rootHandler := otelhttp.NewHandler(
		middleware.RequestID(log)(
			corsHandler.Handler(
				middleware.RateLimitMiddleware(rateLimiter, log)(
					metrics.HTTPMetricsMiddleware(mux),
				),
			),
		),
		"droplog",
	)

	// 7. Janitor for interrupted log creation (SQLite only)
	if sqliteStore != nil {
		janitor := worker.NewJanitor(sqliteStore, log, time.Duration(cfg.JanitorIntervalMinutes)*time.Minute)
		go janitor.Start(ctx)
	}

	// 8. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.Int("rate_limit", cfg.RateLimitPerMinute),
		slog.String("rate_limit_window", "1m"),
		slog.Int64("max_body_bytes", cfg.MaxBodyBytes),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
			sigChan <- syscall.SIGTERM
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // Stop janitor
	rateLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

// openClaimPool prefers Postgres when DATABASE_URL is set and falls back to a
// SQLite file beside the namespace logs
func openClaimPool(ctx context.Context, cfg *config.Config, log *slog.Logger) (*database.ConnectionPool, error) {
	if cfg.DatabaseURL != "" {
		return database.NewConnectionPool(ctx, database.PostgresConfig(cfg.DatabaseURL), log)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return database.NewConnectionPool(ctx, database.SQLiteConfig(filepath.Join(cfg.DataDir, "_claims.db")), log)
}
