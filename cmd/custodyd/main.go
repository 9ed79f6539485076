package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/forensic-chain/forchain/internal/audit"
	"github.com/forensic-chain/forchain/internal/custody/handler"
	"github.com/forensic-chain/forchain/internal/custody/service"
	"github.com/forensic-chain/forchain/internal/evidencestore"
	"github.com/forensic-chain/forchain/internal/ledger"
	"github.com/forensic-chain/forchain/internal/notify"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	if err := run(logger); err != nil {
		logger.Fatal("custodyd exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	// ── Configuration ────────────────────────────────────────────────────────
	viper.SetConfigName("custodyd")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("configs")
	viper.AddConfigPath(".")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("custody.port", 8080)
	viper.SetDefault("custody.difficulty", 2)
	viper.SetDefault("custody.max_nonce_attempts", 0)
	viper.SetDefault("custody.cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("custody.rate_limit_rps", 20)
	viper.SetDefault("custody.rate_limit_burst", 40)
	viper.SetDefault("custody.rate_limit_cleanup", "5m")
	viper.SetDefault("custody.store_dir", "evidence_store")
	viper.SetDefault("custody.audit_interval", "5m")
	viper.SetDefault("database.url", "")

	if err := viper.ReadInConfig(); err != nil {
		var cfgNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgNotFound) {
			return fmt.Errorf("read config: %w", err)
		}
		logger.Warn("no config file found, using defaults and env vars")
	}

	startCtx := context.Background()

	// ── Block store ──────────────────────────────────────────────────────────
	// With no database.url the chain lives in memory only; every restart
	// mines a fresh genesis block.
	var store ledger.Store = ledger.NewMemoryStore()
	dbURL := viper.GetString("database.url")
	if dbURL != "" {
		db, err := pgxpool.New(startCtx, dbURL)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer db.Close()

		if err := db.Ping(startCtx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		pg := ledger.NewPostgresStore(db, logger)
		if err := pg.EnsureSchema(startCtx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		store = pg
		logger.Info("block store: postgres")
	} else {
		logger.Warn("block store: in-memory (set DATABASE_URL to persist the chain)")
	}

	// ── Chain ────────────────────────────────────────────────────────────────
	chain, err := ledger.NewChain(startCtx, ledger.Config{
		Difficulty:       viper.GetInt("custody.difficulty"),
		MaxNonceAttempts: viper.GetUint64("custody.max_nonce_attempts"),
		Store:            store,
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("open chain: %w", err)
	}
	logger.Info("chain ready",
		zap.Int("blocks", chain.Len()),
		zap.Int("difficulty", chain.Difficulty()),
		zap.String("latest_hash", chain.Latest().Hash),
	)

	// ── Evidence file store ──────────────────────────────────────────────────
	fileStore, err := evidencestore.New(viper.GetString("custody.store_dir"), logger)
	if err != nil {
		return fmt.Errorf("open evidence store: %w", err)
	}

	// ── Wire up layers ───────────────────────────────────────────────────────
	svc := service.New(chain, logger)

	notifySvc := notify.NewService(notify.NewRepository(), logger)
	svc.SetEventDispatch(notifySvc.Dispatch)

	participantHandler := handler.NewParticipantHandler(svc, logger)
	evidenceHandler := handler.NewEvidenceHandler(svc, logger)
	chainHandler := handler.NewChainHandler(svc, logger)
	storeHandler := handler.NewStoreHandler(fileStore, logger)
	notifyHandler := notify.NewHandler(notifySvc, logger)

	// ── HTTP Router ──────────────────────────────────────────────────────────
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS
	corsOrigins := viper.GetStringSlice("custody.cors_origins")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: !containsWildcard(corsOrigins),
		MaxAge:           12 * time.Hour,
	}))

	// Security headers
	router.Use(func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})

	// Request body size limit (32 MB, uploads included)
	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 32<<20)
		c.Next()
	})

	// Per-IP rate limiting
	rps := viper.GetInt("custody.rate_limit_rps")
	if rps > 0 {
		router.Use(handler.RateLimiter(handler.RateLimitConfig{
			RPS:             rps,
			Burst:           viper.GetInt("custody.rate_limit_burst"),
			CleanupInterval: viper.GetDuration("custody.rate_limit_cleanup"),
		}, logger))
	}

	router.Use(handler.RequestID())
	router.Use(handler.PrometheusMiddleware())
	router.Use(requestLogger(logger))

	// Health and metrics (public, outside the versioned API)
	router.GET("/healthz", chainHandler.Health())
	router.GET("/metrics", handler.MetricsHandler())

	// API v1
	v1 := router.Group("/api/v1")
	participantHandler.Register(v1)
	evidenceHandler.Register(v1)
	chainHandler.Register(v1)
	storeHandler.Register(v1)
	notifyHandler.Register(v1)

	// ── Serve ────────────────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// ── Background: periodic chain integrity audit ───────────────────────────
	auditInterval := viper.GetDuration("custody.audit_interval")
	if auditInterval > 0 {
		auditor := audit.New(svc, audit.Config{CheckInterval: auditInterval}, logger)
		auditor.SetMetricsRecord(func(success bool) {
			if !success {
				handler.RecordVerificationFailure()
				notifySvc.Dispatch(context.Background(), notify.EventChainIntegrityAlarm, nil)
			}
		})
		go auditor.Start(quit)
		logger.Info("chain audit loop started", zap.Duration("interval", auditInterval))
	}

	httpPort := viper.GetInt("custody.port")
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", httpPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("custodyd HTTP listening", zap.Int("port", httpPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP listen error", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	<-quit
	logger.Info("shutting down custodyd...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Info("custodyd stopped")
	return nil
}

// containsWildcard returns true if origins includes "*".
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}

// requestLogger returns a Gin middleware that logs each request with zap.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.Writer.Header().Get("X-Request-ID")),
		)
	}
}
