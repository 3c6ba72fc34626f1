package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/trustchain-labs/trustchain/internal/health"
	"github.com/trustchain-labs/trustchain/internal/ledger"
	"github.com/trustchain-labs/trustchain/internal/metrics"
	"github.com/trustchain-labs/trustchain/internal/render"
	"github.com/trustchain-labs/trustchain/internal/score"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	if err := run(logger); err != nil {
		logger.Fatal("watchdogd exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	// ── Configuration ────────────────────────────────────────────────────────
	viper.SetConfigName("watchdogd")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("configs")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("TRUSTCHAIN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("watchdog.port", 9090)
	viper.SetDefault("watchdog.interval", "60s")
	viper.SetDefault("watchdog.rate_limit_rps", 20)
	viper.SetDefault("watchdog.cors_origins", []string{"*"})
	viper.SetDefault("ledger.path", ledger.DefaultPath)
	viper.SetDefault("ledger.tenant", ledger.DefaultTenant)

	if err := viper.ReadInConfig(); err != nil {
		var cfgNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgNotFound) {
			return fmt.Errorf("read config: %w", err)
		}
		logger.Warn("no config file found, using defaults and env vars")
	}

	// ── Engine wiring ─────────────────────────────────────────────────────────
	ledgerPath := viper.GetString("ledger.path")
	led := ledger.New(ledger.Config{
		Sink:   ledger.FileSink{Path: ledgerPath},
		Tenant: viper.GetString("ledger.tenant"),
	}, logger)
	engine := score.New(led, logger)
	renderer := render.New(led, logger)

	interval := viper.GetDuration("watchdog.interval")
	wd := health.New(led, engine, renderer, health.Config{
		LedgerPath:    ledgerPath,
		CheckInterval: interval,
	}, logger)
	wd.SetMetricsRecord(metrics.RecordWatchdogCheck)
	wd.SetOnReport(func(r health.Report) {
		metrics.SetWatchdogHealthy(r.Healthy())
	})

	instanceID := uuid.NewString()
	logger.Info("watchdog starting",
		zap.String("instance_id", instanceID),
		zap.String("ledger_path", ledgerPath),
		zap.Duration("interval", interval),
	)

	// ── Watchdog loop ─────────────────────────────────────────────────────────
	// The loop gets its own quit channel: closing it after the signal
	// arrives stops the ticker without racing the main goroutine for the
	// single delivered signal value.
	wdQuit := make(chan os.Signal, 1)
	go wd.Start(wdQuit)

	// ── HTTP Router ───────────────────────────────────────────────────────────
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowOrigins:  viper.GetStringSlice("watchdog.cors_origins"),
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	rps := viper.GetInt("watchdog.rate_limit_rps")
	if rps > 0 {
		router.Use(rateLimiter(rps, rps*2))
	}

	router.Use(metrics.PrometheusMiddleware())
	router.Use(requestLogger(logger))

	router.GET("/healthz", func(c *gin.Context) {
		report, ok := wd.Last()
		if !ok {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "starting",
				"instance_id": instanceID,
			})
			return
		}
		status := http.StatusOK
		if !report.Healthy() {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"status":      report.Status,
			"instance_id": instanceID,
			"report":      report,
		})
	})
	router.GET("/metrics", metrics.Handler())

	// ── Serve + graceful shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	port := viper.GetInt("watchdog.port")
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("watchdogd HTTP listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP listen error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down watchdogd...")
	close(wdQuit)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Info("watchdogd stopped")
	return nil
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter returns a Gin middleware that enforces per-IP token-bucket
// rate limiting. rps is the steady-state requests per second; burst is the
// maximum burst size. Stale entries are cleaned every 5 minutes.
func rateLimiter(rps, burst int) gin.HandlerFunc {
	var mu sync.Mutex
	limiters := make(map[string]*ipLimiter)

	// Background cleanup goroutine.
	go func() {
		for {
			time.Sleep(5 * time.Minute)
			mu.Lock()
			for ip, l := range limiters {
				if time.Since(l.lastSeen) > 10*time.Minute {
					delete(limiters, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		l, ok := limiters[ip]
		if !ok {
			l = &ipLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
			limiters[ip] = l
		}
		l.lastSeen = time.Now()
		mu.Unlock()

		if !l.limiter.Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
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
		)
	}
}
