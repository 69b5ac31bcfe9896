package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/timeout"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kundrost/feedback-fraud/internal/fraud"
	"github.com/kundrost/feedback-fraud/pkg/common"
	"github.com/kundrost/feedback-fraud/pkg/config"
	"github.com/kundrost/feedback-fraud/pkg/database"
	"github.com/kundrost/feedback-fraud/pkg/health"
	"github.com/kundrost/feedback-fraud/pkg/logger"
	"github.com/kundrost/feedback-fraud/pkg/middleware"
	"github.com/kundrost/feedback-fraud/pkg/redis"
)

const serviceName = "fraud"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	// Connect to PostgreSQL for verdict persistence
	pool, err := database.NewPostgresPool(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(pool)
	logger.Info("connected to postgres")

	// History backend: redis when reachable, in-memory otherwise. Dependency
	// probes are bounded and cached so health polling cannot pile up on a
	// slow dependency.
	var history fraud.HistoryStore
	dbCheck := health.NewCachedChecker(
		health.AsyncChecker(health.DatabaseChecker(pool), 3*time.Second), 10*time.Second)
	healthChecks := map[string]func() error{
		"database": dbCheck.Check,
	}
	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, using in-memory history", zap.Error(err))
		history = fraud.NewMemoryHistoryStore()
	} else {
		defer redisClient.Close()
		history = fraud.NewRedisHistoryStore(redisClient)
		redisCheck := health.NewCachedChecker(
			health.AsyncChecker(health.RedisChecker(redisClient.Client), 3*time.Second), 10*time.Second)
		healthChecks["redis"] = redisCheck.Check
		logger.Info("connected to redis")
	}

	opts := []fraud.Option{
		fraud.WithResultRepository(fraud.NewRepository(pool)),
	}
	if cfg.NATS.Enabled {
		alerts, err := fraud.NewNatsAlertPublisher(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			logger.Fatal("failed to connect to nats", zap.Error(err))
		}
		defer alerts.Close()
		opts = append(opts, fraud.WithAlertPublisher(alerts))
		logger.Info("connected to nats", zap.String("subject", cfg.NATS.Subject))
	}

	engine, err := fraud.NewEngine(fraud.FromAppConfig(cfg.Fraud), history, opts...)
	if err != nil {
		logger.Fatal("failed to build fraud engine", zap.Error(err))
	}
	defer engine.Close()

	handler := fraud.NewHandler(engine, fraud.NewRepository(pool))

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics(serviceName))
	router.Use(middleware.SecurityHeaders())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.Server.CORSOrigins, ",")
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Correlation-ID"}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", common.HealthCheckWithDeps(serviceName, "1.0.0", healthChecks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	api.Use(timeout.New(
		timeout.WithTimeout(time.Duration(cfg.Server.WriteTimeout) * time.Second),
		timeout.WithHandler(func(c *gin.Context) { c.Next() }),
		timeout.WithResponse(func(c *gin.Context) {
			common.ErrorResponse(c, http.StatusGatewayTimeout, "request timed out")
		}),
	))
	handler.RegisterRoutes(api)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("fraud service starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
