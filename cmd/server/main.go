package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ad-tracker/video-moderation-go/internal/cache"
	"github.com/ad-tracker/video-moderation-go/internal/config"
	"github.com/ad-tracker/video-moderation-go/internal/db"
	"github.com/ad-tracker/video-moderation-go/internal/db/repository"
	"github.com/ad-tracker/video-moderation-go/internal/handler"
	"github.com/ad-tracker/video-moderation-go/internal/metadata"
	"github.com/ad-tracker/video-moderation-go/internal/metrics"
	"github.com/ad-tracker/video-moderation-go/internal/moderation"
	"github.com/ad-tracker/video-moderation-go/internal/service"
	"github.com/ad-tracker/video-moderation-go/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg); err != nil {
		logger.Log.Error("Server exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()
	gin.SetMode(cfg.Server.Mode)

	pool, err := db.NewPool(ctx, db.ConfigFrom(cfg.Database))
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close(pool)
	logger.Log.Info("Connected to database", zap.String("host", cfg.Database.Host))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	svc := moderation.NewService(repository.NewStore(pool), moderation.WithMetrics(m))

	var fetcher metadata.Fetcher = metadata.NewClient(nil, cfg.Metadata.BaseURL, cfg.Metadata.Timeout)
	var cachePinger handler.Pinger
	if cfg.Redis.Enabled {
		rdb, err := cache.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer func() { _ = rdb.Close() }()

		fetcher = metadata.NewCachedFetcher(fetcher, rdb, cfg.Redis.CacheTTL, m)
		cachePinger = redisPinger(rdb)
		logger.Log.Info("Metadata cache enabled", zap.Duration("ttl", cfg.Redis.CacheTTL))
	}

	var publisher service.EventPublisher
	if cfg.RabbitMQ.Enabled {
		mp, err := service.NewMessagePublisher(&cfg.RabbitMQ)
		if err != nil {
			return fmt.Errorf("connect to rabbitmq: %w", err)
		}
		defer func() {
			if err := mp.Close(); err != nil {
				logger.Log.Warn("Failed to close publisher", zap.Error(err))
			}
		}()
		publisher = mp
	}

	router := handler.NewRouter(handler.RouterConfig{
		Moderation: handler.NewModerationHandler(svc, publisher, m),
		Metadata:   handler.NewMetadataHandler(fetcher),
		Health:     handler.NewHealthHandler(pool, cachePinger, publisher),
		Metrics:    m,
		Gatherer:   reg,
		APIKeys:    cfg.Auth.APIKeys,
	})

	if len(cfg.Auth.APIKeys) == 0 {
		logger.Log.Warn("No API keys configured, /add_video is open")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Log.Info("Server starting", zap.Int("port", cfg.Server.Port))
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Graceful shutdown failed", zap.Error(err))
			if err := server.Close(); err != nil {
				logger.Log.Error("Failed to close server", zap.Error(err))
			}
			return err
		}

		logger.Log.Info("Server stopped gracefully")
		return nil
	}
}

func redisPinger(rdb *redis.Client) handler.Pinger {
	return handler.PingFunc(func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
}
