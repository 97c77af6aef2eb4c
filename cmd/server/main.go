package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dealgrid/dealgrid/database/connect"
	"github.com/dealgrid/dealgrid/internal/config"
	"github.com/dealgrid/dealgrid/internal/guard"
	"github.com/dealgrid/dealgrid/internal/repository"
	"github.com/dealgrid/dealgrid/internal/server"
	"github.com/dealgrid/dealgrid/internal/service/audit"
	"github.com/dealgrid/dealgrid/internal/service/feed"
	"github.com/dealgrid/dealgrid/internal/service/suggestion"
	"github.com/dealgrid/dealgrid/internal/service/trust"
	"github.com/dealgrid/dealgrid/internal/service/visibility"
	"github.com/dealgrid/dealgrid/pkg/events"
	"github.com/dealgrid/dealgrid/pkg/logger"
	"github.com/dealgrid/dealgrid/pkg/metrics"
	"github.com/dealgrid/dealgrid/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(logger.Config{
		Environment: cfg.AppEnv,
		LogLevel:    cfg.LogLevel,
		ServiceName: cfg.AppName,
	})
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := connect.ConnectPostgres(ctx, log, cfg)
	if err != nil {
		log.Fatal("Failed to connect to postgres", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	var cache *redis.Cache
	if cfg.RedisHost != "" {
		redisClient, err := redis.NewClient(redis.Config{
			Host:         cfg.RedisHost,
			Port:         cfg.RedisPort,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			PoolSize:     cfg.RedisPoolSize,
			MinIdleConns: cfg.RedisMinIdleConns,
			MaxRetries:   cfg.RedisMaxRetries,
		}, log)
		if err != nil {
			log.Warn("Redis unavailable, feed cache disabled", zap.Error(err))
		} else {
			defer func() { _ = redisClient.Close() }()
			cache = redis.NewCache(redisClient, "dealgrid", "feed")
		}
	}

	var emitter events.Emitter
	eventEnabled := len(cfg.KafkaBrokers) > 0
	if eventEnabled {
		kafkaEmitter := events.NewKafkaEmitter(events.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		}, log)
		defer func() { _ = kafkaEmitter.Close() }()
		emitter = kafkaEmitter
	}

	metrics.Register()

	// Production protects readers; everything else fails fast.
	mode := guard.Strict
	if cfg.AppEnv == "production" {
		mode = guard.FailSafe
	}
	guards := guard.NewGuards(mode, log)

	campaignRepo := repository.NewCampaignRepository(db, log)
	auditRepo := repository.NewAuditRepository(db, log)
	suggestionRepo := repository.NewSuggestionRepository(db, log)

	auditSvc := audit.NewService(log, auditRepo)
	feedSvc := feed.NewService(log, campaignRepo, guards, cache)
	visibilitySvc := visibility.NewService(log, campaignRepo, guards, auditSvc, feedSvc, emitter, eventEnabled)
	history := trust.NewHistory(cfg.Trust, log)
	suggestionSvc := suggestion.NewService(log, suggestion.NewEngine(cfg.Suggestion, cfg.Trust), suggestionRepo, emitter, eventEnabled)

	sweeper, err := suggestion.NewSweeper(log, suggestionRepo, "")
	if err != nil {
		log.Fatal("Failed to schedule suggestion sweeper", zap.Error(err))
	}
	sweeper.Start()
	defer sweeper.Stop()

	adminSrv := server.New(log, ":"+cfg.HTTPPort, server.Deps{
		Visibility: visibilitySvc,
		Suggestion: suggestionSvc,
		Feed:       feedSvc,
		Audit:      auditSvc,
		Trust:      history,
		Guards:     guards,
		Campaigns:  campaignRepo,
	})
	server.Start(log, adminSrv)

	metricsSrv := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("Metrics server listening", zap.String("address", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Metrics server failed", zap.Error(err))
		}
	}()

	log.Info("Governance core started",
		zap.String("env", cfg.AppEnv),
		zap.String("guard_mode", mode.String()),
		zap.Bool("events_enabled", eventEnabled),
		zap.Bool("feed_cache", cache != nil),
	)

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx, log, adminSrv)
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("Metrics server shutdown failed", zap.Error(err))
	}
}
