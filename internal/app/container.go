package app

import (
	"context"
	"fmt"

	"github.com/tubelens/tubelens-analytics-go/internal/config"
	"github.com/tubelens/tubelens-analytics-go/internal/engine"
	"github.com/tubelens/tubelens-analytics-go/internal/service"
	"github.com/tubelens/tubelens-analytics-go/internal/service/cache"
	"github.com/tubelens/tubelens-analytics-go/internal/service/database"
	"github.com/tubelens/tubelens-analytics-go/internal/service/youtube"
	"go.uber.org/zap"
)

// Container holds the assembled service graph. Build wires everything;
// Close tears it down in reverse order.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	Cache     *cache.CacheService
	Postgres  *database.PostgresService
	History   *service.HistoryRepository
	OAuth     *youtube.OAuthService
	YouTube   *youtube.Service
	Analyzer  *service.AnalyzerService
	Scheduler *service.BaselineScheduler

	closers []func()
}

// Close releases every service in reverse construction order.
func (c *Container) Close() {
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// Build assembles all infrastructure services. Heavy-weight initialization
// (DB, cache, API clients) happens here so the binaries stay focused on
// lifecycle.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	// Cache and database
	cacheSvc, err := cache.NewCacheService(cache.CacheConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache service: %w", err)
	}
	closers = append(closers, func() {
		_ = cacheSvc.Close()
	})

	postgresSvc, err := database.NewPostgresService(database.PostgresConfig{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		Database: cfg.Postgres.Database,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres service: %w", err)
	}
	closers = append(closers, func() {
		_ = postgresSvc.Close()
	})

	if err := postgresSvc.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	historyRepo := service.NewHistoryRepository(postgresSvc, logger)
	for _, channelID := range cfg.Baseline.Channels {
		if err := historyRepo.TrackChannel(ctx, channelID, ""); err != nil {
			logger.Warn("Failed to register tracked channel",
				zap.String("channel", channelID), zap.Error(err))
		}
	}

	// YouTube API clients. OAuth is optional: without it the fetcher serves
	// public counters only and analyses degrade gracefully.
	oauthSvc, err := youtube.NewOAuthService(cfg.YouTube.CredentialsFile, cfg.YouTube.TokenFile, logger)
	if err != nil {
		if cfg.YouTube.APIKey == "" {
			return nil, fmt.Errorf("failed to create OAuth service and no API key configured: %w", err)
		}
		logger.Warn("OAuth unavailable, falling back to public API key", zap.Error(err))
		oauthSvc = nil
	}

	youtubeSvc, err := youtube.NewService(cfg.YouTube.APIKey, oauthSvc, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	window := engine.BaselineWindow{
		MaxVideos:  cfg.Baseline.LookbackVideos,
		MaxAgeDays: cfg.Baseline.LookbackDays,
	}
	pipeline := engine.NewPipeline(window)

	analyzer := service.NewAnalyzerService(youtubeSvc, historyRepo, cacheSvc, pipeline, window, logger)
	scheduler := service.NewBaselineScheduler(youtubeSvc, youtubeSvc, historyRepo, historyRepo, cacheSvc, window, logger)

	return &Container{
		Config:    cfg,
		Logger:    logger,
		Cache:     cacheSvc,
		Postgres:  postgresSvc,
		History:   historyRepo,
		OAuth:     oauthSvc,
		YouTube:   youtubeSvc,
		Analyzer:  analyzer,
		Scheduler: scheduler,
		closers:   closers,
	}, nil
}
