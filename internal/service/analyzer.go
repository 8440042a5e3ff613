package service

import (
	"context"
	"time"

	"github.com/tubelens/tubelens-analytics-go/internal/constants"
	"github.com/tubelens/tubelens-analytics-go/internal/domain"
	"github.com/tubelens/tubelens-analytics-go/internal/engine"
	"github.com/tubelens/tubelens-analytics-go/internal/service/cache"
	"github.com/tubelens/tubelens-analytics-go/internal/service/youtube"
	"go.uber.org/zap"
)

// AnalyticsFetcher pulls one video's raw analytics from the upstream API.
type AnalyticsFetcher interface {
	FetchVideoAnalytics(ctx context.Context, channelID, videoID string, rangeDays int, now time.Time) (*youtube.FetchResult, error)
}

// HistoryStore reads and writes the derived metric history that baselines
// are built from.
type HistoryStore interface {
	SaveDerived(ctx context.Context, d *domain.DerivedMetrics) error
	GetChannelHistory(ctx context.Context, channelID string, maxVideos, maxAgeDays int) ([]*domain.DerivedMetrics, error)
}

// ResultCache is the analysis result cache. Get reports hit/miss
// separately from failure.
type ResultCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// AnalyzerService answers "why is this video underperforming" for one
// video. It fetches raw analytics, runs the engine against the channel's
// stored history, persists the fresh derived record, and caches the result.
type AnalyzerService struct {
	fetcher  AnalyticsFetcher
	history  HistoryStore
	cache    ResultCache
	pipeline *engine.Pipeline
	window   engine.BaselineWindow
	logger   *zap.Logger
}

func NewAnalyzerService(fetcher AnalyticsFetcher, history HistoryStore, resultCache ResultCache, pipeline *engine.Pipeline, window engine.BaselineWindow, logger *zap.Logger) *AnalyzerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyzerService{
		fetcher:  fetcher,
		history:  history,
		cache:    resultCache,
		pipeline: pipeline,
		window:   window,
		logger:   logger,
	}
}

// AnalyzeVideo returns the full analysis for one (channel, video, range)
// tuple, serving from cache when a fresh result exists.
func (s *AnalyzerService) AnalyzeVideo(ctx context.Context, channelID, videoID string, rangeDays int) (*domain.VideoAnalysis, error) {
	key := cache.AnalysisKey(channelID, videoID, rangeDays)

	var cached domain.VideoAnalysis
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn("Analysis cache read failed, recomputing",
			zap.String("key", key), zap.Error(err))
	}
	if hit {
		s.logger.Debug("Analysis cache hit", zap.String("key", key))
		return &cached, nil
	}

	now := time.Now().UTC()
	fetched, err := s.fetcher.FetchVideoAnalytics(ctx, channelID, videoID, rangeDays, now)
	if err != nil {
		return nil, err
	}

	// Fetch bounds follow the configured baseline window, with one extra
	// row because the engine excludes the target video from its own
	// baseline and the target may be among the stored rows.
	maxVideos := s.window.MaxVideos
	if maxVideos > 0 {
		maxVideos++
	}
	history, err := s.history.GetChannelHistory(ctx, channelID, maxVideos, s.window.MaxAgeDays)
	if err != nil {
		s.logger.Warn("Channel history unavailable, baseline will be empty",
			zap.String("channel", channelID), zap.Error(err))
		history = nil
	}

	out, err := s.pipeline.Analyze(fetched.Raw, fetched.PublishedAt, history, fetched.Availability, now)
	if err != nil {
		return nil, err
	}

	if err := s.history.SaveDerived(ctx, out.Derived); err != nil {
		s.logger.Warn("Failed to persist derived metrics",
			zap.String("video", videoID), zap.Error(err))
	}

	analysis := &domain.VideoAnalysis{
		VideoID:      videoID,
		ChannelID:    channelID,
		RangeDays:    rangeDays,
		Derived:      out.Derived,
		Baseline:     out.Baseline,
		Comparison:   out.Comparison,
		Bottleneck:   out.Bottleneck,
		Confidence:   out.Confidence,
		Availability: fetched.Availability,
		AnalyzedAt:   now,
	}

	if err := s.cache.Set(ctx, key, analysis, constants.CacheTTL.AnalysisResult); err != nil {
		s.logger.Warn("Failed to cache analysis result",
			zap.String("key", key), zap.Error(err))
	}

	s.logger.Info("Video analyzed",
		zap.String("channel", channelID),
		zap.String("video", videoID),
		zap.Int("range_days", rangeDays),
		zap.String("bottleneck", string(out.Bottleneck.Bottleneck)),
		zap.String("confidence", string(out.Confidence.Overall)))
	return analysis, nil
}
