package service

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/tubelens/tubelens-analytics-go/internal/constants"
	"github.com/tubelens/tubelens-analytics-go/internal/engine"
	"github.com/tubelens/tubelens-analytics-go/internal/service/cache"
	"github.com/tubelens/tubelens-analytics-go/internal/service/youtube"
	"go.uber.org/zap"
)

// UploadLister enumerates a channel's recent uploads.
type UploadLister interface {
	ListRecentUploads(ctx context.Context, channelID string, maxResults int64) ([]youtube.Upload, error)
}

// ChannelDirectory lists the channels whose baselines are maintained.
type ChannelDirectory interface {
	ListTrackedChannels(ctx context.Context) ([]string, error)
}

// ChannelInvalidator drops a channel's cached analyses. Optional: caches
// that cannot sweep by channel simply let entries age out.
type ChannelInvalidator interface {
	InvalidateChannel(ctx context.Context, channelID string) (int64, error)
}

// BaselineScheduler keeps channel baselines warm. Every refresh interval it
// walks the tracked channels, refreshes the derived metric history for each
// channel's recent uploads, rebuilds the baseline, and replaces the cached
// copy wholesale.
type BaselineScheduler struct {
	fetcher  AnalyticsFetcher
	uploads  UploadLister
	channels ChannelDirectory
	history  HistoryStore
	cache    ResultCache
	window   engine.BaselineWindow
	logger   *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func NewBaselineScheduler(
	fetcher AnalyticsFetcher,
	uploads UploadLister,
	channels ChannelDirectory,
	history HistoryStore,
	resultCache ResultCache,
	window engine.BaselineWindow,
	logger *zap.Logger,
) *BaselineScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BaselineScheduler{
		fetcher:  fetcher,
		uploads:  uploads,
		channels: channels,
		history:  history,
		cache:    resultCache,
		window:   window,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start launches the refresh loop. The first pass runs immediately so a
// fresh deployment has baselines before the first tick.
func (s *BaselineScheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go func() {
		defer close(s.done)

		s.logger.Info("Baseline scheduler started",
			zap.Duration("interval", constants.SchedulerConfig.RefreshInterval))
		s.refreshAll(ctx)

		ticker := time.NewTicker(constants.SchedulerConfig.RefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Baseline scheduler stopped")
				return
			case <-ticker.C:
				s.refreshAll(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for the current pass to finish. A no-op
// when Start was never called, so one-shot tools can tear down a container
// without running the loop.
func (s *BaselineScheduler) Stop() {
	s.once.Do(func() {
		if s.cancel == nil {
			return
		}
		s.cancel()
		<-s.done
	})
}

func (s *BaselineScheduler) refreshAll(ctx context.Context) {
	channels, err := s.channels.ListTrackedChannels(ctx)
	if err != nil {
		s.logger.Error("Failed to list tracked channels", zap.Error(err))
		return
	}
	if len(channels) == 0 {
		s.logger.Debug("No tracked channels to refresh")
		return
	}

	start := time.Now()
	p := pool.New().WithMaxGoroutines(constants.SchedulerConfig.ChannelWorkers)
	for _, channelID := range channels {
		p.Go(func() {
			if err := s.RefreshChannel(ctx, channelID); err != nil {
				s.logger.Error("Channel baseline refresh failed",
					zap.String("channel", channelID), zap.Error(err))
			}
		})
	}
	p.Wait()

	s.logger.Info("Baseline refresh pass complete",
		zap.Int("channels", len(channels)),
		zap.Duration("elapsed", time.Since(start)))
}

// RefreshChannel refreshes one channel's history rows and rebuilds its
// cached baseline. Per-video fetch failures are logged and skipped; the
// baseline is still rebuilt from whatever history exists.
func (s *BaselineScheduler) RefreshChannel(ctx context.Context, channelID string) error {
	now := time.Now().UTC()

	uploads, err := s.uploads.ListRecentUploads(ctx, channelID, constants.SchedulerConfig.VideosPerChannel)
	if err != nil {
		return err
	}

	refreshed := 0
	for _, upload := range uploads {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fetched, err := s.fetcher.FetchVideoAnalytics(ctx, channelID, upload.VideoID, constants.BaselineDefaults.LookbackDays, now)
		if err != nil {
			s.logger.Warn("Skipping video during baseline refresh",
				zap.String("channel", channelID),
				zap.String("video", upload.VideoID),
				zap.Error(err))
			continue
		}

		derived := engine.Derive(fetched.Raw, fetched.PublishedAt, now)
		if err := s.history.SaveDerived(ctx, derived); err != nil {
			s.logger.Warn("Failed to persist refreshed metrics",
				zap.String("video", upload.VideoID), zap.Error(err))
			continue
		}
		refreshed++
	}

	history, err := s.history.GetChannelHistory(ctx, channelID, s.window.MaxVideos, s.window.MaxAgeDays)
	if err != nil {
		return err
	}

	// Cached analyses embed the old baseline; sweep them before the
	// replacement lands so readers never mix the two.
	if inv, ok := s.cache.(ChannelInvalidator); ok {
		if dropped, err := inv.InvalidateChannel(ctx, channelID); err != nil {
			s.logger.Warn("Failed to invalidate cached analyses",
				zap.String("channel", channelID), zap.Error(err))
		} else if dropped > 0 {
			s.logger.Debug("Dropped stale cached analyses",
				zap.String("channel", channelID), zap.Int64("dropped", dropped))
		}
	}

	baseline := engine.BuildBaseline(channelID, history, "", s.window, now)
	if err := s.cache.Set(ctx, cache.BaselineKey(channelID), baseline, constants.CacheTTL.ChannelBaseline); err != nil {
		s.logger.Warn("Failed to cache channel baseline",
			zap.String("channel", channelID), zap.Error(err))
	}

	s.logger.Info("Channel baseline refreshed",
		zap.String("channel", channelID),
		zap.Int("videos_refreshed", refreshed),
		zap.Int("sample_size", baseline.SampleSize))
	return nil
}
