package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/tubelens/tubelens-analytics-go/internal/constants"
	"github.com/tubelens/tubelens-analytics-go/internal/domain"
	"github.com/tubelens/tubelens-analytics-go/internal/engine"
	"github.com/tubelens/tubelens-analytics-go/internal/service/cache"
	"github.com/tubelens/tubelens-analytics-go/internal/service/youtube"
	"go.uber.org/zap"
)

type fakeFetcher struct {
	result *youtube.FetchResult
	err    error
	calls  int
}

func (f *fakeFetcher) FetchVideoAnalytics(ctx context.Context, channelID, videoID string, rangeDays int, now time.Time) (*youtube.FetchResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeHistory struct {
	rows          []*domain.DerivedMetrics
	saved         []*domain.DerivedMetrics
	getErr        error
	saveErr       error
	gotMaxVideos  int
	gotMaxAgeDays int
}

func (f *fakeHistory) SaveDerived(ctx context.Context, d *domain.DerivedMetrics) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, d)
	return nil
}

func (f *fakeHistory) GetChannelHistory(ctx context.Context, channelID string, maxVideos, maxAgeDays int) ([]*domain.DerivedMetrics, error) {
	f.gotMaxVideos = maxVideos
	f.gotMaxAgeDays = maxAgeDays
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.rows, nil
}

type fakeCache struct {
	store  map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		store: make(map[string][]byte),
		ttls:  make(map[string]time.Duration),
	}
}

func (f *fakeCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if f.getErr != nil {
		return false, f.getErr
	}
	data, ok := f.store[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (f *fakeCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.store[key] = data
	f.ttls[key] = ttl
	return nil
}

func ptrI(v int64) *int64     { return &v }
func ptrF(v float64) *float64 { return &v }

func healthyFetchResult(now time.Time) *youtube.FetchResult {
	return &youtube.FetchResult{
		Raw: &domain.RawVideoAnalytics{
			VideoID:            "vid-1",
			ChannelID:          "chan-1",
			DurationSec:        ptrF(600),
			Views:              ptrI(5000),
			Impressions:        ptrI(40000),
			AvgViewPercentage:  ptrF(55),
			AvgViewDurationSec: ptrF(330),
			Likes:              ptrI(200),
			Comments:           ptrI(40),
			Shares:             ptrI(10),
			SubscribersGained:  ptrI(30),
			SubscribersLost:    ptrI(5),
		},
		PublishedAt: now.AddDate(0, 0, -10),
		Availability: domain.AnalyticsAvailability{
			HasImpressions: true,
			HasCtr:         true,
		},
	}
}

func newTestAnalyzerWithWindow(fetcher *fakeFetcher, history *fakeHistory, c *fakeCache, window engine.BaselineWindow) *AnalyzerService {
	return NewAnalyzerService(fetcher, history, c, engine.NewPipeline(window), window, zap.NewNop())
}

func newTestAnalyzer(fetcher *fakeFetcher, history *fakeHistory, c *fakeCache) *AnalyzerService {
	return newTestAnalyzerWithWindow(fetcher, history, c, engine.BaselineWindow{
		MaxVideos:  constants.BaselineDefaults.LookbackVideos,
		MaxAgeDays: constants.BaselineDefaults.LookbackDays,
	})
}

func TestAnalyzeVideoCacheHit(t *testing.T) {
	fetcher := &fakeFetcher{}
	history := &fakeHistory{}
	c := newFakeCache()

	key := cache.AnalysisKey("chan-1", "vid-1", 28)
	cached := &domain.VideoAnalysis{VideoID: "vid-1", ChannelID: "chan-1", RangeDays: 28}
	data, _ := json.Marshal(cached)
	c.store[key] = data

	svc := newTestAnalyzer(fetcher, history, c)
	got, err := svc.AnalyzeVideo(context.Background(), "chan-1", "vid-1", 28)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.VideoID != "vid-1" || got.RangeDays != 28 {
		t.Errorf("got %q range %d, want cached record", got.VideoID, got.RangeDays)
	}
	if fetcher.calls != 0 {
		t.Errorf("fetcher called %d times on cache hit", fetcher.calls)
	}
}

func TestAnalyzeVideoFullRun(t *testing.T) {
	now := time.Now().UTC()
	fetcher := &fakeFetcher{result: healthyFetchResult(now)}
	history := &fakeHistory{}
	c := newFakeCache()

	svc := newTestAnalyzer(fetcher, history, c)
	got, err := svc.AnalyzeVideo(context.Background(), "chan-1", "vid-1", 28)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Derived == nil || got.Bottleneck == nil || got.Confidence == nil {
		t.Fatal("analysis missing engine output")
	}
	if got.Bottleneck.Bottleneck != domain.BottleneckNotEnoughData {
		t.Errorf("empty history should yield NOT_ENOUGH_DATA, got %s", got.Bottleneck.Bottleneck)
	}
	if len(history.saved) != 1 || history.saved[0].VideoID != "vid-1" {
		t.Errorf("derived metrics not persisted: %+v", history.saved)
	}

	key := cache.AnalysisKey("chan-1", "vid-1", 28)
	if _, ok := c.store[key]; !ok {
		t.Error("analysis result not cached")
	}
	if c.ttls[key] != constants.CacheTTL.AnalysisResult {
		t.Errorf("cached with ttl %v, want %v", c.ttls[key], constants.CacheTTL.AnalysisResult)
	}
}

func TestAnalyzeVideoHonorsConfiguredWindow(t *testing.T) {
	now := time.Now().UTC()
	fetcher := &fakeFetcher{result: healthyFetchResult(now)}
	history := &fakeHistory{}
	window := engine.BaselineWindow{MaxVideos: 50, MaxAgeDays: 730}

	svc := newTestAnalyzerWithWindow(fetcher, history, newFakeCache(), window)
	if _, err := svc.AnalyzeVideo(context.Background(), "chan-1", "vid-1", 28); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// One extra row over the window's count because the target video is
	// excluded from its own baseline.
	if history.gotMaxVideos != window.MaxVideos+1 {
		t.Errorf("history fetched with maxVideos %d, want %d", history.gotMaxVideos, window.MaxVideos+1)
	}
	if history.gotMaxAgeDays != window.MaxAgeDays {
		t.Errorf("history fetched with maxAgeDays %d, want %d", history.gotMaxAgeDays, window.MaxAgeDays)
	}
}

func TestAnalyzeVideoFetchErrorPropagates(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("upstream down")}
	c := newFakeCache()

	svc := newTestAnalyzer(fetcher, &fakeHistory{}, c)
	if _, err := svc.AnalyzeVideo(context.Background(), "chan-1", "vid-1", 28); err == nil {
		t.Fatal("expected fetch error to propagate")
	}
	if len(c.store) != 0 {
		t.Error("nothing should be cached after a fetch failure")
	}
}

func TestAnalyzeVideoHistoryFailureDegrades(t *testing.T) {
	now := time.Now().UTC()
	fetcher := &fakeFetcher{result: healthyFetchResult(now)}
	history := &fakeHistory{getErr: errors.New("db down")}

	svc := newTestAnalyzer(fetcher, history, newFakeCache())
	got, err := svc.AnalyzeVideo(context.Background(), "chan-1", "vid-1", 28)
	if err != nil {
		t.Fatalf("history failure should not fail the analysis: %v", err)
	}
	if got.Baseline.SampleSize != 0 {
		t.Errorf("expected empty baseline, got sample size %d", got.Baseline.SampleSize)
	}
}

func TestAnalyzeVideoCacheFailuresAreNonFatal(t *testing.T) {
	now := time.Now().UTC()
	fetcher := &fakeFetcher{result: healthyFetchResult(now)}
	c := newFakeCache()
	c.getErr = errors.New("redis down")
	c.setErr = errors.New("redis down")

	svc := newTestAnalyzer(fetcher, &fakeHistory{}, c)
	got, err := svc.AnalyzeVideo(context.Background(), "chan-1", "vid-1", 28)
	if err != nil {
		t.Fatalf("cache failure should not fail the analysis: %v", err)
	}
	if got == nil || got.Derived == nil {
		t.Fatal("expected a computed analysis despite cache failures")
	}
}
