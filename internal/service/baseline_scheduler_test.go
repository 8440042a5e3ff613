package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tubelens/tubelens-analytics-go/internal/constants"
	"github.com/tubelens/tubelens-analytics-go/internal/engine"
	"github.com/tubelens/tubelens-analytics-go/internal/service/cache"
	"github.com/tubelens/tubelens-analytics-go/internal/service/youtube"
	"go.uber.org/zap"
)

type fakeUploads struct {
	uploads []youtube.Upload
	err     error
}

func (f *fakeUploads) ListRecentUploads(ctx context.Context, channelID string, maxResults int64) ([]youtube.Upload, error) {
	return f.uploads, f.err
}

type fakeDirectory struct {
	channels []string
}

func (f *fakeDirectory) ListTrackedChannels(ctx context.Context) ([]string, error) {
	return f.channels, nil
}

func newTestScheduler(fetcher *fakeFetcher, uploads *fakeUploads, history *fakeHistory, c *fakeCache) *BaselineScheduler {
	window := engine.BaselineWindow{MaxVideos: 30, MaxAgeDays: 365}
	return NewBaselineScheduler(fetcher, uploads, &fakeDirectory{}, history, c, window, zap.NewNop())
}

func TestRefreshChannelPersistsAndCachesBaseline(t *testing.T) {
	now := time.Now().UTC()
	uploads := &fakeUploads{uploads: []youtube.Upload{
		{VideoID: "vid-1", PublishedAt: now.AddDate(0, 0, -7)},
		{VideoID: "vid-2", PublishedAt: now.AddDate(0, 0, -14)},
	}}
	fetcher := &fakeFetcher{result: healthyFetchResult(now)}
	history := &fakeHistory{}
	c := newFakeCache()

	s := newTestScheduler(fetcher, uploads, history, c)
	if err := s.RefreshChannel(context.Background(), "chan-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(history.saved) != 2 {
		t.Fatalf("expected 2 refreshed history rows, got %d", len(history.saved))
	}
	key := cache.BaselineKey("chan-1")
	if _, ok := c.store[key]; !ok {
		t.Fatal("baseline not cached")
	}
	if c.ttls[key] != constants.CacheTTL.ChannelBaseline {
		t.Fatalf("baseline cached with ttl %v, want %v", c.ttls[key], constants.CacheTTL.ChannelBaseline)
	}
}

func TestRefreshChannelSkipsFailedVideos(t *testing.T) {
	now := time.Now().UTC()
	uploads := &fakeUploads{uploads: []youtube.Upload{
		{VideoID: "vid-1", PublishedAt: now.AddDate(0, 0, -7)},
	}}
	fetcher := &fakeFetcher{err: errors.New("quota exhausted")}
	history := &fakeHistory{}
	c := newFakeCache()

	s := newTestScheduler(fetcher, uploads, history, c)
	if err := s.RefreshChannel(context.Background(), "chan-1"); err != nil {
		t.Fatalf("per-video failures must not fail the channel: %v", err)
	}
	if len(history.saved) != 0 {
		t.Fatalf("nothing should be persisted when every fetch fails, got %d rows", len(history.saved))
	}
	// The baseline is still rebuilt from stored history.
	if _, ok := c.store[cache.BaselineKey("chan-1")]; !ok {
		t.Fatal("baseline should be rebuilt even when fetches fail")
	}
}

func TestSchedulerStopWithoutStartReturns(t *testing.T) {
	s := newTestScheduler(&fakeFetcher{}, &fakeUploads{}, &fakeHistory{}, newFakeCache())

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop must return when the scheduler was never started")
	}
}

func TestSchedulerStartThenStop(t *testing.T) {
	s := newTestScheduler(&fakeFetcher{}, &fakeUploads{}, &fakeHistory{}, newFakeCache())
	s.Start(context.Background())

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop must terminate the running loop")
	}
}

func TestRefreshChannelUploadsFailureIsFatal(t *testing.T) {
	uploads := &fakeUploads{err: errors.New("upstream down")}
	s := newTestScheduler(&fakeFetcher{}, uploads, &fakeHistory{}, newFakeCache())
	if err := s.RefreshChannel(context.Background(), "chan-1"); err == nil {
		t.Fatal("expected the uploads listing failure to propagate")
	}
}
