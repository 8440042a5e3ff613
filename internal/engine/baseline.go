package engine

import (
	"math"
	"sort"
	"time"

	"github.com/tubelens/tubelens-analytics-go/internal/domain"
)

// BaselineWindow bounds which historical videos contribute to a baseline.
// Zero values disable the respective bound.
type BaselineWindow struct {
	MaxVideos  int
	MaxAgeDays int
}

// BuildBaseline aggregates a channel's historical derived metrics into
// per-metric distribution summaries. The target video is always excluded so
// a video is never compared against itself. Percentiles use linear
// interpolation over the sorted non-null sample; with no contributing
// videos every distribution is nil and SampleSize is 0, which callers must
// read as "no baseline", not "all zero".
func BuildBaseline(channelID string, history []*domain.DerivedMetrics, excludeVideoID string, window BaselineWindow, now time.Time) *domain.ChannelBaseline {
	filtered := filterHistory(history, excludeVideoID, window, now)

	baseline := &domain.ChannelBaseline{
		ChannelID:    channelID,
		SampleSize:   len(filtered),
		WindowVideos: window.MaxVideos,
		WindowDays:   window.MaxAgeDays,
		ComputedAt:   now,
		Metrics:      make(map[domain.MetricKey]domain.MetricDistribution, len(domain.TrackedMetrics())),
	}

	for _, key := range domain.TrackedMetrics() {
		values := make([]float64, 0, len(filtered))
		for _, video := range filtered {
			if v := video.Metric(key); v != nil {
				values = append(values, *v)
			}
		}
		baseline.Metrics[key] = summarize(values)
	}

	return baseline
}

// filterHistory drops the target video, videos outside the age window, and
// then keeps the most recent MaxVideos. The input slice is never mutated;
// concurrent refreshes see their own snapshot.
func filterHistory(history []*domain.DerivedMetrics, excludeVideoID string, window BaselineWindow, now time.Time) []*domain.DerivedMetrics {
	cutoff := time.Time{}
	if window.MaxAgeDays > 0 {
		cutoff = now.AddDate(0, 0, -window.MaxAgeDays)
	}

	filtered := make([]*domain.DerivedMetrics, 0, len(history))
	for _, video := range history {
		if video == nil || video.VideoID == excludeVideoID {
			continue
		}
		if !cutoff.IsZero() && video.PublishedAt.Before(cutoff) {
			continue
		}
		filtered = append(filtered, video)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].PublishedAt.After(filtered[j].PublishedAt)
	})

	if window.MaxVideos > 0 && len(filtered) > window.MaxVideos {
		filtered = filtered[:window.MaxVideos]
	}
	return filtered
}

func summarize(values []float64) domain.MetricDistribution {
	if len(values) == 0 {
		return domain.MetricDistribution{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(len(sorted))

	return domain.MetricDistribution{
		Mean:   &mean,
		Median: percentile(sorted, 0.5),
		P25:    percentile(sorted, 0.25),
		P75:    percentile(sorted, 0.75),
	}
}

// percentile computes the p-quantile of a sorted sample by linear
// interpolation between closest ranks (the same method numpy's default
// uses), so displayed "typical range" boundaries move smoothly as videos
// enter and leave the window.
func percentile(sorted []float64, p float64) *float64 {
	n := len(sorted)
	if n == 0 {
		return nil
	}
	if n == 1 {
		v := sorted[0]
		return &v
	}

	rank := p * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		v := sorted[lo]
		return &v
	}
	frac := rank - float64(lo)
	v := sorted[lo] + (sorted[hi]-sorted[lo])*frac
	return &v
}
