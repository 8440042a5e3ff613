// Package engine implements the analytics normalization, baselining and
// bottleneck-diagnosis pipeline. Every component is a pure function over
// immutable inputs: no I/O, no clocks beyond the caller-supplied now, and
// no errors for data-quality problems. A field that cannot be computed is
// nil, which downstream stages treat as "unknown", never as zero.
package engine

import (
	"math"
	"time"

	"github.com/tubelens/tubelens-analytics-go/internal/domain"
	"github.com/tubelens/tubelens-analytics-go/internal/util"
)

// Derive converts one video's raw analytics into the normalized projection
// the rest of the pipeline consumes. It is total: malformed input (negative
// counts, missing duration, gappy daily series) nulls the affected fields
// and never produces NaN or Inf.
func Derive(raw *domain.RawVideoAnalytics, publishedAt, now time.Time) *domain.DerivedMetrics {
	d := &domain.DerivedMetrics{PublishedAt: publishedAt}
	if raw == nil {
		return d
	}
	d.VideoID = raw.VideoID
	d.ChannelID = raw.ChannelID

	views := nonNegInt(raw.Views)
	d.TotalViews = views
	d.Impressions = nonNegInt(raw.Impressions)

	if views != nil {
		days := util.DaysSince(publishedAt, now)
		d.ViewsPerDay = finite(float64(*views) / float64(days))
	}

	if views != nil && d.Impressions != nil && *d.Impressions > 0 {
		d.ImpressionsCtr = finite(float64(*views) / float64(*d.Impressions) * 100)
	}

	d.AvgViewDurationSec = nonNegFloat(raw.AvgViewDurationSec)
	d.AvgViewPercentage = deriveViewPercentage(raw, d.AvgViewDurationSec)
	d.WatchTimePerViewSec = deriveWatchTimePerView(raw, views)

	if views != nil && *views > 0 {
		gained := nonNegInt(raw.SubscribersGained)
		lost := nonNegInt(raw.SubscribersLost)
		if gained != nil && lost != nil {
			net := float64(*gained-*lost) / float64(*views) * 1000
			d.SubsPer1k = finite(net)
			if d.SubsPer1k != nil {
				clamped := math.Max(0, *d.SubsPer1k)
				d.NetSubsPer1k = &clamped
			}
		}

		likes := nonNegInt(raw.Likes)
		comments := nonNegInt(raw.Comments)
		shares := nonNegInt(raw.Shares)
		if likes != nil && comments != nil && shares != nil {
			d.EngagementPerView = finite(float64(*likes+*comments+*shares) / float64(*views))
		}
	}

	d.First24hViews = deriveFirst24h(raw.Daily, publishedAt, now)
	d.EndScreenCtr = nonNegFloat(raw.EndScreenClickRate)
	d.CardCtr = nonNegFloat(raw.CardClickRate)
	d.TrafficSources = deriveTrafficShares(raw.TrafficSources)

	return d
}

// deriveViewPercentage passes the source value through when reported,
// otherwise reconstructs it from average view duration and video length.
func deriveViewPercentage(raw *domain.RawVideoAnalytics, avgDur *float64) *float64 {
	if pct := nonNegFloat(raw.AvgViewPercentage); pct != nil {
		return pct
	}
	dur := nonNegFloat(raw.DurationSec)
	if avgDur == nil || dur == nil || *dur == 0 {
		return nil
	}
	return finite(*avgDur / *dur * 100)
}

func deriveWatchTimePerView(raw *domain.RawVideoAnalytics, views *int64) *float64 {
	minutes := nonNegFloat(raw.EstimatedMinutesWatched)
	if minutes == nil || views == nil || *views == 0 {
		return nil
	}
	return finite(*minutes * 60 / float64(*views))
}

// deriveFirst24h sums the daily series over the first 24 hours after
// publish. The series only has calendar-day buckets, so for a midday
// publish every bucket overlapping the window is counted whole and the
// result can cover up to ~36 hours of views; day granularity is the finest
// the source reports. It is nil unless the series actually covers the
// window: the series must start no later than the publish day and 24 hours
// must have elapsed, otherwise a partial window would masquerade as a weak
// launch.
func deriveFirst24h(daily []domain.DailyPoint, publishedAt, now time.Time) *float64 {
	if len(daily) == 0 || now.Sub(publishedAt) < 24*time.Hour {
		return nil
	}

	publishDay := util.StartOfUTCDay(publishedAt)
	windowEnd := publishedAt.Add(24 * time.Hour)

	covered := false
	var sum float64
	for _, point := range daily {
		if point.Views < 0 {
			return nil
		}
		day := util.StartOfUTCDay(point.Date)
		if day.Equal(publishDay) {
			covered = true
		}
		if !day.Before(publishDay) && day.Before(windowEnd) {
			sum += float64(point.Views)
		}
	}
	if !covered {
		return nil
	}
	return finite(sum)
}

// deriveTrafficShares converts per-source view counts into percentage
// shares of all attributed views.
func deriveTrafficShares(sources map[string]int64) map[string]float64 {
	if len(sources) == 0 {
		return nil
	}
	var total int64
	for _, v := range sources {
		if v < 0 {
			return nil
		}
		total += v
	}
	if total == 0 {
		return nil
	}
	shares := make(map[string]float64, len(sources))
	for name, v := range sources {
		shares[name] = float64(v) / float64(total) * 100
	}
	return shares
}

func nonNegInt(v *int64) *int64 {
	if v == nil || *v < 0 {
		return nil
	}
	out := *v
	return &out
}

func nonNegFloat(v *float64) *float64 {
	if v == nil || *v < 0 || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	out := *v
	return &out
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
