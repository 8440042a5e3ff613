package domain

import "time"

// MetricKey identifies one tracked derived metric. Keys double as JSON map
// keys in baselines and comparisons, so they match the UI field names.
type MetricKey string

const (
	MetricViewsPerDay         MetricKey = "viewsPerDay"
	MetricImpressions         MetricKey = "impressions"
	MetricImpressionsCtr      MetricKey = "impressionsCtr"
	MetricAvgViewPercentage   MetricKey = "avgViewPercentage"
	MetricAvgViewDurationSec  MetricKey = "avgViewDurationSec"
	MetricWatchTimePerViewSec MetricKey = "watchTimePerViewSec"
	MetricSubsPer1k           MetricKey = "subsPer1k"
	MetricNetSubsPer1k        MetricKey = "netSubsPer1k"
	MetricEngagementPerView   MetricKey = "engagementPerView"
	MetricFirst24hViews       MetricKey = "first24hViews"
)

// TrackedMetrics returns the metrics that participate in baselining and
// comparison, in display order.
func TrackedMetrics() []MetricKey {
	return []MetricKey{
		MetricViewsPerDay,
		MetricImpressions,
		MetricImpressionsCtr,
		MetricAvgViewPercentage,
		MetricAvgViewDurationSec,
		MetricWatchTimePerViewSec,
		MetricSubsPer1k,
		MetricNetSubsPer1k,
		MetricEngagementPerView,
		MetricFirst24hViews,
	}
}

// DerivedMetrics is the normalized projection of one RawVideoAnalytics.
// Nil always means "not computable from the available inputs", never zero.
type DerivedMetrics struct {
	VideoID     string    `json:"videoId"`
	ChannelID   string    `json:"channelId"`
	PublishedAt time.Time `json:"publishedAt"`

	TotalViews  *int64 `json:"totalViews,omitempty"`
	Impressions *int64 `json:"impressions,omitempty"`

	ViewsPerDay         *float64 `json:"viewsPerDay,omitempty"`
	ImpressionsCtr      *float64 `json:"impressionsCtr,omitempty"`
	AvgViewPercentage   *float64 `json:"avgViewPercentage,omitempty"`
	AvgViewDurationSec  *float64 `json:"avgViewDuration,omitempty"`
	WatchTimePerViewSec *float64 `json:"watchTimePerViewSec,omitempty"`
	SubsPer1k           *float64 `json:"subsPer1k,omitempty"`
	NetSubsPer1k        *float64 `json:"netSubsPer1k,omitempty"`
	EngagementPerView   *float64 `json:"engagementPerView,omitempty"`
	First24hViews       *float64 `json:"first24hViews,omitempty"`
	EndScreenCtr        *float64 `json:"endScreenCtr,omitempty"`
	CardCtr             *float64 `json:"cardCtr,omitempty"`

	// TrafficSources maps source type to its share of traffic-source views,
	// in percent. Not baselined.
	TrafficSources map[string]float64 `json:"trafficSources,omitempty"`
}

// Metric returns the value behind key, or nil when the metric is absent.
func (d *DerivedMetrics) Metric(key MetricKey) *float64 {
	if d == nil {
		return nil
	}
	switch key {
	case MetricViewsPerDay:
		return d.ViewsPerDay
	case MetricImpressions:
		if d.Impressions == nil {
			return nil
		}
		v := float64(*d.Impressions)
		return &v
	case MetricImpressionsCtr:
		return d.ImpressionsCtr
	case MetricAvgViewPercentage:
		return d.AvgViewPercentage
	case MetricAvgViewDurationSec:
		return d.AvgViewDurationSec
	case MetricWatchTimePerViewSec:
		return d.WatchTimePerViewSec
	case MetricSubsPer1k:
		return d.SubsPer1k
	case MetricNetSubsPer1k:
		return d.NetSubsPer1k
	case MetricEngagementPerView:
		return d.EngagementPerView
	case MetricFirst24hViews:
		return d.First24hViews
	default:
		return nil
	}
}
