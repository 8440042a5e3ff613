package domain

import "time"

// MetricDistribution summarizes one derived metric across a channel's video
// history. All fields are nil when the underlying sample has no non-null
// values for the metric.
type MetricDistribution struct {
	Mean   *float64 `json:"mean,omitempty"`
	Median *float64 `json:"median,omitempty"`
	P25    *float64 `json:"p25,omitempty"`
	P75    *float64 `json:"p75,omitempty"`
}

// ChannelBaseline bundles per-metric distributions for one channel and
// lookback window. It is always replaced wholesale, never patched, so a
// reader can never observe a half-updated baseline.
type ChannelBaseline struct {
	ChannelID string `json:"channelId"`

	// SampleSize is the count of historical videos that survived the
	// lookback filter. It gates whether the baseline is trusted at all;
	// per-metric non-null counts may be smaller.
	SampleSize int `json:"sampleSize"`

	WindowVideos int       `json:"windowVideos,omitempty"`
	WindowDays   int       `json:"windowDays,omitempty"`
	ComputedAt   time.Time `json:"computedAt"`

	Metrics map[MetricKey]MetricDistribution `json:"metrics"`
}

// Distribution returns the distribution for key; the zero distribution
// (all nil) when the metric was never computable.
func (b *ChannelBaseline) Distribution(key MetricKey) MetricDistribution {
	if b == nil || b.Metrics == nil {
		return MetricDistribution{}
	}
	return b.Metrics[key]
}

// Reference is the comparison reference for key: median when present,
// mean otherwise, nil when neither exists.
func (b *ChannelBaseline) Reference(key MetricKey) *float64 {
	dist := b.Distribution(key)
	if dist.Median != nil {
		return dist.Median
	}
	return dist.Mean
}

// ComparisonStatus classifies one video metric against its channel baseline.
type ComparisonStatus string

const (
	StatusAbove   ComparisonStatus = "above"
	StatusAt      ComparisonStatus = "at"
	StatusBelow   ComparisonStatus = "below"
	StatusUnknown ComparisonStatus = "unknown"
)

// MetricComparison is one metric's status and percentage delta versus the
// baseline reference. Delta is nil whenever the status is unknown, and also
// when the reference is exactly zero (the band still classifies, the
// percentage is undefined).
type MetricComparison struct {
	Delta      *float64         `json:"delta,omitempty"`
	VsBaseline ComparisonStatus `json:"vsBaseline"`
}

// BaselineComparison is one video's full comparison against its channel
// baseline. Ephemeral: recomputed per request, never persisted.
type BaselineComparison struct {
	VideoID    string                         `json:"videoId"`
	ChannelID  string                         `json:"channelId"`
	SampleSize int                            `json:"sampleSize"`
	Metrics    map[MetricKey]MetricComparison `json:"metrics"`
}

// Metric returns the comparison for key, defaulting to unknown.
func (c *BaselineComparison) Metric(key MetricKey) MetricComparison {
	if c == nil || c.Metrics == nil {
		return MetricComparison{VsBaseline: StatusUnknown}
	}
	if m, ok := c.Metrics[key]; ok {
		return m
	}
	return MetricComparison{VsBaseline: StatusUnknown}
}
