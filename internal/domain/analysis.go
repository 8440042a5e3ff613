package domain

import "time"

// VideoAnalysis is the full record the analyzer returns for one
// (channel, video, range) request: everything the dashboard renders.
type VideoAnalysis struct {
	VideoID   string `json:"videoId"`
	ChannelID string `json:"channelId"`
	RangeDays int    `json:"rangeDays"`

	Derived      *DerivedMetrics       `json:"derived"`
	Baseline     *ChannelBaseline      `json:"baseline"`
	Comparison   *BaselineComparison   `json:"comparison"`
	Bottleneck   *BottleneckResult     `json:"bottleneck"`
	Confidence   *SectionConfidence    `json:"confidence"`
	Availability AnalyticsAvailability `json:"analyticsAvailability"`

	AnalyzedAt time.Time `json:"analyzedAt"`
}
