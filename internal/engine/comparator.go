package engine

import (
	"github.com/tubelens/tubelens-analytics-go/internal/constants"
	"github.com/tubelens/tubelens-analytics-go/internal/domain"
)

// Compare classifies each tracked metric of one video against its channel
// baseline. The reference is the baseline median, falling back to the mean.
// The 10% band is deliberate hysteresis: near-identical values read "at",
// not a noisy above/below flip. Anything uncomputable is "unknown" - it is
// never coerced to "at".
func Compare(video *domain.DerivedMetrics, baseline *domain.ChannelBaseline) *domain.BaselineComparison {
	cmp := &domain.BaselineComparison{
		Metrics: make(map[domain.MetricKey]domain.MetricComparison, len(domain.TrackedMetrics())),
	}
	if video != nil {
		cmp.VideoID = video.VideoID
		cmp.ChannelID = video.ChannelID
	}
	if baseline != nil {
		cmp.SampleSize = baseline.SampleSize
	}

	for _, key := range domain.TrackedMetrics() {
		cmp.Metrics[key] = compareMetric(video.Metric(key), baseline, key)
	}
	return cmp
}

func compareMetric(value *float64, baseline *domain.ChannelBaseline, key domain.MetricKey) domain.MetricComparison {
	if value == nil || baseline == nil || baseline.SampleSize == 0 {
		return domain.MetricComparison{VsBaseline: domain.StatusUnknown}
	}
	ref := baseline.Reference(key)
	if ref == nil {
		return domain.MetricComparison{VsBaseline: domain.StatusUnknown}
	}

	status := classify(*value, *ref)

	// Percentage delta is undefined against a zero reference even though
	// the band still classifies the value.
	if *ref == 0 {
		return domain.MetricComparison{VsBaseline: status}
	}
	delta := (*value - *ref) / *ref * 100
	return domain.MetricComparison{Delta: &delta, VsBaseline: status}
}

func classify(value, ref float64) domain.ComparisonStatus {
	t := constants.DiagnosisThresholds
	upper, lower := ref*t.AboveFactor, ref*t.BelowFactor
	// Multiplying a negative reference flips the band edges; swap them
	// back so "above" always means better than baseline.
	if ref < 0 {
		upper, lower = lower, upper
	}
	switch {
	case value > upper:
		return domain.StatusAbove
	case value < lower:
		return domain.StatusBelow
	default:
		return domain.StatusAt
	}
}
