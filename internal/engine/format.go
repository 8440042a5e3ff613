package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tubelens/tubelens-analytics-go/internal/domain"
)

// formatMetric renders a metric value with its natural unit for evidence
// text and the supporting-metric banner. Unknown values render as an em
// dash placeholder, which capSupport filters out.
func formatMetric(key domain.MetricKey, value *float64) string {
	if value == nil {
		return "—"
	}
	switch key {
	case domain.MetricImpressionsCtr, domain.MetricAvgViewPercentage, domain.MetricEngagementPerView:
		if key == domain.MetricEngagementPerView {
			return formatNumber(*value*100) + "%"
		}
		return formatNumber(*value) + "%"
	case domain.MetricAvgViewDurationSec, domain.MetricWatchTimePerViewSec:
		return formatDuration(*value)
	case domain.MetricImpressions, domain.MetricFirst24hViews, domain.MetricViewsPerDay:
		return formatCount(int64(math.Round(*value)))
	default:
		return formatNumber(*value)
	}
}

// formatNumber keeps two decimals for small magnitudes and drops them as
// the value grows, matching how the dashboard rounds.
func formatNumber(v float64) string {
	av := math.Abs(v)
	switch {
	case av >= 100:
		return strconv.FormatFloat(v, 'f', 0, 64)
	case av >= 10:
		return strconv.FormatFloat(v, 'f', 1, 64)
	default:
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
}

// formatCount groups thousands: 12400 -> "12,400".
func formatCount(v int64) string {
	s := strconv.FormatInt(v, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

func formatDuration(seconds float64) string {
	total := int(math.Round(seconds))
	if total < 60 {
		return fmt.Sprintf("%ds", total)
	}
	return fmt.Sprintf("%dm %02ds", total/60, total%60)
}

// describeDelta phrases a comparison delta for evidence text, e.g.
// "38% below". With no computable delta it falls back to plain "below".
func describeDelta(delta *float64) string {
	if delta == nil {
		return "below"
	}
	return fmt.Sprintf("%.0f%% below", math.Abs(*delta))
}

// referenceFromDelta reconstructs the baseline reference from the video
// value and its percentage delta, so evidence can quote the typical value
// without the diagnoser needing the baseline itself.
func referenceFromDelta(value *float64, delta *float64) *float64 {
	if value == nil || delta == nil {
		return nil
	}
	denom := 1 + *delta/100
	if denom == 0 {
		return nil
	}
	ref := *value / denom
	return &ref
}
