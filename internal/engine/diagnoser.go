package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/tubelens/tubelens-analytics-go/internal/constants"
	"github.com/tubelens/tubelens-analytics-go/internal/domain"
)

// metricLabels are the display names used in evidence sentences and the
// supporting-metric banner.
var metricLabels = map[domain.MetricKey]string{
	domain.MetricViewsPerDay:         "Views per day",
	domain.MetricImpressions:         "Impressions",
	domain.MetricImpressionsCtr:      "Click-through rate",
	domain.MetricAvgViewPercentage:   "Average view percentage",
	domain.MetricAvgViewDurationSec:  "Average view duration",
	domain.MetricWatchTimePerViewSec: "Watch time per view",
	domain.MetricSubsPer1k:           "Subscribers per 1K views",
	domain.MetricNetSubsPer1k:        "Net subscribers per 1K views",
	domain.MetricEngagementPerView:   "Engagement per view",
	domain.MetricFirst24hViews:       "First 24h views",
}

var (
	discoveryMetrics  = []domain.MetricKey{domain.MetricImpressions, domain.MetricImpressionsCtr}
	retentionMetrics  = []domain.MetricKey{domain.MetricAvgViewPercentage, domain.MetricWatchTimePerViewSec, domain.MetricAvgViewDurationSec}
	conversionMetrics = []domain.MetricKey{domain.MetricSubsPer1k, domain.MetricNetSubsPer1k}
)

type diagnosis struct {
	video *domain.DerivedMetrics
	cmp   *domain.BaselineComparison
	avail domain.AnalyticsAvailability
}

// outcome couples a verdict with the metric that decided it, which drives
// the near-boundary confidence downgrade.
type outcome struct {
	result   *domain.BottleneckResult
	deciding domain.MetricKey
}

type diagnosisRule func(*diagnosis) *outcome

// Diagnose applies the ordered rule set over one video's derived metrics
// and baseline comparison. Order encodes priority, not severity: the data
// floor is checked first because every later rule assumes enough signal to
// mean anything, then discovery, retention and conversion in funnel order,
// and an explicit fallback when nothing is below baseline. Diagnose never
// fails; missing input degrades toward NOT_ENOUGH_DATA with low confidence.
func Diagnose(video *domain.DerivedMetrics, cmp *domain.BaselineComparison, avail domain.AnalyticsAvailability) (*domain.BottleneckResult, *domain.SectionConfidence) {
	d := &diagnosis{video: video, cmp: cmp, avail: avail}

	rules := []diagnosisRule{
		ruleNotEnoughData,
		ruleDiscoveryImpressions,
		ruleDiscoveryCtr,
		ruleRetention,
		ruleConversion,
		ruleFallback,
	}

	var verdict *outcome
	for _, rule := range rules {
		if verdict = rule(d); verdict != nil {
			break
		}
	}

	confidence := gradeConfidence(d, verdict)
	return verdict.result, confidence
}

// ruleNotEnoughData fires when the video or its baseline lacks the volume
// every downstream rule depends on. The evidence names each missing signal
// and the numeric gap to its floor.
func ruleNotEnoughData(d *diagnosis) *outcome {
	t := constants.DiagnosisThresholds
	var gaps []string
	var support []domain.SupportingMetric

	views := d.videoViews()
	switch {
	case views == nil:
		gaps = append(gaps, "view totals are not available yet")
	case *views < t.ViewsFloor:
		gaps = append(gaps, fmt.Sprintf("%d more views needed (has %d of %d)", t.ViewsFloor-*views, *views, t.ViewsFloor))
		support = append(support, domain.SupportingMetric{Label: "Views", Value: formatCount(*views)})
	}

	if d.avail.HasImpressions {
		imp := d.videoImpressions()
		switch {
		case imp == nil:
			gaps = append(gaps, "impression data has not arrived yet")
		case *imp < t.ImpressionsFloor:
			gaps = append(gaps, fmt.Sprintf("%d more impressions needed (has %d of %d)", t.ImpressionsFloor-*imp, *imp, t.ImpressionsFloor))
			support = append(support, domain.SupportingMetric{Label: "Impressions", Value: formatCount(*imp)})
		}
	}

	sample := d.sampleSize()
	if sample < t.MinBaselineSample {
		gaps = append(gaps, fmt.Sprintf("the channel baseline needs %d more videos (has %d of %d)", t.MinBaselineSample-sample, sample, t.MinBaselineSample))
		support = append(support, domain.SupportingMetric{Label: "Baseline videos", Value: formatCount(int64(sample))})
	}

	if len(gaps) == 0 {
		return nil
	}
	return &outcome{
		result: &domain.BottleneckResult{
			Bottleneck: domain.BottleneckNotEnoughData,
			Evidence:   "Not enough signal for a diagnosis yet: " + strings.Join(gaps, "; ") + ".",
			Metrics:    capSupport(support),
		},
	}
}

// ruleDiscoveryImpressions: YouTube is not surfacing the video as often as
// this channel's typical upload.
func ruleDiscoveryImpressions(d *diagnosis) *outcome {
	if !d.avail.HasImpressions {
		return nil
	}
	mc := d.metricCmp(domain.MetricImpressions)
	if mc.VsBaseline != domain.StatusBelow {
		return nil
	}

	value := d.metricValue(domain.MetricImpressions)
	evidence := fmt.Sprintf("YouTube is surfacing this video less than usual: %s impressions is %s the channel's typical %s.",
		formatMetric(domain.MetricImpressions, value), describeDelta(mc.Delta), formatMetric(domain.MetricImpressions, referenceFromDelta(value, mc.Delta)))

	return &outcome{
		deciding: domain.MetricImpressions,
		result: &domain.BottleneckResult{
			Bottleneck: domain.BottleneckDiscoveryImpressions,
			Evidence:   evidence,
			Metrics: capSupport([]domain.SupportingMetric{
				d.supporting(domain.MetricImpressions),
				d.supporting(domain.MetricImpressionsCtr),
				d.supporting(domain.MetricViewsPerDay),
			}),
		},
	}
}

// ruleDiscoveryCtr: the video is shown but not chosen.
func ruleDiscoveryCtr(d *diagnosis) *outcome {
	mc := d.metricCmp(domain.MetricImpressionsCtr)
	if mc.VsBaseline != domain.StatusBelow {
		return nil
	}

	value := d.metricValue(domain.MetricImpressionsCtr)
	evidence := fmt.Sprintf("Viewers see this video but are not clicking: a click-through rate of %s is %s the channel's typical %s.",
		formatMetric(domain.MetricImpressionsCtr, value), describeDelta(mc.Delta), formatMetric(domain.MetricImpressionsCtr, referenceFromDelta(value, mc.Delta)))

	return &outcome{
		deciding: domain.MetricImpressionsCtr,
		result: &domain.BottleneckResult{
			Bottleneck: domain.BottleneckDiscoveryCtr,
			Evidence:   evidence,
			Metrics: capSupport([]domain.SupportingMetric{
				d.supporting(domain.MetricImpressionsCtr),
				d.supporting(domain.MetricImpressions),
			}),
		},
	}
}

// ruleRetention: discovery held up (earlier rules passed) but viewers do
// not stay.
func ruleRetention(d *diagnosis) *outcome {
	deciding := domain.MetricAvgViewPercentage
	mc := d.metricCmp(deciding)
	if mc.VsBaseline != domain.StatusBelow {
		deciding = domain.MetricWatchTimePerViewSec
		mc = d.metricCmp(deciding)
		if mc.VsBaseline != domain.StatusBelow {
			return nil
		}
	}

	value := d.metricValue(deciding)
	evidence := fmt.Sprintf("People click but do not stay: %s of %s is %s the channel's typical %s.",
		strings.ToLower(metricLabels[deciding]), formatMetric(deciding, value), describeDelta(mc.Delta), formatMetric(deciding, referenceFromDelta(value, mc.Delta)))

	return &outcome{
		deciding: deciding,
		result: &domain.BottleneckResult{
			Bottleneck: domain.BottleneckRetention,
			Evidence:   evidence,
			Metrics: capSupport([]domain.SupportingMetric{
				d.supporting(domain.MetricAvgViewPercentage),
				d.supporting(domain.MetricWatchTimePerViewSec),
			}),
		},
	}
}

// ruleConversion: the video reaches and retains viewers but does not turn
// them into subscribers.
func ruleConversion(d *diagnosis) *outcome {
	mc := d.metricCmp(domain.MetricSubsPer1k)
	if mc.VsBaseline != domain.StatusBelow {
		return nil
	}

	value := d.metricValue(domain.MetricSubsPer1k)
	evidence := fmt.Sprintf("Viewers watch but do not subscribe: %s subscribers per 1K views is %s the channel's typical %s.",
		formatMetric(domain.MetricSubsPer1k, value), describeDelta(mc.Delta), formatMetric(domain.MetricSubsPer1k, referenceFromDelta(value, mc.Delta)))

	return &outcome{
		deciding: domain.MetricSubsPer1k,
		result: &domain.BottleneckResult{
			Bottleneck: domain.BottleneckConversion,
			Evidence:   evidence,
			Metrics: capSupport([]domain.SupportingMetric{
				d.supporting(domain.MetricSubsPer1k),
				d.supporting(domain.MetricNetSubsPer1k),
			}),
		},
	}
}

// ruleFallback always fires: nothing is below baseline, so either call out
// the strongest metric or report a neutral all-clear. Kept explicit so the
// decision list has no uncaught default.
func ruleFallback(d *diagnosis) *outcome {
	var bestKey domain.MetricKey
	var bestDelta float64

	for _, key := range funnelMetrics() {
		mc := d.metricCmp(key)
		if mc.VsBaseline != domain.StatusAbove || mc.Delta == nil {
			continue
		}
		if bestKey == "" || *mc.Delta > bestDelta {
			bestKey, bestDelta = key, *mc.Delta
		}
	}

	if bestKey == "" {
		return &outcome{
			result: &domain.BottleneckResult{
				Bottleneck: domain.BottleneckNoClearBottleneck,
				Evidence:   "No clear bottleneck: this video tracks the channel's typical performance across discovery, retention, and conversion.",
				Metrics: capSupport([]domain.SupportingMetric{
					d.supporting(domain.MetricViewsPerDay),
					d.supporting(domain.MetricAvgViewPercentage),
					d.supporting(domain.MetricSubsPer1k),
				}),
			},
		}
	}

	evidence := fmt.Sprintf("No clear bottleneck: nothing is below this channel's typical range, and %s is the standout at %.0f%% above typical (%s).",
		strings.ToLower(metricLabels[bestKey]), bestDelta, formatMetric(bestKey, d.metricValue(bestKey)))

	return &outcome{
		deciding: bestKey,
		result: &domain.BottleneckResult{
			Bottleneck: domain.BottleneckNoClearBottleneck,
			Evidence:   evidence,
			Metrics: capSupport([]domain.SupportingMetric{
				d.supporting(bestKey),
				d.supporting(domain.MetricViewsPerDay),
			}),
		},
	}
}

func funnelMetrics() []domain.MetricKey {
	return []domain.MetricKey{
		domain.MetricImpressions,
		domain.MetricImpressionsCtr,
		domain.MetricAvgViewPercentage,
		domain.MetricWatchTimePerViewSec,
		domain.MetricSubsPer1k,
	}
}

// gradeConfidence derives per-section and overall confidence. Sections are
// graded independently from the same sample-size and availability logic so
// a weak conversion signal does not drag down a confident discovery read.
func gradeConfidence(d *diagnosis, verdict *outcome) *domain.SectionConfidence {
	t := constants.DiagnosisThresholds
	sample := d.sampleSize()

	conf := &domain.SectionConfidence{
		Discovery:  d.sectionConfidence(discoveryMetrics, d.avail.HasImpressions),
		Retention:  d.sectionConfidence(retentionMetrics, true),
		Conversion: d.sectionConfidence(conversionMetrics, true),
	}

	switch {
	case verdict.result.Bottleneck == domain.BottleneckNotEnoughData || sample < t.MediumSampleFloor:
		conf.Overall = domain.ConfidenceLow
	case verdict.deciding == "" || d.metricCmp(verdict.deciding).VsBaseline == domain.StatusUnknown || d.nearBoundary(verdict.deciding):
		conf.Overall = domain.ConfidenceMedium
	default:
		conf.Overall = domain.ConfidenceHigh
	}
	return conf
}

func (d *diagnosis) sectionConfidence(keys []domain.MetricKey, available bool) domain.ConfidenceLevel {
	t := constants.DiagnosisThresholds
	sample := d.sampleSize()

	if !available || sample < t.MinBaselineSample {
		return domain.ConfidenceLow
	}

	known := 0
	degraded := false
	for _, key := range keys {
		mc := d.metricCmp(key)
		if mc.VsBaseline == domain.StatusUnknown {
			degraded = true
			continue
		}
		known++
		if d.nearBoundary(key) {
			degraded = true
		}
	}
	if known == 0 {
		return domain.ConfidenceLow
	}
	if degraded || sample < t.MediumSampleFloor {
		return domain.ConfidenceMedium
	}
	return domain.ConfidenceHigh
}

// nearBoundary reports whether the metric's value-to-reference ratio sits
// within epsilon of either band edge, where an above/at/below call could
// flip on noise.
func (d *diagnosis) nearBoundary(key domain.MetricKey) bool {
	mc := d.metricCmp(key)
	if mc.Delta == nil {
		return false
	}
	t := constants.DiagnosisThresholds
	ratio := 1 + *mc.Delta/100
	return math.Abs(ratio-t.AboveFactor) <= t.BoundaryEpsilon ||
		math.Abs(ratio-t.BelowFactor) <= t.BoundaryEpsilon
}

func (d *diagnosis) videoViews() *int64 {
	if d.video == nil {
		return nil
	}
	return d.video.TotalViews
}

func (d *diagnosis) videoImpressions() *int64 {
	if d.video == nil {
		return nil
	}
	return d.video.Impressions
}

func (d *diagnosis) sampleSize() int {
	if d.cmp == nil {
		return 0
	}
	return d.cmp.SampleSize
}

func (d *diagnosis) metricCmp(key domain.MetricKey) domain.MetricComparison {
	return d.cmp.Metric(key)
}

func (d *diagnosis) metricValue(key domain.MetricKey) *float64 {
	return d.video.Metric(key)
}

func (d *diagnosis) supporting(key domain.MetricKey) domain.SupportingMetric {
	mc := d.metricCmp(key)
	var cmpCopy *domain.MetricComparison
	if mc.VsBaseline != domain.StatusUnknown {
		c := mc
		cmpCopy = &c
	}
	return domain.SupportingMetric{
		Label:      metricLabels[key],
		Value:      formatMetric(key, d.metricValue(key)),
		Comparison: cmpCopy,
	}
}

// capSupport drops entries with no value and keeps at most three.
func capSupport(metrics []domain.SupportingMetric) []domain.SupportingMetric {
	out := make([]domain.SupportingMetric, 0, 3)
	for _, m := range metrics {
		if m.Value == "" || m.Value == "—" {
			continue
		}
		out = append(out, m)
		if len(out) == 3 {
			break
		}
	}
	return out
}
