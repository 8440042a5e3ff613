package engine

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/tubelens/tubelens-analytics-go/internal/domain"
)

func below(delta float64) domain.MetricComparison {
	return domain.MetricComparison{Delta: &delta, VsBaseline: domain.StatusBelow}
}

func above(delta float64) domain.MetricComparison {
	return domain.MetricComparison{Delta: &delta, VsBaseline: domain.StatusAbove}
}

func at(delta float64) domain.MetricComparison {
	return domain.MetricComparison{Delta: &delta, VsBaseline: domain.StatusAt}
}

func comparisonWith(sampleSize int, entries map[domain.MetricKey]domain.MetricComparison) *domain.BaselineComparison {
	metrics := make(map[domain.MetricKey]domain.MetricComparison)
	for _, key := range domain.TrackedMetrics() {
		metrics[key] = at(0)
	}
	for key, mc := range entries {
		metrics[key] = mc
	}
	return &domain.BaselineComparison{
		VideoID:    "vid-1",
		ChannelID:  "chan-1",
		SampleSize: sampleSize,
		Metrics:    metrics,
	}
}

func healthyVideo() *domain.DerivedMetrics {
	return &domain.DerivedMetrics{
		VideoID:             "vid-1",
		ChannelID:           "chan-1",
		TotalViews:          i64(5000),
		Impressions:         i64(40000),
		ViewsPerDay:         f64(500),
		ImpressionsCtr:      f64(12.5),
		AvgViewPercentage:   f64(55),
		WatchTimePerViewSec: f64(250),
		SubsPer1k:           f64(2),
		NetSubsPer1k:        f64(2),
	}
}

func fullAvailability() domain.AnalyticsAvailability {
	return domain.AnalyticsAvailability{
		HasImpressions:    true,
		HasCtr:            true,
		HasTrafficSources: true,
		HasEndScreenCtr:   true,
		HasCardCtr:        true,
	}
}

func TestDiagnoseViewsFloorDominates(t *testing.T) {
	video := healthyVideo()
	video.TotalViews = i64(50)
	// Every comparison reads above baseline; the floor must still win.
	cmp := comparisonWith(20, map[domain.MetricKey]domain.MetricComparison{
		domain.MetricImpressionsCtr: above(150),
	})

	result, conf := Diagnose(video, cmp, fullAvailability())
	if result.Bottleneck != domain.BottleneckNotEnoughData {
		t.Fatalf("expected NOT_ENOUGH_DATA below the views floor, got %s", result.Bottleneck)
	}
	if conf.Overall != domain.ConfidenceLow {
		t.Fatalf("expected low overall confidence, got %s", conf.Overall)
	}
	if !strings.Contains(result.Evidence, "50 more views") {
		t.Fatalf("evidence should name the numeric gap to the floor: %q", result.Evidence)
	}
}

func TestDiagnoseImpressionsFloor(t *testing.T) {
	video := healthyVideo()
	video.Impressions = i64(120)

	result, _ := Diagnose(video, comparisonWith(20, nil), fullAvailability())
	if result.Bottleneck != domain.BottleneckNotEnoughData {
		t.Fatalf("expected NOT_ENOUGH_DATA below the impressions floor, got %s", result.Bottleneck)
	}
	if !strings.Contains(result.Evidence, "80 more impressions") {
		t.Fatalf("evidence should name the impressions gap: %q", result.Evidence)
	}
}

func TestDiagnoseImpressionsFloorIgnoredWithoutImpressionsAccess(t *testing.T) {
	video := healthyVideo()
	video.Impressions = nil
	video.ImpressionsCtr = nil

	avail := fullAvailability()
	avail.HasImpressions = false
	avail.HasCtr = false

	result, _ := Diagnose(video, comparisonWith(20, nil), avail)
	if result.Bottleneck == domain.BottleneckNotEnoughData {
		t.Fatal("missing impressions must not count against accounts that cannot have them")
	}
}

func TestDiagnoseBaselineSampleFloor(t *testing.T) {
	result, conf := Diagnose(healthyVideo(), comparisonWith(2, nil), fullAvailability())
	if result.Bottleneck != domain.BottleneckNotEnoughData {
		t.Fatalf("expected NOT_ENOUGH_DATA with 2 baseline videos, got %s", result.Bottleneck)
	}
	if !strings.Contains(result.Evidence, "1 more video") {
		t.Fatalf("evidence should name the baseline gap: %q", result.Evidence)
	}
	if conf.Overall != domain.ConfidenceLow {
		t.Fatalf("expected low confidence, got %s", conf.Overall)
	}
}

func TestDiagnoseDiscoveryImpressions(t *testing.T) {
	cmp := comparisonWith(20, map[domain.MetricKey]domain.MetricComparison{
		domain.MetricImpressions:       below(-40),
		domain.MetricAvgViewPercentage: below(-30), // ordering: impressions wins
	})

	result, conf := Diagnose(healthyVideo(), cmp, fullAvailability())
	if result.Bottleneck != domain.BottleneckDiscoveryImpressions {
		t.Fatalf("expected DISCOVERY_IMPRESSIONS, got %s", result.Bottleneck)
	}
	if !strings.Contains(result.Evidence, "40% below") {
		t.Fatalf("evidence should quote the delta: %q", result.Evidence)
	}
	if conf.Overall != domain.ConfidenceHigh {
		t.Fatalf("expected high confidence with sample 20, got %s", conf.Overall)
	}
}

func TestDiagnoseDiscoveryImpressionsRequiresAvailability(t *testing.T) {
	cmp := comparisonWith(20, map[domain.MetricKey]domain.MetricComparison{
		domain.MetricImpressions: below(-40),
	})
	avail := fullAvailability()
	avail.HasImpressions = false

	video := healthyVideo()
	video.Impressions = nil
	result, conf := Diagnose(video, cmp, avail)
	if result.Bottleneck == domain.BottleneckDiscoveryImpressions {
		t.Fatal("impressions rule must not fire without impressions access")
	}
	if conf.Discovery != domain.ConfidenceLow {
		t.Fatalf("discovery section without impressions access should be low, got %s", conf.Discovery)
	}
}

func TestDiagnoseDiscoveryCtr(t *testing.T) {
	video := healthyVideo()
	video.ImpressionsCtr = f64(2.1)
	cmp := comparisonWith(20, map[domain.MetricKey]domain.MetricComparison{
		domain.MetricImpressionsCtr: below(-45),
	})

	result, _ := Diagnose(video, cmp, fullAvailability())
	if result.Bottleneck != domain.BottleneckDiscoveryCtr {
		t.Fatalf("expected DISCOVERY_CTR, got %s", result.Bottleneck)
	}
	if !strings.Contains(result.Evidence, "2.10%") {
		t.Fatalf("evidence should quote the actual CTR: %q", result.Evidence)
	}
}

func TestDiagnoseRetention(t *testing.T) {
	video := healthyVideo()
	video.AvgViewPercentage = f64(30)
	cmp := comparisonWith(20, map[domain.MetricKey]domain.MetricComparison{
		domain.MetricAvgViewPercentage: below(-45),
		domain.MetricSubsPer1k:         below(-60), // funnel order: retention first
	})

	result, _ := Diagnose(video, cmp, fullAvailability())
	if result.Bottleneck != domain.BottleneckRetention {
		t.Fatalf("expected RETENTION, got %s", result.Bottleneck)
	}
	if !strings.Contains(result.Evidence, "30.0%") {
		t.Fatalf("evidence should quote the view percentage: %q", result.Evidence)
	}
}

func TestDiagnoseRetentionViaWatchTime(t *testing.T) {
	cmp := comparisonWith(20, map[domain.MetricKey]domain.MetricComparison{
		domain.MetricWatchTimePerViewSec: below(-35),
	})

	result, _ := Diagnose(healthyVideo(), cmp, fullAvailability())
	if result.Bottleneck != domain.BottleneckRetention {
		t.Fatalf("expected RETENTION via watch time, got %s", result.Bottleneck)
	}
}

func TestDiagnoseConversion(t *testing.T) {
	video := healthyVideo()
	video.SubsPer1k = f64(0.8)
	cmp := comparisonWith(20, map[domain.MetricKey]domain.MetricComparison{
		domain.MetricSubsPer1k: below(-60),
	})

	result, _ := Diagnose(video, cmp, fullAvailability())
	if result.Bottleneck != domain.BottleneckConversion {
		t.Fatalf("expected CONVERSION, got %s", result.Bottleneck)
	}
	if !strings.Contains(result.Evidence, "0.80") {
		t.Fatalf("evidence should quote subs per 1K: %q", result.Evidence)
	}
}

func TestDiagnoseFallbackStrength(t *testing.T) {
	cmp := comparisonWith(20, map[domain.MetricKey]domain.MetricComparison{
		domain.MetricImpressionsCtr:    above(35),
		domain.MetricAvgViewPercentage: above(15),
	})

	result, _ := Diagnose(healthyVideo(), cmp, fullAvailability())
	if result.Bottleneck != domain.BottleneckNoClearBottleneck {
		t.Fatalf("expected NO_CLEAR_BOTTLENECK, got %s", result.Bottleneck)
	}
	if !strings.Contains(result.Evidence, "click-through rate") || !strings.Contains(result.Evidence, "35% above") {
		t.Fatalf("fallback should call out the strongest metric: %q", result.Evidence)
	}
}

func TestDiagnoseFallbackNeutral(t *testing.T) {
	result, conf := Diagnose(healthyVideo(), comparisonWith(20, nil), fullAvailability())
	if result.Bottleneck != domain.BottleneckNoClearBottleneck {
		t.Fatalf("expected neutral NO_CLEAR_BOTTLENECK, got %s", result.Bottleneck)
	}
	if !strings.Contains(result.Evidence, "No clear bottleneck") {
		t.Fatalf("unexpected evidence: %q", result.Evidence)
	}
	// Fallback with no deciding metric cannot claim high confidence.
	if conf.Overall == domain.ConfidenceHigh {
		t.Fatalf("neutral fallback should not be high confidence, got %s", conf.Overall)
	}
}

func TestDiagnoseConfidenceMediumSmallSampleIsLow(t *testing.T) {
	cmp := comparisonWith(5, map[domain.MetricKey]domain.MetricComparison{
		domain.MetricImpressionsCtr: below(-45),
	})
	_, conf := Diagnose(healthyVideo(), cmp, fullAvailability())
	if conf.Overall != domain.ConfidenceLow {
		t.Fatalf("sample below the medium floor should grade low, got %s", conf.Overall)
	}
}

func TestDiagnoseConfidenceNearBoundaryIsMedium(t *testing.T) {
	// Delta of -11% sits within epsilon of the 0.9x band edge.
	cmp := comparisonWith(20, map[domain.MetricKey]domain.MetricComparison{
		domain.MetricImpressionsCtr: below(-11),
	})
	result, conf := Diagnose(healthyVideo(), cmp, fullAvailability())
	if result.Bottleneck != domain.BottleneckDiscoveryCtr {
		t.Fatalf("expected DISCOVERY_CTR, got %s", result.Bottleneck)
	}
	if conf.Overall != domain.ConfidenceMedium {
		t.Fatalf("near-boundary deciding metric should grade medium, got %s", conf.Overall)
	}
}

func TestDiagnoseSectionConfidenceIndependent(t *testing.T) {
	// Conversion data is entirely unknown; discovery and retention are not.
	cmp := comparisonWith(20, map[domain.MetricKey]domain.MetricComparison{
		domain.MetricSubsPer1k:    {VsBaseline: domain.StatusUnknown},
		domain.MetricNetSubsPer1k: {VsBaseline: domain.StatusUnknown},
	})
	_, conf := Diagnose(healthyVideo(), cmp, fullAvailability())

	if conf.Conversion != domain.ConfidenceLow {
		t.Fatalf("all-unknown conversion section should be low, got %s", conf.Conversion)
	}
	if conf.Discovery != domain.ConfidenceHigh || conf.Retention != domain.ConfidenceHigh {
		t.Fatalf("other sections must not be dragged down: discovery=%s retention=%s", conf.Discovery, conf.Retention)
	}
}

func TestDiagnoseNilInputsDegradeGracefully(t *testing.T) {
	result, conf := Diagnose(nil, nil, domain.AnalyticsAvailability{})
	if result == nil || conf == nil {
		t.Fatal("Diagnose must always return a verdict")
	}
	if result.Bottleneck != domain.BottleneckNotEnoughData {
		t.Fatalf("nil inputs should degrade to NOT_ENOUGH_DATA, got %s", result.Bottleneck)
	}
	if conf.Overall != domain.ConfidenceLow {
		t.Fatalf("expected low confidence, got %s", conf.Overall)
	}
}

func TestDiagnoseIdempotent(t *testing.T) {
	video := healthyVideo()
	cmp := comparisonWith(20, map[domain.MetricKey]domain.MetricComparison{
		domain.MetricImpressionsCtr: below(-45),
	})

	r1, c1 := Diagnose(video, cmp, fullAvailability())
	r2, c2 := Diagnose(video, cmp, fullAvailability())

	b1, _ := json.Marshal(struct {
		R *domain.BottleneckResult
		C *domain.SectionConfidence
	}{r1, c1})
	b2, _ := json.Marshal(struct {
		R *domain.BottleneckResult
		C *domain.SectionConfidence
	}{r2, c2})
	if string(b1) != string(b2) {
		t.Fatalf("diagnose is not deterministic:\n%s\n%s", b1, b2)
	}
}
