package engine

import (
	"time"

	"github.com/tubelens/tubelens-analytics-go/internal/domain"
	"github.com/tubelens/tubelens-analytics-go/pkg/errors"
)

// Pipeline composes the four engine stages for one video against its
// channel history. It carries only configuration; every call is pure and
// two calls with identical inputs produce identical output.
type Pipeline struct {
	window BaselineWindow
}

func NewPipeline(window BaselineWindow) *Pipeline {
	return &Pipeline{window: window}
}

// Output bundles the full engine result for one analysis run.
type Output struct {
	Derived    *domain.DerivedMetrics
	Baseline   *domain.ChannelBaseline
	Comparison *domain.BaselineComparison
	Bottleneck *domain.BottleneckResult
	Confidence *domain.SectionConfidence
}

// Analyze runs derive -> baseline -> compare -> diagnose. The history slice
// header is copied before filtering so a concurrent refresh of the caller's
// backing array can never corrupt a running analysis. The only error is a
// contract violation on a nil raw record; degraded data never errors.
func (p *Pipeline) Analyze(raw *domain.RawVideoAnalytics, publishedAt time.Time, history []*domain.DerivedMetrics, avail domain.AnalyticsAvailability, now time.Time) (*Output, error) {
	if raw == nil {
		return nil, errors.NewValidationError("raw analytics must not be nil", "raw", nil)
	}

	snapshot := make([]*domain.DerivedMetrics, len(history))
	copy(snapshot, history)

	derived := Derive(raw, publishedAt, now)
	baseline := BuildBaseline(raw.ChannelID, snapshot, raw.VideoID, p.window, now)
	comparison := Compare(derived, baseline)
	bottleneck, confidence := Diagnose(derived, comparison, avail)

	return &Output{
		Derived:    derived,
		Baseline:   baseline,
		Comparison: comparison,
		Bottleneck: bottleneck,
		Confidence: confidence,
	}, nil
}
