package domain

// BottleneckCategory is the single diagnosed limiting factor for a video's
// growth. Exactly one category is emitted per analysis run.
type BottleneckCategory string

const (
	BottleneckNotEnoughData         BottleneckCategory = "NOT_ENOUGH_DATA"
	BottleneckDiscoveryImpressions  BottleneckCategory = "DISCOVERY_IMPRESSIONS"
	BottleneckDiscoveryCtr          BottleneckCategory = "DISCOVERY_CTR"
	BottleneckRetention             BottleneckCategory = "RETENTION"
	BottleneckConversion            BottleneckCategory = "CONVERSION"
	BottleneckNoClearBottleneck     BottleneckCategory = "NO_CLEAR_BOTTLENECK"
)

// SupportingMetric is one of the 1-3 numeric facts shown under the verdict.
type SupportingMetric struct {
	Label      string            `json:"label"`
	Value      string            `json:"value"`
	Comparison *MetricComparison `json:"comparison,omitempty"`
}

// BottleneckResult is the diagnoser's verdict. Immutable once produced.
type BottleneckResult struct {
	Bottleneck BottleneckCategory `json:"bottleneck"`
	Evidence   string             `json:"evidence"`
	Metrics    []SupportingMetric `json:"metrics"`
}

// ConfidenceLevel grades how much historical and volume support backs a
// derived claim.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// SectionConfidence carries one confidence grade per analysis section plus
// the overall grade for the bottleneck verdict. Sections are graded
// independently so one weak section does not drag down the others.
type SectionConfidence struct {
	Discovery  ConfidenceLevel `json:"discovery"`
	Retention  ConfidenceLevel `json:"retention"`
	Conversion ConfidenceLevel `json:"conversion"`
	Overall    ConfidenceLevel `json:"overall"`
}
