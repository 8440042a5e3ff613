package constants

import "time"

var CacheTTL = struct {
	AnalysisResult  time.Duration
	ChannelBaseline time.Duration
	RawAnalytics    time.Duration
	UploadsList     time.Duration
}{
	AnalysisResult:  12 * time.Hour,   // full analysis per (channel, video, range)
	ChannelBaseline: 12 * time.Hour,   // replaced wholesale by the scheduler
	RawAnalytics:    2 * time.Hour,    // raw API responses
	UploadsList:     30 * time.Minute, // channel uploads listing
}

// DiagnosisThresholds are product-tuning knobs, not physical constants.
// Floors mirror the "N more views/impressions to unlock" UI copy.
var DiagnosisThresholds = struct {
	ViewsFloor        int64
	ImpressionsFloor  int64
	MinBaselineSample int
	MediumSampleFloor int
	AboveFactor       float64
	BelowFactor       float64
	BoundaryEpsilon   float64
}{
	ViewsFloor:        100,
	ImpressionsFloor:  200,
	MinBaselineSample: 3,
	MediumSampleFloor: 10,
	AboveFactor:       1.1,  // above baseline when value > reference * 1.1
	BelowFactor:       0.9,  // below baseline when value < reference * 0.9
	BoundaryEpsilon:   0.02, // within this of a band edge downgrades confidence
}

var BaselineDefaults = struct {
	LookbackVideos int
	LookbackDays   int
}{
	LookbackVideos: 30,
	LookbackDays:   365,
}

var SchedulerConfig = struct {
	RefreshInterval  time.Duration
	ChannelWorkers   int
	VideosPerChannel int64
}{
	RefreshInterval:  12 * time.Hour,
	ChannelWorkers:   4,
	VideosPerChannel: 15,
}

var RetryConfig = struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Jitter      time.Duration
}{
	MaxAttempts: 3,
	BaseDelay:   500 * time.Millisecond,
	Jitter:      250 * time.Millisecond,
}

var CircuitBreakerConfig = struct {
	FailureThreshold int
	ResetTimeout     time.Duration
	RateLimitTimeout time.Duration
}{
	FailureThreshold: 3,
	ResetTimeout:     30 * time.Second,
	RateLimitTimeout: 1 * time.Hour,
}

var RedisConfig = struct {
	ReadyTimeout time.Duration
}{
	ReadyTimeout: 5 * time.Second,
}
