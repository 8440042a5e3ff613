package domain

import "time"

// RawVideoAnalytics is the fetch layer's per-video snapshot for one requested
// date range. Every counter is a pointer: nil means the data source did not
// report the field, which is distinct from a reported zero.
type RawVideoAnalytics struct {
	VideoID   string `json:"video_id"`
	ChannelID string `json:"channel_id"`

	DurationSec *float64 `json:"duration_sec,omitempty"`

	Views                   *int64   `json:"views,omitempty"`
	Impressions             *int64   `json:"impressions,omitempty"`
	AvgViewPercentage       *float64 `json:"avg_view_percentage,omitempty"`
	AvgViewDurationSec      *float64 `json:"avg_view_duration_sec,omitempty"`
	EstimatedMinutesWatched *float64 `json:"estimated_minutes_watched,omitempty"`
	Likes                   *int64   `json:"likes,omitempty"`
	Comments                *int64   `json:"comments,omitempty"`
	Shares                  *int64   `json:"shares,omitempty"`
	SubscribersGained       *int64   `json:"subscribers_gained,omitempty"`
	SubscribersLost         *int64   `json:"subscribers_lost,omitempty"`
	EndScreenClickRate      *float64 `json:"end_screen_click_rate,omitempty"`
	CardClickRate           *float64 `json:"card_click_rate,omitempty"`

	// TrafficSources maps source type (e.g. "BROWSE", "SEARCH") to views.
	TrafficSources map[string]int64 `json:"traffic_sources,omitempty"`

	Daily []DailyPoint `json:"daily,omitempty"`
}

// DailyPoint is one day of the per-video time series.
type DailyPoint struct {
	Date                    time.Time `json:"date"`
	Views                   int64     `json:"views"`
	EstimatedMinutesWatched float64   `json:"estimated_minutes_watched"`
}

// AnalyticsAvailability records which metric families the connected account
// can provide. Impressions and CTR require creator-granted OAuth; the
// diagnoser uses these flags to tell "metric is low" apart from "metric is
// not measurable for this account".
type AnalyticsAvailability struct {
	HasImpressions    bool   `json:"hasImpressions"`
	HasCtr            bool   `json:"hasCtr"`
	HasTrafficSources bool   `json:"hasTrafficSources"`
	HasEndScreenCtr   bool   `json:"hasEndScreenCtr"`
	HasCardCtr        bool   `json:"hasCardCtr"`
	Reason            string `json:"reason,omitempty"`
}
