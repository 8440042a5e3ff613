package youtube

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tubelens/tubelens-analytics-go/internal/constants"
	"github.com/tubelens/tubelens-analytics-go/internal/domain"
	"github.com/tubelens/tubelens-analytics-go/internal/util"
	"github.com/tubelens/tubelens-analytics-go/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
	youtubeanalytics "google.golang.org/api/youtubeanalytics/v2"
)

// Service fetches raw per-video analytics. With an authorized OAuth token
// it pulls the full Analytics API metric set; otherwise it degrades to the
// public Data API counters and flags the gap in AnalyticsAvailability.
type Service struct {
	oauth      *OAuthService
	public     *youtube.Service
	breaker    *util.CircuitBreaker
	logger     *zap.Logger
	quotaUsed  int
	quotaMu    sync.Mutex
	quotaReset time.Time
}

const (
	dailyQuotaLimit   = 10000
	searchQuotaCost   = 100
	listQuotaCost     = 1
	quotaSafetyMargin = 2000

	coreMetrics  = "views,estimatedMinutesWatched,averageViewDuration,averageViewPercentage,likes,comments,shares,subscribersGained,subscribersLost"
	reachMetrics = "impressions,impressionsClickThroughRate"
	cardMetrics  = "cardClickRate,endScreenElementClickRate"
)

// Upload is one entry of a channel's recent uploads listing.
type Upload struct {
	VideoID     string
	Title       string
	PublishedAt time.Time
}

// FetchResult bundles one video's raw analytics with the metadata and
// availability flags the engine needs alongside it.
type FetchResult struct {
	Raw          *domain.RawVideoAnalytics
	PublishedAt  time.Time
	Availability domain.AnalyticsAvailability
}

func NewService(apiKey string, oauth *OAuthService, logger *zap.Logger) (*Service, error) {
	s := &Service{
		oauth:      oauth,
		logger:     logger,
		quotaReset: getNextQuotaReset(),
		breaker: util.NewCircuitBreaker("youtube",
			constants.CircuitBreakerConfig.FailureThreshold,
			constants.CircuitBreakerConfig.ResetTimeout,
			logger),
	}

	if oauth.IsAuthorized() {
		s.public = oauth.DataService()
	} else if apiKey != "" {
		public, err := youtube.NewService(context.Background(), option.WithAPIKey(apiKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create YouTube service: %w", err)
		}
		s.public = public
	} else {
		return nil, fmt.Errorf("either an authorized OAuth token or an API key is required")
	}

	logger.Info("YouTube fetch service initialized",
		zap.Bool("analytics_authorized", oauth.IsAuthorized()),
		zap.Time("quota_reset", s.quotaReset))
	return s, nil
}

// FetchVideoAnalytics assembles the RawVideoAnalytics snapshot for one
// video over the trailing rangeDays window.
func (s *Service) FetchVideoAnalytics(ctx context.Context, channelID, videoID string, rangeDays int, now time.Time) (*FetchResult, error) {
	if err := s.breaker.Allow(); err != nil {
		return nil, errors.NewServiceError("YouTube temporarily unavailable", "youtube", "fetch", err)
	}
	if err := s.checkQuota(listQuotaCost); err != nil {
		return nil, err
	}

	meta, err := s.fetchVideoMeta(ctx, videoID)
	if err != nil {
		s.breaker.RecordFailure(retryAfter(err))
		return nil, err
	}
	s.consumeQuota(listQuotaCost)

	raw := &domain.RawVideoAnalytics{
		VideoID:     videoID,
		ChannelID:   channelID,
		DurationSec: meta.durationSec,
	}
	avail := domain.AnalyticsAvailability{}

	if !s.oauth.IsAuthorized() {
		// Public counters only. Zero values from the API are real zeros;
		// OAuth-only families stay nil and are flagged unavailable.
		raw.Views = meta.views
		raw.Likes = meta.likes
		raw.Comments = meta.comments
		avail.Reason = "analytics not connected"
		s.breaker.RecordSuccess()
		return &FetchResult{Raw: raw, PublishedAt: meta.publishedAt, Availability: avail}, nil
	}

	start := now.AddDate(0, 0, -rangeDays).Format("2006-01-02")
	end := now.Format("2006-01-02")
	ids := "channel==" + channelID
	filter := "video==" + videoID
	analytics := s.oauth.AnalyticsService()

	totals, err := analytics.Reports.Query().
		Ids(ids).Filters(filter).
		StartDate(start).EndDate(end).
		Metrics(coreMetrics).
		Context(ctx).Do()
	if err != nil {
		s.breaker.RecordFailure(retryAfter(err))
		apiErr := errors.NewAPIError("analytics totals query failed", statusOf(err), map[string]any{
			"video": videoID,
		})
		apiErr.Cause = err
		return nil, apiErr
	}
	applyCoreTotals(raw, totals)

	daily, err := analytics.Reports.Query().
		Ids(ids).Filters(filter).
		StartDate(start).EndDate(end).
		Dimensions("day").
		Metrics("views,estimatedMinutesWatched").
		Sort("day").
		Context(ctx).Do()
	if err != nil {
		s.logger.Warn("Daily series query failed, continuing without it",
			zap.String("video", videoID), zap.Error(err))
	} else {
		raw.Daily = parseDailySeries(daily)
	}

	// Reach metrics are not granted to every account; a rejection here is
	// an availability fact, not a fetch failure.
	reach, err := analytics.Reports.Query().
		Ids(ids).Filters(filter).
		StartDate(start).EndDate(end).
		Metrics(reachMetrics).
		Context(ctx).Do()
	if err != nil {
		avail.Reason = "impressions metrics not available for this account"
		s.logger.Debug("Reach metrics unavailable",
			zap.String("video", videoID), zap.Error(err))
	} else {
		raw.Impressions = intMetric(reach, "impressions")
		avail.HasImpressions = raw.Impressions != nil
		avail.HasCtr = floatMetric(reach, "impressionsClickThroughRate") != nil
	}

	cards, err := analytics.Reports.Query().
		Ids(ids).Filters(filter).
		StartDate(start).EndDate(end).
		Metrics(cardMetrics).
		Context(ctx).Do()
	if err == nil {
		raw.CardClickRate = floatMetric(cards, "cardClickRate")
		raw.EndScreenClickRate = floatMetric(cards, "endScreenElementClickRate")
		avail.HasCardCtr = raw.CardClickRate != nil
		avail.HasEndScreenCtr = raw.EndScreenClickRate != nil
	}

	traffic, err := analytics.Reports.Query().
		Ids(ids).Filters(filter).
		StartDate(start).EndDate(end).
		Dimensions("insightTrafficSourceType").
		Metrics("views").
		Context(ctx).Do()
	if err == nil {
		raw.TrafficSources = parseTrafficSources(traffic)
		avail.HasTrafficSources = len(raw.TrafficSources) > 0
	}

	s.breaker.RecordSuccess()
	return &FetchResult{Raw: raw, PublishedAt: meta.publishedAt, Availability: avail}, nil
}

// ListRecentUploads returns the channel's newest videos, newest first.
func (s *Service) ListRecentUploads(ctx context.Context, channelID string, maxResults int64) ([]Upload, error) {
	if err := s.breaker.Allow(); err != nil {
		return nil, errors.NewServiceError("YouTube temporarily unavailable", "youtube", "uploads", err)
	}
	if err := s.checkQuota(searchQuotaCost); err != nil {
		return nil, err
	}

	resp, err := s.public.Search.List([]string{"id", "snippet"}).
		ChannelId(channelID).
		Type("video").
		Order("date").
		MaxResults(maxResults).
		Context(ctx).Do()
	if err != nil {
		s.breaker.RecordFailure(retryAfter(err))
		apiErr := errors.NewAPIError("failed to list uploads", statusOf(err), map[string]any{
			"channel": channelID,
		})
		apiErr.Cause = err
		return nil, apiErr
	}
	s.consumeQuota(searchQuotaCost)
	s.breaker.RecordSuccess()

	uploads := make([]Upload, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		publishedAt, _ := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
		uploads = append(uploads, Upload{
			VideoID:     item.Id.VideoId,
			Title:       item.Snippet.Title,
			PublishedAt: publishedAt,
		})
	}
	return uploads, nil
}

type videoMeta struct {
	publishedAt time.Time
	durationSec *float64
	views       *int64
	likes       *int64
	comments    *int64
}

func (s *Service) fetchVideoMeta(ctx context.Context, videoID string) (*videoMeta, error) {
	resp, err := s.public.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
		Id(videoID).
		Context(ctx).Do()
	if err != nil {
		apiErr := errors.NewAPIError("failed to fetch video metadata", statusOf(err), map[string]any{
			"video": videoID,
		})
		apiErr.Cause = err
		return nil, apiErr
	}
	if len(resp.Items) == 0 {
		return nil, errors.NewAPIError("video not found", 404, map[string]any{"video": videoID})
	}

	item := resp.Items[0]
	meta := &videoMeta{}
	if item.Snippet != nil {
		meta.publishedAt, _ = time.Parse(time.RFC3339, item.Snippet.PublishedAt)
	}
	if item.ContentDetails != nil {
		if sec, ok := parseISODuration(item.ContentDetails.Duration); ok {
			meta.durationSec = &sec
		}
	}
	if item.Statistics != nil {
		views := int64(item.Statistics.ViewCount)
		likes := int64(item.Statistics.LikeCount)
		comments := int64(item.Statistics.CommentCount)
		meta.views, meta.likes, meta.comments = &views, &likes, &comments
	}
	return meta, nil
}

// parseISODuration converts the Data API's ISO 8601 duration (PT1H2M3S)
// to seconds.
func parseISODuration(iso string) (float64, bool) {
	if !strings.HasPrefix(iso, "PT") {
		return 0, false
	}
	var total float64
	num := ""
	for _, r := range iso[2:] {
		switch {
		case r >= '0' && r <= '9':
			num += string(r)
		case r == 'H' || r == 'M' || r == 'S':
			v, err := strconv.ParseFloat(num, 64)
			if err != nil {
				return 0, false
			}
			switch r {
			case 'H':
				total += v * 3600
			case 'M':
				total += v * 60
			case 'S':
				total += v
			}
			num = ""
		default:
			return 0, false
		}
	}
	return total, true
}

func applyCoreTotals(raw *domain.RawVideoAnalytics, resp *youtubeanalytics.QueryResponse) {
	raw.Views = intMetric(resp, "views")
	raw.EstimatedMinutesWatched = floatMetric(resp, "estimatedMinutesWatched")
	raw.AvgViewDurationSec = floatMetric(resp, "averageViewDuration")
	raw.AvgViewPercentage = floatMetric(resp, "averageViewPercentage")
	raw.Likes = intMetric(resp, "likes")
	raw.Comments = intMetric(resp, "comments")
	raw.Shares = intMetric(resp, "shares")
	raw.SubscribersGained = intMetric(resp, "subscribersGained")
	raw.SubscribersLost = intMetric(resp, "subscribersLost")
}

func parseDailySeries(resp *youtubeanalytics.QueryResponse) []domain.DailyPoint {
	if resp == nil {
		return nil
	}
	dayIdx := columnIndex(resp, "day")
	viewsIdx := columnIndex(resp, "views")
	minutesIdx := columnIndex(resp, "estimatedMinutesWatched")
	if dayIdx < 0 || viewsIdx < 0 {
		return nil
	}

	points := make([]domain.DailyPoint, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		dayStr, ok := row[dayIdx].(string)
		if !ok {
			continue
		}
		date, err := time.Parse("2006-01-02", dayStr)
		if err != nil {
			continue
		}
		point := domain.DailyPoint{Date: date}
		if v, ok := rowFloat(row, viewsIdx); ok {
			point.Views = int64(v)
		}
		if minutesIdx >= 0 {
			if v, ok := rowFloat(row, minutesIdx); ok {
				point.EstimatedMinutesWatched = v
			}
		}
		points = append(points, point)
	}
	return points
}

func parseTrafficSources(resp *youtubeanalytics.QueryResponse) map[string]int64 {
	if resp == nil {
		return nil
	}
	srcIdx := columnIndex(resp, "insightTrafficSourceType")
	viewsIdx := columnIndex(resp, "views")
	if srcIdx < 0 || viewsIdx < 0 {
		return nil
	}

	sources := make(map[string]int64, len(resp.Rows))
	for _, row := range resp.Rows {
		name, ok := row[srcIdx].(string)
		if !ok {
			continue
		}
		if v, ok := rowFloat(row, viewsIdx); ok {
			sources[name] = int64(v)
		}
	}
	return sources
}

func columnIndex(resp *youtubeanalytics.QueryResponse, name string) int {
	for i, header := range resp.ColumnHeaders {
		if header != nil && header.Name == name {
			return i
		}
	}
	return -1
}

func rowFloat(row []interface{}, idx int) (float64, bool) {
	if idx < 0 || idx >= len(row) {
		return 0, false
	}
	v, ok := row[idx].(float64)
	return v, ok
}

func floatMetric(resp *youtubeanalytics.QueryResponse, name string) *float64 {
	if resp == nil || len(resp.Rows) == 0 {
		return nil
	}
	idx := columnIndex(resp, name)
	if v, ok := rowFloat(resp.Rows[0], idx); ok {
		return &v
	}
	return nil
}

func intMetric(resp *youtubeanalytics.QueryResponse, name string) *int64 {
	if v := floatMetric(resp, name); v != nil {
		out := int64(*v)
		return &out
	}
	return nil
}

func getNextQuotaReset() time.Time {
	pt, _ := time.LoadLocation("America/Los_Angeles")
	now := time.Now().In(pt)
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, pt)
}

func (s *Service) checkQuota(cost int) error {
	s.quotaMu.Lock()
	defer s.quotaMu.Unlock()

	now := time.Now()
	if now.After(s.quotaReset) {
		s.quotaUsed = 0
		s.quotaReset = getNextQuotaReset()
		s.logger.Info("YouTube API quota reset", zap.Time("next_reset", s.quotaReset))
	}

	if s.quotaUsed+cost > dailyQuotaLimit-quotaSafetyMargin {
		return errors.NewQuotaError("daily YouTube quota budget exhausted", map[string]any{
			"used":      s.quotaUsed,
			"requested": cost,
			"reset":     s.quotaReset,
		})
	}
	return nil
}

func (s *Service) consumeQuota(cost int) {
	s.quotaMu.Lock()
	defer s.quotaMu.Unlock()
	s.quotaUsed += cost
}

func statusOf(err error) int {
	if apiErr, ok := err.(*googleapi.Error); ok {
		return apiErr.Code
	}
	return 500
}

func retryAfter(err error) time.Duration {
	if statusOf(err) == 429 {
		return constants.CircuitBreakerConfig.RateLimitTimeout
	}
	return 0
}
