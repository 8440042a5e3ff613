package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tubelens/tubelens-analytics-go/internal/domain"
	"github.com/tubelens/tubelens-analytics-go/internal/service/database"
	"go.uber.org/zap"
)

// HistoryRepository persists per-video derived metric records, the raw
// material for channel baselines. Rows are upserted whole: a refresh either
// replaces a video's record completely or leaves it untouched.
type HistoryRepository struct {
	postgres *database.PostgresService
	logger   *zap.Logger
}

func NewHistoryRepository(postgres *database.PostgresService, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{
		postgres: postgres,
		logger:   logger,
	}
}

func (r *HistoryRepository) SaveDerived(ctx context.Context, d *domain.DerivedMetrics) error {
	if d == nil || d.VideoID == "" {
		return fmt.Errorf("derived metrics with a video id are required")
	}

	var traffic any
	if len(d.TrafficSources) > 0 {
		data, err := json.Marshal(d.TrafficSources)
		if err != nil {
			return fmt.Errorf("failed to marshal traffic sources: %w", err)
		}
		traffic = string(data)
	}

	query := `
		INSERT INTO video_metrics (
			video_id, channel_id, published_at,
			total_views, impressions,
			views_per_day, impressions_ctr, avg_view_percentage,
			avg_view_duration_sec, watch_time_per_view_sec,
			subs_per_1k, net_subs_per_1k, engagement_per_view,
			first_24h_views, end_screen_ctr, card_ctr,
			traffic_sources, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, now())
		ON CONFLICT (video_id) DO UPDATE SET
			channel_id = EXCLUDED.channel_id,
			published_at = EXCLUDED.published_at,
			total_views = EXCLUDED.total_views,
			impressions = EXCLUDED.impressions,
			views_per_day = EXCLUDED.views_per_day,
			impressions_ctr = EXCLUDED.impressions_ctr,
			avg_view_percentage = EXCLUDED.avg_view_percentage,
			avg_view_duration_sec = EXCLUDED.avg_view_duration_sec,
			watch_time_per_view_sec = EXCLUDED.watch_time_per_view_sec,
			subs_per_1k = EXCLUDED.subs_per_1k,
			net_subs_per_1k = EXCLUDED.net_subs_per_1k,
			engagement_per_view = EXCLUDED.engagement_per_view,
			first_24h_views = EXCLUDED.first_24h_views,
			end_screen_ctr = EXCLUDED.end_screen_ctr,
			card_ctr = EXCLUDED.card_ctr,
			traffic_sources = EXCLUDED.traffic_sources,
			updated_at = now()`

	_, err := r.postgres.GetDB().ExecContext(ctx, query,
		d.VideoID, d.ChannelID, d.PublishedAt,
		nullInt(d.TotalViews), nullInt(d.Impressions),
		nullFloat(d.ViewsPerDay), nullFloat(d.ImpressionsCtr), nullFloat(d.AvgViewPercentage),
		nullFloat(d.AvgViewDurationSec), nullFloat(d.WatchTimePerViewSec),
		nullFloat(d.SubsPer1k), nullFloat(d.NetSubsPer1k), nullFloat(d.EngagementPerView),
		nullFloat(d.First24hViews), nullFloat(d.EndScreenCtr), nullFloat(d.CardCtr),
		traffic,
	)
	if err != nil {
		return fmt.Errorf("failed to save derived metrics for %s: %w", d.VideoID, err)
	}
	return nil
}

// GetChannelHistory returns the channel's derived metric records, newest
// first, bounded by count and age. The slice is freshly allocated per call
// so callers always baseline against their own snapshot.
func (r *HistoryRepository) GetChannelHistory(ctx context.Context, channelID string, maxVideos, maxAgeDays int) ([]*domain.DerivedMetrics, error) {
	query := `
		SELECT video_id, channel_id, published_at,
		       total_views, impressions,
		       views_per_day, impressions_ctr, avg_view_percentage,
		       avg_view_duration_sec, watch_time_per_view_sec,
		       subs_per_1k, net_subs_per_1k, engagement_per_view,
		       first_24h_views, end_screen_ctr, card_ctr,
		       traffic_sources
		FROM video_metrics
		WHERE channel_id = $1 AND published_at >= $2
		ORDER BY published_at DESC
		LIMIT $3`

	cutoff := time.Time{}
	if maxAgeDays > 0 {
		cutoff = time.Now().AddDate(0, 0, -maxAgeDays)
	}
	limit := maxVideos
	if limit <= 0 {
		limit = 1000
	}

	rows, err := r.postgres.GetDB().QueryContext(ctx, query, channelID, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query channel history: %w", err)
	}
	defer rows.Close()

	history := make([]*domain.DerivedMetrics, 0, limit)
	for rows.Next() {
		d, err := scanDerived(rows)
		if err != nil {
			r.logger.Warn("Skipping unreadable history row",
				zap.String("channel", channelID),
				zap.Error(err))
			continue
		}
		history = append(history, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate channel history: %w", err)
	}
	return history, nil
}

func (r *HistoryRepository) ListTrackedChannels(ctx context.Context) ([]string, error) {
	rows, err := r.postgres.GetDB().QueryContext(ctx, `SELECT channel_id FROM tracked_channels ORDER BY added_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked channels: %w", err)
	}
	defer rows.Close()

	var channels []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan channel id: %w", err)
		}
		channels = append(channels, id)
	}
	return channels, rows.Err()
}

func (r *HistoryRepository) TrackChannel(ctx context.Context, channelID, title string) error {
	_, err := r.postgres.GetDB().ExecContext(ctx, `
		INSERT INTO tracked_channels (channel_id, title)
		VALUES ($1, $2)
		ON CONFLICT (channel_id) DO UPDATE SET title = EXCLUDED.title`,
		channelID, title)
	if err != nil {
		return fmt.Errorf("failed to track channel %s: %w", channelID, err)
	}
	return nil
}

func scanDerived(rows *sql.Rows) (*domain.DerivedMetrics, error) {
	var (
		d           domain.DerivedMetrics
		totalViews  sql.NullInt64
		impressions sql.NullInt64
		floats      [11]sql.NullFloat64
		traffic     sql.NullString
	)

	if err := rows.Scan(
		&d.VideoID, &d.ChannelID, &d.PublishedAt,
		&totalViews, &impressions,
		&floats[0], &floats[1], &floats[2],
		&floats[3], &floats[4],
		&floats[5], &floats[6], &floats[7],
		&floats[8], &floats[9], &floats[10],
		&traffic,
	); err != nil {
		return nil, err
	}

	d.TotalViews = fromNullInt(totalViews)
	d.Impressions = fromNullInt(impressions)
	d.ViewsPerDay = fromNullFloat(floats[0])
	d.ImpressionsCtr = fromNullFloat(floats[1])
	d.AvgViewPercentage = fromNullFloat(floats[2])
	d.AvgViewDurationSec = fromNullFloat(floats[3])
	d.WatchTimePerViewSec = fromNullFloat(floats[4])
	d.SubsPer1k = fromNullFloat(floats[5])
	d.NetSubsPer1k = fromNullFloat(floats[6])
	d.EngagementPerView = fromNullFloat(floats[7])
	d.First24hViews = fromNullFloat(floats[8])
	d.EndScreenCtr = fromNullFloat(floats[9])
	d.CardCtr = fromNullFloat(floats[10])

	if traffic.Valid && traffic.String != "" {
		if err := json.Unmarshal([]byte(traffic.String), &d.TrafficSources); err != nil {
			return nil, fmt.Errorf("failed to unmarshal traffic sources: %w", err)
		}
	}
	return &d, nil
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	out := v.Int64
	return &out
}

func fromNullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	out := v.Float64
	return &out
}
