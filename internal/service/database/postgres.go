package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

type PostgresService struct {
	db     *sql.DB
	logger *zap.Logger
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

func NewPostgresService(cfg PostgresConfig, logger *zap.Logger) (*PostgresService, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	logger.Info("PostgreSQL connected",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
	)

	return &PostgresService{
		db:     db,
		logger: logger,
	}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS video_metrics (
	video_id                TEXT PRIMARY KEY,
	channel_id              TEXT NOT NULL,
	published_at            TIMESTAMPTZ NOT NULL,
	total_views             BIGINT,
	impressions             BIGINT,
	views_per_day           DOUBLE PRECISION,
	impressions_ctr         DOUBLE PRECISION,
	avg_view_percentage     DOUBLE PRECISION,
	avg_view_duration_sec   DOUBLE PRECISION,
	watch_time_per_view_sec DOUBLE PRECISION,
	subs_per_1k             DOUBLE PRECISION,
	net_subs_per_1k         DOUBLE PRECISION,
	engagement_per_view     DOUBLE PRECISION,
	first_24h_views         DOUBLE PRECISION,
	end_screen_ctr          DOUBLE PRECISION,
	card_ctr                DOUBLE PRECISION,
	traffic_sources         JSONB,
	updated_at              TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_video_metrics_channel
	ON video_metrics (channel_id, published_at DESC);

CREATE TABLE IF NOT EXISTS tracked_channels (
	channel_id TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	added_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema creates the metric history tables when they do not exist.
func (ps *PostgresService) EnsureSchema(ctx context.Context) error {
	if _, err := ps.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	ps.logger.Debug("Schema ensured")
	return nil
}

func (ps *PostgresService) GetDB() *sql.DB {
	return ps.db
}

func (ps *PostgresService) Close() error {
	if ps.db != nil {
		return ps.db.Close()
	}
	return nil
}

func (ps *PostgresService) Ping(ctx context.Context) error {
	return ps.db.PingContext(ctx)
}
