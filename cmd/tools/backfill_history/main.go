package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tubelens/tubelens-analytics-go/internal/app"
	"github.com/tubelens/tubelens-analytics-go/internal/config"
	"github.com/tubelens/tubelens-analytics-go/internal/util"
	"go.uber.org/zap"
)

// One-shot backfill: refreshes derived metric history and the cached
// baseline for one channel, or for every tracked channel when no -channel
// flag is given. Run it after adding a channel so the first analysis has a
// baseline to compare against.
func main() {
	channelFlag := flag.String("channel", "", "channel id to backfill (default: all tracked channels)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := util.NewLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	container, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to assemble application services", zap.Error(err))
	}
	defer container.Close()

	channels := cfg.Baseline.Channels
	if *channelFlag != "" {
		channels = []string{*channelFlag}
		if err := container.History.TrackChannel(ctx, *channelFlag, ""); err != nil {
			logger.Fatal("Failed to register channel", zap.String("channel", *channelFlag), zap.Error(err))
		}
	} else if len(channels) == 0 {
		stored, err := container.History.ListTrackedChannels(ctx)
		if err != nil {
			logger.Fatal("Failed to list tracked channels", zap.Error(err))
		}
		channels = stored
	}

	if len(channels) == 0 {
		logger.Fatal("No channels to backfill; pass -channel or set TRACKED_CHANNELS")
	}

	start := time.Now()
	failed := 0
	for _, channelID := range channels {
		logger.Info("Backfilling channel", zap.String("channel", channelID))
		if err := container.Scheduler.RefreshChannel(ctx, channelID); err != nil {
			logger.Error("Backfill failed", zap.String("channel", channelID), zap.Error(err))
			failed++
		}
	}

	logger.Info("Backfill complete",
		zap.Int("channels", len(channels)),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)))
	if failed > 0 {
		os.Exit(1)
	}
}
