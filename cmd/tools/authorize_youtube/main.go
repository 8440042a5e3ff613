package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/tubelens/tubelens-analytics-go/internal/config"
	"github.com/tubelens/tubelens-analytics-go/internal/service/youtube"
	"go.uber.org/zap"
)

// One-time OAuth consent flow. Prints the consent URL, reads the
// authorization code from stdin, and persists the token the analytics
// fetcher needs for impressions and retention metrics.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	oauth, err := youtube.NewOAuthService(cfg.YouTube.CredentialsFile, cfg.YouTube.TokenFile, logger)
	if err != nil {
		logger.Fatal("Failed to load OAuth credentials", zap.Error(err))
	}
	if oauth.IsAuthorized() {
		logger.Info("Already authorized; delete the token file to re-authorize",
			zap.String("token_file", cfg.YouTube.TokenFile))
		return
	}

	fmt.Printf("Open this URL in a browser and approve access:\n\n%s\n\nPaste the authorization code: ", oauth.AuthURL())

	reader := bufio.NewReader(os.Stdin)
	code, err := reader.ReadString('\n')
	if err != nil {
		logger.Fatal("Failed to read authorization code", zap.Error(err))
	}

	if err := oauth.Exchange(context.Background(), strings.TrimSpace(code)); err != nil {
		logger.Fatal("Failed to exchange authorization code", zap.Error(err))
	}

	logger.Info("Authorization complete", zap.String("token_file", cfg.YouTube.TokenFile))
}
