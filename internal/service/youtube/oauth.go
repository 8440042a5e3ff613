package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
	youtubeanalytics "google.golang.org/api/youtubeanalytics/v2"
)

const analyticsReadonlyScope = "https://www.googleapis.com/auth/yt-analytics.readonly"

// OAuthService holds the creator-granted credentials the Analytics API
// requires. Impressions, CTR and retention curves are only reachable with
// an authorized token; without one the fetcher degrades to public counts.
type OAuthService struct {
	config    *oauth2.Config
	token     *oauth2.Token
	tokenFile string
	data      *youtube.Service
	analytics *youtubeanalytics.Service
	logger    *zap.Logger
}

func NewOAuthService(credentialsFile, tokenFile string, logger *zap.Logger) (*OAuthService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	credBytes, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(credBytes, youtube.YoutubeReadonlyScope, analyticsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	svc := &OAuthService{
		config:    config,
		tokenFile: tokenFile,
		logger:    logger,
	}

	token, err := loadToken(tokenFile)
	if err != nil {
		logger.Warn("No stored OAuth token, analytics metrics unavailable until authorized",
			zap.String("file", tokenFile))
		return svc, nil
	}

	if err := svc.buildServices(context.Background(), token); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *OAuthService) buildServices(ctx context.Context, token *oauth2.Token) error {
	client := s.config.Client(ctx, token)

	data, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return fmt.Errorf("failed to create YouTube data service: %w", err)
	}
	analytics, err := youtubeanalytics.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return fmt.Errorf("failed to create YouTube analytics service: %w", err)
	}

	s.token = token
	s.data = data
	s.analytics = analytics
	s.logger.Info("YouTube OAuth services ready")
	return nil
}

// AuthURL returns the consent URL for the one-time CLI authorization flow.
func (s *OAuthService) AuthURL() string {
	return s.config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token, persists it, and
// builds the API clients.
func (s *OAuthService) Exchange(ctx context.Context, code string) error {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	if err := saveToken(s.tokenFile, token); err != nil {
		s.logger.Warn("Failed to persist OAuth token", zap.Error(err))
	}
	return s.buildServices(ctx, token)
}

func (s *OAuthService) IsAuthorized() bool {
	return s != nil && s.token != nil && s.analytics != nil
}

func (s *OAuthService) DataService() *youtube.Service {
	if s == nil {
		return nil
	}
	return s.data
}

func (s *OAuthService) AnalyticsService() *youtubeanalytics.Service {
	if s == nil {
		return nil
	}
	return s.analytics
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	token := &oauth2.Token{}
	if err := json.Unmarshal(data, token); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	return token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
