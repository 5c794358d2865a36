// Package downloader holds the jobs that keep subscriptions in sync with
// their providers and the downloads they trigger.
package downloader

import (
	"context"
	"fmt"

	"github.com/cesargomez89/ytmanager/internal/app"
	"github.com/cesargomez89/ytmanager/internal/config"
	"github.com/cesargomez89/ytmanager/internal/domain"
	"github.com/cesargomez89/ytmanager/internal/logger"
	"github.com/cesargomez89/ytmanager/internal/providers"
	"github.com/cesargomez89/ytmanager/internal/store"
	"github.com/cesargomez89/ytmanager/internal/ytdlp"
)

// VideoDownloader fetches media with an external program.
type VideoDownloader interface {
	Download(ctx context.Context, opts ytdlp.DownloadOptions) error
	Update(ctx context.Context) (string, error)
}

// Services is the set of collaborators shared by every job. It is built
// once at startup.
type Services struct {
	Repo       *store.DB
	Settings   *store.SettingsRepo
	Providers  *providers.Registry
	Thumbnails *app.ThumbnailService
	Downloader VideoDownloader
	Config     *config.Config
	Logger     *logger.Logger
}

func (s *Services) preferences(userID int64) *domain.UserPreferences {
	prefs, err := s.Settings.GetUserPreferences(userID)
	if err != nil {
		s.Logger.Warn("Failed to load user preferences, using defaults", "user_id", userID, "error", err)
		return &domain.UserPreferences{}
	}
	return prefs
}

// settingsFor resolves the effective download settings of sub.
func (s *Services) settingsFor(sub *domain.Subscription) EffectiveSettings {
	return ResolveSettings(sub, s.preferences(sub.UserID), s.Config.Downloads)
}

// downloadsDir is the root under which the user's videos are stored.
func (s *Services) downloadsDir(prefs *domain.UserPreferences) string {
	if prefs != nil && prefs.DownloadPath != "" {
		return prefs.DownloadPath
	}
	return s.Config.DownloadsDir
}

// loadVideo returns a video together with its subscription and provider.
func (s *Services) loadVideo(videoID int64) (*domain.Video, *domain.Subscription, providers.Provider, error) {
	video, err := s.Repo.GetVideo(videoID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("video %d: %w", videoID, err)
	}
	sub, err := s.Repo.GetSubscription(video.SubscriptionID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("subscription %d: %w", video.SubscriptionID, err)
	}
	provider, err := s.Providers.ForSubscription(sub)
	if err != nil {
		return nil, nil, nil, err
	}
	return video, sub, provider, nil
}
