package downloader

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/cesargomez89/ytmanager/internal/constants"
	"github.com/cesargomez89/ytmanager/internal/domain"
	"github.com/cesargomez89/ytmanager/internal/logger"
	"github.com/cesargomez89/ytmanager/internal/progress"
	"github.com/cesargomez89/ytmanager/internal/providers"
	"github.com/cesargomez89/ytmanager/internal/scheduler"
	"github.com/cesargomez89/ytmanager/internal/storage"
	"github.com/cesargomez89/ytmanager/internal/store"
)

// syncLock allows one synchronize pass at a time in the process. Waiting
// for it can be abandoned through the job's context.
var syncLock = make(chan struct{}, 1)

// SynchronizeJob reconciles subscriptions with their providers: new videos
// are added, files deleted from disk are detected, thumbnails and
// statistics are refreshed and downloads are queued.
type SynchronizeJob struct {
	svc          *Services
	subscription *domain.Subscription
}

// NewSynchronizeJob builds a global pass over every subscription.
func NewSynchronizeJob(svc *Services) *SynchronizeJob {
	return &SynchronizeJob{svc: svc}
}

// NewSubscriptionSynchronizeJob builds a pass over a single subscription.
func NewSubscriptionSynchronizeJob(svc *Services, sub *domain.Subscription) *SynchronizeJob {
	return &SynchronizeJob{svc: svc, subscription: sub}
}

func (j *SynchronizeJob) Description() string {
	if j.subscription != nil {
		return "Running synchronization for subscription " + j.subscription.Name
	}
	return "Running synchronization..."
}

func (j *SynchronizeJob) Run(ctx context.Context, jc *scheduler.JobContext) error {
	select {
	case syncLock <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-syncLock }()

	subs, err := j.subscriptions()
	if err != nil {
		return err
	}

	jc.SetTotalSteps(float64(max(len(subs), 1)))
	coordinator := NewCoordinator(j.svc, jc.Scheduler().RunNow)
	pass := &syncPass{
		svc:         j.svc,
		jc:          jc,
		coordinator: coordinator,
		snapshot:    NewSnapshot(),
		settings:    make(map[int64]*domain.UserPreferences),
	}

	failed := 0
	for _, sub := range subs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		tracker := jc.Subtask(1, constants.SyncPhases, 0)
		if err := pass.synchronize(ctx, sub, tracker); err != nil {
			failed++
			jc.Logger.Error("Subscription synchronization failed", "subscription_id", sub.ID, "error", err)
			jc.Warn(fmt.Sprintf("Failed to synchronize subscription %s: %v", sub.Name, err))
		}
	}
	jc.Advance(0, "")

	jc.Logger.Info("Synchronization finished",
		"subscriptions", len(subs),
		"failed", failed,
		"new_videos", pass.newVideos,
		"downloads_queued", pass.queued)
	jc.Log(fmt.Sprintf("Synchronization finished: %d new videos, %d downloads queued", pass.newVideos, pass.queued))
	return nil
}

func (j *SynchronizeJob) subscriptions() ([]*domain.Subscription, error) {
	if j.subscription == nil {
		return j.svc.Repo.ListSubscriptions()
	}
	// Reload so a pass queued earlier sees the current row.
	sub, err := j.svc.Repo.GetSubscription(j.subscription.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []*domain.Subscription{sub}, nil
}

// syncPass is the state shared by the subscriptions of one pass.
type syncPass struct {
	svc         *Services
	jc          *scheduler.JobContext
	coordinator *Coordinator
	snapshot    *Snapshot
	settings    map[int64]*domain.UserPreferences
	newVideos   int
	queued      int
}

func (p *syncPass) preferences(userID int64) *domain.UserPreferences {
	if prefs, ok := p.settings[userID]; ok {
		return prefs
	}
	prefs := p.svc.preferences(userID)
	p.settings[userID] = prefs
	return prefs
}

func (p *syncPass) synchronize(ctx context.Context, sub *domain.Subscription, tracker *progress.Tracker) error {
	log := p.jc.Logger.WithSubscription(sub.ID, sub.Name)
	settings := ResolveSettings(sub, p.preferences(sub.UserID), p.svc.Config.Downloads)

	provider, err := p.svc.Providers.ForSubscription(sub)
	if err != nil {
		return err
	}

	tracker.Advance(0, "Synchronizing subscription "+sub.Name)

	if _, err := p.svc.Repo.ClearNewFlags(sub.ID); err != nil {
		return fmt.Errorf("failed to clear new flags: %w", err)
	}

	added, err := p.reconcileNew(ctx, provider, sub, log)
	p.newVideos += len(added)
	if err != nil {
		return err
	}
	tracker.Advance(1, "")

	videos, err := p.svc.Repo.ListSubscriptionVideos(sub.ID)
	if err != nil {
		return fmt.Errorf("failed to list videos: %w", err)
	}

	p.reconcileDeleted(videos, settings, log)
	tracker.Advance(1, "")

	p.refreshThumbnails(ctx, sub, videos, log)
	tracker.Advance(1, "")

	p.refreshStats(ctx, provider, videos, added, log)
	tracker.Advance(1, "")

	queued, err := p.coordinator.ProcessSubscription(ctx, sub, p.snapshot)
	p.queued += queued
	if err != nil {
		return err
	}
	tracker.Advance(1, "")

	if err := p.svc.Repo.MarkSubscriptionSynchronized(sub.ID, time.Now()); err != nil {
		log.Warn("Failed to record synchronization time", "error", err)
	}
	return nil
}

// reconcileNew stores remote videos that are not known locally yet. Remote
// indices are kept unless the subscription rewrites them or they collide
// with an existing index, in which case the video is appended at the end.
func (p *syncPass) reconcileNew(ctx context.Context, provider providers.Provider, sub *domain.Subscription, log *logger.Logger) ([]*domain.Video, error) {
	known, err := p.svc.Repo.ExistingVideoKeys(sub.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing videos: %w", err)
	}

	usedIndices := make(map[int]bool, len(known))
	maxIndex := -1
	for _, idx := range known {
		usedIndices[idx] = true
		maxIndex = max(maxIndex, idx)
	}

	var added []*domain.Video
	for video, err := range provider.FetchVideos(ctx, sub) {
		if err != nil {
			return added, fmt.Errorf("failed to fetch videos: %w", err)
		}
		if _, ok := known[video.ProviderNativeID]; ok {
			continue
		}

		if sub.RewritePlaylistIndices || usedIndices[video.PlaylistIndex] {
			video.PlaylistIndex = maxIndex + 1
		}
		usedIndices[video.PlaylistIndex] = true
		maxIndex = max(maxIndex, video.PlaylistIndex)
		known[video.ProviderNativeID] = video.PlaylistIndex

		video.SubscriptionID = sub.ID
		video.IsNew = true
		video.DownloadedPath = nil
		if _, err := p.svc.Repo.CreateVideo(video); err != nil {
			log.Error("Failed to store new video", "video", video.ProviderNativeID, "error", err)
			p.jc.Warn(fmt.Sprintf("Could not add video %s: %v", video.Name, err), scheduler.SuppressNotification())
			continue
		}
		log.Info("New video", "video_id", video.ID, "native_id", video.ProviderNativeID, "name", video.Name)
		added = append(added, video)
	}
	return added, nil
}

// reconcileDeleted forgets downloads whose media file is gone from disk and
// removes what is left of them.
func (p *syncPass) reconcileDeleted(videos []*domain.Video, settings EffectiveSettings, log *logger.Logger) {
	for _, video := range videos {
		if !video.IsDownloaded() {
			continue
		}
		prefix := *video.DownloadedPath

		files, err := storage.FindFiles(prefix)
		if err != nil {
			log.Warn("Could not access download path", "path", prefix, "error", err)
			p.jc.Warn(fmt.Sprintf("Could not access path %s: %v", prefix, err), scheduler.SuppressNotification())
			continue
		}

		found := false
		for _, f := range files {
			if storage.IsMediaFile(f) {
				found = true
				break
			}
		}
		if found {
			continue
		}

		log.Info("Video was deleted", "video_id", video.ID, "native_id", video.ProviderNativeID, "name", video.Name)
		for _, f := range files {
			if err := storage.RemoveFile(f); err != nil && !storage.IsNotExist(err) {
				log.Error("Could not delete redundant file", "path", f, "error", err)
				p.jc.Warn(fmt.Sprintf("Could not delete redundant file %s: %v", f, err), scheduler.SuppressNotification())
			}
		}

		if err := p.svc.Repo.SetDownloadedPath(video.ID, nil); err != nil {
			log.Error("Failed to clear download path", "video_id", video.ID, "error", err)
			continue
		}
		video.DownloadedPath = nil

		if settings.MarkDeletedAsWatched && !video.Watched {
			if err := p.svc.Repo.SetWatched(video.ID, true); err != nil {
				log.Error("Failed to mark video watched", "video_id", video.ID, "error", err)
				continue
			}
			video.Watched = true
		}
		p.jc.Log(fmt.Sprintf("Video %s was removed from disk", video.Name), scheduler.SuppressNotification())
	}
}

// refreshThumbnails re-hosts remote thumbnails. Failures keep the remote URL.
func (p *syncPass) refreshThumbnails(ctx context.Context, sub *domain.Subscription, videos []*domain.Video, log *logger.Logger) {
	if p.svc.Thumbnails == nil {
		return
	}

	if p.svc.Thumbnails.NeedsFetch(sub.ThumbnailURL) {
		local, err := p.svc.Thumbnails.Fetch(ctx, constants.ThumbKindSubscription, sub.ID, sub.ThumbnailURL)
		if err != nil {
			log.Warn("Thumbnail fetch failed", "url", sub.ThumbnailURL, "error", err)
		} else if err := p.svc.Repo.SetSubscriptionThumbnail(sub.ID, local); err != nil {
			log.Warn("Failed to store thumbnail", "error", err)
		} else {
			sub.ThumbnailURL = local
		}
	}

	for _, video := range videos {
		if ctx.Err() != nil {
			return
		}
		if !p.svc.Thumbnails.NeedsFetch(video.ThumbnailURL) {
			continue
		}
		local, err := p.svc.Thumbnails.Fetch(ctx, constants.ThumbKindVideo, video.ID, video.ThumbnailURL)
		if err != nil {
			log.Warn("Thumbnail fetch failed", "video_id", video.ID, "url", video.ThumbnailURL, "error", err)
			continue
		}
		if err := p.svc.Repo.SetVideoThumbnail(video.ID, local); err != nil {
			log.Warn("Failed to store thumbnail", "video_id", video.ID, "error", err)
			continue
		}
		video.ThumbnailURL = local
	}
}

// refreshStats asks the provider for statistics in batches. Videos added in
// this pass also get their full metadata.
func (p *syncPass) refreshStats(ctx context.Context, provider providers.Provider, videos, added []*domain.Video, log *logger.Logger) {
	isNew := make(map[int64]bool, len(added))
	for _, v := range added {
		isNew[v.ID] = true
	}

	for batch := range slices.Chunk(videos, constants.ProviderStatsBatchSize) {
		var fresh []*domain.Video
		for _, v := range batch {
			if isNew[v.ID] {
				fresh = append(fresh, v)
			}
		}
		if len(fresh) > 0 {
			if err := provider.UpdateVideos(ctx, fresh, providers.UpdateOptions{Metadata: true}); err != nil {
				log.Warn("Metadata refresh failed", "error", err)
			}
		}
		if err := provider.UpdateVideos(ctx, batch, providers.UpdateOptions{Stats: true}); err != nil {
			log.Warn("Statistics refresh failed", "videos", len(batch), "error", err)
			continue
		}
		if err := p.svc.Repo.UpdateVideoStats(batch); err != nil {
			log.Warn("Failed to store statistics", "error", err)
		}
	}
}
