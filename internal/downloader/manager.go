package downloader

import (
	"context"
	"errors"
	"fmt"

	"github.com/cesargomez89/ytmanager/internal/constants"
	"github.com/cesargomez89/ytmanager/internal/domain"
	"github.com/cesargomez89/ytmanager/internal/logger"
	"github.com/cesargomez89/ytmanager/internal/scheduler"
)

const globalSyncKey = "sync:all"

// Manager is the entry point used by the API and the CLI to schedule work.
type Manager struct {
	svc    *Services
	sched  *scheduler.Scheduler
	logger *logger.Logger
}

func NewManager(svc *Services, sched *scheduler.Scheduler) *Manager {
	return &Manager{
		svc:    svc,
		sched:  sched,
		logger: svc.Logger.WithComponent("manager"),
	}
}

func (m *Manager) Services() *Services {
	return m.svc
}

// GlobalSyncSpec describes the global synchronize pass. It shares one key
// between manual and scheduled runs, so at most one is queued or running.
func GlobalSyncSpec(svc *Services) scheduler.JobSpec {
	return scheduler.JobSpec{
		Name: constants.JobNameGlobalSync,
		Key:  globalSyncKey,
		Factory: func() (scheduler.Job, error) {
			return NewSynchronizeJob(svc), nil
		},
	}
}

// SubscriptionSyncSpec describes a pass over a single subscription.
func SubscriptionSyncSpec(svc *Services, sub *domain.Subscription) scheduler.JobSpec {
	userID := sub.UserID
	return scheduler.JobSpec{
		Name:   constants.JobNameSubscription,
		Key:    fmt.Sprintf("sync:%d", sub.ID),
		UserID: &userID,
		Factory: func() (scheduler.Job, error) {
			return NewSubscriptionSynchronizeJob(svc, sub), nil
		},
	}
}

// ScheduleGlobalSync sets the cron schedule of the global synchronize
// pass. Calling it again replaces the schedule.
func (m *Manager) ScheduleGlobalSync(expr string) error {
	trigger, err := scheduler.Cron(expr)
	if err != nil {
		return err
	}
	return m.sched.ScheduleRecurring(GlobalSyncSpec(m.svc), trigger)
}

// SchedulePruneHistory sets the cron schedule of history pruning.
func (m *Manager) SchedulePruneHistory(expr string) error {
	trigger, err := scheduler.Cron(expr)
	if err != nil {
		return err
	}
	return m.sched.ScheduleRecurring(scheduler.JobSpec{
		Name: constants.JobNamePruneHistory,
		Key:  "prune-history",
		Factory: func() (scheduler.Job, error) {
			return NewPruneHistoryJob(m.svc), nil
		},
	}, trigger)
}

// SyncNow queues a global pass. When one is already queued or running its
// handle is returned instead.
func (m *Manager) SyncNow() (*scheduler.Handle, error) {
	return ignoreDuplicate(m.sched.RunNow(GlobalSyncSpec(m.svc)))
}

func (m *Manager) SyncSubscription(subscriptionID int64) (*scheduler.Handle, error) {
	sub, err := m.svc.Repo.GetSubscription(subscriptionID)
	if err != nil {
		return nil, err
	}
	return ignoreDuplicate(m.sched.RunNow(SubscriptionSyncSpec(m.svc, sub)))
}

// AddSubscription stores the subscription behind url and queues its first
// synchronization.
func (m *Manager) AddSubscription(ctx context.Context, userID int64, url string, folderID *int64) (*domain.Subscription, error) {
	sub, err := addSubscription(ctx, m.svc, userID, url, folderID)
	if err != nil {
		return sub, err
	}
	if _, err := m.SyncSubscription(sub.ID); err != nil {
		m.logger.Warn("Failed to queue synchronization", "subscription_id", sub.ID, "error", err)
	}
	return sub, nil
}

func (m *Manager) ImportSubscriptions(userID int64, urls []string, folderID *int64) (*scheduler.Handle, error) {
	if len(urls) == 0 {
		return nil, errors.New("no URLs to import")
	}
	return m.sched.RunNow(scheduler.JobSpec{
		Name:   constants.JobNameImport,
		UserID: &userID,
		Factory: func() (scheduler.Job, error) {
			return NewSubscriptionImportJob(m.svc, userID, urls, folderID), nil
		},
	})
}

// DeleteSubscription removes a subscription, its videos and its thumbnail.
// Downloaded files are kept.
func (m *Manager) DeleteSubscription(subscriptionID int64) error {
	if _, err := m.svc.Repo.GetSubscription(subscriptionID); err != nil {
		return err
	}
	if err := m.svc.Repo.DeleteSubscription(subscriptionID); err != nil {
		return err
	}
	if m.svc.Thumbnails != nil {
		if err := m.svc.Thumbnails.Remove(constants.ThumbKindSubscription, subscriptionID); err != nil {
			m.logger.Warn("Failed to remove thumbnail", "subscription_id", subscriptionID, "error", err)
		}
	}
	return nil
}

func (m *Manager) DownloadVideo(videoID int64) (*scheduler.Handle, error) {
	video, err := m.svc.Repo.GetVideo(videoID)
	if err != nil {
		return nil, err
	}
	sub, err := m.svc.Repo.GetSubscription(video.SubscriptionID)
	if err != nil {
		return nil, err
	}
	return ignoreDuplicate(m.sched.RunNow(DownloadSpec(m.svc, videoID, sub.UserID)))
}

func (m *Manager) DeleteVideoFiles(videoID int64) (*scheduler.Handle, error) {
	video, err := m.svc.Repo.GetVideo(videoID)
	if err != nil {
		return nil, err
	}
	sub, err := m.svc.Repo.GetSubscription(video.SubscriptionID)
	if err != nil {
		return nil, err
	}
	return ignoreDuplicate(m.sched.RunNow(DeleteVideoSpec(m.svc, videoID, &sub.UserID)))
}

// MarkWatched sets the watched flag. Marking a downloaded video watched
// deletes its files when the subscription's auto-delete setting is on; the
// returned handle is that deletion, or nil.
func (m *Manager) MarkWatched(videoID int64, watched bool) (*scheduler.Handle, error) {
	video, err := m.svc.Repo.GetVideo(videoID)
	if err != nil {
		return nil, err
	}
	if err := m.svc.Repo.SetWatched(videoID, watched); err != nil {
		return nil, err
	}
	if !watched || !video.IsDownloaded() {
		return nil, nil
	}

	sub, err := m.svc.Repo.GetSubscription(video.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if !m.svc.settingsFor(sub).AutoDeleteWatched {
		return nil, nil
	}
	return ignoreDuplicate(m.sched.RunNow(DeleteVideoSpec(m.svc, videoID, &sub.UserID)))
}

func (m *Manager) UpdateDownloader() (*scheduler.Handle, error) {
	return ignoreDuplicate(m.sched.RunNow(scheduler.JobSpec{
		Name: constants.JobNameUpdater,
		Key:  constants.JobNameUpdater,
		Factory: func() (scheduler.Job, error) {
			return NewDownloaderUpdateJob(m.svc), nil
		},
	}))
}

func ignoreDuplicate(h *scheduler.Handle, err error) (*scheduler.Handle, error) {
	if errors.Is(err, scheduler.ErrDuplicateJob) {
		return h, nil
	}
	return h, err
}
