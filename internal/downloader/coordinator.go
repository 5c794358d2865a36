package downloader

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/cesargomez89/ytmanager/internal/constants"
	"github.com/cesargomez89/ytmanager/internal/domain"
	"github.com/cesargomez89/ytmanager/internal/logger"
	"github.com/cesargomez89/ytmanager/internal/scheduler"
)

// SubmitFunc queues a job for immediate execution.
type SubmitFunc func(spec scheduler.JobSpec) (*scheduler.Handle, error)

// Coordinator decides which videos of a subscription get downloaded and
// queues a DownloadJob for each.
type Coordinator struct {
	svc    *Services
	submit SubmitFunc
	logger *logger.Logger
}

func NewCoordinator(svc *Services, submit SubmitFunc) *Coordinator {
	return &Coordinator{
		svc:    svc,
		submit: submit,
		logger: svc.Logger.WithComponent("coordinator"),
	}
}

// Snapshot holds the per-user downloaded counts used for the global limit
// during one pass. A count is read the first time its user is seen and is
// not updated afterwards.
type Snapshot struct {
	userCounts map[int64]int
}

func NewSnapshot() *Snapshot {
	return &Snapshot{userCounts: make(map[int64]int)}
}

func (c *Coordinator) userCount(snap *Snapshot, userID int64) (int, error) {
	if n, ok := snap.userCounts[userID]; ok {
		return n, nil
	}
	n, err := c.svc.Repo.CountDownloadedForUser(userID)
	if err != nil {
		return 0, err
	}
	snap.userCounts[userID] = n
	return n, nil
}

// ProcessSubscription queues downloads for sub and returns how many were
// queued. Videos already queued or downloading are skipped.
func (c *Coordinator) ProcessSubscription(ctx context.Context, sub *domain.Subscription, snap *Snapshot) (int, error) {
	if snap == nil {
		snap = NewSnapshot()
	}
	settings := c.svc.settingsFor(sub)
	log := c.logger.WithSubscription(sub.ID, sub.Name)

	if !settings.AutoDownload {
		log.Debug("Automatic download disabled")
		return 0, nil
	}

	candidates, err := c.svc.Repo.ListDownloadCandidates(sub.ID, settings.Order)
	if err != nil {
		return 0, fmt.Errorf("failed to list download candidates: %w", err)
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	subCount, err := c.svc.Repo.CountDownloadedForSubscription(sub.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to count downloads: %w", err)
	}
	if n := remaining(settings.SubscriptionLimit, subCount); n >= 0 && n < len(candidates) {
		candidates = candidates[:n]
	}

	userCount, err := c.userCount(snap, sub.UserID)
	if err != nil {
		return 0, fmt.Errorf("failed to count user downloads: %w", err)
	}
	if n := remaining(settings.GlobalLimit, userCount); n >= 0 && n < len(candidates) {
		candidates = candidates[:n]
	}

	queued := 0
	for _, video := range candidates {
		if ctx.Err() != nil {
			return queued, ctx.Err()
		}
		_, err := c.submit(DownloadSpec(c.svc, video.ID, sub.UserID))
		if errors.Is(err, scheduler.ErrDuplicateJob) {
			continue
		}
		if err != nil {
			return queued, fmt.Errorf("failed to queue download of video %d: %w", video.ID, err)
		}
		queued++
	}

	log.Info("Downloads queued", "count", queued, "order", settings.Order)
	return queued, nil
}

// DownloadSpec describes a DownloadJob keyed by video, so a video is never
// queued twice.
func DownloadSpec(svc *Services, videoID, userID int64) scheduler.JobSpec {
	return scheduler.JobSpec{
		Name:   constants.JobNameDownload,
		Key:    "download:" + strconv.FormatInt(videoID, 10),
		UserID: &userID,
		Factory: func() (scheduler.Job, error) {
			return NewDownloadJob(svc, videoID)
		},
	}
}
