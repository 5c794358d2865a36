package downloader

import (
	"context"
	"fmt"
	"time"

	"github.com/cesargomez89/ytmanager/internal/scheduler"
)

// PruneHistoryJob deletes finished executions older than the configured
// retention and purges expired cache entries.
type PruneHistoryJob struct {
	svc *Services
}

func NewPruneHistoryJob(svc *Services) *PruneHistoryJob {
	return &PruneHistoryJob{svc: svc}
}

func (j *PruneHistoryJob) Description() string {
	return "Pruning job history"
}

func (j *PruneHistoryJob) Run(ctx context.Context, jc *scheduler.JobContext) error {
	now := time.Now()

	pruned := int64(0)
	if retention := j.svc.Config.HistoryRetention; retention > 0 {
		n, err := j.svc.Repo.PruneExecutions(now.Add(-retention))
		if err != nil {
			return fmt.Errorf("failed to prune executions: %w", err)
		}
		pruned = n
	}

	purged, err := j.svc.Repo.PurgeExpiredCache(now)
	if err != nil {
		return fmt.Errorf("failed to purge cache: %w", err)
	}

	jc.Logger.Info("History pruned", "executions", pruned, "cache_entries", purged)
	jc.Log(fmt.Sprintf("Removed %d old executions and %d expired cache entries", pruned, purged), scheduler.SuppressNotification())
	return nil
}

// DownloaderUpdateJob runs the external downloader's self-update.
type DownloaderUpdateJob struct {
	svc *Services
}

func NewDownloaderUpdateJob(svc *Services) *DownloaderUpdateJob {
	return &DownloaderUpdateJob{svc: svc}
}

func (j *DownloaderUpdateJob) Description() string {
	return "Updating the external downloader"
}

func (j *DownloaderUpdateJob) Run(ctx context.Context, jc *scheduler.JobContext) error {
	out, err := j.svc.Downloader.Update(ctx)
	if err != nil {
		return err
	}
	jc.Logger.Info("Downloader updated", "output", out)
	jc.Log(out)
	return nil
}
