package downloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/cesargomez89/ytmanager/internal/constants"
	"github.com/cesargomez89/ytmanager/internal/domain"
	"github.com/cesargomez89/ytmanager/internal/providers"
	"github.com/cesargomez89/ytmanager/internal/scheduler"
	"github.com/cesargomez89/ytmanager/internal/storage"
	"github.com/cesargomez89/ytmanager/internal/tagging"
	"github.com/cesargomez89/ytmanager/internal/ytdlp"
)

var ErrNoMediaFile = errors.New("download produced no media file")

// DownloadJob downloads one video with the external downloader and records
// its path prefix.
type DownloadJob struct {
	svc      *Services
	video    *domain.Video
	sub      *domain.Subscription
	provider providers.Provider
}

func NewDownloadJob(svc *Services, videoID int64) (*DownloadJob, error) {
	video, sub, provider, err := svc.loadVideo(videoID)
	if err != nil {
		return nil, err
	}
	return &DownloadJob{svc: svc, video: video, sub: sub, provider: provider}, nil
}

func (j *DownloadJob) Description() string {
	return "Downloading video " + j.video.Name
}

func (j *DownloadJob) Run(ctx context.Context, jc *scheduler.JobContext) error {
	video, err := j.svc.Repo.GetVideo(j.video.ID)
	if err != nil {
		return err
	}
	if video.IsDownloaded() {
		jc.Log("Video is already downloaded", scheduler.SuppressNotification())
		return nil
	}

	prefs := j.svc.preferences(j.sub.UserID)
	data := storage.BuildPathTemplateData(j.sub, video)
	prefix, err := storage.BuildVideoPrefix(j.svc.downloadsDir(prefs), j.svc.Config.PathTemplate, data)
	if err != nil {
		return fmt.Errorf("failed to build download path: %w", err)
	}
	if err := storage.EnsureDir(filepath.Dir(prefix)); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	jc.SetTotalSteps(constants.DownloadProgressSteps)
	reported := 0
	opts := ytdlp.DownloadOptions{
		URL:          j.provider.VideoURL(video),
		OutputPrefix: prefix,
		Format:       j.svc.Config.DownloadFormat,
		AudioOnly:    j.svc.Config.AudioOnly,
		AudioFormat:  j.svc.Config.AudioFormat,
		Progress: func(fraction float64) {
			step := int(fraction * constants.DownloadProgressSteps)
			if step > reported {
				jc.Advance(float64(step-reported), "")
				reported = step
			}
		},
	}

	jc.Logger.Info("Starting download", "video_id", video.ID, "url", opts.URL, "prefix", prefix)
	if err := j.svc.Downloader.Download(ctx, opts); err != nil {
		return err
	}

	media, err := findMedia(prefix)
	if err != nil {
		return err
	}

	if storage.IsAudioFile(media) && tagging.IsSupported(media) {
		j.tag(ctx, jc, video, media)
	}

	if err := j.svc.Repo.SetDownloadedPath(video.ID, &prefix); err != nil {
		return fmt.Errorf("failed to record download: %w", err)
	}

	size := "unknown size"
	if info, err := os.Stat(media); err == nil {
		size = humanize.Bytes(uint64(info.Size()))
	}
	jc.Logger.Info("Download finished", "video_id", video.ID, "path", media, "size", size)
	jc.Log(fmt.Sprintf("Downloaded %s (%s)", video.Name, size))
	return nil
}

func (j *DownloadJob) tag(ctx context.Context, jc *scheduler.JobContext, video *domain.Video, media string) {
	var cover []byte
	if j.svc.Thumbnails != nil && video.ThumbnailURL != "" {
		data, err := j.svc.Thumbnails.ImageData(ctx, video.ThumbnailURL)
		if err != nil {
			jc.Logger.Debug("No cover art for tags", "error", err)
		} else {
			cover = data
		}
	}

	md := tagging.MetadataFor(j.sub, video, j.provider.VideoURL(video))
	if err := tagging.TagFile(media, md, cover); err != nil {
		jc.Logger.Warn("Tagging failed", "path", media, "error", err)
		jc.Warn(fmt.Sprintf("Could not write tags to %s: %v", filepath.Base(media), err), scheduler.SuppressNotification())
	}
}

func findMedia(prefix string) (string, error) {
	files, err := storage.FindFiles(prefix)
	if err != nil {
		return "", err
	}
	for _, f := range files {
		if storage.IsMediaFile(f) {
			return f, nil
		}
	}
	return "", ErrNoMediaFile
}

// DeleteVideoJob removes every file of a downloaded video. Files that
// cannot be removed are reported and skipped.
type DeleteVideoJob struct {
	svc   *Services
	video *domain.Video
}

func NewDeleteVideoJob(svc *Services, videoID int64) (*DeleteVideoJob, error) {
	video, err := svc.Repo.GetVideo(videoID)
	if err != nil {
		return nil, fmt.Errorf("video %d: %w", videoID, err)
	}
	return &DeleteVideoJob{svc: svc, video: video}, nil
}

func (j *DeleteVideoJob) Description() string {
	return "Deleting video " + j.video.Name
}

func (j *DeleteVideoJob) Run(ctx context.Context, jc *scheduler.JobContext) error {
	video, err := j.svc.Repo.GetVideo(j.video.ID)
	if err != nil {
		return err
	}
	if !video.IsDownloaded() {
		jc.Log("Video has no downloaded files", scheduler.SuppressNotification())
		return nil
	}
	prefix := *video.DownloadedPath

	files, err := storage.FindFiles(prefix)
	if err != nil {
		return fmt.Errorf("could not access path %s: %w", prefix, err)
	}

	removed := 0
	for _, f := range files {
		if err := storage.RemoveFile(f); err != nil && !storage.IsNotExist(err) {
			jc.Logger.Error("Could not delete file", "path", f, "error", err)
			jc.Warn(fmt.Sprintf("Could not delete file %s: %v", f, err), scheduler.SuppressNotification())
			continue
		}
		removed++
	}
	if err := storage.DeleteFolderIfEmpty(filepath.Dir(prefix)); err != nil {
		jc.Logger.Debug("Folder not removed", "path", filepath.Dir(prefix), "error", err)
	}

	if err := j.svc.Repo.SetDownloadedPath(video.ID, nil); err != nil {
		return fmt.Errorf("failed to clear download path: %w", err)
	}
	jc.Log(fmt.Sprintf("Deleted %d files of %s", removed, video.Name))
	return nil
}

// DeleteVideoSpec describes a DeleteVideoJob keyed by video.
func DeleteVideoSpec(svc *Services, videoID int64, userID *int64) scheduler.JobSpec {
	return scheduler.JobSpec{
		Name:   constants.JobNameDeleteVideo,
		Key:    fmt.Sprintf("delete:%d", videoID),
		UserID: userID,
		Factory: func() (scheduler.Job, error) {
			return NewDeleteVideoJob(svc, videoID)
		},
	}
}
