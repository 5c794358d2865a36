package domain

import (
	"time"
)

type JobStatus string

const (
	JobStatusRunning     JobStatus = "running"
	JobStatusFinished    JobStatus = "finished"
	JobStatusFailed      JobStatus = "failed"
	JobStatusInterrupted JobStatus = "interrupted"
)

// IsTerminal reports whether the status can no longer change.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusFinished || s == JobStatusFailed || s == JobStatusInterrupted
}

type MessageLevel string

const (
	MessageLevelNormal  MessageLevel = "normal"
	MessageLevelWarning MessageLevel = "warning"
	MessageLevelError   MessageLevel = "error"
)

// JobExecution is the persisted record of a single job run.
// UserID is nil for system-wide jobs.
type JobExecution struct {
	StartTime   time.Time  `json:"start_time" db:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty" db:"end_time"`
	UserID      *int64     `json:"user_id,omitempty" db:"user_id"`
	ID          string     `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description" db:"description"`
	Status      JobStatus  `json:"status" db:"status"`
}

// JobMessage is an append-only, user-visible log line of a job execution.
type JobMessage struct {
	Timestamp            time.Time    `json:"timestamp" db:"timestamp"`
	Progress             *float64     `json:"progress,omitempty" db:"progress"`
	JobID                string       `json:"job_id" db:"job_id"`
	Text                 string       `json:"text" db:"text"`
	Level                MessageLevel `json:"level" db:"level"`
	ID                   int64        `json:"id" db:"id"`
	SuppressNotification bool         `json:"suppress_notification" db:"suppress_notification"`
}

// Subscription is a tracked remote playlist or channel.
// Nil override fields fall back to the owner's preferences.
type Subscription struct {
	CreatedAt              time.Time      `json:"created_at" db:"created_at"`
	LastSynchronized       *time.Time     `json:"last_synchronized,omitempty" db:"last_synchronized"`
	ParentFolderID         *int64         `json:"parent_folder_id,omitempty" db:"parent_folder_id"`
	AutoDownload           *bool          `json:"auto_download,omitempty" db:"auto_download"`
	DownloadLimit          *int           `json:"download_limit,omitempty" db:"download_limit"`
	DownloadOrder          *DownloadOrder `json:"download_order,omitempty" db:"download_order"`
	AutoDeleteWatched      *bool          `json:"auto_delete_watched,omitempty" db:"auto_delete_watched"`
	Name                   string         `json:"name" db:"name"`
	ProviderID             string         `json:"provider_id" db:"provider_id"`
	ProviderNativeID       string         `json:"provider_native_id" db:"provider_native_id"`
	Description            string         `json:"description" db:"description"`
	ThumbnailURL           string         `json:"thumbnail_url" db:"thumbnail_url"`
	ChannelName            string         `json:"channel_name" db:"channel_name"`
	ID                     int64          `json:"id" db:"id"`
	UserID                 int64          `json:"user_id" db:"user_id"`
	RewritePlaylistIndices bool           `json:"rewrite_playlist_indices" db:"rewrite_playlist_indices"`
}

// Video is a single item of a subscription. DownloadedPath is a path
// prefix: the media and its side files are stored as "<prefix>.<ext>".
type Video struct {
	PublishDate      time.Time `json:"publish_date" db:"publish_date"`
	DownloadedPath   *string   `json:"downloaded_path,omitempty" db:"downloaded_path"`
	ProviderNativeID string    `json:"provider_native_id" db:"provider_native_id"`
	Name             string    `json:"name" db:"name"`
	Description      string    `json:"description" db:"description"`
	ThumbnailURL     string    `json:"thumbnail_url" db:"thumbnail_url"`
	UploaderName     string    `json:"uploader_name" db:"uploader_name"`
	ID               int64     `json:"id" db:"id"`
	SubscriptionID   int64     `json:"subscription_id" db:"subscription_id"`
	Views            int64     `json:"views" db:"views"`
	Rating           float64   `json:"rating" db:"rating"`
	Duration         int       `json:"duration" db:"duration"`
	PlaylistIndex    int       `json:"playlist_index" db:"playlist_index"`
	Watched          bool      `json:"watched" db:"watched"`
	IsNew            bool      `json:"is_new" db:"is_new"`
}

// IsDownloaded reports whether the video has a recorded download prefix.
func (v *Video) IsDownloaded() bool {
	return v.DownloadedPath != nil && *v.DownloadedPath != ""
}

// SubscriptionFolder is a node of a user's folder tree. A nil ParentID is the root.
type SubscriptionFolder struct {
	ParentID *int64 `json:"parent_id,omitempty" db:"parent_id"`
	Name     string `json:"name" db:"name"`
	ID       int64  `json:"id" db:"id"`
	UserID   int64  `json:"user_id" db:"user_id"`
}

// UserPreferences holds per-user download defaults. Nil fields fall back
// to the global configuration.
type UserPreferences struct {
	AutoDownload              *bool          `json:"auto_download,omitempty"`
	DownloadGlobalLimit       *int           `json:"download_global_limit,omitempty"`
	DownloadSubscriptionLimit *int           `json:"download_subscription_limit,omitempty"`
	DownloadOrder             *DownloadOrder `json:"download_order,omitempty"`
	MarkDeletedAsWatched      *bool          `json:"mark_deleted_as_watched,omitempty"`
	AutoDeleteWatched         *bool          `json:"auto_delete_watched,omitempty"`
	DownloadPath              string         `json:"download_path,omitempty"`
}
