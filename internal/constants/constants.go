// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort             = "8080"
	DefaultDBPath           = "ytmanager.db"
	DefaultConcurrency      = 2
	DefaultSyncSchedule     = "5 * * * *"
	DefaultPruneSchedule    = "0 3 * * *"
	DefaultHTTPTimeout      = 30 * time.Second
	ImageHTTPTimeout        = 30 * time.Second
	DefaultRetryCount       = 3
	DefaultRetryBase        = 1 * time.Second
	DefaultRequestsPerSec   = 5.0
	DefaultCacheTTL         = 12 * time.Hour
	DefaultNotifyRetention  = 15 * time.Minute
	DefaultHistoryRetention = 30 * 24 * time.Hour
	DefaultShutdownTimeout  = 10 * time.Second
	DefaultYtDlpPath        = "yt-dlp"
	DefaultDownloadFormat   = "bestvideo+bestaudio/best"
	DefaultAudioFormat      = "mp3"
	DefaultPathTemplate     = "{{.Subscription}}/{{.Index}} - {{.Title}}"
	DefaultThumbnailsURL    = "/media/thumbs"
)

// Download defaults applied when neither the subscription nor the user
// preferences set a value. A negative limit means unlimited.
const (
	DefaultAutoDownload         = true
	DefaultDownloadLimit        = 5
	DefaultGlobalLimit          = -1
	DefaultDownloadOrder        = "playlist"
	DefaultMarkDeletedAsWatched = true
	DefaultAutoDeleteWatched    = true
)

// Synchronization
const (
	// ProviderStatsBatchSize is the largest number of videos sent in one
	// statistics request.
	ProviderStatsBatchSize = 50
	// SyncPhases is the number of progress steps of one subscription within
	// a synchronize pass.
	SyncPhases = 5
	// DownloadProgressSteps is the resolution of download progress reports.
	DownloadProgressSteps = 20
)

// Recurring job names
const (
	JobNameGlobalSync   = "synchronize"
	JobNamePruneHistory = "prune-history"
	JobNameSubscription = "synchronize-subscription"
	JobNameDownload     = "download"
	JobNameDeleteVideo  = "delete-video"
	JobNameImport       = "import-subscriptions"
	JobNameUpdater      = "update-downloader"
)

// Thumbnail object kinds
const (
	ThumbKindVideo        = "video"
	ThumbKindSubscription = "sub"
)

// MIME Types
const (
	MimeTypeFLAC = "audio/flac"
	MimeTypeMP3  = "audio/mpeg"
	MimeTypeJPEG = "image/jpeg"
)

// Database
const (
	ExecutionsTable    = "job_executions"
	MessagesTable      = "job_messages"
	SubscriptionsTable = "subscriptions"
	VideosTable        = "videos"
	FoldersTable       = "subscription_folders"
	CacheTable         = "cache"
)

// File Extensions
const (
	ExtFLAC = ".flac"
	ExtMP3  = ".mp3"
	ExtM4A  = ".m4a"
	ExtJPG  = ".jpg"
	ExtPart = ".part"
)

// File Permissions
const (
	DirPermissions  = 0755
	FilePermissions = 0644
)

// InvalidPathChars are stripped from path components.
const InvalidPathChars = "<>:\"/\\|?*"
