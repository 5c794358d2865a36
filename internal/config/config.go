package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/cesargomez89/ytmanager/internal/constants"
	"github.com/cesargomez89/ytmanager/internal/domain"
	"github.com/cesargomez89/ytmanager/internal/storage"
)

// Config holds all application configuration
type Config struct {
	Port          string `toml:"port"`
	DBPath        string `toml:"db_path"`
	DownloadsDir  string `toml:"downloads_dir"`
	ThumbnailsDir string `toml:"thumbnails_dir"`
	ThumbnailsURL string `toml:"thumbnails_url"`
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	ConfigFile    string `toml:"-"`

	// Scheduler
	Concurrency           int           `toml:"concurrency"`
	SyncSchedule          string        `toml:"sync_schedule"`
	PruneSchedule         string        `toml:"prune_schedule"`
	NotificationRetention time.Duration `toml:"notification_retention"`
	HistoryRetention      time.Duration `toml:"history_retention"`

	// External downloader
	YtDlpPath      string `toml:"ytdlp_path"`
	DownloadFormat string `toml:"download_format"`
	AudioOnly      bool   `toml:"audio_only"`
	AudioFormat    string `toml:"audio_format"`
	PathTemplate   string `toml:"path_template"`

	// Providers
	YouTubeAPIKey          string        `toml:"youtube_api_key"`
	ProviderTimeout        time.Duration `toml:"provider_timeout"`
	ProviderRequestsPerSec float64       `toml:"provider_requests_per_sec"`
	CacheTTL               time.Duration `toml:"cache_ttl"`

	Downloads DownloadDefaults `toml:"downloads"`

	loadErrors []string
}

// DownloadDefaults are the global fallbacks of the download settings cascade.
type DownloadDefaults struct {
	Order                string `toml:"order"`
	SubscriptionLimit    int    `toml:"subscription_limit"`
	GlobalLimit          int    `toml:"global_limit"`
	AutoDownload         bool   `toml:"auto_download"`
	MarkDeletedAsWatched bool   `toml:"mark_deleted_as_watched"`
	AutoDeleteWatched    bool   `toml:"auto_delete_watched"`
}

// Load loads configuration from environment variables with defaults.
// Variables found in ENV_FILE, or in .env.local and .env of the working
// directory, are loaded first without overriding the real environment.
func Load() *Config {
	home, _ := os.UserHomeDir()
	defaultDownload := filepath.Join(home, "Videos/ytmanager")

	var envErrors []string
	if err := loadEnvFiles(); err != nil {
		envErrors = append(envErrors, err.Error())
	}

	c := &Config{
		loadErrors: envErrors,

		Port:          getEnv("PORT", constants.DefaultPort),
		DBPath:        getEnv("DB_PATH", constants.DefaultDBPath),
		DownloadsDir:  getEnv("DOWNLOADS_DIR", defaultDownload),
		ThumbnailsDir: getEnv("THUMBNAILS_DIR", filepath.Join(defaultDownload, ".thumbs")),
		ThumbnailsURL: getEnv("THUMBNAILS_URL", constants.DefaultThumbnailsURL),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "text"),
		ConfigFile:    getEnv("YTM_CONFIG_FILE", ""),

		SyncSchedule:  getEnv("SYNC_SCHEDULE", constants.DefaultSyncSchedule),
		PruneSchedule: getEnv("PRUNE_SCHEDULE", constants.DefaultPruneSchedule),

		YtDlpPath:      getEnv("YTDLP_PATH", constants.DefaultYtDlpPath),
		DownloadFormat: getEnv("DOWNLOAD_FORMAT", constants.DefaultDownloadFormat),
		AudioFormat:    getEnv("AUDIO_FORMAT", constants.DefaultAudioFormat),
		PathTemplate:   getEnv("PATH_TEMPLATE", constants.DefaultPathTemplate),

		YouTubeAPIKey: getEnv("YOUTUBE_API_KEY", ""),
	}

	c.AudioOnly = c.getEnvBool("DOWNLOAD_AUDIO_ONLY", false)
	c.Concurrency = c.getEnvInt("CONCURRENCY", constants.DefaultConcurrency)
	c.NotificationRetention = c.getEnvDuration("NOTIFICATION_RETENTION", constants.DefaultNotifyRetention)
	c.HistoryRetention = c.getEnvDuration("HISTORY_RETENTION", constants.DefaultHistoryRetention)
	c.ProviderTimeout = c.getEnvDuration("PROVIDER_TIMEOUT", constants.DefaultHTTPTimeout)
	c.ProviderRequestsPerSec = c.getEnvFloat("PROVIDER_REQUESTS_PER_SEC", constants.DefaultRequestsPerSec)
	c.CacheTTL = c.getEnvDuration("CACHE_TTL", constants.DefaultCacheTTL)

	c.Downloads = DownloadDefaults{
		Order:                getEnv("DOWNLOAD_ORDER", constants.DefaultDownloadOrder),
		SubscriptionLimit:    c.getEnvInt("DOWNLOAD_LIMIT", constants.DefaultDownloadLimit),
		GlobalLimit:          c.getEnvInt("DOWNLOAD_GLOBAL_LIMIT", constants.DefaultGlobalLimit),
		AutoDownload:         c.getEnvBool("DOWNLOAD_AUTO", constants.DefaultAutoDownload),
		MarkDeletedAsWatched: c.getEnvBool("MARK_DELETED_AS_WATCHED", constants.DefaultMarkDeletedAsWatched),
		AutoDeleteWatched:    c.getEnvBool("AUTO_DELETE_WATCHED", constants.DefaultAutoDeleteWatched),
	}

	return c
}

// ApplyFile overlays the keys present in a TOML file on top of c.
func (c *Config) ApplyFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("unknown keys in config file %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	errors := append([]string(nil), c.loadErrors...)

	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	if c.DBPath == "" {
		errors = append(errors, "DB_PATH cannot be empty")
	}

	if c.DownloadsDir == "" {
		errors = append(errors, "DOWNLOADS_DIR cannot be empty")
	}

	if c.ThumbnailsDir == "" {
		errors = append(errors, "THUMBNAILS_DIR cannot be empty")
	}

	if c.Concurrency < 1 {
		errors = append(errors, fmt.Sprintf("CONCURRENCY must be at least 1, got: %d", c.Concurrency))
	}

	// Schedules are rejected here rather than at first fire.
	if _, err := cron.ParseStandard(c.SyncSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("SYNC_SCHEDULE is not a valid cron expression %q: %v", c.SyncSchedule, err))
	}
	if _, err := cron.ParseStandard(c.PruneSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("PRUNE_SCHEDULE is not a valid cron expression %q: %v", c.PruneSchedule, err))
	}

	if c.NotificationRetention <= 0 {
		errors = append(errors, "NOTIFICATION_RETENTION must be positive")
	}

	if c.ProviderRequestsPerSec <= 0 {
		errors = append(errors, "PROVIDER_REQUESTS_PER_SEC must be positive")
	}

	if c.YtDlpPath == "" {
		errors = append(errors, "YTDLP_PATH cannot be empty")
	}

	if err := storage.ValidateTemplate(c.PathTemplate); err != nil {
		errors = append(errors, fmt.Sprintf("PATH_TEMPLATE is not a valid template: %v", err))
	}

	if _, err := domain.ParseDownloadOrder(c.Downloads.Order); err != nil {
		errors = append(errors, fmt.Sprintf("DOWNLOAD_ORDER must be one of: newest, oldest, playlist, playlist_reverse, popularity, rating, got: %s", c.Downloads.Order))
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	validLogFormats := map[string]bool{
		"text":   true,
		"json":   true,
		"pretty": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, pretty, got: %s", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", name, err)
		}
	}
	return nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func (c *Config) getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		c.loadErrors = append(c.loadErrors, fmt.Sprintf("%s must be a valid number, got: %s", key, value))
		return fallback
	}
	return n
}

func (c *Config) getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		c.loadErrors = append(c.loadErrors, fmt.Sprintf("%s must be a valid number, got: %s", key, value))
		return fallback
	}
	return f
}

func (c *Config) getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		c.loadErrors = append(c.loadErrors, fmt.Sprintf("%s must be true or false, got: %s", key, value))
		return fallback
	}
	return b
}

func (c *Config) getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		c.loadErrors = append(c.loadErrors, fmt.Sprintf("%s must be a duration like 15m, got: %s", key, value))
		return fallback
	}
	return d
}
