package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cesargomez89/ytmanager/internal/app"
	"github.com/cesargomez89/ytmanager/internal/config"
	"github.com/cesargomez89/ytmanager/internal/downloader"
	httpapp "github.com/cesargomez89/ytmanager/internal/http"
	"github.com/cesargomez89/ytmanager/internal/httpclient"
	"github.com/cesargomez89/ytmanager/internal/logger"
	"github.com/cesargomez89/ytmanager/internal/notify"
	"github.com/cesargomez89/ytmanager/internal/providers"
	"github.com/cesargomez89/ytmanager/internal/scheduler"
	"github.com/cesargomez89/ytmanager/internal/store"
	"github.com/cesargomez89/ytmanager/internal/ytdlp"
)

// application holds every long-lived component of a running instance.
type application struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *store.DB
	settings *store.SettingsRepo
	bus      *notify.Bus
	registry *providers.Registry
	sched    *scheduler.Scheduler
	manager  *downloader.Manager
	thumbs   *app.ThumbnailService
	metrics  *prometheus.Registry
}

func loadConfig(path string) (*config.Config, error) {
	cfg := config.Load()
	if path == "" {
		path = cfg.ConfigFile
	}
	if path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return nil, err
		}
		cfg.ConfigFile = path
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// newApplication wires every component. Constructors scope log to their
// own component, so it is passed to them unscoped.
func newApplication(cfg *config.Config, log *logger.Logger) (*application, error) {
	db, err := store.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	settings := store.NewSettingsRepo(db)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	bus := notify.New(cfg.NotificationRetention)
	sched := scheduler.New(scheduler.Options{
		Store:       db,
		Notifier:    bus,
		Logger:      log,
		Metrics:     scheduler.NewMetrics(reg),
		Concurrency: cfg.Concurrency,
	})

	client := httpclient.NewClient(&http.Client{Timeout: cfg.ProviderTimeout}, cfg.ProviderRequestsPerSec)

	registry := providers.NewRegistry(settings, log)
	youtube := providers.NewCachedProvider(providers.NewYouTubeProvider(client, ""), db, cfg.CacheTTL)
	if err := registry.Register(youtube); err != nil {
		db.Close()
		return nil, err
	}
	if err := registry.Load(); err != nil {
		log.Warn("Failed to load provider settings", "error", err)
	}
	if cfg.YouTubeAPIKey != "" && !youtube.IsConfigured() {
		raw, err := json.Marshal(map[string]string{"api_key": cfg.YouTubeAPIKey})
		if err == nil {
			err = registry.Configure(providers.YouTubeProviderID, raw)
		}
		if err != nil {
			log.Warn("Failed to configure YouTube from the environment", "error", err)
		}
	}

	thumbs := app.NewThumbnailService(client, cfg.ThumbnailsDir, cfg.ThumbnailsURL, log)

	svc := &downloader.Services{
		Repo:       db,
		Settings:   settings,
		Providers:  registry,
		Thumbnails: thumbs,
		Downloader: ytdlp.NewClient(cfg.YtDlpPath, cfg.DownloadFormat, log),
		Config:     cfg,
		Logger:     log,
	}

	return &application{
		cfg:      cfg,
		log:      log,
		db:       db,
		settings: settings,
		bus:      bus,
		registry: registry,
		sched:    sched,
		manager:  downloader.NewManager(svc, sched),
		thumbs:   thumbs,
		metrics:  reg,
	}, nil
}

func (a *application) handler() http.Handler {
	h := &httpapp.Handler{
		Manager:       a.manager,
		JobService:    app.NewJobService(a.db, a.log),
		Folders:       app.NewFolderService(a.db, a.log),
		Notifications: a.bus,
		Providers:     a.registry,
		Scheduler:     a.sched,
		Repo:          a.db,
		SettingsRepo:  a.settings,
		Metrics:       promhttp.HandlerFor(a.metrics, promhttp.HandlerOpts{}),
		ThumbnailsDir: a.thumbs.Dir(),
		ThumbnailsURL: a.cfg.ThumbnailsURL,
		Logger:        a.log.WithComponent("http"),
	}
	return h.Router()
}

// shutdown stops the scheduler, waiting up to timeout for running jobs,
// and closes the database.
func (a *application) shutdown(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := a.sched.Shutdown(ctx); err != nil {
		a.log.Warn("Scheduler did not stop cleanly", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.log.Error("Failed to close database", "error", err)
	}
}
