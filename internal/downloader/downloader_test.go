package downloader

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cesargomez89/ytmanager/internal/config"
	"github.com/cesargomez89/ytmanager/internal/constants"
	"github.com/cesargomez89/ytmanager/internal/domain"
	"github.com/cesargomez89/ytmanager/internal/logger"
	"github.com/cesargomez89/ytmanager/internal/providers"
	"github.com/cesargomez89/ytmanager/internal/scheduler"
	"github.com/cesargomez89/ytmanager/internal/store"
	"github.com/cesargomez89/ytmanager/internal/ytdlp"
)

// fakeDownloader writes "<prefix>.<ext>" instead of running yt-dlp.
type fakeDownloader struct {
	ext   string
	err   error
	calls []ytdlp.DownloadOptions
	mu    sync.Mutex
}

func (f *fakeDownloader) Download(ctx context.Context, opts ytdlp.DownloadOptions) error {
	f.mu.Lock()
	f.calls = append(f.calls, opts)
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if opts.Progress != nil {
		opts.Progress(0.5)
		opts.Progress(1)
	}
	ext := f.ext
	if ext == "" {
		ext = ".mp4"
	}
	data := []byte("media")
	if ext == ".mp3" {
		// an empty mp3 has no ID3 header for the tagger to reject
		data = nil
	}
	return os.WriteFile(opts.OutputPrefix+ext, data, 0o644)
}

func (f *fakeDownloader) Update(ctx context.Context) (string, error) {
	return "Updated yt-dlp to 2026.01.01", nil
}

func (f *fakeDownloader) Calls() []ytdlp.DownloadOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ytdlp.DownloadOptions(nil), f.calls...)
}

type testEnv struct {
	db    *store.DB
	svc   *Services
	sched *scheduler.Scheduler
	mock  *providers.MockProvider
	dl    *fakeDownloader
	mgr   *Manager
}

func newTestEnv(t *testing.T, defaults config.DownloadDefaults) *testEnv {
	t.Helper()
	db, err := store.NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}

	settings := store.NewSettingsRepo(db)
	registry := providers.NewRegistry(settings, logger.Discard())
	mock := providers.NewMockProvider()
	if err := registry.Register(mock); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if defaults.Order == "" {
		defaults.Order = string(domain.OrderPlaylist)
	}
	dl := &fakeDownloader{}
	svc := &Services{
		Repo:       db,
		Settings:   settings,
		Providers:  registry,
		Downloader: dl,
		Config: &config.Config{
			DownloadsDir: t.TempDir(),
			PathTemplate: constants.DefaultPathTemplate,
			Downloads:    defaults,
		},
		Logger: logger.Discard(),
	}

	sched := scheduler.New(scheduler.Options{Store: db, Logger: logger.Discard(), Concurrency: 4})
	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sched.Shutdown(ctx)
		db.Close()
	})

	return &testEnv{db: db, svc: svc, sched: sched, mock: mock, dl: dl, mgr: NewManager(svc, sched)}
}

func (e *testEnv) addSubscription(t *testing.T, userID int64, nativeID string, videos ...domain.Video) *domain.Subscription {
	t.Helper()
	e.mock.SetPlaylist(nativeID, &providers.MockPlaylist{
		Subscription: domain.Subscription{Name: "Playlist " + nativeID},
		Videos:       videos,
	})
	sub := &domain.Subscription{
		Name:             "Playlist " + nativeID,
		ProviderID:       providers.MockProviderID,
		ProviderNativeID: nativeID,
		UserID:           userID,
	}
	if _, err := e.db.CreateSubscription(sub); err != nil {
		t.Fatalf("CreateSubscription failed: %v", err)
	}
	return sub
}

func (e *testEnv) addVideo(t *testing.T, sub *domain.Subscription, v domain.Video) *domain.Video {
	t.Helper()
	v.SubscriptionID = sub.ID
	if _, err := e.db.CreateVideo(&v); err != nil {
		t.Fatalf("CreateVideo failed: %v", err)
	}
	return &v
}

func wait(t *testing.T, h *scheduler.Handle) domain.JobStatus {
	t.Helper()
	if h == nil {
		t.Fatalf("nil handle")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	status, err := h.Wait(ctx)
	if ctx.Err() != nil {
		t.Fatalf("job %s did not finish", h.Name())
	}
	if status == domain.JobStatusFailed {
		t.Logf("job %s failed: %v", h.Name(), err)
	}
	return status
}

// runSync runs a synchronize pass and waits for it.
func (e *testEnv) runSync(t *testing.T, sub *domain.Subscription) {
	t.Helper()
	var spec scheduler.JobSpec
	if sub == nil {
		spec = GlobalSyncSpec(e.svc)
	} else {
		spec = SubscriptionSyncSpec(e.svc, sub)
	}
	h, err := e.sched.RunNow(spec)
	if err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}
	if status := wait(t, h); status != domain.JobStatusFinished {
		t.Fatalf("synchronize ended with %s", status)
	}
}

func (e *testEnv) videos(t *testing.T, sub *domain.Subscription) map[string]*domain.Video {
	t.Helper()
	list, err := e.db.ListSubscriptionVideos(sub.ID)
	if err != nil {
		t.Fatalf("ListSubscriptionVideos failed: %v", err)
	}
	out := make(map[string]*domain.Video, len(list))
	for _, v := range list {
		out[v.ProviderNativeID] = v
	}
	return out
}

func (e *testEnv) messages(t *testing.T, execID string) []*domain.JobMessage {
	t.Helper()
	msgs, err := e.db.ListMessages(execID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	return msgs
}

func ptr[T any](v T) *T {
	return &v
}
