package downloader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/cesargomez89/ytmanager/internal/config"
	"github.com/cesargomez89/ytmanager/internal/constants"
	"github.com/cesargomez89/ytmanager/internal/domain"
	"github.com/cesargomez89/ytmanager/internal/providers"
	"github.com/cesargomez89/ytmanager/internal/store"
)

func TestScheduleGlobalSyncReschedules(t *testing.T) {
	env := newTestEnv(t, noDownloads)

	if err := env.mgr.ScheduleGlobalSync("*/5 * * * *"); err != nil {
		t.Fatalf("ScheduleGlobalSync failed: %v", err)
	}
	if err := env.mgr.ScheduleGlobalSync("0 * * * *"); err != nil {
		t.Fatalf("ScheduleGlobalSync failed: %v", err)
	}

	jobs := env.sched.Recurring()
	if len(jobs) != 1 {
		t.Fatalf("expected one recurring job, got %+v", jobs)
	}
	if jobs[0].Name != constants.JobNameGlobalSync || jobs[0].Schedule != "0 * * * *" {
		t.Errorf("unexpected registration %+v", jobs[0])
	}

	if err := env.mgr.ScheduleGlobalSync("not a cron"); err == nil {
		t.Errorf("expected an error for an invalid expression")
	}
}

func TestSyncNowReturnsQueuedPass(t *testing.T) {
	env := newTestEnv(t, noDownloads)

	// Hold the lock so the first pass stays running.
	syncLock <- struct{}{}
	first, err := env.mgr.SyncNow()
	if err != nil {
		<-syncLock
		t.Fatalf("SyncNow failed: %v", err)
	}
	second, err := env.mgr.SyncNow()
	<-syncLock
	if err != nil {
		t.Fatalf("SyncNow failed: %v", err)
	}
	if first != second {
		t.Errorf("expected the queued pass to be returned")
	}
	if status := wait(t, first); status != domain.JobStatusFinished {
		t.Errorf("synchronize ended with %s", status)
	}
}

func TestAddSubscription(t *testing.T) {
	env := newTestEnv(t, noDownloads)
	env.mock.SetPlaylist("new", &providers.MockPlaylist{
		Subscription: domain.Subscription{Name: "New playlist", ChannelName: "Someone"},
	})

	sub, err := env.mgr.AddSubscription(context.Background(), 3, " mock://new ", nil)
	if err != nil {
		t.Fatalf("AddSubscription failed: %v", err)
	}
	stored, err := env.db.GetSubscription(sub.ID)
	if err != nil {
		t.Fatalf("GetSubscription failed: %v", err)
	}
	if stored.UserID != 3 || stored.ProviderNativeID != "new" || stored.Name != "New playlist" {
		t.Errorf("unexpected subscription %+v", stored)
	}

	if _, err := env.mgr.AddSubscription(context.Background(), 3, "mock://new", nil); !errors.Is(err, ErrAlreadySubscribed) {
		t.Errorf("expected ErrAlreadySubscribed, got %v", err)
	}
	if _, err := env.mgr.AddSubscription(context.Background(), 4, "mock://new", nil); err != nil {
		t.Errorf("another user should be able to subscribe: %v", err)
	}
	if _, err := env.mgr.AddSubscription(context.Background(), 3, "https://example.com", nil); !errors.Is(err, providers.ErrInvalidURL) {
		t.Errorf("expected ErrInvalidURL, got %v", err)
	}
}

func TestImportSubscriptions(t *testing.T) {
	env := newTestEnv(t, noDownloads)
	env.mock.SetPlaylist("one", &providers.MockPlaylist{Subscription: domain.Subscription{Name: "One"}})
	env.mock.SetPlaylist("two", &providers.MockPlaylist{Subscription: domain.Subscription{Name: "Two"}})

	urls := ParseURLList("mock://one\n\n# comment\nmock://missing\n  mock://two  \n")
	if !slices.Equal(urls, []string{"mock://one", "mock://missing", "mock://two"}) {
		t.Fatalf("ParseURLList = %v", urls)
	}

	h, err := env.mgr.ImportSubscriptions(1, urls, nil)
	if err != nil {
		t.Fatalf("ImportSubscriptions failed: %v", err)
	}
	if status := wait(t, h); status != domain.JobStatusFinished {
		t.Fatalf("import ended with %s", status)
	}

	subs, err := env.db.ListUserSubscriptions(1)
	if err != nil {
		t.Fatalf("ListUserSubscriptions failed: %v", err)
	}
	if len(subs) != 2 || subs[0].Name != "One" || subs[1].Name != "Two" {
		t.Errorf("unexpected subscriptions %+v", subs)
	}

	warned := false
	for _, m := range env.messages(t, h.ExecutionID()) {
		if m.Level == domain.MessageLevelWarning && strings.Contains(m.Text, "mock://missing") {
			warned = true
		}
	}
	if !warned {
		t.Errorf("expected a warning for the missing playlist")
	}

	if _, err := env.mgr.ImportSubscriptions(1, nil, nil); err == nil {
		t.Errorf("expected an error for an empty import")
	}
}

func TestMarkWatchedAutoDelete(t *testing.T) {
	tests := []struct {
		name        string
		autoDelete  bool
		watched     bool
		wantDeleted bool
	}{
		{name: "auto delete on", autoDelete: true, watched: true, wantDeleted: true},
		{name: "auto delete off", autoDelete: false, watched: true},
		{name: "marked unwatched", autoDelete: true, watched: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, config.DownloadDefaults{GlobalLimit: -1, SubscriptionLimit: -1, AutoDeleteWatched: tt.autoDelete})
			sub := env.addSubscription(t, 1, "pl")
			prefix := filepath.Join(t.TempDir(), "clip")
			if err := os.WriteFile(prefix+".mp4", []byte("x"), 0o644); err != nil {
				t.Fatalf("WriteFile failed: %v", err)
			}
			video := env.addVideo(t, sub, domain.Video{ProviderNativeID: "clip", Name: "Clip", DownloadedPath: &prefix})

			h, err := env.mgr.MarkWatched(video.ID, tt.watched)
			if err != nil {
				t.Fatalf("MarkWatched failed: %v", err)
			}
			if (h != nil) != tt.wantDeleted {
				t.Fatalf("deletion scheduled = %v, want %v", h != nil, tt.wantDeleted)
			}
			if h != nil {
				wait(t, h)
			}

			stored, _ := env.db.GetVideo(video.ID)
			if stored.Watched != tt.watched {
				t.Errorf("Watched = %v, want %v", stored.Watched, tt.watched)
			}
			_, statErr := os.Stat(prefix + ".mp4")
			if deleted := os.IsNotExist(statErr); deleted != tt.wantDeleted {
				t.Errorf("file deleted = %v, want %v", deleted, tt.wantDeleted)
			}
			if stored.IsDownloaded() == tt.wantDeleted {
				t.Errorf("IsDownloaded = %v", stored.IsDownloaded())
			}
		})
	}
}

func TestDeleteSubscription(t *testing.T) {
	env := newTestEnv(t, noDownloads)
	sub := env.addSubscription(t, 1, "pl")
	video := env.addVideo(t, sub, domain.Video{ProviderNativeID: "a"})

	if err := env.mgr.DeleteSubscription(sub.ID); err != nil {
		t.Fatalf("DeleteSubscription failed: %v", err)
	}
	if _, err := env.db.GetSubscription(sub.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("subscription still present: %v", err)
	}
	if _, err := env.db.GetVideo(video.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("videos should be removed with their subscription: %v", err)
	}
	if err := env.mgr.DeleteSubscription(sub.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMaintenanceJobs(t *testing.T) {
	env := newTestEnv(t, noDownloads)

	h, err := env.mgr.UpdateDownloader()
	if err != nil {
		t.Fatalf("UpdateDownloader failed: %v", err)
	}
	if status := wait(t, h); status != domain.JobStatusFinished {
		t.Fatalf("update ended with %s", status)
	}
	msgs := env.messages(t, h.ExecutionID())
	if len(msgs) == 0 || !strings.Contains(msgs[len(msgs)-1].Text, "Updated yt-dlp") {
		t.Errorf("expected the updater output in the history, got %+v", msgs)
	}

	if err := env.mgr.SchedulePruneHistory("@daily"); err != nil {
		t.Fatalf("SchedulePruneHistory failed: %v", err)
	}
	if jobs := env.sched.Recurring(); len(jobs) != 1 || jobs[0].Name != constants.JobNamePruneHistory {
		t.Errorf("unexpected recurring jobs %+v", jobs)
	}
}
