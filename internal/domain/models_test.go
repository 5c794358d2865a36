package domain

import (
	"sort"
	"testing"
	"time"
)

func TestJobStatus_Constants(t *testing.T) {
	tests := []struct {
		name     string
		status   JobStatus
		expected string
		terminal bool
	}{
		{"running", JobStatusRunning, "running", false},
		{"finished", JobStatusFinished, "finished", true},
		{"failed", JobStatusFailed, "failed", true},
		{"interrupted", JobStatusInterrupted, "interrupted", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.status) != tt.expected {
				t.Errorf("JobStatus %s = %q, want %q", tt.name, tt.status, tt.expected)
			}
			if tt.status.IsTerminal() != tt.terminal {
				t.Errorf("JobStatus %s IsTerminal = %v, want %v", tt.name, tt.status.IsTerminal(), tt.terminal)
			}
		})
	}
}

func TestParseDownloadOrder(t *testing.T) {
	for _, s := range []string{"newest", "oldest", "playlist", "playlist_reverse", "popularity", "rating"} {
		if _, err := ParseDownloadOrder(s); err != nil {
			t.Errorf("ParseDownloadOrder(%q) unexpected error: %v", s, err)
		}
	}
	if _, err := ParseDownloadOrder("random"); err == nil {
		t.Error("expected error for unknown order")
	}
}

func TestDownloadOrder_OrderBy(t *testing.T) {
	if got := OrderNewest.OrderBy(); got != "publish_date DESC, id ASC" {
		t.Errorf("OrderNewest.OrderBy() = %q", got)
	}
	if got := DownloadOrder("bogus").OrderBy(); got != "playlist_index ASC, id ASC" {
		t.Errorf("fallback OrderBy() = %q", got)
	}
}

func TestDownloadOrder_Less(t *testing.T) {
	now := time.Now()
	videos := []*Video{
		{ID: 1, PlaylistIndex: 2, PublishDate: now.Add(-2 * time.Hour), Views: 10, Rating: 0.2},
		{ID: 2, PlaylistIndex: 0, PublishDate: now, Views: 30, Rating: 0.9},
		{ID: 3, PlaylistIndex: 1, PublishDate: now.Add(-time.Hour), Views: 20, Rating: 0.5},
	}

	tests := []struct {
		order DownloadOrder
		want  []int64
	}{
		{OrderNewest, []int64{2, 3, 1}},
		{OrderOldest, []int64{1, 3, 2}},
		{OrderPlaylist, []int64{2, 3, 1}},
		{OrderPlaylistReverse, []int64{1, 3, 2}},
		{OrderPopularity, []int64{2, 3, 1}},
		{OrderRating, []int64{2, 3, 1}},
	}

	for _, tt := range tests {
		t.Run(string(tt.order), func(t *testing.T) {
			sorted := append([]*Video(nil), videos...)
			sort.Slice(sorted, func(i, j int) bool { return tt.order.Less(sorted[i], sorted[j]) })
			for i, v := range sorted {
				if v.ID != tt.want[i] {
					t.Fatalf("position %d: got video %d, want %d", i, v.ID, tt.want[i])
				}
			}
		})
	}
}

func TestVideo_IsDownloaded(t *testing.T) {
	empty := ""
	path := "/media/a"
	if (&Video{}).IsDownloaded() {
		t.Error("nil path should not be downloaded")
	}
	if (&Video{DownloadedPath: &empty}).IsDownloaded() {
		t.Error("empty path should not be downloaded")
	}
	if !(&Video{DownloadedPath: &path}).IsDownloaded() {
		t.Error("expected downloaded")
	}
}
