package downloader

import (
	"testing"

	"github.com/cesargomez89/ytmanager/internal/config"
	"github.com/cesargomez89/ytmanager/internal/domain"
)

func TestResolveSettings(t *testing.T) {
	defaults := config.DownloadDefaults{
		Order:             "newest",
		SubscriptionLimit: 5,
		GlobalLimit:       -1,
		AutoDownload:      true,
	}

	tests := []struct {
		name  string
		sub   domain.Subscription
		prefs *domain.UserPreferences
		want  EffectiveSettings
	}{
		{
			name: "global defaults",
			want: EffectiveSettings{Order: domain.OrderNewest, SubscriptionLimit: 5, GlobalLimit: -1, AutoDownload: true},
		},
		{
			name: "user defaults win over global",
			prefs: &domain.UserPreferences{
				DownloadOrder:             ptr(domain.OrderRating),
				DownloadSubscriptionLimit: ptr(2),
				DownloadGlobalLimit:       ptr(10),
				AutoDownload:              ptr(false),
				MarkDeletedAsWatched:      ptr(true),
			},
			want: EffectiveSettings{Order: domain.OrderRating, SubscriptionLimit: 2, GlobalLimit: 10, MarkDeletedAsWatched: true},
		},
		{
			name: "subscription overrides win over user",
			sub: domain.Subscription{
				DownloadOrder:     ptr(domain.OrderOldest),
				DownloadLimit:     ptr(1),
				AutoDownload:      ptr(true),
				AutoDeleteWatched: ptr(true),
			},
			prefs: &domain.UserPreferences{
				DownloadOrder:             ptr(domain.OrderRating),
				DownloadSubscriptionLimit: ptr(2),
				AutoDownload:              ptr(false),
				AutoDeleteWatched:         ptr(false),
			},
			want: EffectiveSettings{Order: domain.OrderOldest, SubscriptionLimit: 1, GlobalLimit: -1, AutoDownload: true, AutoDeleteWatched: true},
		},
		{
			name: "zero override is not unset",
			sub:  domain.Subscription{DownloadLimit: ptr(0)},
			want: EffectiveSettings{Order: domain.OrderNewest, SubscriptionLimit: 0, GlobalLimit: -1, AutoDownload: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveSettings(&tt.sub, tt.prefs, defaults)
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolveSettingsInvalidDefaultOrder(t *testing.T) {
	got := ResolveSettings(&domain.Subscription{}, nil, config.DownloadDefaults{Order: "sideways"})
	if got.Order != domain.OrderPlaylist {
		t.Errorf("Order = %q, want playlist", got.Order)
	}
}

func TestRemaining(t *testing.T) {
	tests := []struct {
		limit, count, want int
	}{
		{limit: -1, count: 100, want: -1},
		{limit: 3, count: 0, want: 3},
		{limit: 3, count: 2, want: 1},
		{limit: 3, count: 7, want: 0},
		{limit: 0, count: 0, want: 0},
	}
	for _, tt := range tests {
		if got := remaining(tt.limit, tt.count); got != tt.want {
			t.Errorf("remaining(%d, %d) = %d, want %d", tt.limit, tt.count, got, tt.want)
		}
	}
}
