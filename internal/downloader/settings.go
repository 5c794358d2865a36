package downloader

import (
	"github.com/cesargomez89/ytmanager/internal/config"
	"github.com/cesargomez89/ytmanager/internal/domain"
)

// EffectiveSettings are the download settings of one subscription after
// the override cascade. Negative limits mean unlimited.
type EffectiveSettings struct {
	Order                domain.DownloadOrder
	GlobalLimit          int
	SubscriptionLimit    int
	AutoDownload         bool
	MarkDeletedAsWatched bool
	AutoDeleteWatched    bool
}

// ResolveSettings picks, for every setting, the first value set on the
// subscription, then the user preferences, then the global defaults.
func ResolveSettings(sub *domain.Subscription, prefs *domain.UserPreferences, defaults config.DownloadDefaults) EffectiveSettings {
	if prefs == nil {
		prefs = &domain.UserPreferences{}
	}

	order, err := domain.ParseDownloadOrder(defaults.Order)
	if err != nil {
		order = domain.OrderPlaylist
	}

	return EffectiveSettings{
		Order:                first(sub.DownloadOrder, prefs.DownloadOrder, order),
		GlobalLimit:          first[int](nil, prefs.DownloadGlobalLimit, defaults.GlobalLimit),
		SubscriptionLimit:    first(sub.DownloadLimit, prefs.DownloadSubscriptionLimit, defaults.SubscriptionLimit),
		AutoDownload:         first(sub.AutoDownload, prefs.AutoDownload, defaults.AutoDownload),
		MarkDeletedAsWatched: first[bool](nil, prefs.MarkDeletedAsWatched, defaults.MarkDeletedAsWatched),
		AutoDeleteWatched:    first(sub.AutoDeleteWatched, prefs.AutoDeleteWatched, defaults.AutoDeleteWatched),
	}
}

func first[T any](sub, user *T, fallback T) T {
	if sub != nil {
		return *sub
	}
	if user != nil {
		return *user
	}
	return fallback
}

// remaining is how many more downloads a limit allows given count existing
// ones, or -1 when the limit is unlimited.
func remaining(limit, count int) int {
	if limit < 0 {
		return -1
	}
	return max(limit-count, 0)
}
