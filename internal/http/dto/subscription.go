package dto

import (
	"slices"
	"strings"

	"github.com/cesargomez89/ytmanager/internal/domain"
)

type AddSubscriptionRequest struct {
	FolderID *int64 `json:"folder_id"`
	URL      string `json:"url"`
}

func (r *AddSubscriptionRequest) Validate() []ValidationError {
	return validateURL("url", r.URL)
}

// ImportRequest carries one URL per line.
type ImportRequest struct {
	FolderID *int64 `json:"folder_id"`
	URLs     string `json:"urls"`
}

func (r *ImportRequest) Validate() []ValidationError {
	var errs []ValidationError
	if strings.TrimSpace(r.URLs) == "" {
		errs = append(errs, ValidationError{Field: "urls", Message: "is required"})
	}
	return errs
}

// Fields that can be reset so the subscription inherits the user default.
const (
	FieldAutoDownload      = "auto_download"
	FieldDownloadLimit     = "download_limit"
	FieldDownloadOrder     = "download_order"
	FieldAutoDeleteWatched = "auto_delete_watched"
)

var inheritableFields = []string{FieldAutoDownload, FieldDownloadLimit, FieldDownloadOrder, FieldAutoDeleteWatched}

// SubscriptionUpdateRequest changes the overrides of a subscription. Unset
// fields are left alone; fields listed in Inherit are cleared.
type SubscriptionUpdateRequest struct {
	Name                   *string  `json:"name"`
	AutoDownload           *bool    `json:"auto_download"`
	DownloadLimit          *int     `json:"download_limit"`
	DownloadOrder          *string  `json:"download_order"`
	AutoDeleteWatched      *bool    `json:"auto_delete_watched"`
	RewritePlaylistIndices *bool    `json:"rewrite_playlist_indices"`
	Inherit                []string `json:"inherit"`
}

func (r *SubscriptionUpdateRequest) Validate() []ValidationError {
	var errs []ValidationError

	errs = append(errs, validateName("name", r.Name)...)
	errs = append(errs, validateLimit("download_limit", r.DownloadLimit)...)
	errs = append(errs, validateOrder("download_order", r.DownloadOrder)...)
	for _, f := range r.Inherit {
		if !slices.Contains(inheritableFields, f) {
			errs = append(errs, ValidationError{Field: "inherit", Message: "unknown field " + f})
		}
	}

	return errs
}

// Apply writes the request onto sub. Validate must have passed.
func (r *SubscriptionUpdateRequest) Apply(sub *domain.Subscription) {
	if r.Name != nil {
		sub.Name = strings.TrimSpace(*r.Name)
	}
	if r.AutoDownload != nil {
		sub.AutoDownload = r.AutoDownload
	}
	if r.DownloadLimit != nil {
		sub.DownloadLimit = r.DownloadLimit
	}
	if r.DownloadOrder != nil {
		order := domain.DownloadOrder(*r.DownloadOrder)
		sub.DownloadOrder = &order
	}
	if r.AutoDeleteWatched != nil {
		sub.AutoDeleteWatched = r.AutoDeleteWatched
	}
	if r.RewritePlaylistIndices != nil {
		sub.RewritePlaylistIndices = *r.RewritePlaylistIndices
	}

	for _, f := range r.Inherit {
		switch f {
		case FieldAutoDownload:
			sub.AutoDownload = nil
		case FieldDownloadLimit:
			sub.DownloadLimit = nil
		case FieldDownloadOrder:
			sub.DownloadOrder = nil
		case FieldAutoDeleteWatched:
			sub.AutoDeleteWatched = nil
		}
	}
}

// PreferencesRequest replaces the download defaults of a user. Unset
// fields fall back to the global configuration.
type PreferencesRequest struct {
	AutoDownload              *bool   `json:"auto_download"`
	DownloadGlobalLimit       *int    `json:"download_global_limit"`
	DownloadSubscriptionLimit *int    `json:"download_subscription_limit"`
	DownloadOrder             *string `json:"download_order"`
	MarkDeletedAsWatched      *bool   `json:"mark_deleted_as_watched"`
	AutoDeleteWatched         *bool   `json:"auto_delete_watched"`
	DownloadPath              string  `json:"download_path"`
}

func (r *PreferencesRequest) Validate() []ValidationError {
	var errs []ValidationError

	errs = append(errs, validateLimit("download_global_limit", r.DownloadGlobalLimit)...)
	errs = append(errs, validateLimit("download_subscription_limit", r.DownloadSubscriptionLimit)...)
	errs = append(errs, validateOrder("download_order", r.DownloadOrder)...)
	if r.DownloadPath != "" && !strings.HasPrefix(r.DownloadPath, "/") {
		errs = append(errs, ValidationError{Field: "download_path", Message: "must be an absolute path"})
	}

	return errs
}

func (r *PreferencesRequest) ToPreferences() *domain.UserPreferences {
	prefs := &domain.UserPreferences{
		AutoDownload:              r.AutoDownload,
		DownloadGlobalLimit:       r.DownloadGlobalLimit,
		DownloadSubscriptionLimit: r.DownloadSubscriptionLimit,
		MarkDeletedAsWatched:      r.MarkDeletedAsWatched,
		AutoDeleteWatched:         r.AutoDeleteWatched,
		DownloadPath:              r.DownloadPath,
	}
	if r.DownloadOrder != nil {
		order := domain.DownloadOrder(*r.DownloadOrder)
		prefs.DownloadOrder = &order
	}
	return prefs
}

type FolderRequest struct {
	ParentID *int64 `json:"parent_id"`
	Name     string `json:"name"`
}

func (r *FolderRequest) Validate() []ValidationError {
	return validateName("name", &r.Name)
}

// MoveRequest re-parents a folder or places a subscription. A nil target
// is the root.
type MoveRequest struct {
	TargetID *int64 `json:"target_id"`
}

type WatchedRequest struct {
	Watched bool `json:"watched"`
}
