// Package providers integrates external video hosting services. Each
// service implements Provider; the Registry keeps them by id, persists their
// settings and resolves subscription URLs.
package providers

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"strings"

	"github.com/cesargomez89/ytmanager/internal/domain"
)

var (
	ErrInvalidURL             = errors.New("invalid or unsupported URL")
	ErrNotFound               = errors.New("not found on provider")
	ErrProviderNotConfigured  = errors.New("provider not configured")
	ErrUnknownProvider        = errors.New("unknown provider")
	ErrDuplicateProvider      = errors.New("provider already registered")
	ErrInvalidProviderSetting = errors.New("invalid provider settings")
)

// UpdateOptions selects what UpdateVideos refreshes.
type UpdateOptions struct {
	Metadata bool
	Stats    bool
}

// Provider is one video hosting service.
type Provider interface {
	ID() string
	DisplayName() string

	// Configure applies serialized settings. Nil settings unconfigure the
	// provider.
	Configure(settings json.RawMessage) error
	IsConfigured() bool

	// ValidateURL returns an error matching ErrInvalidURL when url does not
	// point at a playlist or channel of this service.
	ValidateURL(url string) error
	FetchSubscription(ctx context.Context, url string) (*domain.Subscription, error)

	// FetchVideos lists the items of a subscription. Pages are fetched as
	// the sequence is consumed; an error ends the sequence.
	FetchVideos(ctx context.Context, sub *domain.Subscription) iter.Seq2[*domain.Video, error]

	// UpdateVideos refreshes videos in place.
	UpdateVideos(ctx context.Context, videos []*domain.Video, opts UpdateOptions) error

	VideoURL(video *domain.Video) string
	SubscriptionURL(sub *domain.Subscription) string
}

// InvalidURLError collects the reasons every configured provider gave for
// rejecting a URL.
type InvalidURLError struct {
	URL  string
	Errs []error
}

func (e *InvalidURLError) Error() string {
	if len(e.Errs) == 0 {
		return "the URL " + e.URL + " is not valid for any configured provider"
	}
	reasons := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		reasons = append(reasons, err.Error())
	}
	return "the URL " + e.URL + " is not valid for any configured provider: " + strings.Join(reasons, "; ")
}

func (e *InvalidURLError) Unwrap() []error {
	return e.Errs
}

func (e *InvalidURLError) Is(target error) bool {
	return target == ErrInvalidURL
}
