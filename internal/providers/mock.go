package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strings"
	"sync"

	"github.com/cesargomez89/ytmanager/internal/domain"
)

const (
	MockProviderID = "mock"
	mockURLPrefix  = "mock://"
)

// MockPlaylist is the remote state served by MockProvider.
type MockPlaylist struct {
	Subscription domain.Subscription
	Videos       []domain.Video
	FetchErr     error
}

// MockProvider serves in-memory playlists addressed as mock://<id>. It is
// always configured unless explicitly unconfigured.
type MockProvider struct {
	playlists    map[string]*MockPlaylist
	stats        map[string]domain.Video
	updateCalls  [][]string
	unconfigured bool
	mu           sync.Mutex
}

func NewMockProvider() *MockProvider {
	return &MockProvider{
		playlists: make(map[string]*MockPlaylist),
		stats:     make(map[string]domain.Video),
	}
}

// SetPlaylist replaces the remote state of playlist id.
func (p *MockProvider) SetPlaylist(id string, pl *MockPlaylist) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playlists[id] = pl
}

// SetStats sets the views and rating returned for a video id.
func (p *MockProvider) SetStats(nativeID string, views int64, rating float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats[nativeID] = domain.Video{Views: views, Rating: rating}
}

// UpdateCalls returns the ids passed to each UpdateVideos call.
func (p *MockProvider) UpdateCalls() [][]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]string(nil), p.updateCalls...)
}

func (p *MockProvider) ID() string { return MockProviderID }

func (p *MockProvider) DisplayName() string { return "Mock provider" }

func (p *MockProvider) Configure(settings json.RawMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unconfigured = settings == nil
	return nil
}

func (p *MockProvider) IsConfigured() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.unconfigured
}

func (p *MockProvider) ValidateURL(url string) error {
	if !strings.HasPrefix(url, mockURLPrefix) || len(url) == len(mockURLPrefix) {
		return fmt.Errorf("%w: not a mock URL", ErrInvalidURL)
	}
	return nil
}

func (p *MockProvider) FetchSubscription(ctx context.Context, url string) (*domain.Subscription, error) {
	if err := p.ValidateURL(url); err != nil {
		return nil, err
	}
	id := strings.TrimPrefix(url, mockURLPrefix)

	p.mu.Lock()
	defer p.mu.Unlock()
	pl, ok := p.playlists[id]
	if !ok {
		return nil, fmt.Errorf("%w: playlist %s", ErrNotFound, id)
	}
	sub := pl.Subscription
	sub.ProviderID = MockProviderID
	sub.ProviderNativeID = id
	return &sub, nil
}

func (p *MockProvider) FetchVideos(ctx context.Context, sub *domain.Subscription) iter.Seq2[*domain.Video, error] {
	return func(yield func(*domain.Video, error) bool) {
		p.mu.Lock()
		pl, ok := p.playlists[sub.ProviderNativeID]
		var videos []domain.Video
		var fetchErr error
		if ok {
			videos = append(videos, pl.Videos...)
			fetchErr = pl.FetchErr
		}
		p.mu.Unlock()

		if !ok {
			yield(nil, fmt.Errorf("%w: playlist %s", ErrNotFound, sub.ProviderNativeID))
			return
		}
		if fetchErr != nil {
			yield(nil, fetchErr)
			return
		}
		for i := range videos {
			v := videos[i]
			v.SubscriptionID = sub.ID
			if !yield(&v, nil) {
				return
			}
		}
	}
}

func (p *MockProvider) UpdateVideos(ctx context.Context, videos []*domain.Video, opts UpdateOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, 0, len(videos))
	for _, v := range videos {
		ids = append(ids, v.ProviderNativeID)
		if !opts.Stats {
			continue
		}
		if s, ok := p.stats[v.ProviderNativeID]; ok {
			v.Views = s.Views
			v.Rating = s.Rating
		}
	}
	p.updateCalls = append(p.updateCalls, ids)
	return nil
}

func (p *MockProvider) VideoURL(video *domain.Video) string {
	return "mock://video/" + video.ProviderNativeID
}

func (p *MockProvider) SubscriptionURL(sub *domain.Subscription) string {
	return mockURLPrefix + sub.ProviderNativeID
}

var _ Provider = (*MockProvider)(nil)
