package providers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/cesargomez89/ytmanager/internal/logger"
)

type memConfigStore struct {
	values map[string]string
	mu     sync.Mutex
}

func newMemConfigStore() *memConfigStore {
	return &memConfigStore{values: make(map[string]string)}
}

func (m *memConfigStore) ListPrefix(prefix string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string)
	for k, v := range m.values {
		if strings.HasPrefix(k, prefix) {
			out[strings.TrimPrefix(k, prefix)] = v
		}
	}
	return out, nil
}

func (m *memConfigStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memConfigStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// urlProvider accepts URLs with a given prefix.
type urlProvider struct {
	*MockProvider
	id       string
	prefix   string
	settings json.RawMessage
}

func newURLProvider(id, prefix string) *urlProvider {
	return &urlProvider{MockProvider: NewMockProvider(), id: id, prefix: prefix}
}

func (p *urlProvider) ID() string { return p.id }

func (p *urlProvider) Configure(settings json.RawMessage) error {
	p.settings = settings
	return p.MockProvider.Configure(settings)
}

func (p *urlProvider) ValidateURL(url string) error {
	if !strings.HasPrefix(url, p.prefix) {
		return ErrInvalidURL
	}
	return nil
}

func TestRegistryPendingConfiguration(t *testing.T) {
	store := newMemConfigStore()
	store.values[SettingProviderConfigPrefix+"late"] = `{"api_key":"abc"}`

	r := NewRegistry(store, logger.Discard())
	if err := r.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	p := newURLProvider("late", "late://")
	if err := r.Register(p); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if string(p.settings) != `{"api_key":"abc"}` {
		t.Errorf("pending configuration not applied, got %q", p.settings)
	}

	if err := r.Register(newURLProvider("late", "x://")); !errors.Is(err, ErrDuplicateProvider) {
		t.Errorf("expected ErrDuplicateProvider, got %v", err)
	}
}

func TestRegistryConfigurePersists(t *testing.T) {
	store := newMemConfigStore()
	r := NewRegistry(store, logger.Discard())
	p := newURLProvider("a", "a://")
	if err := r.Register(p); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := r.Configure("a", json.RawMessage(`{"k":1}`)); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if store.values[SettingProviderConfigPrefix+"a"] != `{"k":1}` {
		t.Errorf("settings not persisted: %v", store.values)
	}

	if err := r.Configure("a", json.RawMessage(`{not json`)); !errors.Is(err, ErrInvalidProviderSetting) {
		t.Errorf("expected ErrInvalidProviderSetting, got %v", err)
	}

	if err := r.Configure("a", nil); err != nil {
		t.Fatalf("unconfigure failed: %v", err)
	}
	if _, ok := store.values[SettingProviderConfigPrefix+"a"]; ok {
		t.Errorf("settings not deleted")
	}
	if p.IsConfigured() {
		t.Errorf("provider still configured")
	}

	if err := r.Configure("missing", nil); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestResolveURL(t *testing.T) {
	r := NewRegistry(nil, logger.Discard())
	first := newURLProvider("first", "https://shared/")
	second := newURLProvider("second", "https://shared/")
	off := newURLProvider("off", "https://off/")
	_ = off.Configure(nil)

	for _, p := range []Provider{off, first, second} {
		if err := r.Register(p); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	got, err := r.ResolveURL("https://shared/list")
	if err != nil {
		t.Fatalf("ResolveURL failed: %v", err)
	}
	if got.ID() != "first" {
		t.Errorf("resolved %s, want first in registration order", got.ID())
	}

	_, err = r.ResolveURL("https://off/list")
	if !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL for an unconfigured provider, got %v", err)
	}
	var invalid *InvalidURLError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected *InvalidURLError, got %T", err)
	}
	if len(invalid.Errs) != 2 {
		t.Errorf("expected one reason per configured provider, got %d", len(invalid.Errs))
	}
}

func TestFetchSubscriptionThroughRegistry(t *testing.T) {
	mock := NewMockProvider()
	mock.SetPlaylist("pl1", &MockPlaylist{})
	mock.playlists["pl1"].Subscription.Name = "Playlist one"

	r := NewRegistry(nil, logger.Discard())
	if err := r.Register(mock); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	sub, err := r.FetchSubscription(context.Background(), "mock://pl1")
	if err != nil {
		t.Fatalf("FetchSubscription failed: %v", err)
	}
	if sub.ProviderID != MockProviderID || sub.ProviderNativeID != "pl1" || sub.Name != "Playlist one" {
		t.Errorf("unexpected subscription %+v", sub)
	}

	if _, err := r.FetchSubscription(context.Background(), "mock://nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestList(t *testing.T) {
	r := NewRegistry(nil, logger.Discard())
	_ = r.Register(newURLProvider("b", "b://"))
	_ = r.Register(newURLProvider("a", "a://"))

	infos := r.List()
	if len(infos) != 2 || infos[0].ID != "b" || infos[1].ID != "a" {
		t.Errorf("unexpected list %+v", infos)
	}
}
