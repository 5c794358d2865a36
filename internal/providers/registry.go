package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cesargomez89/ytmanager/internal/domain"
	"github.com/cesargomez89/ytmanager/internal/logger"
)

// SettingProviderConfigPrefix prefixes the settings key of every persisted
// provider configuration.
const SettingProviderConfigPrefix = "provider_config:"

// ConfigStore persists provider settings. ListPrefix returns the matching
// entries keyed by the remainder of the key after prefix.
type ConfigStore interface {
	ListPrefix(prefix string) (map[string]string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Info describes a registered provider.
type Info struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
	Error      string `json:"error,omitempty"`
}

// Registry maps provider ids to providers. Configurations persisted for
// providers that are not registered yet are kept pending and applied on
// registration.
type Registry struct {
	store     ConfigStore
	logger    *logger.Logger
	providers map[string]Provider
	pending   map[string]json.RawMessage
	failures  map[string]error
	order     []string
	mu        sync.RWMutex
}

func NewRegistry(store ConfigStore, log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Default()
	}
	return &Registry{
		store:     store,
		logger:    log.WithComponent("providers"),
		providers: make(map[string]Provider),
		pending:   make(map[string]json.RawMessage),
		failures:  make(map[string]error),
	}
}

// Load reads persisted configurations. Registered providers are configured
// right away, the others on registration.
func (r *Registry) Load() error {
	if r.store == nil {
		return nil
	}
	configs, err := r.store.ListPrefix(SettingProviderConfigPrefix)
	if err != nil {
		return fmt.Errorf("failed to load provider settings: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, value := range configs {
		raw := json.RawMessage(value)
		p, ok := r.providers[id]
		if !ok {
			r.logger.Warn("Configuration found for unregistered provider", "provider", id)
			r.pending[id] = raw
			continue
		}
		r.applyLocked(p, raw)
	}
	return nil
}

// Register adds a provider. A pending configuration for its id is applied.
func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := p.ID()
	if _, ok := r.providers[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, id)
	}
	r.providers[id] = p
	r.order = append(r.order, id)
	r.logger.Info("Registered video provider", "provider", id)

	if raw, ok := r.pending[id]; ok {
		delete(r.pending, id)
		r.applyLocked(p, raw)
	}
	return nil
}

func (r *Registry) applyLocked(p Provider, raw json.RawMessage) {
	if err := p.Configure(raw); err != nil {
		r.failures[p.ID()] = err
		r.logger.Error("Failed to configure provider", "provider", p.ID(), "error", err)
		return
	}
	delete(r.failures, p.ID())
	r.logger.Info("Configured video provider", "provider", p.ID())
}

// Configure applies and persists settings for a registered provider. Nil
// settings unconfigure it and delete the persisted configuration.
func (r *Registry) Configure(id string, settings json.RawMessage) error {
	p, err := r.Get(id)
	if err != nil {
		return err
	}

	if settings == nil {
		if err := p.Configure(nil); err != nil {
			return err
		}
		if r.store != nil {
			if err := r.store.Delete(SettingProviderConfigPrefix + id); err != nil {
				return fmt.Errorf("failed to delete provider settings: %w", err)
			}
		}
		r.mu.Lock()
		delete(r.failures, id)
		r.mu.Unlock()
		r.logger.Info("Unconfigured video provider", "provider", id)
		return nil
	}

	if !json.Valid(settings) {
		return fmt.Errorf("%w: not valid JSON", ErrInvalidProviderSetting)
	}
	if err := p.Configure(settings); err != nil {
		return err
	}
	if r.store != nil {
		if err := r.store.Set(SettingProviderConfigPrefix+id, string(settings)); err != nil {
			return fmt.Errorf("failed to save provider settings: %w", err)
		}
	}

	r.mu.Lock()
	delete(r.failures, id)
	r.mu.Unlock()
	r.logger.Info("Configured video provider", "provider", id)
	return nil
}

// Get returns the provider registered under id.
func (r *Registry) Get(id string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, id)
	}
	return p, nil
}

// ForSubscription returns the configured provider of sub.
func (r *Registry) ForSubscription(sub *domain.Subscription) (Provider, error) {
	p, err := r.Get(sub.ProviderID)
	if err != nil {
		return nil, err
	}
	if !p.IsConfigured() {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, sub.ProviderID)
	}
	return p, nil
}

// ResolveURL returns the first configured provider, in registration order,
// that accepts url.
func (r *Registry) ResolveURL(url string) (Provider, error) {
	r.mu.RLock()
	candidates := make([]Provider, 0, len(r.order))
	for _, id := range r.order {
		candidates = append(candidates, r.providers[id])
	}
	r.mu.RUnlock()

	invalid := &InvalidURLError{URL: url}
	for _, p := range candidates {
		if !p.IsConfigured() {
			continue
		}
		err := p.ValidateURL(url)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrInvalidURL) {
			return nil, err
		}
		invalid.Errs = append(invalid.Errs, fmt.Errorf("%s: %w", p.ID(), err))
	}
	return nil, invalid
}

// FetchSubscription resolves url and fetches the subscription it points at.
func (r *Registry) FetchSubscription(ctx context.Context, url string) (*domain.Subscription, error) {
	p, err := r.ResolveURL(url)
	if err != nil {
		return nil, err
	}
	sub, err := p.FetchSubscription(ctx, url)
	if err != nil {
		return nil, err
	}
	sub.ProviderID = p.ID()
	return sub, nil
}

// List describes the registered providers in registration order.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Info, 0, len(r.order))
	for _, id := range r.order {
		p := r.providers[id]
		info := Info{ID: id, Name: p.DisplayName(), Configured: p.IsConfigured()}
		if err := r.failures[id]; err != nil {
			info.Error = err.Error()
		}
		out = append(out, info)
	}
	return out
}
