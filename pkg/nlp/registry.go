package nlp

import (
	"context"
	"fmt"
	"sync"

	"github.com/OFFIS-RIT/paperkg/pkg/logger"

	"golang.org/x/sync/singleflight"
)

// ProviderFactory builds a provider. It is called at most once per Registry.
type ProviderFactory func(ctx context.Context) (Provider, error)

// TaggerFactory builds a tagger. It is called at most once per Registry.
type TaggerFactory func(ctx context.Context) (Tagger, error)

type registryEntry struct {
	name    string
	factory ProviderFactory
}

type loadResult struct {
	provider Provider
	err      error
}

// Registry owns the entity providers and the tagger of one pipeline run.
//
// Providers are registered in priority order and loaded lazily on first use.
// A provider whose factory fails is logged once and contributes nothing for
// the lifetime of the registry.
type Registry struct {
	mu      sync.Mutex
	entries []registryEntry
	loaded  map[string]loadResult
	group   singleflight.Group

	taggerFactory TaggerFactory
	taggerOnce    sync.Once
	tagger        Tagger
}

func NewRegistry() *Registry {
	return &Registry{
		loaded: make(map[string]loadResult),
	}
}

// Register appends a provider factory. Earlier registrations win span merges.
func (r *Registry) Register(name string, factory ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, registryEntry{name: name, factory: factory})
}

// RegisterProvider registers an already constructed provider.
func (r *Registry) RegisterProvider(p Provider) {
	r.Register(p.Name(), func(context.Context) (Provider, error) {
		return p, nil
	})
}

// RegisterTagger sets the tagger factory used by the verb pass.
func (r *Registry) RegisterTagger(factory TaggerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.taggerFactory = factory
}

// Names returns the registered provider names in priority order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.name
	}
	return names
}

// Priority returns the position of the named provider, or -1.
func (r *Registry) Priority(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.name == name {
			return i
		}
	}
	return -1
}

// Providers returns every provider that loaded successfully, in priority order.
func (r *Registry) Providers(ctx context.Context) []Provider {
	r.mu.Lock()
	entries := append([]registryEntry(nil), r.entries...)
	r.mu.Unlock()

	providers := make([]Provider, 0, len(entries))
	for _, e := range entries {
		if p := r.load(ctx, e); p != nil {
			providers = append(providers, p)
		}
	}
	return providers
}

func (r *Registry) load(ctx context.Context, e registryEntry) Provider {
	r.mu.Lock()
	res, ok := r.loaded[e.name]
	r.mu.Unlock()
	if ok {
		return res.provider
	}

	v, _, _ := r.group.Do(e.name, func() (any, error) {
		r.mu.Lock()
		if res, ok := r.loaded[e.name]; ok {
			r.mu.Unlock()
			return res, nil
		}
		r.mu.Unlock()

		p, err := e.factory(ctx)
		if err == nil && p == nil {
			err = fmt.Errorf("factory returned no provider")
		}
		res := loadResult{provider: p, err: err}
		if err != nil {
			res.provider = nil
			logger.Warn("[NLP] Provider unavailable, skipping", "provider", e.name, "err", err)
		} else {
			logger.Debug("[NLP] Provider loaded", "provider", e.name)
		}

		r.mu.Lock()
		r.loaded[e.name] = res
		r.mu.Unlock()
		return res, nil
	})
	return v.(loadResult).provider
}

// Tagger returns the registered tagger. ok is false when none is registered
// or it failed to load.
func (r *Registry) Tagger(ctx context.Context) (Tagger, bool) {
	r.taggerOnce.Do(func() {
		r.mu.Lock()
		factory := r.taggerFactory
		r.mu.Unlock()
		if factory == nil {
			return
		}
		t, err := factory(ctx)
		if err != nil {
			logger.Warn("[NLP] Tagger unavailable, verb patterns disabled", "err", err)
			return
		}
		r.tagger = t
	})
	return r.tagger, r.tagger != nil
}
