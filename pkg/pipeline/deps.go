package pipeline

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/paperkg/internal/config"
	"github.com/OFFIS-RIT/paperkg/pkg/ai"
	"github.com/OFFIS-RIT/paperkg/pkg/logger"
	"github.com/OFFIS-RIT/paperkg/pkg/nlp"
	"github.com/OFFIS-RIT/paperkg/pkg/segment"
)

// DepsParams carries the runtime clients that do not belong in config files.
type DepsParams struct {
	// LLM backs the "llm" provider. Without it the provider is skipped.
	LLM   ai.Client
	Redis nlp.RedisCacheParams
}

// NewDeps builds the registry, segmenter and rule table described by opts.
// The returned close function releases the span cache.
func NewDeps(ctx context.Context, opts *config.Options, params DepsParams) (Deps, func(), error) {
	noop := func() {}

	table, err := opts.Rules()
	if err != nil {
		return Deps{}, noop, fmt.Errorf("failed to load rules: %w", err)
	}
	seg, err := segment.New(opts.Segmenter)
	if err != nil {
		return Deps{}, noop, err
	}

	cache, closeCache, err := newSpanCache(ctx, opts, params)
	if err != nil {
		return Deps{}, noop, err
	}
	version := table.Version + ":" + opts.NER.LLMModel
	cached := func(p nlp.Provider) nlp.Provider {
		if cache == nil {
			return p
		}
		return nlp.NewCachedProvider(p, cache, version)
	}

	reg := nlp.NewRegistry()
	for _, name := range opts.NER.Providers {
		switch name {
		case "llm":
			reg.Register(name, func(context.Context) (nlp.Provider, error) {
				if params.LLM == nil {
					return nil, fmt.Errorf("no %s client configured", opts.NER.LLMBackend)
				}
				p, err := nlp.NewLLMProvider(nlp.LLMProviderParams{Client: params.LLM})
				if err != nil {
					return nil, err
				}
				return cached(p), nil
			})
		case "prose":
			reg.Register(name, func(context.Context) (nlp.Provider, error) {
				return cached(nlp.NewProseProvider()), nil
			})
		case "lexicon":
			reg.Register(name, func(context.Context) (nlp.Provider, error) {
				return nlp.NewLexiconProvider(table), nil
			})
		default:
			logger.Warn("[Pipeline] Unknown entity provider, ignoring", "provider", name)
		}
	}
	reg.RegisterTagger(func(context.Context) (nlp.Tagger, error) {
		return nlp.NewProseTagger(), nil
	})

	return Deps{Registry: reg, Segmenter: seg, Rules: table}, closeCache, nil
}

func newSpanCache(ctx context.Context, opts *config.Options, params DepsParams) (nlp.SpanCache, func(), error) {
	noop := func() {}
	switch opts.Cache.Backend {
	case "memory":
		return nlp.NewMemoryCache(), noop, nil
	case "file":
		c, err := nlp.NewFileCache(opts.Cache.Dir)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open span cache: %w", err)
		}
		return c, noop, nil
	case "redis":
		c, err := nlp.NewRedisCache(ctx, params.Redis)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect span cache: %w", err)
		}
		return c, func() {
			if err := c.Close(); err != nil {
				logger.Warn("[Pipeline] Failed to close redis cache", "err", err)
			}
		}, nil
	default:
		return nil, noop, nil
	}
}
