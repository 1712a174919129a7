package nlp

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/OFFIS-RIT/paperkg/pkg/rules"
)

type staticProvider struct {
	name  string
	spans []Span
	calls atomic.Int32
}

func (s *staticProvider) Name() string { return s.name }

func (s *staticProvider) Extract(context.Context, string) ([]Span, error) {
	s.calls.Add(1)
	return s.spans, nil
}

func TestRegistryPriorityAndFailures(t *testing.T) {
	r := NewRegistry()

	var builds atomic.Int32
	r.Register("first", func(context.Context) (Provider, error) {
		builds.Add(1)
		return &staticProvider{name: "first"}, nil
	})
	r.Register("broken", func(context.Context) (Provider, error) {
		builds.Add(1)
		return nil, errors.New("model missing")
	})
	r.RegisterProvider(&staticProvider{name: "second"})

	for i := 0; i < 3; i++ {
		got := r.Providers(context.Background())
		if len(got) != 2 || got[0].Name() != "first" || got[1].Name() != "second" {
			t.Fatalf("Providers() = %v", got)
		}
	}
	if builds.Load() != 2 {
		t.Fatalf("factories called %d times, want 2", builds.Load())
	}
	if r.Priority("broken") != 1 || r.Priority("missing") != -1 {
		t.Fatalf("Priority() mismatch")
	}
	if !reflect.DeepEqual(r.Names(), []string{"first", "broken", "second"}) {
		t.Fatalf("Names() = %v", r.Names())
	}
}

func TestRegistryTagger(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Tagger(context.Background()); ok {
		t.Fatalf("expected no tagger")
	}

	r2 := NewRegistry()
	r2.RegisterTagger(func(context.Context) (Tagger, error) {
		return nil, errors.New("unavailable")
	})
	if _, ok := r2.Tagger(context.Background()); ok {
		t.Fatalf("expected failed tagger to be unavailable")
	}
}

func TestLexiconProvider(t *testing.T) {
	p := NewLexiconProvider(rules.MustDefault())

	text := "Skeletal muscle atrophy and apoptosis in mice, not apoptosisX."
	spans, err := p.Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	want := []Span{
		{Start: 0, End: 15, Label: "TISSUE", Text: "Skeletal muscle"},
		{Start: 28, End: 37, Label: "BIOLOGICAL_PROCESS", Text: "apoptosis"},
		{Start: 41, End: 45, Label: "ORGANISM", Text: "mice"},
	}
	if !reflect.DeepEqual(spans, want) {
		t.Fatalf("Extract() = %#v, want %#v", spans, want)
	}
}

func TestLexiconProviderRuneOffsets(t *testing.T) {
	p := NewLexiconProvider(rules.MustDefault())

	spans, err := p.Extract(context.Background(), "Über apoptosis")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(spans) != 1 || spans[0].Start != 5 || spans[0].End != 14 {
		t.Fatalf("Extract() = %#v", spans)
	}
}

func TestCachedProvider(t *testing.T) {
	inner := &staticProvider{name: "static", spans: []Span{{Start: 0, End: 4, Label: "GENE", Text: "TP53"}}}
	caches := map[string]SpanCache{
		"memory": NewMemoryCache(),
	}
	fc, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error = %v", err)
	}
	caches["file"] = fc

	for name, cache := range caches {
		t.Run(name, func(t *testing.T) {
			inner.calls.Store(0)
			p := NewCachedProvider(inner, cache, "v1")
			for i := 0; i < 3; i++ {
				got, err := p.Extract(context.Background(), "TP53 binds")
				if err != nil {
					t.Fatalf("Extract() error = %v", err)
				}
				if !reflect.DeepEqual(got, inner.spans) {
					t.Fatalf("Extract() = %#v", got)
				}
			}
			if inner.calls.Load() != 1 {
				t.Fatalf("inner called %d times, want 1", inner.calls.Load())
			}
		})
	}
}

func TestCacheKeyVaries(t *testing.T) {
	if CacheKey("a", "v1", "x") == CacheKey("a", "v2", "x") {
		t.Fatalf("version not part of key")
	}
	if CacheKey("a", "v1", "x") == CacheKey("b", "v1", "x") {
		t.Fatalf("provider not part of key")
	}
}

func TestTokenIsVerb(t *testing.T) {
	if !(Token{Tag: "VBZ"}).IsVerb() || (Token{Tag: "NN"}).IsVerb() {
		t.Fatalf("IsVerb mismatch")
	}
}

func TestNewLLMProviderRequiresClient(t *testing.T) {
	if _, err := NewLLMProvider(LLMProviderParams{}); err == nil {
		t.Fatalf("expected error without client")
	}
}
