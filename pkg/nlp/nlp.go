// Package nlp holds the pluggable language models used by the extractors:
// entity span providers, the part-of-speech tagger and their registry.
package nlp

import (
	"context"
	"strings"
)

// Span is a labeled character span inside a sentence. Start and End are rune
// offsets into the text passed to Provider.Extract.
type Span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Provider returns labeled entity spans for a single sentence.
type Provider interface {
	Name() string
	Extract(ctx context.Context, text string) ([]Span, error)
}

// Token is a tagged token. Tag uses the Penn Treebank tag set.
type Token struct {
	Text  string `json:"text"`
	Tag   string `json:"tag"`
	Lemma string `json:"lemma"`
}

// IsVerb reports whether the token was tagged as any verb form.
func (t Token) IsVerb() bool {
	return strings.HasPrefix(t.Tag, "VB")
}

// Tagger assigns part-of-speech tags to the tokens of a sentence.
type Tagger interface {
	Tag(ctx context.Context, text string) ([]Token, error)
}
