package nlp

import (
	"context"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/paperkg/internal/util"

	"github.com/jdkato/prose/v2"
)

// ProseProvider is the general purpose statistical NER provider.
type ProseProvider struct{}

func NewProseProvider() *ProseProvider {
	return &ProseProvider{}
}

func (p *ProseProvider) Name() string {
	return "prose"
}

func (p *ProseProvider) Extract(_ context.Context, text string) ([]Span, error) {
	doc, err := prose.NewDocument(text, prose.WithSegmentation(false))
	if err != nil {
		return nil, fmt.Errorf("failed to run prose NER: %w", err)
	}

	var spans []Span
	cursor := 0
	for _, ent := range doc.Entities() {
		start, end, ok := locate(text, ent.Text, cursor)
		if !ok {
			continue
		}
		spans = append(spans, Span{
			Start: util.RuneOffset(text, start),
			End:   util.RuneOffset(text, end),
			Label: ent.Label,
			Text:  text[start:end],
		})
		cursor = end
	}
	return spans, nil
}

// ProseTagger tags sentences with the prose averaged perceptron tagger.
type ProseTagger struct{}

func NewProseTagger() *ProseTagger {
	return &ProseTagger{}
}

func (p *ProseTagger) Tag(_ context.Context, text string) ([]Token, error) {
	doc, err := prose.NewDocument(
		text,
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to tag with prose: %w", err)
	}

	toks := doc.Tokens()
	out := make([]Token, 0, len(toks))
	for _, t := range toks {
		out = append(out, Token{
			Text:  t.Text,
			Tag:   t.Tag,
			Lemma: strings.ToLower(t.Text),
		})
	}
	return out, nil
}

// locate finds needle in text at or after the byte offset from, falling back
// to the first occurrence anywhere. Returned offsets are byte offsets.
func locate(text, needle string, from int) (int, int, bool) {
	if needle == "" {
		return 0, 0, false
	}
	if from < len(text) {
		if idx := strings.Index(text[from:], needle); idx >= 0 {
			return from + idx, from + idx + len(needle), true
		}
	}
	if idx := strings.Index(text, needle); idx >= 0 {
		return idx, idx + len(needle), true
	}
	return 0, 0, false
}
