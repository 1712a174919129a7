package nlp

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/OFFIS-RIT/paperkg/internal/util"
	"github.com/OFFIS-RIT/paperkg/pkg/rules"
)

// LexiconProvider matches the gazetteer terms of a rule table as whole words.
// Longer terms are preferred over shorter ones that start at the same place.
type LexiconProvider struct {
	pattern *regexp.Regexp
	labels  map[string]string
}

func NewLexiconProvider(table *rules.Table) *LexiconProvider {
	labels := make(map[string]string)
	var terms []string
	for label, list := range table.Lexicon {
		for _, term := range list {
			key := strings.ToLower(strings.TrimSpace(term))
			if key == "" {
				continue
			}
			if _, seen := labels[key]; seen {
				continue
			}
			labels[key] = label
			terms = append(terms, key)
		}
	}
	sort.Slice(terms, func(i, j int) bool {
		if len(terms[i]) != len(terms[j]) {
			return len(terms[i]) > len(terms[j])
		}
		return terms[i] < terms[j]
	})

	p := &LexiconProvider{labels: labels}
	if len(terms) == 0 {
		return p
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = regexp.QuoteMeta(t)
	}
	p.pattern = regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
	return p
}

func (p *LexiconProvider) Name() string {
	return "lexicon"
}

func (p *LexiconProvider) Extract(_ context.Context, text string) ([]Span, error) {
	if p.pattern == nil {
		return nil, nil
	}
	var spans []Span
	for _, m := range p.pattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[2], m[3]
		surface := text[start:end]
		label, ok := p.labels[strings.ToLower(surface)]
		if !ok {
			continue
		}
		spans = append(spans, Span{
			Start: util.RuneOffset(text, start),
			End:   util.RuneOffset(text, end),
			Label: label,
			Text:  surface,
		})
	}
	return spans, nil
}
