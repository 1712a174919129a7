package segment

import (
	"context"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/paperkg/internal/util"
	"github.com/OFFIS-RIT/paperkg/pkg/logger"

	"github.com/jdkato/prose/v2"
)

// ProseSegmenter uses the prose sentence boundary model.
type ProseSegmenter struct{}

func NewProseSegmenter() *ProseSegmenter {
	return &ProseSegmenter{}
}

func (p *ProseSegmenter) Name() string {
	return "prose"
}

// Split maps every sentence reported by prose back onto text. Sentences that
// cannot be located verbatim are skipped.
func (p *ProseSegmenter) Split(_ context.Context, text string) ([]Span, error) {
	doc, err := prose.NewDocument(
		text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to segment with prose: %w", err)
	}

	var spans []Span
	cursor := 0
	for _, s := range doc.Sentences() {
		st := strings.TrimSpace(s.Text)
		if st == "" {
			continue
		}
		idx := strings.Index(text[cursor:], st)
		if idx < 0 {
			logger.Debug("[Segment] Sentence not found in source text", "sentence", util.Truncate(st, 60))
			continue
		}
		start := cursor + idx
		end := start + len(st)
		spans = append(spans, Span{
			Start: util.RuneOffset(text, start),
			End:   util.RuneOffset(text, end),
		})
		cursor = end
	}
	return spans, nil
}
