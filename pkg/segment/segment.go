package segment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/paperkg/pkg/common"
	"github.com/OFFIS-RIT/paperkg/pkg/logger"
)

// ErrNoSections is returned when there is nothing to segment because the
// upstream section artifact is missing.
var ErrNoSections = errors.New("no sections to segment")

// Span is a sentence boundary inside a text, in rune offsets.
// End is exclusive and the covered text has no leading or trailing whitespace.
type Span struct {
	Start int
	End   int
}

// Segmenter splits text into sentence spans.
type Segmenter interface {
	Name() string
	Split(ctx context.Context, text string) ([]Span, error)
}

// New returns the segmenter registered under name ("prose" or "rule").
func New(name string) (Segmenter, error) {
	switch strings.ToLower(name) {
	case "", "prose":
		return NewProseSegmenter(), nil
	case "rule":
		return NewRuleSegmenter(), nil
	default:
		return nil, fmt.Errorf("unknown segmenter %q", name)
	}
}

// Segment splits every section into sentences. Sentence ids come from a single
// counter shared by all sections and global offsets are the section start plus
// the local offset.
func Segment(ctx context.Context, seg Segmenter, sections []common.Section) ([]common.Sentence, error) {
	if sections == nil {
		return nil, ErrNoSections
	}

	var sentences []common.Sentence
	sid := 0
	for _, sec := range sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		spans, err := seg.Split(ctx, sec.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to segment section %d: %w", sec.SectionIndex, err)
		}

		runes := []rune(sec.Text)
		for _, sp := range spans {
			if sp.Start < 0 || sp.End > len(runes) || sp.End <= sp.Start {
				continue
			}
			text := string(runes[sp.Start:sp.End])
			if strings.TrimSpace(text) == "" {
				continue
			}
			sentences = append(sentences, common.Sentence{
				SID:              sid,
				SectionIndex:     sec.SectionIndex,
				SectionHeading:   sec.Heading,
				Text:             text,
				CharStartSection: sp.Start,
				CharEndSection:   sp.End,
				CharStartGlobal:  sec.CharStartGlobal + sp.Start,
				CharEndGlobal:    sec.CharStartGlobal + sp.End,
			})
			sid++
		}
	}

	logger.Debug("[Segment] Sentences created", "segmenter", seg.Name(), "sections", len(sections), "sentences", len(sentences))
	return sentences, nil
}
