package segment

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/OFFIS-RIT/paperkg/internal/util"
)

var (
	tableDelimRe = regexp.MustCompile(`^\s*\|?\s*:?-{3,}:?\s*(\|\s*:?-{3,}:?\s*)+\|?\s*$`)
	blankLineRe  = regexp.MustCompile(`\n[ \t\r]*\n`)
)

var defaultAbbreviations = []string{
	"e.g.", "i.e.", "al.", "fig.", "figs.", "vs.", "approx.", "ca.", "cf.", "eq.", "no.", "ref.", "refs.", "resp.",
}

// RuleSegmenter is a dependency free sentence splitter. Sentences end on
// '.', '!' or '?' followed by whitespace, trailing quotes and brackets stay
// with the sentence, blank lines always end a sentence and markdown tables
// are kept as one block.
type RuleSegmenter struct {
	abbreviations map[string]struct{}
}

func NewRuleSegmenter(abbreviations ...string) *RuleSegmenter {
	if len(abbreviations) == 0 {
		abbreviations = defaultAbbreviations
	}
	set := make(map[string]struct{}, len(abbreviations))
	for _, a := range abbreviations {
		set[strings.ToLower(a)] = struct{}{}
	}
	return &RuleSegmenter{abbreviations: set}
}

func (r *RuleSegmenter) Name() string {
	return "rule"
}

func (r *RuleSegmenter) Split(_ context.Context, text string) ([]Span, error) {
	var byteSpans [][2]int

	blockStart := 0
	for _, loc := range blankLineRe.FindAllStringIndex(text, -1) {
		byteSpans = append(byteSpans, r.splitBlock(text, blockStart, loc[0])...)
		blockStart = loc[1]
	}
	byteSpans = append(byteSpans, r.splitBlock(text, blockStart, len(text))...)

	spans := make([]Span, 0, len(byteSpans))
	for _, bs := range byteSpans {
		spans = append(spans, Span{
			Start: util.RuneOffset(text, bs[0]),
			End:   util.RuneOffset(text, bs[1]),
		})
	}
	return spans, nil
}

func (r *RuleSegmenter) splitBlock(text string, from, to int) [][2]int {
	block := text[from:to]
	if isTableBlock(block) {
		if s, e, ok := trimSpan(text, from, to); ok {
			return [][2]int{{s, e}}
		}
		return nil
	}

	var out [][2]int
	emit := func(s, e int) {
		if ts, te, ok := trimSpan(text, s, e); ok {
			out = append(out, [2]int{ts, te})
		}
	}

	start := from
	for i := from; i < to; i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		// "1. item" style listings
		if c == '.' && i > from && isDigit(text[i-1]) && i+1 < to && text[i+1] == ' ' {
			continue
		}

		j := i + 1
		for j < to && (text[j] == '.' || text[j] == '!' || text[j] == '?') {
			j++
		}
		for j < to && strings.IndexByte("\"')]}", text[j]) >= 0 {
			j++
		}
		if j < to && !isSpace(text[j]) {
			i = j - 1
			continue
		}
		if c == '.' && r.isAbbreviation(text[start:i+1]) {
			i = j - 1
			continue
		}

		emit(start, j)
		start = j
		i = j - 1
	}
	emit(start, to)
	return out
}

func (r *RuleSegmenter) isAbbreviation(candidate string) bool {
	word := candidate
	if idx := strings.LastIndexAny(candidate, " \t\n("); idx >= 0 {
		word = candidate[idx+1:]
	}
	if _, ok := r.abbreviations[strings.ToLower(word)]; ok {
		return true
	}
	// initials such as "J."
	return len(word) == 2 && word[0] < unicode.MaxASCII && unicode.IsUpper(rune(word[0]))
}

func isTableBlock(block string) bool {
	lines := strings.Split(strings.TrimSpace(block), "\n")
	if len(lines) < 2 {
		return false
	}
	return strings.Contains(lines[0], "|") && tableDelimRe.MatchString(strings.TrimSpace(lines[1]))
}

func trimSpan(text string, s, e int) (int, int, bool) {
	for s < e && isSpace(text[s]) {
		s++
	}
	for e > s && isSpace(text[e-1]) {
		e--
	}
	return s, e, e > s
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}
