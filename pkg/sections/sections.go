package sections

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/OFFIS-RIT/paperkg/internal/util"
	"github.com/OFFIS-RIT/paperkg/pkg/common"
	"github.com/OFFIS-RIT/paperkg/pkg/rules"
)

const (
	// DefaultMinWords drops sections that are too short to carry entities.
	DefaultMinWords = 15
	Unlabeled       = "UNLABELED"
)

// RawSection is a section as emitted by the document converter.
type RawSection struct {
	Heading string `json:"heading"`
	Text    string `json:"text"`
}

// Content is the converter output for one paper. Figures are only read for
// page estimation and may be an object keyed by figure id or an array.
type Content struct {
	Title    string          `json:"title,omitempty"`
	Sections []RawSection    `json:"sections"`
	Figures  json.RawMessage `json:"figures,omitempty"`
}

type figure struct {
	CoordsGroups []struct {
		Page any `json:"page"`
	} `json:"coords_groups"`
}

// Options controls section filtering.
type Options struct {
	MinWords int
}

// ParseContent decodes converter output. Both {"sections": [...]} and a bare
// array of sections are accepted.
func ParseContent(data []byte) (Content, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var secs []RawSection
		if err := json.Unmarshal(data, &secs); err != nil {
			return Content{}, fmt.Errorf("failed to decode sections array: %w", err)
		}
		return Content{Sections: secs}, nil
	}

	var c Content
	if err := json.Unmarshal(data, &c); err != nil {
		return Content{}, fmt.Errorf("failed to decode content: %w", err)
	}
	return c, nil
}

// FigurePages returns the sorted distinct pages referenced by figure
// coordinates. Malformed figure metadata yields no pages.
func (c Content) FigurePages() []int {
	if len(c.Figures) == 0 {
		return nil
	}
	var figs []figure
	var byID map[string]figure
	if err := json.Unmarshal(c.Figures, &byID); err == nil {
		for _, f := range byID {
			figs = append(figs, f)
		}
	} else if err := json.Unmarshal(c.Figures, &figs); err != nil {
		return nil
	}

	seen := make(map[int]struct{})
	for _, f := range figs {
		for _, cg := range f.CoordsGroups {
			// integral pages only
			if p, ok := cg.Page.(float64); ok && p == float64(int(p)) {
				seen[int(p)] = struct{}{}
			}
		}
	}
	pages := make([]int, 0, len(seen))
	for p := range seen {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

// TextLength is the total rune count of all section texts.
func (c Content) TextLength() int {
	n := 0
	for _, s := range c.Sections {
		n += util.RuneLen(s.Text)
	}
	return n
}

// Filter drops empty and short sections, canonicalizes headings and assigns
// section indexes and global offsets. Offsets are rune offsets into the
// concatenation of all raw section texts.
func Filter(content Content, table *rules.Table, opts Options) []common.Section {
	minWords := opts.MinWords
	if minWords <= 0 {
		minWords = DefaultMinWords
	}

	out := make([]common.Section, 0, len(content.Sections))
	cursor := 0
	for _, sec := range content.Sections {
		raw := sec.Text
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		if len(strings.Fields(text)) < minWords {
			cursor += util.RuneLen(raw)
			continue
		}

		heading := strings.TrimSpace(sec.Heading)
		if heading == "" {
			heading = Unlabeled
		}
		heading = table.Heading(heading)

		start := cursor + util.RuneOffset(raw, strings.Index(raw, text))
		out = append(out, common.Section{
			Heading:         heading,
			Text:            text,
			SectionIndex:    len(out),
			CharStartGlobal: start,
			CharEndGlobal:   start + util.RuneLen(text),
		})
		cursor += util.RuneLen(raw)
	}
	return out
}
