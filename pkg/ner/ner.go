// Package ner turns sentences into typed entity mentions using the providers
// of an nlp.Registry and the typing heuristics of a rules.Table.
package ner

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/OFFIS-RIT/paperkg/internal/util"
	"github.com/OFFIS-RIT/paperkg/pkg/common"
	"github.com/OFFIS-RIT/paperkg/pkg/logger"
	"github.com/OFFIS-RIT/paperkg/pkg/nlp"
	"github.com/OFFIS-RIT/paperkg/pkg/rules"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const (
	RoleThermalParameter = "THERMAL_PARAMETER"
	RoleLabReagent       = "LAB_REAGENT"
	RoleHousekeepingGene = "HOUSEKEEPING_GENE"
)

// Options controls span filtering.
type Options struct {
	MinLen int
	MaxLen int
	// FilterTypes restricts output to these node types. Empty keeps all.
	FilterTypes []string
	// MaxSentenceChars clamps the text handed to providers.
	MaxSentenceChars int
	// Concurrency is the number of sentences processed in parallel.
	Concurrency int
}

func DefaultOptions() Options {
	return Options{
		MinLen:           2,
		MaxLen:           80,
		MaxSentenceChars: 5000,
		Concurrency:      4,
	}
}

// Extractor runs the registered providers over sentences.
type Extractor struct {
	registry *nlp.Registry
	table    *rules.Table
	opts     Options
	allowed  map[string]bool
}

func NewExtractor(registry *nlp.Registry, table *rules.Table, opts Options) *Extractor {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	var allowed map[string]bool
	if len(opts.FilterTypes) > 0 {
		allowed = lo.Associate(opts.FilterTypes, func(t string) (string, bool) {
			return t, true
		})
	}
	return &Extractor{registry: registry, table: table, opts: opts, allowed: allowed}
}

type candidate struct {
	span     nlp.Span
	label    string
	provider string
}

// Extract returns the accepted mentions of all sentences in sentence order.
// A provider error only drops that provider's spans for the sentence.
func (e *Extractor) Extract(ctx context.Context, sentences []common.Sentence) ([]common.EntityMention, error) {
	providers := e.registry.Providers(ctx)
	if len(providers) == 0 {
		logger.Warn("[NER] No entity provider available")
	}

	perSentence := make([][]common.EntityMention, len(sentences))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for i := range sentences {
		g.Go(func() error {
			mentions, err := e.extractSentence(gctx, providers, sentences[i])
			if err != nil {
				return err
			}
			perSentence[i] = mentions
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []common.EntityMention
	eid := 0
	for _, mentions := range perSentence {
		for _, m := range mentions {
			m.EID = strconv.Itoa(eid)
			eid++
			out = append(out, m)
		}
	}
	logger.Debug("[NER] Extracted mentions", "sentences", len(sentences), "mentions", len(out))
	return out, nil
}

func (e *Extractor) extractSentence(ctx context.Context, providers []nlp.Provider, sent common.Sentence) ([]common.EntityMention, error) {
	text := sent.Text
	if e.opts.MaxSentenceChars > 0 {
		text = util.Truncate(text, e.opts.MaxSentenceChars)
	}

	var candidates []candidate
	for _, p := range providers {
		spans, err := p.Extract(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("[NER] Provider failed on sentence", "provider", p.Name(), "sid", sent.SID, "err", err)
			continue
		}
		for _, s := range spans {
			candidates = append(candidates, candidate{
				span:     s,
				label:    normalizeLabel(s.Label),
				provider: p.Name(),
			})
		}
	}

	var out []common.EntityMention
	for _, c := range mergeSpans(candidates) {
		m, ok := e.accept(c, sent)
		if ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// mergeSpans keeps the first candidate of every exact
// (start, end, label, lowercased mention) key. Candidates must be ordered by
// provider priority. Partially overlapping spans are all kept.
func mergeSpans(candidates []candidate) []candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		key := spanKey(c)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

func spanKey(c candidate) string {
	return fmt.Sprintf("%d:%d:%s:%s", c.span.Start, c.span.End, c.label, strings.ToLower(c.span.Text))
}

func (e *Extractor) accept(c candidate, sent common.Sentence) (common.EntityMention, bool) {
	t := e.table
	mention, start, end := trimSpan(c.span)
	if mention == "" {
		return common.EntityMention{}, false
	}
	length := util.RuneLen(mention)

	if t.IsBlacklisted(mention) {
		return common.EntityMention{}, false
	}
	if length < e.opts.MinLen || (e.opts.MaxLen > 0 && length > e.opts.MaxLen) {
		return common.EntityMention{}, false
	}
	if isNoisy(mention) && !t.IsKnownGene(mention) && !t.IsTemperature(mention) {
		return common.EntityMention{}, false
	}
	if t.IsStopTerm(mention) {
		return common.EntityMention{}, false
	}
	if length < 3 && !t.IsGeneSymbol(mention) {
		return common.EntityMention{}, false
	}

	nodeType, ok := t.NodeType(c.label)
	nodeType = e.overrideType(mention, nodeType, ok)
	if nodeType == "" {
		return common.EntityMention{}, false
	}

	drop, special, role := e.classifySpecial(mention)
	if drop {
		return common.EntityMention{}, false
	}
	if special != "" {
		nodeType = special
	}
	if e.allowed != nil && !e.allowed[nodeType] {
		return common.EntityMention{}, false
	}

	m := common.EntityMention{
		SentenceID:        sent.SID,
		SectionIndex:      sent.SectionIndex,
		SectionHeading:    sent.SectionHeading,
		Type:              c.label,
		NodeType:          nodeType,
		Mention:           mention,
		Canonical:         Canonical(mention, t.PreservesCase(nodeType)),
		Provider:          c.provider,
		CharStartSentence: start,
		CharEndSentence:   end,
		CharStartSection:  sent.CharStartSection + start,
		CharEndSection:    sent.CharStartSection + end,
		CharStartGlobal:   sent.CharStartGlobal + start,
		CharEndGlobal:     sent.CharStartGlobal + end,
	}
	if role != "" {
		m.Role = common.Ptr(role)
	}
	return m, true
}

// overrideType upgrades ambiguous provider types from the mention itself.
func (e *Extractor) overrideType(mention, current string, ok bool) string {
	t := e.table
	switch {
	case t.IsPathway(mention):
		return common.NodePathway
	case t.IsGeneSymbol(mention):
		return common.NodeGeneProduct
	case t.IsCellType(mention):
		return common.NodeCellType
	}
	if lit, found := t.LiteralType(mention); found {
		return lit
	}
	if !ok {
		return ""
	}
	return current
}

// classifySpecial reports whether mention must be dropped, or a node type and
// role that replace the mapped type.
func (e *Extractor) classifySpecial(mention string) (drop bool, nodeType, role string) {
	t := e.table
	switch {
	case t.IsTemperature(mention):
		return false, common.NodeExperimentalCondition, RoleThermalParameter
	case t.IsReagent(mention):
		return false, common.NodeReagent, RoleLabReagent
	case t.IsHousekeepingGene(mention):
		return false, common.NodeGeneProduct, RoleHousekeepingGene
	case t.IsNumberWord(mention):
		return true, "", ""
	}

	if strings.ToLower(mention) == mention &&
		isAlpha(mention) &&
		util.RuneLen(mention) <= t.Special.ShortLowerMax &&
		!t.IsShortWhitelisted(mention) {
		return true, "", ""
	}
	return false, "", ""
}

// Canonical normalizes a mention. Case preserving types are uppercased, all
// others are lowercased with a naive plural strip. Canonical is idempotent.
func Canonical(mention string, preserveCase bool) string {
	if preserveCase {
		return strings.ToUpper(mention)
	}
	base := strings.ToLower(mention)
	n := util.RuneLen(base)
	switch {
	case strings.HasSuffix(base, "ies") && n > 4:
		base = strings.TrimSuffix(base, "ies") + "y"
	case strings.HasSuffix(base, "s") && !strings.HasSuffix(base, "ss") && n > 4:
		base = strings.TrimSuffix(base, "s")
	}
	return base
}

func normalizeLabel(label string) string {
	l := strings.ToUpper(strings.TrimSpace(label))
	l = strings.TrimPrefix(l, "B-")
	l = strings.TrimPrefix(l, "I-")
	return l
}

// trimSpan strips surrounding whitespace from the span text and moves the
// rune offsets accordingly.
func trimSpan(s nlp.Span) (string, int, int) {
	lead := util.RuneLen(s.Text) - util.RuneLen(strings.TrimLeftFunc(s.Text, unicode.IsSpace))
	trimmed := strings.TrimSpace(s.Text)
	start := s.Start + lead
	return trimmed, start, start + util.RuneLen(trimmed)
}

// isNoisy flags tokens shorter than three characters or without any vowel.
func isNoisy(token string) bool {
	if util.RuneLen(token) < 3 {
		return true
	}
	return !strings.ContainsAny(token, "aeiouAEIOU")
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
