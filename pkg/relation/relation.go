// Package relation derives typed edges between entities that share a sentence.
package relation

import (
	"context"

	"github.com/OFFIS-RIT/paperkg/internal/util"
	"github.com/OFFIS-RIT/paperkg/pkg/common"
	"github.com/OFFIS-RIT/paperkg/pkg/logger"
	"github.com/OFFIS-RIT/paperkg/pkg/nlp"
	"github.com/OFFIS-RIT/paperkg/pkg/rules"

	"github.com/samber/lo"
)

// Options controls relation extraction.
type Options struct {
	// EnablePatterns turns the verb pattern pass on.
	EnablePatterns bool
	// MaxEntitiesPatternSentence skips the verb pass for crowded sentences.
	MaxEntitiesPatternSentence int
	// EvidenceChars is the length of the stored evidence snippet.
	EvidenceChars int
}

func DefaultOptions() Options {
	return Options{
		EnablePatterns:             true,
		MaxEntitiesPatternSentence: 40,
		EvidenceChars:              240,
	}
}

type Extractor struct {
	registry *nlp.Registry
	table    *rules.Table
	opts     Options
}

func NewExtractor(registry *nlp.Registry, table *rules.Table, opts Options) *Extractor {
	return &Extractor{registry: registry, table: table, opts: opts}
}

// IndexBySentence groups mentions by sentence id, keeping mention order.
func IndexBySentence(mentions []common.EntityMention) map[int][]common.EntityMention {
	return lo.GroupBy(mentions, func(m common.EntityMention) int {
		return m.SentenceID
	})
}

// Extract runs the co-occurrence pass over all sentences, then the verb
// pattern pass. Relation ids are contiguous across both passes.
func (e *Extractor) Extract(
	ctx context.Context,
	sentences []common.Sentence,
	bySentence map[int][]common.EntityMention,
) ([]common.Relation, error) {
	rels := e.cooccurrence(sentences, bySentence)
	cooc := len(rels)

	if e.opts.EnablePatterns {
		verbRels, err := e.verbPatterns(ctx, sentences, bySentence, len(rels))
		if err != nil {
			return nil, err
		}
		rels = append(rels, verbRels...)
	}

	logger.Debug("[Relation] Extracted relations", "cooc", cooc, "verb", len(rels)-cooc)
	return rels, nil
}

func (e *Extractor) cooccurrence(sentences []common.Sentence, bySentence map[int][]common.EntityMention) []common.Relation {
	var rels []common.Relation
	rid := 0
	for _, sent := range sentences {
		ents := bySentence[sent.SID]
		for i := 0; i < len(ents); i++ {
			for j := i + 1; j < len(ents); j++ {
				a, b := ents[i], ents[j]
				if a.NodeType == "" || b.NodeType == "" {
					continue
				}
				relType, ok := e.table.Cooc(a.NodeType, b.NodeType)
				if !ok {
					if rev, found := e.table.Cooc(b.NodeType, a.NodeType); found {
						relType = rev
						a, b = b, a
					} else if a.NodeType == common.NodeGeneProduct && b.NodeType == common.NodeGeneProduct {
						relType = e.geneInteraction()
					} else {
						continue
					}
				}
				rels = append(rels, e.newRelation(rid, relType, a, b, sent, common.MethodCooc, nil))
				rid++
			}
		}
	}
	return rels
}

func (e *Extractor) verbPatterns(
	ctx context.Context,
	sentences []common.Sentence,
	bySentence map[int][]common.EntityMention,
	startRID int,
) ([]common.Relation, error) {
	tagger, ok := e.registry.Tagger(ctx)
	if !ok {
		return nil, nil
	}

	var rels []common.Relation
	rid := startRID
	for _, sent := range sentences {
		ents := bySentence[sent.SID]
		if len(ents) < 2 || len(ents) > e.opts.MaxEntitiesPatternSentence {
			continue
		}
		tokens, err := tagger.Tag(ctx, sent.Text)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("[Relation] Tagging failed, skipping sentence", "sid", sent.SID, "err", err)
			continue
		}

		for _, tok := range tokens {
			if !tok.IsVerb() {
				continue
			}
			family, lemma, found := e.table.VerbFamily(verbForm(tok))
			if !found {
				continue
			}
			for ai := range ents {
				for bi := range ents {
					if ai == bi {
						continue
					}
					a, b := ents[ai], ents[bi]
					if a.NodeType == "" || b.NodeType == "" {
						continue
					}
					relType, ok := e.table.VerbRelation(a.NodeType, b.NodeType, family)
					if !ok {
						continue
					}
					rels = append(rels, e.newRelation(rid, relType, a, b, sent, common.MethodVerb, common.Ptr(lemma)))
					rid++
				}
			}
		}
	}
	return rels, nil
}

func (e *Extractor) newRelation(
	rid int,
	relType string,
	src, tgt common.EntityMention,
	sent common.Sentence,
	method string,
	trigger *string,
) common.Relation {
	pattern := common.PatternCooc
	if method == common.MethodVerb {
		pattern = common.PatternVerb
	}
	return common.Relation{
		RID:            rid,
		Type:           relType,
		SourceEID:      src.EID,
		TargetEID:      tgt.EID,
		SentenceID:     common.Ptr(sent.SID),
		SectionHeading: common.Ptr(sent.SectionHeading),
		EvidenceSpan:   common.Ptr(util.Truncate(sent.Text, e.opts.EvidenceChars)),
		Method:         method,
		Trigger:        trigger,
		PatternType:    pattern,
	}
}

func (e *Extractor) geneInteraction() string {
	if e.table.GeneInteraction != "" {
		return e.table.GeneInteraction
	}
	return common.RelGeneInteractsWithGene
}

func verbForm(tok nlp.Token) string {
	if tok.Lemma != "" {
		return tok.Lemma
	}
	return tok.Text
}
