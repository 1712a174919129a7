// Package graph aggregates entity mentions and relations of one paper into a
// single navigable graph anchored on a synthetic publication node.
package graph

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/OFFIS-RIT/paperkg/internal/util"
	"github.com/OFFIS-RIT/paperkg/pkg/common"
	"github.com/OFFIS-RIT/paperkg/pkg/logger"
	"github.com/OFFIS-RIT/paperkg/pkg/rules"
)

// Options controls aggregation.
type Options struct {
	// ForceConnectivity links every remaining node to the publication node
	// when the entity graph has more than one component.
	ForceConnectivity bool
	// Rules supplies the noisy mention patterns. Defaults to the embedded table.
	Rules *rules.Table
}

// Aggregate collapses mentions into nodes, drops noisy nodes and the
// relations touching them, injects the publication node and computes stats.
// Malformed records are skipped, never reported.
func Aggregate(
	mentions []common.EntityMention,
	relations []common.Relation,
	paperID string,
	opts Options,
) common.Graph {
	table := opts.Rules
	if table == nil {
		table = rules.MustDefault()
	}

	entities := simplify(mentions, paperID, table)
	valid := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		valid[e.EID] = struct{}{}
	}

	rels := make([]common.Relation, 0, len(relations))
	for _, r := range relations {
		_, okS := valid[r.SourceEID]
		_, okT := valid[r.TargetEID]
		if okS && okT {
			rels = append(rels, r)
		}
	}
	if dropped := len(relations) - len(rels); dropped > 0 {
		logger.Debug("[Graph] Dropped dangling relations", "paper_id", paperID, "count", dropped)
	}

	pub := publicationNode(paperID)
	entities = append(entities, pub)
	rels = linkIsolated(pub.EID, entities, rels)
	if opts.ForceConnectivity {
		rels = forceConnectivity(pub.EID, entities, rels)
	}

	g := common.Graph{
		PaperID:   paperID,
		Entities:  entities,
		Relations: rels,
	}
	g.Stats = ComputeStats(g.Entities, g.Relations)
	return g
}

func simplify(mentions []common.EntityMention, paperID string, table *rules.Table) []common.GraphEntity {
	type acc struct {
		first    common.EntityMention
		sections map[string]struct{}
		count    int
	}

	order := make([]string, 0)
	byEID := make(map[string]*acc)
	for _, m := range mentions {
		a, ok := byEID[m.EID]
		if !ok {
			a = &acc{first: m, sections: make(map[string]struct{})}
			byEID[m.EID] = a
			order = append(order, m.EID)
		}
		if m.SectionHeading != "" {
			a.sections[m.SectionHeading] = struct{}{}
		}
		a.count++
	}

	out := make([]common.GraphEntity, 0, len(order))
	for _, eid := range order {
		a := byEID[eid]
		first := a.first
		mention := first.Mention
		if mention == "" {
			mention = first.Canonical
		}
		if mention == "" {
			mention = eid
		}
		if IsNoisyMention(mention, table) {
			continue
		}

		out = append(out, common.GraphEntity{
			EID:       eid,
			Mention:   mention,
			NodeType:  first.NodeType,
			Role:      first.Role,
			Frequency: a.count,
			Sections:  sortedKeys(a.sections),
			Nav: &common.Nav{
				Section:    first.SectionHeading,
				SentenceID: first.SentenceID,
				CharStart:  first.CharStartGlobal,
				CharEnd:    first.CharEndGlobal,
				Anchor:     fmt.Sprintf("%s_%d_%d", paperID, first.CharStartGlobal, first.CharEndGlobal),
			},
		})
	}
	return out
}

// IsNoisyMention reports mentions that carry no value as graph nodes: the
// rule table patterns (numbers, figure and table references), tokens of two
// characters or fewer, and tokens without any letter or digit.
func IsNoisyMention(mention string, table *rules.Table) bool {
	m := strings.TrimSpace(mention)
	if m == "" {
		return true
	}
	if table != nil && table.IsNoisyMention(m) {
		return true
	}
	if util.RuneLen(m) <= 2 {
		return true
	}
	return strings.IndexFunc(m, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) < 0
}

func publicationNode(paperID string) common.GraphEntity {
	return common.GraphEntity{
		EID:       common.PublicationID(paperID),
		Mention:   paperID,
		NodeType:  common.NodePublication,
		Frequency: 1,
		Sections:  []string{},
	}
}

func evidenceEdge(rid int, pubID, target, method string) common.Relation {
	return common.Relation{
		RID:         rid,
		Type:        common.RelPublicationEvidencesEntity,
		SourceEID:   pubID,
		TargetEID:   target,
		Method:      method,
		PatternType: common.PatternEvidence,
	}
}

func nextRID(rels []common.Relation) int {
	highest := -1
	for _, r := range rels {
		if r.RID > highest {
			highest = r.RID
		}
	}
	return highest + 1
}

// linkIsolated adds an evidence edge from the publication node to every node
// without any relation.
func linkIsolated(pubID string, entities []common.GraphEntity, rels []common.Relation) []common.Relation {
	degree := Degrees(rels)
	rid := nextRID(rels)
	for _, e := range entities {
		if e.EID == pubID || degree[e.EID] > 0 {
			continue
		}
		rels = append(rels, evidenceEdge(rid, pubID, e.EID, common.MethodPublicationLink))
		rid++
	}
	return rels
}

// forceConnectivity links every node not yet adjacent to the publication node
// when the graph without the publication node has several components.
func forceConnectivity(pubID string, entities []common.GraphEntity, rels []common.Relation) []common.Relation {
	ids := make([]string, 0, len(entities))
	for _, e := range entities {
		if e.EID != pubID {
			ids = append(ids, e.EID)
		}
	}
	if len(Components(ids, rels)) <= 1 {
		return rels
	}

	adjacent := make(map[string]struct{})
	for _, r := range rels {
		if r.SourceEID == pubID {
			adjacent[r.TargetEID] = struct{}{}
		}
		if r.TargetEID == pubID {
			adjacent[r.SourceEID] = struct{}{}
		}
	}

	rid := nextRID(rels)
	for _, id := range ids {
		if _, ok := adjacent[id]; ok {
			continue
		}
		rels = append(rels, evidenceEdge(rid, pubID, id, common.MethodPublicationConnectivity))
		rid++
	}
	return rels
}
