package view

import (
	"fmt"
	"sort"
	"strings"

	"github.com/OFFIS-RIT/paperkg/internal/util"
	"github.com/OFFIS-RIT/paperkg/pkg/common"
	"github.com/OFFIS-RIT/paperkg/pkg/graph"
)

const (
	DefaultOverviewLimit = 40

	StrategyTopDegreeFreq = "top_degree_freq"
	StrategyFallbackCore  = "fallback_core_derivation"

	shortLabelLen = 4
)

type OverviewNode struct {
	ID       string      `json:"id"`
	Label    string      `json:"label"`
	RawLabel string      `json:"raw_label"`
	Type     string      `json:"type"`
	Freq     int         `json:"freq"`
	Sections []string    `json:"sections"`
	Nav      *common.Nav `json:"nav"`
}

type OverviewEdge struct {
	ID     int    `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

type OverviewMeta struct {
	Strategy string `json:"strategy"`
	Limit    int    `json:"limit"`
}

// Overview is graph_overview.json.
type Overview struct {
	PaperID string         `json:"paper_id"`
	NNodes  int            `json:"n_nodes"`
	NEdges  int            `json:"n_edges"`
	Nodes   []OverviewNode `json:"nodes"`
	Edges   []OverviewEdge `json:"edges"`
	Meta    OverviewMeta   `json:"meta"`
}

// ExamplesFromNormalized indexes the surface variants of normalized entities
// by lowercased canonical form, the key BuildOverview looks labels up with.
func ExamplesFromNormalized(entities []common.NormalizedEntity) map[string][]string {
	out := make(map[string][]string, len(entities))
	for _, e := range entities {
		key := strings.ToLower(e.Canonical)
		out[key] = append(out[key], e.Examples...)
	}
	return out
}

// BuildOverview keeps the limit nodes with the highest (degree, frequency)
// and the relations between them. examples may be nil.
func BuildOverview(g common.Graph, limit int, examples map[string][]string) Overview {
	if limit <= 0 {
		limit = DefaultOverviewLimit
	}
	degree := graph.Degrees(g.Relations)
	top := append([]common.GraphEntity(nil), g.Entities...)
	sort.SliceStable(top, func(i, j int) bool {
		a, b := top[i], top[j]
		if degree[a.EID] != degree[b.EID] {
			return degree[a.EID] > degree[b.EID]
		}
		return a.Frequency > b.Frequency
	})
	if len(top) > limit {
		top = top[:limit]
	}

	nodes := make([]OverviewNode, 0, len(top))
	for _, e := range top {
		sections := e.Sections
		if sections == nil {
			sections = []string{}
		}
		nodes = append(nodes, OverviewNode{
			ID:       e.EID,
			Label:    DisplayLabel(e.Mention, e.NodeType, examples[strings.ToLower(e.Mention)]),
			RawLabel: e.Mention,
			Type:     e.NodeType,
			Freq:     e.Frequency,
			Sections: sections,
			Nav:      e.Nav,
		})
	}

	edges := make([]OverviewEdge, 0)
	for _, r := range induced(g.Relations, top) {
		edges = append(edges, OverviewEdge{ID: r.RID, Source: r.SourceEID, Target: r.TargetEID, Type: r.Type})
	}

	return Overview{
		PaperID: g.PaperID,
		NNodes:  len(nodes),
		NEdges:  len(edges),
		Nodes:   nodes,
		Edges:   edges,
		Meta:    OverviewMeta{Strategy: StrategyTopDegreeFreq, Limit: limit},
	}
}

// FallbackOverview derives an overview from graph_core.json when the full
// graph is unavailable. Labels are not decorated.
func FallbackOverview(core graph.Core, limit int) Overview {
	if limit <= 0 {
		limit = DefaultOverviewLimit
	}
	degree := make(map[string]int)
	for _, e := range core.Edges {
		degree[e.Source]++
		degree[e.Target]++
	}
	top := append([]graph.CoreNode(nil), core.Nodes...)
	sort.SliceStable(top, func(i, j int) bool {
		a, b := top[i], top[j]
		if degree[a.ID] != degree[b.ID] {
			return degree[a.ID] > degree[b.ID]
		}
		return a.Freq > b.Freq
	})
	if len(top) > limit {
		top = top[:limit]
	}

	keep := make(map[string]struct{}, len(top))
	nodes := make([]OverviewNode, 0, len(top))
	for _, n := range top {
		keep[n.ID] = struct{}{}
		nodes = append(nodes, OverviewNode{
			ID:       n.ID,
			Label:    n.Label,
			RawLabel: n.Label,
			Type:     n.Type,
			Freq:     n.Freq,
			Sections: []string{},
			Nav:      n.Nav,
		})
	}
	edges := make([]OverviewEdge, 0)
	for _, e := range core.Edges {
		_, okS := keep[e.Source]
		_, okT := keep[e.Target]
		if okS && okT {
			edges = append(edges, OverviewEdge{ID: e.ID, Source: e.Source, Target: e.Target, Type: e.Type})
		}
	}

	return Overview{
		PaperID: core.PaperID,
		NNodes:  len(nodes),
		NEdges:  len(edges),
		Nodes:   nodes,
		Edges:   edges,
		Meta:    OverviewMeta{Strategy: StrategyFallbackCore, Limit: limit},
	}
}

// DisplayLabel expands cryptic short labels. A label under four characters
// gets the first differing example appended, then an abbreviation of its
// node type if it is still short.
func DisplayLabel(raw, nodeType string, examples []string) string {
	label := raw
	if util.RuneLen(raw) < shortLabelLen {
		for _, ex := range examples {
			if !strings.EqualFold(ex, raw) {
				label = fmt.Sprintf("%s · %s", raw, ex)
				break
			}
		}
	}
	if util.RuneLen(label) < shortLabelLen && nodeType != "" {
		label = fmt.Sprintf("%s (%s)", label, abbreviate(nodeType))
	}
	if label == "" {
		if nodeType != "" {
			return nodeType
		}
		return "Entity"
	}
	return label
}

// abbreviate turns GENE_PRODUCT into GP.
func abbreviate(nodeType string) string {
	var b strings.Builder
	for _, w := range strings.Fields(strings.ReplaceAll(nodeType, "_", " ")) {
		r := []rune(w)
		b.WriteString(strings.ToUpper(string(r[0])))
	}
	return b.String()
}
