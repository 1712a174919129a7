// Package view derives read-only, UI sized projections of an aggregated
// paper graph: a capped visualization, a reduced overview and one connected
// subgraph per section.
package view

import (
	"math"
	"slices"
	"sort"

	"github.com/OFFIS-RIT/paperkg/pkg/common"
	"github.com/OFFIS-RIT/paperkg/pkg/graph"
	"github.com/OFFIS-RIT/paperkg/pkg/rules"

	"github.com/samber/lo"
)

// Layout modes.
const (
	LayoutRadial   = "radial"
	LayoutCircular = "circular"
	LayoutRandom   = "random"
)

type VisOptions struct {
	MaxNodes      int
	StrictMax     int
	MinFrequency  int
	PriorityTypes []string
	Layout        string
	SizeMin       float64
	SizeMax       float64
	// Rules supplies the palette. Defaults to the embedded table.
	Rules *rules.Table
}

func DefaultVisOptions() VisOptions {
	return VisOptions{
		MaxNodes:     120,
		StrictMax:    80,
		MinFrequency: 1,
		PriorityTypes: []string{
			common.NodeGeneProduct,
			common.NodePathway,
			common.NodeDisease,
			common.NodePhenotype,
		},
		Layout:  LayoutRadial,
		SizeMin: 4,
		SizeMax: 28,
	}
}

type VisNode struct {
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	Type      string   `json:"type"`
	Color     string   `json:"color"`
	Degree    int      `json:"degree"`
	Sections  []string `json:"sections"`
	Frequency int      `json:"frequency"`
	Size      float64  `json:"size"`
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
}

type VisEdge struct {
	ID      int     `json:"id"`
	Source  string  `json:"source"`
	Target  string  `json:"target"`
	Type    string  `json:"type"`
	Method  string  `json:"method"`
	Trigger *string `json:"trigger"`
}

type Counts struct {
	Entities  int `json:"entities"`
	Relations int `json:"relations"`
}

type VisConfigUsed struct {
	Layout       string `json:"layout"`
	MaxNodes     int    `json:"max_nodes"`
	StrictMax    int    `json:"strict_max"`
	MinFrequency int    `json:"min_frequency"`
}

type VisMeta struct {
	PaperID        string        `json:"paper_id"`
	OriginalCounts Counts        `json:"original_counts"`
	VisualCounts   Counts        `json:"visual_counts"`
	ConfigUsed     VisConfigUsed `json:"config_used"`
}

// Visualization is graph_vis.json.
type Visualization struct {
	Nodes []VisNode `json:"nodes"`
	Edges []VisEdge `json:"edges"`
	Meta  VisMeta   `json:"meta"`
}

// BuildVisualization scores nodes by (priority type, degree, frequency),
// caps them to opts.MaxNodes and lays them out deterministically. Returned
// edges only connect returned nodes; the input graph is not modified.
func BuildVisualization(g common.Graph, opts VisOptions) Visualization {
	table := opts.Rules
	if table == nil {
		table = rules.MustDefault()
	}
	maxNodes := opts.MaxNodes
	if maxNodes < 0 {
		maxNodes = 0
	}
	strictMax := opts.StrictMax
	if strictMax <= 0 {
		strictMax = maxNodes
	}

	degree := graph.Degrees(g.Relations)
	candidates := make([]scored, 0, len(g.Entities))
	for _, e := range g.Entities {
		if e.Frequency < opts.MinFrequency {
			continue
		}
		prio := 0
		if slices.Contains(opts.PriorityTypes, e.NodeType) {
			prio = 1
		}
		candidates = append(candidates, scored{prio, degree[e.EID], e.Frequency, e})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.priority != b.priority {
			return a.priority > b.priority
		}
		if a.degree != b.degree {
			return a.degree > b.degree
		}
		return a.freq > b.freq
	})

	if len(candidates) > strictMax {
		candidates = candidates[:strictMax]
	}
	edges := induced(g.Relations, entitiesOf(candidates))
	if len(candidates) > maxNodes {
		// Second cut ignores the priority flag.
		sort.SliceStable(candidates, func(i, j int) bool {
			a, b := candidates[i], candidates[j]
			if a.degree != b.degree {
				return a.degree > b.degree
			}
			return a.freq > b.freq
		})
		candidates = candidates[:maxNodes]
		edges = induced(edges, entitiesOf(candidates))
	}
	selected := entitiesOf(candidates)

	subDegree := graph.Degrees(edges)
	dMin, dMax := 0, 0
	for i, e := range selected {
		d := subDegree[e.EID]
		if i == 0 || d < dMin {
			dMin = d
		}
		if i == 0 || d > dMax {
			dMax = d
		}
	}
	scale := func(d int) float64 {
		if dMax == dMin {
			return (opts.SizeMin + opts.SizeMax) / 2
		}
		return opts.SizeMin + float64(d-dMin)/float64(dMax-dMin)*(opts.SizeMax-opts.SizeMin)
	}

	n := len(selected)
	nodes := make([]VisNode, 0, n)
	for idx, e := range selected {
		d := subDegree[e.EID]
		x, y := position(opts.Layout, idx, n, d, dMax)
		nodeType := e.NodeType
		if nodeType == "" {
			nodeType = "ENTITY"
		}
		sections := e.Sections
		if sections == nil {
			sections = []string{}
		}
		nodes = append(nodes, VisNode{
			ID:        e.EID,
			Label:     e.Mention,
			Type:      nodeType,
			Color:     table.Color(nodeType),
			Degree:    d,
			Sections:  sections,
			Frequency: e.Frequency,
			Size:      round(scale(d), 2),
			X:         x,
			Y:         y,
		})
	}

	visEdges := make([]VisEdge, 0, len(edges))
	for _, r := range edges {
		relType := r.Type
		if relType == "" {
			relType = "RELATED_TO"
		}
		visEdges = append(visEdges, VisEdge{
			ID:      r.RID,
			Source:  r.SourceEID,
			Target:  r.TargetEID,
			Type:    relType,
			Method:  r.Method,
			Trigger: r.Trigger,
		})
	}

	return Visualization{
		Nodes: nodes,
		Edges: visEdges,
		Meta: VisMeta{
			PaperID:        g.PaperID,
			OriginalCounts: Counts{Entities: len(g.Entities), Relations: len(g.Relations)},
			VisualCounts:   Counts{Entities: len(nodes), Relations: len(visEdges)},
			ConfigUsed: VisConfigUsed{
				Layout:       opts.Layout,
				MaxNodes:     maxNodes,
				StrictMax:    strictMax,
				MinFrequency: opts.MinFrequency,
			},
		},
	}
}

type scored struct {
	priority int
	degree   int
	freq     int
	entity   common.GraphEntity
}

func entitiesOf(candidates []scored) []common.GraphEntity {
	out := make([]common.GraphEntity, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.entity)
	}
	return out
}

// position places node idx of n. Radial and circular layouts use equal angular
// steps on the unit circle; radial pulls hubs inward. Anything else falls back
// to a fixed arithmetic scatter.
func position(layout string, idx, n, degree, maxDegree int) (float64, float64) {
	switch layout {
	case LayoutRadial, LayoutCircular:
		angle := 2 * math.Pi * float64(idx) / float64(max(1, n))
		r := 1.0
		if layout == LayoutRadial && degree > 0 && maxDegree > 0 {
			r *= 0.4 + 0.6*(1-float64(degree)/float64(maxDegree))
		}
		return round(r*math.Cos(angle), 4), round(r*math.Sin(angle), 4)
	default:
		x := float64((idx*37)%100)/50 - 1
		y := float64((idx*91)%100)/50 - 1
		return round(x, 4), round(y, 4)
	}
}

// induced keeps the relations whose endpoints are both in nodes.
func induced(rels []common.Relation, nodes []common.GraphEntity) []common.Relation {
	keep := lo.SliceToMap(nodes, func(e common.GraphEntity) (string, struct{}) {
		return e.EID, struct{}{}
	})
	return lo.Filter(rels, func(r common.Relation, _ int) bool {
		_, okS := keep[r.SourceEID]
		_, okT := keep[r.TargetEID]
		return okS && okT
	})
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
