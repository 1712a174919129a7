package view

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/OFFIS-RIT/paperkg/internal/util"
	"github.com/OFFIS-RIT/paperkg/pkg/common"
	"github.com/OFFIS-RIT/paperkg/pkg/graph"
)

// Section ranking strategies.
const (
	RankDegreeFrequency = "degree_frequency"
	RankFrequency       = "frequency"
)

const (
	syntheticEdgeType = "ASSOCIATED"
	syntheticSource   = "ensure_overview_drilldown"
)

type SectionOptions struct {
	MaxNodes     int
	MinFrequency int
	Ranking      string
	// IncludeCrossSectionEdges also keeps relations of other sections whose
	// endpoints both made it into the section.
	IncludeCrossSectionEdges bool
	SlugMaxLen               int
}

func DefaultSectionOptions() SectionOptions {
	return SectionOptions{
		MaxNodes:     40,
		MinFrequency: 1,
		Ranking:      RankDegreeFrequency,
		SlugMaxLen:   40,
	}
}

type SectionNode struct {
	ID    string      `json:"id"`
	Label string      `json:"label"`
	Type  string      `json:"type"`
	Freq  int         `json:"freq"`
	Nav   *common.Nav `json:"nav"`
}

// SectionEdge ids are strings so synthetic star edges fit next to relation ids.
type SectionEdge struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type Connectivity struct {
	Components        int   `json:"components"`
	RemovedOrphans    int   `json:"removed_orphans"`
	LargestComponent  int   `json:"largest_component"`
	RemovedComponents []int `json:"removed_components,omitempty"`
}

type SectionMeta struct {
	Connectivity *Connectivity `json:"connectivity,omitempty"`
	Page         *int          `json:"page"`
	Synthetic    bool          `json:"synthetic,omitempty"`
	Source       string        `json:"source,omitempty"`
	NodeType     string        `json:"node_type,omitempty"`
}

// SectionSubgraph is one section_NN_<slug>.json file.
type SectionSubgraph struct {
	PaperID string        `json:"paper_id"`
	Section string        `json:"section"`
	NNodes  int           `json:"n_nodes"`
	NEdges  int           `json:"n_edges"`
	Nodes   []SectionNode `json:"nodes"`
	Edges   []SectionEdge `json:"edges"`
	Meta    SectionMeta   `json:"meta"`
}

type SectionEntry struct {
	ID        int    `json:"id"`
	Section   string `json:"section"`
	Relations int    `json:"relations"`
	Page      *int   `json:"page"`
}

type SectionOverviewMeta struct {
	TotalSections int `json:"total_sections"`
}

// SectionOverview is section_overview.json. Edges is always empty.
type SectionOverview struct {
	PaperID  string              `json:"paper_id"`
	Sections []SectionEntry      `json:"sections"`
	Edges    []SectionEdge       `json:"edges"`
	Meta     SectionOverviewMeta `json:"meta"`
}

// SectionFile pairs a subgraph with its file name.
type SectionFile struct {
	Name     string
	Subgraph SectionSubgraph
}

type SectionSubgraphs struct {
	Overview SectionOverview
	// Files in emission order: real sections first, then synthetic buckets.
	Files []SectionFile
}

// BuildSectionSubgraphs builds one connected subgraph per section heading
// and synthetic per type star subgraphs for every node no section covers.
func BuildSectionSubgraphs(g common.Graph, opts SectionOptions) SectionSubgraphs {
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = DefaultSectionOptions().MaxNodes
	}
	if opts.SlugMaxLen <= 0 {
		opts.SlugMaxLen = DefaultSectionOptions().SlugMaxLen
	}

	byID := make(map[string]common.GraphEntity, len(g.Entities))
	for _, e := range g.Entities {
		byID[e.EID] = e
	}
	degree := graph.Degrees(g.Relations)

	sectionSet := make(map[string]struct{})
	for _, e := range g.Entities {
		for _, s := range e.Sections {
			if s != "" {
				sectionSet[s] = struct{}{}
			}
		}
	}
	relsBySection := make(map[string][]common.Relation)
	for _, r := range g.Relations {
		s := common.Deref(r.SectionHeading)
		if s == "" {
			continue
		}
		sectionSet[s] = struct{}{}
		relsBySection[s] = append(relsBySection[s], r)
	}
	sections := make([]string, 0, len(sectionSet))
	for s := range sectionSet {
		sections = append(sections, s)
	}
	sort.Strings(sections)

	rank := func(ids []string) {
		sort.SliceStable(ids, func(i, j int) bool {
			a, b := byID[ids[i]], byID[ids[j]]
			da, db := degree[a.EID], degree[b.EID]
			if opts.Ranking == RankFrequency {
				if a.Frequency != b.Frequency {
					return a.Frequency > b.Frequency
				}
				return da > db
			}
			if da != db {
				return da > db
			}
			return a.Frequency > b.Frequency
		})
	}

	out := SectionSubgraphs{
		Overview: SectionOverview{
			PaperID:  g.PaperID,
			Sections: make([]SectionEntry, 0, len(sections)),
			Edges:    []SectionEdge{},
			Meta:     SectionOverviewMeta{TotalSections: len(sections)},
		},
	}
	covered := make(map[string]struct{})

	for idx, s := range sections {
		rels := relsBySection[s]

		seen := make(map[string]struct{})
		var ranked []string
		for _, r := range rels {
			for _, id := range []string{r.SourceEID, r.TargetEID} {
				if _, ok := byID[id]; !ok {
					continue
				}
				if _, ok := seen[id]; !ok {
					seen[id] = struct{}{}
					ranked = append(ranked, id)
				}
			}
		}
		rank(ranked)
		if len(ranked) < opts.MaxNodes {
			var standalone []string
			for _, e := range g.Entities {
				if _, ok := seen[e.EID]; ok {
					continue
				}
				for _, es := range e.Sections {
					if es == s {
						standalone = append(standalone, e.EID)
						break
					}
				}
			}
			rank(standalone)
			ranked = append(ranked, standalone...)
		}

		kept := make([]string, 0, opts.MaxNodes)
		for _, id := range ranked {
			if byID[id].Frequency < opts.MinFrequency {
				continue
			}
			kept = append(kept, id)
			if len(kept) == opts.MaxNodes {
				break
			}
		}
		keptSet := toSet(kept)

		var edges []common.Relation
		inSection := make(map[int]struct{})
		for _, r := range rels {
			if contains(keptSet, r.SourceEID) && contains(keptSet, r.TargetEID) {
				edges = append(edges, r)
				inSection[r.RID] = struct{}{}
			}
		}
		if opts.IncludeCrossSectionEdges {
			for _, r := range g.Relations {
				if _, ok := inSection[r.RID]; ok {
					continue
				}
				if contains(keptSet, r.SourceEID) && contains(keptSet, r.TargetEID) {
					edges = append(edges, r)
				}
			}
		}

		kept, edges, conn := enforceConnectivity(kept, edges)

		var page *int
		nodes := make([]SectionNode, 0, len(kept))
		for _, id := range kept {
			e := byID[id]
			covered[id] = struct{}{}
			nodes = append(nodes, sectionNode(e))
			if e.Nav != nil && e.Nav.Page != nil && (page == nil || *e.Nav.Page < *page) {
				page = common.Ptr(*e.Nav.Page)
			}
		}
		sectionEdges := make([]SectionEdge, 0, len(edges))
		for _, r := range edges {
			sectionEdges = append(sectionEdges, SectionEdge{
				ID:     strconv.Itoa(r.RID),
				Type:   r.Type,
				Source: r.SourceEID,
				Target: r.TargetEID,
			})
		}

		out.Files = append(out.Files, SectionFile{
			Name: fmt.Sprintf("section_%02d_%s.json", idx, util.Slugify(s, opts.SlugMaxLen, "section")),
			Subgraph: SectionSubgraph{
				PaperID: g.PaperID,
				Section: s,
				NNodes:  len(nodes),
				NEdges:  len(sectionEdges),
				Nodes:   nodes,
				Edges:   sectionEdges,
				Meta:    SectionMeta{Connectivity: conn, Page: page},
			},
		})
		out.Overview.Sections = append(out.Overview.Sections, SectionEntry{
			ID:        idx,
			Section:   s,
			Relations: len(rels),
			Page:      page,
		})
	}

	addCoverage(&out, g, covered, len(sections))
	return out
}

// enforceConnectivity drops orphan nodes and keeps the largest remaining
// component. A section made only of orphans keeps its first node.
func enforceConnectivity(nodes []string, edges []common.Relation) ([]string, []common.Relation, *Connectivity) {
	if len(nodes) == 0 {
		return nodes, edges, nil
	}
	deg := graph.Degrees(edges)
	linked := make([]string, 0, len(nodes))
	for _, id := range nodes {
		if deg[id] > 0 {
			linked = append(linked, id)
		}
	}
	orphans := len(nodes) - len(linked)
	if len(linked) == 0 {
		return nodes[:1], nil, &Connectivity{Components: 1, RemovedOrphans: orphans, LargestComponent: 1}
	}

	comps := graph.Components(linked, edges)
	if len(comps) == 1 {
		return linked, edges, &Connectivity{Components: 1, RemovedOrphans: orphans, LargestComponent: len(linked)}
	}

	largest := 0
	for i, c := range comps {
		if len(c) > len(comps[largest]) {
			largest = i
		}
	}
	removed := make([]int, 0, len(comps)-1)
	for i, c := range comps {
		if i != largest {
			removed = append(removed, len(c))
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(removed)))

	keep := toSet(comps[largest])
	kept := make([]string, 0, len(keep))
	for _, id := range linked {
		if contains(keep, id) {
			kept = append(kept, id)
		}
	}
	keptEdges := make([]common.Relation, 0, len(edges))
	for _, r := range edges {
		if contains(keep, r.SourceEID) && contains(keep, r.TargetEID) {
			keptEdges = append(keptEdges, r)
		}
	}
	return kept, keptEdges, &Connectivity{
		Components:        len(comps),
		RemovedOrphans:    orphans,
		LargestComponent:  len(comps[largest]),
		RemovedComponents: removed,
	}
}

// addCoverage buckets every node missing from all section files by node type
// into a star shaped synthetic section hung off the bucket's first node.
func addCoverage(out *SectionSubgraphs, g common.Graph, covered map[string]struct{}, start int) {
	var order []string
	buckets := make(map[string][]common.GraphEntity)
	for _, e := range g.Entities {
		if contains(covered, e.EID) {
			continue
		}
		nodeType := e.NodeType
		if nodeType == "" {
			nodeType = "OTHER"
		}
		if _, ok := buckets[nodeType]; !ok {
			order = append(order, nodeType)
		}
		buckets[nodeType] = append(buckets[nodeType], e)
	}

	for i, nodeType := range order {
		members := buckets[nodeType]
		hub := members[0]
		nodes := make([]SectionNode, 0, len(members))
		edges := make([]SectionEdge, 0, len(members)-1)
		for j, e := range members {
			nodes = append(nodes, sectionNode(e))
			if j == 0 {
				continue
			}
			edges = append(edges, SectionEdge{
				ID:     fmt.Sprintf("synth-%s-%s", hub.EID, e.EID),
				Type:   syntheticEdgeType,
				Source: hub.EID,
				Target: e.EID,
			})
		}

		name := "Synthetic " + nodeType
		slug := strings.ToLower(util.Slugify(nodeType, 0, "x"))
		out.Files = append(out.Files, SectionFile{
			Name: fmt.Sprintf("section_%02d_Synthetic-%s.json", start+i, slug),
			Subgraph: SectionSubgraph{
				PaperID: g.PaperID,
				Section: name,
				NNodes:  len(nodes),
				NEdges:  len(edges),
				Nodes:   nodes,
				Edges:   edges,
				Meta: SectionMeta{
					Synthetic: true,
					Source:    syntheticSource,
					NodeType:  nodeType,
				},
			},
		})
		out.Overview.Sections = append(out.Overview.Sections, SectionEntry{
			ID:        len(out.Overview.Sections),
			Section:   name,
			Relations: len(edges),
		})
	}
}

func sectionNode(e common.GraphEntity) SectionNode {
	return SectionNode{ID: e.EID, Label: e.Mention, Type: e.NodeType, Freq: e.Frequency, Nav: e.Nav}
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func contains(set map[string]struct{}, id string) bool {
	_, ok := set[id]
	return ok
}
