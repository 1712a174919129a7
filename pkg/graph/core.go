package graph

import (
	"github.com/OFFIS-RIT/paperkg/pkg/common"
)

// CoreNode is the node projection consumed by the serving layer.
type CoreNode struct {
	ID    string      `json:"id"`
	Label string      `json:"label"`
	Type  string      `json:"type"`
	Role  *string     `json:"role"`
	Freq  int         `json:"freq"`
	Nav   *common.Nav `json:"nav"`
}

// CoreEdge is the edge projection consumed by the serving layer.
type CoreEdge struct {
	ID     int    `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// Core is graph_core.json. Stats is omitted in minimal output.
type Core struct {
	PaperID string        `json:"paper_id"`
	Nodes   []CoreNode    `json:"nodes"`
	Edges   []CoreEdge    `json:"edges"`
	Stats   *common.Stats `json:"stats,omitempty"`
}

// ToCore projects g. withStats embeds the graph statistics.
func ToCore(g common.Graph, withStats bool) Core {
	c := Core{
		PaperID: g.PaperID,
		Nodes:   make([]CoreNode, 0, len(g.Entities)),
		Edges:   make([]CoreEdge, 0, len(g.Relations)),
	}
	for _, e := range g.Entities {
		c.Nodes = append(c.Nodes, CoreNode{
			ID:    e.EID,
			Label: e.Mention,
			Type:  e.NodeType,
			Role:  e.Role,
			Freq:  e.Frequency,
			Nav:   e.Nav,
		})
	}
	for _, r := range g.Relations {
		c.Edges = append(c.Edges, CoreEdge{
			ID:     r.RID,
			Source: r.SourceEID,
			Target: r.TargetEID,
			Type:   r.Type,
		})
	}
	if withStats {
		stats := g.Stats
		c.Stats = &stats
	}
	return c
}
