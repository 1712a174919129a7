package pipeline

import (
	"context"
	"errors"
	"slices"

	"github.com/OFFIS-RIT/paperkg/pkg/artifact"
	"github.com/OFFIS-RIT/paperkg/pkg/graph"
	"github.com/OFFIS-RIT/paperkg/pkg/view"
)

const maxReportTypes = 10

type GraphReport struct {
	NNodes int      `json:"n_nodes"`
	NEdges int      `json:"n_edges"`
	Types  []string `json:"types"`
}

// Report summarizes the phase 5 output of a paper.
type Report struct {
	PaperID    string       `json:"paper_id"`
	Graph      *GraphReport `json:"graph,omitempty"`
	GraphError string       `json:"graph_error,omitempty"`
	Sections   *int         `json:"sections,omitempty"`

	SectionsError string `json:"sections_error,omitempty"`
}

// CollectReport reads graph_core.json and section_overview.json. Unreadable
// files are flagged in the result instead of failing the report.
func CollectReport(ctx context.Context, st artifact.Store, paperID string) (Report, error) {
	p := artifact.Paths{PaperID: paperID}
	rep := Report{PaperID: paperID}

	var core graph.Core
	switch err := artifact.ReadJSON(ctx, st, p.Graph(fileCore), &core); {
	case err == nil:
		types := make([]string, 0)
		for _, n := range core.Nodes {
			if n.Type != "" && !slices.Contains(types, n.Type) {
				types = append(types, n.Type)
			}
		}
		slices.Sort(types)
		if len(types) > maxReportTypes {
			types = types[:maxReportTypes]
		}
		rep.Graph = &GraphReport{NNodes: len(core.Nodes), NEdges: len(core.Edges), Types: types}
	case errors.Is(err, artifact.ErrNotFound):
	default:
		rep.GraphError = "failed_to_read_core"
	}

	var overview view.SectionOverview
	switch err := artifact.ReadJSON(ctx, st, p.Graph(fileSectionOverview), &overview); {
	case err == nil:
		total := overview.Meta.TotalSections
		rep.Sections = &total
	case !errors.Is(err, artifact.ErrNotFound):
		rep.SectionsError = "failed_to_read_section_overview"
	}
	return rep, ctx.Err()
}
