package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/OFFIS-RIT/paperkg/pkg/artifact"
	"github.com/OFFIS-RIT/paperkg/pkg/common"
	"github.com/OFFIS-RIT/paperkg/pkg/graph"
	"github.com/OFFIS-RIT/paperkg/pkg/logger"
	"github.com/OFFIS-RIT/paperkg/pkg/sections"
	"github.com/OFFIS-RIT/paperkg/pkg/view"
)

// Phase 5 file names.
const (
	fileCore            = "graph_core.json"
	fileOverview        = "graph_overview.json"
	fileVis             = "graph_vis.json"
	fileSectionOverview = "section_overview.json"
	fileGraph           = "graph.json"
	fileStats           = "stats.json"
	fileNeo4jNodes      = "neo4j/nodes.csv"
	fileNeo4jRelations  = "neo4j/relationships.csv"

	errorSuffix = ".error.json"
)

func (r *Runner) phaseGraph(ctx context.Context, p artifact.Paths) (int, error) {
	mentions, err := artifact.ReadJSONL[common.EntityMention](ctx, r.store, p.Entities())
	if err != nil {
		return 0, err
	}
	rels, err := artifact.ReadJSONL[common.Relation](ctx, r.store, p.Relations())
	if err != nil {
		return 0, err
	}
	normalized, err := artifact.ReadJSONL[common.NormalizedEntity](ctx, r.store, p.NormalizedEntities())
	if err != nil {
		if !errors.Is(err, artifact.ErrNotFound) {
			return 0, err
		}
		logger.Warn("[Pipeline] Normalized entities missing, overview labels without examples", "paper_id", p.PaperID)
	}

	g := r.buildGraph(ctx, p, mentions, rels)
	if err := r.writeOutputs(ctx, p, g, normalized); err != nil {
		return 0, err
	}
	if r.sink != nil {
		if err := r.sink.SaveGraph(ctx, g); err != nil {
			return 0, fmt.Errorf("failed to load graph into sink: %w", err)
		}
	}
	return len(g.Entities), nil
}

// LoadGraph rebuilds the aggregated graph of paperID from the phase 3 and
// phase 4 artifacts without writing anything.
func (r *Runner) LoadGraph(ctx context.Context, paperID string) (common.Graph, error) {
	p := artifact.Paths{PaperID: paperID}
	mentions, err := artifact.ReadJSONL[common.EntityMention](ctx, r.store, p.Entities())
	if err != nil {
		return common.Graph{}, err
	}
	rels, err := artifact.ReadJSONL[common.Relation](ctx, r.store, p.Relations())
	if err != nil {
		return common.Graph{}, err
	}
	return r.buildGraph(ctx, p, mentions, rels), nil
}

func (r *Runner) buildGraph(ctx context.Context, p artifact.Paths, mentions []common.EntityMention, rels []common.Relation) common.Graph {
	g := aggregate(r.deps, r.opts, p.PaperID, mentions, rels)
	r.assignPages(ctx, p, &g)
	return g
}

// assignPages prefers TEI page breaks and falls back to the content heuristic.
// Failures leave pages unset.
func (r *Runner) assignPages(ctx context.Context, p artifact.Paths, g *common.Graph) {
	if tei, ok := r.findTEI(ctx, p); ok {
		points, err := r.readTEIPages(ctx, tei)
		if err == nil {
			graph.AssignPages(g, points)
			return
		}
		logger.Warn("[Pipeline] Could not read TEI pages, using heuristic", "paper_id", p.PaperID, "tei", tei, "err", err)
	}

	data, err := r.store.Read(ctx, p.Content())
	if err != nil {
		logger.Debug("[Pipeline] No content for page heuristic", "paper_id", p.PaperID, "err", err)
		return
	}
	content, err := sections.ParseContent(data)
	if err != nil {
		logger.Debug("[Pipeline] Undecodable content for page heuristic", "paper_id", p.PaperID, "err", err)
		return
	}
	graph.AssignHeuristicPages(g, graph.EstimatePageCount(content.FigurePages(), content.TextLength()))
}

func (r *Runner) readTEIPages(ctx context.Context, key string) ([]graph.PagePoint, error) {
	data, err := r.store.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	return graph.ParseTEIPages(bytes.NewReader(data))
}

func (r *Runner) findTEI(ctx context.Context, p artifact.Paths) (string, bool) {
	keys, err := r.store.List(ctx, p.ContentDir()+"/")
	if err != nil {
		return "", false
	}
	for _, k := range keys {
		if strings.HasSuffix(k, ".tei.xml") {
			return k, true
		}
	}
	return "", false
}

func (r *Runner) writeOutputs(ctx context.Context, p artifact.Paths, g common.Graph, normalized []common.NormalizedEntity) error {
	minimal := r.opts.MinimalOutput
	keep := map[string]struct{}{}
	write := func(name string, v any) error {
		keep[p.Graph(name)] = struct{}{}
		return artifact.WriteJSON(ctx, r.store, p.Graph(name), v)
	}

	core := graph.ToCore(g, !minimal)
	if err := write(fileCore, core); err != nil {
		return err
	}

	overviewErr := r.guard(ctx, p, "graph_overview", "overview_failed", func() error {
		return write(fileOverview, view.BuildOverview(g, view.DefaultOverviewLimit, view.ExamplesFromNormalized(normalized)))
	})
	if overviewErr != nil && minimal {
		if err := write(fileOverview, view.FallbackOverview(core, view.DefaultOverviewLimit)); err != nil {
			logger.Warn("[Pipeline] Fallback overview failed", "paper_id", p.PaperID, "err", err)
		}
	}

	if !minimal {
		_ = r.guard(ctx, p, "graph_vis", "vis_generation_failed", func() error {
			return write(fileVis, view.BuildVisualization(g, r.opts.VisOptions(r.deps.Rules)))
		})
	}

	if r.opts.SectionSubgraph.Enabled {
		_ = r.guard(ctx, p, "section_subgraphs", "section_subgraphs_failed", func() error {
			subs := view.BuildSectionSubgraphs(g, r.opts.SectionOptions())
			if err := write(fileSectionOverview, subs.Overview); err != nil {
				return err
			}
			for _, f := range subs.Files {
				if err := write(f.Name, f.Subgraph); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if !minimal {
		if err := write(fileGraph, g); err != nil {
			return err
		}
		if err := write(fileStats, g.Stats); err != nil {
			return err
		}
		if err := r.writeCSV(ctx, p.Graph(fileNeo4jNodes), func(buf *bytes.Buffer) error {
			return graph.WriteNodesCSV(buf, g)
		}); err != nil {
			return err
		}
		if err := r.writeCSV(ctx, p.Graph(fileNeo4jRelations), func(buf *bytes.Buffer) error {
			return graph.WriteRelationsCSV(buf, g)
		}); err != nil {
			return err
		}
		return nil
	}

	return r.cleanup(ctx, p, keep)
}

// guard runs a derived view and turns an error or panic into
// <name>.error.json. The error is returned for the caller's fallback logic.
func (r *Runner) guard(ctx context.Context, p artifact.Paths, name, code string, fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%s panicked: %v", name, rec)
		}
		if err == nil {
			return
		}
		logger.Warn("[Pipeline] Derived view failed", "paper_id", p.PaperID, "view", name, "err", err)
		if werr := artifact.WriteError(ctx, r.store, p.Graph(name+errorSuffix), code, err); werr != nil {
			logger.Error("[Pipeline] Failed to write error report", "paper_id", p.PaperID, "view", name, "err", werr)
		}
	}()
	return fn()
}

func (r *Runner) writeCSV(ctx context.Context, key string, fn func(buf *bytes.Buffer) error) error {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		return err
	}
	return r.store.Write(ctx, key, buf.Bytes())
}

// cleanup removes phase 5 files that minimal output does not keep. Error
// reports always survive.
func (r *Runner) cleanup(ctx context.Context, p artifact.Paths, keep map[string]struct{}) error {
	keys, err := r.store.List(ctx, p.Phase(5)+"/")
	if err != nil {
		return err
	}
	for _, k := range keys {
		if _, ok := keep[k]; ok || strings.HasSuffix(k, errorSuffix) {
			continue
		}
		if err := r.store.Delete(ctx, k); err != nil {
			return err
		}
		logger.Debug("[Pipeline] Removed stale output", "paper_id", p.PaperID, "file", path.Base(k))
	}
	return nil
}
