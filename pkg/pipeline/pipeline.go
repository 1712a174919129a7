// Package pipeline composes the extraction stages into a paper graph, either
// in memory (Build) or phase by phase over an artifact store (Runner).
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/paperkg/internal/config"
	"github.com/OFFIS-RIT/paperkg/pkg/common"
	"github.com/OFFIS-RIT/paperkg/pkg/graph"
	"github.com/OFFIS-RIT/paperkg/pkg/ner"
	"github.com/OFFIS-RIT/paperkg/pkg/nlp"
	"github.com/OFFIS-RIT/paperkg/pkg/relation"
	"github.com/OFFIS-RIT/paperkg/pkg/rules"
	"github.com/OFFIS-RIT/paperkg/pkg/sections"
	"github.com/OFFIS-RIT/paperkg/pkg/segment"
)

// ErrMissingSections is returned when the converter output has no sections.
var ErrMissingSections = errors.New("content has no sections")

// Deps are the models and tables shared by every paper of a run.
type Deps struct {
	Registry  *nlp.Registry
	Segmenter segment.Segmenter
	Rules     *rules.Table
}

// Result holds every intermediate of a single paper.
type Result struct {
	Sections   []common.Section
	Sentences  []common.Sentence
	Mentions   []common.EntityMention
	Normalized []common.NormalizedEntity
	Relations  []common.Relation
	Graph      common.Graph
}

// Build runs all stages in memory. Page numbers are not assigned.
func Build(ctx context.Context, deps Deps, opts *config.Options, paperID string, content sections.Content) (*Result, error) {
	secs, err := parseSections(deps, content)
	if err != nil {
		return nil, err
	}
	sentences, err := segment.Segment(ctx, deps.Segmenter, secs)
	if err != nil {
		return nil, fmt.Errorf("failed to segment: %w", err)
	}
	mentions, err := extractEntities(ctx, deps, opts, sentences)
	if err != nil {
		return nil, err
	}
	rels, err := extractRelations(ctx, deps, opts, sentences, mentions)
	if err != nil {
		return nil, err
	}

	return &Result{
		Sections:   secs,
		Sentences:  sentences,
		Mentions:   mentions,
		Normalized: ner.Normalize(mentions),
		Relations:  rels,
		Graph:      aggregate(deps, opts, paperID, mentions, rels),
	}, nil
}

func parseSections(deps Deps, content sections.Content) ([]common.Section, error) {
	if len(content.Sections) == 0 {
		return nil, ErrMissingSections
	}
	return sections.Filter(content, deps.Rules, sections.Options{}), nil
}

func extractEntities(ctx context.Context, deps Deps, opts *config.Options, sentences []common.Sentence) ([]common.EntityMention, error) {
	ex := ner.NewExtractor(deps.Registry, deps.Rules, opts.NEROptions())
	mentions, err := ex.Extract(ctx, sentences)
	if err != nil {
		return nil, fmt.Errorf("failed to extract entities: %w", err)
	}
	return mentions, nil
}

func extractRelations(
	ctx context.Context,
	deps Deps,
	opts *config.Options,
	sentences []common.Sentence,
	mentions []common.EntityMention,
) ([]common.Relation, error) {
	ex := relation.NewExtractor(deps.Registry, deps.Rules, opts.RelationOptions())
	rels, err := ex.Extract(ctx, sentences, relation.IndexBySentence(mentions))
	if err != nil {
		return nil, fmt.Errorf("failed to extract relations: %w", err)
	}
	return rels, nil
}

func aggregate(deps Deps, opts *config.Options, paperID string, mentions []common.EntityMention, rels []common.Relation) common.Graph {
	return graph.Aggregate(mentions, rels, paperID, graph.Options{
		ForceConnectivity: opts.ForcePublicationConnectivity,
		Rules:             deps.Rules,
	})
}
