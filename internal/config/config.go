// Package config loads the static pipeline options from an optional YAML file
// and PAPERKG_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/paperkg/pkg/ner"
	"github.com/OFFIS-RIT/paperkg/pkg/relation"
	"github.com/OFFIS-RIT/paperkg/pkg/rules"
	"github.com/OFFIS-RIT/paperkg/pkg/view"

	"github.com/go-playground/validator"
	"github.com/spf13/viper"
)

const envPrefix = "PAPERKG"

type Options struct {
	Segmenter string `mapstructure:"segmenter" validate:"oneof=prose rule"`
	// RulesFile replaces the embedded rule table when set.
	RulesFile string `mapstructure:"rules_file"`

	NER             NEROptions             `mapstructure:"ner"`
	Relations       RelationOptions        `mapstructure:"relations"`
	Visualization   VisualizationOptions   `mapstructure:"visualization"`
	SectionSubgraph SectionSubgraphOptions `mapstructure:"section_subgraph"`
	Cache           CacheOptions           `mapstructure:"cache"`

	ForcePublicationConnectivity bool `mapstructure:"force_publication_connectivity"`
	// MinimalOutput only persists the phase 5 files the UI reads.
	MinimalOutput bool `mapstructure:"minimal_output"`
}

type NEROptions struct {
	// Providers in priority order.
	Providers        []string `mapstructure:"providers" validate:"min=1,dive,oneof=llm prose lexicon"`
	LLMBackend       string   `mapstructure:"llm_backend" validate:"oneof=openai ollama"`
	LLMModel         string   `mapstructure:"llm_model"`
	MinLen           int      `mapstructure:"min_len" validate:"gte=1"`
	MaxLen           int      `mapstructure:"max_len" validate:"gtefield=MinLen"`
	FilterTypes      []string `mapstructure:"filter_types"`
	MaxSentenceChars int      `mapstructure:"max_sentence_chars" validate:"gte=1"`
	Concurrency      int      `mapstructure:"concurrency" validate:"gte=1"`
}

type RelationOptions struct {
	EnablePatterns             bool `mapstructure:"enable_patterns"`
	MaxEntitiesPatternSentence int  `mapstructure:"max_entities_pattern_sentence" validate:"gte=0"`
	EvidenceChars              int  `mapstructure:"evidence_chars" validate:"gte=1"`
}

type VisualizationOptions struct {
	MaxNodes      int      `mapstructure:"max_nodes" validate:"gte=0"`
	StrictMax     int      `mapstructure:"max_nodes_strict" validate:"gte=0"`
	MinFrequency  int      `mapstructure:"min_frequency" validate:"gte=0"`
	PriorityTypes []string `mapstructure:"priority_types"`
	Layout        string   `mapstructure:"layout" validate:"oneof=radial circular random"`
	SizeMin       float64  `mapstructure:"size_min" validate:"gte=0"`
	SizeMax       float64  `mapstructure:"size_max" validate:"gtefield=SizeMin"`
}

type SectionSubgraphOptions struct {
	Enabled                  bool   `mapstructure:"enabled"`
	MaxNodes                 int    `mapstructure:"max_nodes" validate:"gte=1"`
	Ranking                  string `mapstructure:"ranking" validate:"oneof=degree_frequency frequency"`
	MinFrequency             int    `mapstructure:"min_frequency" validate:"gte=0"`
	IncludeCrossSectionEdges bool   `mapstructure:"include_cross_section_edges"`
	SlugMaxLen               int    `mapstructure:"slug_max_len" validate:"gte=1"`
}

type CacheOptions struct {
	Backend string `mapstructure:"backend" validate:"oneof=none memory file redis"`
	Dir     string `mapstructure:"dir"`
}

// Load reads path (optional) on top of the defaults and applies PAPERKG_*
// environment overrides, e.g. PAPERKG_NER_CONCURRENCY.
func Load(path string) (*Options, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var opts Options
	if err := v.Unmarshal(&opts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &opts, nil
}

// Default returns the options without reading any file or environment.
func Default() *Options {
	v := viper.New()
	setDefaults(v)
	var opts Options
	if err := v.Unmarshal(&opts); err != nil {
		panic(err)
	}
	return &opts
}

func (o *Options) Validate() error {
	if err := validator.New().Struct(o); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("segmenter", "prose")
	v.SetDefault("rules_file", "")

	v.SetDefault("ner.providers", []string{"llm", "prose", "lexicon"})
	v.SetDefault("ner.llm_backend", "openai")
	v.SetDefault("ner.llm_model", "gpt-4o-mini")
	v.SetDefault("ner.min_len", 2)
	v.SetDefault("ner.max_len", 80)
	v.SetDefault("ner.filter_types", []string{})
	v.SetDefault("ner.max_sentence_chars", 5000)
	v.SetDefault("ner.concurrency", 4)

	v.SetDefault("relations.enable_patterns", true)
	v.SetDefault("relations.max_entities_pattern_sentence", 40)
	v.SetDefault("relations.evidence_chars", 240)

	v.SetDefault("visualization.max_nodes", 120)
	v.SetDefault("visualization.max_nodes_strict", 80)
	v.SetDefault("visualization.min_frequency", 1)
	v.SetDefault("visualization.priority_types", []string{"GENE_PRODUCT", "PATHWAY", "DISEASE", "PHENOTYPE"})
	v.SetDefault("visualization.layout", "radial")
	v.SetDefault("visualization.size_min", 4)
	v.SetDefault("visualization.size_max", 28)

	v.SetDefault("section_subgraph.enabled", true)
	v.SetDefault("section_subgraph.max_nodes", 40)
	v.SetDefault("section_subgraph.ranking", "degree_frequency")
	v.SetDefault("section_subgraph.min_frequency", 1)
	v.SetDefault("section_subgraph.include_cross_section_edges", false)
	v.SetDefault("section_subgraph.slug_max_len", 40)

	v.SetDefault("cache.backend", "file")
	v.SetDefault("cache.dir", ".cache/ner")

	v.SetDefault("force_publication_connectivity", true)
	v.SetDefault("minimal_output", true)
}

func (o *Options) NEROptions() ner.Options {
	return ner.Options{
		MinLen:           o.NER.MinLen,
		MaxLen:           o.NER.MaxLen,
		FilterTypes:      o.NER.FilterTypes,
		MaxSentenceChars: o.NER.MaxSentenceChars,
		Concurrency:      o.NER.Concurrency,
	}
}

func (o *Options) RelationOptions() relation.Options {
	return relation.Options{
		EnablePatterns:             o.Relations.EnablePatterns,
		MaxEntitiesPatternSentence: o.Relations.MaxEntitiesPatternSentence,
		EvidenceChars:              o.Relations.EvidenceChars,
	}
}

func (o *Options) VisOptions(table *rules.Table) view.VisOptions {
	return view.VisOptions{
		MaxNodes:      o.Visualization.MaxNodes,
		StrictMax:     o.Visualization.StrictMax,
		MinFrequency:  o.Visualization.MinFrequency,
		PriorityTypes: o.Visualization.PriorityTypes,
		Layout:        o.Visualization.Layout,
		SizeMin:       o.Visualization.SizeMin,
		SizeMax:       o.Visualization.SizeMax,
		Rules:         table,
	}
}

func (o *Options) SectionOptions() view.SectionOptions {
	return view.SectionOptions{
		MaxNodes:                 o.SectionSubgraph.MaxNodes,
		MinFrequency:             o.SectionSubgraph.MinFrequency,
		Ranking:                  o.SectionSubgraph.Ranking,
		IncludeCrossSectionEdges: o.SectionSubgraph.IncludeCrossSectionEdges,
		SlugMaxLen:               o.SectionSubgraph.SlugMaxLen,
	}
}

// Rules loads RulesFile or falls back to the embedded table.
func (o *Options) Rules() (*rules.Table, error) {
	if o.RulesFile == "" {
		return rules.Default()
	}
	return rules.LoadFile(o.RulesFile)
}
