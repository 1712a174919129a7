package common

// Section is a contiguous block of a paper as produced by the document converter
// and filtered by the section parser. Offsets are character offsets into the
// concatenated raw text of the paper.
type Section struct {
	Heading         string `json:"heading"`
	Text            string `json:"text"`
	SectionIndex    int    `json:"section_index"`
	CharStartGlobal int    `json:"char_start_global"`
	CharEndGlobal   int    `json:"char_end_global"`
}

// Sentence is a single sentence of a section. Sentences are immutable once
// created and SID is the join key for every downstream entity and relation record.
//
// Offsets are kept twice:
//   - section offsets, relative to Section.Text
//   - global offsets, Section.CharStartGlobal plus the section offset
type Sentence struct {
	SID              int    `json:"sid"`
	SectionIndex     int    `json:"section_index"`
	SectionHeading   string `json:"section_heading"`
	Text             string `json:"text"`
	CharStartSection int    `json:"char_start_section"`
	CharEndSection   int    `json:"char_end_section"`
	CharStartGlobal  int    `json:"char_start_global"`
	CharEndGlobal    int    `json:"char_end_global"`
}

// EntityMention is one raw occurrence of an entity inside a sentence, as emitted
// by a NER provider and accepted by the filtering and typing heuristics.
//
// Type holds the provider's raw label while NodeType holds the canonical type
// the label was mapped (or overridden) into.
type EntityMention struct {
	EID               string  `json:"eid"`
	SentenceID        int     `json:"sentence_id"`
	SectionIndex      int     `json:"section_index"`
	SectionHeading    string  `json:"section_heading"`
	Type              string  `json:"type"`
	NodeType          string  `json:"node_type"`
	Mention           string  `json:"mention"`
	Canonical         string  `json:"canonical"`
	Provider          string  `json:"provider"`
	Role              *string `json:"role,omitempty"`
	CharStartSentence int     `json:"char_start_sentence"`
	CharEndSentence   int     `json:"char_end_sentence"`
	CharStartSection  int     `json:"char_start_section"`
	CharEndSection    int     `json:"char_end_section"`
	CharStartGlobal   int     `json:"char_start_global"`
	CharEndGlobal     int     `json:"char_end_global"`
}

// NormalizedEntity is the corpus level rollup of all mentions that share a
// canonical form. It is used for reporting and is not part of the graph.
type NormalizedEntity struct {
	NID       int      `json:"nid"`
	Canonical string   `json:"canonical"`
	NodeType  string   `json:"node_type"`
	Frequency int      `json:"frequency"`
	Sections  []string `json:"sections"`
	Examples  []string `json:"examples"`
}

// Nav anchors a graph node to the first place it was mentioned in the paper.
type Nav struct {
	Section       string `json:"section"`
	SentenceID    int    `json:"sentence_id"`
	CharStart     int    `json:"char_start"`
	CharEnd       int    `json:"char_end"`
	Anchor        string `json:"anchor"`
	Page          *int   `json:"page,omitempty"`
	PageHeuristic bool   `json:"page_heuristic,omitempty"`
}

// GraphEntity is a node of the aggregated graph. It is created from the first
// occurrence of a raw mention id and only Nav.Page is attached afterwards.
//
// The synthetic publication node has no Nav.
type GraphEntity struct {
	EID       string   `json:"eid"`
	Mention   string   `json:"mention"`
	NodeType  string   `json:"node_type"`
	Role      *string  `json:"role,omitempty"`
	Frequency int      `json:"frequency"`
	Sections  []string `json:"sections"`
	Nav       *Nav     `json:"nav,omitempty"`
}

// Relation is a directed edge between two entities. Every relation records how
// it was produced in Method and, for sentence level relations, the sentence,
// section heading and a truncated evidence snippet.
type Relation struct {
	RID            int     `json:"rid"`
	Type           string  `json:"type"`
	SourceEID      string  `json:"source_eid"`
	TargetEID      string  `json:"target_eid"`
	SentenceID     *int    `json:"sentence_id,omitempty"`
	SectionHeading *string `json:"section_heading,omitempty"`
	EvidenceSpan   *string `json:"evidence_span,omitempty"`
	Method         string  `json:"method"`
	Trigger        *string `json:"trigger,omitempty"`
	PatternType    string  `json:"pattern_type"`
}

// Graph is the aggregated entity-relation graph of one paper.
//
// Every relation endpoint references an entity of the same graph; the
// aggregator drops dangling relations before a Graph is returned.
type Graph struct {
	PaperID   string        `json:"paper_id"`
	Entities  []GraphEntity `json:"entities"`
	Relations []Relation    `json:"relations"`
	Stats     Stats         `json:"stats"`
}

// Stats summarizes a Graph.
type Stats struct {
	EntityTypes               map[string]int `json:"entity_types"`
	RelationTypes             map[string]int `json:"relation_types"`
	NEntities                 int            `json:"n_entities"`
	NRelations                int            `json:"n_relations"`
	RelationsWithTriggerPct   float64        `json:"relations_with_trigger_pct"`
	NComponents               int            `json:"n_components"`
	LargestComponentSize      int            `json:"largest_component_size"`
	ComponentSizeDistribution []int          `json:"component_size_distribution"`
	AvgDegree                 float64        `json:"avg_degree"`
	MedianDegree              float64        `json:"median_degree"`
	IsolatedNodes             int            `json:"isolated_nodes"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Deref returns the value behind p or the zero value if p is nil.
func Deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
