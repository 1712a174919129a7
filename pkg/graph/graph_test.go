package graph

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/paperkg/pkg/common"
	"github.com/OFFIS-RIT/paperkg/pkg/rules"
)

func mention(eid, text, nodeType, section string, start int) common.EntityMention {
	return common.EntityMention{
		EID:             eid,
		Mention:         text,
		NodeType:        nodeType,
		SectionHeading:  section,
		SentenceID:      start / 100,
		CharStartGlobal: start,
		CharEndGlobal:   start + len(text),
	}
}

func rel(rid int, src, tgt string) common.Relation {
	return common.Relation{
		RID:            rid,
		Type:           "GENE_PRODUCT_INTERACTS_WITH_GENE_PRODUCT",
		SourceEID:      src,
		TargetEID:      tgt,
		SentenceID:     common.Ptr(0),
		SectionHeading: common.Ptr("RESULTS"),
		Method:         common.MethodCooc,
		PatternType:    common.PatternCooc,
	}
}

func assertReferentialIntegrity(t *testing.T, g common.Graph) {
	t.Helper()
	ids := make(map[string]struct{})
	for _, e := range g.Entities {
		ids[e.EID] = struct{}{}
	}
	for _, r := range g.Relations {
		if _, ok := ids[r.SourceEID]; !ok {
			t.Fatalf("relation %d has dangling source %s", r.RID, r.SourceEID)
		}
		if _, ok := ids[r.TargetEID]; !ok {
			t.Fatalf("relation %d has dangling target %s", r.RID, r.TargetEID)
		}
	}
}

func TestAggregateForcedConnectivity(t *testing.T) {
	mentions := []common.EntityMention{
		mention("0", "TP53", "GENE_PRODUCT", "RESULTS", 0),
		mention("1", "MDM2", "GENE_PRODUCT", "RESULTS", 10),
		mention("2", "YAP1", "GENE_PRODUCT", "DISCUSSION", 200),
		mention("3", "TAZ1", "GENE_PRODUCT", "DISCUSSION", 210),
	}
	rels := []common.Relation{rel(0, "0", "1"), rel(1, "2", "3")}

	g := Aggregate(mentions, rels, "PMC1", Options{ForceConnectivity: true})
	assertReferentialIntegrity(t, g)

	if g.Stats.NComponents != 1 {
		t.Fatalf("NComponents = %d, want 1", g.Stats.NComponents)
	}
	if len(g.Entities) != 5 || g.Entities[4].EID != "PUB_PMC1" || g.Entities[4].NodeType != "PUBLICATION" {
		t.Fatalf("publication node missing: %#v", g.Entities)
	}

	var forced []string
	for _, r := range g.Relations {
		if r.Method == common.MethodPublicationConnectivity {
			forced = append(forced, r.TargetEID)
			if r.SourceEID != "PUB_PMC1" || r.Type != common.RelPublicationEvidencesEntity || r.PatternType != "EVIDENCE" {
				t.Errorf("unexpected connectivity edge %#v", r)
			}
		}
	}
	if !reflect.DeepEqual(forced, []string{"0", "1", "2", "3"}) {
		t.Fatalf("forced targets = %v", forced)
	}
	for i, r := range g.Relations {
		if r.RID != i {
			t.Fatalf("relation %d has rid %d", i, r.RID)
		}
	}

	s := g.Stats
	if s.NEntities != 5 || s.NRelations != 6 || s.AvgDegree != 2.4 || s.MedianDegree != 2 || s.IsolatedNodes != 0 {
		t.Fatalf("unexpected stats %#v", s)
	}
	if s.RelationTypes[common.RelPublicationEvidencesEntity] != 4 || s.EntityTypes["GENE_PRODUCT"] != 4 {
		t.Fatalf("unexpected histograms %#v", s)
	}
}

func TestAggregateWithoutForcedConnectivity(t *testing.T) {
	mentions := []common.EntityMention{
		mention("0", "TP53", "GENE_PRODUCT", "RESULTS", 0),
		mention("1", "MDM2", "GENE_PRODUCT", "RESULTS", 10),
		mention("2", "YAP1", "GENE_PRODUCT", "DISCUSSION", 200),
		mention("3", "TAZ1", "GENE_PRODUCT", "DISCUSSION", 210),
	}
	rels := []common.Relation{rel(0, "0", "1"), rel(1, "2", "3")}

	g := Aggregate(mentions, rels, "PMC1", Options{})
	if g.Stats.NComponents != 3 || g.Stats.IsolatedNodes != 1 {
		t.Fatalf("stats = %#v", g.Stats)
	}
	if !reflect.DeepEqual(g.Stats.ComponentSizeDistribution, []int{2, 2, 1}) {
		t.Fatalf("ComponentSizeDistribution = %v", g.Stats.ComponentSizeDistribution)
	}
}

func TestAggregateLinksIsolatedNodes(t *testing.T) {
	mentions := []common.EntityMention{
		mention("0", "TP53", "GENE_PRODUCT", "RESULTS", 0),
		mention("1", "MDM2", "GENE_PRODUCT", "RESULTS", 10),
		mention("2", "apoptosis", "BIOLOGICAL_PROCESS", "RESULTS", 20),
	}
	g := Aggregate(mentions, []common.Relation{rel(5, "0", "1")}, "P", Options{})
	assertReferentialIntegrity(t, g)

	if len(g.Relations) != 2 {
		t.Fatalf("relations = %#v", g.Relations)
	}
	link := g.Relations[1]
	if link.RID != 6 || link.Method != common.MethodPublicationLink || link.TargetEID != "2" || link.SentenceID != nil {
		t.Fatalf("unexpected link %#v", link)
	}
	if g.Stats.NComponents != 2 {
		t.Fatalf("NComponents = %d, want 2", g.Stats.NComponents)
	}
}

func TestAggregateDropsNoisyMentions(t *testing.T) {
	mentions := []common.EntityMention{
		mention("0", "12A", "GENE_PRODUCT", "RESULTS", 0),
		mention("1", "TP53", "GENE_PRODUCT", "RESULTS", 10),
		mention("2", "apoptosis", "BIOLOGICAL_PROCESS", "RESULTS", 20),
		mention("3", "Fig 2", "PHENOTYPE", "RESULTS", 30),
		mention("4", "--", "PHENOTYPE", "RESULTS", 40),
	}
	rels := []common.Relation{rel(0, "0", "1"), rel(1, "1", "2"), rel(2, "3", "2")}

	g := Aggregate(mentions, rels, "P", Options{ForceConnectivity: true})
	assertReferentialIntegrity(t, g)

	core := ToCore(g, false)
	for _, n := range core.Nodes {
		if n.Label == "12A" || n.Label == "Fig 2" || n.Label == "--" {
			t.Fatalf("noisy node %q kept", n.Label)
		}
	}
	if len(core.Nodes) != 3 || len(core.Edges) != 1 {
		t.Fatalf("core = %#v", core)
	}
	if core.Stats != nil {
		t.Fatalf("minimal core must omit stats")
	}
}

func TestSimplifyFirstOccurrence(t *testing.T) {
	m1 := mention("7", "TP53", "GENE_PRODUCT", "RESULTS", 120)
	m2 := mention("7", "Tp53", "DISEASE", "INTRODUCTION", 5)
	m3 := mention("7", "TP53", "GENE_PRODUCT", "", 300)

	g := Aggregate([]common.EntityMention{m1, m2, m3}, nil, "PMC9", Options{})
	e := g.Entities[0]
	if e.Mention != "TP53" || e.NodeType != "GENE_PRODUCT" || e.Frequency != 3 {
		t.Fatalf("entity = %#v", e)
	}
	if !reflect.DeepEqual(e.Sections, []string{"INTRODUCTION", "RESULTS"}) {
		t.Fatalf("sections = %v", e.Sections)
	}
	if e.Nav == nil || e.Nav.Anchor != "PMC9_120_124" || e.Nav.SentenceID != 1 || e.Nav.Section != "RESULTS" {
		t.Fatalf("nav = %#v", e.Nav)
	}
}

func TestIsNoisyMention(t *testing.T) {
	table := rules.MustDefault()

	tests := []struct {
		mention   string
		wantBare  bool
		wantRules bool
	}{
		{"12A", false, true},
		{"  ", true, true},
		{"ab", true, true},
		{"Table 1", false, true},
		{"…!?", true, true},
		{"TP53", false, false},
		{"Figaro", false, false},
		{"NF-κB", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.mention, func(t *testing.T) {
			if got := IsNoisyMention(tt.mention, nil); got != tt.wantBare {
				t.Errorf("IsNoisyMention(%q, nil) = %v, want %v", tt.mention, got, tt.wantBare)
			}
			if got := IsNoisyMention(tt.mention, table); got != tt.wantRules {
				t.Errorf("IsNoisyMention(%q, rules) = %v, want %v", tt.mention, got, tt.wantRules)
			}
		})
	}
}

func TestComponentsOrder(t *testing.T) {
	rels := []common.Relation{rel(0, "c", "a"), rel(1, "d", "x")}
	got := Components([]string{"a", "b", "c", "d"}, rels)
	want := [][]string{{"a", "c"}, {"b"}, {"d"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Components() = %v, want %v", got, want)
	}
}

func TestParseTEIPagesAndAssign(t *testing.T) {
	tei := `<TEI xmlns="http://www.tei-c.org/ns/1.0"><text><pb n="1"/>aaaaa<p>bbbbb</p><pb n="p2"/>ccccc<pb/>dd</text></TEI>`
	points, err := ParseTEIPages(strings.NewReader(tei))
	if err != nil {
		t.Fatalf("ParseTEIPages() error = %v", err)
	}
	want := []PagePoint{{Page: 1, Offset: 0}, {Page: 2, Offset: 10}, {Page: 3, Offset: 15}}
	if !reflect.DeepEqual(points, want) {
		t.Fatalf("ParseTEIPages() = %#v, want %#v", points, want)
	}

	g := common.Graph{Entities: []common.GraphEntity{
		{EID: "0", Nav: &common.Nav{CharStart: 3}},
		{EID: "1", Nav: &common.Nav{CharStart: 10}},
		{EID: "2", Nav: &common.Nav{CharStart: 99}},
		{EID: "PUB_x"},
	}}
	AssignPages(&g, points)
	var pages []int
	for _, e := range g.Entities[:3] {
		pages = append(pages, *e.Nav.Page)
	}
	if !reflect.DeepEqual(pages, []int{1, 2, 3}) {
		t.Fatalf("pages = %v", pages)
	}
	if g.Entities[0].Nav.PageHeuristic {
		t.Fatalf("TEI pages must not be heuristic")
	}
}

func TestParseTEIPagesWithoutBreaks(t *testing.T) {
	points, err := ParseTEIPages(strings.NewReader(`<TEI><text>hello</text></TEI>`))
	if err != nil {
		t.Fatalf("ParseTEIPages() error = %v", err)
	}
	if !reflect.DeepEqual(points, []PagePoint{{Page: 1, Offset: 0}}) {
		t.Fatalf("ParseTEIPages() = %#v", points)
	}
}

func TestHeuristicPages(t *testing.T) {
	if got := EstimatePageCount([]int{2, 5, 3}, 0); got != 5 {
		t.Fatalf("EstimatePageCount(figures) = %d", got)
	}
	if got := EstimatePageCount(nil, 8000); got != 3 {
		t.Fatalf("EstimatePageCount(text) = %d", got)
	}
	if got := EstimatePageCount(nil, 1_000_000); got != 12 {
		t.Fatalf("EstimatePageCount(capped) = %d", got)
	}

	g := common.Graph{Entities: []common.GraphEntity{
		{EID: "0", Nav: &common.Nav{CharStart: 0, CharEnd: 10}},
		{EID: "1", Nav: &common.Nav{CharStart: 500, CharEnd: 510}},
		{EID: "2", Nav: &common.Nav{CharStart: 990, CharEnd: 1000}},
	}}
	AssignHeuristicPages(&g, 3)
	var pages []int
	for _, e := range g.Entities {
		if !e.Nav.PageHeuristic {
			t.Fatalf("page not flagged heuristic")
		}
		pages = append(pages, *e.Nav.Page)
	}
	if !reflect.DeepEqual(pages, []int{1, 2, 2}) {
		t.Fatalf("pages = %v", pages)
	}
}

func TestCSVExport(t *testing.T) {
	g := common.Graph{
		Entities: []common.GraphEntity{
			{EID: "0", Mention: "TP53, human", NodeType: "GENE_PRODUCT", Frequency: 2, Sections: []string{"METHODS", "RESULTS"}},
		},
		Relations: []common.Relation{
			{RID: 0, Type: "X", SourceEID: "0", TargetEID: "0", Method: "VERB", Trigger: common.Ptr("inhibit"),
				EvidenceSpan: common.Ptr("line\nbreak"), SectionHeading: common.Ptr("RESULTS"), SentenceID: common.Ptr(4)},
			{RID: 1, Type: "Y", SourceEID: "PUB_x", TargetEID: "0", Method: "PUBLICATION_LINK"},
		},
	}

	var nodes, rels bytes.Buffer
	if err := WriteNodesCSV(&nodes, g); err != nil {
		t.Fatalf("WriteNodesCSV() error = %v", err)
	}
	if err := WriteRelationsCSV(&rels, g); err != nil {
		t.Fatalf("WriteRelationsCSV() error = %v", err)
	}

	wantNodes := "id:ID,mention,frequency:int,node_type:LABEL,sections\n0,\"TP53, human\",2,GENE_PRODUCT,METHODS|RESULTS\n"
	if nodes.String() != wantNodes {
		t.Fatalf("nodes.csv = %q, want %q", nodes.String(), wantNodes)
	}
	wantRels := ":START_ID,:END_ID,type:TYPE,method,trigger,evidence_span,section_heading,sentence_id:int\n" +
		"0,0,X,VERB,inhibit,line break,RESULTS,4\n" +
		"PUB_x,0,Y,PUBLICATION_LINK,,,,\n"
	if rels.String() != wantRels {
		t.Fatalf("relations.csv = %q, want %q", rels.String(), wantRels)
	}
}
