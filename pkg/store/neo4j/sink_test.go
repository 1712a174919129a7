package neo4j

import (
	"testing"

	"github.com/OFFIS-RIT/paperkg/pkg/common"
)

func TestRows(t *testing.T) {
	g := common.Graph{
		PaperID: "PMC7",
		Entities: []common.GraphEntity{
			{EID: "0", Mention: "TP53", NodeType: common.NodeGeneProduct, Frequency: 2, Sections: []string{"RESULTS"},
				Nav: &common.Nav{Anchor: "PMC7_0_4", Page: common.Ptr(3)}},
			{EID: "PUB_PMC7", Mention: "PMC7", NodeType: common.NodePublication, Frequency: 1},
		},
		Relations: []common.Relation{
			{RID: 0, Type: common.RelPublicationEvidencesEntity, SourceEID: "PUB_PMC7", TargetEID: "0",
				Method: common.MethodPublicationLink, PatternType: common.PatternEvidence},
			{RID: 1, Type: "X", SourceEID: "0", TargetEID: "0", SentenceID: common.Ptr(5),
				Trigger: common.Ptr("inhibit"), Method: common.MethodVerb, PatternType: common.PatternVerb},
		},
	}

	nodes := nodeRows(g)
	if len(nodes) != 2 {
		t.Fatalf("nodeRows() len = %d", len(nodes))
	}
	if nodes[0]["id"] != "PMC7:0" || nodes[0]["page"] != int64(3) || nodes[0]["anchor"] != "PMC7_0_4" {
		t.Errorf("node 0 = %v", nodes[0])
	}
	if nodes[1]["anchor"] != nil || nodes[1]["role"] != nil {
		t.Errorf("node 1 optional fields = %v", nodes[1])
	}
	if s, ok := nodes[1]["sections"].([]string); !ok || s == nil {
		t.Errorf("node 1 sections = %#v", nodes[1]["sections"])
	}

	rels := relationRows(g)
	if rels[0]["source"] != "PMC7:PUB_PMC7" || rels[0]["sentence_id"] != nil || rels[0]["trigger"] != nil {
		t.Errorf("relation 0 = %v", rels[0])
	}
	if rels[1]["sentence_id"] != int64(5) || rels[1]["trigger"] != "inhibit" || rels[1]["rid"] != int64(1) {
		t.Errorf("relation 1 = %v", rels[1])
	}
}
