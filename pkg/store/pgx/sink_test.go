package pgx

import (
	"reflect"
	"testing"

	"github.com/OFFIS-RIT/paperkg/pkg/common"
)

func TestEntityColumns(t *testing.T) {
	entities := []common.GraphEntity{
		{
			EID: "0", Mention: "TP53", NodeType: common.NodeGeneProduct, Frequency: 3,
			Sections: []string{"RESULTS", "METHODS"},
			Nav:      &common.Nav{Anchor: "PMC1_0_4", Page: common.Ptr(2)},
		},
		{EID: "PUB_PMC1", Mention: "PMC1", NodeType: common.NodePublication, Frequency: 1},
	}

	c := entityColumnsOf(entities)
	if !reflect.DeepEqual(c.eids, []string{"0", "PUB_PMC1"}) {
		t.Errorf("eids = %v", c.eids)
	}
	if c.sections[0] != "RESULTS|METHODS" || c.sections[1] != "" {
		t.Errorf("sections = %q", c.sections)
	}
	if c.anchors[0] == nil || *c.anchors[0] != "PMC1_0_4" || c.anchors[1] != nil {
		t.Errorf("anchors = %v", c.anchors)
	}
	if c.pages[0] == nil || *c.pages[0] != 2 || c.pages[1] != nil {
		t.Errorf("pages = %v", c.pages)
	}
	if !reflect.DeepEqual(c.frequencies, []int32{3, 1}) {
		t.Errorf("frequencies = %v", c.frequencies)
	}
}

func TestRelationColumns(t *testing.T) {
	relations := []common.Relation{
		{
			RID: 0, Type: "GENE_PRODUCT_ASSOCIATED_WITH_DISEASE", SourceEID: "0", TargetEID: "1",
			SentenceID: common.Ptr(4), SectionHeading: common.Ptr("RESULTS"),
			EvidenceSpan: common.Ptr("TP53 in cancer"), Method: common.MethodCooc, PatternType: common.PatternCooc,
		},
		{
			RID: 1, Type: common.RelPublicationEvidencesEntity, SourceEID: "PUB_PMC1", TargetEID: "0",
			Method: common.MethodPublicationLink, PatternType: common.PatternEvidence,
		},
	}

	c := relationColumnsOf(relations)
	if !reflect.DeepEqual(c.rids, []int32{0, 1}) {
		t.Errorf("rids = %v", c.rids)
	}
	if c.sentences[0] == nil || *c.sentences[0] != 4 || c.sentences[1] != nil {
		t.Errorf("sentences = %v", c.sentences)
	}
	if c.triggers[0] != nil || c.headings[1] != nil {
		t.Errorf("optional columns not nil")
	}
	if !reflect.DeepEqual(c.methods, []string{common.MethodCooc, common.MethodPublicationLink}) {
		t.Errorf("methods = %v", c.methods)
	}
}

func TestColumnsStripNulBytes(t *testing.T) {
	ec := entityColumnsOf([]common.GraphEntity{{EID: "0", Mention: "IL\x006"}})
	if ec.mentions[0] != "IL6" {
		t.Errorf("mention = %q", ec.mentions[0])
	}
	rc := relationColumnsOf([]common.Relation{{RID: 0, EvidenceSpan: common.Ptr("IL6\x00 binds")}})
	if rc.evidence[0] == nil || *rc.evidence[0] != "IL6 binds" {
		t.Errorf("evidence = %v", rc.evidence[0])
	}
}
