package relation

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/paperkg/pkg/common"
	"github.com/OFFIS-RIT/paperkg/pkg/nlp"
	"github.com/OFFIS-RIT/paperkg/pkg/rules"
)

// wordTagger tags the listed words as VBZ and everything else as NN.
type wordTagger struct {
	verbs map[string]bool
}

func (w wordTagger) Tag(_ context.Context, text string) ([]nlp.Token, error) {
	var out []nlp.Token
	for _, f := range strings.Fields(text) {
		f = strings.Trim(f, ".,")
		tag := "NN"
		if w.verbs[strings.ToLower(f)] {
			tag = "VBZ"
		}
		out = append(out, nlp.Token{Text: f, Tag: tag})
	}
	return out, nil
}

func newRegistry(verbs ...string) *nlp.Registry {
	reg := nlp.NewRegistry()
	set := make(map[string]bool)
	for _, v := range verbs {
		set[v] = true
	}
	reg.RegisterTagger(func(context.Context) (nlp.Tagger, error) {
		return wordTagger{verbs: set}, nil
	})
	return reg
}

func mention(eid int, sid int, nodeType string) common.EntityMention {
	return common.EntityMention{EID: strconv.Itoa(eid), SentenceID: sid, NodeType: nodeType, SectionHeading: "RESULTS"}
}

func TestCooccurrence(t *testing.T) {
	sentences := []common.Sentence{
		{SID: 0, SectionHeading: "RESULTS", Text: strings.Repeat("x", 300)},
	}
	mentions := []common.EntityMention{
		mention(0, 0, "DISEASE"),
		mention(1, 0, "GENE_PRODUCT"),
		mention(2, 0, "GENE_PRODUCT"),
		mention(3, 0, "ORGANISM"),
	}

	ex := NewExtractor(nlp.NewRegistry(), rules.MustDefault(), DefaultOptions())
	rels, err := ex.Extract(context.Background(), sentences, IndexBySentence(mentions))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	type edge struct{ typ, src, tgt string }
	want := []edge{
		{"GENE_PRODUCT_ASSOCIATED_WITH_DISEASE", "1", "0"},
		{"GENE_PRODUCT_ASSOCIATED_WITH_DISEASE", "2", "0"},
		{"GENE_PRODUCT_INTERACTS_WITH_GENE_PRODUCT", "1", "2"},
	}
	if len(rels) != len(want) {
		t.Fatalf("Extract() returned %d relations, want %d: %#v", len(rels), len(want), rels)
	}
	for i, w := range want {
		r := rels[i]
		if r.Type != w.typ || r.SourceEID != w.src || r.TargetEID != w.tgt {
			t.Errorf("rel %d = (%s %s->%s), want (%s %s->%s)", i, r.Type, r.SourceEID, r.TargetEID, w.typ, w.src, w.tgt)
		}
		if r.RID != i || r.Method != "COOC" || r.PatternType != "COOC" || r.Trigger != nil {
			t.Errorf("rel %d provenance = %#v", i, r)
		}
		if len(*r.EvidenceSpan) != 240 || *r.SentenceID != 0 || *r.SectionHeading != "RESULTS" {
			t.Errorf("rel %d evidence = %d chars", i, len(*r.EvidenceSpan))
		}
	}
}

func TestGeneProcessOnlyThroughVerbs(t *testing.T) {
	sentences := []common.Sentence{
		{SID: 0, Text: "TP53 was measured."},
		{SID: 1, Text: "TP53 inhibits apoptosis in tissue."},
		{SID: 2, Text: "Apoptosis was observed."},
	}
	mentions := []common.EntityMention{
		mention(0, 0, "GENE_PRODUCT"),
		mention(1, 1, "GENE_PRODUCT"),
		mention(2, 1, "BIOLOGICAL_PROCESS"),
		mention(3, 2, "BIOLOGICAL_PROCESS"),
	}

	ex := NewExtractor(newRegistry("inhibits"), rules.MustDefault(), DefaultOptions())
	rels, err := ex.Extract(context.Background(), sentences, IndexBySentence(mentions))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(rels) != 1 {
		t.Fatalf("Extract() = %#v, want one verb relation", rels)
	}
	r := rels[0]
	if r.Method != "VERB" || r.PatternType != "VERB" || r.Type != "GENE_PRODUCT_PARTICIPATES_IN_PROCESS" {
		t.Fatalf("unexpected relation %#v", r)
	}
	if r.SourceEID != "1" || r.TargetEID != "2" || common.Deref(r.Trigger) != "inhibit" {
		t.Fatalf("unexpected endpoints or trigger %#v", r)
	}
}

func TestVerbRelationsContinueIDsAndRepeat(t *testing.T) {
	sentences := []common.Sentence{
		{SID: 0, Text: "Cisplatin induces and suppresses TP53."},
	}
	mentions := []common.EntityMention{
		mention(0, 0, "CHEMICAL"),
		mention(1, 0, "GENE_PRODUCT"),
	}

	ex := NewExtractor(newRegistry("induces", "suppresses"), rules.MustDefault(), DefaultOptions())
	rels, err := ex.Extract(context.Background(), sentences, IndexBySentence(mentions))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(rels) != 3 {
		t.Fatalf("Extract() returned %d relations, want 3: %#v", len(rels), rels)
	}
	if rels[0].Method != "COOC" || rels[0].Type != "CHEMICAL_MODULATES_GENE_PRODUCT" {
		t.Fatalf("first relation = %#v", rels[0])
	}
	triggers := []string{common.Deref(rels[1].Trigger), common.Deref(rels[2].Trigger)}
	if triggers[0] != "induce" || triggers[1] != "suppress" {
		t.Fatalf("triggers = %v", triggers)
	}
	for i, r := range rels {
		if r.RID != i {
			t.Fatalf("rid %d = %d", i, r.RID)
		}
	}
}

func TestVerbPassSkipsCrowdedSentences(t *testing.T) {
	sentences := []common.Sentence{{SID: 0, Text: "Cisplatin inhibits TP53."}}
	mentions := []common.EntityMention{
		mention(0, 0, "CHEMICAL"),
		mention(1, 0, "GENE_PRODUCT"),
		mention(2, 0, "ORGANISM"),
	}

	opts := DefaultOptions()
	opts.MaxEntitiesPatternSentence = 2
	ex := NewExtractor(newRegistry("inhibits"), rules.MustDefault(), opts)
	rels, err := ex.Extract(context.Background(), sentences, IndexBySentence(mentions))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	for _, r := range rels {
		if r.Method == "VERB" {
			t.Fatalf("verb relation in crowded sentence: %#v", r)
		}
	}
	if len(rels) != 1 {
		t.Fatalf("expected the co-occurrence edge to remain, got %#v", rels)
	}
}

func TestNoTaggerMeansNoVerbRelations(t *testing.T) {
	sentences := []common.Sentence{{SID: 0, Text: "TP53 inhibits apoptosis."}}
	mentions := []common.EntityMention{
		mention(0, 0, "GENE_PRODUCT"),
		mention(1, 0, "BIOLOGICAL_PROCESS"),
	}

	ex := NewExtractor(nlp.NewRegistry(), rules.MustDefault(), DefaultOptions())
	rels, err := ex.Extract(context.Background(), sentences, IndexBySentence(mentions))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(rels) != 0 {
		t.Fatalf("Extract() = %#v, want none", rels)
	}
}
